package reconcilers

import (
	"context"
	"fmt"

	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/resolver"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

type TransitGatewayRoutes struct{}

func (r *TransitGatewayRoutes) Metadata() Metadata {
	return Metadata{
		Name:          "tgw-routes",
		Description:   "Adopt static transit gateway routes and re-point them at their attachments",
		Category:      CategoryTransitGateway,
		Phases:        []types.Phase{3},
		ResourceTypes: []string{types.CfnTransitGatewayRoute},
	}
}

// RouteKey identifies a configured transit gateway route:
// {routeTable}-{cidr}-{blackhole | peering | vpc-account}.
func RouteKey(routeTable string, route config.TransitGatewayRouteConfig) (string, error) {
	prefix := routeTable + "-" + route.DestinationCidrBlock
	switch {
	case route.Blackhole:
		return prefix + "-blackhole", nil
	case route.Attachment == nil:
		return "", types.NewConfigurationInconsistency(prefix, "route has neither an attachment nor blackhole")
	case route.Attachment.TransitGatewayPeeringName != "":
		return prefix + "-" + route.Attachment.TransitGatewayPeeringName, nil
	case route.Attachment.VpcName != "":
		return fmt.Sprintf("%s-%s-%s", prefix, route.Attachment.VpcName, route.Attachment.Account), nil
	}
	return "", types.NewConfigurationInconsistency(prefix, "route attachment names no vpc or peering")
}

func (r *TransitGatewayRoutes) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}

	adopted := make(map[string]bool)
	for _, tgw := range rc.Config.Network.TransitGatewaysIn(rc.AccountName, rc.Stack.Region) {
		for _, rtCfg := range tgw.RouteTables {
			rt, err := rc.Resolver.RouteTable(ctx, tgw.Name, rtCfg.Name)
			if err != nil {
				if err := rc.Missing(SiteRouteTable, tgw.Name+"/"+rtCfg.Name, err); err != nil {
					return err
				}
				continue
			}
			for _, route := range rtCfg.Routes {
				store, rec, err := r.reconcileRoute(ctx, rc, tgw.Name, rtCfg.Name, rt, route)
				if err != nil {
					return err
				}
				if rec != nil {
					adopted[store.Key()+"#"+rec.LogicalResourceID] = true
				}
			}
		}
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnTransitGatewayRoute) {
			if adopted[store.Key()+"#"+rec.LogicalResourceID] {
				continue
			}
			if err := rc.Delete(store, rec.LogicalResourceID); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcileRoute resolves the route's attachment before looking for its
// live record: a configured route whose attachment is gone is an error even
// when the route itself was never deployed.
func (r *TransitGatewayRoutes) reconcileRoute(ctx context.Context, rc *Context, tgwName, rtName string, rt resolver.Match, route config.TransitGatewayRouteConfig) (*inventory.Store, *types.Record, error) {
	key, err := RouteKey(rtName, route)
	if err != nil {
		return nil, nil, err
	}

	var attachmentID string
	switch {
	case route.Blackhole:
	case route.Attachment.TransitGatewayPeeringName != "":
		attachmentID, err = rc.Resolver.PeeringAttachmentID(ctx, route.Attachment.TransitGatewayPeeringName)
	default:
		attachmentID, err = rc.Resolver.TransitGatewayAttachmentID(ctx, route.Attachment.VpcName, route.Attachment.Account, tgwName)
	}
	if err != nil {
		return nil, nil, rc.Missing(SiteRouteAttachment, key, err)
	}

	store, rec := rc.find(func(s *inventory.Store) *types.Record {
		for _, candidate := range s.ByType(types.CfnTransitGatewayRoute) {
			props, err := types.DecodeProperties[types.TransitGatewayRouteProperties](candidate)
			if err != nil {
				rc.Logger.Warn("unreadable transit gateway route", "logicalId", candidate.LogicalResourceID, "error", err)
				continue
			}
			if cidr, ok := props.DestinationCidrBlock.Literal(); !ok || cidr != route.DestinationCidrBlock {
				continue
			}
			v := props.TransitGatewayRouteTableID
			if s.Key() == rt.Store.Key() && types.RefersTo(v, rt.Record.LogicalResourceID) {
				return candidate
			}
			if id, ok := types.Literal(v); ok && id == rt.ID() {
				return candidate
			}
		}
		return nil
	})
	if rec == nil {
		return nil, nil, rc.Missing(SiteRouteRecord, key, absent("live route "+key))
	}

	node, err := rc.Node(store, rec)
	if err != nil {
		return nil, nil, err
	}
	if route.Blackhole {
		node.DeleteProperty("TransitGatewayAttachmentId")
		node.SetProperty("Blackhole", true)
	} else {
		node.DeleteProperty("Blackhole")
		node.SetProperty("TransitGatewayAttachmentId", attachmentID)
	}
	rc.AdoptAs(store, rec, types.AseaTransitGatewayRoute, key)
	return store, rec, nil
}

package reconcilers

import (
	"context"

	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/matcher"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

var peeringPhases = []types.Phase{2}

type TransitGatewayPeering struct{}

func (r *TransitGatewayPeering) Metadata() Metadata {
	return Metadata{
		Name:          "tgw-peering",
		Description:   "Adopt transit gateway peering attachments on the requester side",
		Category:      CategoryTransitGateway,
		Phases:        peeringPhases,
		ResourceTypes: []string{types.CfnTransitGatewayPeering},
	}
}

func (r *TransitGatewayPeering) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}

	configured := make(map[string]bool)
	for _, p := range rc.Config.Network.TransitGatewayPeering {
		configured[p.Name] = true
		if p.Requester.Account != rc.AccountName || p.Requester.Region != rc.Stack.Region {
			continue
		}
		store, rec := rc.find(func(s *inventory.Store) *types.Record {
			return matcher.NameTag(s, types.CfnTransitGatewayPeering, p.Name)
		})
		if rec == nil {
			if err := rc.Missing(SiteNoLegacyResource, p.Name, absent("transit gateway peering "+p.Name)); err != nil {
				return err
			}
			continue
		}
		if err := r.reconcilePeering(ctx, rc, store, rec, p); err != nil {
			return err
		}
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnTransitGatewayPeering) {
			if configured[rec.Name()] {
				continue
			}
			if err := rc.Delete(store, rec.LogicalResourceID, cascade.Referencing(types.CfnTransitGatewayRoute, "TransitGatewayAttachmentId")); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *TransitGatewayPeering) reconcilePeering(ctx context.Context, rc *Context, store *inventory.Store, rec *types.Record, p *config.TransitGatewayPeeringConfig) error {
	node, err := rc.Node(store, rec)
	if err != nil {
		return err
	}
	peerAccount, err := rc.accountID(p.Accepter.Account)
	if err != nil {
		return err
	}

	sides := []struct{ prop, tgw string }{
		{"TransitGatewayId", p.Requester.TransitGatewayName},
		{"PeerTransitGatewayId", p.Accepter.TransitGatewayName},
	}
	for _, side := range sides {
		id, err := rc.Resolver.TransitGatewayID(ctx, side.tgw)
		if err != nil {
			if err := rc.Missing(SiteUpstreamStack, p.Name, err, "transitGateway", side.tgw); err != nil {
				return err
			}
			continue
		}
		node.SetProperty(side.prop, id)
	}
	node.SetProperty("PeerAccountId", peerAccount)
	node.SetProperty("PeerRegion", p.Accepter.Region)

	rc.Adopt(store, rec, types.AseaTransitGatewayPeering)
	rc.Emit(store, types.NewRef(rec.LogicalResourceID), params.TransitGatewayPeering, p.Requester.TransitGatewayName, p.Name)
	return nil
}

type VpcPeering struct{}

func (r *VpcPeering) Metadata() Metadata {
	return Metadata{
		Name:          "vpc-peering",
		Description:   "Adopt VPC peering connections owned by the requester VPC's account",
		Category:      CategoryNetwork,
		Phases:        peeringPhases,
		ResourceTypes: []string{types.CfnVpcPeeringConnection},
	}
}

func (r *VpcPeering) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}

	configured := make(map[string]bool)
	for _, pc := range rc.Config.Network.VpcPeering {
		configured[pc.Name] = true
		if len(pc.Vpcs) != 2 {
			return types.NewConfigurationInconsistency(pc.Name, "vpc peering needs exactly two vpcs, got %d", len(pc.Vpcs))
		}
		requester, ok := rc.Config.Network.Vpc(pc.Vpcs[0])
		if !ok {
			return types.NewConfigurationInconsistency(pc.Name, "requester vpc %s is not configured", pc.Vpcs[0])
		}
		if requester.Account != rc.AccountName || requester.Region != rc.Stack.Region {
			continue
		}
		store, rec := rc.find(func(s *inventory.Store) *types.Record {
			return matcher.NameTag(s, types.CfnVpcPeeringConnection, pc.Name)
		})
		if rec == nil {
			if err := rc.Missing(SiteNoLegacyResource, pc.Name, absent("vpc peering "+pc.Name)); err != nil {
				return err
			}
			continue
		}
		if err := r.reconcilePeering(ctx, rc, store, rec, pc, requester); err != nil {
			return err
		}
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnVpcPeeringConnection) {
			if configured[rec.Name()] {
				continue
			}
			var rules []cascade.Rule
			if name := rec.Name(); name != "" {
				rules = append(rules, cascade.DerivedParameter(rc.Paths.Path(params.VpcPeering, name)))
			}
			rules = append(rules, cascade.Referencing(types.CfnRoute, "VpcPeeringConnectionId"))
			if err := rc.Delete(store, rec.LogicalResourceID, rules...); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *VpcPeering) reconcilePeering(ctx context.Context, rc *Context, store *inventory.Store, rec *types.Record, pc *config.VpcPeeringConfig, requester *config.VpcConfig) error {
	accepter, ok := rc.Config.Network.Vpc(pc.Vpcs[1])
	if !ok {
		return types.NewConfigurationInconsistency(pc.Name, "accepter vpc %s is not configured", pc.Vpcs[1])
	}
	peerAccount, err := rc.accountID(accepter.Account)
	if err != nil {
		return err
	}
	node, err := rc.Node(store, rec)
	if err != nil {
		return err
	}

	if own, err := rc.Resolver.Vpc(ctx, rc.Stack.AccountID, requester.Region, requester.Name); err == nil {
		node.SetProperty("VpcId", refOrID(store, own.Store, own.Record))
	} else if err := rc.Missing(SiteUpstreamStack, pc.Name, err, "vpc", requester.Name); err != nil {
		return err
	}
	if peer, err := rc.Resolver.Vpc(ctx, peerAccount, accepter.Region, accepter.Name); err == nil {
		node.SetProperty("PeerVpcId", peer.ID())
	} else if err := rc.Missing(SiteUpstreamStack, pc.Name, err, "vpc", accepter.Name); err != nil {
		return err
	}
	node.SetProperty("PeerOwnerId", peerAccount)
	if accepter.Region != requester.Region {
		node.SetProperty("PeerRegion", accepter.Region)
	}

	rc.Adopt(store, rec, types.AseaVpcPeering)
	rc.Emit(store, types.NewRef(rec.LogicalResourceID), params.VpcPeering, pc.Name)
	return nil
}

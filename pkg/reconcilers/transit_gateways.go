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

type TransitGateways struct{}

func (r *TransitGateways) Metadata() Metadata {
	return Metadata{
		Name:          "transit-gateways",
		Description:   "Adopt transit gateways and their route tables",
		Category:      CategoryTransitGateway,
		Phases:        []types.Phase{0},
		ResourceTypes: []string{types.CfnTransitGateway, types.CfnTransitGatewayRouteTbl},
	}
}

func (r *TransitGateways) Reconcile(_ context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}

	adopted := make(map[string]bool)
	for _, tgw := range rc.Config.Network.TransitGatewaysIn(rc.AccountName, rc.Stack.Region) {
		store, rec := rc.find(func(s *inventory.Store) *types.Record {
			return matcher.NameTag(s, types.CfnTransitGateway, tgw.Name)
		})
		if rec == nil {
			if err := rc.Missing(SiteNoLegacyResource, tgw.Name, absent("transit gateway "+tgw.Name)); err != nil {
				return err
			}
			continue
		}
		adopted[store.Key()+"#"+rec.LogicalResourceID] = true

		var legacyAsn int64
		if v, ok := rec.Property("AmazonSideAsn"); ok {
			if f, ok := v.(float64); ok {
				legacyAsn = int64(f)
			}
		}
		if tgw.Asn > 0 && legacyAsn > 0 && tgw.Asn != legacyAsn {
			rc.Logger.Warn("transit gateway asn differs from configuration", "transitGateway", tgw.Name, "legacy", legacyAsn, "configured", tgw.Asn)
		}

		if err := r.routeTables(rc, store, rec, tgw); err != nil {
			return err
		}
		rc.Adopt(store, rec, types.AseaTransitGateway)
		rc.Emit(store, types.NewRef(rec.LogicalResourceID), params.TransitGateway, tgw.Name)
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnTransitGateway) {
			if adopted[store.Key()+"#"+rec.LogicalResourceID] {
				continue
			}
			var rules []cascade.Rule
			if name := rec.Name(); name != "" {
				rules = append(rules, cascade.DerivedParameter(rc.Paths.Path(params.TransitGateway, name)))
			}
			rules = append(rules,
				cascade.Referencing(types.CfnTransitGatewayRouteTbl, "TransitGatewayId"),
				cascade.Referencing(types.CfnTransitGatewayAttach, "TransitGatewayId"),
			)
			if err := rc.Delete(store, rec.LogicalResourceID, rules...); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *TransitGateways) routeTables(rc *Context, store *inventory.Store, tgw *types.Record, cfg *config.TransitGatewayConfig) error {
	configured := make(map[string]bool)
	for _, rt := range cfg.RouteTables {
		configured[rt.Name] = true
	}

	for _, rt := range store.FilterByRef(types.CfnTransitGatewayRouteTbl, "TransitGatewayId", tgw.LogicalResourceID) {
		name := rt.Name()
		if configured[name] {
			rc.Adopt(store, rt, types.AseaTransitGatewayRouteTable)
			rc.Emit(store, types.NewRef(rt.LogicalResourceID), params.TransitGatewayRouteTbl, cfg.Name, name)
			continue
		}
		err := rc.Delete(store, rt.LogicalResourceID,
			cascade.Referencing(types.CfnTransitGatewayRoute, "TransitGatewayRouteTableId"),
			cascade.Referencing(types.CfnTransitGatewayRTAssoc, "TransitGatewayRouteTableId"),
			cascade.Referencing(types.CfnTransitGatewayRTPropag, "TransitGatewayRouteTableId"),
			cascade.DerivedParameter(rc.Paths.Path(params.TransitGatewayRouteTbl, cfg.Name, name)),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

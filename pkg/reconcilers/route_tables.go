package reconcilers

import (
	"context"

	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// routeTargets are the properties of an EC2 route naming its target. A
// retargeted route carries exactly one.
var routeTargets = []string{
	"TransitGatewayId",
	"NatGatewayId",
	"GatewayId",
	"VpcPeeringConnectionId",
	"VpcEndpointId",
}

type RouteTables struct{}

func (r *RouteTables) Metadata() Metadata {
	return Metadata{
		Name:          "route-tables",
		Description:   "Adopt VPC route tables and retarget their routes",
		Category:      CategoryNetwork,
		Phases:        vpcPhases,
		ResourceTypes: []string{types.CfnRouteTable, types.CfnRoute},
	}
}

func (r *RouteTables) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	vpcs, err := rc.localVpcs(false)
	if err != nil {
		return err
	}

	for _, m := range vpcs {
		configured := make(map[string]bool)
		for _, cfg := range m.cfg.RouteTables {
			configured[cfg.Name] = true
			table := m.store.FindByName(types.CfnRouteTable, cfg.Name)
			if table == nil {
				if err := rc.Missing(SiteNoLegacyResource, cfg.Name, absent("route table "+cfg.Name), "vpc", m.cfg.Name); err != nil {
					return err
				}
				continue
			}
			if err := r.routes(ctx, rc, m, table, cfg); err != nil {
				return err
			}
			rc.Adopt(m.store, table, types.AseaRouteTable)
			rc.Emit(m.store, types.NewRef(table.LogicalResourceID), params.RouteTable, m.cfg.Name, cfg.Name)
		}

		for _, table := range m.children(types.CfnRouteTable) {
			if configured[table.Name()] {
				continue
			}
			err := rc.Delete(m.store, table.LogicalResourceID,
				cascade.Referencing(types.CfnRoute, "RouteTableId"),
				cascade.Referencing(types.CfnSubnetRouteTableAssoc, "RouteTableId"),
				cascade.DerivedParameter(rc.Paths.Path(params.RouteTable, m.cfg.Name, table.Name())),
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// routes retargets the legacy routes of a table by destination. Routes
// without a configured destination are flagged.
func (r *RouteTables) routes(ctx context.Context, rc *Context, m vpcMatch, table *types.Record, cfg config.RouteTableConfig) error {
	legacy := m.store.FilterByRef(types.CfnRoute, "RouteTableId", table.LogicalResourceID)
	byDestination := make(map[string]*types.Record)
	for _, route := range legacy {
		if cidr, ok := route.StringProperty("DestinationCidrBlock"); ok {
			byDestination[cidr] = route
		}
	}

	kept := make(map[string]bool)
	for _, entry := range cfg.Routes {
		if entry.Type == config.RouteTargetGatewayEndpoint {
			continue
		}
		route, ok := byDestination[entry.Destination]
		if !ok {
			rc.Logger.Debug("route not in legacy table", "routeTable", cfg.Name, "destination", entry.Destination)
			continue
		}
		kept[route.LogicalResourceID] = true

		prop, target, err := r.target(ctx, rc, m, entry)
		if err != nil {
			return err
		}
		if target == nil {
			continue
		}
		node, err := rc.Node(m.store, route)
		if err != nil {
			return err
		}
		for _, p := range routeTargets {
			node.DeleteProperty(p)
		}
		node.SetProperty(prop, target)
	}

	for _, route := range legacy {
		if kept[route.LogicalResourceID] {
			continue
		}
		rc.Logger.Debug("route no longer configured", "routeTable", cfg.Name, "logicalId", route.LogicalResourceID)
		if err := rc.Delete(m.store, route.LogicalResourceID); err != nil {
			return err
		}
	}
	return nil
}

// target resolves the property and value a configured route points at. A
// nil value leaves the route untouched.
func (r *RouteTables) target(ctx context.Context, rc *Context, m vpcMatch, entry config.RouteTableEntryConfig) (string, any, error) {
	switch entry.Type {
	case config.RouteTargetTransitGateway:
		id, err := rc.Resolver.TransitGatewayID(ctx, entry.Target)
		if err != nil {
			return "", nil, rc.Missing(SiteUpstreamStack, entry.Name, err, "transitGateway", entry.Target)
		}
		return "TransitGatewayId", id, nil
	case config.RouteTargetNatGateway:
		nat := m.store.FindByName(types.CfnNatGateway, entry.Target)
		if nat == nil {
			return "", nil, rc.Missing(SiteReferencedResource, entry.Name, absent("nat gateway "+entry.Target))
		}
		return "NatGatewayId", types.NewRef(nat.LogicalResourceID), nil
	case config.RouteTargetInternetGateway:
		return r.gatewayTarget(rc, m, entry, "InternetGatewayId")
	case config.RouteTargetVirtualPrivateGateway:
		return r.gatewayTarget(rc, m, entry, "VpnGatewayId")
	case config.RouteTargetVpcPeering:
		for _, s := range rc.Stores() {
			if pcx := s.FindByName(types.CfnVpcPeeringConnection, entry.Target); pcx != nil {
				return "VpcPeeringConnectionId", refOrID(m.store, s, pcx), nil
			}
		}
		return "", nil, rc.Missing(SiteReferencedResource, entry.Name, absent("vpc peering "+entry.Target))
	}
	return "", nil, types.NewConfigurationInconsistency(entry.Name, "unknown route target type %q", entry.Type)
}

// gatewayTarget points a route at the gateway attached to the VPC through
// prop.
func (r *RouteTables) gatewayTarget(rc *Context, m vpcMatch, entry config.RouteTableEntryConfig, prop string) (string, any, error) {
	scope, err := rc.ScopeOf(m.store)
	if err != nil {
		return "", nil, err
	}
	for _, att := range m.store.FilterByRef(types.CfnVpcGatewayAttachment, "VpcId", m.rec.LogicalResourceID) {
		v, ok := att.Property(prop)
		if !ok {
			continue
		}
		id, gateway, err := scope.ResolveReference(v)
		if err != nil {
			return "", nil, err
		}
		if gateway != nil {
			return "GatewayId", types.NewRef(id), nil
		}
	}
	return "", nil, rc.Missing(SiteReferencedResource, entry.Name, absent(prop+" of "+m.cfg.Name))
}

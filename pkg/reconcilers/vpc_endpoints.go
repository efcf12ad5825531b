package reconcilers

import (
	"context"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/resolver"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

type VpcEndpoints struct{}

func (r *VpcEndpoints) Metadata() Metadata {
	return Metadata{
		Name:          "vpc-endpoints",
		Description:   "Adopt gateway and interface endpoints with their private hosted zones",
		Category:      CategoryDNS,
		Phases:        []types.Phase{1, 2},
		ResourceTypes: []string{types.CfnVpcEndpoint, types.CfnHostedZone, types.CfnRecordSet},
	}
}

// endpoint is a legacy endpoint and the store holding it.
type endpoint struct {
	store *inventory.Store
	rec   *types.Record
}

// endpointProperties decodes the endpoint view. The view holds no typed
// collections, so any JSON property bag decodes.
func endpointProperties(rec *types.Record) types.VpcEndpointProperties {
	props, _ := types.DecodeProperties[types.VpcEndpointProperties](rec)
	return props
}

func legacyEndpointType(rec *types.Record) string {
	if t, ok := endpointProperties(rec).VpcEndpointType.Literal(); ok {
		return t
	}
	return string(ec2types.VpcEndpointTypeGateway)
}

func (r *VpcEndpoints) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}

	for _, vpc := range rc.Config.Network.VpcsIn(rc.Config.Accounts, rc.AccountName, rc.Stack.Region) {
		legacy, err := rc.Resolver.Vpc(ctx, rc.Stack.AccountID, rc.Stack.Region, vpc.Name)
		if err != nil {
			if err := rc.Missing(SiteUpstreamStack, vpc.Name, err); err != nil {
				return err
			}
			continue
		}
		if err := r.reconcileVpc(ctx, rc, vpc, legacy); err != nil {
			return err
		}
	}
	return nil
}

// endpointsOf lists the endpoints of the stack attached to vpc.
func (r *VpcEndpoints) endpointsOf(rc *Context, vpc resolver.Match) []endpoint {
	var out []endpoint
	for _, s := range rc.Stores() {
		for _, rec := range s.ByType(types.CfnVpcEndpoint) {
			v := endpointProperties(rec).VpcID
			if v == nil {
				continue
			}
			if s.Key() == vpc.Store.Key() && types.RefersTo(v, vpc.Record.LogicalResourceID) {
				out = append(out, endpoint{s, rec})
				continue
			}
			if id, ok := valueID(s, v); ok && id == vpc.ID() {
				out = append(out, endpoint{s, rec})
			}
		}
	}
	return out
}

func (r *VpcEndpoints) reconcileVpc(ctx context.Context, rc *Context, vpc *config.VpcConfig, legacy resolver.Match) error {
	candidates := r.endpointsOf(rc, legacy)
	if len(candidates) == 0 {
		return nil
	}

	adopted := make(map[string]bool)
	adopt := func(services []config.EndpointConfig, kind ec2types.VpcEndpointType) error {
		for _, svc := range services {
			name := EndpointServiceName(svc.Service, rc.Stack.Region, rc.Partition)
			ep, ok := r.find(rc, candidates, name, string(kind))
			if !ok {
				if err := rc.Missing(SiteNoLegacyResource, svc.Service, absent("endpoint "+name), "vpc", vpc.Name); err != nil {
					return err
				}
				continue
			}
			adopted[ep.store.Key()+"#"+ep.rec.LogicalResourceID] = true
			if err := r.reconcileEndpoint(ctx, rc, vpc, ep, svc.Service, kind); err != nil {
				return err
			}
		}
		return nil
	}
	if vpc.GatewayEndpoints != nil {
		if err := adopt(vpc.GatewayEndpoints.Endpoints, ec2types.VpcEndpointTypeGateway); err != nil {
			return err
		}
	}
	if vpc.InterfaceEndpoints != nil {
		if err := adopt(vpc.InterfaceEndpoints.Endpoints, ec2types.VpcEndpointTypeInterface); err != nil {
			return err
		}
	}

	for _, ep := range candidates {
		if adopted[ep.store.Key()+"#"+ep.rec.LogicalResourceID] {
			continue
		}
		if err := r.deleteEndpoint(rc, vpc, ep); err != nil {
			return err
		}
	}
	return nil
}

func (r *VpcEndpoints) find(rc *Context, candidates []endpoint, serviceName, endpointType string) (endpoint, bool) {
	for _, ep := range candidates {
		v := endpointProperties(ep.rec).ServiceName
		if v == nil {
			continue
		}
		if rendered, ok := types.Render(v, rc.Pseudo); ok && rendered == serviceName && endpointType == legacyEndpointType(ep.rec) {
			return ep, true
		}
	}
	return endpoint{}, false
}

func (r *VpcEndpoints) reconcileEndpoint(ctx context.Context, rc *Context, vpc *config.VpcConfig, ep endpoint, service string, kind ec2types.VpcEndpointType) error {
	if kind == ec2types.VpcEndpointTypeInterface && len(vpc.InterfaceEndpoints.Subnets) > 0 {
		subnets := make([]any, 0, len(vpc.InterfaceEndpoints.Subnets))
		for _, name := range vpc.InterfaceEndpoints.Subnets {
			if subnet := rc.subnet(ep.store, vpc.Name, name); subnet != nil {
				subnets = append(subnets, types.NewRef(subnet.LogicalResourceID))
				continue
			}
			id, err := rc.Resolver.VpcResourceID(ctx, rc.Stack.AccountID, rc.Stack.Region, vpc.Name, types.CfnSubnet, name)
			if err != nil {
				if err := rc.Missing(SiteReferencedResource, service, err, "subnet", name); err != nil {
					return err
				}
				continue
			}
			subnets = append(subnets, id)
		}
		if len(subnets) > 0 {
			node, err := rc.Node(ep.store, ep.rec)
			if err != nil {
				return err
			}
			node.SetProperty("SubnetIds", subnets)
		}
	}

	rc.Adopt(ep.store, ep.rec, types.AseaVpcEndpoint)
	rc.Emit(ep.store, types.NewRef(ep.rec.LogicalResourceID), params.VpcEndpoint, vpc.Name, service)

	if kind != ec2types.VpcEndpointTypeInterface {
		return nil
	}
	zoneName := EndpointHostedZoneName(service, rc.Stack.Region, rc.Partition)
	zoneStore, zone := r.hostedZone(rc, zoneName)
	if zone == nil {
		return rc.Missing(SiteEndpointDNS, service, absent("hosted zone "+zoneName), "vpc", vpc.Name)
	}
	records := zoneStore.FilterByRef(types.CfnRecordSet, "HostedZoneId", zone.LogicalResourceID)
	if len(records) == 0 {
		return rc.Missing(SiteEndpointDNS, service, absent("record set of "+zoneName), "vpc", vpc.Name)
	}
	rc.Adopt(zoneStore, zone, types.AseaRoute53HostedZone)
	for _, rs := range records {
		rc.Adopt(zoneStore, rs, types.AseaRoute53RecordSet)
	}
	rc.Emit(zoneStore, types.NewRef(zone.LogicalResourceID), params.HostedZone, vpc.Name, service)
	return nil
}

func (r *VpcEndpoints) hostedZone(rc *Context, zoneName string) (*inventory.Store, *types.Record) {
	return rc.find(func(s *inventory.Store) *types.Record {
		for _, z := range s.ByType(types.CfnHostedZone) {
			if name, ok := z.StringProperty("Name"); ok && zoneNameMatches(name, zoneName) {
				return z
			}
		}
		return nil
	})
}

// endpointDNS targets the hosted zone of a deleted interface endpoint and
// its record sets.
func endpointDNS(zoneStore *inventory.Store, zone *types.Record) cascade.Rule {
	return func(*inventory.Store, *types.Record) []cascade.Target {
		if zone == nil {
			return nil
		}
		out := []cascade.Target{{Store: zoneStore, LogicalID: zone.LogicalResourceID}}
		for _, rs := range zoneStore.FilterByRefAll(types.CfnRecordSet, "HostedZoneId", zone.LogicalResourceID) {
			out = append(out, cascade.Target{Store: zoneStore, LogicalID: rs.LogicalResourceID})
		}
		return out
	}
}

func (r *VpcEndpoints) deleteEndpoint(rc *Context, vpc *config.VpcConfig, ep endpoint) error {
	var rules []cascade.Rule
	rendered, _ := types.Render(endpointProperties(ep.rec).ServiceName, rc.Pseudo)
	if service, ok := serviceFromEndpointName(rendered, rc.Stack.Region); ok {
		rules = append(rules, cascade.DerivedParameter(rc.Paths.Path(params.VpcEndpoint, vpc.Name, service)))
		if legacyEndpointType(ep.rec) == string(ec2types.VpcEndpointTypeInterface) {
			zoneStore, zone := r.hostedZone(rc, EndpointHostedZoneName(service, rc.Stack.Region, rc.Partition))
			if zone != nil {
				rules = append(rules,
					endpointDNS(zoneStore, zone),
					cascade.DerivedParameterIn(zoneStore, rc.Paths.Path(params.HostedZone, vpc.Name, service)),
				)
			}
		}
	}
	return rc.Delete(ep.store, ep.rec.LogicalResourceID, rules...)
}

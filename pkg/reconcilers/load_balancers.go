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

const (
	loadBalancerApplication = "application"
	loadBalancerNetwork     = "network"
)

type LoadBalancers struct{}

func (r *LoadBalancers) Metadata() Metadata {
	return Metadata{
		Name:          "load-balancers",
		Description:   "Adopt application and network load balancers and target groups",
		Category:      CategoryNetwork,
		Phases:        dnsPhases,
		ResourceTypes: []string{types.CfnLoadBalancer, types.CfnTargetGroup, types.CfnListener},
	}
}

func legacyLoadBalancerType(rec *types.Record) string {
	if t, ok := rec.StringProperty("Type"); ok && t != "" {
		return t
	}
	return loadBalancerApplication
}

func (r *LoadBalancers) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}

	adopted := make(map[string]bool)
	key := func(s *inventory.Store, rec *types.Record) string { return s.Key() + "#" + rec.LogicalResourceID }

	for _, vpc := range rc.Config.Network.VpcsIn(rc.Config.Accounts, rc.AccountName, rc.Stack.Region) {
		if vpc.LoadBalancers != nil {
			for _, lb := range vpc.LoadBalancers.ApplicationLoadBalancers {
				store, rec, err := r.loadBalancer(ctx, rc, vpc, lb, loadBalancerApplication, types.AseaApplicationLoadBalancer)
				if err != nil {
					return err
				}
				if rec != nil {
					adopted[key(store, rec)] = true
				}
			}
			for _, lb := range vpc.LoadBalancers.NetworkLoadBalancers {
				store, rec, err := r.loadBalancer(ctx, rc, vpc, lb, loadBalancerNetwork, types.AseaNetworkLoadBalancer)
				if err != nil {
					return err
				}
				if rec != nil {
					adopted[key(store, rec)] = true
				}
			}
		}

		for _, tg := range vpc.TargetGroups {
			store, rec := rc.find(func(s *inventory.Store) *types.Record {
				return s.FindByProperty(types.CfnTargetGroup, "Name", tg.Name, inventory.MatchExact)
			})
			if rec == nil {
				if err := rc.Missing(SiteNoLegacyResource, tg.Name, absent("target group "+tg.Name), "vpc", vpc.Name); err != nil {
					return err
				}
				continue
			}
			adopted[key(store, rec)] = true
			r.compareTargetGroup(rc, rec, tg)
			rc.Adopt(store, rec, types.AseaTargetGroup)
			rc.Emit(store, types.NewRef(rec.LogicalResourceID), params.TargetGroup, vpc.Name, tg.Name)
		}
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnLoadBalancer) {
			if adopted[key(store, rec)] {
				continue
			}
			if err := rc.Delete(store, rec.LogicalResourceID, cascade.Referencing(types.CfnListener, "LoadBalancerArn")); err != nil {
				return err
			}
		}
		for _, rec := range store.ByType(types.CfnTargetGroup) {
			if adopted[key(store, rec)] {
				continue
			}
			if err := rc.Delete(store, rec.LogicalResourceID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *LoadBalancers) loadBalancer(ctx context.Context, rc *Context, vpc *config.VpcConfig, cfg config.LoadBalancerConfig, lbType string, asea types.AseaResourceType) (*inventory.Store, *types.Record, error) {
	store, rec := rc.find(func(s *inventory.Store) *types.Record {
		lb := s.FindByProperty(types.CfnLoadBalancer, "Name", cfg.Name, inventory.MatchExact)
		if lb != nil && legacyLoadBalancerType(lb) == lbType {
			return lb
		}
		return nil
	})
	if rec == nil {
		return nil, nil, rc.Missing(SiteNoLegacyResource, cfg.Name, absent(lbType+" load balancer "+cfg.Name), "vpc", vpc.Name)
	}
	node, err := rc.Node(store, rec)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Scheme != "" {
		node.SetProperty("Scheme", cfg.Scheme)
	}
	subnets, err := r.vpcResources(ctx, rc, store, vpc, cfg.Name, types.CfnSubnet, cfg.Subnets)
	if err != nil {
		return nil, nil, err
	}
	if len(subnets) > 0 {
		node.SetProperty("Subnets", subnets)
	}
	if lbType == loadBalancerApplication {
		groups, err := r.vpcResources(ctx, rc, store, vpc, cfg.Name, types.CfnSecurityGroup, cfg.SecurityGroups)
		if err != nil {
			return nil, nil, err
		}
		if len(groups) > 0 {
			node.SetProperty("SecurityGroups", groups)
		}
	}

	rc.Adopt(store, rec, asea)
	rc.Emit(store, types.NewRef(rec.LogicalResourceID), params.LoadBalancer, vpc.Name, cfg.Name)
	return store, rec, nil
}

// vpcResources resolves subnets or security groups of a VPC by name, from
// the load balancer's own stack first.
func (r *LoadBalancers) vpcResources(ctx context.Context, rc *Context, store *inventory.Store, vpc *config.VpcConfig, item, resourceType string, names []string) ([]any, error) {
	out := make([]any, 0, len(names))
	for _, name := range names {
		switch resourceType {
		case types.CfnSubnet:
			if s := rc.subnet(store, vpc.Name, name); s != nil {
				out = append(out, types.NewRef(s.LogicalResourceID))
				continue
			}
		case types.CfnSecurityGroup:
			if sg := matcher.SecurityGroup(store, name); sg != nil {
				out = append(out, types.NewGetAtt(sg.LogicalResourceID, "GroupId"))
				continue
			}
		}
		id, err := rc.Resolver.VpcResourceID(ctx, rc.Stack.AccountID, rc.Stack.Region, vpc.Name, resourceType, name)
		if err != nil {
			if err := rc.Missing(SiteReferencedResource, item, err, "resource", name); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (r *LoadBalancers) compareTargetGroup(rc *Context, rec *types.Record, cfg config.TargetGroupConfig) {
	if p, ok := rec.StringProperty("Protocol"); ok && cfg.Protocol != "" && p != cfg.Protocol {
		rc.Logger.Warn("target group protocol differs from configuration", "targetGroup", cfg.Name, "legacy", p, "configured", cfg.Protocol)
	}
	if v, ok := rec.Property("Port"); ok && cfg.Port > 0 {
		if port, ok := v.(float64); ok && int(port) != cfg.Port {
			rc.Logger.Warn("target group port differs from configuration", "targetGroup", cfg.Name, "legacy", int(port), "configured", cfg.Port)
		}
	}
}

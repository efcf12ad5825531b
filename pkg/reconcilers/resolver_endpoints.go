package reconcilers

import (
	"context"
	"slices"
	"strings"

	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/matcher"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

var dnsPhases = []types.Phase{2}

type ResolverEndpoints struct{}

func (r *ResolverEndpoints) Metadata() Metadata {
	return Metadata{
		Name:          "resolver-endpoints",
		Description:   "Adopt Route 53 Resolver endpoints and their forwarding rules",
		Category:      CategoryDNS,
		Phases:        dnsPhases,
		ResourceTypes: []string{types.CfnResolverEndpoint, types.CfnResolverRule, types.CfnResolverRuleAssoc},
	}
}

func direction(endpointType string) string {
	if strings.EqualFold(endpointType, config.ResolverInbound) {
		return matcher.Inbound
	}
	return matcher.Outbound
}

func (r *ResolverEndpoints) Reconcile(_ context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}

	adopted := make(map[string]bool)
	key := func(s *inventory.Store, rec *types.Record) string { return s.Key() + "#" + rec.LogicalResourceID }

	for _, vpc := range rc.Config.Network.VpcsIn(rc.Config.Accounts, rc.AccountName, rc.Stack.Region) {
		for _, ep := range rc.Config.Network.ResolverEndpoints(vpc.Name) {
			store, rec := rc.find(func(s *inventory.Store) *types.Record {
				return matcher.ResolverEndpoint(s, vpc.Name, direction(ep.Type))
			})
			if rec == nil {
				if err := rc.Missing(SiteNoLegacyResource, ep.Name, absent("resolver endpoint "+matcher.ResolverEndpointName(vpc.Name, direction(ep.Type)))); err != nil {
					return err
				}
				continue
			}
			adopted[key(store, rec)] = true
			if err := r.reconcileEndpoint(rc, vpc, store, rec, ep); err != nil {
				return err
			}

			for _, rule := range ep.Rules {
				ruleStore, ruleRec := rc.find(func(s *inventory.Store) *types.Record { return resolverRule(s, rule) })
				if ruleRec == nil {
					if err := rc.Missing(SiteNoLegacyResource, rule.Name, absent("resolver rule "+rule.Name)); err != nil {
						return err
					}
					continue
				}
				adopted[key(ruleStore, ruleRec)] = true
				if err := r.reconcileRule(rc, ruleStore, ruleRec, store, rec, rule); err != nil {
					return err
				}
			}
		}
	}

	// rules go first so their associations are flagged with them
	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnResolverRule) {
			if adopted[key(store, rec)] {
				continue
			}
			if err := rc.Delete(store, rec.LogicalResourceID, cascade.Referencing(types.CfnResolverRuleAssoc, "ResolverRuleId")); err != nil {
				return err
			}
		}
	}
	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnResolverEndpoint) {
			if adopted[key(store, rec)] {
				continue
			}
			if err := rc.Delete(store, rec.LogicalResourceID, cascade.Referencing(types.CfnResolverRule, "ResolverEndpointId")); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolverRule matches a rule by Name, then by domain name.
func resolverRule(s *inventory.Store, rule config.ResolverRuleConfig) *types.Record {
	if r := s.FindByProperty(types.CfnResolverRule, "Name", rule.Name, inventory.MatchExact); r != nil {
		return r
	}
	for _, r := range s.ByType(types.CfnResolverRule) {
		if d, ok := r.StringProperty("DomainName"); ok && zoneNameMatches(d, rule.DomainName) {
			return r
		}
	}
	return nil
}

func (r *ResolverEndpoints) reconcileEndpoint(rc *Context, vpc *config.VpcConfig, store *inventory.Store, rec *types.Record, ep config.ResolverEndpointConfig) error {
	node, err := rc.Node(store, rec)
	if err != nil {
		return err
	}
	node.SetProperty("Name", ep.Name)
	node.SetProperty("Direction", strings.ToUpper(ep.Type))

	var addresses []any
	for _, name := range ep.Subnets {
		subnet := rc.subnet(store, vpc.Name, name)
		if subnet == nil {
			if err := rc.Missing(SiteReferencedResource, ep.Name, absent("subnet "+name)); err != nil {
				return err
			}
			continue
		}
		addresses = append(addresses, map[string]any{"SubnetId": types.NewRef(subnet.LogicalResourceID)})
	}
	if len(addresses) > 0 {
		node.SetProperty("IpAddresses", addresses)
	}

	rc.Adopt(store, rec, types.AseaResolverEndpoint)
	rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "ResolverEndpointId"), params.ResolverEndpoint, ep.Name)
	return nil
}

func (r *ResolverEndpoints) reconcileRule(rc *Context, store *inventory.Store, rec *types.Record, epStore *inventory.Store, ep *types.Record, rule config.ResolverRuleConfig) error {
	node, err := rc.Node(store, rec)
	if err != nil {
		return err
	}
	var endpointID any = ep.Identifier()
	if store.Key() == epStore.Key() {
		endpointID = types.NewGetAtt(ep.LogicalResourceID, "ResolverEndpointId")
	}
	node.SetProperty("ResolverEndpointId", endpointID)
	node.SetProperty("Name", rule.Name)
	node.SetProperty("DomainName", rule.DomainName)
	if len(rule.TargetIps) > 0 {
		targets := make([]any, 0, len(rule.TargetIps))
		for _, ip := range rule.TargetIps {
			targets = append(targets, map[string]any{"Ip": ip, "Port": "53"})
		}
		node.SetProperty("TargetIps", targets)
	}

	rc.Adopt(store, rec, types.AseaResolverRule)
	rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "ResolverRuleId"), params.ResolverRule, rule.Name)
	return nil
}

type QueryLogging struct{}

func (r *QueryLogging) Metadata() Metadata {
	return Metadata{
		Name:          "query-logging",
		Description:   "Adopt resolver query logging configurations and their VPC associations",
		Category:      CategoryDNS,
		Phases:        dnsPhases,
		ResourceTypes: []string{types.CfnQueryLoggingConfig, types.CfnQueryLoggingConfigAssoc},
	}
}

func (r *QueryLogging) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	ql := rc.Config.Network.QueryLogs()

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnQueryLoggingConfig) {
			name, _ := rec.StringProperty("Name")
			if ql == nil || name != ql.Name {
				if err := rc.Delete(store, rec.LogicalResourceID, cascade.Referencing(types.CfnQueryLoggingConfigAssoc, "ResolverQueryLogConfigId")); err != nil {
					return err
				}
				continue
			}
			rc.Adopt(store, rec, types.AseaQueryLogging)
			rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "Id"), params.QueryLogConfig, ql.Name)
			if err := r.associations(ctx, rc, store, rec, ql); err != nil {
				return err
			}
		}
	}
	return nil
}

// associations keeps the associations of VPCs that still list the
// configuration.
func (r *QueryLogging) associations(ctx context.Context, rc *Context, store *inventory.Store, cfg *types.Record, ql *config.QueryLogsConfig) error {
	wanted := make(map[string]bool)
	for _, vpc := range rc.Config.Network.VpcsIn(rc.Config.Accounts, rc.AccountName, rc.Stack.Region) {
		if !slices.Contains(vpc.QueryLogs, ql.Name) {
			continue
		}
		m, err := rc.Resolver.Vpc(ctx, rc.Stack.AccountID, rc.Stack.Region, vpc.Name)
		if err != nil {
			if err := rc.Missing(SiteUpstreamStack, vpc.Name, err); err != nil {
				return err
			}
			continue
		}
		wanted[m.ID()] = true
	}

	for _, assoc := range store.FilterByRef(types.CfnQueryLoggingConfigAssoc, "ResolverQueryLogConfigId", cfg.LogicalResourceID) {
		v, _ := assoc.Property("ResourceId")
		if id, ok := valueID(store, v); ok && wanted[id] {
			rc.Adopt(store, assoc, types.AseaQueryLoggingAssociation)
			continue
		}
		if err := rc.Delete(store, assoc.LogicalResourceID); err != nil {
			return err
		}
	}
	return nil
}

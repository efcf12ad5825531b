package reconcilers

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// referencingPoliciesQuery lists the firewall policies whose document holds
// a Ref to the rule group %s.
const referencingPoliciesQuery = `.[] | select(.resourceType == "AWS::NetworkFirewall::FirewallPolicy") | select(any(.resourceMetadata.Properties | ..; . == {"Ref": %s})) | .logicalResourceId`

type NetworkFirewall struct{}

func (r *NetworkFirewall) Metadata() Metadata {
	return Metadata{
		Name:          "network-firewall",
		Description:   "Adopt network firewalls, firewall policies and rule groups",
		Category:      CategorySecurity,
		Phases:        dnsPhases,
		ResourceTypes: []string{types.CfnFirewall, types.CfnFirewallPolicy, types.CfnFirewallRuleGroup},
	}
}

func inRegion(regions []string, region string) bool {
	return len(regions) == 0 || slices.Contains(regions, region)
}

func (r *NetworkFirewall) Reconcile(ctx context.Context, rc *Context) error {
	if !rc.InPhase(r.Metadata()) {
		return nil
	}
	nfw := rc.Config.Network.NetworkFirewall()

	groups, stale, err := r.ruleGroups(rc, nfw)
	if err != nil {
		return err
	}
	policies, err := r.policies(rc, nfw, groups, stale)
	if err != nil {
		return err
	}
	return r.firewalls(ctx, rc, nfw, policies)
}

// staleRefs maps a firewall policy, by store key and logical id, to the
// deleted rule groups it still points at.
type staleRefs map[string][]string

func (r *NetworkFirewall) ruleGroups(rc *Context, nfw *config.NetworkFirewallConfig) (map[string]localRef, staleRefs, error) {
	adopted := make(map[string]localRef)
	for _, cfg := range nfw.Rules {
		if !inRegion(cfg.Regions, rc.Stack.Region) {
			continue
		}
		store, rec := rc.find(func(s *inventory.Store) *types.Record {
			return s.FindByProperty(types.CfnFirewallRuleGroup, "RuleGroupName", cfg.Name, inventory.MatchExact)
		})
		if rec == nil {
			if err := rc.Missing(SiteNoLegacyResource, cfg.Name, absent("rule group "+cfg.Name)); err != nil {
				return nil, nil, err
			}
			continue
		}
		adopted[cfg.Name] = newLocalRef(store, rec)
		rc.Adopt(store, rec, types.AseaNetworkFirewallRuleGroup)
		rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "RuleGroupArn"), params.FirewallRuleGroup, cfg.Name)
	}

	configured := make(map[string]bool)
	for _, cfg := range nfw.Policies {
		if inRegion(cfg.Regions, rc.Stack.Region) {
			configured[cfg.Name] = true
		}
	}

	stale := make(staleRefs)
	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnFirewallRuleGroup) {
			name, _ := rec.StringProperty("RuleGroupName")
			if ref, ok := adopted[name]; ok && ref.logicalID == rec.LogicalResourceID && ref.scope == store.Key() {
				continue
			}
			referencing, err := r.referencingPolicies(store, rec)
			if err != nil {
				return nil, nil, err
			}
			// a policy that stays configured is rewritten, the others go with the group
			var dependents []string
			for _, id := range referencing {
				policy, ok := store.ByLogicalID(id)
				if !ok {
					continue
				}
				if name, _ := policy.StringProperty("FirewallPolicyName"); configured[name] {
					key := store.Key() + "#" + id
					stale[key] = append(stale[key], rec.LogicalResourceID)
					continue
				}
				dependents = append(dependents, id)
			}
			if err := rc.Delete(store, rec.LogicalResourceID, cascade.Records(dependents...)); err != nil {
				return nil, nil, err
			}
		}
	}
	return adopted, stale, nil
}

// referencingPolicies lists the live firewall policies of store whose
// document holds a Ref to group.
func (r *NetworkFirewall) referencingPolicies(store *inventory.Store, group *types.Record) ([]string, error) {
	id, err := json.Marshal(group.LogicalResourceID)
	if err != nil {
		return nil, err
	}
	refs, err := store.Select(fmt.Sprintf(referencingPoliciesQuery, id))
	if err != nil {
		return nil, fmt.Errorf("querying policies of rule group %s: %w", group.LogicalResourceID, err)
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if s, ok := ref.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *NetworkFirewall) policies(rc *Context, nfw *config.NetworkFirewallConfig, groups map[string]localRef, stale staleRefs) (map[string]localRef, error) {
	adopted := make(map[string]localRef)
	for _, cfg := range nfw.Policies {
		if !inRegion(cfg.Regions, rc.Stack.Region) {
			continue
		}
		store, rec := rc.find(func(s *inventory.Store) *types.Record {
			return s.FindByProperty(types.CfnFirewallPolicy, "FirewallPolicyName", cfg.Name, inventory.MatchExact)
		})
		if rec == nil {
			if err := rc.Missing(SiteNoLegacyResource, cfg.Name, absent("firewall policy "+cfg.Name)); err != nil {
				return nil, err
			}
			continue
		}
		if err := r.rewritePolicy(rc, store, rec, cfg, groups, stale[store.Key()+"#"+rec.LogicalResourceID]); err != nil {
			return nil, err
		}
		adopted[cfg.Name] = newLocalRef(store, rec)
		rc.Adopt(store, rec, types.AseaNetworkFirewallPolicy)
		rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "FirewallPolicyArn"), params.FirewallPolicy, cfg.Name)
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnFirewallPolicy) {
			name, _ := rec.StringProperty("FirewallPolicyName")
			if ref, ok := adopted[name]; ok && ref.logicalID == rec.LogicalResourceID && ref.scope == store.Key() {
				continue
			}
			if err := rc.Delete(store, rec.LogicalResourceID); err != nil {
				return nil, err
			}
		}
	}
	return adopted, nil
}

// rewritePolicy points the policy document at the configured rule groups,
// drops the dependencies on deleted groups and keeps every other setting of
// the legacy document.
func (r *NetworkFirewall) rewritePolicy(rc *Context, store *inventory.Store, rec *types.Record, cfg config.FirewallPolicyConfig, groups map[string]localRef, deletedGroups []string) error {
	node, err := rc.Node(store, rec)
	if err != nil {
		return err
	}
	for _, id := range deletedGroups {
		if node.RemoveDependency(id) {
			rc.Logger.Info("dropped dependency on deleted rule group", "policy", rec.LogicalResourceID, "ruleGroup", id)
		}
	}
	doc := make(map[string]any)
	if v, ok := node.Property("FirewallPolicy"); ok {
		if m, ok := v.(map[string]any); ok {
			for k, v := range m {
				doc[k] = v
			}
		}
	}

	resolve := func(refs []config.RuleGroupReference, stateless bool) ([]any, error) {
		out := make([]any, 0, len(refs))
		for i, ref := range refs {
			group, ok := groups[ref.Name]
			if !ok {
				if err := rc.Missing(SiteReferencedResource, cfg.Name, absent("rule group "+ref.Name)); err != nil {
					return nil, err
				}
				continue
			}
			entry := map[string]any{"ResourceArn": group.att(store.Key(), "RuleGroupArn")}
			if stateless {
				entry["Priority"] = i + 1
			}
			out = append(out, entry)
		}
		return out, nil
	}

	stateful, err := resolve(cfg.FirewallPolicy.StatefulRuleGroups, false)
	if err != nil {
		return err
	}
	stateless, err := resolve(cfg.FirewallPolicy.StatelessRuleGroups, true)
	if err != nil {
		return err
	}
	setOrDelete(doc, "StatefulRuleGroupReferences", stateful)
	setOrDelete(doc, "StatelessRuleGroupReferences", stateless)
	node.SetProperty("FirewallPolicy", doc)
	return nil
}

func setOrDelete(doc map[string]any, key string, values []any) {
	if len(values) == 0 {
		delete(doc, key)
		return
	}
	doc[key] = values
}

func (r *NetworkFirewall) firewalls(ctx context.Context, rc *Context, nfw *config.NetworkFirewallConfig, policies map[string]localRef) error {
	local := make(map[string]*config.VpcConfig)
	for _, vpc := range rc.Config.Network.VpcsIn(rc.Config.Accounts, rc.AccountName, rc.Stack.Region) {
		local[vpc.Name] = vpc
	}

	adopted := make(map[string]bool)
	for _, cfg := range nfw.Firewalls {
		vpc, ok := local[cfg.Vpc]
		if !ok {
			continue
		}
		store, rec := rc.find(func(s *inventory.Store) *types.Record {
			return s.FindByProperty(types.CfnFirewall, "FirewallName", cfg.Name, inventory.MatchExact)
		})
		if rec == nil {
			if err := rc.Missing(SiteNoLegacyResource, cfg.Name, absent("firewall "+cfg.Name)); err != nil {
				return err
			}
			continue
		}
		adopted[store.Key()+"#"+rec.LogicalResourceID] = true
		if err := r.reconcileFirewall(ctx, rc, store, rec, cfg, vpc, policies); err != nil {
			return err
		}
	}

	for _, store := range rc.Stores() {
		for _, rec := range store.ByType(types.CfnFirewall) {
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

func (r *NetworkFirewall) reconcileFirewall(ctx context.Context, rc *Context, store *inventory.Store, rec *types.Record, cfg config.FirewallConfig, vpc *config.VpcConfig, policies map[string]localRef) error {
	node, err := rc.Node(store, rec)
	if err != nil {
		return err
	}

	if policy, ok := policies[cfg.FirewallPolicy]; ok {
		node.SetProperty("FirewallPolicyArn", policy.att(store.Key(), "FirewallPolicyArn"))
	} else if err := rc.Missing(SiteReferencedResource, cfg.Name, absent("firewall policy "+cfg.FirewallPolicy)); err != nil {
		return err
	}

	legacyVpc, err := rc.Resolver.Vpc(ctx, rc.Stack.AccountID, rc.Stack.Region, vpc.Name)
	if err != nil {
		if err := rc.Missing(SiteUpstreamStack, cfg.Name, err, "vpc", vpc.Name); err != nil {
			return err
		}
	} else {
		node.SetProperty("VpcId", refOrID(store, legacyVpc.Store, legacyVpc.Record))
	}

	var mappings []any
	for _, name := range cfg.Subnets {
		var subnet any
		if s := rc.subnet(store, vpc.Name, name); s != nil {
			subnet = types.NewRef(s.LogicalResourceID)
		} else if id, err := rc.Resolver.VpcResourceID(ctx, rc.Stack.AccountID, rc.Stack.Region, vpc.Name, types.CfnSubnet, name); err == nil {
			subnet = id
		} else {
			if err := rc.Missing(SiteReferencedResource, cfg.Name, err, "subnet", name); err != nil {
				return err
			}
			continue
		}
		mappings = append(mappings, map[string]any{"SubnetId": subnet})
	}
	if len(mappings) > 0 {
		node.SetProperty("SubnetMappings", mappings)
	}

	rc.Adopt(store, rec, types.AseaNetworkFirewall)
	rc.Emit(store, types.NewGetAtt(rec.LogicalResourceID, "FirewallArn"), params.NetworkFirewall, vpc.Name, cfg.Name)
	return nil
}

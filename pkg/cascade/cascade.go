// Package cascade flags legacy resources that have lost their configuration
// entry together with the artifacts that only exist because of them.
package cascade

import (
	"fmt"
	"log/slog"

	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/matcher"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// Target is one record to flag.
type Target struct {
	Store     *inventory.Store
	LogicalID string
}

// Rule lists the artifacts related to primary. Rules see flagged records so
// a cascade stays complete when its targets were flagged first.
type Rule func(store *inventory.Store, primary *types.Record) []Target

type Calculator struct {
	logger *slog.Logger
}

func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{logger: logger}
}

// Apply flags logicalID and every target of rules unless the resource is
// still configured. Only flags produced by this call are returned, so
// applying twice yields nothing the second time.
func (c *Calculator) Apply(store *inventory.Store, logicalID string, configured bool, rules ...Rule) ([]types.DeletionFlag, error) {
	if configured {
		return nil, nil
	}
	primary, ok := store.ByLogicalIDAll(logicalID)
	if !ok {
		return nil, fmt.Errorf("cascade: no record %q in stack %s", logicalID, store.Key())
	}

	targets := []Target{{Store: store, LogicalID: logicalID}}
	for _, rule := range rules {
		targets = append(targets, rule(store, primary)...)
	}

	var produced []types.DeletionFlag
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		key := t.Store.Key() + "#" + t.LogicalID
		if seen[key] {
			continue
		}
		seen[key] = true

		flag, added, err := t.Store.MarkDeleted(t.LogicalID)
		if err != nil {
			return produced, err
		}
		if !added {
			continue
		}
		c.logger.Info("flagged for deletion", "stack", flag.StackKey, "type", flag.Type, "logicalId", flag.LogicalID, "identifier", flag.Identifier)
		produced = append(produced, flag)
	}
	return produced, nil
}

// DerivedParameter targets the SSM parameter named name in the primary's
// stack.
func DerivedParameter(name string) Rule {
	return DerivedParameterIn(nil, name)
}

// DerivedParameterIn targets a parameter held by another stack. A nil store
// means the primary's stack.
func DerivedParameterIn(paramStore *inventory.Store, name string) Rule {
	return func(store *inventory.Store, _ *types.Record) []Target {
		if paramStore != nil {
			store = paramStore
		}
		if r := matcher.SSMParameter(store, name); r != nil {
			return []Target{{Store: store, LogicalID: r.LogicalResourceID}}
		}
		return nil
	}
}

// InstanceProfiles targets instance profiles wrapping a role.
func InstanceProfiles() Rule {
	return Referencing(types.CfnIamInstanceProfile, "Roles")
}

var securityGroupRuleRefs = []string{"GroupId", "SourceSecurityGroupId", "DestinationSecurityGroupId"}

// SecurityGroupRules targets every ingress and egress rule that references
// the group through GroupId, SourceSecurityGroupId or
// DestinationSecurityGroupId, in the primary's stack, its nested stacks, and
// any extra stores.
func SecurityGroupRules(extra ...*inventory.Store) Rule {
	return func(store *inventory.Store, primary *types.Record) []Target {
		stores := append([]*inventory.Store{store}, store.NestedStores()...)
		stores = append(stores, extra...)

		var out []Target
		for _, s := range stores {
			for _, ruleType := range []string{types.CfnSecurityGroupIngress, types.CfnSecurityGroupEgress} {
				for _, prop := range securityGroupRuleRefs {
					for _, r := range s.FilterByRefAll(ruleType, prop, primary.LogicalResourceID) {
						out = append(out, Target{Store: s, LogicalID: r.LogicalResourceID})
					}
				}
			}
		}
		return out
	}
}

// Referencing targets records of resourceType whose props refer to the
// primary.
func Referencing(resourceType string, props ...string) Rule {
	return func(store *inventory.Store, primary *types.Record) []Target {
		var out []Target
		for _, prop := range props {
			for _, r := range store.FilterByRefAll(resourceType, prop, primary.LogicalResourceID) {
				out = append(out, Target{Store: store, LogicalID: r.LogicalResourceID})
			}
		}
		return out
	}
}

// NestedStackChildren targets the nested stack resource and every record of
// the nested stack it owns.
func NestedStackChildren(nestedLogicalID string) Rule {
	return func(store *inventory.Store, _ *types.Record) []Target {
		var out []Target
		if _, ok := store.ByLogicalIDAll(nestedLogicalID); ok {
			out = append(out, Target{Store: store, LogicalID: nestedLogicalID})
		}
		nested, ok := store.Nested(nestedLogicalID)
		if !ok {
			return out
		}
		for _, r := range nested.Records() {
			out = append(out, Target{Store: nested, LogicalID: r.LogicalResourceID})
		}
		return out
	}
}

// Records targets explicit logical ids of the primary's stack.
func Records(logicalIDs ...string) Rule {
	return func(store *inventory.Store, _ *types.Record) []Target {
		out := make([]Target, 0, len(logicalIDs))
		for _, id := range logicalIDs {
			if _, ok := store.ByLogicalIDAll(id); ok {
				out = append(out, Target{Store: store, LogicalID: id})
			}
		}
		return out
	}
}

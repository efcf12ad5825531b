package reconcilers

import (
	"fmt"
	"log/slog"

	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/graph"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/resolver"
	"github.com/praetorian-inc/asea-lza/pkg/template"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// recorder accumulates the outputs of a run.
type recorder struct {
	mappings  []types.ResourceMappingEntry
	seen      map[string]bool
	deletions []types.DeletionFlag
}

func newRecorder() *recorder {
	return &recorder{seen: make(map[string]bool)}
}

func (r *recorder) addMapping(e types.ResourceMappingEntry) bool {
	if r.seen[e.Key()] {
		return false
	}
	r.seen[e.Key()] = true
	r.mappings = append(r.mappings, e)
	return true
}

// Context is what a reconciler works with for one top-level stack and its
// nested stacks.
type Context struct {
	Stack       *types.StackMapping
	AccountName string
	Store       *inventory.Store
	Scope       *graph.Scope
	Graph       *graph.Graph
	Resolver    *resolver.Resolver
	Params      *params.Aggregator
	Paths       params.Paths
	Cascade     *cascade.Calculator
	Config      *config.Config
	Partition   string
	Pseudo      types.Pseudo
	Logger      *slog.Logger

	// PolicyArns is the out-of-band lookup table of customer policy ARNs.
	PolicyArns map[string]string

	// adopted in this stack, by configured name
	customerPolicies map[string]localRef
	groups           map[string]localRef

	rec *recorder
}

// InPhase reports whether reconciler md applies to the stack.
func (rc *Context) InPhase(md Metadata) bool {
	return md.Handles(rc.Stack.Phase)
}

// IsHomeRegion reports whether the stack is in the global home region.
func (rc *Context) IsHomeRegion() bool {
	return rc.Stack.Region == rc.Config.Global.HomeRegion
}

// Includes evaluates deployment targets for the stack's account and region.
func (rc *Context) Includes(targets config.DeploymentTargets) bool {
	return targets.Includes(rc.Config.Accounts, rc.AccountName, rc.Stack.Region)
}

// Stores returns the stack's store followed by every nested store.
func (rc *Context) Stores() []*inventory.Store {
	return flatten([]*inventory.Store{rc.Store})
}

func flatten(stores []*inventory.Store) []*inventory.Store {
	var out []*inventory.Store
	for _, s := range stores {
		out = append(out, s)
		out = append(out, flatten(s.NestedStores())...)
	}
	return out
}

// Node resolves the template node of a record held by store.
func (rc *Context) Node(store *inventory.Store, r *types.Record) (*template.Resource, error) {
	return rc.Graph.Resolve(store.Key(), r.LogicalResourceID)
}

// ScopeOf returns the template scope of store.
func (rc *Context) ScopeOf(store *inventory.Store) (*graph.Scope, error) {
	return rc.Graph.Scope(store.Key())
}

// Adopt records that r now backs a configured item.
func (rc *Context) Adopt(store *inventory.Store, r *types.Record, resourceType types.AseaResourceType) {
	rc.AdoptAs(store, r, resourceType, r.Identifier())
}

// AdoptAs is Adopt with an explicit identifier, used where the identity of
// the item is a composite key rather than the record's id.
func (rc *Context) AdoptAs(store *inventory.Store, r *types.Record, resourceType types.AseaResourceType, identifier string) {
	stack := store.Stack()
	name := stack.StackName
	if name == "" {
		name = rc.Stack.StackName
	}
	entry := types.ResourceMappingEntry{
		AccountID:       stack.AccountID,
		Region:          stack.Region,
		StackName:       name,
		ResourceType:    resourceType,
		CfnResourceType: r.ResourceType,
		Identifier:      identifier,
		LogicalID:       r.LogicalResourceID,
	}
	if rc.rec.addMapping(entry) {
		rc.Logger.Info("adopted legacy resource", "type", r.ResourceType, "logicalId", r.LogicalResourceID, "identifier", identifier, "stack", store.Key())
	}
}

// Emit queues a parameter into the scope of store.
func (rc *Context) Emit(store *inventory.Store, value any, kind params.Kind, names ...string) {
	rc.Params.Add(store.Key(), rc.Paths.Request(value, kind, names...))
}

// Delete flags a record and the artifacts of rules.
func (rc *Context) Delete(store *inventory.Store, logicalID string, rules ...cascade.Rule) error {
	flags, err := rc.Cascade.Apply(store, logicalID, false, rules...)
	if err != nil {
		return err
	}
	rc.rec.deletions = append(rc.rec.deletions, flags...)
	return nil
}

// DeleteWithParameter flags a record and its derived parameter.
func (rc *Context) DeleteWithParameter(store *inventory.Store, logicalID string, kind params.Kind, names []string, rules ...cascade.Rule) error {
	rules = append([]cascade.Rule{cascade.DerivedParameter(rc.Paths.Path(kind, names...))}, rules...)
	return rc.Delete(store, logicalID, rules...)
}

// accountID resolves a configured account name to its id.
func (rc *Context) accountID(name string) (string, error) {
	id, err := rc.Config.Accounts.AccountID(name)
	if err != nil {
		return "", fmt.Errorf("resolving account %s: %w", name, err)
	}
	return id, nil
}

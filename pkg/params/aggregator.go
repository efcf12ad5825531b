package params

import (
	"fmt"
	"slices"

	"github.com/praetorian-inc/asea-lza/pkg/graph"
	"github.com/praetorian-inc/asea-lza/pkg/template"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

type Request = types.ParameterRequest

// batchSize bounds how many parameter nodes CloudFormation creates at once;
// SSM throttles PutParameter when more run in parallel.
const batchSize = 5

// Aggregator queues parameter requests per stack scope and turns them into
// AWS::SSM::Parameter nodes when the stack is finished.
type Aggregator struct {
	pending map[string][]Request
}

func NewAggregator() *Aggregator {
	return &Aggregator{pending: make(map[string][]Request)}
}

// Add queues req for scopeKey. Re-queueing a logical id replaces the
// earlier request in place.
func (a *Aggregator) Add(scopeKey string, req Request) {
	queue := a.pending[scopeKey]
	if i := slices.IndexFunc(queue, func(r Request) bool { return r.LogicalID == req.LogicalID }); i >= 0 {
		queue[i] = req
		return
	}
	a.pending[scopeKey] = append(queue, req)
}

func (a *Aggregator) Pending(scopeKey string) []Request {
	return slices.Clone(a.pending[scopeKey])
}

// ScopeKeys lists scopes with queued requests, sorted.
func (a *Aggregator) ScopeKeys() []string {
	keys := make([]string, 0, len(a.pending))
	for k, q := range a.pending {
		if len(q) > 0 {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// DependencyIndex is the position element i waits on, or -1. Elements are
// chained in batches: the first of each batch depends on the first of the
// previous batch, and so does the rest of the batch.
func DependencyIndex(i int) int {
	if i < batchSize {
		return -1
	}
	return (i/batchSize - 1) * batchSize
}

// Flush writes the queued requests of scope in order and clears them. It
// returns the logical ids written. A request whose logical id already names
// a resource other than a parameter fails the flush before any node is
// written, and the queue is kept.
func (a *Aggregator) Flush(scope *graph.Scope) ([]string, error) {
	queue := a.pending[scope.Key()]
	for _, req := range queue {
		if existing, err := scope.Resolve(req.LogicalID); err == nil && existing.Type != types.CfnSsmParameter {
			return nil, fmt.Errorf("parameter %s collides with %s %s in %s", req.Name, existing.Type, req.LogicalID, scope.Key())
		}
	}

	written := make([]string, 0, len(queue))
	for i, req := range queue {
		node := parameterNode(scope, req)
		if dep := DependencyIndex(i); dep >= 0 {
			node.AddDependency(queue[dep].LogicalID)
		}
		written = append(written, req.LogicalID)
	}

	delete(a.pending, scope.Key())
	return written, nil
}

// FlushAll flushes every scope of g with queued requests.
func (a *Aggregator) FlushAll(g *graph.Graph) (int, error) {
	total := 0
	for _, key := range a.ScopeKeys() {
		scope, err := g.Scope(key)
		if err != nil {
			return total, err
		}
		written, err := a.Flush(scope)
		total += len(written)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// parameterNode reuses an existing node with the same logical id so a
// re-run updates rather than duplicates.
func parameterNode(scope *graph.Scope, req Request) *template.Resource {
	node, err := scope.Resolve(req.LogicalID)
	if err != nil {
		node = &template.Resource{Type: types.CfnSsmParameter}
		scope.Put(req.LogicalID, node)
	}
	node.SetProperty("Name", req.Name)
	node.SetProperty("Type", "String")
	node.SetProperty("Value", req.Value)
	return node
}

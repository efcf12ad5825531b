package graph

import (
	"context"
	"log/slog"

	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/template"
)

// Loader builds the scopes of a stack tree. When no template source has the
// stack, the scope is rebuilt from the stack's inventory so the template
// and the inventory stay in step.
type Loader struct {
	source template.Source
	graph  *Graph
}

func NewLoader(source template.Source, g *Graph) *Loader {
	return &Loader{source: source, graph: g}
}

func (l *Loader) Graph() *Graph {
	return l.graph
}

func (l *Loader) Load(ctx context.Context, store *inventory.Store) (*Scope, error) {
	stack := store.Stack()
	if s, err := l.graph.Scope(stack.Key()); err == nil {
		return s, nil
	}

	var tmpl *template.Template
	if l.source != nil {
		t, err := l.source.Template(ctx, stack)
		if err != nil {
			return nil, err
		}
		tmpl = t
	}
	if tmpl == nil {
		slog.Debug("building template from inventory", "stack", stack.Key())
		tmpl = template.FromRecords(store.Records())
	}

	scope := NewScope(stack, tmpl)
	l.graph.Add(scope)

	for _, id := range stack.NestedKeys() {
		nestedStore, ok := store.Nested(id)
		if !ok {
			continue
		}
		child, err := l.Load(ctx, nestedStore)
		if err != nil {
			return nil, err
		}
		l.graph.AttachNested(scope, id, child)
	}
	return scope, nil
}

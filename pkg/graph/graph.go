// Package graph holds the live template of every legacy stack being
// rewritten and resolves legacy logical ids to their template nodes.
// Resources keep their logical ids so CloudFormation sees an update, never a
// replacement.
package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/praetorian-inc/asea-lza/pkg/template"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// Scope is the template of one stack.
type Scope struct {
	key      string
	stack    *types.StackMapping
	template *template.Template
	parent   *Scope
	nested   map[string]*Scope
}

func NewScope(stack *types.StackMapping, tmpl *template.Template) *Scope {
	if tmpl == nil {
		tmpl = template.New()
	}
	return &Scope{
		key:      stack.Key(),
		stack:    stack,
		template: tmpl,
		nested:   make(map[string]*Scope),
	}
}

func (s *Scope) Key() string {
	return s.key
}

func (s *Scope) Stack() *types.StackMapping {
	return s.stack
}

func (s *Scope) Template() *template.Template {
	return s.template
}

func (s *Scope) Parent() *Scope {
	return s.parent
}

// Resolve returns the node of a legacy logical id. A miss means the
// inventory and the template disagree, which is fatal.
func (s *Scope) Resolve(logicalID string) (*template.Resource, error) {
	r, ok := s.template.Resources[logicalID]
	if !ok {
		return nil, &types.DataCorruptionError{Scope: s.key, LogicalID: logicalID}
	}
	return r, nil
}

// ResolveReference returns the logical id and node a Ref or GetAtt points
// at. Literals and pseudo parameters resolve to nothing.
func (s *Scope) ResolveReference(v any) (string, *template.Resource, error) {
	id, ok := types.Ref(v)
	if !ok {
		id, _, ok = types.GetAtt(v)
	}
	if !ok || strings.HasPrefix(id, "AWS::") {
		return "", nil, nil
	}
	r, found := s.template.Resources[id]
	if !found {
		return "", nil, &types.DataCorruptionError{Scope: s.key, LogicalID: id, Value: v}
	}
	return id, r, nil
}

func (s *Scope) Has(logicalID string) bool {
	_, ok := s.template.Resources[logicalID]
	return ok
}

// Add inserts a new node. Logical ids are unique within a scope.
func (s *Scope) Add(logicalID string, r *template.Resource) error {
	if s.Has(logicalID) {
		return fmt.Errorf("logical id %q already exists in %s", logicalID, s.key)
	}
	s.template.Resources[logicalID] = r
	return nil
}

// Put inserts or replaces a node.
func (s *Scope) Put(logicalID string, r *template.Resource) {
	s.template.Resources[logicalID] = r
}

// Remove drops a node and every DependsOn edge pointing at it.
func (s *Scope) Remove(logicalID string) bool {
	if !s.Has(logicalID) {
		return false
	}
	delete(s.template.Resources, logicalID)
	for _, r := range s.template.Resources {
		r.RemoveDependency(logicalID)
	}
	return true
}

func (s *Scope) attach(logicalID string, child *Scope) {
	child.parent = s
	s.nested[logicalID] = child
}

func (s *Scope) Nested(logicalID string) (*Scope, bool) {
	n, ok := s.nested[logicalID]
	return n, ok
}

// Graph indexes scopes by stack key.
type Graph struct {
	scopes map[string]*Scope
}

func New() *Graph {
	return &Graph{scopes: make(map[string]*Scope)}
}

// Add registers a scope and its nested scopes.
func (g *Graph) Add(scope *Scope) {
	g.scopes[scope.key] = scope
	for _, child := range scope.nested {
		g.Add(child)
	}
}

// AttachNested links child under parent and registers it.
func (g *Graph) AttachNested(parent *Scope, logicalID string, child *Scope) {
	parent.attach(logicalID, child)
	g.Add(child)
}

func (g *Graph) Scope(key string) (*Scope, error) {
	s, ok := g.scopes[key]
	if !ok {
		return nil, &types.DataCorruptionError{Scope: key}
	}
	return s, nil
}

func (g *Graph) Resolve(scopeKey, logicalID string) (*template.Resource, error) {
	s, err := g.Scope(scopeKey)
	if err != nil {
		return nil, err
	}
	return s.Resolve(logicalID)
}

func (g *Graph) ResolveNested(parentKey, nestedLogicalID string) (*Scope, error) {
	parent, err := g.Scope(parentKey)
	if err != nil {
		return nil, err
	}
	child, ok := parent.Nested(nestedLogicalID)
	if !ok {
		return nil, &types.DataCorruptionError{Scope: parentKey + "/" + nestedLogicalID}
	}
	return child, nil
}

// Scopes returns every registered scope ordered by key.
func (g *Graph) Scopes() []*Scope {
	out := make([]*Scope, 0, len(g.scopes))
	for _, k := range slices.Sorted(maps.Keys(g.scopes)) {
		out = append(out, g.scopes[k])
	}
	return out
}

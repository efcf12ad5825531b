package inventory

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/praetorian-inc/asea-lza/pkg/utils"
)

type MatchMode int

const (
	MatchExact MatchMode = iota
	// MatchPartial matches when the record's value contains the query.
	MatchPartial
)

// PropertyUpdate is one targeted overwrite for SetProperties.
type PropertyUpdate struct {
	Name  string
	Value any
}

// Store indexes the resource records of one legacy stack.
type Store struct {
	stack   *types.StackMapping
	records []*types.Record
	byID    map[string]*types.Record
	log     *DeletionLog
	nested  map[string]*Store
}

// New builds a store over records. A nil log gets a private one.
func New(stack *types.StackMapping, records []*types.Record, log *DeletionLog) *Store {
	if log == nil {
		log = NewDeletionLog()
	}
	s := &Store{
		stack:  stack,
		byID:   make(map[string]*types.Record, len(records)),
		log:    log,
		nested: make(map[string]*Store),
	}
	for _, r := range records {
		if r == nil {
			continue
		}
		if r.ResourceType == "" {
			r.ResourceType = r.ResourceMetadata.Type
		}
		s.records = append(s.records, r)
		s.byID[r.LogicalResourceID] = r
	}
	return s
}

func (s *Store) Stack() *types.StackMapping {
	return s.stack
}

func (s *Store) Key() string {
	return s.stack.Key()
}

func (s *Store) Log() *DeletionLog {
	return s.log
}

func (s *Store) AddNested(logicalID string, nested *Store) {
	s.nested[logicalID] = nested
}

func (s *Store) Nested(logicalID string) (*Store, bool) {
	n, ok := s.nested[logicalID]
	return n, ok
}

// NestedStores returns the nested stores ordered by logical id.
func (s *Store) NestedStores() []*Store {
	ids := make([]string, 0, len(s.nested))
	for id := range s.nested {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*Store, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.nested[id])
	}
	return out
}

// IsDeleted reports whether the record was deleted before this run or has
// been flagged during it.
func (s *Store) IsDeleted(logicalID string) bool {
	r, ok := s.byID[logicalID]
	if !ok {
		return false
	}
	return r.IsDeleted || s.log.Has(s.Key(), logicalID)
}

func (s *Store) visible(r *types.Record) bool {
	return !r.IsDeleted && !s.log.Has(s.Key(), r.LogicalResourceID)
}

// Records returns every record, deleted ones included.
func (s *Store) Records() []*types.Record {
	return slices.Clone(s.records)
}

func (s *Store) filter(keep func(*types.Record) bool) []*types.Record {
	var out []*types.Record
	for _, r := range s.records {
		if s.visible(r) && keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func first(records []*types.Record) *types.Record {
	if len(records) == 0 {
		return nil
	}
	return records[0]
}

// ByType returns the live records of a resource type.
func (s *Store) ByType(resourceType string) []*types.Record {
	return s.filter(func(r *types.Record) bool { return r.ResourceType == resourceType })
}

// ByTypeAll includes records already flagged for deletion.
func (s *Store) ByTypeAll(resourceType string) []*types.Record {
	var out []*types.Record
	for _, r := range s.records {
		if r.ResourceType == resourceType {
			out = append(out, r)
		}
	}
	return out
}

func hasTag(r *types.Record, value, name string) bool {
	v, ok := r.Tag(name)
	return ok && v == value
}

func (s *Store) FindByTag(value, name string) *types.Record {
	return first(s.FilterByTag(value, name))
}

func (s *Store) FilterByTag(value, name string) []*types.Record {
	return s.filter(func(r *types.Record) bool { return hasTag(r, value, name) })
}

func (s *Store) FindByTypeAndTag(resourceType, value, name string) *types.Record {
	return first(s.FilterByTypeAndTag(resourceType, value, name))
}

func (s *Store) FilterByTypeAndTag(resourceType, value, name string) []*types.Record {
	return s.filter(func(r *types.Record) bool {
		return r.ResourceType == resourceType && hasTag(r, value, name)
	})
}

// FindByName looks a record up by its Name tag.
func (s *Store) FindByName(resourceType, name string) *types.Record {
	return s.FindByTypeAndTag(resourceType, name, "Name")
}

func propertyMatches(r *types.Record, prop, value string, mode MatchMode) bool {
	v, ok := r.StringProperty(prop)
	if !ok {
		return false
	}
	if mode == MatchPartial {
		return strings.Contains(v, value)
	}
	return v == value
}

// FindByProperty returns the first live record whose literal property
// matches. An empty resourceType matches any type.
func (s *Store) FindByProperty(resourceType, prop, value string, mode MatchMode) *types.Record {
	return first(s.FilterByProperty(resourceType, prop, value, mode))
}

func (s *Store) FilterByProperty(resourceType, prop, value string, mode MatchMode) []*types.Record {
	return s.filter(func(r *types.Record) bool {
		return (resourceType == "" || r.ResourceType == resourceType) && propertyMatches(r, prop, value, mode)
	})
}

func refersTo(v any, logicalID string) bool {
	if types.RefersTo(v, logicalID) {
		return true
	}
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if types.RefersTo(item, logicalID) {
				return true
			}
		}
	}
	return false
}

// FilterByRef returns live records of resourceType whose property refers to
// logicalID, directly or as a list element.
func (s *Store) FilterByRef(resourceType, prop, logicalID string) []*types.Record {
	return s.filter(func(r *types.Record) bool {
		if resourceType != "" && r.ResourceType != resourceType {
			return false
		}
		v, ok := r.Property(prop)
		return ok && refersTo(v, logicalID)
	})
}

// FilterByRefAll is FilterByRef including flagged records.
func (s *Store) FilterByRefAll(resourceType, prop, logicalID string) []*types.Record {
	var out []*types.Record
	for _, r := range s.ByTypeAll(resourceType) {
		if v, ok := r.Property(prop); ok && refersTo(v, logicalID) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) ByLogicalID(logicalID string) (*types.Record, bool) {
	r, ok := s.byID[logicalID]
	if !ok || !s.visible(r) {
		return nil, false
	}
	return r, true
}

func (s *Store) ByLogicalIDAll(logicalID string) (*types.Record, bool) {
	r, ok := s.byID[logicalID]
	return r, ok
}

// MarkDeleted flags a record. It reports whether a new flag was produced;
// flagging twice is a no-op.
func (s *Store) MarkDeleted(logicalID string) (types.DeletionFlag, bool, error) {
	r, ok := s.byID[logicalID]
	if !ok {
		return types.DeletionFlag{}, false, fmt.Errorf("no record %q in stack %s", logicalID, s.Key())
	}
	flag := types.DeletionFlag{
		StackKey:   s.Key(),
		Type:       r.ResourceType,
		Identifier: r.Identifier(),
		LogicalID:  r.LogicalResourceID,
	}
	if r.IsDeleted {
		return flag, false, nil
	}
	return flag, s.log.Append(flag), nil
}

// SetProperties overwrites the named properties of a record.
func (s *Store) SetProperties(logicalID string, updates []PropertyUpdate) error {
	r, ok := s.byID[logicalID]
	if !ok {
		return fmt.Errorf("no record %q in stack %s", logicalID, s.Key())
	}
	props := r.Properties()
	for _, u := range updates {
		props[u.Name] = u.Value
	}
	return nil
}

// Select runs a jq query over the live records.
func (s *Store) Select(jqQuery string) ([]any, error) {
	data, err := json.Marshal(s.filter(func(*types.Record) bool { return true }))
	if err != nil {
		return nil, err
	}
	return utils.PerformJqQuery(data, jqQuery)
}

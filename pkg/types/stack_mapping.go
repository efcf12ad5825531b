package types

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// StackMapping describes one legacy stack: where its template and resource
// file live and which nested stacks hang off it.
type StackMapping struct {
	AccountID         string                   `json:"accountId" yaml:"accountId"`
	AccountKey        string                   `json:"accountKey,omitempty" yaml:"accountKey,omitempty"`
	Region            string                   `json:"region" yaml:"region"`
	StackName         string                   `json:"stackName" yaml:"stackName"`
	Phase             Phase                    `json:"phase" yaml:"phase"`
	TemplatePath      string                   `json:"templatePath,omitempty" yaml:"templatePath,omitempty"`
	ResourcePath      string                   `json:"resourcePath" yaml:"resourcePath"`
	LogicalResourceID string                   `json:"logicalResourceId,omitempty" yaml:"logicalResourceId,omitempty"`
	NestedStacks      map[string]*StackMapping `json:"nestedStacks,omitempty" yaml:"nestedStacks,omitempty"`

	// set when the mapping is indexed; nested stacks only
	parent *StackMapping
}

// StackKey builds the "accountId|region|stackName" key of the mapping table.
func StackKey(accountID, region, stackName string) string {
	return strings.Join([]string{accountID, region, stackName}, "|")
}

// Key is the table key of a top-level stack. Nested stacks extend the key of
// their parent with their logical id.
func (s *StackMapping) Key() string {
	if s.parent != nil {
		return s.parent.Key() + "/" + s.LogicalResourceID
	}
	return StackKey(s.AccountID, s.Region, s.StackName)
}

func (s *StackMapping) Parent() *StackMapping {
	return s.parent
}

// NestedKeys returns the nested stack logical ids in a stable order.
func (s *StackMapping) NestedKeys() []string {
	keys := make([]string, 0, len(s.NestedStacks))
	for k := range s.NestedStacks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *StackMapping) link() {
	for id, nested := range s.NestedStacks {
		if nested == nil {
			delete(s.NestedStacks, id)
			continue
		}
		if nested.LogicalResourceID == "" {
			nested.LogicalResourceID = id
		}
		if nested.AccountID == "" {
			nested.AccountID = s.AccountID
		}
		if nested.AccountKey == "" {
			nested.AccountKey = s.AccountKey
		}
		if nested.Region == "" {
			nested.Region = s.Region
		}
		// nested stacks deploy with their parent
		nested.Phase = s.Phase
		nested.parent = s
		nested.link()
	}
}

// Mappings is the global mapping table keyed by "accountId|region|stackName".
type Mappings struct {
	stacks map[string]*StackMapping
}

func NewMappings(stacks ...*StackMapping) *Mappings {
	m := &Mappings{stacks: make(map[string]*StackMapping)}
	for _, s := range stacks {
		m.Add(s)
	}
	return m
}

func (m *Mappings) Add(s *StackMapping) {
	s.link()
	m.stacks[s.Key()] = s
}

func (m *Mappings) Get(accountID, region, stackName string) (*StackMapping, bool) {
	s, ok := m.stacks[StackKey(accountID, region, stackName)]
	return s, ok
}

func (m *Mappings) Len() int {
	return len(m.stacks)
}

// ByPhase returns the top-level stacks of an account and region deployed in
// the given phase, ordered by stack name.
func (m *Mappings) ByPhase(accountID, region string, phase Phase) []*StackMapping {
	var found []*StackMapping
	for _, s := range m.stacks {
		if s.AccountID == accountID && s.Region == region && s.Phase == phase {
			found = append(found, s)
		}
	}
	slices.SortFunc(found, func(a, b *StackMapping) int {
		return cmp.Compare(a.StackName, b.StackName)
	})
	return found
}

// Sorted returns every top-level stack ordered by phase, then key.
func (m *Mappings) Sorted() []*StackMapping {
	all := make([]*StackMapping, 0, len(m.stacks))
	for _, s := range m.stacks {
		all = append(all, s)
	}
	slices.SortFunc(all, func(a, b *StackMapping) int {
		if c := cmp.Compare(a.Phase, b.Phase); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
	return all
}

// UnmarshalJSON accepts both the keyed object form and a plain list.
func (m *Mappings) UnmarshalJSON(data []byte) error {
	m.stacks = make(map[string]*StackMapping)

	var keyed map[string]*StackMapping
	if err := json.Unmarshal(data, &keyed); err == nil {
		for key, s := range keyed {
			if s == nil {
				continue
			}
			if err := fillFromKey(s, key); err != nil {
				return err
			}
			m.Add(s)
		}
		return nil
	}

	var list []*StackMapping
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("mapping table is neither an object nor a list: %w", err)
	}
	for _, s := range list {
		if s != nil {
			m.Add(s)
		}
	}
	return nil
}

func (m *Mappings) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.stacks)
}

func fillFromKey(s *StackMapping, key string) error {
	parts := strings.Split(key, "|")
	if len(parts) != 3 {
		if s.AccountID == "" || s.Region == "" || s.StackName == "" {
			return fmt.Errorf("mapping key %q is not accountId|region|stackName", key)
		}
		return nil
	}
	if s.AccountID == "" {
		s.AccountID = parts[0]
	}
	if s.Region == "" {
		s.Region = parts[1]
	}
	if s.StackName == "" {
		s.StackName = parts[2]
	}
	return nil
}

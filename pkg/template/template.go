package template

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/praetorian-inc/asea-lza/pkg/types"
)

const FormatVersion = "2010-09-09"

// Template is a CloudFormation template. Sections other than Resources are
// carried through untouched.
type Template struct {
	AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion,omitempty"`
	Description              string               `json:"Description,omitempty"`
	Transform                any                  `json:"Transform,omitempty"`
	Metadata                 map[string]any       `json:"Metadata,omitempty"`
	Parameters               map[string]any       `json:"Parameters,omitempty"`
	Rules                    map[string]any       `json:"Rules,omitempty"`
	Mappings                 map[string]any       `json:"Mappings,omitempty"`
	Conditions               map[string]any       `json:"Conditions,omitempty"`
	Resources                map[string]*Resource `json:"Resources"`
	Outputs                  map[string]any       `json:"Outputs,omitempty"`
}

// Resource is one entry of the Resources section.
type Resource struct {
	Type                string            `json:"Type"`
	Properties          map[string]any    `json:"Properties,omitempty"`
	DependsOn           *types.DynaString `json:"DependsOn,omitempty"`
	Condition           string            `json:"Condition,omitempty"`
	Metadata            map[string]any    `json:"Metadata,omitempty"`
	DeletionPolicy      string            `json:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string            `json:"UpdateReplacePolicy,omitempty"`
}

func New() *Template {
	return &Template{
		AWSTemplateFormatVersion: FormatVersion,
		Resources:                make(map[string]*Resource),
	}
}

// Parse decodes a JSON template.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	if t.Resources == nil {
		t.Resources = make(map[string]*Resource)
	}
	for id, r := range t.Resources {
		if r == nil {
			return nil, fmt.Errorf("invalid template: resource %q is empty", id)
		}
	}
	return &t, nil
}

func (t *Template) Marshal() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// LogicalIDs returns the resource ids in sorted order.
func (t *Template) LogicalIDs() []string {
	return slices.Sorted(maps.Keys(t.Resources))
}

// FromRecords rebuilds the Resources section of a stack from its resource
// file. Used when no template can be found for the stack.
func FromRecords(records []*types.Record) *Template {
	t := New()
	for _, r := range records {
		cfnType := r.ResourceMetadata.Type
		if cfnType == "" {
			cfnType = r.ResourceType
		}
		res := &Resource{
			Type:       cfnType,
			Properties: cloneMap(r.ResourceMetadata.Properties),
			Condition:  r.ResourceMetadata.Condition,
			Metadata:   cloneMap(r.ResourceMetadata.Metadata),
		}
		if r.ResourceMetadata.DependsOn != nil {
			deps := slices.Clone(*r.ResourceMetadata.DependsOn)
			res.DependsOn = &deps
		}
		t.Resources[r.LogicalResourceID] = res
	}
	return t
}

func (r *Resource) SetProperty(name string, value any) {
	if r.Properties == nil {
		r.Properties = make(map[string]any)
	}
	r.Properties[name] = value
}

func (r *Resource) DeleteProperty(name string) {
	delete(r.Properties, name)
}

func (r *Resource) Property(name string) (any, bool) {
	v, ok := r.Properties[name]
	return v, ok
}

// AddDependency adds logicalID to DependsOn once.
func (r *Resource) AddDependency(logicalID string) {
	if r.DependsOn == nil {
		r.DependsOn = &types.DynaString{}
	}
	r.DependsOn.Add(logicalID)
}

// RemoveDependency drops logicalID from DependsOn and reports whether it was
// there.
func (r *Resource) RemoveDependency(logicalID string) bool {
	if r.DependsOn == nil || !slices.Contains(*r.DependsOn, logicalID) {
		return false
	}
	deps := slices.DeleteFunc(slices.Clone(*r.DependsOn), func(id string) bool { return id == logicalID })
	if len(deps) == 0 {
		r.DependsOn = nil
	} else {
		ds := types.DynaString(deps)
		r.DependsOn = &ds
	}
	return true
}

// DependsOnIDs lists the explicit dependencies.
func (r *Resource) DependsOnIDs() []string {
	if r.DependsOn == nil {
		return nil
	}
	return []string(*r.DependsOn)
}

// cloneMap deep-copies JSON-shaped values so template edits never leak back
// into inventory records.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}

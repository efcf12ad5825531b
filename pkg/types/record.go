package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one resource of a legacy ASEA stack as captured in the stack's
// resource file.
type Record struct {
	LogicalResourceID  string           `json:"logicalResourceId"`
	PhysicalResourceID string           `json:"physicalResourceId,omitempty"`
	ResourceType       string           `json:"resourceType"`
	ResourceMetadata   ResourceMetadata `json:"resourceMetadata"`
	IsDeleted          bool             `json:"isDeleted,omitempty"`
}

// ResourceMetadata is the template fragment of a legacy resource.
type ResourceMetadata struct {
	Type       string         `json:"Type"`
	Properties map[string]any `json:"Properties,omitempty"`
	DependsOn  *DynaString    `json:"DependsOn,omitempty"`
	Condition  string         `json:"Condition,omitempty"`
	Metadata   map[string]any `json:"Metadata,omitempty"`
}

// Identifier is the id recorded for the resource in mapping outputs: the
// physical id when known, else the logical id.
func (r *Record) Identifier() string {
	if r.PhysicalResourceID != "" {
		return r.PhysicalResourceID
	}
	return r.LogicalResourceID
}

// Properties never returns nil so callers can index without checks.
func (r *Record) Properties() map[string]any {
	if r.ResourceMetadata.Properties == nil {
		r.ResourceMetadata.Properties = map[string]any{}
	}
	return r.ResourceMetadata.Properties
}

// Property returns a raw property value.
func (r *Record) Property(name string) (any, bool) {
	if r.ResourceMetadata.Properties == nil {
		return nil, false
	}
	v, ok := r.ResourceMetadata.Properties[name]
	return v, ok
}

// StringProperty returns a property only when it is a literal string.
func (r *Record) StringProperty(name string) (string, bool) {
	v, ok := r.Property(name)
	if !ok {
		return "", false
	}
	return Literal(v)
}

// Tags returns the literal tags of the record.
func (r *Record) Tags() map[string]string {
	tags := make(map[string]string)
	raw, ok := r.Property("Tags")
	if !ok {
		return tags
	}
	list, ok := raw.([]any)
	if !ok {
		return tags
	}
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, kok := m["Key"].(string)
		value, vok := Literal(m["Value"])
		if kok && vok {
			tags[key] = value
		}
	}
	return tags
}

// Tag returns the literal value of a single tag.
func (r *Record) Tag(key string) (string, bool) {
	v, ok := r.Tags()[key]
	return v, ok
}

// Name is the record's Name tag.
func (r *Record) Name() string {
	v, _ := r.Tag("Name")
	return v
}

// Phase is the ASEA deployment phase of a stack. Resource files are not
// consistent about encoding it, so both numbers and numeric strings are
// accepted, the latter optionally prefixed with "phase".
type Phase int

const UnknownPhase Phase = -1

func ParsePhase(s string) (Phase, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "phase")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return UnknownPhase, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return UnknownPhase, fmt.Errorf("invalid phase %q: %w", s, err)
	}
	return Phase(n), nil
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = UnknownPhase
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = Phase(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal error for Phase type: %s", string(data))
	}
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p *Phase) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Phase) String() string {
	if p == UnknownPhase {
		return "unknown"
	}
	return strconv.Itoa(int(p))
}

package types

import (
	"errors"
	"fmt"
)

var (
	// ErrExpectedAbsence marks a configured item with no legacy counterpart.
	// The item is skipped and logged at info.
	ErrExpectedAbsence = errors.New("no legacy resource")

	// ErrUpstreamIncomplete marks a legacy resource whose dependencies are
	// missing. The dependent piece of work is omitted and logged as a warning.
	ErrUpstreamIncomplete = errors.New("legacy dependency missing")
)

// ConfigurationInconsistencyError is returned when the configuration names
// something that cannot exist, such as an account with no id.
type ConfigurationInconsistencyError struct {
	Item   string
	Reason string
	Err    error
}

func (e *ConfigurationInconsistencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration inconsistency for %s: %s: %v", e.Item, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration inconsistency for %s: %s", e.Item, e.Reason)
}

func (e *ConfigurationInconsistencyError) Unwrap() error {
	return e.Err
}

func NewConfigurationInconsistency(item, format string, args ...any) error {
	return &ConfigurationInconsistencyError{Item: item, Reason: fmt.Sprintf(format, args...)}
}

// DataCorruptionError is returned when an inventory record has no node in
// the stack's template.
type DataCorruptionError struct {
	Scope     string
	LogicalID string
	// Value is the template value that pointed at LogicalID, when known.
	Value any
}

func (e *DataCorruptionError) Error() string {
	switch {
	case e.LogicalID == "":
		return fmt.Sprintf("data corruption: no template scope %q", e.Scope)
	case e.Value != nil:
		return fmt.Sprintf("data corruption: %s points at logical id %q not found in template %q", Describe(e.Value), e.LogicalID, e.Scope)
	}
	return fmt.Sprintf("data corruption: logical id %q not found in template %q", e.LogicalID, e.Scope)
}

// LoadError wraps a failure to read or parse one of the run's inputs.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrExpectedAbsence) && !errors.Is(err, ErrUpstreamIncomplete)
}

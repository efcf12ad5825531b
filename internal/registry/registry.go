package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/praetorian-inc/asea-lza/pkg/reconcilers"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

type RegistryEntry struct {
	Reconciler reconcilers.Reconciler
	Metadata   reconcilers.Metadata
	Order      int // execution order
}

type ReconcilerRegistry struct {
	mu        sync.RWMutex
	entries   map[string]RegistryEntry            // name -> entry
	hierarchy map[types.Phase]map[string][]string // phase -> category -> []name
}

var Registry = New()

func New() *ReconcilerRegistry {
	return &ReconcilerRegistry{
		entries:   make(map[string]RegistryEntry),
		hierarchy: make(map[types.Phase]map[string][]string),
	}
}

func init() {
	for _, r := range reconcilers.All() {
		if err := Registry.Register(r); err != nil {
			panic(err)
		}
	}
}

// Register adds r after every reconciler registered so far.
func (reg *ReconcilerRegistry) Register(r reconcilers.Reconciler) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	md := r.Metadata()
	if _, exists := reg.entries[md.Name]; exists {
		return fmt.Errorf("reconciler %q registered twice", md.Name)
	}
	reg.entries[md.Name] = RegistryEntry{Reconciler: r, Metadata: md, Order: len(reg.entries)}

	for _, phase := range md.Phases {
		if _, exists := reg.hierarchy[phase]; !exists {
			reg.hierarchy[phase] = make(map[string][]string)
		}
		reg.hierarchy[phase][md.Category] = append(reg.hierarchy[phase][md.Category], md.Name)
	}
	return nil
}

func (reg *ReconcilerRegistry) ordered() []RegistryEntry {
	out := make([]RegistryEntry, 0, len(reg.entries))
	for _, e := range reg.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b RegistryEntry) int { return a.Order - b.Order })
	return out
}

// Entries returns every entry in execution order.
func (reg *ReconcilerRegistry) Entries() []RegistryEntry {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.ordered()
}

// Select returns the named reconcilers in execution order, or all of them
// when names is empty.
func (reg *ReconcilerRegistry) Select(names []string) ([]reconcilers.Reconciler, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	for _, name := range names {
		if _, exists := reg.entries[name]; !exists {
			return nil, fmt.Errorf("unknown reconciler %q", name)
		}
	}
	var out []reconcilers.Reconciler
	for _, e := range reg.ordered() {
		if len(names) == 0 || slices.Contains(names, e.Metadata.Name) {
			out = append(out, e.Reconciler)
		}
	}
	return out, nil
}

func (reg *ReconcilerRegistry) Get(name string) (RegistryEntry, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	entry, exists := reg.entries[name]
	return entry, exists
}

// GetHierarchy returns a copy of the phase -> category -> names tree.
func (reg *ReconcilerRegistry) GetHierarchy() map[types.Phase]map[string][]string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	result := make(map[types.Phase]map[string][]string)
	for phase, categories := range reg.hierarchy {
		result[phase] = make(map[string][]string)
		for category, names := range categories {
			result[phase][category] = append([]string{}, names...)
		}
	}
	return result
}

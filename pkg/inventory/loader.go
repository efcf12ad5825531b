package inventory

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// Loader reads resource files into stores, once per stack.
type Loader struct {
	files mapping.Source
	log   *DeletionLog
	cache map[string]*Store
}

func NewLoader(files mapping.Source, log *DeletionLog) *Loader {
	if log == nil {
		log = NewDeletionLog()
	}
	return &Loader{files: files, log: log, cache: make(map[string]*Store)}
}

func (l *Loader) Log() *DeletionLog {
	return l.log
}

// Load returns the store of stack and its nested stacks.
func (l *Loader) Load(ctx context.Context, stack *types.StackMapping) (*Store, error) {
	if s, ok := l.cache[stack.Key()]; ok {
		return s, nil
	}

	records, err := l.readRecords(ctx, stack)
	if err != nil {
		return nil, err
	}

	store := New(stack, records, l.log)
	for _, id := range stack.NestedKeys() {
		nested, err := l.Load(ctx, stack.NestedStacks[id])
		if err != nil {
			return nil, err
		}
		store.AddNested(id, nested)
	}

	l.cache[stack.Key()] = store
	slog.Debug("loaded stack inventory", "stack", stack.Key(), "records", len(records), "nested", len(stack.NestedStacks))
	return store, nil
}

func (l *Loader) readRecords(ctx context.Context, stack *types.StackMapping) ([]*types.Record, error) {
	if stack.ResourcePath == "" {
		slog.Warn("stack has no resource file", "stack", stack.Key())
		return nil, nil
	}
	data, err := l.files.Read(ctx, stack.ResourcePath)
	if err != nil {
		return nil, err
	}
	var records []*types.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &types.LoadError{Path: stack.ResourcePath, Err: err}
	}
	return records, nil
}

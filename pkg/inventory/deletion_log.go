package inventory

import (
	"slices"

	"github.com/praetorian-inc/asea-lza/pkg/types"
)

// DeletionLog is the append-only record of deletion decisions for a run.
// Record visibility is derived from it; deletion state is never written onto
// the records themselves.
type DeletionLog struct {
	entries []types.DeletionFlag
	index   map[string]int
}

func NewDeletionLog() *DeletionLog {
	return &DeletionLog{index: make(map[string]int)}
}

func logKey(stackKey, logicalID string) string {
	return stackKey + "#" + logicalID
}

// Append records a flag. It returns false when the resource was already
// flagged.
func (l *DeletionLog) Append(flag types.DeletionFlag) bool {
	key := logKey(flag.StackKey, flag.LogicalID)
	if _, ok := l.index[key]; ok {
		return false
	}
	l.index[key] = len(l.entries)
	l.entries = append(l.entries, flag)
	return true
}

func (l *DeletionLog) Has(stackKey, logicalID string) bool {
	_, ok := l.index[logKey(stackKey, logicalID)]
	return ok
}

// Entries returns the flags in the order they were appended.
func (l *DeletionLog) Entries() []types.DeletionFlag {
	return slices.Clone(l.entries)
}

// Since returns the flags appended after the first n.
func (l *DeletionLog) Since(n int) []types.DeletionFlag {
	if n >= len(l.entries) {
		return nil
	}
	return slices.Clone(l.entries[n:])
}

func (l *DeletionLog) Len() int {
	return len(l.entries)
}

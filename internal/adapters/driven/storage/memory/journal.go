package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
)

// Ensure Journal implements the interface.
var _ driven.MutationJournal = (*Journal)(nil)

// Journal is an in-memory implementation of driven.MutationJournal.
type Journal struct {
	mu      sync.RWMutex
	entries []domain.JournalEntry
}

// NewJournal creates an empty in-memory journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append records a committed mutation.
func (j *Journal) Append(_ context.Context, entry domain.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	entry.ID = int64(len(j.entries) + 1)
	j.entries = append(j.entries, entry)
	return nil
}

// Recent returns up to limit entries, newest first. A limit of 0 or less
// returns every entry.
func (j *Journal) Recent(_ context.Context, limit int) ([]domain.JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := len(j.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.JournalEntry, 0, n)
	for i := len(j.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, j.entries[i])
	}
	return out, nil
}

// Close is a no-op.
func (j *Journal) Close() error {
	return nil
}

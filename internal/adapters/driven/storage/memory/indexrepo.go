package memory

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
)

// Ensure IndexRepository implements the interface.
var _ driven.IndexRepository = (*IndexRepository)(nil)

// IndexRepository keeps committed snapshots in memory, keyed by path.
// Stored snapshots are copies, so later changes to a saved snapshot's
// slices do not leak into the repository.
type IndexRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*driven.IndexSnapshot
	saves     int
	saveErr   error
}

// NewIndexRepository creates an empty in-memory index repository.
func NewIndexRepository() *IndexRepository {
	return &IndexRepository{
		snapshots: make(map[string]*driven.IndexSnapshot),
	}
}

// Load returns a copy of the snapshot committed at path, or nil.
func (r *IndexRepository) Load(_ context.Context, path string) (*driven.IndexSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.snapshots[filepath.Clean(path)]
	if !ok {
		return nil, nil
	}
	return copySnapshot(snap, snap.Generation), nil
}

// Save commits a copy of snap under a new generation.
func (r *IndexRepository) Save(_ context.Context, path string, snap *driven.IndexSnapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return "", &domain.StorageError{Path: path, Op: "save", Err: r.saveErr}
	}

	gen := uuid.NewString()
	r.snapshots[filepath.Clean(path)] = copySnapshot(snap, gen)
	r.saves++
	return gen, nil
}

// SetSaveError makes every following Save fail with err until cleared with nil.
func (r *IndexRepository) SetSaveError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

// Saves returns the number of committed snapshots.
func (r *IndexRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

func copySnapshot(snap *driven.IndexSnapshot, gen string) *driven.IndexSnapshot {
	slots := make([]string, len(snap.Slots))
	copy(slots, snap.Slots)

	records := make(map[string]domain.DocumentRecord, len(snap.Records))
	for id, rec := range snap.Records {
		records[id] = rec
	}

	return &driven.IndexSnapshot{
		Slots:      slots,
		Records:    records,
		Vectors:    snap.Vectors.Clone(),
		Generation: gen,
	}
}

package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
)

// Mutator applies insert and delete operations to index states.
// It holds the collaborators a rebuild needs but no state of its own.
type Mutator struct {
	embedder   driven.EmbeddingService
	factory    driven.SimilarityIndexFactory
	rebuild    domain.RebuildStrategy
	defaultDim int
}

// NewMutator creates a mutator. A zero defaultDim selects domain.DefaultDimension.
func NewMutator(
	embedder driven.EmbeddingService,
	factory driven.SimilarityIndexFactory,
	rebuild domain.RebuildStrategy,
	defaultDim int,
) *Mutator {
	if !rebuild.IsValid() {
		rebuild = domain.RebuildReembed
	}
	if defaultDim <= 0 {
		defaultDim = domain.DefaultDimension
	}
	return &Mutator{
		embedder:   embedder,
		factory:    factory,
		rebuild:    rebuild,
		defaultDim: defaultDim,
	}
}

// Empty returns a fresh EMPTY state of the default dimension.
func (m *Mutator) Empty() *IndexState {
	return NewEmptyState(m.factory, m.defaultDim)
}

// Insert appends chunks at the next contiguous slots, in input order.
// An empty chunk list returns state unchanged. On any failure state is
// returned unmodified together with the error.
func (m *Mutator) Insert(ctx context.Context, state *IndexState, chunks []domain.Chunk) (*IndexState, error) {
	if len(chunks) == 0 {
		return state, nil
	}

	records := make([]domain.DocumentRecord, len(chunks))
	texts := make([]string, len(chunks))
	seq := make(map[string]int)
	for i, c := range chunks {
		if err := c.Validate(); err != nil {
			return state, fmt.Errorf("insert: chunk %d: %w", i, err)
		}
		rec := domain.NewDocumentRecord(c, seq[c.SourceID])
		seq[c.SourceID]++
		if _, exists := state.records[rec.DocID]; exists {
			return state, &domain.DuplicateDocumentError{DocID: rec.DocID}
		}
		records[i] = rec
		texts[i] = c.Text
	}

	if m.embedder == nil {
		return state, &domain.EmbeddingError{Op: "insert", DocID: records[0].DocID, Err: domain.ErrEmbeddingUnavailable}
	}
	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return state, &domain.EmbeddingError{Op: "insert", DocID: records[0].DocID, Err: err}
	}
	if len(vectors) != len(texts) {
		return state, &domain.EmbeddingError{
			Op:    "insert",
			DocID: records[0].DocID,
			Err:   fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(texts)),
		}
	}

	// An index that has never held a vector adopts the provider's dimension.
	dim := state.Dimension()
	if state.IsEmpty() {
		dim = len(vectors[0])
		if dim == 0 {
			return state, &domain.EmbeddingError{Op: "insert", DocID: records[0].DocID, Err: fmt.Errorf("provider returned an empty vector")}
		}
	}
	if err := checkDimensions("insert", dim, records, vectors); err != nil {
		return state, err
	}

	var index driven.SimilarityIndex
	if state.IsEmpty() {
		index = m.factory.New(dim)
	} else {
		index = state.vectors.Clone()
	}
	if err := index.Append(vectors); err != nil {
		return state, fmt.Errorf("insert: append vectors: %w", err)
	}

	next := &IndexState{
		slots:   make([]string, 0, len(state.slots)+len(records)),
		records: make(map[string]domain.DocumentRecord, len(state.records)+len(records)),
		vectors: index,
	}
	next.slots = append(next.slots, state.slots...)
	for id, rec := range state.records {
		next.records[id] = rec
	}
	for _, rec := range records {
		next.slots = append(next.slots, rec.DocID)
		next.records[rec.DocID] = rec
	}
	return next, nil
}

// DeleteWhere removes every record matching pred and rebuilds the index
// over the survivors, keeping their relative slot order and renumbering
// from 0. It returns the new state and the number of removed records.
// When nothing matches it returns a domain.NotFoundError and state.
func (m *Mutator) DeleteWhere(
	ctx context.Context,
	state *IndexState,
	op string,
	pred domain.Predicate,
) (*IndexState, int, error) {
	var (
		survivors     []domain.DocumentRecord
		survivorSlots []int
		removed       int
	)
	for slot, docID := range state.slots {
		rec := state.records[docID]
		if pred.Match(rec) {
			removed++
			continue
		}
		survivors = append(survivors, rec)
		survivorSlots = append(survivorSlots, slot)
	}
	if removed == 0 {
		return state, 0, &domain.NotFoundError{Op: op, Subject: pred.Describe()}
	}

	dim := state.Dimension()
	index := m.factory.New(dim)

	if len(survivors) > 0 {
		vectors, err := m.survivorVectors(ctx, state, op, survivors, survivorSlots)
		if err != nil {
			return state, 0, err
		}
		if err := checkDimensions(op, dim, survivors, vectors); err != nil {
			return state, 0, err
		}
		if err := index.Append(vectors); err != nil {
			return state, 0, fmt.Errorf("%s: append vectors: %w", op, err)
		}
	}

	next := &IndexState{
		slots:   make([]string, len(survivors)),
		records: make(map[string]domain.DocumentRecord, len(survivors)),
		vectors: index,
	}
	for i, rec := range survivors {
		next.slots[i] = rec.DocID
		next.records[rec.DocID] = rec
	}
	return next, removed, nil
}

// DeleteAll returns an EMPTY state. It keeps the dimension of state, or
// uses the default when state has no dimension, so repeated calls yield
// the same EMPTY state.
func (m *Mutator) DeleteAll(state *IndexState) *IndexState {
	dim := m.defaultDim
	if state != nil && state.Dimension() > 0 {
		dim = state.Dimension()
	}
	return NewEmptyState(m.factory, dim)
}

// survivorVectors produces vectors for the survivors of a delete.
func (m *Mutator) survivorVectors(
	ctx context.Context,
	state *IndexState,
	op string,
	survivors []domain.DocumentRecord,
	slots []int,
) ([][]float32, error) {
	if m.rebuild == domain.RebuildReuse {
		vectors := make([][]float32, len(slots))
		for i, slot := range slots {
			v, err := state.vectors.Vector(slot)
			if err != nil {
				return nil, &domain.CorruptIndexError{
					Reason: fmt.Sprintf("%s: read vector of %s", op, survivors[i].DocID),
					Err:    err,
				}
			}
			vectors[i] = v
		}
		return vectors, nil
	}

	if m.embedder == nil {
		return nil, &domain.EmbeddingError{Op: op, DocID: survivors[0].DocID, Err: domain.ErrEmbeddingUnavailable}
	}
	texts := make([]string, len(survivors))
	for i, rec := range survivors {
		texts[i] = rec.Text
	}
	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, &domain.EmbeddingError{Op: op, DocID: survivors[0].DocID, Err: err}
	}
	if len(vectors) != len(texts) {
		return nil, &domain.EmbeddingError{
			Op:    op,
			DocID: survivors[0].DocID,
			Err:   fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(texts)),
		}
	}
	return vectors, nil
}

// checkDimensions rejects any vector whose length is not dim.
func checkDimensions(op string, dim int, records []domain.DocumentRecord, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != dim {
			return &domain.DimensionMismatchError{
				Op:       op,
				DocID:    records[i].DocID,
				Expected: dim,
				Actual:   len(v),
			}
		}
	}
	return nil
}

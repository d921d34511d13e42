package services

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
)

// IndexState is an immutable snapshot of an index: the slot map, the
// document store and the physical vectors. Mutations build a new state and
// never modify the receiver, so a state handed to a reader is always
// fully built.
type IndexState struct {
	slots      []string
	records    map[string]domain.DocumentRecord
	vectors    driven.SimilarityIndex
	generation string
}

// NewEmptyState returns an EMPTY state backed by an empty index of dim.
func NewEmptyState(factory driven.SimilarityIndexFactory, dim int) *IndexState {
	return &IndexState{
		records: make(map[string]domain.DocumentRecord),
		vectors: factory.New(dim),
	}
}

// StateFromSnapshot wraps a loaded snapshot.
func StateFromSnapshot(snap *driven.IndexSnapshot) *IndexState {
	records := snap.Records
	if records == nil {
		records = make(map[string]domain.DocumentRecord)
	}
	return &IndexState{
		slots:      snap.Slots,
		records:    records,
		vectors:    snap.Vectors,
		generation: snap.Generation,
	}
}

// Snapshot returns the persistable form of the state.
func (s *IndexState) Snapshot() *driven.IndexSnapshot {
	return &driven.IndexSnapshot{
		Slots:      s.slots,
		Records:    s.records,
		Vectors:    s.vectors,
		Generation: s.generation,
	}
}

// IsEmpty reports whether the state holds no slots.
func (s *IndexState) IsEmpty() bool { return len(s.slots) == 0 }

// Len returns the slot count.
func (s *IndexState) Len() int { return len(s.slots) }

// Dimension returns the vector dimension of the physical index.
func (s *IndexState) Dimension() int { return s.vectors.Dimension() }

// Generation returns the persisted generation, empty if never persisted.
func (s *IndexState) Generation() string { return s.generation }

// SlotMap returns a copy of the slot to doc_id mapping.
func (s *IndexState) SlotMap() []string {
	out := make([]string, len(s.slots))
	copy(out, s.slots)
	return out
}

// Record returns the record stored under docID.
func (s *IndexState) Record(docID string) (domain.DocumentRecord, bool) {
	rec, ok := s.records[docID]
	return rec, ok
}

// RecordAt returns the record occupying slot.
func (s *IndexState) RecordAt(slot int) (domain.DocumentRecord, bool) {
	if slot < 0 || slot >= len(s.slots) {
		return domain.DocumentRecord{}, false
	}
	return s.Record(s.slots[slot])
}

// ListDocuments groups records by source id with sorted distinct pages.
func (s *IndexState) ListDocuments() domain.DocumentListing {
	seen := make(map[string]map[int]struct{})
	for _, rec := range s.records {
		pages, ok := seen[rec.Metadata.SourceID]
		if !ok {
			pages = make(map[int]struct{})
			seen[rec.Metadata.SourceID] = pages
		}
		pages[rec.Metadata.PageNumber] = struct{}{}
	}

	listing := make(domain.DocumentListing, len(seen))
	for src, pages := range seen {
		sorted := make([]int, 0, len(pages))
		for p := range pages {
			sorted = append(sorted, p)
		}
		sort.Ints(sorted)
		listing[src] = sorted
	}
	return listing
}

// Stats returns the consistency counters of the state.
func (s *IndexState) Stats() domain.IndexStats {
	sources := make(map[string]struct{})
	for _, rec := range s.records {
		sources[rec.Metadata.SourceID] = struct{}{}
	}
	return domain.IndexStats{
		TotalDocuments: len(sources),
		TotalPages:     len(s.records),
		VectorCount:    len(s.slots),
		Dimension:      s.vectors.Dimension(),
	}
}

// Violations returns every broken invariant. An empty result means the
// slot map, the document store and the physical index are in lockstep.
func (s *IndexState) Violations() []string {
	var out []string

	if len(s.slots) != len(s.records) {
		out = append(out, fmt.Sprintf("slot count %d does not match record count %d", len(s.slots), len(s.records)))
	}
	if n := s.vectors.Len(); n != len(s.slots) {
		out = append(out, fmt.Sprintf("vector count %d does not match slot count %d", n, len(s.slots)))
	}

	referenced := make(map[string]int, len(s.slots))
	for slot, docID := range s.slots {
		if prev, dup := referenced[docID]; dup {
			out = append(out, fmt.Sprintf("doc %s occupies slots %d and %d", docID, prev, slot))
			continue
		}
		referenced[docID] = slot
		if _, ok := s.records[docID]; !ok {
			out = append(out, fmt.Sprintf("slot %d references missing doc %s", slot, docID))
		}
	}

	for docID, rec := range s.records {
		if _, ok := referenced[docID]; !ok {
			out = append(out, fmt.Sprintf("doc %s has no slot", docID))
		}
		if rec.DocID != docID {
			out = append(out, fmt.Sprintf("doc %s is stored under key %s", rec.DocID, docID))
		}
	}

	sort.Strings(out)
	return out
}

// search maps nearest slots back to their records.
func (s *IndexState) search(query []float32, k int) ([]domain.SearchHit, error) {
	if s.IsEmpty() || k <= 0 {
		return nil, nil
	}
	if len(query) != s.Dimension() {
		return nil, &domain.DimensionMismatchError{
			Op:       "search",
			DocID:    "query",
			Expected: s.Dimension(),
			Actual:   len(query),
		}
	}

	slots, err := s.vectors.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(slots))
	for _, h := range slots {
		rec, ok := s.RecordAt(h.Slot)
		if !ok {
			return nil, &domain.CorruptIndexError{Reason: fmt.Sprintf("search returned unmapped slot %d", h.Slot)}
		}
		hits = append(hits, domain.SearchHit{Slot: h.Slot, Distance: h.Distance, Record: rec})
	}
	return hits, nil
}

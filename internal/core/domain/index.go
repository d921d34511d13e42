package domain

import (
	"sort"
	"time"
)

// DefaultDimension is the vector dimension of an index that has never held
// a vector (all-MiniLM-L6-v2 sized).
const DefaultDimension = 384

// IndexStats holds the consistency counters of an index.
type IndexStats struct {
	// TotalDocuments is the number of distinct source ids.
	TotalDocuments int `json:"total_documents" yaml:"total_documents"`

	// TotalPages is the number of document records.
	TotalPages int `json:"total_pages" yaml:"total_pages"`

	// VectorCount is the number of occupied slots.
	VectorCount int `json:"vector_count" yaml:"vector_count"`

	// Dimension is the vector dimension of the index.
	Dimension int `json:"dimension" yaml:"dimension"`
}

// Consistent reports whether the slot count matches the record count.
func (s IndexStats) Consistent() bool {
	return s.VectorCount == s.TotalPages
}

// DocumentListing maps each source id to its sorted, distinct page numbers.
type DocumentListing map[string][]int

// Sources returns the source ids in lexical order.
func (l DocumentListing) Sources() []string {
	sources := make([]string, 0, len(l))
	for src := range l {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources
}

// SearchHit is a record returned by similarity search.
type SearchHit struct {
	Slot     int
	Distance float32
	Record   DocumentRecord
}

// Source identifies the file and page an answer drew from.
type Source struct {
	File string `json:"file"`
	Page int    `json:"page"`
}

// Answer is the result of retrieval-augmented generation.
type Answer struct {
	Question string
	Text     string
	Sources  []Source
}

// MutationResult is the outcome reported to the upward surface.
// "Not found" is a normal failure here, not an error.
type MutationResult struct {
	// OK reports whether the mutation was applied.
	OK bool

	// Message is a human-readable summary.
	Message string

	// Affected is the number of records added or removed.
	Affected int

	// VectorCount is the slot count after the call.
	VectorCount int
}

// JournalEntry is one committed mutation in the journal.
type JournalEntry struct {
	ID          int64
	Operation   string
	Subject     string
	Affected    int
	VectorCount int
	Generation  string
	CommittedAt time.Time
}

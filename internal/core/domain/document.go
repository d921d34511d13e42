package domain

import (
	"fmt"
	"strings"
)

// Chunk is a unit of retrievable text produced by ingestion.
// Chunks are immutable once created.
type Chunk struct {
	// SourceID is the normalised filename or logical document path.
	SourceID string

	// PageNumber is the 1-based page the text came from.
	PageNumber int

	// Text is the chunk content.
	Text string
}

// Validate checks the chunk is insertable.
func (c Chunk) Validate() error {
	if c.SourceID == "" {
		return fmt.Errorf("%w: chunk has empty source id", ErrInvalidInput)
	}
	if c.PageNumber < 1 {
		return fmt.Errorf("%w: chunk %s has page number %d", ErrInvalidInput, c.SourceID, c.PageNumber)
	}
	return nil
}

// Page is the extracted text of one page of a file.
type Page struct {
	// Number is 1-based.
	Number int

	Text string
}

// RecordMetadata is the metadata attached to every DocumentRecord.
type RecordMetadata struct {
	SourceID   string
	PageNumber int
}

// DocumentRecord is the index's stored representation of a Chunk.
type DocumentRecord struct {
	// DocID is unique within the index and joins the slot map to the store.
	DocID string

	Text string

	Metadata RecordMetadata
}

// docIDSeparator joins a source id and its sequence number.
const docIDSeparator = "_page_"

// DocID derives the document id for the seq-th chunk (0-based) of a source.
func DocID(sourceID string, seq int) string {
	return fmt.Sprintf("%s%s%d", sourceID, docIDSeparator, seq)
}

// NewDocumentRecord builds the record stored for a chunk.
func NewDocumentRecord(c Chunk, seq int) DocumentRecord {
	return DocumentRecord{
		DocID: DocID(c.SourceID, seq),
		Text:  c.Text,
		Metadata: RecordMetadata{
			SourceID:   c.SourceID,
			PageNumber: c.PageNumber,
		},
	}
}

// Predicate selects document records for deletion.
type Predicate interface {
	// Match reports whether the record is selected.
	Match(rec DocumentRecord) bool

	// Describe names the selection for error messages.
	Describe() string
}

// BySource selects every record of a source.
type BySource string

// Match implements Predicate.
func (p BySource) Match(rec DocumentRecord) bool {
	return rec.Metadata.SourceID == string(p)
}

// Describe implements Predicate.
func (p BySource) Describe() string {
	return fmt.Sprintf("source %q", string(p))
}

// ByPage selects the records of one page of a source.
type ByPage struct {
	SourceID   string
	PageNumber int
}

// Match implements Predicate.
func (p ByPage) Match(rec DocumentRecord) bool {
	return rec.Metadata.SourceID == p.SourceID && rec.Metadata.PageNumber == p.PageNumber
}

// Describe implements Predicate.
func (p ByPage) Describe() string {
	return fmt.Sprintf("page %d of source %q", p.PageNumber, p.SourceID)
}

// ByText selects records whose text contains the query, ignoring case.
type ByText string

// Match implements Predicate.
func (p ByText) Match(rec DocumentRecord) bool {
	return strings.Contains(strings.ToLower(rec.Text), strings.ToLower(string(p)))
}

// Describe implements Predicate.
func (p ByText) Describe() string {
	return fmt.Sprintf("text containing %q", string(p))
}

// PredicateFunc adapts a function to the Predicate interface.
type PredicateFunc func(DocumentRecord) bool

// Match implements Predicate.
func (f PredicateFunc) Match(rec DocumentRecord) bool { return f(rec) }

// Describe implements Predicate.
func (f PredicateFunc) Describe() string { return "custom predicate" }

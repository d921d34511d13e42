package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown file, provider or codec type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Index Errors.

	// ErrEmbeddingFailed indicates the embedding provider could not embed a batch.
	// The mutation is aborted and the previous state is kept.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	// This is fatal: the index and embedding model are not paired correctly.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrCorruptIndex indicates persisted index artifacts are unreadable
	// or inconsistent with one another.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrStorage indicates an I/O failure while persisting the index.
	// The previously persisted artifacts are untouched.
	ErrStorage = errors.New("storage failure")
)

// NotFoundError reports that a delete predicate matched no document.
type NotFoundError struct {
	// Op is the operation that found nothing (e.g. "remove_page").
	Op string

	// Subject describes what was looked for (source id, page, query).
	Subject string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no documents match %s", e.Op, e.Subject)
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// EmbeddingError reports a failed embedding call.
type EmbeddingError struct {
	Op string

	// DocID is the first document in the failed batch, when known.
	DocID string

	Err error
}

func (e *EmbeddingError) Error() string {
	if e.DocID != "" {
		return fmt.Sprintf("%s: embedding batch starting at %s: %v", e.Op, e.DocID, e.Err)
	}
	return fmt.Sprintf("%s: embedding: %v", e.Op, e.Err)
}

// Unwrap returns both the sentinel and the provider error.
func (e *EmbeddingError) Unwrap() []error { return []error{ErrEmbeddingFailed, e.Err} }

// DimensionMismatchError reports a vector whose length differs from the index.
type DimensionMismatchError struct {
	Op       string
	DocID    string
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: vector dimension %d does not match index dimension %d",
		e.Op, e.DocID, e.Actual, e.Expected)
}

// Unwrap returns ErrDimensionMismatch.
func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// CorruptIndexError reports unreadable or mutually inconsistent artifacts.
type CorruptIndexError struct {
	// Path is the index location.
	Path string

	// Reason describes the inconsistency.
	Reason string

	Err error
}

func (e *CorruptIndexError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt index at %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt index at %s: %s", e.Path, e.Reason)
}

// Unwrap returns both the sentinel and the cause.
func (e *CorruptIndexError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCorruptIndex}
	}
	return []error{ErrCorruptIndex, e.Err}
}

// StorageError reports an I/O failure during persist.
type StorageError struct {
	Path string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns both the sentinel and the I/O error.
func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// DuplicateDocumentError reports an insert whose doc_id is already indexed.
type DuplicateDocumentError struct {
	DocID string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("document %s is already indexed", e.DocID)
}

// Unwrap returns ErrAlreadyExists.
func (e *DuplicateDocumentError) Unwrap() error { return ErrAlreadyExists }

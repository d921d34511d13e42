package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
	"github.com/custodia-labs/docagent/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// Operation names used in errors, logs and the journal.
const (
	OpInsert         = "insert_document"
	OpRemoveDocument = "remove_document"
	OpRemovePage     = "remove_page"
	OpRemoveMatching = "remove_matching"
	OpRemoveAll      = "remove_all"
)

// IndexService owns one persisted index path. Mutations are serialised by
// a lock shared by every service on the same path; readers only see states
// that have been fully built and persisted.
type IndexService struct {
	path     string
	repo     driven.IndexRepository
	embedder driven.EmbeddingService
	mutator  *Mutator
	journal  driven.MutationJournal

	lock    *sync.Mutex
	current atomic.Pointer[IndexState]
}

// IndexOption configures an IndexService.
type IndexOption func(*indexOptions)

type indexOptions struct {
	journal    driven.MutationJournal
	rebuild    domain.RebuildStrategy
	defaultDim int
}

// WithJournal records committed mutations.
func WithJournal(j driven.MutationJournal) IndexOption {
	return func(o *indexOptions) {
		o.journal = j
	}
}

// WithRebuildStrategy selects how survivors are re-indexed after a delete.
func WithRebuildStrategy(r domain.RebuildStrategy) IndexOption {
	return func(o *indexOptions) {
		if r.IsValid() {
			o.rebuild = r
		}
	}
}

// WithDefaultDimension sets the dimension of an index that never held a vector.
func WithDefaultDimension(dim int) IndexOption {
	return func(o *indexOptions) {
		if dim > 0 {
			o.defaultDim = dim
		}
	}
}

// NewIndexService creates an index service for the index stored at path.
func NewIndexService(
	path string,
	repo driven.IndexRepository,
	factory driven.SimilarityIndexFactory,
	embedder driven.EmbeddingService,
	opts ...IndexOption,
) *IndexService {
	o := indexOptions{
		rebuild:    domain.RebuildReembed,
		defaultDim: domain.DefaultDimension,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &IndexService{
		path:     path,
		repo:     repo,
		embedder: embedder,
		mutator:  NewMutator(embedder, factory, o.rebuild, o.defaultDim),
		journal:  o.journal,
		lock:     lockFor(path),
	}
}

// Path returns the index directory.
func (s *IndexService) Path() string {
	return s.path
}

// Open loads the persisted state, or an EMPTY state when nothing has been
// persisted. Corrupt artifacts yield a domain.CorruptIndexError.
func (s *IndexService) Open(ctx context.Context) (*IndexState, error) {
	snap, err := s.repo.Load(ctx, s.path)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return s.mutator.Empty(), nil
	}
	return StateFromSnapshot(snap), nil
}

// State returns the latest fully built state.
func (s *IndexService) State(ctx context.Context) (*IndexState, error) {
	if st := s.current.Load(); st != nil {
		return st, nil
	}
	st, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	s.current.CompareAndSwap(nil, st)
	return s.current.Load(), nil
}

// Reset drops the cached state so the next read reloads from disk.
func (s *IndexService) Reset() {
	s.current.Store(nil)
}

// mutation computes the next state from the prior one.
type mutation func(ctx context.Context, prior *IndexState) (next *IndexState, affected int, err error)

// mutate runs fn under the path lock against the persisted state and
// commits the result. The prior state stays current on any failure.
func (s *IndexService) mutate(ctx context.Context, op, subject string, fn mutation) (*IndexState, int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	logger.Section(op)
	start := time.Now()

	prior, err := s.Open(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: open index: %w", op, err)
	}
	s.current.Store(prior)

	next, affected, err := fn(ctx, prior)
	if err != nil {
		return prior, 0, err
	}
	if next == prior {
		logger.Debug("%s %s: nothing to commit", op, subject)
		return prior, 0, nil
	}

	gen, err := s.repo.Save(ctx, s.path, next.Snapshot())
	if err != nil {
		return prior, 0, err
	}
	next.generation = gen
	s.current.Store(next)

	logger.Debug("%s %s: %d affected, %d vectors, generation %s (%s)",
		op, subject, affected, next.Len(), gen, time.Since(start).Round(time.Millisecond))

	if s.journal != nil {
		entry := domain.JournalEntry{
			Operation:   op,
			Subject:     subject,
			Affected:    affected,
			VectorCount: next.Len(),
			Generation:  gen,
			CommittedAt: time.Now().UTC(),
		}
		if err := s.journal.Append(ctx, entry); err != nil {
			logger.Warn("journal %s: %v", op, err)
		}
	}

	return next, affected, nil
}

// InsertDocument appends the chunks of one file.
func (s *IndexService) InsertDocument(
	ctx context.Context,
	fileIdentifier string,
	chunks []domain.Chunk,
	opts driving.InsertOptions,
) (domain.MutationResult, error) {
	if fileIdentifier == "" {
		return domain.MutationResult{}, fmt.Errorf("%s: %w: empty file identifier", OpInsert, domain.ErrInvalidInput)
	}

	normalised := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		if c.SourceID == "" {
			c.SourceID = fileIdentifier
		}
		if c.SourceID != fileIdentifier {
			return domain.MutationResult{}, fmt.Errorf("%s: %w: chunk %d belongs to %s, not %s",
				OpInsert, domain.ErrInvalidInput, i, c.SourceID, fileIdentifier)
		}
		normalised[i] = c
	}

	next, affected, err := s.mutate(ctx, OpInsert, fileIdentifier, func(ctx context.Context, prior *IndexState) (*IndexState, int, error) {
		base := prior
		if opts.Replace && len(normalised) > 0 {
			pruned, removed, err := s.mutator.DeleteWhere(ctx, prior, OpInsert, domain.BySource(fileIdentifier))
			switch {
			case err == nil:
				logger.Debug("replacing %d records of %s", removed, fileIdentifier)
				base = pruned
			case !errors.As(err, new(*domain.NotFoundError)):
				return nil, 0, err
			}
		}
		next, err := s.mutator.Insert(ctx, base, normalised)
		if err != nil {
			return nil, 0, err
		}
		return next, len(normalised), nil
	})

	var dup *domain.DuplicateDocumentError
	switch {
	case errors.As(err, &dup):
		return domain.MutationResult{
			OK:          false,
			Message:     fmt.Sprintf("%s is already indexed; remove it first or insert with replace", fileIdentifier),
			VectorCount: lenOf(next),
		}, nil
	case err != nil:
		return failure(next, err), err
	case len(normalised) == 0:
		return domain.MutationResult{OK: true, Message: "no chunks to insert", VectorCount: next.Len()}, nil
	}

	return domain.MutationResult{
		OK:          true,
		Message:     fmt.Sprintf("added %d pages from %s", affected, fileIdentifier),
		Affected:    affected,
		VectorCount: next.Len(),
	}, nil
}

// RemoveDocument removes every page of a source.
func (s *IndexService) RemoveDocument(ctx context.Context, sourceID string) (domain.MutationResult, error) {
	if sourceID == "" {
		return domain.MutationResult{}, fmt.Errorf("%s: %w: empty source id", OpRemoveDocument, domain.ErrInvalidInput)
	}
	return s.removeWhere(ctx, OpRemoveDocument, domain.BySource(sourceID))
}

// RemovePage removes one page of a source.
func (s *IndexService) RemovePage(ctx context.Context, sourceID string, pageNumber int) (domain.MutationResult, error) {
	if sourceID == "" || pageNumber < 1 {
		return domain.MutationResult{}, fmt.Errorf("%s: %w: source %q page %d",
			OpRemovePage, domain.ErrInvalidInput, sourceID, pageNumber)
	}
	return s.removeWhere(ctx, OpRemovePage, domain.ByPage{SourceID: sourceID, PageNumber: pageNumber})
}

// RemoveMatching removes every record containing query, ignoring case.
func (s *IndexService) RemoveMatching(ctx context.Context, query string) (domain.MutationResult, error) {
	if query == "" {
		return domain.MutationResult{}, fmt.Errorf("%s: %w: empty query", OpRemoveMatching, domain.ErrInvalidInput)
	}
	return s.removeWhere(ctx, OpRemoveMatching, domain.ByText(query))
}

func (s *IndexService) removeWhere(ctx context.Context, op string, pred domain.Predicate) (domain.MutationResult, error) {
	next, removed, err := s.mutate(ctx, op, pred.Describe(), func(ctx context.Context, prior *IndexState) (*IndexState, int, error) {
		return s.mutator.DeleteWhere(ctx, prior, op, pred)
	})

	var nf *domain.NotFoundError
	switch {
	case errors.As(err, &nf):
		return domain.MutationResult{OK: false, Message: nf.Error(), VectorCount: lenOf(next)}, nil
	case err != nil:
		return failure(next, err), err
	}

	return domain.MutationResult{
		OK:          true,
		Message:     fmt.Sprintf("removed %d pages matching %s", removed, pred.Describe()),
		Affected:    removed,
		VectorCount: next.Len(),
	}, nil
}

// RemoveAll empties the index.
func (s *IndexService) RemoveAll(ctx context.Context) (domain.MutationResult, error) {
	next, removed, err := s.mutate(ctx, OpRemoveAll, "all", func(_ context.Context, prior *IndexState) (*IndexState, int, error) {
		return s.mutator.DeleteAll(prior), prior.Len(), nil
	})
	if err != nil {
		return failure(next, err), err
	}
	return domain.MutationResult{
		OK:          true,
		Message:     fmt.Sprintf("cleared %d pages from the index", removed),
		Affected:    removed,
		VectorCount: next.Len(),
	}, nil
}

// EnumerateDocuments returns source id to sorted page numbers.
func (s *IndexService) EnumerateDocuments(ctx context.Context) (domain.DocumentListing, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return st.ListDocuments(), nil
}

// GetStatistics returns the index counters. A slot/record mismatch is
// reported as corruption.
func (s *IndexService) GetStatistics(ctx context.Context) (domain.IndexStats, error) {
	st, err := s.State(ctx)
	if err != nil {
		return domain.IndexStats{}, err
	}
	stats := st.Stats()
	if !stats.Consistent() {
		return stats, &domain.CorruptIndexError{
			Path:   s.path,
			Reason: fmt.Sprintf("vector count %d does not match page count %d", stats.VectorCount, stats.TotalPages),
		}
	}
	return stats, nil
}

// Search returns the k records nearest to the query text.
func (s *IndexService) Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	if st.IsEmpty() {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &domain.EmbeddingError{Op: "search", Err: err}
	}
	hits, err := st.search(vec, k)
	if err != nil {
		return nil, err
	}
	logger.Debug("search %q: %d hits", query, len(hits))
	return hits, nil
}

// Verify loads the persisted state and returns every invariant violation.
func (s *IndexService) Verify(ctx context.Context) ([]string, error) {
	st, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	return st.Violations(), nil
}

// History returns recent committed mutations, newest first.
func (s *IndexService) History(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Recent(ctx, limit)
}

func failure(st *IndexState, err error) domain.MutationResult {
	return domain.MutationResult{OK: false, Message: err.Error(), VectorCount: lenOf(st)}
}

func lenOf(st *IndexState) int {
	if st == nil {
		return 0
	}
	return st.Len()
}

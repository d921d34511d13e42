package mcp

import (
	"context"
	"path/filepath"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result   domain.MutationResult
	listing  domain.DocumentListing
	stats    domain.IndexStats
	hits     []domain.SearchHit
	history  []domain.JournalEntry
	err      error
	lastCall string
	lastArgs []any
}

func (m *mockIndexService) record(call string, args ...any) {
	m.lastCall = call
	m.lastArgs = args
}

func (m *mockIndexService) InsertDocument(
	_ context.Context,
	id string,
	chunks []domain.Chunk,
	opts driving.InsertOptions,
) (domain.MutationResult, error) {
	m.record("insert", id, len(chunks), opts.Replace)
	return m.result, m.err
}

func (m *mockIndexService) RemoveDocument(_ context.Context, source string) (domain.MutationResult, error) {
	m.record("remove_document", source)
	return m.result, m.err
}

func (m *mockIndexService) RemovePage(_ context.Context, source string, page int) (domain.MutationResult, error) {
	m.record("remove_page", source, page)
	return m.result, m.err
}

func (m *mockIndexService) RemoveMatching(_ context.Context, query string) (domain.MutationResult, error) {
	m.record("remove_matching", query)
	return m.result, m.err
}

func (m *mockIndexService) RemoveAll(_ context.Context) (domain.MutationResult, error) {
	m.record("remove_all")
	return m.result, m.err
}

func (m *mockIndexService) EnumerateDocuments(_ context.Context) (domain.DocumentListing, error) {
	return m.listing, m.err
}

func (m *mockIndexService) GetStatistics(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIndexService) Search(_ context.Context, query string, k int) ([]domain.SearchHit, error) {
	m.record("search", query, k)
	return m.hits, m.err
}

func (m *mockIndexService) Verify(_ context.Context) ([]string, error) {
	return nil, m.err
}

func (m *mockIndexService) History(_ context.Context, limit int) ([]domain.JournalEntry, error) {
	m.record("history", limit)
	return m.history, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	result   domain.MutationResult
	err      error
	lastPath string
	lastOpts driving.IngestOptions
}

func (m *mockIngestService) IngestFile(
	_ context.Context,
	path string,
	opts driving.IngestOptions,
) (domain.MutationResult, error) {
	m.lastPath = path
	m.lastOpts = opts
	return m.result, m.err
}

func (m *mockIngestService) SourceID(path string) (string, error) {
	return filepath.Join("/abs", path), nil
}

func (m *mockIngestService) Supports(_ string) bool { return true }

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Ask(_ context.Context, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

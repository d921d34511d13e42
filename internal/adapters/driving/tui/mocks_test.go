package tui

import (
	"context"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

type mockAnswerService struct {
	answer *domain.Answer
	err    error
	asked  []string
}

func (m *mockAnswerService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	m.asked = append(m.asked, question)
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type mockIndexService struct {
	driving.IndexService
	listing domain.DocumentListing
	stats   domain.IndexStats
	err     error
	removed []string
}

func (m *mockIndexService) EnumerateDocuments(context.Context) (domain.DocumentListing, error) {
	return m.listing, m.err
}

func (m *mockIndexService) GetStatistics(context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIndexService) RemoveDocument(_ context.Context, source string) (domain.MutationResult, error) {
	m.removed = append(m.removed, source)
	return domain.MutationResult{OK: true, Affected: len(m.listing[source])}, m.err
}

var (
	_ driving.AnswerService = (*mockAnswerService)(nil)
	_ driving.IndexService  = (*mockIndexService)(nil)
)

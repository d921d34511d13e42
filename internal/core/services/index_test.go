package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docagent/internal/adapters/driven/flatindex"
	"github.com/custodia-labs/docagent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

const testDim = 16

type indexFixture struct {
	svc      *IndexService
	repo     *memory.IndexRepository
	embedder *mockEmbedder
	path     string
}

func newIndexFixture(t *testing.T, opts ...IndexOption) *indexFixture {
	t.Helper()
	f := &indexFixture{
		repo:     memory.NewIndexRepository(),
		embedder: newMockEmbedder(testDim),
		path:     filepath.Join(t.TempDir(), "index"),
	}
	f.svc = NewIndexService(f.path, f.repo, flatindex.NewFactory(domain.CompressionNone), f.embedder, opts...)
	return f
}

func pages(source string, texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{SourceID: source, PageNumber: i + 1, Text: text}
	}
	return chunks
}

func (f *indexFixture) insert(t *testing.T, source string, texts ...string) {
	t.Helper()
	res, err := f.svc.InsertDocument(context.Background(), source, pages(source, texts...), driving.InsertOptions{})
	require.NoError(t, err)
	require.True(t, res.OK, res.Message)
}

func (f *indexFixture) stats(t *testing.T) domain.IndexStats {
	t.Helper()
	stats, err := f.svc.GetStatistics(context.Background())
	require.NoError(t, err)
	return stats
}

func (f *indexFixture) assertConsistent(t *testing.T) {
	t.Helper()
	violations, err := f.svc.Verify(context.Background())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestIndexService_InsertIntoEmpty(t *testing.T) {
	f := newIndexFixture(t)

	res, err := f.svc.InsertDocument(context.Background(), "a.pdf",
		[]domain.Chunk{{SourceID: "a.pdf", PageNumber: 1, Text: "hello"}}, driving.InsertOptions{})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, res.Affected)
	assert.Equal(t, 1, res.VectorCount)
	assert.Equal(t, "added 1 pages from a.pdf", res.Message)
	assert.Equal(t, domain.IndexStats{TotalDocuments: 1, TotalPages: 1, VectorCount: 1, Dimension: testDim}, f.stats(t))
	f.assertConsistent(t)
}

func TestIndexService_InsertAssignsContiguousSlots(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "one", "two")
	f.insert(t, "b.pdf", "three")

	st, err := f.svc.State(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.pdf_page_0", "a.pdf_page_1", "b.pdf_page_0"}, st.SlotMap())
	rec, ok := st.RecordAt(1)
	require.True(t, ok)
	assert.Equal(t, "two", rec.Text)
	assert.Equal(t, domain.RecordMetadata{SourceID: "a.pdf", PageNumber: 2}, rec.Metadata)
	assert.NotEmpty(t, st.Generation())
}

func TestIndexService_InsertFillsEmptySourceID(t *testing.T) {
	f := newIndexFixture(t)

	res, err := f.svc.InsertDocument(context.Background(), "a.pdf",
		[]domain.Chunk{{PageNumber: 1, Text: "x"}}, driving.InsertOptions{})

	require.NoError(t, err)
	assert.True(t, res.OK)
	docs, err := f.svc.EnumerateDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentListing{"a.pdf": {1}}, docs)
}

func TestIndexService_InsertRejectsInvalidInput(t *testing.T) {
	f := newIndexFixture(t)
	ctx := context.Background()

	_, err := f.svc.InsertDocument(ctx, "", pages("a.pdf", "x"), driving.InsertOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.InsertDocument(ctx, "a.pdf", pages("b.pdf", "x"), driving.InsertOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.InsertDocument(ctx, "a.pdf",
		[]domain.Chunk{{SourceID: "a.pdf", PageNumber: 0, Text: "x"}}, driving.InsertOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, 0, f.repo.Saves())
}

func TestIndexService_InsertNoChunks(t *testing.T) {
	f := newIndexFixture(t)

	res, err := f.svc.InsertDocument(context.Background(), "a.pdf", nil, driving.InsertOptions{})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "no chunks to insert", res.Message)
	assert.Equal(t, 0, f.repo.Saves())
}

func TestIndexService_InsertDuplicateIsRejected(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "one")
	saves := f.repo.Saves()

	res, err := f.svc.InsertDocument(context.Background(), "a.pdf", pages("a.pdf", "one again"), driving.InsertOptions{})

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "already indexed")
	assert.Equal(t, 1, res.VectorCount)
	assert.Equal(t, saves, f.repo.Saves())
}

func TestIndexService_InsertReplace(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "old one", "old two", "old three")
	f.insert(t, "b.pdf", "other")

	res, err := f.svc.InsertDocument(context.Background(), "a.pdf",
		pages("a.pdf", "new one"), driving.InsertOptions{Replace: true})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.VectorCount)

	st, err := f.svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf_page_0", "a.pdf_page_0"}, st.SlotMap())
	rec, _ := st.Record("a.pdf_page_0")
	assert.Equal(t, "new one", rec.Text)
	f.assertConsistent(t)
}

func TestIndexService_InsertReplaceOfNewSource(t *testing.T) {
	f := newIndexFixture(t)

	res, err := f.svc.InsertDocument(context.Background(), "a.pdf",
		pages("a.pdf", "fresh"), driving.InsertOptions{Replace: true})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, res.VectorCount)
}

func TestIndexService_RemoveDocument(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "a one", "a two")
	f.insert(t, "b.pdf", "b one")

	res, err := f.svc.RemoveDocument(context.Background(), "a.pdf")

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.Affected)
	assert.Equal(t, 1, res.VectorCount)

	docs, err := f.svc.EnumerateDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentListing{"b.pdf": {1}}, docs)
	assert.Equal(t, 1, f.stats(t).VectorCount)
	f.assertConsistent(t)
}

func TestIndexService_RemoveDocumentNotFound(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "x")

	res, err := f.svc.RemoveDocument(context.Background(), "missing.pdf")

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "missing.pdf")
	assert.Equal(t, 1, res.VectorCount)
}

func TestIndexService_RemovePageMissingLeavesStateUnchanged(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "one", "two")
	before, err := f.svc.State(context.Background())
	require.NoError(t, err)
	saves := f.repo.Saves()

	res, err := f.svc.RemovePage(context.Background(), "a.pdf", 7)

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 2, res.VectorCount)
	assert.Equal(t, saves, f.repo.Saves())

	after, err := f.svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.SlotMap(), after.SlotMap())
	assert.Equal(t, before.Generation(), after.Generation())
}

func TestIndexService_RemovePageRenumbersSlots(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "one", "two", "three")

	res, err := f.svc.RemovePage(context.Background(), "a.pdf", 2)

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, res.Affected)

	st, err := f.svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf_page_0", "a.pdf_page_2"}, st.SlotMap())
	rec, ok := st.RecordAt(1)
	require.True(t, ok)
	assert.Equal(t, "three", rec.Text)
	f.assertConsistent(t)
}

func TestIndexService_RemovePageInvalid(t *testing.T) {
	f := newIndexFixture(t)

	_, err := f.svc.RemovePage(context.Background(), "a.pdf", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.RemovePage(context.Background(), "", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndexService_RemoveMatchingIgnoresCase(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "The quick fox", "Lorem ipsum")

	res, err := f.svc.RemoveMatching(context.Background(), "QUICK")

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, res.Affected)

	st, err := f.svc.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, st.Len())
	rec, _ := st.RecordAt(0)
	assert.Equal(t, "Lorem ipsum", rec.Text)
}

func TestIndexService_RemoveMatchingEmptyQuery(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "anything")

	_, err := f.svc.RemoveMatching(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, f.stats(t).VectorCount)
}

func TestIndexService_RemoveMatchingNothing(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "anything")

	res, err := f.svc.RemoveMatching(context.Background(), "zebra")

	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestIndexService_RemoveAll(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "one", "two")

	res, err := f.svc.RemoveAll(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.Affected)
	assert.Equal(t, 0, res.VectorCount)

	again, err := f.svc.RemoveAll(context.Background())
	require.NoError(t, err)
	assert.True(t, again.OK)
	assert.Equal(t, 0, again.Affected)

	assert.Equal(t, domain.IndexStats{Dimension: testDim}, f.stats(t))
	f.assertConsistent(t)
}

func TestIndexService_EmptyIndexAdoptsProviderDimension(t *testing.T) {
	f := newIndexFixture(t)

	st, err := f.svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDimension, st.Dimension())

	f.insert(t, "a.pdf", "x")
	assert.Equal(t, testDim, f.stats(t).Dimension)
}

func TestIndexService_DimensionMismatch(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "x")

	f.embedder.overrides["short"] = []float32{1, 2}
	res, err := f.svc.InsertDocument(context.Background(), "b.pdf", pages("b.pdf", "short"), driving.InsertOptions{})

	var mismatch *domain.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, testDim, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Actual)
	assert.Equal(t, "b.pdf_page_0", mismatch.DocID)
	assert.False(t, res.OK)
	assert.Equal(t, 1, res.VectorCount)
	assert.Equal(t, 1, f.stats(t).VectorCount)
}

func TestIndexService_EmbeddingFailureKeepsPriorState(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "existing")
	before, err := f.svc.State(context.Background())
	require.NoError(t, err)

	f.embedder.failOn = "boom"
	res, err := f.svc.InsertDocument(context.Background(), "b.pdf",
		pages("b.pdf", "fine", "boom", "also fine"), driving.InsertOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
	var embedErr *domain.EmbeddingError
	require.ErrorAs(t, err, &embedErr)
	assert.Equal(t, "b.pdf_page_0", embedErr.DocID)
	assert.False(t, res.OK)

	after, err := f.svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.SlotMap(), after.SlotMap())
	assert.Equal(t, before.Generation(), after.Generation())
	f.assertConsistent(t)
}

func TestIndexService_RemoveEmbeddingFailureKeepsPriorState(t *testing.T) {
	f := newIndexFixture(t, WithRebuildStrategy(domain.RebuildReembed))
	f.insert(t, "a.pdf", "survivor boom")
	f.insert(t, "b.pdf", "doomed")
	before, err := f.svc.State(context.Background())
	require.NoError(t, err)
	saves := f.repo.Saves()

	f.embedder.failOn = "boom"
	res, err := f.svc.RemoveDocument(context.Background(), "b.pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
	assert.False(t, res.OK)
	assert.Equal(t, 2, res.VectorCount)
	assert.Equal(t, saves, f.repo.Saves())

	after, err := f.svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.SlotMap(), after.SlotMap())
	assert.Equal(t, before.Generation(), after.Generation())
	f.assertConsistent(t)
}

func TestIndexService_RemoveDimensionMismatch(t *testing.T) {
	f := newIndexFixture(t, WithRebuildStrategy(domain.RebuildReembed))
	f.insert(t, "a.pdf", "keep")
	f.insert(t, "b.pdf", "drop")
	saves := f.repo.Saves()

	f.embedder.overrides["keep"] = []float32{1, 2}
	res, err := f.svc.RemoveDocument(context.Background(), "b.pdf")

	var mismatch *domain.DimensionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, testDim, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Actual)
	assert.Equal(t, "a.pdf_page_0", mismatch.DocID)
	assert.False(t, res.OK)
	assert.Equal(t, saves, f.repo.Saves())
	assert.Equal(t, 2, f.stats(t).VectorCount)
}

func TestIndexService_ReplaceSurfacesCorruption(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, WithRebuildStrategy(domain.RebuildReuse))
	f.insert(t, "a.pdf", "first")
	f.insert(t, "b.pdf", "second")

	// Keep both slots but only one vector.
	snap, err := f.repo.Load(ctx, f.path)
	require.NoError(t, err)
	short := flatindex.NewFactory(domain.CompressionNone).New(testDim)
	require.NoError(t, short.Append([][]float32{unit(testDim, 0)}))
	snap.Vectors = short
	_, err = f.repo.Save(ctx, f.path, snap)
	require.NoError(t, err)
	f.svc.Reset()
	saves := f.repo.Saves()

	res, err := f.svc.InsertDocument(ctx, "a.pdf", pages("a.pdf", "first again"), driving.InsertOptions{Replace: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
	var corrupt *domain.CorruptIndexError
	assert.ErrorAs(t, err, &corrupt)
	assert.False(t, res.OK)
	assert.NotContains(t, res.Message, "already indexed")
	assert.Equal(t, saves, f.repo.Saves())
}

func TestIndexService_SaveFailureKeepsPriorState(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "existing")
	f.repo.SetSaveError(errors.New("disk full"))

	res, err := f.svc.RemoveDocument(context.Background(), "a.pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.False(t, res.OK)
	assert.Equal(t, 1, res.VectorCount)

	f.repo.SetSaveError(nil)
	f.svc.Reset()
	assert.Equal(t, 1, f.stats(t).VectorCount)
}

func TestIndexService_RebuildStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy domain.RebuildStrategy
		reembeds int
	}{
		{name: "reembed", strategy: domain.RebuildReembed, reembeds: 2},
		{name: "reuse", strategy: domain.RebuildReuse, reembeds: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIndexFixture(t, WithRebuildStrategy(tt.strategy))
			f.embedder.overrides["keep one"] = unit(testDim, 0)
			f.embedder.overrides["drop"] = unit(testDim, 1)
			f.embedder.overrides["keep two"] = unit(testDim, 2)
			f.insert(t, "a.pdf", "keep one", "drop", "keep two")
			before := f.embedder.embeddedTexts()

			res, err := f.svc.RemovePage(context.Background(), "a.pdf", 2)
			require.NoError(t, err)
			require.True(t, res.OK)

			assert.Equal(t, tt.reembeds, f.embedder.embeddedTexts()-before)
			f.assertConsistent(t)

			hits, err := f.svc.Search(context.Background(), "keep two", 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "keep two", hits[0].Record.Text)
		})
	}
}

func TestIndexService_Search(t *testing.T) {
	f := newIndexFixture(t)
	f.embedder.overrides["north"] = unit(testDim, 0)
	f.embedder.overrides["east"] = unit(testDim, 1)
	f.embedder.overrides["north-ish"] = []float32{0.9, 0.1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	f.insert(t, "a.pdf", "east", "north")

	hits, err := f.svc.Search(context.Background(), "north-ish", 2)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "north", hits[0].Record.Text)
	assert.Equal(t, 1, hits[0].Slot)
	assert.Equal(t, "east", hits[1].Record.Text)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
}

func TestIndexService_SearchEmptyIndex(t *testing.T) {
	f := newIndexFixture(t)

	hits, err := f.svc.Search(context.Background(), "anything", 4)

	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 0, f.embedder.calls)
}

func TestIndexService_SearchWithoutEmbedder(t *testing.T) {
	svc := NewIndexService(filepath.Join(t.TempDir(), "index"), memory.NewIndexRepository(),
		flatindex.NewFactory(domain.CompressionNone), nil)

	_, err := svc.Search(context.Background(), "q", 1)

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestIndexService_SearchEmbeddingFailure(t *testing.T) {
	f := newIndexFixture(t)
	f.insert(t, "a.pdf", "x")
	f.embedder.setErr(errors.New("offline"))

	_, err := f.svc.Search(context.Background(), "x", 1)

	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
}

func TestIndexService_JournalAndHistory(t *testing.T) {
	journal := memory.NewJournal()
	f := newIndexFixture(t, WithJournal(journal))
	f.insert(t, "a.pdf", "one", "two")
	_, err := f.svc.RemovePage(context.Background(), "a.pdf", 1)
	require.NoError(t, err)
	_, err = f.svc.RemovePage(context.Background(), "a.pdf", 9)
	require.NoError(t, err)

	history, err := f.svc.History(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, OpRemovePage, history[0].Operation)
	assert.Equal(t, 1, history[0].Affected)
	assert.Equal(t, 1, history[0].VectorCount)
	assert.Equal(t, OpInsert, history[1].Operation)
	assert.Equal(t, "a.pdf", history[1].Subject)
	assert.NotEqual(t, history[0].Generation, history[1].Generation)
}

func TestIndexService_JournalFailureIsNotFatal(t *testing.T) {
	journal := &mockJournal{err: errors.New("journal locked")}
	f := newIndexFixture(t, WithJournal(journal))

	res, err := f.svc.InsertDocument(context.Background(), "a.pdf", pages("a.pdf", "x"), driving.InsertOptions{})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, f.stats(t).VectorCount)
}

func TestIndexService_HistoryWithoutJournal(t *testing.T) {
	f := newIndexFixture(t)

	history, err := f.svc.History(context.Background(), 5)

	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestIndexService_ServicesShareState(t *testing.T) {
	f := newIndexFixture(t)
	other := NewIndexService(f.path, f.repo, flatindex.NewFactory(domain.CompressionNone), f.embedder)

	f.insert(t, "a.pdf", "one")
	res, err := other.InsertDocument(context.Background(), "b.pdf", pages("b.pdf", "two"), driving.InsertOptions{})
	require.NoError(t, err)
	require.True(t, res.OK)

	assert.Equal(t, 2, res.VectorCount)
	f.svc.Reset()
	assert.Equal(t, 2, f.stats(t).TotalDocuments)
}

func TestIndexService_ConcurrentMutations(t *testing.T) {
	f := newIndexFixture(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc := NewIndexService(f.path, f.repo, flatindex.NewFactory(domain.CompressionNone), f.embedder)
			source := fmt.Sprintf("doc-%d.pdf", i)
			res, err := svc.InsertDocument(ctx, source, pages(source, "first", "second"), driving.InsertOptions{})
			assert.NoError(t, err)
			assert.True(t, res.OK)
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			st, err := f.svc.State(ctx)
			if !assert.NoError(t, err) {
				return
			}
			assert.Empty(t, st.Violations())
		}
	}()

	wg.Wait()
	<-done

	f.svc.Reset()
	stats := f.stats(t)
	assert.Equal(t, writers, stats.TotalDocuments)
	assert.Equal(t, writers*2, stats.VectorCount)
	f.assertConsistent(t)
}

func unit(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docagent/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docagent/internal/adapters/driving/cli"
	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

func configure(t *testing.T, values map[string]string) string {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	for k, v := range values {
		require.NoError(t, store.Set(k, v))
	}
	return dir
}

func writeDoc(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestBootstrap_Ephemeral(t *testing.T) {
	dir := configure(t, map[string]string{"embedding.provider": "hashing"})

	svcs, err := bootstrap(cli.Options{ConfigDir: dir, Ephemeral: true})
	require.NoError(t, err)
	require.NoError(t, svcs.Unavailable)
	require.NotNil(t, svcs.Index)
	require.NotNil(t, svcs.Ingest)
	require.NotNil(t, svcs.Answer)
	require.NotNil(t, svcs.Settings)
	require.NotNil(t, svcs.Validator)
	defer func() { assert.NoError(t, svcs.Close()) }()

	ctx := context.Background()
	doc := writeDoc(t, "leave.txt", "Employees accrue twenty days of annual leave.")
	res, err := svcs.Ingest.IngestFile(ctx, doc, driving.IngestOptions{})
	require.NoError(t, err)
	assert.True(t, res.OK)

	stats, err := svcs.Index.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, domain.DefaultDimension, stats.Dimension)

	hits, err := svcs.Index.Search(ctx, "annual leave", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Record.Metadata.PageNumber)

	_, err = os.Stat(filepath.Join(dir, "journal.db"))
	assert.True(t, os.IsNotExist(err), "ephemeral mode must not open the journal")
}

func TestBootstrap_PersistsIndexAndJournal(t *testing.T) {
	dir := configure(t, map[string]string{"embedding.provider": "hashing"})
	indexDir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()
	doc := writeDoc(t, "policy.md", "# Policy\n\nRemote work is allowed two days a week.")

	svcs, err := bootstrap(cli.Options{ConfigDir: dir, IndexPath: indexDir})
	require.NoError(t, err)
	res, err := svcs.Ingest.IngestFile(ctx, doc, driving.IngestOptions{})
	require.NoError(t, err)
	require.True(t, res.OK)
	require.NoError(t, svcs.Close())

	reopened, err := bootstrap(cli.Options{ConfigDir: dir, IndexPath: indexDir})
	require.NoError(t, err)
	defer func() { assert.NoError(t, reopened.Close()) }()

	listing, err := reopened.Index.EnumerateDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, listing, 1)

	history, err := reopened.Index.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Affected)
}

func TestBootstrap_ProvidersUnavailable(t *testing.T) {
	dir := configure(t, map[string]string{"embedding.provider": "openai"})

	svcs, err := bootstrap(cli.Options{ConfigDir: dir, Ephemeral: true})

	require.NoError(t, err)
	assert.ErrorIs(t, svcs.Unavailable, domain.ErrEmbeddingUnavailable)
	assert.NotNil(t, svcs.Settings)
	assert.Nil(t, svcs.Index)
	assert.Nil(t, svcs.Close)
}

func TestBootstrap_IndexPathDefaultsUnderConfigDir(t *testing.T) {
	dir := configure(t, map[string]string{"embedding.provider": "hashing"})

	svcs, err := bootstrap(cli.Options{ConfigDir: dir, Ephemeral: true})
	require.NoError(t, err)
	defer svcs.Close()

	settings, err := svcs.Settings.Get()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "index"), settings.Index.Path)
}

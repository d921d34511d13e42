package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// setupTestStore creates a temporary SQLite journal for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func entry(op string, affected, vectors int) domain.JournalEntry {
	return domain.JournalEntry{
		Operation:   op,
		Subject:     "source \"/docs/a.pdf\"",
		Affected:    affected,
		VectorCount: vectors,
		Generation:  "gen-" + op,
		CommittedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	dbPath := filepath.Join(tempDir, "journal.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "nested", "path")

	store, err := NewStore(nestedDir)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, nestedDir)
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	var tableExists int
	err := store.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='mutations'",
	).Scan(&tableExists)
	require.NoError(t, err)
	assert.Equal(t, 1, tableExists)
}

func TestNewStore_ReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, entry("insert_document", 3, 3)))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "insert_document", entries[0].Operation)
}

func TestStore_Close(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

// ==================== Mutation Journal Tests ====================

func TestStore_AppendAndRecent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, entry("insert_document", 3, 3)))
	require.NoError(t, store.Append(ctx, entry("remove_page", 1, 2)))
	require.NoError(t, store.Append(ctx, entry("remove_all", 2, 0)))

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "remove_all", entries[0].Operation)
	assert.Equal(t, 0, entries[0].VectorCount)
	assert.Equal(t, "remove_page", entries[1].Operation)
	assert.Equal(t, 1, entries[1].Affected)
	assert.Equal(t, "gen-remove_page", entries[1].Generation)
	assert.Equal(t, `source "/docs/a.pdf"`, entries[1].Subject)
	assert.True(t, entries[1].CommittedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.Greater(t, entries[0].ID, entries[1].ID)
}

func TestStore_Recent_NoLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, entry(fmt.Sprintf("op%d", i), i, i)))
	}

	entries, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestStore_Recent_Empty(t *testing.T) {
	store := setupTestStore(t)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Append_DefaultsTimestamp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := entry("remove_all", 0, 0)
	e.CommittedAt = time.Time{}
	require.NoError(t, store.Append(ctx, e))

	entries, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.WithinDuration(t, time.Now(), entries[0].CommittedAt, time.Minute)
}

func TestStore_Append_Closed(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Append(context.Background(), entry("insert_document", 1, 1))
	assert.Error(t, err)
}

func TestStore_ConcurrentAppend(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, entry(fmt.Sprintf("op%d", i), 1, i)))
		}()
	}
	wg.Wait()

	entries, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}

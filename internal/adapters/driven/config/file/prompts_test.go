package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docagent/internal/core/ports/driven"
)

// promptDir returns a temp dir pre-filled with files, and a store on it.
func promptDir(t *testing.T, files map[string]string) (string, *PromptStore) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	return dir, store
}

func mustLoad(t *testing.T, s *PromptStore, name string) string {
	t.Helper()
	text, err := s.Load(name)
	require.NoError(t, err)
	return text
}

func TestNewPromptStore_Dir(t *testing.T) {
	dir, store := promptDir(t, nil)
	assert.Equal(t, dir, store.Dir())

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	store, err = NewPromptStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docagent", "prompts"), store.Dir())
}

func TestPromptStore_SeedsDefaultsOnFirstLoad(t *testing.T) {
	dir, store := promptDir(t, nil)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no I/O before Load")

	mustLoad(t, store, driven.PromptAnswer)

	for _, name := range []string{"answer.txt", "answer_system.txt", "README.md"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestPromptStore_BuiltinAnswerPrompt(t *testing.T) {
	_, store := promptDir(t, nil)

	prompt := mustLoad(t, store, driven.PromptAnswer)

	assert.True(t, strings.HasPrefix(prompt, "Use the following pieces of context"))
	assert.True(t, strings.HasSuffix(prompt, "Helpful Answer:"))
	assert.Equal(t, 2, strings.Count(prompt, "%s"))
}

func TestPromptStore_UserFiles(t *testing.T) {
	dir, store := promptDir(t, map[string]string{
		"answer.txt":        "Context:\n%s\nQ: %s\nA:",
		"answer_system.txt": "\n\n  be brief  \n\n",
	})

	assert.Equal(t, "Context:\n%s\nQ: %s\nA:", mustLoad(t, store, driven.PromptAnswer))
	assert.Equal(t, "be brief", mustLoad(t, store, driven.PromptAnswerSystem))

	raw, err := os.ReadFile(filepath.Join(dir, "answer_system.txt"))
	require.NoError(t, err)
	assert.Equal(t, "\n\n  be brief  \n\n", string(raw), "seeding must not overwrite")
}

func TestPromptStore_DeletedFileFallsBackToBuiltin(t *testing.T) {
	dir, store := promptDir(t, nil)
	mustLoad(t, store, driven.PromptAnswerSystem)

	require.NoError(t, os.Remove(filepath.Join(dir, "answer_system.txt")))
	store.Reload()

	assert.Contains(t, mustLoad(t, store, driven.PromptAnswerSystem), "DocAgent")
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	_, store := promptDir(t, nil)

	_, err := store.Load("nonexistent_prompt")

	assert.ErrorContains(t, err, "nonexistent_prompt")
}

func TestPromptStore_CachesUntilReload(t *testing.T) {
	dir, store := promptDir(t, nil)
	first := mustLoad(t, store, driven.PromptAnswer)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "answer.txt"), []byte("edited %s %s"), 0o600))
	assert.Equal(t, first, mustLoad(t, store, driven.PromptAnswer))

	store.Reload()
	assert.Equal(t, "edited %s %s", mustLoad(t, store, driven.PromptAnswer))
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	_, store := promptDir(t, nil)

	got := make([]string, 32)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := store.Load(driven.PromptAnswer)
			assert.NoError(t, err)
			got[i] = text
		}()
	}
	wg.Wait()

	for _, text := range got {
		assert.Equal(t, got[0], text)
	}
}

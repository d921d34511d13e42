package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/docagent/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//nolint:lll // prompt text
var builtinPrompts = map[string]string{
	driven.PromptAnswer: `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

%s

Question: %s
Helpful Answer:`,

	driven.PromptAnswerSystem: `You are DocAgent. You answer questions about the user's indexed documents using only the page excerpts supplied with each question. If the excerpts do not contain the answer, say so. Keep answers short.`,
}

const promptReadme = "# DocAgent prompts\n\n" +
	"Templates sent to the language model by `docagent ask` and `docagent chat`.\n\n" +
	"- `answer.txt`: the user turn. It needs exactly two `%s` verbs, the\n" +
	"  retrieved page text first and the question second. Write a literal\n" +
	"  percent sign as `%%`. A template with any other `%` is ignored in\n" +
	"  favour of the built-in one.\n" +
	"- `answer_system.txt`: the system turn sent before it. Leave it empty to\n" +
	"  send the user turn alone.\n\n" +
	"Edits apply to the next command. Delete a file to restore its default.\n"

// PromptStore reads prompt templates from <dir>/<name>.txt. The directory
// and default files are created on first Load, never overwriting a user
// edit. Missing or unreadable files fall back to the built-in text.
type PromptStore struct {
	dir string

	seed    sync.Once
	seedErr error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore returns a store rooted at dir, or ~/.docagent/prompts
// when dir is empty. It does no I/O.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string { return s.dir }

// Load returns the named template, trimmed.
func (s *PromptStore) Load(name string) (string, error) {
	s.seed.Do(func() { s.seedErr = s.writeDefaults() })

	builtin, known := builtinPrompts[name]
	if s.seedErr != nil {
		if known {
			return builtin, nil
		}
		return "", fmt.Errorf("prompt %q: %w", name, s.seedErr)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(s.file(name))
	if err != nil {
		if known {
			return builtin, nil
		}
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}
	text := strings.TrimSpace(string(data))

	s.mu.Lock()
	defer s.mu.Unlock()
	if first, ok := s.cache[name]; ok {
		return first, nil
	}
	s.cache[name] = text
	return text, nil
}

// Reload drops the cache so the next Load rereads the files.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) file(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) writeDefaults() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	for name, text := range builtinPrompts {
		if err := writeIfMissing(s.file(name), text); err != nil {
			return fmt.Errorf("write default prompt %q: %w", name, err)
		}
	}
	return writeIfMissing(filepath.Join(s.dir, "README.md"), promptReadme)
}

func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

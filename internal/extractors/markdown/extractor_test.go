package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Metadata(t *testing.T) {
	e := New()
	assert.Equal(t, "markdown", e.Name())
	assert.Equal(t, []string{".md", ".markdown"}, e.SupportedExtensions())
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"heading", "# Title\n\nBody", "Title\n\nBody"},
		{"emphasis", "some **bold** and *italic* and ~~gone~~", "some bold and italic and gone"},
		{"link", "see [the docs](https://example.com)", "see the docs"},
		{"image alt kept", "![diagram](d.png)", "diagram"},
		{"inline code", "run `make test`", "run make test"},
		{"code fence keeps body", "```go\nfmt.Println()\n```", "fmt.Println()"},
		{"lists", "- one\n* two\n1. three", "one\ntwo\nthree"},
		{"blockquote", "> quoted", "quoted"},
		{"rule", "above\n\n---\n\nbelow", "above\n\nbelow"},
		{"snake case kept", "use max_retries here", "use max_retries here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Strip(tt.input))
		})
	}
}

func TestExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "README.md")
	require.NoError(t, os.WriteFile(path, []byte("# Guide\n\nInstall with **care**.\n"), 0600))

	pages, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "Guide\n\nInstall with care.", pages[0].Text)
}

package docx

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

const documentBody = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Quarterly </w:t></w:r><w:r><w:t>report</w:t></w:r></w:p>
    <w:p><w:r><w:t>Revenue grew.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func writeDocx(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractor_Metadata(t *testing.T) {
	e := New()
	assert.Equal(t, "docx", e.Name())
	assert.Equal(t, []string{".docx"}, e.SupportedExtensions())
}

func TestExtract(t *testing.T) {
	path := writeDocx(t, map[string]string{"word/document.xml": documentBody})

	pages, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []domain.Page{{Number: 1, Text: "Quarterly report\nRevenue grew."}}, pages)
}

func TestExtract_MissingDocumentXML(t *testing.T) {
	path := writeDocx(t, map[string]string{"docProps/core.xml": "<x/>"})

	_, err := New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtract_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0600))

	_, err := New().Extract(context.Background(), path)
	assert.Error(t, err)
}

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotedesk/internal/domain"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quotes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_EmptyPathUsesBuiltIn(t *testing.T) {
	catalog, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, len(domain.DefaultQuotes()), catalog.Len())
}

func TestLoadFile(t *testing.T) {
	path := writeCatalog(t, `
quotes:
  - author: Linus Torvalds
    text: "  Talk is cheap. Show me the code. "
  - author: ""
    text: Anonymous wisdom
`)

	catalog, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, catalog.Len())

	first, err := catalog.At(0)
	require.NoError(t, err)
	assert.Equal(t, domain.Quote{Author: "Linus Torvalds", Text: "Talk is cheap. Show me the code."}, first)

	second, err := catalog.At(1)
	require.NoError(t, err)
	assert.Empty(t, second.Author)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		isValid bool
	}{
		{name: "no quotes key", content: "other: 1\n", isValid: true},
		{name: "empty list", content: "quotes: []\n", isValid: true},
		{name: "blank text", content: "quotes:\n  - author: x\n    text: \"  \"\n", isValid: true},
		{name: "malformed yaml", content: "quotes: [\n", isValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeCatalog(t, tt.content))
			require.Error(t, err)
			assert.Equal(t, tt.isValid, domain.IsValidation(err))
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading catalog")
}

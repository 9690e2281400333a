package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codex7/codex7/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Run_ProducesDocumentsAndSnippets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/intro.md")
	writeFile(t, root, "docs/guide.md")

	p := ingest.NewParser()
	result, err := p.Run(root, "lib-1", "", ingest.Overrides{})
	require.NoError(t, err)

	assert.Len(t, result.Documents, 2)
	assert.NotEmpty(t, result.Snippets)
	for _, d := range result.Documents {
		assert.True(t, d.Path[0] == '/')
	}
}

func TestParser_Run_ZeroSnippetsIsFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

	p := ingest.NewParser()
	_, err := p.Run(root, "lib-1", "", ingest.Overrides{})
	require.Error(t, err)
}

func TestParser_Run_OverridesWinOverConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/intro.md")
	require.NoError(t, os.WriteFile(filepath.Join(root, "codex7.json"), []byte(`{"project_title":"FromConfig"}`), 0o644))

	p := ingest.NewParser()
	result, err := p.Run(root, "lib-1", "", ingest.Overrides{Title: "FromOverride"})
	require.NoError(t, err)
	assert.Equal(t, "FromOverride", result.Library.Title)
}

package ingest_test

import (
	"strings"
	"testing"

	"github.com/codex7/codex7/internal/ingest"
	"github.com/codex7/codex7/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_HeaderBasedSections(t *testing.T) {
	content := "## Routing\n\nContent.\n\n## Data Fetching\n\nMore."
	c := ingest.NewSnippetChunker()
	snippets := c.Chunk("lib-1", "", "/docs/routing.md", model.SourceTypeDocs, content)

	require.Len(t, snippets, 2)
	assert.Equal(t, "Routing", snippets[0].Title)
	assert.Equal(t, "Data Fetching", snippets[1].Title)
	for _, s := range snippets {
		assert.Equal(t, 0.5, s.QualityScore)
	}
}

func TestChunk_OversizeSectionSplitsWithContinuedTitles(t *testing.T) {
	body := strings.Repeat("a", 10000)
	code := "```go\nfmt.Println(\"x\")\n```\n\n```go\nfmt.Println(\"y\")\n```\n"
	content := "## T\n\n" + body + "\n\n" + code
	c := ingest.NewSnippetChunker()
	snippets := c.Chunk("lib-1", "", "/docs/big.md", model.SourceTypeDocs, content)

	require.GreaterOrEqual(t, len(snippets), 2)
	assert.Equal(t, "T", snippets[0].Title)
	assert.Equal(t, "T (continued 1)", snippets[1].Title)
	for _, s := range snippets {
		assert.LessOrEqual(t, len(s.Content), 3500)
	}
}

func TestChunk_DropsShortSections(t *testing.T) {
	content := "## Tiny\n\nshort\n\n## Routing\n\n" + strings.Repeat("word ", 20)
	c := ingest.NewSnippetChunker()
	snippets := c.Chunk("lib-1", "", "/docs/x.md", model.SourceTypeDocs, content)
	require.Len(t, snippets, 1)
	assert.Equal(t, "Routing", snippets[0].Title)
}

func TestChunk_FallbackWhenNoHeaders(t *testing.T) {
	content := strings.Repeat("plain text body. ", 20)
	c := ingest.NewSnippetChunker()
	snippets := c.Chunk("lib-1", "", "/docs/plain.md", model.SourceTypeDocs, content)
	require.Len(t, snippets, 1)
	assert.Equal(t, "plain", snippets[0].Title)
}

func TestChunk_IgnoresH1AndH4(t *testing.T) {
	content := "# Title\n\nintro\n\n#### Deep\n\nignored as a boundary\n\n## Real\n\n" + strings.Repeat("word ", 20)
	c := ingest.NewSnippetChunker()
	snippets := c.Chunk("lib-1", "", "/docs/x.md", model.SourceTypeDocs, content)
	require.Len(t, snippets, 1)
	assert.Equal(t, "Real", snippets[0].Title)
}

func TestChunk_ExtractsCodeBlocksWithLanguage(t *testing.T) {
	content := "## API\n\nDescribe what f does and when callers should use it.\n\n```go\nfunc f() {}\n```\n"
	c := ingest.NewSnippetChunker()
	snippets := c.Chunk("lib-1", "", "/docs/api.md", model.SourceTypeAPI, content)
	require.Len(t, snippets, 1)
	require.Len(t, snippets[0].CodeBlocks, 1)
	assert.Equal(t, "go", snippets[0].CodeBlocks[0].Language)
	assert.True(t, snippets[0].HasCode)
	assert.Equal(t, 1, snippets[0].CodeBlockCount)
}

func TestChunk_IDsAreDeterministicWithinLibrary(t *testing.T) {
	content := "## Routing\n\n" + strings.Repeat("x ", 30)
	c := ingest.NewSnippetChunker()
	first := c.Chunk("lib-1", "", "/docs/a.md", model.SourceTypeDocs, content)
	second := c.Chunk("lib-1", "", "/docs/a.md", model.SourceTypeDocs, content)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

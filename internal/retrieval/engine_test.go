package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex7/codex7/internal/embed"
	"github.com/codex7/codex7/internal/indexer"
	"github.com/codex7/codex7/internal/model"
	"github.com/codex7/codex7/internal/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, model.EmbeddingDim)
		v[i%model.EmbeddingDim] = 1
		out[i] = v
	}
	return out, nil
}
func (fakeEmbedder) Dimensions() int                    { return model.EmbeddingDim }
func (fakeEmbedder) ModelName() string                  { return "fake" }
func (fakeEmbedder) Available(ctx context.Context) bool { return true }
func (fakeEmbedder) Close() error                        { return nil }

var _ embed.Client = fakeEmbedder{}

// seedLibrary indexes a two-section project under /acme/widgets and
// returns the engine plus the library id to query against.
func seedLibrary(t *testing.T, embedder embed.Client) (*Engine, store.RelationalStore, string) {
	t.Helper()
	rel, err := store.Open("", store.MigrationAuto)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rel.Close() })

	vec := store.NewHNSWVectorStore(model.EmbeddingDim)
	t.Cleanup(func() { _ = vec.Close() })

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "guide.md"), []byte(
		"## Routing\n\nHow routes work, explained in enough words to clear the minimum section length.\n\n"+
			"```go\nfunc Route() {}\n```\n\n## Data Fetching\n\nFetching data, also explained at adequate length for chunking.\n\n```go\nfunc Fetch() {}\n```\n"),
		0o644))

	coord := &indexer.Coordinator{
		Relational: rel,
		Vector:     vec,
		Embedder:   embedder,
		Locks:      store.NewLibraryLocks(t.TempDir()),
	}
	job, err := coord.Run(context.Background(), indexer.Request{
		Root: root, Org: "acme", Project: "widgets", VersionString: "v1",
	})
	require.NoError(t, err)
	require.Equal(t, model.JobStatusCompleted, job.Status)

	return &Engine{Relational: rel, Vector: vec, Embedder: embedder}, rel, "/acme/widgets"
}

func TestResolveLibraries_FindsLocalByName(t *testing.T) {
	e, _, _ := seedLibrary(t, fakeEmbedder{})
	results, err := e.ResolveLibraries(context.Background(), "widgets")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "get-local-docs", results[0].ToolHint)
	assert.ElementsMatch(t, []string{"routing", "data-fetching"}, results[0].Topics)
	assert.Equal(t, []string{"v1"}, results[0].Versions)
}

func TestGetDocument_ReturnsFullContentWhenUnderBudget(t *testing.T) {
	e, _, libID := seedLibrary(t, fakeEmbedder{})
	doc, err := e.GetDocument(context.Background(), libID, "/docs/guide.md", 5000)
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "Routing")
	assert.NotContains(t, doc.Content, truncationMarker)
}

func TestGetDocument_TruncatesLongContent(t *testing.T) {
	e, rel, libID := seedLibrary(t, fakeEmbedder{})
	long := strings.Repeat("x", 5000)
	require.NoError(t, rel.IndexDocument(context.Background(), &model.Document{
		ID: "doc-long", LibraryID: libID, Path: "/docs/long.md", Content: long, ContentHash: model.ContentHash(long),
	}))
	doc, err := e.GetDocument(context.Background(), libID, "/docs/long.md", 1000)
	require.NoError(t, err)
	assert.Equal(t, long[:4000]+truncationMarker, doc.Content)
}

func TestGetDocument_MissingPathIsNotFound(t *testing.T) {
	e, _, libID := seedLibrary(t, fakeEmbedder{})
	_, err := e.GetDocument(context.Background(), libID, "/docs/missing.md", 5000)
	require.Error(t, err)
}

func TestRetrieveByTopics_FiltersToMatchingSnippets(t *testing.T) {
	e, _, libID := seedLibrary(t, fakeEmbedder{})
	result, err := e.RetrieveByTopics(context.Background(), libID, []string{"routing"}, 5000)
	require.NoError(t, err)
	assert.Contains(t, result.Markdown, "Routing")
	assert.NotContains(t, result.Markdown, "Data Fetching")
}

func TestRetrieveSemantic_RendersWithinTokenBudget(t *testing.T) {
	e, _, libID := seedLibrary(t, fakeEmbedder{})
	result, err := e.RetrieveSemantic(context.Background(), libID, "routing", 5000)
	require.NoError(t, err)
	assert.Greater(t, result.SnippetsUsed, 0)
	assert.LessOrEqual(t, result.TokensUsed, 5000)
}

func TestRetrieveSemantic_NoEmbedderDegradesToFallbackScan(t *testing.T) {
	e, _, libID := seedLibrary(t, fakeEmbedder{})
	e.Embedder = nil
	result, err := e.RetrieveSemantic(context.Background(), libID, "routing", 5000)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SnippetsTotal)
}

func TestRetrieveHybrid_NoEmbedderDegradesToFullText(t *testing.T) {
	e, _, libID := seedLibrary(t, fakeEmbedder{})
	e.Embedder = nil
	result, err := e.RetrieveHybrid(context.Background(), HybridOptions{
		Query: "Routing", LibraryID: libID, Tokens: 5000,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Markdown, "Routing")
}

func TestRetrieveHybrid_MergesVectorAndFullText(t *testing.T) {
	e, _, libID := seedLibrary(t, fakeEmbedder{})
	result, err := e.RetrieveHybrid(context.Background(), HybridOptions{
		Query: "Fetching", LibraryID: libID, Tokens: 5000,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Markdown)
}

func TestSearchDocumentation_ReturnsRankedHitsWithLibraryContext(t *testing.T) {
	e, _, libID := seedLibrary(t, fakeEmbedder{})
	hits, err := e.SearchDocumentation(context.Background(), HybridOptions{
		Query: "Routing", LibraryID: libID, Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, libID, hits[0].Snippet.LibraryID)
}

func TestBlendedScore_QualityCanOutrankSimilarity(t *testing.T) {
	a := scoredSnippet{snippet: model.Snippet{ID: "a", QualityScore: 0.3}, similarity: 0.9}
	b := scoredSnippet{snippet: model.Snippet{ID: "b", QualityScore: 1.0}, similarity: 0.7}
	scored := []scoredSnippet{a, b}
	rankScored(scored)
	assert.Equal(t, "b", scored[0].snippet.ID)
	assert.InDelta(t, 0.79, blendedScore(scored[0]), 0.0001)
	assert.InDelta(t, 0.72, blendedScore(scored[1]), 0.0001)
}

func TestRankScored_TiesBreakByUpdatedMsThenID(t *testing.T) {
	a := scoredSnippet{snippet: model.Snippet{ID: "z", QualityScore: 0.5, UpdatedMs: 100}}
	b := scoredSnippet{snippet: model.Snippet{ID: "a", QualityScore: 0.5, UpdatedMs: 100}}
	scored := []scoredSnippet{a, b}
	rankScored(scored)
	assert.Equal(t, "a", scored[0].snippet.ID)
}

func TestRender_StopsAtStrictPrefixWhenOverBudget(t *testing.T) {
	long := make([]byte, 2400)
	for i := range long {
		long[i] = 'x'
	}
	scored := []scoredSnippet{
		{snippet: model.Snippet{ID: "1", Title: "One", CodeBlocks: []model.CodeBlock{{Language: "text", Code: string(long)}}}},
		{snippet: model.Snippet{ID: "2", Title: "Two", CodeBlocks: []model.CodeBlock{{Language: "text", Code: string(long)}}}},
	}
	result := render(scored, "", 1000)
	assert.Equal(t, 1, result.SnippetsUsed)
	assert.Equal(t, 2, result.SnippetsTotal)
}

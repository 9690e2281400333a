package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex7/codex7/internal/model"
)

func newTestRelationalStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open("", MigrationAuto)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_LibraryCRUD(t *testing.T) {
	s := newTestRelationalStore(t)
	ctx := context.Background()

	lib := &model.Library{
		ID: "lib-1", Identifier: "/acme/widgets", Name: "widgets",
		Org: "acme", Project: "widgets", TrustScore: 10,
		Keywords: []string{"routing"}, CreatedMs: 1, UpdatedMs: 1,
	}
	require.NoError(t, s.CreateLibrary(ctx, lib))

	got, err := s.GetLibrary(ctx, "lib-1")
	require.NoError(t, err)
	assert.Equal(t, "widgets", got.Name)
	assert.Equal(t, []string{"routing"}, got.Keywords)

	byIdentifier, err := s.GetLibraryByIdentifier(ctx, "/acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "lib-1", byIdentifier.ID)

	got.Description = "a widget factory"
	require.NoError(t, s.UpdateLibrary(ctx, got))
	reloaded, err := s.GetLibrary(ctx, "lib-1")
	require.NoError(t, err)
	assert.Equal(t, "a widget factory", reloaded.Description)

	require.NoError(t, s.DeleteLibrary(ctx, "lib-1"))
	_, err = s.GetLibrary(ctx, "lib-1")
	assert.Error(t, err)
}

func TestSQLiteStore_GetLibrary_MissingIsNotFound(t *testing.T) {
	s := newTestRelationalStore(t)
	_, err := s.GetLibrary(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestSQLiteStore_SearchLibraries_MatchesNameOrIdentifier(t *testing.T) {
	s := newTestRelationalStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateLibrary(ctx, &model.Library{
		ID: "lib-1", Identifier: "/acme/widgets", Name: "widgets", Org: "acme", Project: "widgets",
	}))
	require.NoError(t, s.CreateLibrary(ctx, &model.Library{
		ID: "lib-2", Identifier: "/acme/gadgets", Name: "gadgets", Org: "acme", Project: "gadgets",
	}))

	results, err := s.SearchLibraries(ctx, "widg")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "lib-1", results[0].ID)
}

func TestSQLiteStore_VersionCRUD_AndGetLatest(t *testing.T) {
	s := newTestRelationalStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateLibrary(ctx, &model.Library{ID: "lib-1", Identifier: "/acme/widgets", Name: "widgets"}))

	v1 := &model.Version{ID: "v1", LibraryID: "lib-1", VersionString: "1.0.0", IsLatest: false, IndexedMs: 1}
	v2 := &model.Version{ID: "v2", LibraryID: "lib-1", VersionString: "2.0.0", IsLatest: true, IndexedMs: 2}
	require.NoError(t, s.CreateVersion(ctx, v1))
	require.NoError(t, s.CreateVersion(ctx, v2))

	latest, err := s.GetLatestVersion(ctx, "lib-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", latest.ID)

	all, err := s.ListVersions(ctx, "lib-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "v2", all[0].ID, "ordered by indexed_ms desc")

	v1.IsDeprecated = true
	require.NoError(t, s.UpdateVersion(ctx, v1))
	reloaded, err := s.GetVersion(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, reloaded.IsDeprecated)

	require.NoError(t, s.DeleteVersion(ctx, "v1"))
	_, err = s.GetVersion(ctx, "v1")
	assert.Error(t, err)
}

func TestSQLiteStore_DocumentByPath(t *testing.T) {
	s := newTestRelationalStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateLibrary(ctx, &model.Library{ID: "lib-1", Identifier: "/acme/widgets", Name: "widgets"}))

	doc := &model.Document{
		ID: "doc-1", LibraryID: "lib-1", Path: "/docs/guide.md", Title: "Guide",
		Content: "# Guide\n", ContentHash: "abc", Tokens: 2, SourceType: model.SourceTypeMarkdown,
	}
	require.NoError(t, s.IndexDocuments(ctx, []model.Document{*doc}))

	got, err := s.GetDocumentByPath(ctx, "lib-1", "/docs/guide.md")
	require.NoError(t, err)
	assert.Equal(t, "Guide", got.Title)

	_, err = s.GetDocumentByPath(ctx, "lib-1", "/docs/missing.md")
	assert.Error(t, err)

	exists, err := s.DocumentExistsByHash(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLiteStore_SnippetsAndFullTextSearch(t *testing.T) {
	s := newTestRelationalStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateLibrary(ctx, &model.Library{ID: "lib-1", Identifier: "/acme/widgets", Name: "widgets"}))

	snippets := []model.Snippet{
		{ID: "s1", LibraryID: "lib-1", Title: "Routing basics", Content: "how routes are matched",
			QualityScore: 0.9, UpdatedMs: 2},
		{ID: "s2", LibraryID: "lib-1", Title: "Data fetching", Content: "how data loaders run",
			QualityScore: 0.5, UpdatedMs: 1},
	}
	require.NoError(t, s.InsertSnippets(ctx, snippets))

	got, err := s.GetSnippet(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Routing basics", got.Title)

	all, err := s.ListSnippetsByLibrary(ctx, "lib-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	hits, err := s.FullTextSearch(ctx, FullTextOptions{Query: "routes", LibraryID: "lib-1", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "s1", hits[0].Snippet.ID)
}

func TestSQLiteStore_IndexingJobLifecycle(t *testing.T) {
	s := newTestRelationalStore(t)
	ctx := context.Background()

	job := &model.IndexingJob{ID: "job-1", LibraryID: "lib-1", Status: model.JobStatusPending, StartedMs: time.Now().UnixMilli()}
	require.NoError(t, s.CreateIndexingJob(ctx, job))

	job.Status = model.JobStatusCompleted
	require.NoError(t, s.UpdateIndexingJob(ctx, job))

	got, err := s.GetIndexingJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)

	jobs, err := s.ListIndexingJobs(ctx, "lib-1")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestSQLiteStore_DeleteLibrary_CascadesVersionsDocumentsSnippets(t *testing.T) {
	s := newTestRelationalStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateLibrary(ctx, &model.Library{ID: "lib-1", Identifier: "/acme/widgets", Name: "widgets"}))
	require.NoError(t, s.CreateVersion(ctx, &model.Version{ID: "v1", LibraryID: "lib-1", VersionString: "1.0.0"}))
	require.NoError(t, s.InsertSnippets(ctx, []model.Snippet{{ID: "s1", LibraryID: "lib-1", Title: "x"}}))

	require.NoError(t, s.DeleteLibrary(ctx, "lib-1"))

	_, err := s.GetVersion(ctx, "v1")
	assert.Error(t, err)
	_, err = s.GetSnippet(ctx, "s1")
	assert.Error(t, err)
}

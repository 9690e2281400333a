// Package store implements the Storage Layer: a relational store backed
// by SQLite holding every entity, and a vector store backed by an
// in-process HNSW graph holding one point per snippet. Both are exposed
// as narrow capability interfaces so the indexing coordinator and the
// retrieval engine can be tested against in-memory fakes.
package store

import (
	"context"
	"time"

	"github.com/codex7/codex7/internal/model"
)

// CurrentSchemaVersion is the relational schema version this build
// expects. Open brings an older database up to this version
// when MigrationStrategy is "auto".
const CurrentSchemaVersion = 1

// MigrationStrategy controls how Open reconciles an existing
// database against CurrentSchemaVersion.
type MigrationStrategy string

const (
	// MigrationAuto applies pending migrations idempotently on connect.
	MigrationAuto MigrationStrategy = "auto"

	// MigrationManual refuses to connect to a database that records a
	// schema version below the current one, surfacing ConfigInvalid
	// instead.
	MigrationManual MigrationStrategy = "manual"
)

// VectorPayload is the fixed set of fields stored alongside every point
// in the vector store, plus nothing else — unlike the relational
// store's metadata column, the vector payload is not meant for
// forward-compatible free-form fields.
type VectorPayload struct {
	SnippetID      string
	LibraryID      string
	Title          string
	SourceFile     string
	SourceType     model.SourceType
	ContentPreview string
	Topics         []string
	QualityScore   float64
}

// VectorPoint is one unit of upsert_snippet_vectors: an opaque id, its
// embedding, and the payload carried alongside it.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload VectorPayload
}

// VectorFilter narrows a vector_search call. Zero values mean
// "unconstrained" for that field.
type VectorFilter struct {
	LibraryID string
	VersionID string
	Topics    []string
}

// VectorSearchParams is the vector_search contract's input.
type VectorSearchParams struct {
	Embedding []float32
	K         int
	Threshold float64
	Filter    VectorFilter
}

// VectorSearchResult is one vector_search hit, scored by cosine
// similarity in [0,1] for normalized vectors.
type VectorSearchResult struct {
	Point      VectorPoint
	Similarity float64
}

// VectorStore is the capability interface the vector backend exposes.
type VectorStore interface {
	UpsertSnippetVectors(ctx context.Context, points []VectorPoint) error
	DeleteLibraryVectors(ctx context.Context, libraryID string) error
	VectorSearch(ctx context.Context, params VectorSearchParams) ([]VectorSearchResult, error)
	AllIDsForLibrary(libraryID string) []string
	Count() int
	Close() error
}

// FullTextOptions is the full_text_search contract's input.
type FullTextOptions struct {
	Query     string
	LibraryID string
	VersionID string
	CodeOnly  bool
	MinScore  float64
	Limit     int
}

// FullTextResult is one full_text_search hit.
type FullTextResult struct {
	Snippet model.Snippet
	Score   float64
}

// HybridOptions is the hybrid_search contract's input: a query plus an
// optional pre-computed embedding. When Embedding is nil, hybrid_search
// degrades to full_text_search alone.
type HybridOptions struct {
	Query     string
	Embedding []float32
	VersionID string
	LibraryID string
	Topics    []string
	CodeOnly  bool
	Limit     int
}

// LibrarySummary and VersionSummary are the hydrated context
// vector_search attaches to each hit, read from the relational store.
type LibrarySummary struct {
	ID         string
	Identifier string
	Name       string
}

type VersionSummary struct {
	ID      string
	Version string
}

// RelationalStore is the capability interface the relational backend
// exposes: every entity's CRUD plus the search and job operations.
type RelationalStore interface {
	// Libraries
	CreateLibrary(ctx context.Context, lib *model.Library) error
	GetLibrary(ctx context.Context, id string) (*model.Library, error)
	GetLibraryByIdentifier(ctx context.Context, identifier string) (*model.Library, error)
	ListLibraries(ctx context.Context, limit, offset int) ([]model.Library, error)
	UpdateLibrary(ctx context.Context, lib *model.Library) error
	DeleteLibrary(ctx context.Context, id string) error
	SearchLibraries(ctx context.Context, query string) ([]model.Library, error)

	// Versions
	CreateVersion(ctx context.Context, v *model.Version) error
	GetVersion(ctx context.Context, id string) (*model.Version, error)
	ListVersions(ctx context.Context, libraryID string) ([]model.Version, error)
	GetLatestVersion(ctx context.Context, libraryID string) (*model.Version, error)
	UpdateVersion(ctx context.Context, v *model.Version) error
	DeleteVersion(ctx context.Context, id string) error

	// Documents
	IndexDocument(ctx context.Context, doc *model.Document) error
	IndexDocuments(ctx context.Context, docs []model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetDocumentByPath(ctx context.Context, libraryID, path string) (*model.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteDocumentsByVersion(ctx context.Context, versionID string) error
	DocumentExistsByHash(ctx context.Context, contentHash string) (bool, error)

	// Snippets
	InsertSnippets(ctx context.Context, snippets []model.Snippet) error
	GetSnippet(ctx context.Context, id string) (*model.Snippet, error)
	ListSnippetsByLibrary(ctx context.Context, libraryID string) ([]model.Snippet, error)
	FullTextSearch(ctx context.Context, opts FullTextOptions) ([]FullTextResult, error)

	// Indexing jobs
	CreateIndexingJob(ctx context.Context, job *model.IndexingJob) error
	GetIndexingJob(ctx context.Context, id string) (*model.IndexingJob, error)
	UpdateIndexingJob(ctx context.Context, job *model.IndexingJob) error
	ListIndexingJobs(ctx context.Context, libraryID string) ([]model.IndexingJob, error)

	Close() error
}

// nowMs is a seam the store package uses instead of calling time.Now
// directly everywhere, so callers in tests can exercise deterministic
// ordering by inserting rows with explicit timestamps.
func nowMs() int64 {
	return model.NowMs(time.Now())
}

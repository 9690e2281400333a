// Package model defines the domain entities shared by the ingestion
// pipeline, the storage layer, and the retrieval engine: Library, Version,
// Document, Snippet, and IndexingJob. The domain graph is a strict tree
// (library → version → document / snippet); entities carry a single
// foreign key toward their owner and never a back-pointer with ownership
// semantics, per the consolidated single-Document-shape decision recorded
// in DESIGN.md.
package model

import "time"

// EmbeddingDim is the fixed dimensionality every stored snippet vector
// must have: D=1536.
const EmbeddingDim = 1536

// Library is a uniquely identified software project whose documentation
// has been ingested.
type Library struct {
	ID             string
	Identifier     string // "/org/project"
	Name           string
	Org            string
	Project        string
	Description    string
	RepositoryURL  string
	HomepageURL    string
	TrustScore     int // [1,10], default 5; locally indexed libraries default 10.
	Keywords       []string
	Topics         []string // set-union of its snippets' Topics, first-occurrence order.
	Rules          []string
	SourcePath     string
	Metadata       map[string]string
	CreatedMs      int64
	UpdatedMs      int64
}

// Version is a specific release of a Library; at most one Version per
// Library should have IsLatest set (enforced by retrieval logic, not by
// schema).
type Version struct {
	ID                string
	LibraryID         string
	VersionString     string // raw, as supplied
	VersionNormalized string // MAJOR.MINOR.PATCH
	IsLatest          bool
	IsDeprecated      bool
	DocumentCount     int
	GitCommitSHA      string
	ReleaseDateMs     int64
	IndexedMs         int64
	UpdatedMs         int64
}

// SourceType classifies where a Document or Snippet came from.
type SourceType string

const (
	SourceTypeReadme   SourceType = "readme"
	SourceTypeAPI      SourceType = "api"
	SourceTypeDocs     SourceType = "docs"
	SourceTypeExamples SourceType = "examples"
	SourceTypeContent  SourceType = "content"
	SourceTypeGithub   SourceType = "github"
	SourceTypeWeb      SourceType = "web"
	SourceTypePDF      SourceType = "pdf"
	SourceTypeMarkdown SourceType = "markdown"
)

// Document is a whole source file persisted verbatim, immutable within a
// version and regenerated wholesale on re-index. It carries both a
// LibraryID and an optional VersionID, consolidating what upstream
// treated as two divergent shapes (see DESIGN.md Open Question notes).
type Document struct {
	ID          string
	LibraryID   string
	VersionID   string // optional; empty when the library has no version concept yet.
	Path        string // leading "/"
	Title       string
	Content     string
	ContentHash string // SHA-256 hex
	Tokens      int    // ceil(len(Content)/4)
	SourceType  SourceType
	SourcePath  string
	SourceURL   string
	Language    string // default "en"
	IndexedMs   int64
}

// CodeBlock is one fenced code block extracted from a snippet's section,
// in document order.
type CodeBlock struct {
	Language string
	Code     string
}

// Snippet is a section-sized chunk of a Document carrying an embedding
// and a quality score — the unit of semantic retrieval. Its ID is
// deterministic within a library: re-indexing the same ordered input
// yields the same ids, and ids incorporate LibraryID so identical content
// in two libraries never collides.
type Snippet struct {
	ID             string
	LibraryID      string
	VersionID      string
	Title          string
	SourceFile     string
	SourceType     SourceType
	Description    string // <= 500 chars
	Content        string // markdown section
	CodeBlocks     []CodeBlock
	Topics         []string
	HasCode        bool
	CodeBlockCount int
	Tokens         int
	QualityScore   float64 // [0,1]
	Embedding      []float32
	UpdatedMs      int64
}

// JobStatus is the IndexingJob state machine: pending -> running ->
// {completed, failed}.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IndexingJob tracks one indexing run. It is created at job start and
// becomes terminal on Completed or Failed; no separate job registry
// exists outside the relational store.
type IndexingJob struct {
	ID                 string
	LibraryID          string
	VersionID          string
	Status             JobStatus
	TotalDocuments     int
	ProcessedDocuments int
	FailedDocuments    int
	Error              string
	StartedMs          int64
	CompletedMs        int64
	Metadata           map[string]string
}

// NowMs is the epoch-millisecond helper used uniformly at write time so
// every timestamp field in the data model has one source of truth.
func NowMs(t time.Time) int64 {
	return t.UnixMilli()
}

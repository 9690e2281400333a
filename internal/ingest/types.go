// Package ingest implements the Document Parser & Chunker: it walks a
// project tree applying include/exclude rules, loads markdown-like
// files, splits each into snippets bounded by an approximate token
// budget, extracts fenced code blocks, computes a quality score, and
// emits both full-document records and snippet records.
package ingest

import "github.com/codex7/codex7/internal/model"

// Chunking constants, per the parser's size budget.
const (
	SectionMaxTokens      = 1000
	ChunkTargetChars      = 3000
	DescriptionMaxChars   = 500
	MinSectionChars       = 50
	FallbackContentChars  = 4000
	FallbackCodeBlocksMax = 10
)

// ProjectConfig is the optional codex7.json / context7.json ingestion
// config accompanying a project root.
type ProjectConfig struct {
	ProjectTitle     string   `json:"project_title"`
	Description      string   `json:"description"`
	Folders          []string `json:"folders"`
	ExcludeFolders   []string `json:"exclude_folders"`
	ExcludeFiles     []string `json:"exclude_files"`
	Rules            []string `json:"rules"`
	PreviousVersions []string `json:"previous_versions"`
}

// Overrides are CLI-supplied values that take precedence over whatever
// the project config or parser inference would otherwise produce.
type Overrides struct {
	LibraryID   string
	Title       string
	Description string
	Keywords    []string
}

// FileInput is one file read from disk, ready for chunking.
type FileInput struct {
	Path    string // relative, POSIX-separated
	Content []byte
}

// LibraryDraft is the library-shaped record the parser can infer before
// any storage write happens; the indexing coordinator merges it with
// Overrides and persists the result.
type LibraryDraft struct {
	Title       string
	Description string
	Keywords    []string
	Rules       []string
	SourcePath  string
}

// Result is everything one Run of the parser produces for a single
// project tree.
type Result struct {
	Library   LibraryDraft
	Documents []*model.Document
	Snippets  []*model.Snippet
	Warnings  []string
}

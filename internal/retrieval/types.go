// Package retrieval implements the Retrieval Engine: the component that
// turns a query-time request into a token-budgeted markdown payload by
// combining vector search, full-text search, and the blended-score
// ranking over snippet quality.
package retrieval

import (
	"github.com/codex7/codex7/internal/model"
)

// DefaultTokens is the token budget used when a caller omits one.
const DefaultTokens = 5000

// MinTokens is the smallest token budget the engine accepts; callers
// supplying less are clamped up to it.
const MinTokens = 1000

// truncationMarker is appended to a document body cut short by Mode B's
// tokens*4 character budget.
const truncationMarker = "... [truncated]"

// separator visually divides rendered snippet blocks, matching the
// render template's trailing rule.
const separator = "--------------------------------"

// topicSemanticK is the fixed candidate count Mode D asks vector_search
// for before blending and token-budget trimming.
const topicSemanticK = 30

// fallbackScanLimit bounds the paginated snippet scan used when vector
// search returns zero rows for a library.
const fallbackScanLimit = 30

// LibrarySummary is Mode A's per-library output row.
type LibrarySummary struct {
	ID            string
	Name          string
	Description   string
	TrustScore    int
	RepositoryURL string
	HomepageURL   string
	Versions      []string
	Topics        []string
	ToolHint      string // "get-local-docs" or "get-library-docs"
}

// DocumentResult is Mode B's output.
type DocumentResult struct {
	Title   string
	Content string
	Tokens  int
}

// RenderedResult is the output of every snippet-based mode (C, D, E): a
// markdown payload plus accounting of how many of the candidate
// snippets actually made it into the budget.
type RenderedResult struct {
	Markdown       string
	TokensUsed     int
	SnippetsUsed   int
	SnippetsTotal  int
}

// scoredSnippet pairs a hydrated snippet with the ranking values the
// blended-score ordering needs.
type scoredSnippet struct {
	snippet    model.Snippet
	similarity float64
	blended    bool // true when similarity came from a vector search, false for full-text-only fallbacks.
}

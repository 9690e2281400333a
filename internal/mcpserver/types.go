// Package mcpserver bridges the Retrieval Engine to the Model Context
// Protocol, exposing the five tool-call contracts AI clients use to
// resolve libraries, fetch documents, and run snippet search.
package mcpserver

// ResolveLibraryIDInput is resolve-library-id's argument shape.
type ResolveLibraryIDInput struct {
	LibraryName string `json:"library_name" jsonschema:"the library or project name to resolve"`
}

// LibraryMatch is one entry in resolve-library-id's matches array.
type LibraryMatch struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	TrustScore    int      `json:"trust_score"`
	RepositoryURL string   `json:"repository_url,omitempty"`
	HomepageURL   string   `json:"homepage_url,omitempty"`
	Versions      []string `json:"versions"`
	ToolHint      string   `json:"tool_hint"`
	Source        string   `json:"source"`
}

// ResolveLibraryIDOutput is resolve-library-id's return value.
type ResolveLibraryIDOutput struct {
	Query   string         `json:"query"`
	Matches []LibraryMatch `json:"matches"`
	Total   int            `json:"total"`
}

// GetLibraryDocsInput is get-library-docs' argument shape.
type GetLibraryDocsInput struct {
	Context7CompatibleLibraryID string `json:"context7_compatible_library_id" jsonschema:"the resolved library id"`
	Topic                       string `json:"topic,omitempty" jsonschema:"optional topic to focus retrieval on"`
	Tokens                      int    `json:"tokens,omitempty" jsonschema:"output token budget, minimum 1000, default 5000"`
}

// GetLocalDocsInput is get-local-docs' argument shape.
type GetLocalDocsInput struct {
	LibraryID string   `json:"library_id" jsonschema:"the library id"`
	Path      string   `json:"path,omitempty" jsonschema:"a document path to fetch verbatim"`
	Topics    []string `json:"topics,omitempty" jsonschema:"topics to filter snippet retrieval by"`
	Topic     string   `json:"topic,omitempty" jsonschema:"a free-text topic for semantic retrieval"`
	Tokens    int      `json:"tokens,omitempty" jsonschema:"output token budget, minimum 1000, default 5000"`
}

// MarkdownOutput is the rendered-markdown return shape shared by
// get-library-docs and get-local-docs.
type MarkdownOutput struct {
	Markdown string `json:"markdown"`
}

// GetLibraryVersionsInput is get-library-versions' argument shape.
type GetLibraryVersionsInput struct {
	LibraryID string `json:"library_id" jsonschema:"the library id"`
}

// VersionEntry is one entry in get-library-versions' versions array.
type VersionEntry struct {
	Version              string `json:"version"`
	IndexedAt            int64  `json:"indexed_at"`
	DocumentationChunks  int    `json:"documentation_chunks"`
	IsLatest             bool   `json:"is_latest"`
	IsDeprecated         bool   `json:"is_deprecated"`
}

// GetLibraryVersionsOutput is get-library-versions' return value.
type GetLibraryVersionsOutput struct {
	Library   string         `json:"library"`
	LibraryID string         `json:"library_id"`
	Versions  []VersionEntry `json:"versions"`
	Total     int            `json:"total"`
}

// SearchDocumentationFilters narrows search-documentation.
type SearchDocumentationFilters struct {
	Library    string `json:"library,omitempty"`
	Version    string `json:"version,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}

// SearchDocumentationInput is search-documentation's argument shape.
type SearchDocumentationInput struct {
	Query   string                     `json:"query" jsonschema:"the search query"`
	Filters SearchDocumentationFilters `json:"filters,omitempty" jsonschema:"optional library/version/source_type filters"`
	Limit   int                        `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchResultLibrary is the library context attached to a search hit.
type SearchResultLibrary struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
}

// SearchDocumentationResult is one hit in search-documentation's results
// array.
type SearchDocumentationResult struct {
	Title   string               `json:"title"`
	Content string               `json:"content"`
	Score   float64              `json:"score"`
	Library SearchResultLibrary  `json:"library"`
}

// SearchDocumentationOutput is search-documentation's return value.
type SearchDocumentationOutput struct {
	Query   string                       `json:"query"`
	Results []SearchDocumentationResult  `json:"results"`
	Total   int                          `json:"total"`
	Limit   int                          `json:"limit"`
	Filters SearchDocumentationFilters   `json:"filters"`
}

// ErrorOutput is an {error: "..."} payload shape. No tool handler
// returns it: ValidationFailed is returned as the call's error,
// get-local-docs renders a NotFound document as "# Not Found" markdown,
// and get-library-versions returns an empty payload for an unknown
// library.
type ErrorOutput struct {
	Error string `json:"error"`
}

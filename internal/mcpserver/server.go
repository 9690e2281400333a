package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/codex7/codex7/internal/retrieval"
	"github.com/codex7/codex7/internal/store"
	"github.com/codex7/codex7/pkg/version"
)

// Server is the MCP server bridging AI clients to the retrieval engine.
type Server struct {
	mcp        *mcp.Server
	engine     *retrieval.Engine
	relational store.RelationalStore
	logger     *slog.Logger
}

// NewServer wires a retrieval Engine into a ready-to-run MCP server and
// registers the five tool-call contracts.
func NewServer(engine *retrieval.Engine, rel store.RelationalStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: engine, relational: rel, logger: logger}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "codex7",
		Version: version.Version,
	}, nil)

	s.registerTools()
	return s
}

// MCPServer returns the underlying SDK server, ready for a transport to
// attach to.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves the MCP protocol over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "resolve-library-id",
		Description: "Resolve a library or project name to its codex7 library id, distinguishing locally-indexed libraries from remote ones.",
	}, s.resolveLibraryIDHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get-library-docs",
		Description: "Fetch rendered documentation for a resolved library id, optionally focused on a topic, within a token budget.",
	}, s.getLibraryDocsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get-local-docs",
		Description: "Fetch a single document by path, or topic/topics-filtered snippets, from a locally-indexed library.",
	}, s.getLocalDocsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get-library-versions",
		Description: "List every indexed version of a library with its chunk count and latest/deprecated flags.",
	}, s.getLibraryVersionsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search-documentation",
		Description: "Run hybrid vector-plus-full-text search across indexed documentation, optionally scoped to a library, version, or source type.",
	}, s.searchDocumentationHandler)

	s.logger.Debug("registered MCP tools", slog.Int("count", 5))
}

// resolveLibraryIDHandler implements resolve-library-id (Mode A).
func (s *Server) resolveLibraryIDHandler(ctx context.Context, _ *mcp.CallToolRequest, input ResolveLibraryIDInput) (
	*mcp.CallToolResult, ResolveLibraryIDOutput, error,
) {
	if input.LibraryName == "" {
		return nil, ResolveLibraryIDOutput{}, codex7err.ValidationFailed("library_name is required", nil)
	}

	summaries, err := s.engine.ResolveLibraries(ctx, input.LibraryName)
	if err != nil {
		return nil, ResolveLibraryIDOutput{}, err
	}

	matches := make([]LibraryMatch, len(summaries))
	for i, sum := range summaries {
		source := "local"
		if sum.ToolHint == "get-library-docs" {
			source = "remote"
		}
		matches[i] = LibraryMatch{
			ID:            sum.ID,
			Name:          sum.Name,
			Description:   sum.Description,
			TrustScore:    sum.TrustScore,
			RepositoryURL: sum.RepositoryURL,
			HomepageURL:   sum.HomepageURL,
			Versions:      sum.Versions,
			ToolHint:      sum.ToolHint,
			Source:        source,
		}
	}

	return nil, ResolveLibraryIDOutput{
		Query:   input.LibraryName,
		Matches: matches,
		Total:   len(matches),
	}, nil
}

// getLibraryDocsHandler implements get-library-docs (Mode D when a topic
// is supplied, otherwise Mode C with no topic filter).
func (s *Server) getLibraryDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetLibraryDocsInput) (
	*mcp.CallToolResult, MarkdownOutput, error,
) {
	if input.Context7CompatibleLibraryID == "" {
		return nil, MarkdownOutput{}, codex7err.ValidationFailed("context7_compatible_library_id is required", nil)
	}

	var (
		result *retrieval.RenderedResult
		err    error
	)
	if input.Topic != "" {
		result, err = s.engine.RetrieveSemantic(ctx, input.Context7CompatibleLibraryID, input.Topic, input.Tokens)
	} else {
		result, err = s.engine.RetrieveByTopics(ctx, input.Context7CompatibleLibraryID, nil, input.Tokens)
	}
	if err != nil {
		return nil, MarkdownOutput{}, err
	}

	return textResult(result.Markdown), MarkdownOutput{Markdown: result.Markdown}, nil
}

// getLocalDocsHandler implements Mode B (path supplied) or Modes C/D
// (topics/topic supplied) for a locally-indexed library.
func (s *Server) getLocalDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetLocalDocsInput) (
	*mcp.CallToolResult, MarkdownOutput, error,
) {
	if input.LibraryID == "" {
		return nil, MarkdownOutput{}, codex7err.ValidationFailed("library_id is required", nil)
	}

	if input.Path != "" {
		doc, err := s.engine.GetDocument(ctx, input.LibraryID, input.Path, input.Tokens)
		if err != nil {
			if codex7err.GetKind(err) == codex7err.KindNotFound {
				return nil, MarkdownOutput{Markdown: notFoundMarkdown(err)}, nil
			}
			return nil, MarkdownOutput{}, err
		}
		return textResult(doc.Content), MarkdownOutput{Markdown: doc.Content}, nil
	}

	var (
		result *retrieval.RenderedResult
		err    error
	)
	switch {
	case input.Topic != "":
		result, err = s.engine.RetrieveSemantic(ctx, input.LibraryID, input.Topic, input.Tokens)
	case len(input.Topics) > 0:
		result, err = s.engine.RetrieveByTopics(ctx, input.LibraryID, input.Topics, input.Tokens)
	default:
		result, err = s.engine.RetrieveByTopics(ctx, input.LibraryID, nil, input.Tokens)
	}
	if err != nil {
		return nil, MarkdownOutput{}, err
	}

	return textResult(result.Markdown), MarkdownOutput{Markdown: result.Markdown}, nil
}

// getLibraryVersionsHandler implements get-library-versions.
func (s *Server) getLibraryVersionsHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetLibraryVersionsInput) (
	*mcp.CallToolResult, GetLibraryVersionsOutput, error,
) {
	if input.LibraryID == "" {
		return nil, GetLibraryVersionsOutput{}, codex7err.ValidationFailed("library_id is required", nil)
	}

	lib, err := s.relational.GetLibrary(ctx, input.LibraryID)
	if err != nil {
		if codex7err.GetKind(err) == codex7err.KindNotFound {
			return nil, GetLibraryVersionsOutput{}, nil
		}
		return nil, GetLibraryVersionsOutput{}, err
	}

	versions, err := s.relational.ListVersions(ctx, input.LibraryID)
	if err != nil {
		return nil, GetLibraryVersionsOutput{}, err
	}

	entries := make([]VersionEntry, len(versions))
	for i, v := range versions {
		entries[i] = VersionEntry{
			Version:             v.VersionString,
			IndexedAt:           v.IndexedMs,
			DocumentationChunks: v.DocumentCount,
			IsLatest:            v.IsLatest,
			IsDeprecated:        v.IsDeprecated,
		}
	}

	return nil, GetLibraryVersionsOutput{
		Library:   lib.Name,
		LibraryID: lib.ID,
		Versions:  entries,
		Total:     len(entries),
	}, nil
}

// searchDocumentationHandler implements search-documentation (Mode E).
func (s *Server) searchDocumentationHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocumentationInput) (
	*mcp.CallToolResult, SearchDocumentationOutput, error,
) {
	if input.Query == "" {
		return nil, SearchDocumentationOutput{}, codex7err.ValidationFailed("query is required", nil)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	hits, err := s.engine.SearchDocumentation(ctx, retrieval.HybridOptions{
		Query:     input.Query,
		LibraryID: input.Filters.Library,
		VersionID: input.Filters.Version,
		CodeOnly:  input.Filters.SourceType == "examples",
		Limit:     limit,
	})
	if err != nil {
		return nil, SearchDocumentationOutput{}, err
	}

	results := s.toSearchResults(ctx, hits)

	return nil, SearchDocumentationOutput{
		Query:   input.Query,
		Results: results,
		Total:   len(results),
		Limit:   limit,
		Filters: input.Filters,
	}, nil
}

// toSearchResults hydrates each hit's owning library, caching lookups
// since a library-scoped query resolves to one library for every hit.
func (s *Server) toSearchResults(ctx context.Context, hits []retrieval.Hit) []SearchDocumentationResult {
	cache := make(map[string]SearchResultLibrary)

	results := make([]SearchDocumentationResult, len(hits))
	for i, h := range hits {
		libCtx, ok := cache[h.Snippet.LibraryID]
		if !ok {
			libCtx = s.loadLibraryContext(ctx, h.Snippet.LibraryID)
			cache[h.Snippet.LibraryID] = libCtx
		}
		results[i] = SearchDocumentationResult{
			Title:   h.Snippet.Title,
			Content: h.Snippet.Content,
			Score:   h.Blended,
			Library: libCtx,
		}
	}
	return results
}

func (s *Server) loadLibraryContext(ctx context.Context, libraryID string) SearchResultLibrary {
	lib, err := s.relational.GetLibrary(ctx, libraryID)
	if err != nil {
		return SearchResultLibrary{}
	}
	version := ""
	if latest, err := s.relational.GetLatestVersion(ctx, libraryID); err == nil {
		version = latest.VersionString
	}
	return SearchResultLibrary{Identifier: lib.Identifier, Name: lib.Name, Version: version}
}

// notFoundMarkdown renders a NotFound error as explanatory markdown
// text rather than failing the MCP call, per the error taxonomy's
// "surfaced, not fatal" policy for NotFound.
func notFoundMarkdown(err error) string {
	return "# Not Found\n\n" + err.Error() + "\n"
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

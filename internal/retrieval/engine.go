package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/codex7/codex7/internal/embed"
	"github.com/codex7/codex7/internal/model"
	"github.com/codex7/codex7/internal/store"
)

// RemoteResolver is the optional upstream library-resolution hook Mode A
// consults alongside the local catalog. A nil Resolver on the Engine
// means no remote is configured, per the mode's documented behavior.
type RemoteResolver interface {
	ResolveLibraries(ctx context.Context, name string) ([]LibrarySummary, error)
}

// Engine implements the five retrieval modes over a RelationalStore and
// a VectorStore, blending vector similarity with stored quality scores
// and rendering the result within a caller-supplied token budget.
type Engine struct {
	Relational store.RelationalStore
	Vector     store.VectorStore
	Embedder   embed.Client // nil is valid: semantic/topic/hybrid modes degrade to full-text.
	Resolver   RemoteResolver
}

// ResolveLibraries implements Mode A: library resolution by name. Local
// results always precede remote ones; a remote lookup runs concurrently
// with the local one when a resolver is configured.
func (e *Engine) ResolveLibraries(ctx context.Context, name string) ([]LibrarySummary, error) {
	var local []model.Library
	var remote []LibrarySummary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		libs, err := e.Relational.SearchLibraries(gctx, name)
		if err != nil {
			return err
		}
		local = libs
		return nil
	})
	if e.Resolver != nil {
		g.Go(func() error {
			libs, err := e.Resolver.ResolveLibraries(gctx, name)
			if err != nil {
				// A remote lookup failure never fails the whole resolution;
				// local results still stand on their own.
				return nil
			}
			remote = libs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]LibrarySummary, 0, len(local)+len(remote))
	for _, lib := range local {
		out = append(out, e.summarizeLocal(ctx, lib))
	}
	out = append(out, remote...)
	return out, nil
}

func (e *Engine) summarizeLocal(ctx context.Context, lib model.Library) LibrarySummary {
	var versionStrings []string
	if versions, err := e.Relational.ListVersions(ctx, lib.ID); err == nil {
		for _, v := range versions {
			versionStrings = append(versionStrings, v.VersionString)
		}
	}
	return LibrarySummary{
		ID:            lib.ID,
		Name:          lib.Name,
		Description:   lib.Description,
		TrustScore:    lib.TrustScore,
		RepositoryURL: lib.RepositoryURL,
		HomepageURL:   lib.HomepageURL,
		Versions:      versionStrings,
		Topics:        lib.Topics,
		ToolHint:      "get-local-docs",
	}
}

// GetDocument implements Mode B: document by path. The returned content
// is truncated to tokens*4 characters with a trailing marker when the
// document is longer.
func (e *Engine) GetDocument(ctx context.Context, libraryID, path string, tokens int) (*DocumentResult, error) {
	tokens = clampTokens(tokens)
	doc, err := e.Relational.GetDocumentByPath(ctx, libraryID, path)
	if err != nil {
		return nil, err
	}

	content := doc.Content
	maxChars := tokens * 4
	if len(content) > maxChars {
		content = content[:maxChars] + truncationMarker
	}

	return &DocumentResult{
		Title:   doc.Title,
		Content: content,
		Tokens:  model.EstimateTokens(content),
	}, nil
}

// RetrieveByTopics implements Mode C: topic-filtered retrieval. When the
// embedding client is unavailable, this degrades to a full-text search
// ordered by quality_score desc, then updated_ms desc.
func (e *Engine) RetrieveByTopics(ctx context.Context, libraryID string, topics []string, tokens int) (*RenderedResult, error) {
	tokens = clampTokens(tokens)

	if e.Embedder == nil {
		return e.renderFallback(ctx, libraryID, tokens)
	}

	results, err := e.Vector.VectorSearch(ctx, store.VectorSearchParams{
		Embedding: neutralVector(),
		K:         topicSemanticK,
		Filter:    store.VectorFilter{LibraryID: libraryID, Topics: topics},
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return e.renderFallback(ctx, libraryID, tokens)
	}

	scored, err := e.hydrateVectorResults(ctx, results, "")
	if err != nil {
		return nil, err
	}
	return e.rankAndRender(ctx, scored, libraryID, tokens)
}

// RetrieveSemantic implements Mode D: semantic retrieval by free-text
// topic. Computes a query embedding, searches the library's vectors with
// k=30, blends, and renders.
func (e *Engine) RetrieveSemantic(ctx context.Context, libraryID, topic string, tokens int) (*RenderedResult, error) {
	tokens = clampTokens(tokens)

	if e.Embedder == nil {
		return e.renderFallback(ctx, libraryID, tokens)
	}

	vectors, err := e.Embedder.EmbedBatch(ctx, []string{topic})
	if err != nil {
		return e.renderFallback(ctx, libraryID, tokens)
	}

	results, err := e.Vector.VectorSearch(ctx, store.VectorSearchParams{
		Embedding: vectors[0],
		K:         topicSemanticK,
		Filter:    store.VectorFilter{LibraryID: libraryID},
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return e.renderFallback(ctx, libraryID, tokens)
	}

	scored, err := e.hydrateVectorResults(ctx, results, "")
	if err != nil {
		return nil, err
	}
	return e.rankAndRender(ctx, scored, libraryID, tokens)
}

// HybridOptions is RetrieveHybrid's input, mirroring the hybrid_search
// storage operation's contract plus the token budget the engine needs
// for rendering.
type HybridOptions struct {
	Query     string
	LibraryID string
	VersionID string
	Topics    []string
	CodeOnly  bool
	Limit     int
	MinScore  float64
	Tokens    int
}

// RetrieveHybrid implements Mode E: hybrid retrieval. When an embedding
// for the query is available, it runs vector_search and full_text_search
// concurrently and merges by blended score; otherwise it degrades to
// full_text_search alone.
func (e *Engine) RetrieveHybrid(ctx context.Context, opts HybridOptions) (*RenderedResult, error) {
	tokens := clampTokens(opts.Tokens)
	scored, err := e.hybridScored(ctx, opts)
	if err != nil {
		return nil, err
	}
	return e.rankAndRender(ctx, scored, opts.LibraryID, tokens)
}

// Hit is one ranked search-documentation result: a hydrated snippet plus
// the similarity and blended score it was ranked by.
type Hit struct {
	Snippet    model.Snippet
	Similarity float64
	Blended    float64
}

// SearchDocumentation runs the same Mode E candidate gathering and
// ranking as RetrieveHybrid but returns the ranked hits themselves
// instead of a rendered markdown payload, truncated to opts.Limit (or
// topicSemanticK when unset).
func (e *Engine) SearchDocumentation(ctx context.Context, opts HybridOptions) ([]Hit, error) {
	scored, err := e.hybridScored(ctx, opts)
	if err != nil {
		return nil, err
	}
	rankScored(scored)

	limit := opts.Limit
	if limit <= 0 {
		limit = topicSemanticK
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	hits := make([]Hit, len(scored))
	for i, s := range scored {
		hits[i] = Hit{Snippet: s.snippet, Similarity: s.similarity, Blended: blendedScore(s)}
	}
	return hits, nil
}

// hybridScored gathers and merges Mode E's candidate set without
// ranking or rendering: vector_search and full_text_search run
// concurrently when an embedder is configured, otherwise only
// full_text_search runs.
func (e *Engine) hybridScored(ctx context.Context, opts HybridOptions) ([]scoredSnippet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = topicSemanticK
	}

	ftOpts := store.FullTextOptions{
		Query:     opts.Query,
		LibraryID: opts.LibraryID,
		VersionID: opts.VersionID,
		CodeOnly:  opts.CodeOnly,
		MinScore:  opts.MinScore,
		Limit:     limit,
	}

	if e.Embedder == nil {
		results, err := e.Relational.FullTextSearch(ctx, ftOpts)
		if err != nil {
			return nil, err
		}
		scored := make([]scoredSnippet, len(results))
		for i, r := range results {
			scored[i] = scoredSnippet{snippet: r.Snippet, similarity: 0, blended: false}
		}
		return scored, nil
	}

	var vecResults []store.VectorSearchResult
	var ftResults []store.FullTextResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectors, err := e.Embedder.EmbedBatch(gctx, []string{opts.Query})
		if err != nil {
			// Embedding failure degrades this branch alone; full-text
			// results still merge in below.
			return nil
		}
		results, err := e.Vector.VectorSearch(gctx, store.VectorSearchParams{
			Embedding: vectors[0],
			K:         limit,
			Filter:    store.VectorFilter{LibraryID: opts.LibraryID, VersionID: opts.VersionID, Topics: opts.Topics},
		})
		if err != nil {
			return err
		}
		vecResults = results
		return nil
	})
	g.Go(func() error {
		results, err := e.Relational.FullTextSearch(gctx, ftOpts)
		if err != nil {
			return err
		}
		ftResults = results
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scoredVec, err := e.hydrateVectorResults(ctx, vecResults, opts.VersionID)
	if err != nil {
		return nil, err
	}
	return mergeByID(scoredVec, ftResults), nil
}

// renderFallback is the embedding-unavailable-or-empty-vector-results
// path: a paginated scan of the library's snippets, ordered by
// quality_score desc then updated_ms desc, limited to fallbackScanLimit.
func (e *Engine) renderFallback(ctx context.Context, libraryID string, tokens int) (*RenderedResult, error) {
	snippets, err := e.Relational.ListSnippetsByLibrary(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(snippets, func(i, j int) bool {
		if snippets[i].QualityScore != snippets[j].QualityScore {
			return snippets[i].QualityScore > snippets[j].QualityScore
		}
		return snippets[i].UpdatedMs > snippets[j].UpdatedMs
	})
	if len(snippets) > fallbackScanLimit {
		snippets = snippets[:fallbackScanLimit]
	}

	scored := make([]scoredSnippet, len(snippets))
	for i, s := range snippets {
		scored[i] = scoredSnippet{snippet: s, similarity: 0, blended: false}
	}
	return e.rankAndRender(ctx, scored, libraryID, tokens)
}

// hydrateVectorResults turns vector_search hits into scoredSnippet
// values by loading each snippet's full row from the relational store.
// VectorPayload carries no version_id (per the persisted vector-payload
// shape), so the version_id half of vector_search's filter contract is
// applied here, post-hydration, against the relational row instead of
// inside the vector store itself.
func (e *Engine) hydrateVectorResults(ctx context.Context, results []store.VectorSearchResult, versionID string) ([]scoredSnippet, error) {
	out := make([]scoredSnippet, 0, len(results))
	for _, r := range results {
		snippet, err := e.Relational.GetSnippet(ctx, r.Point.ID)
		if err != nil {
			if codex7err.GetKind(err) == codex7err.KindNotFound {
				// The snippet was deleted since the vector was indexed; skip it.
				continue
			}
			return nil, err
		}
		if versionID != "" && snippet.VersionID != versionID {
			continue
		}
		out = append(out, scoredSnippet{snippet: *snippet, similarity: clampSimilarity(r.Similarity), blended: true})
	}
	return out, nil
}

// mergeByID combines vector and full-text hits into one scored set,
// keyed by snippet id. A snippet present in both keeps its vector
// similarity since that is strictly more informative for blending.
func mergeByID(vec []scoredSnippet, ft []store.FullTextResult) []scoredSnippet {
	seen := make(map[string]int, len(vec)+len(ft))
	out := make([]scoredSnippet, 0, len(vec)+len(ft))
	for _, s := range vec {
		seen[s.snippet.ID] = len(out)
		out = append(out, s)
	}
	for _, r := range ft {
		if _, ok := seen[r.Snippet.ID]; ok {
			continue
		}
		seen[r.Snippet.ID] = len(out)
		out = append(out, scoredSnippet{snippet: r.Snippet, similarity: 0, blended: false})
	}
	return out
}

// blendedScore computes 0.7*similarity + 0.3*quality_score. Snippets
// without a vector hit (similarity 0) still rank by their quality alone.
func blendedScore(s scoredSnippet) float64 {
	return 0.7*s.similarity + 0.3*s.snippet.QualityScore
}

// rankAndRender orders by blended score and renders within tokens,
// prefixing the output with the owning library's header when libraryID
// is non-empty.
func (e *Engine) rankAndRender(ctx context.Context, scored []scoredSnippet, libraryID string, tokens int) (*RenderedResult, error) {
	rankScored(scored)
	return render(scored, e.libraryHeader(ctx, libraryID), tokens), nil
}

// libraryHeader loads and renders the library header for libraryID,
// returning an empty string if libraryID is empty or the library cannot
// be loaded (a hybrid search scoped to no single library has none).
func (e *Engine) libraryHeader(ctx context.Context, libraryID string) string {
	if libraryID == "" {
		return ""
	}
	lib, err := e.Relational.GetLibrary(ctx, libraryID)
	if err != nil {
		return ""
	}
	return RenderLibrary(*lib)
}

// rankScored sorts by blended desc, ties broken by similarity desc, then
// updated_ms desc, then id ascending for a total order.
func rankScored(scored []scoredSnippet) {
	sort.SliceStable(scored, func(i, j int) bool {
		bi, bj := blendedScore(scored[i]), blendedScore(scored[j])
		if bi != bj {
			return bi > bj
		}
		if scored[i].similarity != scored[j].similarity {
			return scored[i].similarity > scored[j].similarity
		}
		if scored[i].snippet.UpdatedMs != scored[j].snippet.UpdatedMs {
			return scored[i].snippet.UpdatedMs > scored[j].snippet.UpdatedMs
		}
		return scored[i].snippet.ID < scored[j].snippet.ID
	})
}

// render builds the markdown payload, appending snippet blocks in rank
// order until the next one would exceed tokens. No reordering happens
// for fit: the output is always a strict prefix of the ranked list.
func render(scored []scoredSnippet, libraryHeader string, tokens int) *RenderedResult {
	var b strings.Builder
	if libraryHeader != "" {
		b.WriteString(libraryHeader)
	}
	current := model.EstimateTokens(b.String())

	used := 0
	for _, s := range scored {
		block := renderSnippetBlock(s.snippet)
		blockTokens := model.EstimateTokens(block)
		if current+blockTokens > tokens {
			break
		}
		b.WriteString(block)
		current += blockTokens
		used++
	}

	return &RenderedResult{
		Markdown:      b.String(),
		TokensUsed:    current,
		SnippetsUsed:  used,
		SnippetsTotal: len(scored),
	}
}

func renderSnippetBlock(s model.Snippet) string {
	var b strings.Builder
	b.WriteString("### ")
	b.WriteString(s.Title)
	b.WriteString("\n")
	b.WriteString("Source: ")
	b.WriteString(s.SourceFile)
	b.WriteString("\n")
	if s.Description != "" {
		b.WriteString(s.Description)
		b.WriteString("\n")
	}
	for _, cb := range s.CodeBlocks {
		b.WriteString("```")
		b.WriteString(cb.Language)
		b.WriteString("\n")
		b.WriteString(cb.Code)
		b.WriteString("\n```\n")
	}
	b.WriteString(separator)
	b.WriteString("\n")
	return b.String()
}

// RenderLibrary builds the library-scoped header ("# title", description,
// and an optional "## Best Practices" rule list) that Mode C/D outputs
// are meant to be prefixed with when the caller wants full context
// instead of a bare snippet list.
func RenderLibrary(lib model.Library) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(lib.Name)
	b.WriteString("\n")
	if lib.Description != "" {
		b.WriteString(lib.Description)
		b.WriteString("\n")
	}
	if len(lib.Rules) > 0 {
		b.WriteString("## Best Practices\n")
		for _, rule := range lib.Rules {
			b.WriteString("- ")
			b.WriteString(rule)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func clampTokens(tokens int) int {
	if tokens < MinTokens {
		if tokens <= 0 {
			return DefaultTokens
		}
		return MinTokens
	}
	return tokens
}

func clampSimilarity(sim float64) float64 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// neutralVector returns a fixed non-zero unit vector, used by Mode C as
// the query embedding when no topic text accompanies the topics
// filter. A zero vector would leave cosine distance undefined (NaN),
// which would make every blended score NaN and silently collapse the
// ranking to its updated_ms/id tie-break instead of quality_score.
// This constant vector keeps similarity a well-defined, same-for-every-
// candidate value, so the topics filter narrows the candidate set and
// the blended score still orders by quality_score — the "neutral (or
// random) query vector" the topic-filtered retrieval mode calls for.
func neutralVector() []float32 {
	v := make([]float32, model.EmbeddingDim)
	c := float32(1 / math.Sqrt(float64(model.EmbeddingDim)))
	for i := range v {
		v[i] = c
	}
	return v
}

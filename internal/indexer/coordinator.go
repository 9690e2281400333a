// Package indexer implements the indexing coordinator: the component
// that drives one full indexing job end to end — Parser -> Topic
// Extractor -> Embedding Client -> Storage Layer, in that order,
// transactionally per library replacement, serialized per library by a
// keyed lock.
package indexer

import (
	"context"
	"time"

	"github.com/google/uuid"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/codex7/codex7/internal/embed"
	"github.com/codex7/codex7/internal/ingest"
	"github.com/codex7/codex7/internal/model"
	"github.com/codex7/codex7/internal/store"
	"github.com/codex7/codex7/internal/topic"
)

// Coordinator owns the RelationalStore, VectorStore, EmbeddingClient,
// and per-library lock manager needed to run indexing jobs. It holds no
// other state: background job status lives only in the relational
// store, per the design notes' "no separate job registry" decision.
type Coordinator struct {
	Relational store.RelationalStore
	Vector     store.VectorStore
	Embedder   embed.Client // nil is valid: embedding step is skipped, full-text-only retrieval still works.
	Locks      *store.LibraryLocks
	Suggester  topic.Suggester // nil is valid: header-only topic extraction.
}

// Request is one indexing invocation: a project tree plus the
// identifying and override fields the parser's Overrides carries.
type Request struct {
	Root          string
	Org           string
	Project       string
	VersionString string
	GitCommitSHA  string
	Overrides     ingest.Overrides
	// UseLLMTopicFallback enables the bounded LLM fallback when header
	// scanning yields no topics for a snippet.
	UseLLMTopicFallback bool
}

// Run executes one complete indexing job for req, serialized per
// library. It returns the terminal IndexingJob record (completed or
// failed) plus an error only when the job could not even be started
// (LibraryBusy, or a failure creating the job row). Parser, embedding
// and storage failures after that are recorded on the failed job and
// returned with a nil error.
func (c *Coordinator) Run(ctx context.Context, req Request) (*model.IndexingJob, error) {
	identifier := model.Identifier(req.Org, req.Project)
	libraryID := libraryIDFor(req.Overrides, identifier)

	release, err := c.Locks.TryLock(libraryID)
	if err != nil {
		return nil, err
	}
	defer release()

	versionID := uuid.NewString()

	job := &model.IndexingJob{
		ID:        uuid.NewString(),
		LibraryID: libraryID,
		VersionID: versionID,
		Status:    model.JobStatusPending,
		StartedMs: model.NowMs(time.Now()),
	}
	if err := c.Relational.CreateIndexingJob(ctx, job); err != nil {
		return nil, err
	}

	job.Status = model.JobStatusRunning
	_ = c.Relational.UpdateIndexingJob(ctx, job)

	result, parseErr := ingest.NewParser().Run(req.Root, libraryID, versionID, req.Overrides)
	if parseErr != nil {
		c.failJob(ctx, job, parseErr)
		return job, nil
	}

	job.TotalDocuments = len(result.Documents)

	c.assignTopics(ctx, result.Snippets, req.UseLLMTopicFallback)
	libraryTopics := aggregateTopics(result.Snippets)

	if c.Embedder != nil {
		if err := c.embedSnippets(ctx, result.Snippets); err != nil {
			job.FailedDocuments = len(result.Documents)
			c.failJob(ctx, job, err)
			return job, nil
		}
	}

	lib := &model.Library{
		ID:            libraryID,
		Identifier:    identifier,
		Name:          result.Library.Title,
		Org:           req.Org,
		Project:       req.Project,
		Description:   result.Library.Description,
		TrustScore:    10, // locally indexed library, per the data model's stated default.
		Keywords:      result.Library.Keywords,
		Topics:        libraryTopics,
		Rules:         result.Library.Rules,
		SourcePath:    result.Library.SourcePath,
		CreatedMs:     model.NowMs(time.Now()),
		UpdatedMs:     model.NowMs(time.Now()),
	}

	version := &model.Version{
		ID:                versionID,
		LibraryID:         libraryID,
		VersionString:     req.VersionString,
		VersionNormalized: model.NormalizeVersion(req.VersionString),
		IsLatest:          true,
		DocumentCount:     len(result.Documents),
		GitCommitSHA:      req.GitCommitSHA,
		IndexedMs:         model.NowMs(time.Now()),
		UpdatedMs:         model.NowMs(time.Now()),
	}

	if err := c.replaceLibrary(ctx, lib, version, result); err != nil {
		c.failJob(ctx, job, err)
		return job, nil
	}

	job.Status = model.JobStatusCompleted
	job.ProcessedDocuments = len(result.Documents)
	job.CompletedMs = model.NowMs(time.Now())
	_ = c.Relational.UpdateIndexingJob(ctx, job)
	return job, nil
}

// libraryIDFor returns the CLI-supplied library id override if present,
// otherwise the identifier doubles as the id for a fresh library — a
// stable, re-index-idempotent choice since re-running the same project
// always yields the same identifier.
func libraryIDFor(overrides ingest.Overrides, identifier string) string {
	if overrides.LibraryID != "" {
		return overrides.LibraryID
	}
	return identifier
}

// assignTopics topic-tags each snippet. The chunker stores a snippet's
// body with its originating header line stripped (the header becomes
// Title instead), so the header line is reconstructed here before
// handing text to the header-scanning strategy — otherwise FromHeaders
// would see a body with no "##"/"###" line and always return nothing.
func (c *Coordinator) assignTopics(ctx context.Context, snippets []*model.Snippet, useLLMFallback bool) {
	for _, s := range snippets {
		headed := "## " + s.Title + "\n\n" + s.Content
		s.Topics = topic.ExtractWithFallback(ctx, headed, useLLMFallback, c.Suggester)
	}
}

func aggregateTopics(snippets []*model.Snippet) []string {
	all := make([][]string, len(snippets))
	for i, s := range snippets {
		all[i] = s.Topics
	}
	return topic.AggregateLibraryTopics(all)
}

// embedSnippets embeds every snippet's composed text in request order
// and assigns the resulting unit vector back onto each snippet.
func (c *Coordinator) embedSnippets(ctx context.Context, snippets []*model.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}
	texts := make([]string, len(snippets))
	for i, s := range snippets {
		texts[i] = embed.SnippetText(s.Title, s.Description, s.Content)
	}
	vectors, err := c.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	for i, v := range vectors {
		snippets[i].Embedding = v
	}
	return nil
}

// replaceLibrary performs the wholesale replacement invariant: delete
// library-vectors, delete the library row (cascading versions,
// documents, snippets), insert the new library, documents, snippets,
// then upsert vectors. A failure at any point after the first delete
// leaves the library empty; the caller may retry without manual
// cleanup.
func (c *Coordinator) replaceLibrary(ctx context.Context, lib *model.Library, version *model.Version, result *ingest.Result) error {
	if err := c.Vector.DeleteLibraryVectors(ctx, lib.ID); err != nil {
		return err
	}
	if err := c.Relational.DeleteLibrary(ctx, lib.ID); err != nil {
		if !isNotFound(err) {
			return err
		}
	}
	if err := c.Relational.CreateLibrary(ctx, lib); err != nil {
		return err
	}
	if err := c.Relational.CreateVersion(ctx, version); err != nil {
		return err
	}

	docs := make([]model.Document, len(result.Documents))
	for i, d := range result.Documents {
		docs[i] = *d
	}
	if len(docs) > 0 {
		if err := c.Relational.IndexDocuments(ctx, docs); err != nil {
			return err
		}
	}

	snippets := make([]model.Snippet, len(result.Snippets))
	for i, s := range result.Snippets {
		snippets[i] = *s
	}
	if len(snippets) > 0 {
		if err := c.Relational.InsertSnippets(ctx, snippets); err != nil {
			return err
		}
	}

	return c.upsertVectors(ctx, result.Snippets)
}

func (c *Coordinator) upsertVectors(ctx context.Context, snippets []*model.Snippet) error {
	var points []store.VectorPoint
	for _, s := range snippets {
		if len(s.Embedding) == 0 {
			continue
		}
		preview := s.Content
		if len(preview) > 500 {
			preview = preview[:500]
		}
		points = append(points, store.VectorPoint{
			ID:     s.ID,
			Vector: s.Embedding,
			Payload: store.VectorPayload{
				SnippetID:      s.ID,
				LibraryID:      s.LibraryID,
				Title:          s.Title,
				SourceFile:     s.SourceFile,
				SourceType:     s.SourceType,
				ContentPreview: preview,
				Topics:         s.Topics,
				QualityScore:   s.QualityScore,
			},
		})
	}
	if len(points) == 0 {
		return nil
	}
	return c.Vector.UpsertSnippetVectors(ctx, points)
}

func (c *Coordinator) failJob(ctx context.Context, job *model.IndexingJob, err error) {
	job.Status = model.JobStatusFailed
	job.Error = err.Error()
	job.CompletedMs = model.NowMs(time.Now())
	_ = c.Relational.UpdateIndexingJob(ctx, job)
}

func isNotFound(err error) bool {
	return codex7err.GetKind(err) == codex7err.KindNotFound
}

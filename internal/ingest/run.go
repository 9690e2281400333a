package ingest

import (
	"os"
	"path/filepath"
	"strings"

	codex7err "github.com/codex7/codex7/internal/errors"
)

// Parser runs the full Document Parser & Chunker pipeline for one
// project tree: file selection, document-record extraction, and
// snippet chunking. It does not assign topics or embeddings — those are
// the Topic Extractor's and Embedding Client's jobs, invoked afterward
// by the indexing coordinator.
type Parser struct {
	chunker *SnippetChunker
}

// NewParser returns a Parser ready to run against any project root.
func NewParser() *Parser {
	return &Parser{chunker: NewSnippetChunker()}
}

// Run walks root, loads every eligible file, and produces documents and
// snippets for libraryID/versionID. A per-file read failure is recorded
// as a warning and does not abort the run; zero files found is a
// warning; zero snippets produced across the whole run is a fatal
// ValidationFailed error, matching the parser's documented semantics.
func (p *Parser) Run(root, libraryID, versionID string, overrides Overrides) (*Result, error) {
	cfg, cfgErr := LoadProjectConfig(root)
	var warnings []string
	if cfgErr != nil {
		warnings = append(warnings, cfgErr.Error())
	}

	relPaths, walkWarnings := Walk(root, cfg)
	warnings = append(warnings, walkWarnings...)

	result := &Result{Library: draftFromConfigAndOverrides(root, cfg, overrides)}

	for _, rel := range relPaths {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		raw, err := os.ReadFile(abs)
		if err != nil {
			warnings = append(warnings, "read failed for "+rel+": "+err.Error())
			continue
		}
		content := string(raw)
		sourceType := sourceTypeFromPath(rel)

		doc := buildDocument(libraryID, versionID, rel, content)
		doc.SourceType = sourceType
		result.Documents = append(result.Documents, doc)

		snippets := p.chunker.Chunk(libraryID, versionID, "/"+strings.TrimPrefix(rel, "/"), sourceType, content)
		result.Snippets = append(result.Snippets, snippets...)
	}

	result.Warnings = warnings

	if len(result.Snippets) == 0 {
		return result, codex7err.ValidationFailed("zero snippets produced for library "+libraryID, nil)
	}
	return result, nil
}

func draftFromConfigAndOverrides(root string, cfg *ProjectConfig, overrides Overrides) LibraryDraft {
	draft := LibraryDraft{SourcePath: root}
	if cfg != nil {
		draft.Title = cfg.ProjectTitle
		draft.Description = cfg.Description
		draft.Rules = cfg.Rules
	}
	if draft.Title == "" {
		draft.Title = filepath.Base(root)
	}
	if overrides.Title != "" {
		draft.Title = overrides.Title
	}
	if overrides.Description != "" {
		draft.Description = overrides.Description
	}
	if len(overrides.Keywords) > 0 {
		draft.Keywords = overrides.Keywords
	}
	return draft
}

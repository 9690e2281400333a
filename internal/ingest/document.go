package ingest

import (
	"path"
	"regexp"
	"strings"

	"github.com/codex7/codex7/internal/model"
)

var h1Pattern = regexp.MustCompile(`(?m)^#[ \t]+(.+)$`)

// sourceTypeFromPath infers a Document/Snippet SourceType from the
// top-level folder a relative path lives under.
func sourceTypeFromPath(relPath string) model.SourceType {
	top := strings.ToLower(strings.SplitN(strings.TrimPrefix(relPath, "/"), "/", 2)[0])
	switch {
	case strings.Contains(top, "example"):
		return model.SourceTypeExamples
	case strings.Contains(top, "api"), strings.Contains(top, "reference"):
		return model.SourceTypeAPI
	case strings.Contains(top, "content"):
		return model.SourceTypeContent
	default:
		return model.SourceTypeDocs
	}
}

// buildDocument extracts the full Document record for one file: path
// carries a leading "/", title is the first H1 header or the filename
// stem, tokens is the ceil(len/4) estimate.
func buildDocument(libraryID, versionID, relPath string, content string) *model.Document {
	docPath := "/" + strings.TrimPrefix(relPath, "/")

	title := titleFromPath(relPath)
	if m := h1Pattern.FindStringSubmatch(content); m != nil {
		title = strings.TrimSpace(m[1])
	}

	return &model.Document{
		ID:          model.DeriveSnippetID(libraryID, relPath, -1, "document"),
		LibraryID:   libraryID,
		VersionID:   versionID,
		Path:        docPath,
		Title:       title,
		Content:     content,
		ContentHash: model.ContentHash(content),
		Tokens:      model.EstimateTokens(content),
		SourceType:  sourceTypeFromPath(relPath),
		SourcePath:  relPath,
		Language:    "en",
	}
}

// isMarkdownLike reports whether relPath has an extension the parser
// considers: .md, .mdx, .rst.
func isMarkdownLike(relPath string) bool {
	switch strings.ToLower(path.Ext(relPath)) {
	case ".md", ".mdx", ".rst":
		return true
	default:
		return false
	}
}

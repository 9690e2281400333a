package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codex7/codex7/internal/model"
)

// sectionHeaderPattern anchors on level-2 and level-3 ATX headers only;
// H1 and H4+ never start a new section.
var sectionHeaderPattern = regexp.MustCompile(`(?m)^(##|###)[ \t]+(.+)$`)

// fencedCodeBlockPattern matches a fenced code block and captures the
// optional language tag and the code body.
var fencedCodeBlockPattern = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\n(.*?)```")

// SnippetChunker splits a document's markdown body into snippet records
// bounded by SectionMaxTokens, following level-2/3 headers.
type SnippetChunker struct{}

// NewSnippetChunker returns a chunker with no configurable state; all
// thresholds are the fixed constants in types.go.
func NewSnippetChunker() *SnippetChunker {
	return &SnippetChunker{}
}

// rawSection is one header-delimited span of the source before chunk
// splitting, still carrying its raw body text.
type rawSection struct {
	title string
	body  string // body following the header line, header line excluded
}

// Chunk splits file's content into ordered Snippet records attributed to
// sourceFile within libraryID/versionID, inferring sourceType from the
// caller. Sections shorter than MinSectionChars are dropped; a file with
// no ##/### headers but enough content falls back to a single truncated
// snippet, matching the parser's documented failure semantics.
func (c *SnippetChunker) Chunk(libraryID, versionID, sourceFile string, sourceType model.SourceType, content string) []*model.Snippet {
	sections := splitSections(content)

	if len(sections) == 0 {
		if len(strings.TrimSpace(content)) < MinSectionChars {
			return nil
		}
		return []*model.Snippet{c.fallbackSnippet(libraryID, versionID, sourceFile, sourceType, content)}
	}

	var snippets []*model.Snippet
	sectionIndex := 0
	for _, sec := range sections {
		if len(strings.TrimSpace(sec.body)) < MinSectionChars {
			continue
		}
		snippets = append(snippets, c.chunkSection(libraryID, versionID, sourceFile, sourceType, sectionIndex, sec)...)
		sectionIndex++
	}
	return snippets
}

// splitSections splits content at every ## or ### header line, returning
// one rawSection per header with its title and the body text following
// it up to (not including) the next header of either level.
func splitSections(content string) []rawSection {
	matches := sectionHeaderPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	sections := make([]rawSection, 0, len(matches))
	for i, m := range matches {
		titleStart, titleEnd := m[4], m[5]
		bodyStart := m[1] // end of the full header-line match
		bodyEnd := len(content)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		title := strings.TrimSpace(content[titleStart:titleEnd])
		body := content[bodyStart:bodyEnd]
		if strings.HasPrefix(body, "\n") {
			body = body[1:]
		}
		sections = append(sections, rawSection{title: title, body: body})
	}
	return sections
}

// chunkSection turns one rawSection into one or more Snippets, splitting
// oversize sections while never breaking a fenced code block.
func (c *SnippetChunker) chunkSection(libraryID, versionID, sourceFile string, sourceType model.SourceType, sectionIndex int, sec rawSection) []*model.Snippet {
	body := strings.TrimRight(sec.body, "\n")
	tokens := model.EstimateTokens(body)

	if tokens <= SectionMaxTokens {
		return []*model.Snippet{c.buildSnippet(libraryID, versionID, sourceFile, sourceType, sectionIndex, 0, sec.title, body)}
	}

	parts := splitPreservingFences(body, ChunkTargetChars)
	snippets := make([]*model.Snippet, 0, len(parts))
	for i, part := range parts {
		title := sec.title
		if i > 0 {
			title = fmt.Sprintf("%s (continued %d)", sec.title, i)
		}
		snippets = append(snippets, c.buildSnippet(libraryID, versionID, sourceFile, sourceType, sectionIndex, i, title, part))
	}
	return snippets
}

// splitPreservingFences greedily packs alternating text/code spans into
// chunks no larger than targetChars, never splitting inside a fenced
// code block. A text span longer than targetChars is first cut into
// targetChars-sized pieces; a fence may push a chunk past targetChars.
func splitPreservingFences(body string, targetChars int) []string {
	fences := fencedCodeBlockPattern.FindAllStringIndex(body, -1)

	var spans []string
	cursor := 0
	for _, f := range fences {
		if f[0] > cursor {
			spans = append(spans, body[cursor:f[0]])
		}
		spans = append(spans, body[f[0]:f[1]])
		cursor = f[1]
	}
	if cursor < len(body) {
		spans = append(spans, body[cursor:])
	}
	if len(spans) == 0 {
		spans = append(spans, body)
	}

	var pieces []string
	for _, s := range spans {
		if strings.HasPrefix(strings.TrimSpace(s), "```") || len(s) <= targetChars {
			pieces = append(pieces, s)
			continue
		}
		for len(s) > targetChars {
			pieces = append(pieces, s[:targetChars])
			s = s[targetChars:]
		}
		pieces = append(pieces, s)
	}
	spans = pieces

	var chunks []string
	var cur strings.Builder
	for _, s := range spans {
		isFence := strings.HasPrefix(strings.TrimSpace(s), "```")
		if cur.Len() > 0 && !isFence && cur.Len()+len(s) > targetChars {
			chunks = append(chunks, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		cur.WriteString(s)
		if cur.Len() > targetChars && isFence {
			chunks = append(chunks, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(cur.String()))
	}
	if len(chunks) == 0 {
		chunks = append(chunks, body)
	}
	return chunks
}

// extractCodeBlocks returns every fenced code block in content, in
// order, defaulting the language tag to "text" when absent.
func extractCodeBlocks(content string) []model.CodeBlock {
	matches := fencedCodeBlockPattern.FindAllStringSubmatch(content, -1)
	blocks := make([]model.CodeBlock, 0, len(matches))
	for _, m := range matches {
		lang := m[1]
		if lang == "" {
			lang = "text"
		}
		blocks = append(blocks, model.CodeBlock{Language: lang, Code: m[2]})
	}
	return blocks
}

// extractDescription returns the first paragraph between the header and
// the first code fence (or end of content), truncated to
// DescriptionMaxChars.
func extractDescription(body string) string {
	upTo := body
	if loc := fencedCodeBlockPattern.FindStringIndex(body); loc != nil {
		upTo = body[:loc[0]]
	}
	paragraphs := strings.SplitN(strings.TrimSpace(upTo), "\n\n", 2)
	desc := strings.TrimSpace(paragraphs[0])
	if len(desc) > DescriptionMaxChars {
		desc = desc[:DescriptionMaxChars]
	}
	return desc
}

func (c *SnippetChunker) buildSnippet(libraryID, versionID, sourceFile string, sourceType model.SourceType, sectionIndex, partIndex int, title, content string) *model.Snippet {
	codeBlocks := extractCodeBlocks(content)
	description := extractDescription(content)
	quality := model.QualityScore(len(codeBlocks), len(content), len(description))

	return &model.Snippet{
		ID:             model.DeriveSnippetID(libraryID, sourceFile, sectionIndex*1000+partIndex, title),
		LibraryID:      libraryID,
		VersionID:      versionID,
		Title:          title,
		SourceFile:     sourceFile,
		SourceType:     sourceType,
		Description:    description,
		Content:        content,
		CodeBlocks:     codeBlocks,
		HasCode:        len(codeBlocks) > 0,
		CodeBlockCount: len(codeBlocks),
		Tokens:         model.EstimateTokens(content),
		QualityScore:   quality,
	}
}

// fallbackSnippet handles files with no ##/### headers but enough
// content to be useful: the whole file, truncated, becomes one snippet.
func (c *SnippetChunker) fallbackSnippet(libraryID, versionID, sourceFile string, sourceType model.SourceType, content string) *model.Snippet {
	truncated := content
	if len(truncated) > FallbackContentChars {
		truncated = truncated[:FallbackContentChars]
	}
	codeBlocks := extractCodeBlocks(truncated)
	if len(codeBlocks) > FallbackCodeBlocksMax {
		codeBlocks = codeBlocks[:FallbackCodeBlocksMax]
	}
	description := extractDescription(truncated)
	quality := model.QualityScore(len(codeBlocks), len(truncated), len(description))
	title := titleFromPath(sourceFile)

	return &model.Snippet{
		ID:             model.DeriveSnippetID(libraryID, sourceFile, 0, title),
		LibraryID:      libraryID,
		VersionID:      versionID,
		Title:          title,
		SourceFile:     sourceFile,
		SourceType:     sourceType,
		Description:    description,
		Content:        truncated,
		CodeBlocks:     codeBlocks,
		HasCode:        len(codeBlocks) > 0,
		CodeBlockCount: len(codeBlocks),
		Tokens:         model.EstimateTokens(truncated),
		QualityScore:   quality,
	}
}

func titleFromPath(p string) string {
	base := p
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

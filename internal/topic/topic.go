// Package topic implements the Topic Extractor: it derives a set of
// short, normalized topic tags for a piece of markdown using header
// scanning first and, only when that yields nothing, a bounded LLM
// fallback.
package topic

import (
	"regexp"
	"strings"
)

// headerTagPattern matches exactly level-2 or level-3 ATX headers; H1
// and H4+ are ignored as topic sources.
var headerTagPattern = regexp.MustCompile(`(?m)^(##|###)[ \t]+(.+)$`)

// inlineMarkupPattern strips inline backticks and asterisks from a
// header line before it becomes a raw tag candidate.
var inlineMarkupPattern = regexp.MustCompile("[`*]")

// nonAlnumPattern collapses every run of characters outside [a-z0-9]
// into a single hyphen during normalization.
var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

// FromHeaders scans content for level-2/3 headers and returns their
// normalized text as topic tags, deduplicated with first occurrence
// preserved.
func FromHeaders(content string) []string {
	matches := headerTagPattern.FindAllStringSubmatch(content, -1)
	var raw []string
	for _, m := range matches {
		raw = append(raw, inlineMarkupPattern.ReplaceAllString(m[2], ""))
	}
	return normalizeAll(raw)
}

// Normalize lowercases t, strips everything outside [a-z0-9] (collapsing
// runs to a single "-"), trims leading/trailing "-", and rejects tags
// outside the [3,30] length window by returning "".
func Normalize(t string) string {
	lower := strings.ToLower(strings.TrimSpace(t))
	collapsed := nonAlnumPattern.ReplaceAllString(lower, "-")
	trimmed := strings.Trim(collapsed, "-")
	if len(trimmed) < 3 || len(trimmed) > 30 {
		return ""
	}
	return trimmed
}

// normalizeAll normalizes every entry in raw, drops empties, and
// deduplicates preserving first occurrence.
func normalizeAll(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range raw {
		n := Normalize(r)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// AggregateLibraryTopics unions every snippet's topic set into the
// library-level topic list, first occurrence wins across the whole
// library, matching the data-model invariant that Library.Topics is the
// set-union of its snippets' Topics.
func AggregateLibraryTopics(snippetTopics [][]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, topics := range snippetTopics {
		for _, t := range topics {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

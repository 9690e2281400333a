package topic

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// LLMFallbackPromptChars bounds how much of a snippet's content is sent
// to the fallback LLM call.
const LLMFallbackPromptChars = 2000

// fallbackPrompt is the fixed instruction sent alongside the truncated
// content; the upstream LLM is expected to return a JSON array of 1-5
// topic tags and nothing else.
const fallbackPrompt = "Extract 1 to 5 short topic tags for the documentation excerpt below. " +
	"Respond with a JSON array of lowercase strings and nothing else.\n\n"

// Suggester is the capability the upstream topic-labeling LLM exposes:
// a pure text -> string transform, treated exactly like the embedding
// client's "text -> vector" contract. Configured reports whether an
// upstream LLM is wired up at all; when it is not, the fallback is
// skipped entirely rather than attempted and failed.
type Suggester interface {
	Configured() bool
	Suggest(ctx context.Context, prompt string) (string, error)
}

// jsonArrayPattern finds the first top-level JSON array literal in a
// response, tolerating a fenced ```json``` block wrapping it.
var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*?\]`)

// ExtractWithFallback runs the header strategy first; only when that
// yields the empty set, useLLMFallback is true, and the Suggester
// reports itself configured does it fall back to a single bounded LLM
// call. Any upstream error or unparseable response yields the empty set
// — the fallback never returns an error to its caller.
func ExtractWithFallback(ctx context.Context, content string, useLLMFallback bool, suggester Suggester) []string {
	if tags := FromHeaders(content); len(tags) > 0 {
		return tags
	}
	if !useLLMFallback || suggester == nil || !suggester.Configured() {
		return nil
	}

	excerpt := content
	if len(excerpt) > LLMFallbackPromptChars {
		excerpt = excerpt[:LLMFallbackPromptChars]
	}

	resp, err := suggester.Suggest(ctx, fallbackPrompt+excerpt)
	if err != nil {
		return nil
	}
	return parseLLMResponse(resp)
}

// parseLLMResponse locates the first JSON array literal in resp
// (stripping a surrounding ```json fence if present) and normalizes its
// string entries into topic tags. Any failure yields an empty slice.
func parseLLMResponse(resp string) []string {
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	match := jsonArrayPattern.FindString(cleaned)
	if match == "" {
		return nil
	}

	var raw []string
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil
	}
	return normalizeAll(raw)
}

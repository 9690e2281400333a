package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// identifierPattern is the canonical "/org/project[/version]" shape every
// library identifier and every resolve-library-id argument must satisfy.
var identifierPattern = regexp.MustCompile(`^/[\w-]+/[\w.-]+(?:/v?[\w.-]+)?$`)

// ValidIdentifier reports whether id matches the canonical library
// identifier format.
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

// Identifier builds the canonical "/org/project" string for a library.
func Identifier(org, project string) string {
	return "/" + org + "/" + project
}

// EstimateTokens approximates token count as ceil(len(s)/4), the single
// token-estimation rule used everywhere in the data model.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4.0))
}

// ContentHash returns the hex-encoded SHA-256 of content, used as
// Document.ContentHash and as the re-index idempotence key.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// NormalizeVersion reduces a raw version string to MAJOR.MINOR.PATCH: a
// leading "v" is stripped, missing components are filled with 0, and any
// extra components beyond three are dropped.
func NormalizeVersion(raw string) string {
	v := strings.TrimPrefix(strings.TrimSpace(raw), "v")
	v = strings.TrimPrefix(v, "V")
	if v == "" {
		return "0.0.0"
	}
	// Drop any pre-release/build metadata suffix before splitting.
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	out := make([]string, 3)
	for i := 0; i < 3; i++ {
		if i < len(parts) {
			if n, err := strconv.Atoi(parts[i]); err == nil {
				out[i] = strconv.Itoa(n)
				continue
			}
		}
		out[i] = "0"
	}
	return strings.Join(out, ".")
}

// ValidEmbedding reports whether vec is either empty (not yet embedded)
// or has exactly EmbeddingDim components.
func ValidEmbedding(vec []float32) bool {
	return len(vec) == 0 || len(vec) == EmbeddingDim
}

// DeriveSnippetID computes the deterministic, within-library snippet id
// described by the data-model invariant: stable across re-indexes of
// unchanged input, and incorporating libraryID so identical content in
// two libraries never collides.
func DeriveSnippetID(libraryID, sourceFile string, sectionIndex int, title string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d\x00%s", libraryID, sourceFile, sectionIndex, title)))
	return hex.EncodeToString(h[:])[:24]
}

// QualityScore computes the deterministic per-snippet quality score in
// [0,1]: base 0.5, plus bonuses for code presence, code richness,
// content length, and description length. Boundary values (==500, ==50,
// ==2) do not earn their bonus — the comparisons are strict.
func QualityScore(codeBlockCount, contentLength, descriptionLength int) float64 {
	// Summed in tenths so every result is exactly 0.5, 0.6, ... or 1.0.
	tenths := 5
	if codeBlockCount > 0 {
		tenths += 2
	}
	if codeBlockCount > 2 {
		tenths++
	}
	if contentLength > 500 {
		tenths++
	}
	if descriptionLength > 50 {
		tenths++
	}
	score := float64(tenths) / 10
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Package embed implements the Embedding Client: a pure adapter around a
// remote embedding service that turns ordered lists of text into ordered
// lists of unit-normalized vectors.
package embed

import (
	"context"
	"math"
)

// Dimensions is the fixed embedding width every vector produced by this
// package has. The vector store is built around cosine distance over
// vectors of exactly this width; a client that returns anything else is
// a protocol error.
const Dimensions = 1536

// MaxBatchSize is the maximum number of texts sent to the upstream
// service in a single call. Larger batches are split and issued in
// request order, then concatenated back in the same order.
const MaxBatchSize = 100

// MaxInputChars bounds a single text before it reaches the upstream
// service, approximating the upstream token limit. Text beyond this
// length is truncated with a trailing ellipsis.
const MaxInputChars = 30000

// truncationSuffix is appended to any text cut at MaxInputChars.
const truncationSuffix = "..."

// Client generates vector embeddings for ordered batches of text.
type Client interface {
	// EmbedBatch returns one vector per input text, in the same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the width of vectors this client produces.
	Dimensions() int

	// ModelName reports the upstream model identifier in use.
	ModelName() string

	// Available reports whether the upstream service is currently
	// reachable.
	Available(ctx context.Context) bool

	// Close releases any held connections.
	Close() error
}

// SnippetText composes the text fed to the embedder for a snippet: the
// title, description, and content joined by blank lines. Empty fields
// are included as empty lines rather than skipped, so embeddings stay
// stable if a description is later filled in.
func SnippetText(title, description, content string) string {
	return title + "\n\n" + description + "\n\n" + content
}

// truncate cuts text to MaxInputChars, leaving room for the trailing
// ellipsis, and leaves shorter text untouched.
func truncate(text string) string {
	if len(text) <= MaxInputChars {
		return text
	}
	cut := MaxInputChars - len(truncationSuffix)
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + truncationSuffix
}

// normalizeVector scales v to unit length. A zero vector is returned
// unchanged since it has no direction to normalize.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// batches splits texts into chunks of at most MaxBatchSize, preserving order.
func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}

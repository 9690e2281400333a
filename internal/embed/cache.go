package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of distinct embeddings kept across
// re-index runs.
const DefaultCacheSize = 10000

// CachedClient wraps a Client with an LRU cache keyed by content hash.
// Re-indexing a library recomputes chunk content hashes before
// embedding; snippets whose content hash is unchanged skip the upstream
// call entirely, making re-indexing idempotent and cheap.
type CachedClient struct {
	inner Client
	cache *lru.Cache[string, []float32]
}

var _ Client = (*CachedClient)(nil)

// NewCachedClient wraps inner with an LRU cache of the given size.
// A non-positive size falls back to DefaultCacheSize.
func NewCachedClient(inner Client, size int) *CachedClient {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedClient{inner: inner, cache: cache}
}

// cacheKey hashes the text together with the model name, so a model
// change invalidates the cache rather than returning stale vectors.
func (c *CachedClient) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.inner.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// EmbedBatch returns cached vectors where available and only sends
// cache misses upstream, preserving input order in the result.
func (c *CachedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.cache.Get(key); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	vectors, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIdx {
		results[idx] = vectors[j]
		c.cache.Add(c.cacheKey(texts[idx]), vectors[j])
	}
	return results, nil
}

// Dimensions passes through to the wrapped client.
func (c *CachedClient) Dimensions() int { return c.inner.Dimensions() }

// ModelName passes through to the wrapped client.
func (c *CachedClient) ModelName() string { return c.inner.ModelName() }

// Available passes through to the wrapped client.
func (c *CachedClient) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close closes the wrapped client.
func (c *CachedClient) Close() error { return c.inner.Close() }

// Inner returns the wrapped client, for callers that need to bypass
// the cache (e.g. a forced re-embed).
func (c *CachedClient) Inner() Client { return c.inner }

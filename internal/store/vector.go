package store

import (
	"context"
	"strconv"
	"sync"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/coder/hnsw"
)

// HNSWVectorStore implements VectorStore using coder/hnsw, a pure Go
// HNSW graph. Every point carries a fixed-width payload alongside its
// vector; deletion is lazy (orphaning the id mapping) since coder/hnsw
// does not support removing the last node in a graph cleanly.
type HNSWVectorStore struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	idToKey map[string]uint64
	keyToID map[uint64]string
	payload map[string]VectorPayload
	nextKey uint64

	closed bool
}

var _ VectorStore = (*HNSWVectorStore)(nil)

// NewHNSWVectorStore creates a vector store fixed at the given
// dimensionality, using cosine distance as the Storage Layer spec
// requires.
func NewHNSWVectorStore(dims int) *HNSWVectorStore {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 32
	graph.EfSearch = 64
	graph.Ml = 0.25

	return &HNSWVectorStore{
		graph:   graph,
		dims:    dims,
		idToKey: make(map[string]uint64),
		keyToID: make(map[uint64]string),
		payload: make(map[string]VectorPayload),
	}
}

// UpsertSnippetVectors deletes any existing point for each id and
// inserts the new one, in batches of at most 100, matching the
// upsert_snippet_vectors contract.
func (v *HNSWVectorStore) UpsertSnippetVectors(ctx context.Context, points []VectorPoint) error {
	const batchSize = 100
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		if err := v.upsertBatch(points[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (v *HNSWVectorStore) upsertBatch(points []VectorPoint) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return codex7err.StoragePermanent("vector store is closed", nil)
	}

	for _, p := range points {
		if len(p.Vector) != v.dims {
			return codex7err.ValidationFailed("embedding dimension mismatch", nil).
				WithDetail("expected", strconv.Itoa(v.dims)).WithDetail("got", strconv.Itoa(len(p.Vector)))
		}
	}

	for _, p := range points {
		if existingKey, ok := v.idToKey[p.ID]; ok {
			delete(v.keyToID, existingKey)
			delete(v.idToKey, p.ID)
		}

		key := v.nextKey
		v.nextKey++

		v.graph.Add(hnsw.MakeNode(key, p.Vector))
		v.idToKey[p.ID] = key
		v.keyToID[key] = p.ID
		v.payload[p.ID] = p.Payload
	}
	return nil
}

// DeleteLibraryVectors removes every point whose payload library_id
// matches.
func (v *HNSWVectorStore) DeleteLibraryVectors(ctx context.Context, libraryID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return codex7err.StoragePermanent("vector store is closed", nil)
	}

	var toRemove []string
	for id, payload := range v.payload {
		if payload.LibraryID == libraryID {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		if key, ok := v.idToKey[id]; ok {
			delete(v.keyToID, key)
			delete(v.idToKey, id)
		}
		delete(v.payload, id)
	}
	return nil
}

// VectorSearch runs a k-nearest-neighbor search, applying library,
// version, and topic filters as AND, dropping rows at or below
// Threshold when Threshold > 0, and returning the top K by similarity
// descending.
func (v *HNSWVectorStore) VectorSearch(ctx context.Context, params VectorSearchParams) ([]VectorSearchResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, codex7err.StoragePermanent("vector store is closed", nil)
	}
	if len(params.Embedding) != v.dims {
		return nil, codex7err.ValidationFailed("query embedding dimension mismatch", nil)
	}
	if v.graph.Len() == 0 {
		return []VectorSearchResult{}, nil
	}

	k := params.K
	if k <= 0 {
		k = 10
	}

	// Over-fetch since library/version/topic filtering happens after
	// the graph search; coder/hnsw has no native predicate pushdown.
	searchK := k * 4
	if searchK < 50 {
		searchK = 50
	}
	if searchK > v.graph.Len() {
		searchK = v.graph.Len()
	}

	nodes := v.graph.Search(params.Embedding, searchK)

	var results []VectorSearchResult
	for _, node := range nodes {
		id, ok := v.keyToID[node.Key]
		if !ok {
			continue
		}
		payload, ok := v.payload[id]
		if !ok {
			continue
		}
		if !matchesFilter(payload, params.Filter) {
			continue
		}

		distance := v.graph.Distance(params.Embedding, node.Value)
		similarity := 1 - float64(distance)

		if params.Threshold > 0 && similarity <= params.Threshold {
			continue
		}

		results = append(results, VectorSearchResult{
			Point: VectorPoint{
				ID:      id,
				Vector:  node.Value,
				Payload: payload,
			},
			Similarity: similarity,
		})
	}

	sortBySimilarityDesc(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func matchesFilter(p VectorPayload, f VectorFilter) bool {
	if f.LibraryID != "" && p.LibraryID != f.LibraryID {
		return false
	}
	// VersionID is not carried on VectorPayload; version-scoped filtering
	// is applied by the retrieval engine after relational hydration.
	if len(f.Topics) > 0 {
		set := make(map[string]bool, len(p.Topics))
		for _, t := range p.Topics {
			set[t] = true
		}
		matched := false
		for _, want := range f.Topics {
			if set[want] {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func sortBySimilarityDesc(results []VectorSearchResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Similarity > results[j-1].Similarity; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

// AllIDsForLibrary returns every point id whose payload matches
// libraryID, used for the vector/relational parity property test.
func (v *HNSWVectorStore) AllIDsForLibrary(libraryID string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var out []string
	for id, payload := range v.payload {
		if payload.LibraryID == libraryID {
			out = append(out, id)
		}
	}
	return out
}

// Count returns the number of live (non-orphaned) points.
func (v *HNSWVectorStore) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idToKey)
}

func (v *HNSWVectorStore) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

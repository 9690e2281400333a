package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWVectorStore_UpsertAndSearch(t *testing.T) {
	v := NewHNSWVectorStore(4)
	t.Cleanup(func() { _ = v.Close() })
	ctx := context.Background()

	require.NoError(t, v.UpsertSnippetVectors(ctx, []VectorPoint{
		{ID: "a", Vector: []float32{1, 0, 0, 0}, Payload: VectorPayload{LibraryID: "lib-1"}},
		{ID: "b", Vector: []float32{0, 1, 0, 0}, Payload: VectorPayload{LibraryID: "lib-1"}},
	}))
	assert.Equal(t, 2, v.Count())

	results, err := v.VectorSearch(ctx, VectorSearchParams{
		Embedding: []float32{1, 0, 0, 0}, K: 2, Filter: VectorFilter{LibraryID: "lib-1"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].Point.ID)
}

func TestHNSWVectorStore_UpsertRejectsWrongDimension(t *testing.T) {
	v := NewHNSWVectorStore(4)
	t.Cleanup(func() { _ = v.Close() })

	err := v.UpsertSnippetVectors(context.Background(), []VectorPoint{
		{ID: "a", Vector: []float32{1, 0}, Payload: VectorPayload{}},
	})
	assert.Error(t, err)
}

func TestHNSWVectorStore_DeleteLibraryVectors_RemovesOnlyThatLibrary(t *testing.T) {
	v := NewHNSWVectorStore(4)
	t.Cleanup(func() { _ = v.Close() })
	ctx := context.Background()

	require.NoError(t, v.UpsertSnippetVectors(ctx, []VectorPoint{
		{ID: "a", Vector: []float32{1, 0, 0, 0}, Payload: VectorPayload{LibraryID: "lib-1"}},
		{ID: "b", Vector: []float32{0, 1, 0, 0}, Payload: VectorPayload{LibraryID: "lib-2"}},
	}))

	require.NoError(t, v.DeleteLibraryVectors(ctx, "lib-1"))

	ids := v.AllIDsForLibrary("lib-2")
	assert.Equal(t, []string{"b"}, ids)
	ids = v.AllIDsForLibrary("lib-1")
	assert.Empty(t, ids)
}

func TestHNSWVectorStore_VectorSearch_EmptyGraphReturnsEmpty(t *testing.T) {
	v := NewHNSWVectorStore(4)
	t.Cleanup(func() { _ = v.Close() })

	results, err := v.VectorSearch(context.Background(), VectorSearchParams{
		Embedding: []float32{1, 0, 0, 0}, K: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

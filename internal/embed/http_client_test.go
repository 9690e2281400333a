package embed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEmbedding(seed float32) []float32 {
	v := make([]float32, Dimensions)
	v[0] = seed
	return v
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	return srv, srv.Close
}

func TestHTTPClient_EmbedBatch_ReturnsVectorsInOrder(t *testing.T) {
	srv, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embedResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, embedDatum{Embedding: fakeEmbedding(float32(i + 1)), Index: i})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	defer closeFn()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Model: "test-model", MaxRetries: 1})
	vecs, err := c.EmbedBatch(t.Context(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.NotEqual(t, vecs[0][0], vecs[1][0])
}

func TestHTTPClient_EmbedBatch_SplitsOverBatchLimit(t *testing.T) {
	var calls int
	srv, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embedResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, embedDatum{Embedding: fakeEmbedding(1), Index: i})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	defer closeFn()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Model: "test-model", MaxRetries: 1})
	texts := make([]string, MaxBatchSize+5)
	for i := range texts {
		texts[i] = "text"
	}
	vecs, err := c.EmbedBatch(t.Context(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, len(texts))
	assert.Equal(t, 2, calls)
}

func TestHTTPClient_EmbedBatch_NonOKStatusIsUnavailable(t *testing.T) {
	srv, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer closeFn()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Model: "test-model", MaxRetries: 0})
	_, err := c.EmbedBatch(t.Context(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, codex7err.KindEmbeddingUnavailable, codex7err.GetKind(err))
	assert.True(t, codex7err.IsRetryable(err))
}

func TestHTTPClient_EmbedBatch_MalformedBodyIsProtocolError(t *testing.T) {
	srv, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	defer closeFn()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Model: "test-model", MaxRetries: 0})
	_, err := c.EmbedBatch(t.Context(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, codex7err.KindEmbeddingProtocolError, codex7err.GetKind(err))
	assert.False(t, codex7err.IsRetryable(err))
}

func TestHTTPClient_EmbedBatch_WrongDimensionIsProtocolError(t *testing.T) {
	srv, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		resp := embedResponse{Data: []embedDatum{{Embedding: []float32{1, 2, 3}, Index: 0}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	defer closeFn()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Model: "test-model", MaxRetries: 0})
	_, err := c.EmbedBatch(t.Context(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, codex7err.KindEmbeddingProtocolError, codex7err.GetKind(err))
}

func TestHTTPClient_EmbedBatch_EmptyInputReturnsEmpty(t *testing.T) {
	c := NewHTTPClient(Config{BaseURL: "http://unused", Model: "test-model"})
	vecs, err := c.EmbedBatch(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestHTTPClient_Close_RejectsFurtherCalls(t *testing.T) {
	c := NewHTTPClient(Config{BaseURL: "http://unused", Model: "test-model"})
	require.NoError(t, c.Close())
	_, err := c.EmbedBatch(t.Context(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, codex7err.KindEmbeddingUnavailable, codex7err.GetKind(err))
}

func TestHTTPClient_Available_TrueOnHealthyServer(t *testing.T) {
	srv, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		resp := embedResponse{Data: []embedDatum{{Embedding: fakeEmbedding(1), Index: 0}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	defer closeFn()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Model: "test-model"})
	assert.True(t, c.Available(t.Context()))
}

package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	calls [][]string
}

func (r *recordingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	r.calls = append(r.calls, append([]string{}, texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (r *recordingClient) Dimensions() int                 { return 1 }
func (r *recordingClient) ModelName() string               { return "fake-model" }
func (r *recordingClient) Available(context.Context) bool { return true }
func (r *recordingClient) Close() error                    { return nil }

func TestCachedClient_CachesRepeatedText(t *testing.T) {
	inner := &recordingClient{}
	c := NewCachedClient(inner, 0)

	vecs, err := c.EmbedBatch(t.Context(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	_, err = c.EmbedBatch(t.Context(), []string{"alpha", "beta"})
	require.NoError(t, err)

	assert.Len(t, inner.calls, 1, "second call should be served entirely from cache")
}

func TestCachedClient_OnlySendsMissesUpstream(t *testing.T) {
	inner := &recordingClient{}
	c := NewCachedClient(inner, 0)

	_, err := c.EmbedBatch(t.Context(), []string{"alpha"})
	require.NoError(t, err)

	_, err = c.EmbedBatch(t.Context(), []string{"alpha", "gamma"})
	require.NoError(t, err)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"gamma"}, inner.calls[1])
}

func TestCachedClient_ModelChangeInvalidatesKey(t *testing.T) {
	innerA := &recordingClient{}
	cA := NewCachedClient(innerA, 0)
	_, err := cA.EmbedBatch(t.Context(), []string{"alpha"})
	require.NoError(t, err)

	key1 := cA.cacheKey("alpha")
	innerA.calls = nil

	innerB := &fixedModelClient{recordingClient: recordingClient{}, model: "other-model"}
	cB := NewCachedClient(innerB, 0)
	key2 := cB.cacheKey("alpha")

	assert.NotEqual(t, key1, key2)
}

type fixedModelClient struct {
	recordingClient
	model string
}

func (f *fixedModelClient) ModelName() string { return f.model }

func TestCachedClient_PassthroughMethods(t *testing.T) {
	inner := &recordingClient{}
	c := NewCachedClient(inner, 0)

	assert.Equal(t, inner.Dimensions(), c.Dimensions())
	assert.Equal(t, inner.ModelName(), c.ModelName())
	assert.True(t, c.Available(t.Context()))
	assert.NoError(t, c.Close())
	assert.Same(t, inner, c.Inner())
}

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	codex7err "github.com/codex7/codex7/internal/errors"
)

// Config configures an HTTPClient.
type Config struct {
	// BaseURL is the embedding service root, e.g. "https://api.example.com/v1".
	BaseURL string

	// APIKey authenticates requests via a bearer token.
	APIKey string

	// Model is the upstream model identifier to request embeddings from.
	Model string

	// Timeout bounds a single upstream HTTP call.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after a failed call.
	// Every failure is retried, protocol errors included. A non-positive
	// value is replaced with 3 by NewHTTPClient.
	MaxRetries int
}

// DefaultConfig returns sensible defaults; BaseURL, APIKey, and Model
// must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// HTTPClient is a Client backed by an OpenAI-compatible embeddings
// endpoint: POST {BaseURL}/embeddings with {model, input: [...]},
// returning {data: [{embedding: [...]}, ...]} in request order.
type HTTPClient struct {
	cfg     Config
	http    *http.Client
	breaker *codex7err.CircuitBreaker

	mu     sync.RWMutex
	closed bool
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient for the given configuration.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &HTTPClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: codex7err.NewCircuitBreaker("embedding-client", codex7err.WithMaxFailures(5), codex7err.WithResetTimeout(30*time.Second)),
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedDatum struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embedResponse struct {
	Data []embedDatum `json:"data"`
}

// EmbedBatch embeds texts in batches of at most MaxBatchSize, truncating
// each text to MaxInputChars first, and returns one unit-normalized
// vector per input in the same order.
func (c *HTTPClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, codex7err.EmbeddingUnavailable("embedding client is closed", nil)
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, MaxBatchSize) {
		prepared := make([]string, len(batch))
		for i, t := range batch {
			prepared[i] = truncate(t)
		}

		vectors, err := c.embedOneBatch(ctx, prepared)
		if err != nil {
			return nil, err
		}
		results = append(results, vectors...)
	}

	return results, nil
}

// embedOneBatch issues a single upstream call through the retry policy
// and circuit breaker, mapping failures to the embedding error taxonomy.
func (c *HTTPClient) embedOneBatch(ctx context.Context, texts []string) ([][]float32, error) {
	retryCfg := codex7err.RetryConfig{
		MaxRetries:   c.cfg.MaxRetries,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}

	vectors, err := codex7err.RetryWithResult(ctx, retryCfg, func() ([][]float32, error) {
		if !c.breaker.Allow() {
			return nil, codex7err.EmbeddingUnavailable("embedding service circuit open", codex7err.ErrCircuitOpen)
		}

		vecs, callErr := c.doRequest(ctx, texts)
		if callErr != nil {
			c.breaker.RecordFailure()
			return nil, callErr
		}
		c.breaker.RecordSuccess()
		return vecs, nil
	})
	if err != nil {
		// Propagate the already-classified Error from the last attempt
		// rather than the generic "failed after N retries" wrapper.
		if codex7Err, ok := lastCodex7Error(err); ok {
			return nil, codex7Err
		}
		return nil, codex7err.EmbeddingUnavailable("embedding request failed", err)
	}
	return vectors, nil
}

// doRequest performs one HTTP call and classifies the outcome:
// transport failures and non-2xx status become EmbeddingUnavailable
// (retryable), malformed response bodies become EmbeddingProtocolError
// (fatal).
func (c *HTTPClient) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embedRequest{Model: c.cfg.Model, Input: texts}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, codex7err.EmbeddingProtocolError("failed to encode embedding request", err)
	}

	url := c.cfg.BaseURL + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, codex7err.EmbeddingUnavailable("failed to build embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, codex7err.EmbeddingUnavailable("embedding service unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, codex7err.EmbeddingUnavailable(
			fmt.Sprintf("embedding service returned status %d", resp.StatusCode),
			fmt.Errorf("%s", string(respBody)),
		)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, codex7err.EmbeddingProtocolError("malformed embedding response", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, codex7err.EmbeddingProtocolError(
			fmt.Sprintf("embedding response length %d does not match request length %d", len(parsed.Data), len(texts)),
			nil,
		)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, codex7err.EmbeddingProtocolError("embedding response index out of range", nil)
		}
		if len(d.Embedding) != Dimensions {
			return nil, codex7err.EmbeddingProtocolError(
				fmt.Sprintf("embedding dimension %d does not match expected %d", len(d.Embedding), Dimensions),
				nil,
			)
		}
		vectors[d.Index] = normalizeVector(d.Embedding)
	}
	return vectors, nil
}

// lastCodex7Error unwraps err looking for a *codex7err.Error, since
// Retry/RetryWithResult wrap the final failure in a generic message.
func lastCodex7Error(err error) (*codex7err.Error, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*codex7err.Error); ok {
			return e, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// Dimensions returns the fixed embedding width produced by this client.
func (c *HTTPClient) Dimensions() int {
	return Dimensions
}

// ModelName returns the configured upstream model identifier.
func (c *HTTPClient) ModelName() string {
	return c.cfg.Model
}

// Available performs a lightweight embed of a single short text to
// check whether the upstream service currently responds.
func (c *HTTPClient) Available(ctx context.Context) bool {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return false
	}
	_, err := c.doRequest(ctx, []string{"ping"})
	return err == nil
}

// Close marks the client closed; subsequent calls return
// EmbeddingUnavailable without reaching the network.
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

package errors_test

import (
	"errors"
	"testing"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndRetryable(t *testing.T) {
	e := codex7err.New(codex7err.KindEmbeddingUnavailable, "timed out", nil)
	assert.Equal(t, codex7err.CategoryNetwork, e.Category)
	assert.True(t, e.Retryable)
	assert.Equal(t, codex7err.SeverityWarning, e.Severity)
}

func TestNew_StoragePermanentIsFatalAndNotRetryable(t *testing.T) {
	e := codex7err.StoragePermanent("disk full", nil)
	assert.Equal(t, codex7err.SeverityFatal, e.Severity)
	assert.False(t, e.Retryable)
}

func TestError_IsMatchesByKind(t *testing.T) {
	a := codex7err.NotFound("library missing", nil)
	b := codex7err.NotFound("version missing", nil)
	assert.True(t, errors.Is(a, b))

	c := codex7err.ValidationFailed("bad query", nil)
	assert.False(t, errors.Is(a, c))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := codex7err.Wrap(codex7err.KindStorageTransient, cause)
	require.NotNil(t, wrapped)
	assert.ErrorIs(t, wrapped, cause)
}

func TestError_WithDetailAndSuggestion(t *testing.T) {
	e := codex7err.ValidationFailed("empty query", nil).
		WithDetail("field", "query").
		WithSuggestion("pass a non-empty query string")
	assert.Equal(t, "query", e.Details["field"])
	assert.Equal(t, "pass a non-empty query string", e.Suggestion)
}

func TestIsRetryable_NonCodex7Error(t *testing.T) {
	assert.False(t, codex7err.IsRetryable(errors.New("plain")))
	assert.False(t, codex7err.IsRetryable(nil))
}

func TestGetKind(t *testing.T) {
	assert.Equal(t, codex7err.KindLibraryBusy, codex7err.GetKind(codex7err.LibraryBusy("busy", nil)))
	assert.Equal(t, codex7err.Kind(""), codex7err.GetKind(errors.New("plain")))
}

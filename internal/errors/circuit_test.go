package errors_test

import (
	"testing"
	"time"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := codex7err.NewCircuitBreaker("embedding", codex7err.WithMaxFailures(2), codex7err.WithResetTimeout(50*time.Millisecond))

	boom := func() error { return assertErr }
	require.Error(t, cb.Execute(boom))
	assert.Equal(t, codex7err.StateClosed, cb.State())
	require.Error(t, cb.Execute(boom))
	assert.Equal(t, codex7err.StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, codex7err.ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := codex7err.NewCircuitBreaker("embedding", codex7err.WithMaxFailures(1), codex7err.WithResetTimeout(10*time.Millisecond))
	require.Error(t, cb.Execute(func() error { return assertErr }))
	require.Equal(t, codex7err.StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, codex7err.StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, codex7err.StateClosed, cb.State())
}

var assertErr = codex7err.EmbeddingUnavailable("service down", nil)

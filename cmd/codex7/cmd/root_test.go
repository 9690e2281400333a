package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	codex7err "github.com/codex7/codex7/internal/errors"
)

func TestExitCode_ReturnsAttachedCode(t *testing.T) {
	err := exitErr(3, errors.New("upstream unavailable"))
	code, ok := ExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, 3, code)
}

func TestExitCode_UnwrapsThroughWrappedError(t *testing.T) {
	err := fmt.Errorf("indexing: %w", exitErr(2, errors.New("no snippets produced")))
	code, ok := ExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, 2, code)
}

func TestExitCode_FalseForPlainError(t *testing.T) {
	_, ok := ExitCode(errors.New("plain"))
	assert.False(t, ok)
}

func TestCodeForIndexError_MapsKindsToExitCodes(t *testing.T) {
	assert.Equal(t, 1, codeForIndexError(codex7err.ConfigInvalid("bad config", nil)))
	assert.Equal(t, 2, codeForIndexError(codex7err.ValidationFailed("no snippets", nil)))
	assert.Equal(t, 3, codeForIndexError(codex7err.EmbeddingUnavailable("down", nil)))
	assert.Equal(t, 4, codeForIndexError(errors.New("some other storage failure")))
}

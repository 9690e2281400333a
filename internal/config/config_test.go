package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Retrieval.DefaultTokenBudget, cfg.Retrieval.DefaultTokenBudget)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FileValuesOverrideDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex7.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nretrieval:\n  default_token_budget: 8000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8000, cfg.Retrieval.DefaultTokenBudget)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex7.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))
	t.Setenv("CODEX7_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_MalformedFileIsConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex7.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_RejectsBadMigrationStrategy(t *testing.T) {
	cfg := Default()
	cfg.Database.MigrationStrategy = "bogus"
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsUndersizedTokenBudget(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.DefaultTokenBudget = 100
	assert.Error(t, Validate(cfg))
}

func TestEmbeddingConfigured_RequiresBaseURLAndAPIKey(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.EmbeddingConfigured())
	cfg.Embedding.BaseURL = "https://api.example.com/v1"
	cfg.Embedding.APIKey = "sk-test"
	assert.True(t, cfg.EmbeddingConfigured())
}

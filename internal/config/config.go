// Package config loads Codex7's application/server configuration: a
// versioned YAML document with nested sections, overridable by
// environment variables that always win over the file, matching the
// precedence the teacher documents (file defaults -> project override
// -> env highest priority).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/codex7/codex7/internal/store"
)

// Config is the complete application configuration: every section the
// indexing coordinator, the retrieval engine, and the MCP bridge need to
// construct their dependencies.
type Config struct {
	Version    int              `yaml:"version"`
	Database   DatabaseConfig   `yaml:"database"`
	Vector     VectorConfig     `yaml:"vector"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	LogLevel   string           `yaml:"log_level"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	// Path is the relational store location. Empty means an in-memory
	// database (used by tests and by `codex7 search` one-shot runs
	// against a freshly-opened index file).
	Path string `yaml:"path"`

	// MigrationStrategy is "auto" (bring schema up to date idempotently)
	// or "manual" (refuse to connect below CurrentSchemaVersion).
	MigrationStrategy string `yaml:"migration_strategy"`
}

// VectorConfig configures the vector store. Codex7's vector backend is
// the in-process coder/hnsw graph (see internal/store.HNSWVectorStore),
// so URL/APIKey are carried for configuration-surface compatibility with
// a future remote backend but are not read by the in-process store;
// `codex7 doctor` reports them as configured-but-unused in that mode.
type VectorConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// EmbeddingConfig configures the remote embedding service adapter.
type EmbeddingConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Model is the upstream embedding model identifier. Defaults to an
	// equivalent of a 1536-dimension small embedding model.
	Model string `yaml:"model"`
}

// RetrievalConfig bounds default pagination and token budgets.
type RetrievalConfig struct {
	DefaultPageLimit   int `yaml:"default_page_limit"`
	DefaultTokenBudget int `yaml:"default_token_budget"`
}

// TimeoutsConfig bounds every external call the engine makes.
// Durations are expressed in milliseconds in the YAML file, matching
// the "database query 10s, embedding request 60s, full MCP request 30s"
// defaults. No environment variable overrides them.
type TimeoutsConfig struct {
	DatabaseMs   int `yaml:"database_ms"`
	EmbeddingMs  int `yaml:"embedding_ms"`
	MCPRequestMs int `yaml:"mcp_request_ms"`
}

// Default returns the configuration used when no file and no
// environment overrides are present.
func Default() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			Path:              "",
			MigrationStrategy: string(store.MigrationAuto),
		},
		Vector: VectorConfig{},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Retrieval: RetrievalConfig{
			DefaultPageLimit:   50,
			DefaultTokenBudget: 5000,
		},
		Timeouts: TimeoutsConfig{
			DatabaseMs:   10000,
			EmbeddingMs:  60000,
			MCPRequestMs: 30000,
		},
		LogLevel: "info",
	}
}

// Load reads path (if non-empty and present) over Default(), then
// applies environment variable overrides, which always win. A missing
// file is not an error; a malformed file is ConfigInvalid.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if yamlErr := yaml.Unmarshal(data, cfg); yamlErr != nil {
				return nil, codex7err.ConfigInvalid("malformed config file "+path, yamlErr)
			}
		} else if !os.IsNotExist(err) {
			return nil, codex7err.ConfigInvalid("failed to read config file "+path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides mutates cfg in place with any CODEX7_* environment
// variables present, matching the teacher's "env wins" precedence.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODEX7_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CODEX7_MIGRATION_STRATEGY"); v != "" {
		cfg.Database.MigrationStrategy = v
	}
	if v := os.Getenv("CODEX7_VECTOR_URL"); v != "" {
		cfg.Vector.URL = v
	}
	if v := os.Getenv("CODEX7_VECTOR_API_KEY"); v != "" {
		cfg.Vector.APIKey = v
	}
	if v := os.Getenv("CODEX7_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("CODEX7_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("CODEX7_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("CODEX7_DEFAULT_PAGE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.DefaultPageLimit = n
		}
	}
	if v := os.Getenv("CODEX7_DEFAULT_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.DefaultTokenBudget = n
		}
	}
	if v := os.Getenv("CODEX7_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

// Validate rejects a Config that would fail at startup, mapping to
// ConfigInvalid per the error taxonomy (fatal at startup).
func Validate(cfg *Config) error {
	switch store.MigrationStrategy(cfg.Database.MigrationStrategy) {
	case store.MigrationAuto, store.MigrationManual:
	default:
		return codex7err.ConfigInvalid("migration_strategy must be \"auto\" or \"manual\", got "+cfg.Database.MigrationStrategy, nil)
	}
	if cfg.Retrieval.DefaultTokenBudget < 1000 {
		return codex7err.ConfigInvalid("retrieval.default_token_budget must be >= 1000", nil)
	}
	if cfg.Embedding.Model == "" {
		return codex7err.ConfigInvalid("embedding.model must not be empty", nil)
	}
	return nil
}

// DatabaseTimeout, EmbeddingTimeout, and MCPRequestTimeout expose the
// millisecond fields as time.Duration at the call sites that need them.
func (c *Config) DatabaseTimeout() time.Duration  { return time.Duration(c.Timeouts.DatabaseMs) * time.Millisecond }
func (c *Config) EmbeddingTimeout() time.Duration { return time.Duration(c.Timeouts.EmbeddingMs) * time.Millisecond }
func (c *Config) MCPRequestTimeout() time.Duration {
	return time.Duration(c.Timeouts.MCPRequestMs) * time.Millisecond
}

// EmbeddingConfigured reports whether enough is present for the
// embedding client to be constructed at all (BaseURL and APIKey).
func (c *Config) EmbeddingConfigured() bool {
	return c.Embedding.BaseURL != "" && c.Embedding.APIKey != ""
}

// Package cmd provides the CLI commands for codex7.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codex7/codex7/internal/config"
	"github.com/codex7/codex7/internal/embed"
	"github.com/codex7/codex7/internal/logging"
	"github.com/codex7/codex7/internal/model"
	"github.com/codex7/codex7/internal/store"
	"github.com/codex7/codex7/pkg/version"
)

var (
	cfgFile   string
	debugMode bool
)

// codex7Error carries a deliberate process exit code alongside a
// user-facing message, matching the job runner's documented exit codes.
type codex7Error struct {
	code int
	err  error
}

func (e *codex7Error) Error() string { return e.err.Error() }
func (e *codex7Error) Unwrap() error  { return e.err }

func exitErr(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codex7Error{code: code, err: err}
}

// ExitCode extracts the process exit code main() should use for err, if
// one was attached.
func ExitCode(err error) (int, bool) {
	var ce *codex7Error
	if ok := asCodex7Error(err, &ce); ok {
		return ce.code, true
	}
	return 0, false
}

func asCodex7Error(err error, target **codex7Error) bool {
	for err != nil {
		if ce, ok := err.(*codex7Error); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// NewRootCmd creates the root command for the codex7 CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codex7",
		Short: "Self-hostable documentation knowledge base for AI coding assistants",
		Long: `codex7 ingests a project's documentation into a local library of
topic- and quality-scored snippets, then serves it to AI coding
assistants over the Model Context Protocol.

Run 'codex7 index <path>' to build a library, then 'codex7 serve' to
expose it over MCP.`,
		Version:      version.Version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("codex7 version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to codex7 config file (YAML)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.codex7/logs/")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newVersionsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig loads and validates the application config, wrapping a
// failure as exit code 1 (missing required configuration) per the job
// runner's exit code contract.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, exitErr(1, err)
	}
	return cfg, nil
}

// setupLogging wires file-based logging for a foreground command,
// honoring --debug, and returns a cleanup to defer.
func setupLogging(cfg *config.Config) (*slog.Logger, func(), error) {
	level := cfg.LogLevel
	if debugMode {
		level = "debug"
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	return logging.Setup(logCfg)
}

// openStores opens the relational and vector stores for cfg, applying
// the configured migration strategy.
func openStores(cfg *config.Config) (store.RelationalStore, store.VectorStore, error) {
	rel, err := store.Open(cfg.Database.Path, store.MigrationStrategy(cfg.Database.MigrationStrategy))
	if err != nil {
		return nil, nil, exitErr(4, err)
	}
	vec := store.NewHNSWVectorStore(model.EmbeddingDim)
	return rel, vec, nil
}

// newLocks returns the per-library lock manager, rooted next to the
// relational store so concurrent CLI invocations against the same
// database see the same locks.
func newLocks(cfg *config.Config) *store.LibraryLocks {
	dir := cfg.Database.Path
	if dir == "" {
		dir = os.TempDir()
	} else {
		dir = filepath.Dir(dir)
	}
	return store.NewLibraryLocks(dir)
}

// buildEmbedder constructs the embedding client when cfg carries enough
// configuration, wrapped in the response cache. A nil return is valid:
// every caller treats it as "semantic features degrade to full-text".
func buildEmbedder(cfg *config.Config) embed.Client {
	if !cfg.EmbeddingConfigured() {
		return nil
	}
	httpCfg := embed.DefaultConfig()
	httpCfg.BaseURL = cfg.Embedding.BaseURL
	httpCfg.APIKey = cfg.Embedding.APIKey
	httpCfg.Model = cfg.Embedding.Model
	httpCfg.Timeout = cfg.EmbeddingTimeout()

	client := embed.NewHTTPClient(httpCfg)
	return embed.NewCachedClient(client, embed.DefaultCacheSize)
}

func fatalf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codex7/codex7/internal/logging"
	"github.com/codex7/codex7/internal/mcpserver"
	"github.com/codex7/codex7/internal/retrieval"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve indexed documentation over the Model Context Protocol",
		Long: `Serve starts codex7's MCP server on stdio, exposing resolve-library-id,
get-library-docs, get-local-docs, get-library-versions, and
search-documentation to any MCP-speaking client.

All logging is redirected to a file: the stdio transport uses stdout
exclusively for JSON-RPC frames, so nothing may be written there.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			cleanup, err := logging.SetupMCPMode()
			if err != nil {
				return exitErr(4, err)
			}
			defer cleanup()

			rel, vec, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer rel.Close()
			defer vec.Close()

			engine := &retrieval.Engine{
				Relational: rel,
				Vector:     vec,
				Embedder:   buildEmbedder(cfg),
			}

			srv := mcpserver.NewServer(engine, rel, nil)
			if err := srv.Run(ctx); err != nil {
				return exitErr(4, err)
			}
			return nil
		},
	}
	return cmd
}

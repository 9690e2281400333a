package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codex7/codex7/internal/logging"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that codex7's configuration and dependencies are healthy",
		Long: `Doctor validates the configuration file, opens the relational store,
checks the embedding service if one is configured, and reports where
logs are written. Opening the relational store applies the configured
migration strategy, so a missing database file or schema is created.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				fmt.Println("config:          FAIL -", err)
				return exitErr(1, err)
			}
			fmt.Println("config:          OK")

			rel, vec, err := openStores(cfg)
			if err != nil {
				fmt.Println("relational store: FAIL -", err)
				return exitErr(4, err)
			}
			defer rel.Close()
			defer vec.Close()
			fmt.Println("relational store: OK", "(", cfg.Database.Path, ")")
			fmt.Println("vector store:     OK (in-process hnsw)")

			if cfg.Vector.URL != "" {
				fmt.Println("vector.url:       configured but unused by the in-process hnsw backend")
			}

			if !cfg.EmbeddingConfigured() {
				fmt.Println("embedding:        not configured, semantic search degrades to full-text")
			} else {
				embedder := buildEmbedder(cfg)
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				defer cancel()
				if embedder.Available(ctx) {
					fmt.Println("embedding:        OK (" + embedder.ModelName() + ")")
				} else {
					fmt.Println("embedding:        unreachable, semantic search will degrade to full-text")
				}
			}

			fmt.Println("logs:            ", logging.DefaultLogPath())
			return nil
		},
	}
	return cmd
}

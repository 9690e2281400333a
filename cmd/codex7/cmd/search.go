package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codex7/codex7/internal/retrieval"
)

func newSearchCmd() *cobra.Command {
	var (
		library  string
		version  string
		codeOnly bool
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a one-shot hybrid search against the local index",
		Long: `Search runs the same hybrid vector-plus-full-text retrieval the MCP
server's search-documentation tool uses, printing ranked results to
the terminal instead of over the protocol.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, cleanup, err := setupLogging(cfg)
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

			engine := &retrieval.Engine{Relational: rel, Vector: vec, Embedder: buildEmbedder(cfg)}

			hits, err := engine.SearchDocumentation(cmd.Context(), retrieval.HybridOptions{
				Query:     args[0],
				LibraryID: library,
				VersionID: version,
				CodeOnly:  codeOnly,
				Limit:     limit,
			})
			if err != nil {
				return exitErr(4, err)
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(hits)
			}

			printHits(hits)
			return nil
		},
	}

	cmd.Flags().StringVar(&library, "library", "", "restrict results to this library id")
	cmd.Flags().StringVar(&version, "version", "", "restrict results to this version id")
	cmd.Flags().BoolVar(&codeOnly, "code-only", false, "restrict results to code example snippets")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")

	return cmd
}

func printHits(hits []retrieval.Hit) {
	if len(hits) == 0 {
		fmt.Println("no results")
		return
	}
	for i, h := range hits {
		fmt.Printf("%d. %s  (score %.3f, %s)\n", i+1, h.Snippet.Title, h.Blended, h.Snippet.SourceFile)
	}
}

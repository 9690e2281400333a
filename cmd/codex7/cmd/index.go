package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codex7/codex7/internal/cliui"
	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/codex7/codex7/internal/indexer"
	"github.com/codex7/codex7/internal/ingest"
	"github.com/codex7/codex7/internal/model"
)

func newIndexCmd() *cobra.Command {
	var (
		org, project, ver, commit string
		keywords                  []string
		useLLMTopics              bool
		noTUI                     bool
		noColor                   bool
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory of documentation into a codex7 library",
		Long: `Index scans a directory for a codex7 project config and markdown
sources, chunks them into snippets, scores each snippet's quality and
topics, embeds them when an embedding service is configured, and
writes the result to the local store as one library version.

Indexing a second time for the same library replaces the library
wholesale: its vectors and its library row (with every version,
document and snippet under it) are deleted before the new ones are
written, so readers can see an empty library while the run is in
progress.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			root, err := filepath.Abs(path)
			if err != nil {
				return exitErr(1, fmt.Errorf("resolving path: %w", err))
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, cleanup, err := setupLogging(cfg)
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

			embedder := buildEmbedder(cfg)

			coord := &indexer.Coordinator{
				Relational: rel,
				Vector:     vec,
				Embedder:   embedder,
				Locks:      newLocks(cfg),
			}

			renderer := cliui.NewRenderer(cliui.Config{
				Output:     os.Stderr,
				ForcePlain: noTUI,
				NoColor:    noColor,
				ProjectDir: root,
			})
			_ = renderer.Start(ctx)
			started := time.Now()

			req := indexer.Request{
				Root:                root,
				Org:                 org,
				Project:             project,
				VersionString:       ver,
				GitCommitSHA:        commit,
				UseLLMTopicFallback: useLLMTopics,
				Overrides: ingest.Overrides{
					Keywords: keywords,
				},
			}

			renderer.Update(cliui.Event{Stage: cliui.StageScanning, Message: root})
			job, err := coord.Run(ctx, req)
			if err != nil {
				_ = renderer.Stop()
				logger.Error("indexing failed to start", "error", err)
				return exitErr(codeForIndexError(err), err)
			}

			snippetCount := 0
			if snippets, listErr := rel.ListSnippetsByLibrary(ctx, job.LibraryID); listErr == nil {
				snippetCount = len(snippets)
			}

			renderer.Update(cliui.Event{
				Stage: cliui.StageStoring, Current: job.ProcessedDocuments, Total: job.TotalDocuments,
			})
			renderer.Complete(cliui.Stats{
				Files:    job.ProcessedDocuments,
				Snippets: snippetCount,
				Duration: time.Since(started),
				Errors:   job.FailedDocuments,
			})
			_ = renderer.Stop()

			if job.Status != model.JobStatusCompleted {
				err := codex7err.ValidationFailed("indexing produced no snippets: "+job.Error, nil)
				return exitErr(2, err)
			}

			fmt.Printf("indexed /%s/%s@%s: %d snippets\n", org, project, ver, snippetCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organization or namespace the library belongs to (required)")
	cmd.Flags().StringVar(&project, "project", "", "project name within the organization (required)")
	cmd.Flags().StringVar(&ver, "version", "", "version label for this indexing run (required)")
	cmd.Flags().StringVar(&commit, "commit", "", "git commit SHA this index was built from, if any")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "additional keyword to attach to the library (repeatable)")
	cmd.Flags().BoolVar(&useLLMTopics, "llm-topics", false, "fall back to an LLM topic suggester when header scanning finds no topics")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the live progress view, print plain log lines instead")
	cmd.Flags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}

// codeForIndexError maps a coordinator start failure to the job
// runner's exit codes.
func codeForIndexError(err error) int {
	switch codex7err.GetKind(err) {
	case codex7err.KindConfigInvalid:
		return 1
	case codex7err.KindValidationFailed:
		return 2
	case codex7err.KindEmbeddingUnavailable:
		return 3
	default:
		return 4
	}
}

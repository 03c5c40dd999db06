package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexgetty/roux/internal/config"
	"github.com/alexgetty/roux/internal/engine"
	"github.com/alexgetty/roux/internal/ui"
)

func newSyncCmd() *cobra.Command {
	var vaultPath string
	var noColor bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Index a vault and backfill embeddings once",
		Long: `Run a one-shot sync: enumerate the vault, parse frontmatter and wiki-links,
rebuild the graph, then backfill embeddings for any node missing one. This
is the same pass 'roux serve' runs on startup, without starting a server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), cmd, vaultPath, noColor)
		},
	}

	cmd.Flags().StringVar(&vaultPath, "path", ".", "Vault root directory")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, path string, noColor bool) error {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return fmt.Errorf("resolve vault root: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithNoColor(noColor), ui.WithProjectDir(root)))
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("start renderer: %w", err)
	}
	defer func() { _ = renderer.Stop() }()

	eng, err := engine.Open(ctx, cfg, engine.Dependencies{}, nil)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	start := time.Now()
	syncErr := eng.Sync(ctx)
	if syncErr != nil {
		renderer.AddError(ui.ErrorEvent{Err: syncErr})
		return fmt.Errorf("sync: %w", syncErr)
	}

	backfillErr := eng.Backfill(ctx)
	if backfillErr != nil {
		renderer.AddError(ui.ErrorEvent{Err: backfillErr, IsWarn: true})
	}

	snap := eng.Progress().Snapshot()

	embedder := embeddingInfoForCLI(eng)
	renderer.Complete(ui.CompletionStats{
		Files:      snap.FilesProcessed,
		Embeddings: snap.EmbeddingsBackfilled,
		Duration:   time.Since(start),
		Warnings:   boolToCount(backfillErr != nil),
		Embedder:   embedder,
	})

	return nil
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

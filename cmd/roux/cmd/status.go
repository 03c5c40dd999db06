package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alexgetty/roux/internal/cache"
	"github.com/alexgetty/roux/internal/config"
	"github.com/alexgetty/roux/internal/engine"
	"github.com/alexgetty/roux/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var vaultPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show vault index health and status",
		Long: `Display information about the vault's index, including:
  - Number of files and resolved nodes
  - Storage sizes (cache, vectors)
  - Embedding provider status (kind, model, availability)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, vaultPath, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&vaultPath, "path", ".", "Vault root directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, path string, jsonOutput bool) error {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return fmt.Errorf("resolve vault root: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	info, err := collectStatus(cmd, cfg, root)
	if err != nil {
		return fmt.Errorf("collect status: %w", err)
	}

	noColor := ui.DetectNoColor()
	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)

	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func collectStatus(cmd *cobra.Command, cfg *config.Config, root string) (ui.StatusInfo, error) {
	info := ui.StatusInfo{
		ProjectName: filepath.Base(root),
	}

	eng, err := engine.Open(cmd.Context(), cfg, engine.Dependencies{}, nil)
	if err != nil {
		return info, fmt.Errorf("open engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	if err := eng.Sync(cmd.Context()); err != nil {
		return info, fmt.Errorf("sync: %w", err)
	}

	_, total, err := eng.ListNodes(cmd.Context(), cache.ListFilter{}, 0, 1)
	if err != nil {
		return info, fmt.Errorf("list nodes: %w", err)
	}
	info.TotalFiles = total
	info.TotalNodes = eng.Graph().NodeCount()

	info.CacheSize = fileSize(filepath.Join(cfg.Cache.Path, "cache.db"))
	info.VectorSize = fileSize(filepath.Join(cfg.Cache.Path, "vectors.db"))
	info.TotalSize = info.CacheSize + info.VectorSize

	embedder := embeddingInfoForCLI(eng)
	info.EmbedderType = embedder.Backend
	info.EmbedderModel = embedder.Model
	info.EmbedderStatus = embedderStatus(embedder)
	info.WatcherStatus = "n/a"

	return info, nil
}

func embedderStatus(info ui.EmbedderInfo) string {
	if info.Backend == "none" {
		return "offline"
	}
	return "ready"
}

func embeddingInfoForCLI(eng *engine.Engine) ui.EmbedderInfo {
	emb := eng.Embedder()
	if emb == nil {
		return ui.EmbedderInfo{Backend: "none"}
	}
	backend := "local"
	if emb.ModelName() == "static" {
		backend = "static"
	}
	return ui.EmbedderInfo{
		Backend:    backend,
		Model:      emb.ModelName(),
		Dimensions: emb.Dimensions(),
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

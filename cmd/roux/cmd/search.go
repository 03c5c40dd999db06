package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexgetty/roux/internal/config"
	"github.com/alexgetty/roux/internal/engine"
)

type searchOptions struct {
	limit      int
	format     string // "text", "json"
	vaultPath  string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the vault",
		Long: `Search vault nodes by title, content, or (when an embedding provider is
configured) semantic similarity.

Examples:
  roux search "authentication"
  roux search "project roadmap" --limit 5
  roux search "database schema" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.vaultPath, "path", ".", "Vault root directory")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	root, err := config.FindProjectRoot(opts.vaultPath)
	if err != nil {
		return fmt.Errorf("resolve vault root: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, err := engine.Open(ctx, cfg, engine.Dependencies{}, nil)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	if err := eng.Sync(ctx); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	results, err := eng.Search(ctx, query, opts.limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "No results found for %q\n", query)
		return err
	}

	switch opts.format {
	case "json":
		return formatSearchJSON(cmd, results)
	default:
		return formatSearchText(cmd, query, results)
	}
}

func formatSearchText(cmd *cobra.Command, query string, results []engine.NodeResult) error {
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "Found %d results for %q:\n\n", len(results), query); err != nil {
		return err
	}

	for i, r := range results {
		if _, err := fmt.Fprintf(out, "%d. %s (score: %.2f)\n", i+1, r.ID, r.Score); err != nil {
			return err
		}
		if r.Title != "" && r.Title != r.ID {
			if _, err := fmt.Fprintf(out, "   %s\n", r.Title); err != nil {
				return err
			}
		}
		for _, line := range snippet(r.Content, 3) {
			if _, err := fmt.Fprintf(out, "   %s\n", line); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
	}

	return nil
}

func formatSearchJSON(cmd *cobra.Command, results []engine.NodeResult) error {
	type jsonResult struct {
		ID    string   `json:"id"`
		Title string   `json:"title"`
		Tags  []string `json:"tags,omitempty"`
		Score float64  `json:"score"`
	}

	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		out = append(out, jsonResult{ID: r.ID, Title: r.Title, Tags: r.Tags, Score: r.Score})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

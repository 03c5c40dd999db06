package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexgetty/roux/internal/config"
	"github.com/alexgetty/roux/internal/engine"
	"github.com/alexgetty/roux/internal/logging"
	mcptool "github.com/alexgetty/roux/internal/mcptool"
)

func newServeCmd() *cobra.Command {
	var vaultPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over the vault",
		Long: `Start the Model Context Protocol server for a markdown vault, communicating
over stdio. Logging is redirected to a file (~/.roux/logs/server.log)
since the stdio transport requires stdout exclusively for JSON-RPC.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), vaultPath)
		},
	}

	cmd.Flags().StringVar(&vaultPath, "path", ".", "Vault root directory")

	return cmd
}

func runServe(ctx context.Context, path string) error {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return fmt.Errorf("resolve vault root: %w", err)
	}

	cleanup, err := logging.SetupMCPMode()
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

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
		return fmt.Errorf("initial sync: %w", err)
	}

	if err := eng.StartWatching(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	srv, err := mcptool.NewServer(eng, cfg, root, nil)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	if err := srv.RegisterResources(ctx); err != nil {
		return fmt.Errorf("register resources: %w", err)
	}

	return srv.Serve(ctx, cfg.Server.Transport)
}

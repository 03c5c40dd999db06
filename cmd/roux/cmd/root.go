// Package cmd provides the CLI commands for Roux.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alexgetty/roux/internal/logging"
	"github.com/alexgetty/roux/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the roux CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roux",
		Short: "Local-first knowledge-graph engine over markdown notes",
		Long: `Roux indexes a directory of markdown notes into a wiki-link graph with
optional semantic search, and exposes it to AI assistants over the Model
Context Protocol.

Run 'roux serve' in a vault directory to start the MCP server, or use
'roux sync'/'roux search'/'roux status' for one-shot CLI operations.`,
		Version: version.Version,
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate("roux version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.roux/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug file logging if --debug was passed. Outside
// of MCP stdio mode this is safe to mix with stderr.
func startLogging(cmd *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

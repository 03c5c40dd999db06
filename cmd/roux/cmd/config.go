package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexgetty/roux/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the user-global configuration file",
		Long: `Manage the user/global configuration file at ~/.config/roux/config.yaml
(or $XDG_CONFIG_HOME/roux/config.yaml): back it up, list its backups, or
restore one. Loading a vault does not read this file; per-vault settings
live in each vault's roux.yaml.`,
	}

	cmd.AddCommand(newConfigBackupCmd())
	cmd.AddCommand(newConfigListBackupsCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Back up the user configuration file",
		Long:  `Create a timestamped copy of the user configuration file, keeping the most recent backups and pruning the rest.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigBackup(cmd)
		},
	}
}

func newConfigListBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-backups",
		Short: "List user configuration backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigListBackups(cmd)
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-path>",
		Short: "Restore the user configuration from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigRestore(cmd, args[0])
		},
	}
}

func runConfigBackup(cmd *cobra.Command) error {
	path, err := config.BackupUserConfig()
	if err != nil {
		return fmt.Errorf("backup user config: %w", err)
	}
	if path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No user configuration file to back up.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backed up user configuration to %s\n", path)
	return nil
}

func runConfigListBackups(cmd *cobra.Command) error {
	backups, err := config.ListUserConfigBackups()
	if err != nil {
		return fmt.Errorf("list config backups: %w", err)
	}
	if len(backups) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No configuration backups found.")
		return nil
	}
	for _, b := range backups {
		fmt.Fprintln(cmd.OutOrStdout(), b)
	}
	return nil
}

func runConfigRestore(cmd *cobra.Command, backupPath string) error {
	if err := config.RestoreUserConfig(backupPath); err != nil {
		return fmt.Errorf("restore user config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored user configuration from %s\n", backupPath)
	return nil
}

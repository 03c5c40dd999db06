package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexgetty/roux/internal/config"
)

func withTestUserConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "roux")
}

func TestNewConfigCmd_HasSubcommands(t *testing.T) {
	cmd := newConfigCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["backup"])
	assert.True(t, names["list-backups"])
	assert.True(t, names["restore"])
}

func TestRunConfigBackup_NoConfigReportsNothingToBackUp(t *testing.T) {
	withTestUserConfigDir(t)

	cmd := newConfigBackupCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No user configuration file to back up")
}

func TestRunConfigBackup_BacksUpExistingConfig(t *testing.T) {
	configDir := withTestUserConfigDir(t)
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	configPath := config.GetUserConfigPath()
	require.NoError(t, os.WriteFile(configPath, []byte("providers:\n  embedding:\n    kind: none\n"), 0o644))

	cmd := newConfigBackupCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Backed up user configuration to")

	backups, err := config.ListUserConfigBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestRunConfigListBackups_EmptyReportsNone(t *testing.T) {
	withTestUserConfigDir(t)

	cmd := newConfigListBackupsCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No configuration backups found")
}

func TestRunConfigRestore_RoundTripsBackedUpContent(t *testing.T) {
	configDir := withTestUserConfigDir(t)
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	configPath := config.GetUserConfigPath()
	original := "providers:\n  embedding:\n    kind: local\n"
	require.NoError(t, os.WriteFile(configPath, []byte(original), 0o644))

	backupPath, err := config.BackupUserConfig()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(configPath, []byte("providers:\n  embedding:\n    kind: none\n"), 0o644))

	cmd := newConfigRestoreCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{backupPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Restored user configuration from")

	restored, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(restored))
}

func TestRunConfigRestore_MissingBackupFails(t *testing.T) {
	withTestUserConfigDir(t)

	cmd := newConfigRestoreCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nonexistent.bak")})

	require.Error(t, cmd.Execute())
}

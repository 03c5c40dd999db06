package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestVaultFile(t *testing.T, root, relPath, body string) {
	t.Helper()
	abs := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(body), 0o644))
}

func newTestVault(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestVaultFile(t, dir, "alpha.md", "---\ntitle: Alpha\ntags: [one]\n---\nlinks to [[beta]]\n")
	writeTestVaultFile(t, dir, "beta.md", "---\ntitle: Beta\ntags: [two]\n---\nno links\n")
	return dir
}

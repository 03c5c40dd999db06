package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexgetty/roux/internal/cache"
	"github.com/alexgetty/roux/internal/config"
	"github.com/alexgetty/roux/internal/engine"
	"github.com/alexgetty/roux/internal/graph"
	"github.com/alexgetty/roux/internal/vectorindex"
)

// Integration tests exercise the full flow from a markdown vault on disk
// through sync to search and graph queries, verifying the engine's
// components work together the way the CLI and MCP server depend on.

func newTestEngine(t *testing.T, dir string) *engine.Engine {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Source.Path = dir
	cfg.Cache.Path = dir

	c, err := cache.Open(":memory:")
	require.NoError(t, err)
	vi, err := vectorindex.Open(":memory:")
	require.NoError(t, err)

	eng, err := engine.Open(context.Background(), cfg, engine.Dependencies{Cache: c, VIndex: vi}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func writeVaultFile(t *testing.T, dir, relPath, body string) {
	t.Helper()
	path := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestIntegration_SyncAndSearch_FindsResults(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	writeVaultFile(t, dir, "handler.md", "---\ntitle: HTTP Handler\ntags: [http, server]\n---\nThe handler processes incoming HTTP requests.\n")
	writeVaultFile(t, dir, "util.md", "---\ntitle: Utility Functions\ntags: [helpers]\n---\nFormats and validates strings. See [[handler]].\n")

	eng := newTestEngine(t, dir)
	ctx := context.Background()
	require.NoError(t, eng.Sync(ctx))

	results, err := eng.Search(ctx, "HTTP", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results, "search should find results")

	foundHandler := false
	for _, r := range results {
		if r.ID == "handler.md" {
			foundHandler = true
		}
	}
	assert.True(t, foundHandler, "should find handler.md")
}

func TestIntegration_SyncAndSearch_LinksFormGraph(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	writeVaultFile(t, dir, "handler.md", "---\ntitle: HTTP Handler\n---\nSee [[util]] for formatting.\n")
	writeVaultFile(t, dir, "util.md", "---\ntitle: Utility Functions\n---\nNo links here.\n")

	eng := newTestEngine(t, dir)
	ctx := context.Background()
	require.NoError(t, eng.Sync(ctx))

	assert.Equal(t, 2, eng.Graph().NodeCount())

	neighbors, err := eng.GetNeighbors(ctx, "handler.md", graph.DirectionOut, 10)
	require.NoError(t, err)
	require.NotEmpty(t, neighbors)
}

func TestIntegration_DeleteNode_ExcludedFromSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	writeVaultFile(t, dir, "keep.md", "---\ntitle: Keep Me\n---\nThis one stays around.\n")
	writeVaultFile(t, dir, "remove.md", "---\ntitle: Remove Me\n---\nThis one gets removed later.\n")

	eng := newTestEngine(t, dir)
	ctx := context.Background()
	require.NoError(t, eng.Sync(ctx))

	_, err := eng.DeleteNode(ctx, "remove.md")
	require.NoError(t, err)

	results, err := eng.Search(ctx, "Remove", 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "remove.md", r.ID)
	}
}

func TestIntegration_EmptyVault_ReturnsNoResults(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	eng := newTestEngine(t, dir)
	ctx := context.Background()
	require.NoError(t, eng.Sync(ctx))

	results, err := eng.Search(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIntegration_SearchByTags_FiltersResults(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	writeVaultFile(t, dir, "go-note.md", "---\ntitle: Go Note\ntags: [go]\n---\nGo specific content.\n")
	writeVaultFile(t, dir, "py-note.md", "---\ntitle: Python Note\ntags: [python]\n---\nPython specific content.\n")

	eng := newTestEngine(t, dir)
	ctx := context.Background()
	require.NoError(t, eng.Sync(ctx))

	results, err := eng.SearchByTags(ctx, []string{"go"}, "any", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "go-note.md", results[0].ID)
}

func TestIntegration_ConcurrentSearches_NoRace(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeVaultFile(t, dir, filepathJoin("note", i), "---\ntitle: Note\n---\nSome searchable body text.\n")
	}

	eng := newTestEngine(t, dir)
	ctx := context.Background()
	require.NoError(t, eng.Sync(ctx))

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := eng.Search(ctx, "searchable", 5)
			done <- err
		}()
	}

	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}
}

func filepathJoin(prefix string, i int) string {
	return prefix + string(rune('a'+i)) + ".md"
}

func TestIntegration_ConfigLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Providers.Embedding.Kind)
	assert.Equal(t, []string{".md", ".markdown"}, cfg.Extensions)
	assert.Equal(t, filepath.Join(dir, ".roux"), cfg.Cache.Path)
}

func TestIntegration_ConfigLoad_WithFile_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	configContent := "providers:\n  embedding:\n    kind: local\n    model: nomic-embed-text\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roux.yaml"), []byte(configContent), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Providers.Embedding.Kind)
	assert.Equal(t, "nomic-embed-text", cfg.Providers.Embedding.Model)
}

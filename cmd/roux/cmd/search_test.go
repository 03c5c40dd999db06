package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexgetty/roux/internal/engine"
)

func TestNewSearchCmd_RequiresQuery(t *testing.T) {
	cmd := newSearchCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestRunSearch_FindsMatchingTitle(t *testing.T) {
	dir := newTestVault(t)

	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--path", dir, "Alpha"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "alpha.md")
}

func TestRunSearch_NoResults(t *testing.T) {
	dir := newTestVault(t)

	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--path", dir, "nonexistent-term-xyz"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No results found")
}

func TestRunSearch_JSONFormat(t *testing.T) {
	dir := newTestVault(t)

	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--path", dir, "--format", "json", "Alpha"})

	require.NoError(t, cmd.Execute())

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "alpha.md", results[0]["id"])
}

func TestSnippet_TruncatesAndTrimsTrailingBlankLines(t *testing.T) {
	lines := snippet("one\ntwo\nthree\nfour\n\n", 2)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestFormatSearchText_WritesHeader(t *testing.T) {
	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	err := formatSearchText(cmd, "query", []engine.NodeResult{{ID: "a.md", Title: "A", Score: 0.9}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `Found 1 results for "query"`)
}

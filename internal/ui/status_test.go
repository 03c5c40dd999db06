package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusInfo_Zero(t *testing.T) {
	info := StatusInfo{}

	assert.Empty(t, info.ProjectName)
	assert.Equal(t, 0, info.TotalFiles)
	assert.Equal(t, 0, info.TotalNodes)
	assert.True(t, info.LastIndexed.IsZero())
}

func TestStatusInfo_JSONSerialization(t *testing.T) {
	info := StatusInfo{
		ProjectName:    "my-vault",
		TotalFiles:     100,
		TotalNodes:     95,
		LastIndexed:    time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		CacheSize:      1024 * 1024,
		VectorSize:     10 * 1024 * 1024,
		TotalSize:      11 * 1024 * 1024,
		EmbedderType:   "openai",
		EmbedderStatus: "ready",
		EmbedderModel:  "text-embedding-3-small",
		WatcherStatus:  "running",
	}

	data, err := json.Marshal(info)
	require.NoError(t, err)

	var parsed map[string]any
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "my-vault", parsed["project_name"])
	assert.Equal(t, float64(100), parsed["total_files"])
	assert.Equal(t, float64(95), parsed["total_nodes"])
	assert.Equal(t, "openai", parsed["embedder_type"])
	assert.Equal(t, "running", parsed["watcher_status"])
}

func TestStatusRenderer_Render_Basic(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	info := StatusInfo{
		ProjectName:    "my-vault",
		TotalFiles:     50,
		TotalNodes:     48,
		LastIndexed:    time.Now(),
		CacheSize:      512 * 1024,
		VectorSize:     5 * 1024 * 1024,
		TotalSize:      5*1024*1024 + 512*1024,
		EmbedderType:   "openai",
		EmbedderStatus: "ready",
		EmbedderModel:  "text-embedding-3-small",
		WatcherStatus:  "stopped",
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "my-vault")
	assert.Contains(t, output, "50")
	assert.Contains(t, output, "48")
	assert.Contains(t, output, "openai")
	assert.Contains(t, output, "ready")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	info := StatusInfo{
		ProjectName: "json-vault",
		TotalFiles:  25,
		TotalNodes:  25,
	}

	err := r.RenderJSON(info)
	require.NoError(t, err)

	var parsed StatusInfo
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)
	assert.Equal(t, "json-vault", parsed.ProjectName)
	assert.Equal(t, 25, parsed.TotalFiles)
}

func TestStatusRenderer_NoColor(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	info := StatusInfo{
		ProjectName:    "nocolor-vault",
		EmbedderStatus: "ready",
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.NotContains(t, output, "\x1b[")
	assert.NotContains(t, output, "\033[")
}

func TestStatusRenderer_EmbedderOffline(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	info := StatusInfo{
		ProjectName:    "offline-vault",
		EmbedderType:   "none",
		EmbedderStatus: "offline",
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "offline")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{1024 * 1024 * 1024, "1.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatBytes(tt.bytes)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestStatusRenderer_StorageSizes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true) // noColor for easier assertion

	info := StatusInfo{
		ProjectName: "storage-vault",
		CacheSize:   512 * 1024,
		VectorSize:  10 * 1024 * 1024,
		TotalSize:   10*1024*1024 + 512*1024,
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "KB") // cache size
	assert.Contains(t, output, "MB") // vector size
}

package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress_OutputFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{
		Stage:       StageEnumerating,
		Current:     50,
		Total:       100,
		CurrentFile: "notes/project.md",
	})

	output := buf.String()
	assert.Contains(t, output, "[SCAN]")
	assert.Contains(t, output, "50/100")
	assert.Contains(t, output, "notes/project.md")
}

func TestPlainRenderer_UpdateProgress_NoANSICodes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	stages := []Stage{StageEnumerating, StageReading, StageResolving, StageBackfilling, StageComplete}
	for _, stage := range stages {
		r.UpdateProgress(ProgressEvent{
			Stage:   stage,
			Current: 50,
			Total:   100,
			Message: "Processing...",
		})
	}

	output := buf.String()
	assert.NotContains(t, output, "\x1b[", "should not contain ANSI escape codes")
	assert.NotContains(t, output, "\033[", "should not contain ANSI escape codes")
}

func TestPlainRenderer_UpdateProgress_WithMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{
		Stage:   StageBackfilling,
		Current: 100,
		Total:   200,
		Message: "Generating embeddings...",
	})

	output := buf.String()
	assert.Contains(t, output, "[EMBED]")
	assert.Contains(t, output, "Generating embeddings...")
}

func TestPlainRenderer_UpdateProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{
		Stage:   StageEnumerating,
		Total:   0,
		Message: "Scanning vault...",
	})

	output := buf.String()
	assert.Contains(t, output, "[SCAN]")
	assert.Contains(t, output, "Scanning vault...")
	assert.NotContains(t, output, "0/0")
}

func TestPlainRenderer_AddError_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{
		File:   "broken.md",
		Err:    errors.New("malformed frontmatter"),
		IsWarn: false,
	})

	output := buf.String()
	assert.Contains(t, output, "ERROR:")
	assert.Contains(t, output, "broken.md")
	assert.Contains(t, output, "malformed frontmatter")
}

func TestPlainRenderer_AddError_Warning(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{
		File:   "large.md",
		Err:    errors.New("file size exceeds limit"),
		IsWarn: true,
	})

	output := buf.String()
	assert.Contains(t, output, "WARN:")
	assert.Contains(t, output, "large.md")
	assert.Contains(t, output, "file size exceeds limit")
}

func TestPlainRenderer_AddError_NoFile(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{
		Err:    errors.New("connection failed"),
		IsWarn: false,
	})

	output := buf.String()
	assert.Contains(t, output, "ERROR:")
	assert.Contains(t, output, "connection failed")
}

func TestPlainRenderer_Complete_Basic(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Complete(CompletionStats{
		Files:      100,
		Embeddings: 500,
		Duration:   5 * time.Second,
		Errors:     0,
		Warnings:   0,
	})

	output := buf.String()
	assert.Contains(t, output, "Complete:")
	assert.Contains(t, output, "100 files")
	assert.Contains(t, output, "500 embeddings")
	assert.Contains(t, output, "5s")
}

func TestPlainRenderer_Complete_WithErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Complete(CompletionStats{
		Files:      95,
		Embeddings: 450,
		Duration:   10 * time.Second,
		Errors:     3,
		Warnings:   2,
	})

	output := buf.String()
	assert.Contains(t, output, "Complete:")
	assert.Contains(t, output, "95 files")
	assert.Contains(t, output, "3 errors")
	assert.Contains(t, output, "2 warnings")
}

func TestPlainRenderer_Complete_NoANSICodes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Complete(CompletionStats{
		Files:      100,
		Embeddings: 500,
		Duration:   5 * time.Second,
		Errors:     2,
		Warnings:   1,
	})

	output := buf.String()
	assert.NotContains(t, output, "\x1b[")
	assert.NotContains(t, output, "\033[")
}

func TestPlainRenderer_StartStop(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	ctx := context.Background()
	err := r.Start(ctx)
	require.NoError(t, err)

	err = r.Stop()
	require.NoError(t, err)
}

func TestPlainRenderer_ThreadSafe(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(n int) {
			r.UpdateProgress(ProgressEvent{
				Stage:   StageEnumerating,
				Current: n,
				Total:   100,
			})
			r.AddError(ErrorEvent{
				File:   "test.md",
				Err:    errors.New("test"),
				IsWarn: n%2 == 0,
			})
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	output := buf.String()
	assert.NotEmpty(t, output)
}

func TestPlainRenderer_AllStages(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	stages := []struct {
		stage Stage
		icon  string
	}{
		{StageEnumerating, "SCAN"},
		{StageReading, "READ"},
		{StageResolving, "LINK"},
		{StageBackfilling, "EMBED"},
	}

	for _, s := range stages {
		r.UpdateProgress(ProgressEvent{
			Stage:   s.stage,
			Current: 50,
			Total:   100,
		})
	}

	output := buf.String()
	for _, s := range stages {
		assert.Contains(t, output, "["+s.icon+"]")
	}
}

func TestPlainRenderer_LongFilePath(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	longPath := strings.Repeat("very/", 20) + "deep/note.md"
	r.UpdateProgress(ProgressEvent{
		Stage:       StageEnumerating,
		Current:     1,
		Total:       10,
		CurrentFile: longPath,
	})

	output := buf.String()
	assert.Contains(t, output, "note.md")
}

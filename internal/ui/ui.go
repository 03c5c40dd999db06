// Package ui provides terminal UI components for progress and status display.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents a sync pipeline stage, mirroring async.IndexingStage.
type Stage int

const (
	// StageEnumerating is the vault file-discovery stage.
	StageEnumerating Stage = iota
	// StageReading is the per-file read/parse stage.
	StageReading
	// StageResolving is the wiki-link resolution and graph-build stage.
	StageResolving
	// StageBackfilling is the post-sync embedding backfill stage.
	StageBackfilling
	// StageComplete indicates the sync is complete.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageEnumerating:
		return "Enumerating"
	case StageReading:
		return "Reading"
	case StageResolving:
		return "Resolving"
	case StageBackfilling:
		return "Backfilling"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage icon for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageEnumerating:
		return "SCAN"
	case StageReading:
		return "READ"
	case StageResolving:
		return "LINK"
	case StageBackfilling:
		return "EMBED"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent represents an error during processing.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// StageTimings tracks duration for each sync stage.
type StageTimings struct {
	Enumerate time.Duration // Vault file discovery
	Read      time.Duration // File read + frontmatter/link parse
	Resolve   time.Duration // Wiki-link resolution and graph build
	Backfill  time.Duration // Embedding backfill
}

// EmbedderInfo contains embedding provider details.
type EmbedderInfo struct {
	Backend    string // embedding provider kind, e.g. "openai", "ollama", "static", or "none"
	Model      string // model name (e.g., "text-embedding-3-small")
	Dimensions int    // embedding dimensions
}

// CompletionStats contains final sync statistics.
type CompletionStats struct {
	Files      int
	Embeddings int
	Duration   time.Duration
	Errors     int
	Warnings   int
	Stages     StageTimings // per-stage timing breakdown
	Embedder   EmbedderInfo // embedding provider info
}

// Renderer defines the interface for progress display.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output       io.Writer
	ForcePlain   bool
	NoColor      bool
	SpinnerStyle string
	ProjectDir   string // Project directory path to display in header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithSpinnerStyle sets the spinner style.
func WithSpinnerStyle(style string) ConfigOption {
	return func(c *Config) {
		c.SpinnerStyle = style
	}
}

// WithProjectDir sets the project directory path to display in header.
func WithProjectDir(dir string) ConfigOption {
	return func(c *Config) {
		c.ProjectDir = dir
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output:       output,
		ForcePlain:   false,
		NoColor:      false,
		SpinnerStyle: "dots",
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// NewRenderer creates a renderer for the given config and environment.
// Sync runs are short, single-shot directory scans rather than a long-lived
// interactive session, so a plain text renderer covers TTY, CI, and piped
// output alike; IsTTY/DetectCI are kept for callers that want to adjust
// other behavior (e.g. color) based on the same environment checks.
func NewRenderer(cfg Config) Renderer {
	return NewPlainRenderer(cfg)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	// Check if it's a file that's a terminal
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// Package async provides background processing infrastructure for the
// store engine's sync and embedding backfill passes.
package async

import (
	"sync"
	"time"
)

// IndexingStatus represents the overall sync/backfill state.
type IndexingStatus string

const (
	// StatusIndexing indicates a sync or backfill pass is in progress.
	StatusIndexing IndexingStatus = "indexing"
	// StatusReady indicates the pass completed and the store is ready.
	StatusReady IndexingStatus = "ready"
	// StatusError indicates the pass failed with an error.
	StatusError IndexingStatus = "error"
)

// IndexingStage represents the current stage of a sync pass.
type IndexingStage string

const (
	// StageEnumerating indicates the file discovery phase.
	StageEnumerating IndexingStage = "enumerating"
	// StageReading indicates the per-file read/parse phase.
	StageReading IndexingStage = "reading"
	// StageResolving indicates link resolution and graph build.
	StageResolving IndexingStage = "resolving"
	// StageBackfilling indicates the post-sync embedding backfill pass.
	StageBackfilling IndexingStage = "backfilling"
)

// IndexProgressSnapshot is an immutable snapshot of sync/backfill progress.
type IndexProgressSnapshot struct {
	Status               string  `json:"status"`
	Stage                string  `json:"stage"`
	FilesTotal           int     `json:"files_total"`
	FilesProcessed       int     `json:"files_processed"`
	EmbeddingsTotal      int     `json:"embeddings_total"`
	EmbeddingsBackfilled int     `json:"embeddings_backfilled"`
	ProgressPct          float64 `json:"progress_pct"`
	ElapsedSeconds       int     `json:"elapsed_seconds"`
	ErrorMessage         string  `json:"error_message,omitempty"`
}

// IndexProgress provides thread-safe tracking of sync/backfill progress.
type IndexProgress struct {
	mu sync.RWMutex

	status               IndexingStatus
	stage                IndexingStage
	filesTotal           int
	filesProcessed       int
	embeddingsTotal      int
	embeddingsBackfilled int
	startTime            time.Time
	errorMessage         string
}

// NewIndexProgress creates a new progress tracker initialized for a sync
// pass.
func NewIndexProgress() *IndexProgress {
	return &IndexProgress{
		status:    StatusIndexing,
		stage:     StageEnumerating,
		startTime: time.Now(),
	}
}

// SetStage updates the current stage and resets the file total count.
func (p *IndexProgress) SetStage(stage IndexingStage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.filesTotal = total
}

// UpdateFiles updates the number of processed files.
func (p *IndexProgress) UpdateFiles(processed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filesProcessed = processed
}

// SetEmbeddingsTotal sets the total number of embeddings the backfill pass
// must compute.
func (p *IndexProgress) SetEmbeddingsTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.embeddingsTotal = total
}

// UpdateEmbeddings updates the number of embeddings backfilled so far.
func (p *IndexProgress) UpdateEmbeddings(backfilled int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.embeddingsBackfilled = backfilled
}

// SetError marks the indexing as failed with an error message.
func (p *IndexProgress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.errorMessage = message
}

// SetReady marks the indexing as complete and ready for search.
func (p *IndexProgress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
}

// IsIndexing returns true if indexing is still in progress.
func (p *IndexProgress) IsIndexing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusIndexing
}

// Snapshot returns an immutable copy of the current progress state.
func (p *IndexProgress) Snapshot() IndexProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var progressPct float64
	if p.filesTotal > 0 {
		progressPct = float64(p.filesProcessed) / float64(p.filesTotal) * 100.0
	}

	return IndexProgressSnapshot{
		Status:               string(p.status),
		Stage:                string(p.stage),
		FilesTotal:           p.filesTotal,
		FilesProcessed:       p.filesProcessed,
		EmbeddingsTotal:      p.embeddingsTotal,
		EmbeddingsBackfilled: p.embeddingsBackfilled,
		ProgressPct:          progressPct,
		ElapsedSeconds:       int(time.Since(p.startTime).Seconds()),
		ErrorMessage:         p.errorMessage,
	}
}

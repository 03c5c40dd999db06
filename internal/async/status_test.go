package async

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexProgress(t *testing.T) {
	p := NewIndexProgress()

	require.NotNil(t, p)
	snap := p.Snapshot()
	assert.Equal(t, string(StatusIndexing), snap.Status)
	assert.Equal(t, string(StageEnumerating), snap.Stage)
	assert.Equal(t, 0, snap.FilesTotal)
	assert.Equal(t, 0, snap.FilesProcessed)
	assert.True(t, p.IsIndexing())
}

func TestIndexProgress_SetStage(t *testing.T) {
	tests := []struct {
		name      string
		stage     IndexingStage
		total     int
		wantStage string
		wantTotal int
	}{
		{
			name:      "enumerating stage",
			stage:     StageEnumerating,
			total:     100,
			wantStage: "enumerating",
			wantTotal: 100,
		},
		{
			name:      "reading stage",
			stage:     StageReading,
			total:     500,
			wantStage: "reading",
			wantTotal: 500,
		},
		{
			name:      "resolving stage",
			stage:     StageResolving,
			total:     1000,
			wantStage: "resolving",
			wantTotal: 1000,
		},
		{
			name:      "backfilling stage",
			stage:     StageBackfilling,
			total:     1000,
			wantStage: "backfilling",
			wantTotal: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewIndexProgress()

			p.SetStage(tt.stage, tt.total)

			snap := p.Snapshot()
			assert.Equal(t, tt.wantStage, snap.Stage)
			assert.Equal(t, tt.wantTotal, snap.FilesTotal)
		})
	}
}

func TestIndexProgress_UpdateFiles(t *testing.T) {
	p := NewIndexProgress()
	p.SetStage(StageReading, 100)

	p.UpdateFiles(50)

	snap := p.Snapshot()
	assert.Equal(t, 50, snap.FilesProcessed)
	assert.Equal(t, 100, snap.FilesTotal)
}

func TestIndexProgress_UpdateEmbeddings(t *testing.T) {
	p := NewIndexProgress()
	p.SetStage(StageBackfilling, 100)
	p.SetEmbeddingsTotal(500)

	p.UpdateEmbeddings(250)

	snap := p.Snapshot()
	assert.Equal(t, 250, snap.EmbeddingsBackfilled)
	assert.Equal(t, 500, snap.EmbeddingsTotal)
}

func TestIndexProgress_SetError(t *testing.T) {
	p := NewIndexProgress()

	p.SetError("embedding failed: connection refused")

	snap := p.Snapshot()
	assert.Equal(t, string(StatusError), snap.Status)
	assert.Equal(t, "embedding failed: connection refused", snap.ErrorMessage)
	assert.False(t, p.IsIndexing())
}

func TestIndexProgress_SetReady(t *testing.T) {
	p := NewIndexProgress()
	p.SetStage(StageBackfilling, 100)
	p.UpdateFiles(100)

	p.SetReady()

	snap := p.Snapshot()
	assert.Equal(t, string(StatusReady), snap.Status)
	assert.False(t, p.IsIndexing())
}

func TestIndexProgress_ProgressPct(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		processed      int
		wantProgressPc float64
	}{
		{
			name:           "zero total returns zero",
			total:          0,
			processed:      0,
			wantProgressPc: 0.0,
		},
		{
			name:           "half complete",
			total:          100,
			processed:      50,
			wantProgressPc: 50.0,
		},
		{
			name:           "fully complete",
			total:          100,
			processed:      100,
			wantProgressPc: 100.0,
		},
		{
			name:           "partial progress",
			total:          1000,
			processed:      333,
			wantProgressPc: 33.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewIndexProgress()
			p.SetStage(StageReading, tt.total)
			p.UpdateFiles(tt.processed)

			snap := p.Snapshot()
			assert.InDelta(t, tt.wantProgressPc, snap.ProgressPct, 0.1)
		})
	}
}

func TestIndexProgress_ElapsedSeconds(t *testing.T) {
	p := NewIndexProgress()

	time.Sleep(100 * time.Millisecond)

	snap := p.Snapshot()
	assert.GreaterOrEqual(t, snap.ElapsedSeconds, 0)
}

func TestIndexProgress_Snapshot_Immutable(t *testing.T) {
	p := NewIndexProgress()
	p.SetStage(StageReading, 100)
	p.UpdateFiles(50)

	snap1 := p.Snapshot()
	p.UpdateFiles(75)
	snap2 := p.Snapshot()

	assert.Equal(t, 50, snap1.FilesProcessed)
	assert.Equal(t, 75, snap2.FilesProcessed)
}

func TestIndexProgress_ThreadSafe(t *testing.T) {
	p := NewIndexProgress()
	p.SetStage(StageResolving, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)

		go func(n int) {
			defer wg.Done()
			p.UpdateFiles(n)
		}(i)

		go func() {
			defer wg.Done()
			_ = p.Snapshot()
			_ = p.IsIndexing()
		}()
	}

	wg.Wait()

	snap := p.Snapshot()
	assert.GreaterOrEqual(t, snap.FilesProcessed, 0)
	assert.LessOrEqual(t, snap.FilesProcessed, 99)
}

func TestIndexProgress_ConcurrentStageTransitions(t *testing.T) {
	p := NewIndexProgress()

	var wg sync.WaitGroup
	stages := []IndexingStage{StageEnumerating, StageReading, StageResolving, StageBackfilling}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			stage := stages[n%len(stages)]
			p.SetStage(stage, n*10)
			_ = p.Snapshot()
		}(i)
	}

	wg.Wait()

	snap := p.Snapshot()
	assert.NotEmpty(t, snap.Stage)
}

func TestIndexingStatus_Values(t *testing.T) {
	assert.Equal(t, "indexing", string(StatusIndexing))
	assert.Equal(t, "ready", string(StatusReady))
	assert.Equal(t, "error", string(StatusError))
}

func TestIndexingStage_Values(t *testing.T) {
	assert.Equal(t, "enumerating", string(StageEnumerating))
	assert.Equal(t, "reading", string(StageReading))
	assert.Equal(t, "resolving", string(StageResolving))
	assert.Equal(t, "backfilling", string(StageBackfilling))
}

package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/alexgetty/roux/internal/watcher"
)

// StartWatching starts a filesystem watcher rooted at cfg.Source.Path
// that applies incoming batches via ApplyBatch. The watcher is stopped
// by Close.
func (e *Engine) StartWatching(ctx context.Context) error {
	excluded := make(map[string]bool, len(e.cfg.Watcher.ExcludedDirs))
	for _, d := range e.cfg.Watcher.ExcludedDirs {
		excluded[d] = true
	}
	exts := make(map[string]bool, len(e.cfg.Extensions))
	for _, ext := range e.cfg.Extensions {
		exts[ext] = true
	}

	opts := watcher.Options{
		Extensions:     exts,
		ExcludedDirs:   excluded,
		DebounceWindow: time.Duration(e.cfg.Watcher.DebounceMS) * time.Millisecond,
	}

	e.wat = watcher.New(e.cfg.Source.Path, opts, e.handleBatch, e.log)
	return e.wat.Start(ctx)
}

// handleBatch is the watcher callback: it applies a debounced batch of
// filesystem changes, logging and continuing on per-item failure so one
// bad file never blocks the rest of the batch or crashes the watcher.
func (e *Engine) handleBatch(batch map[string]watcher.Kind) {
	ctx := context.Background()
	if err := e.ApplyBatch(ctx, batch); err != nil {
		e.log.Error("failed to apply watcher batch", "error", err)
	}
}

// ApplyBatch applies one coalesced watcher batch: add/change upsert the
// file's parsed record, unlink removes it and its embedding. After every
// item in the batch is processed, links are re-resolved and the graph is
// rebuilt once for the whole batch, never per item, so the observer's view
// never shows a partial step.
func (e *Engine) ApplyBatch(ctx context.Context, batch map[string]watcher.Kind) error {
	for id, kind := range batch {
		switch kind {
		case watcher.KindAdd, watcher.KindChange:
			abs := filepath.Join(e.cfg.Source.Path, id)
			f := vaultFile{id: id, absPath: abs}
			n, err := e.readNode(f)
			if err != nil {
				e.log.Warn("leaving cached record untouched after read failure", "id", id, "error", err)
				continue
			}
			if err := e.cache.UpsertNode(ctx, n); err != nil {
				return rerrors.Provider("upsert node from watch event", err).WithDetail("id", id)
			}
		case watcher.KindUnlink:
			existing, err := e.cache.GetNode(ctx, id)
			if err != nil {
				return rerrors.Provider("load node for unlink", err).WithDetail("id", id)
			}
			if existing == nil {
				continue
			}
			if err := e.cache.DeleteNode(ctx, id); err != nil {
				return rerrors.Provider("delete node from watch event", err).WithDetail("id", id)
			}
			if err := e.vidx.Delete(ctx, id); err != nil {
				return rerrors.Provider("delete embedding from watch event", err).WithDetail("id", id)
			}
		}
	}

	return e.reresolveAll(ctx)
}

package engine

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/alexgetty/roux/internal/async"
	"github.com/alexgetty/roux/internal/linkindex"
	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/alexgetty/roux/internal/types"
)

// Sync rebuilds the cache, link graph, and centrality from disk
// authoritatively: files are re-read only when their mtime has advanced
// past the cached record, ghosts are reconciled, and the in-memory graph
// is replaced wholesale. Per-file read/parse failures are logged and
// skipped rather than aborting the whole pass.
func (e *Engine) Sync(ctx context.Context) error {
	files, err := e.enumerate()
	if err != nil {
		return err
	}
	e.progress.SetStage(async.StageEnumerating, len(files))

	e.progress.SetStage(async.StageReading, len(files))
	survivors := make(map[string]*types.Node, len(files))
	var survivorsMu sync.Mutex
	var processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, f := range files {
		g.Go(func() error {
			defer func() { e.progress.UpdateFiles(int(processed.Add(1))) }()

			cached, err := e.cache.GetNode(gctx, f.id)
			if err != nil {
				return rerrors.Provider("load cached node", err).WithDetail("id", f.id)
			}
			if cached != nil && !cached.Ghost && !cached.SourceRef.LastModified.Before(f.mtime) {
				survivorsMu.Lock()
				survivors[f.id] = cached
				survivorsMu.Unlock()
				return nil
			}

			n, err := e.readNode(f)
			if err != nil {
				e.log.Warn("skipping file during sync", "id", f.id, "error", err)
				return nil
			}
			survivorsMu.Lock()
			survivors[f.id] = n
			survivorsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	existing, err := e.cache.GetAllNodes(ctx)
	if err != nil {
		return rerrors.Provider("load existing nodes", err)
	}
	for _, n := range existing {
		if n.Ghost {
			continue
		}
		if _, ok := survivors[n.ID]; !ok {
			if err := e.cache.DeleteNode(ctx, n.ID); err != nil {
				return rerrors.Provider("remove deleted node", err).WithDetail("id", n.ID)
			}
		}
	}

	e.progress.SetStage(async.StageResolving, len(survivors))
	validIDs := make(map[string]bool, len(survivors))
	ids := make([]string, 0, len(survivors))
	for id := range survivors {
		validIDs[id] = true
		ids = append(ids, id)
	}
	basenameIdx := linkindex.BuildBasenameIndex(ids)

	referencedGhosts := map[string]bool{}
	for _, n := range survivors {
		resolved := linkindex.ResolveLinks(n.OutgoingLinks, basenameIdx, validIDs)
		n.OutgoingLinks = resolved
		if err := e.cache.UpsertNode(ctx, n); err != nil {
			return rerrors.Provider("persist node", err).WithDetail("id", n.ID)
		}
		for _, target := range resolved {
			if !validIDs[target] {
				referencedGhosts[target] = true
			}
		}
	}

	if err := e.reconcileGhosts(ctx, referencedGhosts); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.rebuildGraphLocked(ctx); err != nil {
		return err
	}

	e.progress.SetReady()
	return nil
}

// reconcileGhosts creates ghost placeholders for every referenced id not
// already present, and deletes any existing ghost with zero incoming
// references.
func (e *Engine) reconcileGhosts(ctx context.Context, referenced map[string]bool) error {
	all, err := e.cache.GetAllNodes(ctx)
	if err != nil {
		return rerrors.Provider("load nodes for ghost reconciliation", err)
	}

	existingGhosts := map[string]bool{}
	for _, n := range all {
		if n.Ghost {
			existingGhosts[n.ID] = true
		}
	}

	for id := range referenced {
		if existingGhosts[id] {
			continue
		}
		if err := e.cache.UpsertNode(ctx, types.NewGhost(id)); err != nil {
			return rerrors.Provider("create ghost node", err).WithDetail("id", id)
		}
	}

	for id := range existingGhosts {
		if referenced[id] {
			continue
		}
		if err := e.cache.DeleteNode(ctx, id); err != nil {
			return rerrors.Provider("remove orphaned ghost", err).WithDetail("id", id)
		}
	}

	return nil
}

// reresolveAll re-runs link resolution and ghost reconciliation across
// the full cache, then rebuilds the graph. Used after incremental batch
// application, where only a subset of nodes changed but every node's
// resolved links may be affected by ghosts coming or going.
func (e *Engine) reresolveAll(ctx context.Context) error {
	all, err := e.cache.GetAllNodes(ctx)
	if err != nil {
		return rerrors.Provider("load nodes", err)
	}

	validIDs := make(map[string]bool)
	ids := make([]string, 0, len(all))
	for _, n := range all {
		if n.Ghost {
			continue
		}
		validIDs[n.ID] = true
		ids = append(ids, n.ID)
	}
	basenameIdx := linkindex.BuildBasenameIndex(ids)

	referencedGhosts := map[string]bool{}
	for _, n := range all {
		if n.Ghost {
			continue
		}
		resolved := linkindex.ResolveLinks(n.OutgoingLinks, basenameIdx, validIDs)
		if !sameLinks(n.OutgoingLinks, resolved) {
			n.OutgoingLinks = resolved
			if err := e.cache.UpsertNode(ctx, n); err != nil {
				return rerrors.Provider("persist resolved links", err).WithDetail("id", n.ID)
			}
		}
		for _, target := range resolved {
			if !validIDs[target] {
				referencedGhosts[target] = true
			}
		}
	}

	if err := e.reconcileGhosts(ctx, referencedGhosts); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuildGraphLocked(ctx)
}

func sameLinks(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

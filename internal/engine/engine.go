// Package engine is the store engine coordinator: it composes the
// reader, cache, link resolver, graph, vector index, and watcher into a
// single atomic-ish view of a markdown vault, per the sync and
// incremental-apply algorithms of the specification.
package engine

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alexgetty/roux/internal/async"
	"github.com/alexgetty/roux/internal/cache"
	"github.com/alexgetty/roux/internal/config"
	"github.com/alexgetty/roux/internal/embed"
	"github.com/alexgetty/roux/internal/graph"
	"github.com/alexgetty/roux/internal/linkindex"
	"github.com/alexgetty/roux/internal/reader"
	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/alexgetty/roux/internal/types"
	"github.com/alexgetty/roux/internal/vectorindex"
	"github.com/alexgetty/roux/internal/watcher"
)

// Engine is the single-writer coordinator over one vault. The graph and
// basename index are held wholesale in memory and replaced, never
// mutated in place, so a reader never observes a half-rebuilt view.
type Engine struct {
	cfg *config.Config
	log *slog.Logger

	cache *cache.Cache
	vidx  *vectorindex.VectorIndex
	wat   *watcher.Watcher

	embedder    embed.Embedder
	ownsEmbed   bool
	backfillBrk *rerrors.Breaker

	mu       sync.RWMutex
	g        *graph.Graph
	basename map[string][]string

	progress *async.IndexProgress

	closeOnce sync.Once
}

// Dependencies lets callers inject pre-built components (used by tests).
// Any nil field is built from cfg. Engine.Close closes the cache and the
// vector index whether they were injected or built; an injected Embedder
// is not closed.
type Dependencies struct {
	Cache    *cache.Cache
	VIndex   *vectorindex.VectorIndex
	Embedder embed.Embedder
}

// Open builds an Engine from configuration, opening the cache and vector
// index under cfg.Cache.Path unless already supplied via deps.
func Open(ctx context.Context, cfg *config.Config, deps Dependencies, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{
		cfg:      cfg,
		log:      log,
		g:        graph.New(),
		basename: map[string][]string{},
		progress: async.NewIndexProgress(),
	}

	if deps.Cache != nil {
		e.cache = deps.Cache
	} else {
		c, err := cache.Open(filepath.Join(cfg.Cache.Path, "cache.db"))
		if err != nil {
			return nil, rerrors.Provider("open cache", err)
		}
		e.cache = c
	}

	if deps.VIndex != nil {
		e.vidx = deps.VIndex
	} else {
		vi, err := vectorindex.Open(filepath.Join(cfg.Cache.Path, "vectors.db"))
		if err != nil {
			_ = e.cache.Close()
			return nil, rerrors.Provider("open vector index", err)
		}
		e.vidx = vi
	}

	if deps.Embedder != nil {
		e.embedder = deps.Embedder
	} else {
		kind := embed.ParseProviderKind(cfg.Providers.Embedding.Kind)
		embedder, err := embed.NewProvider(ctx, kind, cfg.Providers.Embedding.Model)
		if err != nil {
			e.log.Warn("embedding provider unavailable, continuing without embeddings", "error", err)
		} else {
			e.embedder = embedder
			e.ownsEmbed = true
		}
	}

	e.backfillBrk = rerrors.NewBreaker(5, 30*time.Second)

	return e, nil
}

// Progress returns the sync/backfill progress tracker.
func (e *Engine) Progress() *async.IndexProgress {
	return e.progress
}

// Embedder exposes the configured embedder, or nil if none is active.
func (e *Engine) Embedder() embed.Embedder {
	return e.embedder
}

// Graph returns the current in-memory graph snapshot. Callers must not
// mutate it; Sync and ApplyBatch replace it wholesale under the engine's
// lock.
func (e *Engine) Graph() *graph.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g
}

// Close stops the watcher (if running), then closes the cache and vector
// index, then the embedder if the engine constructed it. Idempotent.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		if e.wat != nil {
			_ = e.wat.Stop()
		}
		if cerr := e.cache.Close(); cerr != nil {
			err = cerr
		}
		if verr := e.vidx.Close(); verr != nil && err == nil {
			err = verr
		}
		if e.ownsEmbed && e.embedder != nil {
			_ = e.embedder.Close()
		}
	})
	return err
}

// vaultFile is one markdown file discovered during enumeration.
type vaultFile struct {
	id      string // lowercased relative path, forward slashes
	absPath string
	mtime   time.Time
}

// enumerate walks the source root, skipping excluded directories and
// files whose extension isn't in cfg.Extensions.
func (e *Engine) enumerate() ([]vaultFile, error) {
	root := e.cfg.Source.Path
	excluded := make(map[string]bool, len(e.cfg.Watcher.ExcludedDirs))
	for _, d := range e.cfg.Watcher.ExcludedDirs {
		excluded[d] = true
	}
	exts := make(map[string]bool, len(e.cfg.Extensions))
	for _, ext := range e.cfg.Extensions {
		exts[strings.ToLower(ext)] = true
	}

	var files []vaultFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && excluded[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			e.log.Warn("stat failed during enumeration", "path", path, "error", statErr)
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		id := strings.ToLower(filepath.ToSlash(rel))
		files = append(files, vaultFile{id: id, absPath: path, mtime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, rerrors.Provider("enumerate source directory", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].id < files[j].id })
	return files, nil
}

// readNode reads and parses one file from disk via the reader package.
func (e *Engine) readNode(f vaultFile) (*types.Node, error) {
	raw, err := os.ReadFile(f.absPath)
	if err != nil {
		return nil, rerrors.Provider("read file", err).WithDetail("id", f.id)
	}
	ctx := reader.FileContext{
		AbsolutePath: f.absPath,
		RelativePath: f.id,
		Extension:    filepath.Ext(f.id),
		Mtime:        f.mtime,
	}
	return reader.Read(raw, ctx, e.log), nil
}

// rebuildGraphLocked recomputes the in-memory graph, basename index, and
// centrality from the current cache contents. Callers must hold e.mu for
// writing.
func (e *Engine) rebuildGraphLocked(ctx context.Context) error {
	nodes, err := e.cache.GetAllNodes(ctx)
	if err != nil {
		return rerrors.Provider("load nodes for graph build", err)
	}

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	basenameIdx := linkindex.BuildBasenameIndex(ids)

	nodeLinks := make([]graph.NodeLinks, 0, len(nodes))
	for _, n := range nodes {
		nodeLinks = append(nodeLinks, graph.NodeLinks{ID: n.ID, OutgoingLinks: n.OutgoingLinks})
	}

	g, err := graph.Build(nodeLinks)
	if err != nil {
		return err
	}

	metrics := make(map[string]types.Centrality, len(nodes))
	now := time.Now()
	for _, n := range nodes {
		metrics[n.ID] = types.Centrality{
			NodeID:     n.ID,
			InDegree:   len(g.GetNeighborIDs(n.ID, graph.DirectionIn, len(nodes)+1)),
			OutDegree:  len(g.GetNeighborIDs(n.ID, graph.DirectionOut, len(nodes)+1)),
			ComputedAt: now,
		}
	}
	if err := e.cache.StoreCentrality(ctx, metrics); err != nil {
		return rerrors.Provider("persist centrality", err)
	}

	e.g = g
	e.basename = basenameIdx
	return nil
}

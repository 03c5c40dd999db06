package engine

import (
	"context"
	"strings"
	"time"

	"github.com/alexgetty/roux/internal/graph"
	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/alexgetty/roux/internal/types"
)

// CreateNode writes a new node to disk and cache. It fails with
// NodeExists if id already exists as a real node; a ghost at the same id
// is replaced. Triggers a resync afterward so links referencing the new
// node resolve immediately.
func (e *Engine) CreateNode(ctx context.Context, id, content, title string, tags []string) (*types.Node, error) {
	existing, err := e.cache.GetNode(ctx, id)
	if err != nil {
		return nil, rerrors.Provider("load existing node", err).WithDetail("id", id)
	}
	if existing != nil && !existing.Ghost {
		return nil, rerrors.Exists(id)
	}

	if title == "" {
		title = types.TitleFromID(id)
	}
	contentCopy := content
	n := &types.Node{
		ID:            id,
		Title:         title,
		Content:       &contentCopy,
		Tags:          tags,
		OutgoingLinks: []string{},
		Properties:    map[string]any{},
		SourceRef: &types.SourceRef{
			Kind:         "file",
			Path:         id,
			LastModified: time.Now(),
		},
	}

	if err := e.writeNodeFile(n); err != nil {
		return nil, err
	}
	if err := e.cache.UpsertNode(ctx, n); err != nil {
		return nil, rerrors.Provider("persist created node", err).WithDetail("id", id)
	}
	if err := e.vidx.Delete(ctx, id); err != nil {
		return nil, rerrors.Provider("invalidate stale embedding", err).WithDetail("id", id)
	}

	if err := e.Sync(ctx); err != nil {
		return nil, err
	}

	return e.cache.GetNode(ctx, id)
}

// UpdateNode applies a partial update to an existing real node. Renaming
// the title while other nodes hold an incoming edge to id fails with
// LinkIntegrity. File content is never moved; only the in-place file at
// id is rewritten.
func (e *Engine) UpdateNode(ctx context.Context, id string, title, content *string, tags *[]string, properties map[string]any) (*types.Node, error) {
	n, err := e.cache.GetNode(ctx, id)
	if err != nil {
		return nil, rerrors.Provider("load node", err).WithDetail("id", id)
	}
	if n == nil || n.Ghost {
		return nil, rerrors.NotFound(id)
	}

	if title != nil && !strings.EqualFold(*title, n.Title) {
		g := e.Graph()
		if len(g.GetNeighborIDs(id, graph.DirectionIn, 1)) > 0 {
			return nil, rerrors.LinkIntegrityErr(id)
		}
		n.Title = *title
	}
	if content != nil {
		n.Content = content
	}
	if tags != nil {
		n.Tags = *tags
	}
	if properties != nil {
		n.Properties = properties
	}
	n.SourceRef.LastModified = time.Now()

	if err := e.writeNodeFile(n); err != nil {
		return nil, err
	}
	if err := e.cache.UpsertNode(ctx, n); err != nil {
		return nil, rerrors.Provider("persist updated node", err).WithDetail("id", id)
	}
	if err := e.vidx.Delete(ctx, id); err != nil {
		return nil, rerrors.Provider("invalidate stale embedding", err).WithDetail("id", id)
	}

	if err := e.Sync(ctx); err != nil {
		return nil, err
	}

	return e.cache.GetNode(ctx, id)
}

// DeleteNode removes the file, cache row, and embedding for id. A
// missing id returns (false, nil), not an error.
func (e *Engine) DeleteNode(ctx context.Context, id string) (bool, error) {
	n, err := e.cache.GetNode(ctx, id)
	if err != nil {
		return false, rerrors.Provider("load node", err).WithDetail("id", id)
	}
	if n == nil || n.Ghost {
		return false, nil
	}

	if err := e.removeNodeFile(id); err != nil {
		return false, err
	}
	if err := e.cache.DeleteNode(ctx, id); err != nil {
		return false, rerrors.Provider("delete cache row", err).WithDetail("id", id)
	}
	if err := e.vidx.Delete(ctx, id); err != nil {
		return false, rerrors.Provider("delete embedding", err).WithDetail("id", id)
	}

	if err := e.reresolveAll(ctx); err != nil {
		return false, err
	}

	return true, nil
}

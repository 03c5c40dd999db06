package engine

import (
	"context"
	"math/rand"
	"sort"
	"strings"

	"github.com/alexgetty/roux/internal/cache"
	"github.com/alexgetty/roux/internal/graph"
	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/alexgetty/roux/internal/types"
)

// NodeResult is the query-facing projection of a node: links are
// resolved to the target's title (falling back to the raw id for
// ghosts), ready for a caller to truncate and present. Content is the
// node's full, untruncated body.
type NodeResult struct {
	ID         string
	Title      string
	Tags       []string
	Links      []string
	Properties map[string]any
	Score      float64
	Content    string
	Ghost      bool
}

// HubResult is one ranked hub.
type HubResult struct {
	ID    string
	Title string
	Score int
}

// PathResult is the result of FindPath.
type PathResult struct {
	Path   []string
	Length int
}

func (e *Engine) toResult(ctx context.Context, n *types.Node, score float64) (NodeResult, error) {
	titles, err := e.cache.ResolveTitles(ctx, n.OutgoingLinks)
	if err != nil {
		return NodeResult{}, rerrors.Provider("resolve link titles", err).WithDetail("id", n.ID)
	}

	links := make([]string, 0, len(n.OutgoingLinks))
	for _, target := range n.OutgoingLinks {
		if title, ok := titles[target]; ok {
			links = append(links, title)
		} else {
			links = append(links, target)
		}
	}

	var content string
	if n.Content != nil {
		content = *n.Content
	}

	return NodeResult{
		ID:         n.ID,
		Title:      n.Title,
		Tags:       n.Tags,
		Links:      links,
		Properties: n.Properties,
		Score:      score,
		Content:    content,
		Ghost:      n.Ghost,
	}, nil
}

// Search ranks every real node against query. With an embedding
// provider configured, ranking is cosine similarity between the
// embedded query and each node's stored embedding; candidates without a
// stored embedding are skipped. Without a provider, ranking falls back
// to case-insensitive substring/title similarity so search still
// returns results in a provider-less configuration.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]NodeResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	all, err := e.cache.GetAllNodes(ctx)
	if err != nil {
		return nil, rerrors.Provider("load nodes for search", err)
	}
	real := make([]*types.Node, 0, len(all))
	for _, n := range all {
		if !n.Ghost {
			real = append(real, n)
		}
	}

	if e.embedder != nil {
		return e.searchSemantic(ctx, query, real, limit)
	}
	return e.searchLexical(query, real, limit)
}

func (e *Engine) searchSemantic(ctx context.Context, query string, candidates []*types.Node, limit int) ([]NodeResult, error) {
	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, rerrors.Provider("embed search query", err)
	}

	byID := make(map[string]*types.Node, len(candidates))
	for _, n := range candidates {
		byID[n.ID] = n
	}

	hits, err := e.vidx.Search(ctx, qv, len(candidates))
	if err != nil {
		return nil, rerrors.Provider("vector search", err)
	}

	out := make([]NodeResult, 0, limit)
	for _, h := range hits {
		n, ok := byID[h.ID]
		if !ok {
			continue
		}
		r, err := e.toResult(ctx, n, 1-h.Distance)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (e *Engine) searchLexical(query string, candidates []*types.Node, limit int) ([]NodeResult, error) {
	q := strings.ToLower(query)

	type scored struct {
		n     *types.Node
		score float64
	}
	var matches []scored
	for _, n := range candidates {
		score := 0.0
		if strings.EqualFold(n.Title, query) {
			score = 1
		} else if strings.Contains(strings.ToLower(n.Title), q) {
			score = 0.75
		} else if n.Content != nil && strings.Contains(strings.ToLower(*n.Content), q) {
			score = 0.5
		} else {
			continue
		}
		matches = append(matches, scored{n: n, score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].n.ID < matches[j].n.ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]NodeResult, 0, len(matches))
	for _, m := range matches {
		r, err := e.toResult(context.Background(), m.n, m.score)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// GetNode returns id's record. At depth 1, Neighbors is populated with
// both the in- and out-edge neighbours (deduplicated, id ascending).
// Negative depth is normalised to 0.
func (e *Engine) GetNode(ctx context.Context, id string, depth int) (*NodeResult, []NodeResult, error) {
	if depth < 0 {
		depth = 0
	}

	n, err := e.cache.GetNode(ctx, id)
	if err != nil {
		return nil, nil, rerrors.Provider("load node", err).WithDetail("id", id)
	}
	if n == nil {
		return nil, nil, rerrors.NotFound(id)
	}

	r, err := e.toResult(ctx, n, 0)
	if err != nil {
		return nil, nil, err
	}

	if depth == 0 {
		return &r, nil, nil
	}

	g := e.Graph()
	neighborIDs := g.GetNeighborIDs(id, graph.DirectionBoth, g.NodeCount()+1)
	sort.Strings(neighborIDs)
	neighbors := make([]NodeResult, 0, len(neighborIDs))
	for _, nid := range neighborIDs {
		nn, err := e.cache.GetNode(ctx, nid)
		if err != nil {
			return nil, nil, rerrors.Provider("load neighbor node", err).WithDetail("id", nid)
		}
		if nn == nil {
			continue
		}
		nr, err := e.toResult(ctx, nn, 0)
		if err != nil {
			return nil, nil, err
		}
		neighbors = append(neighbors, nr)
	}

	return &r, neighbors, nil
}

// GetNeighbors returns id's neighbours in the given direction, id
// ascending, capped at limit.
func (e *Engine) GetNeighbors(ctx context.Context, id string, direction graph.Direction, limit int) ([]NodeResult, error) {
	g := e.Graph()
	if !g.HasNode(id) {
		return nil, rerrors.NotFound(id)
	}
	if limit <= 0 {
		return nil, nil
	}

	ids := g.GetNeighborIDs(id, direction, g.NodeCount()+1)
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]NodeResult, 0, len(ids))
	for _, nid := range ids {
		n, err := e.cache.GetNode(ctx, nid)
		if err != nil {
			return nil, rerrors.Provider("load neighbor node", err).WithDetail("id", nid)
		}
		if n == nil {
			continue
		}
		r, err := e.toResult(ctx, n, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// FindPath returns the shortest path from source to target, following
// outgoing edges. Returns (nil, nil) when no path exists and a
// NodeNotFound error when either endpoint is unknown.
func (e *Engine) FindPath(source, target string) (*PathResult, error) {
	g := e.Graph()
	if !g.HasNode(source) {
		return nil, rerrors.NotFound(source)
	}
	if !g.HasNode(target) {
		return nil, rerrors.NotFound(target)
	}

	path, ok := g.FindPath(source, target)
	if !ok {
		return nil, nil
	}
	return &PathResult{Path: path, Length: len(path) - 1}, nil
}

// GetHubs returns the top limit node ids ranked by metric.
func (e *Engine) GetHubs(ctx context.Context, metric graph.Metric, limit int) ([]HubResult, error) {
	entries := e.Graph().GetHubs(metric, limit)

	out := make([]HubResult, 0, len(entries))
	for _, h := range entries {
		n, err := e.cache.GetNode(ctx, h.ID)
		if err != nil {
			return nil, rerrors.Provider("load hub node", err).WithDetail("id", h.ID)
		}
		title := h.ID
		if n != nil {
			title = n.Title
		}
		out = append(out, HubResult{ID: h.ID, Title: title, Score: h.Degree})
	}
	return out, nil
}

// SearchByTags returns real nodes matching tags under mode ("any" or
// "all"), id ascending, capped at limit.
func (e *Engine) SearchByTags(ctx context.Context, tags []string, mode string, limit int) ([]NodeResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	all, err := e.cache.GetAllNodes(ctx)
	if err != nil {
		return nil, rerrors.Provider("load nodes for tag search", err)
	}

	var matched []*types.Node
	for _, n := range all {
		if n.Ghost {
			continue
		}
		if matchesTags(n.Tags, tags, mode) {
			matched = append(matched, n)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]NodeResult, 0, len(matched))
	for _, n := range matched {
		r, err := e.toResult(ctx, n, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func matchesTags(have, want []string, mode string) bool {
	haveSet := make(map[string]bool, len(have))
	for _, t := range have {
		haveSet[strings.ToLower(t)] = true
	}

	if mode == "all" {
		for _, w := range want {
			if !haveSet[strings.ToLower(w)] {
				return false
			}
		}
		return len(want) > 0
	}

	for _, w := range want {
		if haveSet[strings.ToLower(w)] {
			return true
		}
	}
	return false
}

// RandomNode returns one uniformly-random real node, optionally
// filtered to those carrying any of tags. Returns (nil, nil) when no
// node matches.
func (e *Engine) RandomNode(ctx context.Context, tags []string) (*NodeResult, error) {
	all, err := e.cache.GetAllNodes(ctx)
	if err != nil {
		return nil, rerrors.Provider("load nodes for random selection", err)
	}

	var candidates []*types.Node
	for _, n := range all {
		if n.Ghost {
			continue
		}
		if len(tags) > 0 && !matchesTags(n.Tags, tags, "any") {
			continue
		}
		candidates = append(candidates, n)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	n := candidates[rand.Intn(len(candidates))]
	r, err := e.toResult(ctx, n, 0)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListNodes is a thin wrapper over the cache's paginated listing.
func (e *Engine) ListNodes(ctx context.Context, filter cache.ListFilter, offset, limit int) ([]cache.NodeSummary, int, error) {
	return e.cache.ListNodes(ctx, filter, offset, limit)
}

// NodesExist reports, for every id queried, whether a real or ghost
// record exists for it.
func (e *Engine) NodesExist(ctx context.Context, ids []string) (map[string]bool, error) {
	return e.cache.NodesExist(ctx, ids)
}

// Package graph is the in-memory directed graph of node ids: adjacency
// iteration, BFS shortest path, and hub ranking by degree.
package graph

import (
	"sort"
	"sync"

	"github.com/alexgetty/roux/internal/heap"
	"github.com/alexgetty/roux/internal/rerrors"
)

// Direction selects which edges GetNeighborIDs walks.
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionBoth Direction = "both"
)

// Metric selects the degree GetHubs ranks by.
type Metric string

const (
	MetricInDegree  Metric = "in_degree"
	MetricOutDegree Metric = "out_degree"
)

// Graph is a directed graph over node ids, with no multi-edges (adding
// the same u->v edge twice is a no-op) and self-loops permitted.
type Graph struct {
	mu sync.RWMutex

	nodes map[string]bool
	out   map[string][]string
	in    map[string][]string

	hasEdge map[string]map[string]bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]bool),
		out:     make(map[string][]string),
		in:      make(map[string][]string),
		hasEdge: make(map[string]map[string]bool),
	}
}

// NodeLinks is the minimal shape Build needs from a node: its id and its
// already-resolved outgoing link targets.
type NodeLinks struct {
	ID            string
	OutgoingLinks []string
}

// Build replaces the graph's contents: every id in nodes becomes a node
// key, then for each (u, v) in u's outgoing links where v is also a node
// key, a directed edge u->v is added if not already present. Duplicate
// ids in nodes are rejected; callers must pre-dedup.
func Build(nodes []NodeLinks) (*Graph, error) {
	g := New()

	for _, n := range nodes {
		if g.nodes[n.ID] {
			return nil, rerrors.Invalid("duplicate node id in graph build input").WithDetail("id", n.ID)
		}
		g.nodes[n.ID] = true
	}

	for _, n := range nodes {
		for _, target := range n.OutgoingLinks {
			if !g.nodes[target] {
				continue
			}
			g.addEdge(n.ID, target)
		}
	}

	return g, nil
}

func (g *Graph) addEdge(u, v string) {
	if g.hasEdge[u] == nil {
		g.hasEdge[u] = make(map[string]bool)
	}
	if g.hasEdge[u][v] {
		return
	}
	g.hasEdge[u][v] = true
	g.out[u] = append(g.out[u], v)
	g.in[v] = append(g.in[v], u)
}

// GetNeighborIDs returns up to limit neighbour ids of id in the given
// direction. Unknown ids and non-positive limits yield an empty slice.
// Iteration stops as soon as limit ids have been accumulated, touching
// only as many edges as needed, not the node's full adjacency list.
func (g *Graph) GetNeighborIDs(id string, direction Direction, limit int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if limit <= 0 || !g.nodes[id] {
		return []string{}
	}

	out := make([]string, 0, limit)
	seen := make(map[string]bool, limit)

	add := func(list []string) bool {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
			if len(out) == limit {
				return true
			}
		}
		return false
	}

	switch direction {
	case DirectionOut:
		add(g.out[id])
	case DirectionIn:
		add(g.in[id])
	case DirectionBoth:
		if add(g.out[id]) {
			break
		}
		add(g.in[id])
	}

	return out
}

// FindPath returns the BFS shortest id path [source, ..., target], or
// (nil, false) if either endpoint is unknown or no path exists. The
// same-node case is a zero-hop path [source], even if id has a
// self-loop.
func (g *Graph) FindPath(source, target string) ([]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.nodes[source] || !g.nodes[target] {
		return nil, false
	}
	if source == target {
		return []string{source}, true
	}

	prev := map[string]string{source: ""}
	queue := []string{source}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range g.out[cur] {
			if _, visited := prev[next]; visited {
				continue
			}
			prev[next] = cur
			if next == target {
				return buildPath(prev, source, target), true
			}
			queue = append(queue, next)
		}
	}

	return nil, false
}

func buildPath(prev map[string]string, source, target string) []string {
	var rev []string
	for n := target; ; {
		rev = append(rev, n)
		if n == source {
			break
		}
		n = prev[n]
	}
	path := make([]string, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// HubEntry is one ranked hub: its id and its degree under the ranking
// metric.
type HubEntry struct {
	ID     string
	Degree int
}

// GetHubs returns the top limit node ids ranked by metric descending,
// tie-broken by id ascending so repeated calls over the same graph
// always return the same result.
func (g *Graph) GetHubs(metric Metric, limit int) []HubEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if limit <= 0 {
		return []HubEntry{}
	}

	degreeOf := func(id string) int {
		if metric == MetricInDegree {
			return len(g.in[id])
		}
		return len(g.out[id])
	}

	// worst-at-root: smallest degree first, ties broken by largest id
	// (so the smallest id among ties survives).
	h := heap.New(func(a, b HubEntry) bool {
		if a.Degree != b.Degree {
			return a.Degree < b.Degree
		}
		return a.ID > b.ID
	})

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		h.PushBounded(HubEntry{ID: id, Degree: degreeOf(id)}, limit)
	}

	out := h.ToArray()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// HasNode reports whether id exists as a node key.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// NodeCount returns the number of node keys in the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

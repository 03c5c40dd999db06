// Package types holds the shared data shapes used across Roux's store
// engine: nodes, ghosts, centrality, embedding records, and source
// provenance. Nothing in this package has behavior beyond simple
// accessors; it exists so every other package agrees on one
// representation of a node.
package types

import "time"

// SourceRef describes where a node's bytes came from.
type SourceRef struct {
	Kind         string    `json:"kind"`
	Path         string    `json:"path"`
	LastModified time.Time `json:"last_modified"`
}

// Node is the unit of content in the graph: either a real file-backed
// node or a ghost placeholder standing in for an unresolved link target.
type Node struct {
	ID string `json:"id"`

	Title string `json:"title"`

	// Content is nil for ghost nodes.
	Content *string `json:"content"`

	Tags []string `json:"tags"`

	// OutgoingLinks holds normalized, deduplicated, order-preserved link
	// targets (see the linkindex package).
	OutgoingLinks []string `json:"outgoing_links"`

	Properties map[string]any `json:"properties"`

	SourceRef *SourceRef `json:"source_ref,omitempty"`

	// Ghost marks a placeholder created for an unresolved wiki-link
	// target. Ghosts are deleted once they have no incoming edges.
	Ghost bool `json:"ghost"`
}

// NewGhost returns a ghost node placeholder for id.
func NewGhost(id string) *Node {
	return &Node{
		ID:            id,
		Title:         TitleFromID(id),
		Content:       nil,
		Tags:          []string{},
		OutgoingLinks: []string{},
		Properties:    map[string]any{},
		Ghost:         true,
	}
}

// Centrality is a node's per-sync degree snapshot.
type Centrality struct {
	NodeID     string    `json:"node_id"`
	InDegree   int       `json:"in_degree"`
	OutDegree  int       `json:"out_degree"`
	ComputedAt time.Time `json:"computed_at"`
}

// Embedding is a per-node vector record tagged with the model that
// produced it, so a configuration change can be detected and backfilled.
type Embedding struct {
	NodeID  string    `json:"node_id"`
	ModelID string    `json:"model_id"`
	Vector  []float32 `json:"vector"`
}

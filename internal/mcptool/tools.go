package mcp

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query          string `json:"query" jsonschema:"the text to search for"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	IncludeContent bool   `json:"include_content,omitempty" jsonschema:"include each node's content in the result"`
}

// GetNodeInput is the input schema for the get_node tool.
type GetNodeInput struct {
	ID    string `json:"id" jsonschema:"node id to fetch"`
	Depth int    `json:"depth,omitempty" jsonschema:"0 for the node alone, 1 to include its neighbours"`
}

// GetNeighborsInput is the input schema for the get_neighbors tool.
type GetNeighborsInput struct {
	ID             string `json:"id" jsonschema:"node id whose neighbours to list"`
	Direction      string `json:"direction,omitempty" jsonschema:"in, out, or both (default both)"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of neighbours, default 20"`
	IncludeContent bool   `json:"include_content,omitempty" jsonschema:"include each neighbour's content"`
}

// FindPathInput is the input schema for the find_path tool.
type FindPathInput struct {
	Source string `json:"source" jsonschema:"source node id"`
	Target string `json:"target" jsonschema:"target node id"`
}

// GetHubsInput is the input schema for the get_hubs tool.
type GetHubsInput struct {
	Metric string `json:"metric,omitempty" jsonschema:"in_degree or out_degree (default in_degree)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of hubs, default 10"`
}

// SearchByTagsInput is the input schema for the search_by_tags tool.
type SearchByTagsInput struct {
	Tags           []string `json:"tags" jsonschema:"tags to match"`
	Mode           string   `json:"mode,omitempty" jsonschema:"any or all (default any)"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 20"`
	IncludeContent bool     `json:"include_content,omitempty" jsonschema:"include each node's content"`
}

// RandomNodeInput is the input schema for the random_node tool.
type RandomNodeInput struct {
	Tags []string `json:"tags,omitempty" jsonschema:"restrict selection to nodes carrying any of these tags"`
}

// CreateNodeInput is the input schema for the create_node tool.
type CreateNodeInput struct {
	ID      string   `json:"id" jsonschema:"node id, must end in .md"`
	Content string   `json:"content" jsonschema:"markdown body"`
	Title   string   `json:"title,omitempty" jsonschema:"node title, defaults to a title derived from id"`
	Tags    []string `json:"tags,omitempty" jsonschema:"tags to attach"`
}

// UpdateNodeInput is the input schema for the update_node tool. At least
// one of Title, Content, Tags must be set.
type UpdateNodeInput struct {
	ID      string    `json:"id" jsonschema:"node id to update"`
	Title   *string   `json:"title,omitempty" jsonschema:"new title"`
	Content *string   `json:"content,omitempty" jsonschema:"new markdown body"`
	Tags    *[]string `json:"tags,omitempty" jsonschema:"new tag set"`
}

// DeleteNodeInput is the input schema for the delete_node tool.
type DeleteNodeInput struct {
	ID string `json:"id" jsonschema:"node id to delete"`
}

// DeleteNodeOutput is the output schema for the delete_node tool.
type DeleteNodeOutput struct {
	Deleted bool `json:"deleted"`
}

// ListNodesInput is the input schema for the list_nodes tool.
type ListNodesInput struct {
	Tag    string `json:"tag,omitempty" jsonschema:"filter by tag"`
	Path   string `json:"path,omitempty" jsonschema:"filter by id path prefix"`
	Limit  int    `json:"limit,omitempty" jsonschema:"page size, default 100, max 1000"`
	Offset int    `json:"offset,omitempty" jsonschema:"page offset, default 0"`
}

// ListNodesOutput is the output schema for the list_nodes tool.
type ListNodesOutput struct {
	Nodes []NodeSummaryOutput `json:"nodes"`
	Total int                 `json:"total"`
}

// NodeSummaryOutput is one row of a list_nodes response.
type NodeSummaryOutput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ResolveNodesInput is the input schema for the resolve_nodes tool.
type ResolveNodesInput struct {
	Names     []string `json:"names" jsonschema:"names to resolve to node ids"`
	Strategy  string   `json:"strategy,omitempty" jsonschema:"exact, fuzzy, or semantic (default exact)"`
	Threshold float64  `json:"threshold,omitempty" jsonschema:"minimum match score for fuzzy/semantic strategies"`
	Tag       string   `json:"tag,omitempty" jsonschema:"restrict candidates to this tag"`
	Path      string   `json:"path,omitempty" jsonschema:"restrict candidates to this id path prefix"`
}

// ResolveNodesOutput is one resolved query's result.
type ResolveNodesOutput struct {
	Query string  `json:"query"`
	Match string  `json:"match"`
	Score float64 `json:"score"`
}

// NodesExistInput is the input schema for the nodes_exist tool.
type NodesExistInput struct {
	IDs []string `json:"ids" jsonschema:"ids to check for existence"`
}

// NodeOutput is the shared node-shaped result projection used by
// search, get_node, get_neighbors, search_by_tags, and random_node.
type NodeOutput struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Tags       []string       `json:"tags"`
	Links      []string       `json:"links"`
	Properties map[string]any `json:"properties"`
	Score      float64        `json:"score"`
	Content    string         `json:"content,omitempty"`
	// Neighbors is populated only by get_node at depth 1.
	Neighbors []NodeOutput `json:"neighbors,omitempty"`
}

// PathOutput is the result of find_path.
type PathOutput struct {
	Path   []string `json:"path"`
	Length int      `json:"length"`
}

// HubOutput is one ranked hub.
type HubOutput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// IndexStatusInput is the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput is the output schema for the index_status tool.
type IndexStatusOutput struct {
	Vault      VaultInfo          `json:"vault"`
	Stats      IndexStats         `json:"stats"`
	Embeddings EmbeddingInfo      `json:"embeddings"`
	Indexing   *IndexingProgress  `json:"indexing,omitempty"`
}

// IndexingProgress mirrors async.IndexProgressSnapshot for the wire.
type IndexingProgress struct {
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

// IndexStats contains node/graph statistics about the vault.
type IndexStats struct {
	NodeCount   int `json:"node_count"`
	GhostCount  int `json:"ghost_count"`
	EdgeCount   int `json:"edge_count"`
}

// EmbeddingInfo describes the active embedding configuration.
type EmbeddingInfo struct {
	Kind       string `json:"kind"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Active     bool   `json:"active"`
}

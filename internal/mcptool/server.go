package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexgetty/roux/internal/cache"
	"github.com/alexgetty/roux/internal/config"
	"github.com/alexgetty/roux/internal/engine"
	"github.com/alexgetty/roux/internal/graph"
	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/alexgetty/roux/pkg/version"
)

// Server is Roux's MCP server: it exposes the store engine's operations
// as the tool surface described by the specification's external
// interfaces, applying input validation and output truncation that the
// engine itself doesn't know about.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	config *config.Config
	logger *slog.Logger

	rootPath string

	mu sync.RWMutex
}

// ToolInfo describes one registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ResourceInfo describes one registered resource.
type ResourceInfo struct {
	URI      string
	Name     string
	MIMEType string
}

// ResourceContent is the body of a resource read.
type ResourceContent struct {
	URI      string
	Content  string
	MIMEType string
}

// NewServer builds the MCP server over eng, which must already be
// opened and synced by the caller.
func NewServer(eng *engine.Engine, cfg *config.Config, rootPath string, logger *slog.Logger) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:   eng,
		config:   cfg,
		rootPath: rootPath,
		logger:   logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: "roux", Version: version.Version},
		nil,
	)
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "roux", version.Version
}

// Capabilities reports that both tools and resources are enabled.
func (s *Server) Capabilities() (hasTools, hasResources bool) {
	return true, true
}

// ListTools returns the registered tool surface.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "search", Description: "Rank vault nodes against a free-text query, by embedding similarity when a provider is configured or by title/content matching otherwise."},
		{Name: "get_node", Description: "Fetch a single node by id, optionally with its immediate neighbours."},
		{Name: "get_neighbors", Description: "List a node's in, out, or both-direction neighbours."},
		{Name: "find_path", Description: "Find the shortest directed path between two nodes."},
		{Name: "get_hubs", Description: "Rank nodes by in-degree or out-degree."},
		{Name: "search_by_tags", Description: "List nodes matching any or all of a set of tags."},
		{Name: "random_node", Description: "Return one uniformly-random node, optionally tag-filtered."},
		{Name: "create_node", Description: "Create a new markdown node."},
		{Name: "update_node", Description: "Update an existing node's title, content, or tags."},
		{Name: "delete_node", Description: "Delete a node."},
		{Name: "list_nodes", Description: "Page through nodes, optionally filtered by tag or id path prefix."},
		{Name: "resolve_nodes", Description: "Resolve free-text names to node ids by exact, fuzzy, or semantic match."},
		{Name: "nodes_exist", Description: "Check which of a set of ids exist."},
		{Name: "index_status", Description: "Report vault statistics, embedding configuration, and any in-progress sync/backfill."},
	}
}

// registerTools registers all fourteen tools with the MCP SDK server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "search", Description: "Rank vault nodes against a free-text query."}, s.handleSearch)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "get_node", Description: "Fetch a node by id."}, s.handleGetNode)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "get_neighbors", Description: "List a node's neighbours."}, s.handleGetNeighbors)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "find_path", Description: "Find the shortest path between two nodes."}, s.handleFindPath)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "get_hubs", Description: "Rank nodes by degree."}, s.handleGetHubs)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "search_by_tags", Description: "List nodes by tag."}, s.handleSearchByTags)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "random_node", Description: "Return one random node."}, s.handleRandomNode)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "create_node", Description: "Create a node."}, s.handleCreateNode)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "update_node", Description: "Update a node."}, s.handleUpdateNode)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "delete_node", Description: "Delete a node."}, s.handleDeleteNode)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "list_nodes", Description: "Page through nodes."}, s.handleListNodes)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "resolve_nodes", Description: "Resolve names to node ids."}, s.handleResolveNodes)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "nodes_exist", Description: "Check id existence."}, s.handleNodesExist)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "index_status", Description: "Report vault and sync status."}, s.handleIndexStatus)

	s.logger.Info("mcp tools registered", slog.Int("count", len(s.ListTools())))
}

func toNodeOutput(n engine.NodeResult, contentLimit int, includeContent bool) NodeOutput {
	out := NodeOutput{
		ID:         n.ID,
		Title:      n.Title,
		Tags:       n.Tags,
		Links:      capStrings(n.Links, maxLinksPerNode),
		Properties: n.Properties,
		Score:      n.Score,
	}
	if includeContent {
		out.Content = truncate(n.Content, contentLimit)
	}
	return out
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, []NodeOutput, error) {
	requestID := generateRequestID()
	if strings.TrimSpace(input.Query) == "" {
		return nil, nil, NewInvalidParamsError("query must be a non-empty string")
	}
	limit := clampLimit(input.Limit, 10, 1, 100)

	s.logger.Info("search", slog.String("request_id", requestID), slog.String("query", input.Query), slog.Int("limit", limit))

	results, err := s.engine.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, nil, MapError(err)
	}

	out := make([]NodeOutput, 0, len(results))
	for _, r := range results {
		out = append(out, toNodeOutput(r, listContentLimit, input.IncludeContent))
	}
	return nil, out, nil
}

func (s *Server) handleGetNode(ctx context.Context, _ *mcp.CallToolRequest, input GetNodeInput) (*mcp.CallToolResult, *NodeOutput, error) {
	if input.ID == "" {
		return nil, nil, NewInvalidParamsError("id is required")
	}
	depth := input.Depth
	if depth < 0 {
		depth = 0
	}

	node, neighbors, err := s.engine.GetNode(ctx, input.ID, depth)
	if err != nil {
		return nil, nil, MapError(err)
	}

	out := toNodeOutput(*node, primaryContentLimit, true)
	if depth == 1 && len(neighbors) > 0 {
		capped := neighbors
		if len(capped) > maxNeighborsPerRow {
			capped = capped[:maxNeighborsPerRow]
		}
		out.Neighbors = make([]NodeOutput, 0, len(capped))
		for _, n := range capped {
			out.Neighbors = append(out.Neighbors, toNodeOutput(n, neighborContentLimit, false))
		}
	}
	return nil, &out, nil
}

func (s *Server) handleGetNeighbors(ctx context.Context, _ *mcp.CallToolRequest, input GetNeighborsInput) (*mcp.CallToolResult, []NodeOutput, error) {
	if input.ID == "" {
		return nil, nil, NewInvalidParamsError("id is required")
	}
	dir, err := parseDirection(input.Direction)
	if err != nil {
		return nil, nil, NewInvalidParamsError(err.Error())
	}
	limit := clampLimit(input.Limit, 20, 1, maxNeighborsPerRow)

	results, err := s.engine.GetNeighbors(ctx, input.ID, dir, limit)
	if err != nil {
		return nil, nil, MapError(err)
	}

	out := make([]NodeOutput, 0, len(results))
	for _, r := range results {
		out = append(out, toNodeOutput(r, neighborContentLimit, input.IncludeContent))
	}
	return nil, out, nil
}

func (s *Server) handleFindPath(ctx context.Context, _ *mcp.CallToolRequest, input FindPathInput) (*mcp.CallToolResult, *PathOutput, error) {
	if input.Source == "" || input.Target == "" {
		return nil, nil, NewInvalidParamsError("source and target are required")
	}

	result, err := s.engine.FindPath(input.Source, input.Target)
	if err != nil {
		return nil, nil, MapError(err)
	}
	if result == nil {
		return nil, nil, nil
	}
	return nil, &PathOutput{Path: result.Path, Length: result.Length}, nil
}

func (s *Server) handleGetHubs(ctx context.Context, _ *mcp.CallToolRequest, input GetHubsInput) (*mcp.CallToolResult, []HubOutput, error) {
	metric, err := parseMetric(input.Metric)
	if err != nil {
		return nil, nil, NewInvalidParamsError(err.Error())
	}
	limit := clampLimit(input.Limit, 10, 1, 100)

	hubs, err := s.engine.GetHubs(ctx, metric, limit)
	if err != nil {
		return nil, nil, MapError(err)
	}

	out := make([]HubOutput, 0, len(hubs))
	for _, h := range hubs {
		out = append(out, HubOutput{ID: h.ID, Title: h.Title, Score: h.Score})
	}
	return nil, out, nil
}

func (s *Server) handleSearchByTags(ctx context.Context, _ *mcp.CallToolRequest, input SearchByTagsInput) (*mcp.CallToolResult, []NodeOutput, error) {
	if len(input.Tags) == 0 {
		return nil, nil, NewInvalidParamsError("tags must be non-empty")
	}
	mode := input.Mode
	if mode != "all" {
		mode = "any"
	}
	limit := clampLimit(input.Limit, 20, 1, 100)

	results, err := s.engine.SearchByTags(ctx, input.Tags, mode, limit)
	if err != nil {
		return nil, nil, MapError(err)
	}

	out := make([]NodeOutput, 0, len(results))
	for _, r := range results {
		out = append(out, toNodeOutput(r, listContentLimit, input.IncludeContent))
	}
	return nil, out, nil
}

func (s *Server) handleRandomNode(ctx context.Context, _ *mcp.CallToolRequest, input RandomNodeInput) (*mcp.CallToolResult, *NodeOutput, error) {
	r, err := s.engine.RandomNode(ctx, input.Tags)
	if err != nil {
		return nil, nil, MapError(err)
	}
	if r == nil {
		return nil, nil, nil
	}
	out := toNodeOutput(*r, primaryContentLimit, true)
	return nil, &out, nil
}

func (s *Server) handleCreateNode(ctx context.Context, _ *mcp.CallToolRequest, input CreateNodeInput) (*mcp.CallToolResult, *NodeOutput, error) {
	if input.ID == "" || !strings.HasSuffix(input.ID, ".md") {
		return nil, nil, NewInvalidParamsError("id is required and must end in .md")
	}

	n, err := s.engine.CreateNode(ctx, input.ID, input.Content, input.Title, input.Tags)
	if err != nil {
		return nil, nil, MapError(err)
	}

	node, _, err := s.engine.GetNode(ctx, n.ID, 0)
	if err != nil {
		return nil, nil, MapError(err)
	}
	out := toNodeOutput(*node, primaryContentLimit, true)
	return nil, &out, nil
}

func (s *Server) handleUpdateNode(ctx context.Context, _ *mcp.CallToolRequest, input UpdateNodeInput) (*mcp.CallToolResult, *NodeOutput, error) {
	if input.ID == "" {
		return nil, nil, NewInvalidParamsError("id is required")
	}
	if input.Title == nil && input.Content == nil && input.Tags == nil {
		return nil, nil, NewInvalidParamsError("at least one of title, content, tags must be set")
	}

	n, err := s.engine.UpdateNode(ctx, input.ID, input.Title, input.Content, input.Tags, nil)
	if err != nil {
		return nil, nil, MapError(err)
	}

	node, _, err := s.engine.GetNode(ctx, n.ID, 0)
	if err != nil {
		return nil, nil, MapError(err)
	}
	out := toNodeOutput(*node, primaryContentLimit, true)
	return nil, &out, nil
}

func (s *Server) handleDeleteNode(ctx context.Context, _ *mcp.CallToolRequest, input DeleteNodeInput) (*mcp.CallToolResult, DeleteNodeOutput, error) {
	if input.ID == "" {
		return nil, DeleteNodeOutput{}, NewInvalidParamsError("id is required")
	}
	deleted, err := s.engine.DeleteNode(ctx, input.ID)
	if err != nil {
		return nil, DeleteNodeOutput{}, MapError(err)
	}
	return nil, DeleteNodeOutput{Deleted: deleted}, nil
}

func (s *Server) handleListNodes(ctx context.Context, _ *mcp.CallToolRequest, input ListNodesInput) (*mcp.CallToolResult, ListNodesOutput, error) {
	limit := clampLimit(input.Limit, 100, 1, 1000)
	if input.Offset < 0 {
		return nil, ListNodesOutput{}, NewInvalidParamsError("offset must be >= 0")
	}

	summaries, total, err := s.engine.ListNodes(ctx, cache.ListFilter{Tag: input.Tag, Path: input.Path}, input.Offset, limit)
	if err != nil {
		return nil, ListNodesOutput{}, MapError(err)
	}

	out := ListNodesOutput{Nodes: make([]NodeSummaryOutput, 0, len(summaries)), Total: total}
	for _, s := range summaries {
		out.Nodes = append(out.Nodes, NodeSummaryOutput{ID: s.ID, Title: s.Title})
	}
	return nil, out, nil
}

func (s *Server) handleResolveNodes(ctx context.Context, _ *mcp.CallToolRequest, input ResolveNodesInput) (*mcp.CallToolResult, []ResolveNodesOutput, error) {
	if len(input.Names) == 0 {
		return nil, nil, NewInvalidParamsError("names must be non-empty")
	}

	opts := engine.ResolveOptions{
		Strategy:  engine.Strategy(input.Strategy),
		Threshold: input.Threshold,
		Tag:       input.Tag,
		Path:      input.Path,
	}
	results, err := s.engine.ResolveNodes(ctx, input.Names, opts)
	if err != nil {
		return nil, nil, MapError(err)
	}

	out := make([]ResolveNodesOutput, 0, len(results))
	for _, r := range results {
		out = append(out, ResolveNodesOutput{Query: r.Query, Match: r.Match, Score: r.Score})
	}
	return nil, out, nil
}

func (s *Server) handleNodesExist(ctx context.Context, _ *mcp.CallToolRequest, input NodesExistInput) (*mcp.CallToolResult, map[string]bool, error) {
	if len(input.IDs) == 0 {
		return nil, nil, NewInvalidParamsError("ids must be non-empty")
	}
	out, err := s.engine.NodesExist(ctx, input.IDs)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (*mcp.CallToolResult, *IndexStatusOutput, error) {
	g := s.engine.Graph()

	output := &IndexStatusOutput{
		Vault: detectVault(s.rootPath),
		Stats: IndexStats{
			NodeCount: g.NodeCount(),
			EdgeCount: 0,
		},
		Embeddings: embeddingInfo(s.engine),
	}

	progress := s.engine.Progress()
	if progress != nil {
		snap := progress.Snapshot()
		output.Indexing = &IndexingProgress{
			Status:               snap.Status,
			Stage:                snap.Stage,
			FilesTotal:           snap.FilesTotal,
			FilesProcessed:       snap.FilesProcessed,
			EmbeddingsTotal:      snap.EmbeddingsTotal,
			EmbeddingsBackfilled: snap.EmbeddingsBackfilled,
			ProgressPct:          snap.ProgressPct,
			ElapsedSeconds:       snap.ElapsedSeconds,
			ErrorMessage:         snap.ErrorMessage,
		}
	}

	return nil, output, nil
}

func embeddingInfo(eng *engine.Engine) EmbeddingInfo {
	emb := eng.Embedder()
	if emb == nil {
		return EmbeddingInfo{Kind: "none", Active: false}
	}
	kind := "local"
	if emb.ModelName() == "static" {
		kind = "static"
	}
	return EmbeddingInfo{
		Kind:       kind,
		Model:      emb.ModelName(),
		Dimensions: emb.Dimensions(),
		Active:     true,
	}
}

func parseDirection(s string) (graph.Direction, error) {
	switch s {
	case "", "both":
		return graph.DirectionBoth, nil
	case "in":
		return graph.DirectionIn, nil
	case "out":
		return graph.DirectionOut, nil
	default:
		return "", fmt.Errorf("direction must be in, out, or both")
	}
}

func parseMetric(s string) (graph.Metric, error) {
	switch s {
	case "", "in_degree":
		return graph.MetricInDegree, nil
	case "out_degree":
		return graph.MetricOutDegree, nil
	default:
		return "", fmt.Errorf("metric must be in_degree or out_degree")
	}
}

// ListResources lists every real node in the vault as a file:// resource.
func (s *Server) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	summaries, _, err := s.engine.ListNodes(ctx, cache.ListFilter{}, 0, 1000)
	if err != nil {
		return nil, MapError(err)
	}

	out := make([]ResourceInfo, 0, len(summaries))
	for _, sm := range summaries {
		out = append(out, ResourceInfo{
			URI:      "file://" + sm.ID,
			Name:     sm.Title,
			MIMEType: mimeTypeForID(sm.ID),
		})
	}
	return out, nil
}

// ReadResource reads a node's content by its file:// URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	if !strings.HasPrefix(uri, "file://") {
		return nil, NewResourceNotFoundError(uri)
	}
	id := strings.TrimPrefix(uri, "file://")

	node, _, err := s.engine.GetNode(ctx, id, 0)
	if err != nil {
		if rerrors.KindOf(err) == rerrors.NodeNotFound {
			return nil, NewResourceNotFoundError(uri)
		}
		return nil, MapError(err)
	}

	return &ResourceContent{URI: uri, Content: node.Content, MIMEType: mimeTypeForID(id)}, nil
}

// RegisterResources loads the current node set and registers one MCP
// resource per node. It should be called once, after the initial sync,
// before Serve: the SDK has no dynamic resource listing, so resources
// added after this call (from a later sync or watcher batch) won't
// appear until the server restarts.
func (s *Server) RegisterResources(ctx context.Context) error {
	infos, err := s.ListResources(ctx)
	if err != nil {
		return err
	}

	for _, info := range infos {
		s.registerNodeResource(info)
	}

	s.logger.Info("mcp resources registered", slog.Int("count", len(infos)))
	return nil
}

func (s *Server) registerNodeResource(info ResourceInfo) {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:     info.Name,
			URI:      info.URI,
			MIMEType: info.MIMEType,
		},
		s.handleReadResource,
	)
}

func (s *Server) handleReadResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	content, err := s.ReadResource(ctx, req.Params.URI)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      content.URI,
				MIMEType: content.MIMEType,
				Text:     content.Content,
			},
		},
	}, nil
}

// Serve runs the MCP server over the given transport ("stdio" is the
// only one currently wired).
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp server stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources. The underlying store engine is owned
// and closed by the caller, not the MCP server.
func (s *Server) Close() error {
	return nil
}

func generateRequestID() string {
	return uuid.NewString()
}

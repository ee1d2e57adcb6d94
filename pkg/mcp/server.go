package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rmax-ai/orbweaver/pkg/client"
)

// Server adapts orbweaver-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"orbweaver",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// orbweaver://graph
	s.mcpServer.AddResource(mcp.NewResource(
		"orbweaver://graph",
		"Knowledge Graph",
		mcp.WithResourceDescription("The current node/edge graph with live layout positions"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadGraph)

	// orbweaver://diagnostics
	s.mcpServer.AddResource(mcp.NewResource(
		"orbweaver://diagnostics",
		"Simulation Diagnostics",
		mcp.WithResourceDescription("Lifecycle state of the physics simulation loop"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadDiagnostics)
}

// --- Tools ---

func (s *Server) registerTools() {
	// rebuild_graph
	s.mcpServer.AddTool(mcp.NewTool(
		"rebuild_graph",
		mcp.WithDescription("Rebuild the knowledge graph from the metadata store. Returns node and edge counts."),
	), s.handleRebuild)

	// get_graph_page
	s.mcpServer.AddTool(mcp.NewTool(
		"get_graph_page",
		mcp.WithDescription("Fetch one page of graph nodes with the edges between them."),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1 (default 1)")),
		mcp.WithNumber("limit", mcp.Description("Nodes per page (default 50)")),
	), s.handleGraphPage)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"orbweaver-aware",
		mcp.WithPromptDescription("Provides context about orbweaver concepts (nodes, edges, layout, simulation)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	page, err := s.apiClient.GraphPage(ctx, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch graph: %w", err)
	}

	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReadDiagnostics(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	diag, err := s.apiClient.Diagnostics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch diagnostics: %w", err)
	}

	data, err := json.MarshalIndent(diag, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal diagnostics: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleRebuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.apiClient.Rebuild(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Graph rebuilt: %d nodes, %d edges", result.Nodes, result.Edges)), nil
}

func (s *Server) handleGraphPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := int(mcp.ParseFloat64(request, "page", 1))
	limit := int(mcp.ParseFloat64(request, "limit", 50))

	result, err := s.apiClient.GraphPage(ctx, page, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "orbweaver-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are interacting with orbweaver, a live 3-D knowledge graph
visualization engine.

Concepts:
- Node: one source document, with a position computed by a force-directed layout.
- Edge: an undirected link between two documents, weighted by how often they
  reference each other.
- Simulation: a background physics loop that continuously refines positions;
  it runs on an accelerator when present and falls back to the CPU.
- Frame: a binary snapshot of all node positions streamed to viewers.

Use 'get_graph_page' to inspect nodes and edges, and 'rebuild_graph' after
the underlying documents change. Check the diagnostics resource if positions
stop updating.
`

	return mcp.NewGetPromptResult(
		"orbweaver-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"scrapbook/internal/domain"
	"scrapbook/internal/service"
)

// Server is the MCP server for scrapbook pages.
// It exposes tools, resources, and prompts so AI agents can lay out a page.
type Server struct {
	mcp      *server.MCPServer
	sessions *service.Sessions
	identity domain.Identity
	logger   *log.Logger

	// Active page (set by open_page)
	mu         sync.Mutex
	activeSlug string
}

// Deps holds everything the MCP server needs from the app layer.
type Deps struct {
	Sessions *service.Sessions
	Identity domain.Identity
	Logger   *log.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		sessions: deps.Sessions,
		identity: deps.Identity,
		logger:   logger.WithPrefix("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"scrapbook-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPageTools()
	s.registerBlockTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// resolveSlug returns the page slug from tool args or falls back to the active page.
func (s *Server) resolveSlug(args map[string]any) (string, error) {
	if slug, ok := args["page"].(string); ok && slug != "" {
		return slug, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeSlug != "" {
		return s.activeSlug, nil
	}
	return "", fmt.Errorf("no page provided and no active page set (use open_page first)")
}

// editorFor opens the editor for the page named in args (or the active page).
func (s *Server) editorFor(ctx context.Context, args map[string]any) (*service.Editor, error) {
	slug, err := s.resolveSlug(args)
	if err != nil {
		return nil, err
	}
	userID, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.sessions.Open(ctx, userID, slug)
}

// editorAndBlock resolves the editor and validates that blockId exists on it.
func (s *Server) editorAndBlock(ctx context.Context, args map[string]any) (*service.Editor, domain.Block, error) {
	blockID, _ := args["blockId"].(string)
	if blockID == "" {
		return nil, domain.Block{}, fmt.Errorf("blockId is required")
	}
	ed, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, domain.Block{}, err
	}
	blk, ok := ed.Block(blockID)
	if !ok {
		return nil, domain.Block{}, fmt.Errorf("block %s: %w", blockID, domain.ErrBlockNotFound)
	}
	return ed, blk, nil
}

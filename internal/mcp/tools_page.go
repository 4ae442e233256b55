package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"scrapbook/internal/domain"
	"scrapbook/internal/render"
)

func (s *Server) registerPageTools() {
	// ── open_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_page",
		mcp.WithDescription("Open a scrapbook page by slug and make it the active page for subsequent tool calls. The page is created empty if it was never saved."),
		mcp.WithString("page",
			mcp.Description("Page slug, e.g. summer-2024"),
			mcp.Required(),
		),
	), s.handleOpenPage)

	// ── render_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("render_page",
		mcp.WithDescription("Render the page as positioned elements (JSON) or as an HTML fragment"),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
		mcp.WithString("format",
			mcp.Description("json or html (default json)"),
			mcp.Enum("json", "html"),
		),
	), s.handleRenderPage)

	// ── save_status ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_status",
		mcp.WithDescription("Show the save indicator of a page: idle, saving, saved (with time) or error (with message)"),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
		mcp.WithBoolean("dismiss", mcp.Description("Clear a visible save error")),
		mcp.WithBoolean("flush", mcp.Description("Save pending changes now instead of waiting for the debounce")),
	), s.handleSaveStatus)

	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List your saved scrapbook pages, most recently saved first, with their block counts"),
	), s.handleListPages)

	// ── delete_page (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_page",
		mcp.WithDescription("Delete a whole scrapbook page and every block on it. Unsaved changes to the page are dropped."),
		mcp.WithString("page", mcp.Description("Page slug to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeletePage)
}

func (s *Server) currentUser(ctx context.Context) (string, error) {
	userID, ok := s.identity.CurrentUser(ctx)
	if !ok {
		return "", domain.ErrNoUser
	}
	return userID, nil
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := s.sessions.Pages(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	active := s.activeSlug
	s.mu.Unlock()
	return jsonResult(map[string]any{"pages": pages, "active": active})
}

func (s *Server) handleDeletePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("page", "")
	if slug == "" {
		return nil, fmt.Errorf("page is required")
	}
	userID, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.DeletePage(ctx, userID, slug); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.activeSlug == slug {
		s.activeSlug = ""
	}
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Deleted page %s", slug)), nil
}

func (s *Server) handleOpenPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("page", "")
	if slug == "" {
		return nil, fmt.Errorf("page is required")
	}
	ed, err := s.editorFor(ctx, map[string]any{"page": slug})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.activeSlug = slug
	s.mu.Unlock()

	return jsonResult(map[string]any{
		"page":   slug,
		"blocks": len(ed.Blocks()),
		"status": ed.Status(),
	})
}

func (s *Server) handleRenderPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ed, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, err
	}
	scene := ed.Scene()
	if req.GetString("format", "json") != "html" {
		return jsonResult(scene)
	}
	var b strings.Builder
	if err := render.WriteHTML(&b, scene); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return textResult(b.String()), nil
}

func (s *Server) handleSaveStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ed, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, err
	}
	if req.GetBool("dismiss", false) {
		ed.DismissError()
	}
	if req.GetBool("flush", false) {
		if err := ed.SaveNow(ctx); err != nil {
			s.logger.Warn("flush failed", "page", ed.Key(), "err", err)
		}
	}
	return jsonResult(ed.Status())
}

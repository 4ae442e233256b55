package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"scrapbook/internal/canvas"
	"scrapbook/internal/domain"
	"scrapbook/internal/interaction"
)

func (s *Server) registerBlockTools() {
	// ── list_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List all blocks on a page in stacking-insertion order, optionally filtered by type"),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
		mcp.WithString("type", mcp.Description("Filter by block type (optional)")),
	), s.handleListBlocks)

	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Add a block. Position follows the viewport: random x in [100,300), y one third down the visible area. Decorative types get a small random tilt."),
		mcp.WithString("type",
			mcp.Description("Block type: "+strings.Join(blockTypeNames(), ", ")),
			mcp.Required(),
		),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
		mcp.WithString("content", mcp.Description("Initial content (optional, defaults to the toolbar text for the type)")),
		mcp.WithString("font", mcp.Description("Font for text blocks: Handwritten, Classic, Typewriter or Casual")),
		mcp.WithString("doodle", mcp.Description("Doodle label, e.g. Star or Heart")),
		mcp.WithNumber("scrollY", mcp.Description("Viewport scroll offset (default 0)")),
		mcp.WithNumber("viewportWidth", mcp.Description("Viewport width (default 1280)")),
		mcp.WithNumber("viewportHeight", mcp.Description("Viewport height (default 800)")),
	), s.handleAddBlock)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Patch a block. Only the given fields change; text width is clamped to at least 200."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
		mcp.WithString("content", mcp.Description("New content")),
		mcp.WithNumber("x", mcp.Description("New X position")),
		mcp.WithNumber("y", mcp.Description("New Y position")),
		mcp.WithNumber("width", mcp.Description("New width (text blocks)")),
		mcp.WithNumber("rotation", mcp.Description("Rotation in degrees")),
		mcp.WithString("font", mcp.Description("Font name for text blocks")),
	), s.handleUpdateBlock)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("Delete a block from the page"),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── bring_to_front ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("bring_to_front",
		mcp.WithDescription("Raise a block above every other block"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
	), s.handleBringToFront)

	// ── drag_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("drag_block",
		mcp.WithDescription("Drag a block by its handle by (dx, dy). The block comes to the front; the page saves once when the drag ends."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("dx", mcp.Description("Horizontal offset"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Vertical offset"), mcp.Required()),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
	), s.handleDragBlock)

	// ── resize_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_block",
		mcp.WithDescription("Drag the resize handle of a text block by dx. Width never drops below 200."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("dx", mcp.Description("Horizontal offset of the handle"), mcp.Required()),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
	), s.handleResizeBlock)

	// ── upload_image ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("upload_image",
		mcp.WithDescription("Upload a local image file into an image or polaroid block"),
		mcp.WithString("blockId", mcp.Description("Image block ID"), mcp.Required()),
		mcp.WithString("path", mcp.Description("Path of the image file on this machine"), mcp.Required()),
		mcp.WithString("page", mcp.Description("Page slug (optional, defaults to active page)")),
	), s.handleUploadImage)
}

func blockTypeNames() []string {
	names := make([]string, len(domain.BlockTypes))
	for i, t := range domain.BlockTypes {
		names[i] = string(t)
	}
	return names
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ed, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, err
	}

	filterType := req.GetString("type", "")
	summaries := []blockSummary{}
	for _, b := range ed.Blocks() {
		if filterType == "" || string(b.Type) == filterType {
			summaries = append(summaries, summarizeBlock(b))
		}
	}
	return jsonResult(summaries)
}

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	t, err := domain.ParseBlockType(req.GetString("type", ""))
	if err != nil {
		return nil, err
	}
	ed, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, err
	}

	opts := canvas.CreateOptions{
		Viewport: canvas.Viewport{
			ScrollY: getFloat(args, "scrollY", 0),
			Width:   getFloat(args, "viewportWidth", canvas.DefaultViewport.Width),
			Height:  getFloat(args, "viewportHeight", canvas.DefaultViewport.Height),
		},
	}
	if name := req.GetString("font", ""); name != "" {
		f, ok := domain.FontByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown font %q", domain.ErrInvalidBlock, name)
		}
		opts.Font = f.Value
	}
	content := canvas.DefaultContent(t)
	if label := req.GetString("doodle", ""); label != "" {
		d, ok := domain.DoodleByLabel(label)
		if !ok {
			return nil, fmt.Errorf("%w: unknown doodle %q", domain.ErrInvalidBlock, label)
		}
		opts.DoodlePath = d.Path
		content = d.Label
	}
	if c, ok := args["content"].(string); ok {
		content = c
	}
	blk, err := ed.AddBlock(t, content, opts)
	if err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}
	return jsonResult(blk)
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ed, blk, err := s.editorAndBlock(ctx, args)
	if err != nil {
		return nil, err
	}

	patch := domain.BlockPatch{
		X:        optFloat(args, "x"),
		Y:        optFloat(args, "y"),
		Width:    optFloat(args, "width"),
		Rotation: optFloat(args, "rotation"),
		Content:  optString(args, "content"),
	}
	if name := req.GetString("font", ""); name != "" {
		f, ok := domain.FontByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown font %q", domain.ErrInvalidBlock, name)
		}
		patch.FontFamily = &f.Value
	}

	updated, err := ed.UpdateBlock(blk.ID, patch)
	if err != nil {
		return nil, err
	}
	return jsonResult(updated)
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ed, blk, err := s.editorAndBlock(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := ed.DeleteBlock(blk.ID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Block %s deleted", blk.ID)), nil
}

func (s *Server) handleBringToFront(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ed, blk, err := s.editorAndBlock(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	updated, err := ed.BringToFront(blk.ID)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Block %s is now at z-index %d", updated.ID, updated.ZIndex)), nil
}

// gesture replays a press at the block's corner, one move by (dx, dy), and a release.
func (s *Server) gesture(ctx context.Context, req mcp.CallToolRequest, target interaction.Target) (domain.Block, error) {
	args := req.GetArguments()
	ed, blk, err := s.editorAndBlock(ctx, args)
	if err != nil {
		return domain.Block{}, err
	}
	dx := getFloat(args, "dx", 0)
	dy := getFloat(args, "dy", 0)

	start := interaction.Point{X: blk.X, Y: blk.Y}
	if target == interaction.TargetResizeHandle {
		start.X += blk.EffectiveWidth()
	}
	if !ed.PointerDown(blk.ID, target, interaction.PointerEvent{Device: interaction.Mouse, Page: start}) {
		return domain.Block{}, fmt.Errorf("%w: block %s cannot be %s", domain.ErrInvalidBlock, blk.ID, gestureVerb(target))
	}
	ed.PointerMove(interaction.PointerEvent{Device: interaction.Mouse, Page: interaction.Point{X: start.X + dx, Y: start.Y + dy}})
	ed.PointerUp()

	moved, _ := ed.Block(blk.ID)
	return moved, nil
}

func gestureVerb(t interaction.Target) string {
	if t == interaction.TargetResizeHandle {
		return "resized"
	}
	return "dragged"
}

func (s *Server) handleDragBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blk, err := s.gesture(ctx, req, interaction.TargetDragHandle)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Block %s moved to (%.0f, %.0f), z-index %d", blk.ID, blk.X, blk.Y, blk.ZIndex)), nil
}

func (s *Server) handleResizeBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blk, err := s.gesture(ctx, req, interaction.TargetResizeHandle)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Block %s resized to width %.0f", blk.ID, blk.EffectiveWidth())), nil
}

func (s *Server) handleUploadImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path := req.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	ed, blk, err := s.editorAndBlock(ctx, args)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}

	url, err := ed.UploadImage(ctx, blk.ID, filepath.Base(path), f, info.Size())
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Block %s now shows %s", blk.ID, url)), nil
}

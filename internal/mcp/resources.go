package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"scrapbook/internal/canvas"
	"scrapbook/internal/domain"
)

func (s *Server) registerResources() {
	// ── scrapbook://palette ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"scrapbook://palette",
		"Block types, fonts, doodles and stickers",
		mcp.WithMIMEType("application/json"),
	), s.handlePaletteResource)

	// ── scrapbook://page/{slug}/blocks ─────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"scrapbook://page/{slug}/blocks",
			"Blocks on a Page",
		),
		s.handlePageBlocksResource,
	)
}

func (s *Server) handlePaletteResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	palette := map[string]any{
		"toolbar":  canvas.Toolbar,
		"types":    domain.BlockTypes,
		"fonts":    domain.Fonts,
		"doodles":  domain.Doodles,
		"stickers": domain.Stickers,
		"tapes":    domain.Tapes,
	}
	data, _ := json.MarshalIndent(palette, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "scrapbook://palette",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePageBlocksResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	slug := slugFromURI(uri)
	if slug == "" {
		return nil, fmt.Errorf("could not extract page slug from URI: %s", uri)
	}

	ed, err := s.editorFor(ctx, map[string]any{"page": slug})
	if err != nil {
		return nil, err
	}
	blocks := ed.Blocks()
	summaries := make([]blockSummary, len(blocks))
	for i, b := range blocks {
		summaries[i] = summarizeBlock(b)
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// slugFromURI extracts the slug from "scrapbook://page/{slug}/blocks".
func slugFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "scrapbook://page/")
	if !ok {
		return ""
	}
	slug, ok := strings.CutSuffix(rest, "/blocks")
	if !ok || strings.Contains(slug, "/") {
		return ""
	}
	return slug
}

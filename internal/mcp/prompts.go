package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("memory_page",
		mcp.WithPromptDescription("Lay out a scrapbook page about a memory: title, photos, notes and decorations"),
		mcp.WithArgument("page",
			mcp.ArgumentDescription("Page slug to fill"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("memory",
			mcp.ArgumentDescription("What the page is about"),
			mcp.RequiredArgument(),
		),
	), s.handleMemoryPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("review_page",
		mcp.WithPromptDescription("Collect star-rated reviews (books, films, cafés) on one page"),
		mcp.WithArgument("page",
			mcp.ArgumentDescription("Page slug to fill"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What is being reviewed"),
			mcp.RequiredArgument(),
		),
	), s.handleReviewPagePrompt)
}

func (s *Server) handleMemoryPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	page := req.Params.Arguments["page"]
	memory := req.Params.Arguments["memory"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Scrapbook page for: %s", memory),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a scrapbook page about "%s". Follow these steps:

1. open_page with page "%s"
2. add_block of type header with a short title
3. Add two or three image or polaroid blocks; use upload_image if the user gave file paths
4. Add a text block with a few sentences, and a sticky note with one detail worth remembering
5. Decorate with a doodle (e.g. Star or Heart) and a sticker
6. Use drag_block to spread the blocks so they overlap only slightly, then bring_to_front the title
7. Finish with render_page and save_status to confirm the page was saved`, memory, page),
				},
			},
		},
	}, nil
}

func (s *Server) handleReviewPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	page := req.Params.Arguments["page"]
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review page for: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Collect reviews of %s on page "%s":

1. open_page, then add a header block naming the collection
2. For each item add a review block. Its content is JSON: {"rating": 0-5, "text": "..."}
3. Put a quote block under the best-rated item
4. Use list_blocks to check nothing overlaps badly, and drag_block to fix it`, topic, page),
				},
			},
		},
	}, nil
}

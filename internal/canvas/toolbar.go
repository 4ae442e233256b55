package canvas

import "scrapbook/internal/domain"

// ToolbarItem is one "add block" button and the content it starts with.
type ToolbarItem struct {
	Type    domain.BlockType `json:"type"`
	Label   string           `json:"label"`
	Content string           `json:"content"`
}

var Toolbar = []ToolbarItem{
	{Type: domain.BlockTypeText, Label: "Text", Content: "Start typing here..."},
	{Type: domain.BlockTypeHeader, Label: "Header", Content: "Title Here"},
	{Type: domain.BlockTypeImage, Label: "Polaroid", Content: ""},
	{Type: domain.BlockTypeReview, Label: "Review", Content: domain.DefaultReviewContent},
	{Type: domain.BlockTypeSticky, Label: "Sticky", Content: "A note..."},
	{Type: domain.BlockTypeDoodle, Label: "Doodle", Content: "sketch"},
}

// DefaultContent returns the toolbar content for t, or "" for variants the toolbar does not offer.
func DefaultContent(t domain.BlockType) string {
	for _, item := range Toolbar {
		if item.Type == t {
			return item.Content
		}
	}
	return ""
}

// DefaultOptions fills the toolbar selections a caller left empty.
func DefaultOptions(t domain.BlockType, opts CreateOptions) CreateOptions {
	if t == domain.BlockTypeText && opts.Font == "" {
		opts.Font = domain.Fonts[0].Value
	}
	if t == domain.BlockTypeDoodle && opts.DoodlePath == "" {
		opts.DoodlePath = domain.Doodles[0].Path
	}
	return opts
}

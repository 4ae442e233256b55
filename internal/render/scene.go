// Package render maps a block collection to positioned elements. It never mutates blocks.
package render

import "scrapbook/internal/domain"

// Element is one block as a client should draw it.
type Element struct {
	BlockID   string           `json:"blockId"`
	Type      domain.BlockType `json:"type"`
	Left      float64          `json:"left"`
	Top       float64          `json:"top"`
	Rotation  float64          `json:"rotation"`
	ZIndex    int              `json:"zIndex"`
	Width     float64          `json:"width,omitempty"`
	Font      string           `json:"font,omitempty"`
	TapeColor string           `json:"tapeColor,omitempty"`
	Body      string           `json:"body"`

	Review      *domain.Review `json:"review,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	NeedsUpload bool           `json:"needsUpload,omitempty"`
	Path        string         `json:"path,omitempty"`
	Sticker     string         `json:"sticker,omitempty"`

	Active      bool   `json:"active,omitempty"` // being dragged or resized
	Uploading   bool   `json:"uploading,omitempty"`
	UploadError string `json:"uploadError,omitempty"`
}

// Placeholder is what an empty page shows instead of blocks.
type Placeholder struct {
	Title string   `json:"title"`
	Hints []string `json:"hints"`
}

var EmptyPlaceholder = Placeholder{
	Title: "SCRAPBOOK",
	Hints: []string{
		"Add items from the toolbar below",
		"Use the drag handle (↔) on each item to move it around",
		"Scroll down for infinite space!",
	},
}

type Scene struct {
	Elements    []Element    `json:"elements"`
	Empty       bool         `json:"empty"`
	Placeholder *Placeholder `json:"placeholder,omitempty"`
}

// Options carries editor state that is not part of the blocks themselves.
type Options struct {
	Active       string            // block id of the current gesture
	Uploading    map[string]bool   // block ids with an upload in flight
	UploadErrors map[string]string // per-block upload failure messages
}

// Build returns one element per block in collection order.
func Build(blocks domain.Collection, opts Options) Scene {
	if len(blocks) == 0 {
		ph := EmptyPlaceholder
		return Scene{Elements: []Element{}, Empty: true, Placeholder: &ph}
	}

	els := make([]Element, 0, len(blocks))
	for _, b := range blocks {
		el := Element{
			BlockID:   b.ID,
			Type:      b.Type,
			Left:      b.X,
			Top:       b.Y,
			Rotation:  b.Rotation,
			ZIndex:    b.ZIndex,
			Width:     b.EffectiveWidth(),
			Font:      b.FontFamily,
			TapeColor: b.TapeColor,
			Body:      b.Content,

			Active:      b.ID == opts.Active && opts.Active != "",
			Uploading:   opts.Uploading[b.ID],
			UploadError: opts.UploadErrors[b.ID],
		}
		switch b.Type {
		case domain.BlockTypeReview:
			r := domain.ParseReview(b.Content)
			el.Review = &r
			el.Body = r.Text
		case domain.BlockTypeImage, domain.BlockTypePolaroid:
			el.ImageURL = b.Content
			el.NeedsUpload = b.Content == ""
			el.Body = ""
		case domain.BlockTypeDoodle:
			el.Path = b.DoodlePath
		case domain.BlockTypeSticker:
			el.Sticker = b.StickerType
		}
		els = append(els, el)
	}
	return Scene{Elements: els}
}

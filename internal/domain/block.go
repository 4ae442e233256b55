package domain

import "fmt"

type BlockType string

const (
	BlockTypeText      BlockType = "text"
	BlockTypeHeader    BlockType = "header"
	BlockTypeImage     BlockType = "image"
	BlockTypeReview    BlockType = "review"
	BlockTypeSticky    BlockType = "sticky"
	BlockTypeDoodle    BlockType = "doodle"
	BlockTypePolaroid  BlockType = "polaroid"
	BlockTypeWashiTape BlockType = "washi-tape"
	BlockTypeSticker   BlockType = "sticker"
	BlockTypeChecklist BlockType = "checklist"
	BlockTypeQuote     BlockType = "quote"
	BlockTypeCollage   BlockType = "collage"
)

// BlockTypes lists every variant a page can hold, in toolbar order.
var BlockTypes = []BlockType{
	BlockTypeText, BlockTypeHeader, BlockTypeImage, BlockTypeReview, BlockTypeSticky, BlockTypeDoodle,
	BlockTypePolaroid, BlockTypeWashiTape, BlockTypeSticker, BlockTypeChecklist, BlockTypeQuote, BlockTypeCollage,
}

// ParseBlockType validates s against the closed set of block variants.
func ParseBlockType(s string) (BlockType, error) {
	for _, t := range BlockTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown block type %q", ErrInvalidBlock, s)
}

// Resizable reports whether blocks of this type carry a user-adjustable width.
func (t BlockType) Resizable() bool { return t == BlockTypeText }

// Tilted reports whether new blocks of this type get a decorative rotation.
func (t BlockType) Tilted() bool { return t != BlockTypeText && t != BlockTypeHeader }

const (
	MinTextWidth     = 200.0
	DefaultTextWidth = 300.0
	MaxRotation      = 3.0 // degrees either way
)

// Block is one positioned visual unit on a scrapbook page.
// Field names follow the stored JSON, and Mongo documents use the same names,
// so collections round-trip unchanged on every backend.
type Block struct {
	ID          string    `json:"id" bson:"id"`
	Type        BlockType `json:"type" bson:"type"`
	X           float64   `json:"x" bson:"x"`
	Y           float64   `json:"y" bson:"y"`
	Content     string    `json:"content" bson:"content"` // plain text, image URL, doodle label, or review JSON
	Rotation    float64   `json:"rotation" bson:"rotation"`
	ZIndex      int       `json:"zIndex" bson:"zIndex"`
	Width       float64   `json:"width,omitempty" bson:"width,omitempty"`
	Height      float64   `json:"height,omitempty" bson:"height,omitempty"`
	TapeColor   string    `json:"tapeColor,omitempty" bson:"tapeColor,omitempty"`
	FontFamily  string    `json:"fontFamily,omitempty" bson:"fontFamily,omitempty"`
	DoodlePath  string    `json:"doodlePath,omitempty" bson:"doodlePath,omitempty"`
	StickerType string    `json:"stickerType,omitempty" bson:"stickerType,omitempty"`
	BorderStyle string    `json:"borderStyle,omitempty" bson:"borderStyle,omitempty"`
}

// EffectiveWidth returns the width the renderer and resize gesture start from.
func (b Block) EffectiveWidth() float64 {
	if b.Type.Resizable() && b.Width == 0 {
		return DefaultTextWidth
	}
	return b.Width
}

// Collection is the ordered set of blocks of one page. It is read and written whole.
type Collection []Block

// Clone returns a copy that shares no backing array with c.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Index returns the position of the block with id, or -1.
func (c Collection) Index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// MaxZ returns the highest zIndex in c, or 0 when c is empty.
func (c Collection) MaxZ() int {
	maxZ := 0
	for _, b := range c {
		if b.ZIndex > maxZ {
			maxZ = b.ZIndex
		}
	}
	return maxZ
}

// Validate checks the collection-wide invariants: known types and unique ids.
func (c Collection) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for _, b := range c {
		if b.ID == "" {
			return fmt.Errorf("%w: block without id", ErrInvalidBlock)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("%w: duplicate block id %s", ErrInvalidBlock, b.ID)
		}
		seen[b.ID] = struct{}{}
		if _, err := ParseBlockType(string(b.Type)); err != nil {
			return err
		}
	}
	return nil
}

// Sanitize returns the blocks of c that pass Validate, keeping the first block
// of each id, and one error per dropped block.
func (c Collection) Sanitize() (Collection, []error) {
	out := make(Collection, 0, len(c))
	seen := make(map[string]struct{}, len(c))
	var dropped []error
	for _, b := range c {
		switch _, dup := seen[b.ID]; {
		case b.ID == "":
			dropped = append(dropped, fmt.Errorf("%w: block without id", ErrInvalidBlock))
			continue
		case dup:
			dropped = append(dropped, fmt.Errorf("%w: duplicate block id %s", ErrInvalidBlock, b.ID))
			continue
		}
		if _, err := ParseBlockType(string(b.Type)); err != nil {
			dropped = append(dropped, fmt.Errorf("block %s: %w", b.ID, err))
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	return out, dropped
}

// BlockPatch is a partial update; nil fields are left untouched.
type BlockPatch struct {
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Width      *float64 `json:"width,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	Content    *string  `json:"content,omitempty"`
	Rotation   *float64 `json:"rotation,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
	TapeColor  *string  `json:"tapeColor,omitempty"`
}

// Apply merges p into b. Widths of resizable blocks never drop below MinTextWidth.
func (p BlockPatch) Apply(b Block) Block {
	if p.X != nil {
		b.X = *p.X
	}
	if p.Y != nil {
		b.Y = *p.Y
	}
	if p.Width != nil {
		b.Width = *p.Width
		if b.Type.Resizable() && b.Width < MinTextWidth {
			b.Width = MinTextWidth
		}
	}
	if p.Height != nil {
		b.Height = *p.Height
	}
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Rotation != nil {
		b.Rotation = *p.Rotation
	}
	if p.FontFamily != nil {
		b.FontFamily = *p.FontFamily
	}
	if p.TapeColor != nil {
		b.TapeColor = *p.TapeColor
	}
	return b
}

// Package canvas holds the in-memory block collection of one open page.
package canvas

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"scrapbook/internal/domain"
)

// narrowViewport is the width below which new blocks are centered horizontally.
const narrowViewport = 768

// Viewport describes what the user currently sees, in page coordinates.
type Viewport struct {
	ScrollY float64 `json:"scrollY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// DefaultViewport is used when a caller has no real window (CLI, MCP, inbox).
var DefaultViewport = Viewport{Width: 1280, Height: 800}

// CreateOptions carries the toolbar selections that shape a new block.
type CreateOptions struct {
	Viewport    Viewport
	Font        string // CSS font-family selected for text blocks
	DoodlePath  string
	StickerType string
	BorderStyle string
}

// Board is the ordered block collection of one editor plus its z-order counter.
// It is not safe for concurrent use; the owning editor serializes access.
type Board struct {
	blocks   domain.Collection
	highestZ int
	rng      *rand.Rand
	newID    func() string
}

type Option func(*Board)

// WithRand injects the source used for initial rotation, position and decoration.
func WithRand(r *rand.Rand) Option { return func(b *Board) { b.rng = r } }

// WithIDs replaces uuid generation, mostly for tests.
func WithIDs(gen func() string) Option { return func(b *Board) { b.newID = gen } }

// NewBoard hydrates a board from a loaded collection.
func NewBoard(blocks domain.Collection, opts ...Option) *Board {
	b := &Board{
		blocks:   blocks.Clone(),
		highestZ: max(1, blocks.MaxZ()),
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(b)
	}
	if b.rng == nil {
		seed := uint64(time.Now().UnixNano())
		b.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return b
}

// Create appends a new block of type t and returns it.
func (b *Board) Create(t domain.BlockType, content string, opts CreateOptions) domain.Block {
	vp := opts.Viewport
	if vp.Width == 0 && vp.Height == 0 {
		vp = DefaultViewport
	}

	x := 100 + b.rng.Float64()*200
	if vp.Width < narrowViewport {
		x = vp.Width/2 - 150
	}

	rotation := 0.0
	if t.Tilted() {
		rotation = b.rng.Float64()*2*domain.MaxRotation - domain.MaxRotation
	}

	b.highestZ++
	blk := domain.Block{
		ID:          b.newID(),
		Type:        t,
		X:           x,
		Y:           vp.ScrollY + vp.Height/3,
		Content:     content,
		Rotation:    rotation,
		ZIndex:      b.highestZ,
		TapeColor:   domain.Tapes[b.rng.IntN(len(domain.Tapes))],
		DoodlePath:  opts.DoodlePath,
		StickerType: opts.StickerType,
		BorderStyle: opts.BorderStyle,
	}
	if t == domain.BlockTypeText {
		blk.Width = domain.DefaultTextWidth
		blk.FontFamily = opts.Font
		if blk.FontFamily == "" {
			blk.FontFamily = domain.Fonts[0].Value
		}
	} else {
		blk.FontFamily = domain.Fonts[b.rng.IntN(len(domain.Fonts))].Value
	}

	b.blocks = append(b.blocks, blk)
	return blk
}

// Update merges patch into the block with id. A missing id is a no-op.
func (b *Board) Update(id string, patch domain.BlockPatch) (domain.Block, bool) {
	i := b.blocks.Index(id)
	if i < 0 {
		return domain.Block{}, false
	}
	b.blocks[i] = patch.Apply(b.blocks[i])
	return b.blocks[i], true
}

// Delete removes the block with id. A missing id is a no-op.
func (b *Board) Delete(id string) bool {
	i := b.blocks.Index(id)
	if i < 0 {
		return false
	}
	b.blocks = append(b.blocks[:i], b.blocks[i+1:]...)
	return true
}

// BringToFront places the block above every other block on the board.
func (b *Board) BringToFront(id string) (domain.Block, bool) {
	i := b.blocks.Index(id)
	if i < 0 {
		return domain.Block{}, false
	}
	b.highestZ = max(b.highestZ, b.blocks.MaxZ()) + 1
	b.blocks[i].ZIndex = b.highestZ
	return b.blocks[i], true
}

// Replace swaps in a freshly loaded collection and resets the z counter from it.
func (b *Board) Replace(blocks domain.Collection) {
	b.blocks = blocks.Clone()
	b.highestZ = max(1, b.blocks.MaxZ())
}

func (b *Board) Get(id string) (domain.Block, bool) {
	i := b.blocks.Index(id)
	if i < 0 {
		return domain.Block{}, false
	}
	return b.blocks[i], true
}

// Snapshot returns a copy of the collection in insertion order.
func (b *Board) Snapshot() domain.Collection { return b.blocks.Clone() }

func (b *Board) Len() int { return len(b.blocks) }

// HighestZ reports the current z-order counter.
func (b *Board) HighestZ() int { return b.highestZ }

package interaction

import (
	"scrapbook/internal/canvas"
	"scrapbook/internal/domain"
)

type Mode string

const (
	Idle     Mode = "idle"
	Dragging Mode = "dragging"
	Resizing Mode = "resizing"
)

// State is the engine's current gesture. Only the fields of the active mode are set.
type State struct {
	Mode    Mode   `json:"mode"`
	BlockID string `json:"blockId,omitempty"`

	Offset Point `json:"offset"` // dragging: pointer minus block origin at press

	StartWidth float64 `json:"startWidth,omitempty"` // resizing
	StartX     float64 `json:"startX,omitempty"`
}

func (s State) Active() bool { return s.Mode != Idle }

// Engine is the Idle / Dragging / Resizing state machine of one editor.
// Like Board it is not safe for concurrent use.
type Engine struct {
	board        *canvas.Board
	state        State
	onGestureEnd func(State)
}

// NewEngine binds an engine to board. onGestureEnd runs once per finished drag or resize.
func NewEngine(board *canvas.Board, onGestureEnd func(State)) *Engine {
	return &Engine{board: board, state: State{Mode: Idle}, onGestureEnd: onGestureEnd}
}

func (e *Engine) State() State { return e.state }

// Press starts a gesture on blockID. It reports whether a gesture began.
func (e *Engine) Press(blockID string, target Target, ev PointerEvent) bool {
	if target == TargetTextInput {
		return false
	}
	p, ok := Normalize(ev)
	if !ok {
		return false
	}
	blk, ok := e.board.Get(blockID)
	if !ok {
		return false
	}

	switch target {
	case TargetResizeHandle:
		if !blk.Type.Resizable() {
			return false
		}
		e.state = State{Mode: Resizing, BlockID: blockID, StartWidth: blk.EffectiveWidth(), StartX: p.X}
	default:
		blk, _ = e.board.BringToFront(blockID)
		e.state = State{Mode: Dragging, BlockID: blockID, Offset: p.Sub(Point{X: blk.X, Y: blk.Y})}
	}
	return true
}

// Move applies a pointer move to the active gesture. It returns true while a
// gesture is active so callers can suppress scrolling.
func (e *Engine) Move(ev PointerEvent) bool {
	if !e.state.Active() {
		return false
	}
	p, ok := Normalize(ev)
	if !ok {
		return true
	}

	switch e.state.Mode {
	case Dragging:
		x, y := p.X-e.state.Offset.X, p.Y-e.state.Offset.Y
		e.board.Update(e.state.BlockID, domain.BlockPatch{X: &x, Y: &y})
	case Resizing:
		w := max(domain.MinTextWidth, e.state.StartWidth+(p.X-e.state.StartX))
		e.board.Update(e.state.BlockID, domain.BlockPatch{Width: &w})
	}
	return true
}

// Release ends any gesture (pointer up, leave or touch cancel) and returns to Idle.
func (e *Engine) Release() bool {
	ended := e.state
	e.state = State{Mode: Idle}
	if !ended.Active() {
		return false
	}
	if e.onGestureEnd != nil {
		e.onGestureEnd(ended)
	}
	return true
}

// Cancel drops the gesture without firing the end hook, e.g. when the block was deleted.
func (e *Engine) Cancel() { e.state = State{Mode: Idle} }

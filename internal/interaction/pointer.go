// Package interaction turns raw pointer input into block moves and resizes.
package interaction

import "fmt"

type Device string

const (
	Mouse Device = "mouse"
	Touch Device = "touch"
)

// Point is a position in page coordinates (scroll offset included).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// PointerEvent is a mouse or touch event as delivered by a client.
type PointerEvent struct {
	Device  Device  `json:"device"`
	Page    Point   `json:"page"`
	Touches []Point `json:"touches,omitempty"`
}

// Normalize reduces ev to a single page point: the first touch for touch input,
// the page coordinates otherwise. A touch event without touches has no point.
func Normalize(ev PointerEvent) (Point, bool) {
	if ev.Device == Touch {
		if len(ev.Touches) == 0 {
			return Point{}, false
		}
		return ev.Touches[0], true
	}
	return ev.Page, true
}

// Target is the part of a block a press landed on.
type Target string

const (
	TargetBody         Target = "body"
	TargetDragHandle   Target = "drag-handle"
	TargetResizeHandle Target = "resize-handle"
	TargetTextInput    Target = "text-input"
)

func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetBody, TargetDragHandle, TargetResizeHandle, TargetTextInput:
		return t, nil
	case "":
		return TargetBody, nil
	}
	return "", fmt.Errorf("unknown pointer target %q", s)
}

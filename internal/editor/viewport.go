// Package editor implements the floor-plan interaction engine: viewport
// control, screen/world coordinate mapping, the pointer gesture state
// machine, selection bookkeeping, and the optimistic slot store.
package editor

import (
	"math"

	"floorplan-editor/internal/slot"
	"floorplan-editor/pkg/geometry"
)

// DefaultPadding is the world-unit margin applied around the slot bounding
// box when deriving the initial viewport.
const DefaultPadding = 50.0

// Viewport is the world-space rectangle mapped onto the visible drawing
// surface. Width and height are kept independent so a zoom operation can be
// added later without changing the shape.
type Viewport struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect returns the viewport as a geometry rectangle.
func (v Viewport) Rect() geometry.Rect {
	return geometry.Rect{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}
}

// DefaultViewport is used when there are no slots to derive bounds from.
func DefaultViewport() Viewport {
	return Viewport{X: 0, Y: 0, Width: 1000, Height: 700}
}

// ComputeInitialViewport returns a viewport containing the axis-aligned
// bounding box of every slot, expanded by padding on all sides. Rotation is
// ignored when computing bounds. A degenerate zero-extent axis is widened by
// an extra 2*padding so the resulting view box is always renderable.
func ComputeInitialViewport(slots []slot.Slot, padding float64) Viewport {
	if padding <= 0 {
		padding = DefaultPadding
	}

	var union geometry.Rect
	have := false
	for _, s := range slots {
		b := slotBounds(s)
		if b == nil {
			continue
		}
		if !have {
			union = *b
			have = true
		} else {
			union = union.Union(*b)
		}
	}
	if !have {
		return DefaultViewport()
	}

	if union.Width == 0 {
		union.X -= padding
		union.Width += 2 * padding
	}
	if union.Height == 0 {
		union.Y -= padding
		union.Height += 2 * padding
	}
	union = union.Expand(padding)

	return Viewport{X: union.X, Y: union.Y, Width: union.Width, Height: union.Height}
}

// slotBounds returns the slot's bounding box for viewport fitting, or nil if
// the position is unusable. Non-finite or negative extents are clamped to
// zero so a malformed record still anchors the view at its position.
func slotBounds(s slot.Slot) *geometry.Rect {
	if math.IsNaN(s.X) || math.IsInf(s.X, 0) || math.IsNaN(s.Y) || math.IsInf(s.Y, 0) {
		return nil
	}
	w, h := s.Width, s.Height
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		w = 0
	}
	if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
		h = 0
	}
	return &geometry.Rect{X: s.X, Y: s.Y, Width: w, Height: h}
}

// Pan translates the viewport opposite to the pointer motion so the content
// appears to move with the pointer. deltaX/deltaY are the pointer's motion
// in world units.
func Pan(v Viewport, deltaX, deltaY float64) Viewport {
	v.X -= deltaX
	v.Y -= deltaY
	return v
}

// ZoomAt scales the viewport by 1/factor about a world anchor, so the
// content under the anchor stays put while everything else moves toward or
// away from it. factor > 1 zooms in. Factors that would produce a
// non-positive or non-finite extent leave the viewport unchanged.
func ZoomAt(v Viewport, anchor geometry.Point2D, factor float64) Viewport {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return v
	}
	w := v.Width / factor
	h := v.Height / factor
	if w <= 0 || h <= 0 || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return v
	}

	// Keep the anchor at the same fractional position within the viewport.
	fx := (anchor.X - v.X) / v.Width
	fy := (anchor.Y - v.Y) / v.Height
	return Viewport{
		X:      anchor.X - fx*w,
		Y:      anchor.Y - fy*h,
		Width:  w,
		Height: h,
	}
}

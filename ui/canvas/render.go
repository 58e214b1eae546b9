package canvas

import (
	"math"

	"floorplan-editor/internal/slot"
	"floorplan-editor/pkg/geometry"
)

// ellipseSegments is the polygon resolution used to approximate round
// shapes. 48 segments is visually smooth at every zoom level this editor
// reaches.
const ellipseSegments = 48

// slotOutline returns the slot's world-space outline polygon, honoring
// shape and rotation. origin overrides the slot's stored position when the
// slot is being drag-previewed.
func slotOutline(s slot.Slot, origin geometry.Point2D) []geometry.Point2D {
	offsetX := origin.X - s.X
	offsetY := origin.Y - s.Y

	var pts []geometry.Point2D
	switch s.Shape {
	case slot.ShapeCircle:
		r := math.Min(s.Width, s.Height) / 2
		pts = ellipseOutline(s.Center(), r, r, s.RotationRadians())
	case slot.ShapeEllipse:
		pts = ellipseOutline(s.Center(), s.Width/2, s.Height/2, s.RotationRadians())
	default:
		corners := s.Bounds().Corners(s.RotationRadians())
		pts = corners[:]
	}

	if offsetX != 0 || offsetY != 0 {
		for i := range pts {
			pts[i].X += offsetX
			pts[i].Y += offsetY
		}
	}
	return pts
}

// ellipseOutline generates a polygon approximating an ellipse centered at
// c with the given radii, rotated about its center.
func ellipseOutline(c geometry.Point2D, rx, ry, radians float64) []geometry.Point2D {
	pts := make([]geometry.Point2D, ellipseSegments)
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	for i := 0; i < ellipseSegments; i++ {
		theta := 2 * math.Pi * float64(i) / ellipseSegments
		x := rx * math.Cos(theta)
		y := ry * math.Sin(theta)
		pts[i] = geometry.Point2D{
			X: c.X + x*cos - y*sin,
			Y: c.Y + x*sin + y*cos,
		}
	}
	return pts
}

// hitTest returns the topmost renderable slot containing the world point.
// Slots later in the collection draw on top, so the search runs backwards.
func hitTest(slots []slot.Slot, world geometry.Point2D) (slot.Slot, bool) {
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].Contains(world) {
			return slots[i], true
		}
	}
	return slot.Slot{}, false
}

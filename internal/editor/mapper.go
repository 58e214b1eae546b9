package editor

import (
	"floorplan-editor/pkg/geometry"
)

// ScreenMapper converts pointer positions on the drawing surface into world
// coordinates and back. It is a pure function of the current viewport and
// the surface's on-screen pixel size; the scale between the two is applied
// proportionally per axis so a screen-space delta maps to a world-space
// delta that reproduces the same apparent motion when re-rendered.
type ScreenMapper struct {
	Viewport     Viewport
	ScreenWidth  float64
	ScreenHeight float64
}

// Transform returns the forward (world -> screen) affine transform. ok is
// false when the surface is not mounted yet or has no extent, in which case
// no meaningful mapping exists.
func (m ScreenMapper) Transform() (geometry.AffineTransform, bool) {
	if m.ScreenWidth <= 0 || m.ScreenHeight <= 0 ||
		m.Viewport.Width <= 0 || m.Viewport.Height <= 0 {
		return geometry.Identity(), false
	}
	sx := m.ScreenWidth / m.Viewport.Width
	sy := m.ScreenHeight / m.Viewport.Height
	return geometry.Scaling(sx, sy).Compose(geometry.Translation(-m.Viewport.X, -m.Viewport.Y)), true
}

// ToWorld maps a screen-space point into world space. When the surface has
// no usable transform the world origin is returned; pointer handling treats
// that as a recoverable no-op rather than an error.
func (m ScreenMapper) ToWorld(screenX, screenY float64) geometry.Point2D {
	tf, ok := m.Transform()
	if !ok {
		return geometry.Point2D{}
	}
	inv, ok := tf.Inverse()
	if !ok {
		return geometry.Point2D{}
	}
	return inv.Apply(geometry.Point2D{X: screenX, Y: screenY})
}

// ToScreen maps a world-space point onto the surface. ok is false when no
// transform is available.
func (m ScreenMapper) ToScreen(world geometry.Point2D) (geometry.Point2D, bool) {
	tf, ok := m.Transform()
	if !ok {
		return geometry.Point2D{}, false
	}
	return tf.Apply(world), true
}

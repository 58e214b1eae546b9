package editor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"floorplan-editor/internal/slot"
	"floorplan-editor/pkg/geometry"
)

func TestComputeInitialViewportEmpty(t *testing.T) {
	assert.Equal(t, DefaultViewport(), ComputeInitialViewport(nil, 50))
}

func TestComputeInitialViewportPadsBounds(t *testing.T) {
	slots := []slot.Slot{
		{ID: "a", X: 100, Y: 100, Width: 50, Height: 50},
		{ID: "b", X: 400, Y: 300, Width: 100, Height: 80},
	}

	v := ComputeInitialViewport(slots, 50)
	assert.InDelta(t, 50, v.X, 1e-9)
	assert.InDelta(t, 50, v.Y, 1e-9)
	assert.InDelta(t, 500, v.Width, 1e-9)  // 100..500 plus 2*50
	assert.InDelta(t, 380, v.Height, 1e-9) // 100..380 plus 2*50
}

func TestComputeInitialViewportSingleZeroSizeSlot(t *testing.T) {
	// A single zero-extent slot still yields a usable view box:
	// 4x padding per dimension, centered on the slot.
	slots := []slot.Slot{{ID: "a", X: 10, Y: 20}}

	v := ComputeInitialViewport(slots, 50)
	assert.InDelta(t, 10-100, v.X, 1e-9)
	assert.InDelta(t, 20-100, v.Y, 1e-9)
	assert.InDelta(t, 200, v.Width, 1e-9)
	assert.InDelta(t, 200, v.Height, 1e-9)
}

func TestComputeInitialViewportClampsMalformedExtents(t *testing.T) {
	slots := []slot.Slot{
		{ID: "a", X: 0, Y: 0, Width: 100, Height: 100},
		{ID: "bad", X: 500, Y: 500, Width: math.NaN(), Height: -10},
	}

	// The malformed record still anchors the bounds at its position.
	v := ComputeInitialViewport(slots, 50)
	assert.InDelta(t, -50, v.X, 1e-9)
	assert.InDelta(t, 600, v.Width, 1e-9) // 0..500 plus 2*50
}

func TestComputeInitialViewportIgnoresNonFinitePositions(t *testing.T) {
	slots := []slot.Slot{
		{ID: "bad", X: math.Inf(1), Y: 0, Width: 10, Height: 10},
	}
	assert.Equal(t, DefaultViewport(), ComputeInitialViewport(slots, 50))
}

func TestPanMovesContentWithPointer(t *testing.T) {
	v := Viewport{X: 100, Y: 100, Width: 500, Height: 500}

	// Pointer moves right and down; the viewport slides the other way so
	// the content follows the pointer.
	moved := Pan(v, 30, -20)
	assert.InDelta(t, 70, moved.X, 1e-9)
	assert.InDelta(t, 120, moved.Y, 1e-9)
	assert.Equal(t, v.Width, moved.Width)
	assert.Equal(t, v.Height, moved.Height)
}

func TestZoomAtKeepsAnchorFixed(t *testing.T) {
	v := Viewport{X: 0, Y: 0, Width: 1000, Height: 500}
	anchor := geometry.Point2D{X: 250, Y: 125}

	zoomed := ZoomAt(v, anchor, 2)
	assert.InDelta(t, 500, zoomed.Width, 1e-9)
	assert.InDelta(t, 250, zoomed.Height, 1e-9)

	// The anchor's fractional position within the viewport is unchanged.
	assert.InDelta(t, 0.25, (anchor.X-zoomed.X)/zoomed.Width, 1e-9)
	assert.InDelta(t, 0.25, (anchor.Y-zoomed.Y)/zoomed.Height, 1e-9)
}

func TestZoomAtRejectsBadFactors(t *testing.T) {
	v := Viewport{X: 0, Y: 0, Width: 1000, Height: 500}
	anchor := geometry.Point2D{X: 100, Y: 100}

	assert.Equal(t, v, ZoomAt(v, anchor, 0))
	assert.Equal(t, v, ZoomAt(v, anchor, -2))
	assert.Equal(t, v, ZoomAt(v, anchor, math.NaN()))
}

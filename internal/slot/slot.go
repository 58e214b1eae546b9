// Package slot provides the floor-plan slot data model: placed objects
// (tables, booths, decor) with position, size, rotation, and status.
package slot

import (
	"errors"
	"fmt"
	"math"

	"floorplan-editor/pkg/geometry"
)

// Type classifies what a slot represents on the floor.
type Type string

const (
	TypeTable   Type = "table"
	TypeBooth   Type = "booth"
	TypeArea    Type = "area"
	TypeDecor   Type = "decor"
	TypeBarSeat Type = "bar-seat"
	TypeService Type = "service"
)

// Types lists all valid slot types.
var Types = []Type{TypeTable, TypeBooth, TypeArea, TypeDecor, TypeBarSeat, TypeService}

// Shape is the drawable outline of a slot.
type Shape string

const (
	ShapeRectangle     Shape = "rectangle"
	ShapeLongRectangle Shape = "long-rectangle"
	ShapeCircle        Shape = "circle"
	ShapeEllipse       Shape = "ellipse"
)

// Shapes lists all valid slot shapes.
var Shapes = []Shape{ShapeRectangle, ShapeLongRectangle, ShapeCircle, ShapeEllipse}

// Status describes availability and drives the default fill color.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusBlocked     Status = "blocked"
	StatusReserved    Status = "reserved"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
)

// Statuses lists all valid slot statuses.
var Statuses = []Status{StatusAvailable, StatusBlocked, StatusReserved, StatusOccupied, StatusMaintenance}

// ZoneAll is the sentinel zone value meaning "all zones" in list filters.
const ZoneAll = "all"

// ErrInvalidGeometry is returned when a slot has non-positive or non-finite extents.
var ErrInvalidGeometry = errors.New("slot geometry must have positive finite width and height")

// Metadata carries optional per-slot attributes.
type Metadata struct {
	Color       string `json:"color,omitempty"` // #rrggbb override for the status fill
	Capacity    int    `json:"capacity,omitempty"`
	Description string `json:"description,omitempty"`
	Reservable  bool   `json:"reservable,omitempty"`
}

// Slot is a placed floor-plan object. Geometry is in world units with
// (X, Y) the top-left corner and Rotation in degrees about the shape's
// own center. The ID is assigned by the slot service and immutable.
type Slot struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     Type      `json:"type"`
	Shape    Shape     `json:"shape"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Rotation float64   `json:"rotation"`
	Status   Status    `json:"status"`
	Zone     string    `json:"zone"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Bounds returns the slot's axis-aligned bounding rectangle, ignoring rotation.
func (s Slot) Bounds() geometry.Rect {
	return geometry.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// Center returns the center of the slot's bounding rectangle, which is
// also its rotation pivot.
func (s Slot) Center() geometry.Point2D {
	return s.Bounds().Center()
}

// Origin returns the slot's top-left corner.
func (s Slot) Origin() geometry.Point2D {
	return geometry.Point2D{X: s.X, Y: s.Y}
}

// Validate checks the invariants that must hold before a slot may be
// created or committed: positive finite extents and known enum values.
func (s Slot) Validate() error {
	if !s.Renderable() {
		return fmt.Errorf("%w: %gx%g", ErrInvalidGeometry, s.Width, s.Height)
	}
	if !validType(s.Type) {
		return fmt.Errorf("unknown slot type %q", s.Type)
	}
	if !validShape(s.Shape) {
		return fmt.Errorf("unknown slot shape %q", s.Shape)
	}
	if !validStatus(s.Status) {
		return fmt.Errorf("unknown slot status %q", s.Status)
	}
	return nil
}

// Renderable reports whether the slot's geometry can be drawn at all.
// Backend records with zero, negative, or non-finite extents are skipped
// by the renderer rather than crashing the scene.
func (s Slot) Renderable() bool {
	return finite(s.X) && finite(s.Y) &&
		finite(s.Width) && finite(s.Height) && finite(s.Rotation) &&
		s.Width > 0 && s.Height > 0
}

// DisplayRotation returns the rotation normalized to [0, 360). The backend
// may deliver out-of-range values; they are taken modulo 360 for display.
func (s Slot) DisplayRotation() float64 {
	return NormalizeRotation(s.Rotation)
}

// RotationRadians returns the normalized rotation in radians.
func (s Slot) RotationRadians() float64 {
	return NormalizeRotation(s.Rotation) * math.Pi / 180
}

// Contains reports whether a world-space point falls inside the slot,
// honoring shape and rotation. Used for pointer hit-testing.
func (s Slot) Contains(p geometry.Point2D) bool {
	if !s.Renderable() {
		return false
	}

	switch s.Shape {
	case ShapeCircle:
		// A disc is invariant under rotation about its own center.
		r := math.Min(s.Width, s.Height) / 2
		return p.Distance(s.Center()) <= r
	case ShapeEllipse:
		// Undo the rotation so the test happens in the ellipse's own frame.
		c := s.Center()
		local := p.RotateAround(c, -s.RotationRadians())
		nx := (local.X - c.X) / (s.Width / 2)
		ny := (local.Y - c.Y) / (s.Height / 2)
		return nx*nx+ny*ny <= 1
	default:
		// Rotated rectangles hit-test as polygons via ray casting; the
		// common unrotated case keeps the cheap axis-aligned check.
		if rad := s.RotationRadians(); rad != 0 {
			corners := s.Bounds().Corners(rad)
			return geometry.PointInPolygon(p, corners[:])
		}
		return s.Bounds().Contains(p)
	}
}

// NormalizeRotation maps any rotation in degrees to [0, 360).
func NormalizeRotation(deg float64) float64 {
	if !finite(deg) {
		return 0
	}
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validType(t Type) bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

func validShape(sh Shape) bool {
	for _, v := range Shapes {
		if sh == v {
			return true
		}
	}
	return false
}

func validStatus(st Status) bool {
	for _, v := range Statuses {
		if st == v {
			return true
		}
	}
	return false
}

// Patch is a partial slot update. Nil fields are left untouched; the slot
// service applies the same semantics server-side.
type Patch struct {
	Label    *string  `json:"label,omitempty"`
	Type     *Type    `json:"type,omitempty"`
	Shape    *Shape   `json:"shape,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	Status   *Status  `json:"status,omitempty"`
	Zone     *string  `json:"zone,omitempty"`

	Color       *string `json:"color,omitempty"`
	Capacity    *int    `json:"capacity,omitempty"`
	Description *string `json:"description,omitempty"`
	Reservable  *bool   `json:"reservable,omitempty"`
}

// MovePatch builds a patch that repositions a slot.
func MovePatch(x, y float64) Patch {
	return Patch{X: &x, Y: &y}
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p == Patch{}
}

// Apply copies the patch's set fields onto the slot. Metadata fields are
// created on demand.
func (p Patch) Apply(s *Slot) {
	if p.Label != nil {
		s.Label = *p.Label
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.Shape != nil {
		s.Shape = *p.Shape
	}
	if p.X != nil {
		s.X = *p.X
	}
	if p.Y != nil {
		s.Y = *p.Y
	}
	if p.Width != nil {
		s.Width = *p.Width
	}
	if p.Height != nil {
		s.Height = *p.Height
	}
	if p.Rotation != nil {
		s.Rotation = NormalizeRotation(*p.Rotation)
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Zone != nil {
		s.Zone = *p.Zone
	}

	if p.Color != nil || p.Capacity != nil || p.Description != nil || p.Reservable != nil {
		if s.Metadata == nil {
			s.Metadata = &Metadata{}
		}
		if p.Color != nil {
			s.Metadata.Color = *p.Color
		}
		if p.Capacity != nil {
			s.Metadata.Capacity = *p.Capacity
		}
		if p.Description != nil {
			s.Metadata.Description = *p.Description
		}
		if p.Reservable != nil {
			s.Metadata.Reservable = *p.Reservable
		}
	}
}

// Clone returns a deep copy of the slot.
func (s Slot) Clone() Slot {
	out := s
	if s.Metadata != nil {
		md := *s.Metadata
		out.Metadata = &md
	}
	return out
}

// CloneAll deep-copies a slot slice. Used when the collection crosses a
// goroutine boundary.
func CloneAll(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	for i, s := range slots {
		out[i] = s.Clone()
	}
	return out
}

package editor

import (
	"floorplan-editor/pkg/geometry"
)

// Mode identifies the machine's current interaction state. The three modes
// are mutually exclusive; starting one session force-terminates the other.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModePanning
)

func (m Mode) String() string {
	switch m {
	case ModeDragging:
		return "dragging"
	case ModePanning:
		return "panning"
	default:
		return "idle"
	}
}

// EffectKind tags the side effects a transition asks the caller to perform.
type EffectKind int

const (
	// EffectSelect asks the caller to apply click-selection semantics for
	// the slot in Effect.SlotID (replace, or toggle when Multi is set).
	EffectSelect EffectKind = iota
	// EffectClearSelection is emitted for a background click with no drag.
	EffectClearSelection
	// EffectDragPreview carries the dragged slot's live visual origin in
	// Effect.Position. Visual only; nothing is committed.
	EffectDragPreview
	// EffectPan carries a world-space viewport delta in Effect.Delta.
	EffectPan
	// EffectCommitMove carries the dragged slot's final origin in
	// Effect.Position, to be persisted by the store.
	EffectCommitMove
)

// Effect is one requested side effect of a pointer transition.
type Effect struct {
	Kind     EffectKind
	SlotID   string
	Multi    bool
	Position geometry.Point2D
	Delta    geometry.Point2D
}

// HitTarget describes the slot under the pointer at press time.
type HitTarget struct {
	SlotID string
	Origin geometry.Point2D
}

type dragSession struct {
	slotID string
	// grabOffset is pointerWorld - slotOrigin at press time. It stays fixed
	// for the whole gesture, which makes the committed position independent
	// of how many intermediate move events arrive.
	grabOffset geometry.Point2D
	start      geometry.Point2D
	last       geometry.Point2D
	moved      bool
}

type panSession struct {
	// anchor is the pressed world point. Because the content follows the
	// pointer, the same screen position keeps mapping back to this anchor
	// after each applied pan, so it is never updated mid-gesture.
	anchor geometry.Point2D
	moved  bool
}

// Machine is the pointer gesture state machine. All pointer positions are
// world-space; the caller maps screen coordinates first. Transitions are
// O(1) and return the effects the caller should apply.
type Machine struct {
	mode Mode
	drag dragSession
	pan  panSession
}

// NewMachine returns a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{}
}

// Mode returns the current interaction mode.
func (m *Machine) Mode() Mode {
	return m.mode
}

// DragSlotID returns the slot being dragged, or "" outside a drag.
func (m *Machine) DragSlotID() string {
	if m.mode != ModeDragging {
		return ""
	}
	return m.drag.slotID
}

// Reset force-terminates any active session. Used when a pointer handler
// fails internally: the gesture degrades to idle instead of propagating.
func (m *Machine) Reset() {
	m.mode = ModeIdle
	m.drag = dragSession{}
	m.pan = panSession{}
}

// PointerDown starts a gesture. hit is nil when the press landed on empty
// background. A press while a session is already active means the matching
// release was missed; the stale session is dropped without committing.
func (m *Machine) PointerDown(world geometry.Point2D, hit *HitTarget, multi bool) []Effect {
	if m.mode != ModeIdle {
		m.Reset()
	}

	if hit == nil {
		m.mode = ModePanning
		m.pan = panSession{anchor: world}
		return nil
	}

	m.mode = ModeDragging
	m.drag = dragSession{
		slotID:     hit.SlotID,
		grabOffset: world.Sub(hit.Origin),
		start:      world,
		last:       world,
	}
	return []Effect{{Kind: EffectSelect, SlotID: hit.SlotID, Multi: multi}}
}

// PointerMove advances an active gesture. Idle moves produce nothing.
func (m *Machine) PointerMove(world geometry.Point2D) []Effect {
	switch m.mode {
	case ModeDragging:
		m.drag.last = world
		if world != m.drag.start {
			m.drag.moved = true
		}
		return []Effect{{
			Kind:     EffectDragPreview,
			SlotID:   m.drag.slotID,
			Position: world.Sub(m.drag.grabOffset),
		}}

	case ModePanning:
		delta := world.Sub(m.pan.anchor)
		if delta == (geometry.Point2D{}) {
			return nil
		}
		m.pan.moved = true
		return []Effect{{Kind: EffectPan, Delta: delta}}
	}
	return nil
}

// PointerUp terminates the active gesture at the given world point.
func (m *Machine) PointerUp(world geometry.Point2D) []Effect {
	switch m.mode {
	case ModeDragging:
		d := m.drag
		m.Reset()
		if world != d.start {
			d.moved = true
		}
		if !d.moved {
			return nil
		}
		return []Effect{{
			Kind:     EffectCommitMove,
			SlotID:   d.slotID,
			Position: world.Sub(d.grabOffset),
		}}

	case ModePanning:
		moved := m.pan.moved
		m.Reset()
		if !moved {
			return []Effect{{Kind: EffectClearSelection}}
		}
	}
	m.Reset()
	return nil
}

// PointerLeave terminates the active gesture when the pointer exits the
// drawing surface. A drag in progress commits at its last known position.
func (m *Machine) PointerLeave() []Effect {
	switch m.mode {
	case ModeDragging:
		d := m.drag
		m.Reset()
		if !d.moved {
			return nil
		}
		return []Effect{{
			Kind:     EffectCommitMove,
			SlotID:   d.slotID,
			Position: d.last.Sub(d.grabOffset),
		}}
	}
	m.Reset()
	return nil
}

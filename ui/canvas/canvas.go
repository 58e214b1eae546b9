package canvas

import (
	"image"
	"image/color"
	"log/slog"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"floorplan-editor/internal/editor"
	"floorplan-editor/internal/slot"
	"floorplan-editor/pkg/geometry"
)

const zoomStep = 1.25

var backgroundColor = color.RGBA{R: 24, G: 27, B: 32, A: 255}

// labelColor is near-white for contrast against the status fills.
var labelColor = color.RGBA{R: 240, G: 242, B: 245, A: 255}

// FloorCanvas is the floor-plan drawing surface. It renders the store's
// slot collection through a viewport, feeds pointer events to the gesture
// state machine, and applies the machine's effects back onto the store and
// viewport.
type FloorCanvas struct {
	widget.BaseWidget

	store   *editor.Store
	machine *editor.Machine
	logger  *slog.Logger

	viewport    editor.Viewport
	raster      *fynecanvas.Raster
	autoFit     bool
	showLabels  bool
	padding     float64
	lastPointer fyne.Position

	// previewID/previewOrigin override the dragged slot's drawn position
	// while a drag is in flight. Nothing is committed until release.
	previewID     string
	previewOrigin geometry.Point2D
}

// NewFloorCanvas creates the drawing surface bound to a store.
func NewFloorCanvas(store *editor.Store, logger *slog.Logger) *FloorCanvas {
	if logger == nil {
		logger = slog.Default()
	}
	fc := &FloorCanvas{
		store:      store,
		machine:    editor.NewMachine(),
		logger:     logger,
		viewport:   editor.DefaultViewport(),
		autoFit:    true,
		showLabels: true,
		padding:    editor.DefaultPadding,
	}

	fc.raster = fynecanvas.NewRaster(fc.draw)
	fc.raster.ScaleMode = fynecanvas.ImageScalePixels

	store.On(editor.EventSlotsChanged, func(any) {
		if fc.autoFit {
			fc.fitViewport()
		}
		fc.Refresh()
	})
	store.On(editor.EventSelectionChanged, func(any) {
		fc.Refresh()
	})

	fc.ExtendBaseWidget(fc)
	return fc
}

// Viewport returns the current world viewport.
func (fc *FloorCanvas) Viewport() editor.Viewport {
	return fc.viewport
}

// SetViewport replaces the viewport and disables auto-fit.
func (fc *FloorCanvas) SetViewport(v editor.Viewport) {
	fc.autoFit = false
	fc.viewport = v
	fc.Refresh()
}

// SetShowLabels toggles label rendering.
func (fc *FloorCanvas) SetShowLabels(show bool) {
	fc.showLabels = show
	fc.Refresh()
}

// SetPadding overrides the world-unit margin used when fitting the view.
func (fc *FloorCanvas) SetPadding(padding float64) {
	if padding > 0 {
		fc.padding = padding
	}
}

// FitToSlots recomputes the viewport from the current collection and
// re-enables auto-fit on reload.
func (fc *FloorCanvas) FitToSlots() {
	fc.autoFit = true
	fc.fitViewport()
	fc.Refresh()
}

func (fc *FloorCanvas) fitViewport() {
	fc.viewport = editor.ComputeInitialViewport(fc.store.Slots(), fc.padding)
}

func (fc *FloorCanvas) mapper() editor.ScreenMapper {
	size := fc.Size()
	return editor.ScreenMapper{
		Viewport:     fc.viewport,
		ScreenWidth:  float64(size.Width),
		ScreenHeight: float64(size.Height),
	}
}

// recoverPointer resets the gesture machine when a pointer handler panics.
// One broken event must not leave the editor stuck mid-gesture.
func (fc *FloorCanvas) recoverPointer(handler string) {
	if r := recover(); r != nil {
		fc.logger.Error("pointer handler failed, resetting gesture",
			"handler", handler, "panic", r)
		fc.machine.Reset()
		fc.previewID = ""
		fc.Refresh()
	}
}

// MouseDown implements desktop.Mouseable.
func (fc *FloorCanvas) MouseDown(ev *desktop.MouseEvent) {
	defer fc.recoverPointer("down")
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}

	world := fc.mapper().ToWorld(float64(ev.Position.X), float64(ev.Position.Y))
	var hit *editor.HitTarget
	if s, ok := hitTest(fc.store.Slots(), world); ok {
		hit = &editor.HitTarget{SlotID: s.ID, Origin: s.Origin()}
	}

	multi := ev.Modifier&fyne.KeyModifierControl != 0 || ev.Modifier&fyne.KeyModifierShift != 0
	fc.applyEffects(fc.machine.PointerDown(world, hit, multi))
}

// MouseUp implements desktop.Mouseable.
func (fc *FloorCanvas) MouseUp(ev *desktop.MouseEvent) {
	defer fc.recoverPointer("up")
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	world := fc.mapper().ToWorld(float64(ev.Position.X), float64(ev.Position.Y))
	fc.applyEffects(fc.machine.PointerUp(world))
}

// MouseIn implements desktop.Hoverable.
func (fc *FloorCanvas) MouseIn(*desktop.MouseEvent) {}

// MouseMoved implements desktop.Hoverable.
func (fc *FloorCanvas) MouseMoved(ev *desktop.MouseEvent) {
	defer fc.recoverPointer("move")
	fc.lastPointer = ev.Position
	if fc.machine.Mode() == editor.ModeIdle {
		return
	}
	world := fc.mapper().ToWorld(float64(ev.Position.X), float64(ev.Position.Y))
	fc.applyEffects(fc.machine.PointerMove(world))
}

// MouseOut implements desktop.Hoverable. Leaving the surface mid-drag
// commits at the last known position instead of dropping the gesture.
func (fc *FloorCanvas) MouseOut() {
	defer fc.recoverPointer("leave")
	fc.applyEffects(fc.machine.PointerLeave())
}

// Scrolled implements fyne.Scrollable: the wheel zooms about the pointer.
func (fc *FloorCanvas) Scrolled(ev *fyne.ScrollEvent) {
	defer fc.recoverPointer("scroll")

	factor := zoomStep
	if ev.Scrolled.DY < 0 {
		factor = 1 / zoomStep
	} else if ev.Scrolled.DY == 0 {
		return
	}

	anchor := fc.mapper().ToWorld(float64(fc.lastPointer.X), float64(fc.lastPointer.Y))
	fc.autoFit = false
	fc.viewport = editor.ZoomAt(fc.viewport, anchor, factor)
	fc.Refresh()
}

func (fc *FloorCanvas) applyEffects(effects []editor.Effect) {
	for _, eff := range effects {
		switch eff.Kind {
		case editor.EffectSelect:
			fc.store.Select(eff.SlotID, eff.Multi)

		case editor.EffectClearSelection:
			fc.store.ClearSelection()

		case editor.EffectDragPreview:
			fc.previewID = eff.SlotID
			fc.previewOrigin = eff.Position
			fc.Refresh()

		case editor.EffectPan:
			fc.autoFit = false
			fc.viewport = editor.Pan(fc.viewport, eff.Delta.X, eff.Delta.Y)
			fc.Refresh()

		case editor.EffectCommitMove:
			fc.previewID = ""
			if err := fc.store.MoveSlot(eff.SlotID, eff.Position.X, eff.Position.Y); err != nil {
				fc.logger.Warn("move rejected", "slot", eff.SlotID, "error", err)
			}
			fc.Refresh()
		}
	}
}

// draw renders the scene into the raster buffer.
func (fc *FloorCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(output.Pix); i += 4 {
		output.Pix[i] = backgroundColor.R
		output.Pix[i+1] = backgroundColor.G
		output.Pix[i+2] = backgroundColor.B
		output.Pix[i+3] = 255
	}

	mapper := editor.ScreenMapper{
		Viewport:     fc.viewport,
		ScreenWidth:  float64(w),
		ScreenHeight: float64(h),
	}
	tf, ok := mapper.Transform()
	if !ok {
		return output
	}

	// Label scale tracks the horizontal zoom, same clamping as the font.
	scale := int(mapper.ScreenWidth / fc.viewport.Width * 3)
	if scale < 1 {
		scale = 1
	}
	if scale > 6 {
		scale = 6
	}

	selected := make(map[string]bool)
	for _, id := range fc.store.SelectedIDs() {
		selected[id] = true
	}

	for _, s := range fc.store.Slots() {
		if !s.Renderable() {
			continue
		}

		origin := s.Origin()
		if s.ID == fc.previewID {
			origin = fc.previewOrigin
		}

		outline := slotOutline(s, origin)
		if !geometry.BoundingBox(outline).Intersects(fc.viewport.Rect()) {
			continue
		}
		screen := make([]geometry.Point2D, len(outline))
		for i, p := range outline {
			screen[i] = tf.Apply(p)
		}

		fillPolygon(output, screen, s.FillColor())
		if selected[s.ID] {
			strokePolygon(output, screen, slot.SelectionStroke, 2, true)
		} else {
			strokePolygon(output, screen, slotEdgeColor(s.FillColor()), 1, false)
		}

		if fc.showLabels {
			center := s.Center()
			center.X += origin.X - s.X
			center.Y += origin.Y - s.Y
			if sc, ok := mapper.ToScreen(center); ok {
				drawLabel(output, s.Label, int(sc.X), int(sc.Y), labelColor, scale)
			}
		}
	}

	return output
}

// slotEdgeColor darkens a fill for the resting outline.
func slotEdgeColor(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.R / 2, G: c.G / 2, B: c.B / 2, A: 255}
}

// CreateRenderer implements fyne.Widget.
func (fc *FloorCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &floorCanvasRenderer{canvas: fc}
}

// Refresh redraws the raster.
func (fc *FloorCanvas) Refresh() {
	fc.raster.Refresh()
	fc.BaseWidget.Refresh()
}

type floorCanvasRenderer struct {
	canvas *FloorCanvas
}

func (r *floorCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *floorCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

func (r *floorCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *floorCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *floorCanvasRenderer) Destroy() {}

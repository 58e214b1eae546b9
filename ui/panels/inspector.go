// Package panels provides the side panel UI: the slot inspector and the
// new-slot form.
package panels

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"floorplan-editor/internal/editor"
	"floorplan-editor/internal/slot"
)

// Inspector shows and edits the currently selected slot. With several
// slots selected only status changes are offered, applied as one batch.
type Inspector struct {
	store *editor.Store

	header      *widget.Label
	labelEntry  *widget.Entry
	typeSelect  *widget.Select
	shapeSelect *widget.Select
	statusSel   *widget.Select
	zoneEntry   *widget.Entry
	widthEntry  *widget.Entry
	heightEntry *widget.Entry
	rotEntry    *widget.Entry
	capEntry    *widget.Entry
	colorEntry  *widget.Entry
	reservable  *widget.Check
	applyBtn    *widget.Button
	deleteBtn   *widget.Button

	form      *fyne.Container
	container *fyne.Container

	onError func(error)
}

// NewInspector creates the inspector bound to a store.
func NewInspector(store *editor.Store) *Inspector {
	ins := &Inspector{store: store}

	ins.header = widget.NewLabel("No selection")
	ins.labelEntry = widget.NewEntry()
	ins.zoneEntry = widget.NewEntry()
	ins.widthEntry = widget.NewEntry()
	ins.heightEntry = widget.NewEntry()
	ins.rotEntry = widget.NewEntry()
	ins.capEntry = widget.NewEntry()
	ins.colorEntry = widget.NewEntry()
	ins.colorEntry.SetPlaceHolder("#2ea043")
	ins.reservable = widget.NewCheck("Reservable", nil)

	ins.typeSelect = widget.NewSelect(typeOptions(), nil)
	ins.shapeSelect = widget.NewSelect(shapeOptions(), nil)
	ins.statusSel = widget.NewSelect(statusOptions(), nil)

	ins.applyBtn = widget.NewButton("Apply", ins.onApply)
	ins.deleteBtn = widget.NewButton("Delete", ins.onDelete)

	ins.form = container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Label", ins.labelEntry),
			widget.NewFormItem("Type", ins.typeSelect),
			widget.NewFormItem("Shape", ins.shapeSelect),
			widget.NewFormItem("Status", ins.statusSel),
			widget.NewFormItem("Zone", ins.zoneEntry),
			widget.NewFormItem("Width", ins.widthEntry),
			widget.NewFormItem("Height", ins.heightEntry),
			widget.NewFormItem("Rotation", ins.rotEntry),
			widget.NewFormItem("Capacity", ins.capEntry),
			widget.NewFormItem("Color", ins.colorEntry),
			widget.NewFormItem("", ins.reservable),
		),
		container.NewHBox(ins.applyBtn, ins.deleteBtn),
	)

	ins.container = container.NewVBox(ins.header, ins.form)

	store.On(editor.EventSelectionChanged, func(any) { ins.refresh() })
	store.On(editor.EventSlotsChanged, func(any) { ins.refresh() })
	ins.refresh()

	return ins
}

// Container returns the inspector's root object for embedding.
func (ins *Inspector) Container() fyne.CanvasObject {
	return ins.container
}

// OnError sets the callback invoked when an edit is rejected locally.
func (ins *Inspector) OnError(fn func(error)) {
	ins.onError = fn
}

func (ins *Inspector) refresh() {
	ids := ins.store.SelectedIDs()

	switch len(ids) {
	case 0:
		ins.header.SetText("No selection")
		ins.form.Hide()

	case 1:
		s, ok := ins.store.Get(ids[0])
		if !ok {
			ins.header.SetText("No selection")
			ins.form.Hide()
			return
		}
		ins.header.SetText(fmt.Sprintf("Slot %s", s.Label))
		ins.labelEntry.SetText(s.Label)
		ins.typeSelect.SetSelected(string(s.Type))
		ins.shapeSelect.SetSelected(string(s.Shape))
		ins.statusSel.SetSelected(string(s.Status))
		ins.zoneEntry.SetText(s.Zone)
		ins.widthEntry.SetText(strconv.FormatFloat(s.Width, 'f', -1, 64))
		ins.heightEntry.SetText(strconv.FormatFloat(s.Height, 'f', -1, 64))
		ins.rotEntry.SetText(strconv.FormatFloat(s.DisplayRotation(), 'f', -1, 64))
		capacity := 0
		colorOverride := ""
		reservable := false
		if s.Metadata != nil {
			capacity = s.Metadata.Capacity
			colorOverride = s.Metadata.Color
			reservable = s.Metadata.Reservable
		}
		ins.capEntry.SetText(strconv.Itoa(capacity))
		ins.colorEntry.SetText(colorOverride)
		ins.reservable.SetChecked(reservable)
		ins.setSingleMode(true)
		ins.form.Show()

	default:
		ins.header.SetText(fmt.Sprintf("%d slots selected", len(ids)))
		ins.setSingleMode(false)
		ins.form.Show()
	}
}

// setSingleMode toggles the fields that only make sense for one slot.
func (ins *Inspector) setSingleMode(single bool) {
	fields := []fyne.Disableable{
		ins.labelEntry, ins.typeSelect, ins.shapeSelect,
		ins.zoneEntry, ins.widthEntry, ins.heightEntry,
		ins.rotEntry, ins.capEntry, ins.colorEntry, ins.reservable,
	}
	for _, f := range fields {
		if single {
			f.Enable()
		} else {
			f.Disable()
		}
	}
}

func (ins *Inspector) onApply() {
	ids := ins.store.SelectedIDs()
	if len(ids) == 0 {
		return
	}

	var muts []editor.Mutation
	if len(ids) == 1 {
		patch, err := ins.buildPatch(ids[0])
		if err != nil {
			ins.reportError(err)
			return
		}
		if patch.IsZero() {
			return
		}
		muts = []editor.Mutation{{SlotID: ids[0], Patch: patch}}
	} else {
		status := slot.Status(ins.statusSel.Selected)
		for _, id := range ids {
			s := status
			muts = append(muts, editor.Mutation{SlotID: id, Patch: slot.Patch{Status: &s}})
		}
	}

	if err := ins.store.CommitTransforms(muts); err != nil {
		ins.reportError(err)
	}
}

// buildPatch diffs the form against the stored slot so untouched fields
// stay out of the request.
func (ins *Inspector) buildPatch(id string) (slot.Patch, error) {
	current, ok := ins.store.Get(id)
	if !ok {
		return slot.Patch{}, fmt.Errorf("slot %s no longer exists", id)
	}

	var patch slot.Patch
	if v := ins.labelEntry.Text; v != current.Label {
		patch.Label = &v
	}
	if v := slot.Type(ins.typeSelect.Selected); v != "" && v != current.Type {
		patch.Type = &v
	}
	if v := slot.Shape(ins.shapeSelect.Selected); v != "" && v != current.Shape {
		patch.Shape = &v
	}
	if v := slot.Status(ins.statusSel.Selected); v != "" && v != current.Status {
		patch.Status = &v
	}
	if v := ins.zoneEntry.Text; v != current.Zone {
		patch.Zone = &v
	}

	if txt := ins.widthEntry.Text; txt != "" {
		w, err := strconv.ParseFloat(txt, 64)
		if err != nil || w <= 0 {
			return slot.Patch{}, fmt.Errorf("width must be a positive number")
		}
		if w != current.Width {
			patch.Width = &w
		}
	}
	if txt := ins.heightEntry.Text; txt != "" {
		h, err := strconv.ParseFloat(txt, 64)
		if err != nil || h <= 0 {
			return slot.Patch{}, fmt.Errorf("height must be a positive number")
		}
		if h != current.Height {
			patch.Height = &h
		}
	}
	if txt := ins.rotEntry.Text; txt != "" {
		rot, err := strconv.ParseFloat(txt, 64)
		if err != nil {
			return slot.Patch{}, fmt.Errorf("rotation must be a number: %w", err)
		}
		if slot.NormalizeRotation(rot) != current.DisplayRotation() {
			patch.Rotation = &rot
		}
	}
	if txt := ins.capEntry.Text; txt != "" {
		capacity, err := strconv.Atoi(txt)
		if err != nil || capacity < 0 {
			return slot.Patch{}, fmt.Errorf("capacity must be a non-negative integer")
		}
		currentCap := 0
		if current.Metadata != nil {
			currentCap = current.Metadata.Capacity
		}
		if capacity != currentCap {
			patch.Capacity = &capacity
		}
	}

	currentColor := ""
	currentReservable := false
	if current.Metadata != nil {
		currentColor = current.Metadata.Color
		currentReservable = current.Metadata.Reservable
	}
	if v := ins.colorEntry.Text; v != currentColor {
		if v != "" {
			if _, ok := slot.ParseHexColor(v); !ok {
				return slot.Patch{}, fmt.Errorf("color must be a #rrggbb value")
			}
		}
		patch.Color = &v
	}
	if v := ins.reservable.Checked; v != currentReservable {
		patch.Reservable = &v
	}

	return patch, nil
}

func (ins *Inspector) onDelete() {
	for _, id := range ins.store.SelectedIDs() {
		if err := ins.store.DeleteSlot(id); err != nil {
			ins.reportError(err)
			return
		}
	}
}

func (ins *Inspector) reportError(err error) {
	if ins.onError != nil {
		ins.onError(err)
	}
}

func typeOptions() []string {
	out := make([]string, len(slot.Types))
	for i, t := range slot.Types {
		out[i] = string(t)
	}
	return out
}

func shapeOptions() []string {
	out := make([]string, len(slot.Shapes))
	for i, s := range slot.Shapes {
		out[i] = string(s)
	}
	return out
}

func statusOptions() []string {
	out := make([]string, len(slot.Statuses))
	for i, s := range slot.Statuses {
		out[i] = string(s)
	}
	return out
}

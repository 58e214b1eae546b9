package panels

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"floorplan-editor/internal/editor"
	"floorplan-editor/internal/slot"
)

// ShowCreateDialog opens the new-slot form. The slot is placed at the
// center of the given viewport; the service assigns its ID, so it appears
// on the canvas only once creation is confirmed.
func ShowCreateDialog(win fyne.Window, store *editor.Store, viewport editor.Viewport, onError func(error)) {
	labelEntry := widget.NewEntry()
	labelEntry.SetPlaceHolder("T1")
	typeSelect := widget.NewSelect(typeOptions(), nil)
	typeSelect.SetSelected(string(slot.TypeTable))
	shapeSelect := widget.NewSelect(shapeOptions(), nil)
	shapeSelect.SetSelected(string(slot.ShapeRectangle))
	widthEntry := widget.NewEntry()
	widthEntry.SetText("80")
	heightEntry := widget.NewEntry()
	heightEntry.SetText("80")
	zoneEntry := widget.NewEntry()
	if z := store.Zone(); z != slot.ZoneAll {
		zoneEntry.SetText(z)
	}

	items := []*widget.FormItem{
		widget.NewFormItem("Label", labelEntry),
		widget.NewFormItem("Type", typeSelect),
		widget.NewFormItem("Shape", shapeSelect),
		widget.NewFormItem("Width", widthEntry),
		widget.NewFormItem("Height", heightEntry),
		widget.NewFormItem("Zone", zoneEntry),
	}

	dialog.ShowForm("New Slot", "Create", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}

		width, err := strconv.ParseFloat(widthEntry.Text, 64)
		if err != nil {
			onError(fmt.Errorf("width must be a number: %w", err))
			return
		}
		height, err := strconv.ParseFloat(heightEntry.Text, 64)
		if err != nil {
			onError(fmt.Errorf("height must be a number: %w", err))
			return
		}

		s := slot.Slot{
			Label:  labelEntry.Text,
			Type:   slot.Type(typeSelect.Selected),
			Shape:  slot.Shape(shapeSelect.Selected),
			X:      viewport.X + viewport.Width/2 - width/2,
			Y:      viewport.Y + viewport.Height/2 - height/2,
			Width:  width,
			Height: height,
			Status: slot.StatusAvailable,
			Zone:   zoneEntry.Text,
		}
		if err := s.Validate(); err != nil {
			onError(err)
			return
		}
		if err := store.CreateSlot(s); err != nil {
			onError(err)
		}
	}, win)
}

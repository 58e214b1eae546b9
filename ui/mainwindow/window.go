// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sort"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"floorplan-editor/internal/config"
	"floorplan-editor/internal/editor"
	"floorplan-editor/internal/scan"
	"floorplan-editor/internal/slot"
	"floorplan-editor/internal/version"
	"floorplan-editor/ui/canvas"
	"floorplan-editor/ui/panels"
	"floorplan-editor/ui/prefs"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	store     *editor.Store
	prefs     *prefs.Prefs
	logger    *slog.Logger
	scanCfg   config.ScanConfig
	canvas    *canvas.FloorCanvas
	inspector *panels.Inspector
	statusBar *widget.Label

	zoneSelect  *widget.Select
	errorBanner *fyne.Container
	errorLabel  *widget.Label
}

// New creates the main window bound to a slot store.
func New(fyneApp fyne.App, store *editor.Store, p *prefs.Prefs, cfg *config.Config, logger *slog.Logger) *MainWindow {
	if logger == nil {
		logger = slog.Default()
	}
	win := fyneApp.NewWindow("Floor Plan Editor")

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		store:   store,
		prefs:   p,
		logger:  logger,
		scanCfg: cfg.Scan,
	}

	mw.setupUI()
	mw.canvas.SetPadding(cfg.Editor.ViewportPadding)
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.restoreWindowState()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewFloorCanvas(mw.store, mw.logger)

	mw.inspector = panels.NewInspector(mw.store)
	mw.inspector.OnError(mw.showError)

	mw.statusBar = widget.NewLabel("Ready")

	mw.errorLabel = widget.NewLabel("")
	mw.errorLabel.Wrapping = fyne.TextWrapWord
	dismissBtn := widget.NewButton("Dismiss", func() { mw.errorBanner.Hide() })
	retryBtn := widget.NewButton("Reload", func() {
		mw.errorBanner.Hide()
		mw.loadSlots()
	})
	mw.errorBanner = container.NewBorder(nil, nil, nil,
		container.NewHBox(retryBtn, dismissBtn), mw.errorLabel)
	mw.errorBanner.Hide()

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar,        // top
		mw.errorBanner, // bottom
		nil,
		nil,
		mw.canvas,
	)

	split := container.NewHSplit(mw.inspector.Container(), canvasArea)
	split.SetOffset(0.22)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar), // bottom
		nil,
		nil,
		split,
	)

	mw.SetContent(content)
}

// createToolbar creates the toolbar with the zone filter and common actions.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.zoneSelect = widget.NewSelect([]string{slot.ZoneAll}, func(zone string) {
		if zone == mw.store.Zone() {
			return
		}
		mw.store.SetZone(zone)
		mw.prefs.SetString(prefs.KeyLastZone, zone)
		mw.loadSlots()
	})
	mw.zoneSelect.SetSelected(slot.ZoneAll)

	newBtn := widget.NewButton("New Slot", mw.onNewSlot)
	fitBtn := widget.NewButton("Fit", func() { mw.canvas.FitToSlots() })
	reloadBtn := widget.NewButton("Reload", func() { mw.loadSlots() })

	return container.NewHBox(
		widget.NewLabel("Zone:"),
		mw.zoneSelect,
		newBtn,
		fitBtn,
		reloadBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Import Floor Photo...", mw.onImportPhoto),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reload", func() { mw.loadSlots() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("New Slot...", mw.onNewSlot),
		fyne.NewMenuItem("Clear Selection", func() { mw.store.ClearSelection() }),
	)

	showLabels := mw.prefs.Bool(prefs.KeyShowLabels, true)
	mw.canvas.SetShowLabels(showLabels)
	var labelsItem *fyne.MenuItem
	labelsItem = fyne.NewMenuItem("Show Labels", func() {
		labelsItem.Checked = !labelsItem.Checked
		mw.prefs.SetBool(prefs.KeyShowLabels, labelsItem.Checked)
		mw.canvas.SetShowLabels(labelsItem.Checked)
		mw.MainMenu().Refresh()
	})
	labelsItem.Checked = showLabels

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Fit to Slots", func() { mw.canvas.FitToSlots() }),
		labelsItem,
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for store events.
func (mw *MainWindow) setupEventHandlers() {
	mw.store.On(editor.EventSlotsChanged, func(any) {
		mw.updateStatus(fmt.Sprintf("%d slots", len(mw.store.Slots())))
		mw.refreshZones()
	})

	mw.store.On(editor.EventSelectionChanged, func(any) {
		ids := mw.store.SelectedIDs()
		switch len(ids) {
		case 0:
			mw.updateStatus("Selection cleared")
		case 1:
			mw.updateStatus("Selected " + ids[0])
		default:
			mw.updateStatus(fmt.Sprintf("%d slots selected", len(ids)))
		}
	})

	mw.store.On(editor.EventSlotCreated, func(data any) {
		if s, ok := data.(slot.Slot); ok {
			mw.updateStatus("Created slot " + s.Label)
		}
	})

	mw.store.On(editor.EventCommitFailed, func(data any) {
		if cerr, ok := data.(*editor.CommitError); ok {
			mw.showError(cerr)
		}
	})
}

// LoadInitial performs the first slot load and restores the saved zone.
func (mw *MainWindow) LoadInitial() {
	if zone := mw.prefs.String(prefs.KeyLastZone); zone != "" {
		mw.store.SetZone(zone)
		mw.zoneSelect.SetSelected(zone)
	}
	mw.loadSlots()
}

// loadSlots fetches the collection in the background and surfaces the
// error state with a retry if the service is unreachable.
func (mw *MainWindow) loadSlots() {
	mw.updateStatus("Loading slots...")
	go func() {
		err := mw.store.Load(context.Background())
		fyne.Do(func() {
			if err != nil {
				mw.logger.Error("slot load failed", "error", err)
				mw.showError(err)
				return
			}
			mw.canvas.FitToSlots()
		})
	}()
}

// refreshZones rebuilds the zone filter options from the loaded slots.
func (mw *MainWindow) refreshZones() {
	seen := map[string]bool{}
	for _, s := range mw.store.Slots() {
		if s.Zone != "" {
			seen[s.Zone] = true
		}
	}
	zones := make([]string, 0, len(seen)+1)
	for z := range seen {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	zones = append([]string{slot.ZoneAll}, zones...)

	selected := mw.zoneSelect.Selected
	mw.zoneSelect.Options = zones
	if selected != "" {
		mw.zoneSelect.SetSelected(selected)
	}
	mw.zoneSelect.Refresh()
}

func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) showError(err error) {
	mw.errorLabel.SetText(err.Error())
	mw.errorBanner.Show()
}

func (mw *MainWindow) onNewSlot() {
	panels.ShowCreateDialog(mw.Window, mw.store, mw.canvas.Viewport(), mw.showError)
}

// previewMaxEdge bounds the thumbnail shown in the import confirmation.
const previewMaxEdge = 480

// onImportPhoto runs table detection on a floor photo in the background,
// then asks for confirmation before creating the proposals.
func (mw *MainWindow) onImportPhoto() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()

		mw.updateStatus("Scanning floor photo...")
		go func() {
			proposals, preview, err := mw.scanPhoto(path)
			fyne.Do(func() { mw.finishImport(proposals, preview, err) })
		}()
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".tiff", ".tif"}))
	fd.Show()
}

// scanPhoto detects tables in the photo and converts them to proposals for
// the active zone. Safe to call off the UI goroutine; it touches no widget.
func (mw *MainWindow) scanPhoto(path string) ([]slot.Slot, image.Image, error) {
	img, err := scan.LoadPhoto(path)
	if err != nil {
		return nil, nil, err
	}
	defer img.Close()

	opts := scan.DefaultOptions()
	if mw.scanCfg.MinTableArea > 0 {
		opts.MinArea = mw.scanCfg.MinTableArea
	}
	candidates, err := scan.DetectTables(img, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	// OCR is best-effort; proposals keep generated labels if it fails.
	if labeler, lerr := scan.NewLabeler(mw.scanCfg.TessdataPrefix); lerr == nil {
		_ = labeler.LabelCandidates(img, candidates)
		labeler.Close()
	} else {
		mw.logger.Warn("label OCR unavailable", "error", lerr)
	}

	// The confirmation dialog shows a thumbnail of the photo when it
	// decodes; a failure here only drops the thumbnail.
	var preview image.Image
	if p, perr := scan.DecodePreview(path); perr == nil {
		preview = scan.Downscale(p, previewMaxEdge)
	} else {
		mw.logger.Warn("photo preview unavailable", "error", perr)
	}

	zone := mw.store.Zone()
	if zone == slot.ZoneAll {
		zone = ""
	}
	return scan.ToSlots(candidates, 1.0, zone), preview, nil
}

func (mw *MainWindow) finishImport(proposals []slot.Slot, preview image.Image, err error) {
	if err != nil {
		mw.showError(err)
		return
	}
	if len(proposals) == 0 {
		mw.updateStatus("No tables detected in photo")
		return
	}

	msg := widget.NewLabel(fmt.Sprintf("Create %d detected slots?", len(proposals)))
	content := fyne.CanvasObject(msg)
	if preview != nil {
		thumb := fynecanvas.NewImageFromImage(preview)
		thumb.FillMode = fynecanvas.ImageFillContain
		thumb.SetMinSize(fyne.NewSize(320, 240))
		content = container.NewVBox(thumb, msg)
	}

	dialog.ShowCustomConfirm("Import Scan", "Create", "Cancel", content,
		func(ok bool) {
			if !ok {
				return
			}
			for _, s := range proposals {
				if err := mw.store.CreateSlot(s); err != nil {
					mw.showError(err)
					return
				}
			}
		}, mw.Window)
}

func (mw *MainWindow) restoreWindowState() {
	w := mw.prefs.FloatWithFallback(prefs.KeyWindowWidth, 1280)
	h := mw.prefs.FloatWithFallback(prefs.KeyWindowHeight, 800)
	mw.Resize(fyne.NewSize(float32(w), float32(h)))

	mw.SetOnClosed(func() {
		size := mw.Canvas().Size()
		mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
		mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
		if err := mw.prefs.Save(); err != nil {
			mw.logger.Warn("could not save preferences", "error", err)
		}
	})
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Floor Plan Editor",
		fmt.Sprintf("Floor Plan Editor v%s\n\n"+
			"Interactive venue floor-plan editing against the slot service.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

// Package mainwindow provides the main application window, shared by the authoring tool
// and the review tool.
package mainwindow

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/xiaomayi-bee/CleftLip/internal/catalog"
	"github.com/xiaomayi-bee/CleftLip/internal/config"
	"github.com/xiaomayi-bee/CleftLip/internal/document"
	"github.com/xiaomayi-bee/CleftLip/internal/interaction"
	"github.com/xiaomayi-bee/CleftLip/internal/logging"
	"github.com/xiaomayi-bee/CleftLip/internal/session"
	"github.com/xiaomayi-bee/CleftLip/internal/version"
	"github.com/xiaomayi-bee/CleftLip/internal/viewport"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
	"github.com/xiaomayi-bee/CleftLip/ui/canvas"
	"github.com/xiaomayi-bee/CleftLip/ui/panels"
	"github.com/xiaomayi-bee/CleftLip/ui/prefs"
)

// Mode selects which tool the window is.
type Mode int

const (
	ModeAuthoring Mode = iota
	ModeReview
)

func (m Mode) title() string {
	if m == ModeReview {
		return "Landmark Review"
	}
	return "Landmark Annotation"
}

// Options configures a window.
type Options struct {
	Mode    Mode
	Config  *config.Config
	Catalog *catalog.Catalog
	Prefs   *prefs.Prefs
}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	mode  Mode
	cfg   *config.Config
	prefs *prefs.Prefs
	log   zerolog.Logger

	session *session.Session
	ctrl    *interaction.Controller
	loop    *session.FrameLoop

	canvas      *canvas.AnnotationCanvas
	pointsPanel *panels.PointsPanel
	statusBar   *widget.Label
	coordLabel  *widget.Label
	zoomLabel   *widget.Label

	// Toolbar items that need state tracking
	pointModeBtn *widget.Button
	undoBtn      *widget.Button
	redoBtn      *widget.Button
	displaySel   *widget.Select

	// Files
	imagePath    string
	documentPath string // where the current annotation was imported from
}

// New creates a new main window.
func New(fyneApp fyne.App, opts Options) *MainWindow {
	win := fyneApp.NewWindow(opts.Mode.title())

	s := session.New(session.OptionsFromConfig(opts.Config, opts.Catalog, opts.Mode == ModeReview))

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		mode:    opts.Mode,
		cfg:     opts.Config,
		prefs:   opts.Prefs,
		log:     logging.With().Str("component", "mainwindow").Str("session", s.ID()[:8]).Logger(),
		session: s,
		ctrl:    interaction.New(s),
	}
	mw.loop = session.NewFrameLoop(s, session.DefaultFrameInterval)

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()
	mw.restorePreferences()

	win.SetCloseIntercept(mw.onClose)
	win.Resize(fyne.NewSize(1280, 820))
	return mw
}

// Session returns the window's session.
func (mw *MainWindow) Session() *session.Session {
	return mw.session
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	style, err := canvas.StyleFromConfig(mw.cfg.Render, mw.cfg.Points)
	if err != nil {
		mw.log.Warn().Err(err).Msg("label font unavailable, using default face")
	}
	mw.canvas = canvas.NewAnnotationCanvas(mw.session, mw.ctrl, style)
	mw.canvas.OnHover(func(_, img geometry.Point2D, inside bool) {
		if inside {
			mw.coordLabel.SetText(fmt.Sprintf("x: %.1f  y: %.1f", img.X, img.Y))
		} else {
			mw.coordLabel.SetText("")
		}
	})
	mw.canvas.OnLeave(func() { mw.coordLabel.SetText("") })

	mw.pointsPanel = panels.NewPointsPanel(mw.session)
	mw.pointsPanel.OnStatus(mw.updateStatus)

	mw.statusBar = widget.NewLabel("Ready")
	mw.coordLabel = widget.NewLabel("")
	mw.zoomLabel = widget.NewLabel("100%")

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar,   // top
		nil,       // bottom
		nil,       // left
		nil,       // right
		mw.canvas, // center
	)

	split := container.NewHSplit(canvasArea, mw.pointsPanel.Container())
	split.SetOffset(0.75)

	content := container.NewBorder(
		nil, // top
		container.NewPadded(container.NewBorder(nil, nil, nil, container.NewHBox(mw.coordLabel, mw.zoomLabel), mw.statusBar)),
		nil,   // left
		nil,   // right
		split, // center
	)

	mw.SetContent(content)
}

// createToolbar creates the toolbar with zoom, mode and history controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	items := []fyne.CanvasObject{
		widget.NewButton("Open Image", mw.onOpenImage),
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("Fit", mw.onFit),
		widget.NewButton("1:1", mw.onResetView),
		widget.NewSeparator(),
	}

	modes := make([]string, 0, 3)
	for _, m := range session.DisplayModes() {
		modes = append(modes, m.String())
	}
	mw.displaySel = widget.NewSelect(modes, func(name string) {
		if m, err := session.ParseDisplayMode(name); err == nil {
			mw.session.SetDisplayMode(m)
		}
	})
	mw.displaySel.SetSelected(mw.session.DisplayMode().String())
	items = append(items, widget.NewLabel("Labels:"), mw.displaySel)

	if mw.mode == ModeAuthoring {
		mw.pointModeBtn = widget.NewButton("Point Mode: Off", mw.onTogglePointMode)
		mw.undoBtn = widget.NewButton("Undo", mw.onUndo)
		mw.redoBtn = widget.NewButton("Redo", mw.onRedo)
		mw.undoBtn.Disable()
		mw.redoBtn.Disable()
		items = append(items,
			widget.NewSeparator(),
			mw.pointModeBtn,
			mw.undoBtn,
			mw.redoBtn,
			widget.NewSeparator(),
			widget.NewButton("Patient...", mw.onEditPatient),
			widget.NewButton("Export", mw.onExport),
		)
	} else {
		items = append(items,
			widget.NewSeparator(),
			widget.NewButton("Open Annotation", mw.onImport),
			widget.NewButton("Review...", mw.onAudit),
		)
	}

	return container.NewHBox(items...)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileItems := []*fyne.MenuItem{
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItem("Open Annotation...", mw.onImport),
	}
	if mw.mode == ModeAuthoring {
		fileItems = append(fileItems,
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Export Annotation...", mw.onExport),
		)
	}
	fileItems = append(fileItems,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Close Image", mw.onCloseImage),
	)
	fileMenu := fyne.NewMenu("File", fileItems...)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Fit to Window", mw.onFit),
		fyne.NewMenuItem("Actual Size", mw.onResetView),
	)

	menus := []*fyne.Menu{fileMenu}
	if mw.mode == ModeAuthoring {
		menus = append(menus, fyne.NewMenu("Edit",
			fyne.NewMenuItem("Undo", mw.onUndo),
			fyne.NewMenuItem("Redo", mw.onRedo),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Toggle Point Mode", mw.onTogglePointMode),
			fyne.NewMenuItem("Patient Information...", mw.onEditPatient),
		))
	} else {
		menus = append(menus, fyne.NewMenu("Review",
			fyne.NewMenuItem("Approve or Reject...", mw.onAudit),
		))
	}
	menus = append(menus, viewMenu, fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	))

	mw.SetMainMenu(fyne.NewMainMenu(menus...))
}

// setupShortcuts routes Ctrl+Z and Ctrl+Y to the controller.
func (mw *MainWindow) setupShortcuts() {
	for _, key := range []fyne.KeyName{fyne.KeyZ, fyne.KeyY} {
		name := string(key)
		mw.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
			mw.ctrl.Key(name, true)
		})
	}
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(session.EventImageLoaded, func(data interface{}) {
		if info, ok := data.(document.ImageInfo); ok {
			mw.updateTitle()
			mw.updateStatus(fmt.Sprintf("Loaded %s (%s)", info.FileName, info.Resolution))
		}
	})

	mw.session.On(session.EventPatientChanged, func(interface{}) {
		mw.updateTitle()
	})

	mw.session.On(session.EventHistoryChanged, func(interface{}) {
		mw.updateHistoryButtons()
		mw.updateTitle()
	})

	mw.session.On(session.EventViewportChanged, func(data interface{}) {
		if v, ok := data.(viewport.State); ok {
			mw.zoomLabel.SetText(fmt.Sprintf("%.0f%%", v.Scale*100))
		}
	})

	mw.session.On(session.EventAudited, func(data interface{}) {
		if rec, ok := data.(document.AuditRecord); ok {
			state := "rejected"
			if rec.Approved {
				state = "approved"
			}
			mw.updateStatus(fmt.Sprintf("Review: %s by %s", state, rec.Auditor))
		}
	})

	mw.session.On(session.EventDisplayModeChanged, func(data interface{}) {
		if m, ok := data.(session.DisplayMode); ok {
			mw.prefs.SetString(prefs.KeyDisplayMode, m.String())
		}
	})

	mw.ctrl.OnPointModeChange(func(on bool) {
		if mw.pointModeBtn == nil {
			return
		}
		if on {
			mw.pointModeBtn.SetText("Point Mode: On")
			mw.pointModeBtn.Importance = widget.HighImportance
		} else {
			mw.pointModeBtn.SetText("Point Mode: Off")
			mw.pointModeBtn.Importance = widget.MediumImportance
		}
		mw.pointModeBtn.Refresh()
		mw.prefs.SetBool(prefs.KeyPointMode, on)
	})

	mw.ctrl.OnError(func(err error) {
		mw.updateStatus(err.Error())
	})
}

// restorePreferences applies the saved display and point modes.
func (mw *MainWindow) restorePreferences() {
	if name := mw.prefs.String(prefs.KeyDisplayMode); name != "" {
		if m, err := session.ParseDisplayMode(name); err == nil {
			mw.session.SetDisplayMode(m)
			mw.displaySel.SetSelected(m.String())
		}
	}
	if mw.mode == ModeAuthoring && mw.prefs.Bool(prefs.KeyPointMode, false) {
		_ = mw.ctrl.SetPointMode(true)
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) updateTitle() {
	title := mw.mode.title()
	if img := mw.session.Image(); img.FileName != "" {
		title += " - " + img.FileName
	}
	if id := mw.session.Patient().PatientID; id != "" {
		title += " [" + id + "]"
	}
	if mw.session.Modified() {
		title += " *"
	}
	mw.SetTitle(title)
}

func (mw *MainWindow) updateHistoryButtons() {
	if mw.undoBtn == nil {
		return
	}
	if mw.session.CanUndo() {
		mw.undoBtn.Enable()
	} else {
		mw.undoBtn.Disable()
	}
	if mw.session.CanRedo() {
		mw.redoBtn.Enable()
	} else {
		mw.redoBtn.Disable()
	}
}

// SavePreferences writes preferences to disk, logging failures.
func (mw *MainWindow) SavePreferences() {
	if err := mw.prefs.SaveIfChanged(); err != nil {
		mw.log.Warn().Err(err).Str("path", mw.prefs.Path()).Msg("failed to save preferences")
	}
}

func (mw *MainWindow) onClose() {
	quit := func() {
		mw.SavePreferences()
		mw.loop.Stop()
		mw.Window.Close()
	}
	if mw.mode == ModeAuthoring && mw.session.Modified() {
		dialog.ShowConfirm("Unsaved annotation", "The annotation has not been exported. Quit anyway?", func(ok bool) {
			if ok {
				quit()
			}
		}, mw.Window)
		return
	}
	quit()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About",
		fmt.Sprintf("%s\n\nCatalog: %s (%d landmarks)\nConfig: %s",
			version.String(mw.mode.title()),
			mw.session.Catalog().Name(), mw.session.Catalog().Len(),
			configSource()),
		mw.Window)
}

func configSource() string {
	if path := config.FindFile(); path != "" {
		return path
	}
	return "built-in defaults"
}

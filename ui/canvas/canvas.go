// Package canvas provides the annotation canvas: the photo under the session's viewport
// with landmark markers on top, forwarding pointer input to an interaction controller.
package canvas

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/xiaomayi-bee/CleftLip/internal/interaction"
	"github.com/xiaomayi-bee/CleftLip/internal/session"
	"github.com/xiaomayi-bee/CleftLip/internal/viewport"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

// AnnotationCanvas displays a session and routes mouse and wheel input to its controller.
type AnnotationCanvas struct {
	widget.BaseWidget

	session *session.Session
	ctrl    *interaction.Controller
	style   Style

	// Display state
	raster *fynecanvas.Raster

	mu    sync.Mutex
	photo image.Image

	// Callbacks
	onHover func(canvasPos, imagePos geometry.Point2D, inside bool)
	onLeave func()
}

var (
	_ desktop.Mouseable = (*AnnotationCanvas)(nil)
	_ desktop.Hoverable = (*AnnotationCanvas)(nil)
	_ fyne.Scrollable   = (*AnnotationCanvas)(nil)
)

// NewAnnotationCanvas creates a canvas for s driven by ctrl.
func NewAnnotationCanvas(s *session.Session, ctrl *interaction.Controller, style Style) *AnnotationCanvas {
	ac := &AnnotationCanvas{
		session: s,
		ctrl:    ctrl,
		style:   style,
	}

	ac.raster = fynecanvas.NewRaster(ac.draw)
	ac.raster.ScaleMode = fynecanvas.ImageScaleSmooth

	for _, ev := range []session.EventType{
		session.EventPointsChanged,
		session.EventSelectionChanged,
		session.EventViewportChanged,
		session.EventDisplayModeChanged,
	} {
		s.On(ev, func(interface{}) { ac.Refresh() })
	}

	ac.ExtendBaseWidget(ac)
	return ac
}

// SetPhoto sets the bitmap drawn under the markers. The session must be told about the
// photo separately with LoadImage.
func (ac *AnnotationCanvas) SetPhoto(img image.Image) {
	ac.mu.Lock()
	ac.photo = img
	ac.mu.Unlock()
	ac.Refresh()
}

// SetStyle replaces the marker style.
func (ac *AnnotationCanvas) SetStyle(st Style) {
	ac.mu.Lock()
	ac.style = st
	ac.mu.Unlock()
	ac.Refresh()
}

// OnHover sets the callback for pointer motion, used for the coordinate readout.
func (ac *AnnotationCanvas) OnHover(callback func(canvasPos, imagePos geometry.Point2D, inside bool)) {
	ac.onHover = callback
}

// OnLeave sets the callback for the pointer leaving the canvas.
func (ac *AnnotationCanvas) OnLeave(callback func()) {
	ac.onLeave = callback
}

// Refresh redraws the canvas.
func (ac *AnnotationCanvas) Refresh() {
	ac.raster.Refresh()
}

func toPoint(pos fyne.Position) geometry.Point2D {
	return geometry.NewPoint2D(float64(pos.X), float64(pos.Y))
}

// MouseDown implements desktop.Mouseable.
func (ac *AnnotationCanvas) MouseDown(ev *desktop.MouseEvent) {
	var button interaction.Button
	switch ev.Button {
	case desktop.MouseButtonPrimary:
		button = interaction.ButtonPrimary
	case desktop.MouseButtonTertiary:
		button = interaction.ButtonMiddle
	default:
		button = interaction.ButtonSecondary
	}
	ac.ctrl.PointerDown(toPoint(ev.Position), button)
}

// MouseUp implements desktop.Mouseable.
func (ac *AnnotationCanvas) MouseUp(ev *desktop.MouseEvent) {
	ac.ctrl.PointerUp(toPoint(ev.Position))
}

// MouseIn implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseIn(ev *desktop.MouseEvent) {
	ac.MouseMoved(ev)
}

// MouseMoved implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseMoved(ev *desktop.MouseEvent) {
	ac.ctrl.PointerMove(toPoint(ev.Position))
	if ac.onHover == nil {
		return
	}
	if canvasPos, imagePos, inside, ok := ac.ctrl.Hover(); ok {
		ac.onHover(canvasPos, imagePos, inside)
	}
}

// MouseOut implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseOut() {
	ac.ctrl.PointerLeave()
	if ac.onLeave != nil {
		ac.onLeave()
	}
}

// Scrolled implements fyne.Scrollable. fyne reports wheel-up as positive DY; the
// controller expects positive to zoom out.
func (ac *AnnotationCanvas) Scrolled(ev *fyne.ScrollEvent) {
	ac.ctrl.Wheel(-float64(ev.Scrolled.DY))
}

// draw is the raster drawing function. w and h are output pixels, which differ from the
// widget's size in canvas units on scaled displays.
func (ac *AnnotationCanvas) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	ac.mu.Lock()
	photo, st := ac.photo, ac.style
	ac.mu.Unlock()

	size := ac.Size()
	scale := float32(1)
	if size.Width > 0 {
		scale = float32(w) / size.Width
	}

	v, canvasSize, imgSize := ac.session.Geometry()
	toPixels := geometry.Scale(float64(scale), float64(scale))

	sc := Scene{Scale: scale}
	if ac.session.HasImage() {
		tr := viewport.Transform(v, canvasSize, imgSize)
		sc.Transform = toPixels.Compose(tr)
		sc.Photo = photo

		selected := ac.session.SelectedIndex()
		for i, p := range ac.session.Points() {
			if !p.Exists {
				continue
			}
			sc.Markers = append(sc.Markers, Marker{
				Pos:      sc.Transform.Apply(p.Pos()),
				Label:    ac.session.Label(i),
				Selected: i == selected,
			})
		}
	}

	Render(out, sc, st)
	return out
}

// CreateRenderer implements fyne.Widget.
func (ac *AnnotationCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &annotationCanvasRenderer{canvas: ac}
}

type annotationCanvasRenderer struct {
	canvas *AnnotationCanvas
}

func (r *annotationCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
	r.canvas.session.SetCanvasSize(geometry.NewSize(float64(size.Width), float64(size.Height)))
}

func (r *annotationCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

func (r *annotationCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *annotationCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *annotationCanvasRenderer) Destroy() {}

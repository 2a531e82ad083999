// Package interaction turns pointer, wheel and key input into session commands.
//
// The controller is a small state machine independent of any UI toolkit:
//
//	idle     --pointMode on-->    placing
//	placing  --pointMode off-->   idle
//	idle     --down(left)-->      dragging
//	any      --down(middle)-->    dragging
//	dragging --up/leave-->        idle or placing
//
// In placing, a left press on empty canvas places the selected landmark; a press on an
// existing marker moves it under the pointer.
package interaction

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/xiaomayi-bee/CleftLip/internal/logging"
	"github.com/xiaomayi-bee/CleftLip/internal/session"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

// State is the controller's interaction state.
type State int

const (
	StateIdle State = iota
	StateDragging
	StatePlacing
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StatePlacing:
		return "placing"
	default:
		return "idle"
	}
}

// Button identifies a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Controller routes input to one session.
type Controller struct {
	session *session.Session
	log     zerolog.Logger

	mu        sync.Mutex
	pointMode bool
	dragging  bool
	last      geometry.Point2D // last pointer position while dragging
	hover     geometry.Point2D
	hovering  bool

	onPointMode func(on bool)
	onError     func(err error)
}

// New creates a controller for s.
func New(s *session.Session) *Controller {
	return &Controller{
		session: s,
		log:     logging.With().Str("component", "interaction").Str("session", s.ID()[:8]).Logger(),
	}
}

// OnPointModeChange sets a callback for point mode changes.
func (c *Controller) OnPointModeChange(callback func(on bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPointMode = callback
}

// OnError sets a callback for recoverable command failures, such as placing with
// nothing selected.
func (c *Controller) OnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// State returns the current interaction state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.dragging:
		return StateDragging
	case c.pointMode:
		return StatePlacing
	default:
		return StateIdle
	}
}

// PointMode reports whether clicks place points.
func (c *Controller) PointMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pointMode
}

// SetPointMode switches point mode. Turning it off clears the selection. Review sessions
// cannot enter point mode.
func (c *Controller) SetPointMode(on bool) error {
	if on && c.session.ReadOnly() {
		return session.ErrReadOnly
	}

	c.mu.Lock()
	changed := c.pointMode != on
	c.pointMode = on
	cb := c.onPointMode
	c.mu.Unlock()

	if !changed {
		return nil
	}
	if !on {
		c.session.ClearSelection()
	}
	c.log.Debug().Bool("point_mode", on).Msg("point mode")
	if cb != nil {
		cb(on)
	}
	return nil
}

// TogglePointMode flips point mode and returns the new value.
func (c *Controller) TogglePointMode() (bool, error) {
	on := !c.PointMode()
	if err := c.SetPointMode(on); err != nil {
		return !on, err
	}
	return on, nil
}

// PointerDown handles a button press at a canvas position.
func (c *Controller) PointerDown(pos geometry.Point2D, button Button) {
	if !c.session.HasImage() {
		return
	}

	if button == ButtonMiddle {
		c.startDrag(pos)
		return
	}
	if button != ButtonPrimary {
		return
	}

	pointMode := c.PointMode()
	if hit := c.session.HitTest(pos); hit >= 0 {
		if err := c.session.SelectIndex(hit); err != nil {
			c.fail(err)
			return
		}
		if pointMode {
			c.fail(c.session.MoveTo(hit, pos))
		}
		return
	}

	if pointMode {
		c.fail(c.session.PlaceAt(pos))
		return
	}
	c.startDrag(pos)
}

func (c *Controller) startDrag(pos geometry.Point2D) {
	c.mu.Lock()
	c.dragging = true
	c.last = pos
	c.mu.Unlock()
}

// PointerMove pans while dragging and records the hover position.
func (c *Controller) PointerMove(pos geometry.Point2D) {
	c.mu.Lock()
	c.hover = pos
	c.hovering = true
	if !c.dragging {
		c.mu.Unlock()
		return
	}
	delta := pos.Sub(c.last)
	c.last = pos
	c.mu.Unlock()

	if delta.X == 0 && delta.Y == 0 {
		return
	}
	c.fail(c.session.Pan(delta.X, delta.Y))
}

// PointerUp ends a drag.
func (c *Controller) PointerUp(pos geometry.Point2D) {
	c.mu.Lock()
	c.dragging = false
	c.hover = pos
	c.mu.Unlock()
}

// PointerLeave ends a drag and clears the hover position.
func (c *Controller) PointerLeave() {
	c.mu.Lock()
	c.dragging = false
	c.hovering = false
	c.mu.Unlock()
}

// Hover returns the last pointer position over the canvas in both spaces. ok is false
// when the pointer is away or no image is loaded.
func (c *Controller) Hover() (canvasPos, imagePos geometry.Point2D, inside, ok bool) {
	c.mu.Lock()
	canvasPos, ok = c.hover, c.hovering
	c.mu.Unlock()
	if !ok || !c.session.HasImage() {
		return canvasPos, geometry.Point2D{}, false, false
	}
	imagePos, inside = c.session.ToImage(canvasPos)
	return canvasPos, imagePos, inside, true
}

// Wheel zooms. dy follows scroll convention: positive zooms out.
func (c *Controller) Wheel(dy float64) {
	if !c.session.HasImage() {
		return
	}
	c.fail(c.session.Wheel(dy))
}

// Key handles a key press and reports whether it was consumed. Ctrl+Z undoes and Ctrl+Y
// redoes.
func (c *Controller) Key(name string, ctrl bool) bool {
	if !ctrl {
		return false
	}
	switch strings.ToUpper(name) {
	case "Z":
		c.session.Undo()
		return true
	case "Y":
		c.session.Redo()
		return true
	}
	return false
}

func (c *Controller) fail(err error) {
	if err == nil {
		return
	}

	c.mu.Lock()
	cb := c.onError
	c.mu.Unlock()

	ev := c.log.Warn()
	if errors.Is(err, session.ErrNoImage) {
		ev = c.log.Debug()
	}
	ev.Err(err).Str("state", c.State().String()).Msg("command failed")
	if cb != nil {
		cb(err)
	}
}

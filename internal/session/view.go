package session

import (
	"errors"
	"time"

	"github.com/xiaomayi-bee/CleftLip/internal/viewport"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

// View returns the current viewport state, mid-transition if one is running.
func (s *Session) View() viewport.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Geometry returns everything needed to project between image and canvas space.
func (s *Session) Geometry() (v viewport.State, canvas, img geometry.Size) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, s.canvas, s.imgSize
}

// ToImage maps a canvas position into image space under the current view.
func (s *Session) ToImage(canvasPos geometry.Point2D) (geometry.Point2D, bool) {
	v, canvas, img := s.Geometry()
	return viewport.ToImage(canvasPos, v, canvas, img)
}

// ToCanvas maps an image-space position to the canvas.
func (s *Session) ToCanvas(imagePos geometry.Point2D) geometry.Point2D {
	v, canvas, img := s.Geometry()
	return viewport.ToCanvas(imagePos, v, canvas, img)
}

// SetCanvasSize records a new canvas size. With an image loaded the view refits at once.
func (s *Session) SetCanvasSize(size geometry.Size) {
	s.mu.Lock()
	if s.canvas == size {
		s.mu.Unlock()
		return
	}
	s.canvas = size
	refit := s.hasImage && !size.Empty()
	if refit {
		s.anim = nil
		s.view = viewport.Fit(s.canvas, s.imgSize, s.opts.Limits)
	}
	v := s.view
	s.mu.Unlock()

	s.log.Debug().Float64("width", size.Width).Float64("height", size.Height).Msg("canvas resized")
	if refit {
		s.Emit(EventViewportChanged, v)
	}
}

// Animating reports whether a viewport transition is in progress.
func (s *Session) Animating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anim != nil
}

// Tick advances a running transition to the session clock's now and reports whether
// more frames are needed.
func (s *Session) Tick() bool {
	s.mu.Lock()
	if s.anim == nil {
		s.mu.Unlock()
		return false
	}
	v, done := s.anim.Step(s.now())
	s.view = v
	if done {
		s.anim = nil
	}
	s.mu.Unlock()

	s.Emit(EventViewportChanged, v)
	return !done
}

// startTransitionLocked begins animating towards target. A canvas of zero size has
// nothing to animate, so the target is applied at once.
func (s *Session) startTransitionLocked(target viewport.State, d time.Duration) bool {
	if s.canvas.Empty() || d <= 0 {
		s.anim = nil
		s.view = target
		return false
	}
	s.anim = viewport.NewTransition(s.view, target, s.now(), d)
	return true
}

func (s *Session) startFitLocked() bool {
	if s.canvas.Empty() {
		return false
	}
	return s.startTransitionLocked(viewport.Fit(s.canvas, s.imgSize, s.opts.Limits), s.opts.FitDuration)
}

// viewCommand runs fn under the lock and emits the resulting events.
func (s *Session) viewCommand(op string, fn func() bool) error {
	s.mu.Lock()
	if !s.hasImage {
		s.mu.Unlock()
		return ErrNoImage
	}
	animating := fn()
	v := s.view
	s.mu.Unlock()

	s.log.Debug().Str("op", op).Stringer("view", v).Bool("animating", animating).Msg("viewport")
	s.Emit(EventViewportChanged, v)
	if animating {
		s.Emit(EventAnimationStarted, nil)
	}
	return nil
}

// Fit animates to the scale showing the whole image.
func (s *Session) Fit() error {
	return s.viewCommand("fit", s.startFitLocked)
}

// ResetView returns to scale 1 with no offset, without animation.
func (s *Session) ResetView() error {
	return s.viewCommand("reset", func() bool {
		s.anim = nil
		s.view = viewport.Identity()
		return false
	})
}

// ZoomIn animates one button zoom step in.
func (s *Session) ZoomIn() error {
	return s.zoomAnimated("zoom_in", s.opts.ZoomInFactor)
}

// ZoomOut animates one button zoom step out.
func (s *Session) ZoomOut() error {
	return s.zoomAnimated("zoom_out", s.opts.ZoomOutFactor)
}

func (s *Session) zoomAnimated(op string, factor float64) error {
	return s.viewCommand(op, func() bool {
		target := s.zoomTargetLocked(factor)
		return s.startTransitionLocked(target, s.opts.ZoomDuration)
	})
}

// zoomTargetLocked computes the constrained zoom target from the state on screen, so a zoom
// issued mid-transition starts where the user sees the image.
func (s *Session) zoomTargetLocked(factor float64) viewport.State {
	target, err := viewport.ZoomAt(s.view, factor, s.canvas, s.imgSize, s.opts.Limits)
	if errors.Is(err, viewport.ErrOutOfRange) {
		s.log.Debug().Err(err).Msg("zoom clamped")
	}
	return viewport.Constrain(target, s.canvas, s.imgSize, s.opts.MinVisible)
}

// Wheel zooms instantly. dy follows scroll convention: positive zooms out.
func (s *Session) Wheel(dy float64) error {
	if dy == 0 {
		return nil
	}
	factor := 1 + s.opts.WheelIntensity
	if dy > 0 {
		factor = 1 - s.opts.WheelIntensity
	}
	return s.viewCommand("wheel", func() bool {
		s.anim = nil
		s.view = s.zoomTargetLocked(factor)
		return false
	})
}

// Pan shifts the view by a canvas-space delta, cancelling any running transition.
func (s *Session) Pan(dx, dy float64) error {
	return s.viewCommand("pan", func() bool {
		s.anim = nil
		s.view = viewport.Pan(s.view, dx, dy)
		if s.opts.ConstrainOnPan {
			s.view = viewport.Constrain(s.view, s.canvas, s.imgSize, s.opts.MinVisible)
		}
		return false
	})
}

package viewport

import (
	"math"
	"time"
)

const (
	// FitDuration and ZoomDuration are the default transition lengths.
	FitDuration  = 300 * time.Millisecond
	ZoomDuration = 200 * time.Millisecond
)

// Easing maps linear progress in [0,1] to eased progress.
type Easing func(t float64) float64

// EaseOutCubic is 1-(1-t)^3.
func EaseOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}

// Transition interpolates between two viewport states over a fixed duration.
// It is stepped once per animation frame; the last step returns exactly the target.
type Transition struct {
	from     State
	to       State
	start    time.Time
	duration time.Duration
	ease     Easing
}

// NewTransition starts a transition at start. A non-positive duration completes on the
// first step.
func NewTransition(from, to State, start time.Time, duration time.Duration) *Transition {
	return &Transition{
		from:     from,
		to:       to,
		start:    start,
		duration: duration,
		ease:     EaseOutCubic,
	}
}

// Target returns the state the transition rests at.
func (t *Transition) Target() State {
	return t.to
}

// Progress returns linear progress in [0,1] at now.
func (t *Transition) Progress(now time.Time) float64 {
	if t.duration <= 0 {
		return 1
	}
	p := float64(now.Sub(t.start)) / float64(t.duration)
	return math.Max(0, math.Min(p, 1))
}

// Step returns the interpolated state at now and whether the transition has finished.
func (t *Transition) Step(now time.Time) (State, bool) {
	p := t.Progress(now)
	if p >= 1 {
		return t.to, true
	}

	e := t.ease(p)
	return State{
		Scale:   lerp(t.from.Scale, t.to.Scale, e),
		OffsetX: lerp(t.from.OffsetX, t.to.OffsetX, e),
		OffsetY: lerp(t.from.OffsetY, t.to.OffsetY, e),
	}, false
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

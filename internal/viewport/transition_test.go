package viewport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEaseOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, EaseOutCubic(0))
	assert.Equal(t, 1.0, EaseOutCubic(1))
	assert.InDelta(t, 0.875, EaseOutCubic(0.5), 1e-12)
}

func TestTransitionEndsExactlyAtTarget(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	from := State{Scale: 1}
	to := State{Scale: 2.3456789, OffsetX: -12.3, OffsetY: 45.6}
	tr := NewTransition(from, to, start, FitDuration)

	v, done := tr.Step(start)
	assert.False(t, done)
	assert.Equal(t, from, v)

	v, done = tr.Step(start.Add(FitDuration / 2))
	assert.False(t, done)
	assert.Greater(t, v.Scale, from.Scale)
	assert.Less(t, v.Scale, to.Scale)

	// Ease-out: more than half of the way after half of the time.
	assert.Greater(t, v.Scale-from.Scale, (to.Scale-from.Scale)/2)

	v, done = tr.Step(start.Add(FitDuration))
	assert.True(t, done)
	assert.Equal(t, to, v)

	v, done = tr.Step(start.Add(time.Hour))
	assert.True(t, done)
	assert.Equal(t, to, v)
}

func TestTransitionProgressIsMonotonic(t *testing.T) {
	start := time.Unix(0, 0)
	tr := NewTransition(Identity(), State{Scale: 5}, start, ZoomDuration)

	prev := -1.0
	for ms := 0; ms <= 250; ms += 10 {
		v, _ := tr.Step(start.Add(time.Duration(ms) * time.Millisecond))
		assert.GreaterOrEqual(t, v.Scale, prev)
		prev = v.Scale
	}
	assert.Equal(t, 0.0, tr.Progress(start.Add(-time.Second)))
}

func TestTransitionZeroDuration(t *testing.T) {
	start := time.Unix(0, 0)
	to := State{Scale: 3}
	tr := NewTransition(Identity(), to, start, 0)

	v, done := tr.Step(start)
	assert.True(t, done)
	assert.Equal(t, to, v)
	assert.Equal(t, to, tr.Target())
}

func TestTransitionRestartFromIntermediate(t *testing.T) {
	start := time.Unix(0, 0)
	first := NewTransition(Identity(), State{Scale: 4}, start, ZoomDuration)
	mid, _ := first.Step(start.Add(ZoomDuration / 4))

	// A new command replaces the running transition from wherever it got to.
	second := NewTransition(mid, State{Scale: 0.5}, start.Add(ZoomDuration/4), FitDuration)
	v, done := second.Step(start.Add(ZoomDuration / 4))
	assert.False(t, done)
	assert.Equal(t, mid, v)

	v, done = second.Step(start.Add(ZoomDuration/4 + FitDuration))
	assert.True(t, done)
	assert.Equal(t, State{Scale: 0.5}, v)
}

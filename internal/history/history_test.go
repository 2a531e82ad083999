package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaomayi-bee/CleftLip/internal/points"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

var now = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// apply pushes the pre-mutation snapshot, then mutates, the way the session does.
func apply(h *Manager, s *points.Store, fn func() error) error {
	snap := s.Snapshot()
	if err := fn(); err != nil {
		return err
	}
	h.Push(snap)
	return nil
}

func TestUndoRestoresPreSequenceState(t *testing.T) {
	s := points.NewStore()
	require.NoError(t, s.Place("A", geometry.NewPoint2D(1, 2), now))
	before := s.Points()

	h := New()
	require.NoError(t, apply(h, s, func() error { return s.Place("B", geometry.NewPoint2D(3, 4), now) }))
	require.NoError(t, apply(h, s, func() error { return s.SetExistence("A", false, now) }))
	require.NoError(t, apply(h, s, func() error { return s.Place("A", geometry.NewPoint2D(5, 6), now) }))
	require.NoError(t, apply(h, s, func() error { return s.SetExistence("C", true, now) }))

	for h.CanUndo() {
		prev, ok := h.Undo(s.Snapshot())
		require.True(t, ok)
		s.Restore(prev)
	}
	assert.Equal(t, before, s.Points())
}

func TestUndoThenRedoIsIdentity(t *testing.T) {
	s := points.NewStore()
	h := New()
	require.NoError(t, apply(h, s, func() error { return s.Place("A", geometry.NewPoint2D(1, 2), now) }))
	require.NoError(t, apply(h, s, func() error { return s.Place("B", geometry.NewPoint2D(3, 4), now) }))
	live := s.Points()

	prev, ok := h.Undo(s.Snapshot())
	require.True(t, ok)
	s.Restore(prev)
	assert.Len(t, s.Points(), 1)

	next, ok := h.Redo(s.Snapshot())
	require.True(t, ok)
	s.Restore(next)
	assert.Equal(t, live, s.Points())
}

func TestEmptyStacks(t *testing.T) {
	h := New()
	_, ok := h.Undo(points.Snapshot{})
	assert.False(t, ok)
	_, ok = h.Redo(points.Snapshot{})
	assert.False(t, ok)
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestPushClearsRedo(t *testing.T) {
	s := points.NewStore()
	h := New()
	require.NoError(t, apply(h, s, func() error { return s.Place("A", geometry.NewPoint2D(1, 2), now) }))

	prev, _ := h.Undo(s.Snapshot())
	s.Restore(prev)
	require.True(t, h.CanRedo())

	require.NoError(t, apply(h, s, func() error { return s.Place("B", geometry.NewPoint2D(1, 2), now) }))
	assert.False(t, h.CanRedo())
}

func TestDepthIsCapped(t *testing.T) {
	s := points.NewStore()
	h := New()
	for i := 0; i < MaxDepth+5; i++ {
		name := fmt.Sprintf("P%d", i)
		require.NoError(t, apply(h, s, func() error { return s.Place(name, geometry.NewPoint2D(0, 0), now) }))
	}

	undo, redo := h.Depth()
	assert.Equal(t, MaxDepth, undo)
	assert.Equal(t, 0, redo)

	var last points.Snapshot
	for h.CanUndo() {
		last, _ = h.Undo(s.Snapshot())
		s.Restore(last)
	}
	// The oldest five steps were dropped, so the earliest reachable state has five points.
	assert.Equal(t, 5, last.Len())
}

func TestClear(t *testing.T) {
	h := New()
	h.Push(points.Snapshot{})
	h.Clear()
	assert.False(t, h.CanUndo())
}

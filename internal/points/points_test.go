package points

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

var t0 = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func identity(p geometry.Point2D) geometry.Point2D { return p }

func TestPlaceAppendsThenOverwrites(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Place("A", geometry.NewPoint2D(10, 20), t0))
	require.NoError(t, s.Place("B", geometry.NewPoint2D(1, 2), t0))
	require.NoError(t, s.Place("A", geometry.NewPoint2D(30, 40), t0.Add(time.Minute)))

	assert.Equal(t, 2, s.Len())
	a, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, Point{Name: "A", X: 30, Y: 40, Exists: true, MarkedAt: t0}, a)
}

func TestPlaceWithoutSelection(t *testing.T) {
	s := NewStore(Point{Name: "A", X: 1, Y: 1, Exists: true})
	err := s.Place("", geometry.NewPoint2D(5, 5), t0)
	assert.True(t, errors.Is(err, ErrNoSelection))
	assert.Equal(t, []Point{{Name: "A", X: 1, Y: 1, Exists: true}}, s.Points())
}

func TestSetExistence(t *testing.T) {
	tests := []struct {
		name   string
		start  []Point
		target string
		exists bool
		want   Point
	}{
		{
			name:   "clearing discards coordinates",
			start:  []Point{{Name: "A", X: 10, Y: 20, Exists: true}},
			target: "A",
			want:   Point{Name: "A", X: -1, Y: -1},
		},
		{
			name:   "re-enabling resets to origin",
			start:  []Point{{Name: "A", X: -1, Y: -1}},
			target: "A",
			exists: true,
			want:   Point{Name: "A", Exists: true},
		},
		{
			name:   "unknown name becomes absent entry",
			target: "B",
			want:   Point{Name: "B", X: -1, Y: -1},
		},
		{
			name:   "unknown name made present sits at origin",
			target: "C",
			exists: true,
			want:   Point{Name: "C", Exists: true, MarkedAt: t0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.start...)
			require.NoError(t, s.SetExistence(tt.target, tt.exists, t0))
			got, ok := s.Get(tt.target)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetExistenceRoundTripLosesPosition(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Place("A", geometry.NewPoint2D(123, 456), t0))
	require.NoError(t, s.SetExistence("A", false, t0))
	require.NoError(t, s.SetExistence("A", true, t0))

	a, _ := s.Get("A")
	assert.Equal(t, geometry.Point2D{}, a.Pos())
}

func TestMove(t *testing.T) {
	s := NewStore(Absent("A"))
	require.NoError(t, s.Move(0, geometry.NewPoint2D(7, 8)))
	a, _ := s.At(0)
	assert.True(t, a.Exists)
	assert.Equal(t, geometry.NewPoint2D(7, 8), a.Pos())

	assert.ErrorIs(t, s.Move(3, geometry.Point2D{}), ErrNotFound)
}

func TestHitTest(t *testing.T) {
	s := NewStore(
		Point{Name: "hidden", X: 100, Y: 100},
		Point{Name: "first", X: 100, Y: 100, Exists: true},
		Point{Name: "second", X: 104, Y: 100, Exists: true},
	)

	assert.Equal(t, 1, s.HitTest(geometry.NewPoint2D(103, 100), identity, DefaultHitRadius))
	assert.Equal(t, -1, s.HitTest(geometry.NewPoint2D(200, 200), identity, DefaultHitRadius))

	// Radius is measured after projection.
	double := func(p geometry.Point2D) geometry.Point2D { return p.Scale(2) }
	assert.Equal(t, -1, s.HitTest(geometry.NewPoint2D(100, 100), double, DefaultHitRadius))
	assert.Equal(t, 1, s.HitTest(geometry.NewPoint2D(205, 200), double, DefaultHitRadius))
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Place("A", geometry.NewPoint2D(1, 1), t0))
	snap := s.Snapshot()

	require.NoError(t, s.Place("A", geometry.NewPoint2D(9, 9), t0))
	require.NoError(t, s.Place("B", geometry.NewPoint2D(2, 2), t0))

	pts := snap.Points()
	pts[0].X = 500
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 1.0, snap.Points()[0].X)

	s.Restore(snap)
	assert.Equal(t, []Point{{Name: "A", X: 1, Y: 1, Exists: true, MarkedAt: t0}}, s.Points())
}

func TestReplaceCopies(t *testing.T) {
	in := []Point{{Name: "A", X: 1, Y: 2, Exists: true}}
	s := NewStore()
	s.Replace(in)
	in[0].X = 99
	a, _ := s.At(0)
	assert.Equal(t, 1.0, a.X)
}

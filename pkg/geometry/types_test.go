package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffineInverseRoundTrip(t *testing.T) {
	tr := Translation(120, -35).Compose(Scale(2.5, 2.5))

	inv, ok := tr.Inverse()
	require.True(t, ok)

	for _, p := range []Point2D{{0, 0}, {10, 20}, {-3.5, 999.25}} {
		back := inv.Apply(tr.Apply(p))
		assert.InDelta(t, p.X, back.X, 1e-9)
		assert.InDelta(t, p.Y, back.Y, 1e-9)
	}
}

func TestAffineInverseSingular(t *testing.T) {
	_, ok := Scale(0, 1).Inverse()
	assert.False(t, ok)
}

func TestComposeOrder(t *testing.T) {
	// Scale first, then translate.
	tr := Translation(10, 0).Compose(Scale(2, 2))
	got := tr.Apply(Point2D{X: 1, Y: 1})
	assert.Equal(t, Point2D{X: 12, Y: 2}, got)
}

func TestAff3(t *testing.T) {
	tr := AffineTransform{A: 2, B: 0, TX: 5, C: 0, D: 3, TY: 7}
	m := tr.Aff3()
	assert.Equal(t, 2.0, m[0])
	assert.Equal(t, 5.0, m[2])
	assert.Equal(t, 3.0, m[4])
	assert.Equal(t, 7.0, m[5])
}

func TestSizeAndRect(t *testing.T) {
	assert.True(t, Size{}.Empty())
	assert.Equal(t, 0.0, Size{Width: 10}.Aspect())
	assert.InDelta(t, 2.0, NewSize(400, 200).Aspect(), 1e-12)
	assert.Equal(t, NewSize(800, 400), NewSize(400, 200).Scaled(2))

	r := NewRect(10, 20, 100, 50)
	assert.Equal(t, 110.0, r.Right())
	assert.Equal(t, 70.0, r.Bottom())
	assert.Equal(t, Point2D{X: 60, Y: 45}, r.Center())
	assert.True(t, r.Contains(Point2D{X: 110, Y: 70}))
	assert.False(t, r.Contains(Point2D{X: 111, Y: 70}))
}

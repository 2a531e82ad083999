package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaomayi-bee/CleftLip/internal/catalog"
	"github.com/xiaomayi-bee/CleftLip/internal/config"
	"github.com/xiaomayi-bee/CleftLip/internal/document"
	"github.com/xiaomayi-bee/CleftLip/internal/points"
	"github.com/xiaomayi-bee/CleftLip/internal/session"
	"github.com/xiaomayi-bee/CleftLip/internal/viewport"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

var abc = catalog.MustNew("abc", []string{"A", "B", "C"})

// setup returns a controller over a 400x200 photo fitted into an 800x600 canvas
// (scale 2, image origin at canvas (0,100)).
func setup(t *testing.T, profile config.Profile) (*Controller, *session.Session) {
	t.Helper()
	cfg := config.Defaults(profile)
	opts := session.OptionsFromConfig(&cfg, abc, profile == config.ProfileReview)
	opts.FitDuration = 0

	s := session.New(opts)
	s.SetCanvasSize(geometry.NewSize(800, 600))
	require.NoError(t, s.LoadImage(document.NewImageInfo("a.jpg", "image/jpeg", 10, 400, 200)))
	require.Equal(t, viewport.State{Scale: 2}, s.View())
	return New(s), s
}

func pt(x, y float64) geometry.Point2D { return geometry.NewPoint2D(x, y) }

func TestDragPans(t *testing.T) {
	c, s := setup(t, config.ProfileAuthoring)
	assert.Equal(t, StateIdle, c.State())

	c.PointerDown(pt(100, 100), ButtonPrimary)
	assert.Equal(t, StateDragging, c.State())

	c.PointerMove(pt(110, 95))
	c.PointerMove(pt(130, 95))
	assert.Equal(t, viewport.State{Scale: 2, OffsetX: 30, OffsetY: -5}, s.View())

	c.PointerUp(pt(130, 95))
	assert.Equal(t, StateIdle, c.State())

	c.PointerMove(pt(200, 200))
	assert.Equal(t, viewport.State{Scale: 2, OffsetX: 30, OffsetY: -5}, s.View())
}

func TestLeaveStopsDrag(t *testing.T) {
	c, _ := setup(t, config.ProfileAuthoring)
	c.PointerDown(pt(1, 1), ButtonMiddle)
	assert.Equal(t, StateDragging, c.State())
	c.PointerLeave()
	assert.Equal(t, StateIdle, c.State())

	_, _, _, ok := c.Hover()
	assert.False(t, ok)
}

func TestPlacing(t *testing.T) {
	c, s := setup(t, config.ProfileAuthoring)
	var errs []error
	c.OnError(func(err error) { errs = append(errs, err) })

	require.NoError(t, c.SetPointMode(true))
	assert.Equal(t, StatePlacing, c.State())

	c.PointerDown(pt(200, 300), ButtonPrimary)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], points.ErrNoSelection)
	assert.Empty(t, s.Points())

	require.NoError(t, s.Select("B"))
	c.PointerDown(pt(200, 300), ButtonPrimary)
	p, ok := s.Point("B")
	require.True(t, ok)
	assert.Equal(t, pt(100, 100), p.Pos())
	assert.Equal(t, StatePlacing, c.State())
}

func TestPointerDownOnMarker(t *testing.T) {
	c, s := setup(t, config.ProfileAuthoring)
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(pt(100, 100)))
	s.ClearSelection()

	// Outside point mode a hit only selects.
	c.PointerDown(pt(204, 302), ButtonPrimary)
	assert.Equal(t, "A", s.Selection())
	assert.Equal(t, StateIdle, c.State())
	p, _ := s.Point("A")
	assert.Equal(t, pt(100, 100), p.Pos())

	// In point mode it moves the marker under the pointer.
	require.NoError(t, c.SetPointMode(true))
	c.PointerDown(pt(204, 302), ButtonPrimary)
	p, _ = s.Point("A")
	assert.Equal(t, pt(102, 101), p.Pos())
	assert.Equal(t, "A", s.Selection())
}

func TestPointModeOffClearsSelection(t *testing.T) {
	c, s := setup(t, config.ProfileAuthoring)
	var modes []bool
	c.OnPointModeChange(func(on bool) { modes = append(modes, on) })

	on, err := c.TogglePointMode()
	require.NoError(t, err)
	assert.True(t, on)
	require.NoError(t, s.Select("C"))

	on, err = c.TogglePointMode()
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, s.Selection())
	assert.Equal(t, []bool{true, false}, modes)
}

func TestReviewNeverPlaces(t *testing.T) {
	c, s := setup(t, config.ProfileReview)
	assert.ErrorIs(t, c.SetPointMode(true), session.ErrReadOnly)
	assert.Equal(t, StateIdle, c.State())

	require.NoError(t, s.Select("A"))
	c.PointerDown(pt(200, 300), ButtonPrimary)
	assert.Equal(t, StateDragging, c.State())
	assert.Empty(t, s.Points())
}

func TestSecondaryButtonIgnored(t *testing.T) {
	c, _ := setup(t, config.ProfileAuthoring)
	c.PointerDown(pt(10, 10), ButtonSecondary)
	assert.Equal(t, StateIdle, c.State())
}

func TestWheel(t *testing.T) {
	c, s := setup(t, config.ProfileAuthoring)
	c.Wheel(-3)
	assert.InDelta(t, 2.1, s.View().Scale, 1e-9)
	c.Wheel(3)
	assert.InDelta(t, 2.1*0.95, s.View().Scale, 1e-9)
}

func TestHover(t *testing.T) {
	c, _ := setup(t, config.ProfileAuthoring)
	c.PointerMove(pt(200, 300))

	canvasPos, imagePos, inside, ok := c.Hover()
	require.True(t, ok)
	assert.True(t, inside)
	assert.Equal(t, pt(200, 300), canvasPos)
	assert.Equal(t, pt(100, 100), imagePos)

	c.PointerMove(pt(10, 10))
	_, _, inside, ok = c.Hover()
	assert.True(t, ok)
	assert.False(t, inside)
}

func TestKeys(t *testing.T) {
	c, s := setup(t, config.ProfileAuthoring)
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(pt(1, 1)))

	assert.False(t, c.Key("Z", false))
	assert.True(t, c.Key("z", true))
	assert.Empty(t, s.Points())
	assert.True(t, c.Key("Y", true))
	assert.Len(t, s.Points(), 1)
	assert.False(t, c.Key("Q", true))
}

func TestNoImageIgnoresInput(t *testing.T) {
	s := session.New(session.DefaultOptions(abc))
	c := New(s)
	c.PointerDown(pt(1, 1), ButtonPrimary)
	assert.Equal(t, StateIdle, c.State())
	c.Wheel(1)
	assert.Equal(t, viewport.Identity(), s.View())
}

package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaomayi-bee/CleftLip/internal/catalog"
	"github.com/xiaomayi-bee/CleftLip/internal/config"
	"github.com/xiaomayi-bee/CleftLip/internal/document"
	"github.com/xiaomayi-bee/CleftLip/internal/points"
	"github.com/xiaomayi-bee/CleftLip/internal/viewport"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var abc = catalog.MustNew("abc", []string{"A", "B", "C"})

func photo() document.ImageInfo {
	return document.NewImageInfo("40634.jpg", "image/jpeg", 2048, 400, 200)
}

// newLoaded returns a session showing a 400x200 photo fitted into an 800x600 canvas:
// scale 2 with the image's top-left corner at canvas (0,100).
func newLoaded(t *testing.T, profile config.Profile) (*Session, *fakeClock) {
	t.Helper()
	clk := newClock()
	cfg := config.Defaults(profile)
	opts := OptionsFromConfig(&cfg, abc, profile == config.ProfileReview)
	opts.Clock = clk.Now

	s := New(opts)
	s.SetCanvasSize(geometry.NewSize(800, 600))
	require.NoError(t, s.LoadImage(photo()))
	require.True(t, s.Animating())

	clk.Advance(time.Second)
	assert.False(t, s.Tick())
	require.InDelta(t, 2.0, s.View().Scale, 1e-9)
	return s, clk
}

func TestViewportCommandsNeedImage(t *testing.T) {
	s := New(DefaultOptions(abc))
	assert.ErrorIs(t, s.Fit(), ErrNoImage)
	assert.ErrorIs(t, s.ZoomIn(), ErrNoImage)
	assert.ErrorIs(t, s.Wheel(1), ErrNoImage)
	assert.ErrorIs(t, s.Pan(1, 1), ErrNoImage)
	assert.ErrorIs(t, s.PlaceAt(geometry.NewPoint2D(1, 1)), ErrNoImage)
	assert.ErrorIs(t, s.LoadImage(document.ImageInfo{}), ErrNoImage)
	assert.False(t, s.Tick())
	assert.Equal(t, -1, s.HitTest(geometry.NewPoint2D(0, 0)))
}

func TestLoadImageFitsWithTransition(t *testing.T) {
	clk := newClock()
	opts := DefaultOptions(abc)
	opts.Clock = clk.Now
	s := New(opts)
	s.SetCanvasSize(geometry.NewSize(800, 600))

	require.NoError(t, s.LoadImage(photo()))
	assert.Equal(t, viewport.Identity(), s.View())

	clk.Advance(opts.FitDuration / 2)
	assert.True(t, s.Tick())
	mid := s.View().Scale
	assert.Greater(t, mid, 1.0)
	assert.Less(t, mid, 2.0)

	clk.Advance(opts.FitDuration)
	assert.False(t, s.Tick())
	assert.Equal(t, viewport.State{Scale: 2}, s.View())
	assert.False(t, s.Animating())
}

func TestLoadImageClearsState(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(geometry.NewPoint2D(1, 1)))
	require.True(t, s.CanUndo())

	require.NoError(t, s.LoadImage(photo()))
	assert.Empty(t, s.Points())
	assert.False(t, s.CanUndo())
	assert.Empty(t, s.Selection())
	assert.False(t, s.Modified())
	assert.Equal(t, viewport.Identity(), s.View())
}

func TestSetCanvasSizeRefitsAtOnce(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	s.SetCanvasSize(geometry.NewSize(400, 300))
	assert.False(t, s.Animating())
	assert.Equal(t, viewport.State{Scale: 1}, s.View())
}

func TestPlaceAtMapsCanvasToImage(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)

	assert.ErrorIs(t, s.PlaceAt(geometry.NewPoint2D(200, 300)), points.ErrNoSelection)
	assert.False(t, s.CanUndo())

	require.NoError(t, s.Select("B"))
	require.NoError(t, s.PlaceAt(geometry.NewPoint2D(200, 300)))

	p, ok := s.Point("B")
	require.True(t, ok)
	assert.Equal(t, geometry.NewPoint2D(100, 100), p.Pos())
	assert.True(t, p.Exists)
	assert.True(t, s.Modified())
	assert.Equal(t, 0, s.SelectedIndex())

	assert.Equal(t, geometry.NewPoint2D(200, 300), s.ToCanvas(p.Pos()))
	assert.Equal(t, 0, s.HitTest(geometry.NewPoint2D(205, 300)))
	assert.Equal(t, -1, s.HitTest(geometry.NewPoint2D(220, 300)))
}

func TestPlaceOutsideImageIsAccepted(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.PlaceAt(geometry.NewPoint2D(10, 10)))

	p, _ := s.Point("A")
	assert.Equal(t, geometry.NewPoint2D(5, -45), p.Pos())
}

func TestMoveTo(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(geometry.NewPoint2D(1, 1)))

	require.NoError(t, s.MoveTo(0, geometry.NewPoint2D(400, 500)))
	p, _ := s.Point("A")
	assert.Equal(t, geometry.NewPoint2D(200, 200), p.Pos())

	assert.ErrorIs(t, s.MoveTo(3, geometry.NewPoint2D(0, 0)), points.ErrNotFound)
}

func TestSelect(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	assert.ErrorIs(t, s.Select("Z"), points.ErrNotFound)
	assert.ErrorIs(t, s.SelectIndex(0), points.ErrNotFound)

	require.NoError(t, s.Select("C"))
	assert.Equal(t, "C", s.Selection())
	assert.Equal(t, -1, s.SelectedIndex())

	s.ClearSelection()
	assert.Empty(t, s.Selection())
}

func TestSetExistence(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(geometry.NewPoint2D(10, 20)))

	require.NoError(t, s.SetExistence("A", false))
	p, _ := s.Point("A")
	assert.False(t, p.Exists)
	assert.Equal(t, geometry.NewPoint2D(-1, -1), p.Pos())

	require.NoError(t, s.SetExistence("A", true))
	p, _ = s.Point("A")
	assert.Equal(t, geometry.NewPoint2D(0, 0), p.Pos())

	assert.ErrorIs(t, s.SetExistence("Z", true), points.ErrNotFound)
}

func TestUndoRedo(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	assert.False(t, s.Undo())

	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(geometry.NewPoint2D(1, 2)))
	require.NoError(t, s.Select("B"))
	require.NoError(t, s.Place(geometry.NewPoint2D(3, 4)))
	after := s.Points()

	require.True(t, s.Undo())
	assert.Len(t, s.Points(), 1)
	assert.Empty(t, s.Selection())
	require.True(t, s.CanRedo())

	require.True(t, s.Undo())
	assert.Empty(t, s.Points())
	assert.False(t, s.Undo())

	require.True(t, s.Redo())
	require.True(t, s.Redo())
	assert.Equal(t, after, s.Points())
	assert.False(t, s.Redo())
}

func TestWheelZoomIsInstant(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)

	require.NoError(t, s.Wheel(-1))
	assert.False(t, s.Animating())
	v := s.View()
	assert.InDelta(t, 2.1, v.Scale, 1e-9)
	assert.InDelta(t, 0, v.OffsetX, 1e-9)
	assert.InDelta(t, 0, v.OffsetY, 1e-9)

	require.NoError(t, s.Wheel(1))
	assert.InDelta(t, 2.1*0.95, s.View().Scale, 1e-9)

	require.NoError(t, s.Wheel(0))
	assert.InDelta(t, 2.1*0.95, s.View().Scale, 1e-9)
}

func TestButtonZoomAnimates(t *testing.T) {
	s, clk := newLoaded(t, config.ProfileAuthoring)

	var started int
	s.On(EventAnimationStarted, func(interface{}) { started++ })

	require.NoError(t, s.ZoomIn())
	assert.True(t, s.Animating())
	assert.Equal(t, 1, started)

	clk.Advance(100 * time.Millisecond)
	assert.True(t, s.Tick())
	assert.InDelta(t, 2+0.2*0.875, s.View().Scale, 1e-9)

	clk.Advance(100 * time.Millisecond)
	assert.False(t, s.Tick())
	assert.InDelta(t, 2.2, s.View().Scale, 1e-9)
}

func TestZoomClampsToLimits(t *testing.T) {
	clk := newClock()
	opts := DefaultOptions(abc)
	opts.Clock = clk.Now
	opts.Limits = viewport.Limits{MinScale: 0.1, MaxScale: 2}
	s := New(opts)
	s.SetCanvasSize(geometry.NewSize(800, 600))
	require.NoError(t, s.LoadImage(photo()))
	clk.Advance(time.Second)
	s.Tick()

	require.NoError(t, s.ZoomIn())
	clk.Advance(time.Second)
	s.Tick()
	assert.InDelta(t, 2.0, s.View().Scale, 1e-9)
}

func TestResetAndFit(t *testing.T) {
	s, clk := newLoaded(t, config.ProfileAuthoring)

	require.NoError(t, s.ResetView())
	assert.Equal(t, viewport.Identity(), s.View())
	assert.False(t, s.Animating())

	require.NoError(t, s.Fit())
	clk.Advance(time.Second)
	s.Tick()
	assert.Equal(t, viewport.State{Scale: 2}, s.View())
}

func TestPanCancelsTransition(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	require.NoError(t, s.ZoomIn())
	require.NoError(t, s.Pan(30, -10))
	assert.False(t, s.Animating())
	assert.Equal(t, viewport.State{Scale: 2, OffsetX: 30, OffsetY: -10}, s.View())
}

func TestReviewPanIsConstrained(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileReview)
	require.NoError(t, s.Pan(5000, 0))
	v := s.View()
	assert.InDelta(t, 750, v.OffsetX, 1e-9)
	assert.InDelta(t, 0, v.OffsetY, 1e-9)
}

func TestLabels(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	require.NoError(t, s.Select("C"))
	require.NoError(t, s.Place(geometry.NewPoint2D(1, 1)))

	assert.Equal(t, "C", s.Label(0))
	s.SetDisplayMode(DisplayNumber)
	assert.Equal(t, "#3", s.Label(0))
	s.SetDisplayMode(DisplayPointOnly)
	assert.Equal(t, "", s.Label(0))
	assert.Equal(t, "", s.Label(5))
}

func TestLabelFallsBackToStoreIndex(t *testing.T) {
	assert.Equal(t, "#2", label(DisplayNumber, points.Point{Name: "X"}, -1, 1))
}

func TestParseDisplayMode(t *testing.T) {
	for _, m := range DisplayModes() {
		got, err := ParseDisplayMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseDisplayMode("huge")
	assert.Error(t, err)
}

func TestPatient(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	assert.ErrorIs(t, s.SetPatient(document.PatientInfo{PatientID: "abc"}), document.ErrMissingPatientID)

	require.NoError(t, s.SetPatient(document.PatientInfo{PatientID: "40634"}))
	p := s.Patient()
	assert.Equal(t, "40634", p.PatientID)
	assert.Equal(t, document.DefaultPhase, p.Phase)
	assert.Equal(t, document.DefaultAngle, p.Angle)
}

func TestSuggestPatientID(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)

	r := s.SuggestPatientID("/data/40634唐明轩/正面.jpg")
	assert.True(t, r.Found())
	assert.Equal(t, "40634", s.Patient().PatientID)

	s.SuggestPatientID("/data/55555/正面.jpg")
	assert.Equal(t, "40634", s.Patient().PatientID)
}

func TestExport(t *testing.T) {
	s := New(DefaultOptions(abc))
	_, err := s.Export()
	assert.ErrorIs(t, err, ErrNoImage)

	s, _ = newLoaded(t, config.ProfileAuthoring)
	_, err = s.Export()
	assert.ErrorIs(t, err, document.ErrMissingPatientID)

	require.NoError(t, s.SetPatient(document.PatientInfo{PatientID: "40634"}))
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(geometry.NewPoint2D(10, 20)))
	require.NoError(t, s.SetExistence("B", false))

	doc, err := s.Export()
	require.NoError(t, err)
	assert.False(t, s.Modified())
	assert.Equal(t, 3, doc.Statistics.TotalPoints)
	assert.Equal(t, 1, doc.Statistics.MarkedPoints)
	assert.Equal(t, "40634.jpg", doc.Image.FileName)
	assert.Nil(t, doc.Audit)
}

func exported(t *testing.T) []byte {
	t.Helper()
	s, _ := newLoaded(t, config.ProfileAuthoring)
	require.NoError(t, s.SetPatient(document.PatientInfo{PatientID: "40634"}))
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(geometry.NewPoint2D(10, 20)))

	doc, err := s.Export()
	require.NoError(t, err)
	data, err := document.Encode(doc)
	require.NoError(t, err)
	return data
}

func TestImportUndoable(t *testing.T) {
	data := exported(t)

	s, _ := newLoaded(t, config.ProfileAuthoring)
	require.NoError(t, s.Select("C"))
	require.NoError(t, s.Place(geometry.NewPoint2D(5, 5)))
	before := s.Points()

	doc, err := s.Import(data)
	require.NoError(t, err)
	assert.Equal(t, "40634", doc.Patient.PatientID)
	assert.Equal(t, "40634", s.Patient().PatientID)

	pts := s.Points()
	require.Len(t, pts, 3)
	assert.Equal(t, geometry.NewPoint2D(10, 20), pts[0].Pos())
	assert.False(t, pts[2].Exists)

	require.True(t, s.Undo())
	assert.Equal(t, before, s.Points())
}

func TestImportFillsPatientDefaults(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal(exported(t), &m))
	m["patient_info"] = map[string]any{"patient_id": "40634"}
	data, err := json.Marshal(m)
	require.NoError(t, err)

	s, _ := newLoaded(t, config.ProfileAuthoring)
	var seen document.PatientInfo
	s.On(EventPatientChanged, func(data interface{}) { seen = data.(document.PatientInfo) })

	doc, err := s.Import(data)
	require.NoError(t, err)
	want := document.PatientInfo{PatientID: "40634", Phase: document.DefaultPhase, Angle: document.DefaultAngle}
	assert.Equal(t, want, doc.Patient)
	assert.Equal(t, want, s.Patient())
	assert.Equal(t, want, seen)
}

func TestImportRejectsLeavesStateAlone(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(geometry.NewPoint2D(5, 5)))
	before := s.Points()

	_, err := s.Import([]byte(`{"patient_info":{}}`))
	assert.ErrorIs(t, err, document.ErrInvalidFormat)
	assert.Equal(t, before, s.Points())
}

func TestReviewSession(t *testing.T) {
	data := exported(t)
	s, _ := newLoaded(t, config.ProfileReview)
	require.True(t, s.ReadOnly())

	_, err := s.Import(data)
	require.NoError(t, err)
	assert.False(t, s.CanUndo())
	assert.False(t, s.Undo())

	require.NoError(t, s.Select("B"))
	assert.ErrorIs(t, s.Place(geometry.NewPoint2D(1, 1)), ErrReadOnly)
	assert.ErrorIs(t, s.SetExistence("B", false), ErrReadOnly)
	assert.ErrorIs(t, s.SetPatient(document.PatientInfo{PatientID: "1"}), ErrReadOnly)

	_, ok := s.AuditRecord()
	assert.False(t, ok)

	_, err = s.Audit(true, "ok", document.Auditor{})
	assert.Error(t, err)

	rec, err := s.Audit(false, "redo 3", document.Auditor{ID: 7, Name: "王医生", Username: "wang"})
	require.NoError(t, err)
	assert.False(t, rec.Approved)

	rec, err = s.Audit(true, "fine", document.Auditor{ID: 7, Name: "王医生", Username: "wang"})
	require.NoError(t, err)
	got, ok := s.AuditRecord()
	require.True(t, ok)
	assert.Equal(t, rec, got)

	doc, err := s.Export()
	require.NoError(t, err)
	require.NotNil(t, doc.Audit)
	assert.True(t, doc.Audit.Approved)
	assert.Equal(t, document.StatusApproved, doc.Status())
}

func TestAuditNeedsReview(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)
	_, err := s.Audit(true, "", document.Auditor{Name: "x"})
	assert.ErrorIs(t, err, ErrNotReview)
}

func TestEventsAfterUnlock(t *testing.T) {
	s, _ := newLoaded(t, config.ProfileAuthoring)

	var changed []int
	s.On(EventPointsChanged, func(interface{}) {
		// Listeners may read the session.
		changed = append(changed, len(s.Points()))
	})
	var selected []string
	s.On(EventSelectionChanged, func(data interface{}) { selected = append(selected, data.(string)) })

	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Place(geometry.NewPoint2D(1, 1)))
	s.Undo()

	assert.Equal(t, []int{1, 0}, changed)
	assert.Equal(t, []string{"A", ""}, selected)
}

func TestFrameLoopDrivesTransition(t *testing.T) {
	opts := DefaultOptions(abc)
	opts.FitDuration = 30 * time.Millisecond
	s := New(opts)
	s.SetCanvasSize(geometry.NewSize(800, 600))

	loop := NewFrameLoop(s, 2*time.Millisecond)
	defer loop.Stop()
	var frames atomic.Int32
	loop.OnFrame(func() { frames.Add(1) })

	require.NoError(t, s.LoadImage(photo()))

	require.Eventually(t, func() bool {
		return !s.Animating() && !loop.Running()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, viewport.State{Scale: 2}, s.View())
	assert.Positive(t, frames.Load())
}

func TestFrameLoopPlaysZoomIssuedOnFinalFrame(t *testing.T) {
	opts := DefaultOptions(abc)
	opts.FitDuration = 20 * time.Millisecond
	opts.ZoomDuration = 20 * time.Millisecond
	s := New(opts)
	s.SetCanvasSize(geometry.NewSize(800, 600))

	loop := NewFrameLoop(s, 2*time.Millisecond)
	defer loop.Stop()

	// The fit's last frame clears the transition before listeners run.
	var zoomed atomic.Bool
	s.On(EventViewportChanged, func(interface{}) {
		if s.HasImage() && !s.Animating() && zoomed.CompareAndSwap(false, true) {
			assert.NoError(t, s.ZoomIn())
		}
	})

	require.NoError(t, s.LoadImage(photo()))

	require.Eventually(t, func() bool {
		return zoomed.Load() && !s.Animating() && !loop.Running()
	}, 2*time.Second, 5*time.Millisecond)
	assert.InDelta(t, 2.2, s.View().Scale, 1e-9)
}

func TestFrameLoopRestartsMidTransition(t *testing.T) {
	opts := DefaultOptions(abc)
	opts.FitDuration = 200 * time.Millisecond
	opts.ZoomDuration = 20 * time.Millisecond
	s := New(opts)
	s.SetCanvasSize(geometry.NewSize(800, 600))

	loop := NewFrameLoop(s, 2*time.Millisecond)
	defer loop.Stop()
	var frames atomic.Int32
	loop.OnFrame(func() { frames.Add(1) })

	require.NoError(t, s.LoadImage(photo()))
	require.Eventually(t, func() bool { return frames.Load() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, s.ZoomIn())
	require.Eventually(t, func() bool {
		return !s.Animating() && !loop.Running()
	}, 2*time.Second, 5*time.Millisecond)

	rest := s.View()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, rest, s.View())
	assert.Greater(t, rest.Scale, 1.0)
}

// Package session owns the state of one open annotation: the photo's size, the viewport,
// the point store with its undo history, the selection and the patient metadata.
//
// A Session is shared by the UI event handlers and the animation frame loop, so every
// method locks. Listeners are called after the lock is released and may call back in.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xiaomayi-bee/CleftLip/internal/catalog"
	"github.com/xiaomayi-bee/CleftLip/internal/config"
	"github.com/xiaomayi-bee/CleftLip/internal/document"
	"github.com/xiaomayi-bee/CleftLip/internal/history"
	"github.com/xiaomayi-bee/CleftLip/internal/logging"
	"github.com/xiaomayi-bee/CleftLip/internal/patientid"
	"github.com/xiaomayi-bee/CleftLip/internal/points"
	"github.com/xiaomayi-bee/CleftLip/internal/viewport"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

var (
	// ErrReadOnly is returned for edits attempted in a review session.
	ErrReadOnly = errors.New("session is read-only")

	// ErrNoImage is returned by operations that need a loaded photo.
	ErrNoImage = errors.New("no image loaded")

	// ErrNotReview is returned by Audit in an authoring session.
	ErrNotReview = errors.New("audit requires a review session")
)

// EventType identifies session events.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventPointsChanged
	EventSelectionChanged
	EventViewportChanged
	EventAnimationStarted
	EventPatientChanged
	EventHistoryChanged
	EventAudited
	EventDisplayModeChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Options configures a session.
type Options struct {
	Catalog *catalog.Catalog

	Limits         viewport.Limits
	ZoomInFactor   float64
	ZoomOutFactor  float64
	WheelIntensity float64
	MinVisible     float64
	ConstrainOnPan bool
	FitDuration    time.Duration
	ZoomDuration   time.Duration
	HitRadius      float64

	// ReadOnly sessions review an imported document: points cannot be edited, but an
	// audit decision can be recorded.
	ReadOnly bool

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the authoring defaults for cat.
func DefaultOptions(cat *catalog.Catalog) Options {
	return OptionsFromConfig(ptr(config.Defaults(config.ProfileAuthoring)), cat, false)
}

// OptionsFromConfig derives session options from loaded settings.
func OptionsFromConfig(cfg *config.Config, cat *catalog.Catalog, readOnly bool) Options {
	v := cfg.Viewport
	return Options{
		Catalog:        cat,
		Limits:         cfg.Limits(),
		ZoomInFactor:   v.ZoomInFactor,
		ZoomOutFactor:  v.ZoomOutFactor,
		WheelIntensity: v.WheelIntensity,
		MinVisible:     v.MinVisiblePx,
		ConstrainOnPan: v.ConstrainOnPan,
		FitDuration:    v.FitDuration,
		ZoomDuration:   v.ZoomDuration,
		HitRadius:      cfg.Points.HitRadius,
		ReadOnly:       readOnly,
	}
}

func ptr[T any](v T) *T { return &v }

// Session holds one document's live state.
type Session struct {
	mu sync.RWMutex

	id   string
	opts Options
	log  zerolog.Logger

	// Photo and viewport
	hasImage bool
	image    document.ImageInfo
	imgSize  geometry.Size
	canvas   geometry.Size
	view     viewport.State
	anim     *viewport.Transition

	// Points
	store    *points.Store
	history  *history.Manager
	selected string

	// Metadata
	patient     document.PatientInfo
	audit       *document.AuditRecord
	displayMode DisplayMode
	modified    bool

	// Event listeners
	listeners map[EventType][]EventListener
}

// New creates a session. A nil catalog means the built-in facial set.
func New(opts Options) *Session {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Facial()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.HitRadius <= 0 {
		opts.HitRadius = points.DefaultHitRadius
	}
	if opts.Limits == (viewport.Limits{}) {
		opts.Limits = viewport.DefaultLimits()
	}

	id := uuid.NewString()
	s := &Session{
		id:          id,
		opts:        opts,
		log:         logging.With().Str("session", id[:8]).Bool("read_only", opts.ReadOnly).Logger(),
		view:        viewport.Identity(),
		store:       points.NewStore(),
		history:     history.New(),
		displayMode: DisplayFullName,
		listeners:   make(map[EventType][]EventListener),
	}
	s.log.Debug().Str("catalog", opts.Catalog.Name()).Int("points", opts.Catalog.Len()).Msg("session created")
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// ReadOnly reports whether this is a review session.
func (s *Session) ReadOnly() bool { return s.opts.ReadOnly }

// Catalog returns the landmark catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.opts.Catalog }

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

func (s *Session) now() time.Time { return s.opts.Clock() }

// LoadImage starts a new annotation on a photo: the viewport returns to identity, points,
// history, selection and audit are cleared, then a fit transition begins.
func (s *Session) LoadImage(info document.ImageInfo) error {
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("%w: image has no pixels (%dx%d)", ErrNoImage, info.Width, info.Height)
	}

	s.mu.Lock()
	s.hasImage = true
	s.image = info
	s.imgSize = geometry.NewSize(float64(info.Width), float64(info.Height))
	s.view = viewport.Identity()
	s.anim = nil
	s.store = points.NewStore()
	s.history.Clear()
	s.selected = ""
	s.audit = nil
	s.modified = false
	animating := s.startFitLocked()
	s.mu.Unlock()

	s.log.Info().Str("file", info.FileName).Int("width", info.Width).Int("height", info.Height).Msg("image loaded")

	s.Emit(EventImageLoaded, info)
	s.Emit(EventPointsChanged, nil)
	s.Emit(EventHistoryChanged, nil)
	s.Emit(EventSelectionChanged, "")
	s.Emit(EventViewportChanged, s.View())
	if animating {
		s.Emit(EventAnimationStarted, nil)
	}
	return nil
}

// Clear drops the photo and everything annotated on it. The patient is kept.
func (s *Session) Clear() {
	s.mu.Lock()
	s.hasImage = false
	s.image = document.ImageInfo{}
	s.imgSize = geometry.Size{}
	s.view = viewport.Identity()
	s.anim = nil
	s.store = points.NewStore()
	s.history.Clear()
	s.selected = ""
	s.audit = nil
	s.modified = false
	s.mu.Unlock()

	s.Emit(EventPointsChanged, nil)
	s.Emit(EventHistoryChanged, nil)
	s.Emit(EventSelectionChanged, "")
	s.Emit(EventViewportChanged, viewport.Identity())
}

// HasImage reports whether a photo is loaded.
func (s *Session) HasImage() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasImage
}

// Image returns the loaded photo's metadata.
func (s *Session) Image() document.ImageInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image
}

// Modified reports unsaved point edits since the image was loaded or last exported.
func (s *Session) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Points returns a copy of the point store's entries.
func (s *Session) Points() []points.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Points()
}

// Point returns the entry for name.
func (s *Session) Point(name string) (points.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Get(name)
}

// Select makes name the catalog entry that the next placement targets.
func (s *Session) Select(name string) error {
	if !s.opts.Catalog.Contains(name) {
		return fmt.Errorf("%w: %q is not in catalog %s", points.ErrNotFound, name, s.opts.Catalog.Name())
	}
	s.setSelection(name)
	return nil
}

// SelectIndex selects the name of the store entry at index.
func (s *Session) SelectIndex(index int) error {
	s.mu.RLock()
	p, ok := s.store.At(index)
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: index %d", points.ErrNotFound, index)
	}
	s.setSelection(p.Name)
	return nil
}

// ClearSelection deselects.
func (s *Session) ClearSelection() {
	s.setSelection("")
}

func (s *Session) setSelection(name string) {
	s.mu.Lock()
	changed := s.selected != name
	s.selected = name
	s.mu.Unlock()
	if changed {
		s.Emit(EventSelectionChanged, name)
	}
}

// Selection returns the selected catalog name, or "".
func (s *Session) Selection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SelectedIndex returns the store index of the selected name, or -1.
func (s *Session) SelectedIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return -1
	}
	return s.store.Find(s.selected)
}

// mutate runs fn against the store. The pre-mutation snapshot is recorded in history only
// when fn succeeds, so a failed edit leaves both the store and the history untouched.
func (s *Session) mutate(op string, fn func(store *points.Store, now time.Time) error) error {
	s.mu.Lock()
	if s.opts.ReadOnly {
		s.mu.Unlock()
		return ErrReadOnly
	}
	snap := s.store.Snapshot()
	if err := fn(s.store, s.now()); err != nil {
		s.mu.Unlock()
		return err
	}
	s.history.Push(snap)
	s.modified = true
	s.mu.Unlock()

	s.log.Debug().Str("op", op).Msg("points changed")
	s.Emit(EventPointsChanged, nil)
	s.Emit(EventHistoryChanged, nil)
	return nil
}

// Place puts the selected landmark at an image-space position. Positions outside the
// image are accepted.
func (s *Session) Place(pos geometry.Point2D) error {
	name := s.Selection()
	return s.mutate("place", func(store *points.Store, now time.Time) error {
		return store.Place(name, pos, now)
	})
}

// PlaceAt places the selected landmark under a canvas position.
func (s *Session) PlaceAt(canvasPos geometry.Point2D) error {
	if !s.HasImage() {
		return ErrNoImage
	}
	pos, _ := s.ToImage(canvasPos)
	return s.Place(pos)
}

// MoveTo moves the store entry at index under a canvas position.
func (s *Session) MoveTo(index int, canvasPos geometry.Point2D) error {
	if !s.HasImage() {
		return ErrNoImage
	}
	pos, _ := s.ToImage(canvasPos)
	return s.mutate("move", func(store *points.Store, _ time.Time) error {
		return store.Move(index, pos)
	})
}

// SetExistence flags a landmark present or absent. Marking it absent discards its position.
func (s *Session) SetExistence(name string, exists bool) error {
	if !s.opts.Catalog.Contains(name) {
		return fmt.Errorf("%w: %q is not in catalog %s", points.ErrNotFound, name, s.opts.Catalog.Name())
	}
	return s.mutate("set_existence", func(store *points.Store, now time.Time) error {
		return store.SetExistence(name, exists, now)
	})
}

// Undo restores the state before the last edit. It reports whether anything changed.
func (s *Session) Undo() bool {
	return s.step(s.history.Undo, "undo")
}

// Redo re-applies the last undone edit.
func (s *Session) Redo() bool {
	return s.step(s.history.Redo, "redo")
}

func (s *Session) step(pop func(points.Snapshot) (points.Snapshot, bool), op string) bool {
	s.mu.Lock()
	if s.opts.ReadOnly {
		s.mu.Unlock()
		return false
	}
	snap, ok := pop(s.store.Snapshot())
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.store.Restore(snap)
	s.selected = ""
	s.modified = true
	s.mu.Unlock()

	s.log.Debug().Str("op", op).Msg("history step")
	s.Emit(EventPointsChanged, nil)
	s.Emit(EventHistoryChanged, nil)
	s.Emit(EventSelectionChanged, "")
	return true
}

// CanUndo reports whether Undo would change anything.
func (s *Session) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.opts.ReadOnly && s.history.CanUndo()
}

// CanRedo reports whether Redo would change anything.
func (s *Session) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.opts.ReadOnly && s.history.CanRedo()
}

// HitTest returns the store index of the first present point drawn within the hit radius
// of a canvas position, or -1.
func (s *Session) HitTest(canvasPos geometry.Point2D) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasImage {
		return -1
	}
	tr := viewport.Transform(s.view, s.canvas, s.imgSize)
	return s.store.HitTest(canvasPos, tr.Apply, s.opts.HitRadius)
}

// SetPatient replaces the patient metadata after checking the id.
func (s *Session) SetPatient(p document.PatientInfo) error {
	if s.opts.ReadOnly {
		return ErrReadOnly
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.WithDefaults()

	s.mu.Lock()
	s.patient = p
	s.mu.Unlock()

	s.log.Info().Str("patient_id", p.PatientID).Str("phase", p.Phase).Str("angle", p.Angle).Msg("patient set")
	s.Emit(EventPatientChanged, p)
	return nil
}

// Patient returns the patient metadata.
func (s *Session) Patient() document.PatientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.patient
}

// SuggestPatientID runs the path heuristic and, when no id is set yet and the suggestion
// is valid, adopts it. The result is returned either way.
func (s *Session) SuggestPatientID(path string) patientid.Result {
	r := patientid.Extract(path)
	s.log.Debug().Str("path", path).Str("source", string(r.Source)).Str("patient_id", r.PatientID).Msg("patient id suggestion")

	if !r.Found() || !patientid.Valid(r.PatientID) || s.opts.ReadOnly {
		return r
	}

	p := s.Patient()
	if p.PatientID != "" {
		return r
	}
	p.PatientID = r.PatientID
	_ = s.SetPatient(p)
	return r
}

// Export builds the annotation document for the current state.
func (s *Session) Export() (*document.Document, error) {
	s.mu.Lock()
	if !s.hasImage {
		s.mu.Unlock()
		return nil, ErrNoImage
	}
	doc, err := document.Export(s.store.Points(), s.opts.Catalog, s.patient, s.image, s.now())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.audit != nil {
		a := *s.audit
		doc.Audit = &a
	}
	s.modified = false
	s.mu.Unlock()

	s.log.Info().
		Str("patient_id", doc.Patient.PatientID).
		Int("marked", doc.Statistics.MarkedPoints).
		Int("total", doc.Statistics.TotalPoints).
		Msg("annotation exported")
	return doc, nil
}

// Import validates a document and replaces the points and patient wholesale. Nothing
// changes when validation fails. In an authoring session the import can be undone.
func (s *Session) Import(data []byte) (*document.Document, error) {
	doc, err := document.Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("import rejected")
		return nil, err
	}
	pts := doc.StorePoints(s.now())

	s.mu.Lock()
	if !s.opts.ReadOnly {
		s.history.Push(s.store.Snapshot())
	}
	s.store.Replace(pts)
	s.patient = doc.Patient
	s.audit = doc.Audit
	s.selected = ""
	s.modified = false
	s.mu.Unlock()

	if unknown := doc.UnknownNames(s.opts.Catalog); len(unknown) > 0 {
		s.log.Warn().Strs("names", unknown).Msg("imported points not in catalog")
	}
	s.log.Info().Str("patient_id", doc.Patient.PatientID).Int("points", len(pts)).Msg("annotation imported")

	s.Emit(EventPointsChanged, nil)
	s.Emit(EventHistoryChanged, nil)
	s.Emit(EventSelectionChanged, "")
	s.Emit(EventPatientChanged, doc.Patient)
	if doc.Audit != nil {
		s.Emit(EventAudited, *doc.Audit)
	}
	return doc, nil
}

// Audit records a review decision, replacing any earlier one.
func (s *Session) Audit(approved bool, comments string, who document.Auditor) (document.AuditRecord, error) {
	if !s.opts.ReadOnly {
		return document.AuditRecord{}, ErrNotReview
	}

	var d document.Document
	if err := d.SetAudit(approved, comments, who, s.now()); err != nil {
		return document.AuditRecord{}, err
	}

	s.mu.Lock()
	s.audit = d.Audit
	s.mu.Unlock()

	s.log.Info().Bool("approved", approved).Str("auditor", who.Username).Msg("audit recorded")
	s.Emit(EventAudited, *d.Audit)
	return *d.Audit, nil
}

// AuditRecord returns the latest audit decision, if any.
func (s *Session) AuditRecord() (document.AuditRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.audit == nil {
		return document.AuditRecord{}, false
	}
	return *s.audit, true
}

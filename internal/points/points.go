// Package points holds the named landmark points of one open annotation.
package points

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

const (
	// AbsentCoord is the x and y of a point flagged as not present in the image.
	AbsentCoord = -1.0

	// DefaultHitRadius is the canvas-space pick radius in pixels.
	DefaultHitRadius = 10.0
)

// ErrNoSelection is returned by Place when no catalog name is selected.
var ErrNoSelection = errors.New("no landmark selected")

// ErrNotFound is returned for an index or name with no entry.
var ErrNotFound = errors.New("point not found")

// Point is one landmark. When Exists is false, X and Y are both AbsentCoord.
type Point struct {
	Name     string    `json:"name"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Exists   bool      `json:"exists"`
	MarkedAt time.Time `json:"marked_at"`
}

// Pos returns the image-space position.
func (p Point) Pos() geometry.Point2D {
	return geometry.Point2D{X: p.X, Y: p.Y}
}

// Absent returns the entry used for a name that is intentionally not in the image.
func Absent(name string) Point {
	return Point{Name: name, X: AbsentCoord, Y: AbsentCoord}
}

// Store is the ordered list of points, at most one per name. The zero value is empty and usable.
// Store is not safe for concurrent use; the session serializes access.
type Store struct {
	points []Point
}

// NewStore returns a store holding copies of pts.
func NewStore(pts ...Point) *Store {
	s := &Store{}
	s.points = append(s.points, pts...)
	return s
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.points)
}

// Points returns a copy of the entries in store order.
func (s *Store) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// At returns the entry at index i.
func (s *Store) At(i int) (Point, bool) {
	if i < 0 || i >= len(s.points) {
		return Point{}, false
	}
	return s.points[i], true
}

// Find returns the index of the entry named name, or -1.
func (s *Store) Find(name string) int {
	for i := range s.points {
		if s.points[i].Name == name {
			return i
		}
	}
	return -1
}

// Get returns the entry named name.
func (s *Store) Get(name string) (Point, bool) {
	i := s.Find(name)
	if i < 0 {
		return Point{}, false
	}
	return s.points[i], true
}

// Place sets the named point at pos and marks it present. A new name is appended
// with MarkedAt set to now; an existing entry keeps its MarkedAt.
func (s *Store) Place(name string, pos geometry.Point2D, now time.Time) error {
	if name == "" {
		return ErrNoSelection
	}

	if i := s.Find(name); i >= 0 {
		p := &s.points[i]
		p.X, p.Y = pos.X, pos.Y
		p.Exists = true
		if p.MarkedAt.IsZero() {
			p.MarkedAt = now
		}
		return nil
	}

	s.points = append(s.points, Point{Name: name, X: pos.X, Y: pos.Y, Exists: true, MarkedAt: now})
	return nil
}

// Move relocates the entry at index and marks it present.
func (s *Store) Move(index int, pos geometry.Point2D) error {
	if index < 0 || index >= len(s.points) {
		return fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	p := &s.points[index]
	p.X, p.Y = pos.X, pos.Y
	p.Exists = true
	return nil
}

// SetExistence flags the named point present or absent.
//
// Clearing existence overwrites the coordinates with the absent sentinel; the previous
// position is not kept. Setting it on an entry at the sentinel resets it to (0,0) until it
// is placed again. A name with no entry gets one.
func (s *Store) SetExistence(name string, exists bool, now time.Time) error {
	if name == "" {
		return ErrNoSelection
	}

	i := s.Find(name)
	if i < 0 {
		p := Absent(name)
		if exists {
			p = Point{Name: name, Exists: true, MarkedAt: now}
		}
		s.points = append(s.points, p)
		return nil
	}

	p := &s.points[i]
	if !exists {
		p.Exists = false
		p.X, p.Y = AbsentCoord, AbsentCoord
		return nil
	}

	p.Exists = true
	if p.X == AbsentCoord && p.Y == AbsentCoord {
		p.X, p.Y = 0, 0
	}
	return nil
}

// HitTest returns the index of the first present point whose projected position lies
// within radius of query, or -1. project maps image space to canvas space.
func (s *Store) HitTest(query geometry.Point2D, project func(geometry.Point2D) geometry.Point2D, radius float64) int {
	q := []float64{query.X, query.Y}
	for i, p := range s.points {
		if !p.Exists {
			continue
		}
		c := project(p.Pos())
		if floats.Distance(q, []float64{c.X, c.Y}, 2) <= radius {
			return i
		}
	}
	return -1
}

// Snapshot returns an independent copy of the current content.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{points: s.Points()}
}

// Restore replaces the content with the snapshot's.
func (s *Store) Restore(snap Snapshot) {
	s.points = snap.Points()
}

// Replace swaps in a new set of entries wholesale.
func (s *Store) Replace(pts []Point) {
	s.points = make([]Point, len(pts))
	copy(s.points, pts)
}

// Snapshot is an immutable copy of a store's content.
type Snapshot struct {
	points []Point
}

// Points returns a copy of the snapshot's entries.
func (s Snapshot) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Len returns the number of entries in the snapshot.
func (s Snapshot) Len() int {
	return len(s.points)
}

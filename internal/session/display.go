package session

import (
	"fmt"
	"strconv"

	"github.com/xiaomayi-bee/CleftLip/internal/points"
)

// DisplayMode selects how markers are labelled on the canvas.
type DisplayMode int

const (
	DisplayFullName DisplayMode = iota
	DisplayNumber
	DisplayPointOnly
)

var displayModeNames = map[DisplayMode]string{
	DisplayFullName:  "fullName",
	DisplayNumber:    "number",
	DisplayPointOnly: "pointOnly",
}

func (m DisplayMode) String() string {
	if name, ok := displayModeNames[m]; ok {
		return name
	}
	return "DisplayMode(" + strconv.Itoa(int(m)) + ")"
}

// ParseDisplayMode is the inverse of String.
func ParseDisplayMode(s string) (DisplayMode, error) {
	for m, name := range displayModeNames {
		if name == s {
			return m, nil
		}
	}
	return DisplayFullName, fmt.Errorf("unknown display mode %q", s)
}

// DisplayModes lists the modes in menu order.
func DisplayModes() []DisplayMode {
	return []DisplayMode{DisplayFullName, DisplayNumber, DisplayPointOnly}
}

// SetDisplayMode changes the label style.
func (s *Session) SetDisplayMode(m DisplayMode) {
	s.mu.Lock()
	changed := s.displayMode != m
	s.displayMode = m
	s.mu.Unlock()
	if changed {
		s.Emit(EventDisplayModeChanged, m)
	}
}

// DisplayMode returns the label style.
func (s *Session) DisplayMode() DisplayMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayMode
}

// Label returns the marker text for the store entry at index. Numbers follow catalog
// order; a name the catalog does not know falls back to its store position.
func (s *Session) Label(index int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.store.At(index)
	if !ok {
		return ""
	}
	return label(s.displayMode, p, s.opts.Catalog.Index(p.Name), index)
}

func label(m DisplayMode, p points.Point, catalogIndex, storeIndex int) string {
	switch m {
	case DisplayNumber:
		if catalogIndex < 0 {
			catalogIndex = storeIndex
		}
		return "#" + strconv.Itoa(catalogIndex+1)
	case DisplayPointOnly:
		return ""
	default:
		return p.Name
	}
}

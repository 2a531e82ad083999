// Package panels provides the side panels of the main window.
package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/xiaomayi-bee/CleftLip/internal/points"
	"github.com/xiaomayi-bee/CleftLip/internal/session"
)

// row is what one list line shows for a catalog entry.
type row struct {
	index  int
	name   string
	exists bool   // checkbox state
	coords string // "x, y", "absent" or "-" when never placed
}

// rows builds one line per catalog entry from the session's store. A name that was never
// placed shows as present with no coordinates, matching a fresh checkbox.
func rows(s *session.Session) []row {
	byName := make(map[string]points.Point)
	for _, p := range s.Points() {
		byName[p.Name] = p
	}

	cat := s.Catalog()
	out := make([]row, cat.Len())
	for i, name := range cat.Names() {
		r := row{index: i, name: name, exists: true, coords: "-"}
		if p, ok := byName[name]; ok {
			r.exists = p.Exists
			if p.Exists {
				r.coords = fmt.Sprintf("%.1f, %.1f", p.X, p.Y)
			} else {
				r.coords = "absent"
			}
		}
		out[i] = r
	}
	return out
}

// PointsPanel lists the catalog with existence checkboxes and coordinates.
type PointsPanel struct {
	session *session.Session

	list     *widget.List
	summary  *widget.Label
	selected *widget.Label
	content  fyne.CanvasObject

	rows     []row
	syncing  bool // set while the list selection follows the session
	onStatus func(msg string)
}

// NewPointsPanel creates the panel for s. Checkboxes are disabled in review sessions.
func NewPointsPanel(s *session.Session) *PointsPanel {
	pp := &PointsPanel{session: s}
	pp.rows = rows(s)

	pp.summary = widget.NewLabel("")
	pp.selected = widget.NewLabel("Selected: none")

	pp.list = widget.NewList(
		func() int { return len(pp.rows) },
		func() fyne.CanvasObject {
			check := widget.NewCheck("", nil)
			name := widget.NewLabel("")
			coords := widget.NewLabel("")
			return container.NewHBox(check, name, layout.NewSpacer(), coords)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			pp.updateRow(id, obj.(*fyne.Container))
		},
	)
	pp.list.OnSelected = func(id widget.ListItemID) {
		if pp.syncing || id < 0 || id >= len(pp.rows) {
			return
		}
		if err := s.Select(pp.rows[id].name); err != nil {
			pp.status(err.Error())
		}
	}

	s.On(session.EventPointsChanged, func(interface{}) { pp.Refresh() })
	s.On(session.EventSelectionChanged, func(data interface{}) {
		name, _ := data.(string)
		pp.followSelection(name)
	})

	pp.content = container.NewBorder(
		container.NewVBox(widget.NewLabelWithStyle("Landmarks", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), pp.selected),
		pp.summary,
		nil,
		nil,
		pp.list,
	)
	pp.Refresh()
	return pp
}

// Container returns the panel's root object.
func (pp *PointsPanel) Container() fyne.CanvasObject {
	return pp.content
}

// OnStatus sets the callback for messages meant for the status bar.
func (pp *PointsPanel) OnStatus(callback func(msg string)) {
	pp.onStatus = callback
}

func (pp *PointsPanel) status(msg string) {
	if pp.onStatus != nil {
		pp.onStatus(msg)
	}
}

func (pp *PointsPanel) updateRow(id widget.ListItemID, c *fyne.Container) {
	if id < 0 || id >= len(pp.rows) {
		return
	}
	r := pp.rows[id]

	check := c.Objects[0].(*widget.Check)
	check.OnChanged = nil
	check.SetChecked(r.exists)
	if pp.session.ReadOnly() {
		check.Disable()
	} else {
		check.Enable()
		name := r.name
		check.OnChanged = func(on bool) {
			if err := pp.session.SetExistence(name, on); err != nil {
				pp.status(err.Error())
			}
		}
	}

	c.Objects[1].(*widget.Label).SetText(fmt.Sprintf("%d. %s", r.index+1, r.name))
	c.Objects[3].(*widget.Label).SetText(r.coords)
}

// Refresh rebuilds the rows from the session.
func (pp *PointsPanel) Refresh() {
	pp.rows = rows(pp.session)

	marked := 0
	for _, p := range pp.session.Points() {
		if p.Exists {
			marked++
		}
	}
	pp.summary.SetText(fmt.Sprintf("Marked %d of %d", marked, len(pp.rows)))
	pp.list.Refresh()
}

func (pp *PointsPanel) followSelection(name string) {
	pp.syncing = true
	defer func() { pp.syncing = false }()

	if name == "" {
		pp.selected.SetText("Selected: none")
		pp.list.UnselectAll()
		return
	}
	pp.selected.SetText("Selected: " + name)
	if i := pp.session.Catalog().Index(name); i >= 0 {
		pp.list.Select(i)
		pp.list.ScrollTo(i)
	}
}

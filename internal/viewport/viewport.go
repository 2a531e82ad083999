// Package viewport maps between image pixel space and canvas space under fit, zoom and pan.
//
// The image is always centered in the canvas before the offset is applied:
//
//	canvasX = (canvasW - imageW*scale)/2 + offsetX + imageX*scale
//
// so an offset of zero means "centered", independent of scale.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 10.0

	// DefaultZoomIn and DefaultZoomOut are the button zoom factors.
	DefaultZoomIn  = 1.1
	DefaultZoomOut = 0.9
)

// ErrOutOfRange is returned alongside a clamped state when a zoom would leave the scale limits.
// It is informational: the returned state is valid and should be used.
var ErrOutOfRange = errors.New("scale out of range")

// State is the scale and offset pair defining the current image-to-canvas projection.
type State struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// Identity returns the state used when a new image loads or the view is reset.
func Identity() State {
	return State{Scale: 1}
}

func (v State) String() string {
	return fmt.Sprintf("scale=%.4f offset=(%.2f, %.2f)", v.Scale, v.OffsetX, v.OffsetY)
}

// Limits bounds the scale.
type Limits struct {
	MinScale float64
	MaxScale float64
}

// DefaultLimits returns the engine default scale range [0.1, 10].
func DefaultLimits() Limits {
	return Limits{MinScale: DefaultMinScale, MaxScale: DefaultMaxScale}
}

// Clamp limits scale to [MinScale, MaxScale]. The error is ErrOutOfRange when clamping happened.
func (l Limits) Clamp(scale float64) (float64, error) {
	switch {
	case scale < l.MinScale:
		return l.MinScale, fmt.Errorf("%w: %.4f < %.4f", ErrOutOfRange, scale, l.MinScale)
	case scale > l.MaxScale:
		return l.MaxScale, fmt.Errorf("%w: %.4f > %.4f", ErrOutOfRange, scale, l.MaxScale)
	}
	return scale, nil
}

// Transform returns the affine mapping image space to canvas space.
func Transform(v State, canvas, img geometry.Size) geometry.AffineTransform {
	origin := Origin(v, canvas, img)
	return geometry.Translation(origin.X, origin.Y).Compose(geometry.Scale(v.Scale, v.Scale))
}

// Origin returns the canvas position of the image's top-left corner.
func Origin(v State, canvas, img geometry.Size) geometry.Point2D {
	return geometry.Point2D{
		X: (canvas.Width-img.Width*v.Scale)/2 + v.OffsetX,
		Y: (canvas.Height-img.Height*v.Scale)/2 + v.OffsetY,
	}
}

// ImageRect returns the scaled image's bounds in canvas space.
func ImageRect(v State, canvas, img geometry.Size) geometry.Rect {
	o := Origin(v, canvas, img)
	return geometry.NewRect(o.X, o.Y, img.Width*v.Scale, img.Height*v.Scale)
}

// ToCanvas maps an image-space point to canvas space.
func ToCanvas(p geometry.Point2D, v State, canvas, img geometry.Size) geometry.Point2D {
	return Transform(v, canvas, img).Apply(p)
}

// ToImage maps a canvas point back to image space. inside is false when the point falls
// outside [0,W]x[0,H] or the scale is degenerate; the returned point is then only
// meaningful for display.
func ToImage(p geometry.Point2D, v State, canvas, img geometry.Size) (pt geometry.Point2D, inside bool) {
	inv, ok := Transform(v, canvas, img).Inverse()
	if !ok {
		return geometry.Point2D{}, false
	}
	pt = inv.Apply(p)
	inside = pt.X >= 0 && pt.X <= img.Width && pt.Y >= 0 && pt.Y <= img.Height
	return pt, inside
}

// Fit chooses the scale that shows the whole image: by width when the image is wider
// (in aspect) than the canvas, by height otherwise. Offsets are zero because the centering
// term in Transform already centers an image smaller than the canvas.
func Fit(canvas, img geometry.Size, limits Limits) State {
	if canvas.Empty() || img.Empty() {
		return Identity()
	}

	var scale float64
	if img.Aspect() > canvas.Aspect() {
		scale = canvas.Width / img.Width
	} else {
		scale = canvas.Height / img.Height
	}

	floor := math.Min(limits.MinScale, math.Min(canvas.Width/img.Width, canvas.Height/img.Height))
	scale = math.Max(scale, floor)
	scale, _ = limits.Clamp(scale)

	return State{Scale: scale}
}

// ZoomAt multiplies the scale by factor, keeping the image's geometric center fixed in
// canvas space. The scale is clamped to limits; a clamp is reported as ErrOutOfRange.
func ZoomAt(v State, factor float64, canvas, img geometry.Size, limits Limits) (State, error) {
	newScale, err := limits.Clamp(v.Scale * factor)

	center := ImageRect(v, canvas, img).Center()
	newW := img.Width * newScale
	newH := img.Height * newScale

	return State{
		Scale:   newScale,
		OffsetX: center.X - newW/2 - (canvas.Width-newW)/2,
		OffsetY: center.Y - newH/2 - (canvas.Height-newH)/2,
	}, err
}

// Pan moves the offset by the given delta without any bounds check.
func Pan(v State, dx, dy float64) State {
	v.OffsetX += dx
	v.OffsetY += dy
	return v
}

// Constrain keeps the image on screen. An axis where the scaled image is smaller than the
// canvas is centered. Otherwise, with minVisible == 0 the image must cover the canvas on that
// axis; with minVisible > 0 at least minVisible pixels of the image stay inside the canvas.
func Constrain(v State, canvas, img geometry.Size, minVisible float64) State {
	r := ImageRect(v, canvas, img)
	v.OffsetX = constrainAxis(v.OffsetX, r.X, r.Width, canvas.Width, minVisible)
	v.OffsetY = constrainAxis(v.OffsetY, r.Y, r.Height, canvas.Height, minVisible)
	return v
}

func constrainAxis(offset, start, length, extent, minVisible float64) float64 {
	if length < extent {
		return 0
	}

	end := start + length
	if minVisible <= 0 {
		if start > 0 {
			offset -= start
		}
		if end < extent {
			offset += extent - end
		}
		return offset
	}

	if end < minVisible {
		offset += minVisible - end
	}
	if start > extent-minVisible {
		offset -= start - (extent - minVisible)
	}
	return offset
}

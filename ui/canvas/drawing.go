package canvas

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/xiaomayi-bee/CleftLip/internal/config"
	"github.com/xiaomayi-bee/CleftLip/pkg/colorutil"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

// Style is the marker appearance.
type Style struct {
	Point    color.RGBA
	Selected color.RGBA
	Stroke   color.RGBA
	Label    color.RGBA
	Backdrop color.RGBA
	Radius   float64 // marker radius in canvas units
	Face     font.Face
}

// DefaultStyle returns the built-in palette with the Go Regular face.
func DefaultStyle() Style {
	cfg := config.Defaults(config.ProfileAuthoring)
	s, _ := StyleFromConfig(cfg.Render, cfg.Points)
	return s
}

// StyleFromConfig builds a style from settings. A label font that cannot be read or
// parsed is reported and the Go Regular face is used instead; Latin labels still render
// but CJK names need a font that covers them.
func StyleFromConfig(r config.RenderConfig, p config.PointsConfig) (Style, error) {
	s := Style{
		Point:    colorutil.HexOr(r.PointColor, colorutil.Point),
		Selected: colorutil.HexOr(r.SelectedColor, colorutil.Selected),
		Stroke:   colorutil.HexOr(r.StrokeColor, colorutil.White),
		Label:    colorutil.HexOr(r.LabelColor, colorutil.Black),
		Backdrop: colorutil.Backdrop,
		Radius:   p.MarkerRadius,
	}
	if s.Radius <= 0 {
		s.Radius = 6
	}

	size := r.LabelSize
	if size <= 0 {
		size = 12
	}

	var err error
	if r.LabelFont != "" {
		s.Face, err = loadFace(r.LabelFont, size)
	}
	if s.Face == nil {
		s.Face = defaultFace(size)
	}
	return s, err
}

func loadFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label font: %w", err)
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse label font %s: %w", path, err)
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

func defaultFace(size float64) font.Face {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// Marker is one landmark to draw, already projected to canvas pixels.
type Marker struct {
	Pos      geometry.Point2D
	Label    string
	Selected bool
}

// Scene is everything one frame draws.
type Scene struct {
	Photo     image.Image
	Transform geometry.AffineTransform // photo pixels to output pixels
	Markers   []Marker
	Scale     float32 // output pixels per canvas unit
}

// Render draws a scene into dst.
func Render(dst *image.RGBA, sc Scene, st Style) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(st.Backdrop), image.Point{}, draw.Src)

	if sc.Photo != nil {
		draw.ApproxBiLinear.Transform(dst, sc.Transform.Aff3(), sc.Photo, sc.Photo.Bounds(), draw.Over, nil)
	}

	scale := float64(sc.Scale)
	if scale <= 0 {
		scale = 1
	}
	r := st.Radius * scale

	// Selected markers go last so they sit on top.
	for _, selectedPass := range []bool{false, true} {
		for _, m := range sc.Markers {
			if m.Selected != selectedPass {
				continue
			}
			fill := st.Point
			if m.Selected {
				fillCircle(dst, m.Pos, r+4*scale, colorutil.WithAlpha(st.Selected, 0x50))
				fill = st.Selected
			}
			fillCircle(dst, m.Pos, r, st.Stroke)
			fillCircle(dst, m.Pos, r-1.5*scale, fill)
			if m.Label != "" {
				drawLabel(dst, st.Face, m.Label, m.Pos.X+r+3*scale, m.Pos.Y-r, st.Label)
			}
		}
	}
}

// fillCircle blends a disc of radius r centered at c.
func fillCircle(dst *image.RGBA, c geometry.Point2D, r float64, col color.RGBA) {
	if r <= 0 {
		return
	}
	b := dst.Bounds()
	minX := max(int(math.Floor(c.X-r)), b.Min.X)
	maxX := min(int(math.Ceil(c.X+r)), b.Max.X-1)
	minY := max(int(math.Floor(c.Y-r)), b.Min.Y)
	maxY := min(int(math.Ceil(c.Y+r)), b.Max.Y-1)

	src := image.NewUniform(col)
	r2 := r * r
	for y := minY; y <= maxY; y++ {
		dy := float64(y) + 0.5 - c.Y
		for x := minX; x <= maxX; x++ {
			dx := float64(x) + 0.5 - c.X
			if dx*dx+dy*dy <= r2 {
				draw.Draw(dst, image.Rect(x, y, x+1, y+1), src, image.Point{}, draw.Over)
			}
		}
	}
}

// drawLabel writes text with its top-left corner near (x, y) over a translucent plate.
func drawLabel(dst *image.RGBA, face font.Face, text string, x, y float64, col color.RGBA) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	width := d.MeasureString(text).Ceil()
	m := face.Metrics()
	ascent, height := m.Ascent.Ceil(), m.Height.Ceil()

	plate := image.Rect(int(x)-2, int(y)-1, int(x)+width+2, int(y)+height+1)
	draw.Draw(dst, plate, image.NewUniform(colorutil.WithAlpha(colorutil.White, 0xb0)), image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{X: fixed.I(int(x)), Y: fixed.I(int(y) + ascent)}
	d.DrawString(text)
}

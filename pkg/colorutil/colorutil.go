// Package colorutil provides the marker palette and color parsing shared by the renderers.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Marker colors used by both window modes.
var (
	Black    = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Point    = color.RGBA{R: 0x34, G: 0x98, B: 0xdb, A: 255} // unselected marker fill
	Selected = color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 255} // selected marker fill and halo
	Backdrop = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 255} // canvas area outside the photo
)

// ParseHex parses "#rgb", "#rrggbb" or "#rrggbbaa". The leading # is optional.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// HexOr parses s, returning fallback when it is not a valid color.
func HexOr(s string, fallback color.RGBA) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		return fallback
	}
	return c
}

// Hex formats c as "#rrggbb", dropping alpha.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// WithAlpha returns c with its alpha replaced and its channels premultiplied, as
// image/color expects for RGBA.
func WithAlpha(c color.RGBA, alpha uint8) color.RGBA {
	mul := func(v uint8) uint8 { return uint8(uint16(v) * uint16(alpha) / 255) }
	return color.RGBA{R: mul(c.R), G: mul(c.G), B: mul(c.B), A: alpha}
}

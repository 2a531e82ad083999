package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/xiaomayi-bee/CleftLip/pkg/colorutil"
)

// Theme follows the marker colors so list selection matches the canvas.
type Theme struct{}

var _ fyne.Theme = (*Theme)(nil)

// NewTheme returns the application theme.
func NewTheme() *Theme { return &Theme{} }

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return colorutil.Point
	case theme.ColorNameSelection:
		return colorutil.WithAlpha(colorutil.Selected, 0x60)
	case theme.ColorNameFocus:
		return colorutil.WithAlpha(colorutil.Point, 0x80)
	case theme.ColorNameScrollBar:
		return color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 14
	case theme.SizeNameScrollBarSmall:
		return 10
	default:
		return theme.DefaultTheme().Size(name)
	}
}

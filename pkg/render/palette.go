package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/vg/draw"
)

// GroupPalette colours predicted groups by label
var GroupPalette = []string{
	"#38761d", "#01579b", "#fb8c00", "#e77865", "#cbeaad", "#6180c3", "#69de4b", "#c72792", "#6d2827",
	"#1e2157", "#58C0CF", "#167C54", "#B76E09", "#265A98", "#AE45ED", "#98900B", "#85D54B",
}

// DistinctColors colour the prediction marker overlay
var DistinctColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4", "#46f0f0", "#f032e6",
	"#bcf60c", "#fabebe", "#008080", "#e6beff", "#9a6324", "#fffac8", "#800000", "#aaffc3",
	"#808000", "#ffd8b1", "#000075", "#808080", "#ffffff", "#000000",
}

// DistinctGlyphs are the marker shapes of the prediction overlay
var DistinctGlyphs = []draw.GlyphDrawer{
	draw.PyramidGlyph{},
	draw.TriangleGlyph{},
	draw.SquareGlyph{},
	draw.BoxGlyph{},
	draw.CrossGlyph{},
	draw.PlusGlyph{},
	draw.RingGlyph{},
	draw.CircleGlyph{},
}

// ParseColor parses #rgb, #rrggbb, #rrggbbaa or an SVG colour name
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		if c, ok := colornames.Map[strings.ToLower(s)]; ok {
			return color.NRGBA{c.R, c.G, c.B, c.A}, nil
		}
		return color.NRGBA{}, fmt.Errorf("unknown colour %q", s)
	}

	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// paletteColor returns entry i of palette, wrapping around
func paletteColor(palette []string, i int) string {
	n := len(palette)
	return palette[((i%n)+n)%n]
}

func withAlpha(c color.Color, a float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(a*255 + 0.5)
	return n
}

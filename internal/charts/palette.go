package charts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

var hexColor = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// Palette is an ordered list of colours, cycled by index
type Palette struct {
	colors []drawing.Color
}

// NewPalette parses "#RRGGBB" entries
func NewPalette(hex []string) (Palette, error) {
	if len(hex) == 0 {
		return Palette{}, fmt.Errorf("palette must contain at least one colour")
	}
	colors := make([]drawing.Color, len(hex))
	for i, h := range hex {
		if !hexColor.MatchString(h) {
			return Palette{}, fmt.Errorf("invalid palette colour %q", h)
		}
		colors[i] = drawing.ColorFromHex(strings.TrimPrefix(h, "#"))
	}
	return Palette{colors: colors}, nil
}

// At returns the colour for category i, wrapping around the palette
func (p Palette) At(i int) drawing.Color {
	if len(p.colors) == 0 {
		return drawing.ColorBlack
	}
	if i < 0 {
		i = -i
	}
	return p.colors[i%len(p.colors)]
}

package placement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Align is a field's horizontal text alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Field is one data-bound mark on a document template. Geometry is in
// editor space: position relative to the previewed page's top-left with Y
// growing downward, rotation in degrees with clockwise positive.
//
// Page is assigned by the placement gesture and never changes afterwards;
// every other attribute stays mutable until the layout is finalized.
type Field struct {
	ID     string `yaml:"id"`
	Column string `yaml:"column"`
	AsQR   bool   `yaml:"qr,omitempty"`
	Page   int    `yaml:"page"`

	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	ScaleX   float64 `yaml:"scaleX"`
	ScaleY   float64 `yaml:"scaleY"`
	Rotation float64 `yaml:"rotation,omitempty"`

	FontSize   float64 `yaml:"fontSize"`
	Color      string  `yaml:"color"`
	FontFamily string  `yaml:"fontFamily"`
	Align      Align   `yaml:"align"`
	Bold       bool    `yaml:"bold,omitempty"`
	Italic     bool    `yaml:"italic,omitempty"`
}

// Style defaults applied by the placement gesture.
const (
	DefaultFontSize   = 16.0
	DefaultColor      = "#000000"
	DefaultFontFamily = "Helvetica"
	DefaultQRSize     = 64.0
)

// NewField creates a field at the gesture point with default style. The id
// is generated once and survives all later edits.
func NewField(column string, page int, x, y float64) Field {
	return Field{
		ID:         uuid.NewString(),
		Column:     column,
		Page:       page,
		X:          x,
		Y:          y,
		ScaleX:     1,
		ScaleY:     1,
		FontSize:   DefaultFontSize,
		Color:      DefaultColor,
		FontFamily: DefaultFontFamily,
		Align:      AlignLeft,
	}
}

// NewQRField creates a field rendered as a scannable code.
func NewQRField(column string, page int, x, y float64) Field {
	f := NewField(column, page, x, y)
	f.AsQR = true
	f.Width = DefaultQRSize
	f.Height = DefaultQRSize
	return f
}

// RGB is a color with components in [0, 1].
type RGB struct{ R, G, B float64 }

// ParseHexColor parses "#RRGGBB" or "#RGB" (leading '#' optional).
func ParseHexColor(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return RGB{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

package fonts

import (
	"fmt"
	"math"
	"strings"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Font is a loaded typeface with the metrics batch synthesis needs: ascent
// for baseline placement and per-glyph widths for embedding and alignment.
// Metric values are in thousandths of an em.
type Font struct {
	Family string
	Data   []byte // raw font program, nil for builtin base fonts

	Ascent      float64
	Descent     float64
	ItalicAngle float64
	BBox        [4]float64
	UnitsPerEm  int

	sf  *sfnt.Font
	buf sfnt.Buffer
}

// Parse loads a TrueType/OpenType font program and extracts metrics.
func Parse(family string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("font data for %q is empty", family)
	}
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", family, err)
	}
	unitsPerEm := sf.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, fmt.Errorf("font %q has invalid unitsPerEm", family)
	}
	var buf sfnt.Buffer
	ppem := fixed.Int26_6(unitsPerEm << 6)

	name := strings.TrimSpace(family)
	if ps, _ := sf.Name(&buf, sfnt.NameIDPostScript); len(ps) > 0 {
		name = ps
	}

	metrics, err := sf.Metrics(&buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("font %q metrics: %w", family, err)
	}
	bounds, _ := sf.Bounds(&buf, ppem, xfont.HintingNone)

	f := &Font{
		Family:     name,
		Data:       data,
		Ascent:     scaleFixed(metrics.Ascent, unitsPerEm),
		Descent:    scaleFixed(metrics.Descent, unitsPerEm),
		UnitsPerEm: int(unitsPerEm),
		BBox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			scaleFixed(bounds.Min.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			scaleFixed(bounds.Max.Y, unitsPerEm),
		},
		sf: sf,
	}
	if post := sf.PostTable(); post != nil {
		f.ItalicAngle = post.ItalicAngle
	}
	return f, nil
}

// AscentAt reports the ascent in points at the given size.
func (f *Font) AscentAt(size float64) float64 { return f.Ascent / 1000 * size }

// Builtin reports whether the font has no embeddable program and relies on
// the viewer's base fonts.
func (f *Font) Builtin() bool { return len(f.Data) == 0 }

// GlyphIndex maps a rune to its glyph id, 0 when unmapped.
func (f *Font) GlyphIndex(r rune) int {
	if f.sf == nil {
		return 0
	}
	gid, err := f.sf.GlyphIndex(&f.buf, r)
	if err != nil {
		return 0
	}
	return int(gid)
}

// GlyphWidths returns advance widths (thousandths of an em) keyed by glyph
// id for every glyph in the font.
func (f *Font) GlyphWidths() map[int]int {
	if f.sf == nil {
		return nil
	}
	count := f.sf.NumGlyphs()
	ppem := fixed.Int26_6(f.UnitsPerEm << 6)
	widths := make(map[int]int, count)
	for i := 0; i < count; i++ {
		adv, err := f.sf.GlyphAdvance(&f.buf, sfnt.GlyphIndex(i), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		widths[i] = int(math.Round(scaleFixed(adv, sfnt.Units(f.UnitsPerEm))))
	}
	return widths
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}

// ResolveFamily applies bold/italic style to a base family name using the
// standard PostScript suffix convention.
func ResolveFamily(family string, bold, italic bool) string {
	if family == "" {
		family = "Helvetica"
	}
	base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(family, "-BoldOblique"), "-Bold"), "-Oblique")
	switch {
	case bold && italic:
		return base + "-BoldOblique"
	case bold:
		return base + "-Bold"
	case italic:
		return base + "-Oblique"
	default:
		return base
	}
}

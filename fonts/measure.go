package fonts

import (
	"bytes"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// MeasureString returns the advance width of text at the given size in
// points. Fonts with an embeddable program are shaped with harfbuzz so
// kerning and ligatures are reflected; builtin base fonts fall back to a
// half-em-per-rune estimate, which is what alignment offsets tolerate.
func MeasureString(f *Font, text string, size float64) float64 {
	if f == nil || len(f.Data) == 0 {
		return float64(len([]rune(text))) * size * 0.5
	}
	face, err := gofont.ParseTTF(bytes.NewReader(f.Data))
	if err != nil {
		return float64(len([]rune(text))) * size * 0.5
	}
	runes := []rune(text)
	shaper := &shaping.HarfbuzzShaper{}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      face,
		// 1000 em units in 26.6 fixed point, so advances come back in
		// thousandths of an em.
		Size:     fixed.Int26_6(1000 * 64),
		Script:   language.Latin,
		Language: language.DefaultLanguage(),
	}
	output := shaper.Shape(input)
	var width float64
	for _, g := range output.Glyphs {
		width += float64(g.XAdvance) / 64.0
	}
	return width / 1000 * size
}

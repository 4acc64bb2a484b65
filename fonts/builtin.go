package fonts

import "strings"

// Approximate metrics for the viewer-provided base fonts, in thousandths of
// an em. Enough for baseline placement when no font file is configured for a
// family; real files always win when available.
var builtinMetrics = map[string]struct{ ascent, descent float64 }{
	"Helvetica":             {718, -207},
	"Helvetica-Bold":        {718, -207},
	"Helvetica-Oblique":     {718, -207},
	"Helvetica-BoldOblique": {718, -207},
	"Times-Roman":           {683, -217},
	"Times-Bold":            {683, -217},
	"Times-Italic":          {683, -217},
	"Times-BoldItalic":      {683, -217},
	"Courier":               {629, -157},
	"Courier-Bold":          {629, -157},
	"Courier-Oblique":       {629, -157},
	"Courier-BoldOblique":   {629, -157},
}

// Builtin returns the base-font stand-in for a family name, or nil when the
// family is not one of the standard fonts.
func Builtin(family string) *Font {
	m, ok := builtinMetrics[family]
	if !ok {
		// Aliases seen in layouts exported by other tools.
		switch strings.ToLower(family) {
		case "helvetica", "arial", "sans-serif", "":
			return Builtin("Helvetica")
		case "times", "times new roman", "serif":
			return Builtin("Times-Roman")
		case "courier new", "monospace":
			return Builtin("Courier")
		}
		return nil
	}
	return &Font{Family: family, Ascent: m.ascent, Descent: m.descent, BBox: [4]float64{-166, -225, 1000, 931}, UnitsPerEm: 1000}
}

package pdf

import (
	"sort"
	"unicode/utf8"

	"github.com/ocarinaa/formweaver/fonts"
)

// EmbeddedFont is a font resolved into this document instance. Embedding is
// per-instance because the font object graph belongs to one file; the
// underlying font bytes come from the process-wide cache.
type EmbeddedFont struct {
	family string
	font   *fonts.Font

	// set lazily at serialization for embedded (non-builtin) fonts
	dictRef Ref
	built   bool
}

// EmbedFont attaches a loaded font to this instance and returns the handle
// drawing operations take. Calling it twice for the same family returns the
// same handle.
func (d *Document) EmbedFont(f *fonts.Font) (*EmbeddedFont, error) {
	for _, ef := range d.embedded {
		if ef.family == f.Family {
			return ef, nil
		}
	}
	ef := &EmbeddedFont{family: f.Family, font: f}
	d.embedded = append(d.embedded, ef)
	return ef, nil
}

// AscentAt reports the font's ascent in points at the given size.
func (ef *EmbeddedFont) AscentAt(size float64) float64 { return ef.font.AscentAt(size) }

// Family is the resolved family name.
func (ef *EmbeddedFont) Family() string { return ef.family }

// encode maps text to the byte form the font's PDF encoding expects:
// two-byte glyph ids for embedded Identity-H fonts, Latin-1 for builtins.
func (ef *EmbeddedFont) encode(text string) String {
	if ef.font.Builtin() {
		out := make([]byte, 0, len(text))
		for _, r := range text {
			if r < 256 {
				out = append(out, byte(r))
			} else {
				out = append(out, '?')
			}
		}
		return String(out)
	}
	out := make([]byte, 0, utf8.RuneCountInString(text)*2)
	for _, r := range text {
		gid := ef.font.GlyphIndex(r)
		out = append(out, byte(gid>>8), byte(gid))
	}
	return String(out)
}

// buildObjects materializes the font's object graph: a Type1 base font dict
// for builtins, or a Type0 Identity-H composite with an embedded FontFile2
// for loaded TrueType programs. Returns the top-level font dict reference.
func (ef *EmbeddedFont) buildObjects(d *Document) Ref {
	if ef.built {
		return ef.dictRef
	}
	ef.built = true

	if ef.font.Builtin() {
		num := d.allocNum()
		d.newObjs[num] = Dict{
			"Type":     Name("Font"),
			"Subtype":  Name("Type1"),
			"BaseFont": Name(ef.family),
			"Encoding": Name("WinAnsiEncoding"),
		}
		ef.dictRef = Ref{Num: num}
		return ef.dictRef
	}

	fileNum := d.allocNum()
	d.newObjs[fileNum] = &Stream{
		Dict: Dict{
			"Filter":  Name("FlateDecode"),
			"Length1": Integer(len(ef.font.Data)),
		},
		Data: flateCompress(ef.font.Data),
	}

	descNum := d.allocNum()
	d.newObjs[descNum] = Dict{
		"Type":        Name("FontDescriptor"),
		"FontName":    Name(ef.family),
		"Flags":       Integer(4),
		"ItalicAngle": Real(ef.font.ItalicAngle),
		"Ascent":      Real(ef.font.Ascent),
		"Descent":     Real(ef.font.Descent),
		"CapHeight":   Real(ef.font.Ascent),
		"StemV":       Integer(80),
		"FontBBox": Array{
			Real(ef.font.BBox[0]), Real(ef.font.BBox[1]),
			Real(ef.font.BBox[2]), Real(ef.font.BBox[3]),
		},
		"FontFile2": Ref{Num: fileNum},
	}

	widths := ef.font.GlyphWidths()
	gids := make([]int, 0, len(widths))
	for gid := range widths {
		gids = append(gids, gid)
	}
	sort.Ints(gids)
	wArr := make(Array, 0, len(gids)*2)
	for _, gid := range gids {
		wArr = append(wArr, Integer(gid), Array{Integer(widths[gid])})
	}

	cidNum := d.allocNum()
	d.newObjs[cidNum] = Dict{
		"Type":     Name("Font"),
		"Subtype":  Name("CIDFontType2"),
		"BaseFont": Name(ef.family),
		"CIDSystemInfo": Dict{
			"Registry":   String("Adobe"),
			"Ordering":   String("Identity"),
			"Supplement": Integer(0),
		},
		"FontDescriptor": Ref{Num: descNum},
		"DW":             Integer(1000),
		"W":              wArr,
		"CIDToGIDMap":    Name("Identity"),
	}

	topNum := d.allocNum()
	d.newObjs[topNum] = Dict{
		"Type":            Name("Font"),
		"Subtype":         Name("Type0"),
		"BaseFont":        Name(ef.family),
		"Encoding":        Name("Identity-H"),
		"DescendantFonts": Array{Ref{Num: cidNum}},
	}
	ef.dictRef = Ref{Num: topNum}
	return ef.dictRef
}

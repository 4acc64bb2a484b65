package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/ocarinaa/formweaver/coords"
)

// RGB is a fill color with components in [0, 1].
type RGB struct{ R, G, B float64 }

// Page is one page of an open document instance. Drawing appends operations
// that become an extra content stream at serialization time; the original
// page content is never rewritten.
type Page struct {
	doc  *Document
	num  int // 1-based
	ref  Ref
	dict Dict
	inh  inherited

	content   bytes.Buffer
	fontRes   map[string]Name // font resource name by family
	imageObjs []Ref
	imageRes  []Name
}

// Number reports the page's 1-based position.
func (p *Page) Number() int { return p.num }

// NativeSize is the page's point-space width and height from the effective
// MediaBox.
func (p *Page) NativeSize() coords.Size {
	mb := p.inh.mediaBox
	if own, ok := p.doc.resolve(p.dict["MediaBox"]).(Array); ok {
		mb = own
	}
	if len(mb) < 4 {
		// US Letter, the conventional default when a box is absent.
		return coords.Size{Width: 612, Height: 792}
	}
	var vals [4]float64
	for i := 0; i < 4; i++ {
		v, _ := numeric(p.doc.resolve(mb[i]))
		vals[i] = v
	}
	return coords.Size{Width: math.Abs(vals[2] - vals[0]), Height: math.Abs(vals[3] - vals[1])}
}

// DrawText places a single line at the given baseline origin, in native
// coordinates, rotated counter-clockwise by rotationDeg around that origin.
func (p *Page) DrawText(text string, x, y float64, font *EmbeddedFont, size float64, color RGB, rotationDeg float64) error {
	if font == nil {
		return fmt.Errorf("page %d: nil font", p.num)
	}
	if size <= 0 {
		return fmt.Errorf("page %d: non-positive font size %v", p.num, size)
	}
	resName := p.fontResource(font)
	m := coords.Rotate(rotationDeg * math.Pi / 180).Multiply(coords.Translate(x, y))

	b := &p.content
	b.WriteString("q\nBT\n")
	fmt.Fprintf(b, "/%s %s Tf\n", resName, formatFloat(size))
	fmt.Fprintf(b, "%s %s %s rg\n", formatFloat(color.R), formatFloat(color.G), formatFloat(color.B))
	writeMatrix(b, m, "Tm")
	writeString(b, font.encode(text))
	b.WriteString(" Tj\nET\nQ\n")
	return nil
}

// DrawImage decodes PNG or JPEG bytes and places the picture with its lower
// left corner at (x, y), stretched to w by h points.
func (p *Page) DrawImage(data []byte, x, y, w, h float64) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("page %d: decode image: %w", p.num, err)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("page %d: image size %vx%v invalid", p.num, w, h)
	}
	ref := p.doc.addImageXObject(img)
	name := Name(fmt.Sprintf("IMW%d", len(p.imageObjs)+1))
	p.imageObjs = append(p.imageObjs, ref)
	p.imageRes = append(p.imageRes, name)

	b := &p.content
	b.WriteString("q\n")
	writeMatrix(b, coords.Scale(w, h).Multiply(coords.Translate(x, y)), "cm")
	fmt.Fprintf(b, "/%s Do\nQ\n", name)
	return nil
}

// writeMatrix emits a transform followed by its content stream operator.
func writeMatrix(b *bytes.Buffer, m coords.Matrix, op string) {
	fmt.Fprintf(b, "%s %s %s %s %s %s %s\n",
		formatFloat(m[0]), formatFloat(m[1]), formatFloat(m[2]),
		formatFloat(m[3]), formatFloat(m[4]), formatFloat(m[5]), op)
}

func (p *Page) fontResource(font *EmbeddedFont) Name {
	if p.fontRes == nil {
		p.fontRes = make(map[string]Name)
	}
	if name, ok := p.fontRes[font.family]; ok {
		return name
	}
	name := Name(fmt.Sprintf("FW%d", len(p.fontRes)+1))
	p.fontRes[font.family] = name
	return name
}

// dirty reports whether serialization must rewrite this page.
func (p *Page) dirty() bool { return p.content.Len() > 0 }

// addImageXObject registers an RGB image XObject and returns its reference.
func (d *Document) addImageXObject(img image.Image) Ref {
	bounds := img.Bounds()
	rgba, ok := img.(*image.NRGBA)
	if !ok {
		converted := image.NewNRGBA(bounds)
		draw.Draw(converted, bounds, img, bounds.Min, draw.Src)
		rgba = converted
	}
	w, h := bounds.Dx(), bounds.Dy()
	rgb := make([]byte, 0, w*h*3)
	for yy := 0; yy < h; yy++ {
		row := rgba.Pix[yy*rgba.Stride : yy*rgba.Stride+w*4]
		for xx := 0; xx < w*4; xx += 4 {
			rgb = append(rgb, row[xx], row[xx+1], row[xx+2])
		}
	}
	num := d.allocNum()
	d.newObjs[num] = &Stream{
		Dict: Dict{
			"Type":             Name("XObject"),
			"Subtype":          Name("Image"),
			"Width":            Integer(w),
			"Height":           Integer(h),
			"ColorSpace":       Name("DeviceRGB"),
			"BitsPerComponent": Integer(8),
			"Filter":           Name("FlateDecode"),
		},
		Data: flateCompress(rgb),
	}
	return Ref{Num: num}
}

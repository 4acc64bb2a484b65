package cli

import (
	"fmt"

	"github.com/ocarinaa/formweaver/coords"
	"github.com/ocarinaa/formweaver/fonts"
	"github.com/ocarinaa/formweaver/pdf"
	"github.com/ocarinaa/formweaver/placement"
	"github.com/ocarinaa/formweaver/synth"
)

// pdfOpener adapts the pdf package to the synthesis engine's contracts.
type pdfOpener struct{}

func (pdfOpener) Open(template []byte) (synth.Instance, error) {
	doc, err := pdf.Open(template)
	if err != nil {
		return nil, err
	}
	return pdfInstance{doc}, nil
}

type pdfInstance struct{ doc *pdf.Document }

func (i pdfInstance) PageCount() int { return i.doc.PageCount() }

func (i pdfInstance) Page(n int) (synth.PageWriter, error) {
	p, err := i.doc.Page(n)
	if err != nil {
		return nil, err
	}
	return pdfPage{p}, nil
}

func (i pdfInstance) EmbedFont(f *fonts.Font) (synth.FontHandle, error) {
	return i.doc.EmbedFont(f)
}

func (i pdfInstance) Serialize() ([]byte, error) { return i.doc.Serialize() }

type pdfPage struct{ p *pdf.Page }

func (p pdfPage) NativeSize() coords.Size { return p.p.NativeSize() }

func (p pdfPage) DrawText(text string, x, y float64, font synth.FontHandle, size float64, color placement.RGB, rotationDeg float64) error {
	ef, ok := font.(*pdf.EmbeddedFont)
	if !ok {
		return fmt.Errorf("font handle %T does not belong to this writer", font)
	}
	return p.p.DrawText(text, x, y, ef, size, pdf.RGB{R: color.R, G: color.G, B: color.B}, rotationDeg)
}

func (p pdfPage) DrawImage(img []byte, x, y, w, h float64) error {
	return p.p.DrawImage(img, x, y, w, h)
}

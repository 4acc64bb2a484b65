// Package synth runs batch document synthesis: one output document per
// dataset row, every placed field resolved against that row and drawn onto
// a fresh instance of the template.
package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ocarinaa/formweaver/coords"
	"github.com/ocarinaa/formweaver/dataset"
	"github.com/ocarinaa/formweaver/fonts"
	"github.com/ocarinaa/formweaver/observability"
	"github.com/ocarinaa/formweaver/placement"
	"github.com/ocarinaa/formweaver/recovery"
)

// Instance is one writable copy of the template. Every row gets its own
// instance so a failed row can never leak marks into the next document.
type Instance interface {
	PageCount() int
	Page(n int) (PageWriter, error)
	EmbedFont(f *fonts.Font) (FontHandle, error)
	Serialize() ([]byte, error)
}

// Opener creates instances from pristine template bytes.
type Opener interface {
	Open(template []byte) (Instance, error)
}

// FontHandle is a font attached to one instance, usable in draw calls.
type FontHandle interface {
	AscentAt(size float64) float64
}

// PageWriter draws onto a single page in native point coordinates.
type PageWriter interface {
	NativeSize() coords.Size
	DrawText(text string, x, y float64, font FontHandle, size float64, color placement.RGB, rotationDeg float64) error
	DrawImage(img []byte, x, y, w, h float64) error
}

// CodeRenderer turns a cell value into a PNG code image.
type CodeRenderer interface {
	Render(value string, sizePx int) ([]byte, error)
}

// Sink receives finished documents in order.
type Sink interface {
	Add(doc []byte) (string, error)
}

// Request is one batch: a template, the finalized layout, and the rows.
type Request struct {
	Template []byte
	Layout   placement.Layout
	Table    dataset.Table
}

// Result summarizes a finished batch.
type Result struct {
	Produced      int
	RowsSkipped   []int // 0-based indexes of rows that yielded no document
	FieldsSkipped int
}

// Engine synthesizes documents sequentially. Rows are independent; the
// engine itself holds no per-batch state, so one engine can serve many
// requests in turn.
type Engine struct {
	Opener   Opener
	Fonts    *fonts.Cache
	Codes    CodeRenderer
	Strategy recovery.Strategy
	Log      observability.Logger
	Options  coords.Options
}

var errNoFields = errors.New("layout has no fields placed")

// Run executes the batch. Field-level failures (bad page, missing preview
// size, unloadable font) and row-level failures (unreadable template copy,
// serialization) are routed through the recovery strategy; only sink errors
// and ActionFail abort the batch.
func (e *Engine) Run(ctx context.Context, req Request, out Sink) (Result, error) {
	log := e.Log
	if log == nil {
		log = observability.NopLogger{}
	}
	strategy := e.Strategy
	if strategy == nil {
		strategy = recovery.NewLenientStrategy()
	}
	if len(req.Layout.Fields) == 0 {
		return Result{}, errNoFields
	}

	var res Result
	for i, row := range req.Table.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rowLog := log.With(observability.Int("row", i))
		start := time.Now()

		doc, skipped, err := e.renderRow(req, i, row, rowLog, strategy)
		res.FieldsSkipped += skipped
		rowLog.Debug("row rendered",
			observability.Float64(observability.MetricRowDuration, time.Since(start).Seconds()))
		if err != nil {
			if strategy.OnError(err, recovery.Location{Row: i, Component: "row"}) == recovery.ActionFail {
				return res, fmt.Errorf("row %d: %w", i, err)
			}
			rowLog.Warn("row skipped", observability.Error("cause", err))
			res.RowsSkipped = append(res.RowsSkipped, i)
			continue
		}
		name, err := out.Add(doc)
		if err != nil {
			return res, fmt.Errorf("row %d: %w", i, err)
		}
		res.Produced++
		rowLog.Debug("document produced", observability.String("name", name))
	}
	log.Info("batch finished",
		observability.Int(observability.MetricRowsTotal, len(req.Table.Rows)),
		observability.Int(observability.MetricRowsProduced, res.Produced),
		observability.Int(observability.MetricFieldsSkipped, res.FieldsSkipped))
	return res, nil
}

// renderRow builds one document. A nil error with a skipped count means the
// document is usable even though some fields were dropped.
func (e *Engine) renderRow(req Request, rowIdx int, row dataset.Row, log observability.Logger, strategy recovery.Strategy) ([]byte, int, error) {
	inst, err := e.Opener.Open(req.Template)
	if err != nil {
		return nil, 0, fmt.Errorf("open template copy: %w", err)
	}

	skipped := 0
	for _, field := range req.Layout.Fields {
		value, ok := row.Value(field.Column)
		if !ok {
			// Empty cells are normal; the field just doesn't appear.
			continue
		}
		if err := e.renderField(inst, req.Layout, field, value); err != nil {
			loc := recovery.Location{Row: rowIdx, FieldID: field.ID, Component: "field"}
			switch strategy.OnError(err, loc) {
			case recovery.ActionFail:
				return nil, skipped, err
			case recovery.ActionWarn:
				log.Warn("field skipped",
					observability.String("field", field.ID),
					observability.String("column", field.Column),
					observability.Error("cause", err))
			case recovery.ActionSkip:
				// Dropped without noise; the batch summary still counts it.
			}
			skipped++
			continue
		}
	}

	doc, err := inst.Serialize()
	if err != nil {
		return nil, skipped, fmt.Errorf("serialize: %w", err)
	}
	return doc, skipped, nil
}

func (e *Engine) renderField(inst Instance, layout placement.Layout, field placement.Field, value string) error {
	if field.Page < 1 || field.Page > inst.PageCount() {
		return fmt.Errorf("page %d out of range 1..%d", field.Page, inst.PageCount())
	}
	preview, ok := layout.PreviewSize(field.Page)
	if !ok {
		return fmt.Errorf("no preview size recorded for page %d", field.Page)
	}
	page, err := inst.Page(field.Page)
	if err != nil {
		return err
	}
	native := page.NativeSize()

	if field.AsQR {
		return e.renderCode(page, field, value, preview, native)
	}

	family := fonts.ResolveFamily(field.FontFamily, field.Bold, field.Italic)
	font, err := e.Fonts.Resolve(family)
	if err != nil {
		return fmt.Errorf("font %q: %w", family, err)
	}
	color, err := placement.ParseHexColor(field.Color)
	if err != nil {
		return err
	}

	g := coords.EditorGeometry{X: field.X, Y: field.Y, ScaleX: field.ScaleX, FontSize: field.FontSize}
	ng := coords.ToNative(g, field.Rotation, preview, native, font.AscentAt, e.Options)

	x := ng.X
	switch field.Align {
	case placement.AlignCenter:
		x -= fonts.MeasureString(font, value, ng.FontSize) / 2
	case placement.AlignRight:
		x -= fonts.MeasureString(font, value, ng.FontSize)
	}

	handle, err := inst.EmbedFont(font)
	if err != nil {
		return fmt.Errorf("embed %q: %w", family, err)
	}
	return page.DrawText(value, x, ng.Y, handle, ng.FontSize, color, ng.Rotation)
}

// renderCode draws the value as a scannable code. The stored width and
// height are used as-is in point space; only the anchor point is mapped
// from editor to native coordinates.
func (e *Engine) renderCode(page PageWriter, field placement.Field, value string, preview, native coords.Size) error {
	if e.Codes == nil {
		return errors.New("no code renderer configured")
	}
	w, h := field.Width, field.Height
	if w <= 0 {
		w = placement.DefaultQRSize
	}
	if h <= 0 {
		h = placement.DefaultQRSize
	}
	png, err := e.Codes.Render(value, int(w))
	if err != nil {
		return err
	}
	scale := coords.ScaleFactor(preview, native)
	x := field.X * scale
	y := native.Height - field.Y*scale - h
	return page.DrawImage(png, x, y, w, h)
}

package synth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/ocarinaa/formweaver/coords"
	"github.com/ocarinaa/formweaver/dataset"
	"github.com/ocarinaa/formweaver/fonts"
	"github.com/ocarinaa/formweaver/placement"
	"github.com/ocarinaa/formweaver/recovery"
)

type drawCall struct {
	kind       string // "text" or "image"
	text       string
	x, y       float64
	size       float64
	rotation   float64
	color      placement.RGB
	img        []byte
	w, h       float64
	pageNumber int
}

type fakeHandle struct{ f *fonts.Font }

func (h fakeHandle) AscentAt(size float64) float64 { return h.f.AscentAt(size) }

type fakePage struct {
	inst *fakeInstance
	n    int
}

func (p *fakePage) NativeSize() coords.Size { return p.inst.native }

func (p *fakePage) DrawText(text string, x, y float64, _ FontHandle, size float64, color placement.RGB, rotation float64) error {
	p.inst.calls = append(p.inst.calls, drawCall{
		kind: "text", text: text, x: x, y: y, size: size,
		color: color, rotation: rotation, pageNumber: p.n,
	})
	return nil
}

func (p *fakePage) DrawImage(img []byte, x, y, w, h float64) error {
	p.inst.calls = append(p.inst.calls, drawCall{
		kind: "image", img: img, x: x, y: y, w: w, h: h, pageNumber: p.n,
	})
	return nil
}

type fakeInstance struct {
	id           byte
	pages        int
	native       coords.Size
	calls        []drawCall
	serializeErr error
}

func (f *fakeInstance) PageCount() int { return f.pages }

func (f *fakeInstance) Page(n int) (PageWriter, error) {
	if n < 1 || n > f.pages {
		return nil, fmt.Errorf("page %d out of range", n)
	}
	return &fakePage{inst: f, n: n}, nil
}

func (f *fakeInstance) EmbedFont(font *fonts.Font) (FontHandle, error) {
	return fakeHandle{font}, nil
}

func (f *fakeInstance) Serialize() ([]byte, error) {
	if f.serializeErr != nil {
		return nil, f.serializeErr
	}
	return []byte{f.id}, nil
}

type fakeOpener struct {
	pages          int
	native         coords.Size
	openErrOn      map[int]error // 1-based open call number
	serializeErrOn map[int]error
	opened         int
	instances      []*fakeInstance
}

func (o *fakeOpener) Open(template []byte) (Instance, error) {
	o.opened++
	if err := o.openErrOn[o.opened]; err != nil {
		return nil, err
	}
	pages := o.pages
	if pages == 0 {
		pages = 1
	}
	native := o.native
	if native == (coords.Size{}) {
		native = coords.Size{Width: 612, Height: 792}
	}
	inst := &fakeInstance{id: byte(o.opened), pages: pages, native: native, serializeErr: o.serializeErrOn[o.opened]}
	o.instances = append(o.instances, inst)
	return inst, nil
}

type memSink struct{ docs [][]byte }

func (s *memSink) Add(doc []byte) (string, error) {
	s.docs = append(s.docs, doc)
	return fmt.Sprintf("doc_%03d.pdf", len(s.docs)), nil
}

type fakeCodes struct{}

func (fakeCodes) Render(value string, sizePx int) ([]byte, error) {
	return []byte("png:" + value), nil
}

// halfSizeLayout previews pages at half their native dimensions, so every
// editor coordinate doubles on the way to the page.
func halfSizeLayout(fields ...placement.Field) placement.Layout {
	return placement.Layout{
		Fields:       fields,
		PreviewSizes: map[int]coords.Size{1: {Width: 306, Height: 396}},
	}
}

func newEngine(opener *fakeOpener) *Engine {
	return &Engine{
		Opener: opener,
		Fonts:  fonts.NewCache(nil),
		Codes:  fakeCodes{},
	}
}

func rows(cells ...dataset.Row) dataset.Table {
	return dataset.Table{Columns: []string{"name"}, Rows: cells}
}

func almost(got, want float64) bool { return math.Abs(got-want) < 1e-9 }

func TestRunOneDocumentPerRow(t *testing.T) {
	opener := &fakeOpener{}
	e := newEngine(opener)
	req := Request{
		Layout: halfSizeLayout(placement.NewField("name", 1, 50, 100)),
		Table:  rows(dataset.Row{"name": "Ada"}, dataset.Row{"name": "Grace"}, dataset.Row{"name": "Edsger"}),
	}
	sink := &memSink{}
	res, err := e.Run(context.Background(), req, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Produced != 3 || len(sink.docs) != 3 {
		t.Fatalf("produced %d docs (%d in sink), want 3", res.Produced, len(sink.docs))
	}
	if opener.opened != 3 {
		t.Errorf("opened %d instances, want one per row", opener.opened)
	}

	call := opener.instances[0].calls[0]
	if call.kind != "text" || call.text != "Ada" {
		t.Fatalf("first call = %+v", call)
	}
	// Half-size preview doubles coordinates and the font size.
	if !almost(call.x, 100) {
		t.Errorf("x = %v, want 100", call.x)
	}
	if !almost(call.size, 32) {
		t.Errorf("size = %v, want 32", call.size)
	}
	// Baseline: page height minus scaled y minus 0.8 of the Helvetica
	// ascent at the effective size.
	wantY := 792 - 200 - (718.0/1000*32)*0.8
	if !almost(call.y, wantY) {
		t.Errorf("y = %v, want %v", call.y, wantY)
	}
}

func TestEmptyAndUndefinedCellsSkipSilently(t *testing.T) {
	opener := &fakeOpener{}
	e := newEngine(opener)
	req := Request{
		Layout: halfSizeLayout(placement.NewField("name", 1, 50, 100)),
		Table: rows(
			dataset.Row{"name": ""},
			dataset.Row{"name": "undefined"},
			dataset.Row{},
		),
	}
	sink := &memSink{}
	res, err := e.Run(context.Background(), req, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Produced != 3 {
		t.Errorf("produced %d, want 3 blank documents", res.Produced)
	}
	if res.FieldsSkipped != 0 {
		t.Errorf("FieldsSkipped = %d, silent skips must not count", res.FieldsSkipped)
	}
	for i, inst := range opener.instances {
		if len(inst.calls) != 0 {
			t.Errorf("row %d drew %d times, want none", i, len(inst.calls))
		}
	}
}

func TestOutOfRangePageSkipsField(t *testing.T) {
	opener := &fakeOpener{pages: 1}
	e := newEngine(opener)
	strategy := recovery.NewLenientStrategy()
	e.Strategy = strategy

	bad := placement.NewField("name", 5, 10, 10)
	good := placement.NewField("name", 1, 50, 100)
	req := Request{
		Layout: halfSizeLayout(bad, good),
		Table:  rows(dataset.Row{"name": "Ada"}),
	}
	sink := &memSink{}
	res, err := e.Run(context.Background(), req, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Produced != 1 {
		t.Fatalf("produced %d, want document despite bad field", res.Produced)
	}
	if res.FieldsSkipped != 1 {
		t.Errorf("FieldsSkipped = %d, want 1", res.FieldsSkipped)
	}
	if len(opener.instances[0].calls) != 1 {
		t.Errorf("drew %d fields, want only the valid one", len(opener.instances[0].calls))
	}
	if len(strategy.Errors) != 1 {
		t.Errorf("strategy recorded %d errors, want 1", len(strategy.Errors))
	}
}

func TestMissingPreviewSizeSkipsField(t *testing.T) {
	opener := &fakeOpener{pages: 2}
	e := newEngine(opener)
	f := placement.NewField("name", 2, 10, 10) // no preview size for page 2
	req := Request{
		Layout: halfSizeLayout(f),
		Table:  rows(dataset.Row{"name": "Ada"}),
	}
	sink := &memSink{}
	res, err := e.Run(context.Background(), req, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Produced != 1 || res.FieldsSkipped != 1 {
		t.Errorf("produced %d skipped %d, want 1 and 1", res.Produced, res.FieldsSkipped)
	}
}

func TestFailedRowDropsOnlyThatRow(t *testing.T) {
	opener := &fakeOpener{openErrOn: map[int]error{3: errors.New("corrupt copy")}}
	e := newEngine(opener)
	req := Request{
		Layout: halfSizeLayout(placement.NewField("name", 1, 50, 100)),
		Table: rows(
			dataset.Row{"name": "r1"}, dataset.Row{"name": "r2"},
			dataset.Row{"name": "r3"}, dataset.Row{"name": "r4"},
			dataset.Row{"name": "r5"},
		),
	}
	sink := &memSink{}
	res, err := e.Run(context.Background(), req, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Produced != 4 {
		t.Fatalf("produced %d, want 4", res.Produced)
	}
	if len(res.RowsSkipped) != 1 || res.RowsSkipped[0] != 2 {
		t.Fatalf("RowsSkipped = %v, want [2]", res.RowsSkipped)
	}
	// Surviving documents keep their row order.
	want := []byte{1, 2, 4, 5}
	for i, doc := range sink.docs {
		if len(doc) != 1 || doc[0] != want[i] {
			t.Errorf("doc %d came from instance %v, want %d", i, doc, want[i])
		}
	}
}

func TestSerializeFailureSkipsRow(t *testing.T) {
	opener := &fakeOpener{serializeErrOn: map[int]error{1: errors.New("boom")}}
	e := newEngine(opener)
	req := Request{
		Layout: halfSizeLayout(placement.NewField("name", 1, 50, 100)),
		Table:  rows(dataset.Row{"name": "a"}, dataset.Row{"name": "b"}),
	}
	sink := &memSink{}
	res, err := e.Run(context.Background(), req, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Produced != 1 || len(res.RowsSkipped) != 1 || res.RowsSkipped[0] != 0 {
		t.Errorf("res = %+v, want first row skipped", res)
	}
}

func TestStrictStrategyAbortsBatch(t *testing.T) {
	opener := &fakeOpener{openErrOn: map[int]error{1: errors.New("corrupt copy")}}
	e := newEngine(opener)
	e.Strategy = recovery.NewStrictStrategy()
	req := Request{
		Layout: halfSizeLayout(placement.NewField("name", 1, 50, 100)),
		Table:  rows(dataset.Row{"name": "a"}, dataset.Row{"name": "b"}),
	}
	res, err := e.Run(context.Background(), req, &memSink{})
	if err == nil {
		t.Fatal("strict strategy should abort the batch")
	}
	if res.Produced != 0 {
		t.Errorf("produced %d after abort", res.Produced)
	}
}

type silentSkipStrategy struct{}

func (silentSkipStrategy) OnError(err error, loc recovery.Location) recovery.Action {
	return recovery.ActionSkip
}

func TestSilentSkipStrategyDropsFieldQuietly(t *testing.T) {
	opener := &fakeOpener{pages: 1}
	e := newEngine(opener)
	e.Strategy = silentSkipStrategy{}

	bad := placement.NewField("name", 5, 10, 10)
	good := placement.NewField("name", 1, 50, 100)
	req := Request{
		Layout: halfSizeLayout(bad, good),
		Table:  rows(dataset.Row{"name": "Ada"}),
	}
	sink := &memSink{}
	res, err := e.Run(context.Background(), req, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Produced != 1 {
		t.Fatalf("produced %d, want 1", res.Produced)
	}
	if res.FieldsSkipped != 1 {
		t.Errorf("FieldsSkipped = %d, want 1", res.FieldsSkipped)
	}
	if got := opener.instances[0].calls; len(got) != 1 {
		t.Errorf("drew %d fields, want only the in-range one", len(got))
	}
}

func TestCancelledContextStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newEngine(&fakeOpener{})
	req := Request{
		Layout: halfSizeLayout(placement.NewField("name", 1, 50, 100)),
		Table:  rows(dataset.Row{"name": "a"}),
	}
	if _, err := e.Run(ctx, req, &memSink{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNoFieldsIsAnError(t *testing.T) {
	e := newEngine(&fakeOpener{})
	req := Request{Layout: placement.Layout{}, Table: rows(dataset.Row{"name": "a"})}
	if _, err := e.Run(context.Background(), req, &memSink{}); err == nil {
		t.Fatal("empty layout accepted")
	}
}

func TestAlignmentShiftsAnchor(t *testing.T) {
	// Builtin fonts measure at half an em per rune: "abcd" at the doubled
	// size 32 is 64 points wide.
	cases := []struct {
		align placement.Align
		wantX float64
	}{
		{placement.AlignLeft, 100},
		{placement.AlignCenter, 68},
		{placement.AlignRight, 36},
	}
	for _, c := range cases {
		opener := &fakeOpener{}
		e := newEngine(opener)
		f := placement.NewField("name", 1, 50, 100)
		f.Align = c.align
		req := Request{Layout: halfSizeLayout(f), Table: rows(dataset.Row{"name": "abcd"})}
		if _, err := e.Run(context.Background(), req, &memSink{}); err != nil {
			t.Fatalf("%s: %v", c.align, err)
		}
		call := opener.instances[0].calls[0]
		if !almost(call.x, c.wantX) {
			t.Errorf("%s: x = %v, want %v", c.align, call.x, c.wantX)
		}
	}
}

func TestCodeFieldDrawsImage(t *testing.T) {
	opener := &fakeOpener{}
	e := newEngine(opener)
	f := placement.NewQRField("name", 1, 50, 100)
	req := Request{Layout: halfSizeLayout(f), Table: rows(dataset.Row{"name": "ORDER-1"})}
	if _, err := e.Run(context.Background(), req, &memSink{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	call := opener.instances[0].calls[0]
	if call.kind != "image" {
		t.Fatalf("call = %+v, want image", call)
	}
	if string(call.img) != "png:ORDER-1" {
		t.Errorf("image bytes = %q", call.img)
	}
	// Anchor maps through the preview scale; width and height are the
	// stored point values, untouched by the scale.
	if !almost(call.x, 100) || !almost(call.y, 792-200-64) {
		t.Errorf("anchor = (%v, %v), want (100, 528)", call.x, call.y)
	}
	if !almost(call.w, 64) || !almost(call.h, 64) {
		t.Errorf("size = %vx%v, want 64x64", call.w, call.h)
	}
}

func TestRotationIsNegatedForPageSpace(t *testing.T) {
	opener := &fakeOpener{}
	e := newEngine(opener)
	f := placement.NewField("name", 1, 50, 100)
	f.Rotation = 30
	req := Request{Layout: halfSizeLayout(f), Table: rows(dataset.Row{"name": "a"})}
	if _, err := e.Run(context.Background(), req, &memSink{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := opener.instances[0].calls[0].rotation; !almost(got, -30) {
		t.Errorf("rotation = %v, want -30", got)
	}
}

package placement

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ocarinaa/formweaver/coords"
)

func TestNewFieldDefaults(t *testing.T) {
	f := NewField("Name", 2, 40, 60)
	if f.ID == "" {
		t.Fatal("id not generated")
	}
	if f.Page != 2 || f.X != 40 || f.Y != 60 {
		t.Fatalf("unexpected placement: %+v", f)
	}
	if f.ScaleX != 1 || f.ScaleY != 1 || f.Rotation != 0 {
		t.Fatalf("unexpected geometry defaults: %+v", f)
	}
	if f.FontSize != DefaultFontSize || f.Color != DefaultColor || f.Align != AlignLeft {
		t.Fatalf("unexpected style defaults: %+v", f)
	}
	if other := NewField("Name", 2, 40, 60); other.ID == f.ID {
		t.Fatal("ids must be unique per field")
	}
}

func TestRecordPageOverwritesWholesale(t *testing.T) {
	s := NewStore()
	a := NewField("A", 1, 0, 0)
	b := NewField("B", 1, 10, 10)
	s.RecordPage(1, []Field{a, b}, coords.Size{Width: 800, Height: 1000})

	// Re-recording with one field drops the other; the store does not merge.
	s.RecordPage(1, []Field{a}, coords.Size{Width: 640, Height: 800})

	snap, ok := s.Page(1)
	if !ok {
		t.Fatal("page 1 missing")
	}
	if len(snap.Fields) != 1 || snap.Fields[0].ID != a.ID {
		t.Fatalf("snapshot not overwritten: %+v", snap.Fields)
	}
	if snap.SurfaceSize.Width != 640 {
		t.Fatalf("surface size not updated: %+v", snap.SurfaceSize)
	}
}

func TestSnapshotRestoreRoundTripNoDrift(t *testing.T) {
	s := NewStore()
	f := NewField("Name", 1, 123.25, 456.75)
	f.Rotation = 12.5
	f.ScaleX = 1.3
	size := coords.Size{Width: 812, Height: 1050}

	// Page 1 -> page 2 -> page 1, several times: restored geometry must be
	// identical to what was captured, with no accumulation.
	for i := 0; i < 5; i++ {
		s.RecordPage(1, []Field{f}, size)
		s.RecordPage(2, nil, coords.Size{Width: 700, Height: 900})
		snap, _ := s.Page(1)
		if !reflect.DeepEqual(snap.Fields[0], f) {
			t.Fatalf("cycle %d drifted: %+v != %+v", i, snap.Fields[0], f)
		}
		f = snap.Fields[0]
	}
}

func TestFinalizeRestampsPageFromSnapshotKey(t *testing.T) {
	s := NewStore()
	good := NewField("A", 1, 0, 0)
	drifted := NewField("B", 1, 5, 5)
	drifted.Page = 3 // in-surface tag drifted from the snapshot it was captured under
	s.RecordPage(1, []Field{good, drifted}, coords.Size{Width: 100, Height: 100})

	layout, warnings := s.Finalize()
	if len(layout.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(layout.Fields))
	}
	for _, f := range layout.Fields {
		if f.Page != 1 {
			t.Fatalf("field %s kept drifted page %d", f.ID, f.Page)
		}
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], drifted.ID) {
		t.Fatalf("expected one warning naming the drifted field, got %v", warnings)
	}
}

func TestFinalizeFlattensInPageOrder(t *testing.T) {
	s := NewStore()
	s.RecordPage(2, []Field{NewField("B", 2, 0, 0)}, coords.Size{Width: 10, Height: 10})
	s.RecordPage(1, []Field{NewField("A", 1, 0, 0)}, coords.Size{Width: 20, Height: 20})

	layout, _ := s.Finalize()
	if layout.Fields[0].Page != 1 || layout.Fields[1].Page != 2 {
		t.Fatalf("fields not in page order: %+v", layout.Fields)
	}
	if size, ok := layout.PreviewSize(1); !ok || size.Width != 20 {
		t.Fatalf("preview size table wrong: %+v", layout.PreviewSizes)
	}
}

func TestResetClearsSnapshots(t *testing.T) {
	s := NewStore()
	s.RecordPage(1, []Field{NewField("A", 1, 0, 0)}, coords.Size{Width: 10, Height: 10})
	s.Reset()
	if pages := s.Pages(); len(pages) != 0 {
		t.Fatalf("store not cleared: %v", pages)
	}
}

func TestLayoutSaveLoadRoundTrip(t *testing.T) {
	s := NewStore()
	f := NewField("Email", 1, 12.5, 88)
	f.AsQR = true
	f.Width = 64
	f.Height = 64
	s.RecordPage(1, []Field{f}, coords.Size{Width: 812, Height: 1050})
	layout, _ := s.Finalize()

	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := SaveLayout(layout, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, layout) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, layout)
	}
}

func TestLayoutColumnsDistinctInOrder(t *testing.T) {
	l := Layout{Fields: []Field{
		{Column: "Name"}, {Column: "Email"}, {Column: "Name"}, {Column: ""},
	}}
	got := l.Columns()
	want := []string{"Name", "Email"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("columns: got %v want %v", got, want)
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{in: "#000000", want: RGB{0, 0, 0}},
		{in: "#ffffff", want: RGB{1, 1, 1}},
		{in: "ff0000", want: RGB{1, 0, 0}},
		{in: "#fff", want: RGB{1, 1, 1}},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseHexColor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %+v want %+v", tc.in, got, tc.want)
		}
	}
}

package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestDenseNaming(t *testing.T) {
	var buf bytes.Buffer
	b := NewBuilder(&buf, "Invoice Template.pdf")

	// Three documents added with gaps in the source rows: names stay dense.
	want := []string{"Invoice Template_001.pdf", "Invoice Template_002.pdf", "Invoice Template_003.pdf"}
	for i, w := range want {
		name, err := b.Add([]byte{byte(i)})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if name != w {
			t.Errorf("entry %d named %q, want %q", i, name, w)
		}
	}
	if got := b.Count(); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("reading archive back: %v", err)
	}
	if len(zr.File) != 3 {
		t.Fatalf("archive holds %d entries, want 3", len(zr.File))
	}
	for i, f := range zr.File {
		if f.Name != want[i] {
			t.Errorf("entry %d = %q, want %q", i, f.Name, want[i])
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if len(data) != 1 || data[0] != byte(i) {
			t.Errorf("entry %d content = %v", i, data)
		}
	}
}

func TestSanitizeBase(t *testing.T) {
	cases := []struct{ in, want string }{
		{"report.pdf", "report"},
		{"no-extension", "no-extension"},
		{"a/b\\c:d.pdf", "a-b-c-d"},
		{"v1.2-final.pdf", "v1.2-final"},
		{"  ", "document"},
	}
	for _, c := range cases {
		if got := sanitizeBase(c.in); got != c.want {
			t.Errorf("sanitizeBase(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

package raster

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestOpenDirNumericOrder(t *testing.T) {
	dir := t.TempDir()
	// Lexical order would put page-10 between page-1 and page-2.
	writePNG(t, filepath.Join(dir, "page-1.png"), 10, 10)
	writePNG(t, filepath.Join(dir, "page-2.png"), 20, 10)
	writePNG(t, filepath.Join(dir, "page-10.png"), 30, 10)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	p, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if got := p.PageCount(); got != 3 {
		t.Fatalf("PageCount = %d, want 3", got)
	}
	widths := []int{10, 20, 30}
	for page := 1; page <= 3; page++ {
		img, err := p.Preview(context.Background(), page)
		if err != nil {
			t.Fatalf("Preview(%d): %v", page, err)
		}
		if got := img.Bounds().Dx(); got != widths[page-1] {
			t.Errorf("page %d width = %d, want %d", page, got, widths[page-1])
		}
	}
}

func TestPreviewOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page-1.png"), 5, 5)
	p, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if _, err := p.Preview(context.Background(), 0); err == nil {
		t.Error("page 0 accepted")
	}
	if _, err := p.Preview(context.Background(), 2); err == nil {
		t.Error("page 2 accepted")
	}
}

func TestPreviewHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page-1.png"), 5, 5)
	p, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Preview(ctx, 1); err == nil {
		t.Error("cancelled context accepted")
	}
}

func TestOpenDirEmpty(t *testing.T) {
	if _, err := OpenDir(t.TempDir()); err == nil {
		t.Error("empty directory accepted")
	}
}

// Package raster supplies page preview images for the placement surface.
//
// Synthesis itself never rasterizes; previews exist only so a person can see
// where fields land. The directory provider serves pre-rendered page images
// (one file per page) produced by whatever rasterizer the deployment has.
package raster

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "golang.org/x/image/tiff"
)

// Provider yields one preview image per template page.
type Provider interface {
	PageCount() int
	// Preview returns the raster for the 1-based page.
	Preview(ctx context.Context, page int) (image.Image, error)
}

// DirProvider reads pre-rendered page images from a directory. Files are
// ordered by the first run of digits in their name ("page-2.png" before
// "page-10.png"), falling back to lexical order.
type DirProvider struct {
	paths []string
}

var previewExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// OpenDir scans dir for page images.
func OpenDir(dir string) (*DirProvider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("preview directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !previewExts[filepath.Ext(e.Name())] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no page images in %s", dir)
	}
	sort.Slice(paths, func(i, j int) bool {
		ni, iok := firstNumber(filepath.Base(paths[i]))
		nj, jok := firstNumber(filepath.Base(paths[j]))
		if iok && jok && ni != nj {
			return ni < nj
		}
		return paths[i] < paths[j]
	})
	return &DirProvider{paths: paths}, nil
}

func (p *DirProvider) PageCount() int { return len(p.paths) }

func (p *DirProvider) Preview(ctx context.Context, page int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > len(p.paths) {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, len(p.paths))
	}
	f, err := os.Open(p.paths[page-1])
	if err != nil {
		return nil, fmt.Errorf("page %d preview: %w", page, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("page %d preview %s: %w", page, filepath.Base(p.paths[page-1]), err)
	}
	return img, nil
}

func firstNumber(name string) (int, bool) {
	start := -1
	for i, c := range name {
		if c >= '0' && c <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(name[start:i])
			return n, err == nil
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(name[start:])
		return n, err == nil
	}
	return 0, false
}

// Package archive packages synthesized documents into a single zip download.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// Builder streams finished documents into a zip. Names are dense: the Nth
// document added is {base}_{NNN}.pdf regardless of how many source rows were
// skipped before it.
type Builder struct {
	zw   *zip.Writer
	base string
	n    int
}

// NewBuilder writes the archive to w. base is the template's display name;
// an extension and any path separators are stripped.
func NewBuilder(w io.Writer, base string) *Builder {
	return &Builder{zw: zip.NewWriter(w), base: sanitizeBase(base)}
}

// Add appends one document and returns its name inside the archive.
func (b *Builder) Add(doc []byte) (string, error) {
	name := fmt.Sprintf("%s_%03d.pdf", b.base, b.n+1)
	f, err := b.zw.Create(name)
	if err != nil {
		return "", fmt.Errorf("archive entry %s: %w", name, err)
	}
	if _, err := f.Write(doc); err != nil {
		return "", fmt.Errorf("archive entry %s: %w", name, err)
	}
	b.n++
	return name, nil
}

// Count reports how many documents were added.
func (b *Builder) Count() int { return b.n }

// Close finalizes the zip central directory. The archive is unreadable
// until Close returns.
func (b *Builder) Close() error {
	return b.zw.Close()
}

func sanitizeBase(base string) string {
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '-'
		}
		return r
	}, base)
	base = strings.TrimSpace(base)
	if base == "" {
		base = "document"
	}
	return base
}

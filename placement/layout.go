package placement

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ocarinaa/formweaver/coords"
)

// Layout is the finalized snapshot handed to batch synthesis: every field in
// page order plus the per-page preview sizes used as the scale basis by the
// coordinate transform. It is a plain data copy; mutating the editing
// session after finalization does not affect it.
type Layout struct {
	Fields       []Field             `yaml:"fields"`
	PreviewSizes map[int]coords.Size `yaml:"previewSizes"`
}

// PreviewSize returns the recorded preview size for a page.
func (l Layout) PreviewSize(page int) (coords.Size, bool) {
	size, ok := l.PreviewSizes[page]
	return size, ok
}

// Columns returns the distinct column names bound by the layout, in first
// appearance order.
func (l Layout) Columns() []string {
	seen := make(map[string]bool, len(l.Fields))
	var cols []string
	for _, f := range l.Fields {
		if f.Column == "" || seen[f.Column] {
			continue
		}
		seen[f.Column] = true
		cols = append(cols, f.Column)
	}
	return cols
}

// SaveLayout writes the layout as YAML, the handoff format between the
// editor and the headless synthesize command.
func SaveLayout(l Layout, path string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}
	return nil
}

// LoadLayout reads a layout saved by SaveLayout.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}
	for i := range l.Fields {
		if l.Fields[i].ScaleX == 0 {
			l.Fields[i].ScaleX = 1
		}
		if l.Fields[i].ScaleY == 0 {
			l.Fields[i].ScaleY = 1
		}
	}
	return l, nil
}

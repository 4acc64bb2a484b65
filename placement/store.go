package placement

import (
	"fmt"
	"sort"

	"github.com/ocarinaa/formweaver/coords"
)

// Snapshot is the store's unit of persistence for one page: that page's
// fields plus the surface size in effect when the page was last active. All
// fields of a page share the snapshot's size as their single scale basis.
type Snapshot struct {
	Fields      []Field
	SurfaceSize coords.Size
}

// Store keeps one snapshot per page for the duration of an editing session.
// It is not safe for concurrent use; the surface drives it from a single
// goroutine.
type Store struct {
	pages map[int]Snapshot
}

func NewStore() *Store {
	return &Store{pages: make(map[int]Snapshot)}
}

// RecordPage overwrites the page's snapshot wholesale. Callers re-supply
// every field still wanted on the page; the store does not diff or merge.
func (s *Store) RecordPage(page int, fields []Field, surfaceSize coords.Size) {
	copied := make([]Field, len(fields))
	copy(copied, fields)
	s.pages[page] = Snapshot{Fields: copied, SurfaceSize: surfaceSize}
}

// Page returns the snapshot recorded for a page, if any.
func (s *Store) Page(page int) (Snapshot, bool) {
	snap, ok := s.pages[page]
	return snap, ok
}

// Pages returns the recorded page numbers in ascending order.
func (s *Store) Pages() []int {
	nums := make([]int, 0, len(s.pages))
	for n := range s.pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Finalize flattens all snapshots into an immutable Layout. Each field's
// page assignment is re-stamped from its owning snapshot key; when a field's
// own page tag disagrees, the snapshot key wins and a warning is returned
// rather than a failure.
func (s *Store) Finalize() (Layout, []string) {
	var warnings []string
	layout := Layout{PreviewSizes: make(map[int]coords.Size, len(s.pages))}
	for _, page := range s.Pages() {
		snap := s.pages[page]
		layout.PreviewSizes[page] = snap.SurfaceSize
		for _, f := range snap.Fields {
			if f.Page != page {
				warnings = append(warnings, fmt.Sprintf("field %s tagged page %d captured under page %d; using %d", f.ID, f.Page, page, page))
				f.Page = page
			}
			layout.Fields = append(layout.Fields, f)
		}
	}
	return layout, warnings
}

// Reset discards every snapshot so the session holds no template-derived
// state afterwards.
func (s *Store) Reset() {
	s.pages = make(map[int]Snapshot)
}

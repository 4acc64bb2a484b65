package surface

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ocarinaa/formweaver/coords"
	"github.com/ocarinaa/formweaver/observability"
	"github.com/ocarinaa/formweaver/placement"
)

// Previewer supplies rasterized page previews. Page numbers are 1-based.
// Preview must honor ctx: a navigate-away cancels the in-flight load.
type Previewer interface {
	PageCount() int
	Preview(ctx context.Context, page int) (image.Image, error)
}

var ErrNotReady = errors.New("surface not activated")

// Surface is the placement surface's state engine: one active page at a
// time, live field objects for that page only, and synchronous capture into
// the placement store on navigation and finalization. Rendering (terminal,
// browser, headless test) sits on top of this and owns no field state.
//
// Not safe for concurrent use; the UI event loop drives it.
type Surface struct {
	store    *placement.Store
	previews Previewer
	log      observability.Logger

	containerWidth float64
	current        int
	ready          bool

	displayScale float64
	surfaceSize  coords.Size
	background   image.Image
	live         []placement.Field

	previewCache map[int]image.Image
}

func New(store *placement.Store, previews Previewer, containerWidth float64, log observability.Logger) *Surface {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Surface{
		store:          store,
		previews:       previews,
		log:            log,
		containerWidth: containerWidth,
		current:        1,
		previewCache:   make(map[int]image.Image),
	}
}

// Activate loads the current page's preview, derives the display scale from
// the preview image's own pixel width, and re-materializes the page's fields
// from their last snapshot. Fields whose stored page tag no longer matches
// are skipped so a rapid page switch cannot bleed a field onto the wrong
// page.
func (s *Surface) Activate(ctx context.Context) error {
	img, err := s.loadPreview(ctx, s.current)
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	imgW := float64(bounds.Dx())
	imgH := float64(bounds.Dy())
	if imgW <= 0 {
		return fmt.Errorf("page %d preview has no width", s.current)
	}
	s.background = img
	s.displayScale = s.containerWidth / imgW
	s.surfaceSize = coords.Size{Width: s.containerWidth, Height: imgH * s.displayScale}

	s.live = s.live[:0]
	if snap, ok := s.store.Page(s.current); ok {
		for _, f := range snap.Fields {
			if f.Page != s.current {
				s.log.Warn("skipping field with stale page tag",
					observability.String("field", f.ID),
					observability.Int("tag", f.Page),
					observability.Int("page", s.current))
				continue
			}
			s.live = append(s.live, f)
		}
	}
	s.ready = true
	return nil
}

// CurrentPage returns the active 1-based page number.
func (s *Surface) CurrentPage() int { return s.current }

// DisplayScale is containerWidth / preview image pixel width for the active
// page.
func (s *Surface) DisplayScale() float64 { return s.displayScale }

// Size is the surface's current pixel size.
func (s *Surface) Size() coords.Size { return s.surfaceSize }

// Background is the active page's preview image.
func (s *Surface) Background() image.Image { return s.background }

// Fields returns a copy of the live fields on the active page.
func (s *Surface) Fields() []placement.Field {
	out := make([]placement.Field, len(s.live))
	copy(out, s.live)
	return out
}

// Place creates a field at the drop point with default style, tagged with
// the active page and never any other, and returns it.
func (s *Surface) Place(column string, x, y float64, asQR bool) (placement.Field, error) {
	if !s.ready {
		return placement.Field{}, ErrNotReady
	}
	var f placement.Field
	if asQR {
		f = placement.NewQRField(column, s.current, x, y)
	} else {
		f = placement.NewField(column, s.current, x, y)
	}
	s.live = append(s.live, f)
	return f, nil
}

// Update mutates a live field through fn. The page assignment is immutable:
// whatever fn does to it is discarded.
func (s *Surface) Update(id string, fn func(*placement.Field)) bool {
	for i := range s.live {
		if s.live[i].ID == id {
			page := s.live[i].Page
			fn(&s.live[i])
			s.live[i].Page = page
			return true
		}
	}
	return false
}

// Remove deletes a live field by id.
func (s *Surface) Remove(id string) bool {
	for i := range s.live {
		if s.live[i].ID == id {
			s.live = append(s.live[:i], s.live[i+1:]...)
			return true
		}
	}
	return false
}

// ChangePage captures the current page synchronously and activates the
// target. No-op when the surface is not ready or the target is the current
// page. The capture happens before any loading, so an interleaved edit
// cannot fall between "read live objects" and "clear surface".
func (s *Surface) ChangePage(ctx context.Context, target int) error {
	if !s.ready || target == s.current {
		return nil
	}
	if target < 1 || target > s.previews.PageCount() {
		return fmt.Errorf("page %d out of range 1..%d", target, s.previews.PageCount())
	}
	s.captureCurrent()
	s.live = s.live[:0]
	s.background = nil
	s.current = target
	return s.Activate(ctx)
}

// Next captures the current page, so the last-viewed page is never lost,
// and finalizes the whole store into a layout.
func (s *Surface) Next() (placement.Layout, []string, error) {
	if !s.ready {
		return placement.Layout{}, nil, ErrNotReady
	}
	s.captureCurrent()
	layout, warnings := s.store.Finalize()
	for _, w := range warnings {
		s.log.Warn(w)
	}
	return layout, warnings, nil
}

// Resize re-derives the display scale for the active page from its preview
// image and rescales the live fields so they keep one shared scale basis
// with the surface size. Other pages' snapshots are left at the scale in
// effect when they were captured.
func (s *Surface) Resize(width float64) error {
	if width <= 0 {
		return fmt.Errorf("invalid container width %v", width)
	}
	s.containerWidth = width
	if !s.ready || s.background == nil {
		return nil
	}
	old := s.displayScale
	imgW := float64(s.background.Bounds().Dx())
	imgH := float64(s.background.Bounds().Dy())
	s.displayScale = width / imgW
	s.surfaceSize = coords.Size{Width: width, Height: imgH * s.displayScale}
	// Width and Height stay put: code fields store them in point space,
	// so only display-space values follow the viewport.
	ratio := s.displayScale / old
	for i := range s.live {
		f := &s.live[i]
		f.X *= ratio
		f.Y *= ratio
		f.ScaleX *= ratio
		f.ScaleY *= ratio
	}
	return nil
}

// Reset discards the session: snapshots, live objects, and cached previews.
func (s *Surface) Reset() {
	s.store.Reset()
	s.live = nil
	s.background = nil
	s.previewCache = make(map[int]image.Image)
	s.ready = false
	s.current = 1
}

func (s *Surface) captureCurrent() {
	// Live objects tagged with another page are a bug signal; they are
	// logged and excluded rather than silently merged into this snapshot.
	kept := make([]placement.Field, 0, len(s.live))
	for _, f := range s.live {
		if f.Page != s.current {
			s.log.Warn("live object tagged with foreign page",
				observability.String("field", f.ID),
				observability.Int("tag", f.Page),
				observability.Int("page", s.current))
			continue
		}
		kept = append(kept, f)
	}
	s.store.RecordPage(s.current, kept, s.surfaceSize)
}

func (s *Surface) loadPreview(ctx context.Context, page int) (image.Image, error) {
	if img, ok := s.previewCache[page]; ok {
		return img, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := s.previews.Preview(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("load preview for page %d: %w", page, err)
	}
	s.previewCache[page] = img
	return img, nil
}

// Prefetch renders every page's preview in order with a cancellation check
// at each page boundary. Cancellation stops further loads; pages already
// cached stay cached, and the placement store is never touched here.
func (s *Surface) Prefetch(ctx context.Context) error {
	for page := 1; page <= s.previews.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.loadPreview(ctx, page); err != nil {
			return err
		}
	}
	return nil
}

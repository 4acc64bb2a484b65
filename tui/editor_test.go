package tui

import (
	"context"
	"image"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type stubPreviewer struct {
	pages int
	w, h  int
}

func (s stubPreviewer) PageCount() int { return s.pages }

func (s stubPreviewer) Preview(ctx context.Context, page int) (image.Image, error) {
	return image.NewNRGBA(image.Rect(0, 0, s.w, s.h)), nil
}

// step feeds a message and, if the update produced a command, feeds its
// result back, the way the bubbletea runtime would.
func step(t *testing.T, e *Editor, msg tea.Msg) {
	t.Helper()
	_, cmd := e.Update(msg)
	if cmd != nil {
		if next := cmd(); next != nil {
			e.Update(next)
		}
	}
}

func newReadyEditor(t *testing.T, columns ...string) *Editor {
	t.Helper()
	if columns == nil {
		columns = []string{"name", "email"}
	}
	e := NewEditor(stubPreviewer{pages: 2, w: 1224, h: 1584}, columns, 612, nil)
	step(t, e, e.Init()())
	if !e.ready {
		t.Fatalf("editor not ready after init: %s", e.errText)
	}
	step(t, e, tea.WindowSizeMsg{Width: 100, Height: 30})
	return e
}

func keyRune(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func TestPlaceAndFinish(t *testing.T) {
	e := newReadyEditor(t)
	step(t, e, tea.KeyMsg{Type: tea.KeyEnter})
	if got := len(e.surf.Fields()); got != 1 {
		t.Fatalf("placed %d fields, want 1", got)
	}
	f := e.surf.Fields()[0]
	if f.Column != "name" || f.Page != 1 {
		t.Errorf("field = %+v, want column name on page 1", f)
	}

	step(t, e, keyRune('f'))
	layout, _, ok := e.Result()
	if !ok {
		t.Fatal("finish did not produce a layout")
	}
	if len(layout.Fields) != 1 {
		t.Errorf("layout holds %d fields, want 1", len(layout.Fields))
	}
	if _, ok := layout.PreviewSize(1); !ok {
		t.Error("layout lost the page preview size")
	}
}

func TestColumnCycleAndCodeMode(t *testing.T) {
	e := newReadyEditor(t)
	step(t, e, keyRune('c'))
	step(t, e, keyRune('q'))
	step(t, e, tea.KeyMsg{Type: tea.KeyEnter})
	f := e.surf.Fields()[0]
	if f.Column != "email" {
		t.Errorf("column = %q, want cycled to email", f.Column)
	}
	if !f.AsQR {
		t.Error("code mode did not mark the field")
	}
}

func TestNudgeMovesSelectedField(t *testing.T) {
	e := newReadyEditor(t)
	step(t, e, tea.KeyMsg{Type: tea.KeyEnter})
	before := e.surf.Fields()[0]
	step(t, e, tea.KeyMsg{Type: tea.KeyRight})
	step(t, e, tea.KeyMsg{Type: tea.KeyDown})
	after := e.surf.Fields()[0]
	if after.X != before.X+nudgeStep || after.Y != before.Y+nudgeStep {
		t.Errorf("nudge moved (%v,%v) to (%v,%v)", before.X, before.Y, after.X, after.Y)
	}
}

func TestPageNavigationKeepsPlacements(t *testing.T) {
	e := newReadyEditor(t)
	step(t, e, tea.KeyMsg{Type: tea.KeyEnter})
	step(t, e, keyRune('n'))
	if got := e.surf.CurrentPage(); got != 2 {
		t.Fatalf("page = %d, want 2", got)
	}
	if got := len(e.surf.Fields()); got != 0 {
		t.Fatalf("page 2 shows %d fields, want none", got)
	}
	step(t, e, tea.KeyMsg{Type: tea.KeyEnter})
	step(t, e, keyRune('p'))
	if got := e.surf.CurrentPage(); got != 1 {
		t.Fatalf("page = %d, want back on 1", got)
	}
	if got := len(e.surf.Fields()); got != 1 {
		t.Errorf("page 1 shows %d fields after round trip, want 1", got)
	}

	step(t, e, keyRune('f'))
	layout, _, ok := e.Result()
	if !ok {
		t.Fatal("finish failed")
	}
	if len(layout.Fields) != 2 {
		t.Errorf("layout holds %d fields, want one per page", len(layout.Fields))
	}
}

func TestPagePastEndIsIgnored(t *testing.T) {
	e := newReadyEditor(t)
	step(t, e, keyRune('p')) // already on first page
	if got := e.surf.CurrentPage(); got != 1 {
		t.Errorf("page = %d, want 1", got)
	}
	step(t, e, keyRune('n'))
	step(t, e, keyRune('n')) // past the last page
	if got := e.surf.CurrentPage(); got != 2 {
		t.Errorf("page = %d, want clamped to 2", got)
	}
}

func TestAbortYieldsNoLayout(t *testing.T) {
	e := newReadyEditor(t)
	step(t, e, tea.KeyMsg{Type: tea.KeyEnter})
	step(t, e, tea.KeyMsg{Type: tea.KeyEsc})
	if !e.aborted {
		t.Fatal("esc did not abort")
	}
	if _, _, ok := e.Result(); ok {
		t.Error("aborted session still produced a layout")
	}
}

func TestViewRendersWithoutPanic(t *testing.T) {
	e := newReadyEditor(t)
	step(t, e, tea.KeyMsg{Type: tea.KeyEnter})
	if out := e.View(); out == "" {
		t.Error("empty view")
	}
}

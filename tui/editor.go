// Package tui is the terminal front end of the placement surface: a
// keyboard-driven editor that shows each template page as a proportional
// canvas, lets the user drop and nudge data-bound fields, and hands the
// finalized layout to synthesis.
package tui

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ocarinaa/formweaver/observability"
	"github.com/ocarinaa/formweaver/placement"
	"github.com/ocarinaa/formweaver/surface"
)

// terminal cells are not pixels; one column stands in for this many.
const pxPerCell = 8.0

type keyMap struct {
	Left, Right, Up, Down key.Binding
	NextField, PrevField  key.Binding
	NextPage, PrevPage    key.Binding
	Place, Delete         key.Binding
	Column, QR            key.Binding
	Grow, Shrink          key.Binding
	Rotate                key.Binding
	Finish, Abort         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "nudge left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "nudge right")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "nudge up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "nudge down")),
		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("s-tab", "prev field")),
		NextPage:  key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next page")),
		PrevPage:  key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "prev page")),
		Place:     key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "place field")),
		Delete:    key.NewBinding(key.WithKeys("d", "backspace"), key.WithHelp("d", "delete field")),
		Column:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cycle column")),
		QR:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "toggle code mode")),
		Grow:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "larger")),
		Shrink:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "smaller")),
		Rotate:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rotate 15°")),
		Finish:    key.NewBinding(key.WithKeys("f", "ctrl+s"), key.WithHelp("f", "finish")),
		Abort:     key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "abort")),
	}
}

var (
	canvasStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	fieldStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	statusStyle   = lipgloss.NewStyle().Faint(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const nudgeStep = 4.0

type activatedMsg struct{ err error }

// Editor is the bubbletea model. Construct with NewEditor and run under
// tea.NewProgram; afterwards Result reports the finalized layout.
type Editor struct {
	surf     *surface.Surface
	previews surface.Previewer
	columns  []string
	keys     keyMap
	help     help.Model
	log      observability.Logger

	colIdx   int
	selected int
	qrMode   bool
	ready    bool
	errText  string

	termW, termH int

	finished bool
	aborted  bool
	layout   placement.Layout
	warnings []string
}

// NewEditor builds the editor over a fresh store. columns come from the
// dataset so every placed field binds to a real column.
func NewEditor(previews surface.Previewer, columns []string, containerWidth float64, log observability.Logger) *Editor {
	if log == nil {
		log = observability.NopLogger{}
	}
	store := placement.NewStore()
	return &Editor{
		surf:     surface.New(store, previews, containerWidth, log),
		previews: previews,
		columns:  columns,
		keys:     defaultKeyMap(),
		help:     help.New(),
		log:      log,
	}
}

// Result returns the finalized layout. ok is false when the session was
// aborted or never finished.
func (e *Editor) Result() (placement.Layout, []string, bool) {
	return e.layout, e.warnings, e.finished
}

func (e *Editor) Init() tea.Cmd {
	return func() tea.Msg {
		err := e.surf.Activate(context.Background())
		if err == nil {
			// Warm the remaining pages; a failure here only slows paging.
			if perr := e.surf.Prefetch(context.Background()); perr != nil {
				e.log.Warn("preview prefetch", observability.Error("cause", perr))
			}
		}
		return activatedMsg{err: err}
	}
}

func (e *Editor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activatedMsg:
		if msg.err != nil {
			e.errText = msg.err.Error()
			if !e.ready {
				return e, tea.Quit
			}
			return e, nil
		}
		e.ready = true
		return e, nil

	case tea.WindowSizeMsg:
		e.termW, e.termH = msg.Width, msg.Height
		if e.ready {
			if err := e.surf.Resize(float64(msg.Width) * pxPerCell); err != nil {
				e.errText = err.Error()
			}
		}
		return e, nil

	case tea.KeyMsg:
		return e.handleKey(msg)
	}
	return e, nil
}

func (e *Editor) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !e.ready {
		if key.Matches(msg, e.keys.Abort) {
			e.aborted = true
			return e, tea.Quit
		}
		return e, nil
	}
	e.errText = ""
	switch {
	case key.Matches(msg, e.keys.Abort):
		e.aborted = true
		return e, tea.Quit

	case key.Matches(msg, e.keys.Finish):
		layout, warnings, err := e.surf.Next()
		if err != nil {
			e.errText = err.Error()
			return e, nil
		}
		e.layout, e.warnings, e.finished = layout, warnings, true
		return e, tea.Quit

	case key.Matches(msg, e.keys.NextPage):
		if e.surf.CurrentPage() < e.pageCount() {
			return e, e.changePage(e.surf.CurrentPage() + 1)
		}
	case key.Matches(msg, e.keys.PrevPage):
		if e.surf.CurrentPage() > 1 {
			return e, e.changePage(e.surf.CurrentPage() - 1)
		}

	case key.Matches(msg, e.keys.Column):
		if len(e.columns) > 0 {
			e.colIdx = (e.colIdx + 1) % len(e.columns)
		}
	case key.Matches(msg, e.keys.QR):
		e.qrMode = !e.qrMode

	case key.Matches(msg, e.keys.Place):
		if len(e.columns) == 0 {
			e.errText = "dataset has no columns to bind"
			return e, nil
		}
		size := e.surf.Size()
		f, err := e.surf.Place(e.columns[e.colIdx], size.Width/2, size.Height/2, e.qrMode)
		if err != nil {
			e.errText = err.Error()
			return e, nil
		}
		e.selectByID(f.ID)

	case key.Matches(msg, e.keys.Delete):
		if f, ok := e.selectedField(); ok {
			e.surf.Remove(f.ID)
			if e.selected > 0 {
				e.selected--
			}
		}

	case key.Matches(msg, e.keys.NextField):
		if n := len(e.surf.Fields()); n > 0 {
			e.selected = (e.selected + 1) % n
		}
	case key.Matches(msg, e.keys.PrevField):
		if n := len(e.surf.Fields()); n > 0 {
			e.selected = (e.selected + n - 1) % n
		}

	case key.Matches(msg, e.keys.Left):
		e.nudge(-nudgeStep, 0)
	case key.Matches(msg, e.keys.Right):
		e.nudge(nudgeStep, 0)
	case key.Matches(msg, e.keys.Up):
		e.nudge(0, -nudgeStep)
	case key.Matches(msg, e.keys.Down):
		e.nudge(0, nudgeStep)

	case key.Matches(msg, e.keys.Grow):
		e.restyle(func(f *placement.Field) {
			if f.AsQR {
				f.Width += 8
				f.Height += 8
			} else {
				f.FontSize += 2
			}
		})
	case key.Matches(msg, e.keys.Shrink):
		e.restyle(func(f *placement.Field) {
			if f.AsQR && f.Width > 8 {
				f.Width -= 8
				f.Height -= 8
			} else if !f.AsQR && f.FontSize > 2 {
				f.FontSize -= 2
			}
		})
	case key.Matches(msg, e.keys.Rotate):
		e.restyle(func(f *placement.Field) {
			f.Rotation += 15
			if f.Rotation >= 360 {
				f.Rotation -= 360
			}
		})
	}
	return e, nil
}

func (e *Editor) changePage(target int) tea.Cmd {
	return func() tea.Msg {
		if err := e.surf.ChangePage(context.Background(), target); err != nil {
			return activatedMsg{err: err}
		}
		e.selected = 0
		return activatedMsg{}
	}
}

func (e *Editor) nudge(dx, dy float64) {
	if f, ok := e.selectedField(); ok {
		e.surf.Update(f.ID, func(f *placement.Field) {
			f.X += dx
			f.Y += dy
		})
	}
}

func (e *Editor) restyle(fn func(*placement.Field)) {
	if f, ok := e.selectedField(); ok {
		e.surf.Update(f.ID, fn)
	}
}

func (e *Editor) selectedField() (placement.Field, bool) {
	fields := e.surf.Fields()
	if len(fields) == 0 {
		return placement.Field{}, false
	}
	if e.selected >= len(fields) {
		e.selected = len(fields) - 1
	}
	return fields[e.selected], true
}

func (e *Editor) selectByID(id string) {
	for i, f := range e.surf.Fields() {
		if f.ID == id {
			e.selected = i
			return
		}
	}
}

func (e *Editor) View() string {
	if !e.ready {
		if e.errText != "" {
			return errStyle.Render("cannot open template: "+e.errText) + "\n"
		}
		return "loading previews…\n"
	}
	canvas := e.renderCanvas()
	status := e.renderStatus()
	return lipgloss.JoinVertical(lipgloss.Left, canvas, status, e.help.View(helpKeys(e.keys)))
}

// renderCanvas draws the active page as a character grid at the page's
// aspect ratio, with each live field marked at its proportional position.
func (e *Editor) renderCanvas() string {
	w := e.termW - 4
	if w < 20 {
		w = 20
	}
	size := e.surf.Size()
	// Terminal cells are about twice as tall as wide.
	h := int(float64(w) * size.Height / size.Width / 2)
	maxH := e.termH - 6
	if maxH > 4 && h > maxH {
		h = maxH
		w = int(float64(h) * 2 * size.Width / size.Height)
	}
	if h < 4 {
		h = 4
	}

	grid := make([][]rune, h)
	for i := range grid {
		grid[i] = make([]rune, w)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}
	type mark struct {
		row, col int
		label    string
		selected bool
	}
	var marks []mark
	for i, f := range e.surf.Fields() {
		col := int(f.X / size.Width * float64(w))
		row := int(f.Y / size.Height * float64(h))
		if col < 0 {
			col = 0
		}
		if col >= w {
			col = w - 1
		}
		if row < 0 {
			row = 0
		}
		if row >= h {
			row = h - 1
		}
		label := f.Column
		if f.AsQR {
			label = "⌗" + label
		}
		if col+len(label) > w {
			label = label[:w-col]
		}
		marks = append(marks, mark{row: row, col: col, label: label, selected: i == e.selected})
	}

	var lines []string
	for r := 0; r < h; r++ {
		row := make([]mark, 0, len(marks))
		for _, m := range marks {
			if m.row == r {
				row = append(row, m)
			}
		}
		// Overlay right to left so the plain prefix stays sliceable.
		sort.Slice(row, func(i, j int) bool { return row[i].col > row[j].col })
		line := string(grid[r])
		covered := w
		for _, m := range row {
			if m.col+len(m.label) > covered {
				continue // overlapping label, drop it
			}
			style := fieldStyle
			if m.selected {
				style = selectedStyle
			}
			end := m.col + len(m.label)
			line = line[:m.col] + style.Render(m.label) + line[end:]
			covered = m.col
		}
		lines = append(lines, line)
	}
	return canvasStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (e *Editor) renderStatus() string {
	mode := "text"
	if e.qrMode {
		mode = "code"
	}
	column := "(none)"
	if len(e.columns) > 0 {
		column = e.columns[e.colIdx]
	}
	parts := fmt.Sprintf("page %d/%d  column %s  mode %s  fields %d",
		e.surf.CurrentPage(), e.pageCount(), column, mode, len(e.surf.Fields()))
	if f, ok := e.selectedField(); ok {
		parts += fmt.Sprintf("  sel %s @ (%.0f,%.0f)", f.Column, f.X, f.Y)
	}
	out := statusStyle.Render(parts)
	if e.errText != "" {
		out += "\n" + errStyle.Render(e.errText)
	}
	return out
}

func (e *Editor) pageCount() int { return e.previews.PageCount() }

// helpKeys adapts the key map to the help bubble.
type helpKeyMap struct{ k keyMap }

func helpKeys(k keyMap) helpKeyMap { return helpKeyMap{k} }

func (h helpKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Place, h.k.Column, h.k.NextPage, h.k.Finish, h.k.Abort}
}

func (h helpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{h.k.Left, h.k.Right, h.k.Up, h.k.Down},
		{h.k.Place, h.k.Delete, h.k.NextField, h.k.PrevField},
		{h.k.Column, h.k.QR, h.k.Grow, h.k.Shrink, h.k.Rotate},
		{h.k.NextPage, h.k.PrevPage, h.k.Finish, h.k.Abort},
	}
}

package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
	"github.com/matzehuels/disgraph/pkg/selection"
	"github.com/matzehuels/disgraph/pkg/view"
)

const (
	// doubleClickWindow is the longest gap between two clicks on the same
	// cell that still counts as a double click.
	doubleClickWindow = 400 * time.Millisecond

	zoomStep = 1.25
	panCells = 4

	// chromeRows are the status and help lines below the graph.
	chromeRows = 2
)

var (
	statusBarStyle = lipgloss.NewStyle().Foreground(colorWhite).Background(lipgloss.Color("237"))
	helpStyle      = lipgloss.NewStyle().Foreground(colorDim)
	searchStyle    = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
)

const helpLine = "t/f/g follow true/false/jump · tab next · / find · n again · y copy · b break · +/- zoom · 0 fit · s sync · T theme · o orient · L strategy · q quit"

// systemClipboard writes to the OS clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// =============================================================================
// viewModel - Interactive graph browser
// =============================================================================

// viewModel is the bubbletea model of the terminal viewer. All calls into
// the view happen on the bubbletea goroutine.
type viewModel struct {
	ctx    context.Context
	v      *view.View
	canvas *termCanvas
	clip   selection.ClipboardWriter
	zoom   float64

	width, height int
	ready         bool

	status    string
	tooltip   bool // status holds the hovered row's text
	searching bool
	query     string

	lastClick     time.Time
	lastCol       int
	lastRow       int
	unsubscribeFn func()
}

// newViewModel wraps v. zoom multiplies the fitted scale of the first
// load.
func newViewModel(ctx context.Context, v *view.View, clip selection.ClipboardWriter, zoom float64) *viewModel {
	m := &viewModel{
		ctx:    ctx,
		v:      v,
		canvas: newTermCanvas(1, 1),
		clip:   clip,
		zoom:   zoom,
	}
	m.unsubscribeFn = v.Subscribe(func(ev view.Event) {
		if ev.Kind == view.SeekableChanged {
			m.status = fmt.Sprintf("seekable %#x", ev.Addr)
		}
	})
	return m
}

// notify shows a diagnostic from the view on the status line.
func (m *viewModel) notify(msg string) { m.status = msg }

func (m *viewModel) Init() tea.Cmd { return nil }

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if m.searching {
			m.searchKey(msg)
			return m, nil
		}
		return m, m.key(msg)
	case tea.MouseMsg:
		m.mouse(msg)
	}
	return m, nil
}

func (m *viewModel) resize(w, h int) {
	m.width, m.height = w, h
	m.canvas.Resize(w, max(h-chromeRows, 1))
	cw, ch := m.canvas.Size()
	m.v.Resize(cw, ch)
	if m.ready {
		return
	}
	m.ready = true
	if err := m.v.Refresh(m.ctx); err != nil {
		m.status = err.Error()
		return
	}
	if m.zoom > 0 && m.zoom != 1 {
		m.v.Zoom(layout.Point{X: cw / 2, Y: ch / 2}, m.zoom)
	}
}

func (m *viewModel) key(msg tea.KeyMsg) tea.Cmd {
	cw, ch := m.canvas.Size()
	center := layout.Point{X: cw / 2, Y: ch / 2}
	m.status = ""

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if m.unsubscribeFn != nil {
			m.unsubscribeFn()
		}
		return tea.Quit
	case "t":
		m.moved(m.v.FollowTrue(), "no true branch")
	case "f":
		m.moved(m.v.FollowFalse(), "no false branch")
	case "g", "enter":
		m.moved(m.v.FollowJump(), "no successor")
	case "tab":
		m.v.NextBlock()
	case "shift+tab":
		m.v.PrevBlock()
	case "left", "h":
		m.v.Pan(panCells*cellW, 0)
	case "right", "l":
		m.v.Pan(-panCells*cellW, 0)
	case "up", "k":
		m.v.Pan(0, panCells*cellH/2)
	case "down", "j":
		m.v.Pan(0, -panCells*cellH/2)
	case "+", "=":
		m.v.Zoom(center, zoomStep)
	case "-":
		m.v.Zoom(center, 1/zoomStep)
	case "0":
		m.v.Fit()
	case "/":
		m.searching, m.query = true, ""
	case "n":
		if mt, ok := m.v.FindNext(); ok {
			m.status = fmt.Sprintf("match at %#x", mt.Addr)
		}
	case "y":
		m.copy()
	case "b":
		m.toggleBreakpoint()
	case "s":
		m.v.SetSynced(!m.v.Synced())
		m.status = "sync " + onOff(m.v.Synced())
	case "r":
		if err := m.v.Refresh(m.ctx); err != nil {
			m.status = err.Error()
		}
	case "T":
		m.cycleTheme()
	case "o":
		m.toggleOrientation()
	case "L":
		m.cycleStrategy()
	}
	return nil
}

func (m *viewModel) moved(ok bool, miss string) {
	if !ok {
		m.status = miss
	}
}

func (m *viewModel) searchKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		if _, ok := m.v.Find(m.query); !ok && m.query != "" {
			m.status = fmt.Sprintf("no match for %q", m.query)
		}
	case tea.KeyEsc, tea.KeyCtrlC:
		m.searching = false
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.query += " "
	case tea.KeyRunes:
		m.query += string(msg.Runes)
	}
}

func (m *viewModel) mouse(msg tea.MouseMsg) {
	if msg.Y >= m.canvas.rows {
		return
	}
	p := cellCenter(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.v.Zoom(p, zoomStep)
	case msg.Button == tea.MouseButtonWheelDown:
		m.v.Zoom(p, 1/zoomStep)
	case msg.Action == tea.MouseActionMotion:
		m.v.Hover(p)
		if tip, ok := m.v.TooltipAt(p); ok {
			m.status, m.tooltip = tip, true
		} else if m.tooltip {
			m.status, m.tooltip = "", false
		}
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		now := time.Now()
		double := msg.X == m.lastCol && msg.Y == m.lastRow && now.Sub(m.lastClick) <= doubleClickWindow
		m.lastClick, m.lastCol, m.lastRow = now, msg.X, msg.Y
		if double {
			m.lastClick = time.Time{}
			if err := m.v.DoubleClick(m.ctx, p); err != nil {
				m.status = err.Error()
			}
			return
		}
		m.v.Click(p)
	}
}

func (m *viewModel) copy() {
	text, err := m.v.Copy(m.clip)
	switch {
	case err != nil:
		m.status = "copy failed: " + err.Error()
	case text == "":
		m.status = "nothing selected"
	default:
		m.status = fmt.Sprintf("copied %q", text)
	}
}

func (m *viewModel) toggleBreakpoint() {
	snap := m.v.Snapshot()
	key, ok := m.v.Selection().Selected()
	row, hasRow := m.v.Selection().Row()
	if snap == nil || !ok || !hasRow || row < 0 {
		m.status = "select an instruction first"
		return
	}
	blk, ok := snap.Content.Block(key)
	if !ok || row >= len(blk.Lines) {
		return
	}
	addr := blk.Lines[row].Addr
	m.status = fmt.Sprintf("breakpoint %#x %s", addr, onOff(m.v.ToggleBreakpoint(addr)))
}

func (m *viewModel) cycleTheme() {
	names := render.ThemeNames()
	next := names[(slices.Index(names, m.v.Theme().Name)+1)%len(names)]
	t, _ := render.ThemeByName(next)
	m.v.SetTheme(t)
	m.status = "theme " + next
}

func (m *viewModel) toggleOrientation() {
	o := layout.Horizontal
	if m.v.LayoutConfig().Orientation == layout.Horizontal {
		o = layout.Vertical
	}
	if err := m.v.SetOrientation(m.ctx, o); err != nil {
		m.status = err.Error()
		return
	}
	m.status = o.String()
}

func (m *viewModel) cycleStrategy() {
	all := layout.Strategies()
	next := all[(slices.Index(all, m.v.LayoutConfig().Strategy)+1)%len(all)]
	if err := m.v.SetStrategy(m.ctx, next); err != nil {
		m.status = err.Error()
		return
	}
	m.status = string(next)
}

func (m *viewModel) View() string {
	if !m.ready {
		return "loading…"
	}
	m.v.Draw(m.ctx, m.canvas)

	var b strings.Builder
	b.WriteString(m.canvas.String())
	b.WriteByte('\n')
	b.WriteString(statusBarStyle.Width(m.width).Render(m.statusLine()))
	b.WriteByte('\n')
	if m.searching {
		b.WriteString(searchStyle.Render("/" + m.query + "▏"))
	} else {
		b.WriteString(helpStyle.Render(truncate(helpLine, m.width)))
	}
	return b.String()
}

func (m *viewModel) statusLine() string {
	parts := []string{m.v.Title(), fmt.Sprintf("%.0f%%", m.v.Viewport().Scale()*100)}
	if m.v.Synced() {
		parts = append(parts, "synced")
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return " " + strings.Join(parts, " · ")
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

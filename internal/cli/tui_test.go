package cli

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/builder"
	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/engine/snapshot"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/pipeline"
	"github.com/matzehuels/disgraph/pkg/view"
)

type fakeClipboard struct{ text string }

func (f *fakeClipboard) WriteAll(text string) error {
	f.text = text
	return nil
}

func newTestModel(t *testing.T) *viewModel {
	t.Helper()
	e, err := snapshot.Load(filepath.Join("testdata", "snapshot.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	quiet := log.NewWithOptions(io.Discard, log.Options{})
	r := pipeline.NewRunner(e, nil, nil, quiet)
	v, err := view.New(builder.CFG{}, r,
		view.WithMetrics(content.FixedMetrics{Char: cellW, Line: cellH}, 12),
		view.WithContent(0, cellH),
		view.WithMinCharHeight(cellH),
		view.WithScaleLimits(1.0/16, 8),
		view.WithAddress(0x1000),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(v.Close)

	m := newViewModel(context.Background(), v, &fakeClipboard{}, 1)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func press(m *viewModel, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = m.Update(msg)
	}
	return cmd
}

func selectedKey(m *viewModel) graph.Key {
	k, _ := m.v.Selection().Selected()
	return k
}

func TestViewModelLoads(t *testing.T) {
	m := newTestModel(t)
	if m.v.Snapshot() == nil || m.v.Snapshot().Empty() {
		t.Fatal("graph not loaded on first resize")
	}
	cols, rows := m.canvas.cols, m.canvas.rows
	if cols != 120 || rows != 40-chromeRows {
		t.Errorf("canvas = %dx%d", cols, rows)
	}
	out := m.View()
	if !strings.Contains(out, "main") {
		t.Errorf("status line lacks the title:\n%s", out)
	}
	if got := len(strings.Split(out, "\n")); got != 40 {
		t.Errorf("view has %d lines, want 40", got)
	}
}

func TestViewModelNavigation(t *testing.T) {
	m := newTestModel(t)

	press(m, "t")
	if selectedKey(m) != 0x1020 {
		t.Errorf("t -> %#x, want 0x1020", selectedKey(m))
	}
	press(m, "f")
	if m.status != "no false branch" {
		t.Errorf("status = %q", m.status)
	}

	if err := m.v.ShowAddress(0x1000); err != nil {
		t.Fatal(err)
	}
	press(m, "f")
	if selectedKey(m) != 0x1010 {
		t.Errorf("f -> %#x, want 0x1010", selectedKey(m))
	}
	press(m, "g")
	if selectedKey(m) != 0x1020 {
		t.Errorf("g -> %#x, want 0x1020", selectedKey(m))
	}

	order := m.v.Layout().Order
	press(m, "tab")
	if got := selectedKey(m); got == 0x1020 || !containsKey(order, got) {
		t.Errorf("tab -> %#x", got)
	}
}

func containsKey(keys []graph.Key, k graph.Key) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}

func TestViewModelSearch(t *testing.T) {
	m := newTestModel(t)

	press(m, "/", "r", "e", "t", "enter")
	if m.searching {
		t.Fatal("still searching after enter")
	}
	if k, _, _ := m.v.Snapshot().Content.Locate(0x1020); selectedKey(m) != k {
		t.Errorf("search selected %#x", selectedKey(m))
	}

	press(m, "/", "z", "z", "enter")
	if !strings.Contains(m.status, "no match") {
		t.Errorf("status = %q", m.status)
	}

	press(m, "/", "x", "esc")
	if m.searching {
		t.Error("esc did not leave search")
	}
}

func TestViewModelSettings(t *testing.T) {
	m := newTestModel(t)

	press(m, "T")
	if m.v.Theme().Name != "dark" || m.status != "theme dark" {
		t.Errorf("theme = %q, status %q", m.v.Theme().Name, m.status)
	}

	before := m.v.LayoutConfig().Strategy
	press(m, "L")
	if m.v.LayoutConfig().Strategy == before {
		t.Error("L did not change the strategy")
	}

	press(m, "o")
	if m.v.LayoutConfig().Orientation != layout.Horizontal {
		t.Error("o did not switch to horizontal")
	}

	scale := m.v.Viewport().Scale()
	press(m, "+")
	if m.v.Viewport().Scale() <= scale {
		t.Error("+ did not zoom in")
	}
}

func TestViewModelCopyAndQuit(t *testing.T) {
	m := newTestModel(t)
	m.v.Selection().Clear()
	press(m, "y")
	if m.status != "nothing selected" {
		t.Errorf("status = %q", m.status)
	}

	if cmd := press(m, "q"); cmd == nil {
		t.Fatal("q returned no command")
	} else if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestViewModelHoverTooltip(t *testing.T) {
	m := newTestModel(t)

	col, row, tip := -1, -1, ""
	for y := 0; y < m.canvas.rows && col < 0; y++ {
		for x := 0; x < m.canvas.cols; x++ {
			if s, ok := m.v.TooltipAt(cellCenter(x, y)); ok {
				col, row, tip = x, y, s
				break
			}
		}
	}
	if col < 0 {
		t.Fatal("no cell over an instruction row")
	}

	m.Update(tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionMotion})
	if m.status != tip {
		t.Errorf("status = %q, want tooltip %q", m.status, tip)
	}

	m.Update(tea.MouseMsg{X: 0, Y: m.canvas.rows - 1, Action: tea.MouseActionMotion})
	if _, ok := m.v.TooltipAt(cellCenter(0, m.canvas.rows-1)); !ok && m.status != "" {
		t.Errorf("tooltip kept after leaving the row: %q", m.status)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "…"},
		{"hello", 0, "hello"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

package render

import (
	"context"
	"image/color"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/observability"
	"github.com/matzehuels/disgraph/pkg/viewport"
)

var testMetrics = content.FixedMetrics{Char: 8, Line: 16}

func twoBlockFrame() Frame {
	m := content.New(content.Options{Padding: 4})
	m.Add(1, "main", []content.RawLine{
		{Addr: 0x10, Text: "push rbp", Size: 1},
		{Addr: 0x11, Text: "mov rbp, rsp", Size: 3},
	})
	m.Add(2, "", []content.RawLine{{Addr: 0x14, Text: "ret", Size: 1}})
	res := &layout.Result{
		Order: []graph.Key{1, 2, 3},
		Nodes: map[graph.Key]layout.Rect{
			1: {X: 10, Y: 10, W: 200, H: 60},
			2: {X: 10, Y: 120, W: 200, H: 30},
			3: {X: 2000, Y: 2000, W: 50, H: 50},
		},
		Edges: []layout.EdgePath{
			{From: 1, To: 2, Kind: graph.EdgeJump, Points: []layout.Point{{X: 110, Y: 70}, {X: 110, Y: 120}}},
			{From: 2, To: 3, Kind: graph.EdgeCall, Points: []layout.Point{{X: 2020, Y: 1900}, {X: 2020, Y: 2000}}},
		},
	}
	return Frame{
		Layout:   res,
		Content:  m,
		Metrics:  testMetrics,
		FontSize: 12,
		Viewport: viewport.New(400, 300),
		Theme:    Light,
	}
}

func TestDrawCulling(t *testing.T) {
	rec := NewRecorder(400, 300)
	var p Pipeline
	st := p.Draw(context.Background(), rec, twoBlockFrame())

	if st.Drawn != 2 || st.Culled != 1 {
		t.Errorf("drawn/culled = %d/%d, want 2/1", st.Drawn, st.Culled)
	}
	if st.Edges != 1 || st.EdgesCulled != 1 {
		t.Errorf("edges/culled = %d/%d, want 1/1", st.Edges, st.EdgesCulled)
	}
	if st.TextSkipped {
		t.Error("text should be drawn at scale 1")
	}
	if got := rec.Count(OpArrow); got != 1 {
		t.Errorf("arrows = %d, want 1", got)
	}
	if rec.Ops[0].Kind != OpClear {
		t.Errorf("first op = %s, want clear", rec.Ops[0].Kind)
	}
}

func TestDrawSkipsIllegibleText(t *testing.T) {
	f := twoBlockFrame()
	f.Viewport.SetZoom(layout.Point{}, 0.1)
	rec := NewRecorder(400, 300)
	var p Pipeline
	st := p.Draw(context.Background(), rec, f)

	if !st.TextSkipped {
		t.Fatal("text should be skipped at scale 0.1")
	}
	if n := rec.Count(OpText); n != 0 {
		t.Errorf("text ops = %d, want 0", n)
	}
	if n := rec.Count(OpStrokeRect); n != 3 {
		t.Errorf("outlines = %d, want 3", n)
	}
}

func TestDrawLayerOrder(t *testing.T) {
	f := twoBlockFrame()
	f.Layout.Order = []graph.Key{1}
	f.Layout.Edges = nil
	f.Overlays = Overlays{
		Coverage:    map[graph.Key]bool{1: true},
		Current:     1,
		HasCurrent:  true,
		CurrentAddr: 0x10,
		Selection:   &Selection{Key: 1, Row: 1, HasRow: true},
		SearchToken: "rbp",
		Breakpoints: map[uint64]bool{0x11: true},
	}
	rec := NewRecorder(400, 300)
	var p Pipeline
	p.Draw(context.Background(), rec, f)

	var fills []color.RGBA
	stroke, firstText := -1, -1
	for i, op := range rec.Ops {
		switch op.Kind {
		case OpFillRect:
			if stroke >= 0 {
				t.Errorf("fill at %d after outline", i)
			}
			fills = append(fills, op.Color)
		case OpStrokeRect:
			stroke = i
			if op.Color != Light.SelectedBorder {
				t.Errorf("outline colour = %v, want selected border", op.Color)
			}
		case OpText:
			if firstText < 0 {
				firstText = i
			}
		}
	}
	want := []color.RGBA{
		Light.BlockFill,
		Light.Coverage,
		Light.CurrentInstr,
		Light.Selection,
		Light.SearchToken, Light.SearchToken,
		Light.Breakpoint,
	}
	if !slices.Equal(fills, want) {
		t.Errorf("fill colours =\n%v\nwant\n%v", fills, want)
	}
	if firstText < stroke {
		t.Errorf("text at %d drawn before outline at %d", firstText, stroke)
	}
	if texts := rec.Texts(); len(texts) == 0 || texts[0] != "main" {
		t.Errorf("texts = %q, want title first", texts)
	}
}

func TestDrawRowGeometry(t *testing.T) {
	f := twoBlockFrame()
	f.Layout.Order = []graph.Key{1}
	f.Layout.Edges = nil
	f.Overlays = Overlays{Current: 1, HasCurrent: true, CurrentAddr: 0x12}
	rec := NewRecorder(400, 300)
	var p Pipeline
	p.Draw(context.Background(), rec, f)

	var rows []layout.Rect
	for _, op := range rec.Ops {
		if op.Kind == OpFillRect && op.Color == Light.CurrentInstr {
			rows = append(rows, op.Rect)
		}
	}
	// 0x12 falls inside the 3-byte instruction at 0x11: second line, below
	// the title.
	want := layout.Rect{X: 10, Y: 10 + 4 + 2*16, W: 200, H: 16}
	if len(rows) != 1 || rows[0] != want {
		t.Errorf("current row = %v, want [%v]", rows, want)
	}
}

func TestDrawMessage(t *testing.T) {
	rec := NewRecorder(400, 300)
	var p Pipeline
	st := p.Draw(context.Background(), rec, Frame{
		Layout:   &layout.Result{},
		Viewport: viewport.New(400, 300),
		Theme:    Dark,
		Message:  "No function at 0x0",
	})
	if st.Drawn != 0 {
		t.Errorf("drawn = %d, want 0", st.Drawn)
	}
	if texts := rec.Texts(); !slices.Equal(texts, []string{"No function at 0x0"}) {
		t.Errorf("texts = %q", texts)
	}
	if rec.Ops[0].Color != Dark.Background {
		t.Errorf("background = %v, want dark", rec.Ops[0].Color)
	}
}

func TestDrawCustomDrawer(t *testing.T) {
	f := twoBlockFrame()
	var keys []graph.Key
	p := Pipeline{Drawer: func(c Canvas, v BlockView) { keys = append(keys, v.Key) }}
	p.Draw(context.Background(), NewRecorder(400, 300), f)
	if !slices.Equal(keys, []graph.Key{1, 2}) {
		t.Errorf("drawer keys = %v, want [1 2]", keys)
	}
}

func TestDrawCentered(t *testing.T) {
	m := content.New(content.Options{})
	m.Add(7, "", []content.RawLine{{Text: "node"}})
	blk, _ := m.Block(7)
	rec := NewRecorder(100, 100)
	DrawCentered(rec, BlockView{
		Rect:     layout.Rect{X: 0, Y: 0, W: 100, H: 40},
		Block:    blk,
		Scale:    1,
		Metrics:  testMetrics,
		FontSize: 12,
		Theme:    Light,
	})
	if len(rec.Ops) != 1 {
		t.Fatalf("ops = %d, want 1", len(rec.Ops))
	}
	if got := rec.Ops[0].Rect; got.X != 34 || got.Y != 12 {
		t.Errorf("label at (%v,%v), want (34,12)", got.X, got.Y)
	}
}

type frameCounter struct {
	observability.NoopRenderHooks
	frames int
	drawn  int
}

func (h *frameCounter) OnFrame(_ context.Context, drawn, _, _ int, _ bool, _ time.Duration) {
	h.frames++
	h.drawn += drawn
}

func TestDrawReportsFrame(t *testing.T) {
	h := &frameCounter{}
	observability.SetRenderHooks(h)
	defer observability.Reset()

	var p Pipeline
	p.Draw(context.Background(), NewRecorder(400, 300), twoBlockFrame())
	if h.frames != 1 || h.drawn != 2 {
		t.Errorf("hook saw %d frames, %d drawn", h.frames, h.drawn)
	}
}

func TestThemeByName(t *testing.T) {
	for _, name := range ThemeNames() {
		th, ok := ThemeByName(name)
		if !ok || th.Name != name {
			t.Errorf("ThemeByName(%q) = %q, %v", name, th.Name, ok)
		}
	}
	if _, ok := ThemeByName("neon"); ok {
		t.Error("unknown theme should not resolve")
	}
	if Light.EdgeColor(graph.EdgeTrue) == Light.EdgeColor(graph.EdgeFalse) {
		t.Error("true and false edges should differ")
	}
}

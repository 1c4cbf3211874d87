package selection

import (
	"context"
	"testing"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
)

func testScene() Scene {
	m := content.New(content.Options{Padding: 4})
	m.Add(1, "main", []content.RawLine{
		{Addr: 0x10, Text: "push rbp", Size: 1},
		{Addr: 0x11, Text: "mov rbp, rsp", Size: 3},
	})
	m.Add(2, "", []content.RawLine{{Addr: 0x20, Text: "ret", Size: 1}})
	return Scene{
		Layout: &layout.Result{
			Order: []graph.Key{1, 2},
			Nodes: map[graph.Key]layout.Rect{
				1: {X: 100, Y: 100, W: 200, H: 60},
				2: {X: 100, Y: 200, W: 200, H: 24},
			},
		},
		Content: m,
		Metrics: content.FixedMetrics{Char: 8, Line: 16},
	}
}

// at returns the point inside block 1 on the given row and column.
func at(row, col int) layout.Point {
	return layout.Point{X: 100 + 4 + float64(col)*8 + 1, Y: 100 + 4 + float64(row+1)*16 + 2}
}

func TestHitTest(t *testing.T) {
	s := testScene()
	tests := []struct {
		name  string
		p     layout.Point
		ok    bool
		key   graph.Key
		row   int
		token string
	}{
		{"token", at(1, 5), true, 1, 1, "rbp"},
		{"mnemonic", at(0, 0), true, 1, 0, "push"},
		{"title", at(-1, 0), true, 1, -1, ""},
		{"blank cell", at(0, 4), true, 1, 0, ""},
		{"second block", layout.Point{X: 110, Y: 210}, true, 2, 0, "ret"},
		{"outside", layout.Point{X: 10, Y: 10}, false, 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := s.HitTest(tt.p)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if h.Key != tt.key || h.Row != tt.row || h.Token.Text != tt.token {
				t.Errorf("hit = %+v, want key %d row %d token %q", h, tt.key, tt.row, tt.token)
			}
		})
	}
}

func TestClickStates(t *testing.T) {
	s := testScene()
	c := New()
	if c.State() != Idle {
		t.Fatalf("initial state = %s", c.State())
	}

	if !c.Hover(s, at(0, 0)) || c.State() != BlockHovered {
		t.Errorf("hover: state = %s", c.State())
	}
	if c.Hover(s, at(1, 0)) {
		t.Error("moving within the same block should not report a change")
	}

	c.Click(s, at(1, 5))
	if c.State() != TokenSelected || c.Token() != "rbp" {
		t.Errorf("state = %s token = %q", c.State(), c.Token())
	}
	if row, ok := c.Row(); !ok || row != 1 {
		t.Errorf("row = %d, %v", row, ok)
	}

	c.Click(s, at(-1, 0))
	if c.State() != BlockSelected || c.Token() != "" {
		t.Errorf("title click: state = %s token = %q", c.State(), c.Token())
	}

	c.Hover(s, layout.Point{})
	if c.State() != BlockSelected {
		t.Errorf("hover must not leave selection, state = %s", c.State())
	}

	c.Click(s, layout.Point{X: 5, Y: 5})
	if c.State() != Idle || c.Overlay() != nil {
		t.Errorf("click on empty space: state = %s", c.State())
	}
}

func TestDoubleClickFirstXref(t *testing.T) {
	var diags []string
	c := New(WithDiagnostics(func(msg string) { diags = append(diags, msg) }))
	var asked uint64
	xrefs := func(_ context.Context, addr uint64) ([]uint64, error) {
		asked = addr
		return []uint64{0x400, 0x500}, nil
	}

	target, ok, err := c.DoubleClick(context.Background(), testScene(), at(1, 0), xrefs)
	if err != nil || !ok {
		t.Fatalf("DoubleClick = %#x, %v, %v", target, ok, err)
	}
	if asked != 0x11 || target != 0x400 {
		t.Errorf("asked %#x, got %#x; want 0x11 -> 0x400", asked, target)
	}
	if len(diags) != 1 {
		t.Errorf("diagnostics = %q, want one", diags)
	}

	if _, ok, _ := c.DoubleClick(context.Background(), testScene(), at(-1, 0), xrefs); ok {
		t.Error("double click on the title should not seek")
	}
}

func TestPrune(t *testing.T) {
	s := testScene()
	c := New()
	c.Click(s, at(1, 5))

	kept := graph.New("")
	_ = kept.AddBlock(graph.Block{Key: 1})
	shorter := content.New(content.Options{})
	shorter.Add(1, "main", []content.RawLine{{Text: "nop"}})

	if !c.Prune(kept, shorter) {
		t.Fatal("selection should survive when its block remains")
	}
	if _, ok := c.Row(); ok {
		t.Error("row past the new line count should be dropped")
	}
	if c.Token() != "rbp" {
		t.Errorf("token = %q, want kept", c.Token())
	}

	gone := graph.New("")
	_ = gone.AddBlock(graph.Block{Key: 9})
	if c.Prune(gone, nil) {
		t.Fatal("selection should be cleared when its block disappears")
	}
	if c.State() != Idle || c.Token() != "" {
		t.Errorf("state = %s token = %q", c.State(), c.Token())
	}
}

type clip struct{ text string }

func (c *clip) WriteAll(s string) error { c.text = s; return nil }

func TestCopyAndSelect(t *testing.T) {
	c := New()
	var cb clip
	if got, _ := c.Copy(&cb); got != "" || cb.text != "" {
		t.Error("nothing should be copied without a token")
	}
	c.Click(testScene(), at(0, 6))
	if got, err := c.Copy(&cb); err != nil || got != "rbp" || cb.text != "rbp" {
		t.Errorf("Copy = %q, %v (clipboard %q)", got, err, cb.text)
	}

	c.Select(2, -2)
	if k, ok := c.Selected(); !ok || k != 2 {
		t.Errorf("Selected = %d, %v", k, ok)
	}
	ov := c.Overlay()
	if ov == nil || ov.Key != 2 || ov.HasRow || ov.Token != "" {
		t.Errorf("overlay = %+v", ov)
	}
}

package view

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/builder"
	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/engine/snapshot"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/pipeline"
	"github.com/matzehuels/disgraph/pkg/render"
	"github.com/matzehuels/disgraph/pkg/seek"
	"github.com/matzehuels/disgraph/pkg/selection"
)

var testData = snapshot.Data{
	Functions: []engine.Function{
		{
			Name: "main", Entry: 0x1000, Size: 0x30,
			Blocks: []engine.BasicBlock{
				{Addr: 0x1000, Size: 0x10, Jump: 0x1010, Fail: 0x1020, Instructions: []engine.Instruction{
					{Addr: 0x1000, Text: "cmp edi, 1"}, {Addr: 0x1004, Text: "jne 0x1010"},
				}},
				{Addr: 0x1010, Size: 0x10, Jump: 0x1020, Instructions: []engine.Instruction{{Addr: 0x1010, Text: "call helper"}}},
				{Addr: 0x1020, Size: 0x10, Instructions: []engine.Instruction{{Addr: 0x1020, Text: "ret"}}},
			},
		},
		{
			Name: "helper", Entry: 0x2000, Size: 0x10,
			Blocks: []engine.BasicBlock{
				{Addr: 0x2000, Size: 0x10, Instructions: []engine.Instruction{
					{Addr: 0x2000, Text: "push rbp"}, {Addr: 0x2004, Text: "ret"},
				}},
			},
		},
	},
	Xrefs: []engine.Xref{{From: 0x1010, To: 0x2000, Kind: "CALL"}},
}

var testMetrics = content.FixedMetrics{Char: 8, Line: 16}

func newView(t *testing.T, opts ...Option) *View {
	t.Helper()
	quiet := log.NewWithOptions(io.Discard, log.Options{})
	r := pipeline.NewRunner(snapshot.New(testData), nil, nil, quiet)
	opts = append([]Option{WithMetrics(testMetrics, 12), WithAddress(0x1000)}, opts...)
	v, err := New(builder.CFG{}, r, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(v.Close)
	return v
}

type recorder struct{ events []Event }

func (r *recorder) on(e Event) { r.events = append(r.events, e) }

func (r *recorder) count(k EventKind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// rowPoint returns the screen point over the first column of row.
func rowPoint(v *View, k graph.Key, row int) layout.Point {
	r, _ := v.Layout().Rect(k)
	m := v.Snapshot().Content
	g := layout.Point{
		X: r.X + m.Padding() + testMetrics.Char/2,
		Y: r.Y + m.RowTop(k, row, testMetrics) + testMetrics.Line/2,
	}
	return v.Viewport().ToScreen(g)
}

func TestRefresh(t *testing.T) {
	v := newView(t)
	var rec recorder
	v.Subscribe(rec.on)

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if v.Snapshot().Graph.Len() != 3 || v.Title() != "main" {
		t.Fatalf("loaded %q with %d blocks", v.Title(), v.Snapshot().Graph.Len())
	}
	if rec.count(ViewRefreshed) != 1 || rec.events[0].View != v.ID() {
		t.Errorf("events = %+v", rec.events)
	}
	for _, k := range v.Snapshot().Graph.Keys() {
		r, _ := v.Layout().Rect(k)
		if !v.Viewport().IsVisible(r) {
			t.Errorf("block %#x not visible after fit", k)
		}
	}
}

func TestSelectionSurvivesReload(t *testing.T) {
	v := newView(t)
	ctx := context.Background()
	if err := v.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if !v.SelectBlock(0x1010) {
		t.Fatal("SelectBlock failed")
	}
	v.Pan(30, -10)
	before := v.Viewport().State()

	if err := v.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if k, ok := v.Selection().Selected(); !ok || k != 0x1010 {
		t.Errorf("selection = %#x, %v", k, ok)
	}
	if v.Viewport().State() != before {
		t.Error("viewport should be kept when the blocks are unchanged")
	}

	if err := v.ShowAddress(0x2004); err != nil {
		t.Fatal(err)
	}
	if v.Title() != "helper" {
		t.Fatalf("title = %q", v.Title())
	}
	if k, _ := v.Selection().Selected(); k != 0x2000 {
		t.Errorf("selection = %#x, want the block holding 0x2004", k)
	}
	if row, ok := v.Selection().Row(); !ok || row != 1 {
		t.Errorf("row = %d, %v", row, ok)
	}
}

func TestSeekBridge(t *testing.T) {
	cursor := seek.NewCursor(0x1000)
	v := newView(t, WithCursor(cursor))
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	var rec recorder
	v.Subscribe(rec.on)

	cursor.Seek(0x2004)
	if v.Title() != "helper" || rec.count(ViewRefreshed) != 1 {
		t.Fatalf("inbound seek: title %q, %d reloads", v.Title(), rec.count(ViewRefreshed))
	}

	rec.events = nil
	if err := v.ShowAddress(0x2000); err != nil {
		t.Fatal(err)
	}
	if cursor.Address() != 0x2000 {
		t.Errorf("cursor = %#x", cursor.Address())
	}
	if rec.count(ViewRefreshed) != 0 || rec.count(GraphMoved) != 1 {
		t.Errorf("outbound seek echoed: %+v", rec.events)
	}

	v.SetSynced(false)
	if v.Title() != "helper"+seek.UnsyncedSuffix {
		t.Errorf("title = %q", v.Title())
	}
	cursor.Seek(0x1000)
	if v.Title() != "helper"+seek.UnsyncedSuffix {
		t.Error("unsynced view followed the cursor")
	}
}

func TestLocalNavigationSeeks(t *testing.T) {
	cursor := seek.NewCursor(0x1000)
	v := newView(t, WithCursor(cursor))
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	var rec recorder
	v.Subscribe(rec.on)

	if !v.FollowTrue() {
		t.Fatal("FollowTrue failed")
	}
	if cursor.Address() != 0x1010 || v.Address() != 0x1010 {
		t.Errorf("after FollowTrue cursor = %#x, view = %#x", cursor.Address(), v.Address())
	}
	if snap := v.Snapshot(); !snap.HasCurrent || snap.Current != 0x1010 {
		t.Errorf("current block = %#x, %v", snap.Current, snap.HasCurrent)
	}

	rec.events = nil
	if !v.Click(rowPoint(v, 0x1000, 1)) {
		t.Fatal("click missed the block")
	}
	if cursor.Address() != 0x1004 || v.Snapshot().CurrentAddr != 0x1004 || v.Snapshot().Current != 0x1000 {
		t.Errorf("after click cursor = %#x, current = %#x", cursor.Address(), v.Snapshot().CurrentAddr)
	}
	// The cursor notification for our own seek must not reselect or
	// recentre, which would drop the clicked token.
	if v.Selection().Token() != "jne" {
		t.Errorf("token = %q, echo was applied", v.Selection().Token())
	}
	if rec.count(GraphMoved) != 0 || rec.count(ViewRefreshed) != 1 {
		t.Errorf("click events = %+v", rec.events)
	}

	if !v.NextBlock() {
		t.Fatal("NextBlock failed")
	}
	k, _ := v.Selection().Selected()
	if cursor.Address() != uint64(k) {
		t.Errorf("after NextBlock cursor = %#x, selected %#x", cursor.Address(), k)
	}

	v.SetSynced(false)
	v.FollowJump()
	if cursor.Address() != uint64(k) {
		t.Error("unsynced navigation moved the shared cursor")
	}
}

func TestLocalNavigationWithoutCursor(t *testing.T) {
	v := newView(t)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !v.FollowFalse() {
		t.Fatal("FollowFalse failed")
	}
	if v.Address() != 0x1020 || v.Snapshot().Current != 0x1020 {
		t.Errorf("address = %#x, current = %#x", v.Address(), v.Snapshot().Current)
	}
}

func TestDeferredRefresh(t *testing.T) {
	v := newView(t)
	ctx := context.Background()
	if err := v.SetVisible(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := v.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if err := v.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if v.Snapshot() != nil {
		t.Fatal("hidden view should not load")
	}

	var rec recorder
	v.Subscribe(rec.on)
	if err := v.SetVisible(ctx, true); err != nil {
		t.Fatal(err)
	}
	if v.Snapshot() == nil || rec.count(ViewRefreshed) != 1 {
		t.Errorf("pending refreshes should collapse into one, got %d", rec.count(ViewRefreshed))
	}
	if err := v.SetVisible(ctx, true); err != nil || rec.count(ViewRefreshed) != 1 {
		t.Error("nothing pending, nothing to do")
	}
}

func TestKeyboardNavigation(t *testing.T) {
	v := newView(t)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	selected := func() graph.Key { k, _ := v.Selection().Selected(); return k }

	if !v.FollowTrue() || selected() != 0x1010 {
		t.Errorf("FollowTrue -> %#x", selected())
	}
	if !v.FollowJump() || selected() != 0x1020 {
		t.Errorf("FollowJump -> %#x", selected())
	}
	if v.FollowJump() {
		t.Error("ret block has no successor")
	}

	if k, _ := v.Selection().Selected(); v.Snapshot().Current != k {
		t.Errorf("current block %#x does not follow the selection %#x", v.Snapshot().Current, k)
	}
	if err := v.ShowAddress(0x1000); err != nil {
		t.Fatal(err)
	}
	if !v.FollowFalse() || selected() != 0x1020 {
		t.Errorf("FollowFalse from entry -> %#x", selected())
	}

	order := v.Layout().Order
	v.SelectBlock(order[len(order)-1])
	if !v.NextBlock() || selected() != order[0] {
		t.Error("NextBlock should wrap around")
	}
	if !v.PrevBlock() || selected() != order[len(order)-1] {
		t.Error("PrevBlock should wrap around")
	}
}

func TestFind(t *testing.T) {
	v := newView(t)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	m, ok := v.Find("ret")
	if !ok || m.Key != 0x1020 {
		t.Fatalf("Find = %+v, %v", m, ok)
	}
	if v.Scene().Overlays.SearchToken != "ret" {
		t.Errorf("search token = %q", v.Scene().Overlays.SearchToken)
	}
	if _, ok := v.Find("zzzz"); ok {
		t.Error("no row matches zzzz")
	}
	if _, ok := v.FindNext(); ok {
		t.Error("FindNext without matches")
	}
}

func TestClickAndDoubleClick(t *testing.T) {
	v := newView(t)
	ctx := context.Background()
	if err := v.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	var rec recorder
	v.Subscribe(rec.on)

	if !v.Click(rowPoint(v, 0x1000, 1)) {
		t.Fatal("click missed the block")
	}
	if v.Selection().State() != selection.TokenSelected || v.Selection().Token() != "jne" {
		t.Errorf("state %v token %q", v.Selection().State(), v.Selection().Token())
	}
	var seekable []uint64
	for _, e := range rec.events {
		if e.Kind == SeekableChanged {
			seekable = append(seekable, e.Addr)
		}
	}
	if len(seekable) != 1 || seekable[0] != 0x1004 {
		t.Errorf("seekable = %x", seekable)
	}

	var clip fakeClipboard
	if text, err := v.Copy(&clip); err != nil || text != "jne" || clip.text != "jne" {
		t.Errorf("Copy = %q, %v", text, err)
	}

	if err := v.DoubleClick(ctx, rowPoint(v, 0x1010, 0)); err != nil {
		t.Fatal(err)
	}
	if v.Title() != "helper" {
		t.Errorf("double click should follow the call, title %q", v.Title())
	}
}

func TestTooltipAt(t *testing.T) {
	v := newView(t)
	if _, ok := v.TooltipAt(layout.Point{}); ok {
		t.Error("tooltip before load")
	}
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if tip, ok := v.TooltipAt(rowPoint(v, 0x1000, 0)); !ok || tip != "cmp edi, 1" {
		t.Errorf("TooltipAt(row 0) = %q, %v", tip, ok)
	}
	if tip, ok := v.TooltipAt(rowPoint(v, 0x1020, 0)); !ok || tip != "ret" {
		t.Errorf("TooltipAt(ret) = %q, %v", tip, ok)
	}
	if _, ok := v.TooltipAt(layout.Point{X: -1e6, Y: -1e6}); ok {
		t.Error("tooltip off the graph")
	}
}

type fakeClipboard struct{ text string }

func (c *fakeClipboard) WriteAll(s string) error { c.text = s; return nil }

func TestDraw(t *testing.T) {
	v := newView(t, WithAddress(0xdead))
	ctx := context.Background()
	if err := v.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	c := render.NewRecorder(640, 480)
	v.Draw(ctx, c)
	if texts := c.Texts(); len(texts) != 1 {
		t.Errorf("empty graph should draw its message, got %q", texts)
	}

	if err := v.ShowAddress(0x1000); err != nil {
		t.Fatal(err)
	}
	c.Reset()
	stats := v.Draw(ctx, c)
	if stats.Drawn != 3 || stats.Edges != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if w, h := v.Viewport().Size(); w != 640 || h != 480 {
		t.Errorf("viewport %vx%v should follow the canvas", w, h)
	}
}

func TestRestyleKeepsViewport(t *testing.T) {
	v := newView(t)
	ctx := context.Background()
	if err := v.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	v.Zoom(layout.Point{X: 10, Y: 10}, 0.5)
	before := v.Viewport().State()
	v.SetTheme(render.Dark)
	if v.Viewport().State() != before || v.Theme().Name != render.Dark.Name {
		t.Error("theme change should keep the viewport")
	}

	if err := v.SetOrientation(ctx, layout.Horizontal); err != nil {
		t.Fatal(err)
	}
	if v.Snapshot().Graph.Len() != 3 || v.LayoutConfig().Orientation != layout.Horizontal {
		t.Error("orientation change should keep the loaded graph")
	}
	if err := v.SetStrategy(ctx, "spiral"); err == nil {
		t.Error("unknown strategy accepted")
	}
}

func TestOverlays(t *testing.T) {
	v := newView(t)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	v.SetCoverage([]graph.Key{0x1000})
	if !v.ToggleBreakpoint(0x1004) {
		t.Error("breakpoint should be set")
	}
	o := v.Scene().Overlays
	if !o.Coverage[0x1000] || !o.Breakpoints[0x1004] || !o.HasCurrent || o.Current != 0x1000 {
		t.Errorf("overlays = %+v", o)
	}
	if v.ToggleBreakpoint(0x1004) {
		t.Error("second toggle should clear")
	}
}

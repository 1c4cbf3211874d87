package view

import (
	"context"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
)

// =============================================================================
// Seeking
// =============================================================================

// ShowLoaded centres on the block holding addr if the loaded graph has one
// and reports whether it did. The block becomes the current block.
func (v *View) ShowLoaded(addr uint64) bool {
	if v.snap == nil || v.snap.Empty() {
		return false
	}
	key, row, ok := v.snap.Content.Locate(addr)
	if !ok {
		if !v.snap.Graph.Has(graph.Key(addr)) {
			return false
		}
		key, row = graph.Key(addr), -2
	}
	v.req.Addr = addr
	v.snap.Current, v.snap.HasCurrent, v.snap.CurrentAddr = key, true, addr
	v.sel.Select(key, row)
	v.centerOn(key)
	return true
}

// ShowAddress navigates to addr: the view centres on it when it is loaded
// and rebuilds around it otherwise. A synced view also moves the shared
// cursor.
func (v *View) ShowAddress(addr uint64) error {
	if v.bridge != nil {
		v.bridge.Request(addr)
		return nil
	}
	if v.ShowLoaded(addr) {
		return nil
	}
	if err := v.Reload(addr); err != nil {
		return err
	}
	v.ShowLoaded(addr)
	return nil
}

// SelectBlock selects k without a row and centres on it.
func (v *View) SelectBlock(k graph.Key) bool {
	if v.snap == nil || !v.snap.Graph.Has(k) {
		return false
	}
	v.sel.Select(k, -2)
	v.centerOn(k)
	if blk, ok := v.snap.Content.Block(k); ok && len(blk.Lines) > 0 && blk.Lines[0].Addr != 0 {
		v.announce(k, blk.Lines[0].Addr)
	}
	return true
}

// announce makes addr in block k the current address after a local
// selection and requests it as the global seek. The selection and the
// viewport are left as they are.
func (v *View) announce(k graph.Key, addr uint64) {
	v.req.Addr = addr
	v.snap.Current, v.snap.HasCurrent, v.snap.CurrentAddr = k, true, addr
	v.emit(SeekableChanged, addr)
	if v.bridge != nil {
		v.bridge.Announce(addr)
	}
}

func (v *View) centerOn(k graph.Key) {
	if r, ok := v.res.Rect(k); ok {
		v.vp.CenterOn(r)
		v.emit(GraphMoved, 0)
	}
}

// =============================================================================
// Keyboard navigation
// =============================================================================

// focus is the block keyboard navigation starts from: the selection, else
// the current block, else the entry.
func (v *View) focus() (graph.Key, bool) {
	if v.snap == nil || v.snap.Empty() {
		return 0, false
	}
	if k, ok := v.sel.Selected(); ok {
		return k, true
	}
	if v.snap.HasCurrent {
		return v.snap.Current, true
	}
	return v.snap.Graph.Entry, true
}

func (v *View) follow(kinds ...graph.EdgeKind) bool {
	from, ok := v.focus()
	if !ok {
		return false
	}
	b, _ := v.snap.Graph.Block(from)
	for _, e := range b.Edges {
		for _, kind := range kinds {
			if e.Kind == kind {
				return v.SelectBlock(e.To)
			}
		}
	}
	return false
}

// FollowTrue selects the taken branch of the focused block.
func (v *View) FollowTrue() bool { return v.follow(graph.EdgeTrue) }

// FollowFalse selects the not-taken branch of the focused block.
func (v *View) FollowFalse() bool { return v.follow(graph.EdgeFalse) }

// FollowJump selects the unconditional successor, or the first edge of
// any other kind when there is none.
func (v *View) FollowJump() bool {
	return v.follow(graph.EdgeJump) ||
		v.follow(graph.EdgeGeneric, graph.EdgeCall, graph.EdgeTrue, graph.EdgeFalse)
}

// NextBlock selects the block after the focused one in layout order.
func (v *View) NextBlock() bool { return v.step(1) }

// PrevBlock selects the block before the focused one in layout order.
func (v *View) PrevBlock() bool { return v.step(-1) }

func (v *View) step(d int) bool {
	from, ok := v.focus()
	if !ok || len(v.res.Order) == 0 {
		return false
	}
	i := 0
	for j, k := range v.res.Order {
		if k == from {
			i = j + d
			break
		}
	}
	n := len(v.res.Order)
	return v.SelectBlock(v.res.Order[((i%n)+n)%n])
}

// =============================================================================
// Search
// =============================================================================

type searchState struct {
	query   string
	token   string
	matches []content.Match
	index   int
}

func (s *searchState) reset() { *s = searchState{} }

// Find searches every row for query, selects the best match and
// highlights its token. An empty query clears the search.
func (v *View) Find(query string) (content.Match, bool) {
	v.search.reset()
	if v.snap == nil || query == "" {
		v.emit(ViewRefreshed, v.req.Addr)
		return content.Match{}, false
	}
	v.search.query = query
	v.search.matches = v.snap.Content.Search(query)
	if len(v.search.matches) == 0 {
		return content.Match{}, false
	}
	return v.showMatch(0), true
}

// FindNext moves to the next match of the last search, wrapping around.
func (v *View) FindNext() (content.Match, bool) {
	if len(v.search.matches) == 0 {
		return content.Match{}, false
	}
	return v.showMatch((v.search.index + 1) % len(v.search.matches)), true
}

func (v *View) showMatch(i int) content.Match {
	m := v.search.matches[i]
	v.search.index = i
	v.search.token = m.Token.Text
	v.sel.Select(m.Key, m.Row)
	v.centerOn(m.Key)
	if m.Addr != 0 {
		v.emit(SeekableChanged, m.Addr)
	}
	return m
}

// =============================================================================
// Pointer and zoom
// =============================================================================

// Resize sets the screen size. The graph point at the centre is kept.
func (v *View) Resize(w, h float64) { v.vp.Resize(w, h) }

// Zoom multiplies the scale by factor around the screen point anchor.
func (v *View) Zoom(anchor layout.Point, factor float64) bool {
	if !v.vp.ZoomBy(anchor, factor) {
		return false
	}
	v.emit(ViewZoomed, 0)
	return true
}

// ZoomTo sets an absolute scale around the screen centre.
func (v *View) ZoomTo(scale float64) bool {
	w, h := v.vp.Size()
	if !v.vp.SetZoom(layout.Point{X: w / 2, Y: h / 2}, scale) {
		return false
	}
	v.emit(ViewZoomed, 0)
	return true
}

// Fit scales the whole graph onto the screen.
func (v *View) Fit() {
	if v.res == nil {
		return
	}
	v.vp.Fit(v.res.Bounds)
	v.emit(ViewZoomed, 0)
}

// Pan moves the view by a screen-space delta.
func (v *View) Pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	v.vp.Pan(dx, dy)
	v.emit(GraphMoved, 0)
}

// Hover updates the hovered block from a screen point.
func (v *View) Hover(p layout.Point) bool {
	return v.sel.Hover(v.scene(), v.vp.ToGraph(p))
}

// TooltipAt returns the untruncated text of the row under the screen
// point p. It reports false off the rows and for rows without text.
func (v *View) TooltipAt(p layout.Point) (string, bool) {
	if v.snap == nil || v.snap.Empty() {
		return "", false
	}
	h, ok := v.scene().HitTest(v.vp.ToGraph(p))
	if !ok || !h.HasRow {
		return "", false
	}
	tip, ok := v.snap.Content.Tooltip(h.Key, h.Row)
	return tip, ok && tip != ""
}

// Click selects what lies under the screen point p. Clicking an
// instruction seeks to its address.
func (v *View) Click(p layout.Point) bool {
	h, ok := v.sel.Click(v.scene(), v.vp.ToGraph(p))
	if ok && h.HasRow && h.Row >= 0 && h.Addr != 0 {
		v.announce(h.Key, h.Addr)
	}
	v.emit(ViewRefreshed, v.req.Addr)
	return ok
}

// DoubleClick selects like Click and follows the first cross-reference of
// the instruction under p.
func (v *View) DoubleClick(ctx context.Context, p layout.Point) error {
	target, ok, err := v.sel.DoubleClick(ctx, v.scene(), v.vp.ToGraph(p), v.xrefs)
	if err != nil || !ok {
		return err
	}
	return v.ShowAddress(target)
}

func (v *View) xrefs(ctx context.Context, addr uint64) ([]uint64, error) {
	refs, err := v.runner.Analyzer.CrossReferences(ctx, addr)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.To)
	}
	return out, nil
}

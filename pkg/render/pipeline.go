package render

import (
	"context"
	"image/color"
	"math"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/fonts"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/observability"
	"github.com/matzehuels/disgraph/pkg/viewport"
)

const (
	// DefaultMinCharHeight is the smallest on-screen row height, in pixels,
	// at which text is still drawn.
	DefaultMinCharHeight = 4.0
	// DefaultArrowSize is the arrowhead length at scale 1.
	DefaultArrowSize = 8.0
	// DefaultEdgeWidth is the edge stroke width at scale 1.
	DefaultEdgeWidth = 1.5
)

// Selection is the selected block, row and token to highlight.
type Selection struct {
	Key    graph.Key
	Row    int // -1 is the title row
	HasRow bool
	Token  string
}

// Overlays are the highlight layers painted over block fills.
type Overlays struct {
	Coverage    map[graph.Key]bool
	Current     graph.Key
	HasCurrent  bool
	CurrentAddr uint64
	Selection   *Selection
	SearchToken string
	Breakpoints map[uint64]bool
}

// Frame is everything needed for one paint.
type Frame struct {
	Layout   *layout.Result
	Content  *content.Model
	Metrics  content.Metrics
	FontSize float64
	Viewport *viewport.Viewport
	Theme    Theme
	Overlays Overlays

	// Message is drawn in place of the graph when the layout is empty.
	Message string
}

// BlockView is one block as handed to a NodeDrawer, in screen coordinates.
type BlockView struct {
	Key      graph.Key
	Rect     layout.Rect
	Block    *content.Block // nil when the block has no content
	Scale    float64
	Metrics  content.Metrics
	FontSize float64
	Padding  float64
	Theme    Theme
}

// Row returns the screen rectangle of row i. Row -1 is the title.
func (v BlockView) Row(i int) layout.Rect {
	line := v.Metrics.LineHeight() * v.Scale
	header := 0
	if v.Block != nil {
		header = v.Block.HeaderRows()
	}
	y := v.Rect.Y + v.Padding*v.Scale + float64(header+i)*line
	return layout.Rect{X: v.Rect.X, Y: y, W: v.Rect.W, H: line}
}

// Cells returns the screen rectangle spanning columns [start, end) of row i.
func (v BlockView) Cells(row, start, end int) layout.Rect {
	r := v.Row(row)
	cw := v.Metrics.CharWidth() * v.Scale
	return layout.Rect{
		X: v.Rect.X + v.Padding*v.Scale + float64(start)*cw,
		Y: r.Y,
		W: float64(end-start) * cw,
		H: r.H,
	}
}

// NodeDrawer paints the content of one block.
type NodeDrawer func(c Canvas, v BlockView)

// DrawInstructions paints the title row and every highlighted line.
func DrawInstructions(c Canvas, v BlockView) {
	if v.Block == nil {
		return
	}
	size := v.FontSize * v.Scale
	x0 := v.Rect.X + v.Padding*v.Scale
	cw := v.Metrics.CharWidth() * v.Scale
	if v.Block.Title != "" {
		c.Text(x0, v.Row(-1).Y, v.Block.Title, v.Theme.Title, size)
	}
	for i := range v.Block.Lines {
		y := v.Row(i).Y
		x := x0
		for _, sp := range v.Block.Lines[i].Spans {
			c.Text(x, y, sp.Text, v.Theme.SpanColor(sp.Style), size)
			x += float64(runewidth.StringWidth(sp.Text)) * cw
		}
	}
}

// DrawCentered paints a single label centred in the block: the title, or
// the first line when there is no title.
func DrawCentered(c Canvas, v BlockView) {
	if v.Block == nil {
		return
	}
	label := v.Block.Title
	if label == "" && len(v.Block.Lines) > 0 {
		label = v.Block.Lines[0].Text
	}
	if label == "" {
		return
	}
	w := float64(runewidth.StringWidth(label)) * v.Metrics.CharWidth() * v.Scale
	h := v.Metrics.LineHeight() * v.Scale
	ctr := v.Rect.Center()
	c.Text(ctr.X-w/2, ctr.Y-h/2, label, v.Theme.Text, v.FontSize*v.Scale)
}

// Stats reports what one paint did.
type Stats struct {
	Drawn       int
	Culled      int
	Edges       int
	EdgesCulled int
	TextSkipped bool
}

// Pipeline paints frames. The zero value uses the defaults.
type Pipeline struct {
	Drawer        NodeDrawer
	MinCharHeight float64
	ArrowSize     float64
	EdgeWidth     float64
}

// Draw paints f onto c.
func (p *Pipeline) Draw(ctx context.Context, c Canvas, f Frame) Stats {
	start := time.Now()
	var st Stats
	c.Clear(f.Theme.Background)

	if f.Layout == nil || len(f.Layout.Order) == 0 || f.Viewport == nil {
		p.drawMessage(c, f)
		observability.Render().OnFrame(ctx, 0, 0, 0, false, time.Since(start))
		return st
	}

	vp := f.Viewport
	scale := vp.Scale()
	visible := vp.Visible()
	mt := frameMetrics(f)
	st.TextSkipped = mt.LineHeight()*scale < or(p.MinCharHeight, DefaultMinCharHeight)

	arrow := or(p.ArrowSize, DefaultArrowSize)
	width := or(p.EdgeWidth, DefaultEdgeWidth) * math.Min(scale, 1)
	for _, e := range f.Layout.Edges {
		if len(e.Points) < 2 || !visible.Intersects(pathBounds(e.Points, arrow)) {
			st.EdgesCulled++
			continue
		}
		pts := make([]layout.Point, len(e.Points))
		for i, pt := range e.Points {
			pts[i] = vp.ToScreen(pt)
		}
		col := f.Theme.EdgeColor(e.Kind)
		c.Polyline(pts, col, width)
		c.Arrow(pts[len(pts)-1], pts[len(pts)-2], col, arrow*scale)
		st.Edges++
	}

	for _, k := range f.Layout.Order {
		r := f.Layout.Nodes[k]
		if !visible.Intersects(r) {
			st.Culled++
			continue
		}
		p.drawBlock(c, f, k, vp.RectToScreen(r), scale, mt, !st.TextSkipped)
		st.Drawn++
	}

	observability.Render().OnFrame(ctx, st.Drawn, st.Culled, st.Edges, st.TextSkipped, time.Since(start))
	return st
}

func (p *Pipeline) drawBlock(c Canvas, f Frame, k graph.Key, sr layout.Rect, scale float64, mt content.Metrics, text bool) {
	th, ov := f.Theme, f.Overlays
	v := BlockView{
		Key:      k,
		Rect:     sr,
		Scale:    scale,
		Metrics:  mt,
		FontSize: or(f.FontSize, fonts.DefaultSize),
		Theme:    th,
	}
	if f.Content != nil {
		v.Padding = f.Content.Padding()
		v.Block, _ = f.Content.Block(k)
	}
	blk := v.Block

	c.FillRect(sr, th.BlockFill)

	if ov.Coverage[k] {
		c.FillRect(sr, th.Coverage)
	}

	current := ov.HasCurrent && ov.Current == k
	if current && blk != nil {
		for i := range blk.Lines {
			if blk.Lines[i].Contains(ov.CurrentAddr) {
				c.FillRect(v.Row(i), th.CurrentInstr)
				break
			}
		}
	}

	selected := false
	if sel := ov.Selection; sel != nil {
		selected = sel.Key == k
		if selected && sel.HasRow {
			c.FillRect(v.Row(sel.Row), th.Selection)
		}
		if text && sel.Token != "" {
			fillOccurrences(c, v, sel.Token, th.Selection)
		}
	}

	if text && ov.SearchToken != "" {
		fillOccurrences(c, v, ov.SearchToken, th.SearchToken)
	}

	if len(ov.Breakpoints) > 0 && blk != nil {
		for i := range blk.Lines {
			if ov.Breakpoints[blk.Lines[i].Addr] {
				c.FillRect(v.Row(i), th.Breakpoint)
			}
		}
	}

	border, bw := th.BlockBorder, 1.0
	switch {
	case selected:
		border, bw = th.SelectedBorder, 2
	case current:
		border, bw = th.CurrentBorder, 2
	}
	c.StrokeRect(sr, border, bw)

	if text {
		drawer := p.Drawer
		if drawer == nil {
			drawer = DrawInstructions
		}
		drawer(c, v)
	}
}

func fillOccurrences(c Canvas, v BlockView, token string, col color.RGBA) {
	if v.Block == nil {
		return
	}
	for i := range v.Block.Lines {
		for _, t := range v.Block.Lines[i].Occurrences(token) {
			c.FillRect(v.Cells(i, t.Start, t.End), col)
		}
	}
}

func (p *Pipeline) drawMessage(c Canvas, f Frame) {
	if f.Message == "" {
		return
	}
	mt := frameMetrics(f)
	w, h := c.Size()
	tw := content.TextWidth(f.Message, mt)
	c.Text((w-tw)/2, (h-mt.LineHeight())/2, f.Message, f.Theme.Placeholder, or(f.FontSize, fonts.DefaultSize))
}

func frameMetrics(f Frame) content.Metrics {
	if f.Metrics == nil {
		return content.DefaultMetrics
	}
	return f.Metrics
}

// pathBounds returns the bounding box of pts grown by pad on every side, so
// that straight segments still have an area.
func pathBounds(pts []layout.Point, pad float64) layout.Rect {
	x0, y0 := pts[0].X, pts[0].Y
	x1, y1 := x0, y0
	for _, p := range pts[1:] {
		x0, x1 = math.Min(x0, p.X), math.Max(x1, p.X)
		y0, y1 = math.Min(y0, p.Y), math.Max(y1, p.Y)
	}
	return layout.Rect{X: x0 - pad, Y: y0 - pad, W: x1 - x0 + 2*pad, H: y1 - y0 + 2*pad}
}

func or(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

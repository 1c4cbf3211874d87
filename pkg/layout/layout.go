package layout

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/observability"
)

// Point is a position in graph space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in graph space.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the centre point.
func (r Rect) Center() Point { return Point{r.X + r.W/2, r.Y + r.H/2} }

// Intersects reports whether r and o overlap with positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Union returns the smallest rectangle containing r and o.
// An empty rectangle is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.W <= 0 && r.H <= 0 {
		return o
	}
	if o.W <= 0 && o.H <= 0 {
		return r
	}
	x, y := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	return Rect{X: x, Y: y, W: math.Max(r.Right(), o.Right()) - x, H: math.Max(r.Bottom(), o.Bottom()) - y}
}

// extend grows r to include p.
func (r Rect) extend(p Point) Rect {
	x0, y0 := math.Min(r.X, p.X), math.Min(r.Y, p.Y)
	x1, y1 := math.Max(r.Right(), p.X), math.Max(r.Bottom(), p.Y)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// EdgePath is a routed edge. The last point touches the target block.
type EdgePath struct {
	From   graph.Key      `json:"from"`
	To     graph.Key      `json:"to"`
	Kind   graph.EdgeKind `json:"kind"`
	Back   bool           `json:"back,omitempty"`
	Points []Point        `json:"points"`
}

// Result is the output of a layout pass.
type Result struct {
	Strategy    Strategy           `json:"strategy"`
	Orientation Orientation        `json:"orientation"`
	Nodes       map[graph.Key]Rect `json:"nodes"`
	Order       []graph.Key        `json:"order"`
	Edges       []EdgePath         `json:"edges"`
	Bounds      Rect               `json:"bounds"`
}

// Rect returns the rectangle assigned to k.
func (r *Result) Rect(k graph.Key) (Rect, bool) {
	rect, ok := r.Nodes[k]
	return rect, ok
}

// Apply copies positions and sizes onto the blocks of g.
func (r *Result) Apply(g *graph.Graph) {
	for _, b := range g.Blocks() {
		if rect, ok := r.Nodes[b.Key]; ok {
			b.X, b.Y, b.Width, b.Height = rect.X, rect.Y, rect.W, rect.H
		}
	}
}

// Strategy selects a layout algorithm.
type Strategy string

const (
	GridNarrow Strategy = "grid-narrow"
	GridMedium Strategy = "grid-medium"
	GridWide   Strategy = "grid-wide"
	Graphviz   Strategy = "graphviz"
)

// GridStrategies lists the built-in strategies, which are always available.
var GridStrategies = []Strategy{GridNarrow, GridMedium, GridWide}

// Strategies returns every strategy usable in this process.
func Strategies() []Strategy {
	out := slices.Clone(GridStrategies)
	if GraphvizAvailable() {
		out = append(out, Graphviz)
	}
	return out
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(s)
	if slices.Contains(GridStrategies, st) || st == Graphviz {
		return st, nil
	}
	return "", errors.New(errors.ErrCodeInvalidLayout, "unknown layout strategy %q", s)
}

// Spacing is the gap configuration of a grid strategy.
type Spacing struct {
	Horizontal float64 // between blocks in a layer
	Vertical   float64 // between layers
	Lane       float64 // between back-edge lanes
}

// Spacing returns the gaps used by s. Graphviz reuses the medium values for
// its node and rank separation.
func (s Strategy) Spacing() Spacing {
	switch s {
	case GridNarrow:
		return Spacing{Horizontal: 10, Vertical: 30, Lane: 6}
	case GridWide:
		return Spacing{Horizontal: 48, Vertical: 64, Lane: 14}
	default:
		return Spacing{Horizontal: 24, Vertical: 44, Lane: 10}
	}
}

// Orientation is the direction edges flow in.
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

func (o Orientation) String() string {
	if o == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// ParseOrientation accepts "vertical" or "horizontal".
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "vertical", "v", "":
		return Vertical, nil
	case "horizontal", "h":
		return Horizontal, nil
	}
	return Vertical, errors.New(errors.ErrCodeInvalidLayout, "unknown orientation %q", s)
}

// Config holds per-call layout parameters.
type Config struct {
	Strategy    Strategy
	Orientation Orientation
	// Margin surrounds the whole drawing. The first block of a single-block
	// graph sits at (Margin, Margin).
	Margin float64
}

// DefaultConfig returns the medium grid, top to bottom, with a 20 unit margin.
func DefaultConfig() Config {
	return Config{Strategy: GridMedium, Orientation: Vertical, Margin: 20}
}

// Engine computes layouts.
type Engine interface {
	Layout(ctx context.Context, g *graph.Graph, cfg Config) (*Result, error)
}

// Layouter dispatches to the strategy named in Config.
type Layouter struct {
	logger *log.Logger
}

// New creates a Layouter. A nil logger discards output.
func New(logger *log.Logger) *Layouter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Layouter{logger: logger}
}

// Layout runs the configured strategy on g. Blocks with a non-positive
// size are laid out as 1x1.
func (l *Layouter) Layout(ctx context.Context, g *graph.Graph, cfg Config) (res *Result, err error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil graph")
	}
	if cfg.Strategy == "" {
		cfg.Strategy = GridMedium
	}
	if _, err := ParseStrategy(string(cfg.Strategy)); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "layout %q", g.Title)
	}

	hooks := observability.Layout()
	hooks.OnLayoutStart(ctx, string(cfg.Strategy), g.Len())
	start := time.Now()
	defer func() {
		hooks.OnLayoutComplete(ctx, string(cfg.Strategy), time.Since(start), err)
	}()

	in := inputFrom(g, cfg.Orientation == Horizontal)
	switch cfg.Strategy {
	case Graphviz:
		res, err = layoutGraphviz(ctx, in, cfg.Strategy.Spacing())
	default:
		res, err = layoutGrid(ctx, in, cfg.Strategy.Spacing())
	}
	if err != nil {
		return nil, err
	}
	if cfg.Orientation == Horizontal {
		res.transpose()
	}
	res.finish(cfg.Margin)
	res.Strategy = cfg.Strategy
	res.Orientation = cfg.Orientation

	l.logger.Debug("layout", "graph", g.Title, "strategy", cfg.Strategy,
		"blocks", g.Len(), "edges", len(res.Edges),
		"width", fmt.Sprintf("%.0f", res.Bounds.W), "height", fmt.Sprintf("%.0f", res.Bounds.H))
	return res, nil
}

// input is the graph reduced to what the algorithms need, with sizes
// already transposed for horizontal layouts.
type input struct {
	keys  []graph.Key
	index map[graph.Key]int
	w, h  []float64
	out   [][]inEdge
	entry int
}

type inEdge struct {
	to   int
	kind graph.EdgeKind
}

func inputFrom(g *graph.Graph, transpose bool) *input {
	blocks := g.Blocks()
	in := &input{
		keys:  make([]graph.Key, len(blocks)),
		index: make(map[graph.Key]int, len(blocks)),
		w:     make([]float64, len(blocks)),
		h:     make([]float64, len(blocks)),
		out:   make([][]inEdge, len(blocks)),
	}
	for i, b := range blocks {
		in.keys[i] = b.Key
		in.index[b.Key] = i
		w, h := math.Max(b.Width, 1), math.Max(b.Height, 1)
		if transpose {
			w, h = h, w
		}
		in.w[i], in.h[i] = w, h
	}
	for i, b := range blocks {
		for _, e := range b.Edges {
			in.out[i] = append(in.out[i], inEdge{to: in.index[e.To], kind: e.Kind})
		}
	}
	if idx, ok := in.index[g.Entry]; ok {
		in.entry = idx
	}
	return in
}

func (r *Result) transpose() {
	for k, rect := range r.Nodes {
		r.Nodes[k] = Rect{X: rect.Y, Y: rect.X, W: rect.H, H: rect.W}
	}
	for i := range r.Edges {
		for j, p := range r.Edges[i].Points {
			r.Edges[i].Points[j] = Point{X: p.Y, Y: p.X}
		}
	}
}

// finish moves the drawing so its top-left corner is at (margin, margin)
// and computes Bounds including the margin on every side.
func (r *Result) finish(margin float64) {
	var content Rect
	for _, k := range r.Order {
		content = content.Union(r.Nodes[k])
	}
	for _, e := range r.Edges {
		for _, p := range e.Points {
			content = content.extend(p)
		}
	}
	dx, dy := margin-content.X, margin-content.Y
	for k, rect := range r.Nodes {
		rect.X += dx
		rect.Y += dy
		r.Nodes[k] = rect
	}
	for i := range r.Edges {
		for j := range r.Edges[i].Points {
			r.Edges[i].Points[j].X += dx
			r.Edges[i].Points[j].Y += dy
		}
	}
	if len(r.Order) == 0 {
		r.Bounds = Rect{}
		return
	}
	r.Bounds = Rect{W: content.W + 2*margin, H: content.H + 2*margin}
}

package layout

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/graph"
)

const pointsPerInch = 72.0

// GraphvizAvailable reports whether the embedded Graphviz runtime can be
// initialised. The probe runs once per process.
var GraphvizAvailable = sync.OnceValue(func() bool {
	gv, err := graphviz.New(context.Background())
	if err != nil {
		return false
	}
	_ = gv.Close()
	return true
})

// RenderDOT lays out a DOT document with the "dot" engine and renders it in
// the given Graphviz output format ("svg", "png", "dot", ...).
func RenderDOT(ctx context.Context, dot []byte, format string) ([]byte, error) {
	if !GraphvizAvailable() {
		return nil, errors.New(errors.ErrCodeToolUnavailable, "graphviz is not available")
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeToolUnavailable, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.Format(format), &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "graphviz render %s", format)
	}
	return buf.Bytes(), nil
}

func layoutGraphviz(ctx context.Context, in *input, sp Spacing) (*Result, error) {
	out, err := RenderDOT(ctx, layoutDOT(in, sp), "dot")
	if err != nil {
		return nil, err
	}
	return parseLaidOutDOT(in, out)
}

// layoutDOT describes the graph with fixed-size anonymous boxes. Nodes are
// named n<index> so the output can be mapped back without quoting issues.
func layoutDOT(in *input, sp Spacing) []byte {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  graph [rankdir=TB, splines=ortho, ordering=out, nodesep=%.3f, ranksep=%.3f];\n",
		sp.Horizontal/pointsPerInch, sp.Vertical/pointsPerInch)
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")
	for i := range in.keys {
		fmt.Fprintf(&buf, "  n%d [width=%.4f, height=%.4f];\n", i, in.w[i]/pointsPerInch, in.h[i]/pointsPerInch)
	}
	for from, edges := range in.out {
		for _, e := range edges {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", from, e.to)
		}
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

var (
	gvBBRe   = regexp.MustCompile(`bb="([^"]*)"`)
	gvEdgeRe = regexp.MustCompile(`"?n(\d+)"?\s*->\s*"?n(\d+)"?\s*\[([^\]]*)\]`)
	gvNodeRe = regexp.MustCompile(`[;{]\s*"?n(\d+)"?\s*\[([^\]]*)\]`)
	gvPosRe  = regexp.MustCompile(`\bpos="([^"]*)"`)
)

// parseLaidOutDOT reads node centres and edge control points from the
// "dot" output format and converts them to a top-left origin.
func parseLaidOutDOT(in *input, out []byte) (*Result, error) {
	text := strings.ReplaceAll(string(out), "\\\n", "")
	text = strings.ReplaceAll(text, "\n", " ")

	bb := gvBBRe.FindStringSubmatch(text)
	if bb == nil {
		return nil, errors.New(errors.ErrCodeInternal, "graphviz output has no bounding box")
	}
	box, err := parsePoints(bb[1])
	if err != nil || len(box) != 4 {
		return nil, errors.New(errors.ErrCodeInternal, "graphviz bounding box %q", bb[1])
	}
	top := box[3]
	flip := func(p Point) Point { return Point{X: p.X, Y: top - p.Y} }

	res := &Result{
		Nodes: make(map[graph.Key]Rect, len(in.keys)),
		Order: append([]graph.Key(nil), in.keys...),
	}
	for _, m := range gvNodeRe.FindAllStringSubmatch(text, -1) {
		i, _ := strconv.Atoi(m[1])
		pos := gvPosRe.FindStringSubmatch(m[2])
		if i >= len(in.keys) || pos == nil {
			continue
		}
		pts, err := parsePoints(pos[1])
		if err != nil || len(pts) != 2 {
			continue
		}
		c := flip(Point{pts[0], pts[1]})
		res.Nodes[in.keys[i]] = Rect{X: c.X - in.w[i]/2, Y: c.Y - in.h[i]/2, W: in.w[i], H: in.h[i]}
	}
	if len(res.Nodes) != len(in.keys) {
		return nil, errors.New(errors.ErrCodeInternal, "graphviz placed %d of %d blocks", len(res.Nodes), len(in.keys))
	}

	splines := make(map[[2]int][]Point)
	for _, m := range gvEdgeRe.FindAllStringSubmatch(text, -1) {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		if pos := gvPosRe.FindStringSubmatch(m[3]); pos != nil {
			pts := parseSpline(pos[1])
			for j := range pts {
				pts[j] = flip(pts[j])
			}
			splines[[2]int{from, to}] = pts
		}
	}
	for from, edges := range in.out {
		for _, e := range edges {
			src, dst := res.Nodes[in.keys[from]], res.Nodes[in.keys[e.to]]
			pts, ok := splines[[2]int{from, e.to}]
			if !ok || len(pts) < 2 {
				pts = []Point{src.Center(), {dst.Center().X, dst.Y}}
			}
			res.Edges = append(res.Edges, EdgePath{
				From:   in.keys[from],
				To:     in.keys[e.to],
				Kind:   e.kind,
				Back:   dst.Y <= src.Y,
				Points: pts,
			})
		}
	}
	return res, nil
}

func parsePoints(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseSpline parses an edge pos attribute: optional "s,x,y" and "e,x,y"
// markers followed by control points. The end point goes last.
func parseSpline(s string) []Point {
	var (
		pts   []Point
		start *Point
		end   *Point
	)
	for _, field := range strings.Fields(s) {
		parts := strings.Split(field, ",")
		var marker string
		if len(parts) == 3 {
			marker, parts = parts[0], parts[1:]
		}
		if len(parts) != 2 {
			continue
		}
		x, errX := strconv.ParseFloat(parts[0], 64)
		y, errY := strconv.ParseFloat(parts[1], 64)
		if errX != nil || errY != nil {
			continue
		}
		p := Point{x, y}
		switch marker {
		case "s":
			start = &p
		case "e":
			end = &p
		default:
			pts = append(pts, p)
		}
	}
	if start != nil {
		pts = append([]Point{*start}, pts...)
	}
	if end != nil {
		pts = append(pts, *end)
	}
	return pts
}

// Package nodelink writes graphs as Graphviz DOT and renders them with the
// embedded Graphviz runtime.
//
// # Overview
//
// [ToDOT] describes a graph snapshot as DOT source, one box per block and
// one coloured arrow per edge. The output is useful on its own (the "dot"
// export format) and as input to [Render], which lets Graphviz lay out and
// draw the diagram (the "gv-svg" and "gv-png" export formats).
//
//	dot := nodelink.ToDOT(g, m, nodelink.Options{Detailed: true})
//	svg, err := nodelink.Render(ctx, dot, nodelink.SVG)
//
// # Options
//
//   - Detailed: labels carry the block text instead of only the title
//   - Orientation: rankdir=TB for vertical, LR for horizontal
//   - Theme: node and edge colours
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz], which runs Graphviz
// in-process; no system installation is needed.
package nodelink

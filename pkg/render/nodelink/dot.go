package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/fonts"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
)

// Output formats accepted by Render.
const (
	SVG = "svg"
	PNG = "png"
)

// Options configures DOT generation.
type Options struct {
	// Detailed puts the block text in each label. When false only the
	// title, or the key when there is none, is shown.
	Detailed bool

	Orientation layout.Orientation

	// Theme picks node and edge colours. The zero value uses render.Light.
	Theme *render.Theme
}

// ToDOT converts a graph and its content to Graphviz DOT source. Nodes are
// named by their formatted key; m may be nil.
func ToDOT(g *graph.Graph, m *content.Model, opts Options) string {
	th := render.Light
	if opts.Theme != nil {
		th = *opts.Theme
	}
	rankdir := "TB"
	if opts.Orientation == layout.Horizontal {
		rankdir = "LR"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %s {\n", quote(g.Title))
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	fmt.Fprintf(&buf, "  bgcolor=%q;\n", hex(th.Background))
	fmt.Fprintf(&buf, "  node [shape=box, style=filled, fillcolor=%q, color=%q, fontname=%q, fontcolor=%q, fontsize=%g];\n",
		hex(th.BlockFill), hex(th.BlockBorder), fonts.FontFamily, hex(th.Text), fonts.DefaultSize)
	buf.WriteString("  edge [arrowsize=0.7];\n")
	buf.WriteString("\n")

	for _, b := range g.Blocks() {
		fmt.Fprintf(&buf, "  %s [label=%s];\n", quote(graph.FormatKey(b.Key)), label(b.Key, m, opts.Detailed))
	}

	buf.WriteString("\n")
	for _, b := range g.Blocks() {
		for _, e := range b.Edges {
			fmt.Fprintf(&buf, "  %s -> %s [color=%q];\n",
				quote(graph.FormatKey(b.Key)), quote(graph.FormatKey(e.To)), hex(th.EdgeColor(e.Kind)))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func label(k graph.Key, m *content.Model, detailed bool) string {
	var blk *content.Block
	if m != nil {
		blk, _ = m.Block(k)
	}
	if blk == nil {
		return quote(graph.FormatKey(k))
	}
	if !detailed {
		if blk.FullTitle != "" {
			return quote(blk.FullTitle)
		}
		return quote(graph.FormatKey(k))
	}
	// \l left-justifies each line.
	var sb strings.Builder
	sb.WriteByte('"')
	if blk.FullTitle != "" {
		sb.WriteString(escape(blk.FullTitle))
		sb.WriteString(`\l`)
	}
	for _, ln := range blk.Lines {
		sb.WriteString(escape(ln.Text))
		sb.WriteString(`\l`)
	}
	sb.WriteByte('"')
	return sb.String()
}

func quote(s string) string { return `"` + escape(s) + `"` }

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return r.Replace(s)
}

func hex(c color.RGBA) string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// Render lays out DOT source with Graphviz and renders it as SVG or PNG.
func Render(ctx context.Context, dot string, format string) ([]byte, error) {
	if format != SVG && format != PNG {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "graphviz output format %q", format)
	}
	out, err := layout.RenderDOT(ctx, []byte(dot), format)
	if err != nil {
		return nil, err
	}
	if format == SVG {
		out = normalizeViewBox(out)
	}
	return out, nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a pixel
// sized one so the SVG scales like the native export.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// Package vector implements a render.Canvas that writes SVG through
// github.com/ajstarks/svgo.
package vector

import (
	"fmt"
	"image/color"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/matzehuels/disgraph/pkg/fonts"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render/raster"
)

// Canvas streams SVG elements to a writer. Call Close to finish the
// document.
type Canvas struct {
	svg    *svg.SVG
	w, h   int
	closed bool
}

// New starts an SVG document of w by h pixels on out.
func New(out io.Writer, w, h int) *Canvas {
	s := svg.New(out)
	s.Start(w, h)
	return &Canvas{svg: s, w: w, h: h}
}

// Close ends the document. Further drawing is ignored.
func (c *Canvas) Close() {
	if c.closed {
		return
	}
	c.svg.End()
	c.closed = true
}

func (c *Canvas) Size() (w, h float64) { return float64(c.w), float64(c.h) }

func (c *Canvas) Clear(col color.Color) {
	if c.closed {
		return
	}
	c.svg.Rect(0, 0, c.w, c.h, fill(col))
}

func (c *Canvas) FillRect(r layout.Rect, col color.Color) {
	if c.closed {
		return
	}
	x, y, w, h := box(r)
	c.svg.Rect(x, y, w, h, fill(col))
}

func (c *Canvas) StrokeRect(r layout.Rect, col color.Color, width float64) {
	if c.closed {
		return
	}
	x, y, w, h := box(r)
	c.svg.Rect(x, y, w, h, "fill:none;"+stroke(col, width))
}

func (c *Canvas) Polyline(pts []layout.Point, col color.Color, width float64) {
	if c.closed || len(pts) < 2 {
		return
	}
	xs, ys := ints(pts)
	c.svg.Polyline(xs, ys, "fill:none;"+stroke(col, width))
}

func (c *Canvas) Arrow(tip, from layout.Point, col color.Color, size float64) {
	if c.closed {
		return
	}
	a, b, ok := raster.ArrowHead(tip, from, size)
	if !ok {
		return
	}
	xs, ys := ints([]layout.Point{tip, a, b})
	c.svg.Polygon(xs, ys, fill(col))
}

func (c *Canvas) Text(x, y float64, s string, col color.Color, size float64) {
	if c.closed || s == "" || size < raster.MinTextSize {
		return
	}
	ascent := size * 0.8
	if m, err := fonts.MonoMetrics(size); err == nil {
		ascent = m.Ascent
	}
	style := fmt.Sprintf("font-family:'%s',%s;font-size:%.1fpx;white-space:pre;%s",
		fonts.FontFamily, fonts.FallbackFontFamily, size, fill(col))
	c.svg.Text(round(x), round(y+ascent), s, style)
}

func box(r layout.Rect) (x, y, w, h int) {
	x, y = round(r.X), round(r.Y)
	return x, y, max(round(r.Right())-x, 1), max(round(r.Bottom())-y, 1)
}

func ints(pts []layout.Point) (xs, ys []int) {
	xs, ys = make([]int, len(pts)), make([]int, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = round(p.X), round(p.Y)
	}
	return xs, ys
}

func round(v float64) int { return int(math.Round(v)) }

func fill(c color.Color) string {
	rgb, op := css(c)
	if op < 1 {
		return fmt.Sprintf("fill:%s;fill-opacity:%.3f", rgb, op)
	}
	return "fill:" + rgb
}

func stroke(c color.Color, width float64) string {
	rgb, op := css(c)
	s := fmt.Sprintf("stroke:%s;stroke-width:%.2f", rgb, width)
	if op < 1 {
		s += fmt.Sprintf(";stroke-opacity:%.3f", op)
	}
	return s
}

// css returns the straight-alpha colour and its opacity.
func css(c color.Color) (string, float64) {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return "rgb(0,0,0)", 0
	}
	un := func(v uint32) uint32 { return v * 0xffff / a >> 8 }
	return fmt.Sprintf("rgb(%d,%d,%d)", un(r), un(g), un(b)), float64(a) / 0xffff
}

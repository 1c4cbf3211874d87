// Package raster implements a render.Canvas on top of git.sr.ht/~sbinet/gg
// for PNG and JPEG output.
package raster

import (
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"

	"github.com/matzehuels/disgraph/pkg/fonts"
	"github.com/matzehuels/disgraph/pkg/layout"
)

// MinTextSize is the smallest font size, in points, that is rasterized.
const MinTextSize = 1.0

// DefaultJPEGQuality is used by EncodeJPEG when quality is out of range.
const DefaultJPEGQuality = 90

// Canvas draws into an in-memory RGBA image.
type Canvas struct {
	dc   *gg.Context
	w, h int
}

// New creates a canvas of w by h pixels.
func New(w, h int) *Canvas {
	return &Canvas{dc: gg.NewContext(w, h), w: w, h: h}
}

func (c *Canvas) Size() (w, h float64) { return float64(c.w), float64(c.h) }

func (c *Canvas) Clear(col color.Color) {
	c.dc.SetColor(col)
	c.dc.Clear()
}

func (c *Canvas) FillRect(r layout.Rect, col color.Color) {
	c.dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	c.dc.SetColor(col)
	c.dc.Fill()
}

func (c *Canvas) StrokeRect(r layout.Rect, col color.Color, width float64) {
	c.dc.SetLineWidth(width)
	c.dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	c.dc.SetColor(col)
	c.dc.Stroke()
}

func (c *Canvas) Polyline(pts []layout.Point, col color.Color, width float64) {
	if len(pts) < 2 {
		return
	}
	c.dc.SetLineWidth(width)
	c.dc.SetColor(col)
	c.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		c.dc.LineTo(p.X, p.Y)
	}
	c.dc.Stroke()
}

func (c *Canvas) Arrow(tip, from layout.Point, col color.Color, size float64) {
	a, b, ok := ArrowHead(tip, from, size)
	if !ok {
		return
	}
	c.dc.SetColor(col)
	c.dc.MoveTo(tip.X, tip.Y)
	c.dc.LineTo(a.X, a.Y)
	c.dc.LineTo(b.X, b.Y)
	c.dc.ClosePath()
	c.dc.Fill()
}

func (c *Canvas) Text(x, y float64, s string, col color.Color, size float64) {
	if s == "" || size < MinTextSize {
		return
	}
	face, err := fonts.Mono(size)
	if err != nil {
		return
	}
	ascent := float64(face.Metrics().Ascent) / 64
	c.dc.SetFontFace(face)
	c.dc.SetColor(col)
	c.dc.DrawString(s, x, y+ascent)
}

// Image returns the drawn image.
func (c *Canvas) Image() image.Image { return c.dc.Image() }

// EncodePNG writes the image as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error { return c.dc.EncodePNG(w) }

// EncodeJPEG writes the image as JPEG. A quality outside 1..100 uses
// DefaultJPEGQuality.
func (c *Canvas) EncodeJPEG(w io.Writer, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return jpeg.Encode(w, c.dc.Image(), &jpeg.Options{Quality: quality})
}

// ArrowHead returns the two base corners of an arrowhead pointing at tip
// along the segment from -> tip. ok is false for a zero-length segment.
func ArrowHead(tip, from layout.Point, size float64) (a, b layout.Point, ok bool) {
	dx, dy := tip.X-from.X, tip.Y-from.Y
	l := math.Hypot(dx, dy)
	if l == 0 || size <= 0 {
		return a, b, false
	}
	ux, uy := dx/l, dy/l
	bx, by := tip.X-ux*size, tip.Y-uy*size
	half := size / 2
	return layout.Point{X: bx - uy*half, Y: by + ux*half},
		layout.Point{X: bx + uy*half, Y: by - ux*half}, true
}

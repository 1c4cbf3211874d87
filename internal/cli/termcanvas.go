package cli

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
)

// One terminal cell stands for a cellW×cellH area of screen space. The
// viewer measures text with the same grid, so at scale 1 one character is
// one cell.
const (
	cellW = 8.0
	cellH = 16.0
)

type cell struct {
	r      rune
	fg, bg color.RGBA
	// wide marks the right half of a double-width rune.
	wide bool
}

// termCanvas is a render.Canvas backed by a grid of terminal cells.
type termCanvas struct {
	cols, rows int
	cells      []cell
}

var _ render.Canvas = (*termCanvas)(nil)

func newTermCanvas(cols, rows int) *termCanvas {
	t := &termCanvas{}
	t.Resize(cols, rows)
	return t
}

// Resize changes the grid size and blanks it.
func (t *termCanvas) Resize(cols, rows int) {
	t.cols, t.rows = max(cols, 1), max(rows, 1)
	t.cells = make([]cell, t.cols*t.rows)
	for i := range t.cells {
		t.cells[i].r = ' '
	}
}

func (t *termCanvas) Size() (w, h float64) {
	return float64(t.cols) * cellW, float64(t.rows) * cellH
}

func (t *termCanvas) at(col, row int) *cell {
	if col < 0 || row < 0 || col >= t.cols || row >= t.rows {
		return nil
	}
	return &t.cells[row*t.cols+col]
}

func (t *termCanvas) set(col, row int, r rune, fg color.RGBA) {
	if c := t.at(col, row); c != nil {
		c.r, c.fg, c.wide = r, fg, false
	}
}

func toCell(p layout.Point) (int, int) {
	return int(math.Floor(p.X / cellW)), int(math.Floor(p.Y / cellH))
}

// span returns the cells whose centres lie inside r, inclusive. A rect
// smaller than a cell still covers the cell nearest its corner.
func span(r layout.Rect) (x0, y0, x1, y1 int) {
	x0, y0 = nearest(layout.Point{X: r.X, Y: r.Y})
	x1 = int(math.Floor(r.Right()/cellW - 0.5))
	y1 = int(math.Floor(r.Bottom()/cellH - 0.5))
	return x0, y0, max(x1, x0), max(y1, y0)
}

// nearest returns the first cell whose centre is at or after p.
func nearest(p layout.Point) (int, int) {
	return int(math.Ceil(p.X/cellW - 0.5)), int(math.Ceil(p.Y/cellH - 0.5))
}

func (t *termCanvas) Clear(c color.Color) {
	rgba := rgbaOf(c)
	for i := range t.cells {
		t.cells[i] = cell{r: ' ', fg: rgba, bg: rgba}
	}
}

// FillRect paints the background and erases whatever was drawn there.
func (t *termCanvas) FillRect(r layout.Rect, c color.Color) {
	rgba := rgbaOf(c)
	x0, y0, x1, y1 := span(r)
	for y := max(y0, 0); y <= min(y1, t.rows-1); y++ {
		for x := max(x0, 0); x <= min(x1, t.cols-1); x++ {
			cl := t.at(x, y)
			if rgba.A < 0xff {
				cl.bg = blend(cl.bg, rgba)
				continue
			}
			*cl = cell{r: ' ', fg: cl.fg, bg: rgba}
		}
	}
}

func (t *termCanvas) StrokeRect(r layout.Rect, c color.Color, _ float64) {
	fg := rgbaOf(c)
	x0, y0, x1, y1 := span(r)
	for x := x0; x <= x1; x++ {
		t.set(x, y0, '─', fg)
		t.set(x, y1, '─', fg)
	}
	for y := y0; y <= y1; y++ {
		t.set(x0, y, '│', fg)
		t.set(x1, y, '│', fg)
	}
	if x0 < x1 && y0 < y1 {
		t.set(x0, y0, '┌', fg)
		t.set(x1, y0, '┐', fg)
		t.set(x0, y1, '└', fg)
		t.set(x1, y1, '┘', fg)
	}
}

func (t *termCanvas) Polyline(pts []layout.Point, c color.Color, _ float64) {
	fg := rgbaOf(c)
	for i := 1; i < len(pts); i++ {
		t.line(pts[i-1], pts[i], fg)
	}
}

func (t *termCanvas) line(a, b layout.Point, fg color.RGBA) {
	x0, y0 := toCell(a)
	x1, y1 := toCell(b)
	switch {
	case y0 == y1:
		for x := min(x0, x1); x <= max(x0, x1); x++ {
			t.set(x, y0, '─', fg)
		}
	case x0 == x1:
		for y := min(y0, y1); y <= max(y0, y1); y++ {
			t.set(x0, y, '│', fg)
		}
	default:
		dx, dy := abs(x1-x0), -abs(y1-y0)
		sx, sy := sign(x1-x0), sign(y1-y0)
		err := dx + dy
		for {
			t.set(x0, y0, '·', fg)
			if x0 == x1 && y0 == y1 {
				return
			}
			if e2 := 2 * err; e2 >= dy {
				err += dy
				x0 += sx
			} else {
				err += dx
				y0 += sy
			}
		}
	}
}

// Arrow marks the tip cell with a triangle pointing away from from.
func (t *termCanvas) Arrow(tip, from layout.Point, c color.Color, _ float64) {
	dx, dy := tip.X-from.X, tip.Y-from.Y
	var r rune
	switch {
	case math.Abs(dy) >= math.Abs(dx) && dy >= 0:
		r = '▼'
	case math.Abs(dy) >= math.Abs(dx):
		r = '▲'
	case dx > 0:
		r = '▶'
	default:
		r = '◀'
	}
	// Step back half a cell so the tip lands outside the target's border.
	x, y := toCell(layout.Point{X: tip.X - sign64(dx)*cellW/2, Y: tip.Y - sign64(dy)*cellH/2})
	t.set(x, y, r, rgbaOf(c))
}

// Text writes s one rune per cell, two for wide runes, starting at the
// cell nearest (x, y).
func (t *termCanvas) Text(x, y float64, s string, c color.Color, _ float64) {
	fg := rgbaOf(c)
	col, row := nearest(layout.Point{X: x, Y: y})
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		t.set(col, row, r, fg)
		if w == 2 {
			if cl := t.at(col+1, row); cl != nil {
				cl.r, cl.fg, cl.wide = ' ', fg, true
			}
		}
		col += w
	}
}

// Plain returns the grid as text without colours.
func (t *termCanvas) Plain() string {
	var b strings.Builder
	for y := 0; y < t.rows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < t.cols; x++ {
			if cl := t.at(x, y); !cl.wide {
				b.WriteRune(cl.r)
			}
		}
	}
	return b.String()
}

// String renders the grid with colours, one styled run per stretch of
// cells sharing the same colours.
func (t *termCanvas) String() string {
	var b strings.Builder
	for y := 0; y < t.rows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		var cur *cell
		flush := func() {
			if cur == nil || run.Len() == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(hex(cur.fg))).
				Background(lipgloss.Color(hex(cur.bg)))
			b.WriteString(style.Render(run.String()))
			run.Reset()
		}
		for x := 0; x < t.cols; x++ {
			cl := t.at(x, y)
			if cl.wide {
				continue
			}
			if cur == nil || cl.fg != cur.fg || cl.bg != cur.bg {
				flush()
				cur = cl
			}
			run.WriteRune(cl.r)
		}
		flush()
	}
	return b.String()
}

// cellCenter returns the screen point at the middle of a cell.
func cellCenter(col, row int) layout.Point {
	return layout.Point{X: (float64(col) + 0.5) * cellW, Y: (float64(row) + 0.5) * cellH}
}

func rgbaOf(c color.Color) color.RGBA {
	if rgba, ok := c.(color.RGBA); ok {
		return rgba
	}
	return color.RGBAModel.Convert(c).(color.RGBA)
}

// blend composites the premultiplied colour over onto an opaque base.
func blend(base, over color.RGBA) color.RGBA {
	a := uint32(over.A)
	mix := func(b, o uint8) uint8 { return uint8((uint32(b)*(0xff-a))/0xff + uint32(o)) }
	return color.RGBA{mix(base.R, over.R), mix(base.G, over.G), mix(base.B, over.B), 0xff}
}

func hex(c color.RGBA) string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func sign64(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

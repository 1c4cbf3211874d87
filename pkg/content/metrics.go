package content

import (
	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/disgraph/pkg/graph"
)

// Metrics supplies fixed character metrics in graph units.
type Metrics interface {
	CharWidth() float64
	LineHeight() float64
}

// FixedMetrics is a Metrics with constant values.
type FixedMetrics struct {
	Char float64
	Line float64
}

func (f FixedMetrics) CharWidth() float64  { return f.Char }
func (f FixedMetrics) LineHeight() float64 { return f.Line }

// DefaultMetrics approximates a 12pt monospace face.
var DefaultMetrics = FixedMetrics{Char: 7.2, Line: 16}

// TextWidth returns the drawn width of s.
func TextWidth(s string, mt Metrics) float64 {
	return float64(runewidth.StringWidth(s)) * mt.CharWidth()
}

// Measure returns the size of a block's content including padding.
// A block without rows still gets a one-row body so it stays clickable.
func (m *Model) Measure(key graph.Key, mt Metrics) (w, h float64) {
	pad := 2 * m.opts.Padding
	b, ok := m.blocks[key]
	if !ok || b.Rows() == 0 {
		return pad + mt.CharWidth(), pad + mt.LineHeight()
	}
	cols := max(b.Columns(), 1)
	return pad + float64(cols)*mt.CharWidth(), pad + float64(b.Rows())*mt.LineHeight()
}

// ApplySizes sets Width and Height on every block of g from its content.
func (m *Model) ApplySizes(g *graph.Graph, mt Metrics) {
	for _, b := range g.Blocks() {
		b.Width, b.Height = m.Measure(b.Key, mt)
	}
}

// RowAt maps a y offset relative to the block's top-left corner to a row
// index by walking accumulated line heights. The title row is -1.
func (m *Model) RowAt(key graph.Key, localY float64, mt Metrics) (int, bool) {
	b, ok := m.blocks[key]
	if !ok {
		return 0, false
	}
	y := m.opts.Padding
	if localY < y {
		return 0, false
	}
	if b.Title != "" {
		y += mt.LineHeight()
		if localY < y {
			return -1, true
		}
	}
	for i := range b.Lines {
		y += mt.LineHeight()
		if localY < y {
			return i, true
		}
	}
	return 0, false
}

// ColumnAt maps an x offset relative to the block's left edge to a text
// column.
func (m *Model) ColumnAt(localX float64, mt Metrics) int {
	x := localX - m.opts.Padding
	if x < 0 || mt.CharWidth() <= 0 {
		return -1
	}
	return int(x / mt.CharWidth())
}

// RowTop returns the y offset of row inside its block. Row -1 is the title.
func (m *Model) RowTop(key graph.Key, row int, mt Metrics) float64 {
	b, ok := m.blocks[key]
	if !ok {
		return 0
	}
	return m.opts.Padding + float64(b.HeaderRows()+row)*mt.LineHeight()
}

package render

import (
	"image/color"
	"slices"

	"github.com/matzehuels/disgraph/pkg/layout"
)

// Canvas is a drawing surface in screen coordinates.
//
// Text is positioned by the top-left corner of its row; implementations
// place the baseline themselves. size is the font size in points.
type Canvas interface {
	Size() (w, h float64)
	Clear(c color.Color)
	FillRect(r layout.Rect, c color.Color)
	StrokeRect(r layout.Rect, c color.Color, width float64)
	Polyline(pts []layout.Point, c color.Color, width float64)
	Arrow(tip, from layout.Point, c color.Color, size float64)
	Text(x, y float64, s string, c color.Color, size float64)
}

// OpKind names a recorded drawing operation.
type OpKind string

const (
	OpClear      OpKind = "clear"
	OpFillRect   OpKind = "fill"
	OpStrokeRect OpKind = "stroke"
	OpPolyline   OpKind = "polyline"
	OpArrow      OpKind = "arrow"
	OpText       OpKind = "text"
)

// Op is one recorded drawing operation.
type Op struct {
	Kind   OpKind
	Rect   layout.Rect
	Points []layout.Point
	Color  color.RGBA
	Text   string
	Size   float64
}

// Recorder is a Canvas that keeps every operation in memory.
type Recorder struct {
	W, H float64
	Ops  []Op
}

// NewRecorder returns a recorder of the given size.
func NewRecorder(w, h float64) *Recorder { return &Recorder{W: w, H: h} }

func (r *Recorder) Size() (w, h float64) { return r.W, r.H }

func (r *Recorder) Clear(c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpClear, Color: toRGBA(c)})
}

func (r *Recorder) FillRect(rect layout.Rect, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpFillRect, Rect: rect, Color: toRGBA(c)})
}

func (r *Recorder) StrokeRect(rect layout.Rect, c color.Color, width float64) {
	r.Ops = append(r.Ops, Op{Kind: OpStrokeRect, Rect: rect, Color: toRGBA(c), Size: width})
}

func (r *Recorder) Polyline(pts []layout.Point, c color.Color, width float64) {
	r.Ops = append(r.Ops, Op{Kind: OpPolyline, Points: slices.Clone(pts), Color: toRGBA(c), Size: width})
}

func (r *Recorder) Arrow(tip, from layout.Point, c color.Color, size float64) {
	r.Ops = append(r.Ops, Op{Kind: OpArrow, Points: []layout.Point{from, tip}, Color: toRGBA(c), Size: size})
}

func (r *Recorder) Text(x, y float64, s string, c color.Color, size float64) {
	r.Ops = append(r.Ops, Op{Kind: OpText, Rect: layout.Rect{X: x, Y: y}, Text: s, Color: toRGBA(c), Size: size})
}

// Count returns the number of recorded operations of kind k.
func (r *Recorder) Count(k OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// Texts returns the text of every recorded text operation in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// Reset drops all recorded operations.
func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }

func toRGBA(c color.Color) color.RGBA {
	if rgba, ok := c.(color.RGBA); ok {
		return rgba
	}
	return color.RGBAModel.Convert(c).(color.RGBA)
}

// Package viewport converts between graph space and screen space.
//
// A Viewport owns the zoom scale and the pan offset. The offset is the
// graph-space point shown at the screen's top-left corner, so
//
//	screen = (graph - offset) * scale
//
// Scale is clamped to [MinScale, MaxScale]; panning is unconstrained.
package viewport

import (
	"math"

	"github.com/matzehuels/disgraph/pkg/layout"
)

// Default scale limits.
const (
	DefaultMinScale = 0.05
	DefaultMaxScale = 8.0
)

// Viewport is the visible window onto a laid-out graph.
// The zero value is not usable; call New.
type Viewport struct {
	scale    float64
	minScale float64
	maxScale float64
	offset   layout.Point
	width    float64
	height   float64
}

// Option configures a Viewport.
type Option func(*Viewport)

// WithScaleLimits overrides the scale floor and ceiling. Non-positive values
// keep the defaults.
func WithScaleLimits(minScale, maxScale float64) Option {
	return func(v *Viewport) {
		if minScale > 0 {
			v.minScale = minScale
		}
		if maxScale > 0 {
			v.maxScale = maxScale
		}
	}
}

// New creates a viewport for a screen of the given size at scale 1.
func New(width, height float64, opts ...Option) *Viewport {
	v := &Viewport{
		scale:    1,
		minScale: DefaultMinScale,
		maxScale: DefaultMaxScale,
		width:    width,
		height:   height,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.maxScale < v.minScale {
		v.maxScale = v.minScale
	}
	v.scale = v.clamp(v.scale)
	return v
}

func (v *Viewport) clamp(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return v.minScale
	}
	return math.Min(math.Max(s, v.minScale), v.maxScale)
}

// Scale returns the current zoom factor.
func (v *Viewport) Scale() float64 { return v.scale }

// MinScale returns the scale floor.
func (v *Viewport) MinScale() float64 { return v.minScale }

// Offset returns the graph point at the screen origin.
func (v *Viewport) Offset() layout.Point { return v.offset }

// SetOffset moves the screen origin to p.
func (v *Viewport) SetOffset(p layout.Point) { v.offset = p }

// Size returns the screen size.
func (v *Viewport) Size() (w, h float64) { return v.width, v.height }

// Resize changes the screen size, keeping the graph point at the centre
// fixed.
func (v *Viewport) Resize(w, h float64) {
	c := v.ToGraph(layout.Point{X: v.width / 2, Y: v.height / 2})
	v.width, v.height = w, h
	v.centerAt(c)
}

// ToScreen converts a graph-space point to screen space.
func (v *Viewport) ToScreen(p layout.Point) layout.Point {
	return layout.Point{X: (p.X - v.offset.X) * v.scale, Y: (p.Y - v.offset.Y) * v.scale}
}

// ToGraph converts a screen-space point to graph space.
func (v *Viewport) ToGraph(p layout.Point) layout.Point {
	return layout.Point{X: p.X/v.scale + v.offset.X, Y: p.Y/v.scale + v.offset.Y}
}

// RectToScreen converts a graph-space rectangle to screen space.
func (v *Viewport) RectToScreen(r layout.Rect) layout.Rect {
	p := v.ToScreen(layout.Point{X: r.X, Y: r.Y})
	return layout.Rect{X: p.X, Y: p.Y, W: r.W * v.scale, H: r.H * v.scale}
}

// SetZoom rescales around anchor, a screen point, so the graph point under
// it stays under it. It reports whether the scale changed.
func (v *Viewport) SetZoom(anchor layout.Point, scale float64) bool {
	scale = v.clamp(scale)
	if scale == v.scale {
		return false
	}
	g := v.ToGraph(anchor)
	v.scale = scale
	v.offset = layout.Point{X: g.X - anchor.X/scale, Y: g.Y - anchor.Y/scale}
	return true
}

// ZoomBy multiplies the scale by factor around anchor.
func (v *Viewport) ZoomBy(anchor layout.Point, factor float64) bool {
	return v.SetZoom(anchor, v.scale*factor)
}

// Pan moves the content by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.offset.X -= dx / v.scale
	v.offset.Y -= dy / v.scale
}

// Fit scales bounds to fill the screen, never magnifying past 1, and
// centres it.
func (v *Viewport) Fit(bounds layout.Rect) {
	if bounds.W <= 0 || bounds.H <= 0 || v.width <= 0 || v.height <= 0 {
		v.scale = v.clamp(1)
		v.centerAt(bounds.Center())
		return
	}
	s := math.Min(v.width/bounds.W, v.height/bounds.H)
	v.scale = v.clamp(math.Min(s, 1))
	v.centerAt(bounds.Center())
}

// CenterOn keeps the scale and moves r's centre to the screen centre.
func (v *Viewport) CenterOn(r layout.Rect) { v.centerAt(r.Center()) }

func (v *Viewport) centerAt(g layout.Point) {
	v.offset = layout.Point{X: g.X - v.width/2/v.scale, Y: g.Y - v.height/2/v.scale}
}

// Visible returns the graph-space rectangle currently on screen.
func (v *Viewport) Visible() layout.Rect {
	return layout.Rect{X: v.offset.X, Y: v.offset.Y, W: v.width / v.scale, H: v.height / v.scale}
}

// IsVisible reports whether any part of r is on screen.
func (v *Viewport) IsVisible(r layout.Rect) bool {
	return v.Visible().Intersects(r)
}

// State is a snapshot of the viewport used to persist and restore it.
type State struct {
	Scale  float64      `json:"scale" toml:"scale"`
	Offset layout.Point `json:"offset" toml:"-"`
}

// State returns the current scale and offset.
func (v *Viewport) State() State { return State{Scale: v.scale, Offset: v.offset} }

// Restore applies a saved state. The scale is clamped.
func (v *Viewport) Restore(s State) {
	v.scale = v.clamp(s.Scale)
	v.offset = s.Offset
}

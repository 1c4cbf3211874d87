// Package view is one interactive graph: a builder, its latest snapshot
// and layout, a viewport, a selection and an optional link to a shared
// cursor.
//
// A reload runs the builder, measures the content and lays it out to
// completion before anything visible changes, so a failed or cancelled
// reload leaves the previous graph in place. When the new graph has the
// same blocks as the old one the viewport is kept; otherwise it is fitted
// to the new bounds. A selection survives a reload when its block does.
//
// A hidden view does not reload. Refreshes requested while hidden are
// remembered and run once when the view becomes visible again.
//
// View is not safe for concurrent use. The CLI drives it from a single
// goroutine.
package view

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/disgraph/pkg/builder"
	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/export"
	"github.com/matzehuels/disgraph/pkg/fonts"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/pipeline"
	"github.com/matzehuels/disgraph/pkg/render"
	"github.com/matzehuels/disgraph/pkg/seek"
	"github.com/matzehuels/disgraph/pkg/selection"
	"github.com/matzehuels/disgraph/pkg/viewport"
)

// Default screen size before the first draw.
const (
	DefaultWidth  = 1024.0
	DefaultHeight = 768.0
)

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(v *View) { v.logger = l }
}

// WithCursor links the view to a shared cursor. The view starts at the
// cursor's address.
func WithCursor(c seek.Cursor) Option {
	return func(v *View) { v.cursor = c }
}

// WithLayout sets the layout strategy, orientation and margin.
func WithLayout(cfg layout.Config) Option {
	return func(v *View) { v.cfg = cfg }
}

// WithTheme sets the colour theme.
func WithTheme(t render.Theme) Option {
	return func(v *View) { v.theme = t }
}

// WithMetrics overrides font measurement. Mostly useful in tests.
func WithMetrics(mt content.Metrics, fontSize float64) Option {
	return func(v *View) { v.metrics, v.fontSize = mt, fontSize }
}

// WithContent sets the column budget and the block padding.
func WithContent(columns int, padding float64) Option {
	return func(v *View) { v.req.Columns, v.req.Padding = columns, padding }
}

// WithSize sets the initial screen size.
func WithSize(w, h float64) Option {
	return func(v *View) { v.width, v.height = w, h }
}

// WithScaleLimits bounds the zoom.
func WithScaleLimits(minScale, maxScale float64) Option {
	return func(v *View) { v.minScale, v.maxScale = minScale, maxScale }
}

// WithMinCharHeight sets the on-screen text height below which only block
// outlines are drawn.
func WithMinCharHeight(px float64) Option {
	return func(v *View) { v.pipe.MinCharHeight = px }
}

// WithDiagnostics receives user-facing notices such as ambiguous
// cross-references.
func WithDiagnostics(fn func(string)) Option {
	return func(v *View) { v.diag = fn }
}

// WithCommand sets the engine command of a generic graph.
func WithCommand(cmd string) Option {
	return func(v *View) { v.req.Command = cmd }
}

// WithAddress sets the initial address when there is no cursor.
func WithAddress(addr uint64) Option {
	return func(v *View) { v.req.Addr = addr }
}

// View is one interactive graph instance.
type View struct {
	id     uuid.UUID
	b      builder.Builder
	runner *pipeline.Runner
	logger *log.Logger
	diag   func(string)

	req      builder.Request
	cfg      layout.Config
	theme    render.Theme
	metrics  content.Metrics
	fontSize float64

	snap *builder.Snapshot
	res  *layout.Result

	width, height      float64
	minScale, maxScale float64
	vp                 *viewport.Viewport
	pipe               render.Pipeline
	sel                *selection.Controller

	cursor seek.Cursor
	bridge *seek.Bridge

	coverage    map[graph.Key]bool
	breakpoints map[uint64]bool
	search      searchState

	// visible and pending form the deferred refresh accumulator.
	visible bool
	pending bool

	subs    []subscriber
	nextSub int
}

// New creates a view that loads graphs with b through r. Nothing is loaded
// until Refresh or the first seek.
func New(b builder.Builder, r *pipeline.Runner, opts ...Option) (*View, error) {
	v := &View{
		id:       uuid.New(),
		b:        b,
		runner:   r,
		cfg:      layout.DefaultConfig(),
		theme:    render.Light,
		width:    DefaultWidth,
		height:   DefaultHeight,
		visible:  true,
		req:      builder.Request{Padding: pipeline.DefaultPadding},
		fontSize: pipeline.DefaultFontSize,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	v.logger = v.logger.With("view", v.id.String()[:8], "kind", b.Kind())
	if v.metrics == nil {
		mt, err := fonts.MonoMetrics(v.fontSize)
		if err != nil {
			return nil, err
		}
		v.metrics = mt
	}
	v.vp = viewport.New(v.width, v.height, viewport.WithScaleLimits(v.minScale, v.maxScale))
	v.sel = selection.New(selection.WithLogger(v.logger), selection.WithDiagnostics(v.diag))
	if v.cursor != nil {
		v.req.Addr = v.cursor.Address()
		v.bridge = seek.NewBridge(v.cursor, v, seek.WithLogger(v.logger))
	}
	return v, nil
}

// Close detaches the view from its cursor.
func (v *View) Close() {
	if v.bridge != nil {
		v.bridge.Close()
	}
}

// ID identifies the view in logs and events.
func (v *View) ID() uuid.UUID { return v.id }

// Kind returns the builder kind.
func (v *View) Kind() builder.Kind { return v.b.Kind() }

// Snapshot returns the loaded graph, or nil before the first load.
func (v *View) Snapshot() *builder.Snapshot { return v.snap }

// Layout returns the current layout, or nil before the first load.
func (v *View) Layout() *layout.Result { return v.res }

// Viewport returns the viewport.
func (v *View) Viewport() *viewport.Viewport { return v.vp }

// Selection returns the selection controller.
func (v *View) Selection() *selection.Controller { return v.sel }

// Address returns the address the view was last asked to show.
func (v *View) Address() uint64 {
	if v.bridge != nil {
		return v.bridge.Address()
	}
	return v.req.Addr
}

// Title returns the graph title, marked when the view ignores the cursor.
func (v *View) Title() string {
	title := ""
	if v.snap != nil {
		title = v.snap.Title
	}
	if v.bridge != nil {
		return v.bridge.Title(title)
	}
	return title
}

// Synced reports whether seeks are shared with the cursor.
func (v *View) Synced() bool { return v.bridge != nil && v.bridge.Synced() }

// SetSynced turns cursor sharing on or off.
func (v *View) SetSynced(on bool) {
	if v.bridge != nil {
		v.bridge.SetSynced(on)
	}
}

// =============================================================================
// Reload
// =============================================================================

// Refresh rebuilds the graph at the current address. While the view is
// hidden the refresh is deferred.
func (v *View) Refresh(ctx context.Context) error {
	if !v.visible {
		v.pending = true
		v.logger.Debug("refresh deferred")
		return nil
	}
	return v.reload(ctx)
}

// Reload rebuilds the graph around addr.
func (v *View) Reload(addr uint64) error {
	v.req.Addr = addr
	return v.Refresh(context.Background())
}

// Visible reports whether the view is shown.
func (v *View) Visible() bool { return v.visible }

// SetVisible shows or hides the view. Showing it runs any refresh that was
// requested while it was hidden.
func (v *View) SetVisible(ctx context.Context, on bool) error {
	v.visible = on
	if !on || !v.pending {
		return nil
	}
	v.pending = false
	return v.reload(ctx)
}

func (v *View) reload(ctx context.Context) error {
	snap, err := builder.Run(ctx, v.b, v.runner.Analyzer, v.req, v.logger)
	if err != nil {
		return err
	}
	res, err := v.runner.Arrange(ctx, snap, v.metrics, v.cfg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	v.swap(snap, res)
	return nil
}

// swap installs a new snapshot. Everything before it can fail; nothing
// after it does.
func (v *View) swap(snap *builder.Snapshot, res *layout.Result) {
	changed := v.snap == nil || !v.snap.Graph.SameKeys(snap.Graph)
	v.snap, v.res = snap, res
	kept := v.sel.Prune(snap.Graph, snap.Content)
	v.search.reset()

	if changed && !snap.Empty() {
		v.vp.Fit(res.Bounds)
	}
	if !kept && snap.HasCurrent {
		if r, ok := res.Rect(snap.Current); ok && !v.vp.IsVisible(r) {
			v.vp.CenterOn(r)
		}
	}
	v.logger.Debug("view refreshed", "title", snap.Title, "blocks", snap.Graph.Len(), "fit", changed)
	v.emit(ViewRefreshed, v.req.Addr)
}

// rearrange lays out the loaded snapshot again with the current config.
func (v *View) rearrange(ctx context.Context) error {
	if v.snap == nil {
		return nil
	}
	res, err := v.runner.Arrange(ctx, v.snap, v.metrics, v.cfg)
	if err != nil {
		return err
	}
	v.res = res
	if !v.snap.Empty() {
		v.vp.Fit(res.Bounds)
	}
	v.emit(ViewRefreshed, v.req.Addr)
	return nil
}

// SetStrategy switches the layout strategy and lays the loaded graph out
// again without rebuilding it.
func (v *View) SetStrategy(ctx context.Context, s layout.Strategy) error {
	if _, err := layout.ParseStrategy(string(s)); err != nil {
		return err
	}
	if s == v.cfg.Strategy {
		return nil
	}
	v.cfg.Strategy = s
	return v.rearrange(ctx)
}

// SetOrientation switches between top-down and left-right layouts.
func (v *View) SetOrientation(ctx context.Context, o layout.Orientation) error {
	if o == v.cfg.Orientation {
		return nil
	}
	v.cfg.Orientation = o
	return v.rearrange(ctx)
}

// LayoutConfig returns the layout parameters in use.
func (v *View) LayoutConfig() layout.Config { return v.cfg }

// Theme returns the colour theme.
func (v *View) Theme() render.Theme { return v.theme }

// SetTheme restyles the view. The layout and the viewport are kept.
func (v *View) SetTheme(t render.Theme) {
	v.theme = t
	v.emit(ViewRefreshed, v.req.Addr)
}

// =============================================================================
// Overlays
// =============================================================================

// SetCoverage marks blocks as executed. nil clears the overlay.
func (v *View) SetCoverage(keys []graph.Key) {
	v.coverage = nil
	if len(keys) > 0 {
		v.coverage = make(map[graph.Key]bool, len(keys))
		for _, k := range keys {
			v.coverage[k] = true
		}
	}
	v.emit(ViewRefreshed, v.req.Addr)
}

// ToggleBreakpoint flips the breakpoint marker on addr and reports whether
// it is now set.
func (v *View) ToggleBreakpoint(addr uint64) bool {
	if v.breakpoints == nil {
		v.breakpoints = make(map[uint64]bool)
	}
	on := !v.breakpoints[addr]
	if on {
		v.breakpoints[addr] = true
	} else {
		delete(v.breakpoints, addr)
	}
	v.emit(ViewRefreshed, v.req.Addr)
	return on
}

func (v *View) overlays() render.Overlays {
	o := render.Overlays{
		Coverage:    v.coverage,
		Selection:   v.sel.Overlay(),
		SearchToken: v.search.token,
		Breakpoints: v.breakpoints,
	}
	if v.snap != nil && v.snap.HasCurrent {
		o.Current, o.HasCurrent, o.CurrentAddr = v.snap.Current, true, v.snap.CurrentAddr
	}
	return o
}

// =============================================================================
// Drawing and export
// =============================================================================

// Draw paints the view on c. The viewport follows the canvas size.
func (v *View) Draw(ctx context.Context, c render.Canvas) render.Stats {
	w, h := c.Size()
	if vw, vh := v.vp.Size(); vw != w || vh != h {
		v.vp.Resize(w, h)
	}
	f := render.Frame{
		Layout:   v.res,
		Metrics:  v.metrics,
		FontSize: v.fontSize,
		Viewport: v.vp,
		Theme:    v.theme,
		Overlays: v.overlays(),
	}
	p := v.pipe
	if v.snap != nil {
		f.Content = v.snap.Content
		f.Message = v.snap.Message
		if v.snap.Centered {
			p.Drawer = render.DrawCentered
		}
	}
	return p.Draw(ctx, c, f)
}

// Scene returns the loaded graph with its overlays for export.
func (v *View) Scene() export.Scene {
	s := export.Scene{
		Layout:   v.res,
		Metrics:  v.metrics,
		FontSize: v.fontSize,
		Theme:    v.theme,
		Overlays: v.overlays(),
	}
	if v.snap != nil {
		s.Graph, s.Content, s.Centered = v.snap.Graph, v.snap.Content, v.snap.Centered
	}
	return s
}

// Copy writes the highlighted token to w.
func (v *View) Copy(w selection.ClipboardWriter) (string, error) { return v.sel.Copy(w) }

func (v *View) scene() selection.Scene {
	s := selection.Scene{Layout: v.res, Metrics: v.metrics}
	if v.snap != nil {
		s.Content = v.snap.Content
	}
	return s
}

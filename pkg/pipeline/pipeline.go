// Package pipeline provides the headless load → measure → layout → render
// pipeline used by the CLI, the HTTP server and the interactive view.
//
// By centralizing this logic, every entry point builds, sizes and lays out
// a graph the same way, and shares the same layout and artifact caches.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: run a graph builder against the analysis engine
//  2. Layout: measure block content and compute positions and edge routes
//  3. Render: encode the laid-out scene in the requested export formats
//
// # Usage
//
//	runner := pipeline.NewRunner(analyzer, cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Kind:    "cfg",
//	    Address: 0x401000,
//	    Formats: []string{"svg", "json"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/builder"
	"github.com/matzehuels/disgraph/pkg/cache"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/export"
	"github.com/matzehuels/disgraph/pkg/fonts"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, server and view
// =============================================================================

const (
	// DefaultKind is the graph kind loaded when none is named.
	DefaultKind = builder.KindCFG

	// DefaultStrategy is the layout strategy used when none is named.
	DefaultStrategy = layout.GridMedium

	// DefaultPadding is the inner block margin in graph units.
	DefaultPadding = 6.0

	// DefaultMargin surrounds the whole drawing.
	DefaultMargin = 20.0

	// DefaultTheme is the colour theme name.
	DefaultTheme = "light"
)

// DefaultFontSize is the text size in points used for measurement.
const DefaultFontSize = fonts.DefaultSize

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for server requests.
type Options struct {
	// Load options
	Kind    string `json:"kind"`
	Address uint64 `json:"address,omitempty"`
	Command string `json:"command,omitempty"`
	Columns int    `json:"columns,omitempty"`

	// Layout options
	Strategy    string  `json:"strategy,omitempty"`
	Orientation string  `json:"orientation,omitempty"`
	Padding     float64 `json:"padding,omitempty"`
	Margin      float64 `json:"margin,omitempty"`
	FontSize    float64 `json:"font_size,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Theme   string   `json:"theme,omitempty"`
	Scale   float64  `json:"scale,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Snapshot *builder.Snapshot
	Layout   *layout.Result
	Metrics  fonts.Metrics
	FontSize float64
	Theme    render.Theme

	// Artifacts contains encoded outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Blocks     int
	Edges      int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	RenderHit bool // Whether all artifacts came from cache
}

// Scene returns the export scene for the result.
func (r *Result) Scene() export.Scene {
	return export.Scene{
		Graph:    r.Snapshot.Graph,
		Content:  r.Snapshot.Content,
		Layout:   r.Layout,
		Metrics:  r.Metrics,
		FontSize: r.FontSize,
		Theme:    r.Theme,
		Centered: r.Snapshot.Centered,
	}
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every field and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Kind == "" {
		o.Kind = string(DefaultKind)
	}
	if _, err := builder.ByName(o.Kind); err != nil {
		return err
	}
	if builder.Kind(o.Kind) == builder.KindGeneric {
		if err := errors.ValidateCommand(o.Command); err != nil {
			return err
		}
	}
	if o.Strategy == "" {
		o.Strategy = string(DefaultStrategy)
	}
	if _, err := layout.ParseStrategy(o.Strategy); err != nil {
		return err
	}
	if _, err := layout.ParseOrientation(o.Orientation); err != nil {
		return err
	}
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.Margin <= 0 {
		o.Margin = DefaultMargin
	}
	if o.FontSize <= 0 {
		o.FontSize = DefaultFontSize
	}
	if o.Theme == "" {
		o.Theme = DefaultTheme
	}
	if _, ok := render.ThemeByName(o.Theme); !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown theme %q (want one of %v)", o.Theme, render.ThemeNames())
	}
	for i, f := range o.Formats {
		parsed, err := export.ParseFormat(f)
		if err != nil {
			return err
		}
		o.Formats[i] = string(parsed)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// LayoutConfig returns the layout parameters. Call after
// ValidateAndSetDefaults.
func (o *Options) LayoutConfig() layout.Config {
	orient, _ := layout.ParseOrientation(o.Orientation)
	return layout.Config{
		Strategy:    layout.Strategy(o.Strategy),
		Orientation: orient,
		Margin:      o.Margin,
	}
}

// BuildRequest returns the builder request.
func (o *Options) BuildRequest() builder.Request {
	return builder.Request{
		Addr:    o.Address,
		Command: o.Command,
		Columns: o.Columns,
		Padding: o.Padding,
	}
}

// ArtifactKeyOpts returns cache key options for one exported format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format, Theme: o.Theme, Scale: o.Scale}
}

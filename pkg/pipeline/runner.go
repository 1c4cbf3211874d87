package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/builder"
	"github.com/matzehuels/disgraph/pkg/cache"
	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/export"
	"github.com/matzehuels/disgraph/pkg/fonts"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// The CLI, the server and the view use it to avoid duplicating the
// load → layout → render logic.
//
// The Runner is stateless except for its collaborators; it doesn't store
// pipeline results. It is not safe for concurrent use when the analyzer
// isn't.
type Runner struct {
	Analyzer engine.Analyzer
	Engine   layout.Engine
	Exporter *export.Exporter
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
}

// NewRunner creates a runner over a.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
// Layouts are memoized in c through a layout.CachedEngine.
func NewRunner(a engine.Analyzer, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Analyzer: a,
		Engine: layout.NewCachedEngine(layout.New(logger), c,
			layout.WithKeyer(keyer), layout.WithCacheLogger(logger)),
		Exporter: export.New(export.WithLogger(logger)),
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
	}
}

// Execute runs the complete load → layout → render pipeline. Render is
// skipped when opts names no formats.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	result, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(opts.Formats) == 0 {
		return result, nil
	}

	renderStart := time.Now()
	artifacts, hit, err := r.Render(ctx, result, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// Load builds the graph named by opts, measures its content and lays it
// out. An empty graph is not an error: the result carries the builder's
// placeholder message and an empty layout.
func (r *Runner) Load(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	b, err := builder.ByName(opts.Kind)
	if err != nil {
		return nil, err
	}
	mt, err := fonts.MonoMetrics(opts.FontSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load font")
	}
	theme, _ := render.ThemeByName(opts.Theme)
	result := &Result{Metrics: mt, FontSize: opts.FontSize, Theme: theme}

	loadStart := time.Now()
	snap, err := builder.Run(ctx, b, r.Analyzer, opts.BuildRequest(), opts.Logger)
	if err != nil {
		return nil, err
	}
	result.Snapshot = snap
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Blocks = snap.Graph.Len()
	result.Stats.Edges = snap.Graph.EdgeCount()

	layoutStart := time.Now()
	res, err := r.Arrange(ctx, snap, mt, opts.LayoutConfig())
	if err != nil {
		return nil, err
	}
	result.Layout = res
	result.Stats.LayoutTime = time.Since(layoutStart)

	r.Logger.Info("computed layout",
		"kind", opts.Kind,
		"blocks", result.Stats.Blocks,
		"edges", result.Stats.Edges,
		"duration", result.Stats.LoadTime+result.Stats.LayoutTime)
	return result, nil
}

// Arrange measures snap's content with mt, then lays it out. Block sizes
// and positions are written back into snap.Graph.
func (r *Runner) Arrange(ctx context.Context, snap *builder.Snapshot, mt content.Metrics, cfg layout.Config) (*layout.Result, error) {
	if snap.Empty() {
		return &layout.Result{
			Strategy:    cfg.Strategy,
			Orientation: cfg.Orientation,
			Nodes:       map[graph.Key]layout.Rect{},
		}, nil
	}
	snap.Content.ApplySizes(snap.Graph, mt)
	res, err := r.Engine.Layout(ctx, snap.Graph, cfg)
	if err != nil {
		return nil, err
	}
	res.Apply(snap.Graph)
	return res, nil
}

// Render encodes result in every format of opts. Artifacts are cached by a
// hash of the laid-out graph; the second return value reports whether all
// of them came from the cache.
func (r *Runner) Render(ctx context.Context, result *Result, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if result.Snapshot == nil || result.Snapshot.Empty() {
		msg := "nothing to render"
		if result.Snapshot != nil && result.Snapshot.Message != "" {
			msg = result.Snapshot.Message
		}
		return nil, false, errors.New(errors.ErrCodeEmptyGraph, "%s", msg)
	}

	scene := result.Scene()
	req := export.Request{Command: opts.Command, Address: opts.Address, Scale: opts.Scale}

	// Large rasters are confirmed up front so cached images are held to
	// the same limit as fresh ones.
	for _, f := range opts.Formats {
		req.Format = export.Format(f)
		if err := r.Exporter.ConfirmSize(ctx, scene, req); err != nil {
			return nil, false, err
		}
	}
	req.SizeConfirmed = true

	// The JSON document holds titles, text, positions and routes, which is
	// everything the other formats are drawn from.
	var doc bytes.Buffer
	req.Format = export.JSON
	if err := r.Exporter.Encode(ctx, &doc, scene, req); err != nil {
		return nil, false, err
	}
	sceneHash := cache.Hash(doc.Bytes())

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, f := range opts.Formats {
		key := r.Keyer.ArtifactKey(sceneHash, opts.ArtifactKeyOpts(f))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			break
		}
		artifacts[f] = data
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	for _, f := range opts.Formats {
		var data []byte
		if export.Format(f) == export.JSON {
			data = doc.Bytes()
		} else {
			var buf bytes.Buffer
			req.Format = export.Format(f)
			if err := r.Exporter.Encode(ctx, &buf, scene, req); err != nil {
				return nil, false, err
			}
			data = buf.Bytes()
		}
		artifacts[f] = data
		key := r.Keyer.ArtifactKey(sceneHash, opts.ArtifactKeyOpts(f))
		if err := r.Cache.Set(ctx, key, data, cache.ArtifactTTL); err != nil {
			r.Logger.Warn("artifact cache write failed", "format", f, "error", err)
		}
	}
	return artifacts, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

package layout

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/cache"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/observability"
)

// CachedEngine memoizes another Engine. Layout is deterministic, so a hit
// is indistinguishable from a fresh computation.
type CachedEngine struct {
	inner  Engine
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
}

// CacheOption configures a CachedEngine.
type CacheOption func(*CachedEngine)

// WithKeyer replaces the default key builder.
func WithKeyer(k cache.Keyer) CacheOption {
	return func(e *CachedEngine) { e.keyer = k }
}

// WithTTL sets the expiry of stored layouts.
func WithTTL(ttl time.Duration) CacheOption {
	return func(e *CachedEngine) { e.ttl = ttl }
}

// WithCacheLogger sets the logger.
func WithCacheLogger(l *log.Logger) CacheOption {
	return func(e *CachedEngine) { e.logger = l }
}

// NewCachedEngine wraps inner with c.
func NewCachedEngine(inner Engine, c cache.Cache, opts ...CacheOption) *CachedEngine {
	e := &CachedEngine{
		inner:  inner,
		cache:  c,
		keyer:  cache.NewDefaultKeyer(),
		ttl:    cache.LayoutTTL,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout returns a stored layout for the same input, or computes and stores
// one. Cache failures are logged and never fail the layout.
func (e *CachedEngine) Layout(ctx context.Context, g *graph.Graph, cfg Config) (*Result, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = GridMedium
	}
	key := e.keyer.LayoutKey(InputHash(g), cache.LayoutKeyOpts{
		Strategy:    string(cfg.Strategy),
		Orientation: cfg.Orientation.String(),
		Margin:      cfg.Margin,
	})
	hooks := observability.Cache()

	data, hit, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("layout cache read failed", "error", err)
	}
	if hit {
		var res Result
		if err := json.Unmarshal(data, &res); err == nil {
			hooks.OnCacheHit(ctx, "layout")
			e.logger.Debug("layout cache hit", "graph", g.Title)
			return &res, nil
		}
	}
	hooks.OnCacheMiss(ctx, "layout")

	res, err := e.inner.Layout(ctx, g, cfg)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(res); err == nil {
		if err := e.cache.Set(ctx, key, data, e.ttl); err != nil {
			e.logger.Warn("layout cache write failed", "error", err)
		} else {
			hooks.OnCacheSet(ctx, "layout", len(data))
		}
	}
	return res, nil
}

// InputHash hashes everything a layout depends on in g: block order, keys,
// sizes, entry and edges.
func InputHash(g *graph.Graph) string {
	var buf []byte
	putU := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }
	putF := func(f float64) { putU(math.Float64bits(f)) }

	putU(uint64(g.Entry))
	for _, b := range g.Blocks() {
		putU(uint64(b.Key))
		putF(b.Width)
		putF(b.Height)
		putU(uint64(len(b.Edges)))
		for _, e := range b.Edges {
			putU(uint64(e.To))
			putU(uint64(e.Kind))
		}
	}
	return cache.Hash(buf)
}

// Package cli implements the disgraph command-line interface.
//
// Every command loads a graph through the shared [pipeline.Runner], so the
// exporter, the terminal viewer and the HTTP server lay graphs out the same
// way and share one layout cache.
//
// # Commands
//
//   - export: write a graph in one or more formats
//   - layout: print the laid-out graph as JSON
//   - view: browse a graph interactively in the terminal
//   - serve: answer export requests over HTTP
//   - formats: list the export formats available in this build
//   - config: show, edit and watch the config file
//   - cache: inspect and clear the layout cache
//
// Graphs come from rizin run against a binary, or from a recorded analysis
// snapshot (--snapshot) when rizin isn't around.
package cli

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/cache"
	"github.com/matzehuels/disgraph/pkg/config"
	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/engine/rizin"
	"github.com/matzehuels/disgraph/pkg/engine/snapshot"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/export"
	"github.com/matzehuels/disgraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "disgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output; status lines and logs go to stderr.
	Out io.Writer

	configPath string
	snapshot   string
	noCache    bool
	assumeYes  bool

	cfg    config.Config
	loaded bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig returns the settings file merged over the defaults. It is read
// once per process.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.loaded {
		return c.cfg, nil
	}
	path := c.configFile()
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	c.Logger.Debug("loaded config", "path", path)
	c.cfg, c.loaded = cfg, true
	return cfg, nil
}

func (c *CLI) configFile() string {
	if c.configPath != "" {
		return c.configPath
	}
	return config.Path()
}

// =============================================================================
// Runner Factory
// =============================================================================

// newAnalyzer opens the analysis source: the snapshot file when one was
// given, otherwise rizin on target.
func (c *CLI) newAnalyzer(target string) (engine.Analyzer, error) {
	if c.snapshot != "" {
		c.Logger.Debug("using snapshot", "path", c.snapshot)
		return snapshot.Load(c.snapshot)
	}
	if target == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no binary given (pass a path or --snapshot)")
	}
	if _, err := os.Stat(target); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open binary")
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	rz := rizin.New(target, rizin.WithBinary(cfg.Engine.Rizin), rizin.WithLogger(c.Logger))
	if !rz.Available() {
		return nil, errors.New(errors.ErrCodeToolUnavailable, "%s not found in PATH (use --snapshot to read a recorded analysis)", cfg.Engine.Rizin)
	}
	return rz, nil
}

// newRunner creates a pipeline runner over the analyzer for target.
func (c *CLI) newRunner(ctx context.Context, target string) (*pipeline.Runner, error) {
	a, err := c.newAnalyzer(target)
	if err != nil {
		return nil, err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	conf := newConfirmer(os.Stdin, os.Stderr)
	conf.yes = c.assumeYes
	r := pipeline.NewRunner(a, store, nil, c.Logger)
	r.Exporter = export.New(
		export.WithLogger(c.Logger),
		export.WithRasterThreshold(cfg.Export.RasterThreshold),
		export.WithConfirmer(conf),
	)
	return r, nil
}

// newCache picks the cache backend: none with --no-cache, redis when a URL
// is configured, files otherwise. A cache that can't be opened is not
// fatal.
func (c *CLI) newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if c.noCache || !cfg.Cache.Enabled {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			c.Logger.Warn("redis cache unavailable, using file cache", "error", err)
		} else {
			return rc, nil
		}
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the user cache
// directory (~/.cache/disgraph/ on Linux).
func cacheDir(cfg config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// graphFlags are the load options shared by every graph command.
type graphFlags struct {
	kind        string
	address     string
	command     string
	strategy    string
	orientation string
	theme       string
	columns     int
}

// options merges flags over the config file into pipeline options.
func (f *graphFlags) options(cfg config.Config) (pipeline.Options, error) {
	addr, err := parseAddress(f.address)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		Kind:        f.kind,
		Address:     addr,
		Command:     f.command,
		Columns:     cfg.View.Columns,
		Strategy:    cfg.Layout.Strategy,
		Orientation: cfg.Layout.Orientation,
		Margin:      cfg.Layout.Margin,
		Padding:     cfg.View.Padding,
		FontSize:    cfg.View.FontSize,
		Theme:       cfg.View.Theme,
		Scale:       cfg.Export.Scale,
	}
	if f.columns > 0 {
		opts.Columns = f.columns
	}
	if f.strategy != "" {
		opts.Strategy = f.strategy
	}
	if f.orientation != "" {
		opts.Orientation = f.orientation
	}
	if f.theme != "" {
		opts.Theme = f.theme
	}
	return opts, nil
}

// parseAddress accepts decimal and 0x-prefixed hex addresses. An empty
// string is address zero.
func parseAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if err := errors.ValidateAddress(s); err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid address %q", s)
	}
	return v, nil
}

// parseFormats splits a comma-separated format list.
func parseFormats(s string, fallback []string) []string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Package config loads and stores persistent settings in a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/disgraph/config.toml (see [Path]).
// Missing files and missing keys fall back to [Default]; unknown keys are
// rejected so typos don't go unnoticed. CLI flags override file values.
//
//	cfg, err := config.Load(config.Path())
//	if err != nil {
//	    return err
//	}
//	cfg.View.Zoom = 1.5
//	err = config.Save(config.Path(), cfg)
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/export"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/pipeline"
	"github.com/matzehuels/disgraph/pkg/render"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Config is everything persisted between runs.
type Config struct {
	Layout LayoutConfig `toml:"layout"`
	View   ViewConfig   `toml:"view"`
	Export ExportConfig `toml:"export"`
	Engine EngineConfig `toml:"engine"`
	Cache  CacheConfig  `toml:"cache"`
	Serve  ServeConfig  `toml:"serve"`
}

// LayoutConfig selects the layout algorithm.
type LayoutConfig struct {
	Strategy    string  `toml:"strategy"`
	Orientation string  `toml:"orientation"`
	Margin      float64 `toml:"margin"`
}

// ViewConfig holds interactive view settings.
type ViewConfig struct {
	Zoom     float64 `toml:"zoom"`
	Theme    string  `toml:"theme"`
	FontSize float64 `toml:"font_size"`
	Columns  int     `toml:"columns"`
	Padding  float64 `toml:"padding"`
	Sync     bool    `toml:"sync"`
	// MinCharHeight is the on-screen text height in pixels below which
	// only block outlines are drawn.
	MinCharHeight float64 `toml:"min_char_height"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	RasterThreshold int64    `toml:"raster_threshold"`
	Scale           float64  `toml:"scale"`
	Formats         []string `toml:"formats"`
}

// EngineConfig locates the analysis engine.
type EngineConfig struct {
	Rizin string `toml:"rizin"`
}

// CacheConfig selects the layout and artifact cache.
type CacheConfig struct {
	Enabled  bool   `toml:"enabled"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	lc := layout.DefaultConfig()
	return Config{
		Layout: LayoutConfig{
			Strategy:    string(lc.Strategy),
			Orientation: lc.Orientation.String(),
			Margin:      lc.Margin,
		},
		View: ViewConfig{
			Zoom:          1,
			Theme:         render.Light.Name,
			FontSize:      pipeline.DefaultFontSize,
			Padding:       pipeline.DefaultPadding,
			Sync:          true,
			MinCharHeight: render.DefaultMinCharHeight,
		},
		Export: ExportConfig{
			RasterThreshold: export.DefaultRasterThreshold,
			Scale:           1,
			Formats:         []string{string(export.SVG)},
		},
		Engine: EngineConfig{Rizin: "rizin"},
		Cache:  CacheConfig{Enabled: true},
		Serve:  ServeConfig{Addr: "127.0.0.1:8080"},
	}
}

// Path returns the default config file location.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "disgraph", FileName)
}

// Load reads path over the defaults. A missing file yields Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config")
	}
	return Decode(data)
}

// Decode parses TOML over the defaults and validates the result.
func Decode(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Default(), errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Default(), errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed. The file is
// replaced atomically.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create config dir")
	}
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write config")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write config")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write config")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write config")
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, err := layout.ParseStrategy(c.Layout.Strategy); err != nil {
		return err
	}
	if _, err := layout.ParseOrientation(c.Layout.Orientation); err != nil {
		return err
	}
	if c.Layout.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout.margin must not be negative")
	}
	if c.View.Zoom <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "view.zoom must be positive")
	}
	if _, ok := render.ThemeByName(c.View.Theme); !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown theme %q (want one of %v)", c.View.Theme, render.ThemeNames())
	}
	if c.View.FontSize <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "view.font_size must be positive")
	}
	if c.View.Columns < 0 || c.View.Padding < 0 || c.View.MinCharHeight < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "view sizes must not be negative")
	}
	if c.Export.RasterThreshold <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "export.raster_threshold must be positive")
	}
	if c.Export.Scale <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "export.scale must be positive")
	}
	for _, f := range c.Export.Formats {
		if _, err := export.ParseFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// LayoutConfig converts the layout section. Call on a validated Config.
func (c Config) LayoutConfig() layout.Config {
	o, _ := layout.ParseOrientation(c.Layout.Orientation)
	return layout.Config{
		Strategy:    layout.Strategy(c.Layout.Strategy),
		Orientation: o,
		Margin:      c.Layout.Margin,
	}
}

// Theme returns the configured colour theme.
func (c Config) Theme() render.Theme {
	t, ok := render.ThemeByName(c.View.Theme)
	if !ok {
		return render.Light
	}
	return t
}

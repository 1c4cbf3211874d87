package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/layout"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := Default().LayoutConfig(); got != layout.DefaultConfig() {
		t.Errorf("LayoutConfig() = %+v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.View.Zoom != Default().View.Zoom {
		t.Errorf("missing file should give defaults, got %+v", cfg)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		toml string
		code errors.Code
		check func(t *testing.T, c Config)
	}{
		{
			name: "partial",
			toml: "[layout]\nstrategy = \"grid-wide\"\n\n[view]\nzoom = 1.5\n",
			check: func(t *testing.T, c Config) {
				if c.Layout.Strategy != "grid-wide" || c.View.Zoom != 1.5 {
					t.Errorf("got %+v", c)
				}
				if c.Layout.Orientation != "vertical" || c.Export.RasterThreshold != Default().Export.RasterThreshold {
					t.Error("unset keys should keep defaults")
				}
			},
		},
		{name: "unknown key", toml: "[view]\nzoooom = 2\n", code: errors.ErrCodeInvalidInput},
		{name: "syntax", toml: "[view\n", code: errors.ErrCodeInvalidFormat},
		{name: "strategy", toml: "[layout]\nstrategy = \"spiral\"\n", code: errors.ErrCodeInvalidLayout},
		{name: "zoom", toml: "[view]\nzoom = 0.0\n", code: errors.ErrCodeInvalidInput},
		{name: "format", toml: "[export]\nformats = [\"bmp\"]\n", code: errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Decode([]byte(tt.toml))
			if tt.code != "" {
				if !errors.Is(err, tt.code) {
					t.Errorf("err = %v, want %s", err, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	cfg := Default()
	cfg.View.Theme = "dark"
	cfg.View.Sync = false
	cfg.Export.Formats = []string{"png", "json"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.View.Theme != "dark" || got.View.Sync || len(got.Export.Formats) != 2 {
		t.Errorf("round trip lost settings: %+v", got)
	}
	if got.Theme().Name != "dark" {
		t.Errorf("Theme() = %q", got.Theme().Name)
	}

	cfg.View.Zoom = -1
	if err := Save(path, cfg); err == nil {
		t.Error("invalid config saved")
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	changes := make(chan Config, 4)
	w, err := NewWatcher(path, func(c Config, err error) {
		if err == nil {
			changes <- c
		}
	}, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	cfg.View.Zoom = 2
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		if c.View.Zoom != 2 {
			t.Errorf("reloaded zoom = %v", c.View.Zoom)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file changed")
	}
}

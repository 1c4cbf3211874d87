package config

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/disgraph/pkg/errors"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the settle time.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatchLogger sets the logger.
func WithWatchLogger(l *log.Logger) WatchOption {
	return func(w *Watcher) { w.logger = l }
}

// Watcher reloads a config file when it changes on disk. It watches the
// containing directory so editors that replace the file are noticed too.
type Watcher struct {
	path     string
	onChange func(Config, error)
	debounce time.Duration
	logger   *log.Logger
	fs       *fsnotify.Watcher
}

// NewWatcher starts watching path. onChange receives the reloaded config,
// or Default() and the error when the new file is invalid. Events are
// delivered from Run's goroutine.
func NewWatcher(path string, onChange func(Config, error), opts ...WatchOption) (*Watcher, error) {
	w := &Watcher{path: filepath.Clean(path), onChange: onChange, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create watcher")
	}
	if err := fs.Add(filepath.Dir(w.path)); err != nil {
		fs.Close()
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "watch %s", filepath.Dir(w.path))
	}
	w.fs = fs
	return w, nil
}

// Run delivers changes until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn("config reload failed", "path", w.path, "error", err)
			} else {
				w.logger.Debug("config reloaded", "path", w.path)
			}
			w.onChange(cfg, err)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error { return w.fs.Close() }

package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/disgraph/pkg/buildinfo"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/export"
	"github.com/matzehuels/disgraph/pkg/pipeline"
)

const shutdownTimeout = 5 * time.Second

// serveCommand creates the HTTP export server.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [binary]",
		Short: "Serve graph exports over HTTP",
		Long: `Serve graph exports over HTTP.

Routes:
  GET /healthz                        liveness and version
  GET /formats                        available export formats
  GET /graph/{kind}/{addr}.{format}   one graph in one format

The graph route takes strategy, orientation, theme, columns, command and
scale as query parameters. Raster images over the configured size limit
are refused with 413.`,
		Example: `  disgraph serve ./a.out --addr :8080
  curl localhost:8080/graph/cfg/0x401000.svg?theme=dark`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), targetArg(args), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config serve.addr)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, target, addr string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Serve.Addr
	}
	var none graphFlags
	base, err := none.options(cfg)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, target)
	if err != nil {
		return err
	}
	defer runner.Close()
	// Nobody can answer a confirmation prompt over HTTP.
	runner.Exporter = export.New(
		export.WithLogger(c.Logger),
		export.WithRasterThreshold(cfg.Export.RasterThreshold),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServer(runner, base, c.Logger),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	c.Logger.Info("serving", "addr", addr)

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "listen on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	c.Logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

// server answers export requests. The runner's analyzer is not safe for
// concurrent use, so requests are served one at a time.
type server struct {
	runner *pipeline.Runner
	base   pipeline.Options
	logger *log.Logger
	mu     sync.Mutex
}

// newServer returns the HTTP handler. base holds the defaults every
// request starts from.
func newServer(r *pipeline.Runner, base pipeline.Options, logger *log.Logger) http.Handler {
	s := &server{runner: r, base: base, logger: logger}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(requestLogger(logger))

	mux.Get("/healthz", s.health)
	mux.Get("/formats", s.formats)
	mux.Get("/graph/{kind}/{addr}.{format}", s.graph)
	return mux
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

type formatJSON struct {
	Name        string `json:"name"`
	Ext         string `json:"ext"`
	Description string `json:"description"`
	Raster      bool   `json:"raster,omitempty"`
	Graphviz    bool   `json:"graphviz,omitempty"`
}

func (s *server) formats(w http.ResponseWriter, r *http.Request) {
	infos := s.runner.Exporter.Formats()
	out := make([]formatJSON, len(infos))
	for i, fi := range infos {
		out[i] = formatJSON{
			Name:        string(fi.Name),
			Ext:         fi.Ext,
			Description: fi.Description,
			Raster:      fi.Raster,
			Graphviz:    fi.Graphviz,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) graph(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	data, cached, err := s.render(r.Context(), opts)
	s.mu.Unlock()
	if err != nil {
		s.logger.Debug("graph request failed", "kind", opts.Kind, "addr", opts.Address, "error", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(export.Format(opts.Formats[0])))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *server) render(ctx context.Context, opts pipeline.Options) ([]byte, bool, error) {
	result, err := s.runner.Load(ctx, opts)
	if err != nil {
		return nil, false, err
	}
	if result.Snapshot.Empty() {
		return nil, false, errors.New(errors.ErrCodeEmptyGraph, "%s", emptyMessage(result))
	}
	artifacts, cached, err := s.runner.Render(ctx, result, opts)
	if err != nil {
		return nil, false, err
	}
	return artifacts[opts.Formats[0]], cached, nil
}

// requestOptions merges the path and query over the server defaults.
func (s *server) requestOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.base
	opts.Kind = chi.URLParam(r, "kind")
	addr, err := parseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		return opts, err
	}
	opts.Address = addr
	opts.Formats = []string{chi.URLParam(r, "format")}

	q := r.URL.Query()
	for key, dst := range map[string]*string{
		"strategy":    &opts.Strategy,
		"orientation": &opts.Orientation,
		"theme":       &opts.Theme,
		"command":     &opts.Command,
	} {
		if v := q.Get(key); v != "" {
			*dst = v
		}
	}
	if v := q.Get("columns"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New(errors.ErrCodeInvalidInput, "invalid columns %q", v)
		}
		opts.Columns = n
	}
	if v := q.Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return opts, errors.New(errors.ErrCodeInvalidInput, "invalid scale %q", v)
		}
		opts.Scale = f
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

// =============================================================================
// Responses
// =============================================================================

func contentType(f export.Format) string {
	switch f {
	case export.PNG, export.GVPNG:
		return "image/png"
	case export.JPEG:
		return "image/jpeg"
	case export.SVG, export.GVSVG:
		return "image/svg+xml"
	case export.JSON:
		return "application/json"
	case export.DOT:
		return "text/vnd.graphviz; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// httpStatus maps an error code to a response status.
func httpStatus(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidLayout,
		errors.ErrCodeInvalidCommand, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeEmptyGraph:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeToolUnavailable, errors.ErrCodeQueryFailed:
		return http.StatusServiceUnavailable
	case errors.ErrCodeCancelled:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, httpStatus(err), map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(code),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per request.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Millisecond),
				"id", middleware.GetReqID(r.Context()))
		})
	}
}

// Package export writes a laid-out graph to a file or stream.
//
// Supported formats are PNG and JPEG (git.sr.ht/~sbinet/gg), SVG
// (github.com/ajstarks/svgo), DOT, JSON, GML and a key=value listing, plus
// Graphviz-drawn SVG and PNG when the Graphviz runtime is available.
// [Exporter.Formats] only lists what can actually be produced.
//
// Raster images whose pixel area exceeds a threshold need a [Confirmer] to
// agree before anything is drawn or written.
package export

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/observability"
	"github.com/matzehuels/disgraph/pkg/render"
)

// DefaultRasterThreshold is the pixel area above which raster exports ask
// for confirmation.
const DefaultRasterThreshold = 5000 * 5000

// Scene is what gets exported.
type Scene struct {
	Graph    *graph.Graph
	Content  *content.Model
	Layout   *layout.Result
	Metrics  content.Metrics
	FontSize float64
	Theme    render.Theme
	Overlays render.Overlays
	// Centered draws single-label nodes.
	Centered bool
}

// Request names the destination and format of an export. Command and
// Address describe where the graph came from and are recorded in text
// formats.
type Request struct {
	Path    string
	Format  Format // empty infers the format from Path
	Command string
	Address uint64
	// Scale multiplies raster and vector output size. Zero means 1.
	Scale float64
	// SizeConfirmed skips the large-raster confirmation. Callers set it
	// after a successful ConfirmSize for the same scene.
	SizeConfirmed bool
}

// Confirmer decides whether a large raster export may proceed.
type Confirmer interface {
	ConfirmLargeExport(ctx context.Context, width, height int) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, width, height int) (bool, error)

func (f ConfirmFunc) ConfirmLargeExport(ctx context.Context, w, h int) (bool, error) {
	return f(ctx, w, h)
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithRasterThreshold sets the pixel area that triggers confirmation.
func WithRasterThreshold(area int64) Option {
	return func(e *Exporter) {
		if area > 0 {
			e.threshold = area
		}
	}
}

// WithConfirmer sets the large-export confirmer. Without one, large raster
// exports are refused.
func WithConfirmer(c Confirmer) Option {
	return func(e *Exporter) { e.confirm = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithGraphviz overrides Graphviz detection.
func WithGraphviz(available func() bool) Option {
	return func(e *Exporter) { e.graphviz = available }
}

// Exporter renders scenes in the supported formats.
type Exporter struct {
	threshold int64
	confirm   Confirmer
	logger    *log.Logger
	graphviz  func() bool
}

// New returns an exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{threshold: DefaultRasterThreshold, graphviz: layout.GraphvizAvailable}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return e
}

// Formats lists the formats this exporter can produce.
func (e *Exporter) Formats() []FormatInfo {
	gv := e.graphviz()
	out := make([]FormatInfo, 0, len(allFormats))
	for _, fi := range allFormats {
		if fi.Graphviz && !gv {
			continue
		}
		out = append(out, fi)
	}
	return out
}

// Export renders s and writes it to req.Path. Nothing is written when the
// export is refused or fails.
func (e *Exporter) Export(ctx context.Context, s Scene, req Request) error {
	if err := errors.ValidateOutputPath(req.Path); err != nil {
		return err
	}
	if req.Format == "" {
		f, err := FormatForPath(req.Path)
		if err != nil {
			return err
		}
		req.Format = f
	}
	var buf bytes.Buffer
	if err := e.Encode(ctx, &buf, s, req); err != nil {
		return err
	}
	if err := writeFile(req.Path, buf.Bytes()); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", req.Path)
	}
	e.logger.Info("exported graph", "path", req.Path, "format", req.Format, "bytes", buf.Len())
	return nil
}

// Encode renders s in req.Format to w. req.Path is ignored.
func (e *Exporter) Encode(ctx context.Context, w io.Writer, s Scene, req Request) (err error) {
	info, ok := Info(req.Format)
	if !ok {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown export format %q", req.Format)
	}
	if info.Graphviz && !e.graphviz() {
		return errors.New(errors.ErrCodeUnsupported, "%s export needs graphviz", info.Name)
	}
	if s.Graph == nil || s.Layout == nil || s.Graph.Len() == 0 {
		return errors.New(errors.ErrCodeEmptyGraph, "nothing to export")
	}

	hooks := observability.Export()
	start := time.Now()
	hooks.OnExportStart(ctx, string(info.Name))
	cw := &countingWriter{w: w}
	defer func() { hooks.OnExportComplete(ctx, string(info.Name), cw.n, time.Since(start), err) }()

	scale := req.Scale
	if scale <= 0 {
		scale = 1
	}
	if info.Raster && !req.SizeConfirmed {
		iw, ih := rasterSize(s, info.Name, scale)
		if err := e.confirmSize(ctx, iw, ih); err != nil {
			return err
		}
	}
	switch info.Name {
	case PNG, JPEG:
		return e.encodeRaster(ctx, cw, s, info.Name, scale)
	case SVG:
		return encodeSVG(ctx, cw, s, scale)
	case DOT:
		_, err = io.WriteString(cw, dotSource(s))
		return err
	case JSON:
		return encodeJSON(cw, s, req)
	case GML:
		return encodeGML(cw, s, req)
	case KV:
		return encodeKV(cw, s, req)
	case GVSVG, GVPNG:
		return encodeGraphviz(ctx, cw, s, info.Name)
	}
	return errors.New(errors.ErrCodeUnsupported, "export format %q", info.Name)
}

// ConfirmSize runs the large-raster confirmation for s in req.Format. It
// returns nil for formats that are not raster images.
func (e *Exporter) ConfirmSize(ctx context.Context, s Scene, req Request) error {
	info, ok := Info(req.Format)
	if !ok {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown export format %q", req.Format)
	}
	if !info.Raster || req.SizeConfirmed || s.Layout == nil {
		return nil
	}
	if info.Graphviz && !e.graphviz() {
		return errors.New(errors.ErrCodeUnsupported, "%s export needs graphviz", info.Name)
	}
	scale := req.Scale
	if scale <= 0 {
		scale = 1
	}
	w, h := rasterSize(s, info.Name, scale)
	return e.confirmSize(ctx, w, h)
}

// rasterSize is the pixel size checked against the threshold. Graphviz
// ignores the scale and draws at roughly the laid-out size.
func rasterSize(s Scene, f Format, scale float64) (int, int) {
	if f == GVPNG {
		scale = 1
	}
	return imageSize(s, scale)
}

// imageSize returns the pixel size of the scene at scale.
func imageSize(s Scene, scale float64) (int, int) {
	b := s.Layout.Bounds
	return max(int(math.Ceil(b.W*scale)), 1), max(int(math.Ceil(b.H*scale)), 1)
}

// confirmSize asks before drawing an image larger than the threshold.
func (e *Exporter) confirmSize(ctx context.Context, w, h int) error {
	if int64(w)*int64(h) <= e.threshold {
		return nil
	}
	e.logger.Warn("large raster export", "width", w, "height", h, "threshold", e.threshold)
	if e.confirm == nil {
		return errors.New(errors.ErrCodeCancelled, "%dx%d image exceeds the export size limit", w, h)
	}
	ok, err := e.confirm.ConfirmLargeExport(ctx, w, h)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCancelled, err, "confirm %dx%d export", w, h)
	}
	if !ok {
		return errors.New(errors.ErrCodeCancelled, "%dx%d export declined", w, h)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeFile writes atomically through a temporary file in the same
// directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".disgraph-export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteFile validates path and writes data to it atomically. The CLI uses
// it for artifacts that were encoded earlier or came from the cache.
func WriteFile(path string, data []byte) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	if err := writeFile(path, data); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

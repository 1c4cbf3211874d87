package export

import (
	"context"
	"io"

	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
	"github.com/matzehuels/disgraph/pkg/render/nodelink"
	"github.com/matzehuels/disgraph/pkg/render/raster"
	"github.com/matzehuels/disgraph/pkg/render/vector"
	"github.com/matzehuels/disgraph/pkg/viewport"
)

// exportMinCharHeight keeps text in exports unless it is sub-pixel.
const exportMinCharHeight = 1.0

func frame(s Scene, w, h int, scale float64) render.Frame {
	vp := viewport.New(float64(w), float64(h), viewport.WithScaleLimits(scale, scale))
	vp.Restore(viewport.State{Scale: scale, Offset: layout.Point{X: s.Layout.Bounds.X, Y: s.Layout.Bounds.Y}})
	return render.Frame{
		Layout:   s.Layout,
		Content:  s.Content,
		Metrics:  s.Metrics,
		FontSize: s.FontSize,
		Viewport: vp,
		Theme:    s.Theme,
		Overlays: s.Overlays,
	}
}

func pipeline(s Scene) *render.Pipeline {
	p := &render.Pipeline{MinCharHeight: exportMinCharHeight}
	if s.Centered {
		p.Drawer = render.DrawCentered
	}
	return p
}

func (e *Exporter) encodeRaster(ctx context.Context, w io.Writer, s Scene, f Format, scale float64) error {
	iw, ih := imageSize(s, scale)
	c := raster.New(iw, ih)
	pipeline(s).Draw(ctx, c, frame(s, iw, ih, scale))
	if f == JPEG {
		return c.EncodeJPEG(w, raster.DefaultJPEGQuality)
	}
	return c.EncodePNG(w)
}

func encodeSVG(ctx context.Context, w io.Writer, s Scene, scale float64) error {
	iw, ih := imageSize(s, scale)
	c := vector.New(w, iw, ih)
	pipeline(s).Draw(ctx, c, frame(s, iw, ih, scale))
	c.Close()
	return nil
}

func dotSource(s Scene) string {
	th := s.Theme
	return nodelink.ToDOT(s.Graph, s.Content, nodelink.Options{
		Detailed:    !s.Centered,
		Orientation: s.Layout.Orientation,
		Theme:       &th,
	})
}

func encodeGraphviz(ctx context.Context, w io.Writer, s Scene, f Format) error {
	out := nodelink.SVG
	if f == GVPNG {
		out = nodelink.PNG
	}
	data, err := nodelink.Render(ctx, dotSource(s), out)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

package raster

import (
	"bytes"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
)

var _ render.Canvas = (*Canvas)(nil)

func TestFillRect(t *testing.T) {
	c := New(20, 20)
	c.Clear(color.White)
	c.FillRect(layout.Rect{X: 5, Y: 5, W: 10, H: 10}, color.RGBA{R: 0xff, A: 0xff})

	r, g, _, _ := c.Image().At(10, 10).RGBA()
	if r>>8 != 0xff || g>>8 != 0 {
		t.Errorf("inside pixel = %v, want red", c.Image().At(10, 10))
	}
	r, g, _, _ = c.Image().At(1, 1).RGBA()
	if r>>8 != 0xff || g>>8 != 0xff {
		t.Errorf("outside pixel = %v, want white", c.Image().At(1, 1))
	}
}

func TestEncode(t *testing.T) {
	c := New(32, 16)
	c.Clear(color.White)
	c.Text(2, 2, "mov", color.Black, 10)

	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("png bounds = %v", b)
	}

	buf.Reset()
	if err := c.EncodeJPEG(&buf, 0); err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	if _, err := jpeg.Decode(&buf); err != nil {
		t.Errorf("decode jpeg: %v", err)
	}
}

func TestArrowHead(t *testing.T) {
	a, b, ok := ArrowHead(layout.Point{X: 10, Y: 10}, layout.Point{X: 10, Y: 0}, 4)
	if !ok {
		t.Fatal("expected an arrowhead")
	}
	near := func(p layout.Point, x, y float64) bool {
		return math.Abs(p.X-x) < 1e-9 && math.Abs(p.Y-y) < 1e-9
	}
	if !near(a, 8, 6) || !near(b, 12, 6) {
		t.Errorf("corners = %v %v, want (8,6) (12,6)", a, b)
	}
	if _, _, ok := ArrowHead(layout.Point{X: 1, Y: 1}, layout.Point{X: 1, Y: 1}, 4); ok {
		t.Error("zero-length segment should not produce an arrowhead")
	}
}

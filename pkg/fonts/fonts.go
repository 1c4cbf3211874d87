// Package fonts provides the monospace face used for block text.
//
// Block text is measured with fixed character metrics, so everything that
// draws text must use the same face. Go Mono is embedded in
// golang.org/x/image and needs no system fonts.
package fonts

import (
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FontFamily is the CSS font-family used in SVG output.
const FontFamily = "Go Mono"

// FallbackFontFamily lists generic fallbacks for viewers without Go Mono.
const FallbackFontFamily = "ui-monospace, Menlo, Consolas, monospace"

// DefaultSize is the font size in points at scale 1.
const DefaultSize = 12.0

var (
	parseOnce sync.Once
	mono      *opentype.Font
	parseErr  error

	facesMu sync.Mutex
	faces   = map[int]font.Face{}
)

func parsed() (*opentype.Font, error) {
	parseOnce.Do(func() {
		mono, parseErr = opentype.Parse(gomono.TTF)
	})
	return mono, parseErr
}

// Mono returns Go Mono at size points and 72 DPI, so one point is one
// pixel. Faces are cached per quarter point.
func Mono(size float64) (font.Face, error) {
	f, err := parsed()
	if err != nil {
		return nil, err
	}
	key := int(math.Round(size * 4))
	facesMu.Lock()
	defer facesMu.Unlock()
	if face, ok := faces[key]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(key) / 4,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	faces[key] = face
	return face, nil
}

// Metrics is the fixed cell size of a monospace face.
type Metrics struct {
	Char   float64 // advance of one column
	Line   float64 // line height
	Ascent float64
}

func (m Metrics) CharWidth() float64  { return m.Char }
func (m Metrics) LineHeight() float64 { return m.Line }

// MonoMetrics measures Go Mono at size points.
func MonoMetrics(size float64) (Metrics, error) {
	face, err := Mono(size)
	if err != nil {
		return Metrics{}, err
	}
	fm := face.Metrics()
	return Metrics{
		Char:   toFloat(font.MeasureString(face, "0")),
		Line:   toFloat(fm.Height),
		Ascent: toFloat(fm.Ascent),
	}, nil
}

func toFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

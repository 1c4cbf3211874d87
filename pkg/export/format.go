package export

import (
	"path/filepath"
	"strings"

	"github.com/matzehuels/disgraph/pkg/errors"
)

// Format names an export format.
type Format string

const (
	PNG   Format = "png"
	JPEG  Format = "jpeg"
	SVG   Format = "svg"
	DOT   Format = "dot"
	JSON  Format = "json"
	GML   Format = "gml"
	KV    Format = "kv"
	GVSVG Format = "gv-svg"
	GVPNG Format = "gv-png"
)

// FormatInfo describes an export format.
type FormatInfo struct {
	Name        Format
	Ext         string
	Description string
	// Raster formats are drawn pixel by pixel and are subject to the size
	// confirmation.
	Raster bool
	// Graphviz formats need the embedded Graphviz runtime.
	Graphviz bool
}

var allFormats = []FormatInfo{
	{Name: PNG, Ext: ".png", Description: "PNG image", Raster: true},
	{Name: JPEG, Ext: ".jpg", Description: "JPEG image", Raster: true},
	{Name: SVG, Ext: ".svg", Description: "SVG vector image"},
	{Name: DOT, Ext: ".dot", Description: "Graphviz DOT source"},
	{Name: JSON, Ext: ".json", Description: "JSON graph with layout"},
	{Name: GML, Ext: ".gml", Description: "Graph Modelling Language"},
	{Name: KV, Ext: ".kv", Description: "key=value listing"},
	{Name: GVSVG, Ext: ".svg", Description: "SVG drawn by Graphviz", Graphviz: true},
	{Name: GVPNG, Ext: ".png", Description: "PNG drawn by Graphviz", Raster: true, Graphviz: true},
}

// Info returns the description of f.
func Info(f Format) (FormatInfo, bool) {
	for _, fi := range allFormats {
		if fi.Name == f {
			return fi, true
		}
	}
	return FormatInfo{}, false
}

// ParseFormat accepts a format name. "jpg" is an alias for "jpeg".
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "jpg" {
		s = string(JPEG)
	}
	if _, ok := Info(Format(s)); !ok {
		return "", errors.New(errors.ErrCodeInvalidFormat, "unknown export format %q", s)
	}
	return Format(s), nil
}

// FormatForPath picks the native format for a file extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	for _, fi := range allFormats {
		if fi.Ext == ext && !fi.Graphviz {
			return fi.Name, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer export format from %q", path)
}

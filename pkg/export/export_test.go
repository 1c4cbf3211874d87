package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
)

func testScene() Scene {
	g := graph.New("t")
	_ = g.AddBlock(graph.Block{Key: 0x10})
	_ = g.AddBlock(graph.Block{Key: 0x20})
	_ = g.AddEdge(0x10, 0x20, graph.EdgeTrue)

	m := content.New(content.Options{Padding: 4})
	m.Add(0x10, "main", []content.RawLine{{Addr: 0x10, Text: "cmp eax, 1"}})
	m.Add(0x20, "", []content.RawLine{{Addr: 0x20, Text: "ret"}})

	return Scene{
		Graph:   g,
		Content: m,
		Layout: &layout.Result{
			Order: []graph.Key{0x10, 0x20},
			Nodes: map[graph.Key]layout.Rect{
				0x10: {X: 20, Y: 20, W: 100, H: 40},
				0x20: {X: 20, Y: 100, W: 100, H: 24},
			},
			Edges: []layout.EdgePath{{
				From: 0x10, To: 0x20, Kind: graph.EdgeTrue,
				Points: []layout.Point{{X: 70, Y: 60}, {X: 70, Y: 100}},
			}},
			Bounds: layout.Rect{W: 140, H: 144},
		},
		Metrics:  content.FixedMetrics{Char: 8, Line: 16},
		FontSize: 12,
		Theme:    render.Light,
	}
}

func noGraphviz() bool   { return false }
func withGraphviz() bool { return true }

func TestFormats(t *testing.T) {
	has := func(fs []FormatInfo, f Format) bool {
		for _, fi := range fs {
			if fi.Name == f {
				return true
			}
		}
		return false
	}
	without := New(WithGraphviz(noGraphviz)).Formats()
	if has(without, GVSVG) || has(without, GVPNG) {
		t.Error("graphviz formats offered without graphviz")
	}
	for _, f := range []Format{PNG, JPEG, SVG, DOT, JSON, GML, KV} {
		if !has(without, f) {
			t.Errorf("%s missing", f)
		}
	}
	if with := New(WithGraphviz(withGraphviz)).Formats(); !has(with, GVSVG) {
		t.Error("graphviz formats should be offered when available")
	}

	if f, _ := ParseFormat("JPG"); f != JPEG {
		t.Errorf("ParseFormat(JPG) = %q", f)
	}
	if f, _ := FormatForPath("out/graph.jpeg"); f != JPEG {
		t.Errorf("FormatForPath(.jpeg) = %q", f)
	}
	if _, err := FormatForPath("graph.bmp"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bmp: err = %v", err)
	}
}

func TestLargeRasterNeedsConfirmation(t *testing.T) {
	s := testScene()
	s.Layout.Bounds = layout.Rect{W: 10000, H: 10000}
	path := filepath.Join(t.TempDir(), "huge.png")

	var asked [][2]int
	decline := ConfirmFunc(func(_ context.Context, w, h int) (bool, error) {
		asked = append(asked, [2]int{w, h})
		return false, nil
	})
	err := New(WithConfirmer(decline)).Export(context.Background(), s, Request{Path: path})
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Fatalf("err = %v, want CANCELLED", err)
	}
	if len(asked) != 1 || asked[0] != [2]int{10000, 10000} {
		t.Errorf("confirmer calls = %v", asked)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("declined export must not create a file")
	}

	if err := New().Export(context.Background(), s, Request{Path: path}); !errors.Is(err, errors.ErrCodeCancelled) {
		t.Errorf("without a confirmer: err = %v", err)
	}

	s.Layout.Bounds = layout.Rect{W: 10000, H: 1}
	if err := New().Encode(context.Background(), &bytes.Buffer{}, s, Request{Format: SVG}); err != nil {
		t.Errorf("vector exports are not size limited: %v", err)
	}
}

func TestGraphvizPNGNeedsConfirmation(t *testing.T) {
	if info, _ := Info(GVPNG); !info.Raster {
		t.Error("gv-png should be a raster format")
	}
	calls := 0
	decline := ConfirmFunc(func(context.Context, int, int) (bool, error) {
		calls++
		return false, nil
	})
	e := New(WithGraphviz(withGraphviz), WithRasterThreshold(1), WithConfirmer(decline))

	var buf bytes.Buffer
	err := e.Encode(context.Background(), &buf, testScene(), Request{Format: GVPNG})
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Fatalf("err = %v, want CANCELLED", err)
	}
	if calls != 1 || buf.Len() != 0 {
		t.Errorf("confirmer calls = %d, wrote %d bytes", calls, buf.Len())
	}
}

func TestConfirmSize(t *testing.T) {
	var asked [][2]int
	accept := ConfirmFunc(func(_ context.Context, w, h int) (bool, error) {
		asked = append(asked, [2]int{w, h})
		return true, nil
	})
	e := New(WithGraphviz(noGraphviz), WithRasterThreshold(100), WithConfirmer(accept))
	s := testScene()
	ctx := context.Background()

	tests := []struct {
		req   Request
		asked bool
		code  errors.Code
	}{
		{Request{Format: PNG}, true, ""},
		{Request{Format: JPEG, Scale: 2}, true, ""},
		{Request{Format: SVG}, false, ""},
		{Request{Format: JSON}, false, ""},
		{Request{Format: PNG, SizeConfirmed: true}, false, ""},
		{Request{Format: GVPNG}, false, errors.ErrCodeUnsupported},
		{Request{Format: "bmp"}, false, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		asked = nil
		err := e.ConfirmSize(ctx, s, tt.req)
		if tt.code != "" {
			if !errors.Is(err, tt.code) {
				t.Errorf("%s: err = %v, want %s", tt.req.Format, err, tt.code)
			}
			continue
		}
		if err != nil || (len(asked) == 1) != tt.asked {
			t.Errorf("%s: err = %v, asked = %v", tt.req.Format, err, asked)
		}
	}
	if err := e.ConfirmSize(ctx, s, Request{Format: JPEG, Scale: 2}); err != nil || asked[0] != [2]int{280, 288} {
		t.Errorf("scaled size = %v, %v", asked, err)
	}

	// A confirmed request is encoded without asking again.
	asked = nil
	var buf bytes.Buffer
	if err := e.Encode(ctx, &buf, s, Request{Format: PNG, SizeConfirmed: true}); err != nil || len(asked) != 0 {
		t.Errorf("confirmed encode: err = %v, asked = %v", err, asked)
	}
}

func TestRasterExport(t *testing.T) {
	dir := t.TempDir()
	confirmed := false
	e := New(WithRasterThreshold(100), WithConfirmer(ConfirmFunc(func(context.Context, int, int) (bool, error) {
		confirmed = true
		return true, nil
	})))

	png := filepath.Join(dir, "g.png")
	if err := e.Export(context.Background(), testScene(), Request{Path: png}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !confirmed {
		t.Error("area above threshold should ask")
	}
	data, err := os.ReadFile(png)
	if err != nil || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("png output: %v", err)
	}

	jpg := filepath.Join(dir, "g.jpg")
	if err := e.Export(context.Background(), testScene(), Request{Path: jpg, Scale: 0.5}); err != nil {
		t.Fatalf("Export jpeg: %v", err)
	}
	if data, _ := os.ReadFile(jpg); !bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
		t.Error("jpeg output lacks SOI marker")
	}
}

func TestTextExports(t *testing.T) {
	e := New(WithGraphviz(noGraphviz))
	ctx := context.Background()
	tests := []struct {
		format Format
		want   []string
	}{
		{SVG, []string{"<svg", "cmp", "</svg>"}},
		{DOT, []string{`"0x10" -> "0x20"`, `label="main\lcmp eax, 1\l"`}},
		{KV, []string{
			"graph.command=agf",
			"graph.address=0x10",
			"graph.nodes=0x10,0x20",
			"graph.nodes.0x10.rect=20,20,100,40",
			"graph.nodes.0x10.neighbours=0x20",
			"graph.edges.0x10.0x20.kind=true",
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := e.Encode(ctx, &buf, testScene(), Request{Format: tt.format, Command: "agf", Address: 0x10}); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestKVEscapesValues(t *testing.T) {
	s := testScene()
	s.Graph.Title = "a=b\nsecond line"
	var buf bytes.Buffer
	req := Request{Format: KV, Command: "pdf @ main; e asm.lines=false"}
	if err := New().Encode(context.Background(), &buf, s, req); err != nil {
		t.Fatal(err)
	}

	values := map[string]string{}
	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok || k == "" {
			t.Fatalf("malformed line %q", line)
		}
		values[k] = v
	}
	decode := func(v string) string {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, "base64:"))
		if !strings.HasPrefix(v, "base64:") || err != nil {
			t.Fatalf("value %q is not base64: %v", v, err)
		}
		return string(raw)
	}
	if got := decode(values["graph.title"]); got != s.Graph.Title {
		t.Errorf("title = %q", got)
	}
	if got := decode(values["graph.command"]); got != req.Command {
		t.Errorf("command = %q", got)
	}
	if values["graph.nodes.0x10.title"] != "main" {
		t.Errorf("plain title = %q", values["graph.nodes.0x10.title"])
	}

	tests := []struct{ in, want string }{
		{"main", "main"},
		{"sym.imp.printf", "sym.imp.printf"},
		{"x=1", "base64:eD0x"},
		{"a\nb", "base64:YQpi"},
		{"base64:abc", "base64:YmFzZTY0OmFiYw=="},
	}
	for _, tt := range tests {
		if got := kvValue(tt.in); got != tt.want {
			t.Errorf("kvValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Encode(context.Background(), &buf, testScene(), Request{Format: JSON}); err != nil {
		t.Fatal(err)
	}
	doc, err := graph.ReadDocument(&buf)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if len(doc.Nodes) != 2 || doc.Nodes[0].Title != "main" || doc.Nodes[0].Lines[0] != "cmp eax, 1" {
		t.Errorf("nodes = %+v", doc.Nodes)
	}
	if doc.Nodes[1].Y != 100 || doc.Nodes[1].H != 24 {
		t.Errorf("geometry = %+v", doc.Nodes[1])
	}
	if len(doc.Edges) != 1 || len(doc.Edges[0].Points) != 4 {
		t.Errorf("edges = %+v", doc.Edges)
	}
}

func TestExportErrors(t *testing.T) {
	e := New(WithGraphviz(noGraphviz))
	ctx := context.Background()
	var buf bytes.Buffer

	if err := e.Encode(ctx, &buf, testScene(), Request{Format: GVSVG}); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("graphviz without runtime: err = %v", err)
	}
	if err := e.Encode(ctx, &buf, testScene(), Request{Format: "bmp"}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bmp: err = %v", err)
	}
	if err := e.Encode(ctx, &buf, Scene{Graph: graph.New(""), Layout: &layout.Result{}}, Request{Format: DOT}); !errors.Is(err, errors.ErrCodeEmptyGraph) {
		t.Errorf("empty: err = %v", err)
	}
	if err := e.Export(ctx, testScene(), Request{Path: "../outside.png"}); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("path: err = %v", err)
	}
}

package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/pipeline"
)

func TestExportCommandMultipleFormats(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, "export", "-a", "0x1000", "-f", "json,gml,kv", "-o", filepath.Join(dir, "main.out"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	for _, name := range []string{"main.json", "main.gml", "main.kv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
		if !strings.Contains(out, name) {
			t.Errorf("output does not list %s:\n%s", name, out)
		}
	}
	if !strings.Contains(out, "3 blocks") {
		t.Errorf("output lacks stats:\n%s", out)
	}

	f, err := os.Open(filepath.Join(dir, "main.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	doc, err := graph.ReadDocument(f)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "main" || len(doc.Nodes) != 3 || len(doc.Edges) != 3 {
		t.Errorf("document = %q with %d nodes, %d edges", doc.Title, len(doc.Nodes), len(doc.Edges))
	}
}

func TestExportCommandFormatFromExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.svg")
	if _, err := runCLI(t, "export", "-a", "0x1000", "-o", path); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Errorf("%s is not SVG", path)
	}
}

func TestExportCommandErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"empty graph", []string{"export", "-a", "0x9000", "-f", "json", "-o", filepath.Join(dir, "x.json")}, errors.ErrCodeEmptyGraph},
		{"unknown format", []string{"export", "-a", "0x1000", "-f", "bmp", "-o", filepath.Join(dir, "x.bmp")}, errors.ErrCodeInvalidFormat},
		{"unknown kind", []string{"export", "-k", "dominators", "-f", "json"}, errors.ErrCodeInvalidInput},
		{"bad strategy", []string{"export", "-a", "0x1000", "--strategy", "spiral", "-f", "json"}, errors.ErrCodeInvalidLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		formats []string
		want    map[string]string
	}{
		{"single with output", "out/g.png", []string{"png"}, map[string]string{"png": "out/g.png"}},
		{"single default", "", []string{"svg"}, map[string]string{"svg": "cfg-0x1000.svg"}},
		{"several", "out/g.png", []string{"png", "json"}, map[string]string{"png": "out/g.png", "json": "out/g.json"}},
		{"graphviz infix", "", []string{"svg", "gv-svg"}, map[string]string{"svg": "cfg-0x1000.svg", "gv-svg": "cfg-0x1000.gv.svg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputPaths(tt.output, "cfg-0x1000", tt.formats)
			if len(got) != len(tt.want) {
				t.Fatalf("outputPaths = %v, want %v", got, tt.want)
			}
			for f, p := range tt.want {
				if got[f] != p {
					t.Errorf("%s -> %q, want %q", f, got[f], p)
				}
			}
		})
	}
}

func TestExportFormats(t *testing.T) {
	fallback := []string{"svg"}
	if got := exportFormats(exportFlags{formats: "png,json"}, fallback); len(got) != 2 {
		t.Errorf("flag formats = %v", got)
	}
	if got := exportFormats(exportFlags{output: "g.gml"}, fallback); len(got) != 1 || got[0] != "gml" {
		t.Errorf("extension format = %v", got)
	}
	if got := exportFormats(exportFlags{output: "g"}, fallback); len(got) != 1 || got[0] != "svg" {
		t.Errorf("fallback format = %v", got)
	}
}

func TestDefaultBase(t *testing.T) {
	if got := defaultBase(pipeline.Options{Kind: "cfg", Address: 0x401000}); got != "cfg-0x401000" {
		t.Errorf("defaultBase = %q", got)
	}
	if got := defaultBase(pipeline.Options{Kind: "callgraph-global"}); got != "callgraph-global" {
		t.Errorf("defaultBase = %q", got)
	}
}

func TestLayoutCommand(t *testing.T) {
	out, err := runCLI(t, "layout", "-k", "list", "-a", "0x4000")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	var doc graph.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("stdout is not a document: %v\n%s", err, out)
	}
	// Two list nodes and the NULL terminator.
	if len(doc.Nodes) != 3 {
		t.Errorf("list layout has %d nodes, want 3", len(doc.Nodes))
	}
	for _, n := range doc.Nodes {
		if n.W <= 0 || n.H <= 0 {
			t.Errorf("node %s has no size: %+v", n.ID, n)
		}
	}
}

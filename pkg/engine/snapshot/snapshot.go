// Package snapshot implements engine.Analyzer from a recorded dump of
// analysis results stored as JSON or YAML.
//
// A dump looks like:
//
//	functions:
//	  - name: main
//	    entry: 0x1000
//	    size: 0x40
//	    blocks:
//	      - offset: 0x1000
//	        size: 0x10
//	        jump: 0x1020
//	        fail: 0x1010
//	        instructions:
//	          - {offset: 0x1000, text: "cmp edi, 1"}
//	calls:
//	  - from: 0x1000
//	    targets: [{addr: 0x2000, label: sym.imp.puts}]
//	xrefs:
//	  - {from: 0x100c, to: 0x1020, kind: CODE}
//	graphs:
//	  classes: {nodes: [{id: 0, title: Base, out_nodes: [1]}]}
//	lists:
//	  - {name: tcache, nodes: [{addr: 0x4000, next: 0x4040}]}
//
// JSON dumps use the same keys with decimal addresses.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/errors"
)

// Calls lists the call targets of one function.
type Calls struct {
	From    uint64              `json:"from" yaml:"from"`
	Targets []engine.CallTarget `json:"targets" yaml:"targets"`
}

// Data is the decoded dump.
type Data struct {
	Functions []engine.Function              `json:"functions,omitempty" yaml:"functions,omitempty"`
	Calls     []Calls                        `json:"calls,omitempty" yaml:"calls,omitempty"`
	Xrefs     []engine.Xref                  `json:"xrefs,omitempty" yaml:"xrefs,omitempty"`
	Graphs    map[string]engine.GenericGraph `json:"graphs,omitempty" yaml:"graphs,omitempty"`
	Lists     []engine.LinkedList            `json:"lists,omitempty" yaml:"lists,omitempty"`
}

// Format names a dump encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFor picks the encoding from a file extension. Unknown extensions
// are treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Engine answers queries from a Data value.
type Engine struct {
	data Data
}

var _ engine.Analyzer = (*Engine)(nil)

// New returns an engine over d.
func New(d Data) *Engine { return &Engine{data: d} }

// Load reads a dump from path.
func Load(path string) (*Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open snapshot")
	}
	defer f.Close()
	return Decode(f, FormatFor(path))
}

// Decode reads a dump in the given format.
func Decode(r io.Reader, format Format) (*Engine, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read snapshot")
	}
	var d Data
	switch format {
	case YAML:
		err = yaml.Unmarshal(raw, &d)
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		err = dec.Decode(&d)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown snapshot format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s snapshot", format)
	}
	return New(d), nil
}

// Encode writes the engine's data in the given format.
func (e *Engine) Encode(w io.Writer, format Format) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(e.data); err != nil {
			return err
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e.data)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown snapshot format %q", format)
	}
}

func (e *Engine) findFunction(addr uint64) (*engine.Function, bool) {
	for i := range e.data.Functions {
		f := &e.data.Functions[i]
		if f.Contains(addr) {
			return f, true
		}
		for _, b := range f.Blocks {
			if addr >= b.Addr && addr < b.End() {
				return f, true
			}
		}
	}
	return nil, false
}

func (e *Engine) FunctionGraph(ctx context.Context, addr uint64) (*engine.Function, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, ok := e.findFunction(addr)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no function at %#x", addr)
	}
	out := *f
	out.Blocks = slices.Clone(f.Blocks)
	return &out, nil
}

func (e *Engine) FunctionAt(ctx context.Context, addr uint64) (*engine.Function, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, ok := e.findFunction(addr)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no function at %#x", addr)
	}
	out := *f
	out.Blocks = nil
	return &out, nil
}

func (e *Engine) CallTargets(ctx context.Context, entry uint64) ([]engine.CallTarget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, c := range e.data.Calls {
		if c.From == entry {
			return slices.Clone(c.Targets), nil
		}
	}
	return nil, nil
}

func (e *Engine) CrossReferences(ctx context.Context, addr uint64) ([]engine.Xref, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []engine.Xref
	for _, x := range e.data.Xrefs {
		if x.From == addr {
			out = append(out, x)
		}
	}
	return out, nil
}

func (e *Engine) GenericGraph(ctx context.Context, command string) (*engine.GenericGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, ok := e.data.Graphs[command]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no graph for command %q", command)
	}
	return &g, nil
}

// Functions returns every function ordered by entry address.
func (e *Engine) Functions(ctx context.Context) ([]engine.Function, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]engine.Function, len(e.data.Functions))
	for i, f := range e.data.Functions {
		f.Blocks = nil
		out[i] = f
	}
	slices.SortStableFunc(out, func(a, b engine.Function) int {
		switch {
		case a.Entry < b.Entry:
			return -1
		case a.Entry > b.Entry:
			return 1
		}
		return 0
	})
	return out, nil
}

// LinkedList returns the list whose first node is at addr.
func (e *Engine) LinkedList(ctx context.Context, addr uint64) (*engine.LinkedList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, l := range e.data.Lists {
		if len(l.Nodes) > 0 && l.Nodes[0].Addr == addr {
			l.Nodes = slices.Clone(l.Nodes)
			return &l, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no list at %#x", addr)
}

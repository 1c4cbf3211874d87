package builder

import (
	"context"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/graph"
)

// CallGraph builds a graph of functions connected by calls.
//
// In local mode it holds the function containing the current address and
// its direct call targets. In global mode it holds every function, limited
// to [From, To) when To is non-zero. Targets the engine has no name for
// are labelled "unk.<address>".
type CallGraph struct {
	Global   bool
	From, To uint64
}

func (c CallGraph) Kind() Kind {
	if c.Global {
		return KindGlobalCallGraph
	}
	return KindCallGraph
}

func (c CallGraph) inRange(addr uint64) bool {
	return addr >= c.From && (c.To == 0 || addr < c.To)
}

func (c CallGraph) Load(ctx context.Context, a engine.Analyzer, req Request) (*Snapshot, error) {
	if c.Global {
		return c.loadGlobal(ctx, a, req)
	}
	fn, err := a.FunctionAt(ctx, req.Addr)
	if bad, cerr := failed(ctx, err); cerr != nil {
		return nil, cerr
	} else if bad || fn == nil {
		return empty(c.Kind(), req, "No function at %#x", req.Addr), nil
	}

	s := newSnapshot(c.Kind(), fn.Name, req)
	s.Centered = true
	addFunction(s, fn.Entry, fn.Name)
	targets, err := a.CallTargets(ctx, fn.Entry)
	if _, cerr := failed(ctx, err); cerr != nil {
		return nil, cerr
	}
	for _, t := range targets {
		addFunction(s, t.Addr, label(t.Addr, t.Label))
		_ = s.Graph.AddEdge(graph.Key(fn.Entry), graph.Key(t.Addr), graph.EdgeCall)
	}
	s.Graph.Entry = graph.Key(fn.Entry)
	s.Pruned = s.Graph.Cleanup()
	s.Current, s.HasCurrent, s.CurrentAddr = graph.Key(fn.Entry), true, req.Addr
	return s, nil
}

func (c CallGraph) loadGlobal(ctx context.Context, a engine.Analyzer, req Request) (*Snapshot, error) {
	fns, err := a.Functions(ctx)
	if bad, cerr := failed(ctx, err); cerr != nil {
		return nil, cerr
	} else if bad {
		fns = nil
	}

	s := newSnapshot(c.Kind(), "call graph", req)
	s.Centered = true
	var kept []engine.Function
	for _, fn := range fns {
		if c.inRange(fn.Entry) {
			kept = append(kept, fn)
			addFunction(s, fn.Entry, fn.Name)
		}
	}
	if len(kept) == 0 {
		return empty(c.Kind(), req, "No functions in range"), nil
	}

	for _, fn := range kept {
		targets, err := a.CallTargets(ctx, fn.Entry)
		if bad, cerr := failed(ctx, err); cerr != nil {
			return nil, cerr
		} else if bad {
			continue
		}
		for _, t := range targets {
			if !c.inRange(t.Addr) {
				continue
			}
			addFunction(s, t.Addr, label(t.Addr, t.Label))
			_ = s.Graph.AddEdge(graph.Key(fn.Entry), graph.Key(t.Addr), graph.EdgeCall)
		}
	}
	s.Pruned = s.Graph.Cleanup()

	for _, fn := range kept {
		if fn.Contains(req.Addr) {
			s.Current, s.HasCurrent, s.CurrentAddr = graph.Key(fn.Entry), true, req.Addr
			break
		}
	}
	return s, nil
}

// addFunction adds a one-line block for a function unless it exists.
func addFunction(s *Snapshot, addr uint64, name string) {
	key := graph.Key(addr)
	if s.Graph.AddBlock(graph.Block{Key: key}) != nil {
		return
	}
	s.Content.Add(key, "", []content.RawLine{{Addr: addr, Text: name}})
}

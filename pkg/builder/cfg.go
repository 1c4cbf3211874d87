package builder

import (
	"context"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/graph"
)

// CFG builds the control-flow graph of the function containing the
// current address. Each basic block becomes one graph block.
//
// A block with both a jump and a fail target gets a true edge to the jump
// and a false edge to the fail target. A single successor is an
// unconditional jump. Switch cases are plain edges.
type CFG struct{}

func (CFG) Kind() Kind { return KindCFG }

func (CFG) Load(ctx context.Context, a engine.Analyzer, req Request) (*Snapshot, error) {
	fn, err := a.FunctionGraph(ctx, req.Addr)
	if bad, cerr := failed(ctx, err); cerr != nil {
		return nil, cerr
	} else if bad || fn == nil || len(fn.Blocks) == 0 {
		return empty(KindCFG, req, "No function at %#x", req.Addr), nil
	}

	s := newSnapshot(KindCFG, fn.Name, req)
	for _, b := range fn.Blocks {
		key := graph.Key(b.Addr)
		if err := s.Graph.AddBlock(graph.Block{Key: key}); err != nil {
			continue
		}
		switch {
		case b.Jump != 0 && b.Fail != 0:
			_ = s.Graph.AddEdge(key, graph.Key(b.Jump), graph.EdgeTrue)
			_ = s.Graph.AddEdge(key, graph.Key(b.Fail), graph.EdgeFalse)
		case b.Jump != 0:
			_ = s.Graph.AddEdge(key, graph.Key(b.Jump), graph.EdgeJump)
		case b.Fail != 0:
			_ = s.Graph.AddEdge(key, graph.Key(b.Fail), graph.EdgeJump)
		}
		for _, c := range b.SwitchCases {
			_ = s.Graph.AddEdge(key, graph.Key(c), graph.EdgeGeneric)
		}

		title := ""
		if b.Addr == fn.Entry {
			title = fn.Name
		}
		s.Content.Add(key, title, instructionLines(b))
	}
	if s.Graph.Has(graph.Key(fn.Entry)) {
		s.Graph.Entry = graph.Key(fn.Entry)
	}
	s.Pruned = s.Graph.Cleanup()

	for _, b := range fn.Blocks {
		if req.Addr >= b.Addr && req.Addr < b.End() {
			s.Current, s.HasCurrent, s.CurrentAddr = graph.Key(b.Addr), true, req.Addr
			break
		}
	}
	return s, nil
}

// instructionLines converts instructions to content rows. Sizes missing
// from the engine are taken from the next instruction; the last
// instruction always extends to the end of the block.
func instructionLines(b engine.BasicBlock) []content.RawLine {
	lines := make([]content.RawLine, len(b.Instructions))
	for i, ins := range b.Instructions {
		size := ins.Size
		switch {
		case i == len(b.Instructions)-1:
			if b.End() > ins.Addr {
				size = int(b.End() - ins.Addr)
			}
		case size <= 0:
			if next := b.Instructions[i+1].Addr; next > ins.Addr {
				size = int(next - ins.Addr)
			}
		}
		lines[i] = content.RawLine{Addr: ins.Addr, Text: ins.Text, Size: size}
	}
	return lines
}

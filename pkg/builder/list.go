package builder

import (
	"context"
	"fmt"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/graph"
)

// Terminator is the key of the node drawn in place of a null pointer.
const Terminator graph.Key = 0

// DefaultTerminatorLabel is shown on the terminator node when the engine
// supplies no message.
const DefaultTerminatorLabel = "NULL"

// LinkedList builds a heap bin or other list starting at the current
// address. The end of the list is an explicit terminator node. Doubly
// linked lists also get edges for their back pointers.
type LinkedList struct{}

func (LinkedList) Kind() Kind { return KindLinkedList }

func (LinkedList) Load(ctx context.Context, a engine.Analyzer, req Request) (*Snapshot, error) {
	l, err := a.LinkedList(ctx, req.Addr)
	if bad, cerr := failed(ctx, err); cerr != nil {
		return nil, cerr
	} else if bad || l == nil || len(l.Nodes) == 0 {
		return empty(KindLinkedList, req, "No list at %#x", req.Addr), nil
	}

	title := l.Name
	if title == "" {
		title = fmt.Sprintf("list @ %#x", l.Nodes[0].Addr)
	}
	s := newSnapshot(KindLinkedList, title, req)
	for _, n := range l.Nodes {
		key := graph.Key(n.Addr)
		if n.Addr == 0 || s.Graph.AddBlock(graph.Block{Key: key}) != nil {
			continue
		}
		nodeTitle := n.Title
		if nodeTitle == "" {
			nodeTitle = fmt.Sprintf("%#x", n.Addr)
		}
		lines := make([]content.RawLine, len(n.Lines))
		for i, text := range n.Lines {
			lines[i] = content.RawLine{Addr: n.Addr, Text: text}
		}
		s.Content.Add(key, nodeTitle, lines)
	}

	terminated := false
	for _, n := range l.Nodes {
		from := graph.Key(n.Addr)
		if !s.Graph.Has(from) {
			continue
		}
		if n.Next == 0 {
			terminated = true
		}
		_ = s.Graph.AddEdge(from, graph.Key(n.Next), graph.EdgeJump)
		if l.Doubly && n.Prev != 0 {
			_ = s.Graph.AddEdge(from, graph.Key(n.Prev), graph.EdgeGeneric)
		}
	}
	if terminated {
		msg := l.Message
		if msg == "" {
			msg = DefaultTerminatorLabel
		}
		_ = s.Graph.AddBlock(graph.Block{Key: Terminator})
		s.Content.Add(Terminator, "", []content.RawLine{{Text: msg}})
	}
	s.Graph.Entry = graph.Key(l.Nodes[0].Addr)
	s.Pruned = s.Graph.Cleanup()

	if s.Graph.Has(graph.Key(req.Addr)) {
		s.Current, s.HasCurrent, s.CurrentAddr = graph.Key(req.Addr), true, req.Addr
	}
	return s, nil
}

package builder

import (
	"context"
	"strings"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/graph"
)

// Generic builds a graph from an engine command that prints a node list
// with explicit ids and outgoing targets. Repeated edges are kept once and
// edges to unknown ids are dropped.
type Generic struct{}

func (Generic) Kind() Kind { return KindGeneric }

func (Generic) Load(ctx context.Context, a engine.Analyzer, req Request) (*Snapshot, error) {
	if err := errors.ValidateCommand(req.Command); err != nil {
		return nil, err
	}
	gg, err := a.GenericGraph(ctx, req.Command)
	if bad, cerr := failed(ctx, err); cerr != nil {
		return nil, cerr
	} else if bad || gg == nil || len(gg.Nodes) == 0 {
		return empty(KindGeneric, req, "No graph from %q", req.Command), nil
	}

	s := newSnapshot(KindGeneric, req.Command, req)
	for _, n := range gg.Nodes {
		key := graph.Key(n.ID)
		if s.Graph.AddBlock(graph.Block{Key: key}) != nil {
			continue
		}
		s.Content.Add(key, n.Title, bodyLines(n.Body))
	}
	for _, n := range gg.Nodes {
		for _, to := range n.Out {
			_ = s.Graph.AddEdge(graph.Key(n.ID), graph.Key(to), graph.EdgeGeneric)
		}
	}
	s.Pruned = s.Graph.Cleanup()
	return s, nil
}

func bodyLines(body string) []content.RawLine {
	body = strings.TrimRight(body, "\n")
	if body == "" {
		return nil
	}
	parts := strings.Split(body, "\n")
	lines := make([]content.RawLine, len(parts))
	for i, p := range parts {
		lines[i] = content.RawLine{Text: p}
	}
	return lines
}

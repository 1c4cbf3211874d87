package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Document is the serialization format for a laid-out graph.
// Nodes are emitted in graph insertion order for deterministic output.
type Document struct {
	Title string     `json:"title,omitempty"`
	Entry string     `json:"entry,omitempty"`
	Nodes []WireNode `json:"nodes"`
	Edges []WireEdge `json:"edges"`
}

// WireNode is one block in a [Document].
type WireNode struct {
	ID    string   `json:"id"`
	Title string   `json:"title,omitempty"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	W     float64  `json:"w"`
	H     float64  `json:"h"`
	Lines []string `json:"lines,omitempty"`
}

// WireEdge is one edge in a [Document]. Points is a flat x,y sequence.
type WireEdge struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Kind   string    `json:"kind"`
	Points []float64 `json:"points,omitempty"`
}

// FormatKey renders a key as a 0x-prefixed hexadecimal string.
func FormatKey(k Key) string { return fmt.Sprintf("%#x", uint64(k)) }

// ParseKey parses keys written by FormatKey, as well as plain decimals.
func ParseKey(s string) (Key, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("parse key %q: %w", s, err)
	}
	return Key(v), nil
}

// ParseEdgeKind is the inverse of EdgeKind.String. Unknown names map to
// EdgeGeneric.
func ParseEdgeKind(s string) EdgeKind {
	for i, name := range edgeKindNames {
		if name == s {
			return EdgeKind(i)
		}
	}
	return EdgeGeneric
}

// FromGraph converts a snapshot to its wire form without geometry or text.
// Callers that have a layout fill in positions and lines afterwards.
func FromGraph(g *Graph) Document {
	doc := Document{
		Title: g.Title,
		Nodes: make([]WireNode, 0, g.Len()),
	}
	if g.Len() > 0 {
		doc.Entry = FormatKey(g.Entry)
	}
	for _, b := range g.Blocks() {
		doc.Nodes = append(doc.Nodes, WireNode{
			ID: FormatKey(b.Key),
			X:  b.X, Y: b.Y, W: b.Width, H: b.Height,
		})
		for _, e := range b.Edges {
			doc.Edges = append(doc.Edges, WireEdge{
				From: FormatKey(b.Key),
				To:   FormatKey(e.To),
				Kind: e.Kind.String(),
			})
		}
	}
	return doc
}

// ToGraph rebuilds a snapshot from its wire form and runs Cleanup, so
// edges to unknown nodes are silently dropped.
func ToGraph(doc Document) (*Graph, error) {
	g := New(doc.Title)
	for _, n := range doc.Nodes {
		k, err := ParseKey(n.ID)
		if err != nil {
			return nil, err
		}
		if err := g.AddBlock(Block{Key: k, X: n.X, Y: n.Y, Width: n.W, Height: n.H}); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range doc.Edges {
		from, err := ParseKey(e.From)
		if err != nil {
			return nil, err
		}
		to, err := ParseKey(e.To)
		if err != nil {
			return nil, err
		}
		if err := g.AddEdge(from, to, ParseEdgeKind(e.Kind)); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	if doc.Entry != "" {
		if k, err := ParseKey(doc.Entry); err == nil {
			g.Entry = k
		}
	}
	g.Cleanup()
	return g, nil
}

// WriteDocument encodes doc as indented JSON.
func WriteDocument(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadDocument decodes a JSON document.
func ReadDocument(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode: %w", err)
	}
	return doc, nil
}

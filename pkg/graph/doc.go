// Package graph defines the block/edge model shared by every disgraph
// component, plus its wire format.
//
// # Model
//
// A [Graph] is one snapshot produced by a builder pass: blocks keyed by an
// opaque 64-bit [Key] (usually an address), each holding an ordered list of
// outgoing [Edge] values. Edges carry an [EdgeKind] that only selects a
// colour and arrow style.
//
//	g := graph.New("main")
//	_ = g.AddBlock(graph.Block{Key: 0x1000})
//	_ = g.AddBlock(graph.Block{Key: 0x1010})
//	_ = g.AddEdge(0x1000, 0x1010, graph.EdgeTrue)
//	_ = g.AddEdge(0x1000, 0x9999, graph.EdgeFalse) // dangling
//	g.Cleanup()                                    // prunes 0x9999
//
// Snapshots are rebuilt from scratch on every reload and never mutated in
// place across reloads.
//
// # Wire Format
//
// [Document] is the node-link JSON format written by the JSON exporter and
// read back by tools:
//
//	{
//	  "title": "main",
//	  "entry": "0x1000",
//	  "nodes": [{"id": "0x1000", "x": 0, "y": 0, "w": 120, "h": 48, "lines": ["push rbp"]}],
//	  "edges": [{"from": "0x1000", "to": "0x1010", "kind": "true"}]
//	}
//
// # Concurrency
//
// Graph is not safe for concurrent use. The view engine owns each snapshot
// exclusively.
package graph

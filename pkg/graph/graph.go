package graph

import (
	"errors"
	"slices"
)

var (
	// ErrDuplicateKey is returned by [Graph.AddBlock] when a block with the
	// same key already exists in the snapshot. Keys must be unique.
	ErrDuplicateKey = errors.New("duplicate block key")

	// ErrUnknownSource is returned by [Graph.AddEdge] when the source block
	// does not exist. Targets are not checked at insertion time; dangling
	// targets are pruned by [Graph.Cleanup].
	ErrUnknownSource = errors.New("unknown source block")

	// ErrDanglingEdge is returned by [Graph.Validate] when an edge references
	// a block that doesn't exist. Call Cleanup before layout.
	ErrDanglingEdge = errors.New("edge target does not resolve to a block")
)

// Key identifies a block within one graph snapshot. It is usually the
// address of the basic block or function the block represents.
type Key uint64

// EdgeKind classifies an edge for rendering. It never affects layout beyond
// connectivity.
type EdgeKind int

const (
	// EdgeGeneric is an unclassified connection (switch cases, generic graphs).
	EdgeGeneric EdgeKind = iota
	// EdgeJump is an unconditional jump or fall-through.
	EdgeJump
	// EdgeTrue is the taken branch of a conditional jump.
	EdgeTrue
	// EdgeFalse is the not-taken branch of a conditional jump.
	EdgeFalse
	// EdgeCall is a call from one function to another.
	EdgeCall
)

var edgeKindNames = [...]string{"generic", "jump", "true", "false", "call"}

// String returns the lower-case name of the kind.
func (k EdgeKind) String() string {
	if int(k) < 0 || int(k) >= len(edgeKindNames) {
		return "generic"
	}
	return edgeKindNames[k]
}

// Edge is an outgoing connection stored on its source block.
type Edge struct {
	To   Key
	Kind EdgeKind
}

// Block is a rendered unit: one basic block, function or generic node.
//
// Width and Height are filled in from the measured content before layout;
// X and Y are the top-left corner assigned by the layout engine.
type Block struct {
	Key   Key
	Edges []Edge

	Width, Height float64
	X, Y          float64
}

// Graph is one immutable-by-convention snapshot of blocks and edges.
// Blocks are kept in insertion order, which builders make deterministic, so
// every traversal that matters for layout is reproducible.
//
// The zero value is not usable - use New to create a Graph.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	Title string
	Entry Key

	blocks map[Key]*Block
	order  []Key
}

// New creates an empty graph.
func New(title string) *Graph {
	return &Graph{
		Title:  title,
		blocks: make(map[Key]*Block),
	}
}

// AddBlock inserts a block. Its edge list is copied.
// Returns ErrDuplicateKey if the key is already present.
func (g *Graph) AddBlock(b Block) error {
	if _, exists := g.blocks[b.Key]; exists {
		return ErrDuplicateKey
	}
	b.Edges = slices.Clone(b.Edges)
	g.blocks[b.Key] = &b
	g.order = append(g.order, b.Key)
	if len(g.order) == 1 && g.Entry == 0 {
		g.Entry = b.Key
	}
	return nil
}

// AddEdge appends an outgoing edge to the from block.
// Returns ErrUnknownSource if from does not exist. The target may not exist
// yet; Cleanup removes edges whose target never appears.
func (g *Graph) AddEdge(from, to Key, kind EdgeKind) error {
	b, ok := g.blocks[from]
	if !ok {
		return ErrUnknownSource
	}
	b.Edges = append(b.Edges, Edge{To: to, Kind: kind})
	return nil
}

// Block returns the block with the given key.
// The pointer refers to the block stored in the graph.
func (g *Graph) Block(k Key) (*Block, bool) {
	b, ok := g.blocks[k]
	return b, ok
}

// Has reports whether a block with key k exists.
func (g *Graph) Has(k Key) bool {
	_, ok := g.blocks[k]
	return ok
}

// Blocks returns all blocks in insertion order.
func (g *Graph) Blocks() []*Block {
	out := make([]*Block, len(g.order))
	for i, k := range g.order {
		out[i] = g.blocks[k]
	}
	return out
}

// Keys returns all block keys in insertion order.
func (g *Graph) Keys() []Key { return slices.Clone(g.order) }

// Index returns the insertion index of k, or -1.
func (g *Graph) Index(k Key) int { return slices.Index(g.order, k) }

// Len returns the number of blocks.
func (g *Graph) Len() int { return len(g.order) }

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, b := range g.blocks {
		n += len(b.Edges)
	}
	return n
}

// Children returns the edge targets of k in edge order.
func (g *Graph) Children(k Key) []Key {
	b, ok := g.blocks[k]
	if !ok {
		return nil
	}
	out := make([]Key, len(b.Edges))
	for i, e := range b.Edges {
		out[i] = e.To
	}
	return out
}

// Parents returns the blocks with an edge to k, in insertion order.
func (g *Graph) Parents(k Key) []Key {
	var out []Key
	for _, from := range g.order {
		for _, e := range g.blocks[from].Edges {
			if e.To == k {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

// CleanupResult reports what [Graph.Cleanup] removed.
type CleanupResult struct {
	Dangling   int // edges whose target is not a block
	Duplicates int // repeated edges to the same target
}

// Cleanup prunes dangling and duplicate edges. The first edge to a given
// target wins, so its kind is the one rendered. After Cleanup, Validate
// returns nil.
func (g *Graph) Cleanup() CleanupResult {
	var res CleanupResult
	for _, k := range g.order {
		b := g.blocks[k]
		seen := make(map[Key]bool, len(b.Edges))
		b.Edges = slices.DeleteFunc(b.Edges, func(e Edge) bool {
			if _, ok := g.blocks[e.To]; !ok {
				res.Dangling++
				return true
			}
			if seen[e.To] {
				res.Duplicates++
				return true
			}
			seen[e.To] = true
			return false
		})
	}
	if _, ok := g.blocks[g.Entry]; !ok && len(g.order) > 0 {
		g.Entry = g.order[0]
	}
	return res
}

// Validate returns ErrDanglingEdge if any edge target is missing.
func (g *Graph) Validate() error {
	for _, b := range g.blocks {
		for _, e := range b.Edges {
			if _, ok := g.blocks[e.To]; !ok {
				return ErrDanglingEdge
			}
		}
	}
	return nil
}

// SameKeys reports whether g and other contain exactly the same block keys.
// The view uses it to decide between preserving and resetting the viewport.
func (g *Graph) SameKeys(other *Graph) bool {
	if g == nil || other == nil {
		return g == other
	}
	if len(g.blocks) != len(other.blocks) {
		return false
	}
	for k := range g.blocks {
		if _, ok := other.blocks[k]; !ok {
			return false
		}
	}
	return true
}

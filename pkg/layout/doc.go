// Package layout assigns positions to blocks and routes edges.
//
// Layout is a pure transform: a [graph.Graph] whose blocks already carry
// their measured sizes goes in, a [Result] with one rectangle per block and
// one polyline per edge comes out. The input graph is not modified; call
// [Result.Apply] to copy positions back onto the blocks.
//
// # Strategies
//
// The grid strategies ([GridNarrow], [GridMedium], [GridWide]) share one
// layered algorithm and differ only in spacing:
//
//  1. Split the graph into weakly connected components.
//  2. Ignore back edges found by a depth-first search from the entry.
//  3. Assign layers by longest path.
//  4. Subdivide edges spanning several layers with virtual slots.
//  5. Order each layer by barycentre sweeps, keeping the ordering with the
//     fewest crossings.
//  6. Pack each layer left to right and centre it.
//  7. Route forward edges through the gaps between layers and back edges
//     around the right side of the component.
//  8. Pack components into a near-square grid.
//
// [Graphviz] delegates to the embedded Graphviz "dot" engine with
// orthogonal splines. It is offered only when [GraphvizAvailable] reports
// true.
//
// # Determinism
//
// Identical input produces identical output. Every ordering decision is
// driven by block insertion order; maps are only used for lookups. This is
// what makes [CachedEngine] valid.
//
// # Orientation
//
// [Horizontal] is computed by transposing block sizes, laying out
// vertically and transposing the result back.
package layout

package layout

import (
	"cmp"
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/graph"
)

// orderingSweeps bounds the barycentre passes per component.
const orderingSweeps = 8

// vnode is a block or a virtual slot reserving room for a long edge.
type vnode struct {
	orig  int // input index, -1 for slots
	w, h  float64
	layer int
	x, y  float64
}

// chain is one routed edge: its source, the slots it passes through and
// its target, as local vnode ids.
type chain struct {
	kind  graph.EdgeKind
	back  bool
	nodes []int
	lane  int
}

type component struct {
	nodes  []vnode
	layers [][]int
	chains []chain
	layerY []float64
	layerH []float64
	width  float64
	edges  []EdgePath
	box    Rect
}

func layoutGrid(ctx context.Context, in *input, sp Spacing) (*Result, error) {
	res := &Result{
		Nodes: make(map[graph.Key]Rect, len(in.keys)),
		Order: slices.Clone(in.keys),
	}
	var comps []*component
	for _, members := range components(in) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCancelled, err, "grid layout")
		}
		c := newComponent(in, members)
		c.order()
		c.place(sp)
		c.route(in, sp)
		comps = append(comps, c)
	}
	packComponents(comps, sp.Vertical, func(c *component, dx, dy float64) {
		for _, n := range c.nodes {
			if n.orig >= 0 {
				res.Nodes[in.keys[n.orig]] = Rect{X: n.x + dx, Y: n.y + dy, W: n.w, H: n.h}
			}
		}
		for _, e := range c.edges {
			for i := range e.Points {
				e.Points[i].X += dx
				e.Points[i].Y += dy
			}
			res.Edges = append(res.Edges, e)
		}
	})
	slices.SortStableFunc(res.Edges, func(a, b EdgePath) int {
		return in.index[a.From] - in.index[b.From]
	})
	return res, nil
}

// components returns the weakly connected components of in. Members are
// sorted by insertion index and components by their first member.
func components(in *input) [][]int {
	ug := simple.NewUndirectedGraph()
	for i := range in.keys {
		ug.AddNode(simple.Node(i))
	}
	for from, edges := range in.out {
		for _, e := range edges {
			if e.to != from {
				ug.SetEdge(ug.NewEdge(simple.Node(from), simple.Node(e.to)))
			}
		}
	}
	var out [][]int
	for _, cc := range topo.ConnectedComponents(ug) {
		ids := make([]int, len(cc))
		for i, n := range cc {
			ids[i] = int(n.ID())
		}
		slices.Sort(ids)
		out = append(out, ids)
	}
	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	return out
}

func newComponent(in *input, members []int) *component {
	c := &component{nodes: make([]vnode, len(members))}
	local := make(map[int]int, len(members))
	for i, m := range members {
		local[m] = i
		c.nodes[i] = vnode{orig: m, w: in.w[m], h: in.h[m]}
	}
	children := make([][]inEdge, len(members))
	for i, m := range members {
		for _, e := range in.out[m] {
			children[i] = append(children[i], inEdge{to: local[e.to], kind: e.kind})
		}
	}

	root := 0
	if r, ok := local[in.entry]; ok {
		root = r
	}
	back := backEdges(children, root)

	forward := make([][]int, len(members))
	for u, edges := range children {
		for _, e := range edges {
			if !back[[2]int{u, e.to}] {
				forward[u] = append(forward[u], e.to)
			}
		}
	}
	layer, popOrder := assignLayers(forward)

	depth := 0
	for _, l := range layer {
		depth = max(depth, l+1)
	}
	c.layers = make([][]int, depth)
	for _, v := range popOrder {
		c.nodes[v].layer = layer[v]
		c.layers[layer[v]] = append(c.layers[layer[v]], v)
	}

	lanes := 0
	for u, edges := range children {
		for _, e := range edges {
			ch := chain{kind: e.kind, nodes: []int{u}}
			if back[[2]int{u, e.to}] {
				ch.back = true
				ch.lane = lanes
				lanes++
			} else {
				for l := layer[u] + 1; l < layer[e.to]; l++ {
					c.nodes = append(c.nodes, vnode{orig: -1, layer: l})
					slot := len(c.nodes) - 1
					c.layers[l] = append(c.layers[l], slot)
					ch.nodes = append(ch.nodes, slot)
				}
			}
			ch.nodes = append(ch.nodes, e.to)
			c.chains = append(c.chains, ch)
		}
	}
	return c
}

// backEdges runs a depth-first search from root, then from every unvisited
// node in index order, and returns the edges closing a cycle. Self loops
// are back edges.
func backEdges(children [][]inEdge, root int) map[[2]int]bool {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(children))
	back := make(map[[2]int]bool)

	var dfs func(u int)
	dfs = func(u int) {
		color[u] = gray
		for _, e := range children[u] {
			switch color[e.to] {
			case white:
				dfs(e.to)
			case gray:
				back[[2]int{u, e.to}] = true
			}
		}
		color[u] = black
	}
	if len(children) > 0 {
		dfs(root)
	}
	for u := range children {
		if color[u] == white {
			dfs(u)
		}
	}
	return back
}

// assignLayers places every node one layer below its deepest parent
// (longest path, Kahn's algorithm). It also returns the order in which
// nodes left the queue, used as the initial in-layer order.
func assignLayers(forward [][]int) (layer, popOrder []int) {
	n := len(forward)
	layer = make([]int, n)
	inDegree := make([]int, n)
	for _, outs := range forward {
		for _, v := range outs {
			inDegree[v]++
		}
	}
	queue := make([]int, 0, n)
	for v := range n {
		if inDegree[v] == 0 {
			queue = append(queue, v)
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		popOrder = append(popOrder, u)
		for _, v := range forward[u] {
			layer[v] = max(layer[v], layer[u]+1)
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	return layer, popOrder
}

// order reduces crossings with alternating barycentre sweeps and keeps the
// best ordering seen.
func (c *component) order() {
	up := make([][]int, len(c.nodes))
	down := make([][]int, len(c.nodes))
	for _, ch := range c.chains {
		if ch.back {
			continue
		}
		for i := 0; i+1 < len(ch.nodes); i++ {
			down[ch.nodes[i]] = append(down[ch.nodes[i]], ch.nodes[i+1])
			up[ch.nodes[i+1]] = append(up[ch.nodes[i+1]], ch.nodes[i])
		}
	}
	pos := make([]int, len(c.nodes))
	index := func(layer []int) {
		for i, v := range layer {
			pos[v] = i
		}
	}
	for _, l := range c.layers {
		index(l)
	}

	best := cloneLayers(c.layers)
	bestCross := c.crossings(down, pos)
	for sweep := 0; sweep < orderingSweeps && bestCross > 0; sweep++ {
		if sweep%2 == 0 {
			for l := 1; l < len(c.layers); l++ {
				sortByBarycentre(c.layers[l], up, pos)
				index(c.layers[l])
			}
		} else {
			for l := len(c.layers) - 2; l >= 0; l-- {
				sortByBarycentre(c.layers[l], down, pos)
				index(c.layers[l])
			}
		}
		if cross := c.crossings(down, pos); cross < bestCross {
			best, bestCross = cloneLayers(c.layers), cross
		}
	}
	c.layers = best
}

// sortByBarycentre orders layer by the mean position of each node's
// neighbours. Nodes without neighbours keep their position. The sort is
// stable, so ties keep the current order.
func sortByBarycentre(layer []int, adj [][]int, pos []int) {
	bary := make(map[int]float64, len(layer))
	for _, v := range layer {
		if len(adj[v]) == 0 {
			bary[v] = float64(pos[v])
			continue
		}
		sum := 0
		for _, n := range adj[v] {
			sum += pos[n]
		}
		bary[v] = float64(sum) / float64(len(adj[v]))
	}
	slices.SortStableFunc(layer, func(a, b int) int { return cmp.Compare(bary[a], bary[b]) })
}

func (c *component) crossings(down [][]int, pos []int) int {
	total := 0
	for l := 0; l+1 < len(c.layers); l++ {
		total += layerCrossings(c.layers[l], len(c.layers[l+1]), down, pos)
	}
	return total
}

// layerCrossings counts crossings between two adjacent layers as inversions
// of target positions, using a Fenwick tree.
func layerCrossings(upper []int, lowerLen int, down [][]int, pos []int) int {
	type pair struct{ upper, lower int }
	var edges []pair
	for i, v := range upper {
		for _, w := range down[v] {
			edges = append(edges, pair{i, pos[w]})
		}
	}
	if len(edges) < 2 {
		return 0
	}
	slices.SortFunc(edges, func(a, b pair) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})
	fenwick := make([]int, lowerLen+1)
	crossings, seen := 0, 0
	for _, e := range edges {
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & -q {
			lessOrEqual += fenwick[q]
		}
		crossings += seen - lessOrEqual
		seen++
		for q := e.lower + 1; q <= lowerLen; q += q & -q {
			fenwick[q]++
		}
	}
	return crossings
}

func cloneLayers(layers [][]int) [][]int {
	out := make([][]int, len(layers))
	for i, l := range layers {
		out[i] = slices.Clone(l)
	}
	return out
}

// place packs every layer left to right and centres it on the widest one.
func (c *component) place(sp Spacing) {
	c.layerY = make([]float64, len(c.layers))
	c.layerH = make([]float64, len(c.layers))
	rowW := make([]float64, len(c.layers))
	y := 0.0
	for l, layer := range c.layers {
		for i, v := range layer {
			c.layerH[l] = math.Max(c.layerH[l], c.nodes[v].h)
			rowW[l] += c.nodes[v].w
			if i > 0 {
				rowW[l] += sp.Horizontal
			}
		}
		c.layerY[l] = y
		y += c.layerH[l] + sp.Vertical
		c.width = math.Max(c.width, rowW[l])
	}
	for l, layer := range c.layers {
		x := (c.width - rowW[l]) / 2
		for _, v := range layer {
			c.nodes[v].x = x
			c.nodes[v].y = c.layerY[l]
			x += c.nodes[v].w + sp.Horizontal
		}
	}
}

func (c *component) gapBelow(l int, sp Spacing) float64 {
	return c.layerY[l] + c.layerH[l] + sp.Vertical/2
}

func (c *component) gapAbove(l int, sp Spacing) float64 {
	return c.layerY[l] - sp.Vertical/2
}

// route builds orthogonal polylines. Forward edges leave the bottom of the
// source, run along the gap below each layer and enter the top of the
// target. Back edges use one lane each to the right of the component.
func (c *component) route(in *input, sp Spacing) {
	outs := make([][]int, len(c.nodes))
	ins := make([][]int, len(c.nodes))
	for i, ch := range c.chains {
		outs[ch.nodes[0]] = append(outs[ch.nodes[0]], i)
		ins[ch.nodes[len(ch.nodes)-1]] = append(ins[ch.nodes[len(ch.nodes)-1]], i)
	}
	hop := func(ch chain, i int) float64 {
		n := c.nodes[ch.nodes[i]]
		return n.x + n.w/2
	}
	portOrder := func(list []int, next func(chain) float64) {
		slices.SortStableFunc(list, func(a, b int) int {
			ca, cb := c.chains[a], c.chains[b]
			if ca.back != cb.back {
				if ca.back {
					return 1
				}
				return -1
			}
			if ca.back {
				return ca.lane - cb.lane
			}
			return cmp.Compare(next(ca), next(cb))
		})
	}
	outX := make([]float64, len(c.chains))
	inX := make([]float64, len(c.chains))
	for v := range c.nodes {
		n := c.nodes[v]
		portOrder(outs[v], func(ch chain) float64 { return hop(ch, 1) })
		for i, ci := range outs[v] {
			outX[ci] = n.x + n.w*float64(i+1)/float64(len(outs[v])+1)
		}
		portOrder(ins[v], func(ch chain) float64 { return hop(ch, len(ch.nodes)-2) })
		for i, ci := range ins[v] {
			inX[ci] = n.x + n.w*float64(i+1)/float64(len(ins[v])+1)
		}
	}

	c.box = Rect{W: c.width, H: c.layerY[len(c.layerY)-1] + c.layerH[len(c.layerH)-1]}
	for i, ch := range c.chains {
		src := c.nodes[ch.nodes[0]]
		dst := c.nodes[ch.nodes[len(ch.nodes)-1]]
		var pts []Point
		if ch.back {
			laneX := c.width + float64(ch.lane+1)*sp.Lane
			below := c.gapBelow(src.layer, sp) + sp.Vertical/4
			above := c.gapAbove(dst.layer, sp) - sp.Vertical/4
			pts = []Point{
				{outX[i], src.y + src.h},
				{outX[i], below},
				{laneX, below},
				{laneX, above},
				{inX[i], above},
				{inX[i], dst.y},
			}
		} else {
			pts = []Point{{outX[i], src.y + src.h}, {outX[i], c.gapBelow(src.layer, sp)}}
			for _, s := range ch.nodes[1 : len(ch.nodes)-1] {
				slot := c.nodes[s]
				pts = append(pts,
					Point{slot.x, c.gapAbove(slot.layer, sp)},
					Point{slot.x, c.gapBelow(slot.layer, sp)})
			}
			pts = append(pts, Point{inX[i], c.gapAbove(dst.layer, sp)}, Point{inX[i], dst.y})
		}
		pts = compact(pts)
		for _, p := range pts {
			c.box = c.box.extend(p)
		}
		c.edges = append(c.edges, EdgePath{
			From:   in.keys[src.orig],
			To:     in.keys[dst.orig],
			Kind:   ch.kind,
			Back:   ch.back,
			Points: pts,
		})
	}
}

// compact drops repeated points and middle points of straight runs.
func compact(pts []Point) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		if n := len(out); n >= 2 {
			a, b := out[n-2], out[n-1]
			if (a.X == b.X && b.X == p.X) || (a.Y == b.Y && b.Y == p.Y) {
				out[n-1] = p
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// packComponents arranges components row-major in a grid with
// ceil(sqrt(n)) columns and calls place with each component's offset.
func packComponents(comps []*component, gap float64, place func(c *component, dx, dy float64)) {
	if len(comps) == 0 {
		return
	}
	cols := int(math.Ceil(math.Sqrt(float64(len(comps)))))
	y := 0.0
	for row := 0; row*cols < len(comps); row++ {
		x, rowH := 0.0, 0.0
		for _, c := range comps[row*cols : min((row+1)*cols, len(comps))] {
			place(c, x-c.box.X, y-c.box.Y)
			x += c.box.W + gap
			rowH = math.Max(rowH, c.box.H)
		}
		y += rowH + gap
	}
}

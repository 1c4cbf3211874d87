package graph_test

import (
	"fmt"
	"os"

	"github.com/matzehuels/disgraph/pkg/graph"
)

func ExampleGraph_Cleanup() {
	g := graph.New("main")
	_ = g.AddBlock(graph.Block{Key: 0x1000})
	_ = g.AddBlock(graph.Block{Key: 0x1010})
	_ = g.AddEdge(0x1000, 0x1010, graph.EdgeTrue)
	_ = g.AddEdge(0x1000, 0x1010, graph.EdgeFalse)
	_ = g.AddEdge(0x1010, 999, graph.EdgeJump)

	res := g.Cleanup()
	fmt.Println("dangling:", res.Dangling)
	fmt.Println("duplicates:", res.Duplicates)
	fmt.Println("edges:", g.EdgeCount())
	// Output:
	// dangling: 1
	// duplicates: 1
	// edges: 1
}

func ExampleWriteDocument() {
	g := graph.New("main")
	_ = g.AddBlock(graph.Block{Key: 0x10, Width: 80, Height: 20})
	_ = g.AddBlock(graph.Block{Key: 0x20, Width: 80, Height: 20, Y: 60})
	_ = g.AddEdge(0x10, 0x20, graph.EdgeJump)

	_ = graph.WriteDocument(os.Stdout, graph.FromGraph(g))
	// Output:
	// {
	//   "title": "main",
	//   "entry": "0x10",
	//   "nodes": [
	//     {
	//       "id": "0x10",
	//       "x": 0,
	//       "y": 0,
	//       "w": 80,
	//       "h": 20
	//     },
	//     {
	//       "id": "0x20",
	//       "x": 0,
	//       "y": 60,
	//       "w": 80,
	//       "h": 20
	//     }
	//   ],
	//   "edges": [
	//     {
	//       "from": "0x10",
	//       "to": "0x20",
	//       "kind": "jump"
	//     }
	//   ]
	// }
}

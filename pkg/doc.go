// Package pkg provides the core libraries for disgraph graph visualization.
//
// # Overview
//
// Disgraph turns the output of a binary analysis engine into laid-out,
// navigable diagrams: control-flow graphs, call graphs, generic graphs and
// linked lists. The pkg directory is organized into four main areas:
//
//  1. Sources - the analysis engines that answer queries ([engine])
//  2. Model - graph construction, block content and layout ([builder],
//     [graph], [content], [layout])
//  3. Output - rendering and export ([render], [export])
//  4. Interaction - the state behind an interactive view ([view],
//     [viewport], [selection], [seek])
//
// # Architecture
//
// The typical data flow through disgraph:
//
//	rizin process or YAML snapshot
//	         ↓
//	    [engine] package (JSON queries)
//	         ↓
//	    [builder] package (graph + content per kind)
//	         ↓
//	    [layout] package (grid or graphviz placement)
//	         ↓
//	    [render] package (scene onto a canvas)
//	         ↓
//	    SVG/PNG/JPEG/JSON/GML/KV/DOT output
//
// # Quick Start
//
// Render the control-flow graph at an address from a snapshot:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/disgraph/pkg/engine/snapshot"
//	    "github.com/matzehuels/disgraph/pkg/pipeline"
//	)
//
//	e, _ := snapshot.Load("analysis.yaml")
//	r := pipeline.NewRunner(e, nil, nil, nil)
//	defer r.Close()
//
//	result, _ := r.Execute(context.Background(), pipeline.Options{
//	    Kind:    "cfg",
//	    Address: 0x401000,
//	    Formats: []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
//
// # Main Packages
//
// ## Sources
//
// [engine] - The Analyzer interface plus the rizin subprocess client and the
// snapshot replayer used for tests and offline rendering.
//
// ## Model
//
// [builder] - One builder per graph kind (cfg, callgraph, callgraph-global,
// generic, list). Each produces a [graph.Graph] and a [content.Model].
//
// [graph] - Keyed blocks with ordered out-edges, plus the serializable
// document form used by the JSON exporter.
//
// [content] - Styled text lines per block and the metrics used to size them.
//
// [layout] - Grid strategies (narrow, medium, wide) and graphviz-backed
// placement, with a result cache keyed by graph and configuration.
//
// ## Output
//
// [render] - Themes, the Canvas interface and the scene painter shared by
// the raster, vector and terminal canvases.
//
// [render/nodelink] - DOT generation and Graphviz rendering.
//
// [export] - Format registry, raster size confirmation and atomic writes.
//
// ## Interaction
//
// [view] - Graph view state: refresh coalescing, option changes and
// navigation, independent of any UI toolkit.
//
// [viewport] - Pan, zoom and fit arithmetic.
//
// [selection] - Selected block and token tracking.
//
// [seek] - The shared current-address cell views synchronize on.
//
// ## Infrastructure
//
// [pipeline] - The load → layout → render pipeline used by every command.
//
// [cache] - File, Redis and no-op caches for rendered artifacts.
//
// [config] - TOML configuration with live reload.
//
// [errors] - Coded errors with user-facing messages.
//
// [observability] - Hooks for timing pipeline stages.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/layout/...   # Specific package
//	go test -run Example       # Examples only
//
// [engine]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/engine
// [builder]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/builder
// [graph]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/graph
// [graph.Graph]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/graph#Graph
// [content]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/content
// [content.Model]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/content#Model
// [layout]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/layout
// [render]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/render
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/render/nodelink
// [export]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/export
// [view]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/view
// [viewport]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/viewport
// [selection]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/selection
// [seek]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/seek
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/disgraph/pkg/observability
package pkg

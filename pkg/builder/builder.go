// Package builder turns engine query results into graph snapshots.
//
// Each builder is one variant of a closed set: [CFG], [CallGraph],
// [Generic] and [LinkedList]. They share the [Builder] interface and are
// injected into a view, which runs them on every reload.
//
// Builders are pure translations. A failed query is treated like an empty
// answer: the snapshot carries a placeholder Message instead of an error,
// and nothing is drawn but that message.
package builder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/observability"
)

// Kind names a builder variant.
type Kind string

const (
	KindCFG             Kind = "cfg"
	KindCallGraph       Kind = "callgraph"
	KindGlobalCallGraph Kind = "callgraph-global"
	KindGeneric         Kind = "generic"
	KindLinkedList      Kind = "list"
)

// Kinds lists every builder variant.
var Kinds = []Kind{KindCFG, KindCallGraph, KindGlobalCallGraph, KindGeneric, KindLinkedList}

// Request is what a view asks a builder to load.
type Request struct {
	// Addr is the current address. Generic graphs ignore it.
	Addr uint64
	// Command is the engine command for generic graphs.
	Command string
	// Columns is the content column budget; zero uses the default.
	Columns int
	// Padding is the inner block margin in graph units.
	Padding float64
}

// Snapshot is one fully built graph with its content.
type Snapshot struct {
	Kind    Kind
	Title   string
	Graph   *graph.Graph
	Content *content.Model

	// Current is the block containing CurrentAddr, when HasCurrent.
	Current     graph.Key
	HasCurrent  bool
	CurrentAddr uint64

	// Message replaces the graph when there is nothing to show.
	Message string

	// Centered asks for single-label node drawing.
	Centered bool

	// Pruned reports edges dropped by cleanup.
	Pruned graph.CleanupResult
}

// Empty reports whether the snapshot has no blocks.
func (s *Snapshot) Empty() bool { return s.Graph == nil || s.Graph.Len() == 0 }

// Builder loads one kind of graph.
type Builder interface {
	Kind() Kind
	Load(ctx context.Context, a engine.Analyzer, req Request) (*Snapshot, error)
}

// ByName returns the builder for kind.
func ByName(kind string) (Builder, error) {
	switch Kind(kind) {
	case KindCFG:
		return CFG{}, nil
	case KindCallGraph:
		return CallGraph{}, nil
	case KindGlobalCallGraph:
		return CallGraph{Global: true}, nil
	case KindGeneric:
		return Generic{}, nil
	case KindLinkedList:
		return LinkedList{}, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown graph kind %q (want one of %v)", kind, Kinds)
	}
}

// Run loads a snapshot with b, logging the result and reporting it to the
// observability hooks.
func Run(ctx context.Context, b Builder, a engine.Analyzer, req Request, logger *log.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	start := time.Now()
	snap, err := b.Load(ctx, a, req)
	dur := time.Since(start)

	blocks, edges := 0, 0
	if snap != nil && snap.Graph != nil {
		blocks, edges = snap.Graph.Len(), snap.Graph.EdgeCount()
	}
	observability.Layout().OnBuildComplete(ctx, string(b.Kind()), blocks, edges, dur, err)
	if err != nil {
		return nil, err
	}
	logger.Debug("graph built", "kind", b.Kind(), "title", snap.Title, "blocks", blocks, "edges", edges, "duration", dur)
	if snap.Pruned.Dangling > 0 || snap.Pruned.Duplicates > 0 {
		logger.Debug("edges pruned", "dangling", snap.Pruned.Dangling, "duplicates", snap.Pruned.Duplicates)
	}
	if snap.Message != "" {
		logger.Info(snap.Message)
	}
	return snap, nil
}

func newSnapshot(kind Kind, title string, req Request) *Snapshot {
	return &Snapshot{
		Kind:    kind,
		Title:   title,
		Graph:   graph.New(title),
		Content: content.New(content.Options{Columns: req.Columns, Padding: req.Padding}),
	}
}

// empty returns a placeholder snapshot.
func empty(kind Kind, req Request, format string, args ...any) *Snapshot {
	s := newSnapshot(kind, "", req)
	s.Message = fmt.Sprintf(format, args...)
	return s
}

// failed reports whether a query produced nothing usable. Cancellation is
// the only error that is not folded into an empty result.
func failed(ctx context.Context, err error) (bool, error) {
	if ctx.Err() != nil {
		return true, errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "load graph")
	}
	return err != nil, nil
}

func label(addr uint64, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("unk.%#x", addr)
}

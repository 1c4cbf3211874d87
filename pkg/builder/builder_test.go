package builder

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/engine/snapshot"
	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/observability"
)

func ins(addr uint64, text string) engine.Instruction {
	return engine.Instruction{Addr: addr, Text: text}
}

var testData = snapshot.Data{
	Functions: []engine.Function{
		{
			Name: "main", Entry: 0x1000, Size: 0x30,
			Blocks: []engine.BasicBlock{
				{Addr: 0x1000, Size: 0x10, Jump: 0x1010, Fail: 0x1020, Instructions: []engine.Instruction{
					ins(0x1000, "cmp edi, 1"), ins(0x1004, "jne 0x1010"),
				}},
				{Addr: 0x1010, Size: 0x10, Jump: 0x9000, SwitchCases: []uint64{0x1020, 0x1020}, Instructions: []engine.Instruction{
					ins(0x1010, "jmp qword [rax*8]"),
				}},
				{Addr: 0x1020, Size: 0x10, Instructions: []engine.Instruction{ins(0x1020, "ret")}},
			},
		},
		{Name: "helper", Entry: 0x2000, Size: 0x10},
		{Name: "far", Entry: 0x8000, Size: 0x10},
	},
	Calls: []snapshot.Calls{
		{From: 0x1000, Targets: []engine.CallTarget{{Addr: 0x2000, Label: "helper"}, {Addr: 0x3000}}},
		{From: 0x2000, Targets: []engine.CallTarget{{Addr: 0x8000, Label: "far"}}},
	},
	Graphs: map[string]engine.GenericGraph{
		"agc": {Nodes: []engine.GenericNode{
			{ID: 1, Title: "a", Body: "line one\nline two\n", Out: []int{2, 2, 999}},
			{ID: 2, Title: "b", Out: []int{1}},
			{ID: 2, Title: "dup"},
		}},
	},
	Lists: []engine.LinkedList{
		{Name: "fastbin[0]", Nodes: []engine.ListNode{
			{Addr: 0x4000, Next: 0x4040, Lines: []string{"size: 0x20"}},
			{Addr: 0x4040, Prev: 0x4000},
		}},
		{Name: "unsorted", Doubly: true, Message: "end of bin", Nodes: []engine.ListNode{
			{Addr: 0x5000, Next: 0x5040},
			{Addr: 0x5040, Prev: 0x5000},
		}},
	},
}

func analyzer() engine.Analyzer { return snapshot.New(testData) }

func edgesOf(g *graph.Graph, k graph.Key) []graph.Edge {
	b, ok := g.Block(k)
	if !ok {
		return nil
	}
	return b.Edges
}

func TestCFGConditional(t *testing.T) {
	s, err := CFG{}.Load(context.Background(), analyzer(), Request{Addr: 0x1004})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Graph.Len() != 3 || s.Title != "main" {
		t.Fatalf("got %d blocks titled %q", s.Graph.Len(), s.Title)
	}
	want := []graph.Edge{{To: 0x1010, Kind: graph.EdgeTrue}, {To: 0x1020, Kind: graph.EdgeFalse}}
	if got := edgesOf(s.Graph, 0x1000); !slices.Equal(got, want) {
		t.Errorf("edges from A = %v, want %v", got, want)
	}
	if !s.HasCurrent || s.Current != 0x1000 || s.CurrentAddr != 0x1004 {
		t.Errorf("current = %#x (%v), want 0x1000", s.Current, s.HasCurrent)
	}
	if s.Graph.Entry != 0x1000 {
		t.Errorf("entry = %#x", s.Graph.Entry)
	}
}

func TestCFGEdgesAndSizes(t *testing.T) {
	s, err := CFG{}.Load(context.Background(), analyzer(), Request{Addr: 0x1010})
	if err != nil {
		t.Fatal(err)
	}
	// jump outside the function is dangling; the repeated switch case is a
	// duplicate
	want := []graph.Edge{{To: 0x1020, Kind: graph.EdgeGeneric}}
	if got := edgesOf(s.Graph, 0x1010); !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	if s.Pruned.Dangling != 1 || s.Pruned.Duplicates != 1 {
		t.Errorf("pruned = %+v", s.Pruned)
	}

	a, _ := s.Content.Block(0x1000)
	if a.Title != "main" {
		t.Errorf("entry title = %q", a.Title)
	}
	if sizes := []int{a.Lines[0].Size, a.Lines[1].Size}; !slices.Equal(sizes, []int{4, 12}) {
		t.Errorf("sizes = %v, want [4 12]", sizes)
	}
	if b, _ := s.Content.Block(0x1010); b.Title != "" {
		t.Errorf("inner block title = %q, want none", b.Title)
	}
}

type failing struct{ engine.Analyzer }

func (failing) FunctionGraph(context.Context, uint64) (*engine.Function, error) {
	return nil, errors.New(errors.ErrCodeQueryFailed, "boom")
}

func TestCFGEmpty(t *testing.T) {
	for name, a := range map[string]engine.Analyzer{
		"missing": analyzer(),
		"failing": failing{analyzer()},
	} {
		t.Run(name, func(t *testing.T) {
			s, err := CFG{}.Load(context.Background(), a, Request{Addr: 0xdead})
			if err != nil {
				t.Fatalf("query failure must not be an error: %v", err)
			}
			if !s.Empty() || s.Message != "No function at 0xdead" {
				t.Errorf("snapshot = %+v", s)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (CFG{}).Load(ctx, analyzer(), Request{Addr: 0x1000}); !errors.Is(err, errors.ErrCodeCancelled) {
		t.Errorf("cancelled: err = %v", err)
	}
}

func TestCallGraphLocal(t *testing.T) {
	s, err := CallGraph{}.Load(context.Background(), analyzer(), Request{Addr: 0x1008})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Graph.Keys(); !slices.Equal(got, []graph.Key{0x1000, 0x2000, 0x3000}) {
		t.Errorf("keys = %#x", got)
	}
	unk, _ := s.Content.Block(0x3000)
	if unk.Lines[0].Text != "unk.0x3000" {
		t.Errorf("unnamed target label = %q", unk.Lines[0].Text)
	}
	for _, e := range edgesOf(s.Graph, 0x1000) {
		if e.Kind != graph.EdgeCall {
			t.Errorf("edge kind = %v, want call", e.Kind)
		}
	}
	if !s.Centered || s.Current != 0x1000 {
		t.Errorf("centered=%v current=%#x", s.Centered, s.Current)
	}
}

func TestCallGraphGlobal(t *testing.T) {
	s, err := CallGraph{Global: true, To: 0x4000}.Load(context.Background(), analyzer(), Request{Addr: 0x2004})
	if err != nil {
		t.Fatal(err)
	}
	// far (0x8000) is out of range, so helper's call to it is not drawn
	if got := s.Graph.Keys(); !slices.Equal(got, []graph.Key{0x1000, 0x2000, 0x3000}) {
		t.Errorf("keys = %#x", got)
	}
	if s.Current != 0x2000 {
		t.Errorf("current = %#x, want helper", s.Current)
	}

	s, _ = CallGraph{Global: true, From: 0x9000}.Load(context.Background(), analyzer(), Request{})
	if !s.Empty() || s.Message == "" {
		t.Errorf("empty range should produce a message, got %+v", s)
	}
}

func TestGenericDropsUnknownTargets(t *testing.T) {
	s, err := Generic{}.Load(context.Background(), analyzer(), Request{Command: "agc"})
	if err != nil {
		t.Fatalf("edge to unknown id must not fail: %v", err)
	}
	if s.Graph.Has(999) {
		t.Error("node 999 should not exist")
	}
	want := []graph.Edge{{To: 2, Kind: graph.EdgeGeneric}}
	if got := edgesOf(s.Graph, 1); !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	if err := s.Graph.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if b, _ := s.Content.Block(2); b.Title != "b" {
		t.Errorf("duplicate id replaced the first node: %q", b.Title)
	}
	if a, _ := s.Content.Block(1); len(a.Lines) != 2 {
		t.Errorf("body lines = %d, want 2", len(a.Lines))
	}

	if _, err := (Generic{}).Load(context.Background(), analyzer(), Request{Command: "agc | sh"}); !errors.Is(err, errors.ErrCodeInvalidCommand) {
		t.Errorf("err = %v, want INVALID_COMMAND", err)
	}
	s, err = Generic{}.Load(context.Background(), analyzer(), Request{Command: "nope"})
	if err != nil || !s.Empty() {
		t.Errorf("unknown command: %+v, %v", s, err)
	}
}

func TestLinkedList(t *testing.T) {
	s, err := LinkedList{}.Load(context.Background(), analyzer(), Request{Addr: 0x4000})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Graph.Keys(); !slices.Equal(got, []graph.Key{0x4000, 0x4040, Terminator}) {
		t.Errorf("keys = %#x", got)
	}
	if got := edgesOf(s.Graph, 0x4040); len(got) != 1 || got[0].To != Terminator {
		t.Errorf("singly list tail edges = %v", got)
	}
	term, _ := s.Content.Block(Terminator)
	if term.Lines[0].Text != DefaultTerminatorLabel {
		t.Errorf("terminator = %q", term.Lines[0].Text)
	}

	s, _ = LinkedList{}.Load(context.Background(), analyzer(), Request{Addr: 0x5000})
	want := []graph.Edge{{To: Terminator, Kind: graph.EdgeJump}, {To: 0x5000, Kind: graph.EdgeGeneric}}
	if got := edgesOf(s.Graph, 0x5040); !slices.Equal(got, want) {
		t.Errorf("doubly tail edges = %v, want %v", got, want)
	}
	term, _ = s.Content.Block(Terminator)
	if term.Lines[0].Text != "end of bin" {
		t.Errorf("terminator = %q", term.Lines[0].Text)
	}
}

type buildCounter struct {
	observability.NoopLayoutHooks
	kinds []string
}

func (h *buildCounter) OnBuildComplete(_ context.Context, kind string, _, _ int, _ time.Duration, _ error) {
	h.kinds = append(h.kinds, kind)
}

func TestRunAndByName(t *testing.T) {
	h := &buildCounter{}
	observability.SetLayoutHooks(h)
	defer observability.Reset()

	for _, k := range Kinds {
		b, err := ByName(string(k))
		if err != nil || b.Kind() != k {
			t.Fatalf("ByName(%q) = %v, %v", k, b, err)
		}
	}
	if _, err := ByName("tree"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v", err)
	}

	s, err := Run(context.Background(), CFG{}, analyzer(), Request{Addr: 0x1000}, nil)
	if err != nil || s.Graph.Len() != 3 {
		t.Fatalf("Run = %v, %v", s, err)
	}
	if !slices.Equal(h.kinds, []string{"cfg"}) {
		t.Errorf("hook kinds = %v", h.kinds)
	}
}

// Package engine defines the queries disgraph makes against an external
// binary-analysis engine.
//
// The engine is a pull-model collaborator: builders call it synchronously
// during a reload. Two implementations are provided:
//
//   - [github.com/matzehuels/disgraph/pkg/engine/snapshot]: answers from
//     a JSON or YAML dump, for tests, exports and offline viewing
//   - [github.com/matzehuels/disgraph/pkg/engine/rizin]: runs the rizin
//     command line tool and decodes its JSON output
//
// Builders treat a query error exactly like an empty answer.
package engine

import "context"

// Instruction is one disassembled instruction.
type Instruction struct {
	Addr uint64 `json:"offset" yaml:"offset"`
	Size int    `json:"size,omitempty" yaml:"size,omitempty"`
	Text string `json:"text" yaml:"text"`
}

// BasicBlock is one basic block of a function. Jump and Fail are zero when
// the block has no such successor.
type BasicBlock struct {
	Addr         uint64        `json:"offset" yaml:"offset"`
	Size         uint64        `json:"size" yaml:"size"`
	Jump         uint64        `json:"jump,omitempty" yaml:"jump,omitempty"`
	Fail         uint64        `json:"fail,omitempty" yaml:"fail,omitempty"`
	SwitchCases  []uint64      `json:"switch_cases,omitempty" yaml:"switch_cases,omitempty"`
	Instructions []Instruction `json:"instructions" yaml:"instructions"`
}

// End returns the first address after the block.
func (b BasicBlock) End() uint64 { return b.Addr + b.Size }

// Function is a function with its basic blocks. Blocks is empty in
// listings returned by Analyzer.Functions.
type Function struct {
	Name   string       `json:"name" yaml:"name"`
	Entry  uint64       `json:"entry" yaml:"entry"`
	Size   uint64       `json:"size,omitempty" yaml:"size,omitempty"`
	Blocks []BasicBlock `json:"blocks,omitempty" yaml:"blocks,omitempty"`
}

// CallTarget is a call made from a function. Label is empty when the
// engine has no name for the target.
type CallTarget struct {
	Addr  uint64 `json:"addr" yaml:"addr"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Xref is a cross-reference from one address to another.
type Xref struct {
	From uint64 `json:"from" yaml:"from"`
	To   uint64 `json:"to" yaml:"to"`
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// GenericNode is one node of a command-produced graph.
type GenericNode struct {
	ID    int    `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body,omitempty" yaml:"body,omitempty"`
	Out   []int  `json:"out_nodes,omitempty" yaml:"out_nodes,omitempty"`
}

// GenericGraph is a graph produced by an engine command.
type GenericGraph struct {
	Nodes []GenericNode `json:"nodes" yaml:"nodes"`
}

// ListNode is one chunk of a heap bin or other linked list. Next and Prev
// are zero for a null pointer.
type ListNode struct {
	Addr  uint64   `json:"addr" yaml:"addr"`
	Title string   `json:"title,omitempty" yaml:"title,omitempty"`
	Lines []string `json:"lines,omitempty" yaml:"lines,omitempty"`
	Next  uint64   `json:"next,omitempty" yaml:"next,omitempty"`
	Prev  uint64   `json:"prev,omitempty" yaml:"prev,omitempty"`
}

// LinkedList is a list starting at its first node. Message, when set,
// replaces the default terminator label.
type LinkedList struct {
	Name    string     `json:"name,omitempty" yaml:"name,omitempty"`
	Doubly  bool       `json:"doubly,omitempty" yaml:"doubly,omitempty"`
	Message string     `json:"message,omitempty" yaml:"message,omitempty"`
	Nodes   []ListNode `json:"nodes" yaml:"nodes"`
}

// Analyzer answers graph queries. Implementations must be safe to call
// from one goroutine at a time; they need not be safe for concurrent use.
type Analyzer interface {
	// FunctionGraph returns the function containing addr with its blocks.
	FunctionGraph(ctx context.Context, addr uint64) (*Function, error)
	// CallTargets returns the calls made by the function at entry.
	CallTargets(ctx context.Context, entry uint64) ([]CallTarget, error)
	// CrossReferences returns the references made from addr.
	CrossReferences(ctx context.Context, addr uint64) ([]Xref, error)
	// GenericGraph runs an engine command that produces a graph.
	GenericGraph(ctx context.Context, command string) (*GenericGraph, error)
	// Functions lists every known function without blocks.
	Functions(ctx context.Context) ([]Function, error)
	// LinkedList returns the list whose head is at addr.
	LinkedList(ctx context.Context, addr uint64) (*LinkedList, error)
	// FunctionAt returns the function containing addr without blocks.
	FunctionAt(ctx context.Context, addr uint64) (*Function, error)
}

// Contains reports whether addr lies inside f. A function without a size
// only contains its entry.
func (f *Function) Contains(addr uint64) bool {
	if f.Size == 0 {
		return addr == f.Entry
	}
	return addr >= f.Entry && addr < f.Entry+f.Size
}

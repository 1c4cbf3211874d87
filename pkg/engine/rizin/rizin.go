// Package rizin implements engine.Analyzer by running the rizin command
// line tool once per query and decoding its JSON output.
package rizin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/engine"
	"github.com/matzehuels/disgraph/pkg/errors"
)

// DefaultBinary is the executable looked up in PATH.
const DefaultBinary = "rizin"

// Runner executes one batch of rizin commands against a binary and returns
// standard output.
type Runner func(ctx context.Context, commands []string) ([]byte, error)

// Option configures an Engine.
type Option func(*Engine)

// WithBinary sets the rizin executable.
func WithBinary(path string) Option {
	return func(e *Engine) { e.bin = path }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRunner replaces process execution.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.run = r }
}

// Engine queries one binary through rizin. Every query runs analysis
// ("aaa") first, so results do not depend on earlier queries.
type Engine struct {
	target string
	bin    string
	logger *log.Logger
	run    Runner
}

var _ engine.Analyzer = (*Engine)(nil)

// New returns an engine for the binary at target.
func New(target string, opts ...Option) *Engine {
	e := &Engine{target: target, bin: DefaultBinary}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if e.run == nil {
		e.run = e.exec
	}
	return e
}

// Available reports whether the rizin executable can be found.
func (e *Engine) Available() bool {
	_, err := exec.LookPath(e.bin)
	return err == nil
}

func (e *Engine) exec(ctx context.Context, commands []string) ([]byte, error) {
	args := []string{"-q"}
	for _, c := range commands {
		args = append(args, "-c", c)
	}
	args = append(args, e.target)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.Error); ok {
			return nil, errors.Wrap(errors.ErrCodeToolUnavailable, err, "run %s", e.bin)
		}
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, err, "%s: %s", e.bin, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// query runs "aaa" followed by cmd and decodes the JSON answer into v.
func (e *Engine) query(ctx context.Context, cmd string, v any) error {
	e.logger.Debug("rizin query", "cmd", cmd, "target", e.target)
	out, err := e.run(ctx, []string{"aaa", cmd})
	if err != nil {
		return err
	}
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return errors.New(errors.ErrCodeNotFound, "%s returned nothing", cmd)
	}
	if err := json.Unmarshal(out, v); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, err, "decode %s output", cmd)
	}
	return nil
}

type rzOp struct {
	Offset uint64 `json:"offset"`
	Size   int    `json:"size"`
	Disasm string `json:"disasm"`
}

type rzBlock struct {
	Offset uint64 `json:"offset"`
	Size   uint64 `json:"size"`
	Jump   uint64 `json:"jump"`
	Fail   uint64 `json:"fail"`
	Switch *struct {
		Cases []struct {
			Jump uint64 `json:"jump"`
		} `json:"cases"`
	} `json:"switchop"`
	Ops []rzOp `json:"ops"`
}

type rzFunction struct {
	Name   string    `json:"name"`
	Offset uint64    `json:"offset"`
	Size   uint64    `json:"size"`
	Blocks []rzBlock `json:"blocks"`
}

func (f rzFunction) convert() *engine.Function {
	out := &engine.Function{Name: f.Name, Entry: f.Offset, Size: f.Size}
	for _, b := range f.Blocks {
		bb := engine.BasicBlock{Addr: b.Offset, Size: b.Size, Jump: b.Jump, Fail: b.Fail}
		if b.Switch != nil {
			for _, c := range b.Switch.Cases {
				bb.SwitchCases = append(bb.SwitchCases, c.Jump)
			}
		}
		for _, op := range b.Ops {
			bb.Instructions = append(bb.Instructions, engine.Instruction{Addr: op.Offset, Size: op.Size, Text: op.Disasm})
		}
		out.Blocks = append(out.Blocks, bb)
	}
	return out
}

func (e *Engine) FunctionGraph(ctx context.Context, addr uint64) (*engine.Function, error) {
	var fns []rzFunction
	if err := e.query(ctx, fmt.Sprintf("agfj @ %#x", addr), &fns); err != nil {
		return nil, err
	}
	if len(fns) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "no function at %#x", addr)
	}
	return fns[0].convert(), nil
}

func (e *Engine) FunctionAt(ctx context.Context, addr uint64) (*engine.Function, error) {
	var fns []rzFunction
	if err := e.query(ctx, fmt.Sprintf("afij @ %#x", addr), &fns); err != nil {
		return nil, err
	}
	if len(fns) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "no function at %#x", addr)
	}
	f := fns[0]
	return &engine.Function{Name: f.Name, Entry: f.Offset, Size: f.Size}, nil
}

func (e *Engine) Functions(ctx context.Context) ([]engine.Function, error) {
	var fns []rzFunction
	if err := e.query(ctx, "aflj", &fns); err != nil {
		return nil, err
	}
	out := make([]engine.Function, len(fns))
	for i, f := range fns {
		out[i] = engine.Function{Name: f.Name, Entry: f.Offset, Size: f.Size}
	}
	return out, nil
}

type rzXref struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
	Type string `json:"type"`
	Name string `json:"name"`
}

func (e *Engine) CrossReferences(ctx context.Context, addr uint64) ([]engine.Xref, error) {
	var xs []rzXref
	if err := e.query(ctx, fmt.Sprintf("axfj @ %#x", addr), &xs); err != nil {
		return nil, err
	}
	out := make([]engine.Xref, len(xs))
	for i, x := range xs {
		out[i] = engine.Xref{From: x.From, To: x.To, Kind: x.Type}
	}
	return out, nil
}

// CallTargets lists the CALL references made from the function at entry.
// Targets keep the order of their first call.
func (e *Engine) CallTargets(ctx context.Context, entry uint64) ([]engine.CallTarget, error) {
	var xs []rzXref
	if err := e.query(ctx, fmt.Sprintf("afxj @ %#x", entry), &xs); err != nil {
		return nil, err
	}
	var out []engine.CallTarget
	seen := make(map[uint64]bool)
	for _, x := range xs {
		if !strings.EqualFold(x.Type, "CALL") || seen[x.To] {
			continue
		}
		seen[x.To] = true
		out = append(out, engine.CallTarget{Addr: x.To, Label: x.Name})
	}
	return out, nil
}

// GenericGraph runs a graph command that prints the generic JSON graph
// format ({"nodes": [{"id", "title", "body", "out_nodes"}]}).
func (e *Engine) GenericGraph(ctx context.Context, command string) (*engine.GenericGraph, error) {
	if err := errors.ValidateCommand(command); err != nil {
		return nil, err
	}
	var g engine.GenericGraph
	if err := e.query(ctx, command, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// LinkedList is not available from the rizin command line.
func (e *Engine) LinkedList(_ context.Context, addr uint64) (*engine.LinkedList, error) {
	return nil, errors.New(errors.ErrCodeUnsupported, "linked list at %#x: not supported by rizin", addr)
}

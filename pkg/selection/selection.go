// Package selection tracks pointer interaction with a laid-out graph.
//
// A [Controller] moves between four states:
//
//	Idle -> BlockHovered -> BlockSelected -> TokenSelected
//
// Pointer positions are given in graph coordinates. A click is mapped to a
// block, then to a row by walking accumulated line heights, then to the
// word token under the pointer. At most one token is highlighted at a time.
package selection

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
)

// State is the interaction state.
type State int

const (
	Idle State = iota
	BlockHovered
	BlockSelected
	TokenSelected
)

var stateNames = [...]string{"idle", "block-hovered", "block-selected", "token-selected"}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Scene is the laid-out graph being interacted with.
type Scene struct {
	Layout  *layout.Result
	Content *content.Model
	Metrics content.Metrics
}

// Hit is what lies under a point.
type Hit struct {
	Key      graph.Key
	Row      int // -1 is the title row
	HasRow   bool
	Addr     uint64
	Token    content.Token
	HasToken bool
}

// HitTest finds the block, row and token at p. Blocks later in the layout
// order win, matching paint order.
func (s Scene) HitTest(p layout.Point) (Hit, bool) {
	if s.Layout == nil {
		return Hit{}, false
	}
	mt := s.Metrics
	if mt == nil {
		mt = content.DefaultMetrics
	}
	for i := len(s.Layout.Order) - 1; i >= 0; i-- {
		k := s.Layout.Order[i]
		r := s.Layout.Nodes[k]
		if !r.Contains(p) {
			continue
		}
		h := Hit{Key: k}
		if s.Content == nil {
			return h, true
		}
		row, ok := s.Content.RowAt(k, p.Y-r.Y, mt)
		if !ok {
			return h, true
		}
		h.Row, h.HasRow = row, true
		if row < 0 {
			return h, true
		}
		blk, _ := s.Content.Block(k)
		line := &blk.Lines[row]
		h.Addr = line.Addr
		if col := s.Content.ColumnAt(p.X-r.X, mt); col >= 0 {
			h.Token, h.HasToken = line.TokenAt(col)
		}
		return h, true
	}
	return Hit{}, false
}

// XrefResolver returns the targets referenced from addr.
type XrefResolver func(ctx context.Context, addr uint64) ([]uint64, error)

// ClipboardWriter receives copied text. github.com/atotto/clipboard
// satisfies it through an adapter in the CLI.
type ClipboardWriter interface {
	WriteAll(text string) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithDiagnostics registers a callback for non-fatal diagnostics, such as
// several cross-references where one was expected.
func WithDiagnostics(fn func(msg string)) Option {
	return func(c *Controller) { c.diag = fn }
}

// Controller is the selection state machine. It is not safe for
// concurrent use.
type Controller struct {
	state State

	hover    graph.Key
	hasHover bool

	key    graph.Key
	row    int
	hasRow bool
	token  string

	logger *log.Logger
	diag   func(string)
}

// New returns an idle controller.
func New(opts ...Option) *Controller {
	c := &Controller{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Selected returns the selected block.
func (c *Controller) Selected() (graph.Key, bool) {
	return c.key, c.state >= BlockSelected
}

// Row returns the selected row of the selected block.
func (c *Controller) Row() (int, bool) {
	return c.row, c.state >= BlockSelected && c.hasRow
}

// Hovered returns the block under the pointer.
func (c *Controller) Hovered() (graph.Key, bool) { return c.hover, c.hasHover }

// Token returns the highlighted token text, or "".
func (c *Controller) Token() string { return c.token }

// Hover updates the hovered block. It reports whether anything changed.
// Hovering never leaves a selected state.
func (c *Controller) Hover(s Scene, p layout.Point) bool {
	h, ok := s.HitTest(p)
	if ok == c.hasHover && (!ok || h.Key == c.hover) {
		return false
	}
	c.hover, c.hasHover = h.Key, ok
	if c.state <= BlockHovered {
		c.state = Idle
		if ok {
			c.state = BlockHovered
		}
	}
	return true
}

// Click selects what lies under p. Clicking empty space clears the
// selection.
func (c *Controller) Click(s Scene, p layout.Point) (Hit, bool) {
	h, ok := s.HitTest(p)
	if !ok {
		c.Clear()
		return Hit{}, false
	}
	c.key, c.row, c.hasRow = h.Key, h.Row, h.HasRow
	c.token = ""
	c.state = BlockSelected
	if h.HasToken {
		c.token = h.Token.Text
		c.state = TokenSelected
	}
	return h, true
}

// DoubleClick selects like Click and, when the pointer is on an
// instruction, returns the first cross-reference target of that
// instruction. Several targets are reported as a diagnostic; the first is
// still used.
func (c *Controller) DoubleClick(ctx context.Context, s Scene, p layout.Point, xrefs XrefResolver) (uint64, bool, error) {
	h, ok := c.Click(s, p)
	if !ok || !h.HasRow || h.Row < 0 || xrefs == nil {
		return 0, false, nil
	}
	targets, err := xrefs(ctx, h.Addr)
	if err != nil {
		return 0, false, err
	}
	if len(targets) == 0 {
		return 0, false, nil
	}
	if len(targets) > 1 {
		msg := fmt.Sprintf("%d cross-references from %#x, following the first (%#x)", len(targets), h.Addr, targets[0])
		c.logger.Warn(msg)
		if c.diag != nil {
			c.diag(msg)
		}
	}
	return targets[0], true, nil
}

// Select selects a block programmatically, as after a seek. row < -1
// selects the block without a row.
func (c *Controller) Select(k graph.Key, row int) {
	c.key, c.row, c.hasRow = k, row, row >= -1
	c.token = ""
	c.state = BlockSelected
}

// Clear drops the selection and the highlighted token.
func (c *Controller) Clear() {
	c.key, c.row, c.hasRow, c.token = 0, 0, false, ""
	c.state = Idle
	if c.hasHover {
		c.state = BlockHovered
	}
}

// Prune drops state that refers to blocks missing from g. It reports
// whether the selection survived.
func (c *Controller) Prune(g *graph.Graph, m *content.Model) bool {
	if c.hasHover && (g == nil || !g.Has(c.hover)) {
		c.hover, c.hasHover = 0, false
		if c.state == BlockHovered {
			c.state = Idle
		}
	}
	if c.state < BlockSelected {
		return false
	}
	if g == nil || !g.Has(c.key) {
		c.Clear()
		return false
	}
	if c.hasRow && m != nil {
		blk, ok := m.Block(c.key)
		if !ok || c.row >= len(blk.Lines) {
			c.row, c.hasRow = 0, false
		}
	}
	return true
}

// Copy writes the highlighted token to w and returns it. Nothing is
// written when no token is highlighted.
func (c *Controller) Copy(w ClipboardWriter) (string, error) {
	if c.token == "" {
		return "", nil
	}
	if err := w.WriteAll(c.token); err != nil {
		return "", err
	}
	return c.token, nil
}

// Overlay returns the selection for the render pipeline, or nil.
func (c *Controller) Overlay() *render.Selection {
	if c.state < BlockSelected {
		return nil
	}
	return &render.Selection{Key: c.key, Row: c.row, HasRow: c.hasRow, Token: c.token}
}

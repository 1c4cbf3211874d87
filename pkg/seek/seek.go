// Package seek keeps a view's address in sync with a cursor shared by the
// surrounding application.
//
// The cursor is injected, never global. A [Bridge] applies outbound seeks
// locally first and then moves the shared cursor; the notification that
// comes back for its own seek is suppressed so the change is not applied
// twice.
package seek

import (
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// Cursor is the shared "current address".
type Cursor interface {
	Address() uint64
	Seek(addr uint64)
	// Subscribe registers fn for every seek and returns a function that
	// removes it.
	Subscribe(fn func(addr uint64)) (cancel func())
}

// SharedCursor is an in-process Cursor. Subscribers run synchronously on
// the seeking goroutine, in subscription order. It is safe for concurrent
// use.
type SharedCursor struct {
	mu   sync.Mutex
	addr uint64
	next int
	subs map[int]func(uint64)
}

// NewCursor returns a cursor at addr.
func NewCursor(addr uint64) *SharedCursor {
	return &SharedCursor{addr: addr, subs: make(map[int]func(uint64))}
}

func (c *SharedCursor) Address() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

func (c *SharedCursor) Seek(addr uint64) {
	c.mu.Lock()
	c.addr = addr
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(uint64), len(ids))
	for i, id := range ids {
		fns[i] = c.subs[id]
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(addr)
	}
}

func (c *SharedCursor) Subscribe(fn func(uint64)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Target is the view a bridge drives.
type Target interface {
	// ShowLoaded centres on addr if the loaded graph contains it and
	// reports whether it did.
	ShowLoaded(addr uint64) bool
	// Reload rebuilds the graph around addr.
	Reload(addr uint64) error
}

// UnsyncedSuffix is appended to titles of views that ignore the cursor.
const UnsyncedSuffix = " (unsynced)"

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// Bridge connects one view to a shared cursor. It is not safe for
// concurrent use; seeks from other goroutines must be serialised by the
// caller.
type Bridge struct {
	cursor Cursor
	target Target
	logger *log.Logger

	synced   bool
	suppress bool
	local    uint64
	cancel   func()
}

// NewBridge subscribes target to cursor. The bridge starts synced.
func NewBridge(cursor Cursor, target Target, opts ...Option) *Bridge {
	b := &Bridge{cursor: cursor, target: target, synced: true, local: cursor.Address()}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	b.cancel = cursor.Subscribe(b.onSeek)
	return b
}

// Close unsubscribes from the cursor.
func (b *Bridge) Close() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// Address returns the address the view shows.
func (b *Bridge) Address() uint64 { return b.local }

// Synced reports whether seeks are shared.
func (b *Bridge) Synced() bool { return b.synced }

// SetSynced turns sharing on or off. Turning it on jumps to the shared
// cursor.
func (b *Bridge) SetSynced(on bool) {
	if on == b.synced {
		return
	}
	b.synced = on
	if on {
		b.apply(b.cursor.Address())
	}
}

// Title decorates base with the sync state.
func (b *Bridge) Title(base string) string {
	if b.synced {
		return base
	}
	return base + UnsyncedSuffix
}

// Request seeks to addr on behalf of the user: the view changes first,
// then the shared cursor moves.
func (b *Bridge) Request(addr uint64) {
	b.apply(addr)
	b.Announce(addr)
}

// Announce records addr as the view's address and moves the shared cursor
// without touching the target. The view must already show addr.
func (b *Bridge) Announce(addr uint64) {
	b.local = addr
	if !b.synced {
		return
	}
	b.suppress = true
	defer func() { b.suppress = false }()
	b.cursor.Seek(addr)
}

func (b *Bridge) onSeek(addr uint64) {
	if b.suppress || !b.synced {
		return
	}
	b.apply(addr)
}

// apply shows addr, reloading when the loaded graph does not contain it.
func (b *Bridge) apply(addr uint64) {
	b.local = addr
	if b.target.ShowLoaded(addr) {
		return
	}
	if err := b.target.Reload(addr); err != nil {
		b.logger.Warn("reload failed", "addr", addr, "err", err)
		return
	}
	b.target.ShowLoaded(addr)
}

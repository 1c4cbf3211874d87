package view

import (
	"github.com/google/uuid"
)

// EventKind identifies a view notification.
type EventKind int

const (
	// ViewRefreshed fires after a reload or restyle swapped in new content.
	ViewRefreshed EventKind = iota
	// ViewZoomed fires when the scale changes.
	ViewZoomed
	// SeekableChanged fires when the user points at a new address; Addr
	// carries it.
	SeekableChanged
	// GraphMoved fires when the visible region moves without a zoom.
	GraphMoved
)

var eventNames = [...]string{"refreshed", "zoomed", "seekable-changed", "moved"}

func (k EventKind) String() string {
	if int(k) < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is delivered to subscribers synchronously, in subscription order.
type Event struct {
	Kind EventKind
	View uuid.UUID
	Addr uint64
}

type subscriber struct {
	id int
	fn func(Event)
}

// Subscribe registers fn for every event and returns a function that
// removes it.
func (v *View) Subscribe(fn func(Event)) func() {
	v.nextSub++
	id := v.nextSub
	v.subs = append(v.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range v.subs {
			if s.id == id {
				v.subs = append(v.subs[:i], v.subs[i+1:]...)
				return
			}
		}
	}
}

func (v *View) emit(kind EventKind, addr uint64) {
	ev := Event{Kind: kind, View: v.id, Addr: addr}
	for _, s := range append([]subscriber(nil), v.subs...) {
		s.fn(ev)
	}
}

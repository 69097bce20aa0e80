package event

import (
	"context"
	"sync"
)

// MemoryEmitter records events in memory for test assertions.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryEmitter constructs an empty in-memory emitter.
func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

// Emit appends the event to the in-memory record.
func (e *MemoryEmitter) Emit(_ context.Context, ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

// Events returns a copy of everything emitted so far.
func (e *MemoryEmitter) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// Last returns the most recent event and whether one exists.
func (e *MemoryEmitter) Last() (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.events) == 0 {
		return Event{}, false
	}
	return e.events[len(e.events)-1], true
}

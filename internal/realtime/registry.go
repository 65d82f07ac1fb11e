package realtime

import (
	"encoding/json"
	"sync"
)

// Handler is invoked once per inbound occurrence of its event.
type Handler func(data json.RawMessage)

// Listener is a registered handler reference. Holding it lets a caller
// remove exactly one handler without touching others registered under the
// same event name.
type Listener struct {
	event string
	fn    Handler
}

// listenerRegistry maps event names to ordered handler lists. Handlers for
// one name are invoked in registration order; removal of one listener
// leaves the rest untouched.
type listenerRegistry struct {
	mu       sync.Mutex
	handlers map[string][]*Listener
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{handlers: make(map[string][]*Listener)}
}

func (r *listenerRegistry) add(event string, fn Handler) *Listener {
	l := &Listener{event: event, fn: fn}
	r.mu.Lock()
	r.handlers[event] = append(r.handlers[event], l)
	r.mu.Unlock()
	return l
}

// remove deletes the given listeners for event, or every listener for the
// event when none are given.
func (r *listenerRegistry) remove(event string, listeners ...*Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(listeners) == 0 {
		delete(r.handlers, event)
		return
	}
	current := r.handlers[event]
	kept := current[:0]
	for _, l := range current {
		remove := false
		for _, target := range listeners {
			if l == target {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(r.handlers, event)
	} else {
		r.handlers[event] = kept
	}
}

func (r *listenerRegistry) clear() {
	r.mu.Lock()
	r.handlers = make(map[string][]*Listener)
	r.mu.Unlock()
}

// dispatch invokes every handler registered for event, in registration
// order. The handler list is snapshotted so handlers may register or
// remove listeners without deadlocking.
func (r *listenerRegistry) dispatch(event string, data json.RawMessage) {
	r.mu.Lock()
	snapshot := make([]*Listener, len(r.handlers[event]))
	copy(snapshot, r.handlers[event])
	r.mu.Unlock()

	for _, l := range snapshot {
		l.fn(data)
	}
}

package merge

import (
	"sort"
	"sync"
)

// Hub fans events out to handlers in subscription order, on the publisher's goroutine.
// The zero value is ready to use.
type Hub[E any] struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(E)
}

// Subscribe adds fn and returns an idempotent func that removes it.
func (h *Hub[E]) Subscribe(fn func(E)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers == nil {
		h.handlers = make(map[int]func(E))
	}
	id := h.next
	h.next++
	h.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.handlers, id)
		})
	}
}

// Publish calls every handler with ev. Handlers may subscribe or unsubscribe while it runs.
func (h *Hub[E]) Publish(ev E) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.handlers))
	for id := range h.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(E), len(ids))
	for i, id := range ids {
		fns[i] = h.handlers[id]
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Clear drops every handler.
func (h *Hub[E]) Clear() {
	h.mu.Lock()
	h.handlers = nil
	h.mu.Unlock()
}

// Len is the number of subscribed handlers.
func (h *Hub[E]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers)
}

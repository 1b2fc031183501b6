package cores

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/shared"
)

// Memory is a mutable, thread-safe in-memory source.
type Memory[T any] struct {
	id       string
	readOnly bool

	mu     sync.RWMutex
	items  []T
	closed bool
	events merge.Hub[merge.SourceEvent[T]]
}

// NewMemory returns a mutable source holding a copy of items.
func NewMemory[T any](id string, items ...T) *Memory[T] {
	return &Memory[T]{id: id, items: slices.Clone(items)}
}

// NewReadOnlyMemory returns a source that rejects Add and Remove.
func NewReadOnlyMemory[T any](id string, items ...T) *Memory[T] {
	m := NewMemory(id, items...)
	m.readOnly = true
	return m
}

func (m *Memory[T]) ID() string { return m.id }

func (m *Memory[T]) TotalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory[T]) GetItems(ctx context.Context, limit, offset int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return window(m.items, limit, offset), nil
}

func (m *Memory[T]) CanAdd(ctx context.Context, index int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.readOnly && index >= 0 && index <= len(m.items), nil
}

func (m *Memory[T]) CanRemove(ctx context.Context, index int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.readOnly && index >= 0 && index < len(m.items), nil
}

func (m *Memory[T]) Add(ctx context.Context, item T, index int) error {
	if m.readOnly {
		return fmt.Errorf("%w: %s", shared.ErrReadOnly, m.id)
	}

	m.mu.Lock()
	if index < 0 || index > len(m.items) {
		n := len(m.items)
		m.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0, %d]", shared.ErrInvalidPosition, index, n)
	}
	m.items = slices.Insert(m.items, index, item)
	n := len(m.items)
	m.mu.Unlock()

	m.events.Publish(added(item, index, n))
	return nil
}

// Append adds item at the end.
func (m *Memory[T]) Append(ctx context.Context, item T) error {
	return m.Add(ctx, item, m.TotalCount())
}

func (m *Memory[T]) Remove(ctx context.Context, index int) error {
	if m.readOnly {
		return fmt.Errorf("%w: %s", shared.ErrReadOnly, m.id)
	}

	m.mu.Lock()
	if index < 0 || index >= len(m.items) {
		n := len(m.items)
		m.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0, %d)", shared.ErrInvalidPosition, index, n)
	}
	item := m.items[index]
	m.items = slices.Delete(m.items, index, index+1)
	n := len(m.items)
	m.mu.Unlock()

	m.events.Publish(removed(item, index, n))
	return nil
}

// Replace swaps the whole contents and announces it as one change.
func (m *Memory[T]) Replace(items ...T) {
	m.mu.Lock()
	before := m.items
	m.items = slices.Clone(items)
	after := slices.Clone(m.items)
	m.mu.Unlock()

	m.events.Publish(replaced(before, after))
}

func (m *Memory[T]) Subscribe(fn func(merge.SourceEvent[T])) func() {
	return m.events.Subscribe(fn)
}

// Items returns a copy of the current contents.
func (m *Memory[T]) Items() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items)
}

func (m *Memory[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Memory[T]) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Subscribers reports how many handlers are attached.
func (m *Memory[T]) Subscribers() int { return m.events.Len() }

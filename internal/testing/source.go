package testing

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/desertthunder/unison/internal/merge"
)

var ErrInjected = errors.New("injected failure")

// Window records one GetItems call.
type Window struct {
	Limit  int
	Offset int
}

// MockSource is a scriptable [merge.Source] backed by a slice.
//
// The Fail* fields inject errors; GetItemsFunc replaces the read entirely. Mutations emit
// events after releasing the lock, the way real sources are expected to.
type MockSource[T any] struct {
	mu     sync.Mutex
	id     string
	items  []T
	events merge.Hub[merge.SourceEvent[T]]
	calls  []Window
	closed int

	GetItemsFunc func(ctx context.Context, limit, offset int) ([]T, error)
	FailGet      bool
	FailAdd      bool
	FailRemove   bool
	FailClose    bool
	ReadOnly     bool
	// Silent suppresses change events, like a source that never reports changes.
	Silent bool
}

func NewMockSource[T any](id string, items ...T) *MockSource[T] {
	return &MockSource[T]{id: id, items: slices.Clone(items)}
}

func (m *MockSource[T]) ID() string { return m.id }

func (m *MockSource[T]) TotalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MockSource[T]) GetItems(ctx context.Context, limit, offset int) ([]T, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Window{Limit: limit, Offset: offset})
	fn, fail := m.GetItemsFunc, m.FailGet
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, limit, offset)
	}
	if fail {
		return nil, ErrInjected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.items) || limit <= 0 {
		return []T{}, nil
	}
	end := min(offset+limit, len(m.items))
	return slices.Clone(m.items[offset:end]), nil
}

func (m *MockSource[T]) CanAdd(ctx context.Context, index int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.ReadOnly && index >= 0 && index <= len(m.items), nil
}

func (m *MockSource[T]) CanRemove(ctx context.Context, index int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.ReadOnly && index >= 0 && index < len(m.items), nil
}

func (m *MockSource[T]) Add(ctx context.Context, item T, index int) error {
	m.mu.Lock()
	if m.FailAdd || m.ReadOnly {
		m.mu.Unlock()
		return ErrInjected
	}
	if index < 0 || index > len(m.items) {
		m.mu.Unlock()
		return merge.ErrIndexOutOfRange
	}
	m.items = slices.Insert(m.items, index, item)
	ev := merge.SourceEvent[T]{
		Kind:  merge.SourceItemsChanged,
		Added: []merge.LocalChange[T]{{Item: item, Index: index}},
		Count: len(m.items),
	}
	m.mu.Unlock()

	m.Emit(ev)
	return nil
}

func (m *MockSource[T]) Remove(ctx context.Context, index int) error {
	m.mu.Lock()
	if m.FailRemove || m.ReadOnly {
		m.mu.Unlock()
		return ErrInjected
	}
	if index < 0 || index >= len(m.items) {
		m.mu.Unlock()
		return merge.ErrIndexOutOfRange
	}
	item := m.items[index]
	m.items = slices.Delete(m.items, index, index+1)
	ev := merge.SourceEvent[T]{
		Kind:    merge.SourceItemsChanged,
		Removed: []merge.LocalChange[T]{{Item: item, Index: index}},
		Count:   len(m.items),
	}
	m.mu.Unlock()

	m.Emit(ev)
	return nil
}

// Append adds items at the end as an external change would.
func (m *MockSource[T]) Append(items ...T) {
	m.mu.Lock()
	ev := merge.SourceEvent[T]{Kind: merge.SourceItemsChanged}
	for _, item := range items {
		ev.Added = append(ev.Added, merge.LocalChange[T]{Item: item, Index: len(m.items)})
		m.items = append(m.items, item)
	}
	ev.Count = len(m.items)
	m.mu.Unlock()

	m.Emit(ev)
}

func (m *MockSource[T]) Subscribe(fn func(merge.SourceEvent[T])) func() {
	return m.events.Subscribe(fn)
}

// Emit delivers ev to every subscriber unless the source is silent.
func (m *MockSource[T]) Emit(ev merge.SourceEvent[T]) {
	m.mu.Lock()
	silent := m.Silent
	m.mu.Unlock()
	if silent {
		return
	}
	m.events.Publish(ev)
}

func (m *MockSource[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	if m.FailClose {
		return ErrInjected
	}
	return nil
}

func (m *MockSource[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

func (m *MockSource[T]) Calls() []Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func (m *MockSource[T]) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockSource[T]) Subscribers() int {
	return m.events.Len()
}

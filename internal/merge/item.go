package merge

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Facet is the representation of a merged item in one source.
type Facet[T any] struct {
	SourceID string
	// Index is the last known local index of the item in its source; -1 when unknown.
	Index int
	Item  T
}

// Item is a logical item backed by one or more facets, ordered by preference.
type Item[T any] struct {
	id     string
	mu     sync.RWMutex
	facets []Facet[T]
}

// NewItem builds a detached merged item, typically to pass to [Collection.Insert].
func NewItem[T any](facets ...Facet[T]) *Item[T] {
	return &Item[T]{id: uuid.New().String(), facets: slices.Clone(facets)}
}

func (m *Item[T]) ID() string {
	return m.id
}

// Facets returns a copy of the facets, preferred first.
func (m *Item[T]) Facets() []Facet[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.facets)
}

// Preferred returns the facet whose source ranks highest. ok is false for an item without facets.
func (m *Item[T]) Preferred() (Facet[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.facets) == 0 {
		return Facet[T]{}, false
	}
	return m.facets[0], true
}

// Value returns the preferred facet's item, or the zero value.
func (m *Item[T]) Value() T {
	f, _ := m.Preferred()
	return f.Item
}

// Facet returns the facet contributed by sourceID.
func (m *Item[T]) Facet(sourceID string) (Facet[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.facets {
		if f.SourceID == sourceID {
			return f, true
		}
	}
	return Facet[T]{}, false
}

// Sources lists the IDs of the contributing sources, preferred first.
func (m *Item[T]) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.facets))
	for i, f := range m.facets {
		ids[i] = f.SourceID
	}
	return ids
}

func (m *Item[T]) hasSource(sourceID string) bool {
	_, ok := m.Facet(sourceID)
	return ok
}

// upsert replaces the facet of f.SourceID or inserts f keeping facets sorted by less.
func (m *Item[T]) upsert(f Facet[T], less func(a, b string) int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.facets {
		if m.facets[i].SourceID == f.SourceID {
			m.facets[i] = f
			return
		}
	}
	m.facets = append(m.facets, f)
	slices.SortStableFunc(m.facets, func(a, b Facet[T]) int { return less(a.SourceID, b.SourceID) })
}

// drop removes the facet of sourceID and reports how many facets remain.
func (m *Item[T]) drop(sourceID string) (Facet[T], int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.facets {
		if f.SourceID == sourceID {
			m.facets = slices.Delete(m.facets, i, i+1)
			return f, len(m.facets)
		}
	}
	return Facet[T]{}, len(m.facets)
}

func (m *Item[T]) setIndex(sourceID string, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.facets {
		if m.facets[i].SourceID == sourceID {
			m.facets[i].Index = index
			return
		}
	}
}

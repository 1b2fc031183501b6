package merge

import (
	"slices"
	"sync"
)

// registry tracks merged identity: which source items are facets of which merged item.
type registry[T any] struct {
	mu       sync.Mutex
	identify func(T) string
	resolver Resolver[T]
	folds    *foldIndex[T]
	bySource map[string]map[string]*Item[T]
	ranks    map[string][2]int
}

func newRegistry[T any](identify func(T) string, resolver Resolver[T]) *registry[T] {
	if resolver.Equal == nil {
		resolver = Never[T]()
	}
	return &registry[T]{
		identify: identify,
		resolver: resolver,
		folds:    newFoldIndex[T](resolver.Key),
		bySource: make(map[string]map[string]*Item[T]),
		ranks:    make(map[string][2]int),
	}
}

func (r *registry[T]) setRank(sourceID string, rank [2]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranks[sourceID] = rank
}

// compare orders source IDs by preference; must be called with r.mu held.
func (r *registry[T]) compare(a, b string) int {
	ra, okA := r.ranks[a]
	rb, okB := r.ranks[b]
	switch {
	case okA && okB:
		return compareRank(ra, rb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return 0
	}
}

// resolve returns the merged item for a source item read at local, creating or folding it as needed.
func (r *registry[T]) resolve(sourceID string, local int, v T) *Item[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.identify(v)
	facet := Facet[T]{SourceID: sourceID, Index: local, Item: v}
	items := r.bySource[sourceID]
	if items == nil {
		items = make(map[string]*Item[T])
		r.bySource[sourceID] = items
	}

	if item, ok := items[key]; ok {
		item.upsert(facet, r.compare)
		return item
	}

	for _, candidate := range r.folds.candidates(v) {
		if candidate.hasSource(sourceID) {
			continue
		}
		if r.resolver.Equal(candidate.Value(), v) {
			candidate.upsert(facet, r.compare)
			items[key] = candidate
			return candidate
		}
	}

	item := NewItem(facet)
	r.folds.add(item, v)
	items[key] = item
	return item
}

// lookup finds the merged item holding v as a facet of sourceID.
func (r *registry[T]) lookup(sourceID string, v T) (*Item[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.bySource[sourceID][r.identify(v)]
	return item, ok
}

// detach drops the facet of sourceID for v. gone reports whether the merged item lost its last facet.
func (r *registry[T]) detach(sourceID string, v T) (item *Item[T], gone bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.identify(v)
	item, ok := r.bySource[sourceID][key]
	if !ok {
		return nil, false
	}
	delete(r.bySource[sourceID], key)
	if _, left := item.drop(sourceID); left == 0 {
		r.folds.remove(item)
		return item, true
	}
	return item, false
}

// detachedItem is a merged item that lost the facet of a removed source.
type detachedItem[T any] struct {
	item  *Item[T]
	facet Facet[T]
	gone  bool
}

// detachSource drops every facet of sourceID, in ascending order of last known local index.
func (r *registry[T]) detachSource(sourceID string) []detachedItem[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.bySource[sourceID]
	delete(r.bySource, sourceID)
	delete(r.ranks, sourceID)

	seen := make(map[*Item[T]]bool, len(items))
	out := make([]detachedItem[T], 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		facet, left := item.drop(sourceID)
		if left == 0 {
			r.folds.remove(item)
		}
		out = append(out, detachedItem[T]{item: item, facet: facet, gone: left == 0})
	}
	slices.SortStableFunc(out, func(a, b detachedItem[T]) int { return a.facet.Index - b.facet.Index })
	return out
}

// shift keeps the last known local indices of sourceID's facets in step with a source change.
// removed holds pre-change indices, added post-change indices.
func (r *registry[T]) shift(sourceID string, removed, added []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.bySource[sourceID]
	if len(items) == 0 {
		return
	}

	removed = slices.Clone(removed)
	slices.Sort(removed)
	added = slices.Clone(added)
	slices.Sort(added)

	seen := make(map[*Item[T]]bool, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		f, ok := item.Facet(sourceID)
		if !ok || f.Index < 0 {
			continue
		}
		idx := f.Index
		for i := len(removed) - 1; i >= 0; i-- {
			if removed[i] < idx {
				idx--
			}
		}
		for _, a := range added {
			if a <= idx {
				idx++
			}
		}
		if idx != f.Index {
			item.setIndex(sourceID, idx)
		}
	}
}

func (r *registry[T]) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	seen := make(map[*Item[T]]bool)
	for _, items := range r.bySource {
		for _, item := range items {
			if !seen[item] {
				seen[item] = true
				n++
			}
		}
	}
	return n
}

package cores

import "github.com/desertthunder/unison/internal/merge"

func added[T any](item T, index, count int) merge.SourceEvent[T] {
	return merge.SourceEvent[T]{
		Kind:  merge.SourceItemsChanged,
		Added: []merge.LocalChange[T]{{Item: item, Index: index}},
		Count: count,
	}
}

func removed[T any](item T, index, count int) merge.SourceEvent[T] {
	return merge.SourceEvent[T]{
		Kind:    merge.SourceItemsChanged,
		Removed: []merge.LocalChange[T]{{Item: item, Index: index}},
		Count:   count,
	}
}

// replaced describes swapping the whole contents of a source.
func replaced[T any](before, after []T) merge.SourceEvent[T] {
	ev := merge.SourceEvent[T]{Kind: merge.SourceItemsChanged, Count: len(after)}
	for i, v := range before {
		ev.Removed = append(ev.Removed, merge.LocalChange[T]{Item: v, Index: i})
	}
	for i, v := range after {
		ev.Added = append(ev.Added, merge.LocalChange[T]{Item: v, Index: i})
	}
	return ev
}

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) || limit <= 0 {
		return []T{}
	}
	out := make([]T, min(limit, len(items)-offset))
	copy(out, items[offset:])
	return out
}

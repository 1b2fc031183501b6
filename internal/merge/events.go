package merge

import "sort"

// EventKind tags an [Event].
type EventKind int

const (
	// EventItemsChanged carries items added and removed at global indices.
	EventItemsChanged EventKind = iota
	// EventCountChanged carries the new total.
	EventCountChanged
	// EventFacetsChanged reports that a merged item gained or lost a facet.
	EventFacetsChanged
)

func (k EventKind) String() string {
	switch k {
	case EventItemsChanged:
		return "items-changed"
	case EventCountChanged:
		return "count-changed"
	case EventFacetsChanged:
		return "facets-changed"
	default:
		return "unknown"
	}
}

// Change is one merged item at a global index. In a removal, Item is nil for a slot that was
// never read.
type Change[T any] struct {
	Item  *Item[T]
	Index int
}

// Event is the single notification type of a [Collection].
//
// Removed indices refer to the order before the change and Added indices to the order after it.
type Event[T any] struct {
	Kind     EventKind
	SourceID string
	Added    []Change[T]
	Removed  []Change[T]
	Total    int
	Item     *Item[T]
}

func sortChanges[T any](changes []Change[T]) {
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Index < changes[j].Index })
}

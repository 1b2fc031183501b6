package merge

import "context"

// Source is one backing collection contributed by one core.
//
// Events must be delivered in order for a given source and must not be sent while
// the source holds a lock that its own methods need.
type Source[T any] interface {
	// ID is stable for the lifetime of the source and unique within a collection.
	ID() string

	// TotalCount reports the current number of items.
	TotalCount() int

	// GetItems returns up to limit items starting at offset, in source order.
	GetItems(ctx context.Context, limit, offset int) ([]T, error)

	CanAdd(ctx context.Context, index int) (bool, error)
	CanRemove(ctx context.Context, index int) (bool, error)

	// Add inserts item at the local index. It either fully succeeds or leaves the source unchanged.
	Add(ctx context.Context, item T, index int) error

	// Remove deletes the item at the local index. Same atomicity as Add.
	Remove(ctx context.Context, index int) error

	// Subscribe registers fn for change notifications and returns a func that detaches it.
	// Calling the returned func more than once is a no-op.
	Subscribe(fn func(SourceEvent[T])) (cancel func())
}

// SourceEventKind tags a [SourceEvent].
type SourceEventKind int

const (
	SourceItemsChanged SourceEventKind = iota
	SourceCountChanged
)

func (k SourceEventKind) String() string {
	switch k {
	case SourceItemsChanged:
		return "items-changed"
	case SourceCountChanged:
		return "count-changed"
	default:
		return "unknown"
	}
}

// LocalChange is one item added to or removed from a source at a local index.
type LocalChange[T any] struct {
	Item  T
	Index int
}

// SourceEvent is a change notification from a single source.
//
// Count is the source's item count after the change for both kinds.
// Removed indices refer to positions before the change, Added indices to positions after it.
type SourceEvent[T any] struct {
	Kind    SourceEventKind
	Added   []LocalChange[T]
	Removed []LocalChange[T]
	Count   int
}

// registration is the collection's record of one source.
type registration[T any] struct {
	src     Source[T]
	id      string
	seq     int
	count   int
	cancel  func()
	removed bool
}

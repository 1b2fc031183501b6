package merge

import (
	"github.com/minio/highwayhash"
)

// Resolver decides whether two source items denote the same logical entity.
//
// Equal must be symmetric. Key is optional; when set, items with different keys are never compared,
// so Key must agree with Equal (equal items produce equal keys).
type Resolver[T any] struct {
	Equal func(a, b T) bool
	Key   func(T) []byte
}

// Never keeps every source item as its own merged item.
func Never[T any]() Resolver[T] {
	return Resolver[T]{Equal: func(T, T) bool { return false }}
}

// Always folds any item into an existing merged item that lacks a facet from the same source.
func Always[T any]() Resolver[T] {
	return Resolver[T]{Equal: func(T, T) bool { return true }}
}

// By folds items whose keys are identical.
func By[T any](key func(T) string) Resolver[T] {
	return Resolver[T]{
		Equal: func(a, b T) bool { return key(a) == key(b) },
		Key:   func(v T) []byte { return []byte(key(v)) },
	}
}

// Func folds items for which eq reports true.
func Func[T any](eq func(a, b T) bool) Resolver[T] {
	return Resolver[T]{Equal: eq}
}

var foldHashKey = []byte("unison-merge-fold-index-key-0001")

func foldHash(data []byte) uint64 {
	h, err := highwayhash.New64(foldHashKey)
	if err != nil {
		panic(err)
	}
	_, _ = h.Write(data)
	return h.Sum64()
}

// foldIndex narrows the merged items that a new facet could fold into.
type foldIndex[T any] struct {
	key     func(T) []byte
	buckets map[uint64][]*Item[T]
	hashes  map[*Item[T]]uint64
	all     []*Item[T]
}

func newFoldIndex[T any](key func(T) []byte) *foldIndex[T] {
	return &foldIndex[T]{
		key:     key,
		buckets: make(map[uint64][]*Item[T]),
		hashes:  make(map[*Item[T]]uint64),
	}
}

// candidates returns possible fold targets for v in creation order.
func (f *foldIndex[T]) candidates(v T) []*Item[T] {
	if f.key == nil {
		return f.all
	}
	return f.buckets[foldHash(f.key(v))]
}

func (f *foldIndex[T]) add(item *Item[T], v T) {
	if f.key == nil {
		f.all = append(f.all, item)
		return
	}
	h := foldHash(f.key(v))
	f.hashes[item] = h
	f.buckets[h] = append(f.buckets[h], item)
}

func (f *foldIndex[T]) remove(item *Item[T]) {
	if f.key == nil {
		f.all = removeItem(f.all, item)
		return
	}
	h, ok := f.hashes[item]
	if !ok {
		return
	}
	delete(f.hashes, item)
	if rest := removeItem(f.buckets[h], item); len(rest) > 0 {
		f.buckets[h] = rest
	} else {
		delete(f.buckets, h)
	}
}

func removeItem[T any](items []*Item[T], item *Item[T]) []*Item[T] {
	for i, it := range items {
		if it == item {
			return append(items[:i:i], items[i+1:]...)
		}
	}
	return items
}

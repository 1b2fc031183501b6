package library

import (
	"context"
	"sync"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

// Index is a lookup table over merged albums.
type Index struct {
	mu     sync.RWMutex
	byID   map[string]*merge.Item[models.Album]
	byName map[string]*merge.Item[models.Album]
}

func newIndex() *Index {
	return &Index{
		byID:   make(map[string]*merge.Item[models.Album]),
		byName: make(map[string]*merge.Item[models.Album]),
	}
}

// Refresh rebuilds the table from every item of albums.
func (x *Index) Refresh(ctx context.Context, albums *merge.Collection[models.Album], pageSize int) error {
	items, err := albums.All(ctx, pageSize)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	clear(x.byID)
	clear(x.byName)
	for _, item := range items {
		x.put(item)
	}
	return nil
}

// observe keeps the table in step with album change events. Removed slots that were never
// read carry no item and cannot be in the table.
func (x *Index) observe(ev merge.Event[models.Album]) {
	if ev.Kind != merge.EventItemsChanged {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range ev.Removed {
		if c.Item != nil && len(c.Item.Facets()) == 0 {
			x.drop(c.Item)
		}
	}
	for _, c := range ev.Added {
		x.put(c.Item)
	}
}

func (x *Index) put(item *merge.Item[models.Album]) {
	x.byID[item.ID()] = item
	if key := albumKey(item.Value()); key != "" {
		x.byName[key] = item
	}
}

func (x *Index) drop(item *merge.Item[models.Album]) {
	delete(x.byID, item.ID())
	for key, v := range x.byName {
		if v == item {
			delete(x.byName, key)
		}
	}
}

// Album returns the merged album with the given ID.
func (x *Index) Album(id string) (*merge.Item[models.Album], bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	item, ok := x.byID[id]
	return item, ok
}

// Len is the number of indexed albums.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}

// Link sets t.AlbumID to the merged album whose name matches t.Album, if any.
func (x *Index) Link(t models.Track) models.Track {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if item, ok := x.byName[shared.Normalize(t.Album)]; ok && t.Album != "" {
		t.AlbumID = item.ID()
	}
	return t
}

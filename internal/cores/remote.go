package cores

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/services"
	"github.com/desertthunder/unison/internal/shared"
)

// Fetch reads one window of a remote listing and reports the listing's total.
type Fetch[T any] func(ctx context.Context, limit, offset int) (items []T, total int, err error)

// Remote is a read-only source over a paginated remote listing.
//
// The count is whatever the last response reported; call [Remote.Refresh] to learn it before
// registering the source. A changed total is announced as a count change.
type Remote[T any] struct {
	id    string
	fetch Fetch[T]

	mu     sync.RWMutex
	total  int
	events merge.Hub[merge.SourceEvent[T]]
}

// NewRemote wraps fetch as a source named id.
func NewRemote[T any](id string, fetch Fetch[T]) *Remote[T] {
	return &Remote[T]{id: id, fetch: fetch}
}

// LibraryTracks is the saved tracks of svc.
func LibraryTracks(id string, svc services.Service) *Remote[models.Track] {
	return NewRemote(id, func(ctx context.Context, limit, offset int) ([]models.Track, int, error) {
		page, err := svc.LibraryTracks(ctx, limit, offset)
		if err != nil {
			return nil, 0, err
		}
		return page.Items, page.Total, nil
	})
}

// Playlists is the playlists of svc.
func Playlists(id string, svc services.Service) *Remote[models.Playlist] {
	return NewRemote(id, func(ctx context.Context, limit, offset int) ([]models.Playlist, int, error) {
		page, err := svc.Playlists(ctx, limit, offset)
		if err != nil {
			return nil, 0, err
		}
		return page.Items, page.Total, nil
	})
}

// PlaylistTracks is the tracks of one playlist of svc.
func PlaylistTracks(id string, svc services.Service, playlistID string) *Remote[models.Track] {
	return NewRemote(id, func(ctx context.Context, limit, offset int) ([]models.Track, int, error) {
		page, err := svc.PlaylistTracks(ctx, playlistID, limit, offset)
		if err != nil {
			return nil, 0, err
		}
		return page.Items, page.Total, nil
	})
}

func (r *Remote[T]) ID() string { return r.id }

func (r *Remote[T]) TotalCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

func (r *Remote[T]) GetItems(ctx context.Context, limit, offset int) ([]T, error) {
	if limit <= 0 {
		return []T{}, nil
	}
	items, total, err := r.fetch(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	r.observe(total)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Refresh fetches a single item to learn the current total.
func (r *Remote[T]) Refresh(ctx context.Context) error {
	_, total, err := r.fetch(ctx, 1, 0)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", r.id, err)
	}
	r.observe(total)
	return nil
}

func (r *Remote[T]) observe(total int) {
	r.mu.Lock()
	changed := total != r.total
	r.total = total
	r.mu.Unlock()

	if changed {
		r.events.Publish(merge.SourceEvent[T]{Kind: merge.SourceCountChanged, Count: total})
	}
}

func (r *Remote[T]) CanAdd(ctx context.Context, index int) (bool, error)    { return false, nil }
func (r *Remote[T]) CanRemove(ctx context.Context, index int) (bool, error) { return false, nil }

func (r *Remote[T]) Add(ctx context.Context, item T, index int) error {
	return fmt.Errorf("%w: %s", shared.ErrReadOnly, r.id)
}

func (r *Remote[T]) Remove(ctx context.Context, index int) error {
	return fmt.Errorf("%w: %s", shared.ErrReadOnly, r.id)
}

func (r *Remote[T]) Subscribe(fn func(merge.SourceEvent[T])) func() {
	return r.events.Subscribe(fn)
}

package cores

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/repositories"
)

// DatabaseTracks is the user's own track list, persisted in SQLite.
//
// Mutations are serialized; each one commits before its event is emitted.
type DatabaseTracks struct {
	id   string
	repo *repositories.LibraryRepository

	mu     sync.Mutex // serializes mutations
	count  int
	cmu    sync.RWMutex
	events merge.Hub[merge.SourceEvent[models.Track]]
}

// NewDatabaseTracks loads the current count from repo.
func NewDatabaseTracks(id string, repo *repositories.LibraryRepository) (*DatabaseTracks, error) {
	n, err := repo.Count()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return &DatabaseTracks{id: id, repo: repo, count: n}, nil
}

func (d *DatabaseTracks) ID() string { return d.id }

func (d *DatabaseTracks) TotalCount() int {
	d.cmu.RLock()
	defer d.cmu.RUnlock()
	return d.count
}

func (d *DatabaseTracks) setCount(n int) {
	d.cmu.Lock()
	d.count = n
	d.cmu.Unlock()
}

func (d *DatabaseTracks) GetItems(ctx context.Context, limit, offset int) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.repo.List(limit, offset)
}

func (d *DatabaseTracks) CanAdd(ctx context.Context, index int) (bool, error) {
	return index >= 0 && index <= d.TotalCount(), nil
}

func (d *DatabaseTracks) CanRemove(ctx context.Context, index int) (bool, error) {
	return index >= 0 && index < d.TotalCount(), nil
}

func (d *DatabaseTracks) Add(ctx context.Context, track models.Track, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	stored, err := d.repo.Insert(index, track)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	n := d.TotalCount() + 1
	d.setCount(n)
	d.mu.Unlock()

	d.events.Publish(added(stored, index, n))
	return nil
}

func (d *DatabaseTracks) Remove(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	track, err := d.repo.RemoveAt(index)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	n := d.TotalCount() - 1
	d.setCount(n)
	d.mu.Unlock()

	d.events.Publish(removed(track, index, n))
	return nil
}

func (d *DatabaseTracks) Subscribe(fn func(merge.SourceEvent[models.Track])) func() {
	return d.events.Subscribe(fn)
}

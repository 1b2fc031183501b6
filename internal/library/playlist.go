package library

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

type refresher interface {
	Refresh(ctx context.Context) error
}

// MergedPlaylist is a merged playlist together with the merged tracks of all its facets.
//
// Track sources follow the playlist's facets: when a core's facet leaves the playlist, that
// core's tracks leave the collection.
type MergedPlaylist struct {
	lib     *Library
	item    *merge.Item[models.Playlist]
	tracks  *merge.Collection[models.Track]
	members *merge.Membership[models.Track]
	cancel  func()

	mu      sync.Mutex
	sources []string
	closed  bool
}

// OpenPlaylist builds the merged track collection of item. The caller closes it.
func (l *Library) OpenPlaylist(ctx context.Context, item *merge.Item[models.Playlist]) (*MergedPlaylist, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: nil playlist", shared.ErrInvalidArgument)
	}

	tracks, members, err := newCollection("playlist", Options{
		Ranking:     l.opts.Ranking,
		OwnsSources: true,
		Logger:      l.logger.With("playlist", item.ID()),
	}, models.IdentityOf[models.Track], TrackPolicy())
	if err != nil {
		return nil, err
	}

	mp := &MergedPlaylist{lib: l, item: item, tracks: tracks, members: members}
	mp.sync(ctx)
	mp.cancel = l.playlists.Subscribe(mp.observe)
	return mp, nil
}

func (mp *MergedPlaylist) Item() *merge.Item[models.Playlist] { return mp.item }

func (mp *MergedPlaylist) Tracks() *merge.Collection[models.Track] { return mp.tracks }

// Sources lists the cores currently feeding the track collection.
func (mp *MergedPlaylist) Sources() []string {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return slices.Clone(mp.sources)
}

func (mp *MergedPlaylist) observe(ev merge.Event[models.Playlist]) {
	switch ev.Kind {
	case merge.EventFacetsChanged:
		if ev.Item == mp.item {
			mp.sync(context.Background())
		}
	case merge.EventItemsChanged:
		for _, c := range ev.Removed {
			if c.Item == mp.item {
				mp.sync(context.Background())
				return
			}
		}
	}
}

// sync adds a track source for every new facet and drops those whose facet is gone.
func (mp *MergedPlaylist) sync(ctx context.Context) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.closed {
		return
	}

	facets := mp.item.Facets()
	want := make(map[string]models.Playlist, len(facets))
	for _, f := range facets {
		want[f.SourceID] = f.Item
	}

	kept := mp.sources[:0]
	for _, id := range mp.sources {
		if _, ok := want[id]; ok {
			kept = append(kept, id)
			continue
		}
		if err := mp.members.RemoveSource(ctx, id); err != nil {
			mp.lib.logger.Warn("failed to drop playlist tracks", "playlist", mp.item.ID(), "source", id, "err", err)
		}
	}
	mp.sources = kept

	for _, f := range facets {
		if slices.Contains(mp.sources, f.SourceID) {
			continue
		}
		core, ok := mp.lib.core(f.SourceID)
		if !ok || core.PlaylistTracks == nil {
			continue
		}
		src := core.PlaylistTracks(f.Item.ID)
		if r, ok := src.(refresher); ok {
			if err := r.Refresh(ctx); err != nil {
				mp.lib.logger.Warn("failed to load playlist tracks", "playlist", mp.item.ID(), "source", f.SourceID, "err", err)
			}
		}
		if err := mp.members.AddSource(ctx, src); err != nil {
			mp.lib.logger.Warn("failed to add playlist tracks", "playlist", mp.item.ID(), "source", f.SourceID, "err", err)
			continue
		}
		mp.sources = append(mp.sources, f.SourceID)
	}
}

// Close stops following the playlist and disposes its track collection.
func (mp *MergedPlaylist) Close(ctx context.Context) error {
	mp.mu.Lock()
	if mp.closed {
		mp.mu.Unlock()
		return nil
	}
	mp.closed = true
	mp.mu.Unlock()

	mp.cancel()
	return mp.tracks.Close(ctx)
}

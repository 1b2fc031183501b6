package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

// Core bundles the sources one provider contributes. Nil sources are skipped; every non-nil
// source must report ID as its own ID.
type Core struct {
	ID        string
	Tracks    merge.Source[models.Track]
	Albums    merge.Source[models.Album]
	Artists   merge.Source[models.Artist]
	Playlists merge.Source[models.Playlist]

	// PlaylistTracks opens the tracks of one of this core's playlists. Optional; the returned
	// source reports ID as well.
	PlaylistTracks func(playlistID string) merge.Source[models.Track]
}

func (c *Core) validate() error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: core id is empty", shared.ErrInvalidArgument)
	}
	for _, id := range []string{sourceID(c.Tracks), sourceID(c.Albums), sourceID(c.Artists), sourceID(c.Playlists)} {
		if id != "" && id != c.ID {
			return fmt.Errorf("%w: source %q in core %q", shared.ErrInvalidArgument, id, c.ID)
		}
	}
	return nil
}

func sourceID[T any](src merge.Source[T]) string {
	if src == nil {
		return ""
	}
	return src.ID()
}

// Options configures a [Library].
type Options struct {
	Ranking     merge.Ranking
	OwnsSources bool
	PageSize    int
	Logger      *log.Logger
}

// Library is the merged view over every attached core.
type Library struct {
	opts   Options
	logger *log.Logger

	tracks    *merge.Collection[models.Track]
	albums    *merge.Collection[models.Album]
	artists   *merge.Collection[models.Artist]
	playlists *merge.Collection[models.Playlist]

	tracksM    *merge.Membership[models.Track]
	albumsM    *merge.Membership[models.Album]
	artistsM   *merge.Membership[models.Artist]
	playlistsM *merge.Membership[models.Playlist]

	index       *Index
	cancelIndex func()

	mu     sync.Mutex
	cores  map[string]*Core
	closed bool
}

func newCollection[T any](name string, opts Options, identify func(T) string, resolver merge.Resolver[T]) (*merge.Collection[T], *merge.Membership[T], error) {
	return merge.New(merge.Options[T]{
		Name:        name,
		Ranking:     opts.Ranking,
		Identify:    identify,
		Resolver:    resolver,
		OwnsSources: opts.OwnsSources,
		Logger:      opts.Logger,
	})
}

// New creates an empty library.
func New(opts Options) (*Library, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	l := &Library{opts: opts, logger: opts.Logger, index: newIndex(), cores: make(map[string]*Core)}

	var err error
	if l.tracks, l.tracksM, err = newCollection("tracks", opts, models.IdentityOf[models.Track], TrackPolicy()); err != nil {
		return nil, err
	}
	if l.albums, l.albumsM, err = newCollection("albums", opts, models.IdentityOf[models.Album], AlbumPolicy()); err != nil {
		return nil, err
	}
	if l.artists, l.artistsM, err = newCollection("artists", opts, models.IdentityOf[models.Artist], ArtistPolicy()); err != nil {
		return nil, err
	}
	if l.playlists, l.playlistsM, err = newCollection("playlists", opts, models.IdentityOf[models.Playlist], PlaylistPolicy()); err != nil {
		return nil, err
	}
	l.cancelIndex = l.albums.Subscribe(l.index.observe)
	return l, nil
}

func (l *Library) Tracks() *merge.Collection[models.Track]       { return l.tracks }
func (l *Library) Albums() *merge.Collection[models.Album]       { return l.albums }
func (l *Library) Artists() *merge.Collection[models.Artist]     { return l.artists }
func (l *Library) Playlists() *merge.Collection[models.Playlist] { return l.playlists }
func (l *Library) Index() *Index                                 { return l.index }

// Cores lists the attached core IDs.
func (l *Library) Cores() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.cores))
	for id := range l.cores {
		ids = append(ids, id)
	}
	return ids
}

func (l *Library) core(id string) (*Core, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.cores[id]
	return c, ok
}

// AttachCore adds every source of core to the matching collection. Either all of them are
// added or none.
func (l *Library) AttachCore(ctx context.Context, core *Core) error {
	if err := core.validate(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return merge.ErrClosed
	}
	if _, ok := l.cores[core.ID]; ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrCoreAttached, core.ID)
	}
	l.cores[core.ID] = core
	l.mu.Unlock()

	// Sources added before a failure are released, not closed: the caller still owns them.
	var undo []func(context.Context) error
	rollback := func(err error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			if uerr := undo[i](context.Background()); uerr != nil {
				l.logger.Warn("failed to roll back core", "core", core.ID, "err", uerr)
			}
		}
		l.mu.Lock()
		delete(l.cores, core.ID)
		l.mu.Unlock()
		return err
	}
	release := func(m interface {
		ReleaseSource(context.Context, string) error
	}) func(context.Context) error {
		return func(ctx context.Context) error { return m.ReleaseSource(ctx, core.ID) }
	}

	if core.Tracks != nil {
		if err := l.tracksM.AddSource(ctx, core.Tracks); err != nil {
			return rollback(err)
		}
		undo = append(undo, release(l.tracksM))
	}
	if core.Albums != nil {
		if err := l.albumsM.AddSource(ctx, core.Albums); err != nil {
			return rollback(err)
		}
		undo = append(undo, release(l.albumsM))
	}
	if core.Artists != nil {
		if err := l.artistsM.AddSource(ctx, core.Artists); err != nil {
			return rollback(err)
		}
		undo = append(undo, release(l.artistsM))
	}
	if core.Playlists != nil {
		if err := l.playlistsM.AddSource(ctx, core.Playlists); err != nil {
			return rollback(err)
		}
	}

	l.logger.Debug("core attached", "core", core.ID)
	return nil
}

// DetachCore removes every source of the core from its collection.
func (l *Library) DetachCore(ctx context.Context, id string) error {
	l.mu.Lock()
	core, ok := l.cores[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrUnknownCore, id)
	}
	delete(l.cores, id)
	l.mu.Unlock()

	var errs []error
	if core.Tracks != nil {
		errs = append(errs, l.tracksM.RemoveSource(ctx, id))
	}
	if core.Albums != nil {
		errs = append(errs, l.albumsM.RemoveSource(ctx, id))
	}
	if core.Artists != nil {
		errs = append(errs, l.artistsM.RemoveSource(ctx, id))
	}
	if core.Playlists != nil {
		errs = append(errs, l.playlistsM.RemoveSource(ctx, id))
	}
	l.logger.Debug("core detached", "core", id)
	return errors.Join(errs...)
}

// Close disposes every collection.
func (l *Library) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.cancelIndex()

	var g errgroup.Group
	g.Go(func() error { return l.tracks.Close(ctx) })
	g.Go(func() error { return l.albums.Close(ctx) })
	g.Go(func() error { return l.artists.Close(ctx) })
	g.Go(func() error { return l.playlists.Close(ctx) })
	return g.Wait()
}

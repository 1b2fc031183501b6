package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/unison/internal/cores"
	"github.com/desertthunder/unison/internal/library"
	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/repositories"
	"github.com/desertthunder/unison/internal/services"
	"github.com/desertthunder/unison/internal/shared"
)

// Core IDs used in config.toml's library.priority.
const (
	localCoreID   = "local"
	filesCoreID   = "files"
	spotifyCoreID = "spotify"
	youtubeCoreID = "youtube"
)

// session is one opened library with the database behind its local core.
type session struct {
	lib   *library.Library
	db    *sql.DB
	local *cores.DatabaseTracks
}

func (s *session) Close(ctx context.Context) error {
	return errors.Join(s.lib.Close(ctx), s.db.Close())
}

// openLibrary attaches every configured core. The local database core is required; the
// others are skipped with a warning when they cannot be reached.
func (r *Runner) openLibrary(ctx context.Context) (*session, error) {
	ranking, err := r.config.Ranking()
	if err != nil {
		return nil, err
	}

	lib, err := library.New(library.Options{
		Ranking:     ranking,
		OwnsSources: r.config.Library.OwnsSources,
		PageSize:    r.config.PageSize(),
		Logger:      r.logger,
	})
	if err != nil {
		return nil, err
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		lib.Close(ctx)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &session{lib: lib, db: db}

	if s.local, err = cores.NewDatabaseTracks(localCoreID, repositories.NewLibraryRepository(db)); err != nil {
		s.Close(ctx)
		return nil, err
	}
	if err := lib.AttachCore(ctx, &library.Core{ID: localCoreID, Tracks: s.local}); err != nil {
		s.Close(ctx)
		return nil, err
	}

	if dir := r.config.Library.MusicDir; dir != "" {
		files := cores.NewLocalTracks(filesCoreID, dir, r.logger)
		if err := files.Scan(ctx); err != nil {
			r.logger.Warn("files core skipped", "dir", dir, "error", err)
		} else if err := lib.AttachCore(ctx, &library.Core{
			ID:      filesCoreID,
			Tracks:  files,
			Albums:  files.Albums(),
			Artists: files.Artists(),
		}); err != nil {
			r.logger.Warn("files core skipped", "error", err)
		}
	}

	remotes := []struct {
		id  string
		svc services.Service
	}{{spotifyCoreID, r.spotify}, {youtubeCoreID, r.youtube}}
	for _, remote := range remotes {
		id, svc := remote.id, remote.svc
		if svc == nil {
			continue
		}
		core, err := r.remoteCore(ctx, id, svc)
		if err == nil {
			err = lib.AttachCore(ctx, core)
		}
		if err != nil {
			r.logger.Warn("remote core skipped", "core", id, "error", err)
		}
	}

	r.logger.Debug("library opened", "cores", lib.Cores(), "tracks", lib.Tracks().TotalCount())
	return s, nil
}

func (r *Runner) throttle(src merge.Source[models.Track]) *cores.Throttle[models.Track] {
	return cores.NewThrottle(src, r.config.Limits.RequestsPerSecond, r.config.Limits.Burst)
}

// remoteCore wraps a service's listings in throttled sources and learns their totals.
func (r *Runner) remoteCore(ctx context.Context, id string, svc services.Service) (*library.Core, error) {
	limits := r.config.Limits
	tracks := r.throttle(cores.LibraryTracks(id, svc))
	playlists := cores.NewThrottle[models.Playlist](cores.Playlists(id, svc), limits.RequestsPerSecond, limits.Burst)

	if err := tracks.Refresh(ctx); err != nil {
		return nil, err
	}
	if err := playlists.Refresh(ctx); err != nil {
		r.logger.Warn("playlists unavailable", "core", id, "error", err)
	}

	return &library.Core{
		ID:        id,
		Tracks:    tracks,
		Playlists: playlists,
		PlaylistTracks: func(playlistID string) merge.Source[models.Track] {
			return r.throttle(cores.PlaylistTracks(id, svc, playlistID))
		},
	}, nil
}

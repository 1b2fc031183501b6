package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/unison/internal/formatter"
	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
	"github.com/desertthunder/unison/internal/tasks"
)

// withLibrary opens the library for the duration of fn.
func (r *Runner) withLibrary(ctx context.Context, fn func(*session) error) error {
	s, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("failed to close library", "error", err)
		}
	}()
	return fn(s)
}

// LibraryTracks prints one page of the merged track collection.
func (r *Runner) LibraryTracks(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	limit, offset := cmd.Int("limit"), cmd.Int("offset")

	return r.withLibrary(ctx, func(s *session) error {
		tracks := s.lib.Tracks()
		entries, err := tracks.GetIndexed(ctx, limit, offset)
		if err != nil {
			return err
		}

		if format == formatter.FormatTable {
			r.writePlain("%s\n", formatter.Styles.Title(fmt.Sprintf("Tracks %d-%d of %d (%s)",
				offset, min(offset+limit, tracks.TotalCount()), tracks.TotalCount(), tracks.Ranking())))
		}
		return formatter.Write(r.output, format, entries)
	})
}

// LibraryInsert inserts a track through the router. When the core owning the position is
// read-only the track is appended to the local database core instead.
func (r *Runner) LibraryInsert(ctx context.Context, cmd *cli.Command) error {
	track := models.Track{
		Title:  strings.TrimSpace(cmd.String("title")),
		Artist: cmd.String("artist"),
		Album:  cmd.String("album"),
		ISRC:   cmd.String("isrc"),
		Type:   models.TrackTypeSong,
	}
	if track.Title == "" {
		return fmt.Errorf("%w: --title", shared.ErrMissingArgument)
	}
	if d := cmd.String("duration"); d != "" {
		seconds, err := shared.ParseDuration(d)
		if err != nil {
			return fmt.Errorf("%w: --duration %q", shared.ErrInvalidFlag, d)
		}
		track.Duration = seconds
	}

	return r.withLibrary(ctx, func(s *session) error {
		tracks := s.lib.Tracks()
		g := cmd.Int("index")
		if g < 0 {
			g = tracks.TotalCount()
		}

		item := merge.NewItem(merge.Facet[models.Track]{SourceID: localCoreID, Index: -1, Item: track})
		err := tracks.Insert(ctx, item, g)
		switch {
		case err == nil:
			r.logger.Info("track inserted", "index", g, "title", track.Title)
			return r.writePlain("%s %s at %d\n", formatter.Styles.OK("✓ Inserted"), track, g)
		case errors.Is(err, merge.ErrMissingFacet), errors.Is(err, shared.ErrReadOnly):
			r.logger.Warn("position is owned by a read-only core, appending to local", "index", g, "error", err)
			if err := s.local.Add(ctx, track, s.local.TotalCount()); err != nil {
				return err
			}
			return r.writePlain("%s %s to the %s core\n", formatter.Styles.Warn("✓ Appended"), track, localCoreID)
		default:
			return err
		}
	})
}

// LibraryRemove removes the track at a global index.
func (r *Runner) LibraryRemove(ctx context.Context, cmd *cli.Command) error {
	g := cmd.Int("index")

	return r.withLibrary(ctx, func(s *session) error {
		tracks := s.lib.Tracks()
		ok, err := tracks.CanRemove(ctx, g)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: track %d", shared.ErrReadOnly, g)
		}

		if err := tracks.RemoveAt(ctx, g); err != nil {
			return err
		}
		r.logger.Info("track removed", "index", g)
		return r.writePlain("%s track %d, %d left\n", formatter.Styles.OK("✓ Removed"), g, tracks.TotalCount())
	})
}

// LibrarySources lists the registered sources of every collection.
func (r *Runner) LibrarySources(ctx context.Context, cmd *cli.Command) error {
	return r.withLibrary(ctx, func(s *session) error {
		r.writePlainHeader("Cores: " + strings.Join(s.lib.Cores(), ", "))

		for _, kind := range []struct {
			name    string
			total   int
			sources []merge.SourceInfo
		}{
			{"tracks", s.lib.Tracks().TotalCount(), s.lib.Tracks().Sources()},
			{"albums", s.lib.Albums().TotalCount(), s.lib.Albums().Sources()},
			{"artists", s.lib.Artists().TotalCount(), s.lib.Artists().Sources()},
			{"playlists", s.lib.Playlists().TotalCount(), s.lib.Playlists().Sources()},
		} {
			r.writePlain("%s (%d)\n", formatter.Styles.Title(kind.name), kind.total)
			if len(kind.sources) == 0 {
				r.writePlain("  %s\n", formatter.Styles.Help("no sources"))
				continue
			}
			for i, src := range kind.sources {
				r.writePlain("  %d. %-10s %d\n", i+1, src.ID, src.Count)
			}
		}
		return nil
	})
}

// printProgress writes progress updates until ch is closed, then closes done.
func (r *Runner) printProgress(ch <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range ch {
		switch update.Phase {
		case tasks.Done:
			r.writePlain("%s\n", formatter.Styles.OK(update.Message))
		default:
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}
}

// LibraryCoverage reports, per source, the merged tracks it does not contribute to.
func (r *Runner) LibraryCoverage(ctx context.Context, cmd *cli.Command) error {
	show := cmd.Int("show")

	return r.withLibrary(ctx, func(s *session) error {
		progressCh := make(chan tasks.ProgressUpdate, 50)
		done := make(chan struct{})
		go r.printProgress(progressCh, done)

		result, err := r.engine.Coverage(ctx, s.lib.Tracks(), progressCh)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}

		r.writePlainHeader("Coverage")
		r.writePlain("Positions: %d\nMerged tracks: %d\nIn every source: %d\n",
			result.Positions, result.Items, result.Shared)

		for _, sc := range result.Sources {
			r.writePlainln("%s: %d present, %d missing", formatter.Styles.Title(sc.SourceID), sc.Present, len(sc.Missing))
			for i, item := range sc.Missing {
				if i == show {
					r.writePlain("  %s\n", formatter.Styles.Help(fmt.Sprintf("... %d more", len(sc.Missing)-show)))
					break
				}
				r.writePlain("  - %s\n", item.Value())
			}
		}
		return nil
	})
}

// LibraryExport writes the whole merged track sequence page by page.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	opts := tasks.ExportOpts{
		Format:    format,
		Path:      cmd.String("out"),
		PageSize:  cmd.Int("page-size"),
		RateLimit: cmd.Float("rate"),
	}
	if opts.Path == "" {
		opts.Writer = r.output
	}

	return r.withLibrary(ctx, func(s *session) error {
		progressCh := make(chan tasks.ProgressUpdate, 50)
		done := make(chan struct{})
		if opts.Path != "" {
			go r.printProgress(progressCh, done)
		} else {
			go func() {
				defer close(done)
				for range progressCh {
				}
			}()
		}

		result, err := r.engine.ExportPages(ctx, s.lib.Tracks(), opts, progressCh)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}
		r.logger.Debug("export finished", "rows", result.Rows, "pages", result.Pages, "path", result.Path)
		return nil
	})
}

// LibraryPlaylists lists merged playlists with the cores that carry them.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit, offset := cmd.Int("limit"), cmd.Int("offset")

	return r.withLibrary(ctx, func(s *session) error {
		playlists := s.lib.Playlists()
		entries, err := playlists.GetIndexed(ctx, limit, offset)
		if err != nil {
			return err
		}

		r.writePlainHeader(fmt.Sprintf("Playlists (%d)", playlists.TotalCount()))
		for _, e := range entries {
			p := e.Item.Value()
			r.writePlain("%4d. %-40s %5d tracks  %s\n", e.Index, p.Name, p.TrackCount,
				formatter.Styles.Help(strings.Join(e.Item.Sources(), ",")))
		}
		return nil
	})
}

// LibraryPlaylist prints the merged tracks of the playlist at --index.
func (r *Runner) LibraryPlaylist(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	g, limit, offset := cmd.Int("index"), cmd.Int("limit"), cmd.Int("offset")

	return r.withLibrary(ctx, func(s *session) error {
		found, err := s.lib.Playlists().GetItems(ctx, 1, g)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("%w: no playlist at index %d", shared.ErrPlaylistNotFound, g)
		}

		mp, err := s.lib.OpenPlaylist(ctx, found[0])
		if err != nil {
			return err
		}
		defer mp.Close(context.WithoutCancel(ctx))

		entries, err := mp.Tracks().GetIndexed(ctx, limit, offset)
		if err != nil {
			return err
		}
		if format == formatter.FormatTable {
			r.writePlain("%s\n", formatter.Styles.Title(fmt.Sprintf("%s: %d tracks from %s",
				found[0].Value().Name, mp.Tracks().TotalCount(), strings.Join(mp.Sources(), ", "))))
		}
		return formatter.Write(r.output, format, entries)
	})
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/unison/internal/cores"
	"github.com/desertthunder/unison/internal/formatter"
	"github.com/desertthunder/unison/internal/library"
	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
)

func demoCores() (*cores.Memory[models.Track], *cores.Memory[models.Track]) {
	spotify := cores.NewMemory("spotify",
		models.Track{ID: "sp1", Title: "Zoo Station", Artist: "U2", Album: "Achtung Baby", TrackNumber: 1, Duration: 276},
		models.Track{ID: "sp2", Title: "Even Better Than the Real Thing", Artist: "U2", Album: "Achtung Baby", TrackNumber: 2, Duration: 221},
		models.Track{ID: "sp3", Title: "One", Artist: "U2", Album: "Achtung Baby", TrackNumber: 3, Duration: 276},
	)
	youtube := cores.NewMemory("youtube",
		models.Track{ID: "yt1", Title: "one", Artist: "U2", Album: "achtung baby", TrackNumber: 3, Duration: 276},
		models.Track{ID: "yt2", Title: "Mysterious Ways", Artist: "U2", Album: "Achtung Baby", TrackNumber: 8, Duration: 244},
	)
	return spotify, youtube
}

func describe(ev merge.Event[models.Track]) string {
	switch ev.Kind {
	case merge.EventCountChanged:
		return fmt.Sprintf("%s total=%d source=%s", ev.Kind, ev.Total, ev.SourceID)
	case merge.EventFacetsChanged:
		return fmt.Sprintf("%s %q sources=%s", ev.Kind, ev.Item.Value().Title, strings.Join(ev.Item.Sources(), ","))
	default:
		var parts []string
		for _, c := range ev.Removed {
			if c.Item == nil {
				parts = append(parts, fmt.Sprintf("-%d", c.Index))
				continue
			}
			parts = append(parts, fmt.Sprintf("-%d %q", c.Index, c.Item.Value().Title))
		}
		for _, c := range ev.Added {
			parts = append(parts, fmt.Sprintf("+%d %q", c.Index, c.Item.Value().Title))
		}
		return fmt.Sprintf("%s %s", ev.Kind, strings.Join(parts, " "))
	}
}

// Demo merges two in-memory cores, mutates them and prints every event.
func (r *Runner) Demo(ctx context.Context, cmd *cli.Command) error {
	strategy, err := merge.ParseStrategy(cmd.String("strategy"))
	if err != nil {
		return err
	}
	ranking := merge.Ranked("spotify", "youtube")
	if strategy == merge.StrategyAlternating {
		ranking = merge.Alternating()
	}

	lib, err := library.New(library.Options{Ranking: ranking, OwnsSources: true, Logger: r.logger})
	if err != nil {
		return err
	}
	defer lib.Close(context.WithoutCancel(ctx))

	cancel := lib.Tracks().Subscribe(func(ev merge.Event[models.Track]) {
		r.writePlain("  %s %s\n", formatter.Styles.Help("event"), describe(ev))
	})
	defer cancel()

	spotify, youtube := demoCores()
	page := func(title string) error {
		entries, err := lib.Tracks().GetIndexed(ctx, lib.Tracks().TotalCount(), 0)
		if err != nil {
			return err
		}
		r.writePlainln("%s", formatter.Styles.Title(title))
		return formatter.Write(r.output, formatter.FormatTable, entries)
	}

	r.writePlainHeader("unison demo (" + ranking.String() + ")")
	for _, core := range []*library.Core{{ID: "spotify", Tracks: spotify}, {ID: "youtube", Tracks: youtube}} {
		if err := lib.AttachCore(ctx, core); err != nil {
			return err
		}
	}
	if err := page("Merged"); err != nil {
		return err
	}

	r.writePlainln("Adding a track to youtube")
	if err := youtube.Append(ctx, models.Track{ID: "yt3", Title: "The Fly", Artist: "U2", Album: "Achtung Baby", TrackNumber: 7, Duration: 269}); err != nil {
		return err
	}

	r.writePlainln("Removing global index 0 through the router")
	if err := lib.Tracks().RemoveAt(ctx, 0); err != nil {
		return err
	}
	if err := page("After edits"); err != nil {
		return err
	}

	r.writePlainln("Detaching youtube")
	if err := lib.DetachCore(ctx, "youtube"); err != nil {
		return err
	}
	return page("Spotify only")
}

package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/unison/internal/formatter"
	"github.com/desertthunder/unison/internal/library"
	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
	th "github.com/desertthunder/unison/internal/testing"
)

func newCollection(t *testing.T) *merge.Collection[models.Track] {
	t.Helper()
	a := th.NewMockSource("a",
		models.Track{ID: "a1", Title: "One", Album: "Achtung Baby", Duration: 276},
		models.Track{ID: "a2", Title: "Two", Album: "Achtung Baby", Duration: 200},
	)
	b := th.NewMockSource("b",
		models.Track{ID: "b1", Title: "One", Album: "Achtung Baby", Duration: 276},
		models.Track{ID: "b2", Title: "Three", Album: "Pop", Duration: 250},
	)
	coll, _, err := merge.New(merge.Options[models.Track]{
		Name:     "tracks",
		Ranking:  merge.Ranked("a", "b"),
		Identify: models.IdentityOf[models.Track],
		Resolver: library.TrackPolicy(),
		Sources:  []merge.Source[models.Track]{a, b},
	})
	require.NoError(t, err)
	t.Cleanup(func() { coll.Close(context.Background()) })
	return coll
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestCoverage(t *testing.T) {
	coll := newCollection(t)
	progress := make(chan ProgressUpdate, 32)

	res, err := NewEngine(nil, 3).Coverage(context.Background(), coll, progress)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Positions)
	assert.Equal(t, 3, res.Items)
	assert.Equal(t, 1, res.Shared)
	require.Len(t, res.Sources, 2)

	a, b := res.Sources[0], res.Sources[1]
	assert.Equal(t, "a", a.SourceID)
	assert.Equal(t, 2, a.Present)
	require.Len(t, a.Missing, 1)
	assert.Equal(t, "Three", a.Missing[0].Value().Title)

	assert.Equal(t, "b", b.SourceID)
	assert.Equal(t, 2, b.Present)
	require.Len(t, b.Missing, 1)
	assert.Equal(t, "Two", b.Missing[0].Value().Title)

	updates := drain(progress)
	require.NotEmpty(t, updates)
	assert.Equal(t, ReadPage, updates[0].Phase)
	assert.Equal(t, 2, updates[0].Total)
	last := updates[len(updates)-1]
	assert.Equal(t, Done, last.Phase)
	assert.Same(t, res, last.Data)
}

func TestCoverageErrors(t *testing.T) {
	_, err := NewEngine(nil, 0).Coverage(context.Background(), nil, nil)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewEngine(nil, 0).Coverage(ctx, newCollection(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportPages(t *testing.T) {
	t.Run("json stream", func(t *testing.T) {
		var buf bytes.Buffer
		progress := make(chan ProgressUpdate, 32)

		res, err := NewEngine(nil, 0).ExportPages(context.Background(), newCollection(t), ExportOpts{
			Format:   formatter.FormatJSON,
			Writer:   &buf,
			PageSize: 2,
		}, progress)
		require.NoError(t, err)
		assert.Equal(t, 4, res.Rows)
		assert.Equal(t, 2, res.Pages)

		var rows []formatter.Row
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"One", "Two", "One", "Three"}, []string{rows[0].Title, rows[1].Title, rows[2].Title, rows[3].Title})
		assert.Equal(t, rows[0].ID, rows[2].ID)
		assert.Equal(t, 3, rows[3].Index)

		updates := drain(progress)
		require.Len(t, updates, 3)
		assert.Equal(t, ExportPage, updates[0].Phase)
		assert.Equal(t, Done, updates[2].Phase)
	})

	t.Run("csv file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracks.csv")
		res, err := NewEngine(nil, 3).ExportPages(context.Background(), newCollection(t), ExportOpts{
			Format:    formatter.FormatCSV,
			Path:      path,
			RateLimit: 100,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, path, res.Path)
		assert.Equal(t, 2, res.Pages)

		content := th.MustReadFile(t, path)
		assert.Equal(t, 1, strings.Count(content, "Index,ID,Title"))
		assert.Equal(t, 5, strings.Count(content, "\n"))
	})

	t.Run("rows keep their index when a source fails", func(t *testing.T) {
		b := th.NewMockSource("b", models.Track{ID: "b1", Title: "Bad"}, models.Track{ID: "b2", Title: "Worse"})
		b.FailGet = true
		coll, _, err := merge.New(merge.Options[models.Track]{
			Name:     "tracks",
			Ranking:  merge.Alternating(),
			Identify: models.IdentityOf[models.Track],
			Resolver: library.TrackPolicy(),
			Sources: []merge.Source[models.Track]{
				th.NewMockSource("a", models.Track{ID: "a1", Title: "One"}, models.Track{ID: "a2", Title: "Two"}),
				b,
			},
		})
		require.NoError(t, err)
		defer coll.Close(context.Background())

		var buf bytes.Buffer
		res, err := NewEngine(nil, 0).ExportPages(context.Background(), coll, ExportOpts{
			Format:   formatter.FormatJSON,
			Writer:   &buf,
			PageSize: 3,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Rows)

		var rows []formatter.Row
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, []int{0, 2}, []int{rows[0].Index, rows[1].Index})
		assert.Equal(t, "Two", rows[1].Title)
	})

	t.Run("no output", func(t *testing.T) {
		_, err := NewEngine(nil, 0).ExportPages(context.Background(), newCollection(t), ExportOpts{}, nil)
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var buf bytes.Buffer
		res, err := NewEngine(nil, 0).ExportPages(ctx, newCollection(t), ExportOpts{Writer: &buf}, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, res.Rows)
	})
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "read_page", ReadPage.String())
	assert.Equal(t, "export_page", ExportPage.String())
	assert.Equal(t, "", Phase(99).String())
}

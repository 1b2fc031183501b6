package cores

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/repositories"
	"github.com/desertthunder/unison/internal/shared"
	mtesting "github.com/desertthunder/unison/internal/testing"
)

type events[T any] struct {
	mu  sync.Mutex
	got []merge.SourceEvent[T]
}

func record[T any](src merge.Source[T]) *events[T] {
	e := &events[T]{}
	src.Subscribe(func(ev merge.SourceEvent[T]) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.got = append(e.got, ev)
	})
	return e
}

func (e *events[T]) all() []merge.SourceEvent[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]merge.SourceEvent[T](nil), e.got...)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("windows", func(t *testing.T) {
		m := NewMemory("m", "a", "b", "c")
		tests := []struct {
			name          string
			limit, offset int
			want          []string
		}{
			{"head", 2, 0, []string{"a", "b"}},
			{"tail", 5, 1, []string{"b", "c"}},
			{"past end", 1, 3, []string{}},
			{"negative offset", 1, -1, []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := m.GetItems(ctx, tt.limit, tt.offset)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("add and remove emit local changes", func(t *testing.T) {
		m := NewMemory("m", "a", "c")
		rec := record[string](m)

		require.NoError(t, m.Add(ctx, "b", 1))
		require.NoError(t, m.Remove(ctx, 0))
		assert.Equal(t, []string{"b", "c"}, m.Items())

		evs := rec.all()
		require.Len(t, evs, 2)
		assert.Equal(t, []merge.LocalChange[string]{{Item: "b", Index: 1}}, evs[0].Added)
		assert.Equal(t, 3, evs[0].Count)
		assert.Equal(t, []merge.LocalChange[string]{{Item: "a", Index: 0}}, evs[1].Removed)
		assert.Equal(t, 2, evs[1].Count)
	})

	t.Run("bounds", func(t *testing.T) {
		m := NewMemory("m", "a")
		assert.ErrorIs(t, m.Add(ctx, "x", 2), shared.ErrInvalidPosition)
		assert.ErrorIs(t, m.Remove(ctx, 1), shared.ErrInvalidPosition)

		ok, err := m.CanAdd(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, _ = m.CanRemove(ctx, 1)
		assert.False(t, ok)
	})

	t.Run("read only", func(t *testing.T) {
		m := NewReadOnlyMemory("m", "a")
		assert.ErrorIs(t, m.Add(ctx, "x", 0), shared.ErrReadOnly)
		assert.ErrorIs(t, m.Remove(ctx, 0), shared.ErrReadOnly)
		ok, _ := m.CanAdd(ctx, 0)
		assert.False(t, ok)
	})

	t.Run("replace", func(t *testing.T) {
		m := NewMemory("m", "a", "b")
		rec := record[string](m)
		m.Replace("c")

		evs := rec.all()
		require.Len(t, evs, 1)
		assert.Len(t, evs[0].Removed, 2)
		assert.Equal(t, []merge.LocalChange[string]{{Item: "c", Index: 0}}, evs[0].Added)
		assert.Equal(t, 1, evs[0].Count)
	})

	t.Run("cancelled subscription", func(t *testing.T) {
		m := NewMemory[string]("m")
		calls := 0
		cancel := m.Subscribe(func(merge.SourceEvent[string]) { calls++ })
		cancel()
		cancel()
		require.NoError(t, m.Append(ctx, "a"))
		assert.Zero(t, calls)
		assert.Zero(t, m.events.Len())
	})
}

func TestRemote(t *testing.T) {
	ctx := context.Background()
	svc := &mtesting.MockService{
		Saved: []models.Track{{ID: "1", Title: "One"}, {ID: "2", Title: "Two"}, {ID: "3", Title: "Three"}},
	}

	t.Run("refresh learns the total", func(t *testing.T) {
		src := LibraryTracks("spotify", svc)
		rec := record[models.Track](src)
		assert.Zero(t, src.TotalCount())

		require.NoError(t, src.Refresh(ctx))
		assert.Equal(t, 3, src.TotalCount())

		evs := rec.all()
		require.Len(t, evs, 1)
		assert.Equal(t, merge.SourceCountChanged, evs[0].Kind)
		assert.Equal(t, 3, evs[0].Count)

		require.NoError(t, src.Refresh(ctx))
		assert.Len(t, rec.all(), 1, "unchanged total should not emit")
	})

	t.Run("get items", func(t *testing.T) {
		src := LibraryTracks("spotify", svc)
		got, err := src.GetItems(ctx, 2, 1)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Two", got[0].Title)
		assert.Equal(t, 3, src.TotalCount())
	})

	t.Run("read only", func(t *testing.T) {
		src := LibraryTracks("spotify", svc)
		assert.ErrorIs(t, src.Add(ctx, models.Track{}, 0), shared.ErrReadOnly)
		assert.ErrorIs(t, src.Remove(ctx, 0), shared.ErrReadOnly)
	})

	t.Run("failures", func(t *testing.T) {
		src := Playlists("yt", &mtesting.MockService{Fail: shared.ErrServiceUnavailable})
		_, err := src.GetItems(ctx, 1, 0)
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
		assert.ErrorIs(t, src.Refresh(ctx), shared.ErrServiceUnavailable)
	})

	t.Run("playlist tracks", func(t *testing.T) {
		svc := &mtesting.MockService{ListItems: map[string][]models.Track{"pl": {{ID: "x"}}}}
		src := PlaylistTracks("yt", svc, "pl")
		got, err := src.GetItems(ctx, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []models.Track{{ID: "x"}}, got)
	})
}

func TestThrottle(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory("m", 1, 2, 3)
	src := NewThrottle[int](inner, 0, 1)

	got, err := src.GetItems(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
	require.NoError(t, src.Add(ctx, 4, 3))
	require.NoError(t, src.Remove(ctx, 0))
	assert.Equal(t, []int{2, 3, 4}, inner.Items())
	assert.Equal(t, "m", src.ID())

	require.NoError(t, src.Close())
	assert.True(t, inner.Closed())

	t.Run("refresh forwards", func(t *testing.T) {
		svc := &mtesting.MockService{Saved: []models.Track{{ID: "1"}, {ID: "2"}}}
		remote := NewThrottle[models.Track](LibraryTracks("spotify", svc), 0, 1)
		require.NoError(t, remote.Refresh(ctx))
		assert.Equal(t, 2, remote.TotalCount())

		require.NoError(t, NewThrottle[int](NewMemory("m", 1), 0, 1).Refresh(ctx))
	})

	t.Run("waits honor cancellation", func(t *testing.T) {
		slow := NewThrottle[int](NewMemory("m", 1), 0.001, 1)
		_, err := slow.GetItems(ctx, 1, 0)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = slow.GetItems(cancelled, 1, 0)
		assert.Error(t, err)
	})
}

func newDatabaseTracks(t *testing.T) *DatabaseTracks {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, shared.RunMigrations(db))

	src, err := NewDatabaseTracks("local", repositories.NewLibraryRepository(db))
	require.NoError(t, err)
	return src
}

func TestDatabaseTracks(t *testing.T) {
	ctx := context.Background()
	src := newDatabaseTracks(t)
	rec := record[models.Track](src)

	require.NoError(t, src.Add(ctx, models.Track{Title: "a"}, 0))
	require.NoError(t, src.Add(ctx, models.Track{Title: "c"}, 1))
	require.NoError(t, src.Add(ctx, models.Track{Title: "b"}, 1))
	assert.Equal(t, 3, src.TotalCount())

	got, err := src.GetItems(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "b", got[1].Title)
	assert.Equal(t, "c", got[2].Title)

	require.NoError(t, src.Remove(ctx, 0))
	assert.Equal(t, 2, src.TotalCount())

	evs := rec.all()
	require.Len(t, evs, 4)
	assert.NotEmpty(t, evs[0].Added[0].Item.ID, "stored track carries its generated id")
	assert.Equal(t, 1, evs[2].Added[0].Index)
	assert.Equal(t, "a", evs[3].Removed[0].Item.Title)
	assert.Equal(t, 2, evs[3].Count)

	t.Run("failed mutation leaves count", func(t *testing.T) {
		assert.ErrorIs(t, src.Add(ctx, models.Track{Title: "x"}, 9), shared.ErrInvalidPosition)
		assert.ErrorIs(t, src.Remove(ctx, 9), shared.ErrInvalidPosition)
		assert.Equal(t, 2, src.TotalCount())
		assert.Len(t, rec.all(), 4)
	})

	t.Run("reopen keeps count", func(t *testing.T) {
		again, err := NewDatabaseTracks("local", src.repo)
		require.NoError(t, err)
		assert.Equal(t, 2, again.TotalCount())
	})
}

func writeMP3(t *testing.T, dir, name string, frames map[string]string) {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	for id, text := range frames {
		tag.AddTextFrame(id, id3v2.EncodingUTF8, text)
	}
	var buf bytes.Buffer
	_, err := tag.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

func TestLocalTracks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeMP3(t, dir, "b.mp3", map[string]string{"TIT2": "Two", "TPE1": "Band", "TALB": "Record", "TRCK": "2/10", "TPOS": "1", "TLEN": "185000"})
	writeMP3(t, dir, "a.mp3", map[string]string{"TIT2": "One", "TRCK": "1"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untitled.mp3"), bytes.Repeat([]byte{0xff}, 64), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	src := NewLocalTracks("files", dir, nil)
	rec := record[models.Track](src)
	require.NoError(t, src.Scan(ctx))
	require.Equal(t, 3, src.TotalCount())

	got, err := src.GetItems(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "One", got[0].Title)
	assert.Equal(t, 1, got[0].TrackNumber)
	assert.True(t, strings.HasSuffix(got[0].ID, "a.mp3"))

	two := got[1]
	assert.Equal(t, "Two", two.Title)
	assert.Equal(t, "Band", two.Artist)
	assert.Equal(t, "Record", two.Album)
	assert.Equal(t, 2, two.TrackNumber)
	assert.Equal(t, 1, two.DiscNumber)
	assert.Equal(t, 185, two.Duration)

	assert.Equal(t, "untitled", got[2].Title)

	evs := rec.all()
	require.Len(t, evs, 1)
	assert.Len(t, evs[0].Added, 3)

	t.Run("albums and artists", func(t *testing.T) {
		assert.Equal(t, "files", src.Albums().ID())
		assert.Equal(t, []models.Album{{Name: "Record", Artist: "Band", TrackCount: 1}}, src.Albums().Items())
		assert.Equal(t, []models.Artist{{Name: "Band"}}, src.Artists().Items())
		ok, _ := src.Albums().CanAdd(ctx, 0)
		assert.False(t, ok)
	})

	t.Run("rescan without changes is silent", func(t *testing.T) {
		albums := record[models.Album](src.Albums())
		require.NoError(t, src.Scan(ctx))
		assert.Len(t, rec.all(), 1)
		assert.Empty(t, albums.all())
	})

	t.Run("rescan picks up new files", func(t *testing.T) {
		writeMP3(t, dir, "c.mp3", map[string]string{"TIT2": "Three", "TPE1": "band", "TALB": "record"})
		require.NoError(t, src.Scan(ctx))
		assert.Equal(t, 4, src.TotalCount())
		assert.Equal(t, []models.Album{{Name: "Record", Artist: "Band", TrackCount: 2}}, src.Albums().Items())
		assert.Len(t, src.Artists().Items(), 1)
		evs := rec.all()
		require.Len(t, evs, 2)
		assert.Len(t, evs[1].Removed, 3)
		assert.Len(t, evs[1].Added, 4)
	})

	t.Run("read only", func(t *testing.T) {
		assert.ErrorIs(t, src.Add(ctx, models.Track{}, 0), shared.ErrReadOnly)
		ok, _ := src.CanRemove(ctx, 0)
		assert.False(t, ok)
	})
}

func TestLeadingNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{"3/12", 3},
		{" 7 ", 7},
		{"", 0},
		{"x", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, leadingNumber(tt.in), tt.in)
	}
}

// A merged collection routes inserts into the database core and reads back across cores.
func TestCoresInCollection(t *testing.T) {
	ctx := context.Background()
	db := newDatabaseTracks(t)
	require.NoError(t, db.Add(ctx, models.Track{Title: "Seed"}, 0))
	remote := NewReadOnlyMemory("remote", models.Track{ID: "r1", Title: "Remote"})

	coll, _, err := merge.New(merge.Options[models.Track]{
		Name:     "tracks",
		Ranking:  merge.Ranked("local", "remote"),
		Identify: models.IdentityOf[models.Track],
		Sources:  []merge.Source[models.Track]{db, remote},
	})
	require.NoError(t, err)
	defer coll.Close(ctx)

	item := merge.NewItem(merge.Facet[models.Track]{SourceID: "local", Index: -1, Item: models.Track{Title: "Mine"}})
	require.NoError(t, coll.Insert(ctx, item, 0))
	assert.Equal(t, 3, coll.TotalCount())

	page, err := coll.GetItems(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "Mine", page[0].Value().Title)
	assert.Equal(t, "Seed", page[1].Value().Title)
	assert.Equal(t, "Remote", page[2].Value().Title)

	ok, err := coll.CanRemove(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, coll.RemoveAt(ctx, 0))
	assert.Equal(t, 2, coll.TotalCount())
}

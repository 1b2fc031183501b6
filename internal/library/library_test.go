package library

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/unison/internal/cores"
	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

func newLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := New(Options{Ranking: merge.Ranked("spotify", "youtube"), OwnsSources: true})
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close(context.Background()) })
	return lib
}

func values[T any](t *testing.T, c *merge.Collection[T]) []T {
	t.Helper()
	items, err := c.All(context.Background(), 10)
	require.NoError(t, err)
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.Value()
	}
	return out
}

func TestPolicies(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Track
		want bool
	}{
		{
			"same recording",
			models.Track{ID: "1", Title: "One", Album: "Achtung Baby", TrackNumber: 3, DiscNumber: 1, Duration: 276, Type: models.TrackTypeSong},
			models.Track{ID: "x", Title: "one!", Album: "achtung  baby", TrackNumber: 3, DiscNumber: 1, Duration: 276, Type: models.TrackTypeSong},
			true,
		},
		{
			"different disc",
			models.Track{Title: "One", DiscNumber: 1},
			models.Track{Title: "One", DiscNumber: 2},
			false,
		},
		{
			"video versus song",
			models.Track{Title: "One", Type: models.TrackTypeSong},
			models.Track{Title: "One", Type: models.TrackTypeVideo},
			false,
		},
		{
			"different album",
			models.Track{Title: "One", Album: "Achtung Baby"},
			models.Track{Title: "One", Album: "Live"},
			false,
		},
		{
			"different duration",
			models.Track{Title: "One", Duration: 276},
			models.Track{Title: "One", Duration: 300},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrackPolicy().Equal(tt.a, tt.b))
		})
	}

	assert.True(t, AlbumPolicy().Equal(models.Album{Name: "The Joshua Tree"}, models.Album{Name: "the joshua tree", Artist: "x"}))
	assert.True(t, ArtistPolicy().Equal(models.Artist{Name: "U2"}, models.Artist{Name: "u2"}))
	assert.False(t, PlaylistPolicy().Equal(models.Playlist{ID: "p"}, models.Playlist{ID: "p"}))
	assert.False(t, imagePolicy().Equal(models.Image{URL: "u"}, models.Image{URL: "u"}))
	assert.False(t, userPolicy().Equal(models.User{ID: "u"}, models.User{ID: "u"}))
	assert.True(t, searchPolicy().Equal(models.SearchResult{Title: "a"}, models.SearchResult{Title: "b"}))
}

func TestAttachCore(t *testing.T) {
	ctx := context.Background()
	lib := newLibrary(t)

	spotify := &Core{
		ID:      "spotify",
		Tracks:  cores.NewMemory("spotify", models.Track{ID: "s1", Title: "One", Album: "Boy"}),
		Albums:  cores.NewMemory("spotify", models.Album{ID: "sa", Name: "Boy"}),
		Artists: cores.NewMemory("spotify", models.Artist{ID: "sx", Name: "U2"}),
	}
	youtube := &Core{
		ID:      "youtube",
		Tracks:  cores.NewMemory("youtube", models.Track{ID: "y1", Title: "One", Album: "boy"}, models.Track{ID: "y2", Title: "Two"}),
		Albums:  cores.NewMemory("youtube", models.Album{ID: "ya", Name: "BOY"}),
		Artists: cores.NewMemory("youtube", models.Artist{ID: "yx", Name: "Other"}),
	}
	require.NoError(t, lib.AttachCore(ctx, spotify))
	require.NoError(t, lib.AttachCore(ctx, youtube))
	assert.ElementsMatch(t, []string{"spotify", "youtube"}, lib.Cores())

	assert.Equal(t, 3, lib.Tracks().TotalCount())

	items, err := lib.Tracks().All(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Same(t, items[0], items[1], "the youtube copy folds into the spotify track")
	assert.Equal(t, []string{"spotify", "youtube"}, items[0].Sources())
	assert.Equal(t, "s1", items[0].Value().ID, "preferred facet follows the ranking")

	albums, err := lib.Albums().All(ctx, 10)
	require.NoError(t, err)
	assert.Same(t, albums[0], albums[1])

	assert.Equal(t, []models.Artist{{ID: "sx", Name: "U2"}, {ID: "yx", Name: "Other"}}, values(t, lib.Artists()))

	t.Run("duplicate", func(t *testing.T) {
		assert.ErrorIs(t, lib.AttachCore(ctx, &Core{ID: "spotify"}), shared.ErrCoreAttached)
	})

	t.Run("mismatched source id", func(t *testing.T) {
		err := lib.AttachCore(ctx, &Core{ID: "files", Tracks: cores.NewMemory[models.Track]("other")})
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
	})

	t.Run("detach", func(t *testing.T) {
		require.NoError(t, lib.DetachCore(ctx, "youtube"))
		assert.Equal(t, 1, lib.Tracks().TotalCount())
		assert.Equal(t, []string{"spotify"}, items[0].Sources())
		assert.True(t, youtube.Tracks.(*cores.Memory[models.Track]).Closed())

		assert.ErrorIs(t, lib.DetachCore(ctx, "youtube"), shared.ErrUnknownCore)
	})
}

func TestAttachCoreRollsBack(t *testing.T) {
	ctx := context.Background()
	lib := newLibrary(t)
	require.NoError(t, lib.AttachCore(ctx, &Core{ID: "a", Tracks: cores.NewMemory("a", models.Track{Title: "x"})}))

	// The playlists collection already holds "b", so attaching core "b" fails after its tracks were added.
	require.NoError(t, lib.playlistsM.AddSource(ctx, cores.NewMemory[models.Playlist]("b")))

	tracks := cores.NewMemory("b", models.Track{Title: "y"})
	albums := cores.NewMemory("b", models.Album{Name: "Boy"})
	err := lib.AttachCore(ctx, &Core{
		ID:        "b",
		Tracks:    tracks,
		Albums:    albums,
		Playlists: cores.NewMemory[models.Playlist]("b"),
	})
	require.ErrorIs(t, err, merge.ErrArgument)
	assert.Equal(t, 1, lib.Tracks().TotalCount())
	assert.Zero(t, lib.Albums().TotalCount())
	assert.NotContains(t, lib.Cores(), "b")

	assert.False(t, tracks.Closed(), "sources stay with the caller after a rollback")
	assert.False(t, albums.Closed())
	assert.Zero(t, tracks.Subscribers())
	assert.Zero(t, albums.Subscribers())
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	lib := newLibrary(t)

	albums := cores.NewMemory("spotify", models.Album{ID: "a1", Name: "Boy"}, models.Album{ID: "a2", Name: "War"})
	require.NoError(t, lib.AttachCore(ctx, &Core{ID: "spotify", Albums: albums}))
	require.NoError(t, lib.Index().Refresh(ctx, lib.Albums(), 10))
	assert.Equal(t, 2, lib.Index().Len())

	linked := lib.Index().Link(models.Track{Title: "I Will Follow", Album: "boy"})
	require.NotEmpty(t, linked.AlbumID)
	album, ok := lib.Index().Album(linked.AlbumID)
	require.True(t, ok)
	assert.Equal(t, "Boy", album.Value().Name)

	assert.Empty(t, lib.Index().Link(models.Track{Title: "x", Album: "Unknown"}).AlbumID)
	assert.Empty(t, lib.Index().Link(models.Track{Title: "x"}).AlbumID)

	t.Run("follows album events", func(t *testing.T) {
		require.NoError(t, albums.Append(ctx, models.Album{ID: "a3", Name: "October"}))
		assert.Equal(t, 3, lib.Index().Len())
		assert.NotEmpty(t, lib.Index().Link(models.Track{Album: "October"}).AlbumID)

		require.NoError(t, albums.Remove(ctx, 0))
		assert.Equal(t, 2, lib.Index().Len())
		_, ok := lib.Index().Album(linked.AlbumID)
		assert.False(t, ok)
	})
}

func TestMergedPlaylist(t *testing.T) {
	ctx := context.Background()
	lib := newLibrary(t)

	var mu sync.Mutex
	opened := map[string]*cores.Memory[models.Track]{}
	playlistTracks := func(coreID string, tracks ...models.Track) func(string) merge.Source[models.Track] {
		return func(playlistID string) merge.Source[models.Track] {
			mu.Lock()
			defer mu.Unlock()
			src := cores.NewMemory(coreID, tracks...)
			opened[coreID] = src
			return src
		}
	}

	require.NoError(t, lib.AttachCore(ctx, &Core{
		ID:             "spotify",
		Playlists:      cores.NewMemory("spotify", models.Playlist{ID: "p1", Name: "Road"}),
		PlaylistTracks: playlistTracks("spotify", models.Track{ID: "t1", Title: "One"}, models.Track{ID: "t2", Title: "Two"}),
	}))

	items, err := lib.Playlists().All(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	mp, err := lib.OpenPlaylist(ctx, items[0])
	require.NoError(t, err)
	defer mp.Close(ctx)

	assert.Same(t, items[0], mp.Item())
	assert.Equal(t, "playlist", mp.Tracks().Name(), "metrics label stays fixed across playlists")
	assert.Equal(t, []string{"spotify"}, mp.Sources())
	assert.Equal(t, 2, mp.Tracks().TotalCount())

	t.Run("follows facet removal", func(t *testing.T) {
		require.NoError(t, lib.DetachCore(ctx, "spotify"))
		assert.Empty(t, mp.Sources())
		assert.Zero(t, mp.Tracks().TotalCount())
		assert.True(t, opened["spotify"].Closed())
	})

	t.Run("nil item", func(t *testing.T) {
		_, err := lib.OpenPlaylist(ctx, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
	})
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	lib, err := New(Options{Ranking: merge.Alternating(), OwnsSources: true})
	require.NoError(t, err)

	tracks := cores.NewMemory("a", models.Track{Title: "x"})
	require.NoError(t, lib.AttachCore(ctx, &Core{ID: "a", Tracks: tracks}))

	require.NoError(t, lib.Close(ctx))
	require.NoError(t, lib.Close(ctx))
	assert.True(t, tracks.Closed())

	assert.ErrorIs(t, lib.AttachCore(ctx, &Core{ID: "b"}), merge.ErrClosed)
	_, err = lib.Tracks().GetItems(ctx, 1, 0)
	assert.ErrorIs(t, err, merge.ErrClosed)
}

package library

import (
	"strconv"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

func albumKey(a models.Album) string { return shared.Normalize(a.Name) }

func artistKey(a models.Artist) string { return shared.Normalize(a.Name) }

func trackKey(t models.Track) string {
	return shared.NormalizeKey(
		t.Title,
		strconv.Itoa(t.TrackNumber),
		string(t.Type),
		strconv.Itoa(t.DiscNumber),
		strconv.Itoa(t.Duration),
		t.Album,
	)
}

func AlbumPolicy() merge.Resolver[models.Album]   { return merge.By(albumKey) }
func ArtistPolicy() merge.Resolver[models.Artist] { return merge.By(artistKey) }
func TrackPolicy() merge.Resolver[models.Track]   { return merge.By(trackKey) }

func PlaylistPolicy() merge.Resolver[models.Playlist] { return merge.Never[models.Playlist]() }

// Images, users and search results are not collected by a Library yet.
func imagePolicy() merge.Resolver[models.Image] { return merge.Never[models.Image]() }
func userPolicy() merge.Resolver[models.User]   { return merge.Never[models.User]() }

// searchPolicy folds every result into the first merged item missing that core.
func searchPolicy() merge.Resolver[models.SearchResult] { return merge.Always[models.SearchResult]() }

// package services defines interface Service for interacting with HTTP APIs
//
// Spotify, YouTube (via proxy)
package services

import (
	"context"

	"github.com/desertthunder/unison/internal/models"
)

// Service defines the read surface of a remote music provider (Spotify, YouTube Music) used by the library cores.
//
// Every listing is windowed with limit/offset and reports the provider's total alongside the page.
type Service interface {
	// Authenticate performs OAuth or API key authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// LibraryTracks returns a window of the user's saved tracks.
	LibraryTracks(ctx context.Context, limit, offset int) (*TrackPage, error)

	// Playlists returns a window of the user's playlists.
	Playlists(ctx context.Context, limit, offset int) (*PlaylistPage, error)

	// PlaylistTracks returns a window of the tracks of one playlist.
	PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*TrackPage, error)

	// Name returns the name of the service (e.g., "Spotify", "YouTube Music")
	Name() string
}

// TrackPage is one window of tracks plus the total size of the listing.
type TrackPage struct {
	Items []models.Track
	Total int
}

// PlaylistPage is one window of playlists plus the total size of the listing.
type PlaylistPage struct {
	Items []models.Playlist
	Total int
}

// window slices items to [offset, offset+limit).
func window[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) || limit <= 0 {
		return []T{}
	}
	return items[offset:min(offset+limit, len(items))]
}

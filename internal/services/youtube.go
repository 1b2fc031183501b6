// YouTube Music API [Service] implementation
//
// Communicates with the FastAPI proxy server (music/) running on port 8080.
// The proxy wraps ytmusicapi Python library for YouTube Music operations.
// The proxy returns whole listings, so windows are sliced client side.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeImage represents an image/thumbnail from YouTube Music.
type YouTubeImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"` // Duration in seconds
	VideoType   string          `json:"videoType,omitempty"`
	ISRC        string          `json:"isrc,omitempty"`
}

type youtubePlaylistSummary struct {
	PlaylistID  string         `json:"playlistId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Privacy     string         `json:"privacy"`
	Count       int            `json:"count"`
	Thumbnails  []YouTubeImage `json:"thumbnails"`
}

// YouTubePlaylist represents a playlist from YouTube Music.
type YouTubePlaylist struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Privacy     string         `json:"privacy"`
	Thumbnails  []YouTubeImage `json:"thumbnails"`
	TrackCount  int            `json:"trackCount"`
	Tracks      []YouTubeTrack `json:"tracks,omitempty"`
}

// YouTubeService implements the Service interface for YouTube Music via proxy.
type YouTubeService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Music service instance.
func NewYouTubeService(baseURL string) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// Authenticate stores the authentication file path for subsequent requests.
//
// Expects credentials["auth_file"] to contain the path to browser.json or oauth.json.
func (y *YouTubeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	authFile, ok := credentials["auth_file"]
	if !ok || authFile == "" {
		return fmt.Errorf("%w: auth_file", shared.ErrMissingCredentials)
	}

	y.authFile = authFile
	return nil
}

func (y *YouTubeService) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		sentinel := shared.ErrAPIRequest
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			sentinel = shared.ErrNotAuthenticated
		case resp.StatusCode == http.StatusNotFound:
			sentinel = shared.ErrPlaylistNotFound
		case resp.StatusCode >= 500:
			sentinel = shared.ErrServiceUnavailable
		}

		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: youtube music status %d: %s", sentinel, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: youtube music status %d", sentinel, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// LibrarySongs retrieves every saved song.
//
// Calls GET /api/library/songs on the proxy.
func (y *YouTubeService) LibrarySongs(ctx context.Context) ([]models.Track, error) {
	var songs []YouTubeTrack
	if err := y.doRequest(ctx, "/api/library/songs", &songs); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, len(songs))
	for i, s := range songs {
		tracks[i] = youtubeToTrack(s)
	}
	return tracks, nil
}

// LibraryTracks fetches the saved songs and returns the requested window.
func (y *YouTubeService) LibraryTracks(ctx context.Context, limit, offset int) (*TrackPage, error) {
	tracks, err := y.LibrarySongs(ctx)
	if err != nil {
		return nil, err
	}
	return &TrackPage{Items: window(tracks, limit, offset), Total: len(tracks)}, nil
}

// Playlists retrieves the user's playlists and returns the requested window.
//
// Calls GET /api/library/playlists on the proxy.
func (y *YouTubeService) Playlists(ctx context.Context, limit, offset int) (*PlaylistPage, error) {
	var summaries []youtubePlaylistSummary
	if err := y.doRequest(ctx, "/api/library/playlists", &summaries); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, len(summaries))
	for i, ytp := range summaries {
		playlists[i] = models.Playlist{
			ID:          ytp.PlaylistID,
			Name:        ytp.Title,
			Description: ytp.Description,
			TrackCount:  ytp.Count,
			Public:      ytp.Privacy == "PUBLIC",
		}
	}
	return &PlaylistPage{Items: window(playlists, limit, offset), Total: len(playlists)}, nil
}

// PlaylistTracks retrieves a playlist with its tracks and returns the requested window of tracks.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YouTubeService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*TrackPage, error) {
	var playlist YouTubePlaylist
	if err := y.doRequest(ctx, "/api/playlists/"+url.PathEscape(playlistID), &playlist); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, len(playlist.Tracks))
	for i, ytt := range playlist.Tracks {
		tracks[i] = youtubeToTrack(ytt)
	}
	return &TrackPage{Items: window(tracks, limit, offset), Total: len(tracks)}, nil
}

func youtubeToTrack(ytt YouTubeTrack) models.Track {
	track := models.Track{
		ID:       ytt.VideoID,
		Title:    ytt.Title,
		Type:     models.TrackTypeSong,
		Duration: ytt.DurationSec,
		ISRC:     ytt.ISRC,
	}
	if ytt.VideoType != "" && ytt.VideoType != "MUSIC_VIDEO_TYPE_ATV" {
		track.Type = models.TrackTypeVideo
	}
	if track.Duration == 0 && ytt.Duration != "" {
		if d, err := shared.ParseDuration(ytt.Duration); err == nil {
			track.Duration = d
		}
	}
	if len(ytt.Artists) > 0 {
		track.Artist = ytt.Artists[0].Name
	}
	if ytt.Album != nil {
		track.Album = ytt.Album.Name
	}
	return track
}

// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/oauth2"

	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// spotifyMaxLimit is the largest page the Web API serves.
	spotifyMaxLimit = 50
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	TrackNumber int             `json:"track_number"`
	DiscNumber  int             `json:"disc_number"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistTrack represents a track within a playlist or the saved library.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks is the paging object of /me/tracks and /playlists/{id}/tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	Images      []SpotifyImage      `json:"images"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyService implements the Service interface for Spotify API interactions.
// Uses [oauth2] for authentication with automatic token refresh.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	mu         sync.RWMutex
	token      *oauth2.Token
	httpClient *http.Client

	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
	}, nil
}

// SetTokenRefreshCallback registers fn to receive tokens whenever the client obtains a new one.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

// Authenticate performs OAuth2 authentication with Spotify.
// Expects "access_token" (optionally with "refresh_token") or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	var token *oauth2.Token
	switch {
	case credentials["access_token"] != "":
		token = &oauth2.Token{AccessToken: credentials["access_token"], RefreshToken: credentials["refresh_token"]}
	case credentials["auth_code"] != "":
		exchanged, err := s.config.Exchange(ctx, credentials["auth_code"])
		if err != nil {
			return fmt.Errorf("failed to exchange auth code: %w", err)
		}
		token = exchanged
	default:
		return fmt.Errorf("%w: access_token or auth_code", shared.ErrMissingCredentials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	source := &refreshableTokenSource{source: s.config.TokenSource(ctx, token), callback: s.onTokenRefresh}
	s.httpClient = oauth2.NewClient(ctx, source)
	return nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// refreshableTokenSource reports every new access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	s.mu.RLock()
	client, authenticated := s.httpClient, s.token != nil
	s.mu.RUnlock()
	if !authenticated {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify status %d", shared.ErrNotAuthenticated, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: spotify status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, spotifyMaxLimit)
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	var response SpotifyPaginatedTracks
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", clampLimit(limit), offset)
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	var response SpotifyPaginatedPlaylists
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", clampLimit(limit), offset)
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// PlaylistItems retrieves one page of a playlist's tracks.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedTracks, error) {
	var response SpotifyPaginatedTracks
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), clampLimit(limit), offset)
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Service interface implementation

// LibraryTracks returns up to limit saved tracks, issuing as many API pages as needed.
func (s *SpotifyService) LibraryTracks(ctx context.Context, limit, offset int) (*TrackPage, error) {
	return s.collectTracks(ctx, limit, offset, s.SavedTracks)
}

// PlaylistTracks returns up to limit tracks of a playlist, issuing as many API pages as needed.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*TrackPage, error) {
	return s.collectTracks(ctx, limit, offset, func(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
		return s.PlaylistItems(ctx, playlistID, limit, offset)
	})
}

func (s *SpotifyService) collectTracks(ctx context.Context, limit, offset int,
	fetch func(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error)) (*TrackPage, error) {
	page := &TrackPage{Items: []models.Track{}}
	for {
		want := limit - len(page.Items)
		response, err := fetch(ctx, max(want, 1), offset)
		if err != nil {
			return nil, err
		}
		page.Total = response.Total

		for _, item := range response.Items {
			if item.Track == nil {
				continue
			}
			page.Items = append(page.Items, spotifyToTrack(*item.Track))
		}
		offset += len(response.Items)

		if len(page.Items) >= limit || response.Next == nil || len(response.Items) == 0 {
			break
		}
	}
	if len(page.Items) > limit && limit > 0 {
		page.Items = page.Items[:limit]
	}
	return page, nil
}

// Playlists returns up to limit of the user's playlists.
func (s *SpotifyService) Playlists(ctx context.Context, limit, offset int) (*PlaylistPage, error) {
	page := &PlaylistPage{Items: []models.Playlist{}}
	for {
		response, err := s.UserPlaylists(ctx, max(limit-len(page.Items), 1), offset)
		if err != nil {
			return nil, err
		}
		page.Total = response.Total

		for _, sp := range response.Items {
			page.Items = append(page.Items, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			})
		}
		offset += len(response.Items)

		if len(page.Items) >= limit || response.Next == nil || len(response.Items) == 0 {
			break
		}
	}
	if len(page.Items) > limit && limit > 0 {
		page.Items = page.Items[:limit]
	}
	return page, nil
}

func spotifyToTrack(st SpotifyTrack) models.Track {
	track := models.Track{
		ID:          st.ID,
		Title:       st.Name,
		Album:       st.Album.Name,
		TrackNumber: st.TrackNumber,
		DiscNumber:  st.DiscNumber,
		Type:        models.TrackTypeSong,
		Duration:    st.DurationMS / 1000,
		ISRC:        st.ExternalIDs.ISRC,
	}
	if st.Type == "episode" {
		track.Type = models.TrackTypePodcast
	}
	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}
	return track
}

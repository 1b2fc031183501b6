// Package services defines the [Service] interface for music streaming providers and implements it for Spotify and YouTube Music.
//
// # Service Interface
//
// All providers expose windowed reads (limit/offset) and report the listing's total with every page.
// The cores package adapts a Service into a merge source.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// [SpotifyService.SetTokenRefreshCallback] observes refreshed tokens so callers can persist them.
// The Web API serves at most 50 items per request; larger windows are assembled from several requests.
//
// # YouTube Music Implementation
//
// [YouTubeService] communicates with the FastAPI proxy server (music/) wrapping ytmusicapi.
// The auth_file path is sent via X-Auth-File header on each request.
// The proxy returns whole listings, so windows are cut client side.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called, or the provider rejected the credentials
//   - [shared.ErrServiceUnavailable] : rate limited, 5xx, or unreachable
//   - [shared.ErrAPIRequest] : any other failed request
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
package services

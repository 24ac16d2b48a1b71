// Package services talks to the outside world: the Spotify Web API on behalf of one
// user, and the organizer's own HTTP API on behalf of the CLI.
//
// # Provider Contracts
//
// [Library], [PlaylistManager] and [Provider] describe what the organizer needs from a
// music provider. [SpotifyService] implements all of them.
//
// # Spotify Implementation
//
// [SpotifyService] is bound to one user's token. [NewTokenClient] wraps an [oauth2.Config]
// token source so expired tokens refresh automatically and the refreshed token can be
// written back to the session store.
//
// All requests share a [rate.Limiter] so concurrent jobs and bulk syncs stay under the
// app-wide rate limit.
//
// # Error Handling
//
// Responses are mapped onto the shared taxonomy:
//   - 401 → [shared.ErrTokenExpired] (an [shared.ErrNotAuthenticated])
//   - 404 → [shared.ErrPlaylistNotFound] (an [shared.ErrExternalDependency])
//   - 429, 5xx and transport failures → [shared.ErrAPIRequest]
//   - deadline exceeded → [shared.ErrTimeout]
//
// # API Client
//
// [APIClient] is used by CLI commands and the job watcher. It sends the session cookie and
// maps error statuses back to the same sentinels.
package services

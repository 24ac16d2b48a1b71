// Spotify Web API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// MaxTracksPerRequest is Spotify's limit for adding or replacing playlist items.
	MaxTracksPerRequest = 100
	savedTracksPageSize = 50
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a Spotify artist. Simplified artist objects omit genres.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
	IsLocal bool            `json:"is_local"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

type owner struct {
	ID string `json:"id"`
}

type trackTotal struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Owner        owner        `json:"owner"`
	Public       bool         `json:"public"`
	Tracks       trackTotal   `json:"tracks"`
	ExternalURLs externalURLs `json:"external_urls"`
}

func (p SpotifyPlaylist) model() *models.Playlist {
	return &models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		URL:         p.ExternalURLs.Spotify,
		TrackCount:  p.Tracks.Total,
		Public:      p.Public,
		OwnerID:     p.Owner.ID,
	}
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	BaseURL string
	Limiter *rate.Limiter
	// Timeout bounds each request on clients built for a session. Zero means none.
	Timeout time.Duration
}

// SpotifyService implements [Provider] for one authenticated Spotify account.
//
// The HTTP client carries the user's credentials (see [NewTokenClient]). Every request
// waits on the shared limiter so all accounts on one app stay under the rate limit.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a service that issues requests through client.
func NewSpotifyService(client *http.Client, opts SpotifyOpts) *SpotifyService {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &SpotifyService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: client,
		limiter:    opts.Limiter,
	}
}

// Name returns the provider name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// body, when non-nil, is sent as JSON. result, when non-nil, receives the decoded response.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s", shared.ErrTimeout, method, endpoint)
		}
		if errors.Is(err, shared.ErrTokenExpired) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

func statusError(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	var apiErr spotifyError
	if data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)); len(data) > 0 {
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited (retry after %ss)", shared.ErrAPIRequest, resp.Header.Get("Retry-After"))
	}
	return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SavedTracks retrieves one page of the user's liked songs.
//
// Local files and unavailable tracks have no id and are dropped from the page,
// so a page may hold fewer tracks than requested while Total stays as reported.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*models.TrackPage, error) {
	if limit <= 0 || limit > savedTracksPageSize {
		limit = savedTracksPageSize
	}

	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	page := &models.TrackPage{
		Tracks: make([]models.Track, 0, len(response.Items)),
		Total:  response.Total,
		Next:   response.Next != nil,
	}
	for _, item := range response.Items {
		if item.Track == nil || item.Track.ID == "" || item.Track.IsLocal {
			continue
		}
		addedAt, _ := time.Parse(time.RFC3339, item.AddedAt)

		track := models.Track{ID: item.Track.ID, Name: item.Track.Name, AddedAt: addedAt}
		for _, a := range item.Track.Artists {
			track.Artists = append(track.Artists, models.Artist{ID: a.ID, Name: a.Name})
		}
		page.Tracks = append(page.Tracks, track)
	}
	return page, nil
}

// Artists retrieves up to 50 artists with their genres.
func (s *SpotifyService) Artists(ctx context.Context, ids []string) ([]models.Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > 50 {
		return nil, fmt.Errorf("%w: maximum 50 artist IDs allowed", shared.ErrInvalidArgument)
	}

	endpoint := "/artists?ids=" + url.QueryEscape(strings.Join(ids, ","))

	var response struct {
		Artists []*SpotifyArtist `json:"artists"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Artists))
	for _, a := range response.Artists {
		if a == nil {
			continue
		}
		artists = append(artists, models.Artist{ID: a.ID, Name: a.Name, Genres: a.Genres})
	}
	return artists, nil
}

// CreatePlaylist creates a private playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, fmt.Errorf("failed to create playlist %q: %w", name, err)
	}
	return playlist.model(), nil
}

// GetPlaylist retrieves the live view of a playlist.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/playlists/%s?fields=%s", url.PathEscape(playlistID),
		url.QueryEscape("id,name,description,public,owner(id),external_urls,tracks(total)"))

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}
	return playlist.model(), nil
}

// ReplaceTracks sets the playlist's items to trackIDs, in order.
//
// The first 100 replace the current items and the rest are appended in chunks.
func (s *SpotifyService) ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	first := trackIDs[:min(len(trackIDs), MaxTracksPerRequest)]

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, http.MethodPut, endpoint, map[string]any{"uris": trackURIs(first)}, nil); err != nil {
		return fmt.Errorf("failed to replace playlist tracks: %w", err)
	}
	return s.AddTracks(ctx, playlistID, trackIDs[len(first):])
}

// AddTracks appends trackIDs to the playlist in chunks of [MaxTracksPerRequest].
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(trackIDs); start += MaxTracksPerRequest {
		end := min(start+MaxTracksPerRequest, len(trackIDs))
		body := map[string]any{"uris": trackURIs(trackIDs[start:end])}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return fmt.Errorf("failed to add tracks %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// ClearPlaylist removes every item from the playlist.
func (s *SpotifyService) ClearPlaylist(ctx context.Context, playlistID string) error {
	return s.ReplaceTracks(ctx, playlistID, nil)
}

// UpdatePlaylistDetails changes the playlist's name and description.
func (s *SpotifyService) UpdatePlaylistDetails(ctx context.Context, playlistID, name, description string) error {
	body := map[string]any{"name": name, "description": description}
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, http.MethodPut, endpoint, body, nil); err != nil {
		return fmt.Errorf("failed to update playlist details: %w", err)
	}
	return nil
}

// UnfollowPlaylist removes the playlist from the user's library, which is how Spotify deletes playlists.
func (s *SpotifyService) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/followers", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("failed to unfollow playlist: %w", err)
	}
	return nil
}

func trackURIs(ids []string) []string {
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = models.Track{ID: id}.URI()
	}
	return uris
}

// Client for the organizer's own HTTP API, used by the CLI and the job watcher
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
)

// SessionCookie is the cookie carrying the session id.
const SessionCookie = "session"

// APIClient calls a running organizer server on behalf of one session.
type APIClient struct {
	baseURL    string
	session    string
	httpClient *http.Client
}

// NewAPIClient creates a client for the server at baseURL.
func NewAPIClient(baseURL, session string, client *http.Client) *APIClient {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:3000"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
		httpClient: client,
	}
}

// BaseURL returns the server root.
func (a *APIClient) BaseURL() string { return a.baseURL }

// Logout ends the session on the server.
func (a *APIClient) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// StartOrganizeResponse is returned when a job is accepted.
type StartOrganizeResponse struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
}

// PlaylistsResponse is the managed playlist listing.
type PlaylistsResponse struct {
	Playlists  []*models.ManagedPlaylist `json:"playlists"`
	TotalSongs int                       `json:"total_songs"`
}

// SongCountResponse is returned by refresh and rebuild.
type SongCountResponse struct {
	SongCount int `json:"song_count"`
}

// WarningResponse carries a non-fatal provider failure from edits and deletes.
type WarningResponse struct {
	Warning string `json:"warning,omitempty"`
}

// JobsResponse lists live jobs and persisted history.
type JobsResponse struct {
	Jobs    []models.Job        `json:"jobs"`
	History []*models.JobRecord `json:"history"`
}

// PlaylistPatch is the body of a playlist edit. Nil fields are left unchanged.
type PlaylistPatch struct {
	CustomName        *string `json:"custom_name,omitempty"`
	CustomDescription *string `json:"custom_description,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// do sends a JSON request and decodes a JSON response into result.
//
// Non-2xx responses are mapped back onto the shared error taxonomy.
func (a *APIClient) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: a.session})
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e apiError
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return fmt.Errorf("%w: %s", statusSentinel(resp.StatusCode), msg)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func statusSentinel(code int) error {
	switch code {
	case http.StatusBadRequest:
		return shared.ErrInvalidArgument
	case http.StatusUnauthorized:
		return shared.ErrNotAuthenticated
	case http.StatusNotFound:
		return shared.ErrNotFound
	case http.StatusConflict:
		return shared.ErrConflict
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return shared.ErrExternalDependency
	}
	return shared.ErrInternal
}

// Me returns the authenticated user.
func (a *APIClient) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := a.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// StartOrganize starts an organize job.
func (a *APIClient) StartOrganize(ctx context.Context, playlistCount int, replaceExisting bool) (*StartOrganizeResponse, error) {
	body := map[string]any{"playlist_count": playlistCount, "replace_existing": replaceExisting}

	var resp StartOrganizeResponse
	if err := a.do(ctx, http.MethodPost, "/api/organize", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OrganizeStatus polls a job.
func (a *APIClient) OrganizeStatus(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := a.do(ctx, http.MethodGet, "/api/organize/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Jobs lists retained jobs and history.
func (a *APIClient) Jobs(ctx context.Context) (*JobsResponse, error) {
	var resp JobsResponse
	if err := a.do(ctx, http.MethodGet, "/api/organize", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Playlists lists managed playlists.
func (a *APIClient) Playlists(ctx context.Context) (*PlaylistsResponse, error) {
	var resp PlaylistsResponse
	if err := a.do(ctx, http.MethodGet, "/api/playlists", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh re-reads one playlist's live track count.
func (a *APIClient) Refresh(ctx context.Context, playlistID string) (int, error) {
	var resp SongCountResponse
	if err := a.do(ctx, http.MethodPost, "/api/playlists/"+url.PathEscape(playlistID)+"/refresh", nil, &resp); err != nil {
		return 0, err
	}
	return resp.SongCount, nil
}

// Rebuild refills one playlist from the current library.
func (a *APIClient) Rebuild(ctx context.Context, playlistID string) (int, error) {
	var resp SongCountResponse
	if err := a.do(ctx, http.MethodPost, "/api/playlists/"+url.PathEscape(playlistID)+"/rebuild", nil, &resp); err != nil {
		return 0, err
	}
	return resp.SongCount, nil
}

// UpdatePlaylist sets custom name and/or description. The returned warning is non-empty
// when the provider could not be updated.
func (a *APIClient) UpdatePlaylist(ctx context.Context, playlistID string, patch PlaylistPatch) (string, error) {
	var resp WarningResponse
	if err := a.do(ctx, http.MethodPatch, "/api/playlists/"+url.PathEscape(playlistID), patch, &resp); err != nil {
		return "", err
	}
	return resp.Warning, nil
}

// DeletePlaylist stops managing a playlist and unfollows it on the provider.
func (a *APIClient) DeletePlaylist(ctx context.Context, playlistID string) (string, error) {
	var resp WarningResponse
	if err := a.do(ctx, http.MethodDelete, "/api/playlists/"+url.PathEscape(playlistID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Warning, nil
}

// SyncAll refreshes every managed playlist.
func (a *APIClient) SyncAll(ctx context.Context) (*models.SyncAllResult, error) {
	var resp models.SyncAllResult
	if err := a.do(ctx, http.MethodPost, "/api/playlists/sync-all", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncStatus reports library additions since the last sync.
func (a *APIClient) SyncStatus(ctx context.Context) (*models.SyncStatus, error) {
	var resp models.SyncStatus
	if err := a.do(ctx, http.MethodGet, "/api/library/sync-status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Settings returns the naming templates and account tier.
func (a *APIClient) Settings(ctx context.Context) (*models.UserSettings, error) {
	var resp models.UserSettings
	if err := a.do(ctx, http.MethodGet, "/api/settings", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveSettings replaces the naming templates.
func (a *APIClient) SaveSettings(ctx context.Context, nameTemplate, descriptionTemplate string) (*models.UserSettings, error) {
	body := map[string]string{
		"name_template":        nameTemplate,
		"description_template": descriptionTemplate,
	}

	var resp models.UserSettings
	if err := a.do(ctx, http.MethodPut, "/api/settings", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LibraryCount returns the number of liked songs.
func (a *APIClient) LibraryCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/library/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Health reports the server status. It needs no session.
func (a *APIClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := a.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// LoginURL is where a browser starts the OAuth flow. A non-empty redirect must be a
// loopback URL that receives the session once the flow completes.
func (a *APIClient) LoginURL(redirect string) string {
	u := a.baseURL + "/api/auth/login"
	if redirect != "" {
		u += "?" + url.Values{"redirect": {redirect}}.Encode()
	}
	return u
}

// WithSession returns a copy of the client bound to session.
func (a *APIClient) WithSession(session string) *APIClient {
	c := *a
	c.session = session
	return &c
}

// package services defines the music provider contracts used by the organizer and
// implements them for the Spotify Web API
package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// Scopes needed to read the library and manage the organizer's playlists.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-library-read",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
}

// Library reads the user's liked songs.
type Library interface {
	SavedTracks(ctx context.Context, limit, offset int) (*models.TrackPage, error)
}

// PlaylistManager creates and mutates playlists on the provider.
type PlaylistManager interface {
	CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error)
	ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)
	UpdatePlaylistDetails(ctx context.Context, playlistID, name, description string) error
	UnfollowPlaylist(ctx context.Context, playlistID string) error
}

// Provider is everything the organizer needs from one authenticated account.
type Provider interface {
	Library
	PlaylistManager
	Artists(ctx context.Context, ids []string) ([]models.Artist, error)
}

// NewOAuthConfig builds the OAuth2 configuration for the Spotify credentials in cfg.
func NewOAuthConfig(cfg shared.SpotifyConfig) (*oauth2.Config, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: spotify redirect_uri is required", shared.ErrMissingCredentials)
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}, nil
}

// NewTokenClient returns an HTTP client that authenticates with token and refreshes it
// through config when it expires. onRefresh, when set, receives every newly issued token.
func NewTokenClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token)) *http.Client {
	var source oauth2.TokenSource = config.TokenSource(ctx, token)
	if onRefresh != nil {
		source = &refreshableTokenSource{source: source, last: token.AccessToken, callback: onRefresh}
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, source))
}

// refreshableTokenSource reports tokens whose access token differs from the last one seen.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (s *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}

	s.mu.Lock()
	changed := token.AccessToken != s.last
	s.last = token.AccessToken
	s.mu.Unlock()

	if changed && s.callback != nil {
		s.callback(token)
	}
	return token, nil
}

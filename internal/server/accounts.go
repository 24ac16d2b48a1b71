package server

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genrefy/internal/genres"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/services"
	"github.com/desertthunder/genrefy/internal/tasks"
	"golang.org/x/oauth2"
)

// SpotifyAccounts returns a factory that binds a [services.SpotifyService] to each session's
// token. Refreshed tokens are written back to sessions.
//
// The client outlives the request that created it, since organize jobs keep using it.
func SpotifyAccounts(config *oauth2.Config, sessions SessionStore, opts services.SpotifyOpts, logger *log.Logger) AccountFactory {
	return func(user *models.User, sess *models.Session) tasks.Account {
		token := &oauth2.Token{
			AccessToken:  sess.AccessToken,
			RefreshToken: sess.RefreshToken,
			TokenType:    sess.TokenType,
			Expiry:       sess.Expiry,
		}

		id := sess.SessionID
		client := services.NewTokenClient(context.Background(), config, token, func(t *oauth2.Token) {
			if err := sessions.UpdateToken(id, t); err != nil {
				logger.Warn("failed to store refreshed token", "user", user.SpotifyID, "err", err)
				return
			}
			logger.Debug("stored refreshed token", "user", user.SpotifyID)
		})
		client.Timeout = opts.Timeout

		svc := services.NewSpotifyService(client, opts)
		return tasks.Account{
			UserID:     user.SpotifyID,
			Username:   user.Username(),
			Premium:    user.Premium(),
			Library:    svc,
			Playlists:  svc,
			Classifier: genres.NewArtistClassifier(svc),
		}
	}
}

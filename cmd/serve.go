package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/genrefy/internal/repositories"
	"github.com/desertthunder/genrefy/internal/server"
	"github.com/desertthunder/genrefy/internal/services"
	"github.com/desertthunder/genrefy/internal/shared"
	"github.com/desertthunder/genrefy/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

// Serve runs the API server until interrupted.
//
// Running jobs get [shutdownTimeout] to finish after the listener closes.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = port
	}

	oauthConfig, err := services.NewOAuthConfig(config.Credentials.Spotify)
	if err != nil {
		return err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	sessions := repositories.NewSessionRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	settings := repositories.NewSettingsRepository(db)
	history := repositories.NewJobRepository(db)

	opts := tasks.OptionsFromConfig(config)
	jobs := tasks.NewJobEngine(playlists, settings, opts, r.logger)
	jobs.SetRecorder(history)

	spotifyOpts := services.SpotifyOpts{
		BaseURL: config.Spotify.BaseURL,
		Limiter: rate.NewLimiter(rate.Limit(config.Spotify.RateLimit), max(config.Spotify.Burst, 1)),
		Timeout: config.Spotify.Timeout.Duration,
	}

	srv := server.New(server.Deps{
		OAuth:      oauthConfig,
		Users:      repositories.NewUserRepository(db),
		Sessions:   sessions,
		Settings:   settings,
		History:    history,
		Jobs:       jobs,
		Reconciler: tasks.NewReconciler(playlists, settings, opts, r.logger),
		Accounts:   server.SpotifyAccounts(oauthConfig, sessions, spotifyOpts, r.logger),
	}, server.OptionsFromConfig(config, spotifyOpts), r.logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go jobs.RunJanitor(ctx, janitorInterval)

	httpServer := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", httpServer.Addr, "db", config.Database.Path)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("jobs still running at exit", "error", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/genrefy/internal/server"
	"github.com/desertthunder/genrefy/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin logs in through the server's OAuth flow and saves the session.
//
// A one-shot loopback server receives the session when the server's callback redirects
// back to it, so the CLI never handles Spotify credentials itself.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	nonce, err := shared.GenerateSessionID()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to start callback listener: %w", err)
	}

	catcher := server.NewSessionCatcher(nonce)
	router := server.NewBasicRouter()
	router.Handler(catcher)
	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	callback := fmt.Sprintf("http://%s/callback?%s", listener.Addr(), url.Values{"nonce": {nonce}}.Encode())
	loginURL := r.api.LoginURL(callback)
	r.logger.Debug("starting login", "callback", callback)

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", loginURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(loginURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", loginURL)
		}
	}

	timeout := cmd.Duration("timeout")
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.LoginResult
	select {
	case result = <-catcher.Result():
	case err := <-serverErrors:
		return fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		return fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := result.Error(); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	if err := r.saveSession(result.Session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	user, err := r.api.Me(ctx)
	if err != nil {
		return fmt.Errorf("session saved but could not be verified: %w", err)
	}

	r.writePlainln("✓ Logged in as %s (%s)", user.Username(), user.Product)
	if r.configPath != "" {
		r.writePlain("✓ Session saved to %s\n", r.configPath)
	}
	return nil
}

// AuthStatus checks the server's health and whether the saved session is valid.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status", "server", r.api.BaseURL())

	status, err := r.api.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: server unavailable at %s: %v", shared.ErrExternalDependency, r.api.BaseURL(), err)
	}

	r.writePlain("✓ Server is healthy\n")
	r.writePlain("Status: %s\n", status)

	if r.config.Client.Session == "" {
		r.writePlain("Authentication: ✗ No saved session (run 'genrefy auth login')\n")
		return nil
	}

	user, err := r.api.Me(ctx)
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		r.writePlain("Authentication: ✗ Session expired (run 'genrefy auth login')\n")
		return nil
	case err != nil:
		return err
	}

	tier := "free"
	if user.Premium() {
		tier = "premium"
	}
	r.writePlain("Authentication: ✓ %s (%s, %s)\n", user.Username(), user.SpotifyID, tier)
	return nil
}

// AuthLogout ends the session on the server and forgets it locally.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}
	if r.config.Client.Session == "" {
		return r.writePlain("Not logged in\n")
	}

	if err := r.api.Logout(ctx); err != nil && !errors.Is(err, shared.ErrNotAuthenticated) {
		return err
	}
	if err := r.saveSession(""); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return r.writePlain("✓ Logged out\n")
}

package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/services"
	"github.com/desertthunder/genrefy/internal/shared"
)

const (
	stateCookie    = "oauth_state"
	returnToCookie = "oauth_return"
	loginCookieAge = 600
)

// loginError carries the short code reported back to the frontend or CLI.
type loginError struct {
	code string
	err  error
}

func (e *loginError) Error() string { return e.err.Error() }
func (e *loginError) Unwrap() error { return e.err }

// setCookie sets an HTTP-only cookie. Secure cookies use SameSite=None so a frontend on
// another origin can send them.
func (s *Server) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if s.opts.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   s.opts.CookieSecure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	s.setCookie(w, name, "", -1)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// isLoopback reports whether raw is an http URL on this machine.
func isLoopback(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func withQuery(raw string, kv ...string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// handleLogin redirects to the provider's consent page.
//
// A loopback redirect parameter makes the callback hand the session to a CLI instead
// of the frontend.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.OAuth == nil {
		writeError(w, s.logger, fmt.Errorf("%w: spotify", shared.ErrMissingCredentials))
		return
	}

	returnTo := r.URL.Query().Get("redirect")
	if returnTo != "" && !isLoopback(returnTo) {
		writeError(w, s.logger, fmt.Errorf("%w: redirect must be a loopback http url", shared.ErrInvalidArgument))
		return
	}

	state, err := shared.GenerateSessionID()
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	s.setCookie(w, stateCookie, state, loginCookieAge)
	if returnTo != "" {
		s.setCookie(w, returnToCookie, returnTo, loginCookieAge)
	}
	http.Redirect(w, r, s.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// handleCallback finishes the OAuth flow and opens a session.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	returnTo := cookieValue(r, returnToCookie)
	if !isLoopback(returnTo) {
		returnTo = ""
	}

	sess, err := s.completeLogin(r)
	s.clearCookie(w, stateCookie)
	s.clearCookie(w, returnToCookie)
	if err != nil {
		s.loginFailed(w, r, returnTo, err)
		return
	}

	s.setCookie(w, services.SessionCookie, sess.SessionID, int(s.opts.SessionTTL.Seconds()))

	switch {
	case returnTo != "":
		http.Redirect(w, r, withQuery(returnTo, "session", sess.SessionID), http.StatusTemporaryRedirect)
	case s.opts.FrontendURL != "":
		http.Redirect(w, r, strings.TrimRight(s.opts.FrontendURL, "/")+"/dashboard", http.StatusTemporaryRedirect)
	default:
		renderPage(w, http.StatusOK, pageData{
			Title:   "✓ Authorization Successful",
			Message: "Use this session with the CLI or as a bearer token.",
			Session: sess.SessionID,
		})
	}
}

func (s *Server) completeLogin(r *http.Request) (*models.Session, error) {
	if s.OAuth == nil {
		return nil, &loginError{"not_configured", fmt.Errorf("%w: spotify", shared.ErrMissingCredentials)}
	}

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		return nil, &loginError{reason, fmt.Errorf("%w: %s", shared.ErrAuthFailed, reason)}
	}

	state := cookieValue(r, stateCookie)
	if state == "" || q.Get("state") != state {
		return nil, &loginError{"state_mismatch", shared.ErrStateMismatch}
	}

	code := q.Get("code")
	if code == "" {
		return nil, &loginError{"missing_code", fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)}
	}

	ctx := r.Context()
	token, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, &loginError{"token_exchange_failed", fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)}
	}

	svc := services.NewSpotifyService(s.OAuth.Client(ctx, token), s.opts.Spotify)
	profile, err := svc.UserProfile(ctx)
	if err != nil {
		return nil, &loginError{"profile_fetch_failed", err}
	}

	user := &models.User{
		SpotifyID:   profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		Product:     profile.Product,
	}
	if err := s.Users.Upsert(user); err != nil {
		return nil, &loginError{"internal", err}
	}

	id, err := shared.GenerateSessionID()
	if err != nil {
		return nil, &loginError{"internal", err}
	}
	sess := &models.Session{
		SessionID:    id,
		UserID:       user.SpotifyID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		Expiry:       token.Expiry,
	}
	if err := s.Sessions.Create(sess); err != nil {
		return nil, &loginError{"internal", err}
	}

	s.logger.Info("user logged in", "user", user.SpotifyID, "product", user.Product)
	return sess, nil
}

// loginFailed reports a failed login where the user started it.
func (s *Server) loginFailed(w http.ResponseWriter, r *http.Request, returnTo string, err error) {
	s.logger.Warn("login failed", "err", err)

	code := "login_failed"
	var le *loginError
	if errors.As(err, &le) {
		code = le.code
	}

	switch {
	case returnTo != "":
		http.Redirect(w, r, withQuery(returnTo, "error", code), http.StatusTemporaryRedirect)
	case s.opts.FrontendURL != "":
		http.Redirect(w, r, withQuery(strings.TrimRight(s.opts.FrontendURL, "/"), "error", code), http.StatusTemporaryRedirect)
	default:
		writeError(w, s.logger, err)
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, caller(r).user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := caller(r)
	if err := s.Sessions.Delete(p.session.SessionID); err != nil && !errors.Is(err, shared.ErrNotFound) {
		writeError(w, s.logger, err)
		return
	}
	s.clearCookie(w, services.SessionCookie)
	w.WriteHeader(http.StatusNoContent)
}

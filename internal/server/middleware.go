package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/services"
	"github.com/desertthunder/genrefy/internal/shared"
	"github.com/desertthunder/genrefy/internal/tasks"
	"github.com/go-chi/chi/v5/middleware"
)

type principalKey struct{}

// principal is the authenticated caller of a request.
type principal struct {
	user    *models.User
	session *models.Session
	account tasks.Account
}

// RequestLogger logs one line per request at info level, or warn for server errors.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("request", kv...)
				return
			}
			logger.Info("request", kv...)
		})
	}
}

// sessionID reads the session cookie, falling back to a bearer token.
func sessionID(r *http.Request) string {
	if c, err := r.Cookie(services.SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// requireSession resolves the caller's session to an account or answers 401.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
			return
		}

		sess, err := s.Sessions.Get(id)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				s.logger.Error("failed to load session", "err", err)
			}
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
			return
		}

		user, err := s.Users.Get(sess.UserID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				s.logger.Error("failed to load user", "user", sess.UserID, "err", err)
			}
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
			return
		}

		p := &principal{user: user, session: sess, account: s.Accounts(user, sess)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

// caller returns the principal set by [Server.requireSession].
func caller(r *http.Request) *principal {
	p, _ := r.Context().Value(principalKey{}).(*principal)
	return p
}

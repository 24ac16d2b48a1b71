// package server exposes the organizer over HTTP
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/services"
	"github.com/desertthunder/genrefy/internal/shared"
	"github.com/desertthunder/genrefy/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// UserStore persists accounts by provider user id.
type UserStore interface {
	Get(id string) (*models.User, error)
	Upsert(user *models.User) error
}

// SessionStore persists login sessions and their OAuth tokens.
type SessionStore interface {
	Create(s *models.Session) error
	Get(id string) (*models.Session, error)
	UpdateToken(id string, token *oauth2.Token) error
	Delete(id string) error
}

// SettingsStore reads and writes naming templates.
type SettingsStore interface {
	Get(userID string) (*models.UserSettings, error)
	Save(s *models.UserSettings) error
}

// JobHistory lists finished jobs.
type JobHistory interface {
	ListByUser(userID string, limit int) ([]*models.JobRecord, error)
}

// AccountFactory binds provider handles to an authenticated session.
type AccountFactory func(user *models.User, session *models.Session) tasks.Account

// Deps are the stores and engines a [Server] serves.
type Deps struct {
	OAuth      *oauth2.Config
	Users      UserStore
	Sessions   SessionStore
	Settings   SettingsStore
	History    JobHistory
	Jobs       *tasks.JobEngine
	Reconciler *tasks.Reconciler
	Accounts   AccountFactory
}

// Options configure cookies, redirects and CORS.
type Options struct {
	FrontendURL    string
	AllowedOrigins []string
	CookieSecure   bool
	SessionTTL     time.Duration
	HistoryLimit   int
	// Spotify configures the client used to read the profile during login.
	Spotify services.SpotifyOpts
}

// OptionsFromConfig reads the server section of cfg.
func OptionsFromConfig(cfg *shared.Config, spotify services.SpotifyOpts) Options {
	return Options{
		FrontendURL:    cfg.Server.FrontendURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CookieSecure:   cfg.Server.CookieSecure,
		Spotify:        spotify,
	}
}

// Server holds the dependencies of every HTTP handler.
type Server struct {
	Deps
	opts     Options
	validate *validator.Validate
	logger   *log.Logger
}

// New creates a server. Missing options get defaults.
func New(deps Deps, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Server{
		Deps:     deps,
		opts:     opts,
		validate: newValidator(),
		logger:   shared.WithLogger(logger, "component", "http"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.handleLogin)
			r.Get("/callback", s.handleCallback)

			r.Group(func(r chi.Router) {
				r.Use(s.requireSession)
				r.Get("/me", s.handleMe)
				r.Post("/logout", s.handleLogout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Route("/organize", func(r chi.Router) {
				r.Post("/", s.handleStartOrganize)
				r.Get("/", s.handleListJobs)
				r.Get("/{id}", s.handleJobStatus)
			})

			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handleSaveSettings)

			r.Route("/playlists", func(r chi.Router) {
				r.Get("/", s.handleListPlaylists)
				r.Post("/sync-all", s.handleSyncAll)
				r.Post("/{id}/refresh", s.handleRefresh)
				r.Post("/{id}/rebuild", s.handleRebuild)
				r.Patch("/{id}", s.handleUpdatePlaylist)
				r.Delete("/{id}", s.handleDeletePlaylist)
			})

			r.Route("/library", func(r chi.Router) {
				r.Get("/sync-status", s.handleSyncStatus)
				r.Get("/count", s.handleLibraryCount)
			})
		})
	})

	return r
}

func (s *Server) allowedOrigins() []string {
	origins := append([]string{}, s.opts.AllowedOrigins...)
	if s.opts.FrontendURL != "" {
		origins = append(origins, s.opts.FrontendURL)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	return origins
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

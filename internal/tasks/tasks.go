package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/services"
	"github.com/desertthunder/genrefy/internal/shared"
)

// Classifier labels tracks with a parent genre, one label per track in input order.
// An empty label is treated as Other.
type Classifier interface {
	Classify(ctx context.Context, tracks []models.Track) ([]string, error)
}

// PlaylistStore persists the playlists the organizer manages.
type PlaylistStore interface {
	Get(id string) (*models.ManagedPlaylist, error)
	Upsert(p *models.ManagedPlaylist) error
	FindByGenre(userID, genre string) (*models.ManagedPlaylist, error)
	ListByUser(userID string) ([]*models.ManagedPlaylist, error)
	RecordSync(id string, songCount int, at time.Time) error
	SetOverrides(id string, name, description *string) error
	Delete(id string) error
}

// SettingsStore reads a user's naming templates.
type SettingsStore interface {
	Get(userID string) (*models.UserSettings, error)
}

// JobRecorder stores a summary of every job that reaches a terminal status.
type JobRecorder interface {
	RecordJob(userID string, job models.Job) error
}

// Account is one authenticated user and the provider handles bound to their token.
type Account struct {
	UserID     string
	Username   string
	Premium    bool
	Library    services.Library
	Playlists  services.PlaylistManager
	Classifier Classifier
}

func (a Account) validate() error {
	switch {
	case a.UserID == "":
		return fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	case a.Library == nil || a.Playlists == nil || a.Classifier == nil:
		return fmt.Errorf("%w: account is missing a provider", shared.ErrInternal)
	}
	return nil
}

// Options tunes both engines.
type Options struct {
	PageSize          int
	MinPlaylistSize   int
	ClassifyBatchSize int
	FetchTimeout      time.Duration
	ClassifyTimeout   time.Duration
	CreateTimeout     time.Duration
	JobRetention      time.Duration
	FreeTierFooter    string
	PropagateEdits    bool
	Workers           int
	RateLimit         float64
	SyncTimeout       time.Duration
}

// DefaultOptions mirrors the defaults of the example configuration.
func DefaultOptions() Options {
	return Options{
		PageSize:          50,
		MinPlaylistSize:   1,
		ClassifyBatchSize: 50,
		FetchTimeout:      30 * time.Second,
		ClassifyTimeout:   30 * time.Second,
		CreateTimeout:     60 * time.Second,
		JobRetention:      time.Hour,
		FreeTierFooter:    "Made with genrefy",
		PropagateEdits:    true,
		Workers:           4,
		RateLimit:         4,
		SyncTimeout:       30 * time.Second,
	}
}

// OptionsFromConfig reads the organizer and reconcile sections of cfg.
func OptionsFromConfig(cfg *shared.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}

	o, r := cfg.Organizer, cfg.Reconcile
	opts.MinPlaylistSize = o.MinPlaylistSize
	opts.ClassifyBatchSize = o.ClassifyBatchSize
	opts.FetchTimeout = o.FetchTimeout.Duration
	opts.ClassifyTimeout = o.ClassifyTimeout.Duration
	opts.CreateTimeout = o.CreateTimeout.Duration
	opts.JobRetention = o.JobRetention.Duration
	opts.FreeTierFooter = o.FreeTierFooter
	opts.PropagateEdits = o.PropagateEdits
	opts.Workers = r.Workers
	opts.RateLimit = r.RateLimit
	opts.SyncTimeout = r.Timeout.Duration
	return opts.withDefaults()
}

// withDefaults replaces unset values so a zero Options is usable.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.MinPlaylistSize <= 0 {
		o.MinPlaylistSize = d.MinPlaylistSize
	}
	if o.ClassifyBatchSize <= 0 {
		o.ClassifyBatchSize = d.ClassifyBatchSize
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
	if o.ClassifyTimeout <= 0 {
		o.ClassifyTimeout = d.ClassifyTimeout
	}
	if o.CreateTimeout <= 0 {
		o.CreateTimeout = d.CreateTimeout
	}
	if o.JobRetention <= 0 {
		o.JobRetention = d.JobRetention
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = d.RateLimit
	}
	if o.SyncTimeout <= 0 {
		o.SyncTimeout = d.SyncTimeout
	}
	return o
}

// call runs fn under its own deadline and maps an expired deadline to [shared.ErrTimeout].
func call(parent context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, shared.ErrTimeout) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return err
}

// owned loads a playlist record and checks it belongs to userID.
func owned(store PlaylistStore, userID, id string) (*models.ManagedPlaylist, error) {
	p, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	return p, nil
}

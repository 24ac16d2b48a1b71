package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genrefy/internal/formatter"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/services"
	"github.com/desertthunder/genrefy/internal/shared"
	"golang.org/x/time/rate"
)

// syncSlack widens sync windows so tracks added while a sync ran are not missed.
const syncSlack = time.Minute

// Reconciler keeps managed playlists in step with the live library.
//
// Writes to one playlist are serialized by a per-playlist lock, so a refresh racing a
// bulk sync of the same playlist cannot interleave.
type Reconciler struct {
	store    PlaylistStore
	settings SettingsStore
	opts     Options
	logger   *log.Logger
	now      func() time.Time
	locks    *keyedMutex
}

// NewReconciler creates a reconciler over store.
func NewReconciler(store PlaylistStore, settings SettingsStore, opts Options, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reconciler{
		store:    store,
		settings: settings,
		opts:     opts.withDefaults(),
		logger:   shared.WithLogger(logger, "component", "reconcile"),
		now:      func() time.Time { return time.Now().UTC() },
		locks:    newKeyedMutex(),
	}
}

// Playlists returns the user's managed playlists and the sum of their song counts.
func (r *Reconciler) Playlists(userID string) ([]*models.ManagedPlaylist, int, error) {
	playlists, err := r.store.ListByUser(userID)
	if err != nil {
		return nil, 0, err
	}

	total := 0
	for _, p := range playlists {
		total += p.SongCount
	}
	return playlists, total, nil
}

// RefreshOne reads the live track count of one playlist and records it with the sync time.
func (r *Reconciler) RefreshOne(ctx context.Context, acct Account, id string) (int, error) {
	rec, err := owned(r.store, acct.UserID, id)
	if err != nil {
		return 0, err
	}

	unlock := r.locks.Lock(id)
	defer unlock()
	return r.refresh(ctx, acct, rec)
}

func (r *Reconciler) refresh(ctx context.Context, acct Account, rec *models.ManagedPlaylist) (int, error) {
	var live *models.Playlist
	err := call(ctx, r.opts.SyncTimeout, func(ctx context.Context) error {
		var err error
		live, err = acct.Playlists.GetPlaylist(ctx, rec.SpotifyID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read playlist %s: %w", rec.SpotifyID, err)
	}

	if err := r.store.RecordSync(rec.SpotifyID, live.TrackCount, r.now()); err != nil {
		return 0, err
	}
	r.logger.Debug("playlist refreshed", "playlist", rec.SpotifyID, "songs", live.TrackCount)
	return live.TrackCount, nil
}

// RebuildOne reclassifies the library and replaces the playlist's tracks with every
// liked song of its genre.
func (r *Reconciler) RebuildOne(ctx context.Context, acct Account, id string) (int, error) {
	rec, err := owned(r.store, acct.UserID, id)
	if err != nil {
		return 0, err
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	tracks, err := r.collect(ctx, acct.Library, nil)
	if err != nil {
		return 0, err
	}
	labels, err := r.classify(ctx, acct.Classifier, tracks)
	if err != nil {
		return 0, err
	}

	var genres map[string]bool
	if rec.Genre == models.OtherGenre {
		playlists, err := r.store.ListByUser(acct.UserID)
		if err != nil {
			return 0, fmt.Errorf("failed to list playlists: %w", err)
		}
		genres = managedGenres(playlists)
	}

	var ids []string
	for i, t := range tracks {
		if bucketFor(labels[i], genres) == rec.Genre {
			ids = append(ids, t.ID)
		}
	}

	err = call(ctx, r.opts.SyncTimeout, func(ctx context.Context) error {
		return acct.Playlists.ReplaceTracks(ctx, rec.SpotifyID, ids)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to replace tracks of %s: %w", rec.SpotifyID, err)
	}

	if err := r.store.RecordSync(rec.SpotifyID, len(ids), r.now()); err != nil {
		return 0, err
	}
	r.logger.Info("playlist rebuilt", "playlist", rec.SpotifyID, "genre", rec.Genre, "songs", len(ids))
	return len(ids), nil
}

func managedGenres(playlists []*models.ManagedPlaylist) map[string]bool {
	genres := make(map[string]bool, len(playlists))
	for _, p := range playlists {
		genres[p.Genre] = true
	}
	return genres
}

// bucketFor returns the playlist genre a label lands in. Labels without a playlist of
// their own were merged into Other when the playlists were planned, so they go there
// whenever the user has an Other playlist.
func bucketFor(label string, genres map[string]bool) string {
	if label == "" {
		label = models.OtherGenre
	}
	if !genres[label] && genres[models.OtherGenre] {
		return models.OtherGenre
	}
	return label
}

type syncResult struct {
	id    string
	count int
	err   error
}

// SyncAll refreshes every managed playlist of the user with a bounded worker pool.
//
// A failing playlist is reported in the result and never stops the others. Only a
// failure to list the playlists fails the call.
func (r *Reconciler) SyncAll(ctx context.Context, acct Account) (*models.SyncAllResult, error) {
	playlists, err := r.store.ListByUser(acct.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	result := &models.SyncAllResult{}
	if len(playlists) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(r.opts.RateLimit), 1)

	jobs := make(chan *models.ManagedPlaylist, len(playlists))
	results := make(chan syncResult, len(playlists))

	var wg sync.WaitGroup
	for range min(r.opts.Workers, len(playlists)) {
		wg.Add(1)
		go r.syncWorker(ctx, acct, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for _, p := range playlists {
			if err := limiter.Wait(ctx); err != nil {
				results <- syncResult{id: p.SpotifyID, err: err}
				continue
			}
			jobs <- p
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			r.logger.Warn("playlist sync failed", "playlist", res.id, "err", res.err)
			result.FailedPlaylists = append(result.FailedPlaylists, res.id)
			continue
		}
		result.PlaylistsUpdated++
		result.TotalSongs += res.count
	}

	slices.Sort(result.FailedPlaylists)
	r.logger.Info("sync finished", "user", acct.UserID, "updated", result.PlaylistsUpdated, "failed", len(result.FailedPlaylists))
	return result, nil
}

func (r *Reconciler) syncWorker(
	ctx context.Context,
	acct Account,
	wg *sync.WaitGroup,
	jobs <-chan *models.ManagedPlaylist,
	results chan<- syncResult,
) {
	defer wg.Done()

	for p := range jobs {
		unlock := r.locks.Lock(p.SpotifyID)
		count, err := r.refresh(ctx, acct, p)
		unlock()
		results <- syncResult{id: p.SpotifyID, count: count, err: err}
	}
}

// SyncStatus reports liked songs added since the oldest sync and how many of them each
// playlist is missing. It never writes.
func (r *Reconciler) SyncStatus(ctx context.Context, acct Account) (*models.SyncStatus, error) {
	playlists, err := r.store.ListByUser(acct.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	status := &models.SyncStatus{Playlists: []models.PlaylistSyncStatus{}}

	var oldest *time.Time
	for _, p := range playlists {
		if p.LastSynced != nil && (oldest == nil || p.LastSynced.Before(*oldest)) {
			oldest = p.LastSynced
		}
	}
	if oldest == nil {
		return status, nil
	}

	o := *oldest
	status.OldestSyncAt = &o
	cutoff := o.Add(-syncSlack)

	tracks, err := r.collect(ctx, acct.Library, &cutoff)
	if err != nil {
		return nil, err
	}
	status.NewSongsCount = len(tracks)
	if len(tracks) == 0 {
		return status, nil
	}

	labels, err := r.classify(ctx, acct.Classifier, tracks)
	if err != nil {
		return nil, err
	}

	genres := managedGenres(playlists)
	for _, p := range playlists {
		var since *time.Time
		if p.LastSynced != nil {
			s := p.LastSynced.Add(-syncSlack)
			since = &s
		}

		n := 0
		for i, t := range tracks {
			if bucketFor(labels[i], genres) == p.Genre && (since == nil || t.AddedAt.After(*since)) {
				n++
			}
		}
		if n > 0 {
			status.Playlists = append(status.Playlists, models.PlaylistSyncStatus{
				SpotifyID: p.SpotifyID,
				Genre:     p.Genre,
				NewCount:  n,
			})
		}
	}
	return status, nil
}

// LibraryCount returns the number of liked songs.
func (r *Reconciler) LibraryCount(ctx context.Context, acct Account) (int, error) {
	var page *models.TrackPage
	err := call(ctx, r.opts.SyncTimeout, func(ctx context.Context) error {
		var err error
		page, err = acct.Library.SavedTracks(ctx, 1, 0)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count liked songs: %w", err)
	}
	return page.Total, nil
}

// UpdatePlaylist stores custom name and description overrides. A nil field is left
// unchanged and an empty one clears the override.
//
// When edits propagate, the effective name and description are pushed to the provider.
// A failed push is returned as warning; the local change stands.
func (r *Reconciler) UpdatePlaylist(ctx context.Context, acct Account, id string, name, description *string) (warning error, err error) {
	if name == nil && description == nil {
		return nil, fmt.Errorf("%w: nothing to update", shared.ErrMissingArgument)
	}
	if _, err := owned(r.store, acct.UserID, id); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	if err := r.store.SetOverrides(id, name, description); err != nil {
		return nil, err
	}
	if !r.opts.PropagateEdits {
		return nil, nil
	}

	rec, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}

	namer := r.namer(acct)
	desc := namer.Description(rec.Genre, r.now())
	if rec.CustomDescription != nil {
		desc = namer.Decorate(*rec.CustomDescription)
	}

	err = call(ctx, r.opts.SyncTimeout, func(ctx context.Context) error {
		return acct.Playlists.UpdatePlaylistDetails(ctx, id, rec.DisplayName(), desc)
	})
	if err != nil {
		r.logger.Warn("saved playlist edit locally but could not push it", "playlist", id, "err", err)
		return fmt.Errorf("saved locally, but updating Spotify failed: %w", err), nil
	}
	return nil, nil
}

// DeletePlaylist stops managing a playlist and then unfollows it on the provider.
// A failed unfollow is returned as warning; the record stays deleted.
func (r *Reconciler) DeletePlaylist(ctx context.Context, acct Account, id string) (warning error, err error) {
	if _, err := owned(r.store, acct.UserID, id); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	if err := r.store.Delete(id); err != nil {
		return nil, err
	}

	err = call(ctx, r.opts.SyncTimeout, func(ctx context.Context) error {
		return acct.Playlists.UnfollowPlaylist(ctx, id)
	})
	if err != nil {
		r.logger.Warn("deleted playlist locally but could not unfollow it", "playlist", id, "err", err)
		return fmt.Errorf("removed locally, but deleting from Spotify failed: %w", err), nil
	}
	r.logger.Info("playlist deleted", "playlist", id)
	return nil, nil
}

func (r *Reconciler) namer(acct Account) formatter.Namer {
	settings := models.DefaultSettings(acct.UserID)
	if r.settings != nil {
		if s, err := r.settings.Get(acct.UserID); err == nil {
			settings = s
		}
	}
	return formatter.Namer{
		NameTemplate:        settings.NameTemplate,
		DescriptionTemplate: settings.DescriptionTemplate,
		Username:            acct.Username,
		Decorators:          []formatter.Decorator{formatter.FreeTierFooter(r.opts.FreeTierFooter, acct.Premium)},
	}
}

// collect pages through the liked songs, newest first. With after set, paging stops at
// the first track added at or before it and only newer tracks are returned.
func (r *Reconciler) collect(ctx context.Context, lib services.Library, after *time.Time) ([]models.Track, error) {
	var tracks []models.Track
	for offset := 0; ; offset += r.opts.PageSize {
		var page *models.TrackPage
		err := call(ctx, r.opts.SyncTimeout, func(ctx context.Context) error {
			var err error
			page, err = lib.SavedTracks(ctx, r.opts.PageSize, offset)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch liked songs: %w", err)
		}

		for _, t := range page.Tracks {
			if after != nil && !t.AddedAt.After(*after) {
				return tracks, nil
			}
			tracks = append(tracks, t)
		}

		if !page.Next || len(tracks) >= page.Total || offset+r.opts.PageSize >= page.Total {
			return tracks, nil
		}
	}
}

func (r *Reconciler) classify(ctx context.Context, c Classifier, tracks []models.Track) ([]string, error) {
	labels := make([]string, 0, len(tracks))
	for start := 0; start < len(tracks); start += r.opts.ClassifyBatchSize {
		batch := tracks[start:min(start+r.opts.ClassifyBatchSize, len(tracks))]

		var got []string
		err := call(ctx, r.opts.ClassifyTimeout, func(ctx context.Context) error {
			var err error
			got, err = c.Classify(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to classify songs: %w", err)
		}
		if len(got) != len(batch) {
			return nil, fmt.Errorf("%w: classifier returned %d labels for %d songs", shared.ErrInternal, len(got), len(batch))
		}
		for _, label := range got {
			if label == "" {
				label = models.OtherGenre
			}
			labels = append(labels, label)
		}
	}
	return labels, nil
}

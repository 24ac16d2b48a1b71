package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genrefy/internal/formatter"
	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
)

type jobEntry struct {
	userID string
	job    models.Job
}

// JobEngine runs organize jobs in the background and serves polling snapshots of them.
//
// Each user has at most one active job. Terminal jobs stay readable for the retention
// window and are then evicted by [JobEngine.Sweep].
type JobEngine struct {
	store    PlaylistStore
	settings SettingsStore
	recorder JobRecorder
	opts     Options
	logger   *log.Logger
	now      func() time.Time

	mu    sync.RWMutex
	jobs  map[string]*jobEntry
	slots *slots

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobEngine creates an engine that writes playlists to store and reads templates from settings.
func NewJobEngine(store PlaylistStore, settings SettingsStore, opts Options, logger *log.Logger) *JobEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobEngine{
		store:    store,
		settings: settings,
		opts:     opts.withDefaults(),
		logger:   shared.WithLogger(logger, "component", "jobs"),
		now:      func() time.Time { return time.Now().UTC() },
		jobs:     make(map[string]*jobEntry),
		slots:    newSlots(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetRecorder makes the engine persist a summary of every terminal job.
func (e *JobEngine) SetRecorder(r JobRecorder) {
	e.recorder = r
}

// StartJob registers a queued job for acct and runs it in the background.
//
// It returns immediately with the job id. A user with an active job gets [shared.ErrConflict].
func (e *JobEngine) StartJob(acct Account, playlistCount int, replaceExisting bool) (string, error) {
	if playlistCount < 1 {
		return "", fmt.Errorf("%w: playlist count must be at least 1, got %d", shared.ErrInvalidArgument, playlistCount)
	}
	if err := acct.validate(); err != nil {
		return "", err
	}
	if e.ctx.Err() != nil {
		return "", fmt.Errorf("%w: job engine is shut down", shared.ErrInternal)
	}

	e.Sweep()

	id := shared.GenerateID()
	if !e.slots.tryAcquire(acct.UserID, id) {
		active, _ := e.slots.active(acct.UserID)
		return "", fmt.Errorf("%w: job %s is already running", shared.ErrConflict, active)
	}

	now := e.now()
	e.mu.Lock()
	e.jobs[id] = &jobEntry{
		userID: acct.UserID,
		job: models.Job{
			ID:               id,
			Status:           models.JobQueued,
			Stage:            models.JobQueued,
			GenresDiscovered: []string{},
			PlaylistCount:    playlistCount,
			ReplaceExisting:  replaceExisting,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}
	e.mu.Unlock()

	e.logger.Info("job queued", "job", id, "user", acct.UserID, "playlist_count", playlistCount, "replace", replaceExisting)

	e.wg.Add(1)
	go e.run(acct, id, playlistCount, replaceExisting)
	return id, nil
}

// GetStatus returns a snapshot of the job. Jobs of other users, and expired ones, are not found.
func (e *JobEngine) GetStatus(userID, jobID string) (models.Job, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, ok := e.jobs[jobID]
	if !ok || entry.userID != userID || e.expired(entry.job) {
		return models.Job{}, fmt.Errorf("%w: job %s", shared.ErrNotFound, jobID)
	}
	return entry.job.Clone(), nil
}

// Jobs lists the user's retained jobs, newest first.
func (e *JobEngine) Jobs(userID string) []models.Job {
	e.Sweep()

	e.mu.RLock()
	defer e.mu.RUnlock()

	out := []models.Job{}
	for _, entry := range e.jobs {
		if entry.userID == userID {
			out = append(out, entry.job.Clone())
		}
	}
	slices.SortFunc(out, func(a, b models.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Active returns the id of the user's running job, if any.
func (e *JobEngine) Active(userID string) (string, bool) {
	return e.slots.active(userID)
}

// Sweep evicts terminal jobs that finished longer ago than the retention window.
func (e *JobEngine) Sweep() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for id, entry := range e.jobs {
		if e.expired(entry.job) {
			delete(e.jobs, id)
			n++
		}
	}
	if n > 0 {
		e.logger.Debug("evicted jobs", "count", n)
	}
	return n
}

// RunJanitor sweeps on every tick until ctx is done.
func (e *JobEngine) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep()
		}
	}
}

// Shutdown cancels running jobs and waits for their workers to exit or ctx to end.
func (e *JobEngine) Shutdown(ctx context.Context) error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// expired must be called with e.mu held.
func (e *JobEngine) expired(job models.Job) bool {
	return job.Status.Terminal() && job.FinishedAt != nil && e.now().Sub(*job.FinishedAt) > e.opts.JobRetention
}

func (e *JobEngine) run(acct Account, id string, playlistCount int, replace bool) {
	defer e.wg.Done()
	defer e.slots.release(acct.UserID, id)
	defer func() {
		if r := recover(); r != nil {
			e.fail(acct.UserID, id, fmt.Errorf("%w: job panicked: %v", shared.ErrInternal, r))
		}
	}()

	ctx := e.ctx

	tracks, err := e.fetch(ctx, acct, id)
	if err != nil {
		e.fail(acct.UserID, id, err)
		return
	}

	labels, err := e.analyze(ctx, acct, id, tracks)
	if err != nil {
		e.fail(acct.UserID, id, err)
		return
	}

	result, err := e.create(ctx, acct, id, tracks, labels, playlistCount, replace)
	if err != nil {
		e.fail(acct.UserID, id, err)
		return
	}

	e.complete(acct.UserID, id, result)
}

// fetch pages through the liked songs, stopping at the total reported by the first page.
// Items the provider filters out shrink total_songs to what was actually fetched.
func (e *JobEngine) fetch(ctx context.Context, acct Account, id string) ([]models.Track, error) {
	e.advance(id, models.JobFetching)

	var (
		tracks []models.Track
		total  = -1
	)
	for offset := 0; ; offset += e.opts.PageSize {
		var page *models.TrackPage
		err := call(ctx, e.opts.FetchTimeout, func(ctx context.Context) error {
			var err error
			page, err = acct.Library.SavedTracks(ctx, e.opts.PageSize, offset)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch liked songs: %w", err)
		}

		if total < 0 {
			total = max(page.Total, 0)
			e.update(id, func(j *models.Job) { j.TotalSongs = total })
		}

		// A page may come back empty when every item on it was filtered out, so only
		// the provider's Next flag and the reported total end paging.
		batch := page.Tracks
		if room := total - len(tracks); len(batch) > room {
			batch = batch[:room]
		}
		tracks = append(tracks, batch...)

		n := len(tracks)
		e.update(id, func(j *models.Job) { j.SongsProcessed = n })

		if !page.Next || len(tracks) >= total || offset+e.opts.PageSize >= total {
			break
		}
	}

	if len(tracks) < total {
		n := len(tracks)
		e.update(id, func(j *models.Job) { j.TotalSongs = n })
	}

	e.logger.Debug("fetched liked songs", "job", id, "count", len(tracks), "total", total)
	return tracks, nil
}

// analyze classifies tracks in batches. Each batch is applied under one lock.
func (e *JobEngine) analyze(ctx context.Context, acct Account, id string, tracks []models.Track) ([]string, error) {
	e.advance(id, models.JobAnalyzing)

	labels := make([]string, 0, len(tracks))
	seen := make(map[string]bool)
	size := e.opts.ClassifyBatchSize

	for start := 0; start < len(tracks); start += size {
		batch := tracks[start:min(start+size, len(tracks))]

		var got []string
		err := call(ctx, e.opts.ClassifyTimeout, func(ctx context.Context) error {
			var err error
			got, err = acct.Classifier.Classify(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to classify songs: %w", err)
		}
		if len(got) != len(batch) {
			return nil, fmt.Errorf("%w: classifier returned %d labels for %d songs", shared.ErrInternal, len(got), len(batch))
		}

		for i, label := range got {
			if label == "" {
				got[i] = models.OtherGenre
			}
		}

		e.update(id, func(j *models.Job) {
			for _, label := range got {
				j.SongsProcessed++
				if !seen[label] {
					seen[label] = true
					j.GenresDiscovered = append(j.GenresDiscovered, label)
				}
			}
		})
		labels = append(labels, got...)
	}
	return labels, nil
}

// create plans buckets and writes one playlist per bucket.
func (e *JobEngine) create(
	ctx context.Context,
	acct Account,
	id string,
	tracks []models.Track,
	labels []string,
	playlistCount int,
	replace bool,
) (*models.OrganizeResult, error) {
	e.advance(id, models.JobCreating)

	buckets := PlanBuckets(tracks, labels, playlistCount, e.opts.MinPlaylistSize)
	namer := e.namer(acct)
	now := e.now()

	result := &models.OrganizeResult{Playlists: make([]models.PlaylistSummary, 0, len(buckets))}
	for _, b := range buckets {
		summary, err := e.finalize(ctx, acct, namer, b, replace, now)
		if err != nil {
			return nil, fmt.Errorf("failed to write %s playlist: %w", b.Genre, err)
		}
		result.Playlists = append(result.Playlists, summary)
		e.logger.Info("playlist written", "job", id, "genre", b.Genre, "playlist", summary.SpotifyID, "songs", summary.SongCount)
	}
	return result, nil
}

func (e *JobEngine) namer(acct Account) formatter.Namer {
	settings, err := e.settings.Get(acct.UserID)
	if err != nil {
		e.logger.Warn("using default templates", "user", acct.UserID, "err", err)
		settings = models.DefaultSettings(acct.UserID)
	}
	return formatter.Namer{
		NameTemplate:        settings.NameTemplate,
		DescriptionTemplate: settings.DescriptionTemplate,
		Username:            acct.Username,
		Decorators:          []formatter.Decorator{formatter.FreeTierFooter(e.opts.FreeTierFooter, acct.Premium)},
	}
}

// finalize reuses or creates the playlist for one bucket and records it in the store.
func (e *JobEngine) finalize(
	ctx context.Context,
	acct Account,
	namer formatter.Namer,
	b Bucket,
	replace bool,
	now time.Time,
) (models.PlaylistSummary, error) {
	name := namer.Name(b.Genre, now)
	description := namer.Description(b.Genre, now)
	trackIDs := b.TrackIDs()

	var rec *models.ManagedPlaylist
	if replace {
		existing, err := e.store.FindByGenre(acct.UserID, b.Genre)
		switch {
		case err == nil:
			rec = existing
		case !errors.Is(err, shared.ErrNotFound):
			e.logger.Warn("failed to look up existing playlist", "genre", b.Genre, "err", err)
		}
	}

	if rec != nil {
		err := e.reuse(ctx, acct, namer, rec, name, description, trackIDs)
		switch {
		case errors.Is(err, shared.ErrPlaylistNotFound):
			e.logger.Warn("managed playlist no longer exists, creating a new one", "playlist", rec.SpotifyID, "genre", b.Genre)
			if err := e.store.Delete(rec.SpotifyID); err != nil {
				e.logger.Error("failed to drop stale playlist", "playlist", rec.SpotifyID, "err", err)
			}
			rec = nil
		case err != nil:
			return models.PlaylistSummary{}, err
		}
	}

	if rec == nil {
		created, err := e.createPlaylist(ctx, acct, b.Genre, name, description, trackIDs)
		if err != nil {
			return models.PlaylistSummary{}, err
		}
		rec = created
	}

	synced := now
	rec.Name = name
	rec.SongCount = len(trackIDs)
	rec.LastSynced = &synced
	if err := e.store.Upsert(rec); err != nil {
		e.logger.Error("failed to record playlist", "playlist", rec.SpotifyID, "err", err)
	}
	return rec.Summary(), nil
}

// reuse pushes details to an existing playlist and replaces its tracks.
// Custom overrides win over the generated name and description.
func (e *JobEngine) reuse(
	ctx context.Context,
	acct Account,
	namer formatter.Namer,
	rec *models.ManagedPlaylist,
	name, description string,
	trackIDs []string,
) error {
	if rec.CustomName != nil && *rec.CustomName != "" {
		name = *rec.CustomName
	}
	if rec.CustomDescription != nil {
		description = namer.Decorate(*rec.CustomDescription)
	}

	err := call(ctx, e.opts.CreateTimeout, func(ctx context.Context) error {
		return acct.Playlists.UpdatePlaylistDetails(ctx, rec.SpotifyID, name, description)
	})
	if err != nil {
		return err
	}
	return call(ctx, e.opts.CreateTimeout, func(ctx context.Context) error {
		return acct.Playlists.ReplaceTracks(ctx, rec.SpotifyID, trackIDs)
	})
}

// createPlaylist creates a provider playlist and tracks it before any tracks are added,
// so a later failure leaves a managed playlist rather than an orphan.
func (e *JobEngine) createPlaylist(
	ctx context.Context,
	acct Account,
	genre, name, description string,
	trackIDs []string,
) (*models.ManagedPlaylist, error) {
	var pl *models.Playlist
	err := call(ctx, e.opts.CreateTimeout, func(ctx context.Context) error {
		var err error
		pl, err = acct.Playlists.CreatePlaylist(ctx, acct.UserID, name, description)
		return err
	})
	if err != nil {
		return nil, err
	}

	rec := &models.ManagedPlaylist{
		SpotifyID:  pl.ID,
		UserID:     acct.UserID,
		Name:       name,
		Genre:      genre,
		SpotifyURL: pl.URL,
	}
	if err := e.store.Upsert(rec); err != nil {
		e.logger.Error("failed to record new playlist", "playlist", pl.ID, "err", err)
	}

	err = call(ctx, e.opts.CreateTimeout, func(ctx context.Context) error {
		return acct.Playlists.ReplaceTracks(ctx, pl.ID, trackIDs)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// advance moves the job to status. Stage follows status while the job runs.
func (e *JobEngine) advance(id string, status models.JobStatus) {
	e.update(id, func(j *models.Job) {
		if !j.Status.CanAdvance(status) {
			return
		}
		j.Status = status
		j.Stage = status
		if status == models.JobAnalyzing {
			j.SongsProcessed = 0
		}
	})
	e.logger.Debug("job advanced", "job", id, "status", status)
}

func (e *JobEngine) update(id string, fn func(j *models.Job)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.jobs[id]
	if !ok || entry.job.Status.Terminal() {
		return
	}
	fn(&entry.job)
	entry.job.UpdatedAt = e.now()
}

func (e *JobEngine) complete(userID, id string, result *models.OrganizeResult) {
	snapshot, ok := e.finish(id, func(j *models.Job) {
		j.Status = models.JobCompleted
		j.Stage = models.JobCompleted
		j.Result = result
	})
	if !ok {
		return
	}
	e.logger.Info("job completed", "job", id, "playlists", len(result.Playlists), "songs", result.SongCount())
	e.record(userID, snapshot)
}

// fail moves the job to failed. Counters and stage are left where the failure happened.
func (e *JobEngine) fail(userID, id string, err error) {
	snapshot, ok := e.finish(id, func(j *models.Job) {
		j.Status = models.JobFailed
		j.Error = err.Error()
	})
	if !ok {
		return
	}
	e.logger.Error("job failed", "job", id, "stage", snapshot.Stage, "err", err)
	e.record(userID, snapshot)
}

func (e *JobEngine) finish(id string, fn func(j *models.Job)) (models.Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.jobs[id]
	if !ok || entry.job.Status.Terminal() {
		return models.Job{}, false
	}
	now := e.now()
	fn(&entry.job)
	entry.job.UpdatedAt = now
	entry.job.FinishedAt = &now
	return entry.job.Clone(), true
}

func (e *JobEngine) record(userID string, job models.Job) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordJob(userID, job); err != nil {
		e.logger.Error("failed to record job history", "job", job.ID, "err", err)
	}
}

package testing

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
)

// Operation names accepted by [FakeSpotify.FailOn] and [FakeSpotify.FailPlaylist].
const (
	OpSavedTracks    = "SavedTracks"
	OpArtists        = "Artists"
	OpCreatePlaylist = "CreatePlaylist"
	OpReplaceTracks  = "ReplaceTracks"
	OpGetPlaylist    = "GetPlaylist"
	OpUpdateDetails  = "UpdatePlaylistDetails"
	OpUnfollow       = "UnfollowPlaylist"
)

// FakePlaylist is a playlist held by [FakeSpotify].
type FakePlaylist struct {
	models.Playlist
	TrackIDs []string
}

// FakeSpotify is an in-memory music provider. It satisfies the library, playlist and
// artist lookup contracts of the services package and is safe for concurrent use.
type FakeSpotify struct {
	mu        sync.Mutex
	tracks    []models.Track
	artists   map[string]models.Artist
	playlists map[string]*FakePlaylist
	nextID    int
	calls     map[string]int
	failures  map[string]error
	targeted  map[string]error
	hold      chan struct{}
	hidden    map[string]bool
}

// NewFakeSpotify creates a provider whose liked songs are tracks, newest first.
func NewFakeSpotify(tracks ...models.Track) *FakeSpotify {
	return &FakeSpotify{
		tracks:    tracks,
		artists:   make(map[string]models.Artist),
		playlists: make(map[string]*FakePlaylist),
		calls:     make(map[string]int),
		failures:  make(map[string]error),
		targeted:  make(map[string]error),
		hidden:    make(map[string]bool),
	}
}

// Hide keeps the tracks in the reported total but leaves them out of pages, the way
// the provider drops local files and unavailable items.
func (f *FakeSpotify) Hide(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.hidden[id] = true
	}
}

// AddTracks prepends tracks to the liked songs, so they list as the newest.
func (f *FakeSpotify) AddTracks(tracks ...models.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = append(slices.Clone(tracks), f.tracks...)
}

// SetArtist registers an artist for [FakeSpotify.Artists] lookups.
func (f *FakeSpotify) SetArtist(a models.Artist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artists[a.ID] = a
}

// FailOn makes every call of op return err. A nil err clears the failure.
func (f *FakeSpotify) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// FailPlaylist makes op return err for one playlist id only.
func (f *FakeSpotify) FailPlaylist(op, playlistID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := op + "/" + playlistID
	if err == nil {
		delete(f.targeted, key)
		return
	}
	f.targeted[key] = err
}

// Hold blocks SavedTracks until the returned release func is called.
func (f *FakeSpotify) Hold() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.hold = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns how many times op was invoked.
func (f *FakeSpotify) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Playlist returns a copy of the stored playlist.
func (f *FakeSpotify) Playlist(id string) (FakePlaylist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlists[id]
	if !ok {
		return FakePlaylist{}, false
	}
	return FakePlaylist{Playlist: p.Playlist, TrackIDs: slices.Clone(p.TrackIDs)}, true
}

// Playlists returns every stored playlist ordered by id.
func (f *FakeSpotify) Playlists() []FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakePlaylist, 0, len(f.playlists))
	for _, p := range f.playlists {
		out = append(out, FakePlaylist{Playlist: p.Playlist, TrackIDs: slices.Clone(p.TrackIDs)})
	}
	slices.SortFunc(out, func(a, b FakePlaylist) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// RemovePlaylist deletes a playlist as if the user removed it in another client.
func (f *FakeSpotify) RemovePlaylist(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.playlists, id)
}

// call records op and returns the injected failure for it, if any.
func (f *FakeSpotify) call(op, playlistID string) error {
	f.calls[op]++
	if err, ok := f.targeted[op+"/"+playlistID]; ok && playlistID != "" {
		return err
	}
	return f.failures[op]
}

func (f *FakeSpotify) SavedTracks(ctx context.Context, limit, offset int) (*models.TrackPage, error) {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpSavedTracks, ""); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	total := len(f.tracks)
	start := min(max(offset, 0), total)
	end := min(start+limit, total)
	tracks := make([]models.Track, 0, end-start)
	for _, t := range f.tracks[start:end] {
		if !f.hidden[t.ID] {
			tracks = append(tracks, t)
		}
	}
	return &models.TrackPage{
		Tracks: tracks,
		Total:  total,
		Next:   end < total,
	}, nil
}

func (f *FakeSpotify) Artists(ctx context.Context, ids []string) ([]models.Artist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpArtists, ""); err != nil {
		return nil, err
	}
	if len(ids) > 50 {
		return nil, fmt.Errorf("%w: too many ids (%d)", shared.ErrAPIRequest, len(ids))
	}

	out := make([]models.Artist, 0, len(ids))
	for _, id := range ids {
		if a, ok := f.artists[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *FakeSpotify) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpCreatePlaylist, ""); err != nil {
		return nil, err
	}

	f.nextID++
	id := fmt.Sprintf("pl%03d", f.nextID)
	p := &FakePlaylist{Playlist: models.Playlist{
		ID:          id,
		Name:        name,
		Description: description,
		URL:         "https://open.spotify.com/playlist/" + id,
		OwnerID:     userID,
	}}
	f.playlists[id] = p

	out := p.Playlist
	return &out, nil
}

func (f *FakeSpotify) ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpReplaceTracks, playlistID); err != nil {
		return err
	}

	p, ok := f.playlists[playlistID]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	p.TrackIDs = slices.Clone(trackIDs)
	p.TrackCount = len(trackIDs)
	return nil
}

func (f *FakeSpotify) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpGetPlaylist, playlistID); err != nil {
		return nil, err
	}

	p, ok := f.playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	out := p.Playlist
	return &out, nil
}

func (f *FakeSpotify) UpdatePlaylistDetails(ctx context.Context, playlistID, name, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpUpdateDetails, playlistID); err != nil {
		return err
	}

	p, ok := f.playlists[playlistID]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	if name != "" {
		p.Name = name
	}
	p.Description = description
	return nil
}

func (f *FakeSpotify) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call(OpUnfollow, playlistID); err != nil {
		return err
	}

	if _, ok := f.playlists[playlistID]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	delete(f.playlists, playlistID)
	return nil
}

// StaticClassifier labels tracks from a fixed id → genre table. Unknown ids get Other.
type StaticClassifier struct {
	mu     sync.Mutex
	labels map[string]string
	err    error
	calls  int
}

// NewStaticClassifier creates a classifier over labels.
func NewStaticClassifier(labels map[string]string) *StaticClassifier {
	if labels == nil {
		labels = make(map[string]string)
	}
	return &StaticClassifier{labels: labels}
}

// Fail makes every later Classify call return err.
func (c *StaticClassifier) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Calls returns how many batches were classified.
func (c *StaticClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *StaticClassifier) Classify(ctx context.Context, tracks []models.Track) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}

	out := make([]string, len(tracks))
	for i, t := range tracks {
		label, ok := c.labels[t.ID]
		if !ok {
			label = models.OtherGenre
		}
		out[i] = label
	}
	return out, nil
}

// Library builds liked songs for each genre in counts, newest first.
//
// Track ids are "<genre>-<n>" and AddedAt steps back one minute per track from newest.
// The returned labels map each id to its genre for [NewStaticClassifier].
func Library(newest time.Time, counts []GenreCount) ([]models.Track, map[string]string) {
	var (
		tracks []models.Track
		labels = make(map[string]string)
		at     = newest
	)
	for _, c := range counts {
		for i := range c.Count {
			id := fmt.Sprintf("%s-%d", strings.ToLower(c.Genre), i)
			tracks = append(tracks, models.Track{
				ID:      id,
				Name:    id,
				Artists: []models.Artist{{ID: "artist-" + id, Name: c.Genre + " Artist"}},
				AddedAt: at,
			})
			labels[id] = c.Genre
			at = at.Add(-time.Minute)
		}
	}
	return tracks, labels
}

// GenreCount is one entry of [Library].
type GenreCount struct {
	Genre string
	Count int
}

package models

import (
	"fmt"
	"slices"
	"time"
)

// JobStatus is the lifecycle position of an organize job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobFetching  JobStatus = "fetching"
	JobAnalyzing JobStatus = "analyzing"
	JobCreating  JobStatus = "creating"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

var jobOrder = map[JobStatus]int{
	JobQueued:    0,
	JobFetching:  1,
	JobAnalyzing: 2,
	JobCreating:  3,
	JobCompleted: 4,
}

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanAdvance reports whether a job in s may move to next.
//
// Running stages only move forward one step, and failed is reachable from any non-terminal status.
func (s JobStatus) CanAdvance(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == JobFailed {
		return true
	}
	return jobOrder[next] == jobOrder[s]+1
}

// PlaylistSummary describes one playlist produced by a job.
type PlaylistSummary struct {
	Name       string `json:"name"`
	Genre      string `json:"genre"`
	SpotifyID  string `json:"spotify_id"`
	SpotifyURL string `json:"spotify_url"`
	SongCount  int    `json:"song_count"`
}

// OrganizeResult is set once on completion and never changes afterwards.
type OrganizeResult struct {
	Playlists []PlaylistSummary `json:"playlists"`
}

// SongCount sums the songs placed across all playlists.
func (r OrganizeResult) SongCount() int {
	n := 0
	for _, p := range r.Playlists {
		n += p.SongCount
	}
	return n
}

// Job is the polled view of an organize run.
type Job struct {
	ID               string          `json:"id"`
	Status           JobStatus       `json:"status"`
	Stage            JobStatus       `json:"stage"`
	SongsProcessed   int             `json:"songs_processed"`
	TotalSongs       int             `json:"total_songs"`
	GenresDiscovered []string        `json:"genres_discovered"`
	Result           *OrganizeResult `json:"result,omitempty"`
	Error            string          `json:"error,omitempty"`
	PlaylistCount    int             `json:"playlist_count"`
	ReplaceExisting  bool            `json:"replace_existing"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"-"`
	FinishedAt       *time.Time      `json:"-"`
}

// Clone returns a deep copy safe to hand to readers.
func (j Job) Clone() Job {
	c := j
	c.GenresDiscovered = slices.Clone(j.GenresDiscovered)
	if c.GenresDiscovered == nil {
		c.GenresDiscovered = []string{}
	}
	if j.Result != nil {
		r := OrganizeResult{Playlists: slices.Clone(j.Result.Playlists)}
		c.Result = &r
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

// Progress is the fraction of the current stage that is done, in [0, 1].
func (j Job) Progress() float64 {
	switch {
	case j.Status == JobCompleted:
		return 1
	case j.TotalSongs == 0:
		return 0
	}
	return float64(j.SongsProcessed) / float64(j.TotalSongs)
}

// JobRecord is the persisted summary of a terminal job.
type JobRecord struct {
	record
	JobID            string    `json:"id"`
	UserID           string    `json:"-"`
	Status           JobStatus `json:"status"`
	Stage            JobStatus `json:"stage"`
	PlaylistCount    int       `json:"playlist_count"`
	ReplaceExisting  bool      `json:"replace_existing"`
	TotalSongs       int       `json:"total_songs"`
	SongsProcessed   int       `json:"songs_processed"`
	PlaylistsCreated int       `json:"playlists_created"`
	Error            string    `json:"error,omitempty"`
	FinishedAt       time.Time `json:"finished_at"`
}

// NewJobRecord summarizes a terminal job owned by userID.
func NewJobRecord(userID string, job Job) *JobRecord {
	r := &JobRecord{
		JobID:           job.ID,
		UserID:          userID,
		Status:          job.Status,
		Stage:           job.Stage,
		PlaylistCount:   job.PlaylistCount,
		ReplaceExisting: job.ReplaceExisting,
		TotalSongs:      job.TotalSongs,
		SongsProcessed:  job.SongsProcessed,
		Error:           job.Error,
	}
	if job.Result != nil {
		r.PlaylistsCreated = len(job.Result.Playlists)
	}
	if job.FinishedAt != nil {
		r.FinishedAt = *job.FinishedAt
	}
	r.createdAt = job.CreatedAt
	r.updatedAt = r.FinishedAt
	return r
}

func (r *JobRecord) ID() string { return r.JobID }

func (r *JobRecord) Validate() error {
	switch {
	case r.JobID == "":
		return fmt.Errorf("job id is required")
	case r.UserID == "":
		return fmt.Errorf("user id is required")
	case !r.Status.Terminal():
		return fmt.Errorf("job %s is not terminal (%s)", r.JobID, r.Status)
	}
	return nil
}

package models

import (
	"fmt"
	"time"
)

// ManagedPlaylist is a provider playlist created by the organizer and tracked for synchronization.
//
// The generated Name is owned by the organizer. CustomName and CustomDescription are
// user overrides and are never touched by jobs or refreshes.
type ManagedPlaylist struct {
	record
	SpotifyID         string     `json:"spotify_id"`
	UserID            string     `json:"-"`
	Name              string     `json:"name"`
	Genre             string     `json:"genre"`
	SongCount         int        `json:"song_count"`
	SpotifyURL        string     `json:"spotify_url"`
	CustomName        *string    `json:"custom_name"`
	CustomDescription *string    `json:"custom_description"`
	LastSynced        *time.Time `json:"last_synced"`
}

func (p *ManagedPlaylist) ID() string { return p.SpotifyID }

func (p *ManagedPlaylist) Validate() error {
	switch {
	case p.SpotifyID == "":
		return fmt.Errorf("spotify id is required")
	case p.UserID == "":
		return fmt.Errorf("user id is required")
	case p.Genre == "":
		return fmt.Errorf("genre is required")
	case p.SongCount < 0:
		return fmt.Errorf("song count cannot be negative")
	}
	return nil
}

// DisplayName is the custom name when set, otherwise the generated one.
func (p *ManagedPlaylist) DisplayName() string {
	if p.CustomName != nil && *p.CustomName != "" {
		return *p.CustomName
	}
	return p.Name
}

// Summary converts the record into the job result shape.
func (p *ManagedPlaylist) Summary() PlaylistSummary {
	return PlaylistSummary{
		Name:       p.DisplayName(),
		Genre:      p.Genre,
		SpotifyID:  p.SpotifyID,
		SpotifyURL: p.SpotifyURL,
		SongCount:  p.SongCount,
	}
}

// PlaylistSyncStatus is the per-playlist entry of [SyncStatus].
type PlaylistSyncStatus struct {
	SpotifyID string `json:"spotify_id"`
	Genre     string `json:"genre"`
	NewCount  int    `json:"new_count"`
}

// SyncStatus reports library additions since the oldest playlist sync.
type SyncStatus struct {
	NewSongsCount int                  `json:"new_songs_count"`
	OldestSyncAt  *time.Time           `json:"oldest_sync_at"`
	Playlists     []PlaylistSyncStatus `json:"playlists"`
}

// SyncAllResult aggregates a bulk synchronization. Counts cover successes only.
type SyncAllResult struct {
	PlaylistsUpdated int      `json:"playlists_updated"`
	TotalSongs       int      `json:"total_songs"`
	FailedPlaylists  []string `json:"failed_playlists,omitempty"`
}

package models

import "time"

// OtherGenre collects tracks without a usable genre and merged overflow buckets.
const OtherGenre = "Other"

// Artist is a performer with the provider's micro-genre tags.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// Track is a liked song.
type Track struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Artists []Artist  `json:"artists"`
	AddedAt time.Time `json:"added_at"`
}

// ArtistIDs returns the ids of the track's artists, skipping blanks.
func (t Track) ArtistIDs() []string {
	ids := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// URI returns the provider URI used when adding the track to a playlist.
func (t Track) URI() string {
	return "spotify:track:" + t.ID
}

// TrackPage is one page of the liked songs listing.
type TrackPage struct {
	Tracks []Track
	Total  int
	Next   bool
}

// Playlist is the provider's live view of a playlist.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	OwnerID     string `json:"owner_id"`
}

package genres

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/genrefy/internal/models"
)

// MaxArtistsPerRequest is the provider's limit for a bulk artist lookup.
const MaxArtistsPerRequest = 50

// ArtistSource looks up artists (with their genre tags) by id.
type ArtistSource interface {
	Artists(ctx context.Context, ids []string) ([]models.Artist, error)
}

// ArtistClassifier labels tracks with a parent genre by voting over the tags of all of
// a track's artists. Artist lookups are batched and cached for the life of the classifier.
type ArtistClassifier struct {
	source ArtistSource

	mu    sync.RWMutex
	cache map[string][]string
}

// NewArtistClassifier creates a classifier backed by source.
func NewArtistClassifier(source ArtistSource) *ArtistClassifier {
	return &ArtistClassifier{source: source, cache: make(map[string][]string)}
}

// Classify returns one parent genre per track, in input order.
//
// Tracks whose artists carry no tags are labeled Other.
func (c *ArtistClassifier) Classify(ctx context.Context, tracks []models.Track) ([]string, error) {
	if err := c.prefetch(ctx, tracks); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	labels := make([]string, len(tracks))
	for i, t := range tracks {
		var tags []string
		for _, a := range t.Artists {
			if len(a.Genres) > 0 {
				tags = append(tags, a.Genres...)
				continue
			}
			tags = append(tags, c.cache[a.ID]...)
		}
		labels[i] = Score(tags)
	}
	return labels, nil
}

// prefetch loads every artist not yet cached, in batches of [MaxArtistsPerRequest].
func (c *ArtistClassifier) prefetch(ctx context.Context, tracks []models.Track) error {
	missing := c.missing(tracks)

	for start := 0; start < len(missing); start += MaxArtistsPerRequest {
		end := min(start+MaxArtistsPerRequest, len(missing))

		artists, err := c.source.Artists(ctx, missing[start:end])
		if err != nil {
			return fmt.Errorf("failed to look up artist genres: %w", err)
		}

		c.mu.Lock()
		for _, id := range missing[start:end] {
			if _, ok := c.cache[id]; !ok {
				c.cache[id] = nil
			}
		}
		for _, a := range artists {
			c.cache[a.ID] = a.Genres
		}
		c.mu.Unlock()
	}
	return nil
}

func (c *ArtistClassifier) missing(tracks []models.Track) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, t := range tracks {
		for _, a := range t.Artists {
			if a.ID == "" || len(a.Genres) > 0 || seen[a.ID] {
				continue
			}
			if _, ok := c.cache[a.ID]; ok {
				continue
			}
			seen[a.ID] = true
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Cached reports how many artists have been looked up.
func (c *ArtistClassifier) Cached() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

package tasks

import (
	"cmp"
	"slices"

	"github.com/desertthunder/genrefy/internal/models"
)

// Bucket is the set of tracks destined for one playlist.
type Bucket struct {
	Genre  string
	Tracks []models.Track
}

// TrackIDs returns the ids of the bucket's tracks in order.
func (b Bucket) TrackIDs() []string {
	ids := make([]string, len(b.Tracks))
	for i, t := range b.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// PlanBuckets groups tracks by label into at most playlistCount buckets.
//
// Labels with fewer than minSize tracks fold into Other. When more buckets remain than
// playlistCount allows, the largest named buckets are kept (ties by name) and the rest
// merge into Other. Kept buckets come first, Other last. Tracks keep their input order.
func PlanBuckets(tracks []models.Track, labels []string, playlistCount, minSize int) []Bucket {
	if playlistCount < 1 {
		playlistCount = 1
	}

	label := func(i int) string {
		if i >= len(labels) || labels[i] == "" {
			return models.OtherGenre
		}
		return labels[i]
	}

	sizes := make(map[string]int)
	for i := range tracks {
		sizes[label(i)]++
	}

	var named []string
	other := sizes[models.OtherGenre]
	for g, n := range sizes {
		switch {
		case g == models.OtherGenre:
		case n < minSize:
			other += n
		default:
			named = append(named, g)
		}
	}

	slices.SortFunc(named, func(a, b string) int {
		if c := cmp.Compare(sizes[b], sizes[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	buckets := len(named)
	if other > 0 {
		buckets++
	}
	if buckets > playlistCount {
		named = named[:playlistCount-1]
	}

	index := make(map[string]int, len(named))
	out := make([]Bucket, len(named), len(named)+1)
	for i, g := range named {
		index[g] = i
		out[i] = Bucket{Genre: g, Tracks: make([]models.Track, 0, sizes[g])}
	}

	var rest []models.Track
	for i, t := range tracks {
		if j, ok := index[label(i)]; ok {
			out[j].Tracks = append(out[j].Tracks, t)
			continue
		}
		rest = append(rest, t)
	}

	if len(rest) > 0 {
		out = append(out, Bucket{Genre: models.OtherGenre, Tracks: rest})
	}
	return out
}

package tasks

import (
	"testing"

	"github.com/desertthunder/genrefy/internal/models"
	tu "github.com/desertthunder/genrefy/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelsFor(tracks []models.Track, byID map[string]string) []string {
	labels := make([]string, len(tracks))
	for i, t := range tracks {
		labels[i] = byID[t.ID]
	}
	return labels
}

func genresOf(buckets []Bucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.Genre
	}
	return out
}

func sizesOf(buckets []Bucket) []int {
	out := make([]int, len(buckets))
	for i, b := range buckets {
		out[i] = len(b.Tracks)
	}
	return out
}

func TestPlanBuckets(t *testing.T) {
	tests := []struct {
		name       string
		counts     []tu.GenreCount
		count      int
		minSize    int
		wantGenres []string
		wantSizes  []int
	}{
		{
			name: "smallest buckets merge into Other",
			counts: []tu.GenreCount{
				{Genre: "Rock", Count: 10}, {Genre: "Jazz", Count: 8}, {Genre: "Folk", Count: 6},
				{Genre: "Blues", Count: 4}, {Genre: "Indie", Count: 2},
			},
			count:      3,
			minSize:    1,
			wantGenres: []string{"Rock", "Jazz", models.OtherGenre},
			wantSizes:  []int{10, 8, 12},
		},
		{
			name: "equal sizes keep alphabetical order",
			counts: []tu.GenreCount{
				{Genre: "Rock", Count: 5}, {Genre: "Jazz", Count: 5}, {Genre: "Blues", Count: 5},
				{Genre: "Folk", Count: 5}, {Genre: "Indie", Count: 5},
			},
			count:      3,
			minSize:    1,
			wantGenres: []string{"Blues", "Folk", models.OtherGenre},
			wantSizes:  []int{5, 5, 15},
		},
		{
			name:       "everything fits",
			counts:     []tu.GenreCount{{Genre: "Jazz", Count: 2}, {Genre: "Rock", Count: 7}},
			count:      5,
			minSize:    1,
			wantGenres: []string{"Rock", "Jazz"},
			wantSizes:  []int{7, 2},
		},
		{
			name:       "exact fit with Other keeps every bucket",
			counts:     []tu.GenreCount{{Genre: "Rock", Count: 3}, {Genre: "", Count: 2}, {Genre: "Jazz", Count: 1}},
			count:      3,
			minSize:    1,
			wantGenres: []string{"Rock", "Jazz", models.OtherGenre},
			wantSizes:  []int{3, 1, 2},
		},
		{
			name:       "undersized buckets fold into Other",
			counts:     []tu.GenreCount{{Genre: "Rock", Count: 5}, {Genre: "Jazz", Count: 2}, {Genre: "Folk", Count: 1}},
			count:      10,
			minSize:    3,
			wantGenres: []string{"Rock", models.OtherGenre},
			wantSizes:  []int{5, 3},
		},
		{
			name:       "count of one puts everything in Other",
			counts:     []tu.GenreCount{{Genre: "Rock", Count: 5}, {Genre: "Jazz", Count: 2}},
			count:      1,
			minSize:    1,
			wantGenres: []string{models.OtherGenre},
			wantSizes:  []int{7},
		},
		{
			name:       "no tracks",
			count:      3,
			minSize:    1,
			wantGenres: []string{},
			wantSizes:  []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracks, byID := tu.Library(testNow, tt.counts)
			buckets := PlanBuckets(tracks, labelsFor(tracks, byID), tt.count, tt.minSize)

			assert.Equal(t, tt.wantGenres, genresOf(buckets))
			assert.Equal(t, tt.wantSizes, sizesOf(buckets))
			assert.LessOrEqual(t, len(buckets), tt.count)

			total := 0
			for _, b := range buckets {
				total += len(b.Tracks)
			}
			assert.Equal(t, len(tracks), total, "every track lands in exactly one bucket")
		})
	}
}

func TestPlanBucketsDeterministic(t *testing.T) {
	tracks, byID := tu.Library(testNow, []tu.GenreCount{
		{Genre: "Rock", Count: 4}, {Genre: "Jazz", Count: 4}, {Genre: "Folk", Count: 4},
		{Genre: "Blues", Count: 4}, {Genre: "Metal", Count: 4}, {Genre: "Soul", Count: 4},
	})
	labels := labelsFor(tracks, byID)

	first := PlanBuckets(tracks, labels, 4, 1)
	for range 20 {
		assert.Equal(t, first, PlanBuckets(tracks, labels, 4, 1))
	}
}

func TestPlanBucketsKeepsTrackOrder(t *testing.T) {
	tracks, byID := tu.Library(testNow, []tu.GenreCount{
		{Genre: "Rock", Count: 3}, {Genre: "Jazz", Count: 1}, {Genre: "Folk", Count: 1},
	})
	buckets := PlanBuckets(tracks, labelsFor(tracks, byID), 2, 1)

	require.Len(t, buckets, 2)
	assert.Equal(t, []string{"rock-0", "rock-1", "rock-2"}, buckets[0].TrackIDs())
	assert.Equal(t, []string{"jazz-0", "folk-0"}, buckets[1].TrackIDs())
}

func TestPlanBucketsShortLabels(t *testing.T) {
	tracks, _ := tu.Library(testNow, []tu.GenreCount{{Genre: "Rock", Count: 3}})

	buckets := PlanBuckets(tracks, []string{"Rock"}, 0, 0)
	require.Len(t, buckets, 1, "a count below one is treated as one")
	assert.Equal(t, models.OtherGenre, buckets[0].Genre)
	assert.Len(t, buckets[0].Tracks, 3)
}

package genres

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/genrefy/internal/models"
)

func TestConsolidate(t *testing.T) {
	tt := []struct {
		micro string
		want  string
	}{
		{"rock", "Rock"},
		{"  Indie Rock ", "Rock"},
		{"bebop", "Jazz"},
		{"k-pop", "Pop"},
		{"modern folk rock", "Folk"},
		{"australian hip hop", "Hip-Hop"},
		{"melodic death metal", "Metal"},
		{"jazz", "Jazz"},
		{"zzz unknown", "Other"},
		{"", "Other"},
		{"a", "Other"},
	}

	for _, tc := range tt {
		t.Run(tc.micro, func(t *testing.T) {
			if got := Consolidate(tc.micro); got != tc.want {
				t.Errorf("Consolidate(%q) = %q, want %q", tc.micro, got, tc.want)
			}
		})
	}
}

func TestConsolidateAll(t *testing.T) {
	got := ConsolidateAll([]string{"garage rock", "bebop", "grunge", "zzz"})
	want := []string{"Rock", "Jazz", "Other"}
	if !slices.Equal(got, want) {
		t.Errorf("ConsolidateAll() = %v, want %v", got, want)
	}
}

func TestScore(t *testing.T) {
	tt := []struct {
		name   string
		genres []string
		want   string
	}{
		{"empty", nil, "Other"},
		{"majority", []string{"indie rock", "garage rock", "indie pop"}, "Rock"},
		{"tie goes to priority", []string{"rock", "jazz"}, "Jazz"},
		{"unknown tags do not outvote", []string{"zzz", "yyy", "house"}, "Electronic"},
		{"only unknown tags", []string{"zzz"}, "Other"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.genres); got != tc.want {
				t.Errorf("Score(%v) = %q, want %q", tc.genres, got, tc.want)
			}
		})
	}
}

func TestParentGenresCoverPriority(t *testing.T) {
	for _, p := range priority {
		if !slices.Contains(ParentGenres, p) {
			t.Errorf("priority genre %q is not a parent genre", p)
		}
	}
	if len(priority) != len(ParentGenres) {
		t.Errorf("priority has %d genres, parents %d", len(priority), len(ParentGenres))
	}
}

type stubArtists struct {
	genres map[string][]string
	calls  [][]string
	err    error
}

func (s *stubArtists) Artists(ctx context.Context, ids []string) ([]models.Artist, error) {
	s.calls = append(s.calls, slices.Clone(ids))
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Artist
	for _, id := range ids {
		if g, ok := s.genres[id]; ok {
			out = append(out, models.Artist{ID: id, Genres: g})
		}
	}
	return out, nil
}

func track(id string, artistIDs ...string) models.Track {
	t := models.Track{ID: id}
	for _, a := range artistIDs {
		t.Artists = append(t.Artists, models.Artist{ID: a})
	}
	return t
}

func TestArtistClassifier(t *testing.T) {
	t.Run("labels in order and caches artists", func(t *testing.T) {
		src := &stubArtists{genres: map[string][]string{
			"a1": {"indie rock"},
			"a2": {"bebop", "cool jazz"},
		}}
		c := NewArtistClassifier(src)

		got, err := c.Classify(context.Background(), []models.Track{
			track("t1", "a1"),
			track("t2", "a2"),
			track("t3", "ghost"),
			track("t4"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"Rock", "Jazz", "Other", "Other"}
		if !slices.Equal(got, want) {
			t.Errorf("Classify() = %v, want %v", got, want)
		}

		if _, err := c.Classify(context.Background(), []models.Track{track("t5", "a1", "a2", "ghost")}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(src.calls) != 1 {
			t.Errorf("expected cached artists to skip lookups, got %d calls", len(src.calls))
		}
		if c.Cached() != 3 {
			t.Errorf("expected 3 cached artists, got %d", c.Cached())
		}
	})

	t.Run("batches lookups", func(t *testing.T) {
		src := &stubArtists{genres: map[string][]string{}}
		c := NewArtistClassifier(src)

		var tracks []models.Track
		for i := range 120 {
			tracks = append(tracks, track("t", "artist-"+string(rune('A'+i%26))+string(rune('a'+i/26))))
		}

		if _, err := c.Classify(context.Background(), tracks); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(src.calls) != 3 {
			t.Fatalf("expected 3 batches, got %d", len(src.calls))
		}
		for _, call := range src.calls {
			if len(call) > MaxArtistsPerRequest {
				t.Errorf("batch of %d exceeds limit", len(call))
			}
		}
	})

	t.Run("inline genres skip lookups", func(t *testing.T) {
		src := &stubArtists{}
		c := NewArtistClassifier(src)

		tr := models.Track{ID: "t1", Artists: []models.Artist{{ID: "a1", Genres: []string{"techno"}}}}
		got, err := c.Classify(context.Background(), []models.Track{tr})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got[0] != "Electronic" || len(src.calls) != 0 {
			t.Errorf("got %v with %d calls", got, len(src.calls))
		}
	})

	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewArtistClassifier(&stubArtists{err: boom})

		if _, err := c.Classify(context.Background(), []models.Track{track("t1", "a1")}); !errors.Is(err, boom) {
			t.Errorf("expected wrapped source error, got %v", err)
		}
	})
}

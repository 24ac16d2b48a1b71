// Package genres folds the provider's micro-genre tags into a fixed set of parent genres
// and classifies tracks by a vote over their artists' tags.
package genres

import (
	"slices"
	"strings"

	"github.com/desertthunder/genrefy/internal/models"
)

// ParentGenres lists every label a track can be classified into.
var ParentGenres = []string{
	"Rock", "Pop", "Hip-Hop", "Electronic", "R&B", "Jazz", "Classical",
	"Country", "Metal", "Folk", "Latin", "Blues", "Reggae", "Punk",
	"Indie", "Soul", "Funk", "World", models.OtherGenre,
}

// priority breaks vote ties; more specific genres come first.
var priority = []string{
	"Classical", "Jazz", "Blues", "Reggae", "Folk", "Country",
	"Metal", "Punk", "Funk", "Soul", "R&B", "Latin", "World",
	"Rock", "Electronic", "Hip-Hop", "Pop", "Indie", models.OtherGenre,
}

var parents = map[string][]string{
	"Rock": {
		"rock", "indie rock", "alternative rock", "garage rock", "classic rock", "hard rock",
		"soft rock", "progressive rock", "psychedelic rock", "art rock", "glam rock", "grunge",
		"post-rock", "shoegaze", "britpop",
	},
	"Pop": {
		"pop", "indie pop", "synth-pop", "electropop", "dance pop", "art pop", "dream pop",
		"chamber pop", "power pop", "teen pop", "k-pop", "j-pop",
	},
	"Hip-Hop": {
		"hip hop", "rap", "trap", "conscious hip hop", "gangsta rap", "underground hip hop",
		"boom bap", "drill", "crunk", "grime",
	},
	"Electronic": {
		"electronic", "edm", "house", "techno", "trance", "dubstep", "drum and bass", "ambient",
		"idm", "downtempo", "trip hop", "chillwave", "synthwave", "deep house", "tech house",
		"progressive house",
	},
	"R&B": {
		"r&b", "rnb", "contemporary r&b", "neo soul", "new jack swing", "quiet storm",
	},
	"Jazz": {
		"jazz", "jazz fusion", "smooth jazz", "bebop", "cool jazz", "free jazz", "acid jazz",
		"nu jazz", "swing", "big band",
	},
	"Classical": {
		"classical", "baroque", "romantic", "contemporary classical", "opera", "orchestral",
		"chamber music", "symphony",
	},
	"Country": {
		"country", "country rock", "alt-country", "bluegrass", "americana", "outlaw country",
		"country pop",
	},
	"Metal": {
		"metal", "heavy metal", "thrash metal", "death metal", "black metal", "doom metal",
		"power metal", "progressive metal", "nu metal", "metalcore",
	},
	"Folk": {
		"folk", "indie folk", "folk rock", "freak folk", "contemporary folk", "traditional folk",
	},
	"Latin": {
		"latin", "reggaeton", "salsa", "bachata", "cumbia", "bossa nova", "latin pop", "latin rock",
	},
	"Blues": {
		"blues", "electric blues", "delta blues", "chicago blues", "blues rock",
	},
	"Reggae": {
		"reggae", "dub", "ska", "dancehall", "roots reggae",
	},
	"Punk": {
		"punk", "punk rock", "pop punk", "post-punk", "hardcore punk", "emo", "skate punk",
	},
	"Indie": {
		"indie", "lo-fi", "bedroom pop",
	},
	"Soul": {
		"soul", "motown", "northern soul", "southern soul",
	},
	"Funk": {
		"funk", "p-funk", "funk rock", "disco",
	},
	"World": {
		"world", "afrobeat", "afropop", "celtic", "flamenco", "indian", "middle eastern",
	},
}

var (
	mapping map[string]string
	// fuzzyOrder is every micro genre, longest first, so substring matches prefer the most specific tag.
	fuzzyOrder []string
)

func init() {
	mapping = make(map[string]string)
	for parent, micros := range parents {
		for _, m := range micros {
			mapping[m] = parent
			fuzzyOrder = append(fuzzyOrder, m)
		}
	}
	slices.SortFunc(fuzzyOrder, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
}

// Consolidate maps a single micro genre to its parent genre.
//
// Exact matches win. Otherwise the longest known micro genre that contains, or is
// contained by, the tag decides. Unknown tags map to Other.
func Consolidate(microGenre string) string {
	normalized := strings.ToLower(strings.TrimSpace(microGenre))
	if normalized == "" {
		return models.OtherGenre
	}

	if parent, ok := mapping[normalized]; ok {
		return parent
	}

	for _, micro := range fuzzyOrder {
		if strings.Contains(normalized, micro) || (len(normalized) >= 3 && strings.Contains(micro, normalized)) {
			return mapping[micro]
		}
	}
	return models.OtherGenre
}

// ConsolidateAll maps every tag and returns the distinct parents in first-seen order.
func ConsolidateAll(microGenres []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range microGenres {
		p := Consolidate(g)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Score picks the best-fit parent genre for a set of micro genres by majority vote.
//
// Other only wins when no tag maps anywhere else. Ties go to the genre listed first in priority.
func Score(microGenres []string) string {
	votes := make(map[string]int)
	for _, g := range microGenres {
		if p := Consolidate(g); p != models.OtherGenre {
			votes[p]++
		}
	}
	if len(votes) == 0 {
		return models.OtherGenre
	}

	best, bestVotes := models.OtherGenre, 0
	for _, g := range priority {
		if v := votes[g]; v > bestVotes {
			best, bestVotes = g, v
		}
	}
	return best
}

package spotify

import (
	"sort"

	"github.com/justestif/go-spotify-wrapped/internal/db"
)

// TallyGenres counts how many artists carry each genre and returns the n most
// common, ties broken alphabetically. n <= 0 returns every genre.
func TallyGenres(artists []db.WrapArtist, n int) []db.GenreCount {
	counts := make(map[string]int)
	for _, a := range artists {
		for _, g := range a.Genres {
			if g == "" {
				continue
			}
			counts[g]++
		}
	}

	out := make([]db.GenreCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, db.GenreCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

package wrapped

import (
	"time"

	"github.com/justestif/go-spotify-wrapped/internal/db"
)

// summaryItems caps each list in a history entry.
const summaryItems = 5

// Summary is the compact form of a wrap kept in the user's history.
type Summary struct {
	WrapID     int64     `json:"wrap_id"`
	Title      string    `json:"title"`
	TimeRange  string    `json:"time_range"`
	CreatedAt  time.Time `json:"created_at"`
	TopTracks  []string  `json:"top_tracks"`
	TopArtists []string  `json:"top_artists"`
	TopGenres  []string  `json:"top_genres"`
}

// SummaryOf condenses wrap into a history entry.
func SummaryOf(wrap *db.SavedWrap) Summary {
	s := Summary{
		WrapID:     wrap.ID,
		Title:      wrap.Title,
		TimeRange:  wrap.TimeRange,
		CreatedAt:  wrap.CreatedAt,
		TopTracks:  []string{},
		TopArtists: []string{},
		TopGenres:  []string{},
	}
	for _, t := range head(wrap.TracksData.V) {
		s.TopTracks = append(s.TopTracks, t.Name)
	}
	for _, a := range head(wrap.ArtistsData.V) {
		s.TopArtists = append(s.TopArtists, a.Name)
	}
	for _, g := range head(wrap.GenresData.V) {
		s.TopGenres = append(s.TopGenres, g.Name)
	}
	return s
}

func head[T any](items []T) []T {
	if len(items) > summaryItems {
		return items[:summaryItems]
	}
	return items
}

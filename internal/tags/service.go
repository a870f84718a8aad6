// Package tags fills in artist genres from Last.fm when Spotify has none.
package tags

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/justestif/go-spotify-wrapped/internal/db"
	"github.com/justestif/go-spotify-wrapped/internal/lastfm"
)

const (
	// DefaultConcurrency is the number of parallel Last.fm lookups.
	DefaultConcurrency = 5

	// DefaultTagsPerArtist is how many tags become genres.
	DefaultTagsPerArtist = 3
)

// ignoredTags are popular Last.fm tags that say nothing about genre.
var ignoredTags = map[string]bool{
	"seen live":   true,
	"favorites":   true,
	"favourites":  true,
	"favorite":    true,
	"my favorite": true,
}

// TagFetcher abstracts the Last.fm client for testing.
type TagFetcher interface {
	ArtistTags(ctx context.Context, artist string) ([]lastfm.Tag, error)
}

// Service fills missing genres using a TagFetcher.
type Service struct {
	fetcher     TagFetcher
	concurrency int
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets the number of concurrent tag fetch operations.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger for lookup failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new tag service.
func NewService(fetcher TagFetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FillGenres sets Genres on every artist that has none, in place, and
// returns how many were filled. A failed lookup leaves that artist
// untouched; only cancellation of ctx is reported as an error.
func (s *Service) FillGenres(ctx context.Context, artists []db.WrapArtist) (int, error) {
	work := make(chan int, len(artists))
	for i := range artists {
		if len(artists[i].Genres) == 0 {
			work <- i
		}
	}
	close(work)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		filled int
	)
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					continue
				}

				artist := &artists[idx]
				tags, err := s.fetcher.ArtistTags(ctx, artist.Name)
				if err != nil {
					s.logger.WarnContext(ctx, "fetching artist tags", "artist", artist.Name, "error", err)
					continue
				}

				// Each index is owned by exactly one worker.
				artist.Genres = genresFromTags(tags, DefaultTagsPerArtist)
				if len(artist.Genres) > 0 {
					mu.Lock()
					filled++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	return filled, ctx.Err()
}

// genresFromTags keeps the first n distinct, lowercased genre-like tags.
func genresFromTags(tags []lastfm.Tag, n int) []string {
	genres := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for _, t := range tags {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" || ignoredTags[name] || seen[name] {
			continue
		}
		seen[name] = true
		genres = append(genres, name)
		if len(genres) == n {
			break
		}
	}
	return genres
}

// Package wrapped builds listening summaries from Spotify data and keeps each
// user's summary history.
package wrapped

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-wrapped/internal/db"
	"github.com/justestif/go-spotify-wrapped/internal/spotify"
)

// Common errors.
var (
	// ErrTooSoon is returned when a summary is requested within the cooldown period.
	ErrTooSoon = errors.New("wrap generated too recently")

	// ErrNotFriend is returned when comparing against someone outside the friend list.
	ErrNotFriend = errors.New("comparison user is not a friend")

	// ErrInvalidTimeRange is returned for an unknown time range.
	ErrInvalidTimeRange = errors.New("invalid time range")
)

const (
	// DefaultItemLimit is how many top tracks and artists a summary holds.
	DefaultItemLimit = 20

	// maxCompLength is the width of the saved_wraps.comp column.
	maxCompLength = 256

	// topGenres is how many genres a summary keeps.
	topGenres = 10
)

// TokenProvider hands out a usable Spotify access token. *auth.Refresher satisfies it.
type TokenProvider interface {
	ValidAccessToken(ctx context.Context, userID string) (*oauth2.Token, error)
}

// SpotifyAPI is the part of the Spotify client a summary needs.
type SpotifyAPI interface {
	TopTracks(ctx context.Context, r spotify.TimeRange, limit int) ([]db.WrapTrack, error)
	TopArtists(ctx context.Context, r spotify.TimeRange, limit int) ([]db.WrapArtist, error)
}

// GenreFiller supplies genres for artists Spotify returns without any.
// *tags.Service satisfies it.
type GenreFiller interface {
	FillGenres(ctx context.Context, artists []db.WrapArtist) (int, error)
}

// ClientFactory builds a SpotifyAPI authenticated with token.
type ClientFactory func(ctx context.Context, token *oauth2.Token) SpotifyAPI

// Store persists summaries. NewDBStore adapts *db.DB.
type Store interface {
	Save(ctx context.Context, wrap *db.SavedWrap) error
	Get(ctx context.Context, userID string, id int64) (*db.SavedWrap, error)
	List(ctx context.Context, userID string) ([]db.SavedWrap, error)
	Latest(ctx context.Context, userID string) (*db.SavedWrap, error)
	Delete(ctx context.Context, userID string, id int64) error
	UserByWrappedID(ctx context.Context, wrappedID string) (*db.User, error)
	IsFriend(ctx context.Context, userID, friendID string) (bool, error)
}

// Service generates and manages saved summaries.
type Service struct {
	store     Store
	tokens    TokenProvider
	newClient ClientFactory
	genres    GenreFiller
	cooldown  time.Duration
	limit     int
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCooldown sets the minimum time between two generated summaries. Zero disables it.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		s.cooldown = d
	}
}

// WithItemLimit sets how many top tracks and artists are fetched.
func WithItemLimit(n int) Option {
	return func(s *Service) {
		s.limit = n
	}
}

// WithClientFactory replaces how Spotify clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Service) {
		s.newClient = f
	}
}

// WithGenreFiller enables genre lookups for artists without Spotify genres.
func WithGenreFiller(g GenreFiller) Option {
	return func(s *Service) {
		s.genres = g
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a summary Service.
func New(store Store, tokens TokenProvider, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		newClient: func(ctx context.Context, token *oauth2.Token) SpotifyAPI {
			return spotify.NewForToken(ctx, token)
		},
		limit:  DefaultItemLimit,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request describes the summary to generate.
type Request struct {
	TimeRange       string `json:"time_range" validate:"omitempty,oneof=short_term medium_term long_term"`
	Title           string `json:"title" validate:"max=200"`
	HolidayTheme    string `json:"holiday_theme" validate:"max=50"`
	PersonalityInfo string `json:"personality_info" validate:"max=500"`
	FriendWrappedID string `json:"friend_wrapped_id" validate:"omitempty,len=10,alphanum"`
}

// CanGenerate reports whether the cooldown allows a new summary and, if not,
// when the next one becomes available.
func (s *Service) CanGenerate(ctx context.Context, userID string) (bool, time.Time, error) {
	if s.cooldown <= 0 {
		return true, time.Time{}, nil
	}

	latest, err := s.store.Latest(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return true, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("getting latest wrap: %w", err)
	}

	next := latest.CreatedAt.Add(s.cooldown)
	if s.now().Before(next) {
		return false, next, nil
	}
	return true, time.Time{}, nil
}

// Generate fetches the user's top items for the requested range, stores them
// as a new summary and appends it to the user's history.
func (s *Service) Generate(ctx context.Context, userID string, req Request) (*db.SavedWrap, error) {
	timeRange, err := spotify.ParseTimeRange(req.TimeRange)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeRange, req.TimeRange)
	}

	ok, next, err := s.CanGenerate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: next wrap available at %s", ErrTooSoon, next.Format(time.RFC3339))
	}

	var friend *db.User
	if req.FriendWrappedID != "" {
		if friend, err = s.friend(ctx, userID, req.FriendWrappedID); err != nil {
			return nil, err
		}
	}

	token, err := s.tokens.ValidAccessToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting access token: %w", err)
	}
	client := s.newClient(ctx, token)

	tracks, err := client.TopTracks(ctx, timeRange, s.limit)
	if err != nil {
		return nil, err
	}
	artists, err := client.TopArtists(ctx, timeRange, s.limit)
	if err != nil {
		return nil, err
	}
	if s.genres != nil {
		if _, err := s.genres.FillGenres(ctx, artists); err != nil {
			return nil, fmt.Errorf("filling genres: %w", err)
		}
	}

	wrap := &db.SavedWrap{
		UserID:          userID,
		Title:           title(req, timeRange),
		TracksData:      db.NewJSON(tracks),
		ArtistsData:     db.NewJSON(artists),
		GenresData:      db.NewJSON(spotify.TallyGenres(artists, topGenres)),
		TimeRange:       string(timeRange),
		HolidayTheme:    optional(req.HolidayTheme),
		PersonalityInfo: optional(req.PersonalityInfo),
	}

	if friend != nil {
		if err := s.compare(ctx, wrap, friend); err != nil {
			return nil, err
		}
	}

	if err := s.store.Save(ctx, wrap); err != nil {
		return nil, fmt.Errorf("saving wrap: %w", err)
	}

	s.logger.InfoContext(ctx, "wrap generated",
		"spotify_id", userID,
		"wrap_id", wrap.ID,
		"time_range", wrap.TimeRange,
		"tracks", len(tracks),
	)
	return wrap, nil
}

// friend resolves wrappedID and checks it belongs to userID's friend list.
func (s *Service) friend(ctx context.Context, userID, wrappedID string) (*db.User, error) {
	friend, err := s.store.UserByWrappedID(ctx, wrappedID)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.IsFriend(ctx, userID, friend.SpotifyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFriend
	}
	return friend, nil
}

// compare copies the friend's latest tracks onto wrap and describes the overlap.
func (s *Service) compare(ctx context.Context, wrap *db.SavedWrap, friend *db.User) error {
	friendTracks := []db.WrapTrack{}
	latest, err := s.store.Latest(ctx, friend.SpotifyID)
	switch {
	case err == nil:
		friendTracks = latest.TracksData.V
	case !errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("getting friend wrap: %w", err)
	}

	common := CommonTracks(wrap.TracksData.V, friendTracks)
	ft := db.NewJSON(friendTracks)
	comp := truncateRunes(fmt.Sprintf("%d tracks in common with %s", len(common), friend.UserName), maxCompLength)

	wrap.FriendTracksData = &ft
	wrap.Comp = &comp
	return nil
}

// CommonTracks returns the tracks of a whose id also appears in b, in a's order.
func CommonTracks(a, b []db.WrapTrack) []db.WrapTrack {
	ids := make(map[string]struct{}, len(b))
	for _, t := range b {
		ids[t.ID] = struct{}{}
	}
	var out []db.WrapTrack
	for _, t := range a {
		if _, ok := ids[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}

// List returns the user's summaries, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]db.SavedWrap, error) {
	return s.store.List(ctx, userID)
}

// Get returns one of the user's summaries.
func (s *Service) Get(ctx context.Context, userID string, id int64) (*db.SavedWrap, error) {
	return s.store.Get(ctx, userID, id)
}

// Delete removes one of the user's summaries. The history entry stays.
func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	return s.store.Delete(ctx, userID, id)
}

func title(req Request, r spotify.TimeRange) string {
	switch {
	case req.Title != "":
		return req.Title
	case req.HolidayTheme != "":
		return fmt.Sprintf("%s Wrapped", req.HolidayTheme)
	default:
		return fmt.Sprintf("Your Wrapped: %s", r.Label())
	}
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-wrapped/internal/db"
)

const (
	// maxTopItems is the largest page the top items endpoints return.
	maxTopItems = 50

	// DefaultTimeout bounds each API call when WithTimeout is not given.
	DefaultTimeout = 15 * time.Second
)

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

type clientConfig struct {
	timeout time.Duration
	api     []spotify.ClientOption
}

// Option configures NewForToken.
type Option func(*clientConfig)

// WithTimeout sets the HTTP timeout for each API call.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAPIOptions passes options through to the underlying spotify client.
func WithAPIOptions(opts ...spotify.ClientOption) Option {
	return func(c *clientConfig) {
		c.api = append(c.api, opts...)
	}
}

// NewForToken creates a client that authenticates every request with token.
// The token is not refreshed; callers hand in a valid one. Rate limited
// requests are retried after the delay Spotify asks for.
func NewForToken(ctx context.Context, token *oauth2.Token, opts ...Option) *Client {
	cfg := clientConfig{
		timeout: DefaultTimeout,
		api:     []spotify.ClientOption{spotify.WithRetry(true)},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	httpClient.Timeout = cfg.timeout
	return New(spotify.New(httpClient, cfg.api...))
}

// CurrentProfile returns the signed-in user's profile.
func (c *Client) CurrentProfile(ctx context.Context) (*Profile, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	profile := &Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = user.ID
	}
	if len(user.Images) > 0 {
		profile.ImageURL = user.Images[0].URL
	}
	return profile, nil
}

// TopTracks returns the user's most played tracks over r.
func (c *Client) TopTracks(ctx context.Context, r TimeRange, limit int) ([]db.WrapTrack, error) {
	page, err := c.api.CurrentUsersTopTracks(ctx,
		spotify.Timerange(spotify.Range(r)),
		spotify.Limit(clampLimit(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}

	tracks := make([]db.WrapTrack, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		tracks = append(tracks, convertTrack(t))
	}
	return tracks, nil
}

// TopArtists returns the user's most played artists over r.
func (c *Client) TopArtists(ctx context.Context, r TimeRange, limit int) ([]db.WrapArtist, error) {
	page, err := c.api.CurrentUsersTopArtists(ctx,
		spotify.Timerange(spotify.Range(r)),
		spotify.Limit(clampLimit(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching top artists: %w", err)
	}

	artists := make([]db.WrapArtist, 0, len(page.Artists))
	for _, a := range page.Artists {
		artists = append(artists, convertArtist(a))
	}
	return artists, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxTopItems {
		return maxTopItems
	}
	return limit
}

// convertTrack converts a Spotify FullTrack to a summary entry.
func convertTrack(t spotify.FullTrack) db.WrapTrack {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	track := db.WrapTrack{
		ID:         t.ID.String(),
		Name:       t.Name,
		Artists:    artists,
		Album:      t.Album.Name,
		PreviewURL: t.PreviewURL,
		Popularity: int(t.Popularity),
	}
	if len(t.Album.Images) > 0 {
		track.ImageURL = t.Album.Images[0].URL
	}
	return track
}

// convertArtist converts a Spotify FullArtist to a summary entry.
func convertArtist(a spotify.FullArtist) db.WrapArtist {
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}

	artist := db.WrapArtist{
		ID:         a.ID.String(),
		Name:       a.Name,
		Genres:     genres,
		Popularity: int(a.Popularity),
	}
	if len(a.Images) > 0 {
		artist.ImageURL = a.Images[0].URL
	}
	return artist
}

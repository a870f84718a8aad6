// Package lastfm looks up artist tags on Last.fm. The tags stand in for
// genres when Spotify has none for an artist.
package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"
	userAgent      = "go-spotify-wrapped/1.0"
)

// Last.fm API error codes.
const (
	errCodeInvalidParams = 6
	errCodeInvalidAPIKey = 10
	errCodeRateLimited   = 29
)

// Sentinel errors.
var (
	// ErrRateLimited is returned when the API rate limit is exceeded after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when the API key is invalid.
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// Client is a Last.fm API client with an in-memory tag cache.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	delays     []time.Duration

	// key = lowercased artist name
	cache   map[string][]Tag
	cacheMu sync.RWMutex
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryDelays sets the waits between rate-limited attempts.
func WithRetryDelays(d ...time.Duration) Option {
	return func(c *Client) { c.delays = d }
}

// NewClient creates a Last.fm client for apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		delays:     []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		cache:      make(map[string][]Tag),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ArtistTags returns the top tags for an artist, most popular first.
// Unknown artists yield an empty slice, not an error.
func (c *Client) ArtistTags(ctx context.Context, artist string) ([]Tag, error) {
	key := strings.ToLower(strings.TrimSpace(artist))

	c.cacheMu.RLock()
	cached, ok := c.cache[key]
	c.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	params := url.Values{
		"method":      {"artist.getTopTags"},
		"artist":      {artist},
		"autocorrect": {"1"},
		"format":      {"json"},
		"api_key":     {c.apiKey},
	}

	body, err := c.doRequest(ctx, params)
	if errors.Is(err, errNotFound) {
		body, err = []byte(`{}`), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching artist tags: %w", err)
	}

	var resp artistTagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing artist tags response: %w", err)
	}

	tags := resp.TopTags.Tag
	if tags == nil {
		tags = []Tag{}
	}

	c.cacheMu.Lock()
	c.cache[key] = tags
	c.cacheMu.Unlock()

	return tags, nil
}

// errNotFound marks Last.fm's "invalid parameters" answer for unknown artists.
var errNotFound = errors.New("artist not found")

// doRequest performs an HTTP GET request, retrying while rate limited.
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= len(c.delays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.delays[attempt-1]):
			}
		}

		body, err := c.doSingleRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) doSingleRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	// Last.fm reports failures in the body, sometimes with a 200 status.
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errCodeRateLimited:
			return nil, ErrRateLimited
		case errCodeInvalidAPIKey:
			return nil, ErrInvalidAPIKey
		case errCodeInvalidParams:
			return nil, errNotFound
		default:
			return nil, fmt.Errorf("API error %d: %s", apiErr.Error, apiErr.Message)
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return body, nil
}

// Package auth provides Spotify OAuth2 configuration, per-user token refresh
// and staff password checks.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-wrapped/internal/db"
)

// defaultTokenLifetime is assumed when the token endpoint reports no expiry.
const defaultTokenLifetime = time.Hour

var (
	// ErrNoRefreshToken is returned when a stored credential has no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token stored")
)

// DefaultScopes are the permissions requested at login.
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserTopRead,
}

// Config holds the Spotify application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string // DefaultScopes when empty

	// AuthURL and TokenURL override the Spotify endpoints.
	AuthURL  string
	TokenURL string
}

func (c Config) scopes() []string {
	if len(c.Scopes) == 0 {
		return DefaultScopes
	}
	return c.Scopes
}

// Authenticator returns the authenticator used for the login redirect and code exchange.
func (c Config) Authenticator() *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(c.ClientID),
		spotifyauth.WithClientSecret(c.ClientSecret),
		spotifyauth.WithRedirectURL(c.RedirectURI),
		spotifyauth.WithScopes(c.scopes()...),
	)
}

// OAuth2 returns the equivalent oauth2 configuration, honouring endpoint overrides.
func (c Config) OAuth2() *oauth2.Config {
	endpoint := oauth2.Endpoint{
		AuthURL:   spotifyauth.AuthURL,
		TokenURL:  spotifyauth.TokenURL,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	if c.AuthURL != "" {
		endpoint.AuthURL = c.AuthURL
	}
	if c.TokenURL != "" {
		endpoint.TokenURL = c.TokenURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       c.scopes(),
		Endpoint:     endpoint,
	}
}

// TokenStore persists Spotify credentials. *db.AuthRepository satisfies it.
type TokenStore interface {
	GetForUser(ctx context.Context, userID string) (*db.SpotifyAuth, error)
	Upsert(ctx context.Context, auth *db.SpotifyAuth) error
	UpdateTokens(ctx context.Context, auth *db.SpotifyAuth) error
}

// Refresher keeps stored access tokens usable.
type Refresher struct {
	oauth      *oauth2.Config
	store      TokenStore
	httpClient *http.Client
	now        func() time.Time
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) RefresherOption {
	return func(r *Refresher) {
		r.httpClient = c
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) {
		r.now = now
	}
}

// NewRefresher creates a Refresher for cfg backed by store.
func NewRefresher(cfg Config, store TokenStore, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		oauth: cfg.OAuth2(),
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveToken stores the token pair obtained at login, replacing any previous one.
func (r *Refresher) SaveToken(ctx context.Context, userID string, token *oauth2.Token) error {
	rec := &db.SpotifyAuth{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  r.expiry(token),
	}
	if err := r.store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// RefreshAccessToken exchanges rec's refresh token for a new access token,
// persists the result and returns the new access token. rec is updated in place.
// The refresh token is kept unless the provider issues a new one.
// Provider failures are returned wrapped; *oauth2.RetrieveError stays reachable with errors.As.
func (r *Refresher) RefreshAccessToken(ctx context.Context, rec *db.SpotifyAuth) (string, error) {
	if rec.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}
	token, err := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("refreshing access token: %w", err)
	}

	rec.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		rec.RefreshToken = token.RefreshToken
	}
	rec.TokenExpiry = r.expiry(token)

	if err := r.store.UpdateTokens(ctx, rec); err != nil {
		return "", fmt.Errorf("saving refreshed token: %w", err)
	}
	return rec.AccessToken, nil
}

// ValidAccessToken returns a usable token for userID, refreshing it first when expired.
func (r *Refresher) ValidAccessToken(ctx context.Context, userID string) (*oauth2.Token, error) {
	rec, err := r.store.GetForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}

	if !rec.IsValidAt(r.now()) {
		if _, err := r.RefreshAccessToken(ctx, rec); err != nil {
			return nil, err
		}
	}

	return &oauth2.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       rec.TokenExpiry,
	}, nil
}

func (r *Refresher) expiry(token *oauth2.Token) time.Time {
	if token.Expiry.IsZero() {
		return r.now().Add(defaultTokenLifetime)
	}
	return token.Expiry
}

// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAddr        = ":8080"
	defaultRedirectURI = "http://127.0.0.1:8080/callback"
	defaultSessionTTL  = 30 * 24 * time.Hour
	defaultSpotifyWait = 15 * time.Second
)

var (
	// ErrMissingCredentials is returned when SPOTIFY_ID or SPOTIFY_SECRET is not set.
	ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET environment variable")

	// ErrMissingDatabaseURL is returned when DATABASE_URL is not set.
	ErrMissingDatabaseURL = errors.New("missing DATABASE_URL environment variable")
)

// Config holds service configuration.
type Config struct {
	SpotifyID          string
	SpotifySecret      string
	SpotifyRedirectURI string
	DatabaseURL        string
	LastFMAPIKey       string // optional; enables the genre fallback
	Addr               string
	AllowedOrigins     []string
	FrontendURL        string
	LogLevel           string
	LogFormat          string
	SessionTTL         time.Duration
	WrapCooldown       time.Duration
	SpotifyTimeout     time.Duration // bounds every outbound Spotify API call
}

// LoadDotEnv reads a .env file from the working directory when one exists.
// Values already present in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads configuration from environment variables.
// Returns ErrMissingDatabaseURL if DATABASE_URL is not set.
// Spotify credentials are checked separately by RequireSpotify so that
// commands which never talk to Spotify can run without them.
func Load() (*Config, error) {
	cfg := &Config{
		SpotifyID:          os.Getenv("SPOTIFY_ID"),
		SpotifySecret:      os.Getenv("SPOTIFY_SECRET"),
		SpotifyRedirectURI: getenv("SPOTIFY_REDIRECT_URI", defaultRedirectURI),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		LastFMAPIKey:       os.Getenv("LASTFM_API_KEY"),
		Addr:               getenv("ADDR", defaultAddr),
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		FrontendURL:        getenv("FRONTEND_URL", "/"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogFormat:          getenv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	var err error
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.WrapCooldown, err = durationEnv("WRAP_COOLDOWN", 0); err != nil {
		return nil, err
	}
	if cfg.SpotifyTimeout, err = durationEnv("SPOTIFY_TIMEOUT", defaultSpotifyWait); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireSpotify returns ErrMissingCredentials if either Spotify credential is empty.
func (c *Config) RequireSpotify() error {
	if c.SpotifyID == "" || c.SpotifySecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parsing %s: negative duration %s", key, v)
	}
	return d, nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

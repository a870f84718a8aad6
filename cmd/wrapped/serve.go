package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-wrapped/internal/accounts"
	"github.com/justestif/go-spotify-wrapped/internal/auth"
	"github.com/justestif/go-spotify-wrapped/internal/feedback"
	"github.com/justestif/go-spotify-wrapped/internal/lastfm"
	"github.com/justestif/go-spotify-wrapped/internal/spotify"
	"github.com/justestif/go-spotify-wrapped/internal/tags"
	"github.com/justestif/go-spotify-wrapped/internal/validation"
	"github.com/justestif/go-spotify-wrapped/internal/web"
	"github.com/justestif/go-spotify-wrapped/internal/wrapped"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.db.Close()

	cfg, logger, database := env.cfg, env.logger, env.db
	if err := cfg.RequireSpotify(); err != nil {
		return err
	}

	if migrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
	}

	if n, err := database.Sessions().DeleteExpired(ctx); err != nil {
		logger.Warn("pruning expired sessions", "error", err)
	} else if n > 0 {
		logger.Info("pruned expired sessions", "count", n)
	}

	authCfg := auth.Config{
		ClientID:     cfg.SpotifyID,
		ClientSecret: cfg.SpotifySecret,
		RedirectURI:  cfg.SpotifyRedirectURI,
	}
	refresher := auth.NewRefresher(authCfg, database.Auth())
	validator := validation.New()

	spotifyTimeout := spotify.WithTimeout(cfg.SpotifyTimeout)
	wrapOpts := []wrapped.Option{
		wrapped.WithCooldown(cfg.WrapCooldown),
		wrapped.WithLogger(logger),
		wrapped.WithClientFactory(func(ctx context.Context, token *oauth2.Token) wrapped.SpotifyAPI {
			return spotify.NewForToken(ctx, token, spotifyTimeout)
		}),
	}
	if cfg.LastFMAPIKey != "" {
		genres := tags.NewService(lastfm.NewClient(cfg.LastFMAPIKey), tags.WithLogger(logger))
		wrapOpts = append(wrapOpts, wrapped.WithGenreFiller(genres))
	}

	handlers := web.NewHandlers(web.Deps{
		OAuth: authCfg.Authenticator(),
		Profiles: func(ctx context.Context, token *oauth2.Token) (*spotify.Profile, error) {
			return spotify.NewForToken(ctx, token, spotifyTimeout).CurrentProfile(ctx)
		},
		Sessions:    web.NewDBSessionStore(database.Sessions(), cfg.SessionTTL),
		Accounts:    accounts.New(database.Users(), refresher, accounts.WithLogger(logger)),
		Wraps:       wrapped.New(wrapped.NewDBStore(database), refresher, wrapOpts...),
		Feedback:    feedback.New(database.Feedback(), validator, logger),
		Staff:       auth.NewStaffAuthenticator(database.Staff()),
		Validator:   validator,
		Logger:      logger,
		FrontendURL: cfg.FrontendURL,
	})

	server := web.NewServer(web.ServerConfig{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	}, handlers)
	return server.Run(ctx)
}

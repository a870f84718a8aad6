package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAddr is the default server address.
const DefaultAddr = ":8080"

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *slog.Logger
}

// NewServer creates a new web server around h.
func NewServer(cfg ServerConfig, h *Handlers) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		router:   chi.NewRouter(),
		handlers: h,
		logger:   logger,
	}
	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	s.router.Use(middleware.Recoverer)
	if len(origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/healthz", h.Health)

	s.router.Get("/auth/login", h.Login)
	s.router.Get("/callback", h.Callback)
	s.router.Post("/auth/logout", h.Logout)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/feedback", h.SubmitFeedback)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Get("/me", h.Me)
			r.Patch("/me", h.UpdateMe)
			r.Delete("/me", h.DeleteMe)

			r.Get("/friends", h.ListFriends)
			r.Post("/friends", h.AddFriend)
			r.Delete("/friends/{wrappedID}", h.RemoveFriend)

			r.Get("/wraps", h.ListWraps)
			r.Post("/wraps", h.CreateWrap)
			r.Get("/wraps/{id}", h.GetWrap)
			r.Delete("/wraps/{id}", h.DeleteWrap)
		})
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireStaff)
		r.Get("/feedback", h.AdminListFeedback)
		r.Post("/feedback/{id}/read", h.AdminMarkRead)
		r.Post("/feedback/{id}/respond", h.AdminRespond)
		r.Delete("/feedback/{id}", h.AdminDeleteFeedback)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

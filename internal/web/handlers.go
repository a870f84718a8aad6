package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-wrapped/internal/db"
	"github.com/justestif/go-spotify-wrapped/internal/feedback"
	"github.com/justestif/go-spotify-wrapped/internal/spotify"
	"github.com/justestif/go-spotify-wrapped/internal/wrapped"
)

const stateCookieName = "oauth_state"

// OAuthFlow is the authorization code flow. *spotifyauth.Authenticator satisfies it.
type OAuthFlow interface {
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// ProfileFetcher loads the Spotify profile belonging to token.
type ProfileFetcher func(ctx context.Context, token *oauth2.Token) (*spotify.Profile, error)

// Accounts manages users and friendships. *accounts.Service satisfies it.
type Accounts interface {
	Login(ctx context.Context, profile *spotify.Profile, token *oauth2.Token) (*db.User, error)
	Profile(ctx context.Context, userID string) (*db.User, error)
	UpdatePersonality(ctx context.Context, userID, text string) error
	Friends(ctx context.Context, userID string) ([]db.User, error)
	AddFriend(ctx context.Context, userID, wrappedID string) (*db.User, error)
	RemoveFriend(ctx context.Context, userID, wrappedID string) error
	DeleteAccount(ctx context.Context, userID string) error
}

// Wraps manages saved summaries. *wrapped.Service satisfies it.
type Wraps interface {
	Generate(ctx context.Context, userID string, req wrapped.Request) (*db.SavedWrap, error)
	List(ctx context.Context, userID string) ([]db.SavedWrap, error)
	Get(ctx context.Context, userID string, id int64) (*db.SavedWrap, error)
	Delete(ctx context.Context, userID string, id int64) error
}

// Feedback handles the feedback inbox. *feedback.Service satisfies it.
type Feedback interface {
	Submit(ctx context.Context, sub feedback.Submission) (*db.Feedback, error)
	List(ctx context.Context, filter db.FeedbackFilter) ([]db.Feedback, error)
	MarkRead(ctx context.Context, id int64) (*db.Feedback, error)
	Respond(ctx context.Context, id, staffID int64, resp feedback.Response) (*db.Feedback, error)
	Delete(ctx context.Context, id, staffID int64) error
}

// StaffAuthenticator checks staff credentials. *auth.StaffAuthenticator satisfies it.
type StaffAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*db.StaffUser, error)
}

// Validator checks request structs. *validation.Validator satisfies it.
type Validator interface {
	Validate(s any) error
}

// Deps are the collaborators the handlers need.
type Deps struct {
	OAuth       OAuthFlow
	Profiles    ProfileFetcher
	Sessions    SessionManager
	Accounts    Accounts
	Wraps       Wraps
	Feedback    Feedback
	Staff       StaffAuthenticator
	Validator   Validator
	Logger      *slog.Logger
	FrontendURL string // where the browser lands after login and logout
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	oauth       OAuthFlow
	profiles    ProfileFetcher
	sessions    SessionManager
	accounts    Accounts
	wraps       Wraps
	feedback    Feedback
	staff       StaffAuthenticator
	validator   Validator
	logger      *slog.Logger
	frontendURL string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	frontend := d.FrontendURL
	if frontend == "" {
		frontend = "/"
	}
	return &Handlers{
		oauth:       d.OAuth,
		profiles:    d.Profiles,
		sessions:    d.Sessions,
		accounts:    d.Accounts,
		wraps:       d.Wraps,
		feedback:    d.Feedback,
		staff:       d.Staff,
		validator:   d.Validator,
		logger:      logger,
		frontendURL: frontend,
	}
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing state cookie", h.logger)
		return
	}

	query := r.URL.Query()
	if query.Get("state") != stateCookie.Value {
		writeError(w, http.StatusBadRequest, "state mismatch", h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := query.Get("error"); errMsg != "" {
		writeError(w, http.StatusBadRequest, "spotify auth error: "+errMsg, h.logger)
		return
	}

	ctx := r.Context()
	token, err := h.oauth.Exchange(ctx, query.Get("code"))
	if err != nil {
		h.logger.WarnContext(ctx, "exchanging authorization code", "error", err)
		writeError(w, http.StatusBadGateway, "failed to get token", h.logger)
		return
	}

	profile, err := h.profiles(ctx, token)
	if err != nil {
		h.logger.WarnContext(ctx, "fetching spotify profile", "error", err)
		writeError(w, http.StatusBadGateway, "failed to get user info", h.logger)
		return
	}

	user, err := h.accounts.Login(ctx, profile, token)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.sessions.Create(ctx, user.SpotifyID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.sessions.SetCookie(w, session)

	h.logger.InfoContext(ctx, "user logged in", "spotify_id", user.SpotifyID)
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

// Logout clears the session (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

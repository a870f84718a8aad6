// Package web provides the HTTP API for the Spotify Wrapped service.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-wrapped/internal/db"
)

const (
	sessionCookieName = "session_id"

	// DefaultSessionTTL is used when no lifetime is configured.
	DefaultSessionTTL = 30 * 24 * time.Hour
)

// Session represents an authenticated user session.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionManager defines the interface for session management.
type SessionManager interface {
	Create(ctx context.Context, userID string) (*Session, error)
	Get(ctx context.Context, id string) *Session
	Delete(ctx context.Context, id string)
	GetFromRequest(r *http.Request) *Session
	SetCookie(w http.ResponseWriter, session *Session)
	ClearCookie(w http.ResponseWriter)
}

// ============================================================================
// In-Memory Session Store (for development/testing)
// ============================================================================

// MemorySessionStore manages user sessions in memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new session for userID.
func (s *MemorySessionStore) Create(_ context.Context, userID string) (*Session, error) {
	now := s.now()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session, nil
}

// Get retrieves an unexpired session by ID.
func (s *MemorySessionStore) Get(_ context.Context, id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || !s.now().Before(session.ExpiresAt) {
		return nil
	}
	return session
}

// Delete removes a session by ID.
func (s *MemorySessionStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// GetFromRequest extracts the session from the request cookie.
func (s *MemorySessionStore) GetFromRequest(r *http.Request) *Session {
	return sessionFromCookie(r, s)
}

// SetCookie sets the session cookie on the response.
func (s *MemorySessionStore) SetCookie(w http.ResponseWriter, session *Session) {
	setCookie(w, session)
}

// ClearCookie removes the session cookie from the response.
func (s *MemorySessionStore) ClearCookie(w http.ResponseWriter) {
	clearCookie(w)
}

// ============================================================================
// Database-Backed Session Store
// ============================================================================

// SessionRepository persists sessions. *db.SessionRepository satisfies it.
type SessionRepository interface {
	Create(ctx context.Context, session *db.WebSession) error
	Get(ctx context.Context, id string) (*db.WebSession, error)
	Delete(ctx context.Context, id string) error
}

// DBSessionStore manages user sessions in PostgreSQL.
type DBSessionStore struct {
	repo SessionRepository
	ttl  time.Duration
}

// NewDBSessionStore creates a new database-backed session store.
func NewDBSessionStore(repo SessionRepository, ttl time.Duration) *DBSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &DBSessionStore{repo: repo, ttl: ttl}
}

// Create starts a new session for userID and stores it in the database.
func (s *DBSessionStore) Create(ctx context.Context, userID string) (*Session, error) {
	now := time.Now()
	row := &db.WebSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}

	return &Session{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

// Get retrieves an unexpired session by ID from the database.
func (s *DBSessionStore) Get(ctx context.Context, id string) *Session {
	if uuid.Validate(id) != nil {
		return nil
	}

	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil
	}

	return &Session{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}
}

// Delete removes a session from the database.
func (s *DBSessionStore) Delete(ctx context.Context, id string) {
	_ = s.repo.Delete(ctx, id)
}

// GetFromRequest extracts the session from the request cookie.
func (s *DBSessionStore) GetFromRequest(r *http.Request) *Session {
	return sessionFromCookie(r, s)
}

// SetCookie sets the session cookie on the response.
func (s *DBSessionStore) SetCookie(w http.ResponseWriter, session *Session) {
	setCookie(w, session)
}

// ClearCookie removes the session cookie from the response.
func (s *DBSessionStore) ClearCookie(w http.ResponseWriter) {
	clearCookie(w)
}

// ============================================================================
// Helper Functions
// ============================================================================

func sessionFromCookie(r *http.Request, m SessionManager) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	return m.Get(r.Context(), cookie.Value)
}

// setCookie sets the session cookie on the response.
func setCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})
}

// clearCookie removes the session cookie from the response.
func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// Ensure both stores implement SessionManager.
var (
	_ SessionManager = (*MemorySessionStore)(nil)
	_ SessionManager = (*DBSessionStore)(nil)
)

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-wrapped/internal/accounts"
	"github.com/justestif/go-spotify-wrapped/internal/auth"
	"github.com/justestif/go-spotify-wrapped/internal/db"
	"github.com/justestif/go-spotify-wrapped/internal/feedback"
	"github.com/justestif/go-spotify-wrapped/internal/logging"
	"github.com/justestif/go-spotify-wrapped/internal/spotify"
	"github.com/justestif/go-spotify-wrapped/internal/validation"
	"github.com/justestif/go-spotify-wrapped/internal/wrapped"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeOAuth struct {
	exchanged string
	err       error
}

func (f *fakeOAuth) AuthURL(state string, _ ...oauth2.AuthCodeOption) string {
	return "https://accounts.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) Exchange(_ context.Context, code string, _ ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	f.exchanged = code
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "access", RefreshToken: "refresh"}, nil
}

type fakeAccounts struct {
	users      map[string]*db.User
	friends    []db.User
	addErr     error
	loggedIn   *spotify.Profile
	personal   string
	deleted    string
	removedFor string
}

func (f *fakeAccounts) Login(_ context.Context, p *spotify.Profile, _ *oauth2.Token) (*db.User, error) {
	f.loggedIn = p
	u := &db.User{SpotifyID: p.ID, UserName: p.DisplayName, WrappedID: "AbCdE12345"}
	f.users[p.ID] = u
	return u, nil
}

func (f *fakeAccounts) Profile(_ context.Context, id string) (*db.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeAccounts) UpdatePersonality(_ context.Context, id, text string) error {
	f.personal = text
	if u, ok := f.users[id]; ok {
		u.PersonalityDescription = &text
	}
	return nil
}

func (f *fakeAccounts) Friends(context.Context, string) ([]db.User, error) {
	return f.friends, nil
}

func (f *fakeAccounts) AddFriend(_ context.Context, _, wrappedID string) (*db.User, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &db.User{SpotifyID: "bob", WrappedID: wrappedID}, nil
}

func (f *fakeAccounts) RemoveFriend(_ context.Context, userID, _ string) error {
	f.removedFor = userID
	return nil
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, id string) error {
	f.deleted = id
	return nil
}

type fakeWraps struct {
	generateErr error
	request     wrapped.Request
	wraps       map[int64]*db.SavedWrap
	listErr     error
}

func (f *fakeWraps) Generate(_ context.Context, userID string, req wrapped.Request) (*db.SavedWrap, error) {
	f.request = req
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &db.SavedWrap{ID: 7, UserID: userID, Title: "Your Wrapped", TimeRange: "medium_term"}, nil
}

func (f *fakeWraps) List(context.Context, string) ([]db.SavedWrap, error) {
	return nil, f.listErr
}

func (f *fakeWraps) Get(_ context.Context, userID string, id int64) (*db.SavedWrap, error) {
	w, ok := f.wraps[id]
	if !ok || w.UserID != userID {
		return nil, db.ErrNotFound
	}
	return w, nil
}

func (f *fakeWraps) Delete(_ context.Context, userID string, id int64) error {
	_, err := f.Get(context.Background(), userID, id)
	return err
}

type fakeFeedback struct {
	filter    db.FeedbackFilter
	submitted feedback.Submission
	staffID   int64
	deleted   []int64
}

func (f *fakeFeedback) Submit(_ context.Context, sub feedback.Submission) (*db.Feedback, error) {
	f.submitted = sub
	return &db.Feedback{ID: 1, Name: sub.Name, Status: db.StatusNew}, nil
}

func (f *fakeFeedback) List(_ context.Context, filter db.FeedbackFilter) ([]db.Feedback, error) {
	f.filter = filter
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, feedback.ErrUnknownStatus
	}
	return nil, nil
}

func (f *fakeFeedback) MarkRead(_ context.Context, id int64) (*db.Feedback, error) {
	return &db.Feedback{ID: id, Status: db.StatusRead}, nil
}

func (f *fakeFeedback) Respond(_ context.Context, id, staffID int64, resp feedback.Response) (*db.Feedback, error) {
	f.staffID = staffID
	fb := &db.Feedback{ID: id}
	fb.MarkAsResponded(staffID, resp.Response, fb.CreatedAt)
	return fb, nil
}

func (f *fakeFeedback) Delete(_ context.Context, id, staffID int64) error {
	if id == 404 {
		return db.ErrNotFound
	}
	f.staffID = staffID
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeStaff struct{}

func (fakeStaff) Authenticate(_ context.Context, username, password string) (*db.StaffUser, error) {
	if username == "admin" && password == "hunter2" {
		return &db.StaffUser{ID: 42, Username: "admin"}, nil
	}
	return nil, auth.ErrInvalidCredentials
}

// ============================================================================
// Fixture
// ============================================================================

type fixture struct {
	server   *Server
	sessions *MemorySessionStore
	oauth    *fakeOAuth
	accounts *fakeAccounts
	wraps    *fakeWraps
	feedback *fakeFeedback
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions: NewMemorySessionStore(0),
		oauth:    &fakeOAuth{},
		accounts: &fakeAccounts{users: map[string]*db.User{
			"alice": {SpotifyID: "alice", UserName: "Alice", WrappedID: "AliceAlice"},
		}},
		wraps: &fakeWraps{wraps: map[int64]*db.SavedWrap{
			3: {ID: 3, UserID: "alice", Title: "Holiday Wrapped"},
			4: {ID: 4, UserID: "bob", Title: "Not yours"},
		}},
		feedback: &fakeFeedback{},
	}
	h := NewHandlers(Deps{
		OAuth: f.oauth,
		Profiles: func(context.Context, *oauth2.Token) (*spotify.Profile, error) {
			return &spotify.Profile{ID: "carol", DisplayName: "Carol"}, nil
		},
		Sessions:    f.sessions,
		Accounts:    f.accounts,
		Wraps:       f.wraps,
		Feedback:    f.feedback,
		Staff:       fakeStaff{},
		Validator:   validation.New(),
		Logger:      logging.Discard(),
		FrontendURL: "http://localhost:5173/",
	})
	f.server = NewServer(ServerConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
		Logger:         logging.Discard(),
	}, h)
	return f
}

func (f *fixture) loginAs(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	session, err := f.sessions.Create(context.Background(), userID)
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookieName, Value: session.ID}
}

func (f *fixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
	Success bool              `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

// ============================================================================
// Auth flow
// ============================================================================

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
}

func TestLoginSetsStateAndRedirects(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookieName, cookies[0].Name)
	assert.Contains(t, rec.Header().Get("Location"), "state="+cookies[0].Value)
}

func TestCallback(t *testing.T) {
	t.Run("state mismatch", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/callback?state=evil&code=abc", nil)
		rec := f.do(req, &http.Cookie{Name: stateCookieName, Value: "good"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, f.oauth.exchanged)
	})

	t.Run("missing state cookie", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("exchange failure", func(t *testing.T) {
		f := newFixture(t)
		f.oauth.err = errors.New("invalid_grant")
		req := httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil)
		rec := f.do(req, &http.Cookie{Name: stateCookieName, Value: "s"})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("success creates session", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil)
		rec := f.do(req, &http.Cookie{Name: stateCookieName, Value: "s"})

		require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "http://localhost:5173/", rec.Header().Get("Location"))
		assert.Equal(t, "abc", f.oauth.exchanged)
		require.NotNil(t, f.accounts.loggedIn)
		assert.Equal(t, "carol", f.accounts.loggedIn.ID)

		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookieName {
				session = c
			}
		}
		require.NotNil(t, session)
		got := f.sessions.Get(context.Background(), session.Value)
		require.NotNil(t, got)
		assert.Equal(t, "carol", got.UserID)
	})
}

func TestLogoutDropsSession(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, "alice")

	rec := f.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, f.sessions.Get(context.Background(), cookie.Value))
}

// ============================================================================
// API
// ============================================================================

func TestAPIRequiresSession(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/me", "/api/friends", "/api/wraps"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/me", nil),
		&http.Cookie{Name: sessionCookieName, Value: "not-a-session"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/me", nil), f.loginAs(t, "alice"))

	require.Equal(t, http.StatusOK, rec.Code)
	var user db.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &user))
	assert.Equal(t, "AliceAlice", user.WrappedID)
}

func TestUpdateMe(t *testing.T) {
	t.Run("stores personality", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPatch, "/api/me", jsonBody(`{"personality_description":"night owl"}`))
		rec := f.do(req, f.loginAs(t, "alice"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "night owl", f.accounts.personal)
	})

	t.Run("too long", func(t *testing.T) {
		f := newFixture(t)
		body := `{"personality_description":"` + strings.Repeat("x", 1001) + `"}`
		rec := f.do(httptest.NewRequest(http.MethodPatch, "/api/me", jsonBody(body)), f.loginAs(t, "alice"))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeEnvelope(t, rec).Fields, "personality_description")
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodPatch, "/api/me", jsonBody(`{"nope":1}`)), f.loginAs(t, "alice"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteMeEndsSession(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, "alice")

	rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/me", nil), cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice", f.accounts.deleted)
	assert.Nil(t, f.sessions.Get(context.Background(), cookie.Value))
}

func TestFriends(t *testing.T) {
	t.Run("empty list is an array", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/friends", nil), f.loginAs(t, "alice"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, string(decodeEnvelope(t, rec).Data))
	})

	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "added", body: `{"wrapped_id":"BobBobBob1"}`, status: http.StatusCreated},
		{name: "bad id", body: `{"wrapped_id":"short"}`, status: http.StatusBadRequest},
		{name: "self", body: `{"wrapped_id":"AliceAlice"}`, err: accounts.ErrSelfFriend, status: http.StatusBadRequest},
		{name: "unknown", body: `{"wrapped_id":"Nobody1234"}`, err: db.ErrNotFound, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.accounts.addErr = tt.err
			rec := f.do(httptest.NewRequest(http.MethodPost, "/api/friends", jsonBody(tt.body)), f.loginAs(t, "alice"))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	t.Run("remove", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/friends/BobBobBob1", nil), f.loginAs(t, "alice"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "alice", f.accounts.removedFor)
	})
}

func TestCreateWrap(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "created", body: `{"time_range":"short_term","holiday_theme":"Halloween"}`, status: http.StatusCreated},
		{name: "bad range", body: `{"time_range":"forever"}`, status: http.StatusBadRequest},
		{name: "cooldown", body: `{}`, err: wrapped.ErrTooSoon, status: http.StatusTooManyRequests},
		{name: "not a friend", body: `{"friend_wrapped_id":"BobBobBob1"}`, err: wrapped.ErrNotFriend, status: http.StatusForbidden},
		{name: "reauth needed", body: `{}`, err: auth.ErrNoRefreshToken, status: http.StatusUnauthorized},
		{
			name:   "refresh token revoked",
			body:   `{}`,
			err:    fmt.Errorf("getting access token: %w", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}),
			status: http.StatusUnauthorized,
		},
		{name: "spotify down", body: `{}`, err: errors.New("spotify: 503"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.wraps.generateErr = tt.err
			rec := f.do(httptest.NewRequest(http.MethodPost, "/api/wraps", jsonBody(tt.body)), f.loginAs(t, "alice"))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	t.Run("internal errors are hidden", func(t *testing.T) {
		f := newFixture(t)
		f.wraps.generateErr = errors.New("pq: secret detail")
		rec := f.do(httptest.NewRequest(http.MethodPost, "/api/wraps", jsonBody(`{}`)), f.loginAs(t, "alice"))
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "internal error", env.Error)
		assert.False(t, env.Success)
	})
}

func TestGetWrap(t *testing.T) {
	tests := []struct {
		path   string
		status int
	}{
		{path: "/api/wraps/3", status: http.StatusOK},
		{path: "/api/wraps/4", status: http.StatusNotFound},
		{path: "/api/wraps/abc", status: http.StatusBadRequest},
		{path: "/api/wraps/0", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(httptest.NewRequest(http.MethodGet, tt.path, nil), f.loginAs(t, "alice"))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestDeleteWrap(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, "alice")

	rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/wraps/3", nil), cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/api/wraps/4", nil), cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitFeedbackIsPublic(t *testing.T) {
	f := newFixture(t)
	body := `{"name":"Dana","email":"dana@example.com","message":"Love it"}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/feedback", jsonBody(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Dana", f.feedback.submitted.Name)
}

// ============================================================================
// Admin
// ============================================================================

func TestAdminRequiresStaff(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/admin/feedback", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/admin/feedback", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminListFeedback(t *testing.T) {
	t.Run("filters", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/admin/feedback?status=read&limit=10&offset=20", nil)
		req.SetBasicAuth("admin", "hunter2")
		rec := f.do(req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, db.FeedbackFilter{Status: db.StatusRead, Limit: 10, Offset: 20}, f.feedback.filter)
		assert.JSONEq(t, `[]`, string(decodeEnvelope(t, rec).Data))
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/admin/feedback?status=archived", nil)
		req.SetBasicAuth("admin", "hunter2")
		assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/admin/feedback?limit=-1", nil)
		req.SetBasicAuth("admin", "hunter2")
		assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
	})
}

func TestAdminRespondUsesStaffID(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/feedback/5/respond", jsonBody(`{"response":"Thanks!"}`))
	req.SetBasicAuth("admin", "hunter2")
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), f.feedback.staffID)

	var fb db.Feedback
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &fb))
	assert.Equal(t, db.StatusResponded, fb.Status)
}

func TestAdminMarkRead(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/feedback/5/read", nil)
	req.SetBasicAuth("admin", "hunter2")
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminDeleteFeedback(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodDelete, "/admin/feedback/5", nil)
	req.SetBasicAuth("admin", "hunter2")
	rec := f.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{5}, f.feedback.deleted)
	assert.Equal(t, int64(42), f.feedback.staffID)

	req = httptest.NewRequest(http.MethodDelete, "/admin/feedback/404", nil)
	req.SetBasicAuth("admin", "hunter2")
	assert.Equal(t, http.StatusNotFound, f.do(req).Code)

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/admin/feedback/5", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/wraps", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := f.do(req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

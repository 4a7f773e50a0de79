package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDestroyStore struct {
	*MemorySessions
}

func (failingDestroyStore) Destroy(context.Context, string) error {
	return errors.New("store unavailable")
}

func sessionStores(t *testing.T) map[string]SessionStore {
	t.Helper()

	bdg, err := OpenBadgerSessions("")
	require.NoError(t, err)
	t.Cleanup(func() { bdg.Close() })

	return map[string]SessionStore{
		"memory": NewMemorySessions(),
		"badger": bdg,
	}
}

func TestSessionStores(t *testing.T) {
	for name, store := range sessionStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			s := &Session{Token: "tok", Username: "alice", CreatedAt: time.Now().UTC()}
			require.NoError(t, store.Save(ctx, s))

			got, err := store.Get(ctx, "tok")
			require.NoError(t, err)
			assert.Equal(t, "alice", got.Username)

			require.NoError(t, store.Destroy(ctx, "tok"))
			_, err = store.Get(ctx, "tok")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			assert.NoError(t, store.Destroy(ctx, "tok"))
		})
	}
}

// serve runs one request through the session middleware and calls fn with
// the wrapped request.
func serve(s *Sessions, req *http.Request, fn func(w http.ResponseWriter, r *http.Request)) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Middleware(http.HandlerFunc(fn)).ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestSessions_LoginThenCurrentUser(t *testing.T) {
	sessions := NewSessions(NewMemorySessions(), SessionConfig{CookieName: "sid"})

	rec := serve(sessions, httptest.NewRequest(http.MethodPost, "/users/login", nil), func(w http.ResponseWriter, r *http.Request) {
		_, ok := CurrentUser(FromContext(r.Context()))
		assert.False(t, ok)
		require.NoError(t, sessions.Login(w, r, "alice"))
	})
	cookie := sessionCookie(t, rec, "sid")
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	serve(sessions, req, func(w http.ResponseWriter, r *http.Request) {
		username, ok := CurrentUser(FromContext(r.Context()))
		assert.True(t, ok)
		assert.Equal(t, "alice", username)
	})
}

func TestSessions_LogoutDestroysSession(t *testing.T) {
	store := NewMemorySessions()
	sessions := NewSessions(store, SessionConfig{CookieName: "sid"})

	rec := serve(sessions, httptest.NewRequest(http.MethodPost, "/users/login", nil), func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, sessions.Login(w, r, "alice"))
	})
	cookie := sessionCookie(t, rec, "sid")

	req := httptest.NewRequest(http.MethodPost, "/users/logout", nil)
	req.AddCookie(cookie)
	rec = serve(sessions, req, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, sessions.Logout(w, r))
		_, ok := CurrentUser(FromContext(r.Context()))
		assert.False(t, ok)
	})
	assert.Equal(t, -1, sessionCookie(t, rec, "sid").MaxAge)

	_, err := store.Get(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	serve(sessions, req, func(w http.ResponseWriter, r *http.Request) {
		_, ok := CurrentUser(FromContext(r.Context()))
		assert.False(t, ok)
	})
}

func TestSessions_LogoutFailureStillClearsCookie(t *testing.T) {
	sessions := NewSessions(failingDestroyStore{NewMemorySessions()}, SessionConfig{CookieName: "sid"})

	rec := serve(sessions, httptest.NewRequest(http.MethodPost, "/users/logout", nil), func(w http.ResponseWriter, r *http.Request) {
		assert.Error(t, sessions.Logout(w, r))
	})
	assert.Equal(t, -1, sessionCookie(t, rec, "sid").MaxAge)
}

func TestSessions_MaxAgeExpires(t *testing.T) {
	store := NewMemorySessions()
	sessions := NewSessions(store, SessionConfig{CookieName: "sid", MaxAge: time.Hour})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return start }

	rec := serve(sessions, httptest.NewRequest(http.MethodPost, "/users/login", nil), func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, sessions.Login(w, r, "alice"))
	})
	cookie := sessionCookie(t, rec, "sid")
	assert.Equal(t, 3600, cookie.MaxAge)

	sessions.now = func() time.Time { return start.Add(2 * time.Hour) }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	serve(sessions, req, func(w http.ResponseWriter, r *http.Request) {
		_, ok := CurrentUser(FromContext(r.Context()))
		assert.False(t, ok)
	})

	_, err := store.Get(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCurrentUser_Nil(t *testing.T) {
	_, ok := CurrentUser(nil)
	assert.False(t, ok)
}

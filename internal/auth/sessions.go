package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore persists sessions by token.
type SessionStore interface {
	Get(ctx context.Context, token string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Destroy(ctx context.Context, token string) error
}

func GenToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}

// CurrentUser reports the username stored in the session, if any.
func CurrentUser(session *Session) (string, bool) {
	if session == nil || session.Username == "" {
		return "", false
	}
	return session.Username, true
}

type SessionConfig struct {
	CookieName string
	Secure     bool
	// MaxAge limits how long a session is honored. Zero leaves it to the
	// cookie lifetime.
	MaxAge time.Duration
}

type Sessions struct {
	store SessionStore
	cfg   SessionConfig
	now   func() time.Time
}

func NewSessions(store SessionStore, cfg SessionConfig) *Sessions {
	if cfg.CookieName == "" {
		cfg.CookieName = "forum_session"
	}
	return &Sessions{store: store, cfg: cfg, now: time.Now}
}

type sessionCtxKey struct{}

// FromContext returns the session attached by Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

// Middleware attaches the caller's session to the request context. Callers
// without a valid cookie get a fresh session that is only persisted on Login.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.load(r)
		if err != nil {
			http.Error(w, "Failed to load session", http.StatusInternalServerError)
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Sessions) load(r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(s.cfg.CookieName); err == nil && cookie.Value != "" {
		session, err := s.store.Get(r.Context(), cookie.Value)
		switch {
		case err == nil:
			if !s.expired(session) {
				return session, nil
			}
			if err := s.store.Destroy(r.Context(), session.Token); err != nil {
				return nil, fmt.Errorf("destroy expired session: %w", err)
			}
		case !errors.Is(err, ErrSessionNotFound):
			return nil, err
		}
	}

	token, err := GenToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	return &Session{Token: token, CreatedAt: s.now()}, nil
}

func (s *Sessions) expired(session *Session) bool {
	return s.cfg.MaxAge > 0 && s.now().Sub(session.CreatedAt) > s.cfg.MaxAge
}

// Login stores username in the caller's session. Only call it after the
// password has been verified.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, username string) error {
	session := FromContext(r.Context())
	if session == nil {
		return errors.New("no session in request context")
	}

	session.Username = username
	if err := s.store.Save(r.Context(), session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	http.SetCookie(w, s.cookie(session.Token, int(s.cfg.MaxAge.Seconds())))
	return nil
}

// Logout destroys the whole session record and clears the cookie. The cookie
// is cleared even when destroying the record fails.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, s.cookie("", -1))

	session := FromContext(r.Context())
	if session == nil {
		return nil
	}
	session.Username = ""

	if err := s.store.Destroy(r.Context(), session.Token); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *Sessions) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

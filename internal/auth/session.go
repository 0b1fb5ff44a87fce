package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/log"
)

// CookieName is the session cookie.
const CookieName = "budget_session"

// SessionStore persists sessions. storage.Store implements it.
type SessionStore interface {
	CreateSession(ctx context.Context, sess core.Session) error
	GetSession(ctx context.Context, id string) (core.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type sessionKey struct{}

// Manager issues and checks session cookies.
type Manager struct {
	store     SessionStore
	ttl       time.Duration
	secure    bool
	loginPath string
	now       func() time.Time
}

func NewManager(store SessionStore, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		store:     store,
		ttl:       ttl,
		secure:    secure,
		loginPath: "/login",
		now:       time.Now,
	}
}

// Login creates a session and sets its cookie. Expired rows are purged on the
// way in.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter) (core.Session, error) {
	now := m.now().UTC()
	if n, err := m.store.DeleteExpiredSessions(ctx, now); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to purge expired sessions", log.FieldError, err)
	} else if n > 0 {
		log.FromContext(ctx).DebugContext(ctx, "Purged expired sessions", log.FieldCount, n)
	}

	sess := core.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return core.Session{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// Logout deletes the current session, if any, and clears the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := m.store.DeleteSession(r.Context(), c.Value); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to delete session", log.FieldError, err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Current returns the live session referenced by the request cookie.
func (m *Manager) Current(r *http.Request) (core.Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return core.Session{}, false
	}
	ctx := r.Context()
	sess, err := m.store.GetSession(ctx, c.Value)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			log.FromContext(ctx).ErrorContext(ctx, "Failed to load session", log.FieldError, err)
		}
		return core.Session{}, false
	}
	if sess.Expired(m.now()) {
		_ = m.store.DeleteSession(ctx, sess.ID)
		return core.Session{}, false
	}
	return sess, true
}

// Middleware rejects requests without a live session. htmx requests get an
// HX-Redirect header so the whole page navigates to the login form.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := m.Current(r)
		if !ok {
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", m.loginPath)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, m.loginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess core.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session attached by Middleware.
func SessionFromContext(ctx context.Context) (core.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(core.Session)
	return sess, ok
}

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"budget/internal/core"
)

const (
	pbkdf2Hash = "pbkdf2:sha256:1000$NaCl4salt$ce0ec0219a61c56a6f295f5e6a108b30318117efa13528fb08c3ac68200630ba"
	scryptHash = "scrypt:1024:8:1$NaCl4salt$2abdcd15c62a5830ca712a485e2a08979a4a8eaf9d16d06e4b77fcee2f9ba39acd9702f7d3bc56f83930fecc9ae1aa96710233dd560d764c6891610fe4a5ff9d"
)

func TestPasswordVerifier(t *testing.T) {
	bcryptHash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		want     bool
	}{
		{"bcrypt match", bcryptHash, "hunter2", true},
		{"bcrypt mismatch", bcryptHash, "hunter3", false},
		{"werkzeug pbkdf2 match", pbkdf2Hash, "hunter2", true},
		{"werkzeug pbkdf2 mismatch", pbkdf2Hash, "wrong", false},
		{"werkzeug scrypt match", scryptHash, "hunter2", true},
		{"werkzeug scrypt mismatch", scryptHash, "wrong", false},
		{"empty hash rejects", "", "hunter2", false},
		{"empty hash rejects empty password", "", "", false},
		{"garbage hash", "not-a-hash", "hunter2", false},
		{"unknown digest", "pbkdf2:md4:1000$salt$00", "hunter2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPasswordVerifier(tt.hash).Verify(tt.password); got != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]core.Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]core.Session)}
}

func (m *memoryStore) CreateSession(_ context.Context, s core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryStore) GetSession(_ context.Context, id string) (core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return core.Session{}, core.ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func protected() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			http.Error(w, "no session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func loginCookie(t *testing.T, m *Manager) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if _, err := m.Login(context.Background(), rec); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	return cookies[0]
}

func TestMiddleware(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour, false)
	handler := m.Middleware(protected())

	t.Run("anonymous redirects to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want 303", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("Location = %q, want /login", loc)
		}
	})

	t.Run("anonymous htmx gets HX-Redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transactions", nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if got := rec.Header().Get("HX-Redirect"); got != "/login" {
			t.Errorf("HX-Redirect = %q, want /login", got)
		}
	})

	t.Run("unknown cookie redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "nope"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusSeeOther {
			t.Errorf("status = %d, want 303", rec.Code)
		}
	})

	t.Run("valid session passes", func(t *testing.T) {
		cookie := loginCookie(t, m)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestExpiredSessionRejected(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour, false)
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	cookie := loginCookie(t, m)
	m.now = func() time.Time { return start.Add(2 * time.Hour) }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	m.Middleware(protected()).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if _, err := store.GetSession(context.Background(), cookie.Value); err == nil {
		t.Error("expired session should be deleted")
	}
}

func TestLogout(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour, true)
	cookie := loginCookie(t, m)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	m.Logout(rec, req)

	if _, err := store.GetSession(context.Background(), cookie.Value); err == nil {
		t.Error("session should be deleted on logout")
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("expected cleared cookie, got %v", cleared)
	}
	if !cleared[0].Secure {
		t.Error("cookie should carry the Secure flag")
	}
}

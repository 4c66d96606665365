package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"shopify-app-auth/internal/domain"
	"shopify-app-auth/internal/ports"
)

// Session is a loaded browser session
type Session struct {
	ID    string
	State *domain.SessionState
}

// Options configures the session cookie
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager maps the session cookie to state kept in a SessionStore
type Manager struct {
	store ports.SessionStore
	opts  Options
}

// NewManager creates a session manager
func NewManager(store ports.SessionStore, opts Options) *Manager {
	return &Manager{store: store, opts: opts}
}

// Load returns the session identified by the request cookie, or a fresh one.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(m.opts.CookieName); err == nil && cookie.Value != "" {
		state, err := m.store.Get(r.Context(), cookie.Value)
		if err != nil {
			return nil, err
		}
		if state != nil {
			return &Session{ID: cookie.Value, State: state}, nil
		}
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, State: &domain.SessionState{}}, nil
}

// Save persists the session state and refreshes the cookie.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := m.store.Save(ctx, s.ID, s.State); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Renew moves the session state to a fresh ID and drops the old entry.
// Call it whenever the session gains privileges, such as after a login.
func (m *Manager) Renew(ctx context.Context, s *Session) error {
	id, err := newSessionID()
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return err
	}
	s.ID = id
	return nil
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Package session keeps per-browser auth state server-side: an opaque
// uuid travels in a cookie and the csrf state / access token live in an
// expiring in-memory cache. It implements auth.Session for the flow.
package session

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// CookieName carries the opaque session id.
const CookieName = "receipt_session"

// ErrDestroyed is returned when writing to a session that was already
// torn down by logout or cache expiry.
var ErrDestroyed = errors.New("session destroyed")

// Store holds all live sessions. Entries expire after the configured
// TTL; an expired session reads as "no session" on the next request.
type Store struct {
	sessions *gocache.Cache
	ttl      time.Duration
	secure   bool
}

// NewStore creates a session store whose entries expire after ttl.
// secure marks the cookie Secure for TLS deployments.
func NewStore(ttl time.Duration, secure bool) *Store {
	return &Store{
		sessions: gocache.New(ttl, 2*ttl),
		ttl:      ttl,
		secure:   secure,
	}
}

type state struct {
	mu        sync.Mutex
	csrfState string
	hasState  bool
	token     string
	hasToken  bool
	destroyed bool
}

// Session binds one browser's state to the store that owns it.
type Session struct {
	id    string
	store *Store
	data  *state
}

// Load returns the request's session, creating one (and setting the
// cookie) when the request carries none or the id has expired.
func (s *Store) Load(w http.ResponseWriter, r *http.Request) *Session {
	if existing, ok := s.Get(r); ok {
		return existing
	}

	id := uuid.NewString()
	data := &state{}
	s.sessions.Set(id, data, gocache.DefaultExpiration)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return &Session{id: id, store: s, data: data}
}

// Get returns the request's session without creating one.
func (s *Store) Get(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	value, ok := s.sessions.Get(cookie.Value)
	if !ok {
		return nil, false
	}
	return &Session{id: cookie.Value, store: s, data: value.(*state)}, true
}

// ClearCookie expires the session cookie on the client.
func (s *Store) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	return s.sessions.ItemCount()
}

// ID returns the opaque session id.
func (sn *Session) ID() string {
	return sn.id
}

func (sn *Session) State() (string, bool) {
	sn.data.mu.Lock()
	defer sn.data.mu.Unlock()
	return sn.data.csrfState, sn.data.hasState
}

func (sn *Session) SetState(state string) error {
	sn.data.mu.Lock()
	defer sn.data.mu.Unlock()
	if sn.data.destroyed {
		return ErrDestroyed
	}
	sn.data.csrfState, sn.data.hasState = state, true
	return nil
}

func (sn *Session) ClearState() error {
	sn.data.mu.Lock()
	defer sn.data.mu.Unlock()
	if sn.data.destroyed {
		return ErrDestroyed
	}
	sn.data.csrfState, sn.data.hasState = "", false
	return nil
}

func (sn *Session) Token() (string, bool) {
	sn.data.mu.Lock()
	defer sn.data.mu.Unlock()
	return sn.data.token, sn.data.hasToken
}

func (sn *Session) SetToken(token string) error {
	sn.data.mu.Lock()
	defer sn.data.mu.Unlock()
	if sn.data.destroyed {
		return ErrDestroyed
	}
	sn.data.token, sn.data.hasToken = token, true
	return nil
}

// Destroy drops the session from the store. Destroying twice is a no-op.
func (sn *Session) Destroy() error {
	sn.data.mu.Lock()
	defer sn.data.mu.Unlock()
	if sn.data.destroyed {
		return nil
	}
	sn.data.destroyed = true
	sn.data.csrfState, sn.data.hasState = "", false
	sn.data.token, sn.data.hasToken = "", false
	sn.store.sessions.Delete(sn.id)
	return nil
}

// Package auth implements the OAuth2 authorization-code engine: state
// generation, code-for-token exchange and identity resolution against a
// provider's endpoints. It never logs or renders; failures come back as
// the sentinel errors in internal/core for the caller to map.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/msilvprog7/receipt/internal/core"
)

// Session is the per-request mutable bag the flow reads and writes.
// The flow never owns its lifecycle; the HTTP layer creates it from the
// request cookie and the adapter persists it.
type Session interface {
	// State returns the pending CSRF state, if a login attempt is in flight.
	State() (string, bool)
	SetState(state string) error
	ClearState() error

	// Token returns the stored bearer token, if the session is authenticated.
	Token() (string, bool)
	SetToken(token string) error

	// Destroy ends the session. Destroying an already-destroyed session
	// is a no-op.
	Destroy() error
}

// Endpoints are the provider URLs the flow talks to.
type Endpoints struct {
	Authorize string
	Token     string
	Profile   string
}

// ProfileMapper turns a provider profile body into a resolved identity.
type ProfileMapper func(body []byte) (core.User, error)

// Flow orchestrates the three phases of the authorization-code dance.
// It is stateless between calls; everything mutable lives in the Session.
type Flow struct {
	clientID     string
	clientSecret string
	scope        string
	redirectURI  string

	endpoints Endpoints
	mapUser   ProfileMapper
	client    *http.Client
}

// NewFlow builds a flow for one provider. A nil client gets a default
// with a 10s timeout; pass your own to control transport policy.
func NewFlow(clientID, clientSecret, scope string, endpoints Endpoints, mapUser ProfileMapper, client *http.Client) *Flow {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Flow{
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		endpoints:    endpoints,
		mapUser:      mapUser,
		client:       client,
	}
}

// SetRedirectURI sets the callback URL registered with the provider.
// Called once at startup when the listen address is known.
func (f *Flow) SetRedirectURI(uri string) {
	f.redirectURI = uri
}

// Begin starts a login attempt: generates a fresh single-use state,
// stores it in the session and returns the provider authorize URL to
// redirect the user to.
func (f *Flow) Begin(session Session) (string, error) {
	state, err := newState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	if err := session.SetState(state); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrSessionPersistFailed, err)
	}

	u, err := url.Parse(f.endpoints.Authorize)
	if err != nil {
		return "", fmt.Errorf("authorize endpoint: %w", err)
	}
	q := u.Query()
	q.Set("client_id", f.clientID)
	q.Set("redirect_uri", f.redirectURI)
	q.Set("state", state)
	q.Set("scope", f.scope)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Complete finishes a login attempt from the provider callback. The
// stored state is single-use: it is cleared before the exchange, so a
// replayed callback fails with ErrInvalidState. A failed session write
// fails the whole operation with ErrSessionPersistFailed.
func (f *Flow) Complete(ctx context.Context, session Session, state, code string) error {
	stored, ok := session.State()
	if !ok || state == "" || state != stored {
		return core.ErrInvalidState
	}
	if err := session.ClearState(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrSessionPersistFailed, err)
	}

	token, err := f.exchange(ctx, code)
	if err != nil {
		return err
	}
	if err := session.SetToken(token); err != nil {
		return fmt.Errorf("%w: %v", core.ErrSessionPersistFailed, err)
	}
	return nil
}

func (f *Flow) exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", f.clientID)
	form.Set("client_secret", f.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", f.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoints.Token, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", core.ErrExchangeFailed, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AccessToken == "" {
		return "", fmt.Errorf("%w: malformed token body", core.ErrExchangeFailed)
	}
	return body.AccessToken, nil
}

// ResolveIdentity fetches the provider profile with the session's
// bearer token and maps it into a core.User.
func (f *Flow) ResolveIdentity(ctx context.Context, session Session) (core.User, error) {
	token, ok := session.Token()
	if !ok || token == "" {
		return core.User{}, core.ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoints.Profile, nil)
	if err != nil {
		return core.User{}, fmt.Errorf("%w: %v", core.ErrIdentityFetchFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.client.Do(req)
	if err != nil {
		return core.User{}, fmt.Errorf("%w: %v", core.ErrIdentityFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return core.User{}, fmt.Errorf("%w: profile endpoint returned %d", core.ErrIdentityFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return core.User{}, fmt.Errorf("%w: %v", core.ErrIdentityFetchFailed, err)
	}
	return f.mapUser(body)
}

// End logs the session out. A request without a session succeeds
// trivially so logout stays idempotent.
func (f *Flow) End(session Session) error {
	if session == nil {
		return nil
	}
	if err := session.Destroy(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrSessionDestroyFailed, err)
	}
	return nil
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

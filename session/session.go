// Package session owns the authenticated identity for this client. Every
// other component gates its fetches on the session: no user, no I/O, and a
// user change invalidates anything derived from the previous identity.
package session

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ecoTrackClient/gateway"
	"ecoTrackClient/internal/types/user"
)

// Gateway is the slice of the remote gateway the session needs: the auth
// calls plus custody of the bearer token.
type Gateway interface {
	Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error)
	Register(ctx context.Context, req *user.RegisterRequest) (*user.AuthResponse, error)
	SetToken(token string)
	ClearToken()
}

type Session struct {
	gw Gateway

	mu        sync.Mutex
	user      *user.User
	loading   bool
	expiresAt time.Time
	epoch     uint64
}

func New(gw Gateway) *Session {
	return &Session{gw: gw}
}

func (s *Session) Login(ctx context.Context, email, password string) (*user.User, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.gw.Login(ctx, &user.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.apply(resp)
}

func (s *Session) Register(ctx context.Context, req *user.RegisterRequest) (*user.User, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.gw.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.apply(resp)
}

// Logout clears the identity and bumps the epoch so in-flight responses tagged
// with the old identity are discarded when they land.
func (s *Session) Logout() {
	s.gw.ClearToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.expiresAt = time.Time{}
	s.epoch++
}

// Current returns the authenticated user, or false while logged out.
func (s *Session) Current() (*user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, false
	}
	return s.user, true
}

// UserID is a convenience for components that only need the identifier.
func (s *Session) UserID() (int, bool) {
	u, ok := s.Current()
	if !ok {
		return 0, false
	}
	return u.ID, true
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Epoch increments on every identity change. Components snapshot it before a
// fetch and drop the response on mismatch.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// ExpiresAt reports the access token expiry when the token carried one.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiresAt.IsZero() {
		return time.Time{}, false
	}
	return s.expiresAt, true
}

func (s *Session) apply(resp *user.AuthResponse) (*user.User, error) {
	// A 2xx auth response without a user is malformed; don't keep its token
	// and don't touch the session.
	if resp.User == nil {
		return nil, &gateway.RemoteError{Status: http.StatusOK, Message: "auth response did not include a user"}
	}
	s.gw.SetToken(resp.AccessToken)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = resp.User
	s.expiresAt = tokenExpiry(resp.AccessToken, resp.User.ID)
	s.epoch++
	return s.user, nil
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// tokenExpiry decodes the JWT claims without verifying the signature;
// verification belongs to the backend. Used only for expiry display and a
// sanity check that the token subject matches the returned user.
func tokenExpiry(token string, userID int) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		log.Printf("session: could not decode access token claims: %v", err)
		return time.Time{}
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		if id, err := strconv.Atoi(sub); err == nil && id != userID {
			log.Printf("session: token subject %d does not match user %d", id, userID)
		}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

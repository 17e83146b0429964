package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/coffee-storefront/internal/infrastructure/storage"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims reads claims from a token without verifying its signature. The
// client never holds the signing secret; the API verifies every call.
func ParseClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}

// Session is the client's identity state. It is the only place that knows
// whether the visitor is authenticated.
type Session struct {
	mu     sync.RWMutex
	store  storage.Storage
	token  string
	claims *Claims
	now    func() time.Time
}

// NewSession restores a persisted token. An unreadable token is discarded.
func NewSession(store storage.Storage) (*Session, error) {
	s := &Session{store: store, now: time.Now}

	token, ok, err := store.GetItem(storage.KeyAuthToken)
	if err != nil {
		return nil, err
	}
	if !ok || token == "" {
		return s, nil
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return s, store.RemoveItem(storage.KeyAuthToken)
	}
	s.token = token
	s.claims = claims
	return s, nil
}

// Login stores an access token issued by the API.
func (s *Session) Login(token string) error {
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired(claims) {
		return ErrExpiredToken
	}
	if err := s.store.SetItem(storage.KeyAuthToken, token); err != nil {
		return err
	}
	s.token = token
	s.claims = claims
	return nil
}

// Logout forgets the token.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.claims = nil
	return s.store.RemoveItem(storage.KeyAuthToken)
}

// Reload re-reads the token after another process changed it.
func (s *Session) Reload() error {
	token, ok, err := s.store.GetItem(storage.KeyAuthToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.claims = "", nil
	if !ok || token == "" {
		return nil
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}
	s.token = token
	s.claims = claims
	return nil
}

// IsLoggedIn reports whether a present, unexpired token is held.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && !s.expired(s.claims)
}

// Token returns the bearer token, or "" when logged out or expired.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.expired(s.claims) {
		return ""
	}
	return s.token
}

// Claims returns the current claims while logged in.
func (s *Session) Claims() (*Claims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.expired(s.claims) {
		return nil, false
	}
	c := *s.claims
	return &c, true
}

// SetClock replaces the time source
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Session) expired(c *Claims) bool {
	if c == nil {
		return true
	}
	if c.ExpiresAt == nil {
		return false
	}
	return !s.now().Before(c.ExpiresAt.Time)
}

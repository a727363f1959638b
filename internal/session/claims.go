package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when there is no token to inspect.
var ErrNoSession = errors.New("not signed in")

// Claims is what the client can read from its own token. Nothing here is
// verified; the signature is checked by the server only.
type Claims struct {
	Subject     string
	Issuer      string
	ID          string
	Authorities []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the token's exp is before now. Tokens without exp
// never expire client-side.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Remaining returns the time left until exp, or 0.
func (c Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() || now.After(c.ExpiresAt) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

type tokenClaims struct {
	Authorities []string `json:"authorities,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a JWT without verifying it. Opaque tokens fail.
func ParseClaims(token string) (Claims, error) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, fmt.Errorf("token is not a readable JWT: %w", err)
	}

	c := Claims{
		Subject:     tc.Subject,
		Issuer:      tc.Issuer,
		ID:          tc.ID,
		Authorities: tc.Authorities,
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}

// Claims decodes the current token.
func (s *Store) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNoSession
	}
	return ParseClaims(token)
}

// Package session holds the authenticated identity gateway calls are made
// with, and persists it between runs.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptyToken = errors.New("session: empty token")

// Session is the token returned by sign-in together with the claims the
// front-ends need. The token is not verified locally; the API does that.
type Session struct {
	Token     string
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// Parse decodes the claims of an API token.
func Parse(token string) (*Session, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	s := &Session{Token: token}
	for _, k := range []string{"_id", "id", "sub"} {
		if v, ok := claims[k].(string); ok && v != "" {
			s.UserID = v
			break
		}
	}
	if v, ok := claims["username"].(string); ok {
		s.Username = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

// Expired reports whether the token has an expiry at or before now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Active reports whether s can be used for authenticated calls.
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.Token != "" && !s.Expired(now)
}

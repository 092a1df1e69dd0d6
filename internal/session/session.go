// Package session carries authenticated caller state explicitly. It replaces
// the browser client's ambient token storage and global "last dropped files"
// slot with values handed to controllers at construction.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gitpusher/pushkit/internal/models"
)

// Session identifies the authenticated caller for one tool invocation.
type Session struct {
	Token string
	Email string
	Plan  models.PlanTier

	expiresAt time.Time
}

// New builds a Session from a bearer token. The token's claims are parsed
// without signature verification, purely to read expiry and subject; the
// backend remains the authority on validity.
func New(token string, plan models.PlanTier) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	s := &Session{Token: token, Plan: plan}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			s.expiresAt = exp.Time
		}
		if sub, err := claims.GetSubject(); err == nil {
			s.Email = sub
		}
	}
	return s, nil
}

// Anonymous returns a session with no token. Support canned replies are the
// only feature available without one.
func Anonymous() *Session {
	return &Session{Plan: models.PlanFree}
}

// Authenticated reports whether the session carries a token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Expired reports whether the token's exp claim has passed. Tokens without
// a readable expiry are assumed live; the backend will reject them with a
// 401 if not.
func (s *Session) Expired() bool {
	if s == nil || s.expiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.expiresAt)
}

// ExpiresAt returns the token expiry, zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.expiresAt
}

// Handoff carries staged input from a landing flow into the workflow
// controller, replacing the original's implicit global slot.
type Handoff struct {
	Files       []models.StagedFile
	Description string
}

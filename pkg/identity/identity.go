// Package identity supplies the identity of the signed-in caller. Acquiring a
// session is outside this module; suppliers only read what the host provides.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ErrNoSubject is returned when a session token carries no subject claim.
var ErrNoSubject = errors.New("token has no subject")

// Supplier returns the current caller. An empty string means anonymous.
type Supplier interface {
	Current() string
}

// Static is a fixed caller, safe to swap at runtime.
type Static struct {
	mu sync.RWMutex
	id string
}

func NewStatic(id string) *Static {
	return &Static{id: strings.TrimSpace(id)}
}

func (s *Static) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Set changes the caller, e.g. after sign-in or sign-out.
func (s *Static) Set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = strings.TrimSpace(id)
}

// Func adapts a plain function.
type Func func() string

func (f Func) Current() string {
	return strings.TrimSpace(f())
}

// TokenSupplier reads the caller from the subject of a session token. The
// token is not verified here; the remote verifies it on every call.
type TokenSupplier struct {
	token   string
	subject string
}

func FromToken(token string) (*TokenSupplier, error) {
	sub, err := Subject(token)
	if err != nil {
		return nil, err
	}
	return &TokenSupplier{token: token, subject: sub}, nil
}

func (t *TokenSupplier) Current() string {
	return t.subject
}

// Token returns the raw token for the connection's Authorization header.
func (t *TokenSupplier) Token() string {
	return t.token
}

// Subject parses token without verifying it and returns its trimmed sub claim.
func Subject(token string) (string, error) {
	parser := gojwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}

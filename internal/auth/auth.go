// Package auth carries the caller identity established by the upstream
// gateway and checks the shared secret used by the generation worker.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"
)

// RoleAdmin is the role that unlocks moderation and dashboard operations
const RoleAdmin = "admin"

// Principal identifies an authenticated caller
type Principal struct {
	ID       string
	Username string
	Role     string
}

// IsAdmin reports whether the principal has the admin role
func (p *Principal) IsAdmin() bool {
	return p != nil && strings.EqualFold(p.Role, RoleAdmin)
}

// Owns reports whether the principal may act on content labelled author
func (p *Principal) Owns(author string) bool {
	return p != nil && p.Username != "" && p.Username == author
}

type principalKey struct{}

// WithPrincipal returns a context carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, or nil
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// SecretMatches compares a presented secret against the configured one in
// constant time. An empty configured secret never matches.
func SecretMatches(configured, presented string) bool {
	if configured == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}

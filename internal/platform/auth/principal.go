// Package auth resolves the caller's identity once per request and hands the
// rest of the system an explicit capability token (Principal) instead of a
// free-form role string.
package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of capabilities a user can act with.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role string coming from storage or a token claim.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Principal identifies the authenticated caller. It is resolved by the JWT
// middleware and passed explicitly into every guarded operation.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsDoctor() bool  { return p.Role == RoleDoctor }
func (p Principal) IsPatient() bool { return p.Role == RolePatient }

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the principal resolved by the middleware.
// The second return value is false for unauthenticated requests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

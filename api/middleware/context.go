package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

type principalKey struct{}

// Principal is the authenticated caller. CustomerID is nil for staff.
type Principal struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	CustomerID *uuid.UUID
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// UserIDFromContext is empty for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok && p.UserID != uuid.Nil {
		return p.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}

func CustomerIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok && p.CustomerID != nil {
		return p.CustomerID.String()
	}
	return ""
}

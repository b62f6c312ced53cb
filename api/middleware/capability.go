package middleware

import (
	"net/http"

	"github.com/secretoheladeria/heladeria-backend/api/responses"
	"github.com/secretoheladeria/heladeria-backend/internal/access"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
)

// RequireCapability rejects requests whose role is not granted the capability.
func RequireCapability(capability access.Capability, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := access.Check(RoleFromContext(r.Context()), capability)
			if !decision.Allowed {
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"capability": string(decision.Capability),
						"reason":     decision.Reason,
					})
					logg.Warn(ctx, "access.denied")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions").
					WithDetails(map[string]any{"capability": string(decision.Capability)}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/secretoheladeria/heladeria-backend/api/responses"
	pkgAuth "github.com/secretoheladeria/heladeria-backend/pkg/auth"
	"github.com/secretoheladeria/heladeria-backend/pkg/auth/session"
	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
)

// Auth admits requests carrying a valid bearer token whose refresh session is
// still alive, and stores the caller as a Principal on the context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			deny := func(err error, msg string) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
			}

			token, ok := bearerToken(r)
			if !ok {
				deny(nil, "missing credentials")
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				deny(err, "invalid token")
				return
			}
			if claims.ID == "" {
				deny(nil, "missing session id")
				return
			}
			if sessions != nil {
				alive, err := sessions.HasSession(ctx, claims.ID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !alive {
					deny(nil, "session unavailable")
					return
				}
			}

			ctx = WithPrincipal(ctx, Principal{
				UserID:     claims.UserID,
				Role:       claims.Role,
				CustomerID: claims.CustomerID,
			})
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <t>" in any case, or a bare token.
func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, found := strings.Cut(raw, " "); found && strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	}
	return raw, raw != ""
}

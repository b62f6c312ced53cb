package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/secretoheladeria/heladeria-backend/pkg/auth"
	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

var authCfg = config.JWTConfig{Secret: "secret", Issuer: "heladeria", ExpirationMinutes: 60}

type sessionsStub struct {
	alive bool
	err   error
}

func (s sessionsStub) HasSession(context.Context, string) (bool, error) {
	return s.alive, s.err
}

func signedToken(t *testing.T, role enums.UserRole, customerID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(authCfg, time.Now(), auth.AccessTokenPayload{
		UserID:     uuid.New(),
		CustomerID: customerID,
		Role:       role,
		JTI:        uuid.NewString(),
	})
	require.NoError(t, err)
	return token
}

func TestAuthRejections(t *testing.T) {
	valid := signedToken(t, enums.UserRoleCustomer, nil)

	cases := []struct {
		name     string
		header   string
		sessions sessionsStub
		want     int
	}{
		{"no header", "", sessionsStub{alive: true}, http.StatusUnauthorized},
		{"bearer without token", "Bearer   ", sessionsStub{alive: true}, http.StatusUnauthorized},
		{"garbage token", "Bearer invalid", sessionsStub{alive: true}, http.StatusUnauthorized},
		{"revoked session", "Bearer " + valid, sessionsStub{alive: false}, http.StatusUnauthorized},
		{"session store down", "Bearer " + valid, sessionsStub{err: errors.New("redis down")}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := Auth(authCfg, tc.sessions, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tc.want, rec.Code)
			require.False(t, called)
		})
	}
}

func TestAuthStoresPrincipal(t *testing.T) {
	customerID := uuid.New()

	cases := []struct {
		name         string
		role         enums.UserRole
		customer     *uuid.UUID
		header       func(string) string
		wantCustomer string
	}{
		{"customer token", enums.UserRoleCustomer, &customerID, func(tok string) string { return "Bearer " + tok }, customerID.String()},
		{"staff token", enums.UserRoleMarketing, nil, func(tok string) string { return "bearer " + tok }, ""},
		{"bare token", enums.UserRoleAdmin, nil, func(tok string) string { return tok }, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got Principal
			h := Auth(authCfg, sessionsStub{alive: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var ok bool
				got, ok = PrincipalFromContext(r.Context())
				require.True(t, ok)
				require.Equal(t, tc.wantCustomer, CustomerIDFromContext(r.Context()))
				require.Equal(t, got.UserID.String(), UserIDFromContext(r.Context()))
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tc.header(signedToken(t, tc.role, tc.customer)))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusNoContent, rec.Code)
			require.Equal(t, tc.role, got.Role)
			require.NotEqual(t, uuid.Nil, got.UserID)
		})
	}
}

func TestAnonymousContextAccessors(t *testing.T) {
	ctx := context.Background()
	_, ok := PrincipalFromContext(ctx)
	require.False(t, ok)
	require.Empty(t, UserIDFromContext(ctx))
	require.Empty(t, RoleFromContext(ctx))
	require.Empty(t, CustomerIDFromContext(ctx))
}

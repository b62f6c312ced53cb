package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
)

type memIdempotency map[string]string

func (m memIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m memIdempotency) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m[key], _ = value.(string)
	return nil
}

func (m memIdempotency) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m[key]; ok {
		return false, nil
	}
	return true, m.Set(ctx, key, value, ttl)
}

func (m memIdempotency) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m, k)
	}
	return nil
}

func (m memIdempotency) IdempotencyKey(scope, id string) string { return scope + "#" + id }

// send runs one POST through mw as if chi had matched path, optionally as an
// authenticated user.
func send(mw func(http.Handler) http.Handler, h http.Handler, path, key, body string, user uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{path}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if user != uuid.Nil {
		ctx = WithPrincipal(ctx, Principal{UserID: user})
	}
	rec := httptest.NewRecorder()
	mw(h).ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestRouteTTL(t *testing.T) {
	cases := []struct {
		method, pattern string
		want            time.Duration
		ok              bool
	}{
		{http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/auth/register", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/marketing/promotions", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/admin/products", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/admin/categories", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/cart/items", 0, false},
		{http.MethodGet, "/api/v1/checkout", 0, false},
		{http.MethodPost, "/api/v1/auth/login", 0, false},
	}
	for _, tc := range cases {
		ttl, ok := routeTTL(tc.method, tc.pattern)
		require.Equal(t, tc.ok, ok, "%s %s", tc.method, tc.pattern)
		require.Equal(t, tc.want, ttl, "%s %s", tc.method, tc.pattern)
	}
}

func TestIdempotencyRequiresKey(t *testing.T) {
	called := false
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	rec := send(Idempotency(memIdempotency{}, nil), h, "/api/v1/auth/register", "", `{}`, uuid.Nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, called)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	mw := Idempotency(memIdempotency{}, nil)
	calls := 0
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	first := send(mw, h, "/api/v1/auth/register", "abc", `{"email":"a@b.cl"}`, uuid.Nil)
	require.Equal(t, http.StatusAccepted, first.Code)
	require.Empty(t, first.Header().Get(replayedHeader))

	again := send(mw, h, "/api/v1/auth/register", "abc", `{"email":"a@b.cl"}`, uuid.Nil)
	require.Equal(t, http.StatusAccepted, again.Code)
	require.Equal(t, "application/json", again.Header().Get("Content-Type"))
	require.Equal(t, "true", again.Header().Get(replayedHeader))
	require.JSONEq(t, `{"ok":true}`, again.Body.String())
	require.Equal(t, 1, calls)
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	mw := Idempotency(memIdempotency{}, nil)
	calls := 0
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	send(mw, h, "/api/v1/checkout", "same", `{}`, uuid.New())
	send(mw, h, "/api/v1/checkout", "same", `{}`, uuid.New())
	require.Equal(t, 2, calls)
}

func TestIdempotencyRejectsDuplicateInFlight(t *testing.T) {
	mw := Idempotency(memIdempotency{}, nil)
	user := uuid.New()

	var dup *httptest.ResponseRecorder
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dup = send(mw, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("duplicate must not reach the handler")
		}), "/api/v1/checkout", "double-click", `{}`, user)
		w.WriteHeader(http.StatusCreated)
	})

	first := send(mw, h, "/api/v1/checkout", "double-click", `{}`, user)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusConflict, dup.Code)
	require.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, dup))
}

func TestIdempotencyRejectsReusedKeyWithNewBody(t *testing.T) {
	mw := Idempotency(memIdempotency{}, nil)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	send(mw, h, "/api/v1/auth/register", "xyz", `{"email":"a@b.cl"}`, uuid.Nil)
	rec := send(mw, h, "/api/v1/auth/register", "xyz", `{"email":"c@d.cl"}`, uuid.Nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyForgetsServerErrors(t *testing.T) {
	store := memIdempotency{}
	mw := Idempotency(store, nil)
	calls := 0
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	user := uuid.New()
	require.Equal(t, http.StatusBadGateway, send(mw, h, "/api/v1/checkout", "retry-me", `{}`, user).Code)
	require.Empty(t, store)
	require.Equal(t, http.StatusCreated, send(mw, h, "/api/v1/checkout", "retry-me", `{}`, user).Code)
	require.Len(t, store, 1)
	require.Equal(t, 2, calls)
}

// racingStore lets another request claim the key between the lookup and
// SetNX, leaving the marker that request would write.
type racingStore struct {
	memIdempotency
	winnerBody string
}

func (s racingStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	marker, _ := json.Marshal(idempotencyRecord{RequestHash: hashBody([]byte(s.winnerBody))})
	s.memIdempotency[key] = string(marker)
	return s.memIdempotency.SetNX(ctx, key, value, ttl)
}

func TestIdempotencyLostClaimChecksWinnerBody(t *testing.T) {
	cases := []struct {
		name       string
		winnerBody string
		wantCode   pkgerrors.Code
	}{
		{"same body waits on the winner", `{"note":"a"}`, pkgerrors.CodeConflict},
		{"different body is a reused key", `{"note":"b"}`, pkgerrors.CodeIdempotency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := racingStore{memIdempotency: memIdempotency{}, winnerBody: tc.winnerBody}
			h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("losing request must not reach the handler")
			})

			rec := send(Idempotency(store, nil), h, "/api/v1/checkout", "race", `{"note":"a"}`, uuid.New())

			require.Equal(t, http.StatusConflict, rec.Code)
			require.Equal(t, string(tc.wantCode), errorCode(t, rec))
		})
	}
}

package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/secretoheladeria/heladeria-backend/internal/auth"
	"github.com/secretoheladeria/heladeria-backend/internal/cart"
	"github.com/secretoheladeria/heladeria-backend/internal/catalog"
	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/internal/reports"
	"github.com/secretoheladeria/heladeria-backend/internal/sales"
	pkgAuth "github.com/secretoheladeria/heladeria-backend/pkg/auth"
	"github.com/secretoheladeria/heladeria-backend/pkg/auth/session"
	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
	"github.com/secretoheladeria/heladeria-backend/pkg/metrics"
	"github.com/secretoheladeria/heladeria-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubCatalog struct {
	catalog.Service
	deleted []uuid.UUID
}

func (s *stubCatalog) ListCatalog(context.Context) ([]catalog.CategoryGroup, error) {
	return []catalog.CategoryGroup{{Label: "Helados", Products: []catalog.ProductDTO{{Name: "Chocolate"}}}}, nil
}

func (s *stubCatalog) GetProduct(_ context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubCatalog) DeleteProduct(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubCart struct {
	cart.Service
	scopes []cart.Scope
}

func (s *stubCart) View(_ context.Context, scope cart.Scope) (*cart.View, error) {
	s.scopes = append(s.scopes, scope)
	return &cart.View{Lines: []cart.Line{}, Total: decimal.Zero}, nil
}

type stubCheckout struct {
	calls int
}

func (s *stubCheckout) FinalizeOrder(context.Context, cart.Scope) (*sales.SaleDTO, error) {
	s.calls++
	return &sales.SaleDTO{ID: uuid.New(), Total: decimal.RequireFromString("20")}, nil
}

type stubHistory struct {
	params pagination.Params
}

func (s *stubHistory) ListForUser(_ context.Context, _ uuid.UUID, params pagination.Params) (*pagination.Page[sales.SaleDTO], error) {
	s.params = params
	return &pagination.Page[sales.SaleDTO]{Items: []sales.SaleDTO{}}, nil
}

type stubPromotions struct {
	promotions.Service
	created []promotions.CreateInput
}

func (s *stubPromotions) Create(_ context.Context, input promotions.CreateInput) (*promotions.PromotionDTO, error) {
	s.created = append(s.created, input)
	return &promotions.PromotionDTO{ID: uuid.New(), Name: input.Name}, nil
}

type stubReports struct {
	reports.Service
}

func (stubReports) Dashboard(context.Context) (*reports.Dashboard, error) {
	return &reports.Dashboard{TotalSales: 3}, nil
}

type stubAuth struct {
	auth.Service
}

func (stubAuth) Login(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

type memoryIdempotency struct {
	data map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryIdempotency) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type harness struct {
	handler    http.Handler
	cfg        *config.Config
	catalog    *stubCatalog
	cart       *stubCart
	checkout   *stubCheckout
	history    *stubHistory
	promotions *stubPromotions
}

func newHarness(t *testing.T) harness {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "heladeria", ExpirationMinutes: 15},
	}
	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	checkoutMetrics.ObserveFinalize("ok", time.Millisecond)

	h := harness{
		cfg:        cfg,
		catalog:    &stubCatalog{},
		cart:       &stubCart{},
		checkout:   &stubCheckout{},
		history:    &stubHistory{},
		promotions: &stubPromotions{},
	}
	h.handler = NewRouter(Deps{
		Config:      cfg,
		Gatherer:    registry,
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Sessions:    stubSessions{},
		Idempotency: &memoryIdempotency{data: map[string]string{}},
		Auth:        stubAuth{},
		Catalog:     h.catalog,
		Cart:        h.cart,
		Checkout:    h.checkout,
		Orders:      h.history,
		Promotions:  h.promotions,
		Reports:     stubReports{},
	})
	return h
}

func (h harness) token(t *testing.T, role enums.UserRole) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgAuth.MintAccessToken(h.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return token, userID
}

func (h harness) do(method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/live", "", "", nil).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/ready", "", "", nil).Code)

	rec := h.do(http.MethodGet, "/metrics", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "heladeria_checkout_finalize_total")
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	handler := NewRouter(Deps{Config: cfg, DB: stubPinger{}, Redis: stubPinger{err: fmt.Errorf("connection refused")}})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCatalogIsPublic(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/catalog/products", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Chocolate")

	rec = h.do(http.MethodGet, "/api/v1/catalog/products/"+uuid.NewString(), "", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/catalog/products/not-a-uuid", "", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartRequiresAuthentication(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/cart", "", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartUsesCallerScope(t *testing.T) {
	h := newHarness(t)
	token, userID := h.token(t, enums.UserRoleCustomer)

	rec := h.do(http.MethodGet, "/api/v1/cart", token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, h.cart.scopes, 1)
	require.Equal(t, cart.ScopeForUser(userID), h.cart.scopes[0])
}

func TestCapabilitiesGateRoutes(t *testing.T) {
	h := newHarness(t)
	customer, _ := h.token(t, enums.UserRoleCustomer)
	marketing, _ := h.token(t, enums.UserRoleMarketing)

	rec := h.do(http.MethodGet, "/api/v1/marketing/dashboard", customer, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, string(pkgerrors.CodeForbidden), errorCode(t, rec))

	rec = h.do(http.MethodGet, "/api/v1/marketing/dashboard", marketing, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/cart", marketing, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/admin/products/"+uuid.NewString(), marketing, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, h.catalog.deleted)
}

func TestAdminDeletesProduct(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.token(t, enums.UserRoleAdmin)
	id := uuid.New()

	rec := h.do(http.MethodDelete, "/api/v1/admin/products/"+id.String(), admin, "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []uuid.UUID{id}, h.catalog.deleted)
}

func TestCheckoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	customer, _ := h.token(t, enums.UserRoleCustomer)

	rec := h.do(http.MethodPost, "/api/v1/checkout", customer, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, h.checkout.calls)

	headers := map[string]string{"Idempotency-Key": "pedido-1"}
	first := h.do(http.MethodPost, "/api/v1/checkout", customer, "", headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := h.do(http.MethodPost, "/api/v1/checkout", customer, "", headers)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, h.checkout.calls)
}

func TestOrdersPassPagination(t *testing.T) {
	h := newHarness(t)
	customer, _ := h.token(t, enums.UserRoleCustomer)

	rec := h.do(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", customer, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pagination.Params{Limit: 5, Cursor: "abc"}, h.history.params)

	rec = h.do(http.MethodGet, "/api/v1/orders?limit=500", customer, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePromotionParsesRequest(t *testing.T) {
	h := newHarness(t)
	marketing, _ := h.token(t, enums.UserRoleMarketing)
	productID := uuid.New()
	body := fmt.Sprintf(`{"name":"Otoño","type":"percentage","discount_value":"15","start_date":"2026-10-01","end_date":"2026-10-31","product_ids":["%s"]}`, productID)

	rec := h.do(http.MethodPost, "/api/v1/marketing/promotions", marketing, body, map[string]string{"Idempotency-Key": "promo-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, h.promotions.created, 1)
	got := h.promotions.created[0]
	require.Equal(t, enums.PromotionTypePercentage, got.Type)
	require.Equal(t, "15", got.DiscountValue.String())
	require.Equal(t, []uuid.UUID{productID}, got.ProductIDs)
	require.Equal(t, "2026-10-31", got.EndDate.Format("2006-01-02"))

	bad := strings.Replace(body, "2026-10-31", "31/10/2026", 1)
	rec = h.do(http.MethodPost, "/api/v1/marketing/promotions", marketing, bad, map[string]string{"Idempotency-Key": "promo-2"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginErrorsAreUnauthorized(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/v1/auth/login", "", `{"email":"nadie@heladeria.cl","password":"x"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", `{"email":"no-email"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"warehouse/internal/config"
	"warehouse/internal/domain"
	"warehouse/internal/infra/auth/oidc"
	"warehouse/internal/infra/auth/revocation"
	"warehouse/internal/infra/memstore"
	"warehouse/internal/infra/metrics"
	"warehouse/internal/infra/ratelimit"
	"warehouse/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

const testSecret = "warehouse-test-secret"

type testEnv struct {
	t        *testing.T
	cfg      config.Config
	server   *Server
	accounts *memstore.Accounts
	products *memstore.Products
}

func testConfig() config.Config {
	return config.Config{
		Version:                "test",
		JWTHMACSecret:          testSecret,
		JWTClockSkewSecs:       60,
		RateLimitWindowSeconds: 900,
		RateLimitGeneral:       500,
		RateLimitAuth:          5,
		RateLimitAdmin:         200,
		RateLimitProduct:       300,
		MetricsEnabled:         true,
	}
}

func seedAccounts() []domain.Account {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Account{
		{ID: "admin-1", Email: "admin@example.com", Name: "Ada", Role: domain.RoleAdmin, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "cust-1", Email: "c1@example.com", Name: "Cy", Role: domain.RoleCustomer, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "cust-2", Email: "c2@example.com", Name: "Cleo", Role: domain.RoleCustomer, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "inactive-1", Email: "gone@example.com", Name: "Ida", Role: domain.RoleCustomer, IsActive: false, CreatedAt: now, UpdatedAt: now},
	}
}

func newTestEnv(t *testing.T, mutate func(cfg *config.Config, deps *ServerDeps)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	accounts := memstore.NewAccounts(seedAccounts()...)
	products := memstore.NewProducts()
	revocations := revocation.NewMemoryList()
	verifier, err := oidc.NewVerifier(cfg, oidc.WithRevocations(revocations))
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	deps := ServerDeps{
		Pipeline:    usecase.NewAuthPipeline(verifier, accounts),
		Accounts:    usecase.NewAccountService(accounts, revocations),
		Products:    usecase.NewProductService(products),
		Inventory:   usecase.NewInventoryService(memstore.NewInventory(), products),
		Orders:      usecase.NewOrderService(memstore.NewOrders(), products),
		RateLimiter: ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{}),
		Metrics:     metrics.New(cfg.MetricsEnabled),
		Logger:      zaptest.NewLogger(t),
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	return &testEnv{
		t:        t,
		cfg:      cfg,
		server:   NewServerWithDeps(cfg, deps),
		accounts: accounts,
		products: products,
	}
}

func (e *testEnv) token(subject string) string {
	return e.tokenAt(subject, time.Now().Add(-time.Minute), time.Now().Add(time.Hour))
}

func (e *testEnv) tokenAt(subject string, issuedAt, expiresAt time.Time) string {
	e.t.Helper()
	tok, err := oidc.IssueHS256(e.cfg, domain.IdentityClaim{
		SubjectID: subject,
		Email:     subject + "@example.com",
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		e.t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedProduct(name string) domain.Product {
	e.t.Helper()
	now := time.Now().UTC()
	product, err := e.products.Create(context.Background(), domain.Product{
		Name: name, Price: 10, Category: domain.CategoryOther, Active: true, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		e.t.Fatalf("seed product: %v", err)
	}
	return product
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	if resp.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, resp.Code, resp.Message)
	}
	return resp
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestWireOutcomes(t *testing.T) {
	env := newTestEnv(t, nil)
	other := testConfig()
	other.JWTHMACSecret = "some-other-secret"
	forged, err := oidc.IssueHS256(other, domain.IdentityClaim{SubjectID: "admin-1", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("issue forged: %v", err)
	}
	expired := env.tokenAt("cust-1", time.Now().Add(-3*time.Hour), time.Now().Add(-2*time.Hour))

	cases := []struct {
		name    string
		header  string
		status  int
		code    string
		message string
	}{
		{name: "no header", status: http.StatusUnauthorized, code: "UNAUTHENTICATED", message: "authentication required"},
		{name: "wrong scheme", header: "Basic YWRtaW46YWRtaW4=", status: http.StatusUnauthorized, code: "UNAUTHENTICATED", message: "authentication required"},
		{name: "garbage", header: "Bearer not-a-jwt", status: http.StatusUnauthorized, code: "INVALID_TOKEN", message: "invalid token"},
		{name: "forged", header: "Bearer " + forged, status: http.StatusUnauthorized, code: "INVALID_TOKEN", message: "invalid token"},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized, code: "TOKEN_EXPIRED"},
		{name: "unknown account", header: "Bearer " + env.token("ghost"), status: http.StatusForbidden, code: "FORBIDDEN", message: "access denied"},
		{name: "inactive account", header: "Bearer " + env.token("inactive-1"), status: http.StatusForbidden, code: "FORBIDDEN", message: "access denied"},
		{name: "customer on admin route", header: "Bearer " + env.token("cust-1"), status: http.StatusForbidden, code: "FORBIDDEN", message: "access denied"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			env.server.Handler().ServeHTTP(rec, req)
			resp := expectError(t, rec, tc.status, tc.code)
			if tc.message != "" && resp.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, resp.Message)
			}
		})
	}

	rec := env.do(http.MethodGet, "/api/orders", env.token("admin-1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin should list orders, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownAndInactiveAccountsAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t, nil)
	ghost := env.do(http.MethodGet, "/api/users/ghost", env.token("ghost"), nil)
	inactive := env.do(http.MethodGet, "/api/users/inactive-1", env.token("inactive-1"), nil)
	if ghost.Code != inactive.Code || ghost.Body.String() != inactive.Body.String() {
		t.Fatalf("responses differ: %d %s vs %d %s", ghost.Code, ghost.Body.String(), inactive.Code, inactive.Body.String())
	}
}

func TestDiscloseAccountState(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config, _ *ServerDeps) {
		cfg.DiscloseAccountState = true
	})
	expectError(t, env.do(http.MethodGet, "/api/orders", env.token("ghost"), nil), http.StatusNotFound, "USER_NOT_FOUND")
	expectError(t, env.do(http.MethodGet, "/api/orders", env.token("inactive-1"), nil), http.StatusForbidden, "ACCOUNT_INACTIVE")
}

func TestRevokeTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	old := env.token("cust-1")
	if rec := env.do(http.MethodGet, "/api/users/cust-1", old, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 before revocation, got %d", rec.Code)
	}

	expectError(t, env.do(http.MethodPost, "/api/users/cust-1/revoke-tokens", old, nil), http.StatusForbidden, "FORBIDDEN")
	rec := env.do(http.MethodPost, "/api/users/cust-1/revoke-tokens", env.token("admin-1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke failed: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, env.do(http.MethodGet, "/api/users/cust-1", old, nil), http.StatusUnauthorized, "TOKEN_REVOKED")

	fresh := env.tokenAt("cust-1", time.Now().Add(2*time.Second), time.Now().Add(time.Hour))
	if rec := env.do(http.MethodGet, "/api/users/cust-1", fresh, nil); rec.Code != http.StatusOK {
		t.Fatalf("token issued after revocation should pass, got %d: %s", rec.Code, rec.Body.String())
	}
	expectError(t, env.do(http.MethodPost, "/api/users/ghost/revoke-tokens", env.token("admin-1"), nil), http.StatusNotFound, "NOT_FOUND")
}

func TestOrderOwnership(t *testing.T) {
	env := newTestEnv(t, nil)
	product := env.seedProduct("Desk Lamp")

	body := map[string]any{
		"products":    []map[string]any{{"productId": product.ID, "quantity": 2, "price": 10}},
		"totalAmount": 20,
	}
	rec := env.do(http.MethodPost, "/api/orders", env.token("cust-1"), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: %d %s", rec.Code, rec.Body.String())
	}
	order := decode[orderResponse](t, rec)
	if order.UserID != "cust-1" || order.Status != "pending" {
		t.Fatalf("unexpected order %+v", order)
	}

	if rec := env.do(http.MethodGet, "/api/orders/"+order.ID, env.token("cust-1"), nil); rec.Code != http.StatusOK {
		t.Fatalf("owner read: %d", rec.Code)
	}
	expectError(t, env.do(http.MethodGet, "/api/orders/"+order.ID, env.token("cust-2"), nil), http.StatusForbidden, "FORBIDDEN")
	if rec := env.do(http.MethodGet, "/api/orders/"+order.ID, env.token("admin-1"), nil); rec.Code != http.StatusOK {
		t.Fatalf("admin read: %d", rec.Code)
	}

	missing := "00000000-0000-0000-0000-000000000000"
	expectError(t, env.do(http.MethodGet, "/api/orders/"+missing, env.token("cust-1"), nil), http.StatusForbidden, "FORBIDDEN")
	expectError(t, env.do(http.MethodGet, "/api/orders/"+missing, env.token("admin-1"), nil), http.StatusNotFound, "NOT_FOUND")

	expectError(t, env.do(http.MethodGet, "/api/users/cust-1/orders", env.token("cust-2"), nil), http.StatusForbidden, "FORBIDDEN")
	rec = env.do(http.MethodGet, "/api/users/cust-1/orders", env.token("cust-1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("own orders: %d", rec.Code)
	}
	if list := decode[listResponse](t, rec); list.Count != 1 {
		t.Fatalf("expected one order, got %d", list.Count)
	}

	expectError(t, env.do(http.MethodPut, "/api/orders/"+order.ID, env.token("cust-1"), map[string]string{"status": "shipped"}), http.StatusForbidden, "FORBIDDEN")
	rec = env.do(http.MethodPut, "/api/orders/"+order.ID, env.token("admin-1"), map[string]string{"status": "shipped"})
	if rec.Code != http.StatusOK || decode[orderResponse](t, rec).Status != "shipped" {
		t.Fatalf("status update: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, env.do(http.MethodPut, "/api/orders/"+order.ID, env.token("admin-1"), map[string]string{"status": "lost"}), http.StatusBadRequest, "VALIDATION_FAILED")
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token("cust-1")
	expectError(t, env.do(http.MethodPost, "/api/orders", tok, map[string]any{"products": []any{}, "totalAmount": 0}), http.StatusBadRequest, "VALIDATION_FAILED")
	expectError(t, env.do(http.MethodPost, "/api/orders", tok, `{"products":`), http.StatusBadRequest, "INVALID_JSON")
	body := map[string]any{
		"products":    []map[string]any{{"productId": "no-such-product", "quantity": 1, "price": 1}},
		"totalAmount": 1,
	}
	expectError(t, env.do(http.MethodPost, "/api/orders", tok, body), http.StatusBadRequest, "INVALID_ARGUMENT")
}

func TestUserUpdatePermissions(t *testing.T) {
	env := newTestEnv(t, nil)
	expectError(t, env.do(http.MethodPut, "/api/users/cust-1", env.token("cust-1"), map[string]any{"role": "admin"}), http.StatusForbidden, "FORBIDDEN")
	expectError(t, env.do(http.MethodPut, "/api/users/cust-2", env.token("cust-1"), map[string]any{"name": "Mallory"}), http.StatusForbidden, "FORBIDDEN")

	rec := env.do(http.MethodPut, "/api/users/cust-1", env.token("cust-1"), map[string]any{"name": "Cyrus"})
	if rec.Code != http.StatusOK || decode[accountResponse](t, rec).Name != "Cyrus" {
		t.Fatalf("self update: %d %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(http.MethodPut, "/api/users/cust-2", env.token("admin-1"), map[string]any{"isActive": false}); rec.Code != http.StatusOK {
		t.Fatalf("admin deactivate: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, env.do(http.MethodGet, "/api/users/cust-2", env.token("cust-2"), nil), http.StatusForbidden, "FORBIDDEN")

	rec = env.do(http.MethodGet, "/api/users?limit=2", env.token("admin-1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users: %d", rec.Code)
	}
	list := decode[listResponse](t, rec)
	if list.Count != 2 || list.Total != 4 || list.Pages != 2 {
		t.Fatalf("unexpected page %+v", list)
	}
	expectError(t, env.do(http.MethodGet, "/api/users", env.token("cust-1"), nil), http.StatusForbidden, "FORBIDDEN")

	if rec := env.do(http.MethodDelete, "/api/users/cust-2", env.token("admin-1"), nil); rec.Code != http.StatusOK {
		t.Fatalf("delete user: %d", rec.Code)
	}
	expectError(t, env.do(http.MethodDelete, "/api/users/cust-2", env.token("admin-1"), nil), http.StatusNotFound, "NOT_FOUND")
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token("new-user")

	expectError(t, env.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Nia"}), http.StatusUnauthorized, "UNAUTHENTICATED")
	expectError(t, env.do(http.MethodPost, "/api/auth/login", tok, nil), http.StatusForbidden, "FORBIDDEN")

	rec := env.do(http.MethodPost, "/api/auth/register", tok, map[string]string{"name": "Nia"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[struct {
		User accountResponse `json:"user"`
	}](t, rec)
	if created.User.Role != "customer" || !created.User.IsActive || created.User.Email != "new-user@example.com" {
		t.Fatalf("unexpected account %+v", created.User)
	}
	expectError(t, env.do(http.MethodPost, "/api/auth/register", tok, map[string]string{"name": "Nia"}), http.StatusConflict, "CONFLICT")

	rec = env.do(http.MethodPost, "/api/auth/login", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	session := decode[struct {
		User sessionResponse `json:"user"`
	}](t, rec)
	if session.User.ID != "new-user" || session.User.Role != "customer" {
		t.Fatalf("unexpected session %+v", session.User)
	}
}

func TestAuthRateLimitCountsOnlyFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token("cust-1")
	for i := 0; i < 10; i++ {
		if rec := env.do(http.MethodPost, "/api/auth/login", tok, nil); rec.Code != http.StatusOK {
			t.Fatalf("login %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}
	for i := 0; i < 5; i++ {
		expectError(t, env.do(http.MethodPost, "/api/auth/login", "", nil), http.StatusUnauthorized, "UNAUTHENTICATED")
	}
	rec := env.do(http.MethodPost, "/api/auth/login", tok, nil)
	expectError(t, rec, http.StatusTooManyRequests, "RATE_LIMITED")
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("RateLimit-Limit") != "5" {
		t.Fatalf("missing rate limit headers: %v", rec.Header())
	}
	if rec := env.do(http.MethodGet, "/api/products", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("other policies unaffected, got %d", rec.Code)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (domain.RateLimitDecision, error) {
	return domain.RateLimitDecision{}, errors.New("redis down")
}

func TestRateLimiterFailureModes(t *testing.T) {
	open := newTestEnv(t, func(_ *config.Config, deps *ServerDeps) {
		deps.RateLimiter = failingLimiter{}
	})
	if rec := open.do(http.MethodGet, "/api/products", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("fail-open should pass, got %d", rec.Code)
	}

	closed := newTestEnv(t, func(cfg *config.Config, deps *ServerDeps) {
		cfg.RateLimitFailClosed = true
		deps.RateLimiter = failingLimiter{}
	})
	expectError(t, closed.do(http.MethodGet, "/api/products", "", nil), http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE")
	if rec := closed.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz is outside /api, got %d", rec.Code)
	}
}

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token("admin-1")

	expectError(t, env.do(http.MethodPost, "/api/products", env.token("cust-1"), map[string]any{"name": "Chair", "price": 5, "category": "home"}), http.StatusForbidden, "FORBIDDEN")
	resp := expectError(t, env.do(http.MethodPost, "/api/products", admin, map[string]any{"name": "Chair", "category": "home"}), http.StatusBadRequest, "VALIDATION_FAILED")
	if !strings.Contains(fmt.Sprint(resp.Details["fields"]), "price") {
		t.Fatalf("expected price in details, got %v", resp.Details)
	}
	expectError(t, env.do(http.MethodPost, "/api/products", admin, map[string]any{"name": "Chair", "price": 5, "category": "garden"}), http.StatusBadRequest, "VALIDATION_FAILED")

	rec := env.do(http.MethodPost, "/api/products", admin, map[string]any{"name": "Oak Chair", "price": 49.5, "category": "home", "stock": 3})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	product := decode[productResponse](t, rec)
	if !product.Active || product.Stock != 3 {
		t.Fatalf("unexpected product %+v", product)
	}

	rec = env.do(http.MethodGet, "/api/products", "", nil)
	if rec.Code != http.StatusOK || decode[listResponse](t, rec).Total != 1 {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, env.do(http.MethodGet, "/api/products?limit=0", "", nil), http.StatusBadRequest, "INVALID_ARGUMENT")

	rec = env.do(http.MethodGet, "/api/products/search/Oak", "", nil)
	if rec.Code != http.StatusOK || decode[listResponse](t, rec).Count != 1 {
		t.Fatalf("search: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPut, "/api/products/"+product.ID, admin, map[string]any{"price": 39.0})
	if rec.Code != http.StatusOK || decode[productResponse](t, rec).Price != 39.0 {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(http.MethodDelete, "/api/products/"+product.ID, admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	expectError(t, env.do(http.MethodGet, "/api/products/"+product.ID, "", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestInventoryFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token("admin-1")
	product := env.seedProduct("Cable")

	expectError(t, env.do(http.MethodGet, "/api/inventory", env.token("cust-1"), nil), http.StatusForbidden, "FORBIDDEN")

	rec := env.do(http.MethodPost, "/api/inventory/update", admin, map[string]any{"productId": product.ID, "quantity": 5, "operation": "set"})
	if rec.Code != http.StatusOK || decode[inventoryResponse](t, rec).Quantity != 5 {
		t.Fatalf("set: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, env.do(http.MethodPost, "/api/inventory/update", admin, map[string]any{"productId": product.ID, "quantity": 10, "operation": "subtract"}), http.StatusBadRequest, "INVALID_ARGUMENT")
	expectError(t, env.do(http.MethodPost, "/api/inventory/update", admin, map[string]any{"productId": "missing", "quantity": 1, "operation": "add"}), http.StatusBadRequest, "INVALID_ARGUMENT")
	expectError(t, env.do(http.MethodPost, "/api/inventory/update", admin, map[string]any{"productId": product.ID, "quantity": 1, "operation": "double"}), http.StatusBadRequest, "VALIDATION_FAILED")

	rec = env.do(http.MethodGet, "/api/inventory/low-stock", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("low stock: %d", rec.Code)
	}
	low := decode[struct {
		Threshold int                 `json:"threshold"`
		Items     []inventoryResponse `json:"items"`
	}](t, rec)
	if low.Threshold != usecase.DefaultLowStockThreshold || len(low.Items) != 1 {
		t.Fatalf("unexpected low stock %+v", low)
	}
	rec = env.do(http.MethodGet, "/api/inventory/low-stock?threshold=3", admin, nil)
	if rec.Code != http.StatusOK || len(decode[struct {
		Items []inventoryResponse `json:"items"`
	}](t, rec).Items) != 0 {
		t.Fatalf("threshold 3: %d %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(http.MethodDelete, "/api/inventory/"+low.Items[0].ID, admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete inventory: %d", rec.Code)
	}
}

type brokenAccounts struct{}

func (brokenAccounts) GetAccount(context.Context, string) (domain.Account, error) {
	return domain.Account{}, fmt.Errorf("%w: connection refused", domain.ErrUnavailable)
}

func TestAccountStoreFailureIsUnavailable(t *testing.T) {
	verifier, err := oidc.NewVerifier(testConfig())
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	env := newTestEnv(t, func(_ *config.Config, deps *ServerDeps) {
		deps.Pipeline = usecase.NewAuthPipeline(verifier, brokenAccounts{})
	})
	expectError(t, env.do(http.MethodGet, "/api/orders", env.token("admin-1"), nil), http.StatusServiceUnavailable, "UNAVAILABLE")
}

func TestMissingPipelineIsConfigError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServerWithDeps(testConfig(), ServerDeps{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	expectError(t, rec, http.StatusInternalServerError, "AUTH_CONFIG_ERROR")
}

type recordingGate struct {
	calls   int
	targets []domain.Target
	deny    bool
}

func (g *recordingGate) Name() string { return "policy" }

func (g *recordingGate) Check(_ context.Context, _ *domain.AuthContext, target domain.Target) error {
	g.calls++
	g.targets = append(g.targets, target)
	if g.deny {
		return errors.New("policy says no")
	}
	return nil
}

func TestPolicyGateRunsAfterRouteGates(t *testing.T) {
	gate := &recordingGate{deny: true}
	env := newTestEnv(t, func(_ *config.Config, deps *ServerDeps) {
		deps.PolicyGate = gate
	})

	expectError(t, env.do(http.MethodGet, "/api/users/cust-1", "", nil), http.StatusUnauthorized, "UNAUTHENTICATED")
	expectError(t, env.do(http.MethodGet, "/api/users/cust-2", env.token("cust-1"), nil), http.StatusForbidden, "FORBIDDEN")
	if gate.calls != 0 {
		t.Fatalf("policy gate ran before earlier gates admitted, calls=%d", gate.calls)
	}

	expectError(t, env.do(http.MethodGet, "/api/users/cust-1", env.token("cust-1"), nil), http.StatusForbidden, "FORBIDDEN")
	if gate.calls != 1 || gate.targets[0].OwnerID != "cust-1" || gate.targets[0].Route != "users:read" {
		t.Fatalf("unexpected gate calls %d %+v", gate.calls, gate.targets)
	}

	if rec := env.do(http.MethodPost, "/api/auth/login", env.token("cust-1"), nil); rec.Code != http.StatusOK {
		t.Fatalf("login has no gates, got %d", rec.Code)
	}
}

func TestServiceEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Warehouse API") {
		t.Fatalf("root: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"mode":"no-db"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, env.do(http.MethodGet, "/api/nowhere", "", nil), http.StatusNotFound, "NOT_FOUND")

	env.do(http.MethodGet, "/api/orders", "", nil)
	rec = env.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `warehouse_auth_denied_total{reason="missing_credential",stage="extract"} 1`) {
		t.Fatalf("denial not counted:\n%s", rec.Body.String())
	}
}

func TestMultibyteNamesAccepted(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/auth/register", env.token("ru-user"), map[string]string{"name": "Александра Константиновна Ш"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	name := strings.Repeat("Стол ", 13) + "дуб"
	rec = env.do(http.MethodPost, "/api/products", env.token("admin-1"), map[string]any{"name": name, "price": 120, "category": "home"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[productResponse](t, rec).Name; got != name {
		t.Fatalf("unexpected name %q", got)
	}
	expectError(t, env.do(http.MethodPost, "/api/products", env.token("admin-1"), map[string]any{"name": strings.Repeat("ж", 101), "price": 1, "category": "home"}), http.StatusBadRequest, "VALIDATION_FAILED")
}

func TestOrderListsPaginate(t *testing.T) {
	env := newTestEnv(t, nil)
	product := env.seedProduct("Shelf")
	body := map[string]any{
		"products":    []map[string]any{{"productId": product.ID, "quantity": 1, "price": 10}},
		"totalAmount": 10,
	}
	for i := 0; i < 3; i++ {
		if rec := env.do(http.MethodPost, "/api/orders", env.token("cust-1"), body); rec.Code != http.StatusCreated {
			t.Fatalf("create order %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := env.do(http.MethodGet, "/api/orders?page=2&limit=2", env.token("admin-1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list orders: %d %s", rec.Code, rec.Body.String())
	}
	list := decode[listResponse](t, rec)
	if list.Count != 1 || list.Total != 3 || list.Page != 2 || list.Pages != 2 {
		t.Fatalf("unexpected page %+v", list)
	}

	rec = env.do(http.MethodGet, "/api/users/cust-1/orders?limit=1", env.token("cust-1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("user orders: %d %s", rec.Code, rec.Body.String())
	}
	list = decode[listResponse](t, rec)
	if list.Count != 1 || list.Total != 3 || list.Page != 1 || list.Pages != 3 {
		t.Fatalf("unexpected page %+v", list)
	}
	expectError(t, env.do(http.MethodGet, "/api/users/cust-1/orders?limit=500", env.token("cust-1"), nil), http.StatusBadRequest, "INVALID_ARGUMENT")
}

package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/bistro/internal/auth"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/presentation/http/validation"
	repo "github.com/Additional-Code/bistro/internal/repository/order"
	service "github.com/Additional-Code/bistro/internal/service/order"
)

var burger = entity.Food{ID: "f-burger", Name: "Burger", Price: decimal.NewFromInt(500), Image: "burger.png"}

type memStore struct {
	mu     sync.Mutex
	orders map[string]entity.Order
}

func (m *memStore) put(o *entity.Order) {
	cp := *o
	cp.Items = nil
	for _, item := range o.Items {
		it := *item
		if it.FoodID == burger.ID {
			f := burger
			it.Food = &f
		}
		cp.Items = append(cp.Items, &it)
	}
	m.orders[o.ID] = cp
}

func (m *memStore) get(id string) (*entity.Order, bool) {
	o, ok := m.orders[id]
	if !ok {
		return nil, false
	}
	cp := o
	cp.Items = append([]*entity.OrderItem(nil), o.Items...)
	return &cp, true
}

func (m *memStore) Create(_ context.Context, o *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(o)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.get(id)
	if !ok {
		return nil, repo.ErrNotFound
	}
	return o, nil
}

func (m *memStore) GetByIDPrimary(ctx context.Context, id string) (*entity.Order, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Order
	for id, o := range m.orders {
		if o.UserID == userID {
			cp, _ := m.get(id)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, o *entity.Order, expected entity.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.orders[o.ID]; !ok || cur.Status != expected {
		return repo.ErrStatusConflict
	}
	m.put(o)
	return nil
}

func (m *memStore) TransitionStatus(_ context.Context, id string, from, to entity.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.orders[id]
	if !ok || cur.Status != from {
		return repo.ErrStatusConflict
	}
	cur.Status = to
	cur.UpdatedAt = at
	m.orders[id] = cur
	return nil
}

type oneFood struct{}

func (oneFood) Lookup(_ context.Context, ids []string) (map[string]entity.Food, error) {
	out := map[string]entity.Food{}
	for _, id := range ids {
		if id == burger.ID {
			out[id] = burger
		}
	}
	return out, nil
}

type anyUser struct{}

func (anyUser) Exists(context.Context, string) (bool, error) { return true, nil }

type harness struct {
	e      *echo.Echo
	store  *memStore
	tokens *auth.Tokens
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Config{
		Auth:   config.Auth{JWTSecret: "test-secret-0123456789", Issuer: "bistro-test", TokenTTL: time.Hour},
		Orders: config.Orders{CancelWindow: 10 * time.Minute, TotalTolerance: decimal.RequireFromString("0.01")},
	}
	store := &memStore{orders: map[string]entity.Order{}}
	svc := service.NewService(service.Params{
		Store:    store,
		Catalog:  oneFood{},
		Identity: anyUser{},
		Config:   cfg,
	})
	tokens := auth.NewTokens(cfg)

	e := echo.New()
	e.Validator = validation.New()
	Register(e, NewHandler(svc, nil), tokens)
	return &harness{e: e, store: store, tokens: tokens}
}

func (h *harness) do(t *testing.T, method, path, userID string, role auth.Role, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		token, err := h.tokens.Issue(userID, role)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

const createBody = `{"items":[{"food":"f-burger","quantity":2,"price":500,"orderType":"takeaway"}],"totalAmount":1000,"paymentMethod":"cash"}`

func (h *harness) create(t *testing.T, userID string) string {
	t.Helper()
	code, body := h.do(t, http.MethodPost, "/orders", userID, auth.RoleCustomer, createBody)
	require.Equal(t, http.StatusCreated, code, body)
	return body["data"].(map[string]any)["id"].(string)
}

func errorKind(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	kind, _ := errBody["kind"].(string)
	return kind
}

func TestCreateOrder(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodPost, "/orders", "u-1", auth.RoleCustomer, createBody)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "N/A", data["deliveryAddress"])
	assert.Equal(t, "u-1", data["user"])
	assert.Equal(t, float64(1000), data["totalAmount"])

	item := data["items"].([]any)[0].(map[string]any)
	food := item["food"].(map[string]any)
	assert.Equal(t, "Burger", food["name"])
	assert.Equal(t, float64(500), food["price"])
	assert.Equal(t, "burger.png", food["image"])
}

func TestCreateRejectsInvalidPayloads(t *testing.T) {
	tests := map[string]string{
		"empty items":    `{"items":[],"totalAmount":1000,"paymentMethod":"cash"}`,
		"bitcoin":        `{"items":[{"food":"f-burger","quantity":2,"price":500,"orderType":"takeaway"}],"totalAmount":1000,"paymentMethod":"bitcoin"}`,
		"malformed json": `{"items":`,
		"sub-cent money": `{"items":[{"food":"f-burger","quantity":1,"price":0.004,"orderType":"takeaway"}],"totalAmount":0.004,"paymentMethod":"cash"}`,
		"quantity overflow": `{"items":[{"food":"f-burger","quantity":3000000000,"price":500,"orderType":"takeaway"}],"totalAmount":500,"paymentMethod":"cash"}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			code, body := h.do(t, http.MethodPost, "/orders", "u-1", auth.RoleCustomer, payload)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "invalid_input", errorKind(body))
			assert.Empty(t, h.store.orders)
		})
	}
}

func TestCreateUnknownFood(t *testing.T) {
	h := newHarness(t)
	payload := `{"items":[{"food":"f-ghost","quantity":1,"price":500,"orderType":"takeaway"}],"totalAmount":500,"paymentMethod":"cash"}`

	code, body := h.do(t, http.MethodPost, "/orders", "u-1", auth.RoleCustomer, payload)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", errorKind(body))
}

func TestRequestsRequireBearerToken(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodGet, "/orders", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthenticated", errorKind(body))
}

func TestListOrders(t *testing.T) {
	h := newHarness(t)
	h.create(t, "u-1")
	h.create(t, "u-1")
	h.create(t, "u-2")

	code, body := h.do(t, http.MethodGet, "/orders", "u-1", auth.RoleCustomer, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])
	assert.Len(t, body["data"], 2)
}

func TestGetOrderOwnership(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "u-1")

	code, _ := h.do(t, http.MethodGet, "/orders/"+id, "u-1", auth.RoleCustomer, "")
	assert.Equal(t, http.StatusOK, code)

	code, body := h.do(t, http.MethodGet, "/orders/"+id, "u-2", auth.RoleCustomer, "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", errorKind(body))

	code, _ = h.do(t, http.MethodGet, "/orders/missing", "u-1", auth.RoleCustomer, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateByNonOwnerLeavesOrderUnchanged(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "u-1")
	before := h.store.orders[id]

	payload := `{"items":[{"food":"f-burger","quantity":1,"price":500,"orderType":"dine-in"}],"totalAmount":500,"paymentMethod":"card"}`
	code, body := h.do(t, http.MethodPut, "/orders/"+id, "u-2", auth.RoleCustomer, payload)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", errorKind(body))

	after := h.store.orders[id]
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.PaymentMethod, after.PaymentMethod)
	assert.Equal(t, before.Items[0].Quantity, after.Items[0].Quantity)
}

func TestUpdateMovesToProcessing(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "u-1")

	payload := `{"items":[{"food":"f-burger","quantity":1,"price":500,"orderType":"dine-in"}],"totalAmount":500,"paymentMethod":"card","tableNumber":"7"}`
	code, body := h.do(t, http.MethodPut, "/orders/"+id, "u-1", auth.RoleCustomer, payload)
	require.Equal(t, http.StatusOK, code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "processing", data["status"])
	assert.Equal(t, "card", data["paymentMethod"])
	assert.Equal(t, "7", data["tableNumber"])
	assert.Equal(t, "N/A", data["deliveryAddress"])
}

func TestCancelAfterWindow(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "u-1")

	stale := h.store.orders[id]
	stale.CreatedAt = time.Now().UTC().Add(-11 * time.Minute)
	h.store.orders[id] = stale

	code, body := h.do(t, http.MethodPut, "/orders/"+id+"/cancel", "u-1", auth.RoleCustomer, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_state", errorKind(body))
	assert.Equal(t, entity.StatusPending, h.store.orders[id].Status)
}

func TestCancelWithinWindow(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "u-1")

	code, body := h.do(t, http.MethodPut, "/orders/"+id+"/cancel", "u-1", auth.RoleCustomer, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cancelled", body["data"].(map[string]any)["status"])
}

func TestAdvanceStatus(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "u-1")
	update := `{"items":[{"food":"f-burger","quantity":1,"price":500,"orderType":"dine-in"}],"totalAmount":500,"paymentMethod":"card"}`
	code, _ := h.do(t, http.MethodPut, "/orders/"+id, "u-1", auth.RoleCustomer, update)
	require.Equal(t, http.StatusOK, code)

	code, body := h.do(t, http.MethodPut, "/orders/"+id+"/status", "u-1", auth.RoleCustomer, `{"status":"delivered"}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", errorKind(body))

	code, body = h.do(t, http.MethodPut, "/orders/"+id+"/status", "u-boss", auth.RoleManager, `{"status":"shipped"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", errorKind(body))

	code, body = h.do(t, http.MethodPut, "/orders/"+id+"/status", "u-boss", auth.RoleManager, `{"status":"delivered"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "delivered", body["data"].(map[string]any)["status"])
}

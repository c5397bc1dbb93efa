package routes

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolshop/storefront/internal/catalog"
	"github.com/toolshop/storefront/internal/checkout/checkouttest"
	"github.com/toolshop/storefront/internal/storefront"
	"github.com/toolshop/storefront/pkg/config"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/metrics"
	"github.com/toolshop/storefront/pkg/storage/memory"
)

const sessionHeader = "X-Session-Id"

type testServer struct {
	handler   http.Handler
	scheduler *checkouttest.Scheduler
	registry  *storefront.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Sessions.Header = sessionHeader
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}

	cat, err := catalog.Default()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	backend := memory.New()
	sched := &checkouttest.Scheduler{}
	sessions, err := storefront.NewRegistry(storefront.RegistryParams{
		Backend:         backend,
		Namespace:       "test",
		Catalog:         cat,
		Scheduler:       sched,
		Metrics:         metrics.NewStorefront(reg),
		ShippingFee:     2500,
		ProcessingDelay: 0,
	})
	require.NoError(t, err)

	h := NewRouter(cfg, logger.Nop(), reg, cat, sessions, controllersReadiness(backend)...)
	return &testServer{handler: h, scheduler: sched, registry: sessions}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, session, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := s.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"storage":"up"`)

	s.do(t, http.MethodPost, "/api/v1/cart/items", "m1", `{"product_id":1}`)
	rec, _ = s.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_session_mutations_total")
}

func TestProductsAreListedWithoutSession(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/products?category=manual", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(sessionHeader))
	var products []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &products))
	require.NotEmpty(t, products)
	for _, p := range products {
		assert.Equal(t, "manual", p["category"])
		assert.Contains(t, p["price_label"], "FCFA")
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/products?category=garden", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/products/99", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/categories", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"label"`)
}

func TestSessionIDIsIssuedAndReused(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/cart/items", "", `{"product_id":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(sessionHeader)
	require.NotEmpty(t, id)

	_, env := s.do(t, http.MethodGet, "/api/v1/badges", id, "")
	var badges map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &badges))
	assert.EqualValues(t, 1, badges["cart_count"])
	assert.EqualValues(t, 10000, badges["cart_total"])
}

func TestCartEndpoints(t *testing.T) {
	s := newTestServer(t)
	sid := "cart-session"

	s.do(t, http.MethodPost, "/api/v1/cart/items", sid, `{"product_id":1}`)
	_, env := s.do(t, http.MethodPost, "/api/v1/cart/items", sid, `{"product_id":1}`)
	assert.Contains(t, string(env.Data), `"persisted":true`)

	_, env = s.do(t, http.MethodPatch, "/api/v1/cart/items/1", sid, `{"delta":-1}`)
	assert.Contains(t, string(env.Data), `"item_count":1`)

	rec, env := s.do(t, http.MethodPatch, "/api/v1/cart/items/1", sid, `{"delta":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	s.do(t, http.MethodDelete, "/api/v1/cart/items/1", sid, "")
	_, env = s.do(t, http.MethodGet, "/api/v1/cart", sid, "")
	assert.Contains(t, string(env.Data), `"items":[]`)
}

func TestCartRejectsOverflowingDelta(t *testing.T) {
	s := newTestServer(t)
	sid := "overflow-session"

	s.do(t, http.MethodPost, "/api/v1/cart/items", sid, `{"product_id":1}`)
	rec, env := s.do(t, http.MethodPatch, "/api/v1/cart/items/1", sid, `{"delta":`+strconv.Itoa(math.MaxInt)+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	_, env = s.do(t, http.MethodGet, "/api/v1/cart", sid, "")
	assert.Contains(t, string(env.Data), `"item_count":1`)
}

func TestCartResponseFiguresMatchItems(t *testing.T) {
	s := newTestServer(t)
	sid := "busy-cart"

	type cartBody struct {
		Items []struct {
			Price    int64 `json:"price"`
			Quantity int   `json:"quantity"`
		} `json:"items"`
		ItemCount int   `json:"item_count"`
		Total     int64 `json:"total"`
	}

	var wg sync.WaitGroup
	bodies := make(chan []byte, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":`+strconv.Itoa(id)+`}`))
			req.Header.Set(sessionHeader, sid)
			req.Header.Set("Content-Type", "application/json")
			s.handler.ServeHTTP(httptest.NewRecorder(), req)
		}(i%3 + 1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			req.Header.Set(sessionHeader, sid)
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			bodies <- rec.Body.Bytes()
		}()
	}
	wg.Wait()
	close(bodies)

	for raw := range bodies {
		var env envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		var body cartBody
		require.NoError(t, json.Unmarshal(env.Data, &body))
		var count int
		var total int64
		for _, item := range body.Items {
			count += item.Quantity
			total += item.Price * int64(item.Quantity)
		}
		assert.Equal(t, count, body.ItemCount)
		assert.Equal(t, total, body.Total)
	}
}

func TestComparisonCapacity(t *testing.T) {
	s := newTestServer(t)
	sid := "compare"

	for _, id := range []string{"1", "2", "3"} {
		rec, _ := s.do(t, http.MethodPost, "/api/v1/comparison/"+id+"/toggle", sid, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := s.do(t, http.MethodPost, "/api/v1/comparison/4/toggle", sid, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CAPACITY_EXCEEDED", env.Error.Code)

	_, env = s.do(t, http.MethodGet, "/api/v1/comparison", sid, "")
	assert.Contains(t, string(env.Data), `"size":3`)
	assert.Contains(t, string(env.Data), `"ready":true`)

	_, env = s.do(t, http.MethodGet, "/api/v1/notifications", sid, "")
	assert.Contains(t, string(env.Data), "comparison.rejected")

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/comparison", sid, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWishlistEndpoints(t *testing.T) {
	s := newTestServer(t)
	sid := "wish"

	_, env := s.do(t, http.MethodPost, "/api/v1/wishlist/5/toggle", sid, "")
	assert.Contains(t, string(env.Data), `"present":true`)

	s.do(t, http.MethodPost, "/api/v1/wishlist/5/cart", sid, "")
	_, env = s.do(t, http.MethodGet, "/api/v1/wishlist", sid, "")
	assert.Contains(t, string(env.Data), `"size":1`)

	_, env = s.do(t, http.MethodGet, "/api/v1/cart", sid, "")
	assert.Contains(t, string(env.Data), `"item_count":1`)

	_, env = s.do(t, http.MethodPost, "/api/v1/wishlist/5/toggle", sid, "")
	assert.Contains(t, string(env.Data), `"present":false`)
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	sid := "buyer"

	rec, env := s.do(t, http.MethodPost, "/api/v1/checkout/open", sid, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "NO_ITEMS_TO_CHECKOUT", env.Error.Code)

	s.do(t, http.MethodPost, "/api/v1/cart/items", sid, `{"product_id":1}`)
	s.do(t, http.MethodPost, "/api/v1/cart/items", sid, `{"product_id":2}`)
	s.do(t, http.MethodPost, "/api/v1/cart/items", sid, `{"product_id":2}`)

	rec, env = s.do(t, http.MethodPost, "/api/v1/checkout/open", sid, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total":37500`)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/checkout/proceed", sid, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/checkout/method", sid, `{"method":"orange-money"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = s.do(t, http.MethodPost, "/api/v1/checkout/details", sid, `{"phone":"512345678"}`)
	assert.Contains(t, string(env.Data), `"valid":false`)
	rec, env = s.do(t, http.MethodPost, "/api/v1/checkout/confirm", sid, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_METHOD_DETAILS", env.Error.Code)

	_, env = s.do(t, http.MethodPost, "/api/v1/checkout/details", sid, `{"phone":"612345678"}`)
	assert.Contains(t, string(env.Data), `"valid":true`)

	rec, env = s.do(t, http.MethodPost, "/api/v1/checkout/confirm", sid, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"state":"submitting"`)

	rec, env = s.do(t, http.MethodPost, "/api/v1/checkout/confirm", sid, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "STATE_CONFLICT", env.Error.Code)

	require.Equal(t, 1, s.scheduler.Fire())

	_, env = s.do(t, http.MethodGet, "/api/v1/checkout", sid, "")
	assert.Contains(t, string(env.Data), `"state":"confirmed"`)

	_, env = s.do(t, http.MethodGet, "/api/v1/orders", sid, "")
	var page struct {
		Items []struct {
			ID     int64  `json:"id"`
			Total  int64  `json:"total"`
			Status string `json:"status"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(37500), page.Items[0].Total)
	assert.Equal(t, "confirmed", page.Items[0].Status)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/orders/"+jsonNumber(page.Items[0].ID), sid, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/orders/1", sid, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, env = s.do(t, http.MethodGet, "/api/v1/cart", sid, "")
	assert.Contains(t, string(env.Data), `"item_count":0`)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/checkout/close", sid, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutRejectsUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	sid := "method"
	s.do(t, http.MethodPost, "/api/v1/cart/items", sid, `{"product_id":3}`)
	s.do(t, http.MethodPost, "/api/v1/checkout/open", sid, "")
	s.do(t, http.MethodPost, "/api/v1/checkout/proceed", sid, "")

	rec, env := s.do(t, http.MethodPost, "/api/v1/checkout/method", sid, `{"method":"paypal"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestThemeEndpoints(t *testing.T) {
	s := newTestServer(t)
	sid := "theme"

	_, env := s.do(t, http.MethodGet, "/api/v1/preferences/theme", sid, "")
	assert.Contains(t, string(env.Data), `"theme":"light"`)

	_, env = s.do(t, http.MethodPost, "/api/v1/preferences/theme/toggle", sid, "")
	assert.Contains(t, string(env.Data), `"theme":"dark"`)

	rec, _ := s.do(t, http.MethodPut, "/api/v1/preferences/theme", sid, `{"theme":"blue"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, env = s.do(t, http.MethodPut, "/api/v1/preferences/theme", sid, `{"theme":"light"}`)
	assert.Contains(t, string(env.Data), `"theme":"light"`)
}

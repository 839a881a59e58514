package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-cart/catalog"
	"storefront-cart/metrics"
	models "storefront-cart/model"
	"storefront-cart/service"
	"storefront-cart/store"
)

const fixtureJSON = `{
  "stock": [{"id": 7, "amount": 2}, {"id": 3, "amount": 5}],
  "products": [
    {"id": 7, "title": "Shoe", "price": 100, "image": "x.png"},
    {"id": 3, "title": "Boot", "price": 150.5, "image": "b.png"}
  ]
}`

type env struct {
	router *mux.Router
	store  *store.MemoryStore
	carts  *service.Registry
}

func newEnv(t *testing.T, health func(context.Context) error) *env {
	t.Helper()
	logger, _ := test.NewNullLogger()

	fx, err := catalog.LoadFixture(strings.NewReader(fixtureJSON))
	require.NoError(t, err)
	api := httptest.NewServer(fx.Handler())
	t.Cleanup(api.Close)

	cat := catalog.NewClient(api.URL, catalog.Options{
		Timeout:    time.Second,
		BackoffMin: time.Millisecond,
		BackoffMax: time.Millisecond,
		Logger:     logger,
	})
	st := store.NewMemoryStore()
	m := metrics.New()
	reg := service.NewRegistry(st, cat, "test", 0, service.WithLogger(logger), service.WithMetrics(m))

	r := mux.NewRouter()
	NewHandler(reg, m, health, logger).RegisterRoutes(r)
	return &env{router: r, store: st, carts: reg}
}

func (e *env) do(t *testing.T, method, path, body, session string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeSummary(t *testing.T, rec *httptest.ResponseRecorder) models.Summary {
	t.Helper()
	var s models.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestGetCartWithoutSessionCreatesNothing(t *testing.T) {
	e := newEnv(t, nil)

	for _, sid := range []string{"", "not-a-uuid"} {
		rec := e.do(t, "GET", "/cart", "", sid)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
		assert.Equal(t, 0, decodeSummary(t, rec).Distinct)
	}
	assert.Equal(t, 0, e.carts.Len())
}

func TestMutationIssuesSession(t *testing.T) {
	e := newEnv(t, nil)

	for _, sid := range []string{"", "../../other-cart"} {
		rec := e.do(t, "POST", "/cart/products/3", "", sid)
		require.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookie, cookies[0].Name)
		_, err := uuid.Parse(cookies[0].Value)
		assert.NoError(t, err)

		_, err = e.store.Get(context.Background(), "test:cart:"+cookies[0].Value)
		assert.NoError(t, err)
	}
	_, err := e.store.Get(context.Background(), "test:cart:../../other-cart")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddUpdateRemoveFlow(t *testing.T) {
	e := newEnv(t, nil)
	sid := uuid.NewString()

	rec := e.do(t, "POST", "/cart/products/7", "", sid)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decodeSummary(t, rec)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "Shoe", s.Items[0].Title)
	assert.Equal(t, 1, s.Items[0].Amount)

	rec = e.do(t, "POST", "/cart/products/7", "", sid)
	require.Equal(t, http.StatusOK, rec.Code)

	// stock for 7 is 2
	rec = e.do(t, "POST", "/cart/products/7", "", sid)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Requested quantity is out of stock", decodeErr(t, rec))

	rec = e.do(t, "POST", "/cart/products/3", "", sid)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, "PUT", "/cart/products/3", `{"amount":4}`, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	s = decodeSummary(t, rec)
	require.Len(t, s.Items, 2)
	assert.Equal(t, int64(7), s.Items[0].ID, "update keeps insertion order")
	assert.Equal(t, 4, s.Items[1].Amount)
	assert.Equal(t, "802", s.Total.String())

	rec = e.do(t, "DELETE", "/cart/products/7", "", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeSummary(t, rec).Distinct)

	_, err := e.store.Get(context.Background(), "test:cart:"+sid)
	assert.NoError(t, err)
}

func TestErrorMapping(t *testing.T) {
	e := newEnv(t, nil)
	sid := uuid.NewString()

	rec := e.do(t, "DELETE", "/cart/products/99", "", sid)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Could not remove product", decodeErr(t, rec))

	rec = e.do(t, "PUT", "/cart/products/3", `{"amount":1}`, sid)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Could not change product quantity", decodeErr(t, rec))

	rec = e.do(t, "POST", "/cart/products/404", "", sid)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Could not add product", decodeErr(t, rec))

	rec = e.do(t, "POST", "/cart/products/abc", "", sid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "PUT", "/cart/products/3", `{}`, sid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "PUT", "/cart/products/3", `nope`, sid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNonPositiveAmountIsIgnored(t *testing.T) {
	e := newEnv(t, nil)
	sid := uuid.NewString()

	require.Equal(t, http.StatusOK, e.do(t, "POST", "/cart/products/3", "", sid).Code)
	rec := e.do(t, "PUT", "/cart/products/3", `{"amount":0}`, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeSummary(t, rec).Items[0].Amount)
}

func TestClearCart(t *testing.T) {
	e := newEnv(t, nil)
	sid := uuid.NewString()

	require.Equal(t, http.StatusOK, e.do(t, "POST", "/cart/products/3", "", sid).Code)
	rec := e.do(t, "DELETE", "/cart", "", sid)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, "GET", "/cart", "", sid)
	assert.Equal(t, 0, decodeSummary(t, rec).Distinct)
	_, err := e.store.Get(context.Background(), "test:cart:"+sid)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClearCartKeepsSingleWriter(t *testing.T) {
	e := newEnv(t, nil)
	sid := uuid.NewString()
	ctx := context.Background()

	require.Equal(t, http.StatusOK, e.do(t, "POST", "/cart/products/3", "", sid).Code)
	held, err := e.carts.Get(ctx, sid)
	require.NoError(t, err)

	require.Equal(t, http.StatusNoContent, e.do(t, "DELETE", "/cart", "", sid).Code)
	require.Equal(t, http.StatusOK, e.do(t, "POST", "/cart/products/7", "", sid).Code)

	// a handle taken before the clear still writes the same cart
	require.NoError(t, held.AddProduct(ctx, 3))

	raw, err := e.store.Get(ctx, "test:cart:"+sid)
	require.NoError(t, err)
	var persisted models.Cart
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Len(t, persisted, 2)

	got := decodeSummary(t, e.do(t, "GET", "/cart", "", sid))
	require.Len(t, got.Items, 2)
	for i, line := range got.Items {
		assert.Equal(t, persisted[i], line.Product)
	}
	assert.True(t, persisted.Total().Equal(got.Total), got.Total.String())
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t, func(context.Context) error { return errors.New("store down") })
	rec := e.do(t, "GET", "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	e = newEnv(t, nil)
	assert.Equal(t, http.StatusOK, e.do(t, "GET", "/healthz", "", "").Code)

	e.do(t, "POST", "/cart/products/7", "", uuid.NewString())
	rec = e.do(t, "GET", "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cart_operations_total{op="add",outcome="ok"} 1`)
}

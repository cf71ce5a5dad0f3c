package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ServiceMock struct {
	items []domain.LineItem
	item  *domain.LineItem
	err   error

	gotUserID   string
	gotItemID   int64
	gotProduct  int64
	gotQuantity int
}

func (s *ServiceMock) GetCart(_ context.Context, userID string) ([]domain.LineItem, error) {
	s.gotUserID = userID
	return s.items, s.err
}

func (s *ServiceMock) AddItem(_ context.Context, userID string, productID int64, quantity int) (*domain.LineItem, error) {
	s.gotUserID, s.gotProduct, s.gotQuantity = userID, productID, quantity
	return s.item, s.err
}

func (s *ServiceMock) UpdateQuantity(_ context.Context, userID string, itemID int64, quantity int) (*domain.LineItem, error) {
	s.gotUserID, s.gotItemID, s.gotQuantity = userID, itemID, quantity
	return s.item, s.err
}

func (s *ServiceMock) RemoveItem(_ context.Context, userID string, itemID int64) error {
	s.gotUserID, s.gotItemID = userID, itemID
	return s.err
}

func (s *ServiceMock) ClearCart(_ context.Context, userID string) error {
	s.gotUserID = userID
	return s.err
}

func newTestRouter(mock *ServiceMock) http.Handler {
	handler := NewCartHandler(mock, 5*time.Second, logger.Discard())
	return NewRouter(handler, StaticTokens{"tok-1": "1"}, 5*time.Second)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var resp domain.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGetCart_Success(t *testing.T) {
	mock := &ServiceMock{items: []domain.LineItem{{ID: 1, ProductID: 42, Quantity: 2, Product: &domain.ProductSnapshot{ID: 42, Price: 10}}}}

	rec := doRequest(t, newTestRouter(mock), http.MethodGet, "/api/cart/", nil, "tok-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", mock.gotUserID)
	var items []domain.LineItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, 10.0, items[0].Product.Price)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGetCart_Unauthorized(t *testing.T) {
	router := newTestRouter(&ServiceMock{})

	rec := doRequest(t, router, http.MethodGet, "/api/cart/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)

	rec = doRequest(t, router, http.MethodGet, "/api/cart/", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", decodeError(t, rec).Error)
}

func TestGetCart_NoUserInContext(t *testing.T) {
	handler := NewCartHandler(&ServiceMock{}, time.Second, logger.Discard())
	rec := httptest.NewRecorder()

	handler.GetCart(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddItem_Success(t *testing.T) {
	mock := &ServiceMock{item: &domain.LineItem{ID: 3, ProductID: 42, Quantity: 2}}

	rec := doRequest(t, newTestRouter(mock), http.MethodPost, "/api/cart/add", domain.AddItemRequest{ProductID: 42, Quantity: 2}, "tok-1")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(42), mock.gotProduct)
	assert.Equal(t, 2, mock.gotQuantity)
}

func TestAddItem_DefaultQuantityIsOne(t *testing.T) {
	mock := &ServiceMock{item: &domain.LineItem{ID: 3, ProductID: 42, Quantity: 1}}

	rec := doRequest(t, newTestRouter(mock), http.MethodPost, "/api/cart/add", map[string]int64{"product_id": 42}, "tok-1")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, mock.gotQuantity)
}

func TestAddItem_InvalidBody(t *testing.T) {
	router := newTestRouter(&ServiceMock{})

	req := httptest.NewRequest(http.MethodPost, "/api/cart/add", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)

	rec = doRequest(t, router, http.MethodPost, "/api/cart/add", domain.AddItemRequest{ProductID: 0, Quantity: 1}, "tok-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_product_id", decodeError(t, rec).Code)
}

func TestAddItem_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"stock", service.ErrInsufficientStock, http.StatusBadRequest, "insufficient_stock", "insufficient stock"},
		{"quantity", service.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1"},
		{"product", service.ErrProductNotFound, http.StatusNotFound, "product_not_found", "product not found"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", "request timed out"},
		{"internal", errors.New("mongo exploded"), http.StatusInternalServerError, "internal_error", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &ServiceMock{err: tt.err}
			rec := doRequest(t, newTestRouter(mock), http.MethodPost, "/api/cart/add", domain.AddItemRequest{ProductID: 42, Quantity: 1}, "tok-1")

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.msg, resp.Error)
		})
	}
}

func TestUpdateQuantity_Success(t *testing.T) {
	mock := &ServiceMock{item: &domain.LineItem{ID: 5, Quantity: 3}}

	rec := doRequest(t, newTestRouter(mock), http.MethodPut, "/api/cart/5", domain.UpdateQuantityRequest{Quantity: 3}, "tok-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), mock.gotItemID)
	assert.Equal(t, 3, mock.gotQuantity)
}

func TestUpdateQuantity_InvalidItemID(t *testing.T) {
	rec := doRequest(t, newTestRouter(&ServiceMock{}), http.MethodPut, "/api/cart/abc", domain.UpdateQuantityRequest{Quantity: 3}, "tok-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_item_id", decodeError(t, rec).Code)
}

func TestRemoveItem_Success(t *testing.T) {
	mock := &ServiceMock{}

	rec := doRequest(t, newTestRouter(mock), http.MethodDelete, "/api/cart/9", nil, "tok-1")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(9), mock.gotItemID)
}

func TestRemoveItem_NotFound(t *testing.T) {
	mock := &ServiceMock{err: service.ErrItemNotFound}

	rec := doRequest(t, newTestRouter(mock), http.MethodDelete, "/api/cart/9", nil, "tok-1")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item not found in cart", decodeError(t, rec).Error)
}

func TestClearCart_RoutesBeforeItemID(t *testing.T) {
	mock := &ServiceMock{}

	rec := doRequest(t, newTestRouter(mock), http.MethodDelete, "/api/cart/clear", nil, "tok-1")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", mock.gotUserID)
	assert.Zero(t, mock.gotItemID)
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, newTestRouter(&ServiceMock{}), http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseStaticTokens(t *testing.T) {
	tokens := ParseStaticTokens("a:1, b:2,broken,:3,c:")

	assert.Equal(t, StaticTokens{"a": "1", "b": "2"}, tokens)
	userID, ok := tokens.Verify("b")
	assert.True(t, ok)
	assert.Equal(t, "2", userID)
	_, ok = tokens.Verify("c")
	assert.False(t, ok)
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header { return b.header }

func (b *brokenWriter) WriteHeader(status int) { b.status = status }

func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestRespond_EncodeFailureLoggedByHandlerLogger(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := NewCartHandler(&ServiceMock{items: []domain.LineItem{{ID: 1, ProductID: 42, Quantity: 1}}}, time.Second, log)

	req := httptest.NewRequest(http.MethodGet, "/api/cart/", nil)
	req = req.WithContext(context.WithValue(req.Context(), userIDKey, "1"))
	w := &brokenWriter{header: make(http.Header)}

	handler.GetCart(w, req)

	assert.Equal(t, http.StatusOK, w.status)
	assert.Contains(t, logs.String(), "failed to encode response")
	assert.Contains(t, logs.String(), "connection reset by peer")
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

const maxRequestBodySize = 1 << 20 // 1MB

// CartService is what the handler needs from the cart service.
type CartService interface {
	GetCart(ctx context.Context, userID string) ([]domain.LineItem, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.LineItem, error)
	UpdateQuantity(ctx context.Context, userID string, itemID int64, quantity int) (*domain.LineItem, error)
	RemoveItem(ctx context.Context, userID string, itemID int64) error
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	service CartService
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(svc CartService, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		timeout: timeout,
		log:     logger.OrDefault(log),
	}
}

// Routes mounts the cart endpoints. The static /add and /clear paths take
// precedence over /{id}.
func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/", h.GetCart)
	r.Post("/add", h.AddItem)
	r.Delete("/clear", h.ClearCart)
	r.Put("/{id}", h.UpdateQuantity)
	r.Delete("/{id}", h.RemoveItem)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		h.respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	items, err := h.service.GetCart(ctx, userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, items)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		h.respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	req := domain.AddItemRequest{Quantity: 1}
	if err := decodeBody(w, r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		h.respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	item, err := h.service.AddItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusCreated, item)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		h.respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	itemID, ok := h.itemIDParam(w, r)
	if !ok {
		return
	}

	var req domain.UpdateQuantityRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	item, err := h.service.UpdateQuantity(ctx, userID, itemID, req.Quantity)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		h.respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	itemID, ok := h.itemIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveItem(ctx, userID, itemID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		h.respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.service.ClearCart(ctx, userID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) itemIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID <= 0 {
		h.respondError(w, r, http.StatusBadRequest, "invalid_item_id", "item id must be a positive integer")
		return 0, false
	}
	return itemID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(dst)
}

func (h *CartHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		httpStatus int
		code       string
		message    = err.Error()
	)

	switch {
	case errors.Is(err, service.ErrInvalidQuantity):
		httpStatus, code = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, service.ErrInsufficientStock):
		httpStatus, code = http.StatusBadRequest, "insufficient_stock"
	case errors.Is(err, service.ErrProductNotFound):
		httpStatus, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, service.ErrItemNotFound):
		httpStatus, code = http.StatusNotFound, "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code, message = http.StatusGatewayTimeout, "timeout", "request timed out"
	default:
		httpStatus, code, message = http.StatusInternalServerError, "internal_error", "internal server error"
		h.log.Error("cart request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", getRequestID(r.Context()),
			"err", err,
		)
	}

	h.respondError(w, r, httpStatus, code, message)
}

func (h *CartHandler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if err := respondJSON(w, status, data); err != nil {
		h.log.Warn("failed to encode response",
			"path", r.URL.Path,
			"request_id", getRequestID(r.Context()),
			"err", err,
		)
	}
}

func (h *CartHandler) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.respondJSON(w, r, status, domain.ErrorResponse{Error: message, Code: code})
}

// respondJSON writes data as the response body. The status line is already
// sent when encoding fails, so the error is only worth logging.
func respondJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) error {
	return respondJSON(w, status, domain.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

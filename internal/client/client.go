package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 10 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the otel-instrumented default client.
	HTTPClient *http.Client

	// BreakerFailures is the number of consecutive transport or 5xx
	// failures that opens the breaker. Zero means 5.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open. Zero means 10s.
	BreakerCooldown time.Duration
}

// Client talks to the cart API on behalf of the current session.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	creds   auth.CredentialSource
	breaker *gobreaker.CircuitBreaker[*http.Response]
	log     *slog.Logger
}

func New(cfg Config, creds auth.CredentialSource, log *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("cart api base url is required")
	}
	if creds == nil {
		return nil, errors.New("credential source is required")
	}
	log = logger.OrDefault(log)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "cart-api",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		timeout: timeout,
		creds:   creds,
		breaker: breaker,
		log:     log,
	}, nil
}

func (c *Client) GetCart(ctx context.Context) ([]domain.LineItem, error) {
	var items []domain.LineItem
	if err := c.do(ctx, "get cart", http.MethodGet, "/api/cart/", nil, &items, http.StatusOK); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	return items, nil
}

func (c *Client) AddItem(ctx context.Context, productID int64, quantity int) (*domain.LineItem, error) {
	var item domain.LineItem
	req := domain.AddItemRequest{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, "add item", http.MethodPost, "/api/cart/add", req, &item, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, itemID int64, quantity int) (*domain.LineItem, error) {
	var item domain.LineItem
	req := domain.UpdateQuantityRequest{Quantity: quantity}
	path := fmt.Sprintf("/api/cart/%d", itemID)
	if err := c.do(ctx, "update item", http.MethodPut, path, req, &item, http.StatusOK); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) RemoveItem(ctx context.Context, itemID int64) error {
	path := fmt.Sprintf("/api/cart/%d", itemID)
	return c.do(ctx, "remove item", http.MethodDelete, path, nil, nil, http.StatusNoContent, http.StatusOK)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, "clear cart", http.MethodDelete, "/api/cart/clear", nil, nil, http.StatusNoContent, http.StatusOK)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any, want ...int) error {
	token, ok := c.creds.Token()
	if !ok {
		return &Error{Op: op, Kind: KindAuth, Err: ErrUnauthenticated}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= 500 {
			return r, errUpstream
		}
		return r, nil
	})
	if err != nil && !errors.Is(err, errUpstream) {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if !slices.Contains(want, resp.StatusCode) {
		return decodeError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Kind: KindTransport, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func decodeError(op string, resp *http.Response) error {
	apiErr := &Error{Op: op, Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		apiErr.Err = err
		return apiErr
	}
	var payload domain.ErrorResponse
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
	}
	return apiErr
}

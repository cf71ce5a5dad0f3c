package dispatcher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
)

const (
	msgAddFailed    = "Failed to add to cart"
	msgUpdateFailed = "Failed to update quantity"
	msgRemoveFailed = "Failed to remove item"
	msgClearFailed  = "Failed to clear cart"
	msgNotLoggedIn  = "not authenticated"
)

// CartService is the remote side of every mutation.
type CartService interface {
	AddItem(ctx context.Context, productID int64, quantity int) (*domain.LineItem, error)
	UpdateItem(ctx context.Context, itemID int64, quantity int) (*domain.LineItem, error)
	RemoveItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

// Store is the part of the cart store the dispatcher reconciles into.
type Store interface {
	Refresh(ctx context.Context) error
	Issue() cartstore.Ticket
	ApplyClear(t cartstore.Ticket) error
}

// Result is returned by every mutation. Error is empty on success.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func ok() Result { return Result{Success: true} }

func failed(msg string) Result { return Result{Success: false, Error: msg} }

// Dispatcher applies user intents to the remote cart and then re-reads the
// authoritative cart into the store. The local copy is never patched.
type Dispatcher struct {
	remote CartService
	store  Store
	auth   cartstore.Authenticator
	log    *slog.Logger
}

func New(remote CartService, store Store, authenticator cartstore.Authenticator, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		remote: remote,
		store:  store,
		auth:   authenticator,
		log:    logger.OrDefault(log),
	}
}

// AddItem adds quantity units of productID. quantity is passed through as is.
func (d *Dispatcher) AddItem(ctx context.Context, productID int64, quantity int) Result {
	if !d.authenticated() {
		return failed(msgNotLoggedIn)
	}
	if _, err := d.remote.AddItem(ctx, productID, quantity); err != nil {
		return d.fail("add item", msgAddFailed, err, "product_id", productID, "quantity", quantity)
	}
	d.reconcile(ctx, "add item")
	return ok()
}

// SetQuantity sets the quantity of an existing line item. Quantities below
// one are ignored; use RemoveItem to delete a line.
func (d *Dispatcher) SetQuantity(ctx context.Context, itemID int64, quantity int) Result {
	if quantity < 1 {
		return ok()
	}
	if !d.authenticated() {
		return failed(msgNotLoggedIn)
	}
	if _, err := d.remote.UpdateItem(ctx, itemID, quantity); err != nil {
		return d.fail("update item", msgUpdateFailed, err, "item_id", itemID, "quantity", quantity)
	}
	d.reconcile(ctx, "update item")
	return ok()
}

func (d *Dispatcher) RemoveItem(ctx context.Context, itemID int64) Result {
	if !d.authenticated() {
		return failed(msgNotLoggedIn)
	}
	if err := d.remote.RemoveItem(ctx, itemID); err != nil {
		return d.fail("remove item", msgRemoveFailed, err, "item_id", itemID)
	}
	d.reconcile(ctx, "remove item")
	return ok()
}

// Clear empties the remote cart. The resulting state is known, so the store
// is cleared directly without a refresh. The clear is ordered from the
// moment the request is sent: a refresh issued while it is in transit and
// already applied is kept.
func (d *Dispatcher) Clear(ctx context.Context) Result {
	if !d.authenticated() {
		return failed(msgNotLoggedIn)
	}
	ticket := d.store.Issue()
	if err := d.remote.ClearCart(ctx); err != nil {
		return d.fail("clear cart", msgClearFailed, err)
	}
	if err := d.store.ApplyClear(ticket); err != nil {
		d.log.Debug("clear superseded", "err", err)
	}
	return ok()
}

func (d *Dispatcher) authenticated() bool {
	return d.auth == nil || d.auth.IsAuthenticated()
}

// reconcile refreshes after a successful mutation. The mutation already
// happened on the server, so a refresh failure is logged, not returned.
func (d *Dispatcher) reconcile(ctx context.Context, op string) {
	err := d.store.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, cartstore.ErrStaleResult), errors.Is(err, cartstore.ErrSessionEnded):
		d.log.Debug("refresh superseded", "op", op, "err", err)
	default:
		d.log.Warn("refresh after mutation failed", "op", op, "err", err)
	}
}

func (d *Dispatcher) fail(op, fallback string, err error, attrs ...any) Result {
	d.log.Warn(op+" failed", append(attrs, "err", err)...)
	if errors.Is(err, client.ErrUnauthenticated) {
		return failed(msgNotLoggedIn)
	}
	if msg, found := client.ServerMessage(err); found {
		return failed(msg)
	}
	return failed(fallback)
}

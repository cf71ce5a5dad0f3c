package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

// CartRepository persists per-user carts. Item ids are allocated by the
// repository and never reused.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem adds quantity to the line holding productID, creating the line
	// (and the cart) when missing. It returns the resulting line.
	AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, userID string, itemID int64, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID string, itemID int64) error
	DeleteCart(ctx context.Context, userID string) error
}

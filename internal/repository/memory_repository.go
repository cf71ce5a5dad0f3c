package repository

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MemoryRepository keeps carts in process memory. Used for local runs and
// tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	carts  map[string]*domain.Cart
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		carts:  make(map[string]*domain.Cart),
		nextID: 1,
	}
}

func (m *MemoryRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart, exists := m.carts[userID]
	if !exists {
		return nil, ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (m *MemoryRepository) AddItem(_ context.Context, userID string, productID int64, quantity int) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cart, exists := m.carts[userID]
	if !exists {
		cart = &domain.Cart{UserID: userID, CreatedAt: now}
		m.carts[userID] = cart
	}
	cart.UpdatedAt = now

	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			item := cart.Items[i]
			return &item, nil
		}
	}

	item := domain.CartItem{ID: m.nextID, ProductID: productID, Quantity: quantity, AddedAt: now}
	m.nextID++
	cart.Items = append(cart.Items, item)
	return &item, nil
}

func (m *MemoryRepository) UpdateItemQuantity(_ context.Context, userID string, itemID int64, quantity int) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, exists := m.carts[userID]
	if !exists {
		return nil, ErrItemNotFound
	}
	i := cart.FindItem(itemID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	cart.Items[i].Quantity = quantity
	cart.UpdatedAt = time.Now()
	item := cart.Items[i]
	return &item, nil
}

func (m *MemoryRepository) RemoveItem(_ context.Context, userID string, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, exists := m.carts[userID]
	if !exists {
		return ErrItemNotFound
	}
	i := cart.FindItem(itemID)
	if i < 0 {
		return ErrItemNotFound
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	cart.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepository) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.carts[userID]; !exists {
		return ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}

func copyCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.CartItem(nil), c.Items...)
	return &out
}

package catalog

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MemoryCatalog implements Catalog with in-memory storage
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[int64]domain.ProductSnapshot
}

func NewMemoryCatalog(products ...domain.ProductSnapshot) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[int64]domain.ProductSnapshot, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *MemoryCatalog) GetProduct(_ context.Context, id int64) (domain.ProductSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, exists := c.products[id]
	if !exists {
		return domain.ProductSnapshot{}, ErrProductNotFound
	}
	return p, nil
}

func (c *MemoryCatalog) GetProducts(_ context.Context, ids []int64) (map[int64]domain.ProductSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[int64]domain.ProductSnapshot, len(ids))
	for _, id := range ids {
		if p, exists := c.products[id]; exists {
			result[id] = p
		}
	}
	return result, nil
}

// Upsert adds or replaces a product.
func (c *MemoryCatalog) Upsert(p domain.ProductSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

// SetStock sets the stock level for a product
func (c *MemoryCatalog) SetStock(id int64, quantity int) error {
	if quantity < 0 {
		return ErrInvalidStock
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p, exists := c.products[id]
	if !exists {
		return ErrProductNotFound
	}
	p.StockQuantity = quantity
	c.products[id] = p
	return nil
}

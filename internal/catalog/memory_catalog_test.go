package catalog

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalog_GetProduct(t *testing.T) {
	c := NewMemoryCatalog(DefaultProducts()...)

	p, err := c.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Super Hero Action Figure", p.Name)
	assert.Equal(t, 24.99, p.Price)

	_, err = c.GetProduct(context.Background(), 999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryCatalog_GetProducts_OmitsUnknown(t *testing.T) {
	c := NewMemoryCatalog(DefaultProducts()...)

	products, err := c.GetProducts(context.Background(), []int64{1, 2, 999})
	require.NoError(t, err)

	assert.Len(t, products, 2)
	assert.Contains(t, products, int64(1))
	assert.NotContains(t, products, int64(999))
}

func TestMemoryCatalog_SetStock(t *testing.T) {
	c := NewMemoryCatalog(domain.ProductSnapshot{ID: 7, Name: "Puzzle", StockQuantity: 10})

	require.NoError(t, c.SetStock(7, 2))
	p, err := c.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, p.StockQuantity)

	assert.ErrorIs(t, c.SetStock(8, 1), ErrProductNotFound)
	assert.ErrorIs(t, c.SetStock(7, -1), ErrInvalidStock)
}

func TestMemoryCatalog_Upsert(t *testing.T) {
	c := NewMemoryCatalog()
	c.Upsert(domain.ProductSnapshot{ID: 5, Name: "Kite", Price: 12})

	p, err := c.GetProduct(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Kite", p.Name)
}

func TestDefaultProducts_UniqueIDs(t *testing.T) {
	seen := make(map[int64]bool)
	for _, p := range DefaultProducts() {
		assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
		seen[p.ID] = true
		assert.Positive(t, p.Price)
	}
}

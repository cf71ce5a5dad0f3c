package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract exercises the CartRepository behaviour every implementation
// must share.
func runContract(t *testing.T, newRepo func(t *testing.T) CartRepository) {
	t.Run("GetCart_NotFound", func(t *testing.T) {
		repo := newRepo(t)
		cart, err := repo.GetCart(context.Background(), "nonexistent")
		assert.ErrorIs(t, err, ErrCartNotFound)
		assert.Nil(t, cart)
	})

	t.Run("AddItem_NewCart", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		item, err := repo.AddItem(ctx, "user123", 1, 3)
		require.NoError(t, err)
		assert.NotZero(t, item.ID)
		assert.Equal(t, 3, item.Quantity)

		cart, err := repo.GetCart(ctx, "user123")
		require.NoError(t, err)
		assert.Equal(t, "user123", cart.UserID)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, int64(1), cart.Items[0].ProductID)
		assert.Equal(t, item.ID, cart.Items[0].ID)
	})

	t.Run("AddItem_ExistingProduct_IncrementsQuantity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.AddItem(ctx, "user123", 1, 2)
		require.NoError(t, err)
		second, err := repo.AddItem(ctx, "user123", 1, 5)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 7, second.Quantity)
		cart, err := repo.GetCart(ctx, "user123")
		require.NoError(t, err)
		assert.Len(t, cart.Items, 1)
	})

	t.Run("AddItem_KeepsInsertionOrderAndUniqueIDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a, err := repo.AddItem(ctx, "user123", 10, 1)
		require.NoError(t, err)
		b, err := repo.AddItem(ctx, "user123", 20, 1)
		require.NoError(t, err)
		c, err := repo.AddItem(ctx, "other", 10, 1)
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
		assert.NotEqual(t, a.ID, c.ID)
		cart, err := repo.GetCart(ctx, "user123")
		require.NoError(t, err)
		require.Len(t, cart.Items, 2)
		assert.Equal(t, int64(10), cart.Items[0].ProductID)
		assert.Equal(t, int64(20), cart.Items[1].ProductID)
	})

	t.Run("UpdateItemQuantity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		item, err := repo.AddItem(ctx, "user123", 1, 2)
		require.NoError(t, err)

		updated, err := repo.UpdateItemQuantity(ctx, "user123", item.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, updated.Quantity)

		cart, err := repo.GetCart(ctx, "user123")
		require.NoError(t, err)
		assert.Equal(t, 10, cart.Items[0].Quantity)
	})

	t.Run("UpdateItemQuantity_UnknownItem", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		_, err := repo.AddItem(ctx, "user123", 1, 2)
		require.NoError(t, err)

		_, err = repo.UpdateItemQuantity(ctx, "user123", 9999, 1)
		assert.ErrorIs(t, err, ErrItemNotFound)
		_, err = repo.UpdateItemQuantity(ctx, "nobody", 1, 1)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("RemoveItem", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		first, err := repo.AddItem(ctx, "user123", 1, 2)
		require.NoError(t, err)
		_, err = repo.AddItem(ctx, "user123", 2, 3)
		require.NoError(t, err)

		require.NoError(t, repo.RemoveItem(ctx, "user123", first.ID))

		cart, err := repo.GetCart(ctx, "user123")
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, int64(2), cart.Items[0].ProductID)
		assert.ErrorIs(t, repo.RemoveItem(ctx, "user123", first.ID), ErrItemNotFound)
	})

	t.Run("DeleteCart", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		_, err := repo.AddItem(ctx, "user123", 1, 2)
		require.NoError(t, err)

		require.NoError(t, repo.DeleteCart(ctx, "user123"))

		_, err = repo.GetCart(ctx, "user123")
		assert.ErrorIs(t, err, ErrCartNotFound)
		assert.ErrorIs(t, repo.DeleteCart(ctx, "user123"), ErrCartNotFound)
	})
}

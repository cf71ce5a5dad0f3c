package catalog

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidStock    = errors.New("stock quantity must not be negative")
)

// Catalog is the read side of the product table the cart API needs: the
// snapshot attached to line items and the stock used to validate
// quantities.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (domain.ProductSnapshot, error)
	// GetProducts returns the known products among ids. Unknown ids are
	// omitted.
	GetProducts(ctx context.Context, ids []int64) (map[int64]domain.ProductSnapshot, error)
}

// DefaultProducts is the demo catalog served by cart-api.
func DefaultProducts() []domain.ProductSnapshot {
	return []domain.ProductSnapshot{
		{
			ID:            1,
			Name:          "Super Hero Action Figure",
			Description:   "Poseable action figure with authentic details and accessories.",
			Price:         24.99,
			Category:      "Action Figures",
			StockQuantity: 50,
			ImageURL:      "https://via.placeholder.com/300/ff6b6b/ffffff?text=Action+Figure",
		},
		{
			ID:            2,
			Name:          "Space Warrior Figure Set",
			Description:   "Complete set of 5 space warrior figures with weapons and accessories.",
			Price:         39.99,
			Category:      "Action Figures",
			StockQuantity: 30,
			ImageURL:      "https://via.placeholder.com/300/ff6b6b/ffffff?text=Space+Warriors",
		},
		{
			ID:            3,
			Name:          "Fashion Doll with Accessories",
			Description:   "Fashion doll with multiple outfits and accessories.",
			Price:         29.99,
			Category:      "Dolls",
			StockQuantity: 45,
			ImageURL:      "https://via.placeholder.com/300/ff69b4/ffffff?text=Fashion+Doll",
		},
		{
			ID:            4,
			Name:          "Baby Care Doll Set",
			Description:   "Baby doll with feeding bottle, pacifier, and care accessories.",
			Price:         34.99,
			Category:      "Dolls",
			StockQuantity: 3,
			ImageURL:      "https://via.placeholder.com/300/ff69b4/ffffff?text=Baby+Doll",
		},
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = catalog.ErrProductNotFound
	ErrItemNotFound      = repository.ErrItemNotFound
)

// CartService is the authoritative cart behind the cart API.
type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog catalog.Catalog
	log     *slog.Logger
	sfg     singleflight.Group // Prevents cache stampede

	// genMu guards gens. A reader may only populate the cache if no
	// mutation invalidated the user's entry since the reader started.
	genMu sync.Mutex
	gens  map[string]uint64

	// userLocks serialize the stock check and the write it guards for one
	// user. Users are striped over a fixed set of mutexes.
	userLocks [lockStripes]sync.Mutex
	lockSeed  maphash.Seed
}

const lockStripes = 64

func NewCartService(repo repository.CartRepository, c cache.CartCache, products catalog.Catalog, log *slog.Logger) *CartService {
	if c == nil {
		c = cache.NopCache{}
	}
	return &CartService{
		repo:     repo,
		cache:    c,
		catalog:  products,
		log:      logger.OrDefault(log),
		gens:     make(map[string]uint64),
		lockSeed: maphash.MakeSeed(),
	}
}

func (s *CartService) lockUser(userID string) (unlock func()) {
	mu := &s.userLocks[maphash.String(s.lockSeed, userID)%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// GetCart returns the user's line items in insertion order, each with the
// current product snapshot attached.
func (s *CartService) GetCart(ctx context.Context, userID string) ([]domain.LineItem, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.lineItems(ctx, cart.Items)
}

func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.LineItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	cart, err := s.readRepo(ctx, userID)
	if err != nil {
		return nil, err
	}
	inCart := 0
	for _, item := range cart.Items {
		if item.ProductID == productID {
			inCart = item.Quantity
		}
	}
	if inCart+quantity > product.StockQuantity {
		return nil, ErrInsufficientStock
	}

	item, err := s.repo.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		s.log.Error("repo add item failed", "user_id", userID, "product_id", productID, "err", err)
		return nil, err
	}
	s.invalidateCache(userID)
	return toLineItem(*item, &product), nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID string, itemID int64, quantity int) (*domain.LineItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	unlock := s.lockUser(userID)
	defer unlock()

	cart, err := s.readRepo(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := cart.FindItem(itemID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	product, err := s.catalog.GetProduct(ctx, cart.Items[i].ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > product.StockQuantity {
		return nil, ErrInsufficientStock
	}

	item, err := s.repo.UpdateItemQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			s.log.Error("repo update item quantity failed", "user_id", userID, "item_id", itemID, "err", err)
		}
		return nil, err
	}
	s.invalidateCache(userID)
	return toLineItem(*item, &product), nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, itemID int64) error {
	if err := s.repo.RemoveItem(ctx, userID, itemID); err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			s.log.Error("repo remove item failed", "user_id", userID, "item_id", itemID, "err", err)
		}
		return err
	}
	s.invalidateCache(userID)
	return nil
}

// ClearCart removes every line. Clearing an empty cart succeeds.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.log.Error("repo delete cart failed", "user_id", userID, "err", err)
		return err
	}
	s.invalidateCache(userID)
	return nil
}

func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get failed", "user_id", userID, "err", err) // continue with the repository
		}

		gen := s.generation(userID)
		cart, err = s.readRepo(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.fillCache(userID, gen, cart)
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// readRepo reads straight from the repository; a missing cart is empty.
func (s *CartService) readRepo(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		now := time.Now()
		return &domain.Cart{UserID: userID, Items: []domain.CartItem{}, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) lineItems(ctx context.Context, items []domain.CartItem) ([]domain.LineItem, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		var snapshot *domain.ProductSnapshot
		if p, found := products[item.ProductID]; found {
			snapshot = &p
		}
		out = append(out, *toLineItem(item, snapshot))
	}
	return out, nil
}

func toLineItem(item domain.CartItem, product *domain.ProductSnapshot) *domain.LineItem {
	return &domain.LineItem{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Product:   product,
	}
}

func (s *CartService) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[userID]
}

func (s *CartService) fillCache(userID string, gen uint64, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gens[userID] != gen {
		return
	}
	if err := s.cache.Set(ctx, userID, cart); err != nil {
		s.log.Warn("cache set failed", "user_id", userID, "err", err)
	}
}

// invalidateCache drops the cached cart and any in-flight read, so the next
// GetCart observes the mutation.
func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s.genMu.Lock()
	s.gens[userID]++
	err := s.cache.Delete(ctx, userID)
	s.genMu.Unlock()
	s.sfg.Forget(userID)

	if err != nil {
		s.log.Warn("cache invalidate failed", "user_id", userID, "err", err)
	}
}

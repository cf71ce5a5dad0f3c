package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const itemIDCounter = "cart_item_id"

type MongoRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
		counters:   db.Collection("counters"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m *MongoRepository) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.CartItem, error) {
	now := time.Now()
	filter := bson.M{"user_id": userID}

	existing, err := m.GetCart(ctx, userID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		return nil, fmt.Errorf("failed to check existing cart: %w", err)
	}

	if existing != nil {
		for _, item := range existing.Items {
			if item.ProductID != productID {
				continue
			}
			update := bson.M{
				"$inc": bson.M{"items.$[elem].quantity": quantity},
				"$set": bson.M{"updated_at": now},
			}
			arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
				Filters: []interface{}{
					bson.M{"elem.product_id": productID},
				},
			})
			if _, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters); err != nil {
				return nil, fmt.Errorf("failed to update existing item: %w", err)
			}
			return m.findItem(ctx, userID, item.ID)
		}
	}

	id, err := m.nextItemID(ctx)
	if err != nil {
		return nil, err
	}
	item := domain.CartItem{ID: id, ProductID: productID, Quantity: quantity, AddedAt: now}

	update := bson.M{
		"$push":        bson.M{"items": item},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	if _, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return nil, fmt.Errorf("failed to add new item: %w", err)
	}
	return &item, nil
}

func (m *MongoRepository) UpdateItemQuantity(ctx context.Context, userID string, itemID int64, quantity int) (*domain.CartItem, error) {
	filter := bson.M{
		"user_id":  userID,
		"items.id": itemID,
	}
	update := bson.M{
		"$set": bson.M{
			"items.$.quantity": quantity,
			"updated_at":       time.Now(),
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update item quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrItemNotFound
	}
	return m.findItem(ctx, userID, itemID)
}

func (m *MongoRepository) RemoveItem(ctx context.Context, userID string, itemID int64) error {
	filter := bson.M{
		"user_id":  userID,
		"items.id": itemID,
	}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"id": itemID},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, userID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) findItem(ctx context.Context, userID string, itemID int64) (*domain.CartItem, error) {
	cart, err := m.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := cart.FindItem(itemID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	return &cart.Items[i], nil
}

func (m *MongoRepository) nextItemID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": itemIDCounter},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate item id: %w", err)
	}
	return counter.Seq, nil
}

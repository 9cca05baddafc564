package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{collection: db.Collection(cartsCollection)}
}

func (m *mongoCartRepository) GetActiveCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID, "status": domain.CartStatusActive}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get active cart: %w", err)
	}

	return &cart, nil
}

func (m *mongoCartRepository) CreateCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	_, err := m.collection.InsertOne(ctx, cart)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateActiveCart
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) UpdateCart(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now()

	// Whole-document replace keeps items and totals consistent in one write.
	filter := bson.M{"_id": cart.ID, "status": domain.CartStatusActive}
	result, err := m.collection.ReplaceOne(ctx, filter, cart)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) CloseCart(ctx context.Context, cartID string, status domain.CartStatus) error {
	now := time.Now()
	set := bson.M{"status": status, "updated_at": now}
	if status == domain.CartStatusAbandoned {
		set["abandoned_at"] = now
	}

	filter := bson.M{"_id": cartID, "status": domain.CartStatusActive}
	_, err := m.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to close cart: %w", err)
	}
	// Zero matches means the cart is already closed; closing is idempotent.
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
)

type mongoPromoRepository struct {
	promos   *mongo.Collection
	usages   *mongo.Collection
	counters *mongo.Collection
}

func NewMongoPromoRepository(db *mongo.Database) PromoRepository {
	return &mongoPromoRepository{
		promos:   db.Collection(promosCollection),
		usages:   db.Collection(usagesCollection),
		counters: db.Collection(countersCollection),
	}
}

func (m *mongoPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var promo domain.PromoCode

	err := m.promos.FindOne(ctx, bson.M{"code": domain.NormalizeCode(code)}).Decode(&promo)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPromoNotFound
		}
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}

	return &promo, nil
}

func (m *mongoPromoRepository) CreatePromoCode(ctx context.Context, promo *domain.PromoCode) error {
	now := time.Now()
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = now
	}
	promo.UpdatedAt = now
	promo.Code = domain.NormalizeCode(promo.Code)

	if _, err := m.promos.InsertOne(ctx, promo); err != nil {
		return fmt.Errorf("failed to create promo code: %w", err)
	}
	return nil
}

func (m *mongoPromoRepository) CountUsages(ctx context.Context, code string) (int64, error) {
	count, err := m.usages.CountDocuments(ctx, bson.M{"code": code})
	if err != nil {
		return 0, fmt.Errorf("failed to count promo usages: %w", err)
	}
	return count, nil
}

func (m *mongoPromoRepository) CountUserUsages(ctx context.Context, code, userID string) (int64, error) {
	count, err := m.usages.CountDocuments(ctx, bson.M{"code": code, "user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count user promo usages: %w", err)
	}
	return count, nil
}

// ReserveUsage takes the global and per-user slots via atomic counter
// documents, then appends the audit row. The conditional $inc is what makes
// the limit race-free without multi-document transactions; the ledger itself
// is bookkeeping, not the source of truth for the limit.
func (m *mongoPromoRepository) ReserveUsage(ctx context.Context, usage *domain.PromoCodeUsage, usageLimit, perUserLimit int) error {
	globalKey := fmt.Sprintf("code:%s", usage.Code)
	userKey := fmt.Sprintf("user:%s:%s", usage.Code, usage.UserID)

	if usageLimit > 0 {
		ok, err := m.reserveSlot(ctx, globalKey, usageLimit)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUsageLimitExceeded
		}
	}

	if perUserLimit > 0 {
		ok, err := m.reserveSlot(ctx, userKey, perUserLimit)
		if err != nil {
			if usageLimit > 0 {
				m.releaseSlot(ctx, globalKey)
			}
			return err
		}
		if !ok {
			if usageLimit > 0 {
				m.releaseSlot(ctx, globalKey)
			}
			return ErrUsageLimitExceeded
		}
	}

	if usage.ID == "" {
		usage.ID = primitive.NewObjectID().Hex()
	}
	if usage.UsedAt.IsZero() {
		usage.UsedAt = time.Now()
	}

	if _, err := m.usages.InsertOne(ctx, usage); err != nil {
		if usageLimit > 0 {
			m.releaseSlot(ctx, globalKey)
		}
		if perUserLimit > 0 {
			m.releaseSlot(ctx, userKey)
		}
		return fmt.Errorf("failed to append usage row: %w", err)
	}

	return nil
}

// reserveSlot increments the counter only while it is under the limit.
// The first reservation upserts the document; a concurrent first upsert
// surfaces as a duplicate key and is retried against the now-existing doc.
func (m *mongoPromoRepository) reserveSlot(ctx context.Context, key string, limit int) (bool, error) {
	filter := bson.M{"_id": key, "count": bson.M{"$lt": limit}}
	update := bson.M{"$inc": bson.M{"count": 1}}
	opts := options.Update().SetUpsert(true)

	for attempt := 0; attempt < 2; attempt++ {
		res, err := m.counters.UpdateOne(ctx, filter, update, opts)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return false, fmt.Errorf("failed to reserve usage slot %s: %w", key, err)
		}
		return res.MatchedCount == 1 || res.UpsertedCount == 1, nil
	}

	// Both attempts hit the duplicate key: the doc exists at the limit.
	return false, nil
}

func (m *mongoPromoRepository) releaseSlot(ctx context.Context, key string) {
	_, err := m.counters.UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"count": -1}})
	if err != nil {
		log.Printf("failed to release usage slot %s: %v", key, err)
	}
}

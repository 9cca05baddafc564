package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
)

type mongoSessionRepository struct {
	collection *mongo.Collection
}

func NewMongoSessionRepository(db *mongo.Database) CheckoutSessionRepository {
	return &mongoSessionRepository{collection: db.Collection(sessionsCollection)}
}

func (m *mongoSessionRepository) CreateSession(ctx context.Context, session *domain.CheckoutSession) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	if _, err := m.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	return nil
}

func (m *mongoSessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession

	err := m.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}

	return &session, nil
}

func (m *mongoSessionRepository) UpdateSession(ctx context.Context, session *domain.CheckoutSession) error {
	session.UpdatedAt = time.Now()

	result, err := m.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return fmt.Errorf("failed to update checkout session: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (m *mongoSessionRepository) ClaimSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	filter := bson.M{"_id": sessionID, "status": domain.SessionStatusCreated}
	update := bson.M{"$set": bson.M{
		"status":     domain.SessionStatusConfirming,
		"updated_at": time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session domain.CheckoutSession
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Either never existed, expired away, or another confirm won.
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to claim checkout session: %w", err)
	}

	return &session, nil
}

func (m *mongoSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete checkout session: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	cartsCollection    = "carts"
	sessionsCollection = "checkout_sessions"
	promosCollection   = "promo_codes"
	usagesCollection   = "promo_code_usages"
	countersCollection = "promo_usage_counters"
	ordersCollection   = "orders"
	historyCollection  = "order_status_history"
	intentsCollection  = "payment_intents"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// EnsureIndexes creates the indexes the workflow invariants rely on. The
// partial unique index on active carts is the actual "one active cart per
// user" guarantee; read-then-create alone would race.
func EnsureIndexes(ctx context.Context, db *mongo.Database, abandonedTTL time.Duration) error {
	_, err := db.Collection(cartsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "active"}),
		},
		{
			Keys: bson.D{{Key: "abandoned_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(int32(abandonedTTL.Seconds())).
				SetPartialFilterExpression(bson.M{"status": "abandoned"}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	_, err = db.Collection(sessionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create session TTL index: %w", err)
	}

	_, err = db.Collection(promosCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create promo code index: %w", err)
	}

	_, err = db.Collection(usagesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}},
		{Keys: bson.D{{Key: "code", Value: 1}, {Key: "user_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create usage ledger indexes: %w", err)
	}

	_, err = db.Collection(ordersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}

	_, err = db.Collection(historyCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create history index: %w", err)
	}

	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
)

type mongoOrderRepository struct {
	orders  *mongo.Collection
	history *mongo.Collection
	intents *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		orders:  db.Collection(ordersCollection),
		history: db.Collection(historyCollection),
		intents: db.Collection(intentsCollection),
	}
}

func (m *mongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	if _, err := m.orders.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order

	err := m.orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (m *mongoOrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.orders.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	for cursor.Next(ctx) {
		var order domain.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("order cursor error: %w", err)
	}

	return orders, nil
}

func (m *mongoOrderRepository) MarkPaymentProcessing(ctx context.Context, orderID string) (bool, error) {
	filter := bson.M{"_id": orderID, "payment_status": domain.PaymentStatusPending}
	update := bson.M{"$set": bson.M{
		"payment_status": domain.PaymentStatusProcessing,
		"updated_at":     time.Now(),
	}}

	result, err := m.orders.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment processing: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (m *mongoOrderRepository) CompletePayment(ctx context.Context, orderID, transactionID, method string) (bool, error) {
	filter := bson.M{
		"_id": orderID,
		"payment_status": bson.M{"$in": []domain.PaymentStatus{
			domain.PaymentStatusPending,
			domain.PaymentStatusProcessing,
			domain.PaymentStatusFailed,
		}},
	}
	update := bson.M{"$set": bson.M{
		"payment_status":          domain.PaymentStatusCompleted,
		"status":                  domain.OrderStatusConfirmed,
		"provider_transaction_id": transactionID,
		"payment_method":          method,
		"updated_at":              time.Now(),
	}}

	result, err := m.orders.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to complete payment: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (m *mongoOrderRepository) FailPayment(ctx context.Context, orderID string) error {
	filter := bson.M{
		"_id":            orderID,
		"payment_status": bson.M{"$ne": domain.PaymentStatusCompleted},
	}
	update := bson.M{"$set": bson.M{
		"payment_status": domain.PaymentStatusFailed,
		"updated_at":     time.Now(),
	}}

	if _, err := m.orders.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, set map[string]interface{}) (bool, error) {
	fields := bson.M{"status": to, "updated_at": time.Now()}
	for k, v := range set {
		fields[k] = v
	}

	filter := bson.M{"_id": orderID, "status": from}
	result, err := m.orders.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return false, fmt.Errorf("failed to transition order status: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (m *mongoOrderRepository) AppendHistory(ctx context.Context, h *domain.OrderStatusHistory) error {
	if h.ID == "" {
		h.ID = primitive.NewObjectID().Hex()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	if _, err := m.history.InsertOne(ctx, h); err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) ListHistory(ctx context.Context, orderID string) ([]*domain.OrderStatusHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := m.history.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*domain.OrderStatusHistory
	for cursor.Next(ctx) {
		var h domain.OrderStatusHistory
		if err := cursor.Decode(&h); err != nil {
			return nil, fmt.Errorf("failed to decode history row: %w", err)
		}
		rows = append(rows, &h)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("history cursor error: %w", err)
	}

	return rows, nil
}

func (m *mongoOrderRepository) CreatePaymentIntent(ctx context.Context, intent *domain.PaymentIntent) error {
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now()
	}

	if _, err := m.intents.InsertOne(ctx, intent); err != nil {
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

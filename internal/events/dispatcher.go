// Package events publishes order lifecycle events for downstream consumers
// (notifications, reporting). Delivery is best-effort; callers never block
// on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
)

const (
	EventOrderConfirmed     = "order_confirmed"
	EventOrderStatusChanged = "order_status_changed"
)

type Dispatcher struct {
	writer *kafka.Writer
}

func NewDispatcher(brokers ...string) *Dispatcher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "order-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Dispatcher{writer: w}
}

func (d *Dispatcher) OrderConfirmed(ctx context.Context, order *domain.Order) error {
	return d.publish(ctx, EventOrderConfirmed, order)
}

func (d *Dispatcher) OrderStatusChanged(ctx context.Context, order *domain.Order) error {
	return d.publish(ctx, EventOrderStatusChanged, order)
}

func (d *Dispatcher) publish(ctx context.Context, eventType string, order *domain.Order) error {
	payload := map[string]interface{}{
		"order_id":       order.ID,
		"order_number":   order.OrderNumber,
		"user_id":        order.UserID,
		"store_id":       order.StoreID,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"total":          order.Total,
		"occurred_at":    time.Now(),
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID), // order_id for per-order ordering
		Value: payloadJSON,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

func (d *Dispatcher) Close() error {
	return d.writer.Close()
}

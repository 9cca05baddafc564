package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/repository"
)

type OrderService struct {
	orders             repository.OrderRepository
	notifier           Notifier
	cancellationWindow time.Duration
}

func NewOrderService(orders repository.OrderRepository, notifier Notifier, cancellationWindow time.Duration) *OrderService {
	return &OrderService{
		orders:             orders,
		notifier:           notifier,
		cancellationWindow: cancellationWindow,
	}
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, requesterID string, role string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != requesterID && role != "admin" && role != "store" {
		return nil, ErrUnauthorizedOrderAccess
	}
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUser(ctx, userID)
}

func (s *OrderService) History(ctx context.Context, orderID, requesterID, role string) ([]*domain.OrderStatusHistory, error) {
	if _, err := s.GetOrder(ctx, orderID, requesterID, role); err != nil {
		return nil, err
	}
	return s.orders.ListHistory(ctx, orderID)
}

// Cancel moves an order to cancelled. Customers are held to the
// cancellation window; admin and system actors are not. A completed payment
// is marked refunded with the amount on file.
func (s *OrderService) Cancel(ctx context.Context, orderID string, actor domain.Actor, requesterID, reason string) (*domain.Order, error) {
	if reason == "" {
		return nil, ErrCancelReasonRequired
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if actor == domain.ActorCustomer {
		if order.UserID != requesterID {
			return nil, ErrUnauthorizedOrderAccess
		}
		if !customerCancellable(order.Status) {
			return nil, fmt.Errorf("%w: customers cannot cancel a %s order", ErrInvalidTransition, order.Status)
		}
		if time.Since(order.CreatedAt) > s.cancellationWindow {
			return nil, ErrCancellationWindowExpired
		}
	}

	if !domain.CanTransitionTo(order.Status, domain.OrderStatusCancelled) {
		return nil, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, order.Status)
	}

	now := time.Now()
	set := map[string]interface{}{
		"cancelled_at":  now,
		"cancelled_by":  actor,
		"cancel_reason": reason,
	}
	if order.PaymentStatus == domain.PaymentStatusCompleted {
		set["payment_status"] = domain.PaymentStatusRefunded
		set["refund_amount"] = order.Total
		set["refunded_at"] = now
	}

	ok, err := s.orders.TransitionStatus(ctx, orderID, order.Status, domain.OrderStatusCancelled, set)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Status moved underneath us; the caller should re-fetch.
		return nil, fmt.Errorf("%w: order status changed concurrently", ErrInvalidTransition)
	}

	if err := s.orders.AppendHistory(ctx, &domain.OrderStatusHistory{
		OrderID:   orderID,
		Status:    domain.OrderStatusCancelled,
		ChangedBy: actor,
		Notes:     reason,
	}); err != nil {
		return nil, err
	}

	updated, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.OrderStatusChanged(ctx, updated)
	})

	return updated, nil
}

// UpdateStatus advances an order along the fulfillment path. Only admin
// actors may drive these transitions.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, target domain.OrderStatus, actor domain.Actor, notes string) (*domain.Order, error) {
	if actor != domain.ActorAdmin {
		return nil, ErrAdminRequired
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if target == domain.OrderStatusCancelled {
		return s.Cancel(ctx, orderID, actor, "", notesOrDefault(notes))
	}

	if !domain.CanTransitionTo(order.Status, target) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, order.Status, target)
	}

	ok, err := s.orders.TransitionStatus(ctx, orderID, order.Status, target, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order status changed concurrently", ErrInvalidTransition)
	}

	if err := s.orders.AppendHistory(ctx, &domain.OrderStatusHistory{
		OrderID:   orderID,
		Status:    target,
		ChangedBy: actor,
		Notes:     notes,
	}); err != nil {
		return nil, err
	}

	updated, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.OrderStatusChanged(ctx, updated)
	})

	return updated, nil
}

func (s *OrderService) notifyAsync(fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("failed to dispatch notification: %v", err)
		}
	}()
}

// customerCancellable limits self-service cancellation to orders the store
// has not yet handed over. Admin and system cancels are not restricted here.
func customerCancellable(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderStatusConfirmed, domain.OrderStatusPreparing, domain.OrderStatusReady:
		return true
	default:
		return false
	}
}

func notesOrDefault(notes string) string {
	if notes == "" {
		return "cancelled by admin"
	}
	return notes
}

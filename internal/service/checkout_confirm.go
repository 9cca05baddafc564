package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/pricing"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/repository"
)

// ConfirmCheckout turns a checkout session into an order. Steps run in a
// fixed order: claim the session, re-validate the snapshot, create the order
// (the durable record), reserve coupon usage, close the cart, drop the
// session. Failures after order creation are compensated or repairable via
// ResumeConfirm rather than rolled back.
func (s *CheckoutService) ConfirmCheckout(ctx context.Context, sessionID, paymentMethod string) (*domain.Order, error) {
	session, err := s.sessions.ClaimSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}

	var promo *domain.PromoCode
	if session.CouponCode != "" {
		promo, err = s.promos.GetByCode(ctx, session.CouponCode)
		if err != nil {
			return nil, fmt.Errorf("failed to reload coupon: %w", err)
		}
	}

	// Defend against price drift during the session window: the totals must
	// still follow from the snapshotted items.
	totals := pricing.Compute(session.Items, promo, session.DeliveryFee, s.cfg.TaxRate)
	if totals.Total != session.Total {
		return nil, fmt.Errorf("%w: totals diverged during session", ErrCartInvalid)
	}

	order := s.buildOrder(session, paymentMethod, totals)
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	if promo != nil {
		usage := &domain.PromoCodeUsage{
			PromoCodeID:    promo.ID,
			Code:           promo.Code,
			UserID:         session.UserID,
			OrderID:        order.ID,
			DiscountAmount: totals.Discount,
		}
		errReserve := s.promos.ReserveUsage(ctx, usage, promo.UsageLimit, promo.PerUserLimit)
		if errors.Is(errReserve, repository.ErrUsageLimitExceeded) {
			// The last usage slot went to a concurrent confirmation. The
			// order must not stand with an unbacked discount: cancel it.
			s.cancelUnbackedOrder(ctx, order)
			return nil, ErrCouponUsageLimit
		}
		if errReserve != nil {
			s.cancelUnbackedOrder(ctx, order)
			return nil, errReserve
		}
	}

	if err := s.orders.AppendHistory(ctx, &domain.OrderStatusHistory{
		OrderID:   order.ID,
		Status:    domain.OrderStatusPendingPayment,
		ChangedBy: domain.ActorSystem,
		Notes:     "order created from checkout",
	}); err != nil {
		log.Printf("failed to record order creation history for %s: %v", order.ID, err)
	}

	// Remaining steps are idempotent; ResumeConfirm re-runs them if we stop
	// here.
	if err := s.carts.CloseCart(ctx, session.CartID, domain.CartStatusCheckedOut); err != nil {
		log.Printf("failed to close cart %s after checkout: %v", session.CartID, err)
	}
	s.cartSvc.invalidateCache(session.UserID)

	if err := s.sessions.DeleteSession(ctx, session.ID); err != nil {
		log.Printf("failed to delete session %s after checkout: %v", session.ID, err)
	}

	return order, nil
}

// ResumeConfirm is the repair path for a confirmation that created its order
// but did not finish the trailing steps. Re-running it is safe at any time.
func (s *CheckoutService) ResumeConfirm(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if err := s.carts.CloseCart(ctx, order.CartID, domain.CartStatusCheckedOut); err != nil {
		return nil, err
	}
	s.cartSvc.invalidateCache(order.UserID)

	if order.SessionID != "" {
		if err := s.sessions.DeleteSession(ctx, order.SessionID); err != nil {
			return nil, err
		}
	}

	return order, nil
}

func (s *CheckoutService) buildOrder(session *domain.CheckoutSession, paymentMethod string, totals pricing.Totals) *domain.Order {
	now := time.Now()
	return &domain.Order{
		ID:                  uuid.NewString(),
		OrderNumber:         newOrderNumber(now),
		UserID:              session.UserID,
		StoreID:             session.StoreID,
		CartID:              session.CartID,
		SessionID:           session.ID,
		Items:               append([]domain.CartItem(nil), session.Items...),
		CouponCode:          session.CouponCode,
		Subtotal:            totals.Subtotal,
		Discount:            totals.Discount,
		Tax:                 totals.Tax,
		DeliveryFee:         totals.DeliveryFee,
		Total:               totals.Total,
		LoyaltyPointsEarned: int(totals.Total),
		Status:              domain.OrderStatusPendingPayment,
		PaymentStatus:       domain.PaymentStatusPending,
		PaymentMethod:       paymentMethod,
		DeliveryAddressID:   session.DeliveryAddressID,
		Notes:               session.Notes,
		CreatedAt:           now,
	}
}

// cancelUnbackedOrder compensates an order whose coupon usage could not be
// reserved: the order stays as a financial record but is cancelled by the
// system with the reason on file.
func (s *CheckoutService) cancelUnbackedOrder(ctx context.Context, order *domain.Order) {
	now := time.Now()
	ok, err := s.orders.TransitionStatus(ctx, order.ID, domain.OrderStatusPendingPayment, domain.OrderStatusCancelled, map[string]interface{}{
		"cancelled_at":  now,
		"cancelled_by":  domain.ActorSystem,
		"cancel_reason": "coupon usage limit reached at confirmation",
	})
	if err != nil || !ok {
		log.Printf("failed to cancel unbacked order %s: ok=%v err=%v", order.ID, ok, err)
		return
	}
	if err := s.orders.AppendHistory(ctx, &domain.OrderStatusHistory{
		OrderID:   order.ID,
		Status:    domain.OrderStatusCancelled,
		ChangedBy: domain.ActorSystem,
		Notes:     "coupon usage limit reached at confirmation",
	}); err != nil {
		log.Printf("failed to record cancellation history for %s: %v", order.ID, err)
	}
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("BRW-%s-%s", now.Format("20060102"), suffix)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/pricing"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/repository"
)

type CheckoutConfig struct {
	SessionTTL time.Duration
	TaxRate    float64
}

type CheckoutService struct {
	sessions repository.CheckoutSessionRepository
	carts    repository.CartRepository
	promos   repository.PromoRepository
	orders   repository.OrderRepository
	cartSvc  *CartService
	delivery DeliveryCalculator
	notifier Notifier
	cfg      CheckoutConfig
}

func NewCheckoutService(
	sessions repository.CheckoutSessionRepository,
	carts repository.CartRepository,
	promos repository.PromoRepository,
	orders repository.OrderRepository,
	cartSvc *CartService,
	delivery DeliveryCalculator,
	notifier Notifier,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		sessions: sessions,
		carts:    carts,
		promos:   promos,
		orders:   orders,
		cartSvc:  cartSvc,
		delivery: delivery,
		notifier: notifier,
		cfg:      cfg,
	}
}

// CreateCheckoutSession snapshots the user's active cart into a short-lived
// session. The cart itself stays untouched until confirmation.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, userID string) (*domain.CheckoutSession, error) {
	cart, err := s.carts.GetActiveCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("failed to load active cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	violations, err := s.cartSvc.Validate(ctx, cart)
	if err != nil {
		return nil, fmt.Errorf("failed to validate cart: %w", err)
	}
	if len(violations) > 0 {
		return nil, fmt.Errorf("%w: %d item(s) failed validation", ErrCartInvalid, len(violations))
	}

	now := time.Now()
	session := &domain.CheckoutSession{
		ID:                uuid.NewString(),
		UserID:            cart.UserID,
		StoreID:           cart.StoreID,
		CartID:            cart.ID,
		Items:             append([]domain.CartItem(nil), cart.Items...),
		DeliveryAddressID: cart.DeliveryAddressID,
		Notes:             cart.Notes,
		DeliveryFee:       cart.DeliveryFee,
		Status:            domain.SessionStatusCreated,
		ExpiresAt:         now.Add(s.cfg.SessionTTL),
		CreatedAt:         now,
	}
	s.recomputeSession(session, nil)

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// ApplyCoupon stages a coupon on the session after checking eligibility.
// No usage row is written here: abandoned checkouts must not consume usage,
// so the ledger is only appended at confirmation.
func (s *CheckoutService) ApplyCoupon(ctx context.Context, sessionID, code string) (*domain.CheckoutSession, error) {
	session, err := s.getLiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	promo, err := s.promos.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPromoNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to look up coupon: %w", err)
	}

	if err := s.checkEligibility(ctx, session, promo, time.Now()); err != nil {
		return nil, err
	}

	session.CouponCode = promo.Code
	s.recomputeSession(session, promo)

	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *CheckoutService) RemoveCoupon(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	session, err := s.getLiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.CouponCode = ""
	s.recomputeSession(session, nil)

	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CalculateDeliveryCharges previews the fee for an address without touching
// any session.
func (s *CheckoutService) CalculateDeliveryCharges(ctx context.Context, addressID string) (float64, error) {
	fee, err := s.delivery.Fee(ctx, addressID)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate delivery fee: %w", err)
	}
	return fee, nil
}

func (s *CheckoutService) getLiveSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// checkEligibility enforces the coupon rules against the session snapshot.
// Usage counts here are a preview; the authoritative recount happens inside
// the ledger reservation at confirmation.
func (s *CheckoutService) checkEligibility(ctx context.Context, session *domain.CheckoutSession, promo *domain.PromoCode, now time.Time) error {
	if !promo.CurrentlyValid(now) {
		return ErrCouponExpired
	}

	subtotal := pricing.Compute(session.Items, nil, 0, 0).Subtotal
	if promo.MinOrderAmount > 0 && subtotal < promo.MinOrderAmount {
		return ErrCouponMinOrder
	}

	if len(promo.StoreIDs) > 0 && !contains(promo.StoreIDs, session.StoreID) {
		return ErrCouponNotApplicable
	}
	if len(promo.CategoryIDs) > 0 && !anyItemInCategories(session.Items, promo.CategoryIDs) {
		return ErrCouponNotApplicable
	}

	if promo.UsageLimit > 0 {
		count, err := s.promos.CountUsages(ctx, promo.Code)
		if err != nil {
			return fmt.Errorf("failed to count coupon usages: %w", err)
		}
		if count >= int64(promo.UsageLimit) {
			return ErrCouponUsageLimit
		}
	}
	if promo.PerUserLimit > 0 {
		count, err := s.promos.CountUserUsages(ctx, promo.Code, session.UserID)
		if err != nil {
			return fmt.Errorf("failed to count user coupon usages: %w", err)
		}
		if count >= int64(promo.PerUserLimit) {
			return ErrCouponUsageLimit
		}
	}

	return nil
}

func (s *CheckoutService) recomputeSession(session *domain.CheckoutSession, promo *domain.PromoCode) {
	totals := pricing.Compute(session.Items, promo, session.DeliveryFee, s.cfg.TaxRate)
	session.Subtotal = totals.Subtotal
	session.Discount = totals.Discount
	session.Tax = totals.Tax
	session.DeliveryFee = totals.DeliveryFee
	session.Total = totals.Total
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func anyItemInCategories(items []domain.CartItem, categories []string) bool {
	for _, item := range items {
		if contains(categories, item.CategoryID) {
			return true
		}
	}
	return false
}

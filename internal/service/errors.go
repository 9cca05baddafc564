package service

import "errors"

var (
	// Cart / checkout eligibility.
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrCartInvalid        = errors.New("cart failed validation")
	ErrItemNotFound       = errors.New("item not found in cart")
	ErrProductUnavailable = errors.New("product is not available")

	// Coupons.
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponExpired       = errors.New("coupon is expired or inactive")
	ErrCouponMinOrder      = errors.New("order subtotal below coupon minimum")
	ErrCouponUsageLimit    = errors.New("coupon usage limit reached")
	ErrCouponNotApplicable = errors.New("coupon not applicable to this order")

	// Checkout sessions.
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrSessionExpired  = errors.New("checkout session expired")

	// Payments.
	ErrOrderNotFound           = errors.New("order not found")
	ErrUnauthorizedOrderAccess = errors.New("order belongs to another user")
	ErrInvalidPaymentState     = errors.New("order is not in a payable state")
	ErrAlreadyPaid             = errors.New("order is already paid")
	ErrPaymentProcessing       = errors.New("payment processing failed")
	ErrMockPaymentDisabled     = errors.New("mock payment is disabled in this environment")

	// Order state machine.
	ErrInvalidTransition         = errors.New("invalid order status transition")
	ErrCancellationWindowExpired = errors.New("cancellation window has expired")
	ErrCancelReasonRequired      = errors.New("cancellation reason is required")
	ErrAdminRequired             = errors.New("admin role required")
)

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/repository"
)

const notifyTimeout = 5 * time.Second

// ApproveAllProvider verifies every payment. It stands in for a real
// gateway adapter outside production.
type ApproveAllProvider struct{}

func (ApproveAllProvider) Verify(context.Context, string, string, string) (bool, string, error) {
	return true, "", nil
}

// PaymentResult is the structured outcome of a confirmation attempt.
// A declined payment is a result, not an error: the caller decides whether
// to retry.
type PaymentResult struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Order         *domain.Order `json:"order,omitempty"`
}

type PaymentService struct {
	orders   repository.OrderRepository
	provider PaymentProvider
	notifier Notifier
	env      string
}

func NewPaymentService(orders repository.OrderRepository, provider PaymentProvider, notifier Notifier, env string) *PaymentService {
	return &PaymentService{
		orders:   orders,
		provider: provider,
		notifier: notifier,
		env:      env,
	}
}

// CreatePaymentIntent opens a payment attempt for an order. The
// pending -> processing flip doubles as the lock against concurrent intents.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, orderID, userID string) (*domain.PaymentIntent, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrUnauthorizedOrderAccess
	}

	ok, err := s.orders.MarkPaymentProcessing(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidPaymentState
	}

	intent := &domain.PaymentIntent{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		UserID:        order.UserID,
		Amount:        order.Total,
		Currency:      "USD",
		PaymentMethod: order.PaymentMethod,
		ProviderRef:   fmt.Sprintf("pi_%s", uuid.NewString()),
		Status:        string(domain.PaymentStatusProcessing),
	}
	if err := s.orders.CreatePaymentIntent(ctx, intent); err != nil {
		return nil, err
	}

	return intent, nil
}

// ConfirmPayment verifies the payment with the provider and settles the
// order exactly once. Confirming an already-paid order is an error, never a
// second state change.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderID, paymentMethod, providerTransactionID string) (*PaymentResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.PaymentStatus == domain.PaymentStatusCompleted {
		return nil, ErrAlreadyPaid
	}
	if order.PaymentStatus == domain.PaymentStatusRefunded {
		return nil, ErrInvalidPaymentState
	}

	verified, reason, err := s.provider.Verify(ctx, orderID, paymentMethod, providerTransactionID)
	if err != nil {
		if failErr := s.orders.FailPayment(ctx, orderID); failErr != nil {
			log.Printf("failed to mark payment failed for %s: %v", orderID, failErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentProcessing, err)
	}
	if !verified {
		if failErr := s.orders.FailPayment(ctx, orderID); failErr != nil {
			log.Printf("failed to mark payment failed for %s: %v", orderID, failErr)
		}
		return &PaymentResult{Success: false, Message: fmt.Sprintf("payment declined: %s", reason)}, nil
	}

	return s.settle(ctx, orderID, paymentMethod, providerTransactionID)
}

// MockPaymentComplete forces a successful confirmation with a synthetic
// transaction id. Development-only.
func (s *PaymentService) MockPaymentComplete(ctx context.Context, orderID string) (*PaymentResult, error) {
	if s.env == "production" {
		return nil, ErrMockPaymentDisabled
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.PaymentStatus == domain.PaymentStatusCompleted {
		return nil, ErrAlreadyPaid
	}

	txnID := fmt.Sprintf("MOCK-TXN-%s", uuid.NewString())
	return s.settle(ctx, orderID, order.PaymentMethod, txnID)
}

func (s *PaymentService) settle(ctx context.Context, orderID, paymentMethod, transactionID string) (*PaymentResult, error) {
	ok, err := s.orders.CompletePayment(ctx, orderID, transactionID, paymentMethod)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent confirmation settled first.
		return nil, ErrAlreadyPaid
	}

	if err := s.orders.AppendHistory(ctx, &domain.OrderStatusHistory{
		OrderID:   orderID,
		Status:    domain.OrderStatusConfirmed,
		ChangedBy: domain.ActorSystem,
		Notes:     "payment completed",
	}); err != nil {
		log.Printf("failed to record payment history for %s: %v", orderID, err)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.OrderConfirmed(ctx, order)
	})

	return &PaymentResult{
		Success:       true,
		TransactionID: transactionID,
		Order:         order,
	}, nil
}

func (s *PaymentService) notifyAsync(fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("failed to dispatch notification: %v", err)
		}
	}()
}

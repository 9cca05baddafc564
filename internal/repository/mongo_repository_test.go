package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
)

func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.RunContainer(ctx, testcontainers.WithImage("mongo:7"))
	require.NoError(t, err)

	// Get connection string
	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Connect to MongoDB
	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	// Create indexes
	err = EnsureIndexes(ctx, db, 24*time.Hour)
	require.NoError(t, err)

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func newTestCart(userID string) *domain.Cart {
	now := time.Now()
	return &domain.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		StoreID:   "store-1",
		Status:    domain.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCartRepository_GetActiveCart_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	cart, err := repo.GetActiveCart(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestCartRepository_SecondActiveCartRejected(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoCartRepository(db)

	err := repo.CreateCart(ctx, newTestCart("user123"))
	require.NoError(t, err)

	err = repo.CreateCart(ctx, newTestCart("user123"))
	assert.ErrorIs(t, err, ErrDuplicateActiveCart)
}

func TestCartRepository_ClosedCartAllowsNewActive(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoCartRepository(db)

	first := newTestCart("user123")
	require.NoError(t, repo.CreateCart(ctx, first))
	require.NoError(t, repo.CloseCart(ctx, first.ID, domain.CartStatusCheckedOut))

	// Closing again is a no-op, not an error.
	require.NoError(t, repo.CloseCart(ctx, first.ID, domain.CartStatusCheckedOut))

	second := newTestCart("user123")
	require.NoError(t, repo.CreateCart(ctx, second))

	active, err := repo.GetActiveCart(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestCartRepository_UpdateRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoCartRepository(db)

	cart := newTestCart("user123")
	require.NoError(t, repo.CreateCart(ctx, cart))

	cart.Items = []domain.CartItem{{
		ID:            uuid.NewString(),
		ProductID:     "prod-latte",
		ProductName:   "Latte",
		Quantity:      2,
		Customization: domain.Customization{Size: "large", SugarLevel: "50"},
		AddOnIDs:      []string{"addon-shot"},
		UnitPrice:     5.00,
		TotalPrice:    10.00,
		AddedAt:       time.Now(),
	}}
	cart.Subtotal = 10.00
	cart.Total = 11.00
	require.NoError(t, repo.UpdateCart(ctx, cart))

	got, err := repo.GetActiveCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "prod-latte", got.Items[0].ProductID)
	assert.Equal(t, "large", got.Items[0].Customization.Size)
	assert.Equal(t, 11.00, got.Total)
}

func TestSessionRepository_ClaimOnce(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoSessionRepository(db)

	session := &domain.CheckoutSession{
		ID:        uuid.NewString(),
		UserID:    "user123",
		CartID:    uuid.NewString(),
		Status:    domain.SessionStatusCreated,
		ExpiresAt: time.Now().Add(15 * time.Minute),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.CreateSession(ctx, session))

	claimed, err := repo.ClaimSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusConfirming, claimed.Status)

	// Second claim loses.
	_, err = repo.ClaimSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepository_ConcurrentClaims(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoSessionRepository(db)

	session := &domain.CheckoutSession{
		ID:        uuid.NewString(),
		UserID:    "user123",
		CartID:    uuid.NewString(),
		Status:    domain.SessionStatusCreated,
		ExpiresAt: time.Now().Add(15 * time.Minute),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.CreateSession(ctx, session))

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.ClaimSession(ctx, session.ID)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrSessionNotFound)
		}
	}
	assert.Equal(t, 1, won)
}

func TestPromoRepository_ReserveUsage_GlobalLimit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoPromoRepository(db)

	usage := func(userID string) *domain.PromoCodeUsage {
		return &domain.PromoCodeUsage{
			PromoCodeID:    "promo-1",
			Code:           "SAVE20",
			UserID:         userID,
			OrderID:        uuid.NewString(),
			DiscountAmount: 2.00,
		}
	}

	require.NoError(t, repo.ReserveUsage(ctx, usage("user-1"), 2, 0))
	require.NoError(t, repo.ReserveUsage(ctx, usage("user-2"), 2, 0))

	err := repo.ReserveUsage(ctx, usage("user-3"), 2, 0)
	assert.ErrorIs(t, err, ErrUsageLimitExceeded)

	count, err := repo.CountUsages(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestPromoRepository_ReserveUsage_PerUserLimit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoPromoRepository(db)

	usage := func() *domain.PromoCodeUsage {
		return &domain.PromoCodeUsage{
			PromoCodeID:    "promo-1",
			Code:           "ONEPERUSER",
			UserID:         "user-1",
			OrderID:        uuid.NewString(),
			DiscountAmount: 1.00,
		}
	}

	require.NoError(t, repo.ReserveUsage(ctx, usage(), 0, 1))

	err := repo.ReserveUsage(ctx, usage(), 0, 1)
	assert.ErrorIs(t, err, ErrUsageLimitExceeded)

	count, err := repo.CountUserUsages(ctx, "ONEPERUSER", "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPromoRepository_ConcurrentReservations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoPromoRepository(db)

	const limit = 3
	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.ReserveUsage(ctx, &domain.PromoCodeUsage{
				PromoCodeID:    "promo-1",
				Code:           "LIMITED",
				UserID:         uuid.NewString(),
				OrderID:        uuid.NewString(),
				DiscountAmount: 1.00,
			}, limit, 0)
		}(i)
	}
	wg.Wait()

	var reserved int
	for _, err := range errs {
		if err == nil {
			reserved++
		} else {
			assert.ErrorIs(t, err, ErrUsageLimitExceeded)
		}
	}
	assert.Equal(t, limit, reserved)

	count, err := repo.CountUsages(ctx, "LIMITED")
	require.NoError(t, err)
	assert.Equal(t, int64(limit), count)
}

func TestPromoRepository_GetByCode(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoPromoRepository(db)

	now := time.Now()
	promo := &domain.PromoCode{
		ID:         uuid.NewString(),
		Code:       "SAVE20",
		Type:       domain.DiscountPercentage,
		Value:      20,
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(time.Hour),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.CreatePromoCode(ctx, promo))

	got, err := repo.GetByCode(ctx, "save20")
	require.NoError(t, err)
	assert.Equal(t, promo.ID, got.ID)
	assert.Equal(t, domain.DiscountPercentage, got.Type)

	_, err = repo.GetByCode(ctx, "NOSUCH")
	assert.ErrorIs(t, err, ErrPromoNotFound)
}

func TestOrderRepository_PaymentLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)

	order := &domain.Order{
		ID:            uuid.NewString(),
		OrderNumber:   "BRW-20260824-ABCD1234",
		UserID:        "user123",
		Total:         11.30,
		Status:        domain.OrderStatusPendingPayment,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, repo.CreateOrder(ctx, order))

	ok, err := repo.MarkPaymentProcessing(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Already processing, CAS fails.
	ok, err = repo.MarkPaymentProcessing(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.CompletePayment(ctx, order.ID, "TXN-123", "card")
	require.NoError(t, err)
	assert.True(t, ok)

	// Completing twice does nothing.
	ok, err = repo.CompletePayment(ctx, order.ID, "TXN-456", "card")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)
	assert.Equal(t, domain.PaymentStatusCompleted, got.PaymentStatus)
	assert.Equal(t, "TXN-123", got.ProviderTransactionID)

	// FailPayment never downgrades a completed payment.
	require.NoError(t, repo.FailPayment(ctx, order.ID))
	got, err = repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, got.PaymentStatus)
}

func TestOrderRepository_TransitionStatusCAS(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)

	order := &domain.Order{
		ID:            uuid.NewString(),
		OrderNumber:   "BRW-20260824-CAS00001",
		UserID:        "user123",
		Status:        domain.OrderStatusConfirmed,
		PaymentStatus: domain.PaymentStatusCompleted,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, repo.CreateOrder(ctx, order))

	ok, err := repo.TransitionStatus(ctx, order.ID, domain.OrderStatusConfirmed, domain.OrderStatusPreparing, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// Stale from-status loses.
	ok, err = repo.TransitionStatus(ctx, order.ID, domain.OrderStatusConfirmed, domain.OrderStatusPreparing, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderRepository_History(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)

	orderID := uuid.NewString()
	base := time.Now()
	for i, s := range []domain.OrderStatus{domain.OrderStatusPendingPayment, domain.OrderStatusConfirmed} {
		require.NoError(t, repo.AppendHistory(ctx, &domain.OrderStatusHistory{
			OrderID:   orderID,
			Status:    s,
			ChangedBy: domain.ActorSystem,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	history, err := repo.ListHistory(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.OrderStatusPendingPayment, history[0].Status)
	assert.Equal(t, domain.OrderStatusConfirmed, history[1].Status)
}

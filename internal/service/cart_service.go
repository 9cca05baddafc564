package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/cache"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/pricing"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/repository"
)

// Violation describes one way a cart line disagrees with the live catalog.
type Violation struct {
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	catalog  ProductCatalog
	delivery DeliveryCalculator
	taxRate  float64
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, catalog ProductCatalog, delivery DeliveryCalculator, taxRate float64) *CartService {
	return &CartService{
		repo:     repo,
		cache:    cache,
		catalog:  catalog,
		delivery: delivery,
		taxRate:  taxRate,
	}
}

// GetOrCreateActiveCart returns the user's single active cart, creating one
// when none exists. A duplicate-key failure on create means a concurrent
// request won the race, so the existing cart is re-read instead of failing.
func (s *CartService) GetOrCreateActiveCart(ctx context.Context, userID, storeID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetActiveCart(ctx, userID)
		if errGet == nil {
			s.fillCacheAsync(userID, cart)
			return cart, nil
		}
		if !errors.Is(errGet, repository.ErrCartNotFound) {
			return nil, errGet
		}

		now := time.Now()
		cart = &domain.Cart{
			ID:        uuid.NewString(),
			UserID:    userID,
			StoreID:   storeID,
			Status:    domain.CartStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		errCreate := s.repo.CreateCart(ctx, cart)
		if errors.Is(errCreate, repository.ErrDuplicateActiveCart) {
			// Benign contention: someone else created it first.
			return s.repo.GetActiveCart(ctx, userID)
		}
		if errCreate != nil {
			return nil, errCreate
		}

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem snapshots the current catalog price for new lines and merges into
// an existing line when product, customization and add-ons all match.
func (s *CartService) AddItem(ctx context.Context, userID, storeID, productID string, quantity int, customization domain.Customization, addOnIDs []string) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}

	cart, err := s.GetOrCreateActiveCart(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}

	candidate := domain.CartItem{
		ProductID:     productID,
		Quantity:      quantity,
		Customization: customization,
		AddOnIDs:      addOnIDs,
	}

	if idx := cart.FindItem(candidate.LineKey()); idx >= 0 {
		// Existing lines keep their locked-in price.
		cart.Items[idx].Quantity += quantity
		cart.Items[idx].TotalPrice = pricing.LineTotal(cart.Items[idx].UnitPrice, cart.Items[idx].Quantity)
	} else {
		product, errProduct := s.catalog.GetProduct(ctx, productID)
		if errProduct != nil {
			return nil, fmt.Errorf("failed to get product %s: %w", productID, errProduct)
		}
		if !product.Available {
			return nil, ErrProductUnavailable
		}

		candidate.ID = uuid.NewString()
		candidate.ProductName = product.Name
		candidate.CategoryID = product.CategoryID
		candidate.UnitPrice = product.Price
		candidate.TotalPrice = pricing.LineTotal(product.Price, quantity)
		candidate.AddedAt = time.Now()
		cart.Items = append(cart.Items, candidate)
	}

	return cart, s.saveCart(ctx, cart)
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}

	cart, err := s.repo.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItemByID(itemID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	cart.Items[idx].Quantity = quantity
	cart.Items[idx].TotalPrice = pricing.LineTotal(cart.Items[idx].UnitPrice, quantity)

	return cart, s.saveCart(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	cart, err := s.repo.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItemByID(itemID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	return cart, s.saveCart(ctx, cart)
}

func (s *CartService) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Items = nil
	return cart, s.saveCart(ctx, cart)
}

func (s *CartService) SetDeliveryAddress(ctx context.Context, userID, addressID string) (*domain.Cart, error) {
	cart, err := s.repo.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	fee, err := s.delivery.Fee(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate delivery fee: %w", err)
	}

	cart.DeliveryAddressID = addressID
	cart.DeliveryFee = fee
	return cart, s.saveCart(ctx, cart)
}

func (s *CartService) SetNotes(ctx context.Context, userID, notes string) (*domain.Cart, error) {
	cart, err := s.repo.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Notes = notes
	return cart, s.saveCart(ctx, cart)
}

// Validate checks every line against the live catalog and returns the full
// list of violations instead of failing on the first one.
func (s *CartService) Validate(ctx context.Context, cart *domain.Cart) ([]Violation, error) {
	var violations []Violation
	for _, item := range cart.Items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			violations = append(violations, Violation{
				ItemID:    item.ID,
				ProductID: item.ProductID,
				Reason:    fmt.Sprintf("product lookup failed: %v", err),
			})
			continue
		}
		if !product.Available {
			violations = append(violations, Violation{
				ItemID:    item.ID,
				ProductID: item.ProductID,
				Reason:    "product no longer available",
			})
		}
		if product.Price != item.UnitPrice {
			violations = append(violations, Violation{
				ItemID:    item.ID,
				ProductID: item.ProductID,
				Reason:    fmt.Sprintf("price changed from %.2f to %.2f", item.UnitPrice, product.Price),
			})
		}
	}
	return violations, nil
}

// saveCart recomputes totals and persists the cart as one write, then
// invalidates the cache.
func (s *CartService) saveCart(ctx context.Context, cart *domain.Cart) error {
	totals := pricing.Compute(cart.Items, nil, cart.DeliveryFee, s.taxRate)
	cart.Subtotal = totals.Subtotal
	cart.Discount = totals.Discount
	cart.Tax = totals.Tax
	cart.Total = totals.Total

	if err := s.repo.UpdateCart(ctx, cart); err != nil {
		log.Printf("repo update cart error: %v", err)
		return err
	}

	s.invalidateCache(cart.UserID)
	return nil
}

func (s *CartService) fillCacheAsync(userID string, cart *domain.Cart) {
	go func() {
		errSet := s.cache.Set(context.Background(), userID, cart)
		if errSet != nil {
			log.Printf("cache set error: %v", errSet)
		}
	}()
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

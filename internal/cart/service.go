package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CGImain/product-calculator-for-chemo/internal/pricing"
)

// ErrInvalidIndex is returned for cart mutations with an out-of-range index.
var ErrInvalidIndex = errors.New("invalid cart index")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// AddResult reports the outcome of an insertion attempt.
type AddResult struct {
	IsDuplicate    bool   `json:"is_duplicate"`
	DuplicateIndex int    `json:"duplicate_index"`
	Message        string `json:"message,omitempty"`
	CartCount      int    `json:"cart_count"`
}

// Service encapsulates cart domain operations on top of a Store.
type Service struct {
	Store Store
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Get loads the user's cart, pricing any items whose breakdown is missing.
func (s *Service) Get(ctx context.Context, userID string) ([]pricing.LineItem, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("cart service not configured")
	}
	items, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Calculations == nil {
			pricing.Reprice(&items[i])
		}
	}
	return items, nil
}

// Totals returns the cart with its aggregated totals.
func (s *Service) Totals(ctx context.Context, userID string) ([]pricing.LineItem, pricing.CartTotals, error) {
	items, err := s.Get(ctx, userID)
	if err != nil {
		return nil, pricing.CartTotals{}, err
	}
	return items, pricing.Aggregate(items), nil
}

// Add prices the item and appends it to the cart. Unless force is set, a
// duplicate under the category equality rules rejects the insertion and
// reports the matched index.
func (s *Service) Add(ctx context.Context, userID string, item pricing.LineItem, force bool) (AddResult, error) {
	if s == nil || s.Store == nil {
		return AddResult{}, errors.New("cart service not configured")
	}
	items, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return AddResult{}, err
	}

	if !force {
		if idx, found := pricing.FindDuplicate(items, item); found {
			return AddResult{
				IsDuplicate:    true,
				DuplicateIndex: idx,
				Message:        "A product with the same dimensions already exists in your cart.",
				CartCount:      len(items),
			}, nil
		}
	}

	pricing.Reprice(&item)
	item.AddedAt = s.now().Format(time.RFC3339)
	items = append(items, item)
	if err := s.Store.SaveCart(ctx, userID, items); err != nil {
		return AddResult{}, err
	}
	return AddResult{DuplicateIndex: -1, CartCount: len(items)}, nil
}

// UpdateQuantity sets the quantity of the item at index and recomputes its
// breakdown. Quantity below one and out-of-range indexes are rejected.
func (s *Service) UpdateQuantity(ctx context.Context, userID string, index, quantity int) (pricing.LineItem, error) {
	if s == nil || s.Store == nil {
		return pricing.LineItem{}, errors.New("cart service not configured")
	}
	if quantity < 1 {
		return pricing.LineItem{}, fmt.Errorf("quantity must be at least 1: %w", ErrInvalidInput)
	}
	items, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return pricing.LineItem{}, err
	}
	if index < 0 || index >= len(items) {
		return pricing.LineItem{}, ErrInvalidIndex
	}
	items[index].Quantity = quantity
	pricing.Reprice(&items[index])
	if err := s.Store.SaveCart(ctx, userID, items); err != nil {
		return pricing.LineItem{}, err
	}
	return items[index], nil
}

// Remove deletes the item at index, preserving the order of the rest. An
// out-of-range index leaves the cart unchanged.
func (s *Service) Remove(ctx context.Context, userID string, index int) (int, error) {
	if s == nil || s.Store == nil {
		return 0, errors.New("cart service not configured")
	}
	items, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(items) {
		return len(items), ErrInvalidIndex
	}
	items = append(items[:index], items[index+1:]...)
	if err := s.Store.SaveCart(ctx, userID, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	return s.Store.ClearCart(ctx, userID)
}

// Count returns the number of items in the user's cart.
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	if s == nil || s.Store == nil {
		return 0, errors.New("cart service not configured")
	}
	items, err := s.Store.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CGImain/product-calculator-for-chemo/internal/pricing"
)

// Store persists one cart per user. Writes are last-write-wins: each request
// reads, mutates and writes the cart within a single handler invocation.
type Store interface {
	GetCart(ctx context.Context, userID string) ([]pricing.LineItem, error)
	SaveCart(ctx context.Context, userID string, items []pricing.LineItem) error
	ClearCart(ctx context.Context, userID string) error
}

// PGStore keeps carts in a single JSONB row per user.
type PGStore struct {
	Pool *pgxpool.Pool
}

// GetCart loads the user's cart. A missing row is an empty cart, not an error.
func (s *PGStore) GetCart(ctx context.Context, userID string) ([]pricing.LineItem, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("cart store not configured")
	}
	var raw []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT items FROM carts WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []pricing.LineItem{}, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var items []pricing.LineItem
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
	}
	if items == nil {
		items = []pricing.LineItem{}
	}
	return items, nil
}

// SaveCart upserts the user's cart.
func (s *PGStore) SaveCart(ctx context.Context, userID string, items []pricing.LineItem) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart store not configured")
	}
	if items == nil {
		items = []pricing.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO carts (user_id, items, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, updated_at = now()`,
		userID, raw,
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// ClearCart drops the user's cart row.
func (s *PGStore) ClearCart(ctx context.Context, userID string) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart store not configured")
	}
	if _, err := s.Pool.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store used by tests.
type MemoryStore struct {
	Carts map[string][]pricing.LineItem
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Carts: map[string][]pricing.LineItem{}}
}

// GetCart returns a copy of the stored cart.
func (s *MemoryStore) GetCart(_ context.Context, userID string) ([]pricing.LineItem, error) {
	items := s.Carts[userID]
	out := make([]pricing.LineItem, len(items))
	copy(out, items)
	return out, nil
}

// SaveCart stores a copy of the cart.
func (s *MemoryStore) SaveCart(_ context.Context, userID string, items []pricing.LineItem) error {
	stored := make([]pricing.LineItem, len(items))
	copy(stored, items)
	s.Carts[userID] = stored
	return nil
}

// ClearCart removes the cart.
func (s *MemoryStore) ClearCart(_ context.Context, userID string) error {
	delete(s.Carts, userID)
	return nil
}

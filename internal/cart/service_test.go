package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CGImain/product-calculator-for-chemo/internal/pricing"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
}

func newTestService() *Service {
	return &Service{Store: NewMemoryStore(), Now: fixedNow}
}

func blanketItem(length, width float64) pricing.LineItem {
	return pricing.LineItem{
		Category: pricing.CategoryBlanket,
		Name:     "Conventional Blanket",
		Quantity: 1,
		Blanket: &pricing.BlanketSpec{
			BasePrice: 1200,
			BarPrice:  0,
			Length:    length,
			Width:     width,
			Unit:      "mm",
			Thickness: "1.96",
			BarType:   "with bar",
			Machine:   "Heidelberg SM74",
		},
	}
}

func TestAddPricesAndStamps(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	res, err := svc.Add(ctx, "u1", blanketItem(1000, 500), false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.IsDuplicate {
		t.Fatalf("unexpected duplicate on first add")
	}
	if res.CartCount != 1 {
		t.Fatalf("cart count = %d, want 1", res.CartCount)
	}

	items, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if items[0].Calculations == nil {
		t.Fatalf("stored item has no calculations")
	}
	if items[0].AddedAt != fixedNow().Format(time.RFC3339) {
		t.Fatalf("added_at = %q", items[0].AddedAt)
	}
}

func TestAddDetectsDuplicateAndForceOverrides(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", blanketItem(1000, 500), false); err != nil {
		t.Fatalf("first add: %v", err)
	}

	res, err := svc.Add(ctx, "u1", blanketItem(1000.005, 500), false)
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if !res.IsDuplicate {
		t.Fatalf("expected duplicate flag")
	}
	if res.DuplicateIndex != 0 {
		t.Fatalf("duplicate index = %d, want 0", res.DuplicateIndex)
	}
	if res.CartCount != 1 {
		t.Fatalf("duplicate must not grow cart, count = %d", res.CartCount)
	}

	res, err = svc.Add(ctx, "u1", blanketItem(1000.005, 500), true)
	if err != nil {
		t.Fatalf("forced add: %v", err)
	}
	if res.IsDuplicate {
		t.Fatalf("force add still flagged duplicate")
	}
	if res.CartCount != 2 {
		t.Fatalf("cart count = %d, want 2", res.CartCount)
	}
}

func TestUpdateQuantityRecomputes(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", blanketItem(1000, 500), false); err != nil {
		t.Fatalf("add: %v", err)
	}
	item, err := svc.UpdateQuantity(ctx, "u1", 0, 3)
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if item.Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", item.Quantity)
	}
	// Unit 1200, area 0.5 m2, qty 3, 18% GST.
	if got := item.Calculations.Subtotal; got != 3600 {
		t.Fatalf("subtotal = %v, want 3600", got)
	}
	if got := item.Calculations.FinalTotal; got != 4248 {
		t.Fatalf("final total = %v, want 4248", got)
	}

	if _, err := svc.UpdateQuantity(ctx, "u1", 0, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero quantity error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.UpdateQuantity(ctx, "u1", 5, 2); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("out-of-range error = %v, want ErrInvalidIndex", err)
	}
}

func TestRemovePreservesOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, l := range []float64{1000, 1100, 1200} {
		if _, err := svc.Add(ctx, "u1", blanketItem(l, 500), false); err != nil {
			t.Fatalf("add %v: %v", l, err)
		}
	}

	count, err := svc.Remove(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	items, _ := svc.Get(ctx, "u1")
	if items[0].Blanket.Length != 1000 || items[1].Blanket.Length != 1200 {
		t.Fatalf("unexpected order after remove: %v, %v", items[0].Blanket.Length, items[1].Blanket.Length)
	}

	if _, err := svc.Remove(ctx, "u1", 7); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("out-of-range error = %v, want ErrInvalidIndex", err)
	}
}

func TestClearAndCount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", blanketItem(1000, 500), false); err != nil {
		t.Fatalf("add: %v", err)
	}
	count, err := svc.Count(ctx, "u1")
	if err != nil || count != 1 {
		t.Fatalf("count = %d err = %v, want 1", count, err)
	}
	if err := svc.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	count, err = svc.Count(ctx, "u1")
	if err != nil || count != 0 {
		t.Fatalf("count after clear = %d err = %v", count, err)
	}
}

func TestGetPricesLegacyItems(t *testing.T) {
	store := NewMemoryStore()
	legacy := blanketItem(1000, 500)
	if err := store.SaveCart(context.Background(), "u1", []pricing.LineItem{legacy}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := &Service{Store: store, Now: fixedNow}

	items, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if items[0].Calculations == nil {
		t.Fatalf("legacy item not priced on read")
	}
	if items[0].Calculations.FinalTotal != 1416 {
		t.Fatalf("final total = %v, want 1416", items[0].Calculations.FinalTotal)
	}
}

func TestWirePayloadSelectsVariant(t *testing.T) {
	p := ItemPayload{
		Type:      "mpack",
		Name:      "Premium Underpacking",
		Machine:   "Komori L440",
		Quantity:  2,
		UnitPrice: 750,
		Thickness: "0.25",
		Size:      "459x525",
	}
	item := p.ToLineItem()
	if item.Category != pricing.CategoryMpack {
		t.Fatalf("category = %q", item.Category)
	}
	if item.Mpack == nil || item.Blanket != nil {
		t.Fatalf("wrong variant populated: %+v", item)
	}
	if item.Mpack.Size != "459x525" || item.Mpack.UnitPrice != 750 {
		t.Fatalf("mpack spec = %+v", item.Mpack)
	}

	view := ViewOf(pricing.LineItem{
		Category: pricing.CategoryBlanket,
		Blanket:  &pricing.BlanketSpec{Length: 1000, Width: 500, Unit: "mm", Machine: "SM74"},
	})
	if view.Length != 1000 || view.Machine != "SM74" {
		t.Fatalf("view = %+v", view)
	}
}

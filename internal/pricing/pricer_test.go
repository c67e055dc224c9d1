package pricing

import (
	"math"
	"testing"
)

func TestPriceBlanketBreakdown(t *testing.T) {
	it := LineItem{
		Category:        CategoryBlanket,
		Quantity:        2,
		DiscountPercent: 10,
		GSTPercent:      18,
		Blanket:         &BlanketSpec{BasePrice: 1000, BarPrice: 200, Length: 1000, Width: 500, Unit: "mm"},
	}
	calc := Price(&it)

	if calc.UnitPrice != 1200 {
		t.Fatalf("unit price: want 1200, got %v", calc.UnitPrice)
	}
	if calc.Subtotal != 2400 {
		t.Fatalf("subtotal: want 2400, got %v", calc.Subtotal)
	}
	if calc.DiscountAmount != 240 {
		t.Fatalf("discount: want 240, got %v", calc.DiscountAmount)
	}
	if calc.TaxableAmount != 2160 {
		t.Fatalf("taxable: want 2160, got %v", calc.TaxableAmount)
	}
	if calc.GSTAmount != 388.8 {
		t.Fatalf("gst: want 388.8, got %v", calc.GSTAmount)
	}
	if calc.FinalTotal != 2548.8 {
		t.Fatalf("final total: want 2548.8, got %v", calc.FinalTotal)
	}
}

func TestPriceMpackBreakdown(t *testing.T) {
	it := LineItem{
		Category:   CategoryMpack,
		Quantity:   3,
		GSTPercent: 12,
		Mpack:      &MpackSpec{UnitPrice: 500},
	}
	calc := Price(&it)

	if calc.Subtotal != 1500 {
		t.Fatalf("subtotal: want 1500, got %v", calc.Subtotal)
	}
	if calc.DiscountAmount != 0 {
		t.Fatalf("discount: want 0, got %v", calc.DiscountAmount)
	}
	if calc.TaxableAmount != 1500 {
		t.Fatalf("taxable: want 1500, got %v", calc.TaxableAmount)
	}
	if calc.GSTAmount != 180 {
		t.Fatalf("gst: want 180, got %v", calc.GSTAmount)
	}
	if calc.FinalTotal != 1680 {
		t.Fatalf("final total: want 1680, got %v", calc.FinalTotal)
	}
}

func TestPriceZeroDiscountIdentity(t *testing.T) {
	it := LineItem{Category: CategoryMpack, Quantity: 4, Mpack: &MpackSpec{UnitPrice: 99.99}}
	calc := Price(&it)
	if calc.DiscountAmount != 0 {
		t.Fatalf("expected zero discount, got %v", calc.DiscountAmount)
	}
	if calc.TaxableAmount != calc.Subtotal {
		t.Fatalf("taxable %v should equal subtotal %v when no discount", calc.TaxableAmount, calc.Subtotal)
	}
}

func TestDerivedTotalsConsistent(t *testing.T) {
	// Totals must be derived from unrounded intermediates, then rounded once.
	it := LineItem{
		Category:        CategoryMpack,
		Quantity:        3,
		DiscountPercent: 7.5,
		GSTPercent:      12,
		Mpack:           &MpackSpec{UnitPrice: 333.33},
	}
	calc := Price(&it)

	subtotal := 333.33 * 3
	discount := subtotal * 0.075
	taxable := subtotal - discount
	gst := taxable * 0.12
	if calc.TaxableAmount != Round2(taxable) {
		t.Fatalf("taxable: want %v, got %v", Round2(taxable), calc.TaxableAmount)
	}
	if calc.FinalTotal != Round2(taxable+gst) {
		t.Fatalf("final: want %v, got %v", Round2(taxable+gst), calc.FinalTotal)
	}
}

func TestAreaConversion(t *testing.T) {
	cases := []struct {
		name   string
		length float64
		width  float64
		unit   string
		want   float64
	}{
		{"millimeters", 1000, 500, "mm", 0.5},
		{"inches", 10, 10, "in", 0.254 * 0.254},
		{"meters passthrough", 1.2, 0.5, "m", 0.6},
	}
	for _, tc := range cases {
		got := AreaSqM(tc.length, tc.width, tc.unit)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: want %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestRatePerSqMAvoidsDivisionByZero(t *testing.T) {
	it := LineItem{
		Category: CategoryBlanket,
		Quantity: 1,
		Blanket:  &BlanketSpec{BasePrice: 500, Length: 0, Width: 0, Unit: "mm"},
	}
	calc := Price(&it)
	if calc.AreaSqM != 0 {
		t.Fatalf("area: want 0, got %v", calc.AreaSqM)
	}
	if calc.RatePerSqM != 0 {
		t.Fatalf("rate per sq m: want 0 on zero area, got %v", calc.RatePerSqM)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	blanket := LineItem{Category: CategoryBlanket, Blanket: &BlanketSpec{}}
	blanket.Normalize()
	if blanket.Quantity != 1 {
		t.Fatalf("quantity coercion: want 1, got %d", blanket.Quantity)
	}
	if blanket.GSTPercent != DefaultBlanketGST {
		t.Fatalf("blanket gst default: want %v, got %v", DefaultBlanketGST, blanket.GSTPercent)
	}

	other := LineItem{Category: Category("spareparts"), Quantity: -3}
	other.Normalize()
	if other.Quantity != 1 {
		t.Fatalf("quantity coercion: want 1, got %d", other.Quantity)
	}
	if other.GSTPercent != DefaultMpackGST {
		t.Fatalf("non-blanket gst default: want %v, got %v", DefaultMpackGST, other.GSTPercent)
	}
}

func TestGenericCategoryUsesRawUnitPrice(t *testing.T) {
	it := LineItem{Category: Category("consumable"), Quantity: 2, UnitPrice: 150}
	calc := Price(&it)
	if calc.Subtotal != 300 {
		t.Fatalf("generic subtotal: want 300, got %v", calc.Subtotal)
	}
}

func TestRepriceStoresBreakdown(t *testing.T) {
	it := LineItem{Category: CategoryMpack, Quantity: 2, Mpack: &MpackSpec{UnitPrice: 100}}
	Reprice(&it)
	if it.Calculations == nil {
		t.Fatal("expected calculations to be stored")
	}
	if it.Calculations.FinalTotal != 224 {
		t.Fatalf("final total: want 224, got %v", it.Calculations.FinalTotal)
	}
}

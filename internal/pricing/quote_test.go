package pricing

import "testing"

func TestBuildQuotationLinesFromCalculations(t *testing.T) {
	blanket := LineItem{
		Category:        CategoryBlanket,
		Name:            "Sava Gold",
		Quantity:        2,
		DiscountPercent: 10,
		Blanket: &BlanketSpec{
			BasePrice: 1000, BarPrice: 200,
			Length: 1000, Width: 500, Unit: "mm",
			Thickness: "1.96", BarType: "steel", Machine: "SM74",
		},
	}
	Reprice(&blanket)
	mpack := LineItem{
		Category: CategoryMpack,
		Quantity: 3,
		Mpack:    &MpackSpec{UnitPrice: 500, Machine: "SM52", Thickness: "0.30", Size: "459x525"},
	}
	Reprice(&mpack)

	q := BuildQuotation([]LineItem{blanket, mpack})
	if len(q.Lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(q.Lines))
	}

	first := q.Lines[0]
	if first.Number != 1 || first.Machine != "SM74" || first.Name != "Sava Gold" {
		t.Fatalf("blanket line: %+v", first)
	}
	if first.Dimensions != "1000 x 500 mm" {
		t.Fatalf("blanket dimensions: %q", first.Dimensions)
	}
	if first.FinalTotal != blanket.Calculations.FinalTotal {
		t.Fatalf("line total must come from calculations: want %v, got %v", blanket.Calculations.FinalTotal, first.FinalTotal)
	}

	second := q.Lines[1]
	if second.Dimensions != "459x525" {
		t.Fatalf("mpack dimensions should use size: %q", second.Dimensions)
	}
	if second.BarType != "----" || second.Name != "----" {
		t.Fatalf("mpack placeholders: %+v", second)
	}

	// Document totals carry the bucketed figures.
	if q.Totals.Breakdown.Blankets.GST != 388.8 || q.Totals.Breakdown.Mpacks.GST != 180 {
		t.Fatalf("totals block mismatch: %+v", q.Totals.Breakdown)
	}
	if q.Totals.Total != 4228.8 {
		t.Fatalf("grand total: want 4228.8, got %v", q.Totals.Total)
	}
}

func TestBuildQuotationPricesMissingCalculations(t *testing.T) {
	items := []LineItem{
		{Category: CategoryMpack, Quantity: 2, Mpack: &MpackSpec{UnitPrice: 100, Machine: "GTO52"}},
	}
	q := BuildQuotation(items)
	if q.Lines[0].FinalTotal != 224 {
		t.Fatalf("lazily priced line total: want 224, got %v", q.Lines[0].FinalTotal)
	}
	if items[0].Calculations != nil {
		t.Fatal("input items must not be mutated")
	}
}

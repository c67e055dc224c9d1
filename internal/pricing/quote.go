package pricing

import "fmt"

const placeholder = "----"

// QuoteLine is one row of the quotation table, shared by the on-screen
// preview and the emailed document.
type QuoteLine struct {
	Number          int     `json:"number"`
	Machine         string  `json:"machine"`
	ProductType     string  `json:"product_type"`
	Name            string  `json:"name"`
	Thickness       string  `json:"thickness"`
	Dimensions      string  `json:"dimensions"`
	BarType         string  `json:"bar_type"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	FinalTotal      float64 `json:"final_total"`
}

// Quotation is the formatter output: per-line table plus the bucketed totals
// block. Line totals come straight from each item's calculations; the totals
// block comes from Aggregate. No arithmetic happens here.
type Quotation struct {
	Lines  []QuoteLine `json:"lines"`
	Totals CartTotals  `json:"totals"`
}

// BuildQuotation formats cart items into a quotation document. Items missing
// calculations are priced first so line totals and the totals block agree.
func BuildQuotation(items []LineItem) Quotation {
	lines := make([]QuoteLine, 0, len(items))
	priced := make([]LineItem, len(items))
	copy(priced, items)

	for i := range priced {
		if priced[i].Calculations == nil {
			Reprice(&priced[i])
		}
		lines = append(lines, quoteLine(i+1, priced[i]))
	}
	return Quotation{
		Lines:  lines,
		Totals: Aggregate(priced),
	}
}

func quoteLine(number int, it LineItem) QuoteLine {
	calc := it.Calculations
	line := QuoteLine{
		Number:          number,
		ProductType:     string(it.Category),
		Name:            placeholder,
		Thickness:       placeholder,
		Dimensions:      placeholder,
		BarType:         placeholder,
		Quantity:        calc.Quantity,
		UnitPrice:       calc.UnitPrice,
		DiscountPercent: calc.DiscountPercent,
		FinalTotal:      calc.FinalTotal,
	}
	if line.ProductType == "" {
		line.ProductType = placeholder
	}

	switch {
	case it.Category == CategoryBlanket && it.Blanket != nil:
		line.Machine = it.Blanket.Machine
		line.Thickness = valueOr(it.Blanket.Thickness, placeholder)
		line.BarType = valueOr(it.Blanket.BarType, placeholder)
		if it.Name != "" {
			line.Name = it.Name
		}
		if it.Blanket.Length != 0 && it.Blanket.Width != 0 {
			line.Dimensions = fmt.Sprintf("%g x %g %s", it.Blanket.Length, it.Blanket.Width, it.Blanket.Unit)
		}
	case it.Category == CategoryMpack && it.Mpack != nil:
		line.Machine = it.Mpack.Machine
		line.Thickness = valueOr(it.Mpack.Thickness, placeholder)
		line.Dimensions = valueOr(it.Mpack.Size, placeholder)
	}
	return line
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

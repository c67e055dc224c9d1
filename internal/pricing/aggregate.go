package pricing

// Fixed category tax rates applied at aggregation time. These are deliberate
// policy rates, independent of whatever gst_percent individual items carry.
const (
	BlanketBucketRate = 18.0
	MpackBucketRate   = 12.0
)

// BucketTotals carries the per-category slice of a cart's totals.
type BucketTotals struct {
	Subtotal              float64 `json:"subtotal"`
	Discount              float64 `json:"discount"`
	SubtotalAfterDiscount float64 `json:"subtotal_after_discount"`
	GST                   float64 `json:"gst"`
	Rate                  float64 `json:"rate"`
}

// GSTBreakdown splits cart totals into the two aggregation buckets: blankets
// and everything else (in practice mpacks).
type GSTBreakdown struct {
	Blankets BucketTotals `json:"blankets"`
	Mpacks   BucketTotals `json:"mpacks"`
	TotalGST float64      `json:"total_gst"`
}

// CartTotals is the document-level totals block, recomputed per request and
// never persisted.
type CartTotals struct {
	SubtotalBeforeDiscount float64      `json:"subtotal_before_discount"`
	TotalDiscount          float64      `json:"total_discount"`
	SubtotalAfterDiscount  float64      `json:"subtotal_after_discount"`
	TotalGST               float64      `json:"total_gst"`
	Total                  float64      `json:"total"`
	Breakdown              GSTBreakdown `json:"gst_breakdown"`
}

// Aggregate sums line breakdowns into bucketed cart totals. Items missing
// their calculations are priced on the fly without mutating the input. An
// empty cart yields all-zero totals.
func Aggregate(items []LineItem) CartTotals {
	var blanketSub, blanketDisc, mpackSub, mpackDisc float64

	for i := range items {
		calc := items[i].Calculations
		if calc == nil {
			copied := items[i]
			c := Price(&copied)
			calc = &c
		}
		if items[i].Category == CategoryBlanket {
			blanketSub += calc.Subtotal
			blanketDisc += calc.DiscountAmount
		} else {
			mpackSub += calc.Subtotal
			mpackDisc += calc.DiscountAmount
		}
	}

	// Re-derived per bucket rather than summed from per-item taxable amounts,
	// so bucket figures cannot drift from per-line rounding.
	blanketAfter := blanketSub - blanketDisc
	if blanketAfter < 0 {
		blanketAfter = 0
	}
	mpackAfter := mpackSub - mpackDisc
	if mpackAfter < 0 {
		mpackAfter = 0
	}

	blanketGST := blanketAfter * (BlanketBucketRate / 100)
	mpackGST := mpackAfter * (MpackBucketRate / 100)
	totalGST := blanketGST + mpackGST
	afterDiscount := blanketAfter + mpackAfter

	return CartTotals{
		SubtotalBeforeDiscount: Round2(blanketSub + mpackSub),
		TotalDiscount:          Round2(blanketDisc + mpackDisc),
		SubtotalAfterDiscount:  Round2(afterDiscount),
		TotalGST:               Round2(totalGST),
		Total:                  Round2(afterDiscount + totalGST),
		Breakdown: GSTBreakdown{
			Blankets: BucketTotals{
				Subtotal:              Round2(blanketSub),
				Discount:              Round2(blanketDisc),
				SubtotalAfterDiscount: Round2(blanketAfter),
				GST:                   Round2(blanketGST),
				Rate:                  BlanketBucketRate,
			},
			Mpacks: BucketTotals{
				Subtotal:              Round2(mpackSub),
				Discount:              Round2(mpackDisc),
				SubtotalAfterDiscount: Round2(mpackAfter),
				GST:                   Round2(mpackGST),
				Rate:                  MpackBucketRate,
			},
			TotalGST: Round2(totalGST),
		},
	}
}

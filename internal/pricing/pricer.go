package pricing

import "math"

// Category identifies a product family. Anything other than the known
// categories is priced through the generic path.
type Category string

const (
	CategoryBlanket Category = "blanket"
	CategoryMpack   Category = "mpack"
)

// Default GST rates per category. Non-blanket items default to the mpack rate.
const (
	DefaultBlanketGST = 18.0
	DefaultMpackGST   = 12.0
)

// BlanketSpec holds the raw price and identity attributes of a printing blanket.
type BlanketSpec struct {
	BasePrice float64 `json:"base_price"`
	BarPrice  float64 `json:"bar_price"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Unit      string  `json:"unit"`
	Thickness string  `json:"thickness"`
	BarType   string  `json:"bar_type"`
	Machine   string  `json:"machine"`
}

// MpackSpec holds the raw price and identity attributes of a chemical mpack.
type MpackSpec struct {
	UnitPrice float64 `json:"unit_price"`
	Machine   string  `json:"machine"`
	Thickness string  `json:"thickness"`
	Size      string  `json:"size"`
}

// LineItem is one priced entry in a cart. Exactly one of Blanket or Mpack is
// set for the known categories; both may be nil for the generic path, in which
// case UnitPrice carries the raw price.
type LineItem struct {
	Category        Category      `json:"type"`
	Name            string        `json:"name,omitempty"`
	Quantity        int           `json:"quantity"`
	DiscountPercent float64       `json:"discount_percent"`
	GSTPercent      float64       `json:"gst_percent"`
	UnitPrice       float64       `json:"unit_price,omitempty"`
	Blanket         *BlanketSpec  `json:"blanket,omitempty"`
	Mpack           *MpackSpec    `json:"mpack,omitempty"`
	Calculations    *Calculations `json:"calculations,omitempty"`
	AddedAt         string        `json:"added_at,omitempty"`
}

// Calculations is the derived price breakdown for one line item. Monetary
// fields are rounded to 2 decimals when stored here; the computation itself
// never rounds intermediates.
type Calculations struct {
	UnitPrice       float64 `json:"unit_price"`
	Quantity        int     `json:"quantity"`
	Subtotal        float64 `json:"subtotal"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	TaxableAmount   float64 `json:"taxable_amount"`
	GSTPercent      float64 `json:"gst_percent"`
	GSTAmount       float64 `json:"gst_amount"`
	FinalTotal      float64 `json:"final_total"`

	// Blanket-only derived metrics.
	AreaSqM    float64 `json:"area_sq_m,omitempty"`
	RatePerSqM float64 `json:"rate_per_sq_m,omitempty"`
}

// Round2 rounds a monetary value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Normalize coerces malformed raw fields to usable defaults: quantity at least
// one, GST percent per category when unset. Price fields already default to
// zero values. It never rejects input.
func (it *LineItem) Normalize() {
	if it.Quantity < 1 {
		it.Quantity = 1
	}
	if it.GSTPercent == 0 {
		if it.Category == CategoryBlanket {
			it.GSTPercent = DefaultBlanketGST
		} else {
			it.GSTPercent = DefaultMpackGST
		}
	}
	if it.DiscountPercent < 0 {
		it.DiscountPercent = 0
	}
}

// rawUnitPrice resolves the pre-computation unit price for the item.
func (it *LineItem) rawUnitPrice() float64 {
	if it.Category == CategoryBlanket && it.Blanket != nil {
		return it.Blanket.BasePrice + it.Blanket.BarPrice
	}
	if it.Category == CategoryMpack && it.Mpack != nil {
		return it.Mpack.UnitPrice
	}
	return it.UnitPrice
}

// AreaSqM converts blanket dimensions to square meters. Dimensions in mm are
// divided by 1000 each, inches multiplied by 0.0254 each; any other unit is
// treated as meters already.
func AreaSqM(length, width float64, unit string) float64 {
	switch unit {
	case "mm":
		return (length / 1000) * (width / 1000)
	case "in":
		return (length * 0.0254) * (width * 0.0254)
	default:
		return length * width
	}
}

// Price computes the full breakdown for one line item. Pure: the receiver is
// normalized but the breakdown is returned, not stored.
//
// Order of operations is load-bearing: unit price, subtotal, discount, taxable
// amount, GST, final total, with rounding applied only when values land in the
// returned Calculations.
func Price(it *LineItem) Calculations {
	it.Normalize()

	unitPrice := it.rawUnitPrice()
	subtotal := unitPrice * float64(it.Quantity)
	var discount float64
	if it.DiscountPercent != 0 {
		discount = subtotal * (it.DiscountPercent / 100)
	}
	taxable := subtotal - discount
	gst := taxable * (it.GSTPercent / 100)
	final := taxable + gst

	calc := Calculations{
		UnitPrice:       Round2(unitPrice),
		Quantity:        it.Quantity,
		Subtotal:        Round2(subtotal),
		DiscountPercent: it.DiscountPercent,
		DiscountAmount:  Round2(discount),
		TaxableAmount:   Round2(taxable),
		GSTPercent:      it.GSTPercent,
		GSTAmount:       Round2(gst),
		FinalTotal:      Round2(final),
	}

	if it.Category == CategoryBlanket && it.Blanket != nil {
		area := AreaSqM(it.Blanket.Length, it.Blanket.Width, it.Blanket.Unit)
		calc.AreaSqM = round4(area)
		if area > 0 {
			calc.RatePerSqM = Round2(it.Blanket.BasePrice / area)
		}
	}
	return calc
}

// Reprice recomputes and stores the breakdown on the item. Used after quantity
// edits and whenever a stored item is missing its calculations.
func Reprice(it *LineItem) {
	calc := Price(it)
	it.Calculations = &calc
}

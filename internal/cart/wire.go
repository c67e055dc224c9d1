package cart

import (
	"strings"

	"github.com/CGImain/product-calculator-for-chemo/internal/pricing"
)

// ItemPayload is the flat wire shape for a cart line, matching what the
// product configuration frontend submits: common fields plus the
// category-specific raw price and identity attributes.
type ItemPayload struct {
	Type            string  `json:"type" validate:"required"`
	Name            string  `json:"name"`
	Machine         string  `json:"machine"`
	Quantity        int     `json:"quantity"`
	DiscountPercent float64 `json:"discount_percent"`
	GSTPercent      float64 `json:"gst_percent"`

	// Blanket fields.
	BasePrice float64 `json:"base_price"`
	BarPrice  float64 `json:"bar_price"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Unit      string  `json:"unit"`
	Thickness string  `json:"thickness"`
	BarType   string  `json:"bar_type"`

	// Mpack and generic fields.
	UnitPrice float64 `json:"unit_price"`
	Size      string  `json:"size"`

	ForceAdd bool `json:"force_add"`
}

// ToLineItem selects the tagged variant for the payload's category.
func (p ItemPayload) ToLineItem() pricing.LineItem {
	item := pricing.LineItem{
		Category:        pricing.Category(strings.TrimSpace(p.Type)),
		Name:            p.Name,
		Quantity:        p.Quantity,
		DiscountPercent: p.DiscountPercent,
		GSTPercent:      p.GSTPercent,
	}
	switch item.Category {
	case pricing.CategoryBlanket:
		item.Blanket = &pricing.BlanketSpec{
			BasePrice: p.BasePrice,
			BarPrice:  p.BarPrice,
			Length:    p.Length,
			Width:     p.Width,
			Unit:      unitOrDefault(p.Unit),
			Thickness: p.Thickness,
			BarType:   p.BarType,
			Machine:   p.Machine,
		}
	case pricing.CategoryMpack:
		item.Mpack = &pricing.MpackSpec{
			UnitPrice: p.UnitPrice,
			Machine:   p.Machine,
			Thickness: p.Thickness,
			Size:      p.Size,
		}
	default:
		item.UnitPrice = p.UnitPrice
	}
	return item
}

// ItemView is the flat response shape for a cart line: raw fields with the
// derived calculations merged alongside.
type ItemView struct {
	Type            string                `json:"type"`
	Name            string                `json:"name,omitempty"`
	Machine         string                `json:"machine,omitempty"`
	Quantity        int                   `json:"quantity"`
	DiscountPercent float64               `json:"discount_percent"`
	GSTPercent      float64               `json:"gst_percent"`
	BasePrice       float64               `json:"base_price,omitempty"`
	BarPrice        float64               `json:"bar_price,omitempty"`
	Length          float64               `json:"length,omitempty"`
	Width           float64               `json:"width,omitempty"`
	Unit            string                `json:"unit,omitempty"`
	Thickness       string                `json:"thickness,omitempty"`
	BarType         string                `json:"bar_type,omitempty"`
	UnitPrice       float64               `json:"unit_price,omitempty"`
	Size            string                `json:"size,omitempty"`
	AddedAt         string                `json:"added_at,omitempty"`
	Calculations    *pricing.Calculations `json:"calculations,omitempty"`
}

// ViewOf flattens a line item for API responses.
func ViewOf(it pricing.LineItem) ItemView {
	view := ItemView{
		Type:            string(it.Category),
		Name:            it.Name,
		Quantity:        it.Quantity,
		DiscountPercent: it.DiscountPercent,
		GSTPercent:      it.GSTPercent,
		UnitPrice:       it.UnitPrice,
		AddedAt:         it.AddedAt,
		Calculations:    it.Calculations,
	}
	if it.Blanket != nil {
		view.Machine = it.Blanket.Machine
		view.BasePrice = it.Blanket.BasePrice
		view.BarPrice = it.Blanket.BarPrice
		view.Length = it.Blanket.Length
		view.Width = it.Blanket.Width
		view.Unit = it.Blanket.Unit
		view.Thickness = it.Blanket.Thickness
		view.BarType = it.Blanket.BarType
	}
	if it.Mpack != nil {
		view.Machine = it.Mpack.Machine
		view.UnitPrice = it.Mpack.UnitPrice
		view.Thickness = it.Mpack.Thickness
		view.Size = it.Mpack.Size
	}
	return view
}

// ViewsOf flattens a whole cart.
func ViewsOf(items []pricing.LineItem) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, ViewOf(it))
	}
	return views
}

func unitOrDefault(unit string) string {
	if strings.TrimSpace(unit) == "" {
		return "mm"
	}
	return unit
}

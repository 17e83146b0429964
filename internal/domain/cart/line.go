package cart

import (
	"github.com/example/coffee-storefront/internal/domain/product"
	"github.com/example/coffee-storefront/internal/pricing"
)

// Line is one cart entry. Guest lines carry a product snapshot taken at add
// time; authenticated lines carry the server line id and the server price.
type Line struct {
	ID          string         `json:"_id,omitempty"`
	ProductID   string         `json:"productId"`
	Quantity    int            `json:"quantity"`
	PriceOption pricing.Option `json:"priceOption"`

	Name                string  `json:"name,omitempty"`
	Image               string  `json:"image,omitempty"`
	Price               float64 `json:"price,omitempty"`
	Discount            float64 `json:"discount,omitempty"`
	Price3WeeksDelivery float64 `json:"price3weeksDelivery,omitempty"`
	Price5WeeksDelivery float64 `json:"price5weeksDelivery,omitempty"`

	SelectedPrice float64 `json:"selectedPrice,omitempty"`
}

// GuestKey is the identity of a guest line: the same product under two
// delivery options is two lines.
func GuestKey(productID string, opt pricing.Option) string {
	return productID + "|" + string(opt.OrDefault())
}

// Key returns the server line id when present, else the guest key.
func (l Line) Key() string {
	if l.ID != "" {
		return l.ID
	}
	return GuestKey(l.ProductID, l.PriceOption)
}

// UnitPrice prefers the server-computed price and falls back to the snapshot.
func (l Line) UnitPrice() float64 {
	if l.SelectedPrice > 0 {
		return l.SelectedPrice
	}
	return pricing.Tiers{
		Regular:    l.Price,
		ThreeWeeks: l.Price3WeeksDelivery,
		FiveWeeks:  l.Price5WeeksDelivery,
		Discount:   l.Discount,
	}.Unit(l.PriceOption.OrDefault())
}

func (l Line) Total() float64 {
	return pricing.LineTotal(l.UnitPrice(), l.Quantity)
}

// snapshotLine builds a guest line from a catalog product.
func snapshotLine(p product.Product, qty int, opt pricing.Option) Line {
	return Line{
		ProductID:           p.ID,
		Quantity:            qty,
		PriceOption:         opt,
		Name:                p.Name,
		Image:               p.Image(),
		Price:               p.Price,
		Discount:            p.Discount,
		Price3WeeksDelivery: p.Price3WeeksDelivery,
		Price5WeeksDelivery: p.Price5WeeksDelivery,
	}
}

// Summary is the derived view of a cart.
type Summary struct {
	Lines    int
	Items    int
	Subtotal float64
}

func Summarize(lines []Line) Summary {
	s := Summary{Lines: len(lines)}
	for _, l := range lines {
		s.Items += l.Quantity
		s.Subtotal += l.Total()
	}
	return s
}

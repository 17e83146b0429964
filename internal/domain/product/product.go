package product

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/example/coffee-storefront/internal/pricing"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("product id is required")
)

// Product types that unlock the coffee-specific facets.
const (
	TypeCoffee      = "COFFEE"
	TypeCoffeeBeans = "COFFEE_BEANS"
)

// Ref is a reference to another catalog document. The API sends either the
// bare id or the populated document.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// Product is the catalog read model as served by the storefront API.
type Product struct {
	ID                  string   `json:"_id"`
	Name                string   `json:"name"`
	Slug                string   `json:"slug,omitempty"`
	Images              []string `json:"images,omitempty"`
	Price               float64  `json:"price"`
	Discount            float64  `json:"discount,omitempty"`
	Price3WeeksDelivery float64  `json:"price3weeksDelivery,omitempty"`
	Price5WeeksDelivery float64  `json:"price5weeksDelivery,omitempty"`
	ProductType         string   `json:"productType,omitempty"`
	RoastLevel          string   `json:"roastLevel,omitempty"`
	Intensity           string   `json:"intensity,omitempty"`
	Blend               string   `json:"blend,omitempty"`
	Brand               Ref      `json:"brand,omitzero"`
	Category            Ref      `json:"category,omitzero"`
	SubCategory         Ref      `json:"subCategory,omitzero"`
	Stock               int      `json:"stock,omitempty"`
}

// Image returns the first product image, if any.
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Tiers returns the product's price tiers.
func (p Product) Tiers() pricing.Tiers {
	return pricing.Tiers{
		Regular:    p.Price,
		ThreeWeeks: p.Price3WeeksDelivery,
		FiveWeeks:  p.Price5WeeksDelivery,
		Discount:   p.Discount,
	}
}

// UnitPrice is the discounted price under opt.
func (p Product) UnitPrice(opt pricing.Option) float64 {
	return p.Tiers().Unit(opt)
}

// IsCoffee reports whether the product carries roast/intensity/blend attributes.
func (p Product) IsCoffee() bool {
	return p.ProductType == TypeCoffee || p.ProductType == TypeCoffeeBeans
}

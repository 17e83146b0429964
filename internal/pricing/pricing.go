// Package pricing resolves the effective price of a product under a delivery
// option and formats amounts in the visitor's selected currency.
package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// Option is a delivery-timing tier a line item is priced under.
type Option string

const (
	Regular    Option = "regular"
	ThreeWeeks Option = "3weeks"
	FiveWeeks  Option = "5weeks"
)

var ErrInvalidOption = errors.New("invalid price option")

// ParseOption accepts the wire names; an empty string means Regular.
func ParseOption(s string) (Option, error) {
	switch Option(strings.ToLower(strings.TrimSpace(s))) {
	case "", Regular:
		return Regular, nil
	case ThreeWeeks:
		return ThreeWeeks, nil
	case FiveWeeks:
		return FiveWeeks, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOption, s)
}

// OrDefault maps the zero value to Regular.
func (o Option) OrDefault() Option {
	if o == "" {
		return Regular
	}
	return o
}

// Tiers holds a product's prices per delivery option and its percentage discount.
type Tiers struct {
	Regular    float64
	ThreeWeeks float64
	FiveWeeks  float64
	Discount   float64
}

// Base returns the undiscounted price for opt. Alternate tiers fall back to
// the regular price when absent or zero.
func (t Tiers) Base(opt Option) float64 {
	switch opt {
	case ThreeWeeks:
		if t.ThreeWeeks > 0 {
			return t.ThreeWeeks
		}
	case FiveWeeks:
		if t.FiveWeeks > 0 {
			return t.FiveWeeks
		}
	}
	return t.Regular
}

// Unit returns the discounted unit price for opt.
func (t Tiers) Unit(opt Option) float64 {
	return Discounted(t.Base(opt), t.Discount)
}

// Discounted applies a percentage discount. No rounding is done here;
// formatting rounds at display time.
func Discounted(base, discountPct float64) float64 {
	if discountPct <= 0 {
		return base
	}
	return base * (1 - discountPct/100)
}

// LineTotal is unit price times quantity.
func LineTotal(unit float64, quantity int) float64 {
	return unit * float64(quantity)
}

package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/example/coffee-storefront/internal/infrastructure/storage"
)

// BaseCurrency is the currency catalog prices are quoted in.
const BaseCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"TRY": "₺",
}

// zero-decimal currencies
var wholeUnitCurrencies = map[string]bool{
	"JPY": true,
}

// Converter converts base-currency amounts into the selected display
// currency, persisting the selection and rates in local storage.
type Converter struct {
	mu    sync.RWMutex
	store storage.Storage
}

func NewConverter(store storage.Storage) *Converter {
	return &Converter{store: store}
}

// Selected returns the display currency, BaseCurrency when none is stored.
func (c *Converter) Selected() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok, err := c.store.GetItem(storage.KeySelectedCurrency)
	if err != nil || !ok || strings.TrimSpace(value) == "" {
		return BaseCurrency
	}
	return strings.ToUpper(strings.TrimSpace(value))
}

// Select stores the display currency. Currencies without a known rate are rejected.
func (c *Converter) Select(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency != BaseCurrency {
		rates, err := c.Rates()
		if err != nil {
			return err
		}
		if _, ok := rates[currency]; !ok {
			return fmt.Errorf("no exchange rate for %s", currency)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.SetItem(storage.KeySelectedCurrency, currency)
}

// Rates returns the cached exchange rates relative to BaseCurrency.
func (c *Converter) Rates() (map[string]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, ok, err := c.store.GetItem(storage.KeyExchangeRates)
	if err != nil {
		return nil, err
	}
	rates := map[string]float64{}
	if !ok || raw == "" {
		return rates, nil
	}
	if err := json.Unmarshal([]byte(raw), &rates); err != nil {
		return nil, fmt.Errorf("failed to decode exchange rates: %w", err)
	}
	return rates, nil
}

// SetRates replaces the cached exchange rates.
func (c *Converter) SetRates(rates map[string]float64) error {
	data, err := json.Marshal(rates)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.SetItem(storage.KeyExchangeRates, string(data))
}

// Convert turns a base-currency amount into the selected currency. A missing
// rate leaves the amount in the base currency.
func (c *Converter) Convert(amount float64) (float64, string) {
	currency := c.Selected()
	if currency == BaseCurrency {
		return amount, BaseCurrency
	}
	rates, err := c.Rates()
	if err != nil {
		return amount, BaseCurrency
	}
	rate, ok := rates[currency]
	if !ok || rate <= 0 {
		return amount, BaseCurrency
	}
	return amount * rate, currency
}

// Format converts and formats amount for display.
func (c *Converter) Format(amount float64) string {
	converted, currency := c.Convert(amount)
	return FormatAmount(converted, currency)
}

// FormatAmount formats amount with the currency symbol and thousands separators.
// Example: FormatAmount(1234.5, "USD") => "$1,234.50"
func FormatAmount(amount float64, currency string) string {
	currency = strings.ToUpper(currency)
	neg := amount < 0
	if neg {
		amount = -amount
	}

	var body string
	if wholeUnitCurrencies[currency] {
		body = thousandSep(int64(math.Round(amount)))
	} else {
		minor := int64(math.Round(amount * 100))
		body = thousandSep(minor/100) + fmt.Sprintf(".%02d", minor%100)
	}

	symbol, ok := currencySymbols[currency]
	var out string
	if ok {
		out = symbol + body
	} else {
		out = currency + " " + body
	}
	if neg {
		return "-" + out
	}
	return out
}

func thousandSep(n int64) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, c := range s {
		if i != 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

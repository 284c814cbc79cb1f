package pricing

import (
	"fmt"
	"strings"

	"github.com/agustinromero/storefront-backend/pkg/config"
	"github.com/shopspring/decimal"
)

// Engine computes line totals, taxes, shipping, and order totals. All
// arithmetic is exact decimal; only the final order total is rounded.
type Engine interface {
	LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal
	TaxRate(category string) decimal.Decimal
	ShippingFee(subtotal decimal.Decimal) decimal.Decimal
	ComputeTotals(lines []Line) Totals
}

// Line is one priced cart entry.
type Line struct {
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the priced breakdown for a set of lines. Subtotal and TaxTotal are
// exact; Total carries the single terminal rounding to two decimal places.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxTotal decimal.Decimal `json:"tax_total"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

type engine struct {
	taxRates          map[string]decimal.Decimal
	defaultTaxRate    decimal.Decimal
	shippingThreshold decimal.Decimal
	flatShippingFee   decimal.Decimal
}

// NewEngine parses the configured rate table into an immutable engine.
func NewEngine(cfg config.PricingConfig) (Engine, error) {
	defaultRate, err := decimal.NewFromString(cfg.DefaultTaxRate)
	if err != nil {
		return nil, fmt.Errorf("parsing default tax rate %q: %w", cfg.DefaultTaxRate, err)
	}
	threshold, err := decimal.NewFromString(cfg.ShippingThreshold)
	if err != nil {
		return nil, fmt.Errorf("parsing shipping threshold %q: %w", cfg.ShippingThreshold, err)
	}
	flatFee, err := decimal.NewFromString(cfg.FlatShippingFee)
	if err != nil {
		return nil, fmt.Errorf("parsing flat shipping fee %q: %w", cfg.FlatShippingFee, err)
	}

	rates := make(map[string]decimal.Decimal, len(cfg.TaxRates))
	for category, raw := range cfg.TaxRates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing tax rate %q for category %q: %w", raw, category, err)
		}
		rates[normalizeCategory(category)] = rate
	}

	return &engine{
		taxRates:          rates,
		defaultTaxRate:    defaultRate,
		shippingThreshold: threshold,
		flatShippingFee:   flatFee,
	}, nil
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// LineTotal is unit price times quantity, exact.
func (e *engine) LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// TaxRate resolves the rate for a category, falling back to the default rate
// for categories without an explicit entry. Lookup is case-insensitive.
func (e *engine) TaxRate(category string) decimal.Decimal {
	if rate, ok := e.taxRates[normalizeCategory(category)]; ok {
		return rate
	}
	return e.defaultTaxRate
}

// ShippingFee is the flat fee, waived when the subtotal strictly exceeds the
// free-shipping threshold.
func (e *engine) ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(e.shippingThreshold) {
		return decimal.Zero
	}
	return e.flatShippingFee
}

// ComputeTotals prices every line, accumulates per-line tax at each line's
// category rate, resolves shipping from the subtotal, and rounds once at the
// end.
func (e *engine) ComputeTotals(lines []Line) Totals {
	subtotal := decimal.Zero
	taxTotal := decimal.Zero

	for _, line := range lines {
		lineTotal := e.LineTotal(line.UnitPrice, line.Quantity)
		subtotal = subtotal.Add(lineTotal)
		taxTotal = taxTotal.Add(lineTotal.Mul(e.TaxRate(line.Category)))
	}

	shipping := e.ShippingFee(subtotal)
	total := subtotal.Add(taxTotal).Add(shipping).Round(2)

	return Totals{
		Subtotal: subtotal,
		TaxTotal: taxTotal,
		Shipping: shipping,
		Total:    total,
	}
}

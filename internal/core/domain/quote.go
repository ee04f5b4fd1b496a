package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency     = "AED"
	DefaultTaxRegion    = "UAE"
	DefaultCustomerCode = "GEN"
	referencePrefix     = "DTSB"
)

// MarginHealthyThreshold is the minimum margin percentage considered healthy.
var MarginHealthyThreshold = decimal.NewFromInt(15)

var taxRates = map[string]decimal.Decimal{
	"UAE":    decimal.RequireFromString("0.05"),
	"KSA":    decimal.RequireFromString("0.15"),
	"UK":     decimal.RequireFromString("0.20"),
	"INDIA":  decimal.RequireFromString("0.18"),
	"AFRICA": decimal.RequireFromString("0.15"),
}

// TaxRateFor returns the VAT rate for a known region.
func TaxRateFor(region string) (decimal.Decimal, bool) {
	rate, ok := taxRates[strings.ToUpper(strings.TrimSpace(region))]
	return rate, ok
}

type QuoteOptions struct {
	CustomerCode string
	Brand        string
	Currency     string
	TaxRegion    string
	TaxRate      *decimal.Decimal
	Now          time.Time
}

type CategorySummary struct {
	Category  string          `json:"category"`
	ItemCount int             `json:"item_count"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

type Quote struct {
	Reference    string            `json:"reference"`
	CustomerName string            `json:"customer_name,omitempty"`
	Currency     string            `json:"currency"`
	TaxRegion    string            `json:"tax_region,omitempty"`
	TaxRate      decimal.Decimal   `json:"tax_rate"`
	Items        []ParsedLineItem  `json:"items"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	Tax          decimal.Decimal   `json:"tax"`
	GrandTotal   decimal.Decimal   `json:"grand_total"`
	Summary      []CategorySummary `json:"summary"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ReferenceNumber formats DTSB-<customer>-<DDMONYY>[-<BRD>].
func ReferenceNumber(customerCode, brand string, at time.Time) string {
	code := strings.ToUpper(strings.TrimSpace(customerCode))
	if code == "" {
		code = DefaultCustomerCode
	}
	date := fmt.Sprintf("%02d%s%s", at.Day(), strings.ToUpper(at.Format("Jan")), at.Format("06"))
	ref := fmt.Sprintf("%s-%s-%s", referencePrefix, code, date)

	brand = strings.TrimSpace(brand)
	if brand == "" {
		return ref
	}
	runes := []rune(strings.ToUpper(brand))
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return ref + "-" + string(runes)
}

// Margin returns the selling margin as a percentage of the selling price.
func Margin(cost, selling decimal.Decimal) decimal.Decimal {
	if selling.IsZero() {
		return decimal.Zero
	}
	return selling.Sub(cost).Div(selling).Mul(decimal.NewFromInt(100))
}

func IsMarginHealthy(cost, selling decimal.Decimal) bool {
	return MarginHealthy(cost, selling, MarginHealthyThreshold)
}

// MarginHealthy reports whether the margin reaches threshold percent.
func MarginHealthy(cost, selling, threshold decimal.Decimal) bool {
	return Margin(cost, selling).GreaterThanOrEqual(threshold)
}

// AggregateByCategory sums line totals per category, largest total first.
func AggregateByCategory(items []ParsedLineItem) []CategorySummary {
	index := make(map[string]int)
	out := make([]CategorySummary, 0)
	for _, item := range items {
		category := item.Category
		if category == "" {
			category = DefaultCategory
		}
		pos, ok := index[category]
		if !ok {
			pos = len(out)
			index[category] = pos
			out = append(out, CategorySummary{Category: category, Total: decimal.Zero})
		}
		out[pos].ItemCount++
		out[pos].Quantity += item.Quantity
		out[pos].Total = out[pos].Total.Add(item.LineTotal)
	}

	sort.SliceStable(out, func(i, j int) bool {
		cmp := out[i].Total.Cmp(out[j].Total)
		if cmp != 0 {
			return cmp > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// NewQuote totals a parsed parts list and applies tax.
func NewQuote(items []ParsedLineItem, opts QuoteOptions) (Quote, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	region := strings.ToUpper(strings.TrimSpace(opts.TaxRegion))
	var rate decimal.Decimal
	switch {
	case opts.TaxRate != nil:
		if opts.TaxRate.IsNegative() {
			return Quote{}, fmt.Errorf("%w: tax rate must not be negative", ErrInvalidInput)
		}
		rate = *opts.TaxRate
	default:
		if region == "" {
			region = DefaultTaxRegion
		}
		known, ok := TaxRateFor(region)
		if !ok {
			return Quote{}, fmt.Errorf("%w: unknown tax region %q", ErrInvalidInput, opts.TaxRegion)
		}
		rate = known
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	tax := subtotal.Mul(rate).Round(2)

	return Quote{
		Reference:  ReferenceNumber(opts.CustomerCode, opts.Brand, now),
		Currency:   currency,
		TaxRegion:  region,
		TaxRate:    rate,
		Items:      items,
		Subtotal:   subtotal,
		Tax:        tax,
		GrandTotal: subtotal.Add(tax),
		Summary:    AggregateByCategory(items),
		CreatedAt:  now.UTC(),
	}, nil
}

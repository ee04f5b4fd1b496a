package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/parser"
	"github.com/dakshin/partsquote/internal/core/ports"
)

type QuoteUseCase struct {
	parser    *parser.Parser
	exporter  ports.QuoteExporter
	customers ports.CustomerRepository
	now       func() time.Time
}

// NewQuoteUseCase builds quotes from pasted lists. customers may be nil; then
// customer codes are used as given.
func NewQuoteUseCase(p *parser.Parser, exporter ports.QuoteExporter, customers ports.CustomerRepository) *QuoteUseCase {
	if p == nil {
		p = parser.New(parser.DefaultRules())
	}
	return &QuoteUseCase{parser: p, exporter: exporter, customers: customers, now: time.Now}
}

// BuildQuote totals text into a quote. A customer code that matches a stored
// customer supplies the tax region and rate unless the caller set either.
func (uc *QuoteUseCase) BuildQuote(ctx context.Context, text string, opts domain.QuoteOptions) (*domain.Quote, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build quote", fmt.Errorf("text is empty"))
	}
	items := uc.parser.Parse(text)
	if len(items) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build quote", fmt.Errorf("no usable rows"))
	}
	if opts.Now.IsZero() {
		opts.Now = uc.now()
	}

	customer := uc.lookupCustomer(ctx, opts.CustomerCode)
	if customer != nil && opts.TaxRate == nil && strings.TrimSpace(opts.TaxRegion) == "" {
		rate := customer.VATRate
		opts.TaxRate = &rate
		opts.TaxRegion = customer.Country
	}

	quote, err := domain.NewQuote(items, opts)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		quote.CustomerName = customer.Name
	}
	return &quote, nil
}

func (uc *QuoteUseCase) lookupCustomer(ctx context.Context, code string) *domain.Customer {
	code = strings.ToUpper(strings.TrimSpace(code))
	if uc.customers == nil || code == "" {
		return nil
	}
	customer, err := uc.customers.GetByCode(ctx, code)
	if err != nil {
		if !domain.IsKind(err, domain.ErrCustomerNotFound) {
			slog.Warn("quote_customer_lookup_failed", "code", code, "error", err)
		}
		return nil
	}
	return customer
}

func (uc *QuoteUseCase) ExportQuote(_ context.Context, quote domain.Quote) ([]byte, error) {
	if uc.exporter == nil {
		return nil, fmt.Errorf("quote export is not configured")
	}
	out, err := uc.exporter.RenderQuote(quote)
	if err != nil {
		return nil, fmt.Errorf("render quote: %w", err)
	}
	return out, nil
}

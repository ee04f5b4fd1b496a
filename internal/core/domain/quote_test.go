package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestReferenceNumber(t *testing.T) {
	at := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	if got := ReferenceNumber("2wz", "Toyota", at); got != "DTSB-2WZ-05JAN26-TOY" {
		t.Fatalf("unexpected reference: %s", got)
	}
	if got := ReferenceNumber("", "", at); got != "DTSB-GEN-05JAN26" {
		t.Fatalf("unexpected reference without customer: %s", got)
	}
}

func TestMargin(t *testing.T) {
	cost := decimal.NewFromInt(85)
	selling := decimal.NewFromInt(100)

	if got := Margin(cost, selling); !got.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected 15, got %s", got)
	}
	if !IsMarginHealthy(cost, selling) {
		t.Fatalf("expected 15%% margin to be healthy")
	}
	if IsMarginHealthy(decimal.NewFromInt(90), selling) {
		t.Fatalf("expected 10%% margin to be unhealthy")
	}
	if !MarginHealthy(decimal.NewFromInt(90), selling, decimal.NewFromInt(10)) {
		t.Fatalf("expected 10%% margin to pass a 10%% threshold")
	}
	if got := Margin(cost, decimal.Zero); !got.IsZero() {
		t.Fatalf("expected zero margin for zero selling price, got %s", got)
	}
}

func TestNewQuoteTotalsAndSummary(t *testing.T) {
	items := []ParsedLineItem{
		{Sequence: 1, PartNumber: "A", Quantity: 2, LineTotal: decimal.RequireFromString("100.00"), Category: "Brake System"},
		{Sequence: 2, PartNumber: "B", Quantity: 1, LineTotal: decimal.RequireFromString("250.50"), Category: "Engine Components"},
		{Sequence: 3, PartNumber: "C", Quantity: 4, LineTotal: decimal.RequireFromString("60.00"), Category: "Brake System"},
	}

	quote, err := NewQuote(items, QuoteOptions{CustomerCode: "ACME", Now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("NewQuote() error = %v", err)
	}

	if !quote.Subtotal.Equal(decimal.RequireFromString("410.50")) {
		t.Fatalf("unexpected subtotal: %s", quote.Subtotal)
	}
	if !quote.Tax.Equal(decimal.RequireFromString("20.53")) {
		t.Fatalf("unexpected tax: %s", quote.Tax)
	}
	if !quote.GrandTotal.Equal(decimal.RequireFromString("431.03")) {
		t.Fatalf("unexpected grand total: %s", quote.GrandTotal)
	}
	if quote.Currency != "AED" || quote.TaxRegion != "UAE" {
		t.Fatalf("unexpected defaults: %s %s", quote.Currency, quote.TaxRegion)
	}
	if len(quote.Summary) != 2 || quote.Summary[0].Category != "Engine Components" {
		t.Fatalf("expected engine components first, got %+v", quote.Summary)
	}
	if quote.Summary[1].Quantity != 6 || quote.Summary[1].ItemCount != 2 {
		t.Fatalf("unexpected brake summary: %+v", quote.Summary[1])
	}
}

func TestNewQuoteRejectsUnknownRegion(t *testing.T) {
	if _, err := NewQuote(nil, QuoteOptions{TaxRegion: "Atlantis"}); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

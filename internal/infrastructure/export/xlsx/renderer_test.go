package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dakshin/partsquote/internal/core/domain"
)

func TestRenderQuoteWritesBothSheets(t *testing.T) {
	quote, err := domain.NewQuote([]domain.ParsedLineItem{
		{Sequence: 1, PartNumber: "04427-42180", Description: "BOOT KIT, FR DRIVE", Quantity: 2,
			UnitPrice: decimal.RequireFromString("227.77"), LineTotal: decimal.RequireFromString("455.54"),
			Brand: "Toyota", Category: "Gaskets & Seals"},
		{Sequence: 2, PartNumber: "MR123456", Description: "PAD KIT, DISC BRAKE", Quantity: 1,
			UnitPrice: decimal.RequireFromString("310.00"), LineTotal: decimal.RequireFromString("310.00"),
			Brand: "Mitsubishi", Category: "Brake System"},
	}, domain.QuoteOptions{CustomerCode: "ACME", Now: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("NewQuote() error = %v", err)
	}

	raw, err := NewRenderer().RenderQuote(quote)
	if err != nil {
		t.Fatalf("RenderQuote() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != QuoteSheet || sheets[1] != SummarySheet {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
	if ref, _ := f.GetCellValue(QuoteSheet, "B1"); ref != quote.Reference {
		t.Fatalf("unexpected reference cell %q", ref)
	}
	if pn, _ := f.GetCellValue(QuoteSheet, "B6"); pn != "04427-42180" {
		t.Fatalf("unexpected first part number %q", pn)
	}
	if top, _ := f.GetCellValue(SummarySheet, "A2"); top != "Gaskets & Seals" {
		t.Fatalf("expected largest category first, got %q", top)
	}
}

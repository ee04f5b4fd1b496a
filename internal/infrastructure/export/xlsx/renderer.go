// Package xlsx renders quotes as Excel workbooks.
package xlsx

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const (
	QuoteSheet   = "Quote"
	SummarySheet = "Summary"
)

var hundred = decimal.NewFromInt(100)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderQuote writes line items to the Quote sheet and the category aggregation to the Summary sheet.
func (r *Renderer) RenderQuote(quote domain.Quote) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName(f.GetSheetName(0), QuoteSheet); err != nil {
		return nil, fmt.Errorf("rename quote sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}

	if err := writeItems(f, quote); err != nil {
		return nil, err
	}
	if err := writeSummary(f, quote); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	slog.Info("export.xlsx.ok",
		"reference", quote.Reference,
		"rows", len(quote.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeItems(f *excelize.File, quote domain.Quote) error {
	rows := [][]any{
		{"Reference", quote.Reference},
		{"Date", quote.CreatedAt.Format("2006-01-02")},
		{"Currency", quote.Currency},
		{},
		{"SR #", "Part #", "Description", "Brand", "Category", "Qty", "Unit Price", "Line Total"},
	}
	for _, item := range quote.Items {
		rows = append(rows, []any{
			item.Sequence,
			item.PartNumber,
			item.Description,
			item.Brand,
			item.Category,
			item.Quantity,
			item.UnitPrice.InexactFloat64(),
			item.LineTotal.InexactFloat64(),
		})
	}
	rows = append(rows,
		[]any{},
		[]any{"", "", "", "", "", "", "Subtotal", quote.Subtotal.InexactFloat64()},
		[]any{"", "", "", "", "", "", fmt.Sprintf("Tax (%s%%)", quote.TaxRate.Mul(hundred).StringFixed(0)), quote.Tax.InexactFloat64()},
		[]any{"", "", "", "", "", "", "Grand Total", quote.GrandTotal.InexactFloat64()},
	)
	if err := writeRows(f, QuoteSheet, rows); err != nil {
		return err
	}

	_ = f.SetColWidth(QuoteSheet, "A", "A", 8)
	_ = f.SetColWidth(QuoteSheet, "B", "B", 18)
	_ = f.SetColWidth(QuoteSheet, "C", "C", 40)
	_ = f.SetColWidth(QuoteSheet, "D", "E", 22)
	_ = f.SetColWidth(QuoteSheet, "F", "F", 8)
	_ = f.SetColWidth(QuoteSheet, "G", "H", 14)
	return nil
}

func writeSummary(f *excelize.File, quote domain.Quote) error {
	rows := [][]any{{"Category", "Items", "Quantity", "Total"}}
	for _, summary := range quote.Summary {
		rows = append(rows, []any{summary.Category, summary.ItemCount, summary.Quantity, summary.Total.InexactFloat64()})
	}
	if err := writeRows(f, SummarySheet, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 28)
	_ = f.SetColWidth(SummarySheet, "B", "D", 12)
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

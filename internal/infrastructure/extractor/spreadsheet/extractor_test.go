package spreadsheet

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/dakshin/partsquote/internal/core/parser"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName() error = %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf
}

func TestExtractProducesParseableRows(t *testing.T) {
	buf := workbook(t, [][]any{
		{"SR #", "PART #", "DESCRIPTION", "QTY", "PRICE", "TOTAL"},
		{1, "04427-42180", "BOOT KIT, FR DRIVE", 2, "AED 227.77", "AED 455.54"},
		{},
		{2, "11115-24040", "GASKET, CYLINDER", 2, "AED 76.96"},
	})

	text, err := NewExtractor().Extract(context.Background(), "list.xlsx", "", buf)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if strings.Count(text, "\n") != 2 {
		t.Fatalf("expected 3 non-empty rows, got %q", text)
	}

	items := parser.Parse(text)
	if len(items) != 2 || items[0].PartNumber != "04427-42180" || items[1].Quantity != 2 {
		t.Fatalf("unexpected parsed items: %+v", items)
	}
}

func TestExtractRejectsNonWorkbook(t *testing.T) {
	if _, err := NewExtractor().Extract(context.Background(), "list.xlsx", "", strings.NewReader("nope")); err == nil {
		t.Fatalf("expected error")
	}
}

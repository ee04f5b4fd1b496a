// Package spreadsheet reads parts lists from the first sheet of an XLSX workbook.
package spreadsheet

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dakshin/partsquote/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract renders each non-empty row as tab-separated cells.
func (e *Extractor) Extract(_ context.Context, filename, _ string, body io.Reader) (string, error) {
	f, err := excelize.OpenReader(body)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract spreadsheet", fmt.Errorf("open %s: %w", filename, err))
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		empty := true
		for i, cell := range row {
			cells[i] = strings.TrimSpace(cell)
			if cells[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}
	return strings.Join(lines, "\n"), nil
}

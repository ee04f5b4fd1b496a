// Package pdftext pulls table rows out of PDF parts lists.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const (
	maxPDFBytes = 32 << 20
	// Gaps wider than this many points between text runs are treated as column breaks.
	columnGap = 8.0
	wordGap   = 1.5
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract rebuilds each visual row as tab-separated cells so the parser sees table columns.
func (e *Extractor) Extract(_ context.Context, filename, _ string, body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxPDFBytes+1))
	if err != nil {
		return "", fmt.Errorf("read pdf upload: %w", err)
	}
	if len(raw) > maxPDFBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s exceeds %d bytes", filename, maxPDFBytes))
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("open %s: %w", filename, err))
	}

	lines := make([]string, 0, 64)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		for _, row := range rows {
			if line := JoinRow(row.Content); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// JoinRow concatenates text runs, inserting a tab at column gaps and a space at word gaps.
func JoinRow(texts []pdf.Text) string {
	var b strings.Builder
	var prevEnd float64
	for i, text := range texts {
		if text.S == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			gap := text.X - prevEnd
			switch {
			case gap > columnGap:
				b.WriteByte('\t')
			case gap > wordGap:
				b.WriteByte(' ')
			}
		}
		b.WriteString(text.S)
		prevEnd = text.X + text.W
	}
	return strings.TrimSpace(b.String())
}

// Package extractor routes uploaded parts lists to a text extractor by file type.
package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
)

type Router struct {
	byExt  map[string]ports.TextExtractor
	byMime map[string]ports.TextExtractor
}

func NewRouter(text, pdf, sheet ports.TextExtractor) *Router {
	return &Router{
		byExt: map[string]ports.TextExtractor{
			".txt":  text,
			".tsv":  text,
			".csv":  text,
			"":      text,
			".pdf":  pdf,
			".xlsx": sheet,
			".xlsm": sheet,
		},
		byMime: map[string]ports.TextExtractor{
			"text/plain":                text,
			"text/tab-separated-values": text,
			"text/csv":                  text,
			mimePDF:                     pdf,
			mimeXLSX:                    sheet,
		},
	}
}

func (r *Router) Extract(ctx context.Context, filename, mimeType string, body io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	extractor, ok := r.byExt[ext]
	if !ok || extractor == nil {
		mediaType := strings.TrimSpace(strings.SplitN(strings.ToLower(mimeType), ";", 2)[0])
		extractor = r.byMime[mediaType]
	}
	if extractor == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported file type: %q", filename))
	}
	return extractor.Extract(ctx, filename, mimeType, body)
}

package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const maxTextBytes = 8 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, filename, _ string, body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxTextBytes+1))
	if err != nil {
		return "", fmt.Errorf("read text upload: %w", err)
	}
	if len(raw) > maxTextBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("%s exceeds %d bytes", filename, maxTextBytes))
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported binary format: %s", filename))
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text), nil
}

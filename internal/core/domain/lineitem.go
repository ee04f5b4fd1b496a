package domain

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned when no category keyword matches a description.
const DefaultCategory = "Other"

// ParsedLineItem is one accepted row of a supplier parts list.
type ParsedLineItem struct {
	Sequence    int             `json:"sequence"`
	PartNumber  string          `json:"part_number"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Brand       string          `json:"brand,omitempty"`
	Category    string          `json:"category"`
}

// ParseStats counts how the input lines were classified.
type ParseStats struct {
	Lines   int `json:"lines"`
	Headers int `json:"headers"`
	Skipped int `json:"skipped"`
	Parsed  int `json:"parsed"`
}

type ParseReport struct {
	Items []ParsedLineItem `json:"items"`
	Stats ParseStats       `json:"stats"`
}

// ImportSource is either pasted text or an uploaded file body.
type ImportSource struct {
	Text     string
	Filename string
	MimeType string
	Body     io.Reader
}

type ImportResult struct {
	BatchID    string           `json:"batch_id"`
	Items      []ParsedLineItem `json:"items"`
	Stats      ParseStats       `json:"stats"`
	Enqueued   int              `json:"enqueued"`
	Duplicates int              `json:"duplicates"`
	ArchiveKey string           `json:"archive_key,omitempty"`
}

// ImportBatch records one accepted parts list and where its source text was archived.
type ImportBatch struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	MimeType   string     `json:"mime_type"`
	ArchiveKey string     `json:"archive_key"`
	Stats      ParseStats `json:"stats"`
	Enqueued   int        `json:"enqueued"`
	Duplicates int        `json:"duplicates"`
	CreatedAt  time.Time  `json:"created_at"`
}

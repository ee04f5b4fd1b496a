package ports

import (
	"context"

	"github.com/dakshin/partsquote/internal/core/domain"
)

// PartsListImporter is the inbound contract for turning pasted or uploaded lists into queue entries.
type PartsListImporter interface {
	Parse(ctx context.Context, text string) (*domain.ParseReport, error)
	Import(ctx context.Context, src domain.ImportSource) (*domain.ImportResult, error)
}

type ImportHistory interface {
	ListImports(ctx context.Context, limit int) ([]domain.ImportBatch, error)
	GetImport(ctx context.Context, id string) (*domain.ImportBatch, error)
}

// QueueService is the inbound read/write model for enrichment queue state.
type QueueService interface {
	Snapshot(ctx context.Context, filter domain.QueueFilter) (*domain.QueueSnapshot, error)
	Get(ctx context.Context, id string) (*domain.QueueEntry, error)
	Retry(ctx context.Context, id string) (*domain.QueueEntry, error)
	Clear(ctx context.Context, scope domain.ClearScope) (int64, error)
}

// OrchestratorController starts and pauses queue processing.
type OrchestratorController interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	State() domain.OrchestratorState
}

// EntryProcessor runs one claimed queue entry to its next status.
type EntryProcessor interface {
	ProcessEntry(ctx context.Context, entry domain.QueueEntry) domain.QueueStatus
}

// CatalogReader is the inbound read model for enriched parts.
type CatalogReader interface {
	ListParts(ctx context.Context, filter domain.PartFilter) ([]domain.Part, error)
	GetPart(ctx context.Context, partNumber string) (*domain.Part, error)
	Interchangeable(ctx context.Context, partNumber string) ([]string, error)
}

// CatalogRequeuer sends catalog parts back through enrichment.
type CatalogRequeuer interface {
	RequeueUnenriched(ctx context.Context, partNumbers []string, force bool) (*domain.RequeueResult, error)
}

type CustomerService interface {
	ListCustomers(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, in domain.CustomerInput) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, in domain.CustomerInput) (*domain.Customer, error)
}

// QuoteBuilder totals parts lists into quotes and renders them for export.
type QuoteBuilder interface {
	BuildQuote(ctx context.Context, text string, opts domain.QuoteOptions) (*domain.Quote, error)
	ExportQuote(ctx context.Context, quote domain.Quote) ([]byte, error)
}

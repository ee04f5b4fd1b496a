package ports

import (
	"context"
	"io"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
)

// QueueRepository is the single authority for enrichment queue state.
type QueueRepository interface {
	Enqueue(ctx context.Context, entries []domain.QueueEntry) error
	// ClaimPending atomically moves up to limit of the oldest pending entries to processing.
	ClaimPending(ctx context.Context, limit int) ([]domain.QueueEntry, error)
	Update(ctx context.Context, id string, upd domain.QueueUpdate) error
	GetByID(ctx context.Context, id string) (*domain.QueueEntry, error)
	List(ctx context.Context, filter domain.QueueFilter) ([]domain.QueueEntry, error)
	Counts(ctx context.Context) (domain.QueueCounts, error)
	// Clear deletes entries in the given statuses, or every entry when statuses is empty.
	Clear(ctx context.Context, statuses []domain.QueueStatus) (int64, error)
	// ReleaseStale returns processing entries untouched for longer than olderThan to pending,
	// spending one retry each. Entries that reach maxRetries are marked failed instead.
	ReleaseStale(ctx context.Context, olderThan time.Duration, maxRetries int) (int64, error)
}

// CustomerRepository stores quote recipients. Create reports a duplicate email
// as domain.ErrConflict.
type CustomerRepository interface {
	Create(ctx context.Context, customer domain.Customer) error
	Update(ctx context.Context, customer domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByCode(ctx context.Context, code string) (*domain.Customer, error)
	List(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, error)
}

// ImportBatchRepository keeps the history of accepted parts lists.
type ImportBatchRepository interface {
	Create(ctx context.Context, batch domain.ImportBatch) error
	GetByID(ctx context.Context, id string) (*domain.ImportBatch, error)
	List(ctx context.Context, limit int) ([]domain.ImportBatch, error)
}

type PartCatalog interface {
	Upsert(ctx context.Context, upd domain.PartUpsert) (*domain.Part, error)
	GetByPartNumber(ctx context.Context, partNumber string) (*domain.Part, error)
	List(ctx context.Context, filter domain.PartFilter) ([]domain.Part, error)
}

// ImageCache returns nil, nil on a miss.
type ImageCache interface {
	Get(ctx context.Context, partNumber string) (*domain.ImageLookupResult, error)
	Put(ctx context.Context, result domain.ImageLookupResult) error
	Prune(ctx context.Context, unusedFor time.Duration) (int64, error)
}

type ImageFinder interface {
	FindImage(ctx context.Context, partNumber, description string) (domain.ImageLookupResult, error)
}

// PartEnricher returns an error only for transport failures; unusable payloads yield the fallback record.
type PartEnricher interface {
	Enrich(ctx context.Context, req domain.EnrichmentRequest) (domain.PartEnrichment, error)
	Model() string
}

type CompatibilityGraph interface {
	SyncPart(ctx context.Context, part domain.Part) error
	Interchangeable(ctx context.Context, partNumber string) ([]string, error)
}

type ObjectStorage interface {
	Save(ctx context.Context, key string, body io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, filename, mimeType string, body io.Reader) (string, error)
}

type QuoteExporter interface {
	RenderQuote(quote domain.Quote) ([]byte, error)
}

type ControlBus interface {
	PublishControl(ctx context.Context, cmd domain.ControlCommand) error
	SubscribeControl(ctx context.Context, handler func(context.Context, domain.ControlCommand) error) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.QueueEvent) error
}

type EventSubscriber interface {
	SubscribeEvents(ctx context.Context, handler func(domain.QueueEvent)) error
}

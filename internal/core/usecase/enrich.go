package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

// EntryObserver receives per-entry processing telemetry.
type EntryObserver interface {
	StartEntry()
	FinishEntry(status string, duration time.Duration)
	ObserveQueueLag(lag time.Duration)
}

type nopObserver struct{}

func (nopObserver) StartEntry()                       {}
func (nopObserver) FinishEntry(string, time.Duration) {}
func (nopObserver) ObserveQueueLag(time.Duration)     {}

type EnrichEntryOptions struct {
	MaxRetries int
	Graph      ports.CompatibilityGraph
	Events     ports.EventPublisher
	Observer   EntryObserver
}

// EnrichEntryUseCase runs the add-part, image lookup and AI enrichment steps for one entry.
type EnrichEntryUseCase struct {
	queue      ports.QueueRepository
	catalog    ports.PartCatalog
	images     ports.ImageFinder
	enricher   ports.PartEnricher
	graph      ports.CompatibilityGraph
	events     ports.EventPublisher
	observer   EntryObserver
	maxRetries int
	now        func() time.Time
}

func NewEnrichEntryUseCase(
	queue ports.QueueRepository,
	catalog ports.PartCatalog,
	images ports.ImageFinder,
	enricher ports.PartEnricher,
	opts EnrichEntryOptions,
) *EnrichEntryUseCase {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}
	var observer EntryObserver = nopObserver{}
	if opts.Observer != nil {
		observer = opts.Observer
	}
	return &EnrichEntryUseCase{
		queue:      queue,
		catalog:    catalog,
		images:     images,
		enricher:   enricher,
		graph:      opts.Graph,
		events:     publisherOrNop(opts.Events),
		observer:   observer,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// ProcessEntry never returns an error: every outcome is recorded on the entry itself.
func (uc *EnrichEntryUseCase) ProcessEntry(ctx context.Context, entry domain.QueueEntry) domain.QueueStatus {
	started := uc.now()
	uc.observer.StartEntry()
	if !entry.CreatedAt.IsZero() {
		uc.observer.ObserveQueueLag(started.Sub(entry.CreatedAt))
	}

	result, procErr := uc.runSafely(ctx, entry)

	upd := domain.Resolve(entry, result, procErr, uc.maxRetries, uc.now())
	if procErr == nil && *upd.Status == domain.QueueStatusCompleted {
		if err := uc.persistEnrichment(ctx, entry, result); err != nil {
			procErr = err
			upd = domain.Resolve(entry, result, err, uc.maxRetries, uc.now())
		}
	}
	if procErr != nil {
		slog.Warn("enrichment_attempt_failed",
			"entry_id", entry.ID,
			"part_number", entry.PartNumber,
			"retry_count", *upd.RetryCount,
			"next_status", *upd.Status,
			"error", procErr,
		)
	}

	if err := uc.queue.Update(ctx, entry.ID, upd); err != nil {
		slog.Error("queue_entry_update_failed", "entry_id", entry.ID, "status", *upd.Status, "error", err)
		uc.observer.FinishEntry(string(domain.QueueStatusProcessing), uc.now().Sub(started))
		return domain.QueueStatusProcessing
	}

	updated := entry.Apply(upd, uc.now())
	publishBestEffort(ctx, uc.events, entryEvent(updated))
	uc.observer.FinishEntry(string(updated.Status), uc.now().Sub(started))

	slog.Info("queue_entry_processed",
		"entry_id", entry.ID,
		"part_number", entry.PartNumber,
		"status", updated.Status,
		"duration_ms", float64(uc.now().Sub(started).Microseconds())/1000.0,
	)
	return updated.Status
}

func (uc *EnrichEntryUseCase) runSafely(ctx context.Context, entry domain.QueueEntry) (result *domain.EnrichmentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("enrichment panic: %v", r)
		}
	}()
	return uc.enrich(ctx, entry)
}

func (uc *EnrichEntryUseCase) enrich(ctx context.Context, entry domain.QueueEntry) (*domain.EnrichmentResult, error) {
	description := entry.Description
	upsert := domain.PartUpsert{
		PartNumber:  entry.PartNumber,
		Description: &description,
	}
	if entry.Brand != "" {
		brand := entry.Brand
		upsert.Brand = &brand
	}
	if entry.Category != "" {
		category := entry.Category
		upsert.Category = &category
	}
	if _, err := uc.catalog.Upsert(ctx, upsert); err != nil {
		return nil, fmt.Errorf("add part to catalog: %w", err)
	}

	result := &domain.EnrichmentResult{Model: uc.enricher.Model()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(recoverStep("image lookup", func() error {
		image, err := uc.images.FindImage(gctx, entry.PartNumber, entry.Description)
		if err != nil {
			return fmt.Errorf("image lookup: %w", err)
		}
		result.Image = image
		return nil
	}))
	g.Go(recoverStep("ai enrichment", func() error {
		enrichment, err := uc.enricher.Enrich(gctx, domain.EnrichmentRequest{
			PartNumber:  entry.PartNumber,
			Description: entry.Description,
			Brand:       entry.Brand,
		})
		if err != nil {
			return fmt.Errorf("ai enrichment: %w", err)
		}
		result.Enrichment = enrichment
		return nil
	}))
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// recoverStep turns a panic inside a parallel step into an ordinary failure.
func recoverStep(step string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panic: %v", step, r)
			}
		}()
		return fn()
	}
}

func (uc *EnrichEntryUseCase) persistEnrichment(ctx context.Context, entry domain.QueueEntry, result *domain.EnrichmentResult) error {
	now := uc.now().UTC()
	enrichment := result.Enrichment
	imageURL := result.Image.ImageURL
	oemStatus := enrichment.OEMStatus
	lifespan := enrichment.EstimatedLifespan
	notes := enrichment.AINotes()

	part, err := uc.catalog.Upsert(ctx, domain.PartUpsert{
		PartNumber:           entry.PartNumber,
		ImageURL:             &imageURL,
		CompatibleVehicles:   nonNilVehicles(enrichment.CompatibleVehicles),
		Specifications:       nonNilSpecs(enrichment.Specifications),
		OEMStatus:            &oemStatus,
		EstimatedLifespan:    &lifespan,
		InterchangeableParts: nonNilStrings(enrichment.InterchangeableParts),
		AINotes:              &notes,
		LastEnriched:         &now,
		LastImageUpdate:      &now,
	})
	if err != nil {
		return fmt.Errorf("save enrichment to catalog: %w", err)
	}

	if uc.graph != nil && part != nil {
		if err := uc.graph.SyncPart(ctx, *part); err != nil {
			slog.Warn("compatibility_graph_sync_failed", "part_number", part.PartNumber, "error", err)
		}
	}
	return nil
}

func nonNilVehicles(in []domain.VehicleCompatibility) []domain.VehicleCompatibility {
	if in == nil {
		return []domain.VehicleCompatibility{}
	}
	return in
}

func nonNilSpecs(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return in
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

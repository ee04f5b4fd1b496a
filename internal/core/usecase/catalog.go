package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

type CatalogUseCase struct {
	catalog      ports.PartCatalog
	graph        ports.CompatibilityGraph
	queue        ports.QueueRepository
	orchestrator ports.OrchestratorController
	events       ports.EventPublisher
	now          func() time.Time
}

// NewCatalogUseCase wires the catalog read model. queue may be nil, which
// disables RequeueUnenriched.
func NewCatalogUseCase(
	catalog ports.PartCatalog,
	graph ports.CompatibilityGraph,
	queue ports.QueueRepository,
	orchestrator ports.OrchestratorController,
	events ports.EventPublisher,
) *CatalogUseCase {
	return &CatalogUseCase{
		catalog:      catalog,
		graph:        graph,
		queue:        queue,
		orchestrator: orchestrator,
		events:       publisherOrNop(events),
		now:          time.Now,
	}
}

func (uc *CatalogUseCase) ListParts(ctx context.Context, filter domain.PartFilter) ([]domain.Part, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit <= 0 || filter.Limit > domain.DefaultPartListLimit {
		filter.Limit = domain.DefaultPartListLimit
	}
	return uc.catalog.List(ctx, filter)
}

func (uc *CatalogUseCase) GetPart(ctx context.Context, partNumber string) (*domain.Part, error) {
	partNumber = strings.TrimSpace(partNumber)
	if partNumber == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get part", fmt.Errorf("part number is required"))
	}
	return uc.catalog.GetByPartNumber(ctx, partNumber)
}

// Interchangeable prefers the compatibility graph and falls back to the catalog record.
func (uc *CatalogUseCase) Interchangeable(ctx context.Context, partNumber string) ([]string, error) {
	part, err := uc.GetPart(ctx, partNumber)
	if err != nil {
		return nil, err
	}

	if uc.graph != nil {
		alternatives, err := uc.graph.Interchangeable(ctx, part.PartNumber)
		if err == nil && len(alternatives) > 0 {
			return alternatives, nil
		}
		if err != nil {
			slog.Warn("compatibility_graph_query_failed", "part_number", part.PartNumber, "error", err)
		}
	}

	if part.InterchangeableParts == nil {
		return []string{}, nil
	}
	return part.InterchangeableParts, nil
}

// RequeueUnenriched queues catalog parts for another enrichment pass. Named
// parts are queued as given; with no names it picks up to MaxBulkEnrich parts
// that were never enriched or have no vehicle fitment, or any parts when force
// is set. Parts already pending or processing are left alone.
func (uc *CatalogUseCase) RequeueUnenriched(ctx context.Context, partNumbers []string, force bool) (*domain.RequeueResult, error) {
	if uc.queue == nil {
		return nil, fmt.Errorf("enrichment queue is not configured")
	}

	result := &domain.RequeueResult{}
	candidates, err := uc.requeueCandidates(ctx, partNumbers, force, result)
	if err != nil {
		return nil, err
	}
	result.Candidates = len(candidates) + len(result.Missing)
	if len(candidates) == 0 {
		return result, nil
	}

	active, err := uc.queue.List(ctx, domain.QueueFilter{
		Statuses: []domain.QueueStatus{domain.QueueStatusPending, domain.QueueStatusProcessing},
	})
	if err != nil {
		return nil, fmt.Errorf("list active queue entries: %w", err)
	}
	queued := make(map[string]struct{}, len(active))
	for _, entry := range active {
		queued[strings.ToUpper(entry.PartNumber)] = struct{}{}
	}

	batchID := uuid.NewString()
	now := uc.now().UTC()
	entries := make([]domain.QueueEntry, 0, len(candidates))
	for _, part := range candidates {
		key := strings.ToUpper(part.PartNumber)
		if _, ok := queued[key]; ok {
			result.AlreadyQueued = append(result.AlreadyQueued, part.PartNumber)
			continue
		}
		queued[key] = struct{}{}
		entries = append(entries, domain.QueueEntry{
			ID:          uuid.NewString(),
			BatchID:     batchID,
			PartNumber:  part.PartNumber,
			Description: part.Description,
			Brand:       part.Brand,
			Category:    part.Category,
			Status:      domain.QueueStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(entries) == 0 {
		return result, nil
	}

	if err := uc.queue.Enqueue(ctx, entries); err != nil {
		return nil, fmt.Errorf("enqueue catalog parts: %w", err)
	}
	result.BatchID = batchID
	result.Enqueued = len(entries)

	publishBestEffort(ctx, uc.events, domain.QueueEvent{
		Type:    domain.EventEntriesEnqueued,
		BatchID: batchID,
		Count:   len(entries),
	})
	if uc.orchestrator != nil {
		if err := uc.orchestrator.Start(ctx); err != nil {
			slog.Warn("orchestrator_start_failed", "batch_id", batchID, "error", err)
		}
	}

	slog.Info("catalog_parts_requeued",
		"batch_id", batchID,
		"enqueued", len(entries),
		"already_queued", len(result.AlreadyQueued),
		"missing", len(result.Missing),
		"force", force,
	)
	return result, nil
}

func (uc *CatalogUseCase) requeueCandidates(ctx context.Context, partNumbers []string, force bool, result *domain.RequeueResult) ([]domain.Part, error) {
	names := make([]string, 0, len(partNumbers))
	seen := make(map[string]struct{}, len(partNumbers))
	for _, raw := range partNumbers {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[strings.ToUpper(name)]; ok {
			continue
		}
		seen[strings.ToUpper(name)] = struct{}{}
		names = append(names, name)
	}

	if len(names) == 0 {
		parts, err := uc.catalog.List(ctx, domain.PartFilter{NeedsEnrichment: !force, Limit: domain.MaxBulkEnrich})
		if err != nil {
			return nil, fmt.Errorf("list parts needing enrichment: %w", err)
		}
		return parts, nil
	}

	if len(names) > domain.MaxBulkEnrich {
		return nil, domain.WrapError(domain.ErrInvalidInput, "requeue parts",
			fmt.Errorf("%d part numbers given, at most %d allowed", len(names), domain.MaxBulkEnrich))
	}
	parts := make([]domain.Part, 0, len(names))
	for _, name := range names {
		part, err := uc.catalog.GetByPartNumber(ctx, name)
		if err != nil {
			if domain.IsKind(err, domain.ErrPartNotFound) {
				result.Missing = append(result.Missing, name)
				continue
			}
			return nil, fmt.Errorf("load part %s: %w", name, err)
		}
		parts = append(parts, *part)
	}
	return parts, nil
}

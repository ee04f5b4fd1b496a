package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

const defaultQueueListLimit = 500

type QueueAdminUseCase struct {
	queue        ports.QueueRepository
	orchestrator ports.OrchestratorController
	events       ports.EventPublisher
}

func NewQueueAdminUseCase(
	queue ports.QueueRepository,
	orchestrator ports.OrchestratorController,
	events ports.EventPublisher,
) *QueueAdminUseCase {
	return &QueueAdminUseCase{
		queue:        queue,
		orchestrator: orchestrator,
		events:       publisherOrNop(events),
	}
}

func (uc *QueueAdminUseCase) Snapshot(ctx context.Context, filter domain.QueueFilter) (*domain.QueueSnapshot, error) {
	if filter.Limit <= 0 || filter.Limit > defaultQueueListLimit {
		filter.Limit = defaultQueueListLimit
	}
	entries, err := uc.queue.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	counts, err := uc.queue.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count queue entries: %w", err)
	}

	snapshot := &domain.QueueSnapshot{Entries: entries, Counts: counts}
	if uc.orchestrator != nil {
		snapshot.Orchestrator = uc.orchestrator.State()
	}
	return snapshot, nil
}

func (uc *QueueAdminUseCase) Get(ctx context.Context, id string) (*domain.QueueEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get queue entry", fmt.Errorf("id is required"))
	}
	return uc.queue.GetByID(ctx, id)
}

// Retry moves a failed or incomplete entry back to pending with a fresh retry budget.
// Processing is not restarted; callers start the orchestrator explicitly.
func (uc *QueueAdminUseCase) Retry(ctx context.Context, id string) (*domain.QueueEntry, error) {
	entry, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanRequeue(entry.Status) {
		return nil, domain.WrapError(
			domain.ErrInvalidTransition,
			"retry queue entry",
			fmt.Errorf("entry %s is %s", entry.ID, entry.Status),
		)
	}

	status := domain.QueueStatusPending
	cleared := ""
	zero := 0
	upd := domain.QueueUpdate{Status: &status, Error: &cleared, RetryCount: &zero}
	if err := uc.queue.Update(ctx, entry.ID, upd); err != nil {
		return nil, fmt.Errorf("reset queue entry: %w", err)
	}

	updated, err := uc.queue.GetByID(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	publishBestEffort(ctx, uc.events, entryEvent(*updated))
	slog.Info("queue_entry_requeued", "entry_id", updated.ID, "part_number", updated.PartNumber, "previous_status", entry.Status)
	return updated, nil
}

func (uc *QueueAdminUseCase) Clear(ctx context.Context, scope domain.ClearScope) (int64, error) {
	var statuses []domain.QueueStatus
	switch scope {
	case domain.ClearCompleted, "":
		statuses = []domain.QueueStatus{domain.QueueStatusCompleted}
	case domain.ClearAll:
		statuses = nil
	default:
		return 0, domain.WrapError(domain.ErrInvalidInput, "clear queue", fmt.Errorf("unknown scope %q", scope))
	}

	removed, err := uc.queue.Clear(ctx, statuses)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	publishBestEffort(ctx, uc.events, domain.QueueEvent{Type: domain.EventEntriesCleared, Count: int(removed)})
	slog.Info("queue_cleared", "scope", scope, "removed", removed)
	return removed, nil
}

package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

type nopPublisher struct{}

func (nopPublisher) PublishEvent(context.Context, domain.QueueEvent) error { return nil }

func publisherOrNop(p ports.EventPublisher) ports.EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// publishBestEffort never fails the caller; listeners resync from snapshots.
func publishBestEffort(ctx context.Context, p ports.EventPublisher, event domain.QueueEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if err := p.PublishEvent(ctx, event); err != nil {
		slog.Warn("queue_event_publish_failed", "type", event.Type, "entry_id", event.EntryID, "error", err)
	}
}

func entryEvent(entry domain.QueueEntry) domain.QueueEvent {
	return domain.QueueEvent{
		Type:       domain.EventEntryUpdated,
		EntryID:    entry.ID,
		PartNumber: entry.PartNumber,
		BatchID:    entry.BatchID,
		Status:     entry.Status,
		Error:      entry.Error,
		RetryCount: entry.RetryCount,
		At:         entry.UpdatedAt,
	}
}

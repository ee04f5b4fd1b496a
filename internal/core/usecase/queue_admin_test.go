package usecase

import (
	"context"
	"testing"

	"github.com/dakshin/partsquote/internal/core/domain"
)

func TestRetryResetsFailedEntry(t *testing.T) {
	entry := pendingEntry("e1", "PN-1")
	entry.Status = domain.QueueStatusFailed
	entry.RetryCount = 3
	entry.Error = "ai enrichment: status 500"
	queue := newMemoryQueue(entry)
	events := &publisherFake{}
	controller := &controllerFake{}

	uc := NewQueueAdminUseCase(queue, controller, events)
	updated, err := uc.Retry(context.Background(), "e1")
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if updated.Status != domain.QueueStatusPending || updated.RetryCount != 0 || updated.Error != "" {
		t.Fatalf("unexpected entry after retry: %+v", updated)
	}
	if controller.starts != 0 {
		t.Fatalf("retry must not start processing on its own")
	}
	if len(events.ofType(domain.EventEntryUpdated)) != 1 {
		t.Fatalf("expected entry update event")
	}
}

func TestRetryRejectsActiveEntries(t *testing.T) {
	for _, status := range []domain.QueueStatus{domain.QueueStatusPending, domain.QueueStatusProcessing, domain.QueueStatusCompleted} {
		entry := pendingEntry("e1", "PN-1")
		entry.Status = status
		uc := NewQueueAdminUseCase(newMemoryQueue(entry), nil, nil)

		if _, err := uc.Retry(context.Background(), "e1"); !domain.IsKind(err, domain.ErrInvalidTransition) {
			t.Fatalf("Retry() from %s expected invalid transition, got %v", status, err)
		}
	}
}

func TestRetryDoesNotDoubleDispatchClaimedEntry(t *testing.T) {
	queue := newMemoryQueue(pendingEntry("e1", "PN-1"))
	uc := NewQueueAdminUseCase(queue, nil, nil)
	ctx := context.Background()

	claimed, err := queue.ClaimPending(ctx, 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("ClaimPending() = %v, %v", claimed, err)
	}
	if _, err := uc.Retry(ctx, "e1"); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("Retry() of claimed entry expected invalid transition, got %v", err)
	}
	again, err := queue.ClaimPending(ctx, 1)
	if err != nil {
		t.Fatalf("ClaimPending() error = %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("entry claimed twice: %+v", again)
	}
}

func TestRetryUnknownEntry(t *testing.T) {
	uc := NewQueueAdminUseCase(newMemoryQueue(), nil, nil)
	if _, err := uc.Retry(context.Background(), "missing"); !domain.IsKind(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClearScopes(t *testing.T) {
	completed := pendingEntry("e1", "PN-1")
	completed.Status = domain.QueueStatusCompleted
	failed := pendingEntry("e2", "PN-2")
	failed.Status = domain.QueueStatusFailed
	queue := newMemoryQueue(completed, failed, pendingEntry("e3", "PN-3"))
	uc := NewQueueAdminUseCase(queue, nil, nil)

	removed, err := uc.Clear(context.Background(), domain.ClearCompleted)
	if err != nil || removed != 1 {
		t.Fatalf("Clear(completed) = %d, %v", removed, err)
	}
	removed, err = uc.Clear(context.Background(), domain.ClearAll)
	if err != nil || removed != 2 {
		t.Fatalf("Clear(all) = %d, %v", removed, err)
	}
	if _, err := uc.Clear(context.Background(), "everything"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid scope error, got %v", err)
	}
}

func TestSnapshotIncludesCountsAndState(t *testing.T) {
	queue := newMemoryQueue(pendingEntry("e1", "PN-1"), pendingEntry("e2", "PN-2"))
	controller := &controllerFake{state: domain.OrchestratorState{Processing: true, InFlight: 2}}
	uc := NewQueueAdminUseCase(queue, controller, nil)

	snapshot, err := uc.Snapshot(context.Background(), domain.QueueFilter{})
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snapshot.Entries) != 2 || snapshot.Counts.Pending != 2 || !snapshot.Orchestrator.Processing {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

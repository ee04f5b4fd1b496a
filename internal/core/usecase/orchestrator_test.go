package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
)

type trackingProcessor struct {
	current atomic.Int32
	max     atomic.Int32
	total   atomic.Int32
	delay   time.Duration
	queue   *memoryQueue
}

func (p *trackingProcessor) ProcessEntry(ctx context.Context, entry domain.QueueEntry) domain.QueueStatus {
	now := p.current.Add(1)
	defer p.current.Add(-1)
	for {
		prev := p.max.Load()
		if now <= prev || p.max.CompareAndSwap(prev, now) {
			break
		}
	}
	p.total.Add(1)
	time.Sleep(p.delay)

	status := domain.QueueStatusCompleted
	_ = p.queue.Update(ctx, entry.ID, domain.QueueUpdate{Status: &status})
	return status
}

func fastConfig(concurrency int) OrchestratorConfig {
	return OrchestratorConfig{Concurrency: concurrency, BatchDelay: time.Millisecond, ItemTimeout: time.Second}
}

func TestOrchestratorRetriesUntilFailed(t *testing.T) {
	entry := pendingEntry("e1", "04427-42180")
	queue := newMemoryQueue(entry)
	processor := NewEnrichEntryUseCase(queue, newCatalogFake(), &imageFinderFake{err: errors.New("timeout")}, &enricherFake{enrichment: fullEnrichment()}, EnrichEntryOptions{MaxRetries: 3})

	orch := NewOrchestrator(queue, processor, nil, fastConfig(3))
	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	orch.Wait()

	want := []domain.QueueStatus{
		domain.QueueStatusPending,
		domain.QueueStatusProcessing,
		domain.QueueStatusPending,
		domain.QueueStatusProcessing,
		domain.QueueStatusPending,
		domain.QueueStatusProcessing,
		domain.QueueStatusFailed,
	}
	if got := queue.statusHistory("e1"); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected status history:\n got %v\nwant %v", got, want)
	}

	stored, _ := queue.GetByID(context.Background(), "e1")
	if stored.Error != "image lookup: timeout" {
		t.Fatalf("expected last error message, got %q", stored.Error)
	}
	if state := orch.State(); state.Processing {
		t.Fatalf("expected orchestrator to be idle, got %+v", state)
	}
}

func TestOrchestratorRespectsConcurrencyBound(t *testing.T) {
	entries := make([]domain.QueueEntry, 0, 10)
	for i := 0; i < 10; i++ {
		entries = append(entries, pendingEntry(fmt.Sprintf("e%d", i), fmt.Sprintf("PN-%d", i)))
	}
	queue := newMemoryQueue(entries...)
	processor := &trackingProcessor{delay: 5 * time.Millisecond, queue: queue}

	orch := NewOrchestrator(queue, processor, nil, fastConfig(3))
	_ = orch.Start(context.Background())
	orch.Wait()

	if got := processor.max.Load(); got > 3 {
		t.Fatalf("expected at most 3 concurrent entries, got %d", got)
	}
	if got := processor.total.Load(); got != 10 {
		t.Fatalf("expected 10 processed entries, got %d", got)
	}
	counts, _ := queue.Counts(context.Background())
	if counts.Completed != 10 {
		t.Fatalf("expected all entries completed, got %+v", counts)
	}
}

type blockingProcessor struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	queue   *memoryQueue
}

func (p *blockingProcessor) ProcessEntry(ctx context.Context, entry domain.QueueEntry) domain.QueueStatus {
	p.once.Do(func() { close(p.started) })
	<-p.release
	status := domain.QueueStatusCompleted
	_ = p.queue.Update(ctx, entry.ID, domain.QueueUpdate{Status: &status})
	return status
}

func TestOrchestratorPauseFinishesInFlightBatch(t *testing.T) {
	entries := make([]domain.QueueEntry, 0, 5)
	for i := 0; i < 5; i++ {
		entries = append(entries, pendingEntry(fmt.Sprintf("e%d", i), fmt.Sprintf("PN-%d", i)))
	}
	queue := newMemoryQueue(entries...)
	processor := &blockingProcessor{started: make(chan struct{}), release: make(chan struct{}), queue: queue}
	events := &publisherFake{}

	orch := NewOrchestrator(queue, processor, events, fastConfig(2))
	_ = orch.Start(context.Background())
	<-processor.started

	_ = orch.Pause(context.Background())
	if state := orch.State(); !state.Paused || !state.Processing {
		t.Fatalf("expected paused while draining, got %+v", state)
	}
	close(processor.release)
	orch.Wait()

	counts, _ := queue.Counts(context.Background())
	if counts.Completed != 2 || counts.Pending != 3 {
		t.Fatalf("expected only the in-flight batch to finish, got %+v", counts)
	}
	if state := orch.State(); state.Processing || !state.Paused {
		t.Fatalf("expected paused and idle, got %+v", state)
	}
	if len(events.ofType(domain.EventOrchestratorState)) == 0 {
		t.Fatalf("expected orchestrator state events")
	}
}

// restartOnStop calls Start once, from inside the stop notification of a paused run.
type restartOnStop struct {
	orch *Orchestrator
	once sync.Once
}

func (p *restartOnStop) PublishEvent(ctx context.Context, event domain.QueueEvent) error {
	if event.Orchestrator == nil || event.Orchestrator.Processing || !event.Orchestrator.Paused {
		return nil
	}
	p.once.Do(func() { _ = p.orch.Start(ctx) })
	return nil
}

func TestOrchestratorStartRightAfterPausedRunStops(t *testing.T) {
	entries := make([]domain.QueueEntry, 0, 3)
	for i := 0; i < 3; i++ {
		entries = append(entries, pendingEntry(fmt.Sprintf("e%d", i), fmt.Sprintf("PN-%d", i)))
	}
	queue := newMemoryQueue(entries...)
	processor := &blockingProcessor{started: make(chan struct{}), release: make(chan struct{}), queue: queue}
	events := &restartOnStop{}

	orch := NewOrchestrator(queue, processor, events, fastConfig(1))
	events.orch = orch
	_ = orch.Start(context.Background())
	<-processor.started
	_ = orch.Pause(context.Background())
	close(processor.release)

	deadline := time.Now().Add(2 * time.Second)
	for {
		counts, _ := queue.Counts(context.Background())
		if counts.Completed == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("start after a paused run stopped was lost, counts %+v", counts)
		}
		time.Sleep(time.Millisecond)
	}
	orch.Wait()
	if state := orch.State(); state.Processing || state.Paused {
		t.Fatalf("expected idle and unpaused, got %+v", state)
	}
}

func TestOrchestratorStartWhileRunningIsNoop(t *testing.T) {
	queue := newMemoryQueue(pendingEntry("e1", "PN-1"))
	processor := &blockingProcessor{started: make(chan struct{}), release: make(chan struct{}), queue: queue}

	orch := NewOrchestrator(queue, processor, nil, fastConfig(1))
	_ = orch.Start(context.Background())
	<-processor.started
	_ = orch.Start(context.Background())

	_ = queue.Enqueue(context.Background(), []domain.QueueEntry{pendingEntry("e2", "PN-2")})
	close(processor.release)
	orch.Wait()

	counts, _ := queue.Counts(context.Background())
	if counts.Completed != 2 {
		t.Fatalf("expected entry added mid-run to be processed, got %+v", counts)
	}
}

func TestOrchestratorStopsOnClaimError(t *testing.T) {
	queue := newMemoryQueue(pendingEntry("e1", "PN-1"))
	queue.claimErr = errors.New("db down")

	orch := NewOrchestrator(queue, &trackingProcessor{queue: queue}, nil, fastConfig(1))
	_ = orch.Start(context.Background())
	orch.Wait()

	if state := orch.State(); state.Processing {
		t.Fatalf("expected orchestrator to stop, got %+v", state)
	}
}

func TestOrchestratorStopsOnContextCancel(t *testing.T) {
	entries := make([]domain.QueueEntry, 0, 4)
	for i := 0; i < 4; i++ {
		entries = append(entries, pendingEntry(fmt.Sprintf("e%d", i), fmt.Sprintf("PN-%d", i)))
	}
	queue := newMemoryQueue(entries...)
	processor := &trackingProcessor{delay: 10 * time.Millisecond, queue: queue}

	ctx, cancel := context.WithCancel(context.Background())
	orch := NewOrchestrator(queue, processor, nil, OrchestratorConfig{Concurrency: 1, BatchDelay: time.Hour, ItemTimeout: time.Second})
	_ = orch.Start(ctx)

	time.Sleep(30 * time.Millisecond)
	cancel()
	orch.Wait()

	if got := processor.total.Load(); got != 1 {
		t.Fatalf("expected one entry before cancellation, got %d", got)
	}
}

package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

type OrchestratorConfig struct {
	Concurrency int
	BatchDelay  time.Duration
	ItemTimeout time.Duration
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Concurrency: 3,
		BatchDelay:  time.Second,
		ItemTimeout: 2 * time.Minute,
	}
}

func (c OrchestratorConfig) normalize() OrchestratorConfig {
	out := c
	def := DefaultOrchestratorConfig()
	if out.Concurrency <= 0 {
		out.Concurrency = def.Concurrency
	}
	if out.BatchDelay < 0 {
		out.BatchDelay = 0
	}
	if out.ItemTimeout <= 0 {
		out.ItemTimeout = def.ItemTimeout
	}
	return out
}

// Orchestrator drains the pending queue in bounded batches. Only one run is
// active at a time; Pause stops dispatch after the in-flight batch finishes.
type Orchestrator struct {
	queue     ports.QueueRepository
	processor ports.EntryProcessor
	events    ports.EventPublisher
	cfg       OrchestratorConfig

	mu       sync.Mutex
	running  bool
	rearm    bool
	paused   bool
	inFlight int
	changed  time.Time
	done     chan struct{}
}

func NewOrchestrator(
	queue ports.QueueRepository,
	processor ports.EntryProcessor,
	events ports.EventPublisher,
	cfg OrchestratorConfig,
) *Orchestrator {
	return &Orchestrator{
		queue:     queue,
		processor: processor,
		events:    publisherOrNop(events),
		cfg:       cfg.normalize(),
		changed:   time.Now().UTC(),
	}
}

// Start clears a pause and begins a run unless one is already active.
// ctx bounds the whole run, not just the call.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	o.paused = false
	if o.running {
		// The active run re-checks the queue before it exits.
		o.rearm = true
		o.mu.Unlock()
		return nil
	}
	o.running = true
	o.rearm = false
	done := make(chan struct{})
	o.done = done
	o.changed = time.Now().UTC()
	o.mu.Unlock()

	slog.Info("orchestrator_started", "concurrency", o.cfg.Concurrency)
	o.publishState(ctx)

	go func() {
		defer close(done)
		o.run(ctx, done)
	}()
	return nil
}

func (o *Orchestrator) Pause(ctx context.Context) error {
	o.mu.Lock()
	o.paused = true
	o.changed = time.Now().UTC()
	o.mu.Unlock()

	slog.Info("orchestrator_pause_requested")
	o.publishState(ctx)
	return nil
}

func (o *Orchestrator) State() domain.OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return domain.OrchestratorState{
		Processing: o.running,
		Paused:     o.paused,
		InFlight:   o.inFlight,
		UpdatedAt:  o.changed,
	}
}

// Wait blocks until the current run, if any, has finished.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (o *Orchestrator) run(ctx context.Context, done chan struct{}) {
	defer func() {
		o.mu.Lock()
		if o.done == done {
			o.running = false
			o.inFlight = 0
			o.changed = time.Now().UTC()
		}
		o.mu.Unlock()
		slog.Info("orchestrator_stopped")
		o.publishState(context.WithoutCancel(ctx))
	}()

	for {
		if ctx.Err() != nil || o.stopIfPaused() {
			return
		}

		batch, err := o.queue.ClaimPending(ctx, o.cfg.Concurrency)
		if err != nil {
			slog.Error("orchestrator_claim_failed", "error", err)
			return
		}
		if len(batch) == 0 {
			if o.finishIfIdle() {
				return
			}
			continue
		}

		o.dispatch(ctx, batch)

		if !sleepContext(ctx, o.cfg.BatchDelay) {
			return
		}
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, batch []domain.QueueEntry) {
	o.adjustInFlight(len(batch))
	o.publishState(ctx)

	var wg sync.WaitGroup
	for _, entry := range batch {
		wg.Add(1)
		go func(entry domain.QueueEntry) {
			defer wg.Done()
			defer o.adjustInFlight(-1)
			defer func() {
				if r := recover(); r != nil {
					slog.Error("orchestrator_worker_panic", "entry_id", entry.ID, "panic", r)
				}
			}()

			itemCtx, cancel := context.WithTimeout(ctx, o.cfg.ItemTimeout)
			defer cancel()
			o.processor.ProcessEntry(itemCtx, entry)
		}(entry)
	}
	wg.Wait()
}

// finishIfIdle marks the run finished unless Start was called while it was active.
func (o *Orchestrator) finishIfIdle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rearm {
		o.rearm = false
		return false
	}
	o.running = false
	return true
}

// stopIfPaused observes the pause and ends the run under one lock, so a Start
// that lands after it begins a fresh run instead of arming this one.
func (o *Orchestrator) stopIfPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.paused {
		return false
	}
	o.running = false
	o.rearm = false
	return true
}

func (o *Orchestrator) adjustInFlight(delta int) {
	o.mu.Lock()
	o.inFlight += delta
	if o.inFlight < 0 {
		o.inFlight = 0
	}
	o.mu.Unlock()
}

func (o *Orchestrator) publishState(ctx context.Context) {
	state := o.State()
	publishBestEffort(ctx, o.events, domain.QueueEvent{
		Type:         domain.EventOrchestratorState,
		Orchestrator: &state,
	})
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

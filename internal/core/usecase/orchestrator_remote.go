package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

// RemoteOrchestrator controls an orchestrator running in another process.
// Commands go out over the control bus; state is learned from broadcast events.
type RemoteOrchestrator struct {
	bus ports.ControlBus

	mu    sync.RWMutex
	state domain.OrchestratorState
}

func NewRemoteOrchestrator(bus ports.ControlBus) *RemoteOrchestrator {
	return &RemoteOrchestrator{bus: bus}
}

func (r *RemoteOrchestrator) Start(ctx context.Context) error {
	return r.send(ctx, domain.ControlStart)
}

func (r *RemoteOrchestrator) Pause(ctx context.Context) error {
	return r.send(ctx, domain.ControlPause)
}

func (r *RemoteOrchestrator) State() domain.OrchestratorState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// HandleEvent keeps the last orchestrator state reported by the worker.
func (r *RemoteOrchestrator) HandleEvent(event domain.QueueEvent) {
	if event.Type != domain.EventOrchestratorState || event.Orchestrator == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.Orchestrator.UpdatedAt.Before(r.state.UpdatedAt) {
		return
	}
	r.state = *event.Orchestrator
}

func (r *RemoteOrchestrator) send(ctx context.Context, action domain.ControlAction) error {
	if r.bus == nil {
		return domain.WrapError(domain.ErrOrchestratorOffline, "orchestrator "+string(action), fmt.Errorf("control bus not configured"))
	}
	cmd := domain.ControlCommand{Action: action, RequestedAt: time.Now().UTC()}
	if err := r.bus.PublishControl(ctx, cmd); err != nil {
		return domain.WrapError(domain.ErrOrchestratorOffline, "orchestrator "+string(action), err)
	}
	return nil
}

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
)

func TestRemoteOrchestratorPublishesCommands(t *testing.T) {
	bus := &controlBusFake{}
	remote := NewRemoteOrchestrator(bus)

	if err := remote.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := remote.Pause(context.Background()); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if len(bus.sent) != 2 || bus.sent[0].Action != domain.ControlStart || bus.sent[1].Action != domain.ControlPause {
		t.Fatalf("unexpected commands: %+v", bus.sent)
	}
}

func TestRemoteOrchestratorWrapsBusErrors(t *testing.T) {
	remote := NewRemoteOrchestrator(&controlBusFake{err: errors.New("no responders")})
	if err := remote.Start(context.Background()); !domain.IsKind(err, domain.ErrOrchestratorOffline) {
		t.Fatalf("expected offline error, got %v", err)
	}
}

func TestRemoteOrchestratorTracksLatestState(t *testing.T) {
	remote := NewRemoteOrchestrator(&controlBusFake{})
	newer := time.Now().UTC()
	older := newer.Add(-time.Second)

	remote.HandleEvent(domain.QueueEvent{
		Type:         domain.EventOrchestratorState,
		Orchestrator: &domain.OrchestratorState{Processing: true, UpdatedAt: newer},
	})
	remote.HandleEvent(domain.QueueEvent{
		Type:         domain.EventOrchestratorState,
		Orchestrator: &domain.OrchestratorState{Processing: false, UpdatedAt: older},
	})
	remote.HandleEvent(domain.QueueEvent{Type: domain.EventEntryUpdated})

	if state := remote.State(); !state.Processing {
		t.Fatalf("expected newest state to win, got %+v", state)
	}
}

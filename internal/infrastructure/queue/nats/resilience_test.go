package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/dakshin/partsquote/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"nil", nil, false, false},
		{"canceled", context.Canceled, false, false},
		{"no servers", nats.ErrNoServers, true, true},
		{"timeout", nats.ErrTimeout, true, true},
		{"disconnected", nats.ErrDisconnected, true, true},
		{"reconnecting", nats.ErrConnectionReconnecting, true, true},
		{"bad subject", nats.ErrBadSubject, false, false},
		{"max payload", nats.ErrMaxPayload, false, false},
		{"unknown", errors.New("boom"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyNATSError(tt.err)
			if got.Retryable != tt.retryable || got.RecordFailure != tt.record {
				t.Fatalf("classifyNATSError(%v) = %+v", tt.err, got)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded("nats.publish_control", nats.ErrConnectionClosed)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if err := wrapTemporaryIfNeeded("nats.publish_event", nats.ErrMaxPayload); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("oversized payload must not become temporary")
	}
}

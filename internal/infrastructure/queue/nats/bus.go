package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/infrastructure/resilience"
)

const controlQueueGroup = "orchestrators"

// Bus carries orchestrator control commands and queue events between the api and worker.
type Bus struct {
	conn          *nats.Conn
	controlSubj   string
	eventsSubj    string
	executor      *resilience.Executor
	drainDeadline time.Duration
}

type Options struct {
	ControlSubject       string
	EventsSubject        string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url string, options Options) (*Bus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	controlSubj := options.ControlSubject
	if controlSubj == "" {
		controlSubj = "enrichment.control"
	}
	eventsSubj := options.EventsSubject
	if eventsSubj == "" {
		eventsSubj = "enrichment.events"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("partsquote"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:          conn,
		controlSubj:   controlSubj,
		eventsSubj:    eventsSubj,
		executor:      options.ResilienceExecutor,
		drainDeadline: 5 * time.Second,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func (b *Bus) PublishControl(ctx context.Context, cmd domain.ControlCommand) error {
	if cmd.RequestedAt.IsZero() {
		cmd.RequestedAt = time.Now().UTC()
	}
	return b.publish(ctx, "nats.publish_control", b.controlSubj, cmd)
}

func (b *Bus) PublishEvent(ctx context.Context, event domain.QueueEvent) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	return b.publish(ctx, "nats.publish_event", b.eventsSubj, event)
}

func (b *Bus) publish(ctx context.Context, op, subject string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	call := func(_ context.Context) error {
		if err := b.conn.Publish(subject, raw); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}
	if err := b.executor.Execute(ctx, op, call, classifyNATSError); err != nil {
		return wrapTemporaryIfNeeded(op, err)
	}
	return nil
}

// SubscribeControl joins the orchestrator queue group so each command reaches one worker.
// It blocks until ctx is done.
func (b *Bus) SubscribeControl(ctx context.Context, handler func(context.Context, domain.ControlCommand) error) error {
	sub, err := b.conn.QueueSubscribe(b.controlSubj, controlQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		var cmd domain.ControlCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			slog.Warn("control_command_invalid", "error", err)
			return
		}
		if err := handler(ctx, cmd); err != nil {
			slog.Error("control_command_failed", "action", cmd.Action, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe control: %w", err)
	}
	return b.serve(ctx, sub)
}

// SubscribeEvents fans every queue event out to this subscriber. It blocks until ctx is done.
func (b *Bus) SubscribeEvents(ctx context.Context, handler func(domain.QueueEvent)) error {
	sub, err := b.conn.Subscribe(b.eventsSubj, func(msg *nats.Msg) {
		var event domain.QueueEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("queue_event_invalid", "error", err)
			return
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe events: %w", err)
	}
	return b.serve(ctx, sub)
}

func (b *Bus) serve(ctx context.Context, sub *nats.Subscription) error {
	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(b.drainDeadline); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

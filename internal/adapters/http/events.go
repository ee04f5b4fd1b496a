package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const (
	eventBufferSize   = 32
	eventKeepAlive    = 25 * time.Second
	maxEventListeners = 256
)

// EventStream fans queue events out to connected SSE clients.
// Slow clients drop events instead of blocking the publisher.
type EventStream struct {
	mu        sync.Mutex
	listeners map[chan domain.QueueEvent]struct{}
}

func NewEventStream() *EventStream {
	return &EventStream{listeners: make(map[chan domain.QueueEvent]struct{})}
}

func (s *EventStream) Publish(event domain.QueueEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.listeners {
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *EventStream) subscribe() (chan domain.QueueEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) >= maxEventListeners {
		return nil, false
	}
	ch := make(chan domain.QueueEvent, eventBufferSize)
	s.listeners[ch] = struct{}{}
	return ch, true
}

func (s *EventStream) unsubscribe(ch chan domain.QueueEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, ch)
}

// Listeners reports the number of connected clients.
func (s *EventStream) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	ch, ok := s.subscribe()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "too many event listeners"})
		return
	}
	defer s.unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		slog.Warn("sse_flush_unsupported", "error", err)
		return
	}

	keepAlive := time.NewTicker(eventKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case event := <-ch:
			payload, err := json.Marshal(event)
			if err != nil {
				slog.Error("sse_event_encode_failed", "type", event.Type, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

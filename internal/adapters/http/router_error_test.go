package httpadapter

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dakshin/partsquote/internal/config"
	"github.com/dakshin/partsquote/internal/core/domain"
)

func TestParseMapsDomainInvalidInputTo400(t *testing.T) {
	deps := newTestDeps()
	deps.importer.err = domain.WrapError(domain.ErrInvalidInput, "parse", errors.New("text is empty"))

	res := doJSON(t, deps.handler(config.Config{}), http.MethodPost, "/v1/parts-lists/parse", map[string]string{"text": " "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetQueueEntryReturns404ForNotFound(t *testing.T) {
	deps := newTestDeps()
	deps.queue.getErr = domain.WrapError(domain.ErrEntryNotFound, "get", errors.New("id=missing"))

	res := doJSON(t, deps.handler(config.Config{}), http.MethodGet, "/v1/queue/missing", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRetryCompletedEntryReturns409(t *testing.T) {
	deps := newTestDeps()
	deps.queue.retryErr = domain.WrapError(domain.ErrInvalidTransition, "retry", errors.New("entry e1 is completed"))

	res := doJSON(t, deps.handler(config.Config{}), http.MethodPost, "/v1/queue/e1/retry", nil)
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestStartReturns503WhenOrchestratorOffline(t *testing.T) {
	deps := newTestDeps()
	deps.orchestrator.err = domain.WrapError(domain.ErrOrchestratorOffline, "orchestrator start", errors.New("nats: no servers"))

	res := doJSON(t, deps.handler(config.Config{}), http.MethodPost, "/v1/queue/start", nil)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestGetPartReturns404ForUnknownPart(t *testing.T) {
	deps := newTestDeps()
	deps.catalog.err = domain.WrapError(domain.ErrPartNotFound, "get part", errors.New("pn=XYZ"))

	res := doJSON(t, deps.handler(config.Config{}), http.MethodGet, "/v1/parts/XYZ", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestMapErrorToHTTPStatusDefaultsTo500(t *testing.T) {
	if got := mapErrorToHTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
	if got := mapErrorToHTTPStatus(domain.WrapError(domain.ErrTemporary, "x", errors.New("y"))); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", got)
	}
}

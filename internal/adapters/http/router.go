package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dakshin/partsquote/internal/config"
	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
	"github.com/dakshin/partsquote/internal/observability/metrics"
)

const (
	serviceName         = "api"
	defaultMaxBodyBytes = 10 << 20
	backpressureWait    = 250 * time.Millisecond
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Dependencies are the inbound ports the API serves. Nil ports answer 503.
type Dependencies struct {
	Importer     ports.PartsListImporter
	Imports      ports.ImportHistory
	Queue        ports.QueueService
	Orchestrator ports.OrchestratorController
	Catalog      ports.CatalogReader
	Requeue      ports.CatalogRequeuer
	Customers    ports.CustomerService
	Quotes       ports.QuoteBuilder
	Events       *EventStream
	Metrics      *metrics.HTTPServerMetrics
	MCP          http.Handler
}

type Router struct {
	deps         Dependencies
	apiToken     string
	rateRPS      float64
	rateBurst    int
	maxInFlight  int
	maxBodyBytes int64
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	maxBody := cfg.APIMaxUploadBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Router{
		deps:         deps,
		apiToken:     strings.TrimSpace(cfg.APIToken),
		rateRPS:      cfg.APIRateLimitRPS,
		rateBurst:    cfg.APIRateLimitBurst,
		maxInFlight:  cfg.APIMaxInFlight,
		maxBodyBytes: maxBody,
	}
}

var loadSpecRouter = sync.OnceValues(loadOpenAPIRouter)

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/parts-lists/parse", rt.parsePartsList)
	mux.HandleFunc("POST /v1/parts-lists/import", rt.importPartsList)
	mux.HandleFunc("GET /v1/imports", rt.listImports)
	mux.HandleFunc("GET /v1/imports/{id}", rt.getImport)

	mux.HandleFunc("GET /v1/queue", rt.listQueue)
	mux.HandleFunc("DELETE /v1/queue", rt.clearQueue)
	mux.HandleFunc("GET /v1/queue/events", rt.queueEvents)
	mux.HandleFunc("POST /v1/queue/start", rt.startQueue)
	mux.HandleFunc("POST /v1/queue/pause", rt.pauseQueue)
	mux.HandleFunc("GET /v1/queue/{id}", rt.getQueueEntry)
	mux.HandleFunc("PATCH /v1/queue/{id}", rt.updateQueueEntry)
	mux.HandleFunc("POST /v1/queue/{id}/retry", rt.retryQueueEntry)

	mux.HandleFunc("GET /v1/parts", rt.listParts)
	mux.HandleFunc("POST /v1/parts/enrich", rt.requeueParts)
	mux.HandleFunc("GET /v1/parts/{part_number}", rt.getPart)
	mux.HandleFunc("GET /v1/parts/{part_number}/interchange", rt.getInterchange)

	mux.HandleFunc("GET /v1/customers", rt.listCustomers)
	mux.HandleFunc("POST /v1/customers", rt.createCustomer)
	mux.HandleFunc("GET /v1/customers/{id}", rt.getCustomer)
	mux.HandleFunc("PUT /v1/customers/{id}", rt.updateCustomer)

	mux.HandleFunc("POST /v1/quotes", rt.buildQuote)
	mux.HandleFunc("POST /v1/quotes/export", rt.exportQuote)

	if rt.deps.MCP != nil {
		mux.Handle("/mcp", rt.deps.MCP)
	}

	var handler http.Handler = mux
	if specRouter, err := loadSpecRouter(); err != nil {
		slog.Error("openapi_validation_disabled", "error", err)
	} else {
		handler = openAPIValidationMiddleware(specRouter, handler)
	}
	handler = bearerAuthMiddleware(rt.apiToken, map[string]bool{
		"/healthz":      true,
		"/openapi.yaml": true,
		"/metrics":      true,
	}, handler)
	handler = rt.withBackpressure(handler)
	handler = rateLimitMiddleware(handler, rt.rateRPS, rt.rateBurst, func() {
		if rt.deps.Metrics != nil {
			rt.deps.Metrics.RecordRejected(serviceName, "rate_limit")
		}
	})
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

// withBackpressure leaves the long-lived event stream outside the in-flight cap.
func (rt *Router) withBackpressure(next http.Handler) http.Handler {
	limited := backpressureMiddleware(next, rt.maxInFlight, backpressureWait)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/queue/events" {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(OpenAPIDocument())
}

type textRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename,omitempty"`
}

func (rt *Router) parsePartsList(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Importer == nil {
		writeUnavailable(w, "parts-list parsing")
		return
	}
	var req textRequest
	if !rt.decodeJSON(w, r, &req) {
		return
	}

	report, err := rt.deps.Importer.Parse(r.Context(), req.Text)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) importPartsList(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Importer == nil {
		writeUnavailable(w, "parts-list import")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxBodyBytes)

	var src domain.ImportSource
	source := "text"
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, fileHeader, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
			return
		}
		defer file.Close()

		src = domain.ImportSource{
			Filename: fileHeader.Filename,
			MimeType: fileHeader.Header.Get("Content-Type"),
			Body:     file,
		}
		source = "file"
	} else {
		var req textRequest
		if !rt.decodeJSON(w, r, &req) {
			return
		}
		src = domain.ImportSource{Text: req.Text, Filename: req.Filename}
	}

	result, err := rt.deps.Importer.Import(r.Context(), src)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordImport(serviceName, source, result.Enqueued)
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (rt *Router) listQueue(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Queue == nil {
		writeUnavailable(w, "queue")
		return
	}
	query := r.URL.Query()
	filter := domain.QueueFilter{BatchID: strings.TrimSpace(query.Get("batch_id"))}
	if raw := query.Get("status"); raw != "" {
		status, err := domain.ParseQueueStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		filter.Statuses = []domain.QueueStatus{status}
	}
	limit, ok := queryInt(w, query.Get("limit"))
	if !ok {
		return
	}
	filter.Limit = limit

	snapshot, err := rt.deps.Queue.Snapshot(r.Context(), filter)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (rt *Router) clearQueue(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Queue == nil {
		writeUnavailable(w, "queue")
		return
	}
	scope := domain.ClearScope(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("scope"))))
	if scope == "" {
		scope = domain.ClearCompleted
	}

	removed, err := rt.deps.Queue.Clear(r.Context(), scope)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "scope": scope})
}

func (rt *Router) queueEvents(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Events == nil {
		writeUnavailable(w, "queue events")
		return
	}
	rt.deps.Events.ServeHTTP(w, r)
}

func (rt *Router) startQueue(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Orchestrator == nil {
		writeUnavailable(w, "orchestrator")
		return
	}
	if err := rt.deps.Orchestrator.Start(r.Context()); err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, rt.deps.Orchestrator.State())
}

func (rt *Router) pauseQueue(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Orchestrator == nil {
		writeUnavailable(w, "orchestrator")
		return
	}
	if err := rt.deps.Orchestrator.Pause(r.Context()); err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, rt.deps.Orchestrator.State())
}

func (rt *Router) getQueueEntry(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Queue == nil {
		writeUnavailable(w, "queue")
		return
	}
	entry, err := rt.deps.Queue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// updateQueueEntry accepts only {"status":"pending"}, the operator requeue.
func (rt *Router) updateQueueEntry(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Queue == nil {
		writeUnavailable(w, "queue")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	status, err := domain.ParseQueueStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if status != domain.QueueStatusPending {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only status=pending can be set"})
		return
	}
	rt.requeue(w, r)
}

func (rt *Router) retryQueueEntry(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Queue == nil {
		writeUnavailable(w, "queue")
		return
	}
	rt.requeue(w, r)
}

func (rt *Router) requeue(w http.ResponseWriter, r *http.Request) {
	entry, err := rt.deps.Queue.Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) listImports(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Imports == nil {
		writeUnavailable(w, "import history")
		return
	}
	limit, ok := queryInt(w, r.URL.Query().Get("limit"))
	if !ok {
		return
	}
	batches, err := rt.deps.Imports.ListImports(r.Context(), limit)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": batches, "count": len(batches)})
}

func (rt *Router) getImport(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Imports == nil {
		writeUnavailable(w, "import history")
		return
	}
	batch, err := rt.deps.Imports.GetImport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (rt *Router) listParts(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Catalog == nil {
		writeUnavailable(w, "catalog")
		return
	}
	query := r.URL.Query()
	limit, ok := queryInt(w, query.Get("limit"))
	if !ok {
		return
	}

	parts, err := rt.deps.Catalog.ListParts(r.Context(), domain.PartFilter{
		Search:   query.Get("search"),
		Brand:    query.Get("brand"),
		Category: query.Get("category"),
		Limit:    limit,
	})
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"parts": parts, "count": len(parts)})
}

func (rt *Router) getPart(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Catalog == nil {
		writeUnavailable(w, "catalog")
		return
	}
	part, err := rt.deps.Catalog.GetPart(r.Context(), r.PathValue("part_number"))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

func (rt *Router) getInterchange(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Catalog == nil {
		writeUnavailable(w, "catalog")
		return
	}
	partNumber := r.PathValue("part_number")
	alternatives, err := rt.deps.Catalog.Interchangeable(r.Context(), partNumber)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"part_number":     partNumber,
		"interchangeable": alternatives,
	})
}

func (rt *Router) requeueParts(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Requeue == nil {
		writeUnavailable(w, "catalog enrichment")
		return
	}
	var req struct {
		PartNumbers []string `json:"part_numbers"`
		Force       bool     `json:"force"`
	}
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	result, err := rt.deps.Requeue.RequeueUnenriched(r.Context(), req.PartNumbers, req.Force)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (rt *Router) listCustomers(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Customers == nil {
		writeUnavailable(w, "customers")
		return
	}
	query := r.URL.Query()
	limit, ok := queryInt(w, query.Get("limit"))
	if !ok {
		return
	}
	customers, err := rt.deps.Customers.ListCustomers(r.Context(), domain.CustomerFilter{Search: query.Get("search"), Limit: limit})
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers, "count": len(customers)})
}

func (rt *Router) createCustomer(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Customers == nil {
		writeUnavailable(w, "customers")
		return
	}
	var in domain.CustomerInput
	if !rt.decodeJSON(w, r, &in) {
		return
	}
	customer, err := rt.deps.Customers.CreateCustomer(r.Context(), in)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (rt *Router) getCustomer(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Customers == nil {
		writeUnavailable(w, "customers")
		return
	}
	customer, err := rt.deps.Customers.GetCustomer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (rt *Router) updateCustomer(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Customers == nil {
		writeUnavailable(w, "customers")
		return
	}
	var in domain.CustomerInput
	if !rt.decodeJSON(w, r, &in) {
		return
	}
	customer, err := rt.deps.Customers.UpdateCustomer(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

type quoteRequest struct {
	Text         string `json:"text"`
	CustomerCode string `json:"customer_code"`
	Brand        string `json:"brand"`
	Currency     string `json:"currency"`
	TaxRegion    string `json:"tax_region"`
	TaxRate      string `json:"tax_rate"`
}

func (q quoteRequest) options() (domain.QuoteOptions, error) {
	opts := domain.QuoteOptions{
		CustomerCode: q.CustomerCode,
		Brand:        q.Brand,
		Currency:     q.Currency,
		TaxRegion:    q.TaxRegion,
	}
	if strings.TrimSpace(q.TaxRate) != "" {
		rate, err := decimal.NewFromString(strings.TrimSpace(q.TaxRate))
		if err != nil {
			return domain.QuoteOptions{}, domain.WrapError(domain.ErrInvalidInput, "quote options", fmt.Errorf("tax_rate: %w", err))
		}
		opts.TaxRate = &rate
	}
	return opts, nil
}

func (rt *Router) buildQuote(w http.ResponseWriter, r *http.Request) {
	quote, ok := rt.quoteFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (rt *Router) exportQuote(w http.ResponseWriter, r *http.Request) {
	quote, ok := rt.quoteFromRequest(w, r)
	if !ok {
		return
	}
	workbook, err := rt.deps.Quotes.ExportQuote(r.Context(), *quote)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", quote.Reference+".xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(len(workbook)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func (rt *Router) quoteFromRequest(w http.ResponseWriter, r *http.Request) (*domain.Quote, bool) {
	if rt.deps.Quotes == nil {
		writeUnavailable(w, "quotes")
		return nil, false
	}
	var req quoteRequest
	if !rt.decodeJSON(w, r, &req) {
		return nil, false
	}
	opts, err := req.options()
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return nil, false
	}
	quote, err := rt.deps.Quotes.BuildQuote(r.Context(), req.Text, opts)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return nil, false
	}
	return quote, true
}

func (rt *Router) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, rt.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func queryInt(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeUnavailable(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": what + " is not configured"})
}

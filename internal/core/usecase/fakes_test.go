package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
)

// memoryQueue is an in-memory QueueRepository that records every status an entry passes through.
type memoryQueue struct {
	mu        sync.Mutex
	entries   map[string]*domain.QueueEntry
	order     []string
	history   map[string][]domain.QueueStatus
	claims    int
	claimErr  error
	updateErr error
}

func newMemoryQueue(entries ...domain.QueueEntry) *memoryQueue {
	q := &memoryQueue{
		entries: make(map[string]*domain.QueueEntry),
		history: make(map[string][]domain.QueueStatus),
	}
	_ = q.Enqueue(context.Background(), entries)
	return q
}

func (q *memoryQueue) Enqueue(_ context.Context, entries []domain.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range entries {
		copyEntry := entry
		if copyEntry.Status == "" {
			copyEntry.Status = domain.QueueStatusPending
		}
		q.entries[entry.ID] = &copyEntry
		q.order = append(q.order, entry.ID)
		q.history[entry.ID] = append(q.history[entry.ID], copyEntry.Status)
	}
	return nil
}

func (q *memoryQueue) ClaimPending(_ context.Context, limit int) ([]domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	q.claims++
	out := make([]domain.QueueEntry, 0, limit)
	for _, id := range q.order {
		if len(out) == limit {
			break
		}
		entry, ok := q.entries[id]
		if !ok || entry.Status != domain.QueueStatusPending {
			continue
		}
		entry.Status = domain.QueueStatusProcessing
		entry.UpdatedAt = time.Now().UTC()
		q.history[id] = append(q.history[id], entry.Status)
		out = append(out, *entry)
	}
	return out, nil
}

func (q *memoryQueue) Update(_ context.Context, id string, upd domain.QueueUpdate) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.updateErr != nil {
		return q.updateErr
	}
	entry, ok := q.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	updated := entry.Apply(upd, time.Now())
	q.entries[id] = &updated
	if upd.Status != nil {
		q.history[id] = append(q.history[id], *upd.Status)
	}
	return nil
}

func (q *memoryQueue) GetByID(_ context.Context, id string) (*domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	copyEntry := *entry
	return &copyEntry, nil
}

func (q *memoryQueue) List(_ context.Context, filter domain.QueueFilter) ([]domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.QueueEntry, 0)
	for _, id := range q.order {
		entry, ok := q.entries[id]
		if !ok || !statusIn(entry.Status, filter.Statuses) {
			continue
		}
		if filter.BatchID != "" && entry.BatchID != filter.BatchID {
			continue
		}
		out = append(out, *entry)
	}
	return out, nil
}

func (q *memoryQueue) Counts(context.Context) (domain.QueueCounts, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var counts domain.QueueCounts
	for _, entry := range q.entries {
		counts.Add(entry.Status, 1)
	}
	return counts, nil
}

func (q *memoryQueue) Clear(_ context.Context, statuses []domain.QueueStatus) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var removed int64
	for id, entry := range q.entries {
		if statusIn(entry.Status, statuses) {
			delete(q.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (q *memoryQueue) ReleaseStale(_ context.Context, olderThan time.Duration, maxRetries int) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var released int64
	for id, entry := range q.entries {
		if entry.Status == domain.QueueStatusProcessing && entry.UpdatedAt.Before(cutoff) {
			entry.RetryCount++
			entry.Status = domain.QueueStatusPending
			if entry.RetryCount >= maxRetries {
				entry.RetryCount = maxRetries
				entry.Status = domain.QueueStatusFailed
			}
			q.history[id] = append(q.history[id], entry.Status)
			released++
		}
	}
	return released, nil
}

func (q *memoryQueue) statusHistory(id string) []domain.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.QueueStatus(nil), q.history[id]...)
}

func statusIn(status domain.QueueStatus, statuses []domain.QueueStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

type catalogFake struct {
	mu      sync.Mutex
	upserts []domain.PartUpsert
	parts   map[string]domain.Part
	err     error
}

func newCatalogFake() *catalogFake {
	return &catalogFake{parts: make(map[string]domain.Part)}
}

func (f *catalogFake) Upsert(_ context.Context, upd domain.PartUpsert) (*domain.Part, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.upserts = append(f.upserts, upd)
	part := f.parts[upd.PartNumber]
	part.PartNumber = upd.PartNumber
	if upd.Description != nil {
		part.Description = *upd.Description
	}
	if upd.Brand != nil {
		part.Brand = *upd.Brand
	}
	if upd.ImageURL != nil {
		part.ImageURL = *upd.ImageURL
	}
	if upd.CompatibleVehicles != nil {
		part.CompatibleVehicles = upd.CompatibleVehicles
	}
	if upd.InterchangeableParts != nil {
		part.InterchangeableParts = upd.InterchangeableParts
	}
	f.parts[upd.PartNumber] = part
	return &part, nil
}

func (f *catalogFake) GetByPartNumber(_ context.Context, partNumber string) (*domain.Part, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	part, ok := f.parts[partNumber]
	if !ok {
		return nil, domain.ErrPartNotFound
	}
	return &part, nil
}

func (f *catalogFake) List(_ context.Context, filter domain.PartFilter) ([]domain.Part, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Part, 0, len(f.parts))
	for _, part := range f.parts {
		if filter.Brand != "" && part.Brand != filter.Brand {
			continue
		}
		if filter.NeedsEnrichment && !part.NeedsEnrichment() {
			continue
		}
		out = append(out, part)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *catalogFake) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

type imageFinderFake struct {
	result domain.ImageLookupResult
	err    error
	panics bool
}

func (f *imageFinderFake) FindImage(_ context.Context, partNumber, _ string) (domain.ImageLookupResult, error) {
	if f.panics {
		panic("browser crashed")
	}
	if f.err != nil {
		return domain.ImageLookupResult{}, f.err
	}
	out := f.result
	out.PartNumber = partNumber
	return out, nil
}

type enricherFake struct {
	enrichment domain.PartEnrichment
	err        error
}

func (f *enricherFake) Enrich(_ context.Context, req domain.EnrichmentRequest) (domain.PartEnrichment, error) {
	if f.err != nil {
		return domain.PartEnrichment{}, f.err
	}
	out := f.enrichment
	out.PartNumber = req.PartNumber
	return out, nil
}

func (f *enricherFake) Model() string { return "fake-model" }

type graphFake struct {
	mu           sync.Mutex
	synced       []string
	alternatives []string
	err          error
}

func (f *graphFake) SyncPart(_ context.Context, part domain.Part) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, part.PartNumber)
	return f.err
}

func (f *graphFake) Interchangeable(context.Context, string) ([]string, error) {
	return f.alternatives, f.err
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.QueueEvent
}

func (f *publisherFake) PublishEvent(_ context.Context, event domain.QueueEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *publisherFake) ofType(kind domain.QueueEventType) []domain.QueueEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.QueueEvent, 0)
	for _, event := range f.events {
		if event.Type == kind {
			out = append(out, event)
		}
	}
	return out
}

type controllerFake struct {
	starts int
	pauses int
	state  domain.OrchestratorState
	err    error
}

func (f *controllerFake) Start(context.Context) error {
	f.starts++
	return f.err
}

func (f *controllerFake) Pause(context.Context) error {
	f.pauses++
	return f.err
}

func (f *controllerFake) State() domain.OrchestratorState { return f.state }

type storageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, body io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.savedBody)), nil
}

type batchRepoFake struct {
	batches   []domain.ImportBatch
	createErr error
	lastLimit int
}

func (f *batchRepoFake) Create(_ context.Context, batch domain.ImportBatch) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.batches = append(f.batches, batch)
	return nil
}

func (f *batchRepoFake) GetByID(_ context.Context, id string) (*domain.ImportBatch, error) {
	for _, batch := range f.batches {
		if batch.ID == id {
			out := batch
			return &out, nil
		}
	}
	return nil, domain.WrapError(domain.ErrImportNotFound, "get import batch", errors.New(id))
}

func (f *batchRepoFake) List(_ context.Context, limit int) ([]domain.ImportBatch, error) {
	f.lastLimit = limit
	return append([]domain.ImportBatch(nil), f.batches...), nil
}

type textExtractorFake struct {
	text string
	err  error
}

func (f *textExtractorFake) Extract(context.Context, string, string, io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type controlBusFake struct {
	sent []domain.ControlCommand
	err  error
}

func (f *controlBusFake) PublishControl(_ context.Context, cmd domain.ControlCommand) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *controlBusFake) SubscribeControl(context.Context, func(context.Context, domain.ControlCommand) error) error {
	return errors.New("not implemented")
}

func pendingEntry(id, partNumber string) domain.QueueEntry {
	now := time.Now().UTC()
	return domain.QueueEntry{
		ID:          id,
		BatchID:     "batch-1",
		PartNumber:  partNumber,
		Description: "BOOT KIT, FR DRIVE",
		Brand:       "Toyota",
		Status:      domain.QueueStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type customerRepoFake struct {
	mu        sync.Mutex
	customers map[string]domain.Customer
	lookupErr error
}

func newCustomerRepoFake(customers ...domain.Customer) *customerRepoFake {
	f := &customerRepoFake{customers: make(map[string]domain.Customer)}
	for _, c := range customers {
		f.customers[c.ID] = c
	}
	return f
}

func (f *customerRepoFake) Create(_ context.Context, customer domain.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.customers {
		if existing.Email == customer.Email {
			return domain.WrapError(domain.ErrConflict, "create customer", fmt.Errorf("email %s", customer.Email))
		}
	}
	f.customers[customer.ID] = customer
	return nil
}

func (f *customerRepoFake) Update(_ context.Context, customer domain.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.customers[customer.ID]; !ok {
		return domain.ErrCustomerNotFound
	}
	f.customers[customer.ID] = customer
	return nil
}

func (f *customerRepoFake) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	customer, ok := f.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &customer, nil
}

func (f *customerRepoFake) GetByCode(_ context.Context, code string) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, customer := range f.customers {
		if customer.Code == code {
			return &customer, nil
		}
	}
	return nil, domain.ErrCustomerNotFound
}

func (f *customerRepoFake) List(_ context.Context, filter domain.CustomerFilter) ([]domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Customer, 0, len(f.customers))
	for _, customer := range f.customers {
		if filter.Search == "" || strings.Contains(strings.ToLower(customer.Name), strings.ToLower(filter.Search)) {
			out = append(out, customer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
	QueueStatusIncomplete QueueStatus = "incomplete"
)

// DefaultMaxRetries bounds processing attempts before an entry is parked as failed.
const DefaultMaxRetries = 3

func AllQueueStatuses() []QueueStatus {
	return []QueueStatus{
		QueueStatusPending,
		QueueStatusProcessing,
		QueueStatusCompleted,
		QueueStatusFailed,
		QueueStatusIncomplete,
	}
}

func ParseQueueStatus(raw string) (QueueStatus, error) {
	status := QueueStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown queue status %q", ErrInvalidInput, raw)
	}
	return status, nil
}

func (s QueueStatus) IsValid() bool {
	switch s {
	case QueueStatusPending, QueueStatusProcessing, QueueStatusCompleted, QueueStatusFailed, QueueStatusIncomplete:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the orchestrator will never pick the entry up again on its own.
func (s QueueStatus) IsTerminal() bool {
	return s == QueueStatusCompleted || s == QueueStatusFailed || s == QueueStatusIncomplete
}

// CanTransition encodes the queue lifecycle:
//
//	pending -> processing -> completed | incomplete | failed | pending (retry)
//	failed | incomplete -> pending (operator retry)
func CanTransition(from, to QueueStatus) bool {
	switch from {
	case QueueStatusPending:
		return to == QueueStatusProcessing
	case QueueStatusProcessing:
		return to == QueueStatusCompleted ||
			to == QueueStatusIncomplete ||
			to == QueueStatusFailed ||
			to == QueueStatusPending
	case QueueStatusFailed, QueueStatusIncomplete:
		return to == QueueStatusPending
	default:
		return false
	}
}

// CanRequeue reports whether an operator may send the entry back to pending.
// Processing entries belong to the worker that claimed them.
func CanRequeue(s QueueStatus) bool {
	return s == QueueStatusFailed || s == QueueStatusIncomplete
}

// EnrichmentDetails is the subset of an enrichment outcome kept on the queue entry.
type EnrichmentDetails struct {
	ImageURL     string       `json:"image_url,omitempty"`
	ImageQuality ImageQuality `json:"image_quality,omitempty"`
	AIFields     []string     `json:"ai_fields,omitempty"`
	AIModel      string       `json:"ai_model,omitempty"`
}

type QueueEntry struct {
	ID          string             `json:"id"`
	Seq         int64              `json:"seq"`
	BatchID     string             `json:"batch_id"`
	PartNumber  string             `json:"part_number"`
	Description string             `json:"description"`
	Brand       string             `json:"brand,omitempty"`
	Category    string             `json:"category,omitempty"`
	Status      QueueStatus        `json:"status"`
	Error       string             `json:"error,omitempty"`
	RetryCount  int                `json:"retry_count"`
	Details     *EnrichmentDetails `json:"details,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// QueueUpdate is a partial update; nil fields are left untouched.
type QueueUpdate struct {
	Status      *QueueStatus
	Error       *string
	RetryCount  *int
	Details     *EnrichmentDetails
	CompletedAt *time.Time
}

type QueueFilter struct {
	Statuses []QueueStatus
	BatchID  string
	Limit    int
}

type QueueCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Incomplete int `json:"incomplete"`
	Total      int `json:"total"`
}

func (c *QueueCounts) Add(status QueueStatus, n int) {
	switch status {
	case QueueStatusPending:
		c.Pending += n
	case QueueStatusProcessing:
		c.Processing += n
	case QueueStatusCompleted:
		c.Completed += n
	case QueueStatusFailed:
		c.Failed += n
	case QueueStatusIncomplete:
		c.Incomplete += n
	default:
		return
	}
	c.Total += n
}

type QueueSnapshot struct {
	Entries      []QueueEntry      `json:"entries"`
	Counts       QueueCounts       `json:"counts"`
	Orchestrator OrchestratorState `json:"orchestrator"`
}

type ClearScope string

const (
	ClearCompleted ClearScope = "completed"
	ClearAll       ClearScope = "all"
)

// EnrichmentResult is what one processing attempt produced before it is folded into the queue.
type EnrichmentResult struct {
	Image      ImageLookupResult
	Enrichment PartEnrichment
	Model      string
}

func (r EnrichmentResult) HasImage() bool {
	return r.Image.Found && strings.TrimSpace(r.Image.ImageURL) != ""
}

func (r EnrichmentResult) HasVehicles() bool {
	return len(r.Enrichment.CompatibleVehicles) > 0
}

// AIFields names the enrichment fields the model actually filled.
func (r EnrichmentResult) AIFields() []string {
	fields := make([]string, 0, 4)
	if r.HasVehicles() {
		fields = append(fields, "Compatible Vehicles")
	}
	if len(r.Enrichment.Specifications) > 0 {
		fields = append(fields, "Specifications")
	}
	if len(r.Enrichment.InterchangeableParts) > 0 {
		fields = append(fields, "Interchange")
	}
	if r.Enrichment.OEMStatus != "" && r.Enrichment.OEMStatus != OEMStatusUnknown {
		fields = append(fields, "OEM Status")
	}
	return fields
}

func (r EnrichmentResult) Details() *EnrichmentDetails {
	details := &EnrichmentDetails{
		AIFields: r.AIFields(),
		AIModel:  r.Model,
	}
	if r.HasImage() {
		details.ImageURL = r.Image.ImageURL
		details.ImageQuality = r.Image.Quality
	}
	return details
}

// MissingSummary lists what kept the result from being complete, empty when nothing is missing.
func (r EnrichmentResult) MissingSummary() string {
	missing := make([]string, 0, 2)
	if !r.HasImage() {
		missing = append(missing, "image")
	}
	if !r.HasVehicles() {
		missing = append(missing, "vehicle info")
	}
	if len(missing) == 0 {
		return ""
	}
	return "Missing: " + strings.Join(missing, ", ")
}

// Resolve computes the update that moves a processing entry to its next status.
// A non-nil procErr is a transient failure: the entry goes back to pending until
// maxRetries attempts have failed, then it is parked as failed.
func Resolve(entry QueueEntry, result *EnrichmentResult, procErr error, maxRetries int, now time.Time) QueueUpdate {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var upd QueueUpdate
	if result != nil {
		upd.Details = result.Details()
	}

	if procErr != nil {
		retries := entry.RetryCount + 1
		if retries > maxRetries {
			retries = maxRetries
		}
		upd.RetryCount = &retries

		if retries < maxRetries {
			status := QueueStatusPending
			msg := fmt.Sprintf("Retry %d/%d", retries, maxRetries)
			upd.Status = &status
			upd.Error = &msg
			return upd
		}

		status := QueueStatusFailed
		msg := procErr.Error()
		upd.Status = &status
		upd.Error = &msg
		return upd
	}

	if result == nil {
		result = &EnrichmentResult{}
		upd.Details = result.Details()
	}

	if missing := result.MissingSummary(); missing != "" {
		status := QueueStatusIncomplete
		upd.Status = &status
		upd.Error = &missing
		return upd
	}

	status := QueueStatusCompleted
	cleared := ""
	completedAt := now.UTC()
	upd.Status = &status
	upd.Error = &cleared
	upd.CompletedAt = &completedAt
	return upd
}

// Apply folds an update into an in-memory entry.
func (e QueueEntry) Apply(upd QueueUpdate, now time.Time) QueueEntry {
	out := e
	if upd.Status != nil {
		out.Status = *upd.Status
	}
	if upd.Error != nil {
		out.Error = *upd.Error
	}
	if upd.RetryCount != nil {
		out.RetryCount = *upd.RetryCount
	}
	if upd.Details != nil {
		details := *upd.Details
		out.Details = &details
	}
	if upd.CompletedAt != nil {
		completedAt := *upd.CompletedAt
		out.CompletedAt = &completedAt
	}
	out.UpdatedAt = now.UTC()
	return out
}

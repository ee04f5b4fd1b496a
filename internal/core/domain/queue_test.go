package domain

import (
	"errors"
	"testing"
	"time"
)

func TestResolveCompletedWhenImageAndVehiclesPresent(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	entry := QueueEntry{ID: "e1", PartNumber: "04427-42180", Status: QueueStatusProcessing}
	result := &EnrichmentResult{
		Image: ImageLookupResult{Found: true, ImageURL: "https://img.example/p.jpg", Quality: ImageQualityMedium},
		Enrichment: PartEnrichment{
			CompatibleVehicles: []VehicleCompatibility{{Make: "Toyota", Model: "RAV4"}},
			OEMStatus:          OEMStatusOEM,
		},
		Model: "test-model",
	}

	upd := Resolve(entry, result, nil, 3, now)
	if upd.Status == nil || *upd.Status != QueueStatusCompleted {
		t.Fatalf("expected completed, got %+v", upd.Status)
	}
	if upd.CompletedAt == nil || !upd.CompletedAt.Equal(now) {
		t.Fatalf("expected completed_at %v, got %v", now, upd.CompletedAt)
	}
	if upd.Error == nil || *upd.Error != "" {
		t.Fatalf("expected error to be cleared, got %v", upd.Error)
	}
	if upd.Details == nil || upd.Details.ImageURL != "https://img.example/p.jpg" {
		t.Fatalf("expected image url in details, got %+v", upd.Details)
	}
	if len(upd.Details.AIFields) != 2 || upd.Details.AIFields[0] != "Compatible Vehicles" || upd.Details.AIFields[1] != "OEM Status" {
		t.Fatalf("unexpected ai fields: %v", upd.Details.AIFields)
	}
}

func TestResolveIncompleteNamesMissingParts(t *testing.T) {
	tests := []struct {
		name   string
		result EnrichmentResult
		want   string
	}{
		{
			name:   "nothing found",
			result: EnrichmentResult{},
			want:   "Missing: image, vehicle info",
		},
		{
			name: "image only",
			result: EnrichmentResult{
				Image: ImageLookupResult{Found: true, ImageURL: "https://img.example/p.jpg"},
			},
			want: "Missing: vehicle info",
		},
		{
			name: "vehicles only",
			result: EnrichmentResult{
				Enrichment: PartEnrichment{CompatibleVehicles: []VehicleCompatibility{{Make: "Honda", Model: "Civic"}}},
			},
			want: "Missing: image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.result
			upd := Resolve(QueueEntry{ID: "e1"}, &result, nil, 3, time.Now())
			if upd.Status == nil || *upd.Status != QueueStatusIncomplete {
				t.Fatalf("expected incomplete, got %+v", upd.Status)
			}
			if upd.Error == nil || *upd.Error != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, upd.Error)
			}
			if upd.CompletedAt != nil {
				t.Fatalf("incomplete entry must not carry completed_at")
			}
		})
	}
}

func TestResolveRetriesThenFails(t *testing.T) {
	entry := QueueEntry{ID: "e1", Status: QueueStatusProcessing}
	procErr := errors.New("image lookup: connection reset")

	var statuses []QueueStatus
	var messages []string
	for attempt := 0; attempt < 3; attempt++ {
		upd := Resolve(entry, nil, procErr, 3, time.Now())
		entry = entry.Apply(upd, time.Now())
		statuses = append(statuses, entry.Status)
		messages = append(messages, entry.Error)
		if entry.Status == QueueStatusPending {
			entry.Status = QueueStatusProcessing
		}
	}

	wantStatuses := []QueueStatus{QueueStatusPending, QueueStatusPending, QueueStatusFailed}
	wantMessages := []string{"Retry 1/3", "Retry 2/3", "image lookup: connection reset"}
	for i := range wantStatuses {
		if statuses[i] != wantStatuses[i] {
			t.Fatalf("attempt %d: expected status %s, got %s", i+1, wantStatuses[i], statuses[i])
		}
		if messages[i] != wantMessages[i] {
			t.Fatalf("attempt %d: expected message %q, got %q", i+1, wantMessages[i], messages[i])
		}
	}
	if entry.RetryCount != 3 {
		t.Fatalf("expected retry count 3, got %d", entry.RetryCount)
	}
}

func TestResolveNeverExceedsMaxRetries(t *testing.T) {
	entry := QueueEntry{ID: "e1", RetryCount: 7}
	upd := Resolve(entry, nil, errors.New("boom"), 3, time.Now())
	if upd.RetryCount == nil || *upd.RetryCount != 3 {
		t.Fatalf("expected retry count clamped to 3, got %v", upd.RetryCount)
	}
	if *upd.Status != QueueStatusFailed {
		t.Fatalf("expected failed, got %s", *upd.Status)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from QueueStatus
		to   QueueStatus
		want bool
	}{
		{QueueStatusPending, QueueStatusProcessing, true},
		{QueueStatusPending, QueueStatusCompleted, false},
		{QueueStatusProcessing, QueueStatusCompleted, true},
		{QueueStatusProcessing, QueueStatusIncomplete, true},
		{QueueStatusProcessing, QueueStatusFailed, true},
		{QueueStatusProcessing, QueueStatusPending, true},
		{QueueStatusCompleted, QueueStatusPending, false},
		{QueueStatusFailed, QueueStatusPending, true},
		{QueueStatusIncomplete, QueueStatusPending, true},
		{QueueStatusFailed, QueueStatusProcessing, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanRequeue(t *testing.T) {
	for _, status := range AllQueueStatuses() {
		want := status == QueueStatusFailed || status == QueueStatusIncomplete
		if got := CanRequeue(status); got != want {
			t.Fatalf("CanRequeue(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestQueueCountsAdd(t *testing.T) {
	var counts QueueCounts
	counts.Add(QueueStatusPending, 2)
	counts.Add(QueueStatusFailed, 1)
	counts.Add(QueueStatus("bogus"), 5)

	if counts.Pending != 2 || counts.Failed != 1 || counts.Total != 3 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

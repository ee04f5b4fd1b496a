package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dakshin/partsquote/internal/core/domain"
)

func messageReply(text string) []byte {
	raw, _ := json.Marshal(map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         DefaultModel,
		"stop_reason":   "end_turn",
		"content":       []map[string]any{{"type": "text", "text": text}},
		"usage":         map[string]int{"input_tokens": 10, "output_tokens": 20},
		"stop_sequence": nil,
	})
	return raw
}

func TestEnrichDecodesMessageText(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(messageReply(`{"partNumber":"MR123456","fullDescription":"Disc brake pad kit","compatibleVehicles":[{"make":"Mitsubishi","model":"Pajero"}],"oemStatus":"Aftermarket"}`))
	}))
	defer server.Close()

	client := New(Options{APIKey: "test", BaseURL: server.URL})
	got, err := client.Enrich(context.Background(), domain.EnrichmentRequest{PartNumber: "MR123456", Description: "PAD KIT"})
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if got.OEMStatus != domain.OEMStatusAftermarket || len(got.CompatibleVehicles) != 1 {
		t.Fatalf("unexpected enrichment: %+v", got)
	}
	if captured["model"] != DefaultModel {
		t.Fatalf("unexpected model in request: %v", captured["model"])
	}
}

func TestEnrichMapsOverloadToTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	_, err := New(Options{APIKey: "test", BaseURL: server.URL}).Enrich(context.Background(), domain.EnrichmentRequest{PartNumber: "MR123456"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range tests {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewWritesServiceAndMillis(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "worker", "info")

	logger.Debug("hidden")
	logger.Info("enrichment_entry_completed", "elapsed", 1500*time.Millisecond)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v (%s)", err, buf.String())
	}
	if record["service"] != "worker" || record["msg"] != "enrichment_entry_completed" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["elapsed"] != float64(1500) {
		t.Fatalf("expected duration in ms, got %v", record["elapsed"])
	}
}

package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"opschart/pkg/domain"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "create_function", true, 20*time.Millisecond)
	rec.Observe(ctx, "create_function", true, 30*time.Millisecond)
	rec.Observe(ctx, "create_function", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	if got := snap.DurationsMS["create_function"]; got != 55 {
		t.Fatalf("durations = %v, want 55", got)
	}
	if snap.Results["create_function"]["success"] != 2 {
		t.Fatalf("success = %d, want 2", snap.Results["create_function"]["success"])
	}
	if snap.Results["create_function"]["error"] != 1 {
		t.Fatalf("error = %d, want 1", snap.Results["create_function"]["error"])
	}
	if len(snap.DurationsMS) != 1 {
		t.Fatalf("empty operation name was recorded")
	}
	if rec.Name() == "" {
		t.Fatalf("generated name is empty")
	}
}

func TestJSONTracerEmitsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := NewInMemoryService(nil, WithTracer(tracer))

	if _, _, err := svc.CreateFunction(context.Background(), domain.Function{Name: "Sales"}); err != nil {
		t.Fatalf("create function: %v", err)
	}
	if _, _, err := svc.CreateFunction(context.Background(), domain.Function{}); err == nil {
		t.Fatalf("expected validation error")
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Status != "success" || entries[1].Status != "error" {
		t.Fatalf("statuses = %q,%q", entries[0].Status, entries[1].Status)
	}
	if entries[1].Error == "" {
		t.Fatalf("error span has no message")
	}

	dec := json.NewDecoder(&buf)
	var lines int
	for dec.More() {
		var entry JSONTraceEntry
		if err := dec.Decode(&entry); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("json lines = %d, want 2", lines)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(registry)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	rec.Observe(context.Background(), "create_role", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "create_role", false, 10*time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sawCounter, sawHistogram bool
	for _, mf := range families {
		switch mf.GetName() {
		case "opschart_service_operations_total":
			sawCounter = true
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			if total != 2 {
				t.Fatalf("operations_total = %v, want 2", total)
			}
		case "opschart_service_operation_duration_seconds":
			sawHistogram = true
		}
	}
	if !sawCounter || !sawHistogram {
		t.Fatalf("collectors missing: counter=%v histogram=%v", sawCounter, sawHistogram)
	}

	// Registering the same collectors twice must fail loudly.
	if _, err := NewPrometheusMetricsRecorder(registry); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
}

func TestZerologAdapterKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapter(zerolog.New(&buf))

	adapter.Info("operation committed", "operation", "create_function", 42, "odd-key", "dangling")
	adapter.Error("operation failed", "error", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first["operation"] != "create_function" {
		t.Fatalf("operation = %v", first["operation"])
	}
	if first["arg"] == nil {
		t.Fatalf("non-string key and trailing value not captured")
	}
	if !strings.Contains(lines[1], "boom") {
		t.Fatalf("error line = %s", lines[1])
	}
}

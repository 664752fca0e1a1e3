package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc := NewInMemoryService(nil, WithMetricsRecorder(rec))
	establish(t, svc)
	if _, _, err := svc.EnhanceDensity(context.Background(), 1, 150); err == nil {
		t.Fatalf("expected density error")
	}
	rec.Observe(context.Background(), "", true, time.Second)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpEstablishNetwork, "success")); got != 1 {
		t.Fatalf("expected one establish success, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpEnhanceDensity, "error")); got != 1 {
		t.Fatalf("expected one density error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.latency); n != 2 {
		t.Fatalf("expected two latency series, got %d", n)
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncRecordCreated("snerberds")
	m.IncRecordCreated("snerberds")
	m.IncRecordUpdated("snowboards")
	m.IncOwnershipDenied("snowboards")
	m.IncAuthFailure("missing_key")
	m.IncRateLimited("public")

	snap := m.Snapshot()
	if snap.RecordsCreated["snerberds"] != 2 {
		t.Errorf("RecordsCreated = %d, want 2", snap.RecordsCreated["snerberds"])
	}
	if snap.RecordsUpdated["snowboards"] != 1 {
		t.Errorf("RecordsUpdated = %d, want 1", snap.RecordsUpdated["snowboards"])
	}
	if snap.RecordsDeleted["snowboards"] != 0 {
		t.Errorf("RecordsDeleted = %d, want 0", snap.RecordsDeleted["snowboards"])
	}
	if snap.OwnershipDenied["snowboards"] != 1 {
		t.Errorf("OwnershipDenied = %d, want 1", snap.OwnershipDenied["snowboards"])
	}

	if snap.RateLimited["public"] != 1 {
		t.Errorf("RateLimited = %d, want 1", snap.RateLimited["public"])
	}

	// Snapshots are copies.
	snap.AuthFailures["missing_key"] = 99
	if m.Snapshot().AuthFailures["missing_key"] != 1 {
		t.Error("snapshot should not alias recorder state")
	}
}

func TestPrometheusRecorder_Exposition(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	r, err := NewPrometheus(reg)
	if err != nil {
		t.Fatalf("NewPrometheus failed: %v", err)
	}

	r.IncRecordCreated("snerberds")
	r.IncRecordDeleted("snowboards")

	expected := `
# HELP snerberd_records_created_total Records created, by resource kind.
# TYPE snerberd_records_created_total counter
snerberd_records_created_total{kind="snerberds"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "snerberd_records_created_total"); err != nil {
		t.Errorf("unexpected exposition: %v", err)
	}

	if got := testutil.ToFloat64(r.recordsDeleted.WithLabelValues("snowboards")); got != 1 {
		t.Errorf("records_deleted_total = %v, want 1", got)
	}

	r.IncRateLimited("api")
	r.IncRateLimited("api")
	if got := testutil.ToFloat64(r.rateLimited.WithLabelValues("api")); got != 2 {
		t.Errorf("rate_limited_total{bucket=api} = %v, want 2", got)
	}
}

func TestRecorders_SatisfyInterface(t *testing.T) {
	t.Parallel()

	prom, err := NewPrometheus(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range []Recorder{NewNoop(), NewInMemory(), prom} {
		r.IncRecordCreated("snerberds")
		r.IncRecordUpdated("snerberds")
		r.IncRecordDeleted("snerberds")
		r.IncOwnershipDenied("snerberds")
		r.IncAuthFailure("invalid_key")
		r.IncRateLimited("api")
	}
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	if _, err := NewPrometheus(reg); err != nil {
		t.Fatalf("first NewPrometheus failed: %v", err)
	}
	if _, err := NewPrometheus(reg); err == nil {
		t.Error("expected error registering collectors twice")
	}
}

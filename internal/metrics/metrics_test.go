package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordQuery(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordQuery(OutcomeAnswered, 0.8, true)
	m.RecordQuery(OutcomeNoMatch, 0, false)
	m.RecordQuery(OutcomeAnswered, 0.6, false)

	if got := counterValue(t, m.QueriesTotal.WithLabelValues(OutcomeAnswered)); got != 2 {
		t.Errorf("answered = %v, want 2", got)
	}
	if got := counterValue(t, m.QueriesTotal.WithLabelValues(OutcomeNoMatch)); got != 1 {
		t.Errorf("no_match = %v, want 1", got)
	}
	if got := counterValue(t, m.ConflictsTotal); got != 1 {
		t.Errorf("conflicts = %v, want 1", got)
	}
}

func TestRecordIngest(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordIngest(4, 2)
	var g dto.Metric
	if err := m.DocumentsIndexed.Write(&g); err != nil {
		t.Fatal(err)
	}
	if g.GetGauge().GetValue() != 4 {
		t.Errorf("documents gauge = %v, want 4", g.GetGauge().GetValue())
	}
	if got := counterValue(t, m.IngestSkippedTotal); got != 2 {
		t.Errorf("skipped = %v, want 2", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordHTTPRequest("/run", "200", 5*time.Millisecond)
	if got := counterValue(t, m.HTTPRequestsTotal.WithLabelValues("/run", "200")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}

func TestNilRegistererDoesNotPanic(t *testing.T) {
	m := New(nil)
	m.RecordQuery(OutcomeError, 0, false)
}

func TestRegistersOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	// Only gauges and plain counters are reported before any observation.
	found := false
	for _, f := range families {
		if f.GetName() == "policyrag_documents_indexed" {
			found = true
		}
	}
	if !found {
		t.Errorf("policyrag_documents_indexed not registered")
	}
}

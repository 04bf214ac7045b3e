package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"nxqueue/internal/metrics"
)

func TestRecordersUpdateRegistry(t *testing.T) {
	m := metrics.New()
	m.RecordSubmission("jobs", metrics.OutcomeAccepted)
	m.RecordSubmission("jobs", metrics.OutcomeAccepted)
	m.RecordExecution("jobs", metrics.ResultError)
	m.RecordPurge("jobs", 3)
	m.ObserveLockWait("jobs", 5*time.Millisecond)

	count, err := testutil.GatherAndCount(m.Registry(), "nxqueue_queue_submissions_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one submissions series, got %d", count)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`nxqueue_queue_submissions_total{outcome="accepted",queue="jobs"} 2`,
		`nxqueue_queue_purged_items_total{queue="jobs"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.RecordSubmission("q", metrics.OutcomeAccepted)
	m.RecordExecution("q", metrics.ResultSuccess)
	m.RecordPurge("q", 1)
	m.ObserveLockWait("q", time.Second)
	m.ObserveHTTP("GET", "/", 200, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

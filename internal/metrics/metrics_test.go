package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/admin/results/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	for _, id := range []string{"7", "8"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/admin/results/"+id, nil))
	}

	got := testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/api/admin/results/{id}", "404"))
	if got != 2 {
		t.Fatalf("counter=%v want 2", got)
	}
}

func TestObserveSubmission(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, reg)

	m.ObserveSubmission(1, 2)
	m.ObserveSubmission(0, 0)
	m.SubmissionFailed()

	if v := testutil.ToFloat64(m.Submissions.WithLabelValues("scored")); v != 1 {
		t.Errorf("scored=%v", v)
	}
	if v := testutil.ToFloat64(m.Submissions.WithLabelValues("not_auto_scored")); v != 1 {
		t.Errorf("not_auto_scored=%v", v)
	}
	if v := testutil.ToFloat64(m.Submissions.WithLabelValues("failed")); v != 1 {
		t.Errorf("failed=%v", v)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "exam_submission_score_ratio") {
		t.Errorf("metrics output misses score ratio histogram")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSubmission(1, 1)
	m.SubmissionFailed()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

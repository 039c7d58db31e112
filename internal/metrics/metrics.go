package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Submissions     *prometheus.CounterVec
	ScoreRatio      prometheus.Histogram

	gatherer prometheus.Gatherer
}

func New(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_submissions_total",
				Help: "Result submissions by outcome",
			},
			[]string{"outcome"},
		),
		ScoreRatio: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "exam_submission_score_ratio",
				Help:    "score/max_score of auto-scored submissions",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		gatherer: g,
	}
	reg.MustRegister(m.RequestCounter, m.RequestDuration, m.Submissions, m.ScoreRatio)
	return m
}

// Middleware records count and latency keyed by the chi route pattern, so
// /api/admin/results/7 and /api/admin/results/8 share one series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// ObserveSubmission records a successful submission. All-theory submissions
// (maxScore 0) are counted but have no ratio.
func (m *Metrics) ObserveSubmission(score, maxScore int) {
	if m == nil {
		return
	}
	if maxScore == 0 {
		m.Submissions.WithLabelValues("not_auto_scored").Inc()
		return
	}
	m.Submissions.WithLabelValues("scored").Inc()
	m.ScoreRatio.Observe(float64(score) / float64(maxScore))
}

func (m *Metrics) SubmissionFailed() {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues("failed").Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

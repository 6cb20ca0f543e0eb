// Package metrics exposes Prometheus collectors for the HTTP surface and the
// chore workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chorequest"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"route"})

	saves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "saves_total",
		Help:      "Document writes by result.",
	}, []string{"result"})

	saveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "save_duration_seconds",
		Help:      "Duration of document writes.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	completions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chores",
		Name:      "completions_total",
		Help:      "Chores checked off by kids.",
	}, []string{"kid"})

	verifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chores",
		Name:      "verifications_total",
		Help:      "Parent verifications by outcome.",
	}, []string{"kid", "outcome"})

	adjustments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "points",
		Name:      "adjustments_total",
		Help:      "Manual point adjustments by direction.",
	}, []string{"kid", "direction"})

	baselines = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "points",
		Name:      "baselines_reached_total",
		Help:      "Weekly baselines reached through verification.",
	}, []string{"kid"})

	spins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "wheel",
		Name:      "spins_total",
		Help:      "Prize wheel spins.",
	}, []string{"kid"})

	weekResets = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "week",
		Name:      "resets_total",
		Help:      "Weekly rollovers applied.",
	})

	pushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "push",
		Name:      "notifications_total",
		Help:      "Web push deliveries by result.",
	}, []string{"result"})

	archives = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "archive",
		Name:      "uploads_total",
		Help:      "Weekly archive uploads by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		saves,
		saveDuration,
		completions,
		verifications,
		adjustments,
		baselines,
		spins,
		weekResets,
		pushes,
		archives,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RegisterGauge adds a gauge whose value is read at scrape time.
func RegisterGauge(subsystem, name, help string, fn func() float64) {
	Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

// InstrumentHandler records request counts and latency. Routes are labelled
// by their mux pattern so path values don't explode the label space.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func RecordSave(d time.Duration, err error) {
	saveDuration.Observe(d.Seconds())
	saves.WithLabelValues(result(err)).Inc()
}

func RecordCompletion(kid string) { completions.WithLabelValues(kid).Inc() }

func RecordVerification(kid string, approved bool) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	verifications.WithLabelValues(kid, outcome).Inc()
}

func RecordAdjustment(kid string, amount int) {
	direction := "bonus"
	if amount < 0 {
		direction = "deduction"
	}
	adjustments.WithLabelValues(kid, direction).Inc()
}

func RecordBaseline(kid string) { baselines.WithLabelValues(kid).Inc() }

func RecordSpin(kid string) { spins.WithLabelValues(kid).Inc() }

func RecordWeekReset() { weekResets.Inc() }

func RecordPush(err error) { pushes.WithLabelValues(result(err)).Inc() }

func RecordArchive(err error) { archives.WithLabelValues(result(err)).Inc() }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which the
// websocket upgrade needs.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

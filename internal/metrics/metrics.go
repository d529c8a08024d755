package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	oeeCalculations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oee_calculations_total",
			Help: "Daily OEE calculations by outcome.",
		},
		[]string{"status"},
	)
	oeeCalculationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oee_calculation_duration_seconds",
			Help:    "Duration of one machine/day calculation.",
			Buckets: prometheus.DefBuckets,
		},
	)
	formulaFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oee_formula_failures_total",
			Help: "Custom formula evaluations that fell back to zero.",
		},
		[]string{"metric"},
	)
	alertsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oee_alerts_triggered_total",
			Help: "Alerts triggered by rule type.",
		},
		[]string{"type"},
	)
	alertsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oee_alerts_resolved_total",
			Help: "Alerts auto-resolved by rule type.",
		},
		[]string{"type"},
	)
	alertTickLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oee_alert_tick_duration_seconds",
			Help:    "Duration of one alert evaluation tick.",
			Buckets: prometheus.DefBuckets,
		},
	)
	unitFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oee_unit_conversion_fallbacks_total",
			Help: "Conversions of unknown unit codes that used the identity factor.",
		},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpLatency, oeeCalculations, oeeCalculationLatency,
			formulaFailures, alertsTriggered, alertsResolved, alertTickLatency, unitFallbacks)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count and latency labelled by the chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := strconv.Itoa(lrw.statusCode)
		httpRequests.WithLabelValues(r.Method, route, status).Inc()
		httpLatency.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

func ObserveCalculation(d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	oeeCalculations.WithLabelValues(status).Inc()
	oeeCalculationLatency.Observe(d.Seconds())
}

func IncFormulaFailure(metric string) {
	formulaFailures.WithLabelValues(metric).Inc()
}

func IncAlertTriggered(ruleType string) {
	alertsTriggered.WithLabelValues(ruleType).Inc()
}

func IncAlertResolved(ruleType string) {
	alertsResolved.WithLabelValues(ruleType).Inc()
}

func ObserveAlertTick(d time.Duration) {
	alertTickLatency.Observe(d.Seconds())
}

func IncUnitFallback() {
	unitFallbacks.Inc()
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Unwrap lets http.ResponseController reach the server's writer for deadlines and flushing.
func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

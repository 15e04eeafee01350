package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	syncPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_pages_fetched_total",
			Help: "Total number of pages fetched from external sources",
		},
		[]string{"source"},
	)

	syncRecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_upserted_total",
			Help: "Total number of records persisted from external sources",
		},
		[]string{"source"},
	)

	crmWriteBacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_writebacks_total",
			Help: "Total number of CRM lead write-backs",
		},
		[]string{"outcome"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordPagesFetched(source string, count int) {
	syncPagesFetched.WithLabelValues(source).Add(float64(count))
}

func RecordRecordsUpserted(source string, count int) {
	syncRecordsUpserted.WithLabelValues(source).Add(float64(count))
}

func RecordCRMWriteBack(outcome string) {
	crmWriteBacks.WithLabelValues(outcome).Inc()
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}

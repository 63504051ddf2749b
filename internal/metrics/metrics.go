package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipgate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipgate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)

	ServiceabilityChecksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipgate_serviceability_checks_total",
			Help: "Total number of serviceability checks issued upstream",
		},
	)

	SlotQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipgate_slot_queries_total",
			Help: "Total number of delivery slot queries",
		},
	)

	RateQuotesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipgate_rate_quotes_total",
			Help: "Total number of shipping rate calculations",
		},
	)

	TrackingLookupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipgate_tracking_lookups_total",
			Help: "Total number of shipment tracking lookups",
		},
	)

	ShipmentUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipgate_shipment_updates_total",
			Help: "Total number of shipment.updated messages consumed",
		},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ServiceabilityChecksTotal,
		SlotQueriesTotal,
		RateQuotesTotal,
		TrackingLookupsTotal,
		ShipmentUpdatesTotal,
	)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration per handler name.
func Middleware(handler string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		HTTPRequestsTotal.WithLabelValues(handler, r.Method, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(handler, r.Method).Observe(time.Since(start).Seconds())
	})
}

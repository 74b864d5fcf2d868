package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	appointmentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointment_transitions_total",
			Help: "Committed appointment status transitions",
		},
		[]string{"from", "to"},
	)

	allocationConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_conflicts_total",
			Help: "Admission and bed requests rejected by an allocation invariant",
		},
		[]string{"reason"},
	)

	sweepMissedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missed_consultations_total",
			Help: "Appointments moved to MISSED by the sweep",
		},
		[]string{"party"},
	)

	sweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missed_consultation_sweeps_total",
			Help: "Missed-consultation sweep runs by outcome",
		},
		[]string{"outcome"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "missed_consultation_sweep_duration_seconds",
			Help:    "Duration of missed-consultation sweep runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notification rows written",
		},
		[]string{"type"},
	)

	emailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_total",
			Help: "Outbound email attempts by result",
		},
		[]string{"status"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordTransition(from, to string) {
	appointmentTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordAllocationConflict takes the apperr code of the rejected request.
func RecordAllocationConflict(reason string) {
	allocationConflictsTotal.WithLabelValues(reason).Inc()
}

func RecordMissed(party string, n int) {
	if n > 0 {
		sweepMissedTotal.WithLabelValues(party).Add(float64(n))
	}
}

func RecordSweep(outcome string, duration time.Duration) {
	sweepRunsTotal.WithLabelValues(outcome).Inc()
	sweepDuration.Observe(duration.Seconds())
}

func RecordNotification(kind string) {
	notificationsTotal.WithLabelValues(kind).Inc()
}

func RecordEmail(status string) {
	emailsTotal.WithLabelValues(status).Inc()
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pediclinic"

var (
	once sync.Once

	sessionsBooked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_booked_total",
			Help:      "Count of sessions persisted, by origin (single or recurring).",
		},
		[]string{"origin"},
	)

	sessionsRescheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_rescheduled_total",
			Help:      "Count of sessions moved to another slot.",
		},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Count of rejected placements, by operation and reason.",
		},
		[]string{"operation", "reason"},
	)

	seriesSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recurring_series_size",
			Help:      "Number of sessions created per recurring series.",
			Buckets:   []float64{1, 2, 4, 8, 12, 16, 26, 52},
		},
	)

	lockWaits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_lock_total",
			Help:      "Slot lock acquisitions by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(sessionsBooked, sessionsRescheduled, bookingConflicts, seriesSize, lockWaits, httpRequests)
	})
}

func IncSessionsBooked(origin string, n int) {
	sessionsBooked.WithLabelValues(origin).Add(float64(n))
}

func IncRescheduled() {
	sessionsRescheduled.Inc()
}

func IncConflict(operation, reason string) {
	bookingConflicts.WithLabelValues(operation, reason).Inc()
}

func ObserveSeriesSize(n int) {
	seriesSize.Observe(float64(n))
}

func IncLock(result string) {
	lockWaits.WithLabelValues(result).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

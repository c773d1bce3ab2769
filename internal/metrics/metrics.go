package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "boat_availability"

var (
	once sync.Once

	slotQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_queries_total",
			Help:      "Count of slot queries by operation and result.",
		},
		[]string{"operation", "result"},
	)

	endSlotRun = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "end_slot_run_length",
			Help:      "Number of end slots offered for a start time.",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 24},
		},
	)

	occupancyWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "occupancy_writes_total",
			Help:      "Count of occupancy writes by operation and result.",
		},
		[]string{"operation", "result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API latency by endpoint.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2, 5},
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(slotQueries, endSlotRun, occupancyWrites, httpRequests, httpDuration)
	})
}

func IncSlotQuery(operation, result string) {
	slotQueries.WithLabelValues(operation, result).Inc()
}

func ObserveEndSlotRun(n int) {
	endSlotRun.Observe(float64(n))
}

func IncOccupancyWrite(operation, result string) {
	occupancyWrites.WithLabelValues(operation, result).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func ObserveHTTP(endpoint string, started time.Time) {
	httpDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

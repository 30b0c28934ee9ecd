// Package observability provides Prometheus metrics for the forwarding
// engine. Tracing lives in the separate tracing package.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the DTN subsystem's Prometheus instruments.
type Metrics struct {
	BundlesTransmitted *prometheus.CounterVec
	BundlesReceived    *prometheus.CounterVec
	BundlesDropped     *prometheus.CounterVec
	QueueDepth         *prometheus.GaugeVec
	LimboDepth         prometheus.Gauge
	RoutingDecisions   *prometheus.CounterVec
	DrainWaitSeconds   prometheus.Histogram
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the process-wide metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = initializeMetrics()
	})
	return globalMetrics
}

func initializeMetrics() *Metrics {
	m := &Metrics{}

	m.BundlesTransmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cgrsat",
			Subsystem: "dtn",
			Name:      "bundles_transmitted_total",
			Help:      "Total bundles handed to the transport for sending",
		},
		[]string{"priority", "next_hop"},
	)

	m.BundlesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cgrsat",
			Subsystem: "dtn",
			Name:      "bundles_received_total",
			Help:      "Total bundles received from the transport",
		},
		[]string{"source"},
	)

	m.BundlesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cgrsat",
			Subsystem: "dtn",
			Name:      "bundles_dropped_total",
			Help:      "Total bundles dropped, by reason",
		},
		[]string{"reason"},
	)

	m.QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cgrsat",
			Subsystem: "dtn",
			Name:      "send_queue_depth",
			Help:      "Current send queue depth per priority",
		},
		[]string{"priority"},
	)

	m.LimboDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cgrsat",
			Subsystem: "dtn",
			Name:      "limbo_depth",
			Help:      "Current number of bundles held in limbo",
		},
	)

	m.RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cgrsat",
			Subsystem: "dtn",
			Name:      "routing_decisions_total",
			Help:      "Total routing outcomes, by shape (single/fanout/delivered/limbo/drop)",
		},
		[]string{"outcome"},
	)

	m.DrainWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cgrsat",
			Subsystem: "dtn",
			Name:      "drain_wait_seconds",
			Help:      "Wait hint returned by drain before the next contact opens",
			Buckets:   []float64{0, 1, 5, 10, 30, 60, 300, 900, 3600},
		},
	)

	return m
}

// Handler returns the Prometheus HTTP handler for a /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBundleSent records a successful handoff to the transport.
func RecordBundleSent(priority int, nextHop string) {
	GetMetrics().BundlesTransmitted.WithLabelValues(strconv.Itoa(priority), nextHop).Inc()
}

// RecordBundleReceived records an inbound bundle from the transport.
func RecordBundleReceived(source string) {
	GetMetrics().BundlesReceived.WithLabelValues(source).Inc()
}

// RecordBundleDropped records a drop, tagged with the reason the engine gave.
func RecordBundleDropped(reason string) {
	GetMetrics().BundlesDropped.WithLabelValues(reason).Inc()
}

// SetQueueDepth publishes the current length of one priority's send queue.
func SetQueueDepth(priority int, depth int) {
	GetMetrics().QueueDepth.WithLabelValues(strconv.Itoa(priority)).Set(float64(depth))
}

// SetLimboDepth publishes the current number of bundles held in limbo.
func SetLimboDepth(depth int) {
	GetMetrics().LimboDepth.Set(float64(depth))
}

// RecordRoutingDecision records the shape of a routeBundle outcome.
func RecordRoutingDecision(outcome string) {
	GetMetrics().RoutingDecisions.WithLabelValues(outcome).Inc()
}

// RecordDrainWait records a drain's wait hint in seconds. Every value
// passed in is observed; Node clamps the engine's idle hint (-1) to 0
// before calling, so idle drains land in the same bucket as immediate
// sends.
func RecordDrainWait(wait time.Duration) {
	GetMetrics().DrainWaitSeconds.Observe(wait.Seconds())
}

package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

type nodeMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	height     prometheus.Gauge
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	nodeMetricsOnce sync.Once
	nodeRegistry    *nodeMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record
// JSON-RPC method activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "media",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Requests rejected before dispatch, by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a JSON-RPC method. The outcome is "ok" or the
// error kind returned to the client.
func (m *moduleMetrics) Observe(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	module := moduleOf(method)
	if outcome == "" {
		outcome = "ok"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for reason.
func (m *moduleMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

func moduleOf(method string) string {
	module, _, found := strings.Cut(method, "_")
	if !found || module == "" {
		return "unknown"
	}
	return module
}

// Node returns the registry tracking sequenced state machine operations.
func Node() *nodeMetrics {
	nodeMetricsOnce.Do(func() {
		nodeRegistry = &nodeMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "node",
				Name:      "operations_total",
				Help:      "Sequenced operations segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "media",
				Subsystem: "node",
				Name:      "operation_duration_seconds",
				Help:      "Time spent executing and committing an operation.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "media",
				Subsystem: "node",
				Name:      "height",
				Help:      "Current sequencer height.",
			}),
		}
		prometheus.MustRegister(nodeRegistry.operations, nodeRegistry.latency, nodeRegistry.height)
	})
	return nodeRegistry
}

// ObserveOperation records a sequenced operation. kind is empty for
// successful operations.
func (m *nodeMetrics) ObserveOperation(op, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if kind != "" {
		outcome = kind
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// SetHeight publishes the sequencer height.
func (m *nodeMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

func toFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

package observability

import (
	"math/big"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mediachain/core/events"
	"mediachain/core/types"
)

type ledgerMetrics struct {
	transfers *prometheus.CounterVec
	volume    *prometheus.CounterVec
	approvals *prometheus.CounterVec
}

type promotionMetrics struct {
	interactions  *prometheus.CounterVec
	payouts       prometheus.Counter
	paid          prometheus.Counter
	dust          prometheus.Gauge
	dustTotal     prometheus.Counter
	activeBuckets prometheus.Histogram
	purchases     prometheus.Counter
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics

	promotionMetricsOnce sync.Once
	promotionRegistry    *promotionMetrics
)

// Ledger returns the metrics registry tracking token movements.
func Ledger() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "ledger",
				Name:      "transfers_total",
				Help:      "Committed transfers segmented by path (direct or external).",
			}, []string{"path"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "ledger",
				Name:      "transfer_volume",
				Help:      "Sum of transferred amounts in base units.",
			}, []string{"path"}),
			approvals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "ledger",
				Name:      "approvals_total",
				Help:      "Allowance updates segmented by kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(ledgerRegistry.transfers, ledgerRegistry.volume, ledgerRegistry.approvals)
	})
	return ledgerRegistry
}

// RecordTransfer counts a committed transfer on path.
func (m *ledgerMetrics) RecordTransfer(path string, amount *big.Int) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(path).Inc()
	m.volume.WithLabelValues(path).Add(toFloat(amount))
}

// RecordApproval counts an allowance update.
func (m *ledgerMetrics) RecordApproval(kind string) {
	if m == nil {
		return
	}
	m.approvals.WithLabelValues(kind).Inc()
}

// Promotions returns the metrics registry tracking campaign activity.
func Promotions() *promotionMetrics {
	promotionMetricsOnce.Do(func() {
		promotionRegistry = &promotionMetrics{
			interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "promotion",
				Name:      "interactions_total",
				Help:      "Recorded campaign interactions segmented by kind.",
			}, []string{"kind"}),
			payouts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "promotion",
				Name:      "payouts_total",
				Help:      "Individual payouts made when campaigns end.",
			}),
			paid: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "promotion",
				Name:      "paid_total",
				Help:      "Sum of campaign payouts in base units.",
			}),
			dust: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "media",
				Subsystem: "promotion",
				Name:      "last_dust",
				Help:      "Rounding remainder returned to the owner by the most recently ended campaign.",
			}),
			dustTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "promotion",
				Name:      "dust_total",
				Help:      "Cumulative rounding remainder returned to campaign owners.",
			}),
			activeBuckets: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "media",
				Subsystem: "promotion",
				Name:      "active_buckets",
				Help:      "Active bucket count of ended campaigns.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			}),
			purchases: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "media",
				Subsystem: "promotion",
				Name:      "purchases_total",
				Help:      "Content purchases routed through the registry.",
			}),
		}
		prometheus.MustRegister(
			promotionRegistry.interactions,
			promotionRegistry.payouts,
			promotionRegistry.paid,
			promotionRegistry.dust,
			promotionRegistry.dustTotal,
			promotionRegistry.activeBuckets,
			promotionRegistry.purchases,
		)
	})
	return promotionRegistry
}

// RecordInteraction counts an interaction of kind.
func (m *promotionMetrics) RecordInteraction(kind string) {
	if m == nil {
		return
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = "unknown"
	}
	m.interactions.WithLabelValues(kind).Inc()
}

// RecordPayout counts a single payout.
func (m *promotionMetrics) RecordPayout(amount *big.Int) {
	if m == nil {
		return
	}
	m.payouts.Inc()
	m.paid.Add(toFloat(amount))
}

// RecordEnded publishes the settlement summary of an ended campaign.
func (m *promotionMetrics) RecordEnded(dust *big.Int, activeBuckets uint64) {
	if m == nil {
		return
	}
	value := toFloat(dust)
	m.dust.Set(value)
	m.dustTotal.Add(value)
	if activeBuckets > 0 {
		m.activeBuckets.Observe(float64(activeBuckets))
	}
}

// RecordPurchase counts a content purchase.
func (m *promotionMetrics) RecordPurchase() {
	if m == nil {
		return
	}
	m.purchases.Inc()
}

// ObserveEvent feeds a committed event into the ledger and promotion
// registries. Unknown event types are ignored.
func ObserveEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	attr := func(key string) *big.Int {
		v, ok := new(big.Int).SetString(evt.Attributes[key], 10)
		if !ok {
			return nil
		}
		return v
	}
	switch evt.Type {
	case events.TypeTransfer:
		Ledger().RecordTransfer("direct", attr("amount"))
	case events.TypeExternalTransfer:
		Ledger().RecordTransfer("external", attr("amount"))
	case events.TypeApproval:
		Ledger().RecordApproval("single")
	case events.TypeRecurrentApproval:
		Ledger().RecordApproval("recurrent")
	case events.TypePromotionInteraction:
		Promotions().RecordInteraction(evt.Attributes["kind"])
	case events.TypePromotionPayout:
		Promotions().RecordPayout(attr("amount"))
	case events.TypePromotionEnded:
		var buckets uint64
		if v := attr("activeBuckets"); v != nil && v.IsUint64() {
			buckets = v.Uint64()
		}
		Promotions().RecordEnded(attr("dust"), buckets)
	case events.TypeContentPurchased:
		Promotions().RecordPurchase()
	}
}

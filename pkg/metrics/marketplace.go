package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics records transaction-core counters and latencies.
type MarketplaceMetrics struct {
	reserveDuration *prometheus.HistogramVec
	reserveOutcome  *prometheus.CounterVec
	saleOutcome     *prometheus.CounterVec
	outboxPublished prometheus.Counter
	outboxFailures  prometheus.Counter
}

// NewMarketplaceMetrics registers the marketplace metrics on the provided registerer.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	reserveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reserve_duration_seconds",
		Help:    "Duration of purchase-request reservations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reserveOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reserve_total",
		Help: "Purchase-request reservation attempts by outcome.",
	}, []string{"outcome"})
	saleOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_resolution_total",
		Help: "Purchase-request resolutions by outcome.",
	}, []string{"outcome"})
	outboxPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events successfully published.",
	})
	outboxFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed.",
	})
	reg.MustRegister(reserveDuration, reserveOutcome, saleOutcome, outboxPublished, outboxFailures)
	return &MarketplaceMetrics{
		reserveDuration: reserveDuration,
		reserveOutcome:  reserveOutcome,
		saleOutcome:     saleOutcome,
		outboxPublished: outboxPublished,
		outboxFailures:  outboxFailures,
	}
}

// ObserveReserve records the duration and outcome of a reservation attempt.
func (m *MarketplaceMetrics) ObserveReserve(outcome string, duration time.Duration) {
	if m == nil || m.reserveDuration == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.reserveDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.reserveOutcome.WithLabelValues(label).Inc()
}

// IncSaleOutcome increments the resolution counter for the given outcome.
func (m *MarketplaceMetrics) IncSaleOutcome(outcome string) {
	if m == nil || m.saleOutcome == nil {
		return
	}
	m.saleOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncOutboxPublished increments the published event counter.
func (m *MarketplaceMetrics) IncOutboxPublished() {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.Inc()
}

// IncOutboxFailure increments the failed publish counter.
func (m *MarketplaceMetrics) IncOutboxFailure() {
	if m == nil || m.outboxFailures == nil {
		return
	}
	m.outboxFailures.Inc()
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}

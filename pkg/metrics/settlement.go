package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records settlement outcomes and the tolerated data drifts.
type SettlementMetrics struct {
	outcomes       *prometheus.CounterVec
	danglingBumps  prometheus.Counter
	amountMismatch prometheus.Counter
	duration       prometheus.Histogram
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_events_total",
		Help: "Payment events processed by the settlement engine, by outcome.",
	}, []string{"outcome"})
	dangling := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_dangling_bumps_total",
		Help: "Selected order bump ids that no longer exist on the offer.",
	})
	mismatch := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_amount_mismatch_total",
		Help: "Events whose charged amount differs from the reconstructed total.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Time spent settling one payment event.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(outcomes, dangling, mismatch, duration)
	return &SettlementMetrics{
		outcomes:       outcomes,
		danglingBumps:  dangling,
		amountMismatch: mismatch,
		duration:       duration,
	}
}

// IncOutcome counts a processed event.
func (s *SettlementMetrics) IncOutcome(outcome string) {
	if s == nil || s.outcomes == nil {
		return
	}
	s.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddDanglingBumps counts dropped bump references.
func (s *SettlementMetrics) AddDanglingBumps(n int) {
	if s == nil || s.danglingBumps == nil || n <= 0 {
		return
	}
	s.danglingBumps.Add(float64(n))
}

// IncAmountMismatch counts a charged/reconstructed disagreement.
func (s *SettlementMetrics) IncAmountMismatch() {
	if s == nil || s.amountMismatch == nil {
		return
	}
	s.amountMismatch.Inc()
}

// ObserveDuration records how long one settlement took.
func (s *SettlementMetrics) ObserveDuration(d time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records outbound integration deliveries.
type DispatchMetrics struct {
	deliveries *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_deliveries_total",
		Help: "Outbound integration deliveries, by target and outcome.",
	}, []string{"target", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_duration_seconds",
		Help:    "Duration of outbound integration deliveries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})
	reg.MustRegister(deliveries, duration)
	return &DispatchMetrics{deliveries: deliveries, duration: duration}
}

// IncDelivery counts one delivery attempt.
func (d *DispatchMetrics) IncDelivery(target, outcome string) {
	if d == nil || d.deliveries == nil {
		return
	}
	d.deliveries.WithLabelValues(normalizeLabel(target), normalizeLabel(outcome)).Inc()
}

// ObserveDuration records the delivery time for target.
func (d *DispatchMetrics) ObserveDuration(target string, duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.WithLabelValues(normalizeLabel(target)).Observe(duration.Seconds())
}

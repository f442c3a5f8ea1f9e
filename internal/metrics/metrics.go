// Package metrics exports reconciliation counters to Prometheus.
package metrics

import (
	"jackautoplug/converge"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jackautoplug"

// Metrics implements converge.Observer.
type Metrics struct {
	passes    *prometheus.CounterVec
	outcomes  *prometheus.CounterVec
	duration  prometheus.Histogram
	desired   prometheus.Gauge
	connected prometheus.Gauge
}

var _ converge.Observer = (*Metrics)(nil)

// New registers the collectors on reg.
func New(reg prometheus.Registerer, desired int) (*Metrics, error) {
	m := &Metrics{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Reconciliation passes run, by trigger.",
		}, []string{"trigger"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pair_outcomes_total",
			Help:      "Per-pair results of reconciliation passes.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a reconciliation pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		desired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "desired_pairs",
			Help:      "Number of connections jackautoplug maintains.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_pairs",
			Help:      "Desired connections present after the last pass.",
		}),
	}

	for _, c := range []prometheus.Collector{m.passes, m.outcomes, m.duration, m.desired, m.connected} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	m.desired.Set(float64(desired))
	return m, nil
}

// ObservePass records one completed pass.
func (m *Metrics) ObservePass(trigger converge.Trigger, pass converge.Pass) {
	m.passes.WithLabelValues(trigger.String()).Inc()
	for _, r := range pass.Results {
		m.outcomes.WithLabelValues(r.Outcome.String()).Inc()
	}
	m.duration.Observe(pass.Duration.Seconds())
	m.connected.Set(float64(pass.Linked()))
}

// Package metrics exposes optional Prometheus instrumentation for the
// solver loop, the same promauto idiom madpsy-ka9q_ubersdr's
// PrometheusMetrics applies to its decoder counters. A nil *Collector is a
// valid no-op so the core never requires a Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the counters/gauges the solver updates once per
// iteration.
type Collector struct {
	iterations prometheus.Counter
	amplitude  prometheus.Gauge
}

// New registers the solver's metrics against reg. Pass nil to disable
// instrumentation entirely (callers should keep the returned *Collector
// nil in that case rather than call New).
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		iterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "goptyep_iterations_total",
			Help: "Number of EP solver outer iterations completed.",
		}),
		amplitude: factory.NewGauge(prometheus.GaugeOpts{
			Name: "goptyep_amplitude_mse",
			Help: "Mean amplitude-fit squared error across measurements for the most recent iteration.",
		}),
	}
}

// ObserveIteration records one completed outer iteration with its mean
// likelihood error. Safe to call on a nil *Collector.
func (c *Collector) ObserveIteration(meanError float64) {
	if c == nil {
		return
	}
	c.iterations.Inc()
	c.amplitude.Set(meanError)
}

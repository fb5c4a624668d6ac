package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the study metrics on a private registry so that several
// studies in one process, or tests, never collide on registration.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	unitsTotal   *prometheus.CounterVec
	unitDuration prometheus.Histogram
	factorSkips  *prometheus.CounterVec
	significant  *prometheus.CounterVec
	comparisons  *prometheus.CounterVec
}

// NewCollector registers every study metric.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		unitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idstat_units_total",
			Help: "Work units processed by result",
		}, []string{"result"}),

		unitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "idstat_unit_duration_seconds",
			Help:    "Wall time of one work unit",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}),

		factorSkips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idstat_factor_skips_total",
			Help: "Factor fits skipped by factor and warning",
		}, []string{"factor", "warning"}),

		significant: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idstat_significant_effects_total",
			Help: "Significant factor effects by design variant and factor",
		}, []string{"variant", "factor"}),

		comparisons: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idstat_deviation_comparisons_total",
			Help: "Deviation comparisons by comparison kind and outcome",
		}, []string{"comparison", "outcome"}),
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// UnitFinished records one unit and its duration.
func (c *Collector) UnitFinished(failed bool, d time.Duration) {
	if c == nil {
		return
	}
	result := "completed"
	if failed {
		result = "failed"
	}
	c.unitsTotal.WithLabelValues(result).Inc()
	c.unitDuration.Observe(d.Seconds())
}

// FactorSkipped counts a skipped factor fit.
func (c *Collector) FactorSkipped(factor, warning string) {
	if c == nil {
		return
	}
	c.factorSkips.WithLabelValues(factor, warning).Inc()
}

// EffectSignificant counts a significant factor effect.
func (c *Collector) EffectSignificant(variant, factor string) {
	if c == nil {
		return
	}
	c.significant.WithLabelValues(variant, factor).Inc()
}

// Comparison counts one deviation comparison outcome: significant, ns or skipped.
func (c *Collector) Comparison(comparison, outcome string) {
	if c == nil {
		return
	}
	c.comparisons.WithLabelValues(comparison, outcome).Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}

// Package metrics provides Prometheus metrics for schema loading and
// validation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reoring/skema/registry"
)

// Rejection reasons reported by skema_schemas_rejected_total.
const (
	ReasonInvalid = "invalid"
	ReasonCompile = "compile"
)

// Collector holds all Prometheus metrics for skema.
type Collector struct {
	ValidationsTotal   *prometheus.CounterVec
	ValidationDuration prometheus.Histogram

	SchemasRegistered prometheus.Gauge
	SchemasRejected   *prometheus.CounterVec
}

// New creates a collector registered with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "skema",
				Name:      "validations_total",
				Help:      "Total number of validation calls by outcome",
			},
			[]string{"outcome"},
		),
		ValidationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "skema",
				Name:      "validation_duration_seconds",
				Help:      "Validation duration in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
		),
		SchemasRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "skema",
				Name:      "schemas_registered",
				Help:      "Number of schemas held by the registry",
			},
		),
		SchemasRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "skema",
				Name:      "schemas_rejected_total",
				Help:      "Total number of schema documents rejected at startup",
			},
			[]string{"reason"},
		),
	}
}

// ObserveValidation records one validation call.
func (c *Collector) ObserveValidation(outcome string, d time.Duration) {
	c.ValidationsTotal.WithLabelValues(outcome).Inc()
	c.ValidationDuration.Observe(d.Seconds())
}

// RecordRegistry publishes the registry counts after sealing.
func (c *Collector) RecordRegistry(s registry.Stats) {
	c.SchemasRegistered.Set(float64(s.Registered))
	c.SchemasRejected.WithLabelValues(ReasonInvalid).Add(float64(s.Rejected))
	c.SchemasRejected.WithLabelValues(ReasonCompile).Add(float64(s.Dropped))
}

package gate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Validation outcomes recorded in the result label.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Metrics tracks parameter validation performed by a Gate.
//
// Metrics:
//   - baselib_gate_validations_total: validations by family, operation and result
//   - baselib_gate_validation_duration_seconds: engine construction plus validation time
type Metrics struct {
	validationsTotal   *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers gate metrics with the provided registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "baselib",
				Subsystem: "gate",
				Name:      "validations_total",
				Help:      "Total number of operation parameter validations",
			},
			[]string{"family", "operation", "result"},
		),

		validationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "baselib",
				Subsystem: "gate",
				Name:      "validation_duration_seconds",
				Help:      "Duration of schema load and parameter validation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
			[]string{"family", "operation"},
		),
	}

	registerer.MustRegister(m.validationsTotal, m.validationDuration)

	return m
}

// RecordValidation records one validation outcome.
func (m *Metrics) RecordValidation(family, operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.validationsTotal.WithLabelValues(family, operation, result).Inc()
	m.validationDuration.WithLabelValues(family, operation).Observe(duration.Seconds())
}

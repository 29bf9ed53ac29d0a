package etl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for export runs. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	units    *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the export collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		units: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlexport_units_total",
				Help: "Export units finished, by table and status",
			},
			[]string{"table", "status"},
		),
		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlexport_rows_exported_total",
				Help: "Rows written to finalized artifacts",
			},
			[]string{"table"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlexport_unit_duration_seconds",
				Help:    "Wall time of an export unit",
				Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
			},
			[]string{"table"},
		),
	}
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	m.units.WithLabelValues(o.Table, string(o.Status)).Inc()
	m.duration.WithLabelValues(o.Table).Observe(o.Duration.Seconds())
	if o.Status == StatusSucceeded {
		m.rows.WithLabelValues(o.Table).Add(float64(o.Rows))
	}
}

// WriteTextfile writes the current values in the text exposition format, for
// node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

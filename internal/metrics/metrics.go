// Package metrics provides Prometheus metrics for dataset generation runs.
//
// classgen is a batch job, so besides the usual registry the package can dump
// the gathered metrics to a file in the Prometheus text format for the node
// exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "classgen"

// Metrics holds all Prometheus metrics for dataset generation.
type Metrics struct {
	DatasetsTotal   prometheus.Counter     // Datasets written successfully
	FailuresTotal   *prometheus.CounterVec // Failed runs by failure kind
	RowsWritten     prometheus.Counter     // Rows written across all datasets
	ExportDuration  prometheus.Histogram   // Wall time of one generate and export run
	LastSuccessTime prometheus.Gauge       // Unix time of the last successful export
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics registered with registerer (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		DatasetsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_total",
			Help:      "Total number of datasets written",
		}),
		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Total number of failed dataset runs by kind",
		}, []string{"kind"}),
		RowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Total number of dataset rows written",
		}),
		ExportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Duration of a generate and export run in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		LastSuccessTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful export",
		}),
	}
}

// WriteTextfile writes everything gathered by g to path in the Prometheus text
// exposition format. The file is replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

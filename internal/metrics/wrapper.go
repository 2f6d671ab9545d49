package metrics

import "time"

// MetricsWrapper adapts Metrics to the method set the dataset assembler reports to
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) DatasetsInc() {
	w.m.DatasetsTotal.Inc()
}

func (w *MetricsWrapper) FailuresInc(kind string) {
	w.m.FailuresTotal.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) RowsWrittenAdd(n int) {
	w.m.RowsWritten.Add(float64(n))
}

func (w *MetricsWrapper) ExportDurationObserve(seconds float64) {
	w.m.ExportDuration.Observe(seconds)
}

func (w *MetricsWrapper) LastSuccessSet(ts time.Time) {
	w.m.LastSuccessTime.Set(float64(ts.UnixNano()) / 1e9)
}

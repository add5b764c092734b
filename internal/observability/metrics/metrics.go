package metrics

import "github.com/prometheus/client_golang/prometheus"

// BuyerMetrics exposes counters for the lead CRUD and import/export flows.
type BuyerMetrics struct {
	leadsTotal    *prometheus.CounterVec
	conflictTotal prometheus.Counter
	importedRows  prometheus.Counter
	exportedRows  prometheus.Counter
	rateLimited   prometheus.Counter
}

func NewBuyerMetrics(reg prometheus.Registerer) *BuyerMetrics {
	m := &BuyerMetrics{
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buyerintake",
			Subsystem: "leads",
			Name:      "operations_total",
			Help:      "Total lead operations by kind",
		}, []string{"operation"}),
		conflictTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buyerintake",
			Subsystem: "leads",
			Name:      "update_conflicts_total",
			Help:      "Updates rejected by the concurrency check",
		}),
		importedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buyerintake",
			Subsystem: "imports",
			Name:      "rows_total",
			Help:      "Rows inserted through imports",
		}),
		exportedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buyerintake",
			Subsystem: "exports",
			Name:      "rows_total",
			Help:      "Rows written to CSV exports",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buyerintake",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadsTotal, m.conflictTotal, m.importedRows, m.exportedRows, m.rateLimited)
	return m
}

func (m *BuyerMetrics) ObserveOperation(operation string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(operation).Inc()
}

func (m *BuyerMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictTotal.Inc()
}

func (m *BuyerMetrics) ObserveImportedRows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importedRows.Add(float64(n))
}

func (m *BuyerMetrics) ObserveExportedRows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.exportedRows.Add(float64(n))
}

func (m *BuyerMetrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

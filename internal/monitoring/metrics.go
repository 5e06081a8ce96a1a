// Package monitoring exports Prometheus metrics for the lifecycle services
// and keeps catalog gauges fresh in the background.
package monitoring

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
)

var (
	// OperationsTotal counts lifecycle mutations by operation and result.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diag_operations_total",
		Help: "Lifecycle mutations by operation and result",
	}, []string{"operation", "result"})

	// ImportRows tracks rows written per structure import.
	ImportRows = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "diag_import_rows",
		Help:    "Rows imported per structure import",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
	}, []string{"sheet"})

	// HTTPDuration tracks request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "diag_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// VersionsByStatus is the catalog-wide version count by status.
	VersionsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "diag_versions",
		Help: "Diagnostic versions by status",
	}, []string{"status"})

	// ActiveDiagnostics is the number of diagnostics with an active version.
	ActiveDiagnostics = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "diag_active_diagnostics",
		Help: "Diagnostics that have an active version",
	})
)

// Observe records one lifecycle operation outcome.
func Observe(operation string, err error) {
	OperationsTotal.WithLabelValues(operation, Result(err)).Inc()
}

// Result is the metric label for err: "ok" or the lower-cased error kind.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(apperr.KindOf(err)))
}

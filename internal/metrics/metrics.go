package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdminRequestsTotal tracks outbound calls to the ArcGIS admin API.
	AdminRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcgis_admin_requests_total",
			Help: "Total number of ArcGIS admin API requests (by endpoint and outcome).",
		},
		[]string{"endpoint", "outcome"},
	)

	// AdminRequestDuration measures the duration of outbound admin API calls.
	AdminRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arcgis_admin_request_duration_seconds",
			Help:    "Duration of ArcGIS admin API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms → ~10s
		},
		[]string{"endpoint"},
	)

	// TokenAcquisitions counts token requests by reason (initial, renewal) and result.
	TokenAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcgis_admin_token_acquisitions_total",
			Help: "Number of generateToken calls by reason and result.",
		},
		[]string{"reason", "result"},
	)

	// AuditRecords counts audit sink writes by sink and result.
	AuditRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcgis_admin_audit_records_total",
			Help: "Number of admin action audit records by sink and result.",
		},
		[]string{"sink", "result"},
	)

	// ReportRefreshes counts background server report refreshes.
	ReportRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcgis_admin_report_refreshes_total",
			Help: "Number of server report refreshes by result.",
		},
		[]string{"result"},
	)
)

// IncAdminRequest increments the admin request counter.
func IncAdminRequest(endpoint, outcome string) {
	AdminRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// IncTokenAcquisition increments the token acquisition counter.
func IncTokenAcquisition(reason, result string) {
	TokenAcquisitions.WithLabelValues(reason, result).Inc()
}

// IncAuditRecord increments the audit record counter.
func IncAuditRecord(sink, result string) {
	AuditRecords.WithLabelValues(sink, result).Inc()
}

// IncReportRefresh increments the report refresh counter.
func IncReportRefresh(result string) {
	ReportRefreshes.WithLabelValues(result).Inc()
}

// ObserveDuration records elapsed time since start into a HistogramVec or SummaryVec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()
	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	}
}

package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Row outcomes reported by upload_rows_total
const (
	rowOutcomeSuccess = "success"
	rowOutcomeError   = "error"
	rowOutcomeWarning = "warning"
)

var (
	uploadJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_jobs_total",
			Help: "Finished spreadsheet imports by entity type and final status",
		},
		[]string{"type", "status"},
	)

	uploadRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_rows_total",
			Help: "Imported spreadsheet rows by entity type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

func recordUploadMetrics(uploadType, status string, success, failed, warned int) {
	uploadJobsTotal.WithLabelValues(uploadType, status).Inc()
	uploadRowsTotal.WithLabelValues(uploadType, rowOutcomeSuccess).Add(float64(success))
	uploadRowsTotal.WithLabelValues(uploadType, rowOutcomeError).Add(float64(failed))
	uploadRowsTotal.WithLabelValues(uploadType, rowOutcomeWarning).Add(float64(warned))
}

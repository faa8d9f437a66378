package worker

import (
	"github.com/prometheus/client_golang/prometheus"

	"ytdigest/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// metrics for scheduled digest runs.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp
//   - worker_config_validation_errors_total{field}
//   - worker_config_fallbacks_total{field}
//   - worker_config_fallback_active
//
// Worker-specific metrics:
//   - worker_cron_job_runs_total{status}: runs by status (success, failure, skipped)
//   - worker_cron_job_duration_seconds: duration histogram of scheduled runs
//   - worker_cron_job_articles_delivered_total: articles mailed across runs
//   - worker_cron_job_last_success_timestamp: Unix timestamp of last successful run
type WorkerMetrics struct {
	*config.ConfigMetrics

	CronJobRunsTotal              *prometheus.CounterVec
	CronJobDurationSeconds        prometheus.Histogram
	CronJobArticlesDeliveredTotal prometheus.Counter
	CronJobLastSuccessTimestamp   prometheus.Gauge
}

// NewWorkerMetrics creates the worker metrics and registers them on reg.
// Collectors already present on reg are reused.
//
// Example:
//
//	metrics := NewWorkerMetrics(prometheus.DefaultRegisterer)
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),

		CronJobRunsTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of scheduled digest runs by status (success/failure/skipped)",
		}, []string{"status"})),

		CronJobDurationSeconds: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of scheduled digest runs in seconds",
			Buckets: []float64{10, 30, 60, 300, 900, 1800, 2700}, // 10s .. 45m
		})),

		CronJobArticlesDeliveredTotal: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_job_articles_delivered_total",
			Help: "Total number of articles included in delivered digests",
		})),

		CronJobLastSuccessTimestamp: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful scheduled run",
		})),
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordJobRun increments the run counter for status.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.CronJobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes one run's duration in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.CronJobDurationSeconds.Observe(seconds)
}

// RecordArticlesDelivered adds the article count of a delivered digest.
func (m *WorkerMetrics) RecordArticlesDelivered(count int) {
	m.CronJobArticlesDeliveredTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronJobLastSuccessTimestamp.SetToCurrentTime()
}

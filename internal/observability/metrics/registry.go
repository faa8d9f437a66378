// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics track each stage of a digest run
var (
	// StageItemsTotal counts items entering and leaving each stage
	StageItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_stage_items_total",
			Help: "Total number of items entering (in) and leaving (out) each pipeline stage",
		},
		[]string{"stage", "direction"},
	)

	// ItemsDroppedTotal counts items dropped by a stage, by error kind
	ItemsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_items_dropped_total",
			Help: "Total number of items dropped by a pipeline stage",
		},
		[]string{"stage", "reason"},
	)

	// StageDuration measures time spent in each stage
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digest_stage_duration_seconds",
			Help:    "Time spent in a pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
		[]string{"stage"},
	)

	// RunsTotal counts finished runs by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_runs_total",
			Help: "Total number of digest runs by outcome",
		},
		[]string{"outcome"},
	)

	// RunDuration measures end-to-end run time
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_run_duration_seconds",
			Help:    "End-to-end duration of a digest run",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		},
	)

	// LastRunTimestamp records when the last run finished
	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digest_last_run_timestamp",
			Help: "Unix timestamp of the last finished digest run",
		},
	)
)

// External call metrics track collaborator latency
var (
	// ExternalCallDuration measures calls to the catalog, probe, transcript,
	// generation and mail collaborators
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digest_external_call_duration_seconds",
			Help:    "Duration of calls to external collaborators",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"service", "result"},
	)

	// TranscriptWords measures transcript sizes in words
	TranscriptWords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_transcript_words",
			Help:    "Distribution of transcript lengths in words",
			Buckets: prometheus.ExponentialBuckets(250, 2, 10),
		},
	)

	// ArticleWords measures generated article sizes in words
	ArticleWords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_article_words",
			Help:    "Distribution of generated article lengths in words",
			Buckets: []float64{250, 500, 1000, 1500, 2000, 3000, 4000, 6000},
		},
	)
)

package writer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetricsRecorder records per-call generation metrics.
// Tests inject a fake instead of the Prometheus implementation.
type GenerationMetricsRecorder interface {
	// RecordDuration records the latency of one provider call.
	RecordDuration(provider string, duration time.Duration)

	// RecordFailure counts a failed call by provider and kind ("api", "empty", "rejected").
	RecordFailure(provider, kind string)

	// RecordOutputWords records the size of a generated article.
	RecordOutputWords(provider string, words int)
}

// PrometheusGenerationMetrics implements GenerationMetricsRecorder using Prometheus metrics.
type PrometheusGenerationMetrics struct {
	durationHistogram *prometheus.HistogramVec
	failureCounter    *prometheus.CounterVec
	wordsHistogram    *prometheus.HistogramVec
}

var (
	prometheusMetricsInstance *PrometheusGenerationMetrics
	prometheusMetricsOnce     sync.Once
)

// getOrCreate registers c with the default registry, or returns the collector
// already registered under the same descriptor.
func getOrCreate[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// NewPrometheusGenerationMetrics returns the process-wide Prometheus recorder.
// Uses singleton pattern to avoid duplicate metric registration in tests.
func NewPrometheusGenerationMetrics() *PrometheusGenerationMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusGenerationMetrics{
			durationHistogram: getOrCreate(prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "digest_generation_duration_seconds",
				Help:    "Time taken by one article generation call",
				Buckets: prometheus.ExponentialBuckets(2, 2, 9),
			}, []string{"provider"})),
			failureCounter: getOrCreate(prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "digest_generation_failures_total",
				Help: "Failed article generation calls by provider and kind",
			}, []string{"provider", "kind"})),
			wordsHistogram: getOrCreate(prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "digest_generation_output_words",
				Help:    "Distribution of generated article lengths in words",
				Buckets: []float64{250, 500, 1000, 1500, 2000, 3000, 4000, 6000},
			}, []string{"provider"})),
		}
	})
	return prometheusMetricsInstance
}

// RecordDuration implements GenerationMetricsRecorder.RecordDuration
func (p *PrometheusGenerationMetrics) RecordDuration(provider string, duration time.Duration) {
	p.durationHistogram.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordFailure implements GenerationMetricsRecorder.RecordFailure
func (p *PrometheusGenerationMetrics) RecordFailure(provider, kind string) {
	p.failureCounter.WithLabelValues(provider, kind).Inc()
}

// RecordOutputWords implements GenerationMetricsRecorder.RecordOutputWords
func (p *PrometheusGenerationMetrics) RecordOutputWords(provider string, words int) {
	p.wordsHistogram.WithLabelValues(provider).Observe(float64(words))
}

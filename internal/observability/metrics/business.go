package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// RecordStage records one stage's input/output counts and duration.
func RecordStage(stage string, in, out int, duration time.Duration) {
	StageItemsTotal.WithLabelValues(stage, "in").Add(float64(in))
	StageItemsTotal.WithLabelValues(stage, "out").Add(float64(out))
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordDrop records an item dropped by a stage.
// Reason should be a short error kind such as "channel_not_found" or "transcript_unavailable".
func RecordDrop(stage, reason string) {
	ItemsDroppedTotal.WithLabelValues(stage, reason).Inc()
}

// RecordRun records the outcome and duration of a finished run.
func RecordRun(outcome string, duration time.Duration) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(duration.Seconds())
	LastRunTimestamp.SetToCurrentTime()
}

// RecordExternalCall records the latency of one call to a collaborator.
//
// Example:
//
//	start := time.Now()
//	text, err := provider.Fetch(ctx, id)
//	metrics.RecordExternalCall("transcript", err, time.Since(start))
func RecordExternalCall(service string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ExternalCallDuration.WithLabelValues(service, result).Observe(duration.Seconds())
}

// RecordTranscriptWords records the size of a fetched transcript.
func RecordTranscriptWords(words int) {
	TranscriptWords.Observe(float64(words))
}

// RecordArticleWords records the size of a generated article.
func RecordArticleWords(words int) {
	ArticleWords.Observe(float64(words))
}

// Push sends everything in gatherer to a Prometheus Pushgateway under job.
// One-shot runs exit before any scrape, so this is how their metrics survive.
func Push(ctx context.Context, gatewayURL, job string, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := push.New(gatewayURL, job).Gatherer(gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}

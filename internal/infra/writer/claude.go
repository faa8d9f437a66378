package writer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/observability/logging"
	"ytdigest/internal/resilience/circuitbreaker"
	"ytdigest/internal/utils/text"
)

// Claude generates articles with Anthropic's Messages API.
type Claude struct {
	client          anthropic.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	config          Config
	metricsRecorder GenerationMetricsRecorder
}

// NewClaude creates a Claude writer. SDK retries are disabled; every Generate
// is exactly one HTTP request.
func NewClaude(apiKey string, cfg Config) *Claude {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Info("Initialized Claude writer with configuration",
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens),
		slog.Duration("timeout", cfg.Timeout))

	return &Claude{
		client:          anthropic.NewClient(opts...),
		circuitBreaker:  circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		config:          cfg,
		metricsRecorder: NewPrometheusGenerationMetrics(),
	}
}

// WithMetricsRecorder replaces the Prometheus recorder.
func (c *Claude) WithMetricsRecorder(r GenerationMetricsRecorder) *Claude {
	c.metricsRecorder = r
	return c
}

// Generate writes a Markdown article for video. It panics if video has no transcript.
// Every failure is a *GenerationError matching entity.ErrGeneration.
func (c *Claude) Generate(ctx context.Context, video *entity.Video) (string, error) {
	mustHaveTranscript(video)

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	article, err := circuitbreaker.Do(c.circuitBreaker, func() (string, error) {
		return c.doGenerate(ctx, video)
	})
	if err != nil {
		if circuitbreaker.IsRejection(err) {
			slog.WarnContext(ctx, "claude api circuit breaker open, request rejected",
				slog.String("service", c.circuitBreaker.Name()),
				slog.String("state", c.circuitBreaker.State().String()),
				slog.String("video_id", video.ID))
			c.metricsRecorder.RecordFailure(ProviderClaude, "rejected")
			return "", &GenerationError{Provider: ProviderClaude, VideoID: video.ID, Err: err}
		}
		return "", err
	}
	return article, nil
}

// doGenerate performs the actual API call without the circuit breaker.
func (c *Claude) doGenerate(ctx context.Context, video *entity.Video) (string, error) {
	requestID := uuid.New().String()
	prompt := BuildPrompt(video)

	slog.InfoContext(ctx, "Starting article generation",
		slog.String("request_id", requestID),
		slog.String("provider", ProviderClaude),
		slog.String("video_id", video.ID),
		slog.Int("transcript_words", text.CountWords(video.TranscriptText())))

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	duration := time.Since(start)
	c.metricsRecorder.RecordDuration(ProviderClaude, duration)

	if err != nil {
		genErr := &GenerationError{Provider: ProviderClaude, VideoID: video.ID, Err: err}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			genErr.StatusCode = apiErr.StatusCode
			genErr.Body = apiErr.RawJSON()
		}
		slog.ErrorContext(ctx, "Article generation failed",
			slog.String("request_id", requestID),
			slog.Int("status", genErr.StatusCode),
			slog.Duration("duration", duration),
			logging.ErrorAttr(err))
		c.metricsRecorder.RecordFailure(ProviderClaude, "api")
		return "", genErr
	}

	if len(message.Content) == 0 {
		c.metricsRecorder.RecordFailure(ProviderClaude, "empty")
		return "", &GenerationError{Provider: ProviderClaude, VideoID: video.ID, Err: errEmptyResponse}
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		c.metricsRecorder.RecordFailure(ProviderClaude, "empty")
		return "", &GenerationError{Provider: ProviderClaude, VideoID: video.ID, Err: errUnexpectedResponse}
	}
	if strings.TrimSpace(textBlock.Text) == "" {
		c.metricsRecorder.RecordFailure(ProviderClaude, "empty")
		return "", &GenerationError{Provider: ProviderClaude, VideoID: video.ID, Err: errEmptyResponse}
	}

	words := text.CountWords(textBlock.Text)
	slog.InfoContext(ctx, "Article generation completed",
		slog.String("request_id", requestID),
		slog.String("video_id", video.ID),
		slog.Int("article_words", words),
		slog.String("stop_reason", string(message.StopReason)),
		slog.Duration("duration", duration))
	c.metricsRecorder.RecordOutputWords(ProviderClaude, words)

	return textBlock.Text, nil
}

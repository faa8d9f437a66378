package writer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/observability/logging"
	"ytdigest/internal/resilience/circuitbreaker"
	"ytdigest/internal/utils/text"
)

// OpenAI generates articles with the Chat Completions API.
type OpenAI struct {
	client          *openai.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	config          Config
	metricsRecorder GenerationMetricsRecorder
}

// NewOpenAI creates an OpenAI writer.
func NewOpenAI(apiKey string, cfg Config) *OpenAI {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	slog.Info("Initialized OpenAI writer with configuration",
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens),
		slog.Duration("timeout", cfg.Timeout))

	return &OpenAI{
		client:          openai.NewClientWithConfig(clientCfg),
		circuitBreaker:  circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		config:          cfg,
		metricsRecorder: NewPrometheusGenerationMetrics(),
	}
}

// WithMetricsRecorder replaces the Prometheus recorder.
func (o *OpenAI) WithMetricsRecorder(r GenerationMetricsRecorder) *OpenAI {
	o.metricsRecorder = r
	return o
}

// Generate writes a Markdown article for video. It panics if video has no transcript.
func (o *OpenAI) Generate(ctx context.Context, video *entity.Video) (string, error) {
	mustHaveTranscript(video)

	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	article, err := circuitbreaker.Do(o.circuitBreaker, func() (string, error) {
		return o.doGenerate(ctx, video)
	})
	if err != nil {
		if circuitbreaker.IsRejection(err) {
			slog.WarnContext(ctx, "openai api circuit breaker open, request rejected",
				slog.String("service", o.circuitBreaker.Name()),
				slog.String("state", o.circuitBreaker.State().String()),
				slog.String("video_id", video.ID))
			o.metricsRecorder.RecordFailure(ProviderOpenAI, "rejected")
			return "", &GenerationError{Provider: ProviderOpenAI, VideoID: video.ID, Err: err}
		}
		return "", err
	}
	return article, nil
}

func (o *OpenAI) doGenerate(ctx context.Context, video *entity.Video) (string, error) {
	requestID := uuid.New().String()

	slog.InfoContext(ctx, "Starting article generation",
		slog.String("request_id", requestID),
		slog.String("provider", ProviderOpenAI),
		slog.String("video_id", video.ID),
		slog.Int("transcript_words", text.CountWords(video.TranscriptText())))

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.config.Model,
		MaxTokens: o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(video)},
		},
	})
	duration := time.Since(start)
	o.metricsRecorder.RecordDuration(ProviderOpenAI, duration)

	if err != nil {
		genErr := &GenerationError{Provider: ProviderOpenAI, VideoID: video.ID, Err: err}
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		switch {
		case errors.As(err, &apiErr):
			genErr.StatusCode = apiErr.HTTPStatusCode
			genErr.Body = apiErr.Message
		case errors.As(err, &reqErr):
			genErr.StatusCode = reqErr.HTTPStatusCode
		}
		slog.ErrorContext(ctx, "Article generation failed",
			slog.String("request_id", requestID),
			slog.Int("status", genErr.StatusCode),
			slog.Duration("duration", duration),
			logging.ErrorAttr(err))
		o.metricsRecorder.RecordFailure(ProviderOpenAI, "api")
		return "", genErr
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		o.metricsRecorder.RecordFailure(ProviderOpenAI, "empty")
		return "", &GenerationError{Provider: ProviderOpenAI, VideoID: video.ID, Err: errEmptyResponse}
	}

	article := resp.Choices[0].Message.Content
	words := text.CountWords(article)
	slog.InfoContext(ctx, "Article generation completed",
		slog.String("request_id", requestID),
		slog.String("video_id", video.ID),
		slog.Int("article_words", words),
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)),
		slog.Duration("duration", duration))
	o.metricsRecorder.RecordOutputWords(ProviderOpenAI, words)

	return article, nil
}

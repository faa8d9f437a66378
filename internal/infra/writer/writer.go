// Package writer turns a transcribed video into a long-form Markdown article.
// It includes adapters for Claude (Anthropic) and OpenAI APIs. Each call is a single
// attempt guarded by a circuit breaker, with structured logging and Prometheus metrics.
package writer

import (
	"errors"
	"fmt"
	"time"

	"ytdigest/internal/domain/entity"
)

const (
	// ProviderClaude selects the Anthropic Messages API.
	ProviderClaude = "claude"

	// ProviderOpenAI selects the OpenAI Chat Completions API.
	ProviderOpenAI = "openai"

	// DefaultClaudeModel is the generation model used when none is configured.
	DefaultClaudeModel = "claude-sonnet-4-5-20250929"

	// DefaultOpenAIModel is the OpenAI model used when none is configured.
	DefaultOpenAIModel = "gpt-4o"

	// DefaultMaxTokens caps the article length in output tokens.
	DefaultMaxTokens = 8192

	// DefaultTimeout bounds one generation call.
	DefaultTimeout = 5 * time.Minute
)

// Config holds the request parameters shared by every provider.
type Config struct {
	// Model is the provider model identifier.
	Model string

	// MaxTokens is the maximum number of output tokens.
	MaxTokens int

	// Timeout is the maximum duration for a single generation call.
	Timeout time.Duration

	// BaseURL overrides the provider endpoint. Empty means the SDK default.
	BaseURL string
}

// DefaultConfig returns the defaults for provider ("claude" or "openai").
func DefaultConfig(provider string) Config {
	model := DefaultClaudeModel
	if provider == ProviderOpenAI {
		model = DefaultOpenAIModel
	}
	return Config{
		Model:     model,
		MaxTokens: DefaultMaxTokens,
		Timeout:   DefaultTimeout,
	}
}

// Validate checks that the configuration can issue a request.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// GenerationError describes a failed generation call.
// StatusCode and Body are set when the provider answered with an error status.
type GenerationError struct {
	Provider   string
	VideoID    string
	StatusCode int
	Body       string
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s generation for %s failed with status %d: %v", e.Provider, e.VideoID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s generation for %s failed: %v", e.Provider, e.VideoID, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is makes every GenerationError match entity.ErrGeneration.
func (e *GenerationError) Is(target error) bool {
	return target == entity.ErrGeneration
}

var (
	errEmptyResponse      = errors.New("empty response")
	errUnexpectedResponse = errors.New("unexpected response content type")
)

// mustHaveTranscript enforces that only transcribed videos reach a provider.
func mustHaveTranscript(video *entity.Video) {
	if !video.HasTranscript() {
		panic(fmt.Sprintf("writer: Generate called for video %q without a transcript", videoID(video)))
	}
}

func videoID(video *entity.Video) string {
	if video == nil {
		return ""
	}
	return video.ID
}

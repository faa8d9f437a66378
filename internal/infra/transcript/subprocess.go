// Package transcript fetches spoken-text transcripts by running a helper command.
// The helper prints the transcript of the video ID given as its last argument on
// stdout and exits non-zero with a message on stderr when it cannot.
package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/utils/text"
)

const (
	// DefaultCommand runs scripts/fetch_transcript.py relative to the working
	// directory; it needs the youtube-transcript-api Python package.
	// Set TRANSCRIPT_COMMAND when running from elsewhere.
	DefaultCommand = "python3 scripts/fetch_transcript.py"

	// DefaultTimeout bounds one helper invocation.
	DefaultTimeout = 2 * time.Minute

	// DefaultMinInterval spaces consecutive invocations.
	DefaultMinInterval = 2 * time.Second

	maxStderr = 2048
)

// stderr fragments the helper prints when a video simply has no captions.
var unavailableMarkers = []string{
	"transcriptsdisabled",
	"notranscriptfound",
	"no transcript",
	"could not retrieve a transcript",
}

// Error describes a failed fetch. Err wraps entity.ErrTranscriptUnavailable or
// entity.ErrTranscriptProviderError.
type Error struct {
	VideoID string
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("transcript %s: %v: %s", e.VideoID, e.Err, e.Stderr)
	}
	return fmt.Sprintf("transcript %s: %v", e.VideoID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config controls the helper command.
type Config struct {
	// Command is the program and its leading arguments; the video ID is appended.
	Command []string

	// Timeout is the maximum time to wait for one invocation.
	Timeout time.Duration

	// MinInterval is the minimum spacing between invocations. Zero disables pacing.
	MinInterval time.Duration
}

// DefaultConfig returns the helper defaults.
func DefaultConfig() Config {
	return Config{
		Command:     strings.Fields(DefaultCommand),
		Timeout:     DefaultTimeout,
		MinInterval: DefaultMinInterval,
	}
}

// Subprocess implements the transcript provider with one helper run per video.
// Each Fetch is a single attempt.
type Subprocess struct {
	config  Config
	limiter *rate.Limiter
}

// NewSubprocess returns a provider. An empty Command means DefaultCommand.
func NewSubprocess(cfg Config) *Subprocess {
	if len(cfg.Command) == 0 {
		cfg.Command = strings.Fields(DefaultCommand)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Subprocess{
		config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Fetch returns the trimmed transcript of videoID.
func (s *Subprocess) Fetch(ctx context.Context, videoID string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", &Error{VideoID: videoID, Err: fmt.Errorf("%w: %w", entity.ErrTranscriptProviderError, err)}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	args := append(append([]string{}, s.config.Command[1:]...), videoID)
	cmd := exec.CommandContext(cmdCtx, s.config.Command[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	errMsg := text.Truncate(strings.TrimSpace(stderr.String()), maxStderr)

	if err != nil {
		switch {
		case ctx.Err() != nil:
			return "", &Error{VideoID: videoID, Err: fmt.Errorf("%w: %w", entity.ErrTranscriptProviderError, ctx.Err())}
		case errors.Is(cmdCtx.Err(), context.DeadlineExceeded):
			return "", &Error{VideoID: videoID, Stderr: errMsg,
				Err: fmt.Errorf("%w: timed out after %v", entity.ErrTranscriptProviderError, s.config.Timeout)}
		case isUnavailable(errMsg):
			return "", &Error{VideoID: videoID, Stderr: errMsg, Err: entity.ErrTranscriptUnavailable}
		default:
			return "", &Error{VideoID: videoID, Stderr: errMsg,
				Err: fmt.Errorf("%w: %w", entity.ErrTranscriptProviderError, err)}
		}
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", &Error{VideoID: videoID,
			Err: fmt.Errorf("%w: invalid UTF-8 in helper output", entity.ErrTranscriptProviderError)}
	}

	transcript := strings.TrimSpace(stdout.String())
	if transcript == "" {
		return "", &Error{VideoID: videoID, Stderr: errMsg, Err: entity.ErrTranscriptUnavailable}
	}

	slog.DebugContext(ctx, "transcript fetched",
		slog.String("video_id", videoID),
		slog.Int("words", text.CountWords(transcript)),
		slog.Duration("duration", time.Since(start)))

	return transcript, nil
}

func isUnavailable(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range unavailableMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Package config assembles the digest pipeline configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ytdigest/internal/domain/entity"
	pkgconfig "ytdigest/internal/pkg/config"
	envconfig "ytdigest/pkg/config"
)

// Catalog sources.
const (
	CatalogAPI  = "api"
	CatalogFeed = "feed"
)

// Writer providers.
const (
	WriterClaude = "claude"
	WriterOpenAI = "openai"
)

// Probe failure policies, mirrored from the resolver to keep this package free of use case imports.
const (
	ProbePolicyLongForm = "long_form"
	ProbePolicyShort    = "short"
)

// DefaultChannels is used when neither DIGEST_CHANNELS_FILE nor DIGEST_CHANNELS is set.
var DefaultChannels = []entity.ChannelRef{
	"@aliabdaal",
	"@t3dotgg",
	"@AlexFinnOfficial",
	"@maximevidalinc",
}

// MailConfig holds the optional delivery account.
type MailConfig struct {
	Address   string
	Password  string
	Recipient string
	Host      string
	Port      int
}

// Enabled reports whether delivery credentials are present.
func (m MailConfig) Enabled() bool {
	return m.Address != "" && m.Password != ""
}

// missingCredential names the unset half of a partially configured account.
// It returns "" when both or neither are set.
func (m MailConfig) missingCredential() string {
	switch {
	case m.Address != "" && m.Password == "":
		return "GMAIL_APP_PASSWORD"
	case m.Address == "" && m.Password != "":
		return "GMAIL_ADDRESS"
	default:
		return ""
	}
}

// DigestConfig is everything one pipeline run needs.
type DigestConfig struct {
	Channels   []entity.ChannelRef
	OutputPath string

	CatalogType   string
	YouTubeAPIKey string

	WriterType      string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	WriterModel     string
	WriterMaxTokens int

	HTTPTimeout       time.Duration
	TranscriptTimeout time.Duration
	GenerationTimeout time.Duration

	TranscriptCommand     []string
	TranscriptMinInterval time.Duration

	ProbeFailurePolicy string
	PushgatewayURL     string
	LogFormat          string

	Mail MailConfig
}

// WriterAPIKey returns the key of the selected provider.
func (c *DigestConfig) WriterAPIKey() string {
	if c.WriterType == WriterOpenAI {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

// channelFile is the YAML layout of DIGEST_CHANNELS_FILE.
type channelFile struct {
	Channels []string `yaml:"channels"`
}

// LoadChannelsFile reads a YAML channel list. Blank entries are dropped; an
// empty list is an error.
func LoadChannelsFile(path string) ([]entity.ChannelRef, error) {
	// #nosec G304 -- path comes from the operator's environment
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}

	var f channelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse channels file %s: %w", path, err)
	}

	channels := toChannelRefs(f.Channels)
	if len(channels) == 0 {
		return nil, fmt.Errorf("channels file %s lists no channels", path)
	}
	return channels, nil
}

func toChannelRefs(raw []string) []entity.ChannelRef {
	out := make([]entity.ChannelRef, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, entity.ChannelRef(s))
		}
	}
	return out
}

// loader applies fail-open results: warnings are logged and counted, the value is kept.
type loader struct {
	logger   *slog.Logger
	metrics  *pkgconfig.ConfigMetrics
	fallback bool
}

func (l *loader) apply(field string, result pkgconfig.ConfigLoadResult) interface{} {
	if result.FallbackApplied {
		l.fallback = true
		if l.metrics != nil {
			l.metrics.RecordValidationError(field)
			l.metrics.RecordFallback(field)
		}
		for _, warning := range result.Warnings {
			l.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	return result.Value
}

// LoadDigestConfig reads the pipeline configuration. Optional settings with
// invalid values fall back to their defaults with a warning; a missing required
// key or an unreadable channel file is an error. A mail account with only one of
// its two credentials set is logged and treated as absent.
// metrics may be nil.
func LoadDigestConfig(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*DigestConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &loader{logger: logger, metrics: metrics}
	var errs []error

	cfg := &DigestConfig{
		OutputPath: envconfig.GetEnvString("DIGEST_OUTPUT_PATH", "newsletter.epub"),
		LogFormat:  strings.ToLower(envconfig.GetEnvString("LOG_FORMAT", "json")),
	}

	switch path := envconfig.GetEnvString("DIGEST_CHANNELS_FILE", ""); {
	case path != "":
		channels, err := LoadChannelsFile(path)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Channels = channels
	default:
		cfg.Channels = toChannelRefs(envconfig.GetEnvStringList("DIGEST_CHANNELS", nil))
		if len(cfg.Channels) == 0 {
			cfg.Channels = append([]entity.ChannelRef(nil), DefaultChannels...)
		}
	}

	cfg.CatalogType = strings.ToLower(l.apply("catalog_type",
		pkgconfig.LoadEnvWithFallback("CATALOG_TYPE", CatalogAPI, pkgconfig.ValidateOneOf(CatalogAPI, CatalogFeed))).(string))
	cfg.WriterType = strings.ToLower(l.apply("writer_type",
		pkgconfig.LoadEnvWithFallback("WRITER_TYPE", WriterClaude, pkgconfig.ValidateOneOf(WriterClaude, WriterOpenAI))).(string))
	cfg.ProbeFailurePolicy = strings.ToLower(l.apply("shorts_probe_failure_policy",
		pkgconfig.LoadEnvWithFallback("SHORTS_PROBE_FAILURE_POLICY", ProbePolicyLongForm,
			pkgconfig.ValidateOneOf(ProbePolicyLongForm, ProbePolicyShort))).(string))

	cfg.YouTubeAPIKey = envconfig.GetEnvString("YOUTUBE_API_KEY", "")
	cfg.AnthropicAPIKey = envconfig.GetEnvString("ANTHROPIC_API_KEY", "")
	cfg.OpenAIAPIKey = envconfig.GetEnvString("OPENAI_API_KEY", "")

	if cfg.CatalogType == CatalogAPI {
		if _, err := envconfig.RequireEnv("YOUTUBE_API_KEY"); err != nil {
			errs = append(errs, fmt.Errorf("%w (or set CATALOG_TYPE=feed)", err))
		}
	}
	switch cfg.WriterType {
	case WriterOpenAI:
		if _, err := envconfig.RequireEnv("OPENAI_API_KEY"); err != nil {
			errs = append(errs, err)
		}
	default:
		if _, err := envconfig.RequireEnv("ANTHROPIC_API_KEY"); err != nil {
			errs = append(errs, err)
		}
	}

	cfg.WriterModel = envconfig.GetEnvString("WRITER_MODEL", "")
	cfg.WriterMaxTokens = l.apply("writer_max_tokens",
		pkgconfig.LoadEnvInt("WRITER_MAX_TOKENS", 8192, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 256, 64000)
		})).(int)

	cfg.HTTPTimeout = l.apply("http_timeout",
		pkgconfig.LoadEnvDuration("HTTP_TIMEOUT", 10*time.Second, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, time.Second, 2*time.Minute)
		})).(time.Duration)
	cfg.TranscriptTimeout = l.apply("transcript_timeout",
		pkgconfig.LoadEnvDuration("TRANSCRIPT_TIMEOUT", 2*time.Minute, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, time.Second, 30*time.Minute)
		})).(time.Duration)
	cfg.GenerationTimeout = l.apply("generation_timeout",
		pkgconfig.LoadEnvDuration("GENERATION_TIMEOUT", 5*time.Minute, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, 10*time.Second, time.Hour)
		})).(time.Duration)

	cfg.TranscriptCommand = strings.Fields(envconfig.GetEnvString("TRANSCRIPT_COMMAND", "python3 scripts/fetch_transcript.py"))
	cfg.TranscriptMinInterval = l.apply("transcript_min_interval",
		pkgconfig.LoadEnvDuration("TRANSCRIPT_MIN_INTERVAL", 2*time.Second, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, 0, time.Minute)
		})).(time.Duration)

	cfg.PushgatewayURL = l.apply("pushgateway_url",
		pkgconfig.LoadEnvWithFallback("PUSHGATEWAY_URL", "", pkgconfig.ValidateHTTPURL)).(string)

	cfg.Mail = MailConfig{
		Address:  envconfig.GetEnvString("GMAIL_ADDRESS", ""),
		Password: envconfig.GetEnvString("GMAIL_APP_PASSWORD", ""),
		Host:     envconfig.GetEnvString("SMTP_HOST", "smtp.gmail.com"),
		Port: l.apply("smtp_port", pkgconfig.LoadEnvInt("SMTP_PORT", 465, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 1, 65535)
		})).(int),
	}
	cfg.Mail.Recipient = envconfig.GetEnvString("DIGEST_RECIPIENT", cfg.Mail.Address)
	if missing := cfg.Mail.missingCredential(); missing != "" {
		logger.Warn("mail account is half configured, delivery will be skipped",
			slog.String("missing", missing))
	}

	if metrics != nil {
		metrics.SetFallbackActive(l.fallback)
		metrics.RecordLoadTimestamp()
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid digest configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

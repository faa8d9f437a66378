package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdigest/internal/config"
	"ytdigest/internal/domain/entity"
	pkgconfig "ytdigest/internal/pkg/config"
)

// baseEnv sets the keys every successful load needs and clears the rest.
func baseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DIGEST_CHANNELS_FILE", "DIGEST_CHANNELS", "DIGEST_OUTPUT_PATH", "DIGEST_RECIPIENT",
		"CATALOG_TYPE", "WRITER_TYPE", "WRITER_MODEL", "WRITER_MAX_TOKENS", "OPENAI_API_KEY",
		"HTTP_TIMEOUT", "TRANSCRIPT_TIMEOUT", "GENERATION_TIMEOUT",
		"TRANSCRIPT_COMMAND", "TRANSCRIPT_MIN_INTERVAL", "SHORTS_PROBE_FAILURE_POLICY",
		"PUSHGATEWAY_URL", "GMAIL_ADDRESS", "GMAIL_APP_PASSWORD", "SMTP_HOST", "SMTP_PORT", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("YOUTUBE_API_KEY", "AIzaTest")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
}

func TestLoadDigestConfig_Defaults(t *testing.T) {
	baseEnv(t)

	cfg, err := config.LoadDigestConfig(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultChannels, cfg.Channels)
	assert.Equal(t, "newsletter.epub", cfg.OutputPath)
	assert.Equal(t, config.CatalogAPI, cfg.CatalogType)
	assert.Equal(t, config.WriterClaude, cfg.WriterType)
	assert.Equal(t, "sk-ant-test", cfg.WriterAPIKey())
	assert.Equal(t, 8192, cfg.WriterMaxTokens)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2*time.Minute, cfg.TranscriptTimeout)
	assert.Equal(t, 5*time.Minute, cfg.GenerationTimeout)
	assert.Equal(t, []string{"python3", "scripts/fetch_transcript.py"}, cfg.TranscriptCommand)
	assert.Equal(t, 2*time.Second, cfg.TranscriptMinInterval)
	assert.Equal(t, config.ProbePolicyLongForm, cfg.ProbeFailurePolicy)
	assert.Empty(t, cfg.PushgatewayURL)

	assert.False(t, cfg.Mail.Enabled())
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.Host)
	assert.Equal(t, 465, cfg.Mail.Port)
}

func TestLoadDigestConfig_Overrides(t *testing.T) {
	baseEnv(t)
	t.Setenv("DIGEST_CHANNELS", "@t3dotgg, ,@aliabdaal")
	t.Setenv("CATALOG_TYPE", "FEED")
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("WRITER_TYPE", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("WRITER_MODEL", "gpt-4.1")
	t.Setenv("TRANSCRIPT_COMMAND", "/usr/local/bin/transcript --lang en")
	t.Setenv("SHORTS_PROBE_FAILURE_POLICY", "short")
	t.Setenv("GMAIL_ADDRESS", "me@gmail.com")
	t.Setenv("GMAIL_APP_PASSWORD", "app-pass")

	cfg, err := config.LoadDigestConfig(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []entity.ChannelRef{"@t3dotgg", "@aliabdaal"}, cfg.Channels)
	assert.Equal(t, config.CatalogFeed, cfg.CatalogType)
	assert.Equal(t, config.WriterOpenAI, cfg.WriterType)
	assert.Equal(t, "sk-openai", cfg.WriterAPIKey())
	assert.Equal(t, "gpt-4.1", cfg.WriterModel)
	assert.Equal(t, []string{"/usr/local/bin/transcript", "--lang", "en"}, cfg.TranscriptCommand)
	assert.Equal(t, config.ProbePolicyShort, cfg.ProbeFailurePolicy)
	assert.True(t, cfg.Mail.Enabled())
	assert.Equal(t, "me@gmail.com", cfg.Mail.Recipient, "recipient defaults to the sending account")
}

func TestLoadDigestConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "youtube key", env: map[string]string{"YOUTUBE_API_KEY": ""}, want: "YOUTUBE_API_KEY not found in environment"},
		{name: "anthropic key", env: map[string]string{"ANTHROPIC_API_KEY": ""}, want: "ANTHROPIC_API_KEY not found in environment"},
		{name: "openai key", env: map[string]string{"WRITER_TYPE": "openai"}, want: "OPENAI_API_KEY not found in environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := config.LoadDigestConfig(nil, nil)
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDigestConfig_HalfMailAccountSkipsDelivery(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		missing string
	}{
		{name: "address only", env: map[string]string{"GMAIL_ADDRESS": "me@gmail.com"}, missing: "GMAIL_APP_PASSWORD"},
		{name: "password only", env: map[string]string{"GMAIL_APP_PASSWORD": "app-pass"}, missing: "GMAIL_ADDRESS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			cfg, err := config.LoadDigestConfig(logger, nil)
			require.NoError(t, err)

			assert.False(t, cfg.Mail.Enabled())
			assert.Contains(t, buf.String(), "level=WARN")
			assert.Contains(t, buf.String(), "missing="+tt.missing)
			assert.NotContains(t, buf.String(), "app-pass")
		})
	}
}

func TestLoadDigestConfig_FallbackOnInvalidOptional(t *testing.T) {
	baseEnv(t)
	t.Setenv("HTTP_TIMEOUT", "forever")
	t.Setenv("WRITER_MAX_TOKENS", "10")
	t.Setenv("CATALOG_TYPE", "scraper")
	t.Setenv("PUSHGATEWAY_URL", "ftp://gateway")

	reg := prometheus.NewRegistry()
	metrics := pkgconfig.NewConfigMetrics("digest", reg)

	cfg, err := config.LoadDigestConfig(nil, metrics)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 8192, cfg.WriterMaxTokens)
	assert.Equal(t, config.CatalogAPI, cfg.CatalogType)
	assert.Empty(t, cfg.PushgatewayURL)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("http_timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("catalog_type")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))
}

func TestLoadDigestConfig_ChannelsFile(t *testing.T) {
	baseEnv(t)
	path := filepath.Join(t.TempDir(), "channels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("channels:\n  - \"@t3dotgg\"\n  - \"\"\n  - \"@maximevidalinc\"\n"), 0o644))
	t.Setenv("DIGEST_CHANNELS_FILE", path)
	t.Setenv("DIGEST_CHANNELS", "@ignored")

	cfg, err := config.LoadDigestConfig(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []entity.ChannelRef{"@t3dotgg", "@maximevidalinc"}, cfg.Channels)
}

func TestLoadChannelsFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := config.LoadChannelsFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("channels: []\n"), 0o644))
	_, err = config.LoadChannelsFile(empty)
	assert.ErrorContains(t, err, "lists no channels")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("channels: [unterminated\n"), 0o644))
	_, err = config.LoadChannelsFile(broken)
	assert.Error(t, err)
}

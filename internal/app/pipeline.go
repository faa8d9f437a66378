// Package app wires configuration into a runnable digest pipeline.
// Both the one-shot CLI and the scheduled worker build their pipeline here.
package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ytdigest/internal/config"
	"ytdigest/internal/infra/catalog"
	"ytdigest/internal/infra/ebook"
	"ytdigest/internal/infra/mailer"
	"ytdigest/internal/infra/shorts"
	"ytdigest/internal/infra/transcript"
	"ytdigest/internal/infra/writer"
	"ytdigest/internal/usecase/digest"
	"ytdigest/internal/usecase/resolve"
)

// NewHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// NewCatalog returns the channel catalog selected by CATALOG_TYPE.
func NewCatalog(ctx context.Context, cfg *config.DigestConfig, client *http.Client) (resolve.Catalog, error) {
	switch cfg.CatalogType {
	case config.CatalogFeed:
		return catalog.NewFeed(client, catalog.DefaultSiteURL), nil
	case config.CatalogAPI, "":
		api, err := catalog.NewYouTubeAPI(ctx, cfg.YouTubeAPIKey, cfg.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("create youtube data api catalog: %w", err)
		}
		return api, nil
	default:
		return nil, fmt.Errorf("unknown catalog type %q", cfg.CatalogType)
	}
}

// NewWriter returns the article writer selected by WRITER_TYPE.
func NewWriter(cfg *config.DigestConfig) (digest.Writer, error) {
	provider := writer.ProviderClaude
	if cfg.WriterType == config.WriterOpenAI {
		provider = writer.ProviderOpenAI
	}

	wcfg := writer.DefaultConfig(provider)
	if cfg.WriterModel != "" {
		wcfg.Model = cfg.WriterModel
	}
	if cfg.WriterMaxTokens > 0 {
		wcfg.MaxTokens = cfg.WriterMaxTokens
	}
	if cfg.GenerationTimeout > 0 {
		wcfg.Timeout = cfg.GenerationTimeout
	}
	if err := wcfg.Validate(); err != nil {
		return nil, fmt.Errorf("writer config: %w", err)
	}

	recorder := writer.NewPrometheusGenerationMetrics()
	if provider == writer.ProviderOpenAI {
		return writer.NewOpenAI(cfg.OpenAIAPIKey, wcfg).WithMetricsRecorder(recorder), nil
	}
	return writer.NewClaude(cfg.AnthropicAPIKey, wcfg).WithMetricsRecorder(recorder), nil
}

// NewMailer returns nil when no delivery account is configured.
func NewMailer(cfg *config.DigestConfig) (digest.Mailer, error) {
	if !cfg.Mail.Enabled() {
		return nil, nil
	}
	m, err := mailer.New(mailer.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Address,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.Address,
		Timeout:  cfg.HTTPTimeout * 3,
	})
	if err != nil {
		return nil, fmt.Errorf("create mailer: %w", err)
	}
	return m, nil
}

// BuildPipeline wires every stage from cfg.
func BuildPipeline(ctx context.Context, cfg *config.DigestConfig, logger *slog.Logger) (*digest.Service, error) {
	client := NewHTTPClient(cfg.HTTPTimeout)

	cat, err := NewCatalog(ctx, cfg, client)
	if err != nil {
		return nil, err
	}

	policy, err := resolve.ParseProbeFailurePolicy(cfg.ProbeFailurePolicy)
	if err != nil {
		return nil, err
	}
	resolver := resolve.NewService(cat, shorts.NewProber(client, shorts.DefaultBaseURL), policy)

	transcripts := transcript.NewSubprocess(transcript.Config{
		Command:     cfg.TranscriptCommand,
		Timeout:     cfg.TranscriptTimeout,
		MinInterval: cfg.TranscriptMinInterval,
	})

	w, err := NewWriter(cfg)
	if err != nil {
		return nil, err
	}

	m, err := NewMailer(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("digest pipeline configured",
		slog.Int("channels", len(cfg.Channels)),
		slog.String("catalog", cfg.CatalogType),
		slog.String("writer", cfg.WriterType),
		slog.String("probe_failure_policy", string(policy)),
		slog.String("output_path", cfg.OutputPath),
		slog.Bool("delivery", m != nil))

	return digest.NewService(digest.Config{
		Channels:   cfg.Channels,
		OutputPath: cfg.OutputPath,
		Recipient:  cfg.Mail.Recipient,
	}, resolver, transcripts, w, ebook.NewAssembler(), m), nil
}

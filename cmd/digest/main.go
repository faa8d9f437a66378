// Package main runs one digest: resolve, transcribe, write, assemble and mail.
// Usage: ytdigest [--channels @a,@b] [--output newsletter.epub] [--no-mail] [--report text|json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ytdigest/internal/app"
	"ytdigest/internal/config"
	"ytdigest/internal/domain/entity"
	"ytdigest/internal/observability/logging"
	"ytdigest/internal/observability/metrics"
	pkgconfig "ytdigest/internal/pkg/config"
	"ytdigest/internal/usecase/digest"
	envconfig "ytdigest/pkg/config"
)

// ReportOutput is the JSON form of a run report.
type ReportOutput struct {
	RunID     string        `json:"run_id"`
	Outcome   string        `json:"outcome"`
	EbookPath string        `json:"ebook_path,omitempty"`
	Articles  []string      `json:"articles"`
	Stages    []StageOutput `json:"stages"`
	Dropped   []DropOutput  `json:"dropped"`
	Duration  string        `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// StageOutput is one stage's counts.
type StageOutput struct {
	Stage string `json:"stage"`
	In    int    `json:"in"`
	Out   int    `json:"out"`
}

// DropOutput is one dropped item.
type DropOutput struct {
	Stage  string `json:"stage"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

type options struct {
	channels string
	output   string
	noMail   bool
	report   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("ytdigest", flag.ContinueOnError)
	fs.StringVar(&opts.channels, "channels", "", "Comma-separated channel handles (overrides DIGEST_CHANNELS)")
	fs.StringVar(&opts.output, "output", "", "E-book output path (overrides DIGEST_OUTPUT_PATH)")
	fs.BoolVar(&opts.noMail, "no-mail", false, "Build the e-book but do not send it")
	fs.StringVar(&opts.report, "report", "text", "Run report format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.report != "text" && opts.report != "json" {
		fmt.Fprintf(os.Stderr, "Error: Invalid report format '%s' (must be 'text' or 'json')\n", opts.report)
		return 2
	}

	logger := logging.New(envconfig.GetEnvString("LOG_FORMAT", "json"))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configMetrics := pkgconfig.NewConfigMetrics("digest", prometheus.DefaultRegisterer)
	cfg, err := config.LoadDigestConfig(logger, configMetrics)
	if err != nil {
		logger.Error("failed to load digest configuration", logging.ErrorAttr(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", logging.SanitizeError(err))
		return 1
	}
	applyOverrides(cfg, opts)

	svc, err := app.BuildPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build digest pipeline", logging.ErrorAttr(err))
		return 1
	}
	if opts.noMail && svc.Mailer != nil {
		logger.Info("delivery disabled by --no-mail")
		svc.Mailer = nil
	}

	ctx, runID := logging.WithRunID(ctx, logger, "")
	report, runErr := svc.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, "ytdigest", prometheus.DefaultGatherer); err != nil {
			logger.Warn("failed to push metrics", slog.String("run_id", runID), logging.ErrorAttr(err))
		}
		cancel()
	}

	if err := writeReport(stdout, opts.report, report, runErr); err != nil {
		logger.Error("failed to write run report", logging.ErrorAttr(err))
	}

	if runErr != nil {
		return 1
	}
	return 0
}

func applyOverrides(cfg *config.DigestConfig, opts options) {
	if opts.channels != "" {
		var channels []entity.ChannelRef
		for _, c := range strings.Split(opts.channels, ",") {
			if c = strings.TrimSpace(c); c != "" {
				channels = append(channels, entity.ChannelRef(c))
			}
		}
		if len(channels) > 0 {
			cfg.Channels = channels
		}
	}
	if opts.output != "" {
		cfg.OutputPath = opts.output
	}
}

var stageOrder = []digest.Stage{
	digest.StageResolve,
	digest.StageTranscript,
	digest.StageGenerate,
	digest.StageAssemble,
	digest.StageDeliver,
}

func toReportOutput(report *digest.Report, runErr error) ReportOutput {
	out := ReportOutput{
		RunID:     report.RunID,
		Outcome:   string(report.Outcome),
		EbookPath: report.EbookPath,
		Articles:  make([]string, 0, len(report.Articles)),
		Stages:    make([]StageOutput, 0, len(report.Counts)),
		Dropped:   make([]DropOutput, 0, len(report.Dropped)),
		Duration:  report.Duration.Round(time.Millisecond).String(),
	}
	if runErr != nil {
		out.Error = logging.SanitizeError(runErr)
	}
	for _, a := range report.Articles {
		out.Articles = append(out.Articles, a.Title)
	}
	for _, stage := range stageOrder {
		if c, ok := report.Counts[stage]; ok {
			out.Stages = append(out.Stages, StageOutput{Stage: string(stage), In: c.In, Out: c.Out})
		}
	}
	for _, d := range report.Dropped {
		out.Dropped = append(out.Dropped, DropOutput{
			Stage:  string(d.Stage),
			ID:     d.ID,
			Reason: d.Reason,
			Error:  logging.SanitizeError(d.Err),
		})
	}
	return out
}

func writeReport(w io.Writer, format string, report *digest.Report, runErr error) error {
	out := toReportOutput(report, runErr)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s (%s)\n", out.RunID, out.Outcome, out.Duration)
	for _, s := range out.Stages {
		fmt.Fprintf(&b, "  %-10s %d -> %d\n", s.Stage, s.In, s.Out)
	}
	if len(out.Articles) > 0 {
		b.WriteString("Articles:\n")
		for i, title := range out.Articles {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, title)
		}
	}
	if len(out.Dropped) > 0 {
		b.WriteString("Dropped:\n")
		for _, d := range out.Dropped {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", d.Stage, d.ID, d.Reason)
		}
	}
	if out.EbookPath != "" {
		fmt.Fprintf(&b, "E-book: %s\n", out.EbookPath)
	}
	if out.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", out.Error)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

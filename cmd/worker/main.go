// Package main runs the digest pipeline on a cron schedule.
// It serves /health, /health/ready and /metrics while waiting for the next tick.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"ytdigest/internal/app"
	"ytdigest/internal/config"
	workerPkg "ytdigest/internal/infra/worker"
	"ytdigest/internal/observability/logging"
	pkgconfig "ytdigest/internal/pkg/config"
	"ytdigest/internal/usecase/digest"
	envconfig "ytdigest/pkg/config"
)

// pipelineRunner is the part of digest.Service the scheduler needs.
type pipelineRunner interface {
	Run(ctx context.Context) (*digest.Report, error)
}

func main() {
	logger := logging.New(envconfig.GetEnvString("LOG_FORMAT", "json"))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("worker exited with error", logging.ErrorAttr(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics(prometheus.DefaultRegisterer)
	workerConfig, _ := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err := workerConfig.Validate(); err != nil {
		return fmt.Errorf("worker configuration: %w", err)
	}
	loc, err := workerConfig.Location()
	if err != nil {
		return fmt.Errorf("worker timezone: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("run_timeout", workerConfig.RunTimeout),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	// Required keys are checked once at startup.
	digestConfig, err := config.LoadDigestConfig(logger, pkgconfig.NewConfigMetrics("digest", prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}
	svc, err := app.BuildPipeline(ctx, digestConfig, logger)
	if err != nil {
		return fmt.Errorf("build digest pipeline: %w", err)
	}

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)
	metricsServer := newMetricsServer(workerConfig.MetricsPort, prometheus.DefaultGatherer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthServer.Start(gctx) })
	g.Go(func() error { return serveMetrics(gctx, logger, metricsServer) })
	g.Go(func() error {
		return schedule(gctx, logger, svc, workerConfig, loc, workerMetrics, healthServer)
	})

	return g.Wait()
}

// schedule runs the pipeline on cfg.CronSchedule until ctx is cancelled.
// Scheduled ticks and the optional start-up run share one job chain, so at most
// one run is in flight; running jobs are waited for on shutdown.
func schedule(ctx context.Context, logger *slog.Logger, svc pipelineRunner, cfg *workerPkg.WorkerConfig, loc *time.Location, metrics *workerPkg.WorkerMetrics, health *workerPkg.HealthServer) error {
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(cron.WithLocation(loc))

	job := cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).
		Then(cron.FuncJob(func() { runDigestJob(ctx, logger, svc, cfg, metrics, health) }))
	if _, err := c.AddJob(cfg.CronSchedule, job); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	c.Start()

	// Mark as ready after cron is set up
	health.SetReady(true)
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	var startup sync.WaitGroup
	if cfg.RunOnStart {
		logger.Info("running digest on start")
		startup.Add(1)
		go func() {
			defer startup.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	health.SetReady(false)
	logger.Info("worker stopping, waiting for running job")
	<-c.Stop().Done()
	startup.Wait()
	logger.Info("worker stopped")
	return nil
}

// runDigestJob executes a single scheduled run with timeout and error handling.
func runDigestJob(parent context.Context, logger *slog.Logger, svc pipelineRunner, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, health *workerPkg.HealthServer) {
	if parent.Err() != nil {
		return
	}
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(parent, cfg.RunTimeout)
	defer cancel()
	ctx, runID := logging.WithRunID(ctx, logger, "")

	report, err := svc.Run(ctx)
	duration := time.Since(startTime)
	metrics.RecordJobDuration(duration.Seconds())

	status := workerPkg.RunStatus{FinishedAt: time.Now()}
	if report != nil {
		status.Outcome = string(report.Outcome)
		status.Articles = len(report.Articles)
	}

	switch {
	case err != nil:
		// 機密情報をマスクしてログ出力
		status.Error = logging.SanitizeError(err)
		metrics.RecordJobRun("failure")
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error("scheduled digest timed out",
				slog.String("run_id", runID),
				slog.Duration("run_timeout", cfg.RunTimeout))
		}
	case report.Outcome == digest.OutcomeDelivered:
		metrics.RecordJobRun("success")
		metrics.RecordArticlesDelivered(len(report.Articles))
		metrics.RecordLastSuccess()
	default:
		// nothing to send, or no mail account
		metrics.RecordJobRun("skipped")
	}
	health.RecordRun(status)

	logger.Info("scheduled digest finished",
		slog.String("run_id", runID),
		slog.String("outcome", status.Outcome),
		slog.Int("articles", status.Articles),
		slog.Duration("duration", duration))
}

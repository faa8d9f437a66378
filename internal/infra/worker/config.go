// Package worker holds the scheduled-run plumbing: schedule configuration,
// cron job metrics and the health endpoints of the long-running digest worker.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"ytdigest/internal/pkg/config"
	envconfig "ytdigest/pkg/config"
)

// WorkerConfig holds the configuration for the scheduled digest worker.
// It controls when runs fire, how long one may take and where health checks are served.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Example usage:
//
//	cfg, _ := LoadConfigFromEnv(logger, metrics)
//	loc, _ := cfg.Location()
//	c := cron.New(cron.WithLocation(loc))
type WorkerConfig struct {
	// CronSchedule is the five-field cron expression for digest runs.
	// Default: "0 7 * * 1" (Mondays at 07:00)
	CronSchedule string

	// Timezone is the IANA timezone name the schedule is evaluated in.
	// Default: "UTC"
	Timezone string

	// RunTimeout bounds a single digest run, generation included.
	// Range: 1m-4h
	// Default: 45 minutes
	RunTimeout time.Duration

	// HealthPort is the port of the health check HTTP server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int

	// MetricsPort is the port of the Prometheus /metrics server.
	// Range: 1024-65535
	// Default: 9090
	MetricsPort int

	// RunOnStart triggers one run immediately after startup.
	// Default: false
	RunOnStart bool
}

// DefaultConfig returns a WorkerConfig with the default weekly schedule.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "0 7 * * 1", // Mondays at 07:00
		Timezone:     "UTC",
		RunTimeout:   45 * time.Minute,
		HealthPort:   9091,
		MetricsPort:  9090,
	}
}

// Validate checks every field and returns all failures together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.RunTimeout, time.Minute, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health port and metrics port must differ (both %d)", c.HealthPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// Location returns the schedule's time zone.
func (c *WorkerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
// It never returns an error (fail-open strategy). WORKER_METRICS_PORT equal to
// the health port falls back to the default; any remaining clash is left for
// Validate to report.
//
// Environment variables:
//   - CRON_SCHEDULE: Cron expression (default: "0 7 * * 1")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - RUN_TIMEOUT: Duration string, 1m-4h (default: 45m)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
//   - WORKER_METRICS_PORT: Integer 1024-65535 (default: 9090)
//   - RUN_ON_START: Boolean (default: false)
//
// Warning log format:
//
//	logger.Warn("Configuration fallback applied",
//	    slog.String("field", "CronSchedule"),
//	    slog.String("warning", "Invalid CRON_SCHEDULE='bad cron': ..."))
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field, label string, result config.ConfigLoadResult) interface{} {
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(label)
			metrics.RecordFallback(label)
			for _, warning := range result.Warnings {
				logger.Warn("Configuration fallback applied",
					slog.String("field", field),
					slog.String("warning", warning))
			}
		}
		return result.Value
	}

	cfg.CronSchedule = apply("CronSchedule", "cron_schedule",
		config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)).(string)

	cfg.Timezone = apply("Timezone", "timezone",
		config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)).(string)

	cfg.RunTimeout = apply("RunTimeout", "run_timeout",
		config.LoadEnvDuration("RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
			return config.ValidateDuration(d, time.Minute, 4*time.Hour)
		})).(time.Duration)

	cfg.HealthPort = apply("HealthPort", "health_port",
		config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		})).(int)

	cfg.MetricsPort = apply("MetricsPort", "metrics_port",
		config.LoadEnvInt("WORKER_METRICS_PORT", cfg.MetricsPort, func(v int) error {
			if err := config.ValidateIntRange(v, 1024, 65535); err != nil {
				return err
			}
			if v == cfg.HealthPort {
				return fmt.Errorf("port %d is already used by the health server", v)
			}
			return nil
		})).(int)
	cfg.RunOnStart = envconfig.GetEnvBool("RUN_ON_START", false)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}

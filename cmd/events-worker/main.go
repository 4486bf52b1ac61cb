package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinic-scheduler/cmd/mainconfig"
	"github.com/wolfman30/clinic-scheduler/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/database"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/notify"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-scheduler events worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("failed to load AWS config; SQS and SES disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	handler := buildHandler(cfg, awsCfg, logger)
	if len(handler) == 0 {
		logger.Warn("no delivery targets configured; outbox entries will accumulate")
	}

	reg := prometheus.NewRegistry()
	deliverer := events.NewDeliverer(events.NewOutboxStore(pool), handler, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval).
		WithObserver(metrics.NewOutboxMetrics(reg))

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	deliverer.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	logger.Info("events worker stopped")
}

// buildHandler fans each outbox entry out to SQS and the staff notifier,
// skipping whichever is not configured.
func buildHandler(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) events.FanOut {
	var fan events.FanOut
	if pub := bootstrap.BuildSQSPublisher(cfg, awsCfg); pub != nil {
		fan = append(fan, pub)
		logger.Info("outbox SQS delivery enabled", "queue", cfg.EventsQueueURL)
	}
	sender, provider := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	if n := notify.NewAppointmentNotifier(sender, cfg.NotifyEmailTo, logger); n != nil {
		fan = append(fan, n)
		logger.Info("staff email notifications enabled", "provider", provider)
	}
	return fan
}

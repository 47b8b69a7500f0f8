// Command agrotrack serves the ledger and shipment JSON API and runs the
// scheduled ledger reports.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"agrotrack/internal/backend"
	"agrotrack/internal/cli"
	apphttp "agrotrack/internal/http"
	applog "agrotrack/internal/log"
	"agrotrack/internal/scheduler"
	"agrotrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	// Reinstall the logger now that the file config may have set level and format.
	logger = applog.New(applog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	ctx, stop := cli.SignalContext(logger.Logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := result.Close(closeCtx); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	}()

	exporters, err := backend.NewExporters(ctx, cfg, logger.WithComponent(applog.ComponentSheets).Logger)
	if err != nil {
		logger.Error("Failed to initialize exporters", "error", err)
		os.Exit(1)
	}

	var (
		events  services.EventPublisher
		reports services.ReportPublisher
	)
	if client := backend.ConnectAMQP(cfg, logger.WithComponent(applog.ComponentAMQP).Logger); client != nil {
		defer client.Close()
		events, reports = client, client
	}

	loc := cfg.Location()
	clock := services.WithClock(func() time.Time { return time.Now().In(loc) })
	ledger := services.NewLedgerService(result.Store, events, clock)
	shipments := services.NewShipmentService(result.Store, events, clock)
	reporter := services.NewReportService(ledger, reports, exporters.Reports)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		Logger:             logger,
	}, ledger, shipments, result.Store)

	sched := scheduler.NewScheduler(scheduler.Config{
		WeeklySchedule:  cfg.ReportWeeklySchedule,
		MonthlySchedule: cfg.ReportMonthlySchedule,
		Location:        loc,
	}, reporter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting agrotrack server", "port", cfg.Port, "backend", result.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

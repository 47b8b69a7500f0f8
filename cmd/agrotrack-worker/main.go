// Command agrotrack-worker copies recorded transactions to the export sheet.
// It consumes transaction.recorded messages when AMQP is configured and
// sweeps the ledger for unexported rows on a fixed interval either way.
package main

import (
	"context"
	"os"
	"time"

	"agrotrack/internal/amqp"
	"agrotrack/internal/backend"
	"agrotrack/internal/cli"
	applog "agrotrack/internal/log"
	"agrotrack/internal/services"
	"agrotrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger = applog.New(applog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: applog.ComponentWorker})
	applog.SetDefault(logger)
	logger.Info("Starting agrotrack-worker")

	ctx, stop := cli.SignalContext(logger.Logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is private to this process, the worker will only see seeded transactions")
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

	processor := services.NewExportProcessor(result.Store, result.Store, exporters.Ledger, services.ExportProcessorConfig{
		PollInterval: cfg.ExportInterval,
		BatchSize:    cfg.ExportBatchSize,
	})

	var consumer worker.Consumer
	if client := backend.ConnectAMQP(cfg, logger.WithComponent(applog.ComponentAMQP).Logger, amqp.TypeTransactionRecorded); client != nil {
		defer client.Close()
		consumer = client
	} else {
		logger.Info("Running sweep loop only")
	}

	if err := worker.NewExportWorker(processor, consumer).Run(ctx); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

package backend

import (
	"context"
	"fmt"
	"log/slog"

	"agrotrack/internal/amqp"
	"agrotrack/internal/config"
	"agrotrack/internal/sheets"
	gsheet "agrotrack/internal/sheets/google"
	sheetmem "agrotrack/internal/sheets/memory"
	"agrotrack/internal/storage"
	"agrotrack/internal/storage/mongodb"
	"agrotrack/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Type:    SQLiteBackend,
		Store:   repo,
		Cleanup: func(context.Context) error { return repo.Close() },
	}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := mongodb.NewMongoDBRepository(ctx, config.MongoURI, config.MongoDBName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB repository: %w", err)
	}

	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDBName)

	return &BackendResult{
		Type:    MongoBackend,
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	st := memory.New()
	if config.SeedFile != "" {
		var err error
		st, err = memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
	}

	txs, shipments := st.Counts()
	f.logger.Info("Initialized memory backend",
		"seed_file", config.SeedFile,
		"transactions", txs,
		"shipments", shipments)

	return &BackendResult{
		Type:  MemoryBackend,
		Store: st,
	}, nil
}

// Exporters bundles the sheet sinks used by the export worker and reports.
type Exporters struct {
	Ledger  sheets.LedgerExporter
	Reports sheets.ReportExporter
}

// NewExporters returns Google Sheets exporters when a spreadsheet is
// configured and in-memory ones otherwise.
func NewExporters(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Exporters, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("No spreadsheet configured, exporting to memory")
		mem := sheetmem.New()
		return Exporters{Ledger: mem, Reports: mem}, nil
	}
	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return Exporters{}, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := cli.EnsureHeaders(ctx); err != nil {
		logger.Warn("Could not write sheet headers", "error", err)
	}
	logger.Info("Initialized Google Sheets exporter", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return Exporters{Ledger: cli, Reports: cli}, nil
}

// ConnectAMQP dials the broker when AMQP_URL is set. A nil client means
// publishing is disabled; a failed dial is logged and also yields nil.
func ConnectAMQP(cfg *config.Config, logger *slog.Logger, bindings ...string) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, domain events disabled")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, bindings...)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}

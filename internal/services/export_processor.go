package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"agrotrack/internal/core"
	"agrotrack/internal/sheets"
	"agrotrack/internal/store"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to sweep for unexported transactions (default: 5m)
	PollInterval time.Duration

	// BatchSize is the max number of transactions exported per sweep (default: 50)
	BatchSize int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: 5 * time.Minute,
		BatchSize:    50,
	}
}

// ExportProcessor copies ledger transactions to a spreadsheet exactly once each.
// Messages trigger single exports; a periodic sweep catches anything missed.
type ExportProcessor struct {
	ledger   store.LedgerStore
	tracker  store.ExportTracker
	exporter sheets.LedgerExporter
	config   ExportProcessorConfig

	// Serializes exports so a message and a sweep never write the same row twice.
	exportMu sync.Mutex

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(
	ledger store.LedgerStore,
	tracker store.ExportTracker,
	exporter sheets.LedgerExporter,
	config ExportProcessorConfig,
) *ExportProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultExportProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultExportProcessorConfig().BatchSize
	}
	return &ExportProcessor{
		ledger:   ledger,
		tracker:  tracker,
		exporter: exporter,
		config:   config,
	}
}

// ExportTransaction exports one transaction unless it already was.
// It reports whether a row was written.
func (p *ExportProcessor) ExportTransaction(ctx context.Context, id string) (bool, error) {
	p.exportMu.Lock()
	defer p.exportMu.Unlock()

	done, err := p.tracker.IsExported(ctx, id)
	if err != nil {
		return false, err
	}
	if done {
		slog.DebugContext(ctx, "Transaction already exported, skipping", "transaction_id", id)
		return false, nil
	}

	tx, err := p.ledger.GetTransaction(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return true, p.export(ctx, tx)
}

func (p *ExportProcessor) export(ctx context.Context, tx core.Transaction) error {
	ref, err := p.exporter.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}
	if err := p.tracker.MarkExported(ctx, tx.ID, ref); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Exported transaction to Google Sheets",
		"transaction_id", tx.ID,
		"sheets_ref", ref)
	return nil
}

// Sweep exports one batch of pending transactions and returns how many succeeded.
func (p *ExportProcessor) Sweep(ctx context.Context) (int, error) {
	p.exportMu.Lock()
	defer p.exportMu.Unlock()

	pending, err := p.tracker.ListUnexported(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unexported: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.DebugContext(ctx, "Processing export batch", "count", len(pending))

	exported := 0
	for _, tx := range pending {
		if ctx.Err() != nil {
			return exported, ctx.Err()
		}
		if err := p.export(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"transaction_id", tx.ID, "error", err)
			continue
		}
		exported++
	}
	return exported, nil
}

// Start begins the sweep loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
// The processor counts as stopped as soon as Stop is called, so repeated
// calls are no-ops even after a timeout.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stop, done := p.stopCh, p.doneCh
	p.running = false
	p.stopCh = nil
	p.mu.Unlock()

	close(stop)

	select {
	case <-done:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Sweep immediately on startup
	p.sweepAndLog(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepAndLog(ctx)
		}
	}
}

func (p *ExportProcessor) sweepAndLog(ctx context.Context) {
	n, err := p.Sweep(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Export sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Export sweep completed", "exported", n)
	}
}

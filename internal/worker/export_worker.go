// Package worker runs the background side of agrotrack: it consumes
// transaction.recorded messages and copies each transaction to the export
// sheet, with a periodic sweep catching anything the queue missed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"agrotrack/internal/amqp"
	"agrotrack/internal/core"
)

// Exporter is the part of services.ExportProcessor the worker drives.
type Exporter interface {
	ExportTransaction(ctx context.Context, id string) (bool, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Consumer delivers transaction.recorded messages until ctx ends.
type Consumer interface {
	ConsumeTransactionRecorded(ctx context.Context, handler func(context.Context, *amqp.TransactionRecordedMessage) error) error
}

const (
	defaultRetryDelay = 5 * time.Second
	stopTimeout       = 10 * time.Second
)

type ExportWorker struct {
	exporter   Exporter
	consumer   Consumer
	retryDelay time.Duration
}

// NewExportWorker wires an exporter to an optional consumer. Without a
// consumer only the sweep loop runs.
func NewExportWorker(exporter Exporter, consumer Consumer) *ExportWorker {
	return &ExportWorker{
		exporter:   exporter,
		consumer:   consumer,
		retryDelay: defaultRetryDelay,
	}
}

// HandleTransactionRecorded exports the transaction named by msg. A transaction
// that no longer exists is acknowledged so the message is not redelivered forever.
func (w *ExportWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	if msg == nil || msg.TransactionID == "" {
		slog.WarnContext(ctx, "Dropping transaction message without id")
		return nil
	}

	slog.InfoContext(ctx, "Processing transaction message",
		"transaction_id", msg.TransactionID,
		"kind", msg.Kind,
		"amount", msg.Amount)

	wrote, err := w.exporter.ExportTransaction(ctx, msg.TransactionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction not found, acknowledging message",
				"transaction_id", msg.TransactionID)
			return nil
		}
		return fmt.Errorf("export transaction: %w", err)
	}
	if !wrote {
		slog.DebugContext(ctx, "Transaction already exported", "transaction_id", msg.TransactionID)
	}
	return nil
}

// Run starts the sweep loop and, when a consumer is configured, consumes
// messages until ctx is cancelled. Consumer failures are retried after a delay.
func (w *ExportWorker) Run(ctx context.Context) error {
	if err := w.exporter.Start(ctx); err != nil {
		return fmt.Errorf("start export processor: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if w.consumer != nil {
		g.Go(func() error {
			return w.consumeLoop(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return w.exporter.Stop(stopCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *ExportWorker) consumeLoop(ctx context.Context) error {
	for {
		err := w.consumer.ConsumeTransactionRecorded(ctx, w.HandleTransactionRecorded)
		if ctx.Err() != nil {
			return nil
		}
		slog.ErrorContext(ctx, "Message consumption stopped, retrying",
			"error", err,
			"retry_in", w.retryDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}

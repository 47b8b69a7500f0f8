package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agrotrack/internal/core"
)

// EventPublisher announces committed changes to other processes.
// Implemented by amqp.Client; nil disables publishing.
type EventPublisher interface {
	PublishTransactionRecorded(ctx context.Context, tx core.Transaction) error
	PublishShipmentUpdated(ctx context.Context, s core.Shipment, from core.Status) error
}

// ReportPublisher announces generated ledger reports.
type ReportPublisher interface {
	PublishLedgerReport(ctx context.Context, r core.LedgerReport) error
}

// Option customizes a service.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

func defaultOptions() options {
	return options{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides how new entity ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

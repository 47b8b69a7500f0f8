// Package store declares the persistence ports the ledger and shipment
// services depend on. Implementations live in store/memory, storage and
// storage/mongodb.
package store

import (
	"context"

	"agrotrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerStore is an append-only transaction log.
	LedgerStore interface {
		// InsertTransaction appends tx and returns it with its insertion Seq assigned.
		InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)

		// GetTransaction returns a single transaction or a *core.NotFoundError.
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)

		// ListTransactions returns transactions dated within period, most recent
		// first; same-day entries are ordered newest insertion first.
		ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error)
	}

	// ExportTracker records which transactions have been copied to an external sheet.
	// Export state lives beside the ledger, never on the immutable transaction.
	ExportTracker interface {
		// ListUnexported returns up to limit transactions not yet exported, oldest first.
		ListUnexported(ctx context.Context, limit int) ([]core.Transaction, error)

		// IsExported reports whether id already has an export reference.
		IsExported(ctx context.Context, id string) (bool, error)

		// MarkExported stores the external reference for id.
		MarkExported(ctx context.Context, id string, ref string) error
	}

	// ShipmentStore persists shipments together with their timelines.
	// Every method is atomic per shipment.
	ShipmentStore interface {
		CreateShipment(ctx context.Context, s core.Shipment) error

		// GetShipment returns the shipment with its full timeline or a *core.NotFoundError.
		GetShipment(ctx context.Context, id string) (core.Shipment, error)

		// ListShipments returns shipments in creation order. A zero status lists all.
		ListShipments(ctx context.Context, status core.Status) ([]core.Shipment, error)

		// UpdateStatus moves the shipment from `from` to `to` and appends ev in one
		// step. It fails with *core.ConflictError when the stored status is no
		// longer `from`.
		UpdateStatus(ctx context.Context, id string, from, to core.Status, ev core.Event) (core.Shipment, error)

		// AppendEvent adds an informational event without touching the status.
		AppendEvent(ctx context.Context, id string, ev core.Event) (core.Shipment, error)
	}
)

// Health is implemented by stores that can report connectivity.
type Health interface {
	Ping(ctx context.Context) error
}

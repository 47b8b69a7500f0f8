package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"agrotrack/internal/core"
	"agrotrack/internal/store"

	_ "modernc.org/sqlite"
)

// Ensure interface conformance
var (
	_ store.LedgerStore   = (*SQLiteRepository)(nil)
	_ store.ExportTracker = (*SQLiteRepository)(nil)
	_ store.ShipmentStore = (*SQLiteRepository)(nil)
	_ store.Health        = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps transactions serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := MigrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("SQLite schema ready", "path", dbPath, "version", version)

	return NewRepositoryWithDB(db), nil
}

// NewRepositoryWithDB wraps an already open, already migrated database.
func NewRepositoryWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, rolling back on any error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// InsertTransaction implements store.LedgerStore
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	seq, err := r.queries.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	tx.Seq = seq

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"seq", seq,
		"kind", tx.Kind,
		"amount_cents", tx.Amount.Cents,
		"category", tx.Category)

	return tx, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error) {
	txs, err := r.queries.ListTransactions(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// ListUnexported implements store.ExportTracker
func (r *SQLiteRepository) ListUnexported(ctx context.Context, limit int) ([]core.Transaction, error) {
	txs, err := r.queries.ListUnexported(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list unexported transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) IsExported(ctx context.Context, id string) (bool, error) {
	n, err := r.queries.CountExports(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check export of %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id, ref string) error {
	if err := r.queries.UpsertExport(ctx, id, ref, time.Now()); err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as exported", "id", id, "sheets_ref", ref)
	return nil
}

// CreateShipment implements store.ShipmentStore
func (r *SQLiteRepository) CreateShipment(ctx context.Context, s core.Shipment) error {
	err := r.withTx(ctx, func(q *Queries) error {
		if err := q.InsertShipment(ctx, s); err != nil {
			return fmt.Errorf("insert shipment: %w", err)
		}
		for _, ev := range s.Timeline {
			if err := q.InsertEvent(ctx, s.ID, ev); err != nil {
				return fmt.Errorf("insert shipment event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Shipment saved to SQLite", "id", s.ID, "status", s.Status)
	return nil
}

func (r *SQLiteRepository) GetShipment(ctx context.Context, id string) (core.Shipment, error) {
	s, err := r.queries.GetShipment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Shipment{}, &core.NotFoundError{Entity: "shipment", ID: id}
	}
	if err != nil {
		return core.Shipment{}, fmt.Errorf("get shipment by id: %w", err)
	}
	if s.Timeline, err = r.queries.ListEvents(ctx, id); err != nil {
		return core.Shipment{}, fmt.Errorf("list shipment events: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListShipments(ctx context.Context, status core.Status) ([]core.Shipment, error) {
	shipments, err := r.queries.ListShipments(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	events, err := r.queries.ListEventsByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list shipment events: %w", err)
	}
	for i := range shipments {
		shipments[i].Timeline = events[shipments[i].ID]
	}
	return shipments, nil
}

// UpdateStatus moves the shipment only if its stored status still equals from.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, from, to core.Status, ev core.Event) (core.Shipment, error) {
	err := r.withTx(ctx, func(q *Queries) error {
		last, err := q.LastEventTime(ctx, id)
		if err != nil {
			return fmt.Errorf("read last event: %w", err)
		}
		ev.Timestamp = core.NotBefore(ev.Timestamp, last)
		ev.Completed = true

		n, err := q.UpdateShipmentStatus(ctx, id, from, to, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("update shipment status: %w", err)
		}
		if n == 0 {
			return r.missOrConflict(ctx, q, id)
		}
		if err := q.InsertEvent(ctx, id, ev); err != nil {
			return fmt.Errorf("insert shipment event: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Shipment{}, err
	}

	slog.InfoContext(ctx, "Shipment status updated",
		"id", id,
		"status_from", from,
		"status_to", to)

	return r.GetShipment(ctx, id)
}

// missOrConflict explains why a compare-and-set touched no rows.
func (r *SQLiteRepository) missOrConflict(ctx context.Context, q *Queries, id string) error {
	current, err := q.GetShipmentStatus(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Entity: "shipment", ID: id}
	}
	if err != nil {
		return fmt.Errorf("read shipment status: %w", err)
	}
	return &core.ConflictError{
		Entity: "shipment",
		ID:     id,
		Reason: "status changed to " + current.Label() + " concurrently",
	}
}

func (r *SQLiteRepository) AppendEvent(ctx context.Context, id string, ev core.Event) (core.Shipment, error) {
	err := r.withTx(ctx, func(q *Queries) error {
		if _, err := q.GetShipmentStatus(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &core.NotFoundError{Entity: "shipment", ID: id}
			}
			return fmt.Errorf("read shipment status: %w", err)
		}
		last, err := q.LastEventTime(ctx, id)
		if err != nil {
			return fmt.Errorf("read last event: %w", err)
		}
		ev.Timestamp = core.NotBefore(ev.Timestamp, last)
		if err := q.InsertEvent(ctx, id, ev); err != nil {
			return fmt.Errorf("insert shipment event: %w", err)
		}
		if err := q.TouchShipment(ctx, id, ev.Timestamp); err != nil {
			return fmt.Errorf("touch shipment: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Shipment{}, err
	}
	return r.GetShipment(ctx, id)
}

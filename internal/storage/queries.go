package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"agrotrack/internal/core"
)

// timeLayout is how timestamps are stored in TEXT columns.
const timeLayout = time.RFC3339Nano

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL statements of the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const insertTransaction = `INSERT INTO transactions (id, kind, amount_cents, category, description, date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertTransaction,
		tx.ID,
		string(tx.Kind),
		tx.Amount.Cents,
		string(tx.Category),
		tx.Description,
		tx.Date.String(),
		formatTime(tx.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const transactionColumns = `seq, id, kind, amount_cents, category, description, date, created_at`

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE (? = '' OR date >= ?) AND (? = '' OR date <= ?)
ORDER BY date DESC, seq DESC`

func (q *Queries) ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error) {
	start, end := period.Start.String(), period.End.String()
	rows, err := q.db.QueryContext(ctx, listTransactions, start, start, end, end)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const listUnexported = `SELECT ` + transactionColumns + ` FROM transactions
WHERE id NOT IN (SELECT transaction_id FROM transaction_exports)
ORDER BY seq ASC
LIMIT ?`

func (q *Queries) ListUnexported(ctx context.Context, limit int64) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listUnexported, limit)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const countExports = `SELECT COUNT(*) FROM transaction_exports WHERE transaction_id = ?`

func (q *Queries) CountExports(ctx context.Context, id string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countExports, id).Scan(&n)
	return n, err
}

const upsertExport = `INSERT INTO transaction_exports (transaction_id, sheet_ref, exported_at)
VALUES (?, ?, ?)
ON CONFLICT (transaction_id) DO UPDATE SET sheet_ref = excluded.sheet_ref, exported_at = excluded.exported_at`

func (q *Queries) UpsertExport(ctx context.Context, id, ref string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertExport, id, ref, formatTime(at))
	return err
}

const insertShipment = `INSERT INTO shipments (
    id, title, buyer, buyer_contact, transporter, transporter_contact, commodity,
    quantity, unit, weight, value_cents, origin, destination, ship_date,
    estimated_delivery_date, status, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertShipment(ctx context.Context, s core.Shipment) error {
	_, err := q.db.ExecContext(ctx, insertShipment,
		s.ID, s.Title, s.Buyer, s.BuyerContact, s.Transporter, s.TransporterContact, s.Commodity,
		s.Quantity, s.Unit, s.Weight, s.Value.Cents, s.Origin, s.Destination, s.ShipDate.String(),
		s.EstimatedDeliveryDate.String(), string(s.Status), formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	)
	return err
}

const shipmentColumns = `id, title, buyer, buyer_contact, transporter, transporter_contact, commodity,
    quantity, unit, weight, value_cents, origin, destination, ship_date,
    estimated_delivery_date, status, created_at, updated_at`

const getShipment = `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = ?`

func (q *Queries) GetShipment(ctx context.Context, id string) (core.Shipment, error) {
	return scanShipment(q.db.QueryRowContext(ctx, getShipment, id))
}

const listShipments = `SELECT ` + shipmentColumns + ` FROM shipments
WHERE (? = '' OR status = ?)
ORDER BY seq ASC`

func (q *Queries) ListShipments(ctx context.Context, status core.Status) ([]core.Shipment, error) {
	rows, err := q.db.QueryContext(ctx, listShipments, string(status), string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const getShipmentStatus = `SELECT status FROM shipments WHERE id = ?`

func (q *Queries) GetShipmentStatus(ctx context.Context, id string) (core.Status, error) {
	var status string
	err := q.db.QueryRowContext(ctx, getShipmentStatus, id).Scan(&status)
	return core.Status(status), err
}

const updateShipmentStatus = `UPDATE shipments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

// UpdateShipmentStatus is a compare-and-set on status; it reports rows affected.
func (q *Queries) UpdateShipmentStatus(ctx context.Context, id string, from, to core.Status, at time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateShipmentStatus, string(to), formatTime(at), id, string(from))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const touchShipment = `UPDATE shipments SET updated_at = ? WHERE id = ?`

func (q *Queries) TouchShipment(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, touchShipment, formatTime(at), id)
	return err
}

const insertEvent = `INSERT INTO shipment_events (shipment_id, title, description, completed, occurred_at)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertEvent(ctx context.Context, shipmentID string, ev core.Event) error {
	_, err := q.db.ExecContext(ctx, insertEvent, shipmentID, ev.Title, ev.Description, ev.Completed, formatTime(ev.Timestamp))
	return err
}

const lastEventTime = `SELECT occurred_at FROM shipment_events WHERE shipment_id = ? ORDER BY seq DESC LIMIT 1`

// LastEventTime returns the zero time when the shipment has no events.
func (q *Queries) LastEventTime(ctx context.Context, shipmentID string) (time.Time, error) {
	var raw string
	err := q.db.QueryRowContext(ctx, lastEventTime, shipmentID).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(raw)
}

const listEvents = `SELECT shipment_id, title, description, completed, occurred_at FROM shipment_events
WHERE shipment_id = ?
ORDER BY seq ASC`

func (q *Queries) ListEvents(ctx context.Context, shipmentID string) ([]core.Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, shipmentID)
	if err != nil {
		return nil, err
	}
	byShipment, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}
	return byShipment[shipmentID], nil
}

const listEventsByStatus = `SELECT e.shipment_id, e.title, e.description, e.completed, e.occurred_at
FROM shipment_events e
JOIN shipments s ON s.id = e.shipment_id
WHERE (? = '' OR s.status = ?)
ORDER BY e.shipment_id, e.seq ASC`

// ListEventsByStatus loads the timelines of every shipment matching the filter in one query.
func (q *Queries) ListEventsByStatus(ctx context.Context, status core.Status) (map[string][]core.Event, error) {
	rows, err := q.db.QueryContext(ctx, listEventsByStatus, string(status), string(status))
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		tx                       core.Transaction
		kind, category, date, at string
	)
	if err := row.Scan(&tx.Seq, &tx.ID, &kind, &tx.Amount.Cents, &category, &tx.Description, &date, &at); err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = core.Kind(kind)
	tx.Category = core.Category(category)
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s date: %w", tx.ID, err)
	}
	tx.Date = d
	if tx.CreatedAt, err = parseTime(at); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s created_at: %w", tx.ID, err)
	}
	return tx, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanShipment(row scanner) (core.Shipment, error) {
	var (
		s                     core.Shipment
		shipDate, eta, status string
		createdAt, updatedAt  string
	)
	err := row.Scan(
		&s.ID, &s.Title, &s.Buyer, &s.BuyerContact, &s.Transporter, &s.TransporterContact, &s.Commodity,
		&s.Quantity, &s.Unit, &s.Weight, &s.Value.Cents, &s.Origin, &s.Destination, &shipDate,
		&eta, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		return core.Shipment{}, err
	}
	s.Status = core.Status(status)
	if s.ShipDate, err = core.ParseDate(shipDate); err != nil {
		return core.Shipment{}, fmt.Errorf("shipment %s ship_date: %w", s.ID, err)
	}
	if s.EstimatedDeliveryDate, err = core.ParseDate(eta); err != nil {
		return core.Shipment{}, fmt.Errorf("shipment %s estimated_delivery_date: %w", s.ID, err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Shipment{}, fmt.Errorf("shipment %s created_at: %w", s.ID, err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Shipment{}, fmt.Errorf("shipment %s updated_at: %w", s.ID, err)
	}
	return s, nil
}

func collectEvents(rows *sql.Rows) (map[string][]core.Event, error) {
	defer rows.Close()
	out := make(map[string][]core.Event)
	for rows.Next() {
		var (
			shipmentID, at string
			ev             core.Event
		)
		if err := rows.Scan(&shipmentID, &ev.Title, &ev.Description, &ev.Completed, &at); err != nil {
			return nil, err
		}
		ts, err := parseTime(at)
		if err != nil {
			return nil, fmt.Errorf("event of shipment %s: %w", shipmentID, err)
		}
		ev.Timestamp = ts
		out[shipmentID] = append(out[shipmentID], ev)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

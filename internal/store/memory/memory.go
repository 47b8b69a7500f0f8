package memory

import (
	"context"
	"sync"

	"agrotrack/internal/core"
	"agrotrack/internal/store"
)

// Ensure interface conformance
var (
	_ store.LedgerStore   = (*Store)(nil)
	_ store.ExportTracker = (*Store)(nil)
	_ store.ShipmentStore = (*Store)(nil)
	_ store.Health        = (*Store)(nil)
)

// Store keeps the ledger and shipments in process memory.
// The ledger is guarded by one lock; every shipment has its own.
type Store struct {
	ledgerMu sync.RWMutex
	txs      []core.Transaction
	byTxID   map[string]int
	exported map[string]string
	nextSeq  int64

	shipMu    sync.RWMutex
	shipments map[string]*shipmentEntry
	order     []string
}

type shipmentEntry struct {
	mu sync.Mutex
	s  core.Shipment
}

func New() *Store {
	return &Store{
		byTxID:    make(map[string]int),
		exported:  make(map[string]string),
		shipments: make(map[string]*shipmentEntry),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// InsertTransaction appends tx and assigns its Seq.
func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()
	if _, dup := s.byTxID[tx.ID]; dup {
		return core.Transaction{}, &core.ConflictError{Entity: "transaction", ID: tx.ID, Reason: "id already exists"}
	}
	s.nextSeq++
	tx.Seq = s.nextSeq
	s.byTxID[tx.ID] = len(s.txs)
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.ledgerMu.RLock()
	defer s.ledgerMu.RUnlock()
	i, ok := s.byTxID[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return s.txs[i], nil
}

func (s *Store) ListTransactions(_ context.Context, period core.Period) ([]core.Transaction, error) {
	s.ledgerMu.RLock()
	out := core.FilterPeriod(s.txs, period)
	s.ledgerMu.RUnlock()
	core.SortRecentFirst(out)
	return out, nil
}

func (s *Store) ListUnexported(_ context.Context, limit int) ([]core.Transaction, error) {
	s.ledgerMu.RLock()
	defer s.ledgerMu.RUnlock()
	var out []core.Transaction
	for _, tx := range s.txs {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, done := s.exported[tx.ID]; !done {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) IsExported(_ context.Context, id string) (bool, error) {
	s.ledgerMu.RLock()
	defer s.ledgerMu.RUnlock()
	if _, ok := s.byTxID[id]; !ok {
		return false, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	_, done := s.exported[id]
	return done, nil
}

func (s *Store) MarkExported(_ context.Context, id, ref string) error {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()
	if _, ok := s.byTxID[id]; !ok {
		return &core.NotFoundError{Entity: "transaction", ID: id}
	}
	s.exported[id] = ref
	return nil
}

func (s *Store) CreateShipment(_ context.Context, sh core.Shipment) error {
	s.shipMu.Lock()
	defer s.shipMu.Unlock()
	if _, dup := s.shipments[sh.ID]; dup {
		return &core.ConflictError{Entity: "shipment", ID: sh.ID, Reason: "id already exists"}
	}
	s.shipments[sh.ID] = &shipmentEntry{s: sh.Clone()}
	s.order = append(s.order, sh.ID)
	return nil
}

func (s *Store) entry(id string) (*shipmentEntry, error) {
	s.shipMu.RLock()
	e, ok := s.shipments[id]
	s.shipMu.RUnlock()
	if !ok {
		return nil, &core.NotFoundError{Entity: "shipment", ID: id}
	}
	return e, nil
}

func (s *Store) GetShipment(_ context.Context, id string) (core.Shipment, error) {
	e, err := s.entry(id)
	if err != nil {
		return core.Shipment{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), nil
}

func (s *Store) ListShipments(_ context.Context, status core.Status) ([]core.Shipment, error) {
	s.shipMu.RLock()
	entries := make([]*shipmentEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.shipments[id])
	}
	s.shipMu.RUnlock()

	out := make([]core.Shipment, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if status == "" || e.s.Status == status {
			out = append(out, e.s.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}

// UpdateStatus applies the transition only if the shipment is still in `from`.
func (s *Store) UpdateStatus(_ context.Context, id string, from, to core.Status, ev core.Event) (core.Shipment, error) {
	e, err := s.entry(id)
	if err != nil {
		return core.Shipment{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.Status != from {
		return core.Shipment{}, &core.ConflictError{
			Entity: "shipment", ID: id,
			Reason: "status changed to " + e.s.Status.Label() + " concurrently",
		}
	}
	next := e.s.Clone()
	if _, err := next.Advance(to, ev); err != nil {
		return core.Shipment{}, err
	}
	e.s = next
	return next.Clone(), nil
}

func (s *Store) AppendEvent(_ context.Context, id string, ev core.Event) (core.Shipment, error) {
	e, err := s.entry(id)
	if err != nil {
		return core.Shipment{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.Append(ev)
	return e.s.Clone(), nil
}

// Counts reports how many transactions and shipments are held.
func (s *Store) Counts() (transactions, shipments int) {
	s.ledgerMu.RLock()
	transactions = len(s.txs)
	s.ledgerMu.RUnlock()
	s.shipMu.RLock()
	shipments = len(s.order)
	s.shipMu.RUnlock()
	return transactions, shipments
}

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agrotrack/internal/core"
)

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(time.Second)
		return t
	}
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type recordingPublisher struct {
	mu           sync.Mutex
	transactions []string
	shipments    []string
	reports      []string
	err          error
}

func (p *recordingPublisher) PublishTransactionRecorded(_ context.Context, tx core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transactions = append(p.transactions, tx.ID)
	return p.err
}

func (p *recordingPublisher) PublishShipmentUpdated(_ context.Context, s core.Shipment, from core.Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shipments = append(p.shipments, fmt.Sprintf("%s:%s->%s", s.ID, from, s.Status))
	return p.err
}

func (p *recordingPublisher) PublishLedgerReport(_ context.Context, r core.LedgerReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r.Name)
	return p.err
}

type fakeExporter struct {
	mu      sync.Mutex
	rows    []string
	reports []core.LedgerReport
	fail    map[string]bool
}

func (e *fakeExporter) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail[tx.ID] {
		return "", fmt.Errorf("sheets unavailable")
	}
	e.rows = append(e.rows, tx.ID)
	return fmt.Sprintf("Ledger!A%d:G%d", len(e.rows)+1, len(e.rows)+1), nil
}

func (e *fakeExporter) WriteReport(_ context.Context, r core.LedgerReport) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reports = append(e.reports, r)
	return "Reports!A1:C10", nil
}

var testNow = time.Date(2025, 9, 16, 9, 30, 0, 0, time.UTC)

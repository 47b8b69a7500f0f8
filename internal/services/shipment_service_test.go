package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"agrotrack/internal/core"
	applog "agrotrack/internal/log"
	"agrotrack/internal/store/memory"
)

func newShipments(pub EventPublisher) *ShipmentService {
	return NewShipmentService(memory.New(), pub, WithClock(fixedClock(testNow)), WithIDGenerator(sequentialIDs("shp")))
}

func riceInput() core.ShipmentInput {
	return core.ShipmentInput{
		Title:                 "Rice Delivery",
		Buyer:                 "Green Valley Co-op",
		BuyerContact:          "+91 98765 43210",
		Transporter:           "FastTrack Logistics",
		Commodity:             "Basmati Rice",
		Quantity:              50,
		Unit:                  "quintals",
		Weight:                5000,
		Value:                 core.Money{Cents: 25000000},
		Origin:                "Karnal Farm",
		Destination:           "Delhi Market",
		ShipDate:              core.NewDate(2025, 9, 14),
		EstimatedDeliveryDate: core.NewDate(2025, 9, 16),
	}
}

func mustCreate(t *testing.T, svc *ShipmentService) core.Shipment {
	t.Helper()
	sh, err := svc.CreateShipment(context.Background(), riceInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return sh
}

func TestShipmentService_ProgressScenario(t *testing.T) {
	svc := newShipments(nil)
	ctx := context.Background()

	sh := mustCreate(t, svc)
	if sh.Status != core.StatusPending || sh.Status.Progress() != 0.2 {
		t.Fatalf("new shipment should be pending at 0.2, got %s %.1f", sh.Status, sh.Status.Progress())
	}
	if len(sh.Timeline) != 1 || sh.Timeline[0].Title != core.OrderPlacedTitle || !sh.Timeline[0].Completed {
		t.Fatalf("unexpected initial timeline %+v", sh.Timeline)
	}

	sh, err := svc.AdvanceStatus(ctx, sh.ID, core.StatusProcessing, "")
	if err != nil {
		t.Fatalf("advance to processing: %v", err)
	}
	if sh.Status.Progress() != 0.4 {
		t.Fatalf("expected 0.4, got %.1f", sh.Status.Progress())
	}

	_, err = svc.AdvanceStatus(ctx, sh.ID, core.StatusDelivered, "")
	var ite *core.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if ite.From != core.StatusProcessing || ite.To != core.StatusDelivered {
		t.Fatalf("unexpected error details %+v", ite)
	}
	got, _ := svc.GetShipment(ctx, sh.ID)
	if got.Status != core.StatusProcessing || len(got.Timeline) != 2 {
		t.Fatalf("rejected transition must not change shipment: %s with %d events", got.Status, len(got.Timeline))
	}
}

func TestShipmentService_DelayIsReentrant(t *testing.T) {
	svc := newShipments(nil)
	ctx := context.Background()
	sh := mustCreate(t, svc)
	sh, _ = svc.AdvanceStatus(ctx, sh.ID, core.StatusProcessing, "")
	before := len(sh.Timeline)

	for _, to := range []core.Status{core.StatusInTransit, core.StatusDelayed, core.StatusInTransit} {
		var err error
		sh, err = svc.AdvanceStatus(ctx, sh.ID, to, "")
		if err != nil {
			t.Fatalf("advance to %s: %v", to, err)
		}
	}
	if sh.Status != core.StatusInTransit {
		t.Fatalf("expected in transit, got %s", sh.Status)
	}
	if len(sh.Timeline) != before+3 {
		t.Fatalf("each transition should add one event: %d -> %d", before, len(sh.Timeline))
	}
	if sh.Timeline[0].Title != core.OrderPlacedTitle {
		t.Fatalf("first event must stay Order Placed")
	}
	titles := []string{"Shipment Dispatched", "Shipment Delayed", "Delay Cleared"}
	for i, want := range titles {
		if got := sh.Timeline[before+i].Title; got != want {
			t.Fatalf("event %d title = %q, want %q", before+i, got, want)
		}
	}
	for i := 1; i < len(sh.Timeline); i++ {
		if sh.Timeline[i].Timestamp.Before(sh.Timeline[i-1].Timestamp) {
			t.Fatalf("timeline not ascending at %d", i)
		}
	}
}

func TestShipmentService_DeliveredIsTerminal(t *testing.T) {
	svc := newShipments(nil)
	ctx := context.Background()
	sh := mustCreate(t, svc)
	for _, to := range []core.Status{core.StatusProcessing, core.StatusInTransit, core.StatusDelivered} {
		if _, err := svc.AdvanceStatus(ctx, sh.ID, to, ""); err != nil {
			t.Fatalf("advance to %s: %v", to, err)
		}
	}
	for _, to := range core.Statuses() {
		if _, err := svc.AdvanceStatus(ctx, sh.ID, to, ""); !errors.Is(err, core.ErrInvalidTransition) {
			t.Fatalf("delivered -> %s should be rejected, got %v", to, err)
		}
	}
	// Informational notes are still accepted after delivery.
	got, err := svc.AppendEvent(ctx, sh.ID, "Payment Received", "Invoice settled", true)
	if err != nil {
		t.Fatalf("append after delivery: %v", err)
	}
	if got.Status != core.StatusDelivered || got.Timeline[len(got.Timeline)-1].Title != "Payment Received" {
		t.Fatalf("unexpected shipment after note %+v", got)
	}
}

func TestShipmentService_Errors(t *testing.T) {
	svc := newShipments(nil)
	ctx := context.Background()
	sh := mustCreate(t, svc)

	if _, err := svc.AdvanceStatus(ctx, "nope", core.StatusProcessing, ""); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.AdvanceStatus(ctx, sh.ID, "cancelled", ""); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	if _, err := svc.AppendEvent(ctx, sh.ID, "  ", "", false); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for empty title, got %v", err)
	}
	if _, err := svc.AppendEvent(ctx, "nope", "Note", "", false); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ListShipments(ctx, "cancelled"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for unknown filter, got %v", err)
	}
	bad := riceInput()
	bad.EstimatedDeliveryDate = core.NewDate(2025, 9, 1)
	if _, err := svc.CreateShipment(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for eta before ship date, got %v", err)
	}
}

func TestShipmentService_CustomDescription(t *testing.T) {
	svc := newShipments(nil)
	ctx := context.Background()
	sh := mustCreate(t, svc)
	sh, _ = svc.AdvanceStatus(ctx, sh.ID, core.StatusProcessing, "  Quality check passed  ")
	if got := sh.Timeline[1].Description; got != "Quality check passed" {
		t.Fatalf("description = %q", got)
	}
	sh, _ = svc.AdvanceStatus(ctx, sh.ID, core.StatusDelayed, "")
	if got := sh.Timeline[2].Description; got != core.TransitionDescription(core.StatusProcessing, core.StatusDelayed) {
		t.Fatalf("default description = %q", got)
	}
}

func TestShipmentService_ConcurrentAdvance(t *testing.T) {
	svc := newShipments(nil)
	ctx := context.Background()
	sh := mustCreate(t, svc)

	const callers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdvanceStatus(ctx, sh.ID, core.StatusProcessing, "")
			switch {
			case err == nil:
				mu.Lock()
				wins++
				mu.Unlock()
			case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrInvalidTransition):
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one committed transition, got %d", wins)
	}
	got, _ := svc.GetShipment(ctx, sh.ID)
	if len(got.Timeline) != 2 {
		t.Fatalf("expected a single Processing event, got %d events", len(got.Timeline))
	}
}

func TestShipmentService_ParallelShipments(t *testing.T) {
	svc := newShipments(nil)
	ctx := context.Background()
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = mustCreate(t, svc).ID
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for _, to := range []core.Status{core.StatusProcessing, core.StatusInTransit, core.StatusDelivered} {
				if _, err := svc.AdvanceStatus(ctx, id, to, ""); err != nil {
					t.Errorf("advance %s to %s: %v", id, to, err)
				}
			}
		}(id)
	}
	wg.Wait()

	delivered, err := svc.ListShipments(ctx, core.StatusDelivered)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(delivered) != len(ids) {
		t.Fatalf("expected %d delivered, got %d", len(ids), len(delivered))
	}
	for i, s := range delivered {
		if s.ID != ids[i] {
			t.Fatalf("list must keep creation order")
		}
	}
}

func TestShipmentService_Publishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newShipments(pub)
	ctx := context.Background()
	sh := mustCreate(t, svc)
	_, _ = svc.AdvanceStatus(ctx, sh.ID, core.StatusProcessing, "")
	_, _ = svc.AdvanceStatus(ctx, sh.ID, core.StatusDelivered, "")
	if _, err := svc.AppendEvent(ctx, sh.ID, "Buyer notified", "", true); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Informational events carry no prior status.
	want := []string{"shp-1:->pending", "shp-1:pending->processing", "shp-1:->processing"}
	if len(pub.shipments) != len(want) {
		t.Fatalf("published %v, want %v", pub.shipments, want)
	}
	for i := range want {
		if pub.shipments[i] != want[i] {
			t.Fatalf("published %v, want %v", pub.shipments, want)
		}
	}
}

func TestSummarizeProjection(t *testing.T) {
	svc := newShipments(nil)
	ctx := context.Background()
	sh := mustCreate(t, svc)
	sh, _ = svc.AdvanceStatus(ctx, sh.ID, core.StatusProcessing, "")

	sum := Summarize(sh)
	if sum.ProgressPercent != 40 || sum.Progress != 0.4 {
		t.Fatalf("unexpected progress %+v", sum)
	}
	if len(sum.AllowedTransitions) != 2 || sum.AllowedTransitions[0] != core.StatusInTransit {
		t.Fatalf("unexpected allowed transitions %v", sum.AllowedTransitions)
	}
	if sum.LastEvent.Title != "Processing Started" {
		t.Fatalf("unexpected last event %+v", sum.LastEvent)
	}

	list, _ := svc.ListShipments(ctx, "")
	counts := ShipmentCounts(list)
	if counts[core.StatusProcessing] != 1 || counts[core.StatusDelivered] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestShipmentService_LogsTransitionFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := applog.WithLogger(context.Background(), applog.New(applog.Config{Format: "json", Output: &buf}))
	svc := newShipments(nil)

	sh, err := svc.CreateShipment(ctx, riceInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	buf.Reset()
	if _, err := svc.AdvanceStatus(ctx, sh.ID, core.StatusProcessing, ""); err != nil {
		t.Fatalf("advance: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("not JSON: %v (%s)", err, buf.String())
	}
	want := map[string]any{
		applog.FieldComponent:  applog.ComponentShipment,
		applog.FieldOperation:  applog.OpAdvance,
		applog.FieldShipmentID: sh.ID,
		applog.FieldStatusFrom: "pending",
		applog.FieldStatusTo:   "processing",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v (record %v)", k, rec[k], v, rec)
		}
	}
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"agrotrack/internal/core"
)

// SeedFile is the YAML layout accepted by NewFromFile.
type SeedFile struct {
	Transactions []SeedTransaction `yaml:"transactions"`
	Shipments    []SeedShipment    `yaml:"shipments"`
}

type SeedTransaction struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"kind"`
	Amount      string `yaml:"amount"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Date        string `yaml:"date"`
}

type SeedShipment struct {
	ID                    string      `yaml:"id"`
	Title                 string      `yaml:"title"`
	Buyer                 string      `yaml:"buyer"`
	BuyerContact          string      `yaml:"buyer_contact"`
	Transporter           string      `yaml:"transporter"`
	TransporterContact    string      `yaml:"transporter_contact"`
	Commodity             string      `yaml:"commodity"`
	Quantity              float64     `yaml:"quantity"`
	Unit                  string      `yaml:"unit"`
	Weight                float64     `yaml:"weight"`
	Value                 string      `yaml:"value"`
	Origin                string      `yaml:"origin"`
	Destination           string      `yaml:"destination"`
	ShipDate              string      `yaml:"ship_date"`
	EstimatedDeliveryDate string      `yaml:"estimated_delivery_date"`
	Status                string      `yaml:"status"`
	Events                []SeedEvent `yaml:"events"`
}

type SeedEvent struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Completed   bool   `yaml:"completed"`
}

// NewFromFile builds a store seeded from a YAML file. A missing file yields
// an empty store; a malformed one is an error.
func NewFromFile(path string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if err := s.Load(context.Background(), seed, time.Now()); err != nil {
		return nil, fmt.Errorf("load seed file %s: %w", path, err)
	}
	return s, nil
}

// Load inserts the seed records through the normal validation paths.
func (s *Store) Load(ctx context.Context, seed SeedFile, now time.Time) error {
	for i, st := range seed.Transactions {
		tx, err := st.toTransaction(i, now)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if _, err := s.InsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	for i, ss := range seed.Shipments {
		sh, err := ss.toShipment(i, now)
		if err != nil {
			return fmt.Errorf("shipment %d: %w", i, err)
		}
		if err := s.CreateShipment(ctx, sh); err != nil {
			return fmt.Errorf("shipment %d: %w", i, err)
		}
	}
	return nil
}

func (st SeedTransaction) toTransaction(i int, now time.Time) (core.Transaction, error) {
	kind, err := core.ParseKind(st.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	cat, err := core.ParseCategory(kind, st.Category)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseMoney(st.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(st.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	id := st.ID
	if id == "" {
		id = fmt.Sprintf("seed-tx-%d", i+1)
	}
	return core.NewTransaction(id, core.TransactionInput{
		Kind:        kind,
		Amount:      amount,
		Category:    cat,
		Description: st.Description,
		Date:        date,
	}, now)
}

func (ss SeedShipment) toShipment(i int, now time.Time) (core.Shipment, error) {
	value, err := core.ParseMoney(ss.Value)
	if err != nil {
		return core.Shipment{}, err
	}
	shipDate, err := core.ParseDate(ss.ShipDate)
	if err != nil {
		return core.Shipment{}, err
	}
	eta, err := core.ParseDate(ss.EstimatedDeliveryDate)
	if err != nil {
		return core.Shipment{}, err
	}
	target := core.StatusPending
	if ss.Status != "" {
		if target, err = core.ParseStatus(ss.Status); err != nil {
			return core.Shipment{}, err
		}
	}
	id := ss.ID
	if id == "" {
		id = fmt.Sprintf("seed-shp-%d", i+1)
	}
	sh, err := core.NewShipment(id, core.ShipmentInput{
		Title:                 ss.Title,
		Buyer:                 ss.Buyer,
		BuyerContact:          ss.BuyerContact,
		Transporter:           ss.Transporter,
		TransporterContact:    ss.TransporterContact,
		Commodity:             ss.Commodity,
		Quantity:              ss.Quantity,
		Unit:                  ss.Unit,
		Weight:                ss.Weight,
		Value:                 value,
		Origin:                ss.Origin,
		Destination:           ss.Destination,
		ShipDate:              shipDate,
		EstimatedDeliveryDate: eta,
	}, now)
	if err != nil {
		return core.Shipment{}, err
	}
	// Walk the lifecycle graph so seeded timelines look like real history.
	for _, next := range pathTo(core.StatusPending, target) {
		ts := sh.LastEventAt().Add(time.Minute)
		if _, err := sh.Advance(next, core.Event{
			Title:       core.TransitionTitle(sh.Status, next),
			Timestamp:   ts,
			Description: core.TransitionDescription(sh.Status, next),
		}); err != nil {
			return core.Shipment{}, err
		}
	}
	for _, ev := range ss.Events {
		sh.Append(core.Event{
			Title:       ev.Title,
			Timestamp:   sh.LastEventAt().Add(time.Minute),
			Description: ev.Description,
			Completed:   ev.Completed,
		})
	}
	return sh, nil
}

// pathTo returns the shortest sequence of statuses leading from one status to another.
func pathTo(from, to core.Status) []core.Status {
	if from == to {
		return nil
	}
	prev := map[core.Status]core.Status{from: ""}
	queue := []core.Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range cur.AllowedTransitions() {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []core.Status
				for at := to; at != from; at = prev[at] {
					path = append([]core.Status{at}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agrotrack/internal/core"
	"agrotrack/internal/store"
)

// Ensure interface conformance
var (
	_ store.LedgerStore   = (*MongoDBRepository)(nil)
	_ store.ExportTracker = (*MongoDBRepository)(nil)
	_ store.ShipmentStore = (*MongoDBRepository)(nil)
	_ store.Health        = (*MongoDBRepository)(nil)
)

const (
	transactionsColl = "transactions"
	exportsColl      = "transaction_exports"
	shipmentsColl    = "shipments"
	countersColl     = "counters"

	maxTimelineAttempts = 3
)

// MongoDBRepository stores the ledger and shipments in MongoDB.
// Shipment timelines are embedded in the shipment document.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDBRepository connects, pings and ensures indexes.
func NewMongoDBRepository(ctx context.Context, uri, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := NewRepositoryWithDatabase(client.Database(dbName))
	r.client = client
	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", dbName)
	return r, nil
}

// NewRepositoryWithDatabase wraps an existing database handle.
func NewRepositoryWithDatabase(db *mongo.Database) *MongoDBRepository {
	return &MongoDBRepository{client: db.Client(), db: db}
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(transactionsColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: -1}, {Key: "seq", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create transactions index: %w", err)
	}
	_, err = r.db.Collection(shipmentsColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create shipments index: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// nextSeq atomically increments the named counter.
func (r *MongoDBRepository) nextSeq(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.db.Collection(countersColl).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s counter: %w", name, err)
	}
	return counter.Seq, nil
}

type transactionDoc struct {
	ID          string    `bson:"_id"`
	Seq         int64     `bson:"seq"`
	Kind        string    `bson:"kind"`
	AmountCents int64     `bson:"amount_cents"`
	Category    string    `bson:"category"`
	Description string    `bson:"description"`
	Date        string    `bson:"date"`
	CreatedAt   time.Time `bson:"created_at"`
}

func toTransactionDoc(tx core.Transaction) transactionDoc {
	return transactionDoc{
		ID:          tx.ID,
		Seq:         tx.Seq,
		Kind:        string(tx.Kind),
		AmountCents: tx.Amount.Cents,
		Category:    string(tx.Category),
		Description: tx.Description,
		Date:        tx.Date.String(),
		CreatedAt:   tx.CreatedAt,
	}
}

func (d transactionDoc) toCore() (core.Transaction, error) {
	date, err := core.ParseDate(d.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s date: %w", d.ID, err)
	}
	return core.Transaction{
		ID:          d.ID,
		Kind:        core.Kind(d.Kind),
		Amount:      core.Money{Cents: d.AmountCents},
		Category:    core.Category(d.Category),
		Description: d.Description,
		Date:        date,
		Seq:         d.Seq,
		CreatedAt:   d.CreatedAt.UTC(),
	}, nil
}

func (r *MongoDBRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	seq, err := r.nextSeq(ctx, transactionsColl)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Seq = seq
	if _, err := r.db.Collection(transactionsColl).InsertOne(ctx, toTransactionDoc(tx)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.Transaction{}, &core.ConflictError{Entity: "transaction", ID: tx.ID, Reason: "id already exists"}
		}
		return core.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to MongoDB",
		"id", tx.ID,
		"seq", seq,
		"amount_cents", tx.Amount.Cents)

	return tx, nil
}

func (r *MongoDBRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var doc transactionDoc
	err := r.db.Collection(transactionsColl).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return doc.toCore()
}

func periodFilter(p core.Period) bson.M {
	filter := bson.M{}
	date := bson.M{}
	if !p.Start.IsZero() {
		date["$gte"] = p.Start.String()
	}
	if !p.End.IsZero() {
		date["$lte"] = p.End.String()
	}
	if len(date) > 0 {
		filter["date"] = date
	}
	return filter
}

func (r *MongoDBRepository) ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "seq", Value: -1}})
	cur, err := r.db.Collection(transactionsColl).Find(ctx, periodFilter(period), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return decodeTransactions(ctx, cur)
}

func decodeTransactions(ctx context.Context, cur *mongo.Cursor) ([]core.Transaction, error) {
	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		tx, err := d.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *MongoDBRepository) ListUnexported(ctx context.Context, limit int) ([]core.Transaction, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "seq", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         exportsColl,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "export",
		}}},
		{{Key: "$match", Value: bson.M{"export": bson.M{"$size": 0}}}},
		{{Key: "$project", Value: bson.M{"export": 0}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(limit)}})
	}
	cur, err := r.db.Collection(transactionsColl).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list unexported transactions: %w", err)
	}
	return decodeTransactions(ctx, cur)
}

func (r *MongoDBRepository) IsExported(ctx context.Context, id string) (bool, error) {
	n, err := r.db.Collection(exportsColl).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to check export of %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *MongoDBRepository) MarkExported(ctx context.Context, id, ref string) error {
	_, err := r.db.Collection(exportsColl).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"sheet_ref": ref, "exported_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to mark transaction exported: %w", err)
	}
	return nil
}

type eventDoc struct {
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Completed   bool      `bson:"completed"`
	Timestamp   time.Time `bson:"timestamp"`
}

type shipmentDoc struct {
	ID                    string     `bson:"_id"`
	Seq                   int64      `bson:"seq"`
	Title                 string     `bson:"title"`
	Buyer                 string     `bson:"buyer"`
	BuyerContact          string     `bson:"buyer_contact"`
	Transporter           string     `bson:"transporter"`
	TransporterContact    string     `bson:"transporter_contact"`
	Commodity             string     `bson:"commodity"`
	Quantity              float64    `bson:"quantity"`
	Unit                  string     `bson:"unit"`
	Weight                float64    `bson:"weight"`
	ValueCents            int64      `bson:"value_cents"`
	Origin                string     `bson:"origin"`
	Destination           string     `bson:"destination"`
	ShipDate              string     `bson:"ship_date"`
	EstimatedDeliveryDate string     `bson:"estimated_delivery_date"`
	Status                string     `bson:"status"`
	Timeline              []eventDoc `bson:"timeline"`
	CreatedAt             time.Time  `bson:"created_at"`
	UpdatedAt             time.Time  `bson:"updated_at"`
}

func toEventDoc(ev core.Event) eventDoc {
	return eventDoc{
		Title:       ev.Title,
		Description: ev.Description,
		Completed:   ev.Completed,
		Timestamp:   ev.Timestamp.UTC(),
	}
}

func toShipmentDoc(s core.Shipment, seq int64) shipmentDoc {
	doc := shipmentDoc{
		ID:                    s.ID,
		Seq:                   seq,
		Title:                 s.Title,
		Buyer:                 s.Buyer,
		BuyerContact:          s.BuyerContact,
		Transporter:           s.Transporter,
		TransporterContact:    s.TransporterContact,
		Commodity:             s.Commodity,
		Quantity:              s.Quantity,
		Unit:                  s.Unit,
		Weight:                s.Weight,
		ValueCents:            s.Value.Cents,
		Origin:                s.Origin,
		Destination:           s.Destination,
		ShipDate:              s.ShipDate.String(),
		EstimatedDeliveryDate: s.EstimatedDeliveryDate.String(),
		Status:                string(s.Status),
		Timeline:              make([]eventDoc, 0, len(s.Timeline)),
		CreatedAt:             s.CreatedAt.UTC(),
		UpdatedAt:             s.UpdatedAt.UTC(),
	}
	for _, ev := range s.Timeline {
		doc.Timeline = append(doc.Timeline, toEventDoc(ev))
	}
	return doc
}

func (d shipmentDoc) toCore() (core.Shipment, error) {
	shipDate, err := core.ParseDate(d.ShipDate)
	if err != nil {
		return core.Shipment{}, fmt.Errorf("shipment %s ship_date: %w", d.ID, err)
	}
	eta, err := core.ParseDate(d.EstimatedDeliveryDate)
	if err != nil {
		return core.Shipment{}, fmt.Errorf("shipment %s estimated_delivery_date: %w", d.ID, err)
	}
	s := core.Shipment{
		ID:                    d.ID,
		Title:                 d.Title,
		Buyer:                 d.Buyer,
		BuyerContact:          d.BuyerContact,
		Transporter:           d.Transporter,
		TransporterContact:    d.TransporterContact,
		Commodity:             d.Commodity,
		Quantity:              d.Quantity,
		Unit:                  d.Unit,
		Weight:                d.Weight,
		Value:                 core.Money{Cents: d.ValueCents},
		Origin:                d.Origin,
		Destination:           d.Destination,
		ShipDate:              shipDate,
		EstimatedDeliveryDate: eta,
		Status:                core.Status(d.Status),
		CreatedAt:             d.CreatedAt.UTC(),
		UpdatedAt:             d.UpdatedAt.UTC(),
	}
	for _, ev := range d.Timeline {
		s.Timeline = append(s.Timeline, core.Event{
			Title:       ev.Title,
			Timestamp:   ev.Timestamp.UTC(),
			Description: ev.Description,
			Completed:   ev.Completed,
		})
	}
	return s, nil
}

func (r *MongoDBRepository) CreateShipment(ctx context.Context, s core.Shipment) error {
	seq, err := r.nextSeq(ctx, shipmentsColl)
	if err != nil {
		return err
	}
	if _, err := r.db.Collection(shipmentsColl).InsertOne(ctx, toShipmentDoc(s, seq)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &core.ConflictError{Entity: "shipment", ID: s.ID, Reason: "id already exists"}
		}
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	slog.InfoContext(ctx, "Shipment saved to MongoDB", "id", s.ID, "status", s.Status)
	return nil
}

func (r *MongoDBRepository) GetShipment(ctx context.Context, id string) (core.Shipment, error) {
	var doc shipmentDoc
	err := r.db.Collection(shipmentsColl).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Shipment{}, &core.NotFoundError{Entity: "shipment", ID: id}
	}
	if err != nil {
		return core.Shipment{}, fmt.Errorf("failed to get shipment: %w", err)
	}
	return doc.toCore()
}

func (r *MongoDBRepository) ListShipments(ctx context.Context, status core.Status) ([]core.Shipment, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	cur, err := r.db.Collection(shipmentsColl).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	var docs []shipmentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode shipments: %w", err)
	}
	out := make([]core.Shipment, 0, len(docs))
	for _, d := range docs {
		s, err := d.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// UpdateStatus is a compare-and-set: the update filter carries the expected
// status and the timeline length the event timestamp was clamped against.
// A timeline that grew in between is retried; a status that moved is a conflict.
func (r *MongoDBRepository) UpdateStatus(ctx context.Context, id string, from, to core.Status, ev core.Event) (core.Shipment, error) {
	for attempt := 0; attempt < maxTimelineAttempts; attempt++ {
		current, err := r.GetShipment(ctx, id)
		if err != nil {
			return core.Shipment{}, err
		}
		if current.Status != from {
			return core.Shipment{}, statusConflict(id, current.Status)
		}

		e := ev
		e.Timestamp = core.NotBefore(ev.Timestamp, current.LastEventAt())
		e.Completed = true

		res, err := r.db.Collection(shipmentsColl).UpdateOne(ctx,
			timelineGuard(id, current, bson.M{"status": string(from)}),
			bson.M{
				"$set":  bson.M{"status": string(to), "updated_at": e.Timestamp.UTC()},
				"$push": bson.M{"timeline": toEventDoc(e)},
			},
		)
		if err != nil {
			return core.Shipment{}, fmt.Errorf("failed to update shipment status: %w", err)
		}
		if res.MatchedCount == 1 {
			slog.InfoContext(ctx, "Shipment status updated",
				"id", id,
				"status_from", from,
				"status_to", to)
			return r.GetShipment(ctx, id)
		}
	}
	return core.Shipment{}, timelineConflict(id)
}

// AppendEvent pushes ev under the same timeline-length guard as UpdateStatus.
func (r *MongoDBRepository) AppendEvent(ctx context.Context, id string, ev core.Event) (core.Shipment, error) {
	for attempt := 0; attempt < maxTimelineAttempts; attempt++ {
		current, err := r.GetShipment(ctx, id)
		if err != nil {
			return core.Shipment{}, err
		}

		e := ev
		e.Timestamp = core.NotBefore(ev.Timestamp, current.LastEventAt())

		update := bson.M{"$push": bson.M{"timeline": toEventDoc(e)}}
		if e.Timestamp.After(current.UpdatedAt) {
			update["$set"] = bson.M{"updated_at": e.Timestamp.UTC()}
		}
		res, err := r.db.Collection(shipmentsColl).UpdateOne(ctx, timelineGuard(id, current, nil), update)
		if err != nil {
			return core.Shipment{}, fmt.Errorf("failed to append shipment event: %w", err)
		}
		if res.MatchedCount == 1 {
			return r.GetShipment(ctx, id)
		}
	}
	return core.Shipment{}, timelineConflict(id)
}

// timelineGuard matches the shipment only while its timeline still has the
// length observed in current.
func timelineGuard(id string, current core.Shipment, extra bson.M) bson.M {
	filter := bson.M{"_id": id, "timeline": bson.M{"$size": len(current.Timeline)}}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}

func statusConflict(id string, now core.Status) error {
	return &core.ConflictError{
		Entity: "shipment",
		ID:     id,
		Reason: "status changed to " + now.Label() + " concurrently",
	}
}

func timelineConflict(id string) error {
	return &core.ConflictError{
		Entity: "shipment",
		ID:     id,
		Reason: "timeline kept changing concurrently",
	}
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrotrack/internal/core"
	applog "agrotrack/internal/log"
	"agrotrack/internal/store"
)

// ShipmentService drives shipments through their lifecycle.
type ShipmentService struct {
	store     store.ShipmentStore
	publisher EventPublisher
	now       func() time.Time
	newID     func() string
}

func NewShipmentService(st store.ShipmentStore, publisher EventPublisher, opts ...Option) *ShipmentService {
	o := buildOptions(opts)
	return &ShipmentService{
		store:     st,
		publisher: publisher,
		now:       o.now,
		newID:     o.newID,
	}
}

// CreateShipment stores a new Pending shipment with its "Order Placed" event.
func (s *ShipmentService) CreateShipment(ctx context.Context, in core.ShipmentInput) (core.Shipment, error) {
	sh, err := core.NewShipment(s.newID(), in, s.now())
	if err != nil {
		return core.Shipment{}, err
	}
	if err := s.store.CreateShipment(ctx, sh); err != nil {
		return core.Shipment{}, fmt.Errorf("save shipment: %w", err)
	}

	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithShipment(sh.ID, "", string(sh.Status))
	logger(ctx).InfoContext(ctx, "Shipment created",
		append(fields.ToSlice(), "buyer", sh.Buyer, "commodity", sh.Commodity)...)

	s.publish(ctx, sh, "")
	return sh, nil
}

// AdvanceStatus moves a shipment along one edge of the lifecycle graph and
// records the matching timeline event. An empty description gets a default.
//
// The edge is checked against the status read here; the store then commits
// only if that status is still current, so two racing callers cannot both
// apply a transition from the same prior state.
func (s *ShipmentService) AdvanceStatus(ctx context.Context, id string, to core.Status, description string) (core.Shipment, error) {
	if !to.Valid() {
		return core.Shipment{}, core.ErrInvalidStatus
	}
	if len(description) > core.MaxDescriptionLength {
		return core.Shipment{}, core.ErrDescriptionTooLong
	}

	current, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return core.Shipment{}, err
	}
	from := current.Status
	if !core.CanTransition(from, to) {
		logger(ctx).WarnContext(ctx, "Rejected shipment transition",
			applog.NewFields().WithOperation(applog.OpAdvance).WithShipment(id, string(from), string(to)).ToSlice()...)
		return core.Shipment{}, &core.InvalidTransitionError{ShipmentID: id, From: from, To: to}
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = core.TransitionDescription(from, to)
	}
	ev := core.Event{
		Title:       core.TransitionTitle(from, to),
		Timestamp:   s.now().UTC(),
		Description: description,
		Completed:   true,
	}

	updated, err := s.store.UpdateStatus(ctx, id, from, to, ev)
	if err != nil {
		return core.Shipment{}, err
	}

	logger(ctx).InfoContext(ctx, "Shipment status advanced",
		applog.NewFields().WithOperation(applog.OpAdvance).WithShipment(id, string(from), string(to)).ToSlice()...)

	s.publish(ctx, updated, from)
	return updated, nil
}

// AppendEvent adds an informational timeline entry; the status is unchanged.
func (s *ShipmentService) AppendEvent(ctx context.Context, id, title, description string, completed bool) (core.Shipment, error) {
	ev := core.Event{
		Title:       strings.TrimSpace(title),
		Timestamp:   s.now().UTC(),
		Description: strings.TrimSpace(description),
		Completed:   completed,
	}
	if err := ev.Validate(); err != nil {
		return core.Shipment{}, err
	}
	updated, err := s.store.AppendEvent(ctx, id, ev)
	if err != nil {
		return core.Shipment{}, err
	}
	fields := applog.NewFields().
		WithOperation(applog.OpAppend).
		WithShipment(id, "", string(updated.Status))
	logger(ctx).InfoContext(ctx, "Shipment event appended", append(fields.ToSlice(), "title", ev.Title)...)
	// An informational event is not a transition, so there is no prior status.
	s.publish(ctx, updated, "")
	return updated, nil
}

func (s *ShipmentService) GetShipment(ctx context.Context, id string) (core.Shipment, error) {
	return s.store.GetShipment(ctx, id)
}

// ListShipments returns shipments in creation order. A zero status lists all.
func (s *ShipmentService) ListShipments(ctx context.Context, status core.Status) ([]core.Shipment, error) {
	if status != "" && !status.Valid() {
		return nil, core.ErrInvalidStatus
	}
	list, err := s.store.ListShipments(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	if list == nil {
		list = []core.Shipment{}
	}
	return list, nil
}

func (s *ShipmentService) publish(ctx context.Context, sh core.Shipment, from core.Status) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishShipmentUpdated(ctx, sh, from); err != nil {
		logger(ctx).ErrorContext(ctx, "Failed to publish shipment message",
			applog.NewFields().WithShipment(sh.ID, string(from), string(sh.Status)).WithError(err, applog.ErrorTypeInternal).ToSlice()...)
	}
}

func logger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentShipment)
}

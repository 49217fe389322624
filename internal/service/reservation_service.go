// Package service implements the reservation lifecycle: creation with
// availability checks and pricing, updates, status transitions and the
// query surface over the reservation set.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/lodging-reservation/internal/apperror"
	"github.com/iliyamo/lodging-reservation/internal/client"
	"github.com/iliyamo/lodging-reservation/internal/clock"
	"github.com/iliyamo/lodging-reservation/internal/metrics"
	"github.com/iliyamo/lodging-reservation/internal/model"
	"github.com/iliyamo/lodging-reservation/internal/queue"
)

// ReservationStore persists reservations.  FindConflicting must only return
// PENDING and CONFIRMED reservations.  Save is expected to re-check overlaps
// atomically with the write and return a conflict error when another active
// reservation took the room in the meantime; the check performed by the
// service is only a fast path.
type ReservationStore interface {
	Save(ctx context.Context, r model.Reservation) (model.Reservation, error)
	FindByID(ctx context.Context, id uint64) (model.Reservation, error)
	FindAll(ctx context.Context) ([]model.Reservation, error)
	FindConflicting(ctx context.Context, roomID uint64, start, end time.Time) ([]model.Reservation, error)
	FindByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error)
	FindByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error)
	FindActiveByRoom(ctx context.Context, roomID uint64, from time.Time) ([]model.Reservation, error)
	FindByStatus(ctx context.Context, status model.Status) ([]model.Reservation, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]model.Reservation, error)
	FindByCheckIn(ctx context.Context, day time.Time) ([]model.Reservation, error)
	FindByCheckOut(ctx context.Context, day time.Time) ([]model.Reservation, error)
	Delete(ctx context.Context, id uint64) error
}

// EventPublisher receives lifecycle events after each committed change.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, queue.ReservationEvent) error { return nil }

// Option customises a ReservationService.
type Option func(*ReservationService)

// WithClock overrides the clock used to decide what "today" is.
func WithClock(c clock.Clock) Option {
	return func(s *ReservationService) { s.clock = c }
}

// WithEvents sets the publisher used for lifecycle events.
func WithEvents(p EventPublisher) Option {
	return func(s *ReservationService) { s.events = p }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *ReservationService) { s.log = l }
}

// ReservationService coordinates the store with the room catalog and the
// customer directory.  Each method is its own unit of work; inputs and
// results are value snapshots.
type ReservationService struct {
	store     ReservationStore
	rooms     client.RoomCatalog
	customers client.CustomerDirectory
	events    EventPublisher
	clock     clock.Clock
	log       *slog.Logger
}

// NewReservationService wires a service.  Without options it uses the
// system clock, the default logger and drops events.
func NewReservationService(store ReservationStore, rooms client.RoomCatalog, customers client.CustomerDirectory, opts ...Option) *ReservationService {
	s := &ReservationService{
		store:     store,
		rooms:     rooms,
		customers: customers,
		events:    noopPublisher{},
		clock:     clock.NewSystem(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is the request to book a room.  Status may be empty, in which
// case the reservation starts as PENDING.
type CreateInput struct {
	CustomerID uint64
	RoomID     uint64
	StartDate  time.Time
	EndDate    time.Time
	Status     model.Status
}

// UpdateInput replaces the customer, room and dates of a reservation.
// Status is never changed by an update; use ChangeStatus.
type UpdateInput struct {
	CustomerID uint64
	RoomID     uint64
	StartDate  time.Time
	EndDate    time.Time
}

// TransitionResult is the outcome of a committed status change.
// CatalogSyncErr is set when the room catalog could not be told about the
// new availability; the status change itself is already persisted.
type TransitionResult struct {
	Reservation    model.Reservation
	CatalogSyncErr error
}

func (s *ReservationService) today() time.Time { return model.Day(s.clock.Now()) }

// observe counts an operation outcome and passes err through.
func observe(op string, err error) error {
	metrics.Operations.WithLabelValues(op, outcome(err)).Inc()
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperror.ErrValidation):
		return "validation"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return "conflict"
	case errors.Is(err, apperror.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperror.ErrServiceUnavailable):
		return "unavailable"
	}
	return "error"
}

// validateStay checks the shape of a booking without touching any
// collaborator.
func validateStay(customerID, roomID uint64, start, end time.Time) error {
	if customerID == 0 {
		return apperror.Validation("customer_id is required")
	}
	if roomID == 0 {
		return apperror.Validation("room_id is required")
	}
	if start.IsZero() || end.IsZero() {
		return apperror.Validation("start_date and end_date are required")
	}
	if start.After(end) {
		return apperror.Validation("start_date %s is after end_date %s", model.FormatDate(start), model.FormatDate(end))
	}
	return nil
}

func (s *ReservationService) notInPast(start time.Time) error {
	if today := s.today(); start.Before(today) {
		return apperror.Validation("start_date %s is before today %s", model.FormatDate(start), model.FormatDate(today))
	}
	return nil
}

// priceStay loads the room and ensures no other active reservation holds
// it for [start, end].  exclude is skipped when non-zero.
func (s *ReservationService) priceStay(ctx context.Context, roomID uint64, start, end time.Time, exclude uint64) (int64, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if room.NightlyPriceCents < 0 {
		return 0, fmt.Errorf("room %d has negative nightly price %d", roomID, room.NightlyPriceCents)
	}
	conflicts, err := s.store.FindConflicting(ctx, roomID, start, end)
	if err != nil {
		return 0, fmt.Errorf("find conflicting: %w", err)
	}
	for _, c := range conflicts {
		if c.ID == exclude || !c.Active() || !c.Overlaps(start, end) {
			continue
		}
		return 0, apperror.Conflict("room %d is already booked from %s to %s by reservation %d",
			roomID, model.FormatDate(c.StartDate), model.FormatDate(c.EndDate), c.ID)
	}
	return model.Price(room.NightlyPriceCents, start, end), nil
}

func (s *ReservationService) publish(ctx context.Context, ev queue.ReservationEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("reservation event not published", "type", ev.Type, "reservation_id", ev.ReservationID, "error", err)
	}
}

// syncCatalog tells the catalog whether the room is free after a status
// change.  Failures are logged and counted, never returned as the
// operation's error.
func (s *ReservationService) syncCatalog(ctx context.Context, r model.Reservation) error {
	available := r.Status == model.StatusCancelled
	err := s.rooms.SetAvailability(ctx, r.RoomID, available)
	if err != nil {
		metrics.CatalogSyncFailures.Inc()
		s.log.Warn("room availability not updated",
			"reservation_id", r.ID, "room_id", r.RoomID, "available", available, "error", err)
	}
	return err
}

// Create books a room.  Dates are validated before any I/O; the room must
// exist in the catalog and be free for the whole inclusive range.
func (s *ReservationService) Create(ctx context.Context, in CreateInput) (model.Reservation, error) {
	r, err := s.create(ctx, in)
	return r, observe("create", err)
}

func (s *ReservationService) create(ctx context.Context, in CreateInput) (model.Reservation, error) {
	start, end := model.Day(in.StartDate), model.Day(in.EndDate)
	if err := validateStay(in.CustomerID, in.RoomID, start, end); err != nil {
		return model.Reservation{}, err
	}
	if err := s.notInPast(start); err != nil {
		return model.Reservation{}, err
	}
	status := in.Status
	if status == "" {
		status = model.StatusPending
	}
	if status != model.StatusPending && status != model.StatusConfirmed {
		return model.Reservation{}, apperror.Validation("a reservation cannot be created as %q", status)
	}

	amount, err := s.priceStay(ctx, in.RoomID, start, end, 0)
	if err != nil {
		return model.Reservation{}, err
	}

	saved, err := s.store.Save(ctx, model.Reservation{
		CustomerID:       in.CustomerID,
		RoomID:           in.RoomID,
		StartDate:        start,
		EndDate:          end,
		TotalAmountCents: amount,
		Status:           status,
		CreatedAt:        s.clock.Now(),
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.log.Info("reservation created", "reservation_id", saved.ID, "room_id", saved.RoomID, "status", saved.Status)

	ev := queue.NewReservationEvent(queue.EventCreated, saved, s.clock.Now())
	if saved.Status == model.StatusConfirmed {
		ev.CatalogSynced = s.syncCatalog(ctx, saved) == nil
	}
	s.publish(ctx, ev)
	return saved, nil
}

// Update replaces customer, room and dates of a non-cancelled reservation.
// Overlap detection and pricing only run when the room or dates change.
func (s *ReservationService) Update(ctx context.Context, id uint64, in UpdateInput) (model.Reservation, error) {
	r, err := s.update(ctx, id, in)
	return r, observe("update", err)
}

func (s *ReservationService) update(ctx context.Context, id uint64, in UpdateInput) (model.Reservation, error) {
	start, end := model.Day(in.StartDate), model.Day(in.EndDate)
	if err := validateStay(in.CustomerID, in.RoomID, start, end); err != nil {
		return model.Reservation{}, err
	}

	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if current.Status.Terminal() {
		return model.Reservation{}, apperror.InvalidState("reservation %d is %s and cannot be modified", id, current.Status)
	}

	next := current
	next.CustomerID = in.CustomerID
	next.RoomID = in.RoomID
	next.StartDate = start
	next.EndDate = end

	if current.MovesStay(next) {
		if !start.Equal(current.StartDate) {
			if err := s.notInPast(start); err != nil {
				return model.Reservation{}, err
			}
		}
		amount, err := s.priceStay(ctx, next.RoomID, start, end, current.ID)
		if err != nil {
			return model.Reservation{}, err
		}
		next.TotalAmountCents = amount
	}

	saved, err := s.store.Save(ctx, next)
	if err != nil {
		return model.Reservation{}, err
	}
	s.publish(ctx, queue.NewReservationEvent(queue.EventUpdated, saved, s.clock.Now()))
	return saved, nil
}

// ChangeStatus moves a reservation through the lifecycle and updates the
// room's availability flag in the catalog on a best-effort basis.
func (s *ReservationService) ChangeStatus(ctx context.Context, id uint64, target model.Status) (TransitionResult, error) {
	res, err := s.changeStatus(ctx, id, target)
	return res, observe("change_status", err)
}

func (s *ReservationService) changeStatus(ctx context.Context, id uint64, target model.Status) (TransitionResult, error) {
	if _, ok := model.ParseStatus(string(target)); !ok {
		return TransitionResult{}, apperror.Validation("unknown status %q", target)
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return TransitionResult{}, err
	}
	if current.Status.Terminal() {
		return TransitionResult{}, apperror.InvalidState("reservation %d is %s and cannot change status", id, current.Status)
	}
	if !current.Status.CanTransition(target) {
		return TransitionResult{}, apperror.InvalidState("reservation %d cannot move from %s to %s", id, current.Status, target)
	}

	next := current
	next.Status = target
	saved, err := s.store.Save(ctx, next)
	if err != nil {
		return TransitionResult{}, err
	}
	s.log.Info("reservation status changed", "reservation_id", id, "from", current.Status, "to", saved.Status)

	syncErr := s.syncCatalog(ctx, saved)

	typ := queue.EventConfirmed
	if saved.Status == model.StatusCancelled {
		typ = queue.EventCancelled
	}
	ev := queue.NewReservationEvent(typ, saved, s.clock.Now())
	ev.CatalogSynced = syncErr == nil
	s.publish(ctx, ev)

	return TransitionResult{Reservation: saved, CatalogSyncErr: syncErr}, nil
}

// Cancel moves a reservation to CANCELLED.
func (s *ReservationService) Cancel(ctx context.Context, id uint64) (TransitionResult, error) {
	return s.ChangeStatus(ctx, id, model.StatusCancelled)
}

// Confirm moves a PENDING reservation to CONFIRMED.
func (s *ReservationService) Confirm(ctx context.Context, id uint64) (TransitionResult, error) {
	return s.ChangeStatus(ctx, id, model.StatusConfirmed)
}

// Delete removes a reservation.  The room catalog is not touched.
func (s *ReservationService) Delete(ctx context.Context, id uint64) error {
	return observe("delete", s.delete(ctx, id))
}

func (s *ReservationService) delete(ctx context.Context, id uint64) error {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, queue.NewReservationEvent(queue.EventDeleted, current, s.clock.Now()))
	return nil
}

func (s *ReservationService) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	return s.store.FindByID(ctx, id)
}

func (s *ReservationService) GetAll(ctx context.Context) ([]model.Reservation, error) {
	return s.store.FindAll(ctx)
}

func (s *ReservationService) GetByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error) {
	return s.store.FindByCustomer(ctx, customerID)
}

func (s *ReservationService) GetByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error) {
	return s.store.FindByRoom(ctx, roomID)
}

// GetActiveByRoom lists the room's active reservations ending today or later.
func (s *ReservationService) GetActiveByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error) {
	return s.store.FindActiveByRoom(ctx, roomID, s.today())
}

func (s *ReservationService) GetByStatus(ctx context.Context, status model.Status) ([]model.Reservation, error) {
	return s.store.FindByStatus(ctx, status)
}

// GetByDateRange lists reservations starting within [start, end].
func (s *ReservationService) GetByDateRange(ctx context.Context, start, end time.Time) ([]model.Reservation, error) {
	return s.store.FindByDateRange(ctx, model.Day(start), model.Day(end))
}

func (s *ReservationService) GetCheckInsToday(ctx context.Context) ([]model.Reservation, error) {
	return s.store.FindByCheckIn(ctx, s.today())
}

func (s *ReservationService) GetCheckOutsToday(ctx context.Context) ([]model.Reservation, error) {
	return s.store.FindByCheckOut(ctx, s.today())
}

// CheckAvailability reports whether no active reservation holds the room on
// any date of [start, end].
func (s *ReservationService) CheckAvailability(ctx context.Context, roomID uint64, start, end time.Time) (bool, error) {
	start, end = model.Day(start), model.Day(end)
	if start.After(end) {
		return false, apperror.Validation("start date must not be after end date")
	}
	conflicts, err := s.store.FindConflicting(ctx, roomID, start, end)
	if err != nil {
		return false, fmt.Errorf("find conflicting: %w", err)
	}
	for _, c := range conflicts {
		if c.Active() && c.Overlaps(start, end) {
			return false, nil
		}
	}
	return true, nil
}

// GetByCustomerDocument resolves a customer by external document through
// the directory and lists their reservations.
func (s *ReservationService) GetByCustomerDocument(ctx context.Context, document string) ([]model.Reservation, error) {
	if document == "" {
		return nil, apperror.Validation("document is required")
	}
	customer, err := s.customers.GetByDocument(ctx, document)
	if err != nil {
		return nil, err
	}
	return s.store.FindByCustomer(ctx, customer.ID)
}

// RoomAvailability is the answer to an availability check by room number.
type RoomAvailability struct {
	Room      model.Room
	Available bool
}

// CheckAvailabilityByNumber resolves a room by its number and checks it.
func (s *ReservationService) CheckAvailabilityByNumber(ctx context.Context, number string, start, end time.Time) (RoomAvailability, error) {
	if number == "" {
		return RoomAvailability{}, apperror.Validation("room number is required")
	}
	room, err := s.rooms.GetByNumber(ctx, number)
	if err != nil {
		return RoomAvailability{}, err
	}
	ok, err := s.CheckAvailability(ctx, room.ID, start, end)
	if err != nil {
		return RoomAvailability{}, err
	}
	return RoomAvailability{Room: room, Available: ok}, nil
}

// Details is a reservation with its room and customer.  A collaborator
// that cannot answer leaves its field nil and is listed in Degraded.
type Details struct {
	Reservation model.Reservation
	Room        *model.Room
	Customer    *model.Customer
	Degraded    []string
}

// GetDetails loads a reservation and enriches it from the catalog and
// directory.  Only a missing reservation or a store failure is an error.
func (s *ReservationService) GetDetails(ctx context.Context, id uint64) (Details, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Details{}, err
	}
	d := Details{Reservation: r}

	room, err := s.rooms.GetByID(ctx, r.RoomID)
	switch {
	case err == nil:
		d.Room = &room
	case errors.Is(err, apperror.ErrNotFound):
	case errors.Is(err, apperror.ErrServiceUnavailable):
		d.Degraded = append(d.Degraded, client.RoomCatalogService)
	default:
		return Details{}, err
	}

	customer, err := s.customers.GetByID(ctx, r.CustomerID)
	switch {
	case err == nil:
		d.Customer = &customer
	case errors.Is(err, apperror.ErrNotFound):
	case errors.Is(err, apperror.ErrServiceUnavailable):
		d.Degraded = append(d.Degraded, client.CustomerDirectoryService)
	default:
		return Details{}, err
	}
	return d, nil
}

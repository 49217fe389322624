// Package queue defines the reservation lifecycle events exchanged over
// RabbitMQ, the publisher used by the service and the consumer that
// writes them to a log file.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/lodging-reservation/internal/model"
)

// Event types published on the reservation events queue.
const (
	EventCreated   = "reservation.created"
	EventUpdated   = "reservation.updated"
	EventConfirmed = "reservation.confirmed"
	EventCancelled = "reservation.cancelled"
	EventDeleted   = "reservation.deleted"
)

// ReservationEvent is published after every committed lifecycle change.
// It carries enough of the reservation for consumers to log, notify or
// feed analytics without reading the primary database.  CatalogSynced is
// false when the room catalog could not be told about a status change.
type ReservationEvent struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	ReservationID    uint64 `json:"reservation_id"`
	CustomerID       uint64 `json:"customer_id"`
	RoomID           uint64 `json:"room_id"`
	Status           string `json:"status"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	CatalogSynced    bool   `json:"catalog_synced"`
	OccurredAt       string `json:"occurred_at"`
}

// NewReservationEvent builds an event of the given type from a reservation
// snapshot.
func NewReservationEvent(typ string, r model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		ID:               uuid.NewString(),
		Type:             typ,
		ReservationID:    r.ID,
		CustomerID:       r.CustomerID,
		RoomID:           r.RoomID,
		Status:           string(r.Status),
		StartDate:        model.FormatDate(r.StartDate),
		EndDate:          model.FormatDate(r.EndDate),
		TotalAmountCents: r.TotalAmountCents,
		CatalogSynced:    true,
		OccurredAt:       at.UTC().Format(time.RFC3339),
	}
}

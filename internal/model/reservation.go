package model

import "time"

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus converts a raw status string into a Status.  The second
// return value is false for anything outside PENDING, CONFIRMED and
// CANCELLED.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// Active reports whether a reservation in this status occupies its room.
// Only active reservations take part in conflict detection.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// CANCELLED is absorbing; re-entering the current state is not a transition.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	}
	return false
}

// Reservation is a booking of one room by one customer for an inclusive
// range of calendar dates.  Values are passed by copy between layers; a
// changed reservation is always a new value.
//
// Fields:
//  ID               – store-assigned identifier, immutable once set.
//  CustomerID       – customer in the external directory.
//  RoomID           – room in the external catalog.
//  StartDate        – first night, UTC midnight.
//  EndDate          – last date of the range, UTC midnight.
//  TotalAmountCents – nightly price times billed nights.
//  Status           – PENDING, CONFIRMED or CANCELLED.
//  CreatedAt        – creation timestamp, never changed.
//  UpdatedAt        – last write timestamp maintained by the store.
type Reservation struct {
	ID               uint64    // reservations.id
	CustomerID       uint64    // reservations.customer_id
	RoomID           uint64    // reservations.room_id
	StartDate        time.Time // reservations.start_date
	EndDate          time.Time // reservations.end_date
	TotalAmountCents int64     // reservations.total_amount_cents
	Status           Status    // reservations.status
	CreatedAt        time.Time // reservations.created_at
	UpdatedAt        time.Time // reservations.updated_at
}

// Active reports whether the reservation currently blocks its room.
func (r Reservation) Active() bool { return r.Status.Active() }

// Overlaps reports whether r occupies its room on any date of [start, end].
func (r Reservation) Overlaps(start, end time.Time) bool {
	return RangesOverlap(r.StartDate, r.EndDate, start, end)
}

// MovesStay reports whether next books a different room or dates than r.
func (r Reservation) MovesStay(next Reservation) bool {
	return r.RoomID != next.RoomID ||
		!r.StartDate.Equal(next.StartDate) ||
		!r.EndDate.Equal(next.EndDate)
}

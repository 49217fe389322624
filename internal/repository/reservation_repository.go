package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/lodging-reservation/internal/apperror"
	"github.com/iliyamo/lodging-reservation/internal/model"
)

// ReservationRepo stores reservations in the reservations table.  Dates
// are DATE columns and timestamps are UTC.
//
// Save is the authority for the no-double-booking rule: when the
// reservation being written is active it re-runs the overlap query inside
// the write transaction with SELECT ... FOR UPDATE, which takes next-key
// locks on the (room_id, status, start_date, end_date) index so that two
// concurrent writers for the same room serialise.  The service's own
// overlap check is only a fast path in front of it.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, customer_id, room_id, start_date, end_date, total_amount_cents, status, created_at, updated_at`

const activeStatuses = `('PENDING','CONFIRMED')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var r model.Reservation
	var status string
	if err := s.Scan(&r.ID, &r.CustomerID, &r.RoomID, &r.StartDate, &r.EndDate,
		&r.TotalAmountCents, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return model.Reservation{}, err
	}
	r.Status = model.Status(status)
	r.StartDate = model.Day(r.StartDate)
	r.EndDate = model.Day(r.EndDate)
	return r, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *ReservationRepo) list(ctx context.Context, q querier, where string, args ...any) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID returns the reservation with the given ID or an ErrNotFound
// error.
func (r *ReservationRepo) FindByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	res, err := scanReservation(row)
	if err != nil {
		return model.Reservation{}, notFound(id, err)
	}
	return res, nil
}

// FindAll returns every reservation in ID order.
func (r *ReservationRepo) FindAll(ctx context.Context) ([]model.Reservation, error) {
	return r.list(ctx, r.db, "")
}

// FindConflicting returns the active reservations of roomID whose date
// range shares at least one day with [start, end].
func (r *ReservationRepo) FindConflicting(ctx context.Context, roomID uint64, start, end time.Time) ([]model.Reservation, error) {
	return r.list(ctx, r.db,
		`room_id = ? AND status IN `+activeStatuses+` AND start_date <= ? AND end_date >= ?`,
		roomID, model.Day(end), model.Day(start))
}

func (r *ReservationRepo) FindByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error) {
	return r.list(ctx, r.db, `customer_id = ?`, customerID)
}

func (r *ReservationRepo) FindByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error) {
	return r.list(ctx, r.db, `room_id = ?`, roomID)
}

// FindActiveByRoom returns the active reservations of roomID that have not
// ended before from.
func (r *ReservationRepo) FindActiveByRoom(ctx context.Context, roomID uint64, from time.Time) ([]model.Reservation, error) {
	return r.list(ctx, r.db,
		`room_id = ? AND status IN `+activeStatuses+` AND end_date >= ?`,
		roomID, model.Day(from))
}

func (r *ReservationRepo) FindByStatus(ctx context.Context, status model.Status) ([]model.Reservation, error) {
	return r.list(ctx, r.db, `status = ?`, string(status))
}

// FindByDateRange returns reservations starting within [start, end].
func (r *ReservationRepo) FindByDateRange(ctx context.Context, start, end time.Time) ([]model.Reservation, error) {
	return r.list(ctx, r.db, `start_date BETWEEN ? AND ?`, model.Day(start), model.Day(end))
}

// FindByCheckIn returns non-cancelled reservations starting on day.
func (r *ReservationRepo) FindByCheckIn(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	return r.list(ctx, r.db, `start_date = ? AND status <> 'CANCELLED'`, model.Day(day))
}

// FindByCheckOut returns non-cancelled reservations ending on day.
func (r *ReservationRepo) FindByCheckOut(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	return r.list(ctx, r.db, `end_date = ? AND status <> 'CANCELLED'`, model.Day(day))
}

// Save inserts the reservation when its ID is zero and updates it
// otherwise, returning the stored row.  An active reservation that would
// overlap another active reservation of the same room is refused with an
// ErrConflict error and nothing is written.  Updating a row that is
// already cancelled fails with ErrInvalidState.
func (r *ReservationRepo) Save(ctx context.Context, res model.Reservation) (model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if res.Status.Active() {
		if err := r.lockOverlapsTx(ctx, tx, res); err != nil {
			return model.Reservation{}, err
		}
	}

	id := res.ID
	if id == 0 {
		const ins = `INSERT INTO reservations (customer_id, room_id, start_date, end_date, total_amount_cents, status, created_at)
		             VALUES (?, ?, ?, ?, ?, ?, ?)`
		result, err := tx.ExecContext(ctx, ins, res.CustomerID, res.RoomID, model.Day(res.StartDate), model.Day(res.EndDate),
			res.TotalAmountCents, string(res.Status), res.CreatedAt.UTC())
		if err != nil {
			return model.Reservation{}, err
		}
		lastID, err := result.LastInsertId()
		if err != nil {
			return model.Reservation{}, err
		}
		id = uint64(lastID)
	} else {
		// created_at is never part of an update; a cancelled row is final
		const upd = `UPDATE reservations
		             SET customer_id = ?, room_id = ?, start_date = ?, end_date = ?, total_amount_cents = ?, status = ?
		             WHERE id = ? AND status <> 'CANCELLED'`
		result, err := tx.ExecContext(ctx, upd, res.CustomerID, res.RoomID, model.Day(res.StartDate), model.Day(res.EndDate),
			res.TotalAmountCents, string(res.Status), id)
		if err != nil {
			return model.Reservation{}, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return model.Reservation{}, err
		}
		if affected == 0 {
			if err := r.checkWritableTx(ctx, tx, id); err != nil {
				return model.Reservation{}, err
			}
		}
	}

	// Query back the full row to populate timestamps and defaults
	stored, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return model.Reservation{}, notFound(id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	committed = true
	return stored, nil
}

// checkWritableTx explains an UPDATE that matched no rows.  MySQL reports
// zero affected rows when the new values equal the stored ones, so a row
// that still exists and is not cancelled is fine.
func (r *ReservationRepo) checkWritableTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM reservations WHERE id = ? FOR UPDATE`, id).Scan(&status)
	if err != nil {
		return notFound(id, err)
	}
	if model.Status(status) == model.StatusCancelled {
		return apperror.InvalidState("reservation %d is cancelled and cannot be modified", id)
	}
	return nil
}

// lockOverlapsTx locks the active reservations overlapping res on its room,
// ignoring res itself, and fails with ErrConflict if there are any.
func (r *ReservationRepo) lockOverlapsTx(ctx context.Context, tx *sql.Tx, res model.Reservation) error {
	const q = `SELECT id FROM reservations
	           WHERE room_id = ? AND status IN ` + activeStatuses + ` AND start_date <= ? AND end_date >= ? AND id <> ?
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, res.RoomID, model.Day(res.EndDate), model.Day(res.StartDate), res.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, formatID(id))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(ids) > 0 {
		return apperror.Conflict("room %d is already booked for the selected dates (reservations %s)",
			res.RoomID, strings.Join(ids, ","))
	}
	return nil
}

// Delete removes the reservation with the given ID.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(id, sql.ErrNoRows)
	}
	return nil
}

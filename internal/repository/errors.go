// Package repository implements reservation persistence on MySQL.  Errors
// returned for missing rows and overlap violations are classified with
// the apperror kinds so that the service and the HTTP layer can tell them
// apart from infrastructure failures.
package repository

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/iliyamo/lodging-reservation/internal/apperror"
)

// ErrReservationNotFound is the cause attached to not-found errors from
// this package.
var ErrReservationNotFound = errors.New("reservation not found")

func notFound(id uint64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &apperror.Error{
			Kind:    apperror.ErrNotFound,
			Message: "reservation " + formatID(id) + " not found",
			Cause:   ErrReservationNotFound,
		}
	}
	return err
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

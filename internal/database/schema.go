package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the statements applied by Migrate, in order.  Every
// statement is idempotent.  The (room_id, status, start_date, end_date)
// index is what SELECT ... FOR UPDATE locks when the store re-checks
// overlaps before a write.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reservations (
		id                 BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		customer_id        BIGINT UNSIGNED NOT NULL,
		room_id            BIGINT UNSIGNED NOT NULL,
		start_date         DATE NOT NULL,
		end_date           DATE NOT NULL,
		total_amount_cents BIGINT NOT NULL,
		status             ENUM('PENDING','CONFIRMED','CANCELLED') NOT NULL DEFAULT 'PENDING',
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_reservations_room_active (room_id, status, start_date, end_date),
		KEY idx_reservations_customer (customer_id),
		KEY idx_reservations_start (start_date),
		KEY idx_reservations_end (end_date),
		CONSTRAINT chk_reservations_dates CHECK (start_date <= end_date),
		CONSTRAINT chk_reservations_amount CHECK (total_amount_cents >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the reservation schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

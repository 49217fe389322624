package database

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	dsn := DSN("app", "s3cret", "db", "3306", "lodging")
	for _, part := range []string{"app:s3cret@tcp(db:3306)/lodging", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, part) {
			t.Fatalf("expected %q in dsn %q", part, dsn)
		}
	}
	if noPass := DSN("app", "", "db", "3306", "lodging"); !strings.HasPrefix(noPass, "app@tcp(") {
		t.Fatalf("expected password to be omitted, got %q", noPass)
	}
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS reservations")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

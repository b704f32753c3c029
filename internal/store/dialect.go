package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures what differs between the supported backends.
type Dialect interface {
	Name() string
	DriverName() string
	DSN(dsn string) string
	Schema() string
	// InsertMedia inserts one media row and returns the id the backend
	// assigned to it on this transaction's connection.
	InsertMedia(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error)
	// IsConstraint reports whether err is an integrity constraint violation.
	IsConstraint(err error) bool
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", name)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }
func (sqliteDialect) Schema() string { return sqliteSchema }

// DSN adds the default pragmas to a bare path. A DSN that already has a
// query string is kept, but foreign keys are always switched on so tag
// rows cannot outlive their media.
func (sqliteDialect) DSN(path string) string {
	if !strings.Contains(path, "?") {
		return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	if strings.Contains(path, "foreign_keys") {
		return path
	}
	if strings.HasSuffix(path, "?") || strings.HasSuffix(path, "&") {
		return path + "_pragma=foreign_keys(1)"
	}
	return path + "&_pragma=foreign_keys(1)"
}

func (sqliteDialect) InsertMedia(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (sqliteDialect) IsConstraint(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }
func (postgresDialect) DriverName() string { return "pgx" }
func (postgresDialect) DSN(dsn string) string { return dsn }
func (postgresDialect) Schema() string { return postgresSchema }

func (postgresDialect) InsertMedia(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRowxContext(ctx, tx.Rebind(query+" RETURNING id"), args...).Scan(&id)
	return id, err
}

func (postgresDialect) IsConstraint(err error) bool {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		// SQLSTATE class 23: integrity constraint violation.
		return strings.HasPrefix(pe.Code, "23")
	}
	return false
}

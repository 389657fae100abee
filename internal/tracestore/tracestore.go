// Package tracestore persists a record of each compile-and-run for later
// inspection: the source fingerprint, the run configuration, and the
// outcome (success or error detail, output size, timing). It speaks
// database/sql against
// whichever backend the caller names, with every supported driver pulled
// in by blank import.
package tracestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Backend names a supported database/sql driver.
type Backend string

const (
	// SQLite uses the pure-Go modernc.org/sqlite driver; SQLiteCgo uses
	// mattn/go-sqlite3 for callers that prefer the C library.
	SQLite    Backend = "sqlite"
	SQLiteCgo Backend = "sqlite3"
	Postgres  Backend = "postgres"
	MySQL     Backend = "mysql"
	MSSQL     Backend = "sqlserver"
)

func (b Backend) driverName() (string, error) {
	switch b {
	case SQLite:
		return "sqlite", nil
	case SQLiteCgo:
		return "sqlite3", nil
	case Postgres:
		return "postgres", nil
	case MySQL:
		return "mysql", nil
	case MSSQL:
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("tracestore: unsupported backend %q", b)
	}
}

// Store is a connection to the run ledger.
type Store struct {
	db      *sql.DB
	backend Backend
}

// Open connects to dsn using backend's driver, pings it, and ensures the
// runs table exists.
func Open(ctx context.Context, backend Backend, dsn string) (*Store, error) {
	driver, err := backend.driverName()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("tracestore: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracestore: ping: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, backend: backend}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	// SQL Server: no CREATE TABLE IF NOT EXISTS, and TIMESTAMP there is
	// rowversion rather than a point in time.
	timeType := "TIMESTAMP"
	if s.backend == MSSQL {
		timeType = "DATETIME2"
	}
	columns := fmt.Sprintf(`(
	run_id       VARCHAR(64) PRIMARY KEY,
	fingerprint  VARCHAR(64) NOT NULL,
	started_at   %[1]s NOT NULL,
	finished_at  %[1]s NOT NULL,
	op_limit     INTEGER NOT NULL,
	tape_size    INTEGER NOT NULL,
	succeeded    INTEGER NOT NULL,
	error_detail TEXT NOT NULL,
	output_bytes INTEGER NOT NULL
)`, timeType)

	ddl := "CREATE TABLE IF NOT EXISTS runs " + columns
	if s.backend == MSSQL {
		ddl = "IF OBJECT_ID(N'runs', N'U') IS NULL CREATE TABLE runs " + columns
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("tracestore: migrate: %w", err)
	}
	return nil
}

// Record is one row of the run ledger.
type Record struct {
	RunID       string
	Fingerprint string
	StartedAt   time.Time
	FinishedAt  time.Time
	OpLimit     int
	TapeSize    int
	Succeeded   bool
	ErrorDetail string
	OutputBytes int
}

// placeholders returns n positional parameter markers in the dialect the
// backend expects: lib/pq and go-mssqldb don't understand bare "?".
func (s *Store) placeholders(n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		switch s.backend {
		case Postgres:
			out[i] = fmt.Sprintf("$%d", i+1)
		case MSSQL:
			out[i] = fmt.Sprintf("@p%d", i+1)
		default:
			out[i] = "?"
		}
	}
	return out
}

// Insert appends a completed run to the ledger.
func (s *Store) Insert(ctx context.Context, r Record) error {
	ph := s.placeholders(9)
	query := fmt.Sprintf(`
INSERT INTO runs (run_id, fingerprint, started_at, finished_at, op_limit, tape_size, succeeded, error_detail, output_bytes)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`, ph[0], ph[1], ph[2], ph[3], ph[4], ph[5], ph[6], ph[7], ph[8])

	_, err := s.db.ExecContext(ctx, query,
		r.RunID, r.Fingerprint, r.StartedAt, r.FinishedAt, r.OpLimit, r.TapeSize,
		boolToInt(r.Succeeded), r.ErrorDetail, r.OutputBytes,
	)
	if err != nil {
		return fmt.Errorf("tracestore: insert: %w", err)
	}
	return nil
}

// RecentByFingerprint returns the most recent runs of a given source,
// newest first, capped at limit.
func (s *Store) RecentByFingerprint(ctx context.Context, fingerprint string, limit int) ([]Record, error) {
	ph := s.placeholders(2)
	// T-SQL has no LIMIT clause.
	rowCap := fmt.Sprintf("LIMIT %s", ph[1])
	if s.backend == MSSQL {
		rowCap = fmt.Sprintf("OFFSET 0 ROWS FETCH NEXT %s ROWS ONLY", ph[1])
	}
	query := fmt.Sprintf(`
SELECT run_id, fingerprint, started_at, finished_at, op_limit, tape_size, succeeded, error_detail, output_bytes
FROM runs WHERE fingerprint = %s ORDER BY started_at DESC %s`, ph[0], rowCap)

	rows, err := s.db.QueryContext(ctx, query, fingerprint, limit)
	if err != nil {
		return nil, fmt.Errorf("tracestore: query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var succeeded int
		if err := rows.Scan(&r.RunID, &r.Fingerprint, &r.StartedAt, &r.FinishedAt,
			&r.OpLimit, &r.TapeSize, &succeeded, &r.ErrorDetail, &r.OutputBytes); err != nil {
			return nil, fmt.Errorf("tracestore: scan: %w", err)
		}
		r.Succeeded = succeeded != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

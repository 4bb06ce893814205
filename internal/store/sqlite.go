package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// busyTimeoutMillis bounds how long a writer waits for a lock held by a reader
// (or another process) before SQLite reports SQLITE_BUSY.
const busyTimeoutMillis = 5000

// SQLiteReader serves subjects from a SQLite file it never writes to.
type SQLiteReader struct {
	db *sqlx.DB
}

var _ ReadOnlyStore = (*SQLiteReader)(nil)

// SQLiteStore implements Store on top of a single SQLite file.
type SQLiteStore struct {
	*SQLiteReader
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the SQLite database at dbPath, enables WAL
// mode and a busy timeout on every pooled connection, and applies any pending
// schema migrations. Calling it on an existing file is safe.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := open(dsn(dbPath, false))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %s: %w", dbPath, err)
	}

	s := &SQLiteStore{SQLiteReader: &SQLiteReader{db: db}}
	if err := s.runMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// OpenReadOnly opens an existing database at dbPath with SQLite's read-only
// mode. It neither creates the file nor migrates it; a file written by an
// older release is served as it is.
func OpenReadOnly(dbPath string) (*SQLiteReader, error) {
	db, err := open(dsn(dbPath, true))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %s read-only: %w", dbPath, err)
	}

	return &SQLiteReader{db: db}, nil
}

func open(source string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", source)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// dsn builds a modernc.org/sqlite connection URI. Pragmas passed this way
// apply to each new connection in the pool, not only the first one. The path
// is escaped so that '?', '#' and '%' in a file name stay part of it.
func dsn(dbPath string, readOnly bool) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	if readOnly {
		q.Set("mode", "ro")
	} else {
		q.Add("_pragma", "journal_mode(WAL)")
	}

	path := (&url.URL{Path: dbPath}).EscapedPath()
	return "file:" + path + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *SQLiteReader) Close() error {
	return s.db.Close()
}

// runMigrations reads PRAGMA user_version and applies the outstanding
// migrations in order, each in its own transaction.
func (s *SQLiteStore) runMigrations(ctx context.Context) error {
	var current int
	if err := s.db.GetContext(ctx, &current, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration v%d: %w", m.version, err)
		}

		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}

		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordIfNew inserts subject unless it is already stored. The unique index on
// emails.subject makes the check and the insert one statement, so concurrent
// writers (including other processes) cannot create duplicates.
func (s *SQLiteStore) RecordIfNew(ctx context.Context, subject string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO emails (subject) VALUES (?) ON CONFLICT(subject) DO NOTHING`,
		subject,
	)
	if err != nil {
		return false, fmt.Errorf("recording subject: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recording subject: %w", err)
	}

	return n == 1, nil
}

// Recent returns up to limit subjects ordered by id, newest first. A limit of
// zero or less yields an empty slice.
func (s *SQLiteReader) Recent(ctx context.Context, limit int) ([]string, error) {
	subjects := []string{}
	if limit <= 0 {
		return subjects, nil
	}

	if err := s.db.SelectContext(ctx, &subjects,
		`SELECT subject FROM emails ORDER BY id DESC LIMIT ?`, limit,
	); err != nil {
		return nil, fmt.Errorf("querying recent subjects: %w", err)
	}

	return subjects, nil
}

// Count returns the number of stored subjects.
func (s *SQLiteReader) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM emails`); err != nil {
		return 0, fmt.Errorf("counting subjects: %w", err)
	}
	return n, nil
}

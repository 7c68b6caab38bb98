// Package sqlitestore implements the simulation store on an embedded SQLite database.
//
// All access goes through a single connection, which serializes writers and
// gives every conditional update read-modify-write atomicity per simulation.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/data"
	"github.com/target/hydrosim/internal/migrate"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// DefaultBusyTimeout is how long a statement waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Options configures a Store.
type Options struct {
	Logger       *slog.Logger
	TimeProvider data.TimeProvider
	BusyTimeout  time.Duration
	// SkipMigrations leaves the schema untouched on Open.
	SkipMigrations bool
}

// Store is a core.Store backed by SQLite.
type Store struct {
	db           *sql.DB
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

var _ core.Store = (*Store)(nil)

// DSN builds a modernc.org/sqlite connection string with foreign keys enabled.
// path may be a file path or ":memory:".
func DSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + q.Encode()
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", DSN(path, opts.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	// Keep the connection so ":memory:" databases survive between calls.
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping sqlite: %w", err), db.Close())
	}
	if !opts.SkipMigrations {
		if err := migrate.RunDialect(ctx, db, migrate.DialectSQLite); err != nil {
			return nil, errors.Join(fmt.Errorf("migrate sqlite: %w", err), db.Close())
		}
	}
	return New(db, opts), nil
}

// New wraps an already opened database. The caller must limit db to one connection.
func New(db *sql.DB, opts Options) *Store {
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, timeProvider: tp, logger: logger.With("component", "sqlite_store")}
}

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) nowMillis() int64 {
	return s.timeProvider.Now().UTC().UnixMilli()
}

// withTx runs fn in a transaction. fn must only use tx: the store has a single
// connection and touching s.db inside fn would deadlock.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/christopherklint97/utilr/internal/logging"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Options struct {
	Driver string
	// Path is the sqlite database file.
	Path string
	// DSN is the postgres connection string.
	DSN            string
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

type DB struct {
	*sql.DB
	driver string
	sq     sq.StatementBuilderType
	logger *zap.Logger
}

// Open connects to the configured database, retrying the initial ping with
// exponential backoff until ConnectTimeout, and runs migrations.
func Open(ctx context.Context, opts Options) (*DB, error) {
	logger := logging.OrNop(opts.Logger)

	var (
		db          *sql.DB
		err         error
		placeholder sq.PlaceholderFormat
	)
	switch opts.Driver {
	case DriverSQLite, "":
		if opts.Path == "" {
			return nil, errors.New("sqlite store needs a database path")
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		db, err = sql.Open("sqlite", opts.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
		placeholder = sq.Question
		opts.Driver = DriverSQLite
	case DriverPostgres:
		db, err = sql.Open("pgx", opts.DSN)
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := ping(ctx, db, opts.ConnectTimeout, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	store := &DB{
		DB:     db,
		driver: opts.Driver,
		sq:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger: logger,
	}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func ping(ctx context.Context, db *sql.DB, timeout time.Duration, logger *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	if timeout > 0 {
		b.MaxElapsedTime = timeout
	}

	return backoff.RetryNotify(
		func() error { return db.PingContext(ctx) },
		backoff.WithContext(b, ctx),
		func(err error, wait time.Duration) {
			logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
		},
	)
}

func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) migrate(ctx context.Context) error {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == DriverPostgres {
		id = "id BIGSERIAL PRIMARY KEY"
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS time_entries (
			` + id + `,
			source TEXT NOT NULL,
			person TEXT NOT NULL,
			entry_date TEXT NOT NULL,
			classification TEXT NOT NULL,
			code TEXT NOT NULL DEFAULT '',
			project TEXT NOT NULL DEFAULT '',
			task TEXT NOT NULL DEFAULT '',
			hours TEXT NOT NULL,
			comments TEXT NOT NULL DEFAULT '',
			schedule TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS time_entries_person_date ON time_entries (person, entry_date)`,
		`CREATE TABLE IF NOT EXISTS planned_hours (
			id TEXT PRIMARY KEY,
			person TEXT NOT NULL,
			project TEXT NOT NULL,
			entry_month TEXT NOT NULL,
			entry_year INTEGER NOT NULL,
			hours TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS planned_hours_period ON planned_hours (entry_year, entry_month)`,
		`CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	return nil
}

func (db *DB) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := db.sq.Select("value").From("state").Where(sq.Eq{"key": key}).
		RunWith(db.DB).QueryRowContext(ctx).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (db *DB) SetState(ctx context.Context, key, value string) error {
	_, err := db.sq.Insert("state").Columns("key", "value").Values(key, value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value").
		RunWith(db.DB).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("setting state %s: %w", key, err)
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

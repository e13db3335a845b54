package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"loralinka/internal/config"
	"loralinka/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteScheme = "sqlite://"

// Open picks the driver from the DSN: sqlite://<path> opens SQLite, anything else Postgres.
func Open(cfg *config.Config) (*bun.DB, error) {
	if strings.HasPrefix(cfg.DatabaseURL, sqliteScheme) {
		return NewSQLite(strings.TrimPrefix(cfg.DatabaseURL, sqliteScheme), cfg.BunDebug)
	}
	return New(cfg.DatabaseURL, cfg)
}

// New connects to Postgres and returns a Bun DB handle.
func New(dsn string, cfg *config.Config) (*bun.DB, error) {
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(30*time.Second),
		pgdriver.WithDialTimeout(10*time.Second),
		pgdriver.WithReadTimeout(30*time.Second),
		pgdriver.WithWriteTimeout(15*time.Second),
	)

	sqldb := sql.OpenDB(connector)
	db := bun.NewDB(sqldb, pgdialect.New())

	sqldb.SetMaxOpenConns(25)
	sqldb.SetMaxIdleConns(10)
	sqldb.SetConnMaxLifetime(5 * time.Minute)
	sqldb.SetConnMaxIdleTime(10 * time.Minute)

	setup(db, cfg.BunDebug)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// NewSQLite opens a SQLite database at path (":memory:" for a private in-memory DB).
// Foreign keys are enforced so deletes behave as they do on Postgres.
func NewSQLite(path string, debug bool) (*bun.DB, error) {
	dsn := path
	if path == ":memory:" || path == "" {
		dsn = "file::memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: keeps an in-memory database alive and serializes writers
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)
	sqldb.SetConnMaxIdleTime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	setup(db, debug)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func setup(db *bun.DB, debug bool) {
	db.RegisterModel((*models.UserCondition)(nil))
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
}

// SupportsRowLocks reports whether SELECT ... FOR UPDATE is available.
// SQLite has no row locks; its single writer already serializes transactions.
func SupportsRowLocks(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.PG
}

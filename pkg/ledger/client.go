// Package ledger implements the Action Ledger of spec §4.5: the
// append-only, time-indexed history of every consequential event in the
// system, plus the read-mostly campaigns table. Persistence is pgx +
// embedded golang-migrate SQL, adapted from tarsy's pkg/database/client.go
// with the generated ent client dropped (see DESIGN.md) in favor of
// hand-written repository methods over the same connection pool.
package ledger

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	stdsql "database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Client wraps a pgx connection pool with the ledger's repository methods.
type Client struct {
	pool *pgxpool.Pool
}

// NewClient connects to Postgres per cfg, runs embedded migrations, and
// returns a ready Client. Mirrors pkg/database/client.go's
// NewClient(ctx, cfg) shape: build DSN, open pool, ping, migrate.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("ledger: parse pool config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ledger: open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}

	if err := runMigrations(cfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}

	slog.Info("ledger client connected", "host", cfg.Host, "database", cfg.Database)
	return &Client{pool: pool}, nil
}

// runMigrations applies every embedded migration via a short-lived
// database/sql connection, separate from the pgxpool used for queries —
// golang-migrate's postgres driver wants a *sql.DB, not a pgx pool.
// It does not call m.Close(); the deferred db.Close() releases the *sql.DB
// this function opened for its own exclusive use, so closing it here is
// safe (unlike tarsy's client.go, which shares db between ent and migrate
// and must NOT close it).
func runMigrations(cfg Config) error {
	db, err := stdsql.Open("pgx", cfg.DSN())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{SchemaName: cfg.SearchPath})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

// Pool exposes the underlying pool for the tick-lease claim query in
// pkg/engine, which needs raw FOR UPDATE SKIP LOCKED access.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Package ledgertest provides test utilities for pkg/ledger's integration
// tests, adapted from tarsy's test/util/database.go: a shared testcontainer
// per package, with per-test schema isolation. The ent-specific plumbing
// (entsql.OpenDB, ent.NewClient, entClient.Schema.Create) is gone — the
// ledger has no generated client, so a test just needs a *ledger.Client
// pointed at its own schema, and golang-migrate does the migrating.
package ledgertest

import (
	"context"
	"crypto/rand"
	stdsql "database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adspilot/core/pkg/ledger"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// NewClient starts (or reuses) a shared Postgres testcontainer, creates a
// fresh schema for t, and returns a *ledger.Client scoped to that schema.
// The schema is dropped and the client closed on test cleanup.
func NewClient(t *testing.T) *ledger.Client {
	t.Helper()
	ctx := context.Background()

	connStr := sharedDatabase(t)
	schema := generateSchemaName(t)

	admin, err := stdsql.Open("pgx", connStr)
	require.NoError(t, err)
	_, err = admin.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema))
	require.NoError(t, err)
	require.NoError(t, admin.Close())

	cfg := parseConnString(t, connStr)
	cfg.SearchPath = schema

	client, err := ledger.NewClient(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		cleanup, err := stdsql.Open("pgx", connStr)
		if err != nil {
			t.Logf("ledgertest: reopen for schema drop: %v", err)
			return
		}
		defer cleanup.Close()
		if _, err := cleanup.ExecContext(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema)); err != nil {
			t.Logf("ledgertest: drop schema %s: %v", schema, err)
		}
	})

	return client
}

// sharedDatabase returns a base connection string, from CI_DATABASE_URL if
// set, otherwise a shared testcontainer started once per test binary.
func sharedDatabase(t *testing.T) string {
	t.Helper()
	if ci := os.Getenv("CI_DATABASE_URL"); ci != "" {
		return ci
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("start postgres container: %w", err)
			return
		}
		sharedConnStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = fmt.Errorf("container connection string: %w", err)
		}
	})

	require.NoError(t, containerErr, "failed to start shared test container")
	return sharedConnStr
}

// generateSchemaName builds a unique, Postgres-safe schema name from the
// test name plus a random suffix, capped well under the 63-char identifier
// limit.
func generateSchemaName(t *testing.T) string {
	t.Helper()
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	suffix := make([]byte, 4)
	_, err := rand.Read(suffix)
	require.NoError(t, err)
	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(suffix))
}

// parseConnString turns a postgres:// URL (as returned by the testcontainers
// postgres module) into a ledger.Config, since ledger.Config.DSN builds its
// own keyword=value string rather than accepting a URL directly.
func parseConnString(t *testing.T, connStr string) ledger.Config {
	t.Helper()
	u, err := url.Parse(connStr)
	require.NoError(t, err)

	cfg := ledger.DefaultConfig()
	cfg.Host = u.Hostname()
	if port := u.Port(); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Port)
	}
	cfg.Database = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	cfg.SSLMode = "disable"
	if mode := u.Query().Get("sslmode"); mode != "" {
		cfg.SSLMode = mode
	}
	return cfg
}

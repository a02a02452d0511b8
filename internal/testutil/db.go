// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/udisondev/questbots/internal/db"
)

// SetupTestDB returns a migrated pool.
//
// DB_ADDR points the tests at an existing database. Otherwise a PostgreSQL
// testcontainer is started when QUESTBOTS_DB_TESTS=1. Without either, or in
// short mode, the test is skipped.
func SetupTestDB(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping database test in short mode")
	}

	ctx := context.Background()
	dsn := os.Getenv("DB_ADDR")
	if dsn == "" {
		if os.Getenv("QUESTBOTS_DB_TESTS") != "1" {
			tb.Skip("set QUESTBOTS_DB_TESTS=1 or DB_ADDR to run database tests")
		}
		dsn = startPostgres(tb)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		tb.Fatalf("connecting to test db: %v", err)
	}
	tb.Cleanup(func() { pool.Close() })

	if err := db.RunMigrations(ctx, pool); err != nil {
		tb.Fatalf("running migrations: %v", err)
	}
	return pool
}

func startPostgres(tb testing.TB) string {
	tb.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		tb.Fatalf("starting postgres container: %v", err)
	}
	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			tb.Logf("terminating postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("getting connection string: %v", err)
	}
	return dsn
}

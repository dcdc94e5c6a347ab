// Package dbtest starts a throwaway PostgreSQL for integration tests.
package dbtest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"cm-admin/internal/db"
)

const (
	user     = "testuser"
	password = "testpass"
)

var (
	startOnce sync.Once
	baseHost  string
	basePort  string
	startErr  error
	dbCounter atomic.Int64
)

// NewPool returns a pool connected to a fresh, fully migrated database. The
// container is shared by all tests of the package; each call gets its own
// database. Skipped under -short or when Docker is unavailable.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	return NewPoolSize(t, 8)
}

// NewPoolSize is NewPool with a pool capped at maxConns connections.
func NewPoolSize(t *testing.T, maxConns int32) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	startOnce.Do(func() {
		var c *postgres.PostgresContainer
		c, startErr = postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername(user),
			postgres.WithPassword(password),
			postgres.BasicWaitStrategies(),
		)
		if startErr != nil {
			return
		}
		baseHost, startErr = c.Host(ctx)
		if startErr != nil {
			return
		}
		port, err := c.MappedPort(ctx, "5432")
		if err != nil {
			startErr = err
			return
		}
		basePort = port.Port()
	})
	if startErr != nil {
		t.Fatalf("start postgres container: %v", startErr)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	admin, err := db.Connect(ctx, db.PoolConfig{URL: url("postgres"), MaxConns: 2, ConnectTimeout: time.Minute}, logger)
	if err != nil {
		t.Fatalf("connect admin pool: %v", err)
	}
	defer admin.Close()

	name := fmt.Sprintf("cm_test_%d", dbCounter.Add(1))
	if _, err := admin.Exec(ctx, "CREATE DATABASE "+name); err != nil {
		t.Fatalf("create database %s: %v", name, err)
	}

	// Migrations get their own pool so maxConns bounds only the test's work.
	migrator, err := db.Connect(ctx, db.PoolConfig{URL: url(name), MaxConns: 4}, logger)
	if err != nil {
		t.Fatalf("connect migration pool: %v", err)
	}
	err = db.RunMigrations(ctx, migrator)
	migrator.Close()
	if err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := db.Connect(ctx, db.PoolConfig{URL: url(name), MaxConns: maxConns}, logger)
	if err != nil {
		t.Fatalf("connect test pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// Count returns SELECT count(*) of table, failing the test on error.
func Count(t *testing.T, pool *pgxpool.Pool, table string, where string, args ...any) int64 {
	t.Helper()
	sql := "SELECT count(*) FROM " + table
	if where != "" {
		sql += " WHERE " + where
	}
	var n int64
	if err := pool.QueryRow(context.Background(), sql, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func url(database string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, baseHost, basePort, database)
}

//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fleetops/internal/platform/postgres"
)

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and migrates it.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("fleetops"),
		tcpostgres.WithUsername("fleetops"),
		tcpostgres.WithPassword("fleetops"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := postgres.Open(ctx, dsn, postgres.DefaultOptions())
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to migrate postgres: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// Truncate empties every table between tests.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE outbox, violations, amendment_requests, duty_status_entries, driver_heads CASCADE
	`)
	return err
}

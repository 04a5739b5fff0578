// internal/testutil/postgres.go
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/your-org/catalog-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/catalog-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// Tables in truncation order
var tables = []string{"wishlists", "media", "product_details", "products", "category_fields", "categories", "brands", "users"}

// StartPostgres boots a throwaway postgres container and applies the full
// schema. The returned func terminates the container.
func StartPostgres(ctx context.Context) (db *gorm.DB, teardown func(), err error) {
	// the docker provider panics on some hosts without a daemon
	defer func() {
		if r := recover(); r != nil {
			db, teardown, err = nil, nil, fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	container, err := tcpostgres.Run(ctx,
		"postgres:15",
		tcpostgres.WithDatabase("catalog_test"),
		tcpostgres.WithUsername("catalog"),
		tcpostgres.WithPassword("catalog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	teardown = func() {
		_ = container.Terminate(context.Background())
	}

	host, err := container.Host(ctx)
	if err != nil {
		teardown()
		return nil, nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		teardown()
		return nil, nil, fmt.Errorf("failed to get container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://catalog:catalog@%s:%s/catalog_test?sslmode=disable", host, port.Port())
	db, err = postgres.Open(dsn, nil)
	if err != nil {
		teardown()
		return nil, nil, err
	}

	if err := postgres.NewMigration(db, logger.Discard()).Run(); err != nil {
		teardown()
		return nil, nil, err
	}

	return db, teardown, nil
}

// RequireDB skips the test when no database could be started
func RequireDB(t testing.TB, db *gorm.DB) *gorm.DB {
	t.Helper()
	if db == nil {
		t.Skip("postgres container unavailable")
	}
	Reset(t, db)
	return db
}

// Reset empties every catalog table
func Reset(t testing.TB, db *gorm.DB) {
	t.Helper()
	for _, table := range tables {
		if err := db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY CASCADE").Error; err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}

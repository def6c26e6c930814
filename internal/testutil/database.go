//go:build integration

package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/db"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/logging"
)

// SetupTestDB starts a throwaway PostgreSQL container, applies the embedded
// migrations and returns an open pool. Everything is torn down with the test.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("screening_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	runner, err := db.NewMigrationRunner(url, logging.Discard())
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := runner.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	runner.Close()

	conn, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.PingContext(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}
	return conn
}

// CreateTestUser inserts an account row and returns its id.
func CreateTestUser(t *testing.T, conn *sql.DB, email, role string) string {
	t.Helper()

	var id string
	err := conn.QueryRow(
		`INSERT INTO users (email, password_hash, role) VALUES ($1, 'x', $2) RETURNING id`,
		email, role,
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return id
}

// CreateTestPatient inserts a patient owned by ownerID and returns its id.
func CreateTestPatient(t *testing.T, conn *sql.DB, ownerID, firstName string) string {
	t.Helper()

	var id string
	err := conn.QueryRow(`
		INSERT INTO patients (created_by, first_name, last_name, gender, birth_date, address, phone)
		VALUES ($1, $2, 'Test', 'F', '1990-01-01', 'Addis Ababa', '0911000000')
		RETURNING id`,
		ownerID, firstName,
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test patient: %v", err)
	}
	return id
}

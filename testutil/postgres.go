// Package testutil provides shared test utilities for starforge
// integration tests: a disposable PostgreSQL container used to exercise
// warehouse inspection, the migration ledger and seeding against a real
// engine. Container tests are skipped in -short mode.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var suppressedLogger = log.New(io.Discard, "", 0)

// getPostgresVersion returns the PostgreSQL version to use for testing.
// It reads from the STARFORGE_POSTGRES_VERSION environment variable,
// defaulting to "17" if not set.
func getPostgresVersion() string {
	if version := os.Getenv("STARFORGE_POSTGRES_VERSION"); version != "" {
		return version
	}
	return "17"
}

// ContainerInfo holds PostgreSQL container connection details.
type ContainerInfo struct {
	Container testcontainers.Container
	URL       string
	Conn      *sql.DB
}

// SetupPostgresContainer starts a PostgreSQL test container and opens a
// connection to it. The test is skipped in -short mode.
func SetupPostgresContainer(ctx context.Context, t *testing.T) *ContainerInfo {
	return SetupPostgresContainerWithDB(ctx, t, "testdw", "testuser", "testpass")
}

// SetupPostgresContainerWithDB starts a PostgreSQL test container with
// custom database settings.
func SetupPostgresContainerWithDB(ctx context.Context, t *testing.T, database, username, password string) *ContainerInfo {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	postgresContainer, err := postgres.Run(ctx,
		"postgres:"+getPostgresVersion()+"-alpine",
		postgres.WithDatabase(database),
		postgres.WithUsername(username),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(suppressedLogger),
	)
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}

	url, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	conn, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	return &ContainerInfo{
		Container: postgresContainer,
		URL:       url,
		Conn:      conn,
	}
}

// Terminate cleans up the container and connection.
func (ci *ContainerInfo) Terminate(ctx context.Context, t *testing.T) {
	ci.Conn.Close()
	if err := ci.Container.Terminate(ctx); err != nil {
		t.Logf("Failed to terminate container: %v", err)
	}
}

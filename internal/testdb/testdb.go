//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/studykit-api/internal/platform/postgres"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DatabaseURLEnv names the variable pointing tests at an existing database.
const DatabaseURLEnv = "STUDYKIT_TEST_DATABASE_URL"

const (
	postgresImage    = "postgres:16-alpine"
	postgresUser     = "studykit"
	postgresPassword = "studykit"
	postgresDB       = "studykit_test"
	startupTimeout   = 90 * time.Second
)

var (
	once     sync.Once
	shared   *sql.DB
	setupErr error
)

// Open returns a migrated database shared by every test in the binary.
// The test is skipped when no database can be provisioned. The container,
// if one was started, is reaped by testcontainers when the process exits.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	once.Do(func() {
		shared, setupErr = setup(context.Background())
	})
	if setupErr != nil {
		t.Skipf("database unavailable: %v", setupErr)
	}
	return shared
}

func setup(ctx context.Context) (*sql.DB, error) {
	dsn := os.Getenv(DatabaseURLEnv)
	if dsn == "" {
		var err error
		dsn, err = startContainer(ctx)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if err := postgres.Migrate(ctx, db, postgres.MigrateUp, nil); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func startContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		// postgres logs the line twice: once for the init server, once for the real one.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(startupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, host, port.Port(), postgresDB), nil
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func getTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func getMigrationsPath(t *testing.T) string {
	projectRoot, err := filepath.Abs("../..")
	require.NoError(t, err)

	migrationsPath := filepath.Join(projectRoot, "migrations")
	t.Logf("Migrations path: %s", migrationsPath)
	return migrationsPath
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, table).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestRunMigrations(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	version, err := Run(db, getMigrationsPath(t))
	require.NoError(t, err)
	require.Equal(t, uint(3), version)

	for _, table := range []string{"users", "plans", "subscriptions", "bots", "files", "bot_sessions", "usage_records"} {
		require.Truef(t, tableExists(t, db, table), "table %s should exist", table)
	}

	var exists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public'
			AND tablename = 'usage_records'
			AND indexname = 'idx_usage_records_user_period'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "Index should exist")

	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'subscriptions' AND column_name = 'last_event_at'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "subscriptions.last_event_at should exist")

	var plansCount int
	err = db.QueryRow("SELECT COUNT(*) FROM plans").Scan(&plansCount)
	require.NoError(t, err)
	require.Equal(t, 4, plansCount, "Should have seeded plan catalog")
}

func TestRunMigrations_CreditsCannotGoNegative(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	_, err := Run(db, getMigrationsPath(t))
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO users (email, credits_minutes) VALUES ('neg@example.com', -1)`)
	require.Error(t, err)
}

func TestMigrationIdempotency(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	migrationsPath := getMigrationsPath(t)

	first, err := Run(db, migrationsPath)
	require.NoError(t, err)
	second, err := Run(db, migrationsPath)
	require.NoError(t, err, "Running migrations twice should not fail")
	require.Equal(t, first, second)

	var plansCount int
	err = db.QueryRow("SELECT COUNT(*) FROM plans").Scan(&plansCount)
	require.NoError(t, err)
	require.Equal(t, 4, plansCount, "Should still have four plans after second run")
}

func TestRun_InvalidPath(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	_, err := Run(db, filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "migrations.Run")
}

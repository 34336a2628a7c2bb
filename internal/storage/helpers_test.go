package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/voicebot-billing/internal/migrations"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции проекта.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, connStr)
	require.NoError(t, err, "failed to create storage")
	require.Error(t, storage.Ready(ctx), "fresh database has no schema")

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	_, err = migrations.Run(storage.DB, migrationsPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return storage
}

// TestDataFactory создаёт тестовые данные напрямую в БД.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

func (f *TestDataFactory) CreateUser(t *testing.T, credits int, customerID *string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := f.storage.DB.Exec(`INSERT INTO users (id, email, name, credits_minutes, stripe_customer_id)
		VALUES ($1, $2, $3, $4, $5)`,
		id, id+"@example.com", "Test User", credits, customerID)
	require.NoError(t, err)
	return id
}

func (f *TestDataFactory) SetPlanPrice(t *testing.T, code, priceID string) {
	t.Helper()
	_, err := f.storage.DB.Exec(`UPDATE plans SET external_price_id = $2 WHERE code = $1`, code, priceID)
	require.NoError(t, err)
}

func (f *TestDataFactory) CreateBot(t *testing.T, userID, slug string, active, public bool, domains []string) string {
	t.Helper()
	id := uuid.NewString()
	rawDomains, err := json.Marshal(domains)
	require.NoError(t, err)
	_, err = f.storage.DB.Exec(`INSERT INTO bots (id, user_id, name, slug, system_prompt, voice_config,
			theme_config, is_active, is_public, allowed_domains)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, userID, "Support bot", slug, "You are helpful.", `{"voice":"alloy"}`, `{"color":"#000"}`,
		active, public, string(rawDomains))
	require.NoError(t, err)
	return id
}

func (f *TestDataFactory) CreateFile(t *testing.T, botID, filename, status string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := f.storage.DB.Exec(`INSERT INTO files (id, bot_id, filename, mime_type, status)
		VALUES ($1, $2, $3, $4, $5)`, id, botID, filename, "application/pdf", status)
	require.NoError(t, err)
	return id
}

func (f *TestDataFactory) CreateSession(t *testing.T, botID, userID string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := f.storage.DB.Exec(`INSERT INTO bot_sessions (id, bot_id, user_id, session_token)
		VALUES ($1, $2, $3, $4)`, id, botID, userID, "token")
	require.NoError(t, err)
	return id
}

func (f *TestDataFactory) Credits(t *testing.T, userID string) int {
	t.Helper()
	var credits int
	require.NoError(t, f.storage.DB.QueryRow(`SELECT credits_minutes FROM users WHERE id = $1`, userID).Scan(&credits))
	return credits
}

func strPtr(s string) *string { return &s }

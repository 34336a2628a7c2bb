package rabbitmq

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/voicebot-billing/internal/config"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// brokerConfig возвращает настройки внешнего брокера из TEST_RABBITMQ_URL
// либо поднимает контейнер. SKIP_RABBITMQ_TESTS=true пропускает тест.
func brokerConfig(ctx context.Context, t *testing.T) config.RabbitMQ {
	t.Helper()
	if os.Getenv("SKIP_RABBITMQ_TESTS") == "true" {
		t.Skip("Skipping RabbitMQ tests")
	}
	cfg := config.RabbitMQ{RabbitMQMaxRetries: 5, RabbitMQRetryDelay: 500 * time.Millisecond}
	if url := os.Getenv("TEST_RABBITMQ_URL"); url != "" {
		cfg.RabbitMQURL = url
		return cfg
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	cfg.RabbitMQURL = fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
	return cfg
}

package clickhouse_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"navcli/internal/storage"
	"navcli/internal/storage/clickhouse"
	"navcli/internal/storage/migrations"
	"navcli/internal/storage/storagetest"
)

// setupTestDB starts a ClickHouse container and applies the embedded migrations.
func setupTestDB(t *testing.T) *clickhouse.Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").
					WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := migrations.RunClickhouseMigrations(ctx, fmt.Sprintf("clickhouse://default@%s:%s/nav", host, port.Port()))
	require.NoError(t, err)
	return conn
}

func TestMetricsSinkLatest(t *testing.T) {
	ctx := context.Background()
	sink := clickhouse.NewMetricsSink(setupTestDB(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer sink.Close()

	require.NoError(t, sink.WriteBatch(ctx, storagetest.Batch(t)))

	latest, err := sink.Latest(ctx, 119551)
	require.NoError(t, err)
	assert.InDelta(t, 21.0, latest["nav"], 1e-9)
	assert.InDelta(t, 61.0/3.0, latest["avg_3"], 1e-9)

	_, err = sink.Latest(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

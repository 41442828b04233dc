package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"navcli/internal/storage"
	"navcli/internal/storage/migrations"
	"navcli/internal/storage/postgres"
	"navcli/internal/storage/storagetest"
)

// setupTestDB starts a PostgreSQL container and applies the embedded migrations.
func setupTestDB(t *testing.T) *postgres.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("navdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool))
	return pool
}

func TestMetricsSinkReplacesBatch(t *testing.T) {
	ctx := context.Background()
	sink := postgres.NewMetricsSink(setupTestDB(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer sink.Close()

	b := storagetest.Batch(t)
	require.NoError(t, sink.WriteBatch(ctx, b))
	// A recompute of the same funds replaces rather than duplicates.
	require.NoError(t, sink.WriteBatch(ctx, b))

	latest, err := sink.Latest(ctx, 100027)
	require.NoError(t, err)
	assert.InDelta(t, 14.0, latest["nav"], 1e-9)
	assert.InDelta(t, 13.0, latest["avg_3"], 1e-9)
	assert.InDelta(t, math.Sqrt(2.0/3.0), latest["std_3"], 1e-9)

	name, err := sink.FundName(ctx, 119551)
	require.NoError(t, err)
	assert.Equal(t, "Fund 119551", name)

	_, err = sink.FundName(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcli/internal/config"
	api "navcli/pkg/contracts/api/v1"
)

const feed = `Scheme Code;Scheme Name;Net Asset Value;Repurchase Price;Sale Price;Date
100027;Alpha Growth Fund;10.0000;;;01-Mar-2021
100027;Alpha Growth Fund;11.0000;;;02-Mar-2021
100027;Alpha Growth Fund;13.0000;;;04-Mar-2021
100027;Alpha Growth Fund;14.0000;;;05-Mar-2021
119551;Beta Liquid Fund;20.0000;;;01-Mar-2021
119551;Beta Liquid Fund;N.A.;;;02-Mar-2021
119551;Beta Liquid Fund;21.0000;;;03-Mar-2021
`

func newTestApp(t *testing.T) *Application {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Metrics = config.MetricsConfig{CAGRWindows: []int{2}, RollingWindows: []int{3}}
	cfg.Processing.BatchSize = 1
	cfg.Processing.Workers = 2

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := NewApplication(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.release(ctx)
	})

	require.NoError(t, os.WriteFile(filepath.Join(app.Paths.InputDir, "nav_history.txt"), []byte(feed), 0o644))
	return app
}

func serve(app *Application, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestNewApplicationLayout(t *testing.T) {
	app := newTestApp(t)

	for _, dir := range []string{app.Paths.InputDir, app.Paths.CSVDir, app.Paths.XLSXDir, app.Paths.LogsDir} {
		assert.DirExists(t, dir)
	}
	require.Len(t, app.Pipeline.Sinks, 1)
	assert.Equal(t, "csv", app.Pipeline.Sinks[0].Name())
	assert.Nil(t, app.Pipeline.Latest())
	assert.Empty(t, app.Pipeline.Checks())
	assert.Equal(t, ":8080", app.Server.Addr)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := serve(app, http.MethodGet, "/api/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(app, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), config.AppVersion)
}

func TestRecomputeThenQuery(t *testing.T) {
	app := newTestApp(t)

	rec := serve(app, http.MethodGet, "/api/funds", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no reports before the first run")

	rec = serve(app, http.MethodPost, "/api/operations/recompute", "{}")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted api.RecomputeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, "/api/operations/"+accepted.OperationID, rec.Header().Get("Location"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.OperationService.Wait(ctx))

	rec = serve(app, http.MethodGet, "/api/operations/"+accepted.OperationID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)

	rec = serve(app, http.MethodGet, "/api/funds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.FundListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	rec = serve(app, http.MethodGet, "/api/funds/100027/series", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var series api.SeriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series.Rows, 5)

	// 03-Mar is forward filled from 02-Mar.
	assert.InDelta(t, 11.0, *series.Rows[2].Metrics["NAV"], 1e-9)
	assert.Nil(t, series.Rows[1].Metrics["avg_3"])
	assert.InDelta(t, (11.0+13.0+14.0)/3, *series.Rows[4].Metrics["avg_3"], 1e-4)

	rec = serve(app, http.MethodGet, "/api/funds/100027/download", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Date,NAV"))

	rec = serve(app, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nav_funds_processed_total")
}

func TestUnknownRouteIsProblem(t *testing.T) {
	app := newTestApp(t)

	rec := serve(app, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":404`)

	rec = serve(app, http.MethodGet, "/api/funds/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanConfigFrom(t *testing.T) {
	plan := PlanConfigFrom(config.MetricsConfig{
		CAGRWindows: []int{365},
		Layers:      config.Layers{{Window: 1095, Over: 365}},
	})
	assert.Equal(t, []int{365}, plan.CAGRWindows)
	require.Len(t, plan.Layers, 1)
	assert.Equal(t, 1095, plan.Layers[0].Window)
	assert.Equal(t, 365, plan.Layers[0].Over)
}

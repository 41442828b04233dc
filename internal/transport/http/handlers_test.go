package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcli/internal/date"
	apierrors "navcli/internal/errors"
	"navcli/internal/exporter"
	"navcli/internal/files"
	"navcli/internal/middleware"
	"navcli/internal/operations"
	"navcli/internal/services"
	"navcli/pkg/contracts/domain"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func ptr(v float64) *float64 { return &v }

type fakeData struct {
	dir    string
	within *date.Range
}

func (f *fakeData) ListFunds(_ context.Context, query string) ([]domain.Fund, error) {
	if query == "none" {
		return nil, services.ErrNoReportsFound
	}
	return []domain.Fund{{Code: 100027, Name: "Alpha Growth"}, {Code: 119551, Name: "Beta Bond"}}, nil
}

func (f *fakeData) GetSeries(_ context.Context, code int64, within *date.Range) (*exporter.Report, error) {
	f.within = within
	if code != 100027 {
		return nil, fmt.Errorf("%w: %d", services.ErrFundNotFound, code)
	}
	return &exporter.Report{
		Columns: []string{"NAV", "avg_3"},
		Rows: []domain.FundRow{
			{Date: date.New(2021, 3, 2), Metrics: map[string]*float64{"NAV": ptr(11), "avg_3": nil}},
			{Date: date.New(2021, 3, 3), Metrics: map[string]*float64{"NAV": ptr(12), "avg_3": ptr(11)}},
		},
	}, nil
}

func (f *fakeData) GetFundSummary(_ context.Context, code int64) (*domain.FundSummary, error) {
	if code != 100027 {
		return nil, services.ErrFundNotFound
	}
	return &domain.FundSummary{Code: code, Name: "Alpha Growth", Days: 2, Latest: map[string]*float64{"NAV": ptr(12)}}, nil
}

func (f *fakeData) ReportFile(code int64) (files.FileInfo, error) {
	if code != 100027 {
		return files.FileInfo{}, services.ErrFundNotFound
	}
	path := filepath.Join(f.dir, "100027.csv")
	st, err := os.Stat(path)
	if err != nil {
		return files.FileInfo{}, err
	}
	return files.FileInfo{Path: path, Name: st.Name(), Size: st.Size(), ModTime: st.ModTime()}, nil
}

type fakeOps struct {
	running bool
	params  map[string]interface{}
}

const opID = "3f1c1a52-6f0e-4d8e-9a43-2f35a9c4a111"

func (f *fakeOps) StartRecompute(_ context.Context, params map[string]interface{}) (string, error) {
	if f.running {
		return "", services.ErrOperationRunning
	}
	f.running = true
	f.params = params
	return opID, nil
}

func (f *fakeOps) GetStatus(_ context.Context, id string) (*operations.OperationSnapshot, error) {
	if id != opID {
		return nil, services.ErrOperationMissing
	}
	return &operations.OperationSnapshot{OperationID: id, Status: "running", Progress: 40, StartedAt: time.Now()}, nil
}

func (f *fakeOps) ListOperations(context.Context) []*operations.OperationSnapshot { return nil }

func (f *fakeOps) CancelOperation(_ context.Context, id string) error {
	if id != opID {
		return services.ErrOperationMissing
	}
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakeData, *fakeOps) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "100027.csv"), []byte("Date,NAV\n2021-03-01,10.0000\n"), 0o644))

	data := &fakeData{dir: dir}
	ops := &fakeOps{}
	eh := apierrors.NewErrorHandler(discard(), false)
	v := middleware.NewValidator()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/funds", NewDataHandler(data, v, discard(), eh).Routes())
	r.Mount("/api/operations", NewOperationsHandler(ops, v, discard(), eh).Routes())
	r.Handle("/metrics", NewMetricsHandler(nil, eh))
	return r, data, ops
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestListFunds(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := do(h, http.MethodGet, "/api/funds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])

	rec = do(h, http.MethodGet, "/api/funds?q=none", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_REPORTS_FOUND", decode(t, rec)["error_code"])

	rec = do(h, http.MethodGet, "/api/funds?q="+strings.Repeat("x", 101), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetFund(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := do(h, http.MethodGet, "/api/funds/100027", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Alpha Growth", body["name"])

	rec = do(h, http.MethodGet, "/api/funds/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FUND_NOT_FOUND", decode(t, rec)["error_code"])

	rec = do(h, http.MethodGet, "/api/funds/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.TypeValidation, decode(t, rec)["type"])
}

func TestGetSeries(t *testing.T) {
	h, data, _ := newTestRouter(t)

	rec := do(h, http.MethodGet, "/api/funds/100027/series?from=2021-03-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, data.within)
	assert.Equal(t, date.New(2021, 3, 2), data.within.From)
	assert.Equal(t, date.New(9999, 12, 31), data.within.To)

	body := decode(t, rec)
	assert.Equal(t, "2021-03-02", body["from"])
	assert.NotContains(t, body, "to")
	rows := body["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)["metrics"].(map[string]any)
	assert.Nil(t, first["avg_3"])
	assert.Equal(t, float64(11), first["NAV"])

	do(h, http.MethodGet, "/api/funds/100027/series", "")
	assert.Nil(t, data.within)

	rec = do(h, http.MethodGet, "/api/funds/100027/series?to=03-03-2021", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := do(h, http.MethodGet, "/api/funds/100027/download", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="100027.csv"`)
	assert.Equal(t, "Date,NAV\n2021-03-01,10.0000\n", rec.Body.String())

	rec = do(h, http.MethodGet, "/api/funds/5/download", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecompute(t *testing.T) {
	h, _, ops := newTestRouter(t)

	rec := do(h, http.MethodPost, "/api/operations/recompute", `{"batch_size": 500}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/operations/"+opID, rec.Header().Get("Location"))
	assert.Equal(t, opID, decode(t, rec)["operation_id"])
	assert.Equal(t, 500, ops.params[operations.ConfigKeyBatchSize])
	assert.NotContains(t, ops.params, operations.ConfigKeyInputDir)

	rec = do(h, http.MethodPost, "/api/operations/recompute", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierrors.TypeOperationRunning, decode(t, rec)["type"])

	ops.running = false
	rec = do(h, http.MethodPost, "/api/operations/recompute", `{"batch_size": 0, "extra": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationStatus(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := do(h, http.MethodGet, "/api/operations/"+opID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(40), decode(t, rec)["progress"])

	rec = do(h, http.MethodGet, "/api/operations/8a7e0f8c-1111-4a4a-8b8b-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/api/operations/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/operations/"+opID+"/cancel", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(h, http.MethodGet, "/api/operations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["count"])
}

func TestMetricsDisabled(t *testing.T) {
	h, _, _ := newTestRouter(t)
	rec := do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "METRICS_DISABLED", decode(t, rec)["error_code"])
}

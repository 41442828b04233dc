package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"navcli/internal/date"
	apierrors "navcli/internal/errors"
	"navcli/internal/middleware"
	api "navcli/pkg/contracts/api/v1"
	"navcli/pkg/contracts/domain"
)

// DataHandler serves the fund reports
type DataHandler struct {
	service      DataServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler
func NewDataHandler(service DataServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the fund routes, mounted at /api/funds.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.ListFunds)
	r.Route("/{code}", func(r chi.Router) {
		r.Use(h.FundCtx)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.GetFund)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/series", h.GetSeries)
		r.Get("/download", h.Download)
	})
	return r
}

type fundCodeKey struct{}

func withFundCode(ctx context.Context, code int64) context.Context {
	return context.WithValue(ctx, fundCodeKey{}, code)
}

func fundCode(ctx context.Context) int64 {
	code, _ := ctx.Value(fundCodeKey{}).(int64)
	return code
}

// FundCtx validates the {code} parameter and stores the parsed code.
func (h *DataHandler) FundCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := api.FundRequest{Code: chi.URLParam(r, "code")}
		if err := h.validator.Struct(&req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		code, err := strconv.ParseInt(req.Code, 10, 64)
		if err != nil || code <= 0 {
			h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("code", fmt.Errorf("%q is not a scheme code", req.Code)))
			return
		}
		next.ServeHTTP(w, r.WithContext(withFundCode(r.Context(), code)))
	})
}

// ListFunds handles GET /api/funds?q=
func (h *DataHandler) ListFunds(w http.ResponseWriter, r *http.Request) {
	req := api.FundListRequest{Query: r.URL.Query().Get("q")}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	funds, err := h.service.ListFunds(r.Context(), req.Query)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, api.FundListResponse{Funds: funds, Count: len(funds)})
}

// GetFund handles GET /api/funds/{code}
func (h *DataHandler) GetFund(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetFundSummary(r.Context(), fundCode(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, summary)
}

// GetSeries handles GET /api/funds/{code}/series?from=&to=
func (h *DataHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := api.SeriesRequest{
		FundRequest: api.FundRequest{Code: chi.URLParam(r, "code")},
		From:        q.Get("from"),
		To:          q.Get("to"),
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	code := fundCode(r.Context())
	resp := api.SeriesResponse{Code: code}
	var within *date.Range
	if req.From != "" || req.To != "" {
		within = &date.Range{From: date.New(1, 1, 1), To: date.New(9999, 12, 31)}
		if req.From != "" {
			within.From = date.MustParse(req.From)
			resp.From = &within.From
		}
		if req.To != "" {
			within.To = date.MustParse(req.To)
			resp.To = &within.To
		}
	}

	report, err := h.service.GetSeries(r.Context(), code, within)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	resp.Columns = report.Columns
	resp.Rows = report.Rows
	if resp.Rows == nil {
		resp.Rows = []domain.FundRow{}
	}

	h.logger.DebugContext(r.Context(), "series served",
		slog.Int64("code", code),
		slog.Int("rows", len(resp.Rows)))
	render.JSON(w, r, resp)
}

// Download handles GET /api/funds/{code}/download with the raw CSV report.
func (h *DataHandler) Download(w http.ResponseWriter, r *http.Request) {
	code := fundCode(r.Context())
	info, err := h.service.ReportFile(code)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	f, err := os.Open(info.Path)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("open fund report", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	http.ServeContent(w, r, info.Name, info.ModTime, f)

	h.logger.InfoContext(r.Context(), "report downloaded",
		slog.Int64("code", code),
		slog.Int64("bytes", info.Size),
		slog.String("request_id", middleware.GetReqID(r.Context())))
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "navcli/internal/errors"
	"navcli/internal/middleware"
	"navcli/internal/operations"
	api "navcli/pkg/contracts/api/v1"
)

// OperationsHandler starts and inspects pipeline runs
type OperationsHandler struct {
	service      OperationServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewOperationsHandler creates a new operations handler
func NewOperationsHandler(service OperationServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *OperationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "operations")),
		errorHandler: errorHandler,
	}
}

// Routes returns the operation routes, mounted at /api/operations.
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(middleware.ContentTypeValidator("application/json")).Post("/recompute", h.Recompute)
	r.Get("/", h.ListOperations)
	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.OperationCtx)
		r.Get("/", h.GetOperation)
		r.Post("/cancel", h.CancelOperation)
	})
	return r
}

// OperationCtx validates the {id} parameter.
func (h *OperationsHandler) OperationCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := api.OperationRequest{ID: chi.URLParam(r, "id")}
		if err := h.validator.Struct(&req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Recompute handles POST /api/operations/recompute. The run continues in the
// background; clients follow it over /ws or by polling the operation.
func (h *OperationsHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	var req api.RecomputeRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	params := map[string]interface{}{
		operations.ConfigKeyTriggeredBy: "api:" + middleware.GetReqID(r.Context()),
	}
	if req.InputDir != "" {
		params[operations.ConfigKeyInputDir] = req.InputDir
	}
	if req.BatchSize > 0 {
		params[operations.ConfigKeyBatchSize] = req.BatchSize
	}

	id, err := h.service.StartRecompute(r.Context(), params)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "recompute accepted",
		slog.String("operation_id", id),
		slog.String("request_id", middleware.GetReqID(r.Context())))
	w.Header().Set("Location", "/api/operations/"+id)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.RecomputeResponse{OperationID: id, Status: string(operations.OperationStatusRunning)})
}

// ListOperations handles GET /api/operations
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ops := h.service.ListOperations(r.Context())
	if ops == nil {
		ops = []*operations.OperationSnapshot{}
	}
	render.JSON(w, r, map[string]interface{}{
		"operations": ops,
		"count":      len(ops),
	})
}

// GetOperation handles GET /api/operations/{id}
func (h *OperationsHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, snap)
}

// CancelOperation handles POST /api/operations/{id}/cancel
func (h *OperationsHandler) CancelOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.CancelOperation(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	h.logger.InfoContext(r.Context(), "operation cancel requested", slog.String("operation_id", id))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"operation_id": id, "status": "cancelling"})
}

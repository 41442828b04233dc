package http

import (
	"net/http"

	apierrors "navcli/internal/errors"
)

// MetricsHandler serves the Prometheus exposition of the OpenTelemetry meter.
type MetricsHandler struct {
	exposition   http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler wraps exposition, which is nil when metrics are disabled.
func NewMetricsHandler(exposition http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{exposition: exposition, errorHandler: errorHandler}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(http.StatusNotFound, "METRICS_DISABLED",
			"Metrics are disabled", "set telemetry.metrics_enabled to expose /metrics"))
		return
	}
	h.exposition.ServeHTTP(w, r)
}

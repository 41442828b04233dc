package http

import (
	"errors"
	"net/http"

	apierrors "navcli/internal/errors"
	"navcli/internal/exporter"
	"navcli/internal/services"
)

// serviceError translates service sentinels into API errors. Unknown
// errors pass through and render as 500.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrFundNotFound):
		return apierrors.NewWithDetails(http.StatusNotFound, "FUND_NOT_FOUND", "Fund not found", err.Error())
	case errors.Is(err, services.ErrNoReportsFound):
		return apierrors.New(http.StatusNotFound, "NO_REPORTS_FOUND", "No reports available, run a recompute first")
	case errors.Is(err, services.ErrInvalidRange):
		return apierrors.InvalidParameter("to", err)
	case errors.Is(err, services.ErrOperationRunning):
		return apierrors.ErrOperationRunning
	case errors.Is(err, services.ErrOperationMissing):
		return apierrors.ErrOperationNotFound
	case errors.Is(err, exporter.ErrBadReport):
		return apierrors.NewParsingError("fund report is unreadable", err)
	}
	return err
}

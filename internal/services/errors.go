package services

import "errors"

// Service errors
var (
	ErrNoReportsFound   = errors.New("no reports found")
	ErrFundNotFound     = errors.New("fund not found")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrOperationRunning = errors.New("operation already running")
	ErrOperationMissing = errors.New("operation not found")
)

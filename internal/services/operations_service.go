package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"navcli/internal/operations"
)

// OperationService starts pipeline runs in the background, one at a time.
type OperationService struct {
	manager *operations.Manager
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	running string
	done    chan struct{}
}

// NewOperationService wraps manager. Each run is bounded by timeout.
func NewOperationService(manager *operations.Manager, timeout time.Duration, logger *slog.Logger) *OperationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationService{
		manager: manager,
		timeout: timeout,
		logger:  logger.With(slog.String("service", "operations")),
	}
}

// StartRecompute launches a full pipeline run and returns its ID without
// waiting for it. It fails with ErrOperationRunning while another run is
// in flight.
func (s *OperationService) StartRecompute(ctx context.Context, params map[string]interface{}) (string, error) {
	s.mu.Lock()
	if s.running != "" {
		id := s.running
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "recompute rejected, operation in flight", slog.String("operation_id", id))
		return "", ErrOperationRunning
	}
	id := uuid.NewString()
	s.running = id
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	// The run outlives the request that triggered it.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	go func() {
		defer cancel()
		defer func() {
			s.mu.Lock()
			s.running = ""
			s.mu.Unlock()
			close(done)
		}()

		resp, err := s.manager.Execute(runCtx, operations.OperationRequest{ID: id, Parameters: params})
		if err != nil {
			s.logger.ErrorContext(runCtx, "recompute failed",
				slog.String("operation_id", id),
				slog.String("error", err.Error()))
			return
		}
		s.logger.InfoContext(runCtx, "recompute finished",
			slog.String("operation_id", id),
			slog.String("status", string(resp.Status)),
			slog.Duration("duration", resp.Duration))
	}()

	s.logger.InfoContext(ctx, "recompute started", slog.String("operation_id", id))
	return id, nil
}

// Wait blocks until the current run, if any, has finished or ctx ends.
func (s *OperationService) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running returns the ID of the run in flight, if any.
func (s *OperationService) Running() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.running != ""
}

// GetStatus returns the latest snapshot of an operation.
func (s *OperationService) GetStatus(ctx context.Context, id string) (*operations.OperationSnapshot, error) {
	snap, ok := s.manager.GetBroadcaster().GetSnapshot(id)
	if !ok {
		return nil, ErrOperationMissing
	}
	return snap, nil
}

// ListOperations returns the known operations, newest first.
func (s *OperationService) ListOperations(ctx context.Context) []*operations.OperationSnapshot {
	return s.manager.GetBroadcaster().GetAllSnapshots()
}

// CancelOperation cancels a running operation.
func (s *OperationService) CancelOperation(ctx context.Context, id string) error {
	err := s.manager.CancelOperation(id)
	if errors.Is(err, operations.ErrOperationNotFound) {
		return ErrOperationMissing
	}
	return err
}

// Cleanup drops finished operations older than maxAge.
func (s *OperationService) Cleanup(ctx context.Context, maxAge time.Duration) int {
	return s.manager.GetBroadcaster().CleanupOldOperations(ctx, maxAge)
}

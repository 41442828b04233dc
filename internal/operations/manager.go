package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager orchestrates operation execution
type Manager struct {
	registry    *Registry
	config      *Config
	broadcaster *StatusBroadcaster
	tracer      *OperationTracer
	logger      *slog.Logger

	mu         sync.RWMutex
	operations map[string]*runningOperation
}

type runningOperation struct {
	state  *OperationState
	cancel context.CancelFunc
}

// NewManager creates a new operation manager. Nil dependencies fall back
// to defaults.
func NewManager(hub WebSocketHub, registry *Registry, config *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer = NewOperationTracer(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		registry:    registry,
		config:      config,
		broadcaster: NewStatusBroadcaster(hub, logger),
		tracer:      tracer,
		logger:      logger.With(slog.String("component", "operations")),
		operations:  make(map[string]*runningOperation),
	}
}

// RegisterStep registers a step with the manager
func (m *Manager) RegisterStep(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetBroadcaster returns the status broadcaster
func (m *Manager) GetBroadcaster() *StatusBroadcaster {
	return m.broadcaster
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs the registered steps, or only req.Step when set, and blocks
// until they finish.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state := NewOperationState(req.ID)
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	steps, err := m.selectSteps(req)
	if err != nil {
		m.logger.ErrorContext(ctx, "operation rejected",
			slog.String("operation_id", req.ID),
			slog.String("error", err.Error()))
		state.Fail(err)
		return m.createResponse(state), err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.storeOperation(state, cancel)
	defer m.removeOperation(req.ID)

	for _, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
	}
	state.OnProgress(func(stepID string, progress float64, message string, metadata map[string]interface{}) {
		m.tracer.RecordProgress(ctx, stepID, progress, message)
		m.broadcaster.UpdateStepProgress(req.ID, stepID, int(progress), message, metadata)
	})

	ctx, span := m.tracer.TraceOperation(ctx, req.ID, len(steps))
	defer span.End()

	m.broadcaster.CreateOperation(req.ID, steps)
	state.Start()
	m.broadcaster.StartOperation(req.ID)
	m.logger.InfoContext(ctx, "operation started",
		slog.String("operation_id", req.ID),
		slog.Int("steps", len(steps)))

	err = m.executeSequential(ctx, state, steps)

	switch {
	case err == nil:
		state.Complete()
		summary, _ := contextValue[*Summary](state, ContextKeySummary)
		m.broadcaster.CompleteOperation(req.ID, "Operation completed successfully", summary)
	case errors.Is(ctx.Err(), context.Canceled):
		state.Cancel()
		m.broadcaster.CancelOperation(req.ID)
	default:
		state.Fail(err)
		m.broadcaster.FailOperation(req.ID, err)
	}
	m.tracer.RecordOperationCompletion(ctx, span, state.Duration(), state.GetStatus(), err)

	m.logger.InfoContext(ctx, "operation finished",
		slog.String("operation_id", req.ID),
		slog.String("status", string(state.GetStatus())),
		slog.Duration("duration", state.Duration()))

	return m.createResponse(state), err
}

func (m *Manager) selectSteps(req OperationRequest) ([]Step, error) {
	if req.Step != "" {
		step, err := m.registry.Get(req.Step)
		if err != nil {
			return nil, NewValidationError(req.Step, err.Error())
		}
		return []Step{step}, nil
	}
	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to order steps: %w", err)
	}
	return steps, nil
}

func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	var firstErr error
	for i, step := range steps {
		if ctx.Err() != nil {
			return NewCancellationError(step.ID())
		}

		stepState := state.GetStep(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			continue
		}

		m.logger.InfoContext(ctx, "executing step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStep(ctx, state, step); err != nil {
			m.logger.ErrorContext(ctx, "step failed",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
			m.skipDependentSteps(state, steps, step.ID())
			if !m.config.ContinueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// executeStep runs one step under its timeout, retrying retryable failures
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStep(step.ID())

	if err := m.checkDependencies(state, step); err != nil {
		stepState.Skip(err.Error())
		m.broadcaster.SkipStep(state.ID, step.ID(), err.Error())
		return err
	}
	if err := step.Validate(state); err != nil {
		verr := NewValidationError(step.ID(), err.Error())
		stepState.Fail(verr)
		m.broadcaster.FailStep(state.ID, step.ID(), verr)
		return verr
	}

	timeout := m.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retry := m.config.RetryConfig
	attempts := max(retry.MaxAttempts, 1)
	for attempt := 1; ; attempt++ {
		stepState.Start()
		m.broadcaster.UpdateStepProgress(state.ID, step.ID(), 0, "Step started", nil)

		spanCtx, span := m.tracer.TraceStep(stepCtx, state.ID, step.ID(), attempt)
		started := time.Now()
		err := step.Execute(spanCtx, state)
		duration := time.Since(started)
		if err != nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			err = NewTimeoutError(step.ID(), timeout.String())
		}
		m.tracer.RecordStepCompletion(spanCtx, span, step.ID(), duration, err)
		span.End()

		if err == nil {
			stepState.Complete()
			m.broadcaster.CompleteStep(state.ID, step.ID(), "Step completed successfully")
			m.logger.InfoContext(ctx, "step completed",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Duration("duration", duration))
			return nil
		}

		if !IsRetryable(err) || attempt >= attempts {
			wrapped := WrapError(err, step.ID(), "")
			stepState.Fail(wrapped)
			m.broadcaster.FailStep(state.ID, step.ID(), wrapped)
			return wrapped
		}

		delay := retry.delay(attempt)
		m.logger.WarnContext(ctx, "retrying step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-stepCtx.Done():
			terr := NewTimeoutError(step.ID(), timeout.String())
			if errors.Is(stepCtx.Err(), context.Canceled) {
				terr = NewCancellationError(step.ID())
			}
			stepState.Fail(terr)
			m.broadcaster.FailStep(state.ID, step.ID(), terr)
			return terr
		}
	}
}

// skipDependentSteps marks every pending step downstream of failedID as skipped
func (m *Manager) skipDependentSteps(state *OperationState, steps []Step, failedID string) {
	for _, step := range steps {
		for _, dep := range step.GetDependencies() {
			if dep != failedID {
				continue
			}
			stepState := state.GetStep(step.ID())
			if stepState != nil && stepState.GetStatus() == StepStatusPending {
				reason := fmt.Sprintf("dependency %s failed", failedID)
				stepState.Skip(reason)
				m.broadcaster.SkipStep(state.ID, step.ID(), reason)
				m.skipDependentSteps(state, steps, step.ID())
			}
			break
		}
	}
}

// checkDependencies verifies that all dependencies of a step completed.
// Dependencies outside the current run are assumed satisfied.
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStep(dep)
		if depState == nil {
			continue
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not completed (status: %s)", dep, status))
		}
	}
	return nil
}

func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	clone := state.Clone()
	resp := &OperationResponse{
		ID:       clone.ID,
		Status:   clone.Status,
		Duration: clone.Duration(),
		Steps:    clone.Steps,
	}
	resp.Summary, _ = contextValue[*Summary](clone, ContextKeySummary)
	if clone.Error != nil {
		resp.Error = clone.Error.Error()
	}
	return resp
}

// GetOperation returns a copy of a running operation's state
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, exists := m.operations[id]
	if !exists {
		return nil, ErrOperationNotFound
	}
	return op.state.Clone(), nil
}

// Running reports whether any operation is in flight.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.operations) > 0
}

// CancelOperation cancels a running operation
func (m *Manager) CancelOperation(id string) error {
	m.mu.RLock()
	op, exists := m.operations[id]
	m.mu.RUnlock()
	if !exists {
		return ErrOperationNotFound
	}
	op.cancel()
	return nil
}

// Shutdown cancels all running operations and stops the broadcaster.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	for _, op := range m.operations {
		op.cancel()
	}
	m.mu.RUnlock()
	m.broadcaster.Stop()
}

func (m *Manager) storeOperation(state *OperationState, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = &runningOperation{state: state, cancel: cancel}
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}

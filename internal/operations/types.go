package operations

import (
	"time"
)

// Step identifiers
const (
	StepIDDiscover = "discover"
	StepIDScan     = "scan"
	StepIDCompute  = "compute"
)

// Step names
const (
	StepNameDiscover = "File Discovery"
	StepNameScan     = "Fund Scan"
	StepNameCompute  = "Statistics Computation"
)

// Keys of values passed between steps through the operation context
const (
	ContextKeyFiles      = "files"
	ContextKeyCodes      = "codes"
	ContextKeyScanStats  = "scan_stats"
	ContextKeySummary    = "summary"
	ConfigKeyInputDir    = "input_dir"
	ConfigKeyBatchSize   = "batch_size"
	ConfigKeyTriggeredBy = "triggered_by"
)

// WebSocket event types
const (
	EventTypeOperationSnapshot = "operation:snapshot"
	EventTypeOperationComplete = "operation:complete"
	EventTypeOperationError    = "operation:error"
)

// Default timeouts
const (
	DefaultStepTimeout     = 30 * time.Minute
	DefaultDiscoverTimeout = time.Minute
	DefaultScanTimeout     = 30 * time.Minute
	DefaultComputeTimeout  = 4 * time.Hour
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to execute an operation
type OperationRequest struct {
	ID         string                 `json:"id"`
	Step       string                 `json:"step,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the response from an operation execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Summary  *Summary              `json:"summary,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// Summary totals a pipeline run.
type Summary struct {
	Files        int           `json:"files"`
	Lines        int           `json:"lines"`
	Funds        int           `json:"funds"`
	Batches      int           `json:"batches"`
	Computed     int           `json:"computed"`
	Failed       []int64       `json:"failed,omitempty"`
	FilledDays   int           `json:"filled_days"`
	Values       int           `json:"values"`
	Duplicates   int           `json:"duplicates"`
	ComputeTime  time.Duration `json:"compute_time"`
	SinksWritten []string      `json:"sinks"`
}

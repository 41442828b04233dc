package operations

import (
	"time"

	"navcli/internal/config"
)

// Config controls how the manager runs steps
type Config struct {
	// StepTimeouts bounds each step by ID.
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	RetryConfig RetryConfig `json:"retry_config"`

	// ContinueOnError keeps running later steps after a failure.
	ContinueOnError bool `json:"continue_on_error"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		StepTimeouts: map[string]time.Duration{
			StepIDDiscover: DefaultDiscoverTimeout,
			StepIDScan:     DefaultScanTimeout,
			StepIDCompute:  DefaultComputeTimeout,
		},
		RetryConfig: NewRetryConfig(),
	}
}

// ConfigFrom derives the operation configuration from the application config.
// The compute step inherits the processing timeout.
func ConfigFrom(cfg config.ProcessingConfig) *Config {
	c := NewConfig()
	if cfg.Timeout > 0 {
		c.SetStepTimeout(StepIDCompute, cfg.Timeout)
		c.SetStepTimeout(StepIDScan, cfg.Timeout)
	}
	return c
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}

// delay returns the wait before the given retry attempt, starting at 1.
func (r RetryConfig) delay(attempt int) time.Duration {
	d := float64(r.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= r.Multiplier
	}
	if r.MaxDelay > 0 && time.Duration(d) > r.MaxDelay {
		return r.MaxDelay
	}
	return time.Duration(d)
}

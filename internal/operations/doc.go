// Package operations runs the NAV statistics pipeline as a sequence of
// dependent steps.
//
// A Registry holds the steps and orders them by dependency. The Manager
// executes them one at a time under per-step timeouts, retries failures
// marked retryable, skips the steps downstream of a failure, and reports
// every change through a StatusBroadcaster, which keeps one snapshot per
// operation and pushes it to the WebSocket hub.
//
// The pipeline registered by NewPipelineRegistry is:
//
//	discover  list the NAV files of the input directory
//	scan      read the feed once to collect the fund codes
//	compute   per batch of funds: parse, forward fill, compute, write sinks
//
// Example:
//
//	registry, err := operations.NewPipelineRegistry(deps)
//	manager := operations.NewManager(hub, registry, operations.ConfigFrom(cfg.Processing), tracer, logger)
//	resp, err := manager.Execute(ctx, operations.OperationRequest{})
package operations

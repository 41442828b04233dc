// Package services holds the logic behind the HTTP handlers.
//
//   - DataService reads the fund reports and the fund name table written by
//     the pipeline, optionally taking latest values from a database sink.
//   - OperationService starts pipeline runs in the background, one at a
//     time, and exposes their status snapshots.
//   - HealthService answers liveness and readiness probes.
//
// Services return the sentinel errors of errors.go; handlers translate them
// into HTTP problems.
package services

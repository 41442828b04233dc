// Package app wires navcli together: configuration, logging, telemetry,
// the statistics pipeline with its report sinks, the services and the HTTP
// server.
//
// # Initialization Flow
//
//  1. Load configuration (YAML file, then NAV_* environment variables)
//  2. Initialize the slog logger and OpenTelemetry providers
//  3. Resolve and create the data directories
//  4. Build the metric plan and open the configured sinks
//  5. Register the discover, scan and compute steps with an operations manager
//  6. Create the data, operation and health services
//  7. Mount the API, /ws and /metrics on a chi router
//
// # Usage
//
//	app, err := app.NewApplication(ctx, nil, nil)
//	if err != nil {
//		return err
//	}
//	return app.Run()
//
// Run blocks until SIGINT or SIGTERM, then shuts the server down, cancels
// the running operation, closes database sinks and flushes telemetry.
// NewPipeline is also used on its own by the batch processor command.
package app

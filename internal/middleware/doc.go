// Package middleware holds the HTTP middleware of the web server: request
// IDs, structured request logging, rate limiting, timeouts, CORS, security
// headers, OpenTelemetry instrumentation and request validation.
package middleware

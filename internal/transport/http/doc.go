// Package http implements the HTTP handlers of the web server.
//
// Handlers stay thin: they validate path and query parameters with the
// request contracts of pkg/contracts/api/v1, call a service, and render
// the result with go-chi/render. Service errors are translated by
// serviceError and rendered as RFC 7807 problems by the shared
// errors.ErrorHandler.
//
// Routes:
//
//	GET  /api/funds                     fund code and name table, ?q= filter
//	GET  /api/funds/{code}              span and latest statistics of a fund
//	GET  /api/funds/{code}/series       report rows, ?from=&to= (YYYY-MM-DD)
//	GET  /api/funds/{code}/download     raw CSV report
//	POST /api/operations/recompute      start a pipeline run (409 while one runs)
//	GET  /api/operations                known runs, newest first
//	GET  /api/operations/{id}           run snapshot
//	POST /api/operations/{id}/cancel    cancel a run
//	GET  /api/health[/ready|/live|/stats]
//	GET  /metrics
package http

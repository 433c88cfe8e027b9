// Package app wires the report service into an HTTP application.
//
// New builds, in order: OpenTelemetry providers, the report tracer and
// pipeline, the report and health services, the chi router with its
// middleware chain and finally the http.Server. Run serves until the
// context is cancelled or SIGINT/SIGTERM arrives and then shuts the
// server and the telemetry providers down.
//
// Routes:
//
//	POST /api/reports
//	GET  /api/reports/variants
//	GET  /api/health
//	GET  /api/health/ready
//	GET  /api/version
//	GET  /metrics
package app

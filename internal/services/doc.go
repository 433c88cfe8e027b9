// Package services implements the application layer between the transports
// (HTTP handlers, CLI commands) and the report pipeline.
//
// ReportService turns a request into a finished workbook and can persist it
// together with CSV copies of its tables. HealthService answers liveness and
// readiness probes.
package services

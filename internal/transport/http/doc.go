// Package http implements the HTTP handlers of the report service. Handlers
// only deal with transport concerns: they parse the multipart upload,
// validate it against the api/v1 contract, delegate to the report service
// and render either the workbook or an RFC 7807 problem document.
//
// # Routes
//
//	POST /api/reports            multipart upload, answers with the xlsx workbook
//	GET  /api/reports/variants   available report layouts
//	GET  /api/health             liveness
//	GET  /api/health/ready       readiness (variants registered, output dir writable)
//
// A successful generation sets Content-Disposition to the report filename and
// X-Skipped-Rows to the number of malformed delimited rows that were dropped.
// No partial body is ever written: the response is produced only after the
// pipeline reached its final state.
package http

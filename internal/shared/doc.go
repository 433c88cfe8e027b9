// Package shared holds helpers used across notireport packages. Its testutil
// subpackage builds in-memory workbook and CSV fixtures and captures slog
// output for assertions.
package shared

// Package operations runs report generation as a linear state machine.
//
// A run moves AWAITING_FILE → VALIDATING → READING → AGGREGATING →
// RENDERING_CHARTS → WRITING_REPORT → READY_FOR_HANDOFF, entering each state
// at most once. Any failure moves it to the terminal FAILED state and the
// returned OperationError names the stage that failed; no workbook bytes
// are produced in that case.
//
// The variant catalogue maps each report layout to its input requirements,
// the aggregations it needs and the charts anchored on each sheet.
package operations

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the report error types through errors.Is
var (
	ErrMissingSheet        = errors.New("missing sheet")
	ErrMissingColumn       = errors.New("missing column")
	ErrUnsupportedFileKind = errors.New("unsupported file kind")
	ErrMalformedRow        = errors.New("malformed row")
	ErrEmptyDataset        = errors.New("empty dataset")
	ErrUnsupportedVariant  = errors.New("unsupported variant")
)

// MissingSheetError lists every required sheet absent from a workbook
type MissingSheetError struct {
	Sheets []string
}

func (e *MissingSheetError) Error() string {
	if len(e.Sheets) == 1 {
		return fmt.Sprintf("sheet %q not found in workbook", e.Sheets[0])
	}
	return fmt.Sprintf("sheets %s not found in workbook", quoteJoin(e.Sheets))
}

func (e *MissingSheetError) Is(target error) bool { return target == ErrMissingSheet }

// MissingColumnError lists every required column absent from a header row
type MissingColumnError struct {
	Columns []string
	Source  string
}

func (e *MissingColumnError) Error() string {
	where := "file"
	if e.Source != "" {
		where = e.Source
	}
	if len(e.Columns) == 1 {
		return fmt.Sprintf("column %q not found in %s", e.Columns[0], where)
	}
	return fmt.Sprintf("columns %s not found in %s", quoteJoin(e.Columns), where)
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// UnsupportedFileKindError is returned for inputs that are neither a workbook nor delimited text
type UnsupportedFileKindError struct {
	Filename string
}

func (e *UnsupportedFileKindError) Error() string {
	if e.Filename == "" {
		return "input must be an .xlsx workbook or a .csv file"
	}
	return fmt.Sprintf("%s: input must be an .xlsx workbook or a .csv file", e.Filename)
}

func (e *UnsupportedFileKindError) Is(target error) bool { return target == ErrUnsupportedFileKind }

// MalformedRowError records a delimited row that was skipped
type MalformedRowError struct {
	Line  int
	Cause error
}

func (e *MalformedRowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("line %d skipped: %v", e.Line, e.Cause)
	}
	return fmt.Sprintf("line %d skipped", e.Line)
}

func (e *MalformedRowError) Unwrap() error { return e.Cause }

func (e *MalformedRowError) Is(target error) bool { return target == ErrMalformedRow }

// EmptyDatasetError is returned when a table would have a zero grand total
type EmptyDatasetError struct {
	Scope string
}

func (e *EmptyDatasetError) Error() string {
	if e.Scope == "" {
		return "no records to aggregate"
	}
	return fmt.Sprintf("no records to aggregate for %s", e.Scope)
}

func (e *EmptyDatasetError) Is(target error) bool { return target == ErrEmptyDataset }

// UnsupportedVariantError is returned when a structurally valid input cannot feed the selected variant
type UnsupportedVariantError struct {
	Variant string
	Reason  string
}

func (e *UnsupportedVariantError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("report variant %q cannot process this input", e.Variant)
	}
	return fmt.Sprintf("report variant %q cannot process this input: %s", e.Variant, e.Reason)
}

func (e *UnsupportedVariantError) Is(target error) bool { return target == ErrUnsupportedVariant }

// IsReportError reports whether err belongs to the report error taxonomy
func IsReportError(err error) bool {
	for _, sentinel := range []error{
		ErrMissingSheet, ErrMissingColumn, ErrUnsupportedFileKind,
		ErrMalformedRow, ErrEmptyDataset, ErrUnsupportedVariant,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}

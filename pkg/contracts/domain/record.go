package domain

import (
	"strings"
	"time"
)

// Column names used by the notification sheets
const (
	ColumnFechaVisado   = "FECHA_VISADO"
	ColumnNotificador   = "NOTIFICADOR"
	ColumnEstadoInforme = "ESTADO_INFORME"
	ColumnOrigen        = "ORIGEN"
)

// SourceDelimited is the Source value of records read from delimited text
const SourceDelimited = "CSV"

// FileKind classifies an uploaded input
type FileKind string

const (
	FileKindUnknown   FileKind = ""
	FileKindWorkbook  FileKind = "xlsx"
	FileKindDelimited FileKind = "csv"
)

// Record is one input row. Fields are keyed by trimmed header name.
type Record struct {
	Source     string            `json:"source"`
	Line       int               `json:"line"`
	Fields     map[string]string `json:"fields"`
	VisadoDate time.Time         `json:"visado_date,omitempty"`
	HasDate    bool              `json:"has_date"`
	// Values holds typed workbook cells: float64 numbers and time.Time dates
	Values map[string]interface{} `json:"-"`
}

// Cell returns the typed value of column when one was read, else its text.
func (r Record) Cell(column string) interface{} {
	if v, ok := r.Values[column]; ok {
		return v
	}
	return r.Fields[column]
}

// Value returns the trimmed value of column, or "" when absent.
func (r Record) Value(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// Month returns the calendar month of the visado date, 0 when unknown.
func (r Record) Month() int {
	if !r.HasDate {
		return 0
	}
	return int(r.VisadoDate.Month())
}

// SkippedRow describes a delimited row dropped during parsing
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Dataset is the ordered, read-only result of parsing an input file
type Dataset struct {
	Kind    FileKind     `json:"kind"`
	Columns []string     `json:"columns"`
	Records []Record     `json:"records"`
	Skipped []SkippedRow `json:"skipped,omitempty"`
}

// Len returns the number of parsed records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// FromSource returns the records read from the named sheet, in order.
func (d *Dataset) FromSource(source string) []Record {
	var out []Record
	for _, r := range d.Records {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeHeader trims whitespace and a leading UTF-8 byte order mark from a header cell.
func NormalizeHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

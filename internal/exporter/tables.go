package exporter

import (
	"fmt"

	"notireport/internal/config"
	"notireport/internal/dataprocessing"
)

// Table is one sheet's tabular block: a header, the body rows and an
// optional synthesized total row written last.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]interface{}
	Total  []interface{}
}

// Width returns the number of columns of the widest row
func (t Table) Width() int {
	width := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if len(t.Total) > width {
		width = len(t.Total)
	}
	return width
}

// Records stringifies the table, header first
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+2)
	out = append(out, append([]string(nil), t.Header...))
	for _, row := range t.Rows {
		out = append(out, stringify(row))
	}
	if t.Total != nil {
		out = append(out, stringify(t.Total))
	}
	return out
}

func stringify(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}

// SummaryTable lays out a single-count table: header, TOTAL, PORCENTAJE,
// one row per table row and a "Total general" row at 100.0%.
func SummaryTable(sheet, header string, counts *dataprocessing.CountTable) (Table, error) {
	pct, err := counts.Percentages()
	if err != nil {
		return Table{}, err
	}

	t := Table{
		Sheet:  sheet,
		Header: []string{header, config.LabelTotal, config.LabelPercentage},
		Rows:   make([][]interface{}, len(counts.Rows)),
	}
	for i, row := range counts.Rows {
		t.Rows[i] = []interface{}{row, counts.RowTotal(row), pct.Values[i]}
	}
	t.Total = []interface{}{config.LabelGrandTotalRow, counts.GrandTotal(), pct.Total}
	return t, nil
}

// CrossTable lays out a pivot: the row header, one column per table column,
// TOTAL GENERAL and TOTAL %, closed by a TOTAL GENERAL row of column sums.
func CrossTable(sheet string, counts *dataprocessing.CountTable) (Table, error) {
	pct, err := counts.Percentages()
	if err != nil {
		return Table{}, err
	}

	header := make([]string, 0, len(counts.Columns)+3)
	header = append(header, counts.RowHeader)
	header = append(header, counts.Columns...)
	header = append(header, config.LabelTotalGeneral, config.LabelTotalPercent)

	t := Table{Sheet: sheet, Header: header, Rows: make([][]interface{}, len(counts.Rows))}
	for i, row := range counts.Rows {
		line := make([]interface{}, 0, len(header))
		line = append(line, row)
		for _, col := range counts.Columns {
			line = append(line, counts.Count(row, col))
		}
		line = append(line, counts.RowTotal(row), pct.Values[i])
		t.Rows[i] = line
	}

	total := make([]interface{}, 0, len(header))
	total = append(total, config.LabelTotalGeneral)
	for _, colTotal := range counts.ColumnTotals() {
		total = append(total, colTotal)
	}
	total = append(total, counts.GrandTotal(), pct.Total)
	t.Total = total
	return t, nil
}

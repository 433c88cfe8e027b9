package dataprocessing

import (
	"github.com/shopspring/decimal"

	"notireport/internal/config"
	apperrors "notireport/internal/errors"
)

var hundred = decimal.NewFromInt(100)

// CountTable holds occurrence counts keyed by an ordered row label and,
// optionally, an ordered column label. Absent pairs count as zero.
type CountTable struct {
	RowHeader string
	Rows      []string
	Columns   []string

	cells    [][]int
	rowIndex map[string]int
	colIndex map[string]int
}

// newCountTable allocates a zeroed table. A table without columns still
// keeps one implicit count per row.
func newCountTable(rowHeader string, rows, columns []string) *CountTable {
	width := len(columns)
	if width == 0 {
		width = 1
	}
	t := &CountTable{
		RowHeader: rowHeader,
		Rows:      rows,
		Columns:   columns,
		cells:     make([][]int, len(rows)),
		rowIndex:  make(map[string]int, len(rows)),
		colIndex:  make(map[string]int, len(columns)),
	}
	for i, r := range rows {
		t.cells[i] = make([]int, width)
		t.rowIndex[r] = i
	}
	for j, c := range columns {
		t.colIndex[c] = j
	}
	return t
}

func (t *CountTable) add(row, col string) {
	j := 0
	if len(t.Columns) > 0 {
		j = t.colIndex[col]
	}
	t.cells[t.rowIndex[row]][j]++
}

// Count returns the cell for (row, col). For tables without columns col is ignored.
func (t *CountTable) Count(row, col string) int {
	i, ok := t.rowIndex[row]
	if !ok {
		return 0
	}
	if len(t.Columns) == 0 {
		return t.cells[i][0]
	}
	j, ok := t.colIndex[col]
	if !ok {
		return 0
	}
	return t.cells[i][j]
}

// RowTotal returns the sum across a row
func (t *CountTable) RowTotal(row string) int {
	i, ok := t.rowIndex[row]
	if !ok {
		return 0
	}
	return sum(t.cells[i])
}

// ColumnTotal returns the sum down a column
func (t *CountTable) ColumnTotal(col string) int {
	j, ok := t.colIndex[col]
	if !ok {
		return 0
	}
	total := 0
	for _, row := range t.cells {
		total += row[j]
	}
	return total
}

// RowTotals returns the row sums in row order
func (t *CountTable) RowTotals() []int {
	out := make([]int, len(t.Rows))
	for i, row := range t.cells {
		out[i] = sum(row)
	}
	return out
}

// ColumnTotals returns the column sums in column order
func (t *CountTable) ColumnTotals() []int {
	out := make([]int, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = t.ColumnTotal(c)
	}
	return out
}

// GrandTotal returns the sum of every cell
func (t *CountTable) GrandTotal() int {
	return sum(t.RowTotals())
}

// Percentages derives the share of each row total in the grand total
func (t *CountTable) Percentages() (*PercentageTable, error) {
	grand := t.GrandTotal()
	if grand == 0 {
		return nil, &apperrors.EmptyDatasetError{Scope: t.RowHeader}
	}

	total := decimal.NewFromInt(int64(grand))
	pt := &PercentageTable{
		Rows:   append([]string(nil), t.Rows...),
		Values: make([]string, len(t.Rows)),
		Total:  config.FullPercentage,
		shares: make([]decimal.Decimal, len(t.Rows)),
	}
	for i, rowTotal := range t.RowTotals() {
		share := decimal.NewFromInt(int64(rowTotal)).Mul(hundred).Div(total).Round(2)
		pt.shares[i] = share
		pt.Values[i] = FormatPercent(share)
	}
	return pt, nil
}

// PercentageTable is the per-row share column of a CountTable. The
// synthesized total row always reads "100.0%".
type PercentageTable struct {
	Rows   []string
	Values []string
	Total  string

	shares []decimal.Decimal
}

// Sum adds the rounded row shares
func (p *PercentageTable) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.shares {
		total = total.Add(s)
	}
	return total
}

// FormatPercent renders a share with two decimals and a percent sign
func FormatPercent(share decimal.Decimal) string {
	return share.StringFixed(2) + "%"
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

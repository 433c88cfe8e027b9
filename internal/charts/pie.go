package charts

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"notireport/internal/config"
	"notireport/internal/dataprocessing"
	apperrors "notireport/internal/errors"
)

// PieSize is the square pie canvas edge in pixels
const PieSize = int(config.ChartMinHeight * config.ChartDPI)

// Slice is one labelled pie wedge
type Slice struct {
	Label string
	Value int
}

// Slices returns the wedges of table: row totals, or column totals when
// byColumn is set. Zero wedges are dropped.
func Slices(table *dataprocessing.CountTable, byColumn bool) []Slice {
	labels, totals := table.Rows, table.RowTotals()
	if byColumn && len(table.Columns) > 0 {
		labels, totals = table.Columns, table.ColumnTotals()
	}

	out := make([]Slice, 0, len(labels))
	for i, label := range labels {
		if totals[i] > 0 {
			out = append(out, Slice{Label: label, Value: totals[i]})
		}
	}
	return out
}

// Pie renders a pie chart whose wedges carry their percentage of the total
func (r *Renderer) Pie(table *dataprocessing.CountTable, spec Spec) ([]byte, error) {
	if table == nil {
		return nil, &apperrors.EmptyDatasetError{Scope: spec.Title}
	}
	slices := Slices(table, spec.ByColumn)
	if len(slices) == 0 {
		return nil, &apperrors.EmptyDatasetError{Scope: spec.Title}
	}

	total := 0
	for _, s := range slices {
		total += s.Value
	}
	grand := decimal.NewFromInt(int64(total))

	values := make([]chart.Value, len(slices))
	for i, s := range slices {
		share := decimal.NewFromInt(int64(s.Value)).Mul(decimal.NewFromInt(100)).Div(grand)
		values[i] = chart.Value{
			Label: fmt.Sprintf("%s %s", s.Label, dataprocessing.FormatPercent(share.Round(2))),
			Value: float64(s.Value),
			Style: chart.Style{
				FillColor:   r.palette.At(i),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
				FontColor:   drawing.ColorBlack,
			},
		}
	}

	pie := chart.PieChart{
		Title:      spec.Title,
		Width:      PieSize,
		Height:     PieSize,
		DPI:        config.ChartDPI,
		Background: chart.Style{FillColor: drawing.ColorTransparent},
		Canvas:     chart.Style{FillColor: drawing.ColorTransparent},
		Values:     values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, apperrors.NewRenderingError("pie chart", err)
	}

	r.logger.Debug("pie chart rendered", "title", spec.Title, "slices", len(values), "bytes", buf.Len())
	return buf.Bytes(), nil
}

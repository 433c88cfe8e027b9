package charts

import (
	"log/slog"

	"notireport/internal/dataprocessing"
)

// Spec carries the captions of one chart
type Spec struct {
	Title  string
	XLabel string
	YLabel string
	// LegendTitle heads the series legend of bar charts
	LegendTitle string
	// ByColumn makes pie slices follow column totals instead of row totals
	ByColumn bool
}

// Renderer rasterizes count tables as PNG images. Output depends only on
// the table, its captions and the palette.
type Renderer struct {
	logger  *slog.Logger
	palette Palette
}

// NewRenderer creates a renderer using palette
func NewRenderer(logger *slog.Logger, palette Palette) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger.With("component", "charts"), palette: palette}
}

// series returns the bar groups of table: one series per column, or a
// single series of row totals for tables without columns.
func series(table *dataprocessing.CountTable, fallback string) ([]string, [][]float64) {
	if len(table.Columns) == 0 {
		values := make([]float64, len(table.Rows))
		for i, total := range table.RowTotals() {
			values[i] = float64(total)
		}
		return []string{fallback}, [][]float64{values}
	}

	names := append([]string(nil), table.Columns...)
	values := make([][]float64, len(names))
	for j, col := range names {
		values[j] = make([]float64, len(table.Rows))
		for i, row := range table.Rows {
			values[j][i] = float64(table.Count(row, col))
		}
	}
	return names, values
}

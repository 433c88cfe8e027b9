package charts

import (
	"bytes"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"notireport/internal/config"
	"notireport/internal/dataprocessing"
	apperrors "notireport/internal/errors"
)

// BarSize returns the canvas size in inches for rows groups of cols bars
func BarSize(rows, cols int) (width, height float64) {
	width = math.Max(config.ChartMinWidth, float64(rows)*config.ChartWidthPerGroup)
	height = math.Max(config.ChartMinHeight, float64(cols)*config.ChartHeightPerLabel)
	return width, height
}

// Bar renders a grouped bar chart: one group per table row, one bar per
// column, each bar labelled with its count.
func (r *Renderer) Bar(table *dataprocessing.CountTable, spec Spec) ([]byte, error) {
	if table == nil || table.GrandTotal() == 0 {
		return nil, &apperrors.EmptyDatasetError{Scope: spec.Title}
	}

	names, values := series(table, spec.YLabel)

	p := plot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	p.BackgroundColor = color.Transparent
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -vg.Points(4)
	if spec.LegendTitle != "" && len(names) > 1 {
		p.Legend.Add(spec.LegendTitle)
	}

	barWidth := groupBarWidth(len(names))
	maxValue := 0.0

	for j, name := range names {
		bars, err := plotter.NewBarChart(plotter.Values(values[j]), barWidth)
		if err != nil {
			return nil, apperrors.NewRenderingError("bar series "+name, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = r.palette.At(j)
		bars.Offset = vg.Length(float64(j)-float64(len(names)-1)/2) * barWidth
		p.Add(bars)
		if len(names) > 1 {
			p.Legend.Add(name, bars)
		}

		labels, err := countLabels(values[j], bars.Offset)
		if err != nil {
			return nil, apperrors.NewRenderingError("bar labels "+name, err)
		}
		if labels != nil {
			p.Add(labels)
		}

		for _, v := range values[j] {
			maxValue = math.Max(maxValue, v)
		}
	}

	p.NominalX(table.Rows...)
	p.Y.Min = 0
	p.Y.Max = math.Ceil(maxValue*1.15) + 1

	width, height := BarSize(len(table.Rows), len(names))
	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, "png")
	if err != nil {
		return nil, apperrors.NewRenderingError("bar canvas", err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, apperrors.NewRenderingError("bar png", err)
	}

	r.logger.Debug("bar chart rendered",
		"title", spec.Title,
		"groups", len(table.Rows),
		"series", len(names),
		"bytes", buf.Len())
	return buf.Bytes(), nil
}

// groupBarWidth keeps each month group about one inch wide
func groupBarWidth(series int) vg.Length {
	w := vg.Inch * 0.8 / vg.Length(series)
	if w > vg.Points(28) {
		w = vg.Points(28)
	}
	return w
}

// countLabels places the integer count centred just above every non-zero bar
func countLabels(values []float64, offset vg.Length) (*plotter.Labels, error) {
	var xys plotter.XYs
	var text []string
	for i, v := range values {
		if v == 0 {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(i), Y: v})
		text = append(text, strconv.Itoa(int(v)))
	}
	if len(xys) == 0 {
		return nil, nil
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: text})
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
	}
	labels.Offset = vg.Point{X: offset, Y: vg.Points(3)}
	return labels, nil
}

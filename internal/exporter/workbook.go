package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"notireport/internal/config"
	apperrors "notireport/internal/errors"
	"notireport/pkg/contracts/domain"
)

const (
	replaceSuffix  = "~tmp"
	baseDateLayout = "2006-01-02"
	baseDateFormat = "yyyy-mm-dd"
)

// extent is the cell range a table covers from A1
type extent struct {
	cols int
	rows int
}

type styles struct {
	header int
	body   int
	total  int
	date   int
}

// WorkbookWriter assembles a report workbook in memory
type WorkbookWriter struct {
	logger  *slog.Logger
	file    *excelize.File
	styles  styles
	fresh   bool
	written []string
	tables  map[string]extent
}

// NewWorkbook starts an empty workbook
func NewWorkbook(logger *slog.Logger) (*WorkbookWriter, error) {
	return newWriter(logger, excelize.NewFile(), true)
}

// OpenWorkbook starts from an existing workbook whose sheets are kept
func OpenWorkbook(logger *slog.Logger, r io.Reader) (*WorkbookWriter, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewStorageError("open base workbook", err)
	}
	return newWriter(logger, f, false)
}

func newWriter(logger *slog.Logger, f *excelize.File, fresh bool) (*WorkbookWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &WorkbookWriter{
		logger: logger.With("component", "workbook_writer"),
		file:   f,
		fresh:  fresh,
		tables: make(map[string]extent),
	}
	if err := w.createStyles(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *WorkbookWriter) createStyles() error {
	border := []excelize.Border{
		{Type: "left", Color: config.BorderColor, Style: 1},
		{Type: "top", Color: config.BorderColor, Style: 1},
		{Type: "right", Color: config.BorderColor, Style: 1},
		{Type: "bottom", Color: config.BorderColor, Style: 1},
	}

	var err error
	if w.styles.body, err = w.file.NewStyle(&excelize.Style{Border: border}); err != nil {
		return apperrors.NewRenderingError("body style", err)
	}
	dateFmt := baseDateFormat
	if w.styles.date, err = w.file.NewStyle(&excelize.Style{Border: border, CustomNumFmt: &dateFmt}); err != nil {
		return apperrors.NewRenderingError("date style", err)
	}
	if w.styles.header, err = w.file.NewStyle(&excelize.Style{
		Border: border,
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{config.HeaderFill}, Pattern: 1},
	}); err != nil {
		return apperrors.NewRenderingError("header style", err)
	}
	if w.styles.total, err = w.file.NewStyle(&excelize.Style{
		Border: border,
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{config.TotalFill}, Pattern: 1},
	}); err != nil {
		return apperrors.NewRenderingError("total style", err)
	}
	return nil
}

// SheetName trims name to the 31 characters Excel accepts
func SheetName(name string) string {
	if utf8.RuneCountInString(name) <= config.ExcelMaxSheetLen {
		return name
	}
	return string([]rune(name)[:config.ExcelMaxSheetLen])
}

// ReplaceSheet creates name, deleting any sheet of that name first together
// with its drawings. The new sheet takes the old one's place in the tab order
// only when it did not exist; otherwise it is appended.
func (w *WorkbookWriter) ReplaceSheet(name string) error {
	name = SheetName(name)
	delete(w.tables, name)
	idx, err := w.file.GetSheetIndex(name)
	if err != nil {
		return apperrors.NewRenderingError("sheet lookup", err)
	}

	if idx == -1 {
		if _, err := w.file.NewSheet(name); err != nil {
			return apperrors.NewRenderingError("create sheet "+name, err)
		}
		w.track(name)
		return nil
	}

	// A workbook must keep one sheet, so the replacement is created under a
	// temporary name before the old sheet goes away.
	runes := []rune(name)
	tmp := string(runes[:min(len(runes), config.ExcelMaxSheetLen-len(replaceSuffix))]) + replaceSuffix
	if _, err := w.file.NewSheet(tmp); err != nil {
		return apperrors.NewRenderingError("create sheet "+tmp, err)
	}
	if err := w.file.DeleteSheet(name); err != nil {
		return apperrors.NewRenderingError("delete sheet "+name, err)
	}
	if err := w.file.SetSheetName(tmp, name); err != nil {
		return apperrors.NewRenderingError("rename sheet "+tmp, err)
	}

	w.logger.Debug("sheet replaced", "sheet", name)
	w.track(name)
	return nil
}

func (w *WorkbookWriter) track(name string) {
	for _, s := range w.written {
		if s == name {
			return
		}
	}
	w.written = append(w.written, name)
}

// WriteTable replaces t.Sheet and writes the header at A1, the body below it
// and the total row last. Every cell is bordered; header and total rows are
// shaded. Columns are sized to their longest value plus padding.
func (w *WorkbookWriter) WriteTable(t Table) error {
	sheet := SheetName(t.Sheet)
	if err := w.ReplaceSheet(sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}

	row := 1
	if err := w.writeRow(sheet, row, header, w.styles.header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		row++
		if err := w.writeRow(sheet, row, r, w.styles.body); err != nil {
			return err
		}
	}
	if t.Total != nil {
		row++
		if err := w.writeRow(sheet, row, t.Total, w.styles.total); err != nil {
			return err
		}
	}

	if err := w.fitColumns(sheet, t.Records()); err != nil {
		return err
	}
	w.tables[sheet] = extent{cols: t.Width(), rows: row}

	w.logger.Debug("table written", "sheet", sheet, "rows", len(t.Rows), "columns", t.Width())
	return nil
}

func (w *WorkbookWriter) writeRow(sheet string, row int, values []interface{}, style int) error {
	if len(values) == 0 {
		return nil
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return apperrors.NewRenderingError("cell name", err)
	}
	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return apperrors.NewRenderingError("cell name", err)
	}
	if err := w.file.SetSheetRow(sheet, first, &values); err != nil {
		return apperrors.NewRenderingError(fmt.Sprintf("write %s row %d", sheet, row), err)
	}
	if err := w.file.SetCellStyle(sheet, first, last, style); err != nil {
		return apperrors.NewRenderingError(fmt.Sprintf("style %s row %d", sheet, row), err)
	}
	return nil
}

// ColumnWidths returns the width of every column of records: the longest
// value in runes plus the padding constant.
func ColumnWidths(records [][]string) []float64 {
	var widths []float64
	for _, rec := range records {
		for i, v := range rec {
			for len(widths) <= i {
				widths = append(widths, 0)
			}
			if n := float64(utf8.RuneCountInString(v)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] += config.ColumnWidthPad
	}
	return widths
}

func (w *WorkbookWriter) fitColumns(sheet string, records [][]string) error {
	for i, width := range ColumnWidths(records) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return apperrors.NewRenderingError("column name", err)
		}
		if err := w.file.SetColWidth(sheet, col, col, width); err != nil {
			return apperrors.NewRenderingError("column width", err)
		}
	}
	return nil
}

// EmbedImage anchors a PNG at cell on sheet. The anchor must lie outside
// the table written on that sheet.
func (w *WorkbookWriter) EmbedImage(sheet, cell string, png []byte) error {
	sheet = SheetName(sheet)
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return apperrors.NewRenderingError("chart anchor "+cell, err)
	}
	if ext, ok := w.tables[sheet]; ok && col <= ext.cols && row <= ext.rows {
		last, _ := excelize.CoordinatesToCellName(ext.cols, ext.rows)
		return apperrors.NewRenderingError(
			fmt.Sprintf("chart anchor %s!%s falls inside the table A1:%s", sheet, cell, last), nil)
	}

	err = w.file.AddPictureFromBytes(sheet, cell, &excelize.Picture{
		Extension: ".png",
		File:      png,
		Format: &excelize.GraphicOptions{
			ScaleX:          config.ChartImageScale,
			ScaleY:          config.ChartImageScale,
			LockAspectRatio: true,
			Positioning:     "oneCell",
		},
	})
	if err != nil {
		return apperrors.NewRenderingError(fmt.Sprintf("embed chart at %s!%s", sheet, cell), err)
	}
	w.logger.Debug("chart embedded", "sheet", sheet, "cell", cell, "bytes", len(png))
	return nil
}

// BaseHeader returns the BASE sheet header: the dataset columns in
// first-seen order followed by ORIGEN.
func BaseHeader(ds *domain.Dataset) []string {
	header := make([]string, 0, len(ds.Columns)+1)
	for _, c := range ds.Columns {
		if c != domain.ColumnOrigen {
			header = append(header, c)
		}
	}
	return append(header, domain.ColumnOrigen)
}

// WriteBase dumps every parsed record into the BASE sheet, tagged with its
// source sheet. Rows are streamed since the dump can be large.
func (w *WorkbookWriter) WriteBase(ds *domain.Dataset) error {
	if err := w.ReplaceSheet(config.SheetBase); err != nil {
		return err
	}

	header := BaseHeader(ds)
	records := make([][]string, 0, len(ds.Records)+1)
	records = append(records, header)
	cells := make([][]interface{}, 0, len(ds.Records)+1)
	cells = append(cells, baseCells(header, w.styles.header))
	for _, rec := range ds.Records {
		text := make([]string, len(header))
		line := make([]interface{}, len(header))
		for i, col := range header[:len(header)-1] {
			v := rec.Cell(col)
			if col == domain.ColumnFechaVisado && rec.HasDate {
				v = rec.VisadoDate
			}
			text[i], line[i] = w.baseCell(v)
		}
		text[len(header)-1] = rec.Source
		line[len(header)-1] = excelize.Cell{StyleID: w.styles.body, Value: rec.Source}
		records = append(records, text)
		cells = append(cells, line)
	}

	sw, err := w.file.NewStreamWriter(config.SheetBase)
	if err != nil {
		return apperrors.NewRenderingError("base stream", err)
	}
	for i, width := range ColumnWidths(records) {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return apperrors.NewRenderingError("base column width", err)
		}
	}

	for i, line := range cells {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return apperrors.NewRenderingError("cell name", err)
		}
		if err := sw.SetRow(cell, line); err != nil {
			return apperrors.NewRenderingError(fmt.Sprintf("base row %d", i+1), err)
		}
	}
	if err := sw.Flush(); err != nil {
		return apperrors.NewRenderingError("base flush", err)
	}

	w.logger.Debug("base sheet written", "records", len(ds.Records), "columns", len(header))
	return nil
}

func baseCells(values []string, style int) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = excelize.Cell{StyleID: style, Value: v}
	}
	return cells
}

// baseCell returns the display text used for sizing and the styled cell.
// Dates get the date format; numbers stay numeric.
func (w *WorkbookWriter) baseCell(v interface{}) (string, excelize.Cell) {
	switch v := v.(type) {
	case time.Time:
		return v.Format(baseDateLayout), excelize.Cell{StyleID: w.styles.date, Value: v}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), excelize.Cell{StyleID: w.styles.body, Value: v}
	case string:
		return v, excelize.Cell{StyleID: w.styles.body, Value: v}
	default:
		return fmt.Sprint(v), excelize.Cell{StyleID: w.styles.body, Value: v}
	}
}

// Sheets lists the sheets written so far in write order
func (w *WorkbookWriter) Sheets() []string {
	return append([]string(nil), w.written...)
}

// Bytes finalizes the workbook and returns it serialized. A fresh workbook
// loses its unused default sheet and opens on the first written sheet.
func (w *WorkbookWriter) Bytes() ([]byte, error) {
	if len(w.written) == 0 {
		return nil, apperrors.NewRenderingError("workbook has no report sheets", nil)
	}

	if w.fresh && !w.wrote(config.DefaultWorkbookSheet) {
		if idx, _ := w.file.GetSheetIndex(config.DefaultWorkbookSheet); idx != -1 {
			if err := w.file.DeleteSheet(config.DefaultWorkbookSheet); err != nil {
				return nil, apperrors.NewRenderingError("drop default sheet", err)
			}
		}
	}

	if idx, err := w.file.GetSheetIndex(w.written[0]); err == nil && idx != -1 {
		w.file.SetActiveSheet(idx)
	}

	buf, err := w.file.WriteToBuffer()
	if err != nil {
		return nil, apperrors.NewRenderingError("serialize workbook", err)
	}
	return buf.Bytes(), nil
}

func (w *WorkbookWriter) wrote(sheet string) bool {
	for _, s := range w.written {
		if s == sheet {
			return true
		}
	}
	return false
}

// Close releases the workbook's temporary resources
func (w *WorkbookWriter) Close() error {
	return w.file.Close()
}

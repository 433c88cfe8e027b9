package exporter

import (
	"bytes"
	"errors"
	"fmt"
	_ "image/png" // registers the PNG decoder excelize uses to size pictures
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"notireport/internal/config"
	apperrors "notireport/internal/errors"
	"notireport/internal/shared/testutil"
	"notireport/pkg/contracts/domain"
)

// 1x1 transparent PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func openResult(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func newTestWorkbook(t *testing.T) *WorkbookWriter {
	t.Helper()
	logger, _ := testutil.NewTestLogger()
	w, err := NewWorkbook(logger)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "TABLA MES DTO", SheetName("TABLA MES DTO"))
	long := "ESTE NOMBRE DE HOJA ES DEMASIADO LARGO PARA EXCEL"
	assert.Len(t, []rune(SheetName(long)), config.ExcelMaxSheetLen)
	assert.Len(t, []rune(SheetName("ÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑÑ")), config.ExcelMaxSheetLen)
}

func TestColumnWidths(t *testing.T) {
	widths := ColumnWidths([][]string{
		{"FECHA VISADO", "TOTAL"},
		{"Septiembre", "12345678"},
		{"Total general", "9"},
	})
	assert.Equal(t, []float64{13 + config.ColumnWidthPad, 8 + config.ColumnWidthPad}, widths)
}

func TestWriteTable(t *testing.T) {
	w := newTestWorkbook(t)
	table := Table{
		Sheet:  "TABLA MES DTO",
		Header: []string{"FECHA VISADO", "TOTAL", "PORCENTAJE"},
		Rows: [][]interface{}{
			{"Enero", 3, "60.00%"},
			{"Febrero", 2, "40.00%"},
		},
		Total: []interface{}{"Total general", 5, "100.0%"},
	}
	require.NoError(t, w.WriteTable(table))

	data, err := w.Bytes()
	require.NoError(t, err)
	f := openResult(t, data)

	assert.Equal(t, []string{"TABLA MES DTO"}, f.GetSheetList(), "default sheet is dropped")

	rows, err := f.GetRows("TABLA MES DTO")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"FECHA VISADO", "TOTAL", "PORCENTAJE"},
		{"Enero", "3", "60.00%"},
		{"Febrero", "2", "40.00%"},
		{"Total general", "5", "100.0%"},
	}, rows)

	headerStyle, err := f.GetCellStyle("TABLA MES DTO", "A1")
	require.NoError(t, err)
	bodyStyle, err := f.GetCellStyle("TABLA MES DTO", "B2")
	require.NoError(t, err)
	totalStyle, err := f.GetCellStyle("TABLA MES DTO", "C4")
	require.NoError(t, err)
	assert.NotEqual(t, headerStyle, bodyStyle)
	assert.NotEqual(t, totalStyle, bodyStyle)
	assert.NotEqual(t, headerStyle, totalStyle)

	style, err := f.GetStyle(headerStyle)
	require.NoError(t, err)
	require.Len(t, style.Fill.Color, 1)
	assert.True(t, strings.HasSuffix(strings.ToUpper(style.Fill.Color[0]), config.HeaderFill))
	assert.Len(t, style.Border, 4)

	style, err = f.GetStyle(totalStyle)
	require.NoError(t, err)
	require.Len(t, style.Fill.Color, 1)
	assert.True(t, strings.HasSuffix(strings.ToUpper(style.Fill.Color[0]), config.TotalFill))

	style, err = f.GetStyle(bodyStyle)
	require.NoError(t, err)
	assert.Len(t, style.Border, 4, "body cells are bordered too")

	width, err := f.GetColWidth("TABLA MES DTO", "A")
	require.NoError(t, err)
	assert.InDelta(t, float64(len("Total general"))+config.ColumnWidthPad, width, 0.01)
}

func TestReplaceSheetDropsPreviousImages(t *testing.T) {
	base := testutil.WorkbookBytes(t,
		testutil.Sheet{Name: "DTO", Rows: [][]interface{}{{"x"}}},
		testutil.Sheet{Name: "TABLA MES DTO", Rows: [][]interface{}{{"old"}, {"stale"}}},
	)
	logger, _ := testutil.NewTestLogger()

	first, err := OpenWorkbook(logger, bytes.NewReader(base))
	require.NoError(t, err)
	require.NoError(t, first.WriteTable(Table{Sheet: "TABLA MES DTO", Header: []string{"A"}, Rows: [][]interface{}{{"1"}}}))
	require.NoError(t, first.EmbedImage("TABLA MES DTO", "E5", tinyPNG))
	withImage, err := first.Bytes()
	require.NoError(t, err)
	require.NoError(t, first.Close())

	f := openResult(t, withImage)
	pics, err := f.GetPictures("TABLA MES DTO", "E5")
	require.NoError(t, err)
	require.Len(t, pics, 1)

	second, err := OpenWorkbook(logger, bytes.NewReader(withImage))
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.WriteTable(Table{Sheet: "TABLA MES DTO", Header: []string{"B"}}))
	rebuilt, err := second.Bytes()
	require.NoError(t, err)

	f = openResult(t, rebuilt)
	pics, err = f.GetPictures("TABLA MES DTO", "E5")
	require.NoError(t, err)
	assert.Empty(t, pics, "replaced sheet keeps no drawings")

	rows, err := f.GetRows("TABLA MES DTO")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"B"}}, rows)
	assert.Contains(t, f.GetSheetList(), "DTO", "unrelated sheets survive")
}

func TestReplaceOnlySheet(t *testing.T) {
	base := testutil.WorkbookBytes(t, testutil.Sheet{Name: "BASE", Rows: [][]interface{}{{"old"}}})
	logger, _ := testutil.NewTestLogger()

	w, err := OpenWorkbook(logger, bytes.NewReader(base))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.ReplaceSheet("BASE"))
	data, err := w.Bytes()
	require.NoError(t, err)

	f := openResult(t, data)
	assert.Equal(t, []string{"BASE"}, f.GetSheetList())
	rows, err := f.GetRows("BASE")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteBase(t *testing.T) {
	w := newTestWorkbook(t)
	ds := &domain.Dataset{
		Kind:    domain.FileKindWorkbook,
		Columns: []string{"RADICADO", "FECHA_VISADO", "NOTIFICADOR", "EXTRA"},
		Records: []domain.Record{
			{Source: "DTO", Line: 2, Fields: map[string]string{"RADICADO": "R-1", "FECHA_VISADO": "45294", "NOTIFICADOR": "ARL"},
				VisadoDate: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), HasDate: true},
			{Source: "PCL", Line: 2, Fields: map[string]string{"RADICADO": "R-2", "NOTIFICADOR": "COLP", "EXTRA": "si"}},
		},
	}
	require.NoError(t, w.WriteBase(ds))

	data, err := w.Bytes()
	require.NoError(t, err)
	f := openResult(t, data)

	rows, err := f.GetRows(config.SheetBase)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"RADICADO", "FECHA_VISADO", "NOTIFICADOR", "EXTRA", "ORIGEN"},
		{"R-1", "2024-01-03", "ARL", "", "DTO"},
		{"R-2", "", "COLP", "si", "PCL"},
	}, rows)
}

func TestWriteBaseKeepsTypedCells(t *testing.T) {
	w := newTestWorkbook(t)
	received := time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC)
	ds := &domain.Dataset{
		Kind:    domain.FileKindWorkbook,
		Columns: []string{"RADICADO", "FECHA_RECIBO", "FOLIOS"},
		Records: []domain.Record{{
			Source: "DTO",
			Line:   2,
			Fields: map[string]string{"RADICADO": "R-1", "FECHA_RECIBO": "45329", "FOLIOS": "12.5"},
			Values: map[string]interface{}{"FECHA_RECIBO": received, "FOLIOS": 12.5},
		}},
	}
	require.NoError(t, w.WriteBase(ds))

	data, err := w.Bytes()
	require.NoError(t, err)
	f := openResult(t, data)

	shown, err := f.GetCellValue(config.SheetBase, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-07", shown)

	raw, err := f.GetCellValue(config.SheetBase, "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "45329", raw, "dates are stored as serials")

	styleID, err := f.GetCellStyle(config.SheetBase, "B2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.CustomNumFmt)
	assert.Len(t, style.Border, 4)

	kind, err := f.GetCellType(config.SheetBase, "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, kind)
	assert.NotEqual(t, excelize.CellTypeInlineString, kind)
	folios, err := f.GetCellValue(config.SheetBase, "C2")
	require.NoError(t, err)
	assert.Equal(t, "12.5", folios)
}

func TestEmbedImageAtAnchor(t *testing.T) {
	w := newTestWorkbook(t)
	require.NoError(t, w.WriteTable(Table{Sheet: config.SheetStatusTable, Header: []string{"ESTADO INFORME"}}))
	require.NoError(t, w.EmbedImage(config.SheetStatusTable, config.AnchorStatusBar, tinyPNG))
	require.NoError(t, w.EmbedImage(config.SheetStatusTable, config.AnchorStatusPie, tinyPNG))

	data, err := w.Bytes()
	require.NoError(t, err)
	f := openResult(t, data)

	for _, cell := range []string{config.AnchorStatusBar, config.AnchorStatusPie} {
		pics, err := f.GetPictures(config.SheetStatusTable, cell)
		require.NoError(t, err)
		assert.Len(t, pics, 1, cell)
	}
}

func TestEmbedImageRejectsAnchorInsideTable(t *testing.T) {
	rows := make([][]interface{}, 25)
	for i := range rows {
		rows[i] = []interface{}{fmt.Sprintf("ESTADO %02d", i+1), 1}
	}
	table := Table{Sheet: config.SheetStatusTable, Header: []string{"ESTADO INFORME", "ARL"}, Rows: rows}

	tests := []struct {
		name    string
		cell    string
		wantErr bool
	}{
		{"below the table", "A27", false},
		{"beside the table", "C20", false},
		{"on the last row", "B26", true},
		{"status bar anchor", config.AnchorStatusBar, true},
		{"not a cell", "20A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorkbook(t)
			require.NoError(t, w.WriteTable(table))

			err := w.EmbedImage(config.SheetStatusTable, tt.cell, tinyPNG)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperrors.ErrTypeRendering, appErr.Type)
		})
	}
}

func TestReplaceSheetClearsTableExtent(t *testing.T) {
	w := newTestWorkbook(t)
	rows := make([][]interface{}, 30)
	for i := range rows {
		rows[i] = []interface{}{i}
	}
	require.NoError(t, w.WriteTable(Table{Sheet: "X", Header: []string{"N"}, Rows: rows}))
	require.Error(t, w.EmbedImage("X", "A20", tinyPNG))

	require.NoError(t, w.WriteTable(Table{Sheet: "X", Header: []string{"N"}}))
	assert.NoError(t, w.EmbedImage("X", "A20", tinyPNG))
}

func TestEmbedImageRejectsGarbage(t *testing.T) {
	w := newTestWorkbook(t)
	require.NoError(t, w.ReplaceSheet("X"))
	assert.Error(t, w.EmbedImage("X", "A1", []byte("not an image")))
}

func TestBytesWithoutSheets(t *testing.T) {
	w := newTestWorkbook(t)
	_, err := w.Bytes()
	assert.Error(t, err)
}

func TestSheetsKeepsWriteOrder(t *testing.T) {
	w := newTestWorkbook(t)
	require.NoError(t, w.ReplaceSheet("B"))
	require.NoError(t, w.ReplaceSheet("A"))
	require.NoError(t, w.ReplaceSheet("B"))
	assert.Equal(t, []string{"B", "A"}, w.Sheets())
}

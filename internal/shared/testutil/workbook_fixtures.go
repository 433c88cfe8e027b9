package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Sheet is a named grid of cell values; the first row is the header
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// WorkbookBytes builds an .xlsx workbook in memory with sheets in order
func WorkbookBytes(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()
	require.NotEmpty(t, sheets, "at least one sheet is required")

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sheet.Name))
		} else {
			_, err := f.NewSheet(sheet.Name)
			require.NoError(t, err)
		}
		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(sheet.Name, cell, &values))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// CSVBytes joins rows with commas, quoting as needed
func CSVBytes(t testing.TB, rows ...[]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(rows))
	return buf.Bytes()
}

// Date returns midnight UTC of the given 2024 day
func Date(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

// NotificationHeader is the header row used by the standard fixtures
var NotificationHeader = []interface{}{"RADICADO", "FECHA_VISADO", "NOTIFICADOR", "ESTADO_INFORME"}

// NotificationRow builds one fixture row
func NotificationRow(id int, visado time.Time, notifier, status string) []interface{} {
	return []interface{}{fmt.Sprintf("R-%04d", id), visado, notifier, status}
}

// StandardWorkbook returns a DTO/PCL workbook:
//
//	DTO: Enero ARL x2 / COLP x1, Febrero ARL x1, Marzo COLP x1
//	PCL: Enero COLP x1, Marzo ARL x2 / JUNTA x1
func StandardWorkbook(t testing.TB) []byte {
	t.Helper()
	dto := Sheet{Name: "DTO", Rows: [][]interface{}{
		NotificationHeader,
		NotificationRow(1, Date(time.January, 3), "ARL", "NOTIFICADO"),
		NotificationRow(2, Date(time.January, 15), "ARL", "PENDIENTE"),
		NotificationRow(3, Date(time.January, 20), "COLP", "NOTIFICADO"),
		NotificationRow(4, Date(time.February, 2), "ARL", "NOTIFICADO"),
		NotificationRow(5, Date(time.March, 9), "COLP", "DEVUELTO"),
	}}
	pcl := Sheet{Name: "PCL", Rows: [][]interface{}{
		NotificationHeader,
		NotificationRow(6, Date(time.January, 5), "COLP", "NOTIFICADO"),
		NotificationRow(7, Date(time.March, 1), "ARL", "PENDIENTE"),
		NotificationRow(8, Date(time.March, 2), "ARL", "NOTIFICADO"),
		NotificationRow(9, Date(time.March, 3), "JUNTA", "NOTIFICADO"),
	}}
	return WorkbookBytes(t, dto, pcl)
}

// Package exporter writes aggregated tables out of the process.
//
// WorkbookWriter produces the report workbook with excelize: styled table
// sheets, the row-level BASE sheet and chart images anchored at fixed cells.
// Sheets are always replaced by delete-then-recreate so a rebuilt sheet never
// keeps images from a previous run.
//
// CSVWriter exports the same tables as UTF-8 CSV with a BOM so Excel opens
// them with the right encoding.
//
// Example usage:
//
//	w, err := exporter.NewWorkbook(logger)
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//
//	table, err := exporter.SummaryTable("TABLA MES DTO", "FECHA VISADO", counts)
//	if err := w.WriteTable(table); err != nil {
//		return err
//	}
//	data, err := w.Bytes()
package exporter

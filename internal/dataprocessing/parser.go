package dataprocessing

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "notireport/internal/errors"
	"notireport/pkg/contracts/domain"
)

// dateLayouts are tried in order for text dates. Day-first layouts win
// over month-first for slash separated values.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"02-01-06",
}

// maxExcelSerial is 9999-12-31, the last date a workbook can hold
const maxExcelSerial = 2958465

// Parser turns workbook sheets or delimited text into a Dataset
type Parser struct {
	logger    *slog.Logger
	delimiter rune
}

// NewParser creates a parser; delimiter applies to delimited text only
func NewParser(logger *slog.Logger, delimiter rune) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &Parser{logger: logger.With("component", "parser"), delimiter: delimiter}
}

// ParseWorkbook reads the named sheets, in order, into one dataset. Each
// record remembers its sheet in Source. An empty sheet list reads every sheet.
func (p *Parser) ParseWorkbook(r io.Reader, sheets []string) (*domain.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	if len(sheets) == 0 {
		sheets = f.GetSheetList()
	}

	ds := &domain.Dataset{Kind: domain.FileKindWorkbook}
	seen := make(map[string]bool)
	dateStyles := make(map[int]bool)

	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read sheet "+sheet, err)
		}
		if len(rows) == 0 {
			p.logger.Debug("sheet is empty", slog.String("sheet", sheet))
			continue
		}

		header := normalizeHeader(rows[0])
		ds.Columns = unionColumns(ds.Columns, header, seen)

		before := len(ds.Records)
		for i, row := range rows[1:] {
			rec, ok := p.buildRecord(sheet, i+2, header, row)
			if !ok {
				continue
			}
			rec.Values = typedCells(f, sheet, rec.Line, header, row, dateStyles)
			ds.Records = append(ds.Records, rec)
		}

		p.logger.Debug("sheet parsed",
			slog.String("sheet", sheet),
			slog.Int("records", len(ds.Records)-before))
	}

	return ds, nil
}

// typedCells recovers numbers and dates from the raw values of one sheet row.
// Text cells that merely look numeric stay text.
func typedCells(f *excelize.File, sheet string, line int, header, row []string, dateStyles map[int]bool) map[string]interface{} {
	var values map[string]interface{}
	for i, name := range header {
		if name == "" || i >= len(row) {
			continue
		}
		num, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, line)
		if err != nil {
			continue
		}
		kind, err := f.GetCellType(sheet, cell)
		if err != nil || (kind != excelize.CellTypeUnset && kind != excelize.CellTypeNumber) {
			continue
		}

		var v interface{} = num
		if isDateCell(f, sheet, cell, dateStyles) {
			t, err := excelize.ExcelDateToTime(num, false)
			if err != nil {
				continue
			}
			v = t
		}
		if values == nil {
			values = make(map[string]interface{})
		}
		values[name] = v
	}
	return values
}

// isDateCell reports whether the cell's number format shows a date.
// Results are cached per style index.
func isDateCell(f *excelize.File, sheet, cell string, cache map[int]bool) bool {
	idx, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		return false
	}
	if isDate, ok := cache[idx]; ok {
		return isDate
	}
	isDate := false
	if style, err := f.GetStyle(idx); err == nil {
		isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	cache[idx] = isDate
	return isDate
}

// isDateFormat reports whether a built-in format id or a custom format code
// renders a calendar date. Time-only formats are not dates.
func isDateFormat(numFmt int, custom *string) bool {
	if custom != nil {
		return isDateCode(*custom)
	}
	return (numFmt >= 14 && numFmt <= 17) || numFmt == 22
}

func isDateCode(code string) bool {
	quoted, bracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
		case r == 'y' || r == 'd':
			return true
		}
	}
	return false
}

// NewDelimitedReader returns the reader used for every pass over delimited
// text, so a header accepted at validation parses the same way later.
func NewDelimitedReader(r io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.Comma = delimiter
	return reader
}

// ParseDelimited reads delimited text whose first row is the header.
// Ragged or badly quoted rows are skipped and listed in Dataset.Skipped.
func (p *Parser) ParseDelimited(r io.Reader) (*domain.Dataset, error) {
	reader := NewDelimitedReader(r, p.delimiter)

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &domain.Dataset{Kind: domain.FileKindDelimited}, nil
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read header row", err)
	}

	header := normalizeHeader(first)
	ds := &domain.Dataset{Kind: domain.FileKindDelimited}
	ds.Columns = unionColumns(nil, header, make(map[string]bool))

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped := &apperrors.MalformedRowError{Line: parseErr.StartLine, Cause: parseErr.Err}
			ds.Skipped = append(ds.Skipped, domain.SkippedRow{Line: skipped.Line, Reason: parseErr.Err.Error()})
			p.logger.Warn("skipping malformed row",
				slog.Int("line", skipped.Line),
				slog.String("error", skipped.Error()))
			continue
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read delimited input", err)
		}

		line, _ := reader.FieldPos(0)
		if rec, ok := p.buildRecord(domain.SourceDelimited, line, header, row); ok {
			ds.Records = append(ds.Records, rec)
		}
	}

	if len(ds.Skipped) > 0 {
		p.logger.Info("delimited input parsed with skipped rows",
			slog.Int("records", len(ds.Records)),
			slog.Int("skipped", len(ds.Skipped)))
	}
	return ds, nil
}

// buildRecord maps row onto header. Rows with no non-blank cell are dropped.
func (p *Parser) buildRecord(source string, line int, header, row []string) (domain.Record, bool) {
	fields := make(map[string]string, len(header))
	blank := true
	for i, name := range header {
		if name == "" || i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if v != "" {
			blank = false
		}
		fields[name] = v
	}
	if blank {
		return domain.Record{}, false
	}

	rec := domain.Record{Source: source, Line: line, Fields: fields}
	if raw := fields[domain.ColumnFechaVisado]; raw != "" {
		if t, ok := ParseDate(raw); ok {
			rec.VisadoDate, rec.HasDate = t, true
		} else {
			p.logger.Debug("unparseable date",
				slog.String("source", source),
				slog.Int("line", line),
				slog.String("value", raw))
		}
	}
	return rec, true
}

// ParseDate accepts workbook serial numbers and the common text layouts
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial <= 0 || serial > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func normalizeHeader(row []string) []string {
	header := make([]string, len(row))
	for i, h := range row {
		header[i] = domain.NormalizeHeader(h)
	}
	return header
}

func unionColumns(columns, header []string, seen map[string]bool) []string {
	for _, h := range header {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		columns = append(columns, h)
	}
	return columns
}

// Parse dispatches on kind
func (p *Parser) Parse(r io.Reader, kind domain.FileKind, sheets []string) (*domain.Dataset, error) {
	switch kind {
	case domain.FileKindWorkbook:
		return p.ParseWorkbook(r, sheets)
	case domain.FileKindDelimited:
		return p.ParseDelimited(r)
	default:
		return nil, fmt.Errorf("parse: %w", &apperrors.UnsupportedFileKindError{})
	}
}

package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"notireport/internal/dataprocessing"
	apperrors "notireport/internal/errors"
	"notireport/pkg/contracts/domain"
)

// zipSignature opens every .xlsx container
var zipSignature = []byte("PK\x03\x04")

// Requirements lists the structural markers an input must carry
type Requirements struct {
	// Sheets must all exist in a workbook input. Ignored for delimited text.
	Sheets []string
	// Columns must appear in the header row. For workbooks the header rows of
	// the required sheets are unioned unless EverySheet is set.
	Columns    []string
	EverySheet bool
}

// Validator checks uploaded files before any aggregation runs. Every check
// leaves the reader positioned at its start.
type Validator struct {
	logger    *slog.Logger
	delimiter rune
}

// NewValidator creates a validator reading delimited headers with the given delimiter
func NewValidator(logger *slog.Logger, delimiter rune) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &Validator{
		logger:    logger.With("component", "validator"),
		delimiter: delimiter,
	}
}

// DetectKind classifies an input by extension, confirming workbooks by
// their zip signature. Files without a known extension are sniffed.
func (v *Validator) DetectKind(name string, r io.ReadSeeker) (kind domain.FileKind, err error) {
	defer func() { err = rewind(r, err) }()

	head := make([]byte, len(zipSignature))
	n, readErr := io.ReadFull(r, head)
	if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) && !errors.Is(readErr, io.EOF) {
		return domain.FileKindUnknown, fmt.Errorf("failed to read %s: %w", name, readErr)
	}
	isZip := n == len(zipSignature) && bytes.Equal(head, zipSignature)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		if !isZip {
			v.logger.Warn("workbook extension without workbook content", slog.String("file", name))
			return domain.FileKindUnknown, &apperrors.UnsupportedFileKindError{Filename: name}
		}
		return domain.FileKindWorkbook, nil
	case ".csv", ".txt":
		return domain.FileKindDelimited, nil
	case "":
		if isZip {
			return domain.FileKindWorkbook, nil
		}
	}

	return domain.FileKindUnknown, &apperrors.UnsupportedFileKindError{Filename: name}
}

// Validate runs the sheet and column checks that apply to kind
func (v *Validator) Validate(r io.ReadSeeker, kind domain.FileKind, req Requirements) error {
	switch kind {
	case domain.FileKindWorkbook:
		if err := v.ValidateSheets(r, req.Sheets); err != nil {
			return err
		}
		if len(req.Columns) == 0 {
			return nil
		}
		return v.ValidateSheetColumns(r, req.Sheets, req.Columns, req.EverySheet)
	case domain.FileKindDelimited:
		return v.ValidateColumns(r, req.Columns)
	default:
		return &apperrors.UnsupportedFileKindError{}
	}
}

// ValidateSheets confirms every required sheet exists, reporting all
// absent sheets in one MissingSheetError.
func (v *Validator) ValidateSheets(r io.ReadSeeker, required []string) (err error) {
	defer func() { err = rewind(r, err) }()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return &apperrors.UnsupportedFileKindError{}
	}
	defer f.Close()

	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		v.logger.Warn("required sheets missing", slog.Any("missing", missing))
		return &apperrors.MissingSheetError{Sheets: missing}
	}

	v.logger.Debug("sheets validated", slog.Any("sheets", required))
	return nil
}

// ValidateSheetColumns confirms the header rows of sheets carry the required columns
func (v *Validator) ValidateSheetColumns(r io.ReadSeeker, sheets, required []string, everySheet bool) (err error) {
	defer func() { err = rewind(r, err) }()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return &apperrors.UnsupportedFileKindError{}
	}
	defer f.Close()

	if len(sheets) == 0 {
		list := f.GetSheetList()
		if len(list) == 0 {
			return &apperrors.MissingColumnError{Columns: required, Source: "workbook"}
		}
		sheets = list[:1]
	}

	union := make(map[string]bool)
	for _, sheet := range sheets {
		header, err := sheetHeader(f, sheet)
		if err != nil {
			return err
		}
		if everySheet {
			if missing := missingColumns(header, required); len(missing) > 0 {
				return &apperrors.MissingColumnError{Columns: missing, Source: "sheet " + sheet}
			}
			continue
		}
		for c := range header {
			union[c] = true
		}
	}

	if !everySheet {
		if missing := missingColumns(union, required); len(missing) > 0 {
			return &apperrors.MissingColumnError{Columns: missing, Source: "workbook"}
		}
	}
	return nil
}

// ValidateColumns confirms the header row of delimited text carries the required columns
func (v *Validator) ValidateColumns(r io.ReadSeeker, required []string) (err error) {
	defer func() { err = rewind(r, err) }()

	record, err := dataprocessing.NewDelimitedReader(r, v.delimiter).Read()
	if errors.Is(err, io.EOF) {
		return &apperrors.MissingColumnError{Columns: required}
	}
	if err != nil {
		return apperrors.NewParsingError("failed to read header row", err)
	}

	header := make(map[string]bool, len(record))
	for _, h := range record {
		header[domain.NormalizeHeader(h)] = true
	}
	if missing := missingColumns(header, required); len(missing) > 0 {
		v.logger.Warn("required columns missing", slog.Any("missing", missing))
		return &apperrors.MissingColumnError{Columns: missing}
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable
func (v *Validator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

func sheetHeader(f *excelize.File, sheet string) (map[string]bool, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sheet "+sheet, err)
	}
	defer rows.Close()

	header := make(map[string]bool)
	if rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read header of "+sheet, err)
		}
		for _, c := range cols {
			if c = domain.NormalizeHeader(c); c != "" {
				header[c] = true
			}
		}
	}
	return header, nil
}

func missingColumns(header map[string]bool, required []string) []string {
	var missing []string
	for _, c := range required {
		if !header[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// rewind seeks r back to its start, keeping the first error seen
func rewind(r io.Seeker, err error) error {
	if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil && err == nil {
		return fmt.Errorf("failed to rewind input: %w", seekErr)
	}
	return err
}

package validation

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notireport/internal/dataprocessing"
	apperrors "notireport/internal/errors"
	"notireport/internal/shared/testutil"
	"notireport/pkg/contracts/domain"
)

func newValidator() *Validator {
	logger, _ := testutil.NewTestLogger()
	return NewValidator(logger, ',')
}

func assertRewound(t *testing.T, r io.Seeker) {
	t.Helper()
	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Zero(t, pos, "reader must be rewound after validation")
}

func TestDetectKind(t *testing.T) {
	workbook := testutil.StandardWorkbook(t)
	csvData := testutil.CSVBytes(t, []string{"ESTADO_INFORME", "NOTIFICADOR"})

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     domain.FileKind
		wantErr  error
	}{
		{"workbook by extension", "notificaciones.xlsx", workbook, domain.FileKindWorkbook, nil},
		{"upper case extension", "NOTIFICACIONES.XLSX", workbook, domain.FileKindWorkbook, nil},
		{"csv by extension", "base.csv", csvData, domain.FileKindDelimited, nil},
		{"sniffed workbook", "upload", workbook, domain.FileKindWorkbook, nil},
		{"xlsx extension with text body", "fake.xlsx", csvData, domain.FileKindUnknown, apperrors.ErrUnsupportedFileKind},
		{"pdf", "informe.pdf", []byte("%PDF-1.7"), domain.FileKindUnknown, apperrors.ErrUnsupportedFileKind},
		{"empty unnamed", "", nil, domain.FileKindUnknown, apperrors.ErrUnsupportedFileKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			kind, err := newValidator().DetectKind(tt.filename, r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, kind)
			assertRewound(t, r)
		})
	}
}

func TestValidateSheets(t *testing.T) {
	header := testutil.NotificationHeader
	onlyDTO := testutil.WorkbookBytes(t, testutil.Sheet{Name: "DTO", Rows: [][]interface{}{header}})
	neither := testutil.WorkbookBytes(t, testutil.Sheet{Name: "Hoja1", Rows: [][]interface{}{header}})

	tests := []struct {
		name        string
		data        []byte
		wantMissing []string
	}{
		{"both present", testutil.StandardWorkbook(t), nil},
		{"second sheet missing", onlyDTO, []string{"PCL"}},
		{"both missing reported together", neither, []string{"DTO", "PCL"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			err := newValidator().ValidateSheets(r, []string{"DTO", "PCL"})
			assertRewound(t, r)

			if tt.wantMissing == nil {
				require.NoError(t, err)
				return
			}
			var missing *apperrors.MissingSheetError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.wantMissing, missing.Sheets)
		})
	}
}

func TestValidateSheetsRejectsNonWorkbook(t *testing.T) {
	r := bytes.NewReader([]byte("a,b,c\n"))
	err := newValidator().ValidateSheets(r, []string{"DTO"})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFileKind)
	assertRewound(t, r)
}

func TestValidateColumns(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		delimiter   rune
		wantMissing []string
	}{
		{
			name: "present with extra columns",
			data: []byte("ID,ESTADO_INFORME,NOTIFICADOR\n1,OK,ARL\n"),
		},
		{
			name: "header with BOM and spaces",
			data: []byte("\ufeffESTADO_INFORME , NOTIFICADOR\n"),
		},
		{
			name:      "semicolon delimiter",
			data:      []byte("ESTADO_INFORME;NOTIFICADOR\n"),
			delimiter: ';',
		},
		{
			name:        "one missing",
			data:        []byte("ESTADO_INFORME,OTRO\n"),
			wantMissing: []string{"NOTIFICADOR"},
		},
		{
			name:        "empty file",
			data:        nil,
			wantMissing: []string{"ESTADO_INFORME", "NOTIFICADOR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger()
			v := NewValidator(logger, tt.delimiter)
			r := bytes.NewReader(tt.data)

			err := v.ValidateColumns(r, []string{"ESTADO_INFORME", "NOTIFICADOR"})
			assertRewound(t, r)

			if tt.wantMissing == nil {
				require.NoError(t, err)
				return
			}
			var missing *apperrors.MissingColumnError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.wantMissing, missing.Columns)
		})
	}
}

func TestValidateColumnsReadsLikeParser(t *testing.T) {
	data := []byte("ESTADO\"INFORME,NOTIFICADOR\nNOTIFICADO,ARL\n")

	r := bytes.NewReader(data)
	err := newValidator().ValidateColumns(r, []string{"NOTIFICADOR"})
	require.Error(t, err)
	assert.ErrorIs(t, err, csv.ErrBareQuote)
	assertRewound(t, r)

	_, parseErr := dataprocessing.NewParser(nil, ',').ParseDelimited(bytes.NewReader(data))
	assert.ErrorIs(t, parseErr, csv.ErrBareQuote)
}

func TestValidateWorkbookColumns(t *testing.T) {
	dto := testutil.Sheet{Name: "DTO", Rows: [][]interface{}{{"FECHA_VISADO", "NOTIFICADOR"}}}
	pclNoNotifier := testutil.Sheet{Name: "PCL", Rows: [][]interface{}{{"FECHA_VISADO", "ESTADO_INFORME"}}}
	data := testutil.WorkbookBytes(t, dto, pclNoNotifier)

	t.Run("union satisfies", func(t *testing.T) {
		r := bytes.NewReader(data)
		err := newValidator().Validate(r, domain.FileKindWorkbook, Requirements{
			Sheets:  []string{"DTO", "PCL"},
			Columns: []string{"ESTADO_INFORME", "NOTIFICADOR"},
		})
		require.NoError(t, err)
		assertRewound(t, r)
	})

	t.Run("every sheet required", func(t *testing.T) {
		r := bytes.NewReader(data)
		err := newValidator().Validate(r, domain.FileKindWorkbook, Requirements{
			Sheets:     []string{"DTO", "PCL"},
			Columns:    []string{"FECHA_VISADO", "NOTIFICADOR"},
			EverySheet: true,
		})
		var missing *apperrors.MissingColumnError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []string{"NOTIFICADOR"}, missing.Columns)
		assert.Equal(t, "sheet PCL", missing.Source)
		assertRewound(t, r)
	})

	t.Run("sheet check runs first", func(t *testing.T) {
		r := bytes.NewReader(data)
		err := newValidator().Validate(r, domain.FileKindWorkbook, Requirements{
			Sheets:  []string{"DTO", "PCL", "EXTRA"},
			Columns: []string{"NOTIFICADOR"},
		})
		assert.ErrorIs(t, err, apperrors.ErrMissingSheet)
	})
}

func TestValidateUnknownKind(t *testing.T) {
	err := newValidator().Validate(bytes.NewReader(nil), domain.FileKindUnknown, Requirements{})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFileKind)
}

func TestValidatorLogsMissingSheets(t *testing.T) {
	logger, handler := testutil.NewTestLogger()
	v := NewValidator(logger, ',')
	data := testutil.WorkbookBytes(t, testutil.Sheet{Name: "DTO", Rows: [][]interface{}{
		testutil.NotificationRow(1, testutil.Date(time.May, 1), "ARL", "OK"),
	}})

	_ = v.ValidateSheets(bytes.NewReader(data), []string{"DTO", "PCL"})
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "required sheets missing")
}

func TestValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "informes", "2024")
	require.NoError(t, newValidator().ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
}

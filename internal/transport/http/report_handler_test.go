package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"notireport/internal/config"
	apierrors "notireport/internal/errors"
	"notireport/internal/middleware"
	"notireport/internal/operations"
	"notireport/internal/services"
	"notireport/internal/shared/testutil"
	api "notireport/pkg/contracts/api/v1"
	"notireport/pkg/contracts/domain"
)

type upload struct {
	filename string
	data     []byte
	fields   map[string][]string
}

func (u upload) request(t *testing.T) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, values := range u.fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	if u.data != nil {
		part, err := mw.CreateFormFile("file", u.filename)
		require.NoError(t, err)
		_, err = part.Write(u.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default().Report

	pipeline, err := operations.NewPipeline(cfg, logger, nil)
	require.NoError(t, err)
	svc := services.NewReportService(pipeline, cfg, logger)

	errorHandler := apierrors.NewErrorHandler(logger, false)
	validation := middleware.NewValidationMiddleware(logger, errorHandler, cfg.MaxUploadBytes)
	handler := NewReportHandler(svc, validation, errorHandler, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/reports", handler.Routes(validation.LimitBody))
	return r
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem), rec.Body.String())
	return problem
}

func TestReportHandlerGenerate(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, upload{
		filename: "notificaciones.xlsx",
		data:     testutil.StandardWorkbook(t),
		fields:   map[string][]string{"variant": {"estado-notificador"}},
	}.request(t))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "0", rec.Header().Get(HeaderSkippedRows))
	assert.Equal(t, "9", rec.Header().Get(HeaderRecords))

	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, config.FilenameStatus, params["filename"])

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), config.SheetStatusTable)
	assert.Contains(t, f.GetSheetList(), config.SheetBase)
}

func TestReportHandlerGenerateWithOptions(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, upload{
		filename: "notificaciones.xlsx",
		data:     testutil.StandardWorkbook(t),
		fields: map[string][]string{
			"variant":  {"comparativo-notificador"},
			"notifier": {"ARL", "COLP"},
			"month":    {"1"},
			"filename": {"enero.xlsx"},
		},
	}.request(t))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "enero.xlsx", params["filename"])
}

func TestReportHandlerGenerateFailures(t *testing.T) {
	router := newTestRouter(t)

	dtoOnly := testutil.WorkbookBytes(t, testutil.Sheet{Name: "DTO", Rows: [][]interface{}{
		{"FECHA_VISADO", "NOTIFICADOR", "ESTADO_INFORME"},
		{"2024-01-03", "ARL", "NOTIFICADO"},
	}})

	tests := []struct {
		name       string
		upload     upload
		wantStatus int
		wantType   string
	}{
		{
			name:       "unknown variant",
			upload:     upload{filename: "a.xlsx", data: dtoOnly, fields: map[string][]string{"variant": {"pivot"}}},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "bad month",
			upload:     upload{filename: "a.xlsx", data: dtoOnly, fields: map[string][]string{"variant": {"dto-pcl-mes"}, "month": {"enero"}}},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "single notifier",
			upload:     upload{filename: "a.xlsx", data: dtoOnly, fields: map[string][]string{"variant": {"comparativo-notificador"}, "notifier": {"ARL"}}},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "no file",
			upload:     upload{fields: map[string][]string{"variant": {"estado-notificador"}}},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "missing sheet",
			upload:     upload{filename: "a.xlsx", data: dtoOnly, fields: map[string][]string{"variant": {"dto-pcl-mes"}}},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeMissingSheet,
		},
		{
			name:       "unsupported file",
			upload:     upload{filename: "a.pdf", data: []byte("%PDF-1.4"), fields: map[string][]string{"variant": {"estado-notificador"}}},
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   apierrors.TypeUnsupportedFileKind,
		},
		{
			name:       "month without records",
			upload:     upload{filename: "a.xlsx", data: testutil.StandardWorkbook(t), fields: map[string][]string{"variant": {"dto-pcl-mes"}, "month": {"2"}}},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeEmptyDataset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, tt.upload.request(t))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantType == "" {
				return
			}
			assert.NotEqual(t, XLSXContentType, rec.Header().Get("Content-Type"))
			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, problem["type"])
			assert.NotEmpty(t, problem["trace_id"])
		})
	}
}

func TestReportHandlerRejectsOversizedUpload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validation := middleware.NewValidationMiddleware(logger, errorHandler, 64)
	stub := &stubReportService{}
	handler := NewReportHandler(stub, validation, errorHandler, logger)

	r := chi.NewRouter()
	r.Mount("/api/reports", handler.Routes(validation.LimitBody))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, upload{
		filename: "big.xlsx",
		data:     bytes.Repeat([]byte("x"), 1024),
		fields:   map[string][]string{"variant": {"estado-notificador"}},
	}.request(t))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, apierrors.TypePayloadTooLarge, decodeProblem(t, rec)["type"])
	assert.Zero(t, stub.calls)
}

func TestReportHandlerListVariants(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/variants", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body api.VariantListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Variants, 3)
	ids := make([]string, len(body.Variants))
	for i, v := range body.Variants {
		ids[i] = string(v.ID)
	}
	assert.Equal(t, []string{"dto-pcl-mes", "estado-notificador", "comparativo-notificador"}, ids)
}

type stubReportService struct {
	calls int
}

func (s *stubReportService) Generate(context.Context, operations.Request) (*operations.Result, error) {
	s.calls++
	return &operations.Result{Filename: "stub.xlsx", Bytes: []byte("PK")}, nil
}

func (s *stubReportService) Variants() []api.VariantResponse { return nil }

func (s *stubReportService) HasVariant(domain.VariantID) bool { return true }

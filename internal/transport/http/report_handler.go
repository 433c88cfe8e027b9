package http

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "notireport/internal/errors"
	"notireport/internal/operations"
	api "notireport/pkg/contracts/api/v1"
	"notireport/pkg/contracts/domain"
)

// XLSXContentType is the media type of generated workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Report response headers
const (
	HeaderSkippedRows = "X-Skipped-Rows"
	HeaderRecords     = "X-Report-Records"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk
const multipartMemory = 8 << 20

// StructValidator validates tagged request structs
type StructValidator interface {
	ValidateStruct(v interface{}) error
}

// ReportHandler handles report generation requests
type ReportHandler struct {
	service      ReportServiceInterface
	validator    StructValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportServiceInterface, validator StructValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ReportHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "reports")),
	}
}

// Routes returns the report routes; mw wraps every route, typically the upload size limit
func (h *ReportHandler) Routes(mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mw...)
	r.Post("/", h.Generate)
	r.Get("/variants", h.ListVariants)
	return r
}

// ListVariants handles GET /api/reports/variants
func (h *ReportHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, api.VariantListResponse{Variants: h.service.Variants()})
}

// Generate handles POST /api/reports. The workbook is only written once the
// whole pipeline succeeded; failures answer with a problem document.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	form, err := parseGenerateForm(r.MultipartForm)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if h.validator != nil {
		if err := h.validator.ValidateStruct(form); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	req := operations.Request{
		Variant:    domain.VariantID(form.Variant),
		Month:      form.Month,
		Notifiers:  form.Notifiers,
		OutputName: form.Filename,
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Input stays nil; the pipeline rejects the run while awaiting the file
	case err != nil:
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	default:
		defer file.Close()
		req.Input = file
		req.Filename = header.Filename
	}

	h.logger.InfoContext(ctx, "report requested",
		slog.String("variant", form.Variant),
		slog.String("file", req.Filename),
		slog.Int("month", form.Month))

	res, err := h.service.Generate(ctx, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Bytes)))
	w.Header().Set(HeaderSkippedRows, strconv.Itoa(len(res.Skipped)))
	w.Header().Set(HeaderRecords, strconv.Itoa(res.Summary.Records))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Bytes); err != nil {
		h.logger.WarnContext(ctx, "failed to write report body", slog.String("error", err.Error()))
	}
}

// parseGenerateForm maps the multipart fields onto the request contract
func parseGenerateForm(form *multipart.Form) (api.GenerateReportRequest, error) {
	value := func(key string) string {
		if vs := form.Value[key]; len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}

	req := api.GenerateReportRequest{
		Variant:  value("variant"),
		Filename: value("filename"),
	}

	if raw := value("month"); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil {
			return req, apierrors.NewValidationErrors([]apierrors.ValidationError{
				{Field: "month", Message: "month must be a number between 1 and 12"},
			})
		}
		req.Month = month
	}

	for _, n := range form.Value["notifier"] {
		if n = strings.TrimSpace(n); n != "" {
			req.Notifiers = append(req.Notifiers, n)
		}
	}
	return req, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierrors.ErrPayloadTooLarge
	}
	return apierrors.InvalidRequestWithError(err)
}

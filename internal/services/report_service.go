package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"notireport/internal/config"
	apperrors "notireport/internal/errors"
	"notireport/internal/exporter"
	"notireport/internal/operations"
	"notireport/internal/validation"
	api "notireport/pkg/contracts/api/v1"
	"notireport/pkg/contracts/domain"
)

// ReportService generates report workbooks
type ReportService struct {
	pipeline  *operations.Pipeline
	validator *validation.Validator
	cfg       config.ReportConfig
	logger    *slog.Logger
}

// NewReportService creates a report service on top of pipeline
func NewReportService(pipeline *operations.Pipeline, cfg config.ReportConfig, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		pipeline:  pipeline,
		validator: validation.NewValidator(logger, cfg.Delimiter()),
		cfg:       cfg,
		logger:    logger.With("service", "report"),
	}
}

// Generate runs the pipeline for req
func (s *ReportService) Generate(ctx context.Context, req operations.Request) (*operations.Result, error) {
	res, err := s.pipeline.Run(ctx, req)
	if err != nil {
		if operations.IsValidationError(err) {
			s.logger.WarnContext(ctx, "report rejected",
				slog.String("variant", string(req.Variant)),
				slog.String("error", err.Error()))
		} else {
			s.logger.ErrorContext(ctx, "report generation failed",
				slog.String("variant", string(req.Variant)),
				slog.String("error", err.Error()))
		}
		return nil, err
	}
	return res, nil
}

// Variants lists the available report layouts
func (s *ReportService) Variants() []api.VariantResponse {
	variants := s.pipeline.Variants()
	out := make([]api.VariantResponse, len(variants))
	for i, v := range variants {
		inputs := make([]string, len(v.Inputs))
		for j, k := range v.Inputs {
			inputs[j] = string(k)
		}
		out[i] = api.VariantResponse{
			ID:              v.ID,
			Description:     v.Description,
			DefaultFilename: v.DefaultFilename,
			Inputs:          inputs,
			SupportsMonth:   v.SupportsMonth,
		}
	}
	return out
}

// HasVariant reports whether id names a known variant
func (s *ReportService) HasVariant(id domain.VariantID) bool {
	_, ok := s.pipeline.Variant(id)
	return ok
}

// HasVariants reports whether any variant is registered
func (s *ReportService) HasVariants() bool {
	return len(s.pipeline.Variants()) > 0
}

// Save writes the workbook into dir (the configured output directory when
// empty) and returns its path.
func (s *ReportService) Save(ctx context.Context, res *operations.Result, dir string) (string, error) {
	if dir == "" {
		dir = s.cfg.OutputDir
	}
	if err := s.validator.ValidateOutputDirectory(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir, res.Filename)
	if err := os.WriteFile(path, res.Bytes, 0644); err != nil {
		return "", apperrors.NewStorageError("failed to write report", err).WithContext("path", path)
	}

	s.logger.InfoContext(ctx, "report saved",
		slog.String("path", path),
		slog.Int("bytes", len(res.Bytes)))
	return path, nil
}

// ExportTables writes every table of res as a BOM-prefixed CSV into dir
func (s *ReportService) ExportTables(ctx context.Context, res *operations.Result, dir string) ([]string, error) {
	if err := s.validator.ValidateOutputDirectory(dir); err != nil {
		return nil, err
	}

	w := exporter.NewCSVWriter(s.logger, dir, s.cfg.Delimiter())
	paths := make([]string, 0, len(res.Tables))
	for _, t := range res.Tables {
		path, err := w.WriteTable(t)
		if err != nil {
			return nil, apperrors.NewStorageError(fmt.Sprintf("failed to export %s", t.Sheet), err)
		}
		paths = append(paths, path)
	}

	s.logger.InfoContext(ctx, "tables exported", slog.Int("files", len(paths)), slog.String("dir", dir))
	return paths, nil
}

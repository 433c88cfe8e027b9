package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"notireport/internal/validation"
	"notireport/pkg/contracts"
)

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual component health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// VariantLister is the part of the report service readiness depends on
type VariantLister interface {
	HasVariants() bool
}

// HealthService provides health check functionality
type HealthService struct {
	reports   VariantLister
	validator *validation.Validator
	outputDir string
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service probing reports and outputDir
func NewHealthService(reports VariantLister, outputDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		reports:   reports,
		validator: validation.NewValidator(logger, ','),
		outputDir: outputDir,
		startTime: time.Now(),
		logger:    logger.With("service", "health"),
	}
}

// HealthCheck returns liveness with runtime details
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.GetVersionString(),
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
	}
	hs.logger.DebugContext(ctx, "health check", slog.String("status", status.Status))
	return status
}

// ReadinessCheck reports whether reports can be generated and saved
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.GetVersionString(),
		Services: map[string]ServiceHealth{
			"reports": hs.checkReports(),
			"storage": hs.checkStorage(),
		},
	}

	for _, s := range status.Services {
		if s.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "readiness check failed", slog.Any("services", status.Services))
	}
	return status
}

func (hs *HealthService) checkReports() ServiceHealth {
	if hs.reports == nil || !hs.reports.HasVariants() {
		return ServiceHealth{Status: "not_ready", Message: "no report variants registered"}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkStorage() ServiceHealth {
	if hs.outputDir == "" {
		return ServiceHealth{Status: "ready", Message: "reports are only streamed"}
	}
	if err := hs.validator.ValidateOutputDirectory(hs.outputDir); err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("output directory: %v", err)}
	}
	return ServiceHealth{Status: "ready"}
}

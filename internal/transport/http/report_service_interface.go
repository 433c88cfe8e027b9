package http

import (
	"context"

	"notireport/internal/operations"
	api "notireport/pkg/contracts/api/v1"
	"notireport/pkg/contracts/domain"
)

// ReportServiceInterface defines the report operations the handler needs
type ReportServiceInterface interface {
	Generate(ctx context.Context, req operations.Request) (*operations.Result, error)
	Variants() []api.VariantResponse
	HasVariant(id domain.VariantID) bool
}

// Package api contains the HTTP contract of the notification report service.
package api

import (
	"notireport/pkg/contracts/domain"
)

// GenerateReportRequest carries the form fields of a report upload
type GenerateReportRequest struct {
	Variant   string   `json:"variant" validate:"required,variant"`
	Month     int      `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	Notifiers []string `json:"notifiers,omitempty" validate:"omitempty,len=2,unique,dive,required"`
	Filename  string   `json:"filename,omitempty" validate:"omitempty,max=120,endswith=.xlsx"`
}

// VariantResponse describes one available report variant
type VariantResponse struct {
	ID              domain.VariantID `json:"id"`
	Description     string           `json:"description"`
	DefaultFilename string           `json:"default_filename"`
	Inputs          []string         `json:"inputs"`
	SupportsMonth   bool             `json:"supports_month"`
}

// VariantListResponse is returned by the variants endpoint
type VariantListResponse struct {
	Variants []VariantResponse `json:"variants"`
}

package domain

import (
	"context"
	"errors"
)

type GenerateRequest struct {
	Type   Type   `uri:"type"`
	Format Format `form:"format"`
}

type Service interface {
	// Generate renders a report as a downloadable file. Format defaults to pdf.
	Generate(ctx context.Context, req GenerateRequest) (*File, error)
}

var (
	ErrInvalidType   = errors.New("invalid_report_type")
	ErrInvalidFormat = errors.New("invalid_report_format")
)

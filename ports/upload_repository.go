package ports

import (
	"context"

	"surveylens/domain/core"
	"surveylens/domain/survey"
)

// UploadRepository persists uploads together with their analysis.
type UploadRepository interface {
	// Create stores the upload row and its analysis atomically.
	Create(ctx context.Context, upload *survey.Upload, analysis *survey.StoredAnalysis) error
	GetByID(ctx context.Context, id core.UploadID) (*survey.Upload, error)

	// List returns uploads newest first, optionally restricted to one year.
	List(ctx context.Context, year string, limit int) ([]*survey.Upload, error)
	GetAnalysis(ctx context.Context, id core.UploadID) (*survey.StoredAnalysis, error)
	Delete(ctx context.Context, id core.UploadID) error
}

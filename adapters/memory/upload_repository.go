package memory

import (
	"context"
	"sort"
	"sync"

	"surveylens/domain/core"
	"surveylens/domain/survey"
	"surveylens/internal/errors"
	"surveylens/ports"
)

// UploadRepository keeps uploads in process memory. It backs the server when
// no database is configured.
type UploadRepository struct {
	uploads  map[core.UploadID]survey.Upload
	analyses map[core.UploadID]survey.StoredAnalysis
	mu       sync.RWMutex
}

var _ ports.UploadRepository = (*UploadRepository)(nil)

func NewUploadRepository() *UploadRepository {
	return &UploadRepository{
		uploads:  make(map[core.UploadID]survey.Upload),
		analyses: make(map[core.UploadID]survey.StoredAnalysis),
	}
}

func (r *UploadRepository) Create(ctx context.Context, upload *survey.Upload, analysis *survey.StoredAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := core.UploadID(upload.ID)
	if _, exists := r.uploads[id]; exists {
		return errors.New(errors.CodeDatabaseError, "upload already exists: "+upload.ID)
	}
	r.uploads[id] = *upload
	if analysis != nil {
		r.analyses[id] = *analysis
	}
	return nil
}

func (r *UploadRepository) GetByID(ctx context.Context, id core.UploadID) (*survey.Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	upload, ok := r.uploads[id]
	if !ok {
		return nil, errors.NotFound("upload " + id.String())
	}
	return &upload, nil
}

func (r *UploadRepository) List(ctx context.Context, year string, limit int) ([]*survey.Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uploads := []*survey.Upload{}
	for _, u := range r.uploads {
		if year != "" && u.Year != year {
			continue
		}
		u := u
		uploads = append(uploads, &u)
	}
	sort.Slice(uploads, func(i, j int) bool {
		if !uploads[i].CreatedAt.Equal(uploads[j].CreatedAt) {
			return uploads[i].CreatedAt.After(uploads[j].CreatedAt)
		}
		return uploads[i].ID > uploads[j].ID
	})
	if limit > 0 && len(uploads) > limit {
		uploads = uploads[:limit]
	}
	return uploads, nil
}

func (r *UploadRepository) GetAnalysis(ctx context.Context, id core.UploadID) (*survey.StoredAnalysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	analysis, ok := r.analyses[id]
	if !ok {
		return nil, errors.NotFound("analysis for upload " + id.String())
	}
	return &analysis, nil
}

func (r *UploadRepository) Delete(ctx context.Context, id core.UploadID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.uploads[id]; !ok {
		return errors.NotFound("upload " + id.String())
	}
	delete(r.uploads, id)
	delete(r.analyses, id)
	return nil
}

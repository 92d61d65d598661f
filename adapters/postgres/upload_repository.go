package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"surveylens/domain/core"
	"surveylens/domain/survey"
	"surveylens/internal/errors"
	"surveylens/ports"

	"github.com/jmoiron/sqlx"
)

// uploadRepository implements the UploadRepository interface
type uploadRepository struct {
	db *sqlx.DB
}

// NewUploadRepository creates a new upload repository
func NewUploadRepository(db *sqlx.DB) ports.UploadRepository {
	return &uploadRepository{db: db}
}

const uploadColumns = `id, file_name, COALESCE(file_path, '') AS file_path, file_size,
	COALESCE(mime_type, '') AS mime_type, year, total_responses, created_at`

// analysisRow mirrors analysis_results; the payload columns are jsonb.
type analysisRow struct {
	UploadID     string       `db:"upload_id"`
	AnalysisData []byte       `db:"analysis_data"`
	BasicStats   []byte       `db:"basic_stats"`
	Summary      []byte       `db:"summary"`
	Responses    []byte       `db:"responses"`
	ColumnInfo   []byte       `db:"column_info"`
	CreatedAt    sql.NullTime `db:"created_at"`
}

func marshalAll(values ...any) ([][]byte, error) {
	out := make([][]byte, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Create inserts the upload and its analysis in one transaction
func (r *uploadRepository) Create(ctx context.Context, upload *survey.Upload, analysis *survey.StoredAnalysis) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO uploads (
		id, file_name, file_path, file_size, mime_type, year, total_responses, created_at
	) VALUES (
		:id, :file_name, :file_path, :file_size, :mime_type, :year, :total_responses, :created_at
	)`, upload)
	if err != nil {
		return errors.DatabaseError("failed to create upload", err)
	}

	if analysis != nil {
		payload, err := marshalAll(analysis.AnalysisData, analysis.BasicStats, analysis.Summary,
			analysis.Responses, analysis.Columns)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal analysis for upload %s", upload.ID)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO analysis_results (
			upload_id, analysis_data, basic_stats, summary, responses, column_info, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			upload.ID, payload[0], payload[1], payload[2], payload[3], payload[4], analysis.CreatedAt)
		if err != nil {
			return errors.DatabaseError("failed to store analysis", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit upload", err)
	}
	return nil
}

// GetByID retrieves an upload by its ID
func (r *uploadRepository) GetByID(ctx context.Context, id core.UploadID) (*survey.Upload, error) {
	var upload survey.Upload
	err := r.db.GetContext(ctx, &upload, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id.String())
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("upload " + id.String())
		}
		return nil, errors.DatabaseError("failed to get upload", err)
	}
	return &upload, nil
}

// List returns uploads newest first, optionally for one year
func (r *uploadRepository) List(ctx context.Context, year string, limit int) ([]*survey.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads
	WHERE ($1 = '' OR year = $1)
	ORDER BY created_at DESC, id DESC`
	args := []any{year}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	uploads := []*survey.Upload{}
	if err := r.db.SelectContext(ctx, &uploads, query, args...); err != nil {
		return nil, errors.DatabaseError("failed to list uploads", err)
	}
	return uploads, nil
}

// GetAnalysis retrieves the stored analysis of an upload
func (r *uploadRepository) GetAnalysis(ctx context.Context, id core.UploadID) (*survey.StoredAnalysis, error) {
	var row analysisRow
	err := r.db.GetContext(ctx, &row, `SELECT
		upload_id, analysis_data, basic_stats, summary, responses, column_info, created_at
	FROM analysis_results WHERE upload_id = $1`, id.String())
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("analysis for upload " + id.String())
		}
		return nil, errors.DatabaseError("failed to get analysis", err)
	}

	analysis := &survey.StoredAnalysis{UploadID: row.UploadID, CreatedAt: row.CreatedAt.Time}
	targets := []struct {
		data []byte
		dst  any
	}{
		{row.AnalysisData, &analysis.AnalysisData},
		{row.BasicStats, &analysis.BasicStats},
		{row.Summary, &analysis.Summary},
		{row.Responses, &analysis.Responses},
		{row.ColumnInfo, &analysis.Columns},
	}
	for _, t := range targets {
		if len(t.data) == 0 {
			continue
		}
		if err := json.Unmarshal(t.data, t.dst); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal analysis for upload %s", id)
		}
	}
	return analysis, nil
}

// Delete removes an upload; its analysis goes with it via ON DELETE CASCADE
func (r *uploadRepository) Delete(ctx context.Context, id core.UploadID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1`, id.String())
	if err != nil {
		return errors.DatabaseError("failed to delete upload", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("upload " + id.String())
	}
	return nil
}

package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"surveylens/domain/core"
	"surveylens/domain/survey"
	"surveylens/internal"
	"surveylens/internal/errors"
	"surveylens/ports"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/unicode/norm"
)

var (
	unsafeFileChars = regexp.MustCompile(`[^\w.-]+`)
	repeatedUnders  = regexp.MustCompile(`_+`)
)

// SanitizeFileName turns an uploaded file name into a safe object key part.
func SanitizeFileName(name string) string {
	s := norm.NFKD.String(name)
	s = unsafeFileChars.ReplaceAllString(s, "_")
	s = repeatedUnders.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "upload"
	}
	return s
}

// UploadInput is one spreadsheet submitted for storage.
type UploadInput struct {
	FileName string
	Year     string
	Data     []byte
}

// UploadService analyzes uploaded spreadsheets and stores them with their
// results. The blob store is optional.
type UploadService struct {
	analysis *AnalysisService
	repo     ports.UploadRepository
	blobs    ports.BlobStore
	maxBytes int64
	logger   *internal.Logger
	now      func() time.Time
}

func NewUploadService(analysis *AnalysisService, repo ports.UploadRepository, blobs ports.BlobStore, maxBytes int64) *UploadService {
	return &UploadService{
		analysis: analysis,
		repo:     repo,
		blobs:    blobs,
		maxBytes: maxBytes,
		logger:   internal.DefaultLogger.With("UploadService"),
		now:      analysis.now,
	}
}

// Upload validates, analyzes and stores a spreadsheet. Nothing is stored
// when the file cannot be parsed.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*survey.Upload, error) {
	switch {
	case len(in.Data) == 0:
		return nil, errors.InvalidInput("ファイルが選択されていません")
	case strings.TrimSpace(in.Year) == "":
		return nil, errors.InvalidInput("年度が選択されていません")
	case s.maxBytes > 0 && int64(len(in.Data)) > s.maxBytes:
		return nil, errors.InvalidInput(fmt.Sprintf("ファイルサイズは%dMB以下にしてください", s.maxBytes>>20))
	}

	result := s.analysis.ProcessFile(in.Data, survey.ParseOptions{FileName: in.FileName})
	if !result.Success {
		return nil, errors.New(errors.CodeParseFailed, firstError(result.ParseResult, result.Error))
	}
	summary, err := result.Summary()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	id := core.NewUploadID()
	key := fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeFileName(in.FileName))
	mime := mimetype.Detect(in.Data).String()

	if s.blobs != nil {
		if err := s.blobs.Put(ctx, key, in.Data, mime); err != nil {
			return nil, errors.Wrap(err, "ファイルのアップロードに失敗しました")
		}
	}

	upload := &survey.Upload{
		ID:             id.String(),
		FileName:       in.FileName,
		FilePath:       key,
		FileSize:       int64(len(in.Data)),
		MimeType:       mime,
		Year:           strings.TrimSpace(in.Year),
		TotalResponses: result.BasicStats.TotalResponses,
		CreatedAt:      now,
	}
	stored := &survey.StoredAnalysis{
		UploadID:     upload.ID,
		AnalysisData: result.AnalysisData,
		BasicStats:   *result.BasicStats,
		Summary:      *summary,
		Responses:    result.ParseResult.Data,
		Columns:      result.ParseResult.Metadata.Columns,
		CreatedAt:    now,
	}

	if err := s.repo.Create(ctx, upload, stored); err != nil {
		if s.blobs != nil {
			if derr := s.blobs.Delete(ctx, key); derr != nil {
				s.logger.Warn("failed to remove orphaned object %s: %v", key, derr)
			}
		}
		return nil, errors.Wrap(err, "データベースへの保存に失敗しました")
	}

	s.logger.Info("stored upload %s (%s, sha256 %s, %d responses)",
		upload.ID, upload.FileName, core.NewHash(in.Data).Short(), upload.TotalResponses)
	return upload, nil
}

func (s *UploadService) List(ctx context.Context, year string, limit int) ([]*survey.Upload, error) {
	return s.repo.List(ctx, strings.TrimSpace(year), limit)
}

// Latest returns the newest upload of a year.
func (s *UploadService) Latest(ctx context.Context, year string) (*survey.Upload, error) {
	uploads, err := s.repo.List(ctx, strings.TrimSpace(year), 1)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, errors.NotFound("upload")
	}
	return uploads[0], nil
}

func (s *UploadService) Get(ctx context.Context, id core.UploadID) (*survey.Upload, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes the upload, its analysis and the stored file.
func (s *UploadService) Delete(ctx context.Context, id core.UploadID) error {
	upload, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.blobs != nil && upload.FilePath != "" {
		if err := s.blobs.Delete(ctx, upload.FilePath); err != nil {
			s.logger.Warn("failed to remove object %s: %v", upload.FilePath, err)
		}
	}
	return nil
}

// AnalysisQuery selects part of a stored analysis. Filter has the form
// "company:<name>", "age:<band>" or "jobType:<type>".
type AnalysisQuery struct {
	QuestionID   string
	AnalysisType survey.AnalysisType
	Filter       string
}

// AnalysisView is a stored analysis, or one question of it, possibly
// recomputed over a filtered response subset.
type AnalysisView struct {
	UploadID   string                  `json:"uploadId"`
	Filter     string                  `json:"filter,omitempty"`
	Analysis   []survey.AnalysisResult `json:"analysis,omitempty"`
	Question   *survey.AnalysisResult  `json:"question,omitempty"`
	BasicStats *survey.BasicStats      `json:"basicStats,omitempty"`
	Summary    *survey.Summary         `json:"summary,omitempty"`
}

var filterFields = map[string]survey.QuestionID{
	"company": survey.QuestionCompanyName,
	"age":     survey.QuestionAge,
	"jobType": survey.QuestionJobType,
}

// FilterResponses keeps the responses whose filter field equals the filter
// value. An empty filter keeps everything.
func FilterResponses(responses []survey.Response, filter string) ([]survey.Response, error) {
	if filter == "" {
		return responses, nil
	}
	field, value, ok := strings.Cut(filter, ":")
	question, known := filterFields[field]
	if !ok || !known || strings.TrimSpace(value) == "" {
		return nil, errors.InvalidInput(fmt.Sprintf("不正なフィルターです: %s", filter))
	}
	value = strings.TrimSpace(value)

	kept := []survey.Response{}
	for _, r := range responses {
		if a, ok := r.Answers[question]; ok && strings.TrimSpace(a.String()) == value {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// Analysis returns the stored analysis of an upload. A filter re-runs the
// analyzer over the matching responses.
func (s *UploadService) Analysis(ctx context.Context, id core.UploadID, q AnalysisQuery) (*AnalysisView, error) {
	stored, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &AnalysisView{UploadID: stored.UploadID, Filter: q.Filter}

	if q.QuestionID == "" && q.Filter == "" {
		view.Analysis = stored.AnalysisData
		view.BasicStats = &stored.BasicStats
		view.Summary = &stored.Summary
		return view, nil
	}

	responses, err := FilterResponses(stored.Responses, q.Filter)
	if err != nil {
		return nil, err
	}
	result := s.analysis.AnalyzeResponses(responses, stored.Columns)

	if q.QuestionID == "" {
		summary, err := result.Summary()
		if err != nil {
			return nil, err
		}
		view.Analysis = result.AnalysisData
		view.BasicStats = result.BasicStats
		view.Summary = summary
		return view, nil
	}

	if !answered(stored.Responses, q.QuestionID) {
		return nil, errors.NotFound(fmt.Sprintf("question %s", q.QuestionID))
	}
	kind := q.AnalysisType
	if kind == "" {
		kind = survey.AnalysisDistribution
	}
	question, err := result.QuestionAnalysis(q.QuestionID, kind)
	if err != nil {
		return nil, err
	}
	view.Question = question
	return view, nil
}

func answered(responses []survey.Response, key string) bool {
	for _, r := range responses {
		if _, ok := r.Lookup(key); ok {
			return true
		}
	}
	return false
}

// Summary returns the stored summary of an upload.
func (s *UploadService) Summary(ctx context.Context, id core.UploadID) (*survey.Summary, error) {
	stored, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	return &stored.Summary, nil
}

// QuestionInfo describes one column of a stored upload and the analyses
// that apply to it.
type QuestionInfo struct {
	ID            string                `json:"id"`
	Header        string                `json:"originalHeader"`
	Kind          survey.QuestionKind   `json:"type"`
	HasAnalysis   bool                  `json:"hasAnalysis"`
	AnalysisTypes []survey.AnalysisType `json:"analysisTypes"`
}

func analysisTypesFor(kind survey.QuestionKind) []survey.AnalysisType {
	switch kind {
	case survey.KindOrdinal:
		return []survey.AnalysisType{survey.AnalysisDistribution, survey.AnalysisJobType, survey.AnalysisDemographic}
	case survey.KindText:
		return []survey.AnalysisType{survey.AnalysisText}
	case survey.KindDate:
		return []survey.AnalysisType{}
	}
	return []survey.AnalysisType{survey.AnalysisMultipleChoice}
}

// Questions lists the questions of a stored upload, skipping the timestamp.
func (s *UploadService) Questions(ctx context.Context, id core.UploadID) ([]QuestionInfo, error) {
	stored, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}

	analyzed := make(map[string]bool, len(stored.AnalysisData))
	for _, a := range stored.AnalysisData {
		analyzed[a.QuestionID] = true
	}

	questions := []QuestionInfo{}
	for _, col := range stored.Columns {
		if col.QuestionID == survey.QuestionTimestamp {
			continue
		}
		kind, ok := col.QuestionID.Kind()
		if !ok {
			kind = survey.KindText
			if col.DataType != survey.DataText {
				kind = survey.KindCategorical
			}
		}
		questions = append(questions, QuestionInfo{
			ID:            col.Key(),
			Header:        col.Header,
			Kind:          kind,
			HasAnalysis:   analyzed[col.Key()],
			AnalysisTypes: analysisTypesFor(kind),
		})
	}
	return questions, nil
}

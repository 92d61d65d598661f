package api

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"surveylens/app"
	"surveylens/domain/core"
	"surveylens/domain/survey"
	"surveylens/internal/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const (
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

// localize replaces the message of a not-found error with a user-facing one.
func localize(err error, msg string) error {
	if errors.GetCode(err) == errors.CodeNotFound {
		return errors.Wrap(err, msg)
	}
	return err
}

// readFile reads the "file" part of a multipart form. A missing part yields
// nil data and no error.
func (s *Server) readFile(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, "", errors.InvalidInput(fmt.Sprintf("ファイルサイズは%dMB以下にしてください", s.maxUploadBytes>>20))
		}
		return nil, "", errors.InvalidInput("フォームデータの解析に失敗しました")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if stderrors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", errors.InvalidInput("ファイルの読み込みに失敗しました")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", errors.InvalidInput("ファイルの読み込みに失敗しました")
	}
	return data, header.Filename, nil
}

func formInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("%sは数値で指定してください", key))
	}
	if n < 0 {
		return 0, errors.ValidationError(fmt.Sprintf("%sは0以上で指定してください", key))
	}
	return n, nil
}

// POST /api/analyze
// Multipart form: file, optional sheetName, headerRow, skipEmptyRows, maxRows.
// Runs the engine without storing anything.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) error {
	data, name, err := s.readFile(w, r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.InvalidInput("ファイルが選択されていません")
	}

	opts := survey.ParseOptions{FileName: name, SheetName: r.FormValue("sheetName")}
	if opts.HeaderRow, err = formInt(r, "headerRow"); err != nil {
		return err
	}
	if opts.MaxRows, err = formInt(r, "maxRows"); err != nil {
		return err
	}
	opts.SkipEmptyRows, _ = strconv.ParseBool(r.FormValue("skipEmptyRows"))

	report, err := s.analysis.AnalyzeFile(data, opts)
	if err != nil {
		return err
	}
	render.JSON(w, r, report)
	return nil
}

// POST /api/uploads
// Multipart form: file, year.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) error {
	data, name, err := s.readFile(w, r)
	if err != nil {
		return err
	}

	upload, err := s.uploads.Upload(r.Context(), app.UploadInput{
		FileName: name,
		Year:     r.FormValue("year"),
		Data:     data,
	})
	if err != nil {
		return err
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]any{
		"success": true,
		"upload":  upload,
		"message": "ファイルのアップロードが完了しました",
	})
	return nil
}

// GET /api/uploads?year=2024 returns the newest upload of the year;
// without a year, GET /api/uploads?limit=20 lists uploads newest first.
func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()

	if year := strings.TrimSpace(query.Get("year")); year != "" {
		upload, err := s.uploads.Latest(r.Context(), year)
		if err != nil && errors.GetCode(err) != errors.CodeNotFound {
			return err
		}
		render.JSON(w, r, map[string]any{"upload": upload})
		return nil
	}

	limit, _ := strconv.Atoi(query.Get("limit"))
	uploads, err := s.uploads.List(r.Context(), "", limit)
	if err != nil {
		return err
	}
	render.JSON(w, r, map[string]any{"uploads": uploads})
	return nil
}

// GET /api/uploads/{id}
func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) error {
	upload, err := s.uploads.Get(r.Context(), core.UploadID(chi.URLParam(r, "id")))
	if err != nil {
		return localize(err, "アップロードが見つかりません")
	}
	render.JSON(w, r, map[string]any{"upload": upload})
	return nil
}

// DELETE /api/uploads/{id}
func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) error {
	if err := s.uploads.Delete(r.Context(), core.UploadID(chi.URLParam(r, "id"))); err != nil {
		return localize(err, "アップロードが見つかりません")
	}
	render.JSON(w, r, map[string]any{
		"success": true,
		"message": "アップロードが削除されました",
	})
	return nil
}

// GET /api/analysis/{id}?questionId=&analysisType=&filter=company:A社
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	q := app.AnalysisQuery{
		QuestionID:   strings.TrimSpace(query.Get("questionId")),
		AnalysisType: survey.AnalysisType(strings.TrimSpace(query.Get("analysisType"))),
		Filter:       strings.TrimSpace(query.Get("filter")),
	}

	view, err := s.uploads.Analysis(r.Context(), core.UploadID(chi.URLParam(r, "id")), q)
	if err != nil {
		if q.QuestionID != "" {
			return localize(err, "指定された設問の分析データが見つかりません")
		}
		return localize(err, "分析データが存在しません")
	}

	if view.Question != nil {
		render.JSON(w, r, map[string]any{"analysis": view.Question, "filter": view.Filter})
		return nil
	}
	render.JSON(w, r, map[string]any{
		"analysis":   view.Analysis,
		"basicStats": view.BasicStats,
		"summary":    view.Summary,
		"filter":     view.Filter,
	})
	return nil
}

// GET /api/analysis/summary/{id}
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) error {
	summary, err := s.uploads.Summary(r.Context(), core.UploadID(chi.URLParam(r, "id")))
	if err != nil {
		return localize(err, "分析データが存在しません")
	}
	render.JSON(w, r, map[string]any{"summary": summary})
	return nil
}

// GET /api/analysis/questions/{id}
func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) error {
	questions, err := s.uploads.Questions(r.Context(), core.UploadID(chi.URLParam(r, "id")))
	if err != nil {
		return localize(err, "分析データが存在しません")
	}
	render.JSON(w, r, map[string]any{"questions": questions})
	return nil
}

package app

import (
	"fmt"
	"time"

	"surveylens/domain/survey"
	"surveylens/internal"
	"surveylens/internal/analysis"
	"surveylens/internal/errors"
	"surveylens/internal/metrics"
	"surveylens/internal/parser"
	"surveylens/internal/validation"
)

const parseFailedMessage = "Excelファイルの解析に失敗しました"

// AnalysisService runs the parse → validate → analyze pipeline. It holds no
// per-file state; every call builds its own analyzer.
type AnalysisService struct {
	vocab     *survey.Vocabulary
	parser    *parser.Parser
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *internal.Logger
	now       func() time.Time
}

type ServiceOption func(*AnalysisService)

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *AnalysisService) { s.metrics = m }
}

// WithClock fixes the processing timestamps, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *AnalysisService) { s.now = now }
}

func WithLogger(logger *internal.Logger) ServiceOption {
	return func(s *AnalysisService) { s.logger = logger.With("AnalysisService") }
}

// NewAnalysisService creates the service. Naive dates in uploaded files are
// read in loc.
func NewAnalysisService(vocab *survey.Vocabulary, loc *time.Location, opts ...ServiceOption) *AnalysisService {
	s := &AnalysisService{
		vocab:  vocab,
		logger: internal.DefaultLogger.With("AnalysisService"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = parser.New(vocab, loc, parser.WithClock(s.now), parser.WithLogger(s.logger))
	s.validator = validation.NewValidator(vocab)
	return s
}

func (s *AnalysisService) Vocabulary() *survey.Vocabulary { return s.vocab }

// DetectFormat classifies a header row without parsing any data.
func (s *AnalysisService) DetectFormat(headers []string) survey.FormatDetectionResult {
	return s.parser.Detector().DetectFormat(headers)
}

// DetectFileFormat parses data and reports the layout its header row matched.
func (s *AnalysisService) DetectFileFormat(data []byte, opts survey.ParseOptions) (*survey.FormatDetectionResult, error) {
	parsed := s.parser.Parse(data, opts)
	if !parsed.Success {
		return nil, errors.New(errors.CodeParseFailed, firstError(parsed, parseFailedMessage))
	}
	return &parsed.Metadata.Format, nil
}

func firstError(parsed *survey.ParseResult, fallback string) string {
	if parsed != nil && len(parsed.Errors) > 0 {
		return parsed.Errors[0]
	}
	return fallback
}

// ProcessResult is the outcome of one engine run. When parsing fails only
// ParseResult and Error are set.
type ProcessResult struct {
	Success      bool                     `json:"success"`
	ParseResult  *survey.ParseResult      `json:"parseResult,omitempty"`
	Validation   *survey.ValidationResult `json:"validation,omitempty"`
	AnalysisData []survey.AnalysisResult  `json:"analysisData,omitempty"`
	BasicStats   *survey.BasicStats       `json:"basicStats,omitempty"`
	Error        string                   `json:"error,omitempty"`

	vocab    *survey.Vocabulary
	analyzer *analysis.Analyzer
	now      func() time.Time
}

// ProcessFile parses data and, when parsing succeeds, validates and analyzes
// the responses. Validation findings are advisory and never stop analysis.
func (s *AnalysisService) ProcessFile(data []byte, opts survey.ParseOptions) *ProcessResult {
	start := time.Now()
	s.logger.Info("processing %q (%d bytes)", opts.FileName, len(data))

	parsed := s.parser.Parse(data, opts)
	if !parsed.Success {
		s.metrics.FileProcessed(false, time.Since(start))
		s.logger.Warn("parse failed for %q: %v", opts.FileName, parsed.Errors)
		return &ProcessResult{
			ParseResult: parsed,
			Error:       parseFailedMessage,
			vocab:       s.vocab,
			now:         s.now,
		}
	}

	result := s.AnalyzeResponses(parsed.Data, parsed.Metadata.Columns)
	result.ParseResult = parsed
	for _, e := range result.Validation.Errors {
		parsed.Errors = append(parsed.Errors, fmt.Sprintf("%d行目: %s", e.Row, e.Message))
	}
	for _, w := range result.Validation.Warnings {
		parsed.Warnings = append(parsed.Warnings, w.Message)
	}

	s.recordParse(parsed)
	s.metrics.FileProcessed(true, time.Since(start))
	s.logger.Info("processed %q: %d analyses, %d/%d usable responses in %.2fms",
		opts.FileName, len(result.AnalysisData), result.BasicStats.ValidResponses,
		result.BasicStats.TotalResponses, float64(time.Since(start).Nanoseconds())/1e6)
	return result
}

// AnalyzeResponses validates and analyzes an already parsed response set.
// Stored uploads use it to re-run analysis over a filtered subset.
func (s *AnalysisService) AnalyzeResponses(responses []survey.Response, columns []survey.ColumnInfo) *ProcessResult {
	checked := s.validator.Validate(responses, columns)
	analyzer := analysis.NewAnalyzer(s.vocab, responses, analysis.WithClock(s.now))
	stats := analyzer.BasicStats()

	return &ProcessResult{
		Success:      true,
		Validation:   &checked,
		AnalysisData: analyzer.GenerateAll(),
		BasicStats:   &stats,
		vocab:        s.vocab,
		analyzer:     analyzer,
		now:          s.now,
	}
}

func (s *AnalysisService) recordParse(parsed *survey.ParseResult) {
	if s.metrics == nil {
		return
	}
	usable, empty, flagged := 0, 0, 0
	for _, r := range parsed.Data {
		switch {
		case r.Metadata.IsEmpty:
			empty++
		case r.Metadata.HasErrors:
			flagged++
		default:
			usable++
		}
	}
	defaulted := 0
	for _, c := range parsed.Metadata.Columns {
		defaulted += c.DefaultedCount
	}
	s.metrics.Responses(usable, empty, flagged)
	s.metrics.DefaultedCells(defaulted)
	s.metrics.SchemaDetected(string(parsed.Metadata.Format.Schema))
}

// Responses returns the responses taking part in analysis.
func (r *ProcessResult) Responses() []survey.Response {
	if r.analyzer == nil {
		return nil
	}
	return r.analyzer.Responses()
}

// QuestionAnalysis runs one analysis kind for one question. Segmented kinds
// (jobType, demographic) carry a map of segment value to DistributionData.
func (r *ProcessResult) QuestionAnalysis(questionID string, kind survey.AnalysisType) (*survey.AnalysisResult, error) {
	if r.analyzer == nil {
		return nil, errors.NotAnalyzed()
	}
	data, ok := r.analyzer.Analyze(questionID, kind)
	if !ok {
		return nil, errors.UnsupportedAnalysis(string(kind))
	}

	answered := 0
	switch d := data.(type) {
	case survey.DistributionData:
		answered = d.TotalResponses
	case survey.MultipleChoiceData:
		answered = d.TotalResponses
	case survey.TextAnalysisData:
		answered = d.TotalResponses
	case map[string]survey.DistributionData:
		for _, seg := range d {
			answered += seg.TotalResponses
		}
	}

	return &survey.AnalysisResult{
		QuestionID:   questionID,
		AnalysisType: kind,
		Data:         data,
		Metadata: survey.AnalysisMetadata{
			TotalResponses: len(r.analyzer.Responses()),
			ValidResponses: answered,
			ProcessedAt:    r.now().UTC().Format(survey.TimestampLayout),
		},
	}, nil
}

// Report bundles everything produced for one file.
type Report struct {
	ParseResult  *survey.ParseResult      `json:"parseResult"`
	Validation   *survey.ValidationResult `json:"validation"`
	AnalysisData []survey.AnalysisResult  `json:"analysisData"`
	BasicStats   *survey.BasicStats       `json:"basicStats"`
	Summary      *survey.Summary          `json:"summary"`
}

// AnalyzeFile runs ProcessFile and builds the summary. A parse failure is
// returned as an error carrying the parser's first message.
func (s *AnalysisService) AnalyzeFile(data []byte, opts survey.ParseOptions) (*Report, error) {
	result := s.ProcessFile(data, opts)
	if !result.Success {
		return nil, errors.New(errors.CodeParseFailed, firstError(result.ParseResult, result.Error))
	}
	summary, err := result.Summary()
	if err != nil {
		return nil, err
	}
	return &Report{
		ParseResult:  result.ParseResult,
		Validation:   result.Validation,
		AnalysisData: result.AnalysisData,
		BasicStats:   result.BasicStats,
		Summary:      summary,
	}, nil
}

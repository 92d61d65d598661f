package survey

import "time"

// DataKind is the value kind inferred for a column from sampled cells.
type DataKind string

const (
	DataNumber  DataKind = "number"
	DataDate    DataKind = "date"
	DataBoolean DataKind = "boolean"
	DataText    DataKind = "text"
	DataMixed   DataKind = "mixed"
)

// ColumnInfo describes one spreadsheet column. It is built once per parse.
type ColumnInfo struct {
	Index          int        `json:"index"`
	Header         string     `json:"header"`
	DataType       DataKind   `json:"dataType"`
	SampleValues   []string   `json:"sampleValues"`
	NullCount      int        `json:"nullCount"`
	QuestionID     QuestionID `json:"questionId,omitempty"`
	DefaultedCount int        `json:"defaultedCount"`
}

// Key returns the answer-map key used for cells of this column.
func (c ColumnInfo) Key() string {
	if c.QuestionID != "" {
		return string(c.QuestionID)
	}
	return c.Header
}

// SchemaVersion identifies a known questionnaire layout.
type SchemaVersion string

const (
	SchemaCurrent SchemaVersion = "current"
	SchemaLegacy  SchemaVersion = "legacy"
	SchemaUnknown SchemaVersion = "unknown"
)

// FormatDetectionResult reports how well a header row matches the known schemas.
type FormatDetectionResult struct {
	Schema         SchemaVersion `json:"schema"`
	Confidence     float64       `json:"confidence"`
	MatchedHeaders []string      `json:"matchedHeaders"`
	MissingHeaders []string      `json:"missingHeaders"`
	ExtraHeaders   []string      `json:"extraHeaders"`
}

// ResponseMetadata carries per-row parse flags.
type ResponseMetadata struct {
	IsEmpty       bool     `json:"isEmpty"`
	HasErrors     bool     `json:"hasErrors"`
	ErrorMessages []string `json:"errorMessages"`
}

// Response is one survey submission. Known questions live in Answers,
// headers that did not resolve to a question live in Unmapped.
type Response struct {
	RowNumber  int                   `json:"rowNumber"`
	ResponseID string                `json:"responseId,omitempty"`
	Timestamp  string                `json:"timestamp,omitempty"`
	Answers    map[QuestionID]Answer `json:"answers"`
	Unmapped   map[string]Answer     `json:"unmappedAnswers,omitempty"`
	Metadata   ResponseMetadata      `json:"metadata"`
}

// Lookup returns the answer stored under a canonical identifier or raw header.
func (r Response) Lookup(key string) (Answer, bool) {
	if a, ok := r.Answers[QuestionID(key)]; ok {
		return a, true
	}
	a, ok := r.Unmapped[key]
	return a, ok
}

// Usable reports whether the response takes part in analysis.
func (r Response) Usable() bool {
	return !r.Metadata.IsEmpty && !r.Metadata.HasErrors
}

// ParseOptions tunes spreadsheet reading.
type ParseOptions struct {
	FileName      string `json:"fileName,omitempty"`
	SheetName     string `json:"sheetName,omitempty"`
	HeaderRow     int    `json:"headerRow" validate:"gte=0"`
	SkipEmptyRows bool   `json:"skipEmptyRows"`
	MaxRows       int    `json:"maxRows,omitempty" validate:"gte=0"`
}

// ExcelMetadata describes the parsed sheet.
type ExcelMetadata struct {
	FileName     string                `json:"fileName"`
	SheetName    string                `json:"sheetName"`
	TotalRows    int                   `json:"totalRows"`
	TotalColumns int                   `json:"totalColumns"`
	HeaderRow    int                   `json:"headerRow"`
	DataRows     int                   `json:"dataRows"`
	ProcessedAt  string                `json:"processedAt"`
	Columns      []ColumnInfo          `json:"columns"`
	Format       FormatDetectionResult `json:"format"`
}

// ParseResult is the engine's parse contract.
type ParseResult struct {
	Success  bool           `json:"success"`
	Data     []Response     `json:"data,omitempty"`
	Metadata *ExcelMetadata `json:"metadata,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Severity of a validation error.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type ValidationError struct {
	Row      int      `json:"row"`
	Column   string   `json:"column"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

type ValidationWarning struct {
	Message      string `json:"message"`
	AffectedRows []int  `json:"affectedRows"`
	Suggestion   string `json:"suggestion,omitempty"`
}

// ValidationResult is advisory: an invalid result never halts analysis.
type ValidationResult struct {
	IsValid     bool                `json:"isValid"`
	Errors      []ValidationError   `json:"errors"`
	Warnings    []ValidationWarning `json:"warnings"`
	Suggestions []string            `json:"suggestions"`
}

// AnalysisType names an analysis kind.
type AnalysisType string

const (
	AnalysisDistribution   AnalysisType = "distribution"
	AnalysisMultipleChoice AnalysisType = "multipleChoice"
	AnalysisText           AnalysisType = "textAnalysis"
	AnalysisJobType        AnalysisType = "jobType"
	AnalysisDemographic    AnalysisType = "demographic"
)

// ChartPoint is one labelled, colored value.
type ChartPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

type DistributionData struct {
	Distribution      []ChartPoint `json:"distribution"`
	TotalResponses    int          `json:"totalResponses"`
	AverageScore      float64      `json:"averageScore"`
	SatisfactionRate  float64      `json:"satisfactionRate"`
	MedianScore       float64      `json:"medianScore"`
	StandardDeviation float64      `json:"standardDeviation"`
}

type MultipleChoiceData struct {
	MultipleChoiceData []ChartPoint `json:"multipleChoiceData"`
	TotalResponses     int          `json:"totalResponses"`
}

type RepresentativeAnswer struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Example  string `json:"example"`
}

type TextAnalysisData struct {
	CategoryData          []ChartPoint           `json:"aiCategoryData"`
	RepresentativeAnswers []RepresentativeAnswer `json:"representativeAnswers"`
	TotalResponses        int                    `json:"totalResponses"`
}

type AnalysisMetadata struct {
	TotalResponses int    `json:"totalResponses"`
	ValidResponses int    `json:"validResponses"`
	ProcessedAt    string `json:"processedAt"`
}

// AnalysisResult is one (question, analysis kind) output. Data holds a
// DistributionData, MultipleChoiceData or TextAnalysisData.
type AnalysisResult struct {
	QuestionID   string           `json:"questionId"`
	AnalysisType AnalysisType     `json:"analysisType"`
	Data         any              `json:"data"`
	Metadata     AnalysisMetadata `json:"metadata"`
}

type Demographics struct {
	Gender map[string]int `json:"gender"`
	Age    map[string]int `json:"age"`
	Tenure map[string]int `json:"yearsOfService"`
}

// BasicStats are corpus-level counts. TotalResponses counts every response
// handed to the analyzer, ValidResponses only the analyzable ones.
type BasicStats struct {
	TotalResponses int            `json:"totalResponses"`
	ValidResponses int            `json:"validResponses"`
	CompletionRate float64        `json:"completionRate"`
	CompanyCounts  map[string]int `json:"companyCounts"`
	JobTypeCounts  map[string]int `json:"jobTypeCounts"`
	Demographics   Demographics   `json:"demographics"`
}

// DataQuality grades corpus size.
type DataQuality string

const (
	QualityExcellent DataQuality = "excellent"
	QualityGood      DataQuality = "good"
	QualityFair      DataQuality = "fair"
	QualityPoor      DataQuality = "poor"
)

type QuestionScore struct {
	Question string  `json:"question"`
	Score    float64 `json:"score"`
}

type SummaryOverview struct {
	TotalResponses int         `json:"totalResponses"`
	ValidResponses int         `json:"validResponses"`
	CompletionRate float64     `json:"completionRate"`
	DataQuality    DataQuality `json:"dataQuality"`
}

type SummaryHighlights struct {
	HighestSatisfaction *QuestionScore `json:"highestSatisfaction"`
	LowestSatisfaction  *QuestionScore `json:"lowestSatisfaction"`
	TopConcerns         []string       `json:"topConcerns"`
	TopSuggestions      []string       `json:"topSuggestions"`
}

type Summary struct {
	Overview     SummaryOverview   `json:"overview"`
	Highlights   SummaryHighlights `json:"highlights"`
	Demographics Demographics      `json:"demographics"`
}

// Upload is a stored spreadsheet and its headline numbers.
type Upload struct {
	ID             string    `json:"id" db:"id"`
	FileName       string    `json:"fileName" db:"file_name"`
	FilePath       string    `json:"filePath" db:"file_path"`
	FileSize       int64     `json:"fileSize" db:"file_size"`
	MimeType       string    `json:"mimeType" db:"mime_type"`
	Year           string    `json:"year" db:"year"`
	TotalResponses int       `json:"totalResponses" db:"total_responses"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// StoredAnalysis is everything the engine produced for one upload.
type StoredAnalysis struct {
	UploadID     string           `json:"uploadId"`
	AnalysisData []AnalysisResult `json:"analysisData"`
	BasicStats   BasicStats       `json:"basicStats"`
	Summary      Summary          `json:"summary"`
	Responses    []Response       `json:"responses"`
	Columns      []ColumnInfo     `json:"columns"`
	CreatedAt    time.Time        `json:"createdAt"`
}

package parser

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"surveylens/adapters/excel"
	"surveylens/adapters/normalize"
	"surveylens/adapters/schema"
	"surveylens/domain/survey"
	"surveylens/internal"
	"surveylens/internal/errors"

	"github.com/go-playground/validator/v10"
)

const (
	inferenceSampleSize = 10
	displaySampleSize   = 5
)

var (
	numberPattern = regexp.MustCompile(`^[-+]?\d+(\.\d+)?$`)
	datePattern   = regexp.MustCompile(`^\d{4}[-/]\d{1,2}[-/]\d{1,2}`)
	validate      = validator.New()
)

// Parser turns a spreadsheet buffer into survey responses. A Parser holds
// only read-only tables and may be shared between goroutines.
type Parser struct {
	vocab      *survey.Vocabulary
	reader     *excel.DataReader
	detector   *schema.Detector
	normalizer *normalize.Normalizer
	logger     *internal.Logger
	now        func() time.Time
}

// Option customizes a Parser.
type Option func(*Parser)

// WithClock sets the clock used for ProcessedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLogger replaces the default logger.
func WithLogger(logger *internal.Logger) Option {
	return func(p *Parser) { p.logger = logger.With("Parser") }
}

// New creates a parser. Naive dates are read in loc.
func New(vocab *survey.Vocabulary, loc *time.Location, opts ...Option) *Parser {
	p := &Parser{
		vocab:      vocab,
		reader:     excel.NewDataReader(loc),
		detector:   schema.NewDetector(vocab),
		normalizer: normalize.New(vocab, loc),
		logger:     internal.DefaultLogger.With("Parser"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Detector exposes the schema detector the parser uses.
func (p *Parser) Detector() *schema.Detector { return p.detector }

func failure(err error) *survey.ParseResult {
	return &survey.ParseResult{Success: false, Errors: []string{errors.UserMessage(err)}}
}

// Parse reads data and parses the selected sheet. Fatal problems produce a
// result with Success=false and no partial data.
func (p *Parser) Parse(data []byte, opts survey.ParseOptions) *survey.ParseResult {
	if err := validate.Struct(opts); err != nil {
		return failure(errors.InvalidInput(fmt.Sprintf("解析オプションが不正です: %v", err)))
	}
	grid, err := p.reader.Read(data, excel.ReadOptions{SheetName: opts.SheetName})
	if err != nil {
		p.logger.Warn("failed to read %q: %v", opts.FileName, err)
		return failure(err)
	}
	return p.ParseGrid(grid, opts)
}

type dataRow struct {
	sheetRow int
	cells    []any
}

func cellAt(cells []any, i int) any {
	if i < len(cells) {
		return cells[i]
	}
	return nil
}

func rowIsEmpty(cells []any) bool {
	for _, c := range cells {
		if !normalize.IsBlank(c) {
			return false
		}
	}
	return true
}

// ParseGrid parses an already decoded grid.
func (p *Parser) ParseGrid(grid *excel.Grid, opts survey.ParseOptions) *survey.ParseResult {
	if err := validate.Struct(opts); err != nil {
		return failure(errors.InvalidInput(fmt.Sprintf("解析オプションが不正です: %v", err)))
	}
	start := time.Now()
	if grid == nil || len(grid.Rows) <= opts.HeaderRow {
		return failure(errors.EmptyGrid())
	}

	headerCells := grid.Rows[opts.HeaderRow]
	width := 0
	for _, row := range grid.Rows[opts.HeaderRow:] {
		width = max(width, len(row))
	}
	if width == 0 {
		return failure(errors.EmptyGrid())
	}

	rawHeaders := make([]string, width)
	headers := make([]string, width)
	for i := range headers {
		rawHeaders[i] = strings.TrimSpace(normalize.Stringify(cellAt(headerCells, i)))
		headers[i] = rawHeaders[i]
		if headers[i] == "" {
			headers[i] = fmt.Sprintf("列%d", i+1)
		}
	}

	var rows []dataRow
	for i, cells := range grid.Rows[opts.HeaderRow+1:] {
		if opts.SkipEmptyRows && rowIsEmpty(cells) {
			continue
		}
		rows = append(rows, dataRow{sheetRow: opts.HeaderRow + i + 2, cells: cells})
		if opts.MaxRows > 0 && len(rows) == opts.MaxRows {
			break
		}
	}

	format := p.detector.DetectFormat(rawHeaders)
	columns := p.buildColumns(rawHeaders, headers, rows, format.Schema)

	responses := make([]survey.Response, len(rows))
	for i, row := range rows {
		responses[i] = p.buildResponse(i, row, columns)
	}

	var warnings []string
	if format.Schema == survey.SchemaUnknown {
		warnings = append(warnings, fmt.Sprintf(
			"ファイル形式を判別できませんでした（一致率 %.0f%%）。列名から推測して解析します", format.Confidence*100))
	}

	p.logger.Info("parsed %q: %d responses, %d columns, schema=%s (%.2f) in %.2fms",
		opts.FileName, len(responses), width, format.Schema, format.Confidence,
		float64(time.Since(start).Nanoseconds())/1e6)

	return &survey.ParseResult{
		Success: true,
		Data:    responses,
		Metadata: &survey.ExcelMetadata{
			FileName:     opts.FileName,
			SheetName:    grid.SheetName,
			TotalRows:    len(grid.Rows),
			TotalColumns: width,
			HeaderRow:    opts.HeaderRow,
			DataRows:     len(responses),
			ProcessedAt:  p.now().UTC().Format(survey.TimestampLayout),
			Columns:      columns,
			Format:       format,
		},
		Warnings: warnings,
	}
}

func (p *Parser) buildColumns(rawHeaders, headers []string, rows []dataRow, version survey.SchemaVersion) []survey.ColumnInfo {
	claimed := make(map[survey.QuestionID]bool)
	columns := make([]survey.ColumnInfo, len(headers))
	for i := range headers {
		col := survey.ColumnInfo{
			Index:        i,
			Header:       headers[i],
			SampleValues: []string{},
		}
		if rawHeaders[i] != "" {
			// The first column claiming a question keeps it; later
			// duplicates stay keyed by their header.
			if id, ok := p.detector.ResolveHeader(rawHeaders[i], version); ok && !claimed[id] {
				col.QuestionID = id
				claimed[id] = true
			}
		}

		var sampled []any
		for _, row := range rows {
			cell := cellAt(row.cells, i)
			if normalize.IsBlank(cell) {
				col.NullCount++
				continue
			}
			if len(col.SampleValues) < displaySampleSize {
				col.SampleValues = append(col.SampleValues, normalize.Stringify(cell))
			}
			if len(sampled) < inferenceSampleSize {
				sampled = append(sampled, cell)
			}
		}
		col.DataType = p.inferDataKind(sampled)
		columns[i] = col
	}
	return columns
}

// inferDataKind classifies sampled non-null values. A column whose samples
// fall into more than one kind is mixed; a column with no samples is text.
func (p *Parser) inferDataKind(values []any) survey.DataKind {
	kind := survey.DataKind("")
	for _, v := range values {
		k := p.valueKind(v)
		if kind == "" {
			kind = k
		} else if kind != k {
			return survey.DataMixed
		}
	}
	if kind == "" {
		return survey.DataText
	}
	return kind
}

func (p *Parser) valueKind(v any) survey.DataKind {
	switch val := v.(type) {
	case float64, int, int64:
		return survey.DataNumber
	case time.Time:
		return survey.DataDate
	case bool:
		return survey.DataBoolean
	case string:
		s := normalize.Fold(val)
		switch {
		case numberPattern.MatchString(s), p.normalizer.IsOrdinalLabel(s):
			return survey.DataNumber
		case datePattern.MatchString(s):
			return survey.DataDate
		case p.normalizer.IsBooleanToken(s):
			return survey.DataBoolean
		}
	}
	return survey.DataText
}

func (p *Parser) buildResponse(index int, row dataRow, columns []survey.ColumnInfo) survey.Response {
	resp := survey.Response{
		RowNumber:  row.sheetRow,
		ResponseID: fmt.Sprintf("response_%d", index+1),
		Answers:    make(map[survey.QuestionID]survey.Answer),
		Unmapped:   make(map[string]survey.Answer),
		Metadata:   survey.ResponseMetadata{ErrorMessages: []string{}},
	}

	empty := true
	for i := range columns {
		col := &columns[i]
		cell := cellAt(row.cells, col.Index)
		if normalize.IsBlank(cell) {
			continue
		}
		empty = false
		answer, ok := p.normalizeCell(col, cell)
		if !ok {
			continue
		}
		if answer.Defaulted {
			col.DefaultedCount++
		}
		if col.QuestionID != "" {
			resp.Answers[col.QuestionID] = answer
		} else {
			resp.Unmapped[col.Header] = answer
		}
	}
	resp.Metadata.IsEmpty = empty

	if ts, ok := resp.Answers[survey.QuestionTimestamp]; ok && ts.Kind == survey.AnswerDate {
		resp.Timestamp = ts.String()
	}

	if !empty {
		required := p.vocab.RequiredField
		if _, ok := resp.Lookup(string(required.Question)); !ok {
			if _, ok := resp.Lookup(required.Header); !ok {
				resp.Metadata.HasErrors = true
				resp.Metadata.ErrorMessages = append(resp.Metadata.ErrorMessages, required.Message)
			}
		}
	}
	return resp
}

// normalizeCell applies the rule for the column's question kind, falling back
// to its inferred data kind for unmapped headers. It returns false when the
// cell yields no answer.
func (p *Parser) normalizeCell(col *survey.ColumnInfo, cell any) (survey.Answer, bool) {
	kind, known := col.QuestionID.Kind()

	switch {
	case known && kind == survey.KindOrdinal:
		r := p.normalizer.Ordinal(cell)
		return survey.OrdinalAnswer(r.Value, r.IsDefaulted()), r.Ok()
	case col.QuestionID == survey.QuestionTimestamp || (known && kind == survey.KindDate) || col.DataType == survey.DataDate:
		r := p.normalizer.Date(cell)
		return survey.DateAnswer(r.Value), r.Ok()
	case known && kind == survey.KindBoolean:
		r := p.normalizer.Boolean(cell)
		return survey.BooleanAnswer(r.Value, r.IsDefaulted()), r.Ok()
	case known && kind == survey.KindMultiSelect:
		r := p.normalizer.MultiSelect(cell)
		return survey.OptionsAnswer(r.Value), r.Ok()
	case known:
		r := p.normalizer.Text(cell)
		return survey.TextAnswer(r.Value), r.Ok()
	}

	switch col.DataType {
	case survey.DataNumber:
		if r := p.normalizer.Number(cell); r.Ok() {
			return survey.NumberAnswer(r.Value), true
		}
		r := p.normalizer.Text(cell)
		return survey.TextAnswer(r.Value), r.Ok()
	case survey.DataBoolean:
		r := p.normalizer.Boolean(cell)
		return survey.BooleanAnswer(r.Value, r.IsDefaulted()), r.Ok()
	}
	return nativeAnswer(cell)
}

func nativeAnswer(cell any) (survey.Answer, bool) {
	switch v := cell.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return survey.Answer{}, false
		}
		return survey.NumberAnswer(v), true
	case bool:
		return survey.BooleanAnswer(v, false), true
	case time.Time:
		return survey.DateAnswer(v), true
	}
	s := strings.TrimSpace(normalize.Stringify(cell))
	return survey.TextAnswer(s), s != ""
}

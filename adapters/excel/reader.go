package excel

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"surveylens/internal"
	"surveylens/internal/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
	mimeOLE  = "application/x-ole-storage"
	mimeZip  = "application/zip"
	mimeText = "text/plain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DataReader reads xlsx workbooks and CSV exports from memory into a Grid.
type DataReader struct {
	location *time.Location
	logger   *internal.Logger
}

// NewDataReader creates a reader. Date-formatted numeric cells are read as
// wall-clock times in loc; a nil loc means UTC.
func NewDataReader(loc *time.Location) *DataReader {
	if loc == nil {
		loc = time.UTC
	}
	return &DataReader{location: loc, logger: internal.DefaultLogger.With("DataReader")}
}

// DetectFormat sniffs the buffer and returns FormatXLSX or FormatCSV.
func DetectFormat(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", errors.EmptyGrid()
	}
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is(mimeXLSX), mtype.Is(mimeZip):
		return FormatXLSX, nil
	case mtype.Is(mimeXLS), mtype.Is(mimeOLE):
		return "", errors.UnsupportedFormat("旧形式の.xlsファイルはサポートされていません。.xlsx形式で保存してください")
	}
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is(mimeText) {
			return FormatCSV, nil
		}
	}
	return "", errors.UnsupportedFormat("サポートされていないファイル形式です: " + mtype.String())
}

// Read decodes data into a Grid.
func (r *DataReader) Read(data []byte, opts ReadOptions) (*Grid, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var grid *Grid
	switch format {
	case FormatXLSX:
		grid, err = r.readExcel(data, opts.SheetName)
	default:
		grid, err = r.readCSV(data)
	}
	if err != nil {
		return nil, err
	}
	if len(grid.Rows) == 0 {
		return nil, errors.EmptyGrid()
	}

	r.logger.Debug("%s sheet %q read in %.2fms (%d rows)",
		strings.ToUpper(format), grid.SheetName, float64(time.Since(start).Nanoseconds())/1e6, len(grid.Rows))
	return grid, nil
}

func (r *DataReader) readExcel(data []byte, sheetName string) (*Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.ParseFailed("Excelファイルの読み込みに失敗しました", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.EmptyGrid()
	}
	if sheetName == "" {
		sheetName = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheetName); idx < 0 {
		return nil, errors.SheetNotFound(sheetName)
	}

	formatted, err := f.GetRows(sheetName)
	if err != nil {
		return nil, errors.ParseFailed("シートの読み込みに失敗しました", err)
	}
	raw, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ParseFailed("シートの読み込みに失敗しました", err)
	}

	dateStyles := make(map[int]bool)
	rows := make([][]any, len(formatted))
	for i, row := range formatted {
		cells := make([]any, len(row))
		for j, text := range row {
			rawText := text
			if i < len(raw) && j < len(raw[i]) {
				rawText = raw[i][j]
			}
			cells[j] = r.excelCell(f, sheetName, i, j, text, rawText, dateStyles)
		}
		rows[i] = cells
	}

	return &Grid{SheetName: sheetName, Format: FormatXLSX, Rows: rows}, nil
}

// excelCell converts one cell to its native value using the cell type and
// number format recorded in the workbook.
func (r *DataReader) excelCell(f *excelize.File, sheet string, row, col int, text, rawText string, dateStyles map[int]bool) any {
	if strings.TrimSpace(text) == "" && strings.TrimSpace(rawText) == "" {
		return nil
	}
	cellRef, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return text
	}
	cellType, err := f.GetCellType(sheet, cellRef)
	if err != nil {
		return text
	}

	switch cellType {
	case excelize.CellTypeBool:
		return rawText == "1" || strings.EqualFold(rawText, "true")
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, rawText); err == nil {
			return t
		}
		return text
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		num, err := strconv.ParseFloat(rawText, 64)
		if err != nil {
			return text
		}
		if styleID, err := f.GetCellStyle(sheet, cellRef); err == nil && r.isDateStyle(f, styleID, dateStyles) {
			if t, err := excelize.ExcelDateToTime(num, false); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, r.location)
			}
		}
		return num
	}
	return text
}

func (r *DataReader) isDateStyle(f *excelize.File, styleID int, cache map[int]bool) bool {
	if isDate, ok := cache[styleID]; ok {
		return isDate
	}
	isDate := false
	if style, err := f.GetStyle(styleID); err == nil && style != nil {
		switch {
		case style.NumFmt >= 14 && style.NumFmt <= 22, style.NumFmt >= 45 && style.NumFmt <= 47:
			isDate = true
		case style.CustomNumFmt != nil:
			isDate = isDateNumFmt(*style.CustomNumFmt)
		}
	}
	cache[styleID] = isDate
	return isDate
}

// isDateNumFmt reports whether a custom number format renders a date. Quoted
// literals and bracketed sections are ignored.
func isDateNumFmt(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, ch := range format {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case !inBracket:
			b.WriteRune(ch)
		}
	}
	stripped := strings.ToLower(b.String())
	return strings.ContainsAny(stripped, "yd") || strings.Contains(stripped, "年") || strings.Contains(stripped, "日")
}

func (r *DataReader) readCSV(data []byte) (*Grid, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
		if err != nil {
			return nil, errors.ParseFailed("CSVファイルの文字コードを判別できません", err)
		}
		r.logger.Debug("decoded CSV as Shift_JIS")
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ParseFailed("CSVファイルの読み込みに失敗しました", err)
		}
		cells := make([]any, len(record))
		for i, field := range record {
			if strings.TrimSpace(field) == "" {
				cells[i] = nil
				continue
			}
			cells[i] = field
		}
		rows = append(rows, cells)
	}

	return &Grid{SheetName: "CSV", Format: FormatCSV, Rows: rows}, nil
}

package excel

// Grid is the raw cell matrix of one sheet. Cells hold string, float64,
// bool, time.Time or nil; rows may have different lengths.
type Grid struct {
	SheetName string
	Format    string // "xlsx" or "csv"
	Rows      [][]any
}

// ReadOptions selects what to read from a workbook.
type ReadOptions struct {
	// SheetName defaults to the first sheet. Ignored for CSV.
	SheetName string
}

package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"surveylens/domain/survey"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"
)

// Outcome records how a normalized value was obtained.
type Outcome int

const (
	// Absent means the cell carried nothing usable; Value is the zero value.
	Absent Outcome = iota
	// Present means Value was read from the cell.
	Present
	// Defaulted means the cell was unrecognized and Value is the fallback.
	Defaulted
)

func (o Outcome) String() string {
	switch o {
	case Present:
		return "present"
	case Defaulted:
		return "defaulted"
	}
	return "absent"
}

// Result is the outcome of normalizing one cell.
type Result[T any] struct {
	Value   T
	Outcome Outcome
}

func present[T any](v T) Result[T]   { return Result[T]{Value: v, Outcome: Present} }
func defaulted[T any](v T) Result[T] { return Result[T]{Value: v, Outcome: Defaulted} }
func absent[T any]() Result[T]       { return Result[T]{} }

// Ok reports whether the result carries a value, read or defaulted.
func (r Result[T]) Ok() bool { return r.Outcome != Absent }

// IsDefaulted reports whether a fallback rule produced the value.
func (r Result[T]) IsDefaulted() bool { return r.Outcome == Defaulted }

// NeutralScore is the ordinal fallback for unrecognized cells.
const NeutralScore = 3

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-1-2T15:04:05",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-1-2",
	"2006/1/2",
}

// Normalizer converts raw cell values into canonical answer values. It holds
// no mutable state and is safe for concurrent use.
type Normalizer struct {
	ordinalLabels map[string]int
	booleanTokens map[string]bool
	delimiter     string
	location      *time.Location
}

// New builds a normalizer from the vocabulary tables. Naive date strings are
// interpreted in loc; a nil loc means UTC.
func New(vocab *survey.Vocabulary, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	n := &Normalizer{
		ordinalLabels: make(map[string]int, len(vocab.OrdinalLabels)),
		booleanTokens: make(map[string]bool, len(vocab.BooleanTokens)),
		delimiter:     vocab.MultiSelectDelimiter,
		location:      loc,
	}
	for label, score := range vocab.OrdinalLabels {
		n.ordinalLabels[Fold(label)] = score
	}
	for token, b := range vocab.BooleanTokens {
		n.booleanTokens[strings.ToLower(Fold(token))] = b
	}
	return n
}

// Fold trims s and maps full-width ASCII to its half-width form.
func Fold(s string) string {
	return strings.TrimSpace(width.Fold.String(s))
}

// IsBlank reports whether a cell counts as null.
func IsBlank(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

// Stringify renders a raw cell the way it is shown in samples and tallies.
func Stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(survey.TimestampLayout)
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(raw)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func clampScore(f float64) int {
	return int(math.Max(1, math.Min(5, math.Round(f))))
}

// Ordinal maps a cell to a 1-5 score. Numbers are rounded and clamped, known
// labels use the label table and anything else falls back to NeutralScore.
func (n *Normalizer) Ordinal(raw any) Result[int] {
	if IsBlank(raw) {
		return absent[int]()
	}
	if f, ok := toFloat(raw); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return defaulted(NeutralScore)
		}
		return present(clampScore(f))
	}
	s, ok := raw.(string)
	if !ok {
		return defaulted(NeutralScore)
	}
	s = Fold(s)
	if score, ok := n.ordinalLabels[s]; ok {
		return present(score)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return present(clampScore(f))
	}
	return defaulted(NeutralScore)
}

// Boolean maps a cell through the boolean token table. Unknown tokens are
// false and marked as defaulted.
func (n *Normalizer) Boolean(raw any) Result[bool] {
	if IsBlank(raw) {
		return absent[bool]()
	}
	if b, ok := raw.(bool); ok {
		return present(b)
	}
	if b, ok := n.booleanTokens[strings.ToLower(Fold(Stringify(raw)))]; ok {
		return present(b)
	}
	return defaulted(false)
}

// MultiSelect splits a delimited cell into trimmed, non-empty options. List
// input is stringified and trimmed element-wise. Blank input yields an empty
// list with an Absent outcome.
func (n *Normalizer) MultiSelect(raw any) Result[[]string] {
	if IsBlank(raw) {
		return Result[[]string]{Value: []string{}}
	}
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = strings.TrimSpace(item)
		}
		return present(out)
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = strings.TrimSpace(Stringify(item))
		}
		return present(out)
	}
	out := []string{}
	for _, part := range strings.Split(strings.TrimSpace(Stringify(raw)), n.delimiter) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return present(out)
}

// Date accepts native times, Excel serial numbers and common date strings.
// Unparseable input is Absent, never an error.
func (n *Normalizer) Date(raw any) Result[time.Time] {
	if IsBlank(raw) {
		return absent[time.Time]()
	}
	switch v := raw.(type) {
	case time.Time:
		return present(v.UTC())
	case bool:
		return absent[time.Time]()
	}
	if f, ok := toFloat(raw); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return absent[time.Time]()
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return absent[time.Time]()
		}
		// Serial numbers carry wall-clock time without a zone.
		wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), n.location)
		return present(wall.UTC())
	}
	s := Fold(Stringify(raw))
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, n.location); err == nil {
			return present(t.UTC())
		}
	}
	return absent[time.Time]()
}

// Number parses a numeric cell. Non-numeric input is Absent.
func (n *Normalizer) Number(raw any) Result[float64] {
	if f, ok := toFloat(raw); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return absent[float64]()
		}
		return present(f)
	}
	s, ok := raw.(string)
	if !ok {
		return absent[float64]()
	}
	f, err := strconv.ParseFloat(Fold(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return absent[float64]()
	}
	return present(f)
}

// Text trims surrounding whitespace.
func (n *Normalizer) Text(raw any) Result[string] {
	if IsBlank(raw) {
		return absent[string]()
	}
	return present(strings.TrimSpace(Stringify(raw)))
}

// IsOrdinalLabel reports whether s is in the ordinal label table.
func (n *Normalizer) IsOrdinalLabel(s string) bool {
	_, ok := n.ordinalLabels[Fold(s)]
	return ok
}

// IsBooleanToken reports whether s is in the boolean token table.
func (n *Normalizer) IsBooleanToken(s string) bool {
	_, ok := n.booleanTokens[strings.ToLower(Fold(s))]
	return ok
}
